package dto

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,maxbytes=72"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
}

type VerifyCodeRequest struct {
	Code  string `json:"code" validate:"required,len=6,numeric"`
	Email string `json:"email" validate:"omitempty,email"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginMFARequest struct {
	MFAToken string `json:"mfaToken" validate:"required"`
	Code     string `json:"code" validate:"required"`
}

type PasswordForgotRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetRequest accepts the reset secret as either "token" or "code".
type PasswordResetRequest struct {
	Token       string `json:"token"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword" validate:"required,min=8,maxbytes=72"`
}

func (r PasswordResetRequest) Secret() string {
	if r.Token != "" {
		return r.Token
	}
	return r.Code
}

type MFAVerifyRequest struct {
	Code string `json:"code" validate:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type VerifyCodeResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

type LoginResponse struct {
	User              *UserResponse `json:"user,omitempty"`
	MFARequired       bool          `json:"mfaRequired,omitempty"`
	MFAToken          string        `json:"mfaToken,omitempty"`
	MFATokenExpiresIn int64         `json:"mfaTokenExpiresIn,omitempty"`
}

type SessionResponse struct {
	IsLoggedIn bool                 `json:"isLoggedIn"`
	User       *SessionUserResponse `json:"user"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type LogoutAllResponse struct {
	Success bool `json:"success"`
	Revoked int  `json:"revoked"`
}

type MFAEnableResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
}

type CSRFResponse struct {
	Token string `json:"csrfToken"`
}

type ErrorResponse struct {
	Error         string `json:"error"`
	Code          string `json:"code"`
	CorrelationID string `json:"correlationId,omitempty"`
	Redirect      string `json:"redirect,omitempty"`
}
