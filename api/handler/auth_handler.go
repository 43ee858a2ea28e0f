package handler

import (
	"errors"
	"net/http"

	"jobly/api/middleware"
	"jobly/internal/dto"
	"jobly/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	msgRegistered    = "Verification code sent to your email"
	msgVerified      = "Email verified, you can now log in"
	msgResetSent     = "If an account exists for that email, a password reset link has been sent"
	msgPasswordReset = "Password updated, please log in with your new password"
)

type AuthHandler struct {
	Service  *service.AuthService
	Validate *validator.Validate
	Cookie   SessionCookie
	Logger   logrus.FieldLogger
}

func NewAuthHandler(svc *service.AuthService, validate *validator.Validate, logger logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		Service:  svc,
		Validate: validate,
		Cookie:   DefaultSessionCookie(),
		Logger:   logger,
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if err := bindAndValidate(c, h.Validate, &req); err != nil {
		return writeServiceError(c, err)
	}
	input := service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if err := h.Service.Register(c.Request().Context(), input); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: msgRegistered})
}

func (h *AuthHandler) VerifyCode(c echo.Context) error {
	var req dto.VerifyCodeRequest
	if err := bindAndValidate(c, h.Validate, &req); err != nil {
		// Malformed codes are answered like wrong ones.
		var authErr *service.AuthError
		if errors.As(err, &authErr) && authErr.Code == service.CodeInvalidInput {
			return writeServiceError(c, service.ErrInvalidOrExpiredCode)
		}
		return writeServiceError(c, err)
	}
	user, err := h.Service.VerifyPendingRegistration(c.Request().Context(), service.VerifyCodeInput{
		Code:  req.Code,
		Email: req.Email,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.VerifyCodeResponse{Message: msgVerified, Email: user.Email})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := bindAndValidate(c, h.Validate, &req); err != nil {
		return writeServiceError(c, err)
	}
	meta := sessionMeta(c)
	result, err := h.Service.Login(c.Request().Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmailNotVerified) {
			return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error: service.ErrEmailNotVerified.Message,
				Code:  string(service.CodeEmailNotVerified),
			})
		}
		return writeServiceError(c, err)
	}
	return h.writeLogin(c, result)
}

func (h *AuthHandler) LoginWithMFA(c echo.Context) error {
	var req dto.LoginMFARequest
	if err := bindAndValidate(c, h.Validate, &req); err != nil {
		return writeServiceError(c, err)
	}
	meta := sessionMeta(c)
	result, err := h.Service.LoginWithMFA(c.Request().Context(), service.LoginMFAInput{
		MFAToken:  req.MFAToken,
		Code:      req.Code,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return h.writeLogin(c, result)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	token := h.Cookie.Read(c)
	if token != "" {
		if err := h.Service.Logout(c.Request().Context(), token, stringPtr(c.RealIP())); err != nil {
			h.logger(c).WithError(err).Error("logout failed to revoke session")
		}
	}
	h.Cookie.Clear(c)
	return c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

func (h *AuthHandler) LogoutAll(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeServiceError(c, service.ErrUnauthenticated)
	}
	count, err := h.Service.LogoutAll(c.Request().Context(), userID, stringPtr(c.RealIP()))
	if err != nil {
		return writeServiceError(c, err)
	}
	h.Cookie.Clear(c)
	return c.JSON(http.StatusOK, dto.LogoutAllResponse{Success: true, Revoked: count})
}

func (h *AuthHandler) CheckSession(c echo.Context) error {
	loggedOut := dto.SessionResponse{IsLoggedIn: false, User: nil}
	token := h.Cookie.Read(c)
	if token == "" {
		return c.JSON(http.StatusOK, loggedOut)
	}
	identity, err := h.Service.CheckSession(c.Request().Context(), token)
	if err != nil {
		if service.IsSessionError(err) {
			h.Cookie.Clear(c)
		} else {
			h.logger(c).WithError(err).Error("check session failed")
		}
		return c.JSON(http.StatusOK, loggedOut)
	}
	return c.JSON(http.StatusOK, dto.SessionResponse{IsLoggedIn: true, User: sessionUser(identity)})
}

// PasswordForgot answers identically for known and unknown emails, including
// when sending fails.
func (h *AuthHandler) PasswordForgot(c echo.Context) error {
	var req dto.PasswordForgotRequest
	if err := bindAndValidate(c, h.Validate, &req); err != nil {
		return writeServiceError(c, err)
	}
	if err := h.Service.RequestPasswordReset(c.Request().Context(), req.Email, stringPtr(c.RealIP())); err != nil {
		h.logger(c).WithError(err).Error("password reset request failed")
	}
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: msgResetSent})
}

func (h *AuthHandler) PasswordReset(c echo.Context) error {
	var req dto.PasswordResetRequest
	if err := bindAndValidate(c, h.Validate, &req); err != nil {
		return writeServiceError(c, err)
	}
	if req.Secret() == "" {
		return writeServiceError(c, service.ErrInvalidOrExpiredCode)
	}
	if err := h.Service.ResetPassword(c.Request().Context(), req.Secret(), req.NewPassword, stringPtr(c.RealIP())); err != nil {
		return writeServiceError(c, err)
	}
	h.Cookie.Clear(c)
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: msgPasswordReset})
}

func (h *AuthHandler) EnableMFA(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeServiceError(c, service.ErrUnauthenticated)
	}
	setup, err := h.Service.EnableMFA(c.Request().Context(), userID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.MFAEnableResponse{Secret: setup.Secret, OTPAuthURL: setup.OTPAuthURL})
}

func (h *AuthHandler) VerifyMFA(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeServiceError(c, service.ErrUnauthenticated)
	}
	var req dto.MFAVerifyRequest
	if err := bindAndValidate(c, h.Validate, &req); err != nil {
		return writeServiceError(c, err)
	}
	if err := h.Service.VerifyMFA(c.Request().Context(), userID, req.Code); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

func (h *AuthHandler) DisableMFA(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeServiceError(c, service.ErrUnauthenticated)
	}
	var req dto.MFAVerifyRequest
	if err := bindAndValidate(c, h.Validate, &req); err != nil {
		return writeServiceError(c, err)
	}
	if err := h.Service.DisableMFA(c.Request().Context(), userID, req.Code); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

func (h *AuthHandler) writeLogin(c echo.Context, result *service.LoginResult) error {
	if result.MFARequired {
		return c.JSON(http.StatusOK, dto.LoginResponse{
			MFARequired:       true,
			MFAToken:          result.MFAToken,
			MFATokenExpiresIn: result.MFATokenExpiresIn,
		})
	}
	h.Cookie.Set(c, result.Session.Token, result.Session.ExpiresAt)
	user := dto.UserResponseFromEntity(result.User)
	return c.JSON(http.StatusOK, dto.LoginResponse{User: &user})
}

func (h *AuthHandler) logger(c echo.Context) logrus.FieldLogger {
	logger := h.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return logger.WithField("request_id", requestID(c))
}

func sessionUser(identity *service.Identity) *dto.SessionUserResponse {
	return &dto.SessionUserResponse{
		ID:            identity.UserID.String(),
		Email:         identity.Email,
		FirstName:     identity.FirstName,
		LastName:      identity.LastName,
		Image:         identity.Image,
		EmailVerified: identity.EmailVerified,
	}
}
