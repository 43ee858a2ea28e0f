package service

import (
	"time"

	"jobly/internal/entity"

	"github.com/google/uuid"
)

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type VerifyCodeInput struct {
	Code string
	// Email is optional; when present wrong guesses count against that registration.
	Email string
}

type LoginInput struct {
	Email     string
	Password  string
	IPAddress *string
	UserAgent *string
}

type LoginMFAInput struct {
	MFAToken  string
	Code      string
	IPAddress *string
	UserAgent *string
}

type LoginResult struct {
	User    *entity.User
	Session *IssuedSession

	MFARequired       bool
	MFAToken          string
	MFATokenExpiresIn int64
}

type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Image     *string
}

type Identity struct {
	SessionID     uuid.UUID
	UserID        uuid.UUID
	Email         string
	FirstName     string
	LastName      string
	Image         string
	EmailVerified bool
	ExpiresAt     time.Time
}

type IssuedSession struct {
	Token     string
	ExpiresAt time.Time
	Identity  Identity
}
