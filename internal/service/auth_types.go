package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"jobly/internal/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthConfig struct {
	VerificationCodeTTL time.Duration
	ResetTokenTTL       time.Duration
	MFATokenTTL         time.Duration
	MFAIssuer           string
	// MaxCodeAttempts locks a pending registration after this many wrong guesses.
	MaxCodeAttempts int
}

type EmailSender interface {
	SendVerificationCode(ctx context.Context, email string, name string, code string) error
	SendPasswordReset(ctx context.Context, email string, token string) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify reports a mismatch as (false, nil); an error means the digest is malformed.
	Verify(hash string, password string) (bool, error)
}

type SessionTokenIssuer interface {
	IssueSessionToken(userID, sessionID uuid.UUID, claims utils.SessionClaims) (string, time.Time, error)
	ParseSessionToken(token string) (*utils.SessionClaims, error)
	ParseSessionTokenAllowExpired(token string) (*utils.SessionClaims, error)
}

type MFATokenIssuer interface {
	IssueMFAToken(userID uuid.UUID) (string, time.Duration, error)
	ParseMFAToken(token string) (*MFAChallenge, error)
}

type MFAChallenge struct {
	ID        string
	UserID    uuid.UUID
	ExpiresAt time.Time
}

type MFAProvider interface {
	GenerateSecret(email string) (string, error)
	QRCodeURL(email string, issuer string, secret string) (string, error)
	ValidateCode(secret string, code string) bool
}

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

type BcryptPasswordHasher struct {
	Cost int
}

const maxPasswordBytes = 72

var ErrPasswordTooLong = newAuthError(CodeInvalidInput, "password must be at most 72 bytes", http.StatusBadRequest)

func (h BcryptPasswordHasher) Hash(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	cost := h.Cost
	if cost == 0 {
		cost = 12
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func (h BcryptPasswordHasher) Verify(hash string, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}
