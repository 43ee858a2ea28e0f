package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"jobly/internal/repository"
	"jobly/internal/testutil"
	"jobly/internal/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type captureMailer struct {
	mu     sync.Mutex
	codes  map[string]string
	resets map[string]string
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{codes: map[string]string{}, resets: map[string]string{}}
}

func (m *captureMailer) SendVerificationCode(_ context.Context, email string, _ string, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[email] = code
	return nil
}

func (m *captureMailer) SendPasswordReset(_ context.Context, email string, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[email] = token
	return nil
}

func (m *captureMailer) code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

func (m *captureMailer) reset(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets[email]
}

type fixture struct {
	db       *gorm.DB
	repos    repository.Manager
	clock    *testutil.Clock
	mailer   *captureMailer
	sessions *SessionService
	totp     *TOTPProvider
	auth     *AuthService
	market   *MarketplaceService
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	_, rdb := testutil.NewRedis(t)
	clock := testutil.NewClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	repos := repository.NewManager(db)

	tokens := &utils.SessionTokenManager{
		Secret: []byte("test-session-secret-0123456789abcdef"),
		Issuer: "jobly",
		TTL:    24 * time.Hour,
		Now:    clock.Now,
	}
	sessions := NewSessionService(JWTSessionIssuer{Manager: tokens}, repository.NewSessionRepository(rdb), clock)
	mailer := newCaptureMailer()
	totpProvider := NewTOTPProvider("Jobly")
	totpProvider.Clock = clock
	mfaTokens := MFATokenIssuerJWT{
		Secret: []byte("test-mfa-secret-0123456789abcdef"),
		Issuer: "jobly",
		TTL:    5 * time.Minute,
		Clock:  clock,
	}

	auth := NewAuthService(
		repos,
		sessions,
		mailer,
		BcryptPasswordHasher{Cost: bcrypt.MinCost},
		mfaTokens,
		totpProvider,
		nil,
		clock,
		AuthConfig{MFAIssuer: "Jobly"},
		quietLogger(),
	)

	return &fixture{
		db:       db,
		repos:    repos,
		clock:    clock,
		mailer:   mailer,
		sessions: sessions,
		totp:     totpProvider,
		auth:     auth,
		market:   NewMarketplaceService(repos),
	}
}
