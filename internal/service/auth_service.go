package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"jobly/internal/entity"
	"jobly/internal/repository"
	"jobly/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const codeGenerationAttempts = 5

type AuthService struct {
	repos    repository.Manager
	sessions *SessionService

	emailSender  EmailSender
	passwordHash PasswordHasher
	mfaTokens    MFATokenIssuer
	mfaProvider  MFAProvider
	oauth        OAuthProvider
	clock        Clock
	config       AuthConfig
	logger       logrus.FieldLogger

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(
	repos repository.Manager,
	sessions *SessionService,
	emailSender EmailSender,
	passwordHash PasswordHasher,
	mfaTokens MFATokenIssuer,
	mfaProvider MFAProvider,
	oauth OAuthProvider,
	clock Clock,
	config AuthConfig,
	logger logrus.FieldLogger,
) *AuthService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AuthService{
		repos:        repos,
		sessions:     sessions,
		emailSender:  emailSender,
		passwordHash: passwordHash,
		mfaTokens:    mfaTokens,
		mfaProvider:  mfaProvider,
		oauth:        oauth,
		clock:        clock,
		config:       config,
		logger:       logger.WithField("component", "auth_service"),
	}
}

// Register stores a pending registration and mails its code. While an
// unexpired registration exists for the email it is kept as is and only a
// fresh code is mailed to it.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) error {
	email := utils.NormalizeEmail(input.Email)
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	if email == "" || input.Password == "" || firstName == "" || lastName == "" {
		return ErrInvalidInput
	}

	repos := s.repos.Repositories()
	existing, err := repos.Users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return ErrDuplicateAccount
	}

	now := s.now()
	active, err := repos.Pending.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup pending registration: %w", err)
	}
	if active != nil && !active.Expired(now) {
		return s.resendCode(ctx, repos, active, now)
	}

	hash, err := s.passwordHash.Hash(input.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	code, codeHash, err := s.uniqueCode(ctx, repos, email, now)
	if err != nil {
		return err
	}

	pending := &entity.PendingUser{
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		CodeHash:     codeHash,
		ExpiresAt:    now.Add(s.verificationCodeTTL()),
		Attempts:     0,
	}
	stored, err := repos.Pending.CreateOrReplaceExpired(ctx, pending, now)
	if err != nil {
		return fmt.Errorf("store pending registration: %w", err)
	}
	if !stored {
		active, err := repos.Pending.FindByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("lookup pending registration: %w", err)
		}
		if active == nil {
			return errors.New("pending registration vanished during registration")
		}
		return s.resendCode(ctx, repos, active, now)
	}

	s.sendVerificationCode(ctx, pending, code)
	return nil
}

func (s *AuthService) resendCode(ctx context.Context, repos repository.Repositories, pending *entity.PendingUser, now time.Time) error {
	code, codeHash, err := s.uniqueCode(ctx, repos, pending.Email, now)
	if err != nil {
		return err
	}
	if err := repos.Pending.ReissueCode(ctx, pending.ID, codeHash); err != nil {
		return fmt.Errorf("reissue verification code: %w", err)
	}
	s.sendVerificationCode(ctx, pending, code)
	return nil
}

func (s *AuthService) sendVerificationCode(ctx context.Context, pending *entity.PendingUser, code string) {
	if s.emailSender == nil {
		return
	}
	name := pending.FirstName + " " + pending.LastName
	if err := s.emailSender.SendVerificationCode(ctx, pending.Email, name, code); err != nil {
		s.logger.WithError(err).WithField("email", pending.Email).Error("failed to send verification code")
	}
}

// VerifyPendingRegistration promotes the pending row matching code to a
// verified user. The delete and the insert share one transaction, and the
// delete is conditional, so a code can only ever create one user.
func (s *AuthService) VerifyPendingRegistration(ctx context.Context, input VerifyCodeInput) (*entity.User, error) {
	code := strings.TrimSpace(input.Code)
	if !isNumericCode(code) {
		return nil, ErrInvalidOrExpiredCode
	}
	codeHash := utils.HashToken(code)
	now := s.now()
	maxAttempts := s.maxCodeAttempts()

	repos := s.repos.Repositories()
	var pending *entity.PendingUser
	if email := utils.NormalizeEmail(input.Email); email != "" {
		found, err := repos.Pending.FindByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("lookup pending registration: %w", err)
		}
		if found == nil || found.Expired(now) || found.Locked(maxAttempts) {
			return nil, ErrInvalidOrExpiredCode
		}
		if subtle.ConstantTimeCompare([]byte(found.CodeHash), []byte(codeHash)) != 1 {
			if err := repos.Pending.IncrementAttempts(ctx, found.ID); err != nil {
				return nil, fmt.Errorf("count attempt: %w", err)
			}
			return nil, ErrInvalidOrExpiredCode
		}
		pending = found
	} else {
		found, err := repos.Pending.FindActiveByCodeHash(ctx, codeHash, now, maxAttempts)
		if err != nil {
			return nil, fmt.Errorf("lookup pending registration: %w", err)
		}
		if found == nil {
			return nil, ErrInvalidOrExpiredCode
		}
		pending = found
	}

	var user *entity.User
	err := s.repos.Transaction(ctx, func(tx repository.Repositories) error {
		consumed, err := tx.Pending.Consume(ctx, pending.ID, codeHash, now, maxAttempts)
		if err != nil {
			return err
		}
		if !consumed {
			return ErrInvalidOrExpiredCode
		}

		existing, err := tx.Users.FindByEmail(ctx, pending.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrDuplicateAccount
		}

		hash := pending.PasswordHash
		verifiedAt := now
		user = &entity.User{
			Email:           pending.Email,
			PasswordHash:    &hash,
			FirstName:       pending.FirstName,
			LastName:        pending.LastName,
			Role:            entity.UserRoleUser,
			EmailVerified:   true,
			EmailVerifiedAt: &verifiedAt,
			IsActive:        true,
		}
		return tx.Users.Create(ctx, user)
	})
	if err != nil {
		if _, ok := AsAuthError(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("promote pending registration: %w", err)
	}

	s.logSecurity(ctx, &user.ID, nil, entity.RegistrationVerified, nil)
	return user, nil
}

// Authenticate checks a password login. Unknown emails and wrong passwords
// are indistinguishable, including in the time they take. On failure the
// matched user, if any, is still returned for audit logging.
func (s *AuthService) Authenticate(ctx context.Context, email string, password string) (*entity.User, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repos.Repositories().Users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || user.PasswordHash == nil {
		_, _ = s.passwordHash.Verify(s.dummyPasswordHash(), password)
		return nil, ErrInvalidCredentials
	}

	ok, err := s.passwordHash.Verify(*user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return user, ErrInvalidCredentials
	}
	if !user.EmailVerified {
		return user, ErrEmailNotVerified
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.Authenticate(ctx, input.Email, input.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			var userID *uuid.UUID
			if user != nil {
				userID = &user.ID
			}
			s.logSecurity(ctx, userID, input.IPAddress, entity.LoginFailed,
				map[string]any{"email": utils.NormalizeEmail(input.Email)})
		}
		return nil, err
	}
	return s.completeLogin(ctx, user, SessionMeta{IPAddress: input.IPAddress, UserAgent: input.UserAgent}, "password")
}

func (s *AuthService) LoginWithMFA(ctx context.Context, input LoginMFAInput) (*LoginResult, error) {
	if s.mfaProvider == nil || s.mfaTokens == nil {
		return nil, ErrMFANotConfigured
	}
	if strings.TrimSpace(input.MFAToken) == "" || strings.TrimSpace(input.Code) == "" {
		return nil, ErrInvalidInput
	}
	challenge, err := s.mfaTokens.ParseMFAToken(input.MFAToken)
	if err != nil {
		return nil, ErrInvalidMFAToken
	}

	repos := s.repos.Repositories()
	user, err := repos.Users.FindByID(ctx, challenge.UserID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidMFAToken
	}

	secret, err := repos.MFASecrets.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("lookup mfa secret: %w", err)
	}
	if secret == nil || secret.EnabledAt == nil {
		return nil, ErrMFARequired
	}
	if !s.mfaProvider.ValidateCode(secret.Secret, input.Code) {
		s.logSecurity(ctx, &user.ID, input.IPAddress, entity.MFAFailed, nil)
		return nil, ErrInvalidMFACode
	}
	fresh, err := s.sessions.ConsumeChallenge(ctx, challenge.ID, challenge.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if !fresh {
		return nil, ErrInvalidMFAToken
	}

	issued, err := s.sessions.CreateSession(ctx, user, SessionMeta{IPAddress: input.IPAddress, UserAgent: input.UserAgent})
	if err != nil {
		return nil, err
	}
	s.logSecurity(ctx, &user.ID, input.IPAddress, entity.LoginSuccess, map[string]any{"method": "password", "mfa": true})
	return &LoginResult{User: user, Session: issued}, nil
}

func (s *AuthService) CheckSession(ctx context.Context, token string) (*Identity, error) {
	return s.sessions.ValidateSession(ctx, token)
}

// Logout revokes the session behind token. It succeeds for tokens that are
// unknown, expired or already revoked.
func (s *AuthService) Logout(ctx context.Context, token string, ipAddress *string) error {
	identity, err := s.sessions.DestroySession(ctx, token)
	if err != nil {
		return err
	}
	if identity != nil {
		s.logSecurity(ctx, &identity.UserID, ipAddress, entity.Logout, nil)
	}
	return nil
}

func (s *AuthService) LogoutAll(ctx context.Context, userID uuid.UUID, ipAddress *string) (int, error) {
	count, err := s.sessions.DestroyAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logSecurity(ctx, &userID, ipAddress, entity.SessionRevoked, map[string]any{"scope": "all", "count": count})
	return count, nil
}

// RequestPasswordReset mails a single-use reset link when email belongs to a
// verified user. Callers must answer the same way whatever it returns.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string, ipAddress *string) error {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return nil
	}

	user, err := s.repos.Repositories().Users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || !user.EmailVerified {
		return nil
	}

	rawToken, err := utils.GenerateRandomToken(32)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	now := s.now()
	err = s.repos.Transaction(ctx, func(tx repository.Repositories) error {
		if err := tx.Verifications.InvalidateForUser(ctx, user.ID, entity.PasswordReset, now); err != nil {
			return err
		}
		return tx.Verifications.Create(ctx, &entity.VerificationToken{
			UserID:    user.ID,
			TokenHash: utils.HashToken(rawToken),
			Type:      entity.PasswordReset,
			ExpiresAt: now.Add(s.resetTokenTTL()),
		})
	})
	if err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if s.emailSender != nil {
		if err := s.emailSender.SendPasswordReset(ctx, user.Email, rawToken); err != nil {
			s.logger.WithError(err).WithField("user_id", user.ID).Error("failed to send password reset")
		}
	}
	s.logSecurity(ctx, &user.ID, ipAddress, entity.ResetRequested, nil)
	return nil
}

// ResetPassword consumes token and sets the new password in one transaction,
// then revokes every session of the user.
func (s *AuthService) ResetPassword(ctx context.Context, token string, newPassword string, ipAddress *string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidOrExpiredCode
	}
	if newPassword == "" {
		return ErrInvalidInput
	}

	now := s.now()
	repos := s.repos.Repositories()
	verification, err := repos.Verifications.FindValid(ctx, utils.HashToken(token), entity.PasswordReset, now)
	if err != nil {
		return fmt.Errorf("lookup reset token: %w", err)
	}
	if verification == nil {
		return ErrInvalidOrExpiredCode
	}

	hash, err := s.passwordHash.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.repos.Transaction(ctx, func(tx repository.Repositories) error {
		used, err := tx.Verifications.MarkUsed(ctx, verification.ID, now)
		if err != nil {
			return err
		}
		if !used {
			return ErrInvalidOrExpiredCode
		}
		user, err := tx.Users.FindByID(ctx, verification.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrInvalidOrExpiredCode
		}
		return tx.Users.SetPasswordHash(ctx, user.ID, hash)
	})
	if err != nil {
		if _, ok := AsAuthError(err); ok {
			return err
		}
		return fmt.Errorf("reset password: %w", err)
	}

	if _, err := s.sessions.DestroyAllForUser(ctx, verification.UserID); err != nil {
		s.logger.WithError(err).WithField("user_id", verification.UserID).Error("failed to revoke sessions after reset")
	}
	s.logSecurity(ctx, &verification.UserID, ipAddress, entity.Reset, nil)
	return nil
}

func (s *AuthService) PurgeExpired(ctx context.Context) (int64, int64, error) {
	now := s.now()
	repos := s.repos.Repositories()
	pending, err := repos.Pending.PurgeExpired(ctx, now)
	if err != nil {
		return 0, 0, fmt.Errorf("purge pending registrations: %w", err)
	}
	tokens, err := repos.Verifications.PurgeExpired(ctx, now)
	if err != nil {
		return pending, 0, fmt.Errorf("purge tokens: %w", err)
	}
	return pending, tokens, nil
}

func (s *AuthService) completeLogin(ctx context.Context, user *entity.User, meta SessionMeta, method string) (*LoginResult, error) {
	if s.mfaProvider != nil && s.mfaTokens != nil {
		secret, err := s.repos.Repositories().MFASecrets.FindByUserID(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("lookup mfa secret: %w", err)
		}
		if secret != nil && secret.EnabledAt != nil {
			mfaToken, expiresIn, err := s.mfaTokens.IssueMFAToken(user.ID)
			if err != nil {
				return nil, fmt.Errorf("issue mfa challenge: %w", err)
			}
			return &LoginResult{
				User:              user,
				MFARequired:       true,
				MFAToken:          mfaToken,
				MFATokenExpiresIn: int64(expiresIn.Seconds()),
			}, nil
		}
	}

	issued, err := s.sessions.CreateSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}
	s.logSecurity(ctx, &user.ID, meta.IPAddress, entity.LoginSuccess, map[string]any{"method": method})
	return &LoginResult{User: user, Session: issued}, nil
}

func (s *AuthService) uniqueCode(ctx context.Context, repos repository.Repositories, email string, now time.Time) (string, string, error) {
	for i := 0; i < codeGenerationAttempts; i++ {
		code, err := utils.GenerateNumericCode()
		if err != nil {
			return "", "", fmt.Errorf("generate code: %w", err)
		}
		codeHash := utils.HashToken(code)
		clash, err := repos.Pending.FindActiveByCodeHash(ctx, codeHash, now, s.maxCodeAttempts())
		if err != nil {
			return "", "", fmt.Errorf("check code: %w", err)
		}
		if clash == nil || clash.Email == email {
			return code, codeHash, nil
		}
	}
	return "", "", errors.New("could not allocate a unique verification code")
}

func (s *AuthService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.passwordHash.Hash("jobly-timing-equalizer")
		if err != nil {
			s.logger.WithError(err).Error("failed to build dummy password hash")
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *AuthService) logSecurity(
	ctx context.Context,
	userID *uuid.UUID,
	ipAddress *string,
	action entity.SecurityAction,
	metadata map[string]any,
) {
	var payload datatypes.JSON
	if metadata != nil {
		bytes, err := json.Marshal(metadata)
		if err != nil {
			s.logger.WithError(err).Warn("failed to encode security log metadata")
		} else {
			payload = datatypes.JSON(bytes)
		}
	}

	log := &entity.SecurityLog{
		UserID:    userID,
		IPAddress: ipAddress,
		Action:    action,
		Metadata:  payload,
		CreatedAt: s.now(),
	}
	if err := s.repos.Repositories().SecurityLogs.Log(ctx, log); err != nil {
		s.logger.WithError(err).WithField("action", action).Warn("failed to write security log")
	}
}

func (s *AuthService) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now()
}

func (s *AuthService) verificationCodeTTL() time.Duration {
	if s.config.VerificationCodeTTL > 0 {
		return s.config.VerificationCodeTTL
	}
	return 15 * time.Minute
}

func (s *AuthService) resetTokenTTL() time.Duration {
	if s.config.ResetTokenTTL > 0 {
		return s.config.ResetTokenTTL
	}
	return time.Hour
}

func (s *AuthService) maxCodeAttempts() int {
	if s.config.MaxCodeAttempts > 0 {
		return s.config.MaxCodeAttempts
	}
	return 5
}

func isNumericCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
