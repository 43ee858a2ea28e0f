package service

import (
	"context"
	"fmt"
	"strings"

	"jobly/internal/entity"
	"jobly/internal/repository"
	"jobly/internal/utils"

	"github.com/google/uuid"
)

type MFASetup struct {
	Secret     string
	OTPAuthURL string
}

// EnableMFA stores a fresh, not yet confirmed TOTP secret. It only takes
// effect once VerifyMFA accepts a code generated from it.
func (s *AuthService) EnableMFA(ctx context.Context, userID uuid.UUID) (*MFASetup, error) {
	if s.mfaProvider == nil {
		return nil, ErrMFANotConfigured
	}
	repos := s.repos.Repositories()
	user, err := repos.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}

	secret, err := s.mfaProvider.GenerateSecret(user.Email)
	if err != nil {
		return nil, fmt.Errorf("generate mfa secret: %w", err)
	}
	if err := repos.MFASecrets.Upsert(ctx, &entity.MFASecret{UserID: user.ID, Secret: secret}); err != nil {
		return nil, fmt.Errorf("store mfa secret: %w", err)
	}

	url, err := s.mfaProvider.QRCodeURL(user.Email, s.config.MFAIssuer, secret)
	if err != nil {
		return nil, fmt.Errorf("build otpauth url: %w", err)
	}
	return &MFASetup{Secret: secret, OTPAuthURL: url}, nil
}

func (s *AuthService) VerifyMFA(ctx context.Context, userID uuid.UUID, code string) error {
	if s.mfaProvider == nil {
		return ErrMFANotConfigured
	}
	if strings.TrimSpace(code) == "" {
		return ErrInvalidInput
	}
	repos := s.repos.Repositories()
	secret, err := repos.MFASecrets.FindByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup mfa secret: %w", err)
	}
	if secret == nil {
		return ErrMFARequired
	}
	if !s.mfaProvider.ValidateCode(secret.Secret, code) {
		s.logSecurity(ctx, &userID, nil, entity.MFAFailed, map[string]any{"stage": "enroll"})
		return ErrInvalidMFACode
	}

	now := s.now()
	secret.EnabledAt = &now
	return repos.MFASecrets.Upsert(ctx, secret)
}

func (s *AuthService) DisableMFA(ctx context.Context, userID uuid.UUID, code string) error {
	if s.mfaProvider == nil {
		return ErrMFANotConfigured
	}
	if strings.TrimSpace(code) == "" {
		return ErrInvalidInput
	}
	repos := s.repos.Repositories()
	secret, err := repos.MFASecrets.FindByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup mfa secret: %w", err)
	}
	if secret == nil || secret.EnabledAt == nil {
		return ErrMFARequired
	}
	if !s.mfaProvider.ValidateCode(secret.Secret, code) {
		s.logSecurity(ctx, &userID, nil, entity.MFAFailed, map[string]any{"stage": "disable"})
		return ErrInvalidMFACode
	}
	return repos.MFASecrets.Disable(ctx, userID)
}

func (s *AuthService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.repos.Repositories().Users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*entity.User, error) {
	user, err := s.GetCurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if update.FirstName != nil {
		name := strings.TrimSpace(*update.FirstName)
		if name == "" {
			return nil, ErrInvalidInput
		}
		user.FirstName = name
	}
	if update.LastName != nil {
		name := strings.TrimSpace(*update.LastName)
		if name == "" {
			return nil, ErrInvalidInput
		}
		user.LastName = name
	}
	if update.Image != nil {
		image := strings.TrimSpace(*update.Image)
		if image == "" {
			user.Image = nil
		} else {
			user.Image = &image
		}
	}
	if err := s.repos.Repositories().Users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (s *AuthService) RefreshSession(ctx context.Context, oldToken string, user *entity.User, meta SessionMeta) (*IssuedSession, error) {
	issued, err := s.sessions.CreateSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}
	if _, err := s.sessions.DestroySession(ctx, oldToken); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("failed to revoke replaced session")
	}
	return issued, nil
}

// DeleteAccount removes the user and everything that references it in one
// transaction, then revokes all of the user's sessions.
func (s *AuthService) DeleteAccount(ctx context.Context, userID uuid.UUID, ipAddress *string) error {
	user, err := s.GetCurrentUser(ctx, userID)
	if err != nil {
		return err
	}

	err = s.repos.Transaction(ctx, func(tx repository.Repositories) error {
		if err := tx.Messages.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		if err := tx.Bids.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("delete bids: %w", err)
		}
		if err := tx.Tasks.DeleteByOwner(ctx, userID); err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}
		if err := tx.Verifications.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("delete tokens: %w", err)
		}
		if err := tx.MFASecrets.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("delete mfa secret: %w", err)
		}
		if err := tx.Pending.DeleteByEmail(ctx, user.Email); err != nil {
			return fmt.Errorf("delete pending registration: %w", err)
		}
		if err := tx.SecurityLogs.DetachUser(ctx, userID); err != nil {
			return fmt.Errorf("detach security logs: %w", err)
		}
		deleted, err := tx.Users.Delete(ctx, userID)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if !deleted {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	if _, err := s.sessions.DestroyAllForUser(ctx, userID); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to revoke sessions of deleted account")
	}
	s.logSecurity(ctx, nil, ipAddress, entity.AccountDeleted, map[string]any{"user_id": userID.String()})
	return nil
}

func (s *AuthService) ListUsers(ctx context.Context, limit, offset int) ([]entity.User, error) {
	return s.repos.Repositories().Users.List(ctx, limit, offset)
}

func (s *AuthService) RevokeUserSessions(ctx context.Context, actorID uuid.UUID, userID uuid.UUID, ipAddress *string) (int, error) {
	count, err := s.sessions.DestroyAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logSecurity(ctx, &userID, ipAddress, entity.SessionRevoked,
		map[string]any{"scope": "admin", "actor_id": actorID.String(), "count": count})
	return count, nil
}

func (s *AuthService) OAuthEnabled() bool {
	return s.oauth != nil
}

func (s *AuthService) OAuthAuthURL(state string) (string, error) {
	if s.oauth == nil {
		return "", ErrOAuthNotConfigured
	}
	return s.oauth.AuthCodeURL(state), nil
}

// OAuthLogin signs in with an external account. Accounts are matched by
// provider id, then by verified email; unknown ones are created verified.
func (s *AuthService) OAuthLogin(ctx context.Context, code string, meta SessionMeta) (*LoginResult, error) {
	if s.oauth == nil {
		return nil, ErrOAuthNotConfigured
	}
	if strings.TrimSpace(code) == "" {
		return nil, ErrInvalidInput
	}
	profile, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		if _, ok := AsAuthError(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("oauth exchange: %w", err)
	}

	user, err := s.linkOAuthUser(ctx, profile)
	if err != nil {
		return nil, err
	}
	return s.completeLogin(ctx, user, meta, "github")
}

func (s *AuthService) linkOAuthUser(ctx context.Context, profile *OAuthProfile) (*entity.User, error) {
	email := utils.NormalizeEmail(profile.Email)
	if email == "" {
		return nil, ErrOAuthEmailUnavailable
	}
	now := s.now()

	var user *entity.User
	err := s.repos.Transaction(ctx, func(tx repository.Repositories) error {
		found, err := tx.Users.FindByGitHubID(ctx, profile.ProviderID)
		if err != nil {
			return err
		}
		if found == nil {
			found, err = tx.Users.FindByEmail(ctx, email)
			if err != nil {
				return err
			}
		}

		if found != nil {
			if found.GitHubID == nil {
				found.GitHubID = &profile.ProviderID
			}
			if !found.EmailVerified {
				found.EmailVerified = true
				found.EmailVerifiedAt = &now
			}
			if found.Image == nil && profile.AvatarURL != "" {
				avatar := profile.AvatarURL
				found.Image = &avatar
			}
			user = found
			return tx.Users.Update(ctx, found)
		}

		user = &entity.User{
			Email:           email,
			FirstName:       profile.FirstName,
			LastName:        profile.LastName,
			Role:            entity.UserRoleUser,
			GitHubID:        &profile.ProviderID,
			EmailVerified:   true,
			EmailVerifiedAt: &now,
			IsActive:        true,
		}
		if profile.AvatarURL != "" {
			avatar := profile.AvatarURL
			user.Image = &avatar
		}
		if err := tx.Users.Create(ctx, user); err != nil {
			return err
		}
		return tx.Pending.DeleteByEmail(ctx, email)
	})
	if err != nil {
		return nil, fmt.Errorf("link oauth account: %w", err)
	}
	return user, nil
}
