package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jobly/internal/entity"
	"jobly/internal/repository"
	"jobly/internal/utils"

	"github.com/google/uuid"
)

type SessionMeta struct {
	IPAddress *string
	UserAgent *string
}

// SessionService issues the signed session cookie and keeps its Redis mirror.
// A token is only honoured while its mirror entry exists.
type SessionService struct {
	tokens   SessionTokenIssuer
	sessions repository.SessionRepository
	clock    Clock
}

func NewSessionService(tokens SessionTokenIssuer, sessions repository.SessionRepository, clock Clock) *SessionService {
	return &SessionService{tokens: tokens, sessions: sessions, clock: clock}
}

func (s *SessionService) CreateSession(ctx context.Context, user *entity.User, meta SessionMeta) (*IssuedSession, error) {
	if user == nil || user.ID == uuid.Nil {
		return nil, ErrInvalidInput
	}

	sessionID := uuid.New()
	claims := utils.SessionClaims{
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Verified:  user.EmailVerified,
	}
	if user.Image != nil {
		claims.Image = *user.Image
	}

	token, expiresAt, err := s.tokens.IssueSessionToken(user.ID, sessionID, claims)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}

	now := s.now()
	mirror := &entity.Session{
		ID:        sessionID,
		UserID:    user.ID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, mirror, expiresAt.Sub(now)); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return &IssuedSession{
		Token:     token,
		ExpiresAt: expiresAt,
		Identity:  identityFromClaims(sessionID, user.ID, claims, expiresAt),
	}, nil
}

func (s *SessionService) ValidateSession(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := s.tokens.ParseSessionToken(token)
	if err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrSessionInvalid
	}

	userID, sessionID, err := claimIDs(claims)
	if err != nil {
		return nil, ErrSessionInvalid
	}

	mirror, err := s.sessions.Find(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if mirror == nil || mirror.UserID != userID {
		return nil, ErrSessionRevoked
	}

	identity := identityFromClaims(sessionID, userID, *claims, claims.ExpiresAt.Time)
	return &identity, nil
}

// DestroySession removes the mirror entry behind token. Unknown, malformed and
// already revoked tokens are not an error.
func (s *SessionService) DestroySession(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, nil
	}
	claims, err := s.tokens.ParseSessionTokenAllowExpired(token)
	if err != nil {
		return nil, nil
	}
	userID, sessionID, err := claimIDs(claims)
	if err != nil {
		return nil, nil
	}
	if err := s.sessions.Revoke(ctx, userID, sessionID); err != nil {
		return nil, fmt.Errorf("revoke session: %w", err)
	}
	expiresAt := s.now()
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	identity := identityFromClaims(sessionID, userID, *claims, expiresAt)
	return &identity, nil
}

func (s *SessionService) DestroyAllForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.sessions.RevokeAllByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}
	return count, nil
}

func (s *SessionService) ConsumeChallenge(ctx context.Context, challengeID string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Sub(s.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	fresh, err := s.sessions.MarkChallengeUsed(ctx, challengeID, ttl)
	if err != nil {
		return false, fmt.Errorf("consume mfa challenge: %w", err)
	}
	return fresh, nil
}

func (s *SessionService) ListForUser(ctx context.Context, userID uuid.UUID) ([]entity.Session, error) {
	return s.sessions.ListByUser(ctx, userID)
}

func (s *SessionService) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now()
}

func claimIDs(claims *utils.SessionClaims) (uuid.UUID, uuid.UUID, error) {
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	sessionID, err := uuid.Parse(claims.ID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, sessionID, nil
}

func identityFromClaims(sessionID, userID uuid.UUID, claims utils.SessionClaims, expiresAt time.Time) Identity {
	return Identity{
		SessionID:     sessionID,
		UserID:        userID,
		Email:         claims.Email,
		FirstName:     claims.FirstName,
		LastName:      claims.LastName,
		Image:         claims.Image,
		EmailVerified: claims.Verified,
		ExpiresAt:     expiresAt,
	}
}
