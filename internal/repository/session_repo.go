package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"jobly/internal/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session, ttl time.Duration) error
	Find(ctx context.Context, sessionID uuid.UUID) (*entity.Session, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.Session, error)
	Revoke(ctx context.Context, userID, sessionID uuid.UUID) error
	RevokeAllByUser(ctx context.Context, userID uuid.UUID) (int, error)
	// MarkChallengeUsed records a one-time challenge id. It reports false when
	// the id was already recorded.
	MarkChallengeUsed(ctx context.Context, challengeID string, ttl time.Duration) (bool, error)
}

type sessionRepository struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewSessionRepository(rdb redis.UniversalClient) SessionRepository {
	return &sessionRepository{rdb: rdb, prefix: "jobly:"}
}

func (r *sessionRepository) sessionKey(id uuid.UUID) string {
	return r.prefix + "session:" + id.String()
}

func (r *sessionRepository) userKey(id uuid.UUID) string {
	return r.prefix + "user_sessions:" + id.String()
}

func (r *sessionRepository) Create(ctx context.Context, s *entity.Session, ttl time.Duration) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	userKey := r.userKey(s.UserID)
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.sessionKey(s.ID), payload, ttl)
		pipe.SAdd(ctx, userKey, s.ID.String())
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	return err
}

func (r *sessionRepository) challengeKey(id string) string {
	return r.prefix + "mfa_challenge_used:" + id
}

func (r *sessionRepository) MarkChallengeUsed(ctx context.Context, challengeID string, ttl time.Duration) (bool, error) {
	return r.rdb.SetNX(ctx, r.challengeKey(challengeID), 1, ttl).Result()
}

func (r *sessionRepository) Find(ctx context.Context, sessionID uuid.UUID) (*entity.Session, error) {
	payload, err := r.rdb.Get(ctx, r.sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session entity.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.Session, error) {
	ids, err := r.rdb.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	sessions := make([]entity.Session, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		session, err := r.Find(ctx, id)
		if err != nil {
			return nil, err
		}
		if session == nil {
			// expired entry still listed in the user set
			r.rdb.SRem(ctx, r.userKey(userID), raw)
			continue
		}
		sessions = append(sessions, *session)
	}
	return sessions, nil
}

func (r *sessionRepository) Revoke(ctx context.Context, userID, sessionID uuid.UUID) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.sessionKey(sessionID))
		pipe.SRem(ctx, r.userKey(userID), sessionID.String())
		return nil
	})
	return err
}

func (r *sessionRepository) RevokeAllByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	userKey := r.userKey(userID)
	ids, err := r.rdb.SMembers(ctx, userKey).Result()
	if err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		keys = append(keys, r.sessionKey(id))
	}
	keys = append(keys, userKey)
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return 0, err
	}
	return len(ids), nil
}
