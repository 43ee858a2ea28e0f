package repository

import (
	"context"
	"testing"
	"time"

	"jobly/internal/entity"
	"jobly/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository_CreateFindRevoke(t *testing.T) {
	ctx := context.Background()
	server, client := testutil.NewRedis(t)
	repo := NewSessionRepository(client)

	session := &entity.Session{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		ExpiresAt: time.Now().Add(time.Hour).UTC(),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, session, time.Hour))

	found, err := repo.Find(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, session.UserID, found.UserID)

	require.NoError(t, repo.Revoke(ctx, session.UserID, session.ID))
	found, err = repo.Find(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	// revoking twice is a no-op
	require.NoError(t, repo.Revoke(ctx, session.UserID, session.ID))

	require.NoError(t, repo.Create(ctx, session, time.Minute))
	server.FastForward(2 * time.Minute)
	found, err = repo.Find(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestSessionRepository_MarkChallengeUsed(t *testing.T) {
	ctx := context.Background()
	server, client := testutil.NewRedis(t)
	repo := NewSessionRepository(client)

	first, err := repo.MarkChallengeUsed(ctx, "challenge-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := repo.MarkChallengeUsed(ctx, "challenge-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, again)

	other, err := repo.MarkChallengeUsed(ctx, "challenge-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, other)

	server.FastForward(2 * time.Minute)
	assert.False(t, server.Exists("jobly:mfa_challenge_used:challenge-1"))
}

func TestSessionRepository_RevokeAllByUser(t *testing.T) {
	ctx := context.Background()
	_, client := testutil.NewRedis(t)
	repo := NewSessionRepository(client)

	userID := uuid.New()
	other := &entity.Session{ID: uuid.New(), UserID: uuid.New()}
	require.NoError(t, repo.Create(ctx, other, time.Hour))

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		require.NoError(t, repo.Create(ctx, &entity.Session{ID: id, UserID: userID}, time.Hour))
	}

	listed, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, listed, 3)

	revoked, err := repo.RevokeAllByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, revoked)

	for _, id := range ids {
		found, err := repo.Find(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, found)
	}
	kept, err := repo.Find(ctx, other.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}
