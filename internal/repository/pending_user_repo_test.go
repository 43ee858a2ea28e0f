package repository

import (
	"context"
	"testing"
	"time"

	"jobly/internal/entity"
	"jobly/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPending(email, codeHash string, expiresAt time.Time) *entity.PendingUser {
	return &entity.PendingUser{
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "Alice",
		LastName:     "Liddell",
		CodeHash:     codeHash,
		ExpiresAt:    expiresAt,
	}
}

func save(t *testing.T, repo PendingUserRepository, pending *entity.PendingUser) {
	t.Helper()
	stored, err := repo.CreateOrReplaceExpired(context.Background(), pending, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, stored)
}

func TestPendingUserRepository_ActiveRegistrationIsKept(t *testing.T) {
	ctx := context.Background()
	repo := NewPendingUserRepository(testutil.NewDB(t))
	now := time.Now().UTC()

	save(t, repo, newPending("alice@example.com", "first", now.Add(time.Minute)))
	second := newPending("alice@example.com", "second", now.Add(15*time.Minute))
	second.PasswordHash = "other-hash"
	second.FirstName = "Mallory"
	stored, err := repo.CreateOrReplaceExpired(ctx, second, now)
	require.NoError(t, err)
	assert.False(t, stored)

	got, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "first", got.CodeHash)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Equal(t, "Alice", got.FirstName)
}

func TestPendingUserRepository_ExpiredRegistrationIsReplaced(t *testing.T) {
	ctx := context.Background()
	repo := NewPendingUserRepository(testutil.NewDB(t))
	now := time.Now().UTC()

	save(t, repo, newPending("alice@example.com", "first", now.Add(-time.Second)))
	old, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NoError(t, repo.IncrementAttempts(ctx, old.ID))

	second := newPending("alice@example.com", "second", now.Add(15*time.Minute))
	second.FirstName = "Alicia"
	stored, err := repo.CreateOrReplaceExpired(ctx, second, now)
	require.NoError(t, err)
	assert.True(t, stored)

	got, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.CodeHash)
	assert.Equal(t, "Alicia", got.FirstName)
	assert.Zero(t, got.Attempts)

	stale, err := repo.FindActiveByCodeHash(ctx, "first", now, 5)
	require.NoError(t, err)
	assert.Nil(t, stale)
}

func TestPendingUserRepository_ReissueCode(t *testing.T) {
	ctx := context.Background()
	repo := NewPendingUserRepository(testutil.NewDB(t))
	now := time.Now().UTC()

	save(t, repo, newPending("alice@example.com", "first", now.Add(time.Minute)))
	pending, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NoError(t, repo.IncrementAttempts(ctx, pending.ID))
	require.NoError(t, repo.ReissueCode(ctx, pending.ID, "second"))

	got, err := repo.FindActiveByCodeHash(ctx, "second", now, 5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Zero(t, got.Attempts)
	assert.Equal(t, pending.ExpiresAt.Unix(), got.ExpiresAt.Unix())
}

func TestPendingUserRepository_FindActiveByCodeHash(t *testing.T) {
	ctx := context.Background()
	repo := NewPendingUserRepository(testutil.NewDB(t))
	now := time.Now().UTC()

	save(t, repo, newPending("live@example.com", "live", now.Add(time.Minute)))
	save(t, repo, newPending("old@example.com", "old", now.Add(-time.Minute)))

	live, err := repo.FindActiveByCodeHash(ctx, "live", now, 5)
	require.NoError(t, err)
	require.NotNil(t, live)
	assert.Equal(t, "live@example.com", live.Email)

	old, err := repo.FindActiveByCodeHash(ctx, "old", now, 5)
	require.NoError(t, err)
	assert.Nil(t, old)
}

func TestPendingUserRepository_AttemptsLockOut(t *testing.T) {
	ctx := context.Background()
	repo := NewPendingUserRepository(testutil.NewDB(t))
	now := time.Now().UTC()

	save(t, repo, newPending("bob@example.com", "code", now.Add(time.Minute)))
	pending, err := repo.FindByEmail(ctx, "bob@example.com")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.IncrementAttempts(ctx, pending.ID))
	}
	locked, err := repo.FindActiveByCodeHash(ctx, "code", now, 3)
	require.NoError(t, err)
	assert.Nil(t, locked)

	ok, err := repo.Consume(ctx, pending.ID, "code", now, 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPendingUserRepository_ConsumeOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewPendingUserRepository(testutil.NewDB(t))
	now := time.Now().UTC()

	save(t, repo, newPending("carol@example.com", "code", now.Add(time.Minute)))
	pending, err := repo.FindByEmail(ctx, "carol@example.com")
	require.NoError(t, err)

	ok, err := repo.Consume(ctx, pending.ID, "wrong", now, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Consume(ctx, pending.ID, "code", now, 5)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Consume(ctx, pending.ID, "code", now, 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPendingUserRepository_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	repo := NewPendingUserRepository(testutil.NewDB(t))
	now := time.Now().UTC()

	save(t, repo, newPending("a@example.com", "a", now.Add(-time.Second)))
	save(t, repo, newPending("b@example.com", "b", now.Add(time.Hour)))

	purged, err := repo.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	gone, err := repo.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Nil(t, gone)
	kept, err := repo.FindByEmail(ctx, "b@example.com")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}
