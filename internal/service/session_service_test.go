package service

import (
	"context"
	"testing"
	"time"

	"jobly/internal/entity"
	"jobly/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_CreateRequiresUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.sessions.CreateSession(context.Background(), &entity.User{}, SessionMeta{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.sessions.CreateSession(context.Background(), nil, SessionMeta{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSessionService_ValidateDistinguishesFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ip := "203.0.113.7"
	user := &entity.User{ID: uuid.New(), Email: "ada@example.com", FirstName: "Ada", EmailVerified: true}

	issued, err := f.sessions.CreateSession(ctx, user, SessionMeta{IPAddress: &ip})
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().Add(24*time.Hour), issued.ExpiresAt)

	identity, err := f.sessions.ValidateSession(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)
	assert.Equal(t, issued.Identity.SessionID, identity.SessionID)

	listed, err := f.sessions.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].IPAddress)
	assert.Equal(t, ip, *listed[0].IPAddress)

	_, err = f.sessions.ValidateSession(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = f.sessions.ValidateSession(ctx, issued.Token+"x")
	assert.ErrorIs(t, err, ErrSessionInvalid)

	forged := &utils.SessionTokenManager{Secret: []byte("another-secret-another-secret-123"), Issuer: "jobly", Now: f.clock.Now}
	token, _, err := forged.IssueSessionToken(user.ID.String(), issued.Identity.SessionID.String(), utils.SessionClaims{})
	require.NoError(t, err)
	_, err = f.sessions.ValidateSession(ctx, token)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	identity, err = f.sessions.DestroySession(ctx, issued.Token)
	require.NoError(t, err)
	require.NotNil(t, identity)
	_, err = f.sessions.ValidateSession(ctx, issued.Token)
	assert.ErrorIs(t, err, ErrSessionRevoked)

	identity, err = f.sessions.DestroySession(ctx, issued.Token)
	require.NoError(t, err)
	require.NotNil(t, identity)

	identity, err = f.sessions.DestroySession(ctx, "not-a-token")
	require.NoError(t, err)
	assert.Nil(t, identity)
}

func TestSessionService_ValidateNeverPanics(t *testing.T) {
	f := newFixture(t)
	inputs := []string{"a.b.c", "....", "eyJhbGciOiJub25lIn0.e30.", "\x00\xff"}
	for _, input := range inputs {
		assert.NotPanics(t, func() {
			_, err := f.sessions.ValidateSession(context.Background(), input)
			assert.True(t, IsSessionError(err), input)
		})
	}
}
