package service

import (
	"strings"
	"testing"
	"time"

	"jobly/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptPasswordHasher_RoundTrip(t *testing.T) {
	hasher := BcryptPasswordHasher{Cost: bcrypt.MinCost}

	hash, err := hasher.Hash("s3cret-value")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-value", hash)

	ok, err := hasher.Verify(hash, "s3cret-value")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify(hash, "other")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = hasher.Verify("not-a-bcrypt-digest", "s3cret-value")
	assert.Error(t, err)
}

func TestBcryptPasswordHasher_LimitsBytesNotRunes(t *testing.T) {
	hasher := BcryptPasswordHasher{Cost: bcrypt.MinCost}

	_, err := hasher.Hash(strings.Repeat("é", 40))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = hasher.Hash(strings.Repeat("é", 36))
	assert.NoError(t, err)
}

func TestBcryptPasswordHasher_DefaultCost(t *testing.T) {
	hash, err := BcryptPasswordHasher{}.Hash("pw")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 12, cost)
}

func TestMFATokenIssuerJWT(t *testing.T) {
	clock := testutil.NewClock(time.Now())
	issuer := MFATokenIssuerJWT{Secret: []byte("mfa-secret"), Issuer: "jobly", TTL: time.Minute, Clock: clock}
	userID := uuid.New()

	token, ttl, err := issuer.IssueMFAToken(userID)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	parsed, err := issuer.ParseMFAToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, parsed.UserID)
	assert.NotEmpty(t, parsed.ID)
	assert.WithinDuration(t, clock.Now().Add(time.Minute), parsed.ExpiresAt, time.Second)

	second, _, err := issuer.IssueMFAToken(userID)
	require.NoError(t, err)
	secondParsed, err := issuer.ParseMFAToken(second)
	require.NoError(t, err)
	assert.NotEqual(t, parsed.ID, secondParsed.ID)

	other := MFATokenIssuerJWT{Secret: []byte("other"), Issuer: "jobly", Clock: clock}
	_, err = other.ParseMFAToken(token)
	assert.ErrorIs(t, err, ErrInvalidMFAToken)

	clock.Advance(2 * time.Minute)
	_, err = issuer.ParseMFAToken(token)
	assert.ErrorIs(t, err, ErrInvalidMFAToken)
}

func TestAsAuthError(t *testing.T) {
	authErr, ok := AsAuthError(ErrRateLimited)
	require.True(t, ok)
	assert.Equal(t, CodeRateLimited, authErr.Code)
	assert.Equal(t, 429, authErr.Status)

	_, ok = AsAuthError(assert.AnError)
	assert.False(t, ok)

	assert.True(t, IsSessionError(ErrSessionRevoked))
	assert.False(t, IsSessionError(ErrInvalidCredentials))
}
