package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"testing"
	"time"

	"jobly/internal/repository"
	"jobly/internal/service"
	"jobly/internal/testutil"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Hit(context.Context, string, time.Time, time.Duration, int) (repository.RateLimitResult, error) {
	return repository.RateLimitResult{}, errors.New("redis down")
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newLimiter(t *testing.T, clock *testutil.Clock) *RateLimiter {
	t.Helper()
	_, rdb := testutil.NewRedis(t)
	limiter := NewRateLimiter(repository.NewRateLimitRepository(rdb), "auth", 5, time.Minute, quietLogger())
	limiter.Now = clock.Now
	return limiter
}

func hit(limiter *RateLimiter, path, forwardedFor string) (http.Header, error) {
	c, rec := newContext(http.MethodPost, path)
	c.SetPath(path)
	if forwardedFor != "" {
		c.Request().Header.Set(echo.HeaderXForwardedFor, forwardedFor)
	}
	err := limiter.Middleware()(okHandler)(c)
	return rec.Header(), err
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := testutil.NewClock(start)
	limiter := newLimiter(t, clock)

	for i := 0; i < 5; i++ {
		header, err := hit(limiter, "/auth/login", "203.0.113.7")
		require.NoError(t, err, "request %d", i+1)
		assert.Equal(t, "5", header.Get(HeaderRateLimitLimit))
		assert.Equal(t, strconv.Itoa(4-i), header.Get(HeaderRateLimitRemaining))
		clock.Advance(time.Second)
	}

	header, err := hit(limiter, "/auth/login", "203.0.113.7")
	assert.ErrorIs(t, err, service.ErrRateLimited)
	assert.Equal(t, "0", header.Get(HeaderRateLimitRemaining))
	assert.Equal(t, strconv.FormatInt(start.Add(time.Minute).Unix(), 10), header.Get(HeaderRateLimitReset))
	assert.Equal(t, "55", header.Get(HeaderRetryAfter))

	clock.Advance(55 * time.Second)
	_, err = hit(limiter, "/auth/login", "203.0.113.7")
	assert.NoError(t, err)
}

func TestRateLimiterKeys(t *testing.T) {
	clock := testutil.NewClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	limiter := newLimiter(t, clock)

	for i := 0; i < 5; i++ {
		_, err := hit(limiter, "/auth/login", "203.0.113.7, 10.0.0.1")
		require.NoError(t, err)
	}
	_, err := hit(limiter, "/auth/login", "203.0.113.7")
	assert.ErrorIs(t, err, service.ErrRateLimited)

	_, err = hit(limiter, "/auth/login", "198.51.100.2")
	assert.NoError(t, err, "other clients keep their own window")
	_, err = hit(limiter, "/auth/register", "203.0.113.7")
	assert.NoError(t, err, "other routes keep their own window")
}

func TestRateLimiterFailsOpen(t *testing.T) {
	limiter := NewRateLimiter(failingStore{}, "auth", 5, time.Minute, quietLogger())
	for i := 0; i < 10; i++ {
		header, err := hit(limiter, "/auth/login", "")
		require.NoError(t, err)
		assert.Empty(t, header.Get(HeaderRateLimitLimit))
	}
}

func TestClientKey(t *testing.T) {
	cases := map[string]string{
		"":                          "127.0.0.1",
		"203.0.113.7":               "203.0.113.7",
		" 203.0.113.7 , 10.0.0.1":   "203.0.113.7",
		",10.0.0.1":                 "127.0.0.1",
		"2001:db8::1, 198.51.100.2": "2001:db8::1",
	}
	for forwarded, want := range cases {
		c, _ := newContext(http.MethodGet, "/")
		if forwarded != "" {
			c.Request().Header.Set(echo.HeaderXForwardedFor, forwarded)
		}
		assert.Equal(t, want, ClientKey(c.Request()), forwarded)
	}
}
