package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"jobly/internal/repository"
	"jobly/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"
)

// RateLimiter admits at most Limit requests per client and route within a
// rolling Window. Counters live in Redis so every process shares them.
type RateLimiter struct {
	Store  repository.RateLimitRepository
	Scope  string
	Limit  int
	Window time.Duration
	Now    func() time.Time
	Logger logrus.FieldLogger
}

func NewRateLimiter(store repository.RateLimitRepository, scope string, limit int, window time.Duration, logger logrus.FieldLogger) *RateLimiter {
	return &RateLimiter{
		Store:  store,
		Scope:  scope,
		Limit:  limit,
		Window: window,
		Now:    time.Now,
		Logger: logger,
	}
}

func (l *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := l.Scope + ":" + c.Path() + ":" + ClientKey(c.Request())
			now := l.Now()
			result, err := l.Store.Hit(c.Request().Context(), key, now, l.Window, l.Limit)
			if err != nil {
				// Fail open: an unavailable limiter must not take the auth routes down.
				if l.Logger != nil {
					l.Logger.WithError(err).WithField("key", key).Error("rate limiter unavailable")
				}
				return next(c)
			}

			header := c.Response().Header()
			header.Set(HeaderRateLimitLimit, strconv.Itoa(result.Limit))
			header.Set(HeaderRateLimitRemaining, strconv.Itoa(result.Remaining))
			header.Set(HeaderRateLimitReset, strconv.FormatInt(result.ResetAt.Unix(), 10))
			if !result.Allowed {
				wait := int(math.Ceil(result.ResetAt.Sub(now).Seconds()))
				if wait < 1 {
					wait = 1
				}
				header.Set(HeaderRetryAfter, strconv.Itoa(wait))
				return service.ErrRateLimited
			}
			return next(c)
		}
	}
}

// ClientKey identifies the caller by the first X-Forwarded-For entry. The
// header is client controlled, so this only slows down naive abuse.
func ClientKey(r *http.Request) string {
	forwarded := r.Header.Get(echo.HeaderXForwardedFor)
	if forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return first
		}
	}
	return "127.0.0.1"
}
