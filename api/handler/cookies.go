package handler

import (
	"net/http"
	"strings"
	"time"

	"jobly/api/middleware"

	"github.com/labstack/echo/v4"
)

type SessionCookie struct {
	Name     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	Now      func() time.Time
}

func DefaultSessionCookie() SessionCookie {
	return SessionCookie{
		Name:     middleware.DefaultSessionCookie,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Now:      time.Now,
	}
}

func (s SessionCookie) Set(c echo.Context, token string, expiresAt time.Time) {
	maxAge := int(expiresAt.Sub(s.now()).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	c.SetCookie(&http.Cookie{
		Name:     s.Name,
		Value:    token,
		Path:     "/",
		Domain:   s.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: s.SameSite,
	})
}

func (s SessionCookie) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     s.Name,
		Value:    "",
		Path:     "/",
		Domain:   s.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: s.SameSite,
	})
}

func (s SessionCookie) Read(c echo.Context) string {
	cookie, err := c.Cookie(s.Name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func (s SessionCookie) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
