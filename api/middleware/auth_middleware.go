package middleware

import (
	"context"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"jobly/internal/dto"
	"jobly/internal/service"

	"github.com/labstack/echo/v4"
)

const DefaultSessionCookie = "jobly_session"

type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*service.Identity, error)
}

type CookieStore interface {
	Read(c echo.Context) string
	Clear(c echo.Context)
}

// AuthMiddleware gates protected routes on the session cookie. Browsers are
// redirected to LoginPath, API callers get a 401 JSON body. Without Cookie it
// falls back to a host-only cookie named CookieName.
type AuthMiddleware struct {
	Sessions   SessionValidator
	Cookie     CookieStore
	CookieName string
	LoginPath  string
}

func (m AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := m.readToken(c)
		if token == "" {
			return m.reject(c, service.ErrUnauthenticated)
		}
		if m.Sessions == nil {
			return m.reject(c, service.ErrUnauthenticated)
		}
		identity, err := m.Sessions.ValidateSession(c.Request().Context(), token)
		if err != nil {
			if service.IsSessionError(err) {
				m.clearCookie(c)
				return m.reject(c, err)
			}
			return err
		}
		SetAuthContext(c, identity, token)
		return next(c)
	}
}

func (m AuthMiddleware) readToken(c echo.Context) string {
	if m.Cookie != nil {
		return m.Cookie.Read(c)
	}
	cookie, err := c.Cookie(m.cookieName())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func (m AuthMiddleware) reject(c echo.Context, err error) error {
	if WantsHTML(c.Request()) {
		return c.Redirect(http.StatusSeeOther, m.loginRedirect(c.Request()))
	}
	authErr, ok := service.AsAuthError(err)
	if !ok {
		authErr = service.ErrUnauthenticated
	}
	return c.JSON(authErr.Status, dto.ErrorResponse{Error: authErr.Message, Code: string(authErr.Code)})
}

func (m AuthMiddleware) loginRedirect(r *http.Request) string {
	path := m.LoginPath
	if path == "" {
		path = "/login"
	}
	return path + "?next=" + url.QueryEscape(r.URL.RequestURI())
}

func (m AuthMiddleware) clearCookie(c echo.Context) {
	if m.Cookie != nil {
		m.Cookie.Clear(c)
		return
	}
	c.SetCookie(&http.Cookie{
		Name:     m.cookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func (m AuthMiddleware) cookieName() string {
	if m.CookieName == "" {
		return DefaultSessionCookie
	}
	return m.CookieName
}

// WantsHTML reports whether the Accept header lists text/html ahead of JSON.
func WantsHTML(r *http.Request) bool {
	accept := r.Header.Get(echo.HeaderAccept)
	if accept == "" {
		return false
	}
	for _, part := range strings.Split(accept, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mediaType {
		case "text/html", "application/xhtml+xml":
			return true
		case echo.MIMEApplicationJSON:
			return false
		}
	}
	return false
}
