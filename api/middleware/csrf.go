package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"jobly/internal/dto"
	"jobly/internal/service"
	"jobly/internal/utils"

	"github.com/labstack/echo/v4"
)

const (
	DefaultCSRFCookie = "jobly_csrf"
	DefaultCSRFHeader = "X-CSRF-Token"
)

// CSRF implements signed double-submit tokens. A token is "<nonce>.<mac>"
// where mac is HMAC-SHA256 of the nonce under Secret. Unsafe requests must
// carry the same valid token in the cookie and in the header.
type CSRF struct {
	Secret     []byte
	CookieName string
	HeaderName string
	Domain     string
	Secure     bool
}

func NewCSRF(secret []byte) *CSRF {
	return &CSRF{
		Secret:     secret,
		CookieName: DefaultCSRFCookie,
		HeaderName: DefaultCSRFHeader,
		Secure:     true,
	}
}

func (p *CSRF) Issue() (string, error) {
	nonce, err := utils.GenerateRandomToken(32)
	if err != nil {
		return "", err
	}
	return nonce + "." + p.sign(nonce), nil
}

func (p *CSRF) Valid(token string) bool {
	nonce, mac, ok := strings.Cut(token, ".")
	if !ok || nonce == "" || mac == "" {
		return false
	}
	return hmac.Equal([]byte(mac), []byte(p.sign(nonce)))
}

func (p *CSRF) sign(nonce string) string {
	h := hmac.New(sha256.New, p.Secret)
	h.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func (p *CSRF) Handler(c echo.Context) error {
	token, err := p.Issue()
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     p.CookieName,
		Value:    token,
		Path:     "/",
		Domain:   p.Domain,
		HttpOnly: false,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, dto.CSRFResponse{Token: token})
}

func (p *CSRF) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
				return next(c)
			}
			header := c.Request().Header.Get(p.HeaderName)
			cookie, err := c.Cookie(p.CookieName)
			if err != nil || header == "" ||
				subtle.ConstantTimeCompare([]byte(header), []byte(cookie.Value)) != 1 ||
				!p.Valid(header) {
				authErr := service.ErrCSRFRejected
				return c.JSON(authErr.Status, dto.ErrorResponse{Error: authErr.Message, Code: string(authErr.Code)})
			}
			return next(c)
		}
	}
}
