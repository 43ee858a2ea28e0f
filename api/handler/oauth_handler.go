package handler

import (
	"crypto/subtle"
	"net/http"

	"jobly/internal/dto"
	"jobly/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/rs/xid"
)

const oauthStateCookie = "jobly_oauth_state"

// OAuthHandler runs the GitHub authorization code flow. The state value is
// kept in a short-lived cookie and must come back unchanged on the callback.
type OAuthHandler struct {
	Service      *service.AuthService
	Cookie       SessionCookie
	RedirectPath string
}

func NewOAuthHandler(svc *service.AuthService, cookie SessionCookie) *OAuthHandler {
	return &OAuthHandler{Service: svc, Cookie: cookie, RedirectPath: "/"}
}

func (h *OAuthHandler) GitHubLogin(c echo.Context) error {
	state := xid.New().String()
	url, err := h.Service.OAuthAuthURL(state)
	if err != nil {
		return writeServiceError(c, err)
	}
	c.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/oauth",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusTemporaryRedirect, url)
}

func (h *OAuthHandler) GitHubCallback(c echo.Context) error {
	if !h.Service.OAuthEnabled() {
		return writeServiceError(c, service.ErrOAuthNotConfigured)
	}
	cookie, err := c.Cookie(oauthStateCookie)
	state := c.QueryParam("state")
	if err != nil || cookie.Value == "" || state == "" ||
		subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		return writeServiceError(c, invalidInput("invalid oauth state"))
	}
	c.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/auth/oauth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
	})

	result, err := h.Service.OAuthLogin(c.Request().Context(), c.QueryParam("code"), sessionMeta(c))
	if err != nil {
		return writeServiceError(c, err)
	}
	if result.MFARequired {
		return c.JSON(http.StatusOK, dto.LoginResponse{
			MFARequired:       true,
			MFAToken:          result.MFAToken,
			MFATokenExpiresIn: result.MFATokenExpiresIn,
		})
	}
	h.Cookie.Set(c, result.Session.Token, result.Session.ExpiresAt)
	return c.Redirect(http.StatusSeeOther, h.RedirectPath)
}
