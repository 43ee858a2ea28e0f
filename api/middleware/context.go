package middleware

import (
	"jobly/internal/entity"
	"jobly/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	contextIdentityKey = "auth_identity"
	contextTokenKey    = "auth_session_token"
	contextUserKey     = "auth_user"
)

func SetAuthContext(c echo.Context, identity *service.Identity, token string) {
	c.Set(contextIdentityKey, identity)
	c.Set(contextTokenKey, token)
}

func IdentityFromContext(c echo.Context) (*service.Identity, bool) {
	identity, ok := c.Get(contextIdentityKey).(*service.Identity)
	return identity, ok && identity != nil
}

func UserIDFromContext(c echo.Context) (uuid.UUID, bool) {
	identity, ok := IdentityFromContext(c)
	if !ok {
		return uuid.Nil, false
	}
	return identity.UserID, true
}

func SessionIDFromContext(c echo.Context) (uuid.UUID, bool) {
	identity, ok := IdentityFromContext(c)
	if !ok {
		return uuid.Nil, false
	}
	return identity.SessionID, true
}

func SessionTokenFromContext(c echo.Context) (string, bool) {
	token, ok := c.Get(contextTokenKey).(string)
	return token, ok && token != ""
}

func UserFromContext(c echo.Context) (*entity.User, bool) {
	user, ok := c.Get(contextUserKey).(*entity.User)
	return user, ok && user != nil
}

func setUser(c echo.Context, user *entity.User) {
	c.Set(contextUserKey, user)
}
