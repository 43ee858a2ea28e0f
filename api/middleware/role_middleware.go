package middleware

import (
	"context"
	"errors"
	"net/http"

	"jobly/internal/dto"
	"jobly/internal/entity"
	"jobly/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type UserLoader interface {
	GetCurrentUser(ctx context.Context, userID uuid.UUID) (*entity.User, error)
}

// AccountMiddleware checks properties of the stored account behind a session.
// It must run after AuthMiddleware.RequireAuth.
type AccountMiddleware struct {
	Users      UserLoader
	VerifyPath string
}

func (m AccountMiddleware) RequireVerified(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := m.load(c)
		if err != nil {
			return err
		}
		if !user.EmailVerified {
			if WantsHTML(c.Request()) {
				return c.Redirect(http.StatusSeeOther, m.verifyPath())
			}
			authErr := service.ErrEmailNotVerified
			return c.JSON(authErr.Status, dto.ErrorResponse{
				Error:    authErr.Message,
				Code:     string(authErr.Code),
				Redirect: m.verifyPath(),
			})
		}
		return next(c)
	}
}

func (m AccountMiddleware) RequireRole(role entity.UserRole) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := m.load(c)
			if err != nil {
				return err
			}
			if user.Role != role {
				return service.ErrForbidden
			}
			return next(c)
		}
	}
}

func (m AccountMiddleware) load(c echo.Context) (*entity.User, error) {
	if user, ok := UserFromContext(c); ok {
		return user, nil
	}
	userID, ok := UserIDFromContext(c)
	if !ok {
		return nil, service.ErrUnauthenticated
	}
	user, err := m.Users.GetCurrentUser(c.Request().Context(), userID)
	if err != nil {
		// The session outlived its account.
		if errors.Is(err, service.ErrNotFound) {
			return nil, service.ErrSessionRevoked
		}
		return nil, err
	}
	setUser(c, user)
	return user, nil
}

func (m AccountMiddleware) verifyPath() string {
	if m.VerifyPath == "" {
		return "/verify-email"
	}
	return m.VerifyPath
}
