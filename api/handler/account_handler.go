package handler

import (
	"net/http"

	"jobly/api/middleware"
	"jobly/internal/dto"
	"jobly/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type AccountHandler struct {
	Service  *service.AuthService
	Validate *validator.Validate
	Cookie   SessionCookie
}

func NewAccountHandler(svc *service.AuthService, validate *validator.Validate, cookie SessionCookie) *AccountHandler {
	return &AccountHandler{Service: svc, Validate: validate, Cookie: cookie}
}

func (h *AccountHandler) Profile(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeServiceError(c, service.ErrUnauthenticated)
	}
	user, err := h.Service.GetCurrentUser(c.Request().Context(), userID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UserResponseFromEntity(user))
}

func (h *AccountHandler) UpdateProfile(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeServiceError(c, service.ErrUnauthenticated)
	}
	var req dto.UpdateProfileRequest
	if err := bindAndValidate(c, h.Validate, &req); err != nil {
		return writeServiceError(c, err)
	}
	ctx := c.Request().Context()
	user, err := h.Service.UpdateProfile(ctx, userID, service.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Image:     req.Image,
	})
	if err != nil {
		return writeServiceError(c, err)
	}

	token, _ := middleware.SessionTokenFromContext(c)
	issued, err := h.Service.RefreshSession(ctx, token, user, sessionMeta(c))
	if err != nil {
		return writeServiceError(c, err)
	}
	h.Cookie.Set(c, issued.Token, issued.ExpiresAt)
	return c.JSON(http.StatusOK, dto.UserResponseFromEntity(user))
}

func (h *AccountHandler) DeleteAccount(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeServiceError(c, service.ErrUnauthenticated)
	}
	if err := h.Service.DeleteAccount(c.Request().Context(), userID, stringPtr(c.RealIP())); err != nil {
		return writeServiceError(c, err)
	}
	h.Cookie.Clear(c)
	return c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

func (h *AccountHandler) AdminListUsers(c echo.Context) error {
	limit, offset := parseLimitOffset(c)
	users, err := h.Service.ListUsers(c.Request().Context(), limit, offset)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UserResponsesFromEntities(users))
}

func (h *AccountHandler) AdminRevokeUserSessions(c echo.Context) error {
	actorID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeServiceError(c, service.ErrUnauthenticated)
	}
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeServiceError(c, invalidInput("invalid user id"))
	}
	count, err := h.Service.RevokeUserSessions(c.Request().Context(), actorID, userID, stringPtr(c.RealIP()))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.LogoutAllResponse{Success: true, Revoked: count})
}
