package handler

import (
	"net/http"

	"jobly/api/middleware"
	"jobly/internal/dto"
	"jobly/internal/entity"
	"jobly/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type MarketplaceHandler struct {
	Service  *service.MarketplaceService
	Validate *validator.Validate
}

func NewMarketplaceHandler(svc *service.MarketplaceService, validate *validator.Validate) *MarketplaceHandler {
	return &MarketplaceHandler{Service: svc, Validate: validate}
}

func (h *MarketplaceHandler) ListTasks(c echo.Context) error {
	limit, offset := parseLimitOffset(c)
	status := entity.TaskStatus(c.QueryParam("status"))
	tasks, err := h.Service.ListTasks(c.Request().Context(), status, limit, offset)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.TaskResponsesFromEntities(tasks))
}

func (h *MarketplaceHandler) GetTask(c echo.Context) error {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeServiceError(c, service.ErrNotFound)
	}
	task, err := h.Service.GetTask(c.Request().Context(), taskID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.TaskResponseFromEntity(task))
}

func (h *MarketplaceHandler) CreateTask(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeServiceError(c, service.ErrUnauthenticated)
	}
	var req dto.CreateTaskRequest
	if err := bindAndValidate(c, h.Validate, &req); err != nil {
		return writeServiceError(c, err)
	}
	task, err := h.Service.CreateTask(c.Request().Context(), userID, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		BudgetCents: req.BudgetCents,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, dto.TaskResponseFromEntity(task))
}

func (h *MarketplaceHandler) PlaceBid(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeServiceError(c, service.ErrUnauthenticated)
	}
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeServiceError(c, service.ErrNotFound)
	}
	var req dto.PlaceBidRequest
	if err := bindAndValidate(c, h.Validate, &req); err != nil {
		return writeServiceError(c, err)
	}
	bid, err := h.Service.PlaceBid(c.Request().Context(), userID, taskID, service.PlaceBidInput{
		AmountCents: req.AmountCents,
		Note:        req.Note,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, dto.BidResponseFromEntity(bid))
}

func (h *MarketplaceHandler) ListBids(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeServiceError(c, service.ErrUnauthenticated)
	}
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeServiceError(c, service.ErrNotFound)
	}
	bids, err := h.Service.ListBids(c.Request().Context(), userID, taskID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.BidResponsesFromEntities(bids))
}

func (h *MarketplaceHandler) SendMessage(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeServiceError(c, service.ErrUnauthenticated)
	}
	var req dto.SendMessageRequest
	if err := bindAndValidate(c, h.Validate, &req); err != nil {
		return writeServiceError(c, err)
	}
	recipientID, err := uuid.Parse(req.RecipientID)
	if err != nil {
		return writeServiceError(c, invalidInput("recipientId is invalid"))
	}
	input := service.SendMessageInput{RecipientID: recipientID, Body: req.Body}
	if req.TaskID != nil {
		taskID, err := uuid.Parse(*req.TaskID)
		if err != nil {
			return writeServiceError(c, invalidInput("taskId is invalid"))
		}
		input.TaskID = &taskID
	}
	message, err := h.Service.SendMessage(c.Request().Context(), userID, input)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, dto.MessageResponseFromEntity(message))
}

func (h *MarketplaceHandler) ListMessages(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeServiceError(c, service.ErrUnauthenticated)
	}
	limit, offset := parseLimitOffset(c)
	messages, err := h.Service.ListMessages(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.MessageResponsesFromEntities(messages))
}
