package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"jobly/internal/dto"
	"jobly/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("maxbytes", maxBytes)
	return validate
}

// maxBytes bounds the UTF-8 length of a string, which is what bcrypt limits.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

func decodeJSON(c echo.Context, target any) error {
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return errors.New("malformed request body")
	}
	return nil
}

func bindAndValidate(c echo.Context, validate *validator.Validate, target any) error {
	if err := decodeJSON(c, target); err != nil {
		return invalidInput(err.Error())
	}
	if validate == nil {
		return nil
	}
	if err := validate.Struct(target); err != nil {
		return invalidInput(validationMessage(err))
	}
	return nil
}

func invalidInput(message string) *service.AuthError {
	return &service.AuthError{Code: service.CodeInvalidInput, Message: message, Status: http.StatusBadRequest}
}

func validationMessage(err error) string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return "invalid input"
	}
	fe := fieldErrors[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

func writeServiceError(c echo.Context, err error) error {
	if authErr, ok := service.AsAuthError(err); ok {
		return c.JSON(authErr.Status, dto.ErrorResponse{Error: authErr.Message, Code: string(authErr.Code)})
	}
	return err
}

func HTTPErrorHandler(logger logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := errorResponse(c, logger, err)
		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logger.WithError(writeErr).Warn("failed to write error response")
		}
	}
}

func errorResponse(c echo.Context, logger logrus.FieldLogger, err error) (int, dto.ErrorResponse) {
	if authErr, ok := service.AsAuthError(err); ok {
		return authErr.Status, dto.ErrorResponse{Error: authErr.Message, Code: string(authErr.Code)}
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) && httpErr.Code != http.StatusInternalServerError {
		return httpErr.Code, dto.ErrorResponse{
			Error: fmt.Sprint(httpErr.Message),
			Code:  string(codeForStatus(httpErr.Code)),
		}
	}

	correlationID := requestID(c)
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"request_id": correlationID,
		"method":     c.Request().Method,
		"path":       c.Path(),
	})
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		entry.Warn("request timed out")
		return http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:         "request timed out, please retry",
			Code:          string(service.CodeInternal),
			CorrelationID: correlationID,
		}
	}
	entry.Error("internal error")
	return http.StatusInternalServerError, dto.ErrorResponse{
		Error:         "internal error",
		Code:          string(service.CodeInternal),
		CorrelationID: correlationID,
	}
}

func codeForStatus(status int) service.ErrorCode {
	switch status {
	case http.StatusBadRequest, http.StatusMethodNotAllowed, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
		return service.CodeInvalidInput
	case http.StatusUnauthorized:
		return service.CodeUnauthenticated
	case http.StatusForbidden:
		return service.CodeForbidden
	case http.StatusNotFound:
		return service.CodeNotFound
	case http.StatusTooManyRequests:
		return service.CodeRateLimited
	}
	return service.CodeInternal
}

func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}

func parseLimitOffset(c echo.Context) (int, int) {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func stringPtr(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func sessionMeta(c echo.Context) service.SessionMeta {
	return service.SessionMeta{
		IPAddress: stringPtr(c.RealIP()),
		UserAgent: stringPtr(c.Request().UserAgent()),
	}
}
