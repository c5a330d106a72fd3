package http

import (
	"github.com/gofiber/fiber/v2"

	"docbase/internal/gateway/domain/model"
	"docbase/internal/shared/errors"
	"docbase/internal/shared/logger"
)

// APIResponse is the uniform envelope for every endpoint. Success responses
// carry data and optionally pagination; failures carry the error.
type APIResponse struct {
	Success    bool              `json:"success"`
	Data       interface{}       `json:"data,omitempty"`
	Pagination *model.Pagination `json:"pagination,omitempty"`
	Error      *APIError         `json:"error,omitempty"`
}

// APIError is the wire shape of a failed request.
type APIError struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func errInvalidBody(cause error) error {
	return errors.NewValidationError("invalid request body").WithCause(cause)
}

func respondData(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(APIResponse{Success: true, Data: data})
}

func respondPage(c *fiber.Ctx, data interface{}, pagination model.Pagination) error {
	return c.Status(fiber.StatusOK).JSON(APIResponse{
		Success:    true,
		Data:       data,
		Pagination: &pagination,
	})
}

// respondError maps an application error onto its HTTP status. Unknown error
// values become opaque 500s so store internals never leak to clients.
func respondError(c *fiber.Ctx, log logger.Logger, err error) error {
	appErr, ok := err.(*errors.AppError)
	if !ok {
		log.WithContext(c.UserContext()).WithFields(map[string]interface{}{
			"path":  c.Path(),
			"error": err.Error(),
		}).Error("Unhandled error reached the HTTP layer")
		appErr = errors.NewInternalError("internal server error")
	}

	if appErr.HTTPCode >= fiber.StatusInternalServerError {
		log.WithContext(c.UserContext()).WithFields(map[string]interface{}{
			"path":  c.Path(),
			"type":  string(appErr.Type),
			"error": appErr.Error(),
		}).Error("Request failed")
	}

	return c.Status(appErr.HTTPCode).JSON(APIResponse{
		Success: false,
		Error: &APIError{
			Type:    string(appErr.Type),
			Message: appErr.Message,
			Code:    appErr.Code,
			Details: appErr.Details,
		},
	})
}
