package apperror

import (
	"fmt"

	"github.com/efezeyus/aiogretmen-sub001/config"
	"github.com/efezeyus/aiogretmen-sub001/pkg/apperror/status"
	"github.com/efezeyus/aiogretmen-sub001/pkg/logger"

	"github.com/gofiber/fiber/v3"
)

// ErrorResponse is the standardized HTTP error payload. Message is the
// user-facing text (Turkish); Detail carries optional structured context
// such as the grade-denial payload.
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
	Detail    any    `json:"detail,omitempty"`
}

// FiberSuccessMessage is the standardized HTTP success envelope.
type FiberSuccessMessage struct {
	Code       status.SuccessCode `json:"code"`
	Message    string             `json:"message"`
	TrackingID string             `json:"tracking_id"`
	Data       any                `json:"data"`
}

// WriteError logs a structured warning and returns a standardized JSON error.
func WriteError(module config.Module, c fiber.Ctx, httpStatus int, code status.ErrorCode, message string, detail any) error {
	logger.WithFields(map[string]interface{}{
		"module":        module,
		"status_code":   httpStatus,
		"error_code":    code,
		"error_message": message,
		"http_method":   c.Method(),
		"path":          c.Path(),
		"url":           c.OriginalURL(),
		"ip":            c.IP(),
	}).Warnf("http error")

	return c.Status(httpStatus).JSON(ErrorResponse{
		Error:     message,
		ErrorCode: fmt.Sprintf("AI-%d", code),
		Detail:    detail,
	})
}

// BadRequest answers a validation error.
func BadRequest(module config.Module, c fiber.Ctx, code status.ErrorCode, message string) error {
	return WriteError(module, c, fiber.StatusBadRequest, code, message, nil)
}

// Forbidden answers an access denial with an auditable detail payload.
func Forbidden(module config.Module, c fiber.Ctx, code status.ErrorCode, message string, detail any) error {
	return WriteError(module, c, fiber.StatusForbidden, code, message, detail)
}

// NotFound answers a missing-resource error.
func NotFound(module config.Module, c fiber.Ctx, code status.ErrorCode, message string) error {
	return WriteError(module, c, fiber.StatusNotFound, code, message, nil)
}

// Conflict answers a state conflict (e.g. active training job).
func Conflict(module config.Module, c fiber.Ctx, code status.ErrorCode, message string) error {
	return WriteError(module, c, fiber.StatusConflict, code, message, nil)
}

// ServiceUnavailable answers an exhausted-external-service error.
func ServiceUnavailable(module config.Module, c fiber.Ctx, code status.ErrorCode, message string) error {
	return WriteError(module, c, fiber.StatusServiceUnavailable, code, message, nil)
}

// InternalError answers an unexpected failure.
func InternalError(module config.Module, c fiber.Ctx, err error) error {
	return WriteError(module, c, fiber.StatusInternalServerError, status.ErrorCodeInternal, err.Error(), nil)
}

// Success writes the standardized JSON success envelope.
func Success(module config.Module, c fiber.Ctx, response FiberSuccessMessage) error {
	return c.Status(fiber.StatusOK).JSON(response)
}
