package utils

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/airtable-forms/internal/types"
)

// SuccessResponse sends a standard success response
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(data)
}

// ErrorResponse sends a standard error response
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(envelope(c, message, status, errorType))
}

// NotFoundResponse sends a 404 not found response
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return ErrorResponse(c, message, fiber.StatusNotFound, types.TypeNotFound)
}

// CustomErrorResponse renders err. Remote failures carry the upstream body
// verbatim in the "error" field; anything that is not a CustomError is a
// generic 500.
func CustomErrorResponse(c *fiber.Ctx, err error) error {
	var ce *types.CustomError
	if !errors.As(err, &ce) {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return ErrorResponse(c, fe.Message, fe.Code, "")
		}
		return ErrorResponse(c, "Internal Server Error", fiber.StatusInternalServerError, "")
	}

	body := envelope(c, ce.Message, ce.Code, ce.Type)
	if len(ce.Detail) > 0 {
		body["error"] = ce.Detail
	}
	return c.Status(ce.Code).JSON(body)
}

// ClearedResponse sends {ok:true}
func ClearedResponse(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

func envelope(c *fiber.Ctx, message string, status int, errorType string) fiber.Map {
	m := fiber.Map{
		"status":    status,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
	}
	if errorType != "" {
		m["type"] = errorType
	}
	return m
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status    int             `json:"status"`
	Message   string          `json:"message"`
	Ok        bool            `json:"ok"`
	Timestamp string          `json:"timestamp"`
	URL       string          `json:"url"`
	Type      string          `json:"type,omitempty"`
	Error     json.RawMessage `json:"error,omitempty" swaggertype:"object"`
}

// OkResponseStruct defines the schema for plain acknowledgements
type OkResponseStruct struct {
	Ok bool `json:"ok"`
}
