package utils

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    int    `json:"code,omitempty"`
	Status  string `json:"status,omitempty"`
}

// SendError sends a structured error response based on HTTP status code
func SendError(c *fiber.Ctx, httpCode int, message string) error {
	return c.Status(httpCode).JSON(ErrorResponse{
		Error:  message,
		Status: http.StatusText(httpCode),
		Code:   httpCode,
	})
}

// SendInternalServerError sends an internal server error response
func SendInternalServerError(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "Internal server error",
		Details: message,
		Code:    http.StatusInternalServerError,
	})
}
