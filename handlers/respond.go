package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// errorBody is the shape every failed request answers with. Details
// carries per-field validation messages when there are any.
type errorBody struct {
	Error   bool              `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
}

func respondError(c echo.Context, status int, message string) error {
	return c.JSON(status, errorBody{
		Error:   true,
		Message: message,
	})
}

func respondValidation(c echo.Context, details map[string]string) error {
	return c.JSON(http.StatusBadRequest, errorBody{
		Error:   true,
		Message: "Validation failed",
		Details: details,
	})
}

func respondMessage(c echo.Context, status int, message string) error {
	return c.JSON(status, messageBody{Message: message})
}
