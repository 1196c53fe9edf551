package handler

import (
	"net/http"

	"workspace-service/internal/apperror"

	"github.com/labstack/echo/v4"
)

// fail maps a service error onto the JSON error envelope. Typed
// application errors keep their status and code; anything else is a 500.
func fail(c echo.Context, err error) error {
	if appErr, ok := apperror.As(err); ok {
		return c.JSON(appErr.Status, echo.Map{"code": appErr.Code, "error": appErr.Message})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"code": "INTERNAL_ERROR", "error": "internal server error"})
}

// userID pulls the authenticated user's ID out of the context set by the
// auth middleware.
func userID(c echo.Context) (uint, bool) {
	id, ok := c.Get("user_id").(uint)
	return id, ok
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"code": "UNAUTHORIZED", "error": "authentication required"})
}
