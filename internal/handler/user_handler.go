package handler

import (
	"net/http"
	"strconv"
	"time"

	"workspace-service/internal/service"
	"workspace-service/pkg/logger"
	"workspace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// UserHandler serves account lookups.
type UserHandler struct {
	auth *service.AuthService
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(auth *service.AuthService) *UserHandler {
	return &UserHandler{auth: auth}
}

// Me returns the authenticated user with their workspace memberships.
func (h *UserHandler) Me(c echo.Context) error {
	log := logger.FromContext(c)

	id, ok := userID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return unauthorized(c)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	user, err := h.auth.GetUserWithProfiles(id)
	if err != nil {
		log.Error("Failed to load current user", zap.Uint("user_id", id), zap.Error(err))
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"data": user})
}

// List returns all user accounts.
func (h *UserHandler) List(c echo.Context) error {
	log := logger.FromContext(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	users, err := h.auth.ListUsers()
	if err != nil {
		log.Error("Failed to list users", zap.Error(err))
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"data": users})
}

// Get returns a single user by ID.
func (h *UserHandler) Get(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid user ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"code": "VALIDATION_ERROR", "error": "invalid user ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	user, err := h.auth.GetUser(uint(id))
	if err != nil {
		log.Error("User not found", zap.Uint64("id", id))
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"data": user})
}
