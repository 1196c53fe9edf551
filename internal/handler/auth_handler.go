package handler

import (
	"net/http"
	"time"

	"workspace-service/internal/model"
	"workspace-service/internal/service"
	"workspace-service/pkg/jwtutil"
	"workspace-service/pkg/logger"
	"workspace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthHandler serves registration and login.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// identityPayload is the response shape shared by register and login.
func identityPayload(user *model.User, workspace *model.Workspace, profile *model.Profile, token string) echo.Map {
	return echo.Map{
		"token": token,
		"user": echo.Map{
			"id":             user.ID,
			"email":          user.Email,
			"name":           user.Name,
			"email_verified": user.EmailVerified,
		},
		"workspace": echo.Map{
			"id":   workspace.ID,
			"name": workspace.Name,
		},
		"profile": echo.Map{
			"id":         profile.ID,
			"name":       profile.Name,
			"role":       profile.Role,
			"is_default": profile.IsDefault,
		},
	}
}

// Register creates a user account along with its personal workspace and
// ADMIN profile, and returns a bearer token scoped to it.
func (h *AuthHandler) Register(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"code": "VALIDATION_ERROR", "error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	result, err := h.auth.Register(req.Email, req.Password, req.Name)
	if err != nil {
		log.Error("Registration failed", zap.String("email", req.Email), zap.Error(err))
		prometheus.RecordAuthError("registration_failed")
		return fail(c, err)
	}

	token, err := jwtutil.GenerateToken(
		result.User.Email, result.User.ID,
		result.Profile.ID, result.Workspace.ID,
		result.Workspace.Name, result.Profile.Role)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return fail(c, err)
	}
	prometheus.IncreaseActiveTokens()

	log.Info("User registered",
		zap.String("email", result.User.Email),
		zap.Uint("workspace_id", result.Workspace.ID))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User registered successfully",
		"data":    identityPayload(result.User, result.Workspace, result.Profile, token),
	})
}

// Login authenticates credentials and issues a bearer token scoped to the
// user's default workspace.
func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"code": "VALIDATION_ERROR", "error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	result, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		log.Error("Login failed", zap.String("email", req.Email))
		prometheus.RecordAuthError("login_failure")
		return fail(c, err)
	}

	token, err := jwtutil.GenerateToken(
		result.User.Email, result.User.ID,
		result.Profile.ID, result.Workspace.ID,
		result.Workspace.Name, result.Profile.Role)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return fail(c, err)
	}
	prometheus.IncreaseActiveTokens()

	log.Info("User logged in",
		zap.String("email", result.User.Email),
		zap.Uint("workspace_id", result.Workspace.ID),
		zap.String("role", result.Profile.Role))

	return c.JSON(http.StatusOK, echo.Map{
		"data": identityPayload(result.User, result.Workspace, result.Profile, token),
	})
}
