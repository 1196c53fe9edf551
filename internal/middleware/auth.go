package middleware

import (
	"net/http"
	"strings"

	"workspace-service/pkg/jwtutil"
	"workspace-service/pkg/logger"
	"workspace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware validates the JWT token from the Authorization header
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Error("Missing Authorization header")
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"code": "UNAUTHORIZED", "error": "missing authorization token"})
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Error("Invalid Authorization header format")
			prometheus.RecordAuthError("invalid_auth_format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"code": "UNAUTHORIZED", "error": "invalid authorization format, expected Bearer token"})
		}

		// Validate the token
		claims, err := jwtutil.ValidateToken(parts[1])
		if err != nil {
			log.Error("Invalid JWT token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"code": "UNAUTHORIZED", "error": "invalid or expired token"})
		}

		// Store identity and workspace context for the handlers
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("profile_id", claims.ProfileID)
		c.Set("workspace_id", claims.WorkspaceID)
		c.Set("role", claims.Role)

		log.Debug("Request authenticated",
			zap.Uint("user_id", claims.UserID),
			zap.Uint("workspace_id", claims.WorkspaceID),
			zap.String("role", claims.Role))

		return next(c)
	}
}
