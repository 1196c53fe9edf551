package handler

import (
	"net/http"
	"time"

	"workspace-service/internal/service"
	"workspace-service/pkg/logger"
	"workspace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// VerificationHandler serves email verification and token resending.
type VerificationHandler struct {
	verification *service.VerificationService
}

// NewVerificationHandler creates a VerificationHandler.
func NewVerificationHandler(verification *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{verification: verification}
}

func verificationMessage(status string) string {
	switch status {
	case service.VerificationAlreadyVerified:
		return "Email is already verified"
	case service.VerificationVerified:
		return "Email verified successfully"
	default:
		return "Verification token expired, a new one has been sent"
	}
}

// Verify consumes a verification token for the authenticated user. An
// expired token is not a failure: a fresh one is mailed and the response
// reports reverification as pending.
func (h *VerificationHandler) Verify(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordVerificationOperation("verify")

	id, ok := userID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return unauthorized(c)
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse verification request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"code": "VALIDATION_ERROR", "error": "invalid request"})
	}
	if req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"code": "VALIDATION_ERROR", "error": "token is required"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	status, err := h.verification.Verify(id, req.Token)
	if err != nil {
		log.Error("Email verification failed", zap.Uint("user_id", id), zap.Error(err))
		return fail(c, err)
	}

	log.Info("Email verification processed",
		zap.Uint("user_id", id),
		zap.String("status", status))

	return c.JSON(http.StatusOK, echo.Map{
		"message": verificationMessage(status),
		"data":    echo.Map{"status": status},
	})
}

// Resend rotates the user's verification token and sends a fresh email.
// The route is rate limited to 3 requests per hour per user.
func (h *VerificationHandler) Resend(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordVerificationOperation("resend")

	id, ok := userID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return unauthorized(c)
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	status, err := h.verification.Resend(id)
	if err != nil {
		log.Error("Failed to resend verification email", zap.Uint("user_id", id), zap.Error(err))
		return fail(c, err)
	}

	message := "Verification email sent"
	if status == service.VerificationAlreadyVerified {
		message = "Email is already verified"
	}

	log.Info("Verification email resend processed",
		zap.Uint("user_id", id),
		zap.String("status", status))

	return c.JSON(http.StatusOK, echo.Map{
		"message": message,
		"data":    echo.Map{"status": status},
	})
}
