package handler

import (
	"net/http"
	"strconv"
	"time"

	"workspace-service/internal/service"
	"workspace-service/pkg/jwtutil"
	"workspace-service/pkg/logger"
	"workspace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// InvitationHandler serves invitation issuance, acceptance, listing and
// revocation.
type InvitationHandler struct {
	invitations *service.InvitationService
}

// NewInvitationHandler creates an InvitationHandler.
func NewInvitationHandler(invitations *service.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitations: invitations}
}

// Create issues an invitation for an email address to join a workspace.
func (h *InvitationHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInvitationOperation("create")

	id, ok := userID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return unauthorized(c)
	}

	var req struct {
		WorkspaceID uint   `json:"workspace_id"`
		Email       string `json:"email"`
		Role        string `json:"role,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse invitation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"code": "VALIDATION_ERROR", "error": "invalid request"})
	}
	if req.WorkspaceID == 0 || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"code": "VALIDATION_ERROR", "error": "workspace_id and email are required"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	invitation, err := h.invitations.Create(id, req.WorkspaceID, req.Email, req.Role)
	if err != nil {
		log.Error("Failed to create invitation",
			zap.String("email", req.Email),
			zap.Uint("workspace_id", req.WorkspaceID),
			zap.Error(err))
		return fail(c, err)
	}

	log.Info("Invitation created",
		zap.String("email", invitation.Email),
		zap.Uint("workspace_id", invitation.WorkspaceID),
		zap.String("role", invitation.Role))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Invitation sent successfully",
		"data":    invitation,
	})
}

// Accept consumes an invitation token. Works for authenticated callers
// (whose email must match the invitation) and for unauthenticated callers,
// creating the account on the fly when needed. A fresh bearer token scoped
// to the joined workspace is returned.
func (h *InvitationHandler) Accept(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInvitationOperation("accept")

	var req struct {
		Token    string `json:"token"`
		Name     string `json:"name,omitempty"`
		Password string `json:"password,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse invitation acceptance", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"code": "VALIDATION_ERROR", "error": "invalid request"})
	}
	if req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"code": "VALIDATION_ERROR", "error": "token is required"})
	}

	params := service.AcceptParams{Name: req.Name, Password: req.Password}
	if id, ok := userID(c); ok {
		params.UserID = &id
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	result, err := h.invitations.Accept(req.Token, params)
	if err != nil {
		log.Error("Failed to accept invitation", zap.Error(err))
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

	log.Info("Invitation accepted",
		zap.Uint("user_id", result.User.ID),
		zap.Uint("workspace_id", result.Workspace.ID),
		zap.String("role", result.Profile.Role))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Invitation accepted successfully",
		"data":    identityPayload(result.User, result.Workspace, result.Profile, token),
	})
}

// List returns the pending invitations of a workspace.
func (h *InvitationHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInvitationOperation("list")

	id, ok := userID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return unauthorized(c)
	}

	workspaceID, err := strconv.ParseUint(c.QueryParam("workspace_id"), 10, 32)
	if err != nil || workspaceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"code": "VALIDATION_ERROR", "error": "workspace_id is required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	invitations, err := h.invitations.List(id, uint(workspaceID))
	if err != nil {
		log.Warn("Failed to list invitations",
			zap.Uint("user_id", id),
			zap.Uint64("workspace_id", workspaceID))
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"data": invitations})
}

// Revoke deletes a pending invitation.
func (h *InvitationHandler) Revoke(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInvitationOperation("revoke")

	id, ok := userID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return unauthorized(c)
	}

	invitationID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid invitation ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"code": "VALIDATION_ERROR", "error": "invalid invitation ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.invitations.Revoke(id, uint(invitationID)); err != nil {
		log.Warn("Failed to revoke invitation",
			zap.Uint("user_id", id),
			zap.Uint64("invitation_id", invitationID))
		return fail(c, err)
	}

	log.Info("Invitation revoked", zap.Uint64("invitation_id", invitationID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Invitation revoked successfully"})
}
