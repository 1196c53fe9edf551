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

// WorkspaceHandler serves workspace CRUD, context switching and
// default-profile selection.
type WorkspaceHandler struct {
	workspaces *service.WorkspaceService
}

// NewWorkspaceHandler creates a WorkspaceHandler.
func NewWorkspaceHandler(workspaces *service.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaces: workspaces}
}

// Create handles workspace creation.
func (h *WorkspaceHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordWorkspaceOperation("create")

	id, ok := userID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return unauthorized(c)
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse workspace creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"code": "VALIDATION_ERROR", "error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	workspace, profile, err := h.workspaces.Create(id, req.Name)
	if err != nil {
		log.Error("Failed to create workspace", zap.Error(err))
		return fail(c, err)
	}

	log.Info("Workspace created",
		zap.String("name", workspace.Name),
		zap.Uint("id", workspace.ID),
		zap.Uint("owner_id", workspace.OwnerID))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Workspace created successfully",
		"data": echo.Map{
			"workspace": workspace,
			"profile":   profile,
		},
	})
}

// List returns every workspace the authenticated user belongs to.
func (h *WorkspaceHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordWorkspaceOperation("list")

	id, ok := userID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return unauthorized(c)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	profiles, err := h.workspaces.ListForUser(id)
	if err != nil {
		log.Error("Failed to list workspaces", zap.Error(err))
		return fail(c, err)
	}

	type workspaceEntry struct {
		ID        uint      `json:"id"`
		Name      string    `json:"name"`
		Role      string    `json:"role"`
		IsDefault bool      `json:"is_default"`
		CreatedAt time.Time `json:"created_at"`
	}

	entries := make([]workspaceEntry, 0, len(profiles))
	for _, p := range profiles {
		entries = append(entries, workspaceEntry{
			ID:        p.WorkspaceID,
			Name:      p.Workspace.Name,
			Role:      p.Role,
			IsDefault: p.IsDefault,
			CreatedAt: p.Workspace.CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"data": entries})
}

// Get returns one workspace the authenticated user is a member of.
func (h *WorkspaceHandler) Get(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordWorkspaceOperation("access")

	id, ok := userID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return unauthorized(c)
	}

	workspaceID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid workspace ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"code": "VALIDATION_ERROR", "error": "invalid workspace ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	workspace, err := h.workspaces.Get(id, uint(workspaceID))
	if err != nil {
		log.Warn("Workspace access denied or missing",
			zap.Uint("user_id", id),
			zap.Uint64("workspace_id", workspaceID))
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"data": workspace})
}

// Delete removes a workspace together with its profiles and invitations.
func (h *WorkspaceHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordWorkspaceOperation("delete")

	id, ok := userID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return unauthorized(c)
	}

	workspaceID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid workspace ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"code": "VALIDATION_ERROR", "error": "invalid workspace ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.workspaces.Delete(id, uint(workspaceID)); err != nil {
		log.Error("Failed to delete workspace", zap.Uint64("workspace_id", workspaceID), zap.Error(err))
		return fail(c, err)
	}

	log.Info("Workspace deleted",
		zap.Uint64("workspace_id", workspaceID),
		zap.Uint("user_id", id))

	return c.JSON(http.StatusOK, echo.Map{"message": "Workspace deleted successfully"})
}

// Switch issues a new token scoped to another workspace the user belongs
// to. The default profile is left untouched.
func (h *WorkspaceHandler) Switch(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordWorkspaceOperation("switch")

	id, ok := userID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return unauthorized(c)
	}
	email, ok := c.Get("email").(string)
	if !ok {
		log.Error("Failed to get email from context")
		return c.JSON(http.StatusInternalServerError, echo.Map{"code": "INTERNAL_ERROR", "error": "email missing from context"})
	}

	var req struct {
		WorkspaceID uint `json:"workspace_id"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse workspace switch request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"code": "VALIDATION_ERROR", "error": "invalid request"})
	}
	if req.WorkspaceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"code": "VALIDATION_ERROR", "error": "workspace_id is required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	workspace, profile, err := h.workspaces.Switch(id, req.WorkspaceID)
	if err != nil {
		log.Warn("Unauthorized workspace switch attempt",
			zap.Uint("user_id", id),
			zap.Uint("workspace_id", req.WorkspaceID))
		return fail(c, err)
	}

	token, err := jwtutil.GenerateToken(email, id, profile.ID, workspace.ID, workspace.Name, profile.Role)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return fail(c, err)
	}
	prometheus.IncreaseActiveTokens()

	log.Info("User switched workspace",
		zap.Uint("user_id", id),
		zap.Uint("workspace_id", workspace.ID))

	return c.JSON(http.StatusOK, echo.Map{
		"data": echo.Map{
			"token": token,
			"workspace": echo.Map{
				"id":   workspace.ID,
				"name": workspace.Name,
				"role": profile.Role,
			},
		},
	})
}

// MakeProfileDefault marks the user's profile in the given workspace as
// their login default.
func (h *WorkspaceHandler) MakeProfileDefault(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordWorkspaceOperation("set_default")

	id, ok := userID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return unauthorized(c)
	}

	var req struct {
		WorkspaceID uint `json:"workspace_id"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse set default request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"code": "VALIDATION_ERROR", "error": "invalid request"})
	}
	if req.WorkspaceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"code": "VALIDATION_ERROR", "error": "workspace_id is required"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	profile, err := h.workspaces.MakeDefault(id, req.WorkspaceID)
	if err != nil {
		log.Error("Failed to set default profile",
			zap.Uint("user_id", id),
			zap.Uint("workspace_id", req.WorkspaceID))
		return fail(c, err)
	}

	log.Info("Default profile set",
		zap.Uint("user_id", id),
		zap.Uint("workspace_id", req.WorkspaceID))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Default profile set successfully",
		"data":    profile,
	})
}

// RemoveMember deletes another user's profile from a workspace.
func (h *WorkspaceHandler) RemoveMember(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordWorkspaceOperation("remove_member")

	id, ok := userID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return unauthorized(c)
	}

	workspaceID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid workspace ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"code": "VALIDATION_ERROR", "error": "invalid workspace ID"})
	}
	targetUserID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		log.Error("Invalid user ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"code": "VALIDATION_ERROR", "error": "invalid user ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.workspaces.RemoveMember(id, uint(workspaceID), uint(targetUserID)); err != nil {
		log.Warn("Failed to remove member",
			zap.Uint64("workspace_id", workspaceID),
			zap.Uint64("target_user_id", targetUserID))
		return fail(c, err)
	}

	log.Info("Member removed from workspace",
		zap.Uint64("workspace_id", workspaceID),
		zap.Uint64("user_id", targetUserID))

	return c.JSON(http.StatusOK, echo.Map{"message": "Member removed successfully"})
}
