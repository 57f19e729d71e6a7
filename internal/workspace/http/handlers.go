package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/depscope/depscope-backend/internal/workspace/domain"
	"github.com/depscope/depscope-backend/internal/workspace/service"
)

// Handler exposes the workspace snapshot endpoints.
type Handler struct {
	workspace *service.WorkspaceService
}

// NewHandler creates a new workspace handler.
func NewHandler(workspace *service.WorkspaceService) *Handler {
	return &Handler{workspace: workspace}
}

// Register mounts the workspace routes on the router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/workspace/:id/snapshot", h.ExportSnapshot)
	rg.PUT("/workspace/:id/snapshot", h.ImportSnapshot)
	rg.PUT("/workspace/:id/selection", h.SetSelection)
}

// ExportSnapshot builds the current snapshot, persists it and returns
// it.
func (h *Handler) ExportSnapshot(c *gin.Context) {
	snap, err := h.workspace.BuildSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build snapshot"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ImportSnapshot restores a previously exported snapshot into every
// owning store.
func (h *Handler) ImportSnapshot(c *gin.Context) {
	var snap domain.Snapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid snapshot body: " + err.Error()})
		return
	}

	if err := h.workspace.RestoreSnapshot(c.Request.Context(), c.Param("id"), snap); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to restore snapshot"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "snapshot restored"})
}

// selectionRequest is the PUT /workspace/:id/selection payload.
type selectionRequest struct {
	SelectedBranch    string `json:"selected_branch"`
	SelectedEcosystem string `json:"selected_ecosystem"`
}

// SetSelection replaces the workspace's selected branch and ecosystem.
func (h *Handler) SetSelection(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	state := h.workspace.SetSelection(c.Param("id"), req.SelectedBranch, req.SelectedEcosystem)
	c.JSON(http.StatusOK, state)
}
