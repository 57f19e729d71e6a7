package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	depgraph "github.com/depscope/depscope-backend/internal/depgraph/domain"
	"github.com/depscope/depscope-backend/internal/history/domain"
	"github.com/depscope/depscope-backend/internal/history/service"
)

const defaultWorkspaceID = "default"

// Handler exposes the history log endpoints.
type Handler struct {
	history *service.HistoryService
}

// NewHandler creates a new history handler.
func NewHandler(history *service.HistoryService) *Handler {
	return &Handler{history: history}
}

// Register mounts the history routes on the router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/history", h.GetLog)
	rg.POST("/history", h.SaveEntry)
	rg.DELETE("/history", h.ResetLog)
}

// saveEntryRequest is the POST /history payload.
type saveEntryRequest struct {
	Username     string                     `json:"username" binding:"required"`
	Repo         string                     `json:"repo" binding:"required"`
	Branch       string                     `json:"branch" binding:"required"`
	GraphData    depgraph.EcosystemGraphMap `json:"graph_data"`
	Dependencies []depgraph.Dependency      `json:"dependencies"`
	Branches     []string                   `json:"branches"`
}

// GetLog returns the workspace's full history document.
func (h *Handler) GetLog(c *gin.Context) {
	log, err := h.history.Log(c.Request.Context(), workspaceID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": log, "total": log.Total()})
}

// SaveEntry saves one analysis snapshot into today's bucket.
func (h *Handler) SaveEntry(c *gin.Context) {
	var req saveEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	item := domain.HistoryItem{
		Username:     req.Username,
		Repo:         req.Repo,
		Branch:       req.Branch,
		GraphData:    req.GraphData,
		Dependencies: req.Dependencies,
		Branches:     req.Branches,
	}

	saved, err := h.history.Save(c.Request.Context(), workspaceID(c), item)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateEntry):
			c.JSON(http.StatusConflict, gin.H{"error": "entry already saved today"})
		case errors.Is(err, domain.ErrLogFull):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "history log is full"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save history entry"})
		}
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// ResetLog deletes the workspace's history document.
func (h *Handler) ResetLog(c *gin.Context) {
	if err := h.history.Reset(c.Request.Context(), workspaceID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "history reset"})
}

// workspaceID scopes the log per caller; absent header means the shared
// default workspace.
func workspaceID(c *gin.Context) string {
	if id := c.GetHeader("X-Workspace-Id"); id != "" {
		return id
	}
	return defaultWorkspaceID
}
