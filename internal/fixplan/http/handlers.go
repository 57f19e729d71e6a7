package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/depscope/depscope-backend/internal/fixplan/domain"
	"github.com/depscope/depscope-backend/internal/fixplan/service"
)

// Handler exposes the plan-generation lifecycle over HTTP
type Handler struct {
	generation *service.GenerationService
}

// NewHandler creates a new Handler
func NewHandler(generation *service.GenerationService) *Handler {
	return &Handler{generation: generation}
}

// Register registers the plan routes. guard protects the mutating
// endpoints.
func (h *Handler) Register(rg *gin.RouterGroup, guard gin.HandlerFunc) {
	rg.POST("/plans/:owner/:repo/:branch", guard, h.Generate)
	rg.POST("/plans/:owner/:repo/:branch/cancel", guard, h.Cancel)
	rg.DELETE("/plans/:owner/:repo/:branch", guard, h.Reset)
	rg.GET("/plans/:owner/:repo/:branch", h.GetState)
	rg.GET("/plans/:owner/:repo/:branch/events", h.StreamEvents)
	rg.GET("/plans/:owner/:repo/:branch/archive", h.GetArchived)
}

func planKey(c *gin.Context) domain.PlanKey {
	return domain.PlanKey{
		Owner:  c.Param("owner"),
		Repo:   c.Param("repo"),
		Branch: c.Param("branch"),
	}
}

// Generate starts (or short-circuits) plan generation
func (h *Handler) Generate(c *gin.Context) {
	force := c.Query("force") == "true"

	state, started, err := h.generation.Generate(c.Request.Context(), planKey(c), force)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPlanKey) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid repository identifier"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "plan generator unavailable"})
		return
	}

	status := http.StatusOK
	if started {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{"started": started, "state": state})
}

// GetState returns the aggregated plan and progress snapshot
func (h *Handler) GetState(c *gin.Context) {
	state, err := h.generation.State(c.Request.Context(), planKey(c))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid repository identifier"})
		return
	}
	c.JSON(http.StatusOK, state)
}

// Cancel closes any open generation stream for the repository context
func (h *Handler) Cancel(c *gin.Context) {
	if err := h.generation.Cancel(c.Request.Context(), planKey(c)); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid repository identifier"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Reset deletes the cached plan for the repository context
func (h *Handler) Reset(c *gin.Context) {
	if err := h.generation.Reset(c.Request.Context(), planKey(c)); err != nil {
		if errors.Is(err, domain.ErrInvalidPlanKey) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid repository identifier"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset plan"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GetArchived returns the durable archive record for the repository context
func (h *Handler) GetArchived(c *gin.Context) {
	plan, err := h.generation.Archived(c.Request.Context(), planKey(c))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidPlanKey):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid repository identifier"})
		case errors.Is(err, domain.ErrPlanNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "no archived plan"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load archived plan"})
		}
		return
	}
	c.JSON(http.StatusOK, plan)
}
