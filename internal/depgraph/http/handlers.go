package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/depscope/depscope-backend/internal/depgraph/domain"
	"github.com/depscope/depscope-backend/internal/depgraph/service"
)

// Handler exposes graph construction over HTTP
type Handler struct {
	analysis *service.AnalysisService
}

// NewHandler creates a new Handler
func NewHandler(analysis *service.AnalysisService) *Handler {
	return &Handler{analysis: analysis}
}

// Register registers the graph routes
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/graphs", h.BuildGraphs)
}

// BuildGraphs builds per-ecosystem graphs from an analysis payload
func (h *Handler) BuildGraphs(c *gin.Context) {
	var body domain.AnalyzeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	graphs, err := h.analysis.BuildGraphs(c.Request.Context(), body.Repo, body.Dependencies)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRepo) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid repository identifier"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build graphs"})
		return
	}

	c.JSON(http.StatusOK, graphs)
}
