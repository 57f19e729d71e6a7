package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/depscope/depscope-backend/internal/branches/domain"
	"github.com/depscope/depscope-backend/internal/branches/service"
)

const defaultWorkspaceID = "default"

// Handler exposes branch pagination endpoints.
type Handler struct {
	paginator *service.Paginator
}

// NewHandler creates a new branches handler.
func NewHandler(paginator *service.Paginator) *Handler {
	return &Handler{paginator: paginator}
}

// Register mounts the branch routes on the router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/repos/:owner/:repo/branches", h.ListBranches)
	rg.POST("/repos/validate", h.ValidateRepo)
}

// ListBranches serves a branch page. Page 1 may come from the history
// seed cache; later pages are always fetched and merged.
func (h *Handler) ListBranches(c *gin.Context) {
	ref := domain.RepoRef{Owner: c.Param("owner"), Repo: c.Param("repo")}
	if ref.Owner == "" || ref.Repo == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "owner and repo are required"})
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page parameter"})
		return
	}
	force := c.Query("force") == "true"
	ws := workspaceID(c)

	var state domain.PageState
	if page == 1 {
		state, err = h.paginator.FirstPage(c.Request.Context(), ws, ref, force)
	} else {
		state, err = h.paginator.LoadMore(c.Request.Context(), ws)
	}
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRepoNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "repository not found"})
		case errors.Is(err, domain.ErrNoRepoLoaded):
			c.JSON(http.StatusConflict, gin.H{"error": "load page 1 first"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch branches: " + err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, state)
}

// validateRepoRequest is the POST /repos/validate payload.
type validateRepoRequest struct {
	URL string `json:"url" binding:"required"`
}

// ValidateRepo parses a repository URL and schedules a debounced
// first-page load. Rapid repeated calls collapse into one fetch.
func (h *Handler) ValidateRepo(c *gin.Context) {
	var req validateRepoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	ref, err := domain.ParseRepoRef(req.URL)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid repository URL"})
		return
	}

	h.paginator.Validate(workspaceID(c), ref)
	c.JSON(http.StatusAccepted, gin.H{"status": "scheduled", "repo": ref.Key()})
}

func workspaceID(c *gin.Context) string {
	if id := c.GetHeader("X-Workspace-Id"); id != "" {
		return id
	}
	return defaultWorkspaceID
}
