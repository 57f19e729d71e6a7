package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/depscope/depscope-backend/internal/api/http"
	"github.com/depscope/depscope-backend/internal/api/http/middleware"
	brancheshttp "github.com/depscope/depscope-backend/internal/branches/http"
	branchesservice "github.com/depscope/depscope-backend/internal/branches/service"
	depgraphhttp "github.com/depscope/depscope-backend/internal/depgraph/http"
	depgraphservice "github.com/depscope/depscope-backend/internal/depgraph/service"
	fixplanhttp "github.com/depscope/depscope-backend/internal/fixplan/http"
	fixplanservice "github.com/depscope/depscope-backend/internal/fixplan/service"
	historyhttp "github.com/depscope/depscope-backend/internal/history/http"
	historyservice "github.com/depscope/depscope-backend/internal/history/service"
	workspacehttp "github.com/depscope/depscope-backend/internal/workspace/http"
	workspaceservice "github.com/depscope/depscope-backend/internal/workspace/service"
)

func SetGinMode(env string) {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
}

type RouterDeps struct {
	ServiceName    string
	Version        string
	APIKey         string
	AllowedOrigins []string
	Redis          *redis.Client
	DB             *pgxpool.Pool

	Analysis   *depgraphservice.AnalysisService
	History    *historyservice.HistoryService
	Paginator  *branchesservice.Paginator
	Generation *fixplanservice.GenerationService
	Workspace  *workspaceservice.WorkspaceService
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:  dep.AllowedOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-API-Key", "X-Workspace-Id", "X-Request-Id"},
		ExposeHeaders: []string{"X-Request-Id"},
		MaxAge:        12 * time.Hour,
	}))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Redis, dep.DB)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")
	api.Use(middleware.RequestIDMiddleware())

	guard := middleware.APIKeyMiddleware(dep.APIKey)

	graphHandler := depgraphhttp.NewHandler(dep.Analysis)
	graphHandler.Register(api)

	historyHandler := historyhttp.NewHandler(dep.History)
	historyHandler.Register(api)

	branchesHandler := brancheshttp.NewHandler(dep.Paginator)
	branchesHandler.Register(api)

	planHandler := fixplanhttp.NewHandler(dep.Generation)
	planHandler.Register(api, guard)

	workspaceHandler := workspacehttp.NewHandler(dep.Workspace)
	workspaceHandler.Register(api)

	return r
}
