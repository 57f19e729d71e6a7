package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/depscope/depscope-backend/config"
	"github.com/depscope/depscope-backend/internal/bootstrap"
	branchescron "github.com/depscope/depscope-backend/internal/branches/cron"
	branchesgithub "github.com/depscope/depscope-backend/internal/branches/github"
	branchesservice "github.com/depscope/depscope-backend/internal/branches/service"
	depgraphservice "github.com/depscope/depscope-backend/internal/depgraph/service"
	fixplanrepo "github.com/depscope/depscope-backend/internal/fixplan/repository"
	fixplanservice "github.com/depscope/depscope-backend/internal/fixplan/service"
	fixplanstream "github.com/depscope/depscope-backend/internal/fixplan/stream"
	historyrepo "github.com/depscope/depscope-backend/internal/history/repository"
	historyservice "github.com/depscope/depscope-backend/internal/history/service"
	workspacerepo "github.com/depscope/depscope-backend/internal/workspace/repository"
	workspaceservice "github.com/depscope/depscope-backend/internal/workspace/service"
)

const serviceName = "depscope-backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	redisClient, err := bootstrap.OpenRedis(ctx, bootstrap.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	var pool *pgxpool.Pool
	var archive *fixplanrepo.ArchiveRepository
	if cfg.Database.DSN != "" {
		pool, err = bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: cfg.Database.DSN})
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer pool.Close()

		archive = fixplanrepo.NewArchiveRepository(pool)
		if err := archive.EnsureSchema(ctx); err != nil {
			log.Fatalf("db schema: %v", err)
		}
	} else {
		log.Println("DB_DSN not set, plan archive disabled")
	}

	historySvc := historyservice.NewHistoryService(historyrepo.NewHistoryRepository(redisClient))
	planRepo := fixplanrepo.NewPlanRepository(redisClient)

	generation := fixplanservice.NewGenerationService(
		fixplanstream.NewClient(cfg.Generator.BaseURL, cfg.Generator.APIKey),
		planRepo,
		archive,
	)
	defer generation.Shutdown()

	ghClient := branchesgithub.NewClient(cfg.GitHub.Token)
	paginator := branchesservice.NewPaginator(ghClient, historySvc)
	defer paginator.Close()

	scheduler := branchescron.NewScheduler(historySvc, ghClient)
	scheduler.Start()
	defer scheduler.Stop()

	workspaceSvc := workspaceservice.NewWorkspaceService(
		workspacerepo.NewSnapshotRepository(redisClient),
		historySvc,
		planRepo,
		paginator,
		generation,
	)

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    serviceName,
		Version:        cfg.App.Version,
		APIKey:         cfg.Server.APIKey,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Redis:          redisClient,
		DB:             pool,
		Analysis:       depgraphservice.NewAnalysisService(),
		History:        historySvc,
		Paginator:      paginator,
		Generation:     generation,
		Workspace:      workspaceSvc,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}
