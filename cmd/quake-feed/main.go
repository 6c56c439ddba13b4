package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/mr1hm/go-quake-feed/internal/api"
	"github.com/mr1hm/go-quake-feed/internal/config"
	"github.com/mr1hm/go-quake-feed/internal/ingestion"
	"github.com/mr1hm/go-quake-feed/internal/logging"
	"github.com/mr1hm/go-quake-feed/internal/observability"
	"github.com/mr1hm/go-quake-feed/internal/repository"
	"github.com/mr1hm/go-quake-feed/internal/stream"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port, "default_feed", cfg.Feeds.Default)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	metrics := observability.NewMetrics()
	broadcaster := stream.NewBroadcaster()

	opts := []ingestion.Option{
		ingestion.WithClock(clock),
		ingestion.WithMetrics(metrics),
		ingestion.WithBroadcaster(broadcaster),
		ingestion.WithFeeds(cfg.Feeds.Sources),
		ingestion.WithWorkers(cfg.Worker.Count, cfg.Worker.BufferSize),
		ingestion.WithRefreshInterval(cfg.Feeds.RefreshInterval),
	}
	if cfg.DB.Path != "" {
		db, err := repository.NewSQLiteDB(cfg.DB.Path)
		if err != nil {
			logging.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		opts = append(opts, ingestion.WithSnapshotStore(db))
	}

	sync := ingestion.NewSynchronizer(ingestion.NewUSGSClient(cfg.Feeds.FetchTimeout), opts...)
	sync.Start(ctx)

	if err := sync.Restore(ctx, cfg.Feeds.Default); err != nil {
		slog.Warn("could not restore snapshot", "feed", cfg.Feeds.Default, "error", err)
	}

	if err := sync.SelectKey(cfg.Feeds.Default); err != nil {
		logging.Fatalf("Failed to select default feed %s: %v", cfg.Feeds.Default, err)
	}

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimitRPS, "/health", "/metrics", "/api/stream"))

	handler := api.NewHandler(sync, clock, metrics)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		sync.Stop()
		broadcaster.Close() // ends open streams

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logging.Fatalf("%v", err)
	}

	slog.Info("shutdown complete")
}
