package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kleurijkwonen/inspections/config"
	"github.com/kleurijkwonen/inspections/pkg/logger"
	"github.com/kleurijkwonen/inspections/service"
	"github.com/kleurijkwonen/inspections/session"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	ctx := context.Background()

	db, err := service.OpenDatabase(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	store := service.NewStore(db)

	blobs, err := newBlobStore(ctx, &cfg.Storage)
	if err != nil {
		slog.Error("failed to initialize photo storage", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}

	sessions, err := newSessionStore(ctx, &cfg.Session)
	if err != nil {
		slog.Error("failed to initialize session store", "backend", cfg.Session.Backend, "error", err)
		os.Exit(1)
	}

	auth := service.NewAuthService(store)
	if n, err := auth.SeedUsers(ctx, cfg.SeedUsers); err != nil {
		slog.Error("failed to seed users", "error", err)
		os.Exit(1)
	} else if n > 0 {
		slog.Info("seeded user accounts", "count", n)
	}

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := newRouter(cfg, &services{
		store:    store,
		blobs:    blobs,
		sessions: sessions,
		auth:     auth,
	})

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	slog.Info("server exited gracefully")
}

func newBlobStore(ctx context.Context, cfg *config.StorageConfig) (service.BlobStore, error) {
	switch cfg.Backend {
	case "minio":
		s, err := service.NewMinioBlobStore(&cfg.Minio)
		if err != nil {
			return nil, err
		}
		// Ensure bucket exists
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case "azure":
		s, err := service.NewAzureBlobStore(&cfg.Azure)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureContainer(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		slog.Warn("photos are kept in memory and lost on restart")
		return service.NewMemoryBlobStore(), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

func newSessionStore(ctx context.Context, cfg *config.SessionConfig) (session.Store, error) {
	ttl := time.Duration(cfg.TTLMinutes) * time.Minute
	switch cfg.Backend {
	case "redis":
		client, err := session.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return session.NewRedisStore(client, ttl), nil
	case "memory":
		return session.NewMemoryStore(ttl), nil
	}
	return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
}
