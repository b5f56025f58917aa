package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kleurijkwonen/inspections/config"
	"github.com/kleurijkwonen/inspections/handler"
	"github.com/kleurijkwonen/inspections/middleware"
	"github.com/kleurijkwonen/inspections/model"
	"github.com/kleurijkwonen/inspections/service"
	"github.com/kleurijkwonen/inspections/session"
)

// services are the long-lived dependencies built in main.
type services struct {
	store    *service.Store
	blobs    service.BlobStore
	sessions session.Store
	auth     *service.AuthService
}

func newRouter(cfg *config.Config, s *services) *gin.Engine {
	maxUpload := int64(cfg.Server.MaxUploadMB) << 20

	submissions := service.NewSubmissionService(s.store, s.blobs, cfg.Photo.MinBrightness)
	reports := service.NewReportService(s.store, submissions)
	analysis := service.NewAnalysisService(&cfg.OpenAI, s.store)
	quality := service.NewPhotoQualityService(&cfg.PhotoQuality)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(s.auth, s.store, &cfg.Auth)
	submissionHandler := handler.NewSubmissionHandler(submissions, analysis, maxUpload)
	reportHandler := handler.NewReportHandler(reports)
	photoHandler := handler.NewPhotoHandler(quality, maxUpload)
	analysisHandler := handler.NewAnalysisHandler(analysis)
	adminHandler := handler.NewAdminHandler(s.store)
	wizardHandler := handler.NewWizardHandler(s.sessions, s.auth, s.store, submissions, maxUpload)

	router := gin.New() // Use New() instead of Default() to avoid default middleware

	// Add custom middleware
	router.Use(middleware.RequestID())     // Request ID for tracing
	router.Use(middleware.Recovery())      // Panic recovery
	router.Use(middleware.RequestLogger()) // Access logging
	router.Use(middleware.CORS())          // CORS
	router.Use(middleware.NoCache())       // Cache control
	router.Use(middleware.RateLimit(cfg.RateLimit.Requests, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/register", authHandler.Register)
		api.GET("/health/db", adminHandler.DatabaseHealth)
	}

	// Wizard sessions carry their own login
	wiz := api.Group("/wizard")
	{
		wiz.POST("", wizardHandler.Create)
		wiz.GET("/:id", wizardHandler.Get)
		wiz.DELETE("/:id", wizardHandler.Delete)
		wiz.POST("/:id/login", wizardHandler.Login)
		wiz.POST("/:id/logout", wizardHandler.Logout)
		wiz.PATCH("/:id/draft", wizardHandler.UpdateDraft)
		wiz.POST("/:id/photo", wizardHandler.UploadPhoto)
		wiz.POST("/:id/next", wizardHandler.Next)
		wiz.POST("/:id/back", wizardHandler.Back)
		wiz.POST("/:id/submit", wizardHandler.Submit)
		wiz.POST("/:id/restart", wizardHandler.Restart)
		wiz.POST("/:id/select", wizardHandler.Select)
	}

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)
		protected.POST("/submissions", submissionHandler.Create)
		protected.GET("/submissions", submissionHandler.List)
		protected.GET("/submissions/:id", submissionHandler.Get)
		protected.GET("/submissions/:id/photo", submissionHandler.Photo)
		protected.GET("/submissions/:id/analyses", submissionHandler.Analyses)
		protected.GET("/reports/:ref", reportHandler.Download)
		protected.POST("/compare-photos", photoHandler.Compare)
		protected.POST("/analyze", analysisHandler.Analyze)
	}

	admin := protected.Group("/")
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	{
		admin.POST("/reports/:submissionId", reportHandler.Generate)
		admin.GET("/reports", reportHandler.List)
		admin.GET("/admin/stats", adminHandler.Stats)
		admin.GET("/admin/submissions/export", adminHandler.Export)
	}

	return router
}
