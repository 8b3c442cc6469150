// Package main runs the proctoring analytics HTTP server with WebSocket live feed and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/proctorly/backend/config"
	"github.com/proctorly/backend/internal/auth"
	"github.com/proctorly/backend/internal/candidates"
	"github.com/proctorly/backend/internal/events"
	"github.com/proctorly/backend/internal/media"
	"github.com/proctorly/backend/internal/middleware"
	"github.com/proctorly/backend/internal/realtime"
	"github.com/proctorly/backend/internal/reports"
	"github.com/proctorly/backend/internal/worker"
	"github.com/proctorly/backend/pkg/database"
	"github.com/proctorly/backend/pkg/queue"
	"github.com/proctorly/backend/pkg/redis"
	"github.com/proctorly/backend/pkg/response"
	"github.com/proctorly/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			RecordingsBucket:     cfg.AWS.RecordingsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Candidates and event logs
	candidateRepo := candidates.NewRepository(pool)
	eventRepo := events.NewRepository(pool)
	candidateHandler := candidates.NewHandler(candidateRepo, eventRepo, logger)
	eventHandler := events.NewHandler(eventRepo, hub, logger)

	// Reports
	reportHandler := reports.NewHandler(candidateRepo, eventRepo, logger)

	// Recordings
	recordingRepo := media.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	mediaHandler := media.NewHandler(recordingRepo, candidateRepo, s3Client, jobQueue, cfg.Upload, logger)
	archiveProcessor := worker.NewArchiveProcessor(recordingRepo, candidateRepo, s3Client, jobQueue, logger)

	jwtValidate := func(token string) (userID, role string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.UserID.String(), claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Protected API (JWT required)
	api := router.Group("/api")
	api.Use(middleware.JWT(jwtService))
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}
	{
		// Users (admin only)
		api.GET("/users", middleware.RequireRole("admin"), authHandler.List)

		// Candidates
		api.POST("/candidates", candidateHandler.Create)
		api.GET("/candidates", candidateHandler.List)
		api.GET("/candidates/:candidateId", candidateHandler.GetByID)
		api.PUT("/candidates/:candidateId", candidateHandler.Update)
		api.POST("/candidates/:candidateId/end", candidateHandler.End)
		api.GET("/candidates/:candidateId/watchers", func(c *gin.Context) {
			id := c.Param("candidateId")
			response.OK(c, gin.H{"candidateId": id, "watchers": hub.WatcherCount(id)})
		})

		// Event logs
		api.POST("/logs", eventHandler.Create)
		api.GET("/logs/:candidateId", eventHandler.ListByCandidate)
		api.GET("/logs/stats/:candidateId", eventHandler.Stats)

		// Reports (JSON or CSV via ?format=)
		api.GET("/reports/:candidateId", reportHandler.Get)

		// Recordings: multipart upload, byte-range streaming playback
		api.POST("/upload", mediaHandler.Upload)
		api.GET("/upload/:candidateId", mediaHandler.Stream)
		api.GET("/upload/:candidateId/download-url", mediaHandler.DownloadURL)
	}

	// WebSocket live event feed (token in query; no Authorization header required)
	router.GET("/ws", func(c *gin.Context) {
		realtime.ServeWs(hub, logger, jwtValidate)(c)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (recording archive to S3)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if s3Client != nil {
		go archiveProcessor.Run(workerCtx)
		logger.Info("archive worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
