// Package main runs the club management HTTP server with WebSocket support
// and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/clubhub/backend/config"
	"github.com/clubhub/backend/internal/analytics"
	"github.com/clubhub/backend/internal/auth"
	"github.com/clubhub/backend/internal/chat"
	"github.com/clubhub/backend/internal/clubs"
	"github.com/clubhub/backend/internal/dashboard"
	"github.com/clubhub/backend/internal/events"
	"github.com/clubhub/backend/internal/models"
	"github.com/clubhub/backend/internal/realtime"
	"github.com/clubhub/backend/internal/server"
	"github.com/clubhub/backend/internal/session"
	"github.com/clubhub/backend/internal/tasks"
	"github.com/clubhub/backend/internal/worker"
	"github.com/clubhub/backend/pkg/database"
	"github.com/clubhub/backend/pkg/queue"
	"github.com/clubhub/backend/pkg/redis"
	"github.com/clubhub/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	var ready atomic.Bool

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
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			MediaBucket:          cfg.AWS.MediaBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	sessionStore := session.NewRedisStore(rdb.Client, time.Duration(cfg.Session.TTLHours)*time.Hour)

	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	presence := realtime.NewPresence(rdb.Client)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth and session
	authRepo := auth.NewRepository(pool)
	authSvc := auth.NewService(authRepo)
	authHandler := auth.NewHandler(authSvc, sessionStore, jwtService, logger)

	// Clubs
	clubRepo := clubs.NewRepository(pool)
	clubHandler := clubs.NewHandler(clubRepo, authRepo, logger)

	// Events
	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, authRepo, hub, jobQueue, logger)

	// Tasks
	taskRepo := tasks.NewRepository(pool)
	taskHandler := tasks.NewHandler(taskRepo, hub, jobQueue, s3Client, logger)

	// Chat (task conversion approval creates tasks through the task handler)
	chatRepo := chat.NewRepository(pool)
	chatHandler := chat.NewHandler(chatRepo, hub, presence, s3Client, jobQueue, taskHandler, clubRepo, logger)

	// Dashboard and analytics
	dashboardHandler := dashboard.NewHandler(authRepo, clubRepo, eventRepo, taskRepo, chatRepo, presence, logger)
	analyticsHandler := analytics.NewHandler(pool, clubRepo, logger)

	wsValidate := func(token string) (uuid.UUID, string, models.Role, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, "", "", err
		}
		name := claims.Email
		if user, err := authRepo.GetByID(ctx, claims.UserID); err == nil {
			name = user.Name
		}
		return claims.UserID, name, claims.Role, nil
	}

	router := server.NewRouter(server.Deps{
		Logger:      logger,
		CORSOrigins: cfg.Server.CORSAllowedOrigins,
		JWT:         jwtService,
		Auth:        authHandler,
		Clubs:       clubHandler,
		Chat:        chatHandler,
		Events:      eventHandler,
		Tasks:       taskHandler,
		Dashboard:   dashboardHandler,
		Analytics:   analyticsHandler,
		WS:          realtime.ServeWs(hub, presence, logger, wsValidate),
		Ready:       ready.Load,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// In-process notification delivery keeps single-binary deployments
	// working; the standalone worker binary covers scaled-out setups.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	notifier := worker.NewNotificationProcessor(jobQueue, redisPubSub, logger)
	go notifier.Run(workerCtx)

	go func() {
		ready.Store(true)
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ready.Store(false)
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
