// Package main runs the background worker: notification delivery and the
// overdue-task sweep.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/clubhub/backend/config"
	"github.com/clubhub/backend/internal/realtime"
	"github.com/clubhub/backend/internal/tasks"
	"github.com/clubhub/backend/internal/worker"
	"github.com/clubhub/backend/pkg/database"
	"github.com/clubhub/backend/pkg/queue"
	"github.com/clubhub/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jobQueue := queue.NewQueue(rdb.Client, logger)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	taskRepo := tasks.NewRepository(pool)

	notifier := worker.NewNotificationProcessor(jobQueue, redisPubSub, logger)
	sweeper := worker.NewOverdueSweeper(taskRepo, jobQueue, time.Minute, logger)

	go notifier.Run(ctx)
	go sweeper.Run(ctx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
