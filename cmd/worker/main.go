// cmd/worker/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"docverify/internal/common/config"
	"docverify/internal/common/database"
	"docverify/internal/common/logger"
	"docverify/internal/lifecycle"
	"docverify/internal/ocr"
	"docverify/internal/queue"
	"docverify/internal/repository"
	"docverify/internal/scheduler"
	"docverify/internal/storage"
	"docverify/internal/workers/achievement"
	"docverify/internal/workers/ocrprocess"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	zapLog.Info("Starting worker...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.NewZapAdapter(zapLog)

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init AWS Clients ---
	objectStore, err := storage.NewS3Store(ctx, cfg.Storage, log)
	if err != nil {
		zapLog.Fatal("object store init failed", zap.Error(err))
	}

	analyzer, err := ocr.NewTextractAnalyzer(ctx, cfg.OCR, cfg.Storage.Region, log)
	if err != nil {
		zapLog.Fatal("textract init failed", zap.Error(err))
	}
	zapLog.Info("AWS clients initialized")

	// --- Repositories ---
	submissions := repository.NewSubmissionRepository(pg.DB)
	achievements := repository.NewAchievementRepository(pg.DB)
	windows := repository.NewWindowRepository(pg.DB)

	// --- Task Handlers ---
	ocrHandler := ocrprocess.NewHandler(
		&ocrprocess.Config{
			ReviewThreshold: float64(cfg.OCR.Thresholds.Review),
		},
		ocrprocess.Dependencies{
			Submissions: submissions,
			Images:      objectStore,
			Selector:    ocr.NewStrategySelector(cfg.OCR),
			Analyzer:    analyzer,
			Logger:      log,
		},
	)
	creditHandler := achievement.NewHandler(achievement.Dependencies{
		Credits: achievements,
		Logger:  log,
	})

	srv := queue.NewServer(cfg.Database.Redis, cfg.Queue, log)
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskOCRProcess, ocrHandler.ProcessTask)
	mux.HandleFunc(queue.TaskAchievementCredit, creditHandler.ProcessTask)

	if err := srv.Start(mux); err != nil {
		zapLog.Fatal("queue server failed to start", zap.Error(err))
	}
	zapLog.Info("Queue server started", zap.Int("concurrency", cfg.Queue.Concurrency))

	// --- Deadline Scheduler ---
	// The invalidator drops the cached window after an auto-close so API
	// reads converge without waiting out the cache TTL.
	windowService := lifecycle.NewWindowService(windows, redis.Client, cfg.Window, log)
	deadlines := scheduler.NewDeadlineScheduler(windows, windowService, cfg.Window, log)
	if err := deadlines.Start(); err != nil {
		zapLog.Fatal("deadline scheduler failed to start", zap.Error(err))
	}

	// --- Metrics Server ---
	go func() {
		httpMux := http.NewServeMux()
		httpMux.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Metrics server listening", zap.String("address", cfg.HTTP.MetricsAddr))
		if err := http.ListenAndServe(cfg.HTTP.MetricsAddr, httpMux); err != nil {
			zapLog.Error("Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping worker...")
	deadlines.Stop()
	srv.Shutdown()

	zapLog.Info("worker stopped gracefully")
}
