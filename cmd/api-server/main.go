// cmd/api-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"docverify/internal/api"
	commonaws "docverify/internal/common/aws"
	"docverify/internal/common/config"
	"docverify/internal/common/database"
	"docverify/internal/common/logger"
	"docverify/internal/lifecycle"
	"docverify/internal/ocr"
	"docverify/internal/pipeline"
	"docverify/internal/queue"
	"docverify/internal/repository"
	"docverify/internal/storage"
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

	zapLog.Info("Starting api-server...")

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
	// Redis only backs the window cache and the fail-open queue producer,
	// so an outage degrades those paths instead of blocking startup.
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	var windowCache *goredis.Client
	if err != nil {
		zapLog.Warn("redis unavailable, continuing without window cache and with fail-open queue", zap.Error(err))
		redis = nil
	} else {
		defer redis.Close()
		windowCache = redis.Client
		zapLog.Info("Redis connected successfully")
	}

	// --- Init AWS Clients ---
	objectStore, err := storage.NewS3Store(ctx, cfg.Storage, log)
	if err != nil {
		zapLog.Fatal("object store init failed", zap.Error(err))
	}

	analyzer, err := ocr.NewTextractAnalyzer(ctx, cfg.OCR, cfg.Storage.Region, log)
	if err != nil {
		zapLog.Fatal("textract init failed", zap.Error(err))
	}

	sesClient, err := commonaws.NewSESClient(ctx, cfg.Notifications.AWSRegion)
	if err != nil {
		zapLog.Fatal("ses init failed", zap.Error(err))
	}
	snsClient, err := commonaws.NewSNSClient(ctx, cfg.Notifications.AWSRegion)
	if err != nil {
		zapLog.Fatal("sns init failed", zap.Error(err))
	}
	zapLog.Info("AWS clients initialized")

	// --- Queue producer ---
	queueClient := queue.NewClient(cfg.Database.Redis, cfg.Queue, log)
	defer queueClient.Close()

	// --- Repositories & services ---
	submissions := repository.NewSubmissionRepository(pg.DB)
	applicants := repository.NewApplicantRepository(pg.DB)
	windows := repository.NewWindowRepository(pg.DB)

	windowService := lifecycle.NewWindowService(windows, windowCache, cfg.Window, log)
	notifier := lifecycle.NewAWSNotifier(sesClient, snsClient, cfg.Notifications, log)
	applicantService := lifecycle.NewApplicantService(applicants, notifier, log)
	reviewService := lifecycle.NewSubmissionReviewService(submissions, queueClient, log)
	submitter := pipeline.NewSubmitter(objectStore, submissions, windowService, queueClient, log)
	selector := ocr.NewStrategySelector(cfg.OCR)

	server := api.NewServer(api.Dependencies{
		Submitter:   submitter,
		Submissions: submissions,
		Reviews:     reviewService,
		Applicants:  applicantService,
		Window:      windowService,
		Signer:      objectStore,
		Analyzer:    analyzer,
		Selector:    selector,
		Logger:      log,
	})

	// --- Metrics Server ---
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Metrics server listening", zap.String("address", cfg.HTTP.MetricsAddr))
		if err := http.ListenAndServe(cfg.HTTP.MetricsAddr, mux); err != nil {
			zapLog.Error("Metrics server failed", zap.Error(err))
		}
	}()

	// --- HTTP Server ---
	httpServer := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}

	zapLog.Info("api-server stopped gracefully")
}
