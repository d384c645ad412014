// Package main is the entry point for the ledgerbook background worker.
// It relays the outbox to Kafka, expires idempotency keys and reconciles
// counters against the ledger.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ledgerbook/internal/domain/reports"
	"ledgerbook/internal/infrastructure/messaging/kafka"
	"ledgerbook/internal/infrastructure/metrics"
	"ledgerbook/internal/infrastructure/storage/postgres"
	"ledgerbook/internal/infrastructure/storage/postgres/report_repo"
	"ledgerbook/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting ledgerbook worker")

	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	poolCfg.MaxConns = int32(getEnvInt("DB_MAX_CONNS", 5))
	pool, err := postgres.NewPool(ctx, poolCfg, "ledgerbook-worker")
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)
	m := metrics.New(metrics.DefaultConfig("worker"))

	kafkaCfg := kafka.DefaultConfig()
	kafkaCfg.Brokers = strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	kafkaCfg.TopicPrefix = getEnv("KAFKA_TOPIC_PREFIX", kafkaCfg.TopicPrefix)
	producer := kafka.NewProducer(kafkaCfg, m)
	defer producer.Close()

	w := &Worker{
		relay:       postgres.NewOutboxRelay(txm, getEnvInt("OUTBOX_BATCH_SIZE", 100), producer),
		idempotency: postgres.NewIdempotencyStore(txm, 24*time.Hour),
		reports:     reports.NewService(report_repo.NewReportRepo(txm)),
		metrics:     m,
		log:         log.WithComponent("worker"),

		pollInterval:      getEnvDuration("OUTBOX_POLL_INTERVAL", 500*time.Millisecond),
		cleanupInterval:   getEnvDuration("CLEANUP_INTERVAL", time.Hour),
		reconcileInterval: getEnvDuration("RECONCILE_INTERVAL", 15*time.Minute),
		publishedTTL:      getEnvDuration("OUTBOX_RETENTION", 7*24*time.Hour),
	}

	metricsServer := &http.Server{
		Addr:              ":" + getEnv("METRICS_PORT", "9091"),
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("metrics server failed", "error", err)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()
	wg.Wait()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = metricsServer.Shutdown(shutdownCtx)

	log.Info("worker stopped")
}

// Worker runs the periodic background jobs.
type Worker struct {
	relay       *postgres.OutboxRelay
	idempotency *postgres.IdempotencyStore
	reports     *reports.Service
	metrics     *metrics.Metrics
	log         *logger.Logger

	pollInterval      time.Duration
	cleanupInterval   time.Duration
	reconcileInterval time.Duration
	publishedTTL      time.Duration
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	poll := time.NewTicker(w.pollInterval)
	defer poll.Stop()

	cleanup := time.NewTicker(w.cleanupInterval)
	defer cleanup.Stop()

	reconcile := time.NewTicker(w.reconcileInterval)
	defer reconcile.Stop()

	w.reconcile(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			w.processOutbox(ctx)
		case <-cleanup.C:
			w.cleanup(ctx)
		case <-reconcile.C:
			w.reconcile(ctx)
		}
	}
}

// processOutbox drains the outbox while full batches keep coming.
func (w *Worker) processOutbox(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := w.relay.ProcessBatch(ctx)
		if err != nil {
			w.log.Errorw("outbox batch failed", "error", err)
			return
		}
		if n == 0 {
			return
		}
		w.log.Debugw("processed outbox batch", "count", n)
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	if moved, err := w.relay.MoveToDLQ(ctx); err != nil {
		w.log.Errorw("move to dlq failed", "error", err)
	} else if moved > 0 {
		w.metrics.OutboxDeadLettered.Add(float64(moved))
		w.log.Warnw("outbox messages dead-lettered", "count", moved)
	}

	if purged, err := w.relay.PurgePublished(ctx, w.publishedTTL); err != nil {
		w.log.Errorw("purge published outbox failed", "error", err)
	} else if purged > 0 {
		w.log.Infow("purged published outbox messages", "count", purged)
	}

	if expired, err := w.idempotency.CleanupExpired(ctx); err != nil {
		w.log.Errorw("idempotency cleanup failed", "error", err)
	} else if expired > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", expired)
	}
}

func (w *Worker) reconcile(ctx context.Context) {
	report, err := w.reports.Reconcile(ctx)
	if err != nil {
		w.log.Errorw("reconciliation failed", "error", err)
		return
	}

	w.metrics.CounterDivergences.Set(float64(len(report.Divergences)))
	for _, d := range report.Divergences {
		w.log.Warnw("counter diverges from ledger",
			"product_id", d.ProductID,
			"product", d.ProductName,
			"counter", d.Counter,
			"stored", d.Stored,
			"ledger_sum", d.LedgerSum,
		)
	}
	w.log.Infow("reconciliation finished",
		"products", report.CheckedProducts,
		"divergences", len(report.Divergences),
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
