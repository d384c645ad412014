// Package main is the entry point for the ledgerbook API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	corenumerator "ledgerbook/internal/core/numerator"
	"ledgerbook/internal/domain/auth"
	"ledgerbook/internal/domain/catalogs/partner"
	"ledgerbook/internal/domain/catalogs/price"
	"ledgerbook/internal/domain/catalogs/product"
	"ledgerbook/internal/domain/invoice"
	"ledgerbook/internal/domain/ledger"
	"ledgerbook/internal/domain/reports"
	"ledgerbook/internal/domain/shipment"
	v1 "ledgerbook/internal/infrastructure/http/v1"
	"ledgerbook/internal/infrastructure/metrics"
	"ledgerbook/internal/infrastructure/numerator"
	"ledgerbook/internal/infrastructure/storage/postgres"
	"ledgerbook/internal/infrastructure/storage/postgres/catalog_repo"
	"ledgerbook/internal/infrastructure/storage/postgres/invoice_repo"
	"ledgerbook/internal/infrastructure/storage/postgres/ledger_repo"
	"ledgerbook/internal/infrastructure/storage/postgres/report_repo"
	"ledgerbook/internal/infrastructure/storage/postgres/shipment_repo"
	"ledgerbook/pkg/logger"
)

const version = "0.1.0"

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	appEnv := getEnv("APP_ENV", "development")
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: appEnv == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx := context.Background()
	log.Infow("starting ledgerbook server", "version", version, "env", appEnv)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	poolCfg.MaxConns = int32(getEnvInt("DB_MAX_CONNS", int(poolCfg.MaxConns)))
	poolCfg.MinConns = int32(getEnvInt("DB_MIN_CONNS", int(poolCfg.MinConns)))
	pool, err := postgres.NewPool(ctx, poolCfg, "ledgerbook-api")
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	postgres.LogPoolStats(ctx, pool)

	txm := postgres.NewTxManager(pool)

	// --- Infrastructure ---
	m := metrics.New(metrics.DefaultConfig("api"))
	outbox := postgres.NewOutboxPublisher(txm)
	auditRecorder, err := postgres.NewAuditRecorder(txm)
	if err != nil {
		log.Fatalw("failed to create audit recorder", "error", err)
	}

	numbers := numerator.New(func(ctx context.Context) numerator.Querier {
		return txm.GetQuerier(ctx)
	}, pool)
	shipmentNumbering := corenumerator.ShipmentConfig(corenumerator.ParseStrategy(getEnv("NUMERATOR_STRATEGY", "strict")))

	taxRate, err := decimal.NewFromString(getEnv("TAX_RATE", "0.10"))
	if err != nil {
		log.Fatalw("invalid TAX_RATE", "error", err)
	}

	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(mustEnv("JWT_SECRET")))

	// --- Repositories ---
	partnerRepo := catalog_repo.NewPartnerRepo(txm)
	productRepo := catalog_repo.NewProductRepo(txm)
	priceRepo := catalog_repo.NewPriceRepo(txm)
	ledgerRepo := ledger_repo.NewLedgerRepo(txm)

	// --- Domain services ---
	ledgerService := ledger.NewService(ledgerRepo, txm,
		ledger.WithEvents(outbox),
		ledger.WithAudit(auditRecorder),
		ledger.WithObserver(m),
	)
	partnerService := partner.NewService(partnerRepo, txm, numbers)
	productService := product.NewService(productRepo, txm, partnerRepo, ledgerRepo)
	priceService := price.NewService(priceRepo, productRepo)

	shipmentService := shipment.NewService(shipment.Deps{
		Repo:      shipment_repo.NewShipmentRepo(txm),
		Ledger:    ledgerService,
		Prices:    priceService,
		TxManager: txm,
		Numerator: numbers,
		Numbering: shipmentNumbering,
		Events:    outbox,
		Audit:     auditRecorder,
	})
	invoiceService := invoice.NewService(invoice.Deps{
		Repo:      invoice_repo.NewInvoiceRepo(txm),
		TxManager: txm,
		Numerator: numbers,
		TaxRate:   taxRate,
		Events:    outbox,
		Audit:     auditRecorder,
	})
	reportService := reports.NewService(report_repo.NewReportRepo(txm))

	// --- Router ---
	var idempotency *postgres.IdempotencyStore
	if getEnv("IDEMPOTENCY_ENABLED", "true") == "true" {
		idempotency = postgres.NewIdempotencyStore(txm, getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour))
	}

	mode := gin.DebugMode
	if appEnv == "production" {
		mode = gin.ReleaseMode
	}

	routerCfg := v1.RouterConfig{
		Pool:         pool,
		Logger:       log,
		Metrics:      m,
		JWTValidator: jwtService,
		Ledger:       ledgerService,
		Shipments:    shipmentService,
		Invoices:     invoiceService,
		Partners:     partnerService,
		Products:     productService,
		Prices:       priceService,
		Reports:      reportService,
		Audit:        auditRecorder,
		Version:      version,
		Mode:         mode,
	}
	// A nil *IdempotencyStore in the interface field would not compare nil.
	if idempotency != nil {
		routerCfg.Idempotency = idempotency
	}
	router := v1.NewRouter(routerCfg)

	// --- HTTP Server ---
	port := getEnv("SERVER_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
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
