// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"ledgerbook/internal/domain/catalogs/partner"
	"ledgerbook/internal/domain/catalogs/product"
	"ledgerbook/internal/infrastructure/http/v1/dto"
	"ledgerbook/internal/infrastructure/http/v1/handlers"
	"ledgerbook/internal/infrastructure/http/v1/middleware"
	"ledgerbook/internal/infrastructure/metrics"
	"ledgerbook/pkg/logger"
)

// RouterConfig carries every dependency of the HTTP layer. Services are built
// in cmd/server and passed in; the router constructs nothing itself.
type RouterConfig struct {
	// Pool is probed by the health endpoints
	Pool handlers.PoolProbe

	Logger  *logger.Logger
	Metrics *metrics.Metrics

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Idempotency is optional; nil disables X-Idempotency-Key handling
	Idempotency middleware.IdempotencyStore

	Ledger    handlers.LedgerService
	Shipments handlers.ShipmentService
	Invoices  handlers.InvoiceService
	Partners  *partner.Service
	Products  *product.Service
	Prices    handlers.PriceService
	Reports   handlers.ReportsService

	// Audit is optional
	Audit handlers.AuditHistory

	Version string

	// Mode is passed to gin.SetMode
	Mode string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	dto.RegisterValidators()

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	if cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Pool, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWTValidator))
	v1.Use(middleware.UserContext())
	if cfg.Idempotency != nil {
		v1.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()
	registerLedgerRoutes(v1, base, cfg)
	registerShipmentRoutes(v1, base, cfg)
	registerInvoiceRoutes(v1, base, cfg)
	registerCatalogRoutes(v1, base, cfg)
	registerReportRoutes(v1, base, cfg)

	return router
}

func registerLedgerRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewLedgerHandler(base, cfg.Ledger)

	l := rg.Group("/ledger")
	{
		l.GET("/movements", h.ListMovements)
		l.POST("/movements", h.Apply)
		l.DELETE("/movements/:id", h.Reverse)
		l.POST("/movements/bulk", h.BulkApply)
		l.POST("/movements/bulk-reverse", h.BulkReverse)
		l.POST("/adjustments", h.Adjust)
		l.GET("/counters/:productId", h.Counters)
	}
}

func registerShipmentRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewShipmentHandler(base, cfg.Shipments)

	s := rg.Group("/shipments")
	{
		s.GET("", h.List)
		s.POST("", h.Register)
		s.GET("/:id", h.Get)
		s.DELETE("/:id", h.Cancel)
	}
}

func registerInvoiceRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewInvoiceHandler(base, cfg.Invoices)

	i := rg.Group("/invoices")
	{
		i.GET("", h.List)
		i.GET("/unbilled", h.Unbilled)
		i.POST("", h.Confirm)
		i.GET("/:id", h.Get)
	}
}

func registerCatalogRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	catalogs := rg.Group("/catalogs")

	RegisterCatalogRoutes(catalogs.Group("/partners"), handlers.NewPartnerHandler(base, cfg.Partners))
	products := catalogs.Group("/products")
	RegisterCatalogRoutes(products, handlers.NewProductHandler(base, cfg.Products))

	prices := handlers.NewPriceHandler(base, cfg.Prices)
	products.GET("/:id/prices", prices.List)
	products.POST("/:id/prices", prices.Create)
	catalogs.DELETE("/prices/:id", prices.Deactivate)
}

func registerReportRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewReportsHandler(base, cfg.Reports, cfg.Audit)

	r := rg.Group("/reports")
	{
		r.GET("/stock-balances", h.StockBalances)
		r.GET("/movements", h.MovementHistory)
		r.GET("/shipments", h.ShipmentHistory)
		r.GET("/dashboard", h.Dashboard)
		r.GET("/reconciliation", h.Reconcile)
		r.GET("/audit/:entityType/:id", h.AuditTrail)
	}
}
