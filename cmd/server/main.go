package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	billingapp "github.com/propfolio/backend/internal/application/billing"
	"github.com/propfolio/backend/internal/application/leasing"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/propfolio/backend/internal/infrastructure/cache"
	"github.com/propfolio/backend/internal/infrastructure/config"
	"github.com/propfolio/backend/internal/infrastructure/logger"
	"github.com/propfolio/backend/internal/infrastructure/persistence"
	"github.com/propfolio/backend/internal/infrastructure/scheduler"
	"github.com/propfolio/backend/internal/interfaces/http/handler"
	"github.com/propfolio/backend/internal/interfaces/http/middleware"
	"github.com/propfolio/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Propfolio Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	propertyRepo := persistence.NewGormPropertyRepository(db.DB)
	leaseRepo := persistence.NewGormLeaseRepository(db.DB)
	auditRecorder := persistence.NewGormAuditRecorder(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Idempotency store for external payment events: Redis when enabled,
	// in-memory otherwise
	idemStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Application services
	invoiceService := billingapp.NewInvoiceService(invoiceRepo, propertyRepo, auditRecorder, log)
	reconciliationService := billingapp.NewReconciliationService(billingapp.ReconciliationServiceConfig{
		Scope:       txScope,
		InvoiceRepo: invoiceRepo,
		PaymentRepo: paymentRepo,
		Idempotency: idemStore,
		IdemConfig: &shared.IdempotencyConfig{
			TTL:     cfg.Reconciliation.IdempotencyTTL,
			Enabled: true,
		},
		Workers: cfg.Reconciliation.Workers,
		Logger:  log,
	})
	propertyService := leasing.NewPropertyService(propertyRepo, log)
	leaseService := leasing.NewLeaseService(leaseRepo, propertyRepo, log)

	// Background sweeps: overdue invoices and lease expiry
	var sweeper *scheduler.SweepScheduler
	if cfg.Scheduler.Enabled {
		sweeper = scheduler.NewSweepScheduler(
			scheduler.SweepConfig{Interval: cfg.Scheduler.SweepInterval},
			persistence.NewGormCompanyProvider(db.DB),
			invoiceService,
			leaseService,
			log,
		)
		if err := sweeper.Start(context.Background()); err != nil {
			log.Fatal("Failed to start sweep scheduler", zap.Error(err))
		}
		log.Info("Sweep scheduler started", zap.Duration("interval", cfg.Scheduler.SweepInterval))
	}

	// Set gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSOrigins

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.Secure(),
		middleware.CORSWithConfig(corsCfg),
		middleware.BodyLimit(cfg.HTTP.MaxBodyBytes),
		middleware.CompanyMiddlewareWithConfig(middleware.CompanyMiddlewareConfig{
			SkipPaths: []string{"/health", "/api/v1/system"},
			Required:  true,
			Logger:    log,
		}),
	)

	if cfg.HTTP.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(limiter))
	}

	// Handlers
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	paymentHandler := handler.NewPaymentHandler(reconciliationService)
	propertyHandler := handler.NewPropertyHandler(propertyService)
	leaseHandler := handler.NewLeaseHandler(leaseService)
	systemHandler := handler.NewSystemHandler(db.DB)

	engine.GET("/health", systemHandler.Health)

	billingGroup := router.NewDomainGroup("billing", "")
	billingGroup.POST("/invoices", invoiceHandler.CreateInvoice).
		GET("/invoices", invoiceHandler.ListInvoices).
		GET("/invoices/:id", invoiceHandler.GetInvoice).
		POST("/invoices/:id/send", invoiceHandler.SendInvoice).
		POST("/invoices/:id/cancel", invoiceHandler.CancelInvoice)

	reconciliationGroup := router.NewDomainGroup("reconciliation", "/reconciliation")
	reconciliationGroup.POST("/run", paymentHandler.Reconcile).
		POST("/sync-references", paymentHandler.SyncReferences)

	webhookGroup := router.NewDomainGroup("webhooks", "/webhooks")
	webhookGroup.POST("/payments", paymentHandler.IngestPayment)

	rentalsGroup := router.NewDomainGroup("rentals", "")
	rentalsGroup.POST("/properties", propertyHandler.CreateProperty).
		GET("/properties", propertyHandler.ListProperties).
		GET("/properties/:id", propertyHandler.GetProperty).
		POST("/properties/:id/archive", propertyHandler.ArchiveProperty).
		POST("/leases", leaseHandler.CreateLease).
		GET("/leases", leaseHandler.ListLeases).
		GET("/leases/:id", leaseHandler.GetLease).
		POST("/leases/:id/terminate", leaseHandler.TerminateLease)

	systemGroup := router.NewDomainGroup("system", "/system")
	systemGroup.GET("/info", systemHandler.GetSystemInfo).
		GET("/ping", systemHandler.Ping)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(billingGroup).
		Register(reconciliationGroup).
		Register(webhookGroup).
		Register(rentalsGroup).
		Register(systemGroup)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sweeper != nil {
		if err := sweeper.Stop(ctx); err != nil {
			log.Error("Failed to stop sweep scheduler", zap.Error(err))
		}
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
