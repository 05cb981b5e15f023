package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	appinventory "github.com/hospital/pharmacy/internal/application/inventory"
	apptrade "github.com/hospital/pharmacy/internal/application/trade"
	"github.com/hospital/pharmacy/internal/infrastructure/config"
	"github.com/hospital/pharmacy/internal/infrastructure/event"
	"github.com/hospital/pharmacy/internal/infrastructure/lock"
	"github.com/hospital/pharmacy/internal/infrastructure/logger"
	"github.com/hospital/pharmacy/internal/infrastructure/migration"
	"github.com/hospital/pharmacy/internal/infrastructure/persistence"
	"github.com/hospital/pharmacy/internal/infrastructure/telemetry"
	"github.com/hospital/pharmacy/internal/interfaces/http/handler"
	"github.com/hospital/pharmacy/internal/interfaces/http/middleware"
	"github.com/hospital/pharmacy/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting pharmacy service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	engineMetrics, err := telemetry.NewEngineMetrics(meterProvider.Meter(cfg.Telemetry.ServiceName), log)
	if err != nil {
		log.Fatal("Failed to register engine metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := migrateSchema(db, log); err != nil {
		log.Fatal("Failed to migrate schema", zap.Error(err))
	}
	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.DBTraceEnabled
	dbTracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	if db.Driver == persistence.DriverSQLite {
		dbTracing.DBSystem = "sqlite"
	}
	if err := telemetry.RegisterDBTracing(db.DB, dbTracing, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database ready")

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version).
		WithCheck("database", func(context.Context) error { return db.Ping() })

	// Keyed locks for commits and returns
	var locker apptrade.Locker
	if cfg.Redis.Enabled {
		client, err := lock.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer func() { _ = client.Close() }()
		locker = lock.NewRedisLocker(client, cfg.Lock, log)
		systemHandler.WithCheck("redis", redisCheck(client))
		log.Info("Using redis locks", zap.String("addr", cfg.Redis.Addr()))
	} else {
		locker = lock.NewLocalLocker(cfg.Lock)
		log.Info("Using in-process locks")
	}

	// Events
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewJournalHandler(log))
	bus.Subscribe(appinventory.NewStockBelowThresholdHandler(log).
		WithNotifier(appinventory.NewLoggingStockAlertNotifier(log)))

	// Services
	numbering, err := numberingFromConfig(cfg)
	if err != nil {
		log.Fatal("Invalid document numbering configuration", zap.Error(err))
	}
	scope := persistence.NewGormTransactionScope(db.DB)

	draftService := apptrade.NewDraftService(persistence.NewGormDraftRepository(db.DB), log)
	commitService := apptrade.NewCommitService(scope, numbering, log)
	dispenseService := apptrade.NewDispenseService(scope, persistence.NewGormDispenseRepository(db.DB), numbering, log)
	returnService := apptrade.NewReturnService(scope, persistence.NewGormReturnRepository(db.DB), numbering, log)
	inventoryService := appinventory.NewInventoryService(persistence.NewGormInventoryItemRepository(db.DB))

	commitService.SetLocker(locker)
	returnService.SetLocker(locker)
	commitService.SetEventPublisher(bus)
	dispenseService.SetEventPublisher(bus)
	returnService.SetEventPublisher(bus)
	commitService.SetEngineMetrics(engineMetrics)
	dispenseService.SetEngineMetrics(engineMetrics)
	returnService.SetEngineMetrics(engineMetrics)
	inventoryService.SetEngineMetrics(engineMetrics)

	var lowStock *appinventory.LowStockMonitor
	if cfg.Telemetry.Enabled {
		lowStock = appinventory.NewLowStockMonitor(inventoryService, cfg.Telemetry.MetricsInterval, log)
		lowStock.Start(ctx)
	}

	// HTTP
	middleware.SetupValidator()
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}
	engine.Use(
		logger.Recovery(log),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		logger.GinMiddleware(log),
		middleware.SpanErrorMarker(),
		middleware.Secure(),
		middleware.CORSWithConfig(middleware.DefaultCORSConfig()),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Timeout(cfg.HTTP.WriteTimeout),
	)

	engine.GET("/health", systemHandler.Health)
	engine.GET("/ping", systemHandler.Ping)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	handlers := handler.Handlers{
		Drafts:    handler.NewDraftHandler(draftService, commitService),
		Sales:     handler.NewSaleHandler(dispenseService),
		Returns:   handler.NewReturnHandler(returnService),
		Inventory: handler.NewInventoryHandler(inventoryService),
	}
	handlers.Register(r)
	r.Register(router.NewDomainGroup("system", "/system").
		GET("/info", systemHandler.GetSystemInfo).
		GET("/ping", systemHandler.Ping))
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
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if lowStock != nil {
		if err := lowStock.Stop(shutdownCtx); err != nil {
			log.Warn("Low stock monitor stop failed", zap.Error(err))
		}
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Meter provider shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Tracer provider shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// migrateSchema applies the SQL migrations on postgres. SQLite databases are
// development and test stores and use AutoMigrate.
func migrateSchema(db *persistence.Database, log *zap.Logger) error {
	if db.Driver == persistence.DriverSQLite {
		return db.AutoMigrate()
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, log)
	if err != nil {
		return err
	}
	// Closing the migrator would close the shared connection pool
	return m.Up()
}

func numberingFromConfig(cfg *config.Config) (apptrade.Numbering, error) {
	numbering := apptrade.DefaultNumbering()
	loc, err := cfg.App.Location()
	if err != nil {
		return numbering, err
	}
	numbering.Location = loc
	if cfg.Sequence.BillPrefix != "" {
		numbering.Bills.Prefix = cfg.Sequence.BillPrefix
	}
	if cfg.Sequence.ReturnPrefix != "" {
		numbering.Returns.Prefix = cfg.Sequence.ReturnPrefix
	}
	if cfg.Sequence.PurchasePrefix != "" {
		numbering.Purchases.Prefix = cfg.Sequence.PurchasePrefix
	}
	if cfg.Sequence.Padding > 0 {
		numbering.Padding = cfg.Sequence.Padding
	}
	return numbering, nil
}

func redisCheck(client *redis.Client) handler.HealthCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
