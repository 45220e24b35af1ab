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

	appsync "github.com/ElGueydelCalzado/backend-app-sub002/internal/application/syncengine"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/shared"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/syncengine"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/infrastructure/cache"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/infrastructure/config"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/infrastructure/event"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/infrastructure/logger"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/infrastructure/marketplace"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/infrastructure/persistence"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/infrastructure/scheduler"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/interfaces/http/handler"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/interfaces/http/middleware"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/interfaces/http/router"
)

const appVersion = "1.0.0"

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

	log.Info("Starting sync engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with zap-backed GORM logger
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
	log.Info("Database connected successfully")

	// Repositories
	changeLogRepo := persistence.NewGormChangeLogRepository(db.DB)
	conflictRepo := persistence.NewGormConflictRepository(db.DB)
	entityStateRepo := persistence.NewGormEntityStateRepository(db.DB)

	// Idempotency store guards against duplicate marketplace propagation.
	// Redis is preferred; a single instance falls back to in-process state.
	idempotency := newIdempotencyStore(cfg, log)
	defer func() {
		if err := idempotency.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Target adapters. The local adapter is always present: it owns the
	// store of record and serves as the authoritative state lookup.
	localAdapter := marketplace.NewLocalAdapter(entityStateRepo)
	adapters := []syncengine.TargetAdapter{localAdapter}
	lookups := []syncengine.StateLookup{localAdapter}

	if cfg.Marketplace.Shopify.Enabled() {
		shopifyConfig := marketplace.NewShopifyConfig(cfg.Marketplace.Shopify.ShopDomain, cfg.Marketplace.Shopify.AccessToken)
		if cfg.Marketplace.Shopify.APIVersion != "" {
			shopifyConfig.APIVersion = cfg.Marketplace.Shopify.APIVersion
		}
		shopifyAdapter, err := marketplace.NewShopifyAdapter(shopifyConfig, idempotency)
		if err != nil {
			log.Fatal("Failed to configure Shopify adapter", zap.Error(err))
		}
		adapters = append(adapters, shopifyAdapter)
		lookups = append(lookups, shopifyAdapter)
		log.Info("Shopify adapter configured", zap.String("shop_domain", cfg.Marketplace.Shopify.ShopDomain))
	} else {
		log.Warn("Shopify credentials missing, adapter disabled")
	}

	if cfg.Marketplace.MercadoLibre.Enabled() {
		meliAdapter, err := marketplace.NewMercadoLibreAdapter(
			marketplace.NewMercadoLibreConfig(cfg.Marketplace.MercadoLibre.AccessToken, cfg.Marketplace.MercadoLibre.SiteID),
			idempotency,
		)
		if err != nil {
			log.Fatal("Failed to configure MercadoLibre adapter", zap.Error(err))
		}
		adapters = append(adapters, meliAdapter)
		lookups = append(lookups, meliAdapter)
		log.Info("MercadoLibre adapter configured", zap.String("site_id", cfg.Marketplace.MercadoLibre.SiteID))
	} else {
		log.Warn("MercadoLibre credentials missing, adapter disabled")
	}

	// Event bus with the audit handler subscribed to sync lifecycle events
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewAuditLogHandler(log))
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Sync engine
	engine, err := appsync.NewEngine(
		cfg.EngineConfig(),
		adapters,
		lookups,
		changeLogRepo,
		conflictRepo,
		eventBus,
		log,
	)
	if err != nil {
		log.Fatal("Failed to create sync engine", zap.Error(err))
	}
	defer engine.Close()

	// Scheduler drives the engine's batch drains
	syncScheduler, err := scheduler.NewSyncScheduler(engine, cfg.Sync.SyncInterval, log)
	if err != nil {
		log.Fatal("Failed to create sync scheduler", zap.Error(err))
	}
	if err := syncScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start sync scheduler", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := syncScheduler.Stop(stopCtx); err != nil {
			log.Error("Error stopping sync scheduler", zap.Error(err))
		}
	}()
	log.Info("Sync scheduler started",
		zap.Duration("interval", cfg.Sync.SyncInterval),
		zap.Int("batch_size", cfg.Sync.BatchSize),
		zap.Strings("enabled_targets", cfg.Sync.EnabledTargets),
	)

	// HTTP surface
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	ginEngine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := ginEngine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	ginEngine.Use(middleware.RequestID())
	ginEngine.Use(logger.Recovery(log))
	ginEngine.Use(logger.GinMiddleware(log))
	ginEngine.Use(middleware.CORS())
	ginEngine.Use(middleware.BodyLimit(1 << 20))

	r := router.NewRouter(ginEngine, router.WithAPIVersion("v1"))
	r.Register(handler.NewSyncHandler(engine, log))
	r.Register(handler.NewSystemHandler(cfg.App.Name, appVersion))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        ginEngine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown: stop accepting requests, then let the deferred
	// scheduler stop flush the in-flight batch.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newIdempotencyStore connects to Redis, falling back to the in-memory store
// when Redis is unreachable
func newIdempotencyStore(cfg *config.Config, log *zap.Logger) shared.IdempotencyStore {
	store, err := cache.NewRedisIdempotencyStore(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, using in-memory idempotency store", zap.Error(err))
		return cache.NewInMemoryIdempotencyStore()
	}
	log.Info("Redis idempotency store connected",
		zap.String("host", cfg.Redis.Host),
		zap.Int("port", cfg.Redis.Port),
	)
	return store
}
