package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scanhub-api/internal/cache"
	"scanhub-api/internal/config"
	"scanhub-api/internal/handler"
	"scanhub-api/internal/middleware"
	"scanhub-api/internal/repository"
	"scanhub-api/internal/router"
	"scanhub-api/internal/scanner"
	"scanhub-api/internal/service"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting ScanHub API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize primary store based on config
	var store repository.Store
	var err error
	switch cfg.Store.Type {
	case "postgres", "postgresql":
		store, err = repository.NewPostgresStore(cfg.Store.PostgresDSN())
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL: %v", err)
		}
		log.Println("PostgreSQL store initialized")
	default: // sqlite
		store, err = repository.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		log.Println("SQLite store initialized")
	}
	defer store.Close()

	// Master product catalog (optional)
	var masterRepo repository.MasterProductRepository
	if cfg.MasterDB.Enabled {
		masterDB, err := repository.OpenMasterDB(cfg.MasterDB.DSN())
		if err != nil {
			log.Printf("Warning: master catalog unavailable, running degraded: %v", err)
		} else {
			defer masterDB.Close()
			masterRepo = repository.NewMySQLMasterCatalog(masterDB)
			log.Println("Master catalog repository initialized")
		}
	}

	// MongoDB telemetry sink (optional)
	var telemetry repository.ScanTelemetrySink
	if cfg.Mongo.URI != "" {
		sink, err := repository.NewMongoDBTelemetrySink(cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			log.Printf("Warning: telemetry sink unavailable: %v", err)
		} else {
			defer sink.Close()
			telemetry = sink
			log.Println("MongoDB telemetry sink initialized")
		}
	}

	// Redis scan-log buffer (optional)
	var redisBuffer *cache.RedisScanLogBuffer
	if cfg.Cache.BufferEnabled {
		bufferCfg := cache.RedisBufferConfig{
			Addr:          cfg.Cache.RedisAddress(),
			Password:      cfg.Cache.RedisPassword,
			DB:            cfg.Cache.RedisDB,
			FlushInterval: cfg.Cache.BufferFlushInterval,
		}
		redisBuffer, err = cache.NewRedisScanLogBuffer(bufferCfg, service.CreateFlushFunc(store))
		if err != nil {
			log.Printf("Warning: Redis buffer initialization failed, logging directly: %v", err)
			redisBuffer = nil
		} else {
			log.Println("Redis scan-log buffer initialized")
		}
	}

	// Initialize services
	lookupService := service.NewLookupService(store, masterRepo, store)
	if lookupService == nil {
		log.Fatal("Failed to initialize lookup service")
	}
	if redisBuffer != nil {
		lookupService.SetBuffer(redisBuffer)
	}
	if telemetry != nil {
		lookupService.SetTelemetry(telemetry)
	}
	lookupCache := cache.NewMemoryCache()
	defer lookupCache.Close()
	lookupService.SetCache(lookupCache, cfg.Cache.LookupTTL)

	stockTakingService := service.NewStockTakingService(store, store, store)
	if stockTakingService == nil {
		log.Fatal("Failed to initialize stock-taking service")
	}
	stockTakingService.SetLookupService(lookupService)

	retention := service.NewRetentionScheduler(store, service.RetentionConfig{
		MaxAge:   cfg.Retention.MaxAge,
		Interval: cfg.Retention.Interval,
	})
	retention.Start()
	defer retention.Stop()

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Version, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, err := store.Stats(ctx)
		return err
	})
	lookupHandler := handler.NewLookupHandler(lookupService)
	scanHandler := handler.NewScanHandler(scanner.NewDecoder())
	stockTakingHandler := handler.NewStockTakingHandler(stockTakingService)
	adminHandler := handler.NewAdminHandler(store, redisBuffer, cfg.Store.Type, cfg.App.LoginKey)

	// Create auth middleware with injected dependencies (NO GLOBALS!)
	var apiKeys []string
	if cfg.App.APIKey != "" {
		apiKeys = []string{cfg.App.APIKey}
	}
	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthConfig{
		APIKeys: apiKeys,
	})

	// Create router
	r := router.New(router.Config{
		Handler:            healthHandler,
		LookupHandler:      lookupHandler,
		ScanHandler:        scanHandler,
		StockTakingHandler: stockTakingHandler,
		AdminHandler:       adminHandler,
		AuthMiddleware:     authMiddleware,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Close the buffer first: it drains pending scan logs to the store.
	if redisBuffer != nil {
		log.Println("Closing Redis buffer...")
		redisBuffer.Close()
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}
