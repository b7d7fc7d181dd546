package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/jesposito/walkabout/ai"
	"github.com/jesposito/walkabout/airports"
	"github.com/jesposito/walkabout/api"
	"github.com/jesposito/walkabout/awards"
	"github.com/jesposito/walkabout/backup"
	"github.com/jesposito/walkabout/config"
	"github.com/jesposito/walkabout/db"
	"github.com/jesposito/walkabout/deals"
	"github.com/jesposito/walkabout/notify"
	"github.com/jesposito/walkabout/pkg/cache"
	"github.com/jesposito/walkabout/pkg/logger"
	"github.com/jesposito/walkabout/scrape"
	"github.com/jesposito/walkabout/sources"
	"github.com/jesposito/walkabout/trips"
	"github.com/jesposito/walkabout/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err) // Can't use logger yet
	}

	logger.Init(logger.Config{
		Level:  cfg.LoggingConfig.Level,
		Format: cfg.LoggingConfig.Format,
	})

	logger.Info("Starting Walkabout",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"api_enabled", cfg.APIEnabled,
		"worker_enabled", cfg.WorkerEnabled,
		"tz", cfg.SchedulerTZ)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatal(err, "Could not create data directory", "dir", cfg.DataDir)
	}

	// Connect to the store with retries; container deployments often race
	// the database coming up.
	var database *db.DB
	maxRetries := 10
	for i := 0; i < maxRetries; i++ {
		database, err = db.Open(cfg.DatabaseConfig)
		if err == nil {
			break
		}
		logger.Warn("Database connection failed, retrying...", "error", err, "attempt", i+1)
		if i == maxRetries-1 {
			logger.Fatal(err, "All database connection attempts failed")
		}
		time.Sleep(5 * time.Second)
	}
	defer database.Close()

	if cfg.InitSchema {
		logger.Info("Running schema migrations")
		if err := database.Migrate(context.Background(), cfg.DatabaseConfig.TimescaleEnable); err != nil {
			logger.Fatal(err, "Schema migration failed")
		}
	}

	store := db.NewStore(database)

	catalog := airports.Load(filepath.Join(cfg.DataDir, "airports.csv"))

	// Shared cache: Redis when configured, in-process otherwise.
	var cacheBackend cache.Cache
	if cfg.RedisConfig.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Host + ":" + cfg.RedisConfig.Port,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		cacheBackend = cache.NewRedisCache(redisClient, "walkabout")
		logger.Info("Using Redis cache", "host", cfg.RedisConfig.Host)
	} else {
		cacheBackend = cache.NewMemoryCache()
	}
	cacheManager := cache.NewManager(cacheBackend)

	aiService := ai.NewService(cfg.AIConfig, cacheManager)

	adapters := []sources.Source{
		sources.NewSerpAPISource(cfg.SourcesConfig.SerpAPIKey),
		sources.NewSkyscannerSource(cfg.SourcesConfig.SkyscannerAPIKey, cfg.SourcesConfig.SkyscannerAPIHost),
		sources.NewAmadeusSource(cfg.SourcesConfig.AmadeusClientID, cfg.SourcesConfig.AmadeusClientSecret, cfg.SourcesConfig.AmadeusBaseURL),
		sources.NewBrowserSource(cfg.ScraperConfig),
	}
	fetcher := sources.NewFetcher(adapters, cfg.SourcesConfig.MaxRetries, cfg.SourcesConfig.RetryBaseDelay, aiService)
	logger.Info("Price sources configured", "available", fetcher.AvailableSources())

	notifier := notify.New(cfg.NotifyConfig)
	analyzer := deals.NewAnalyzer(store, cfg.AnalyzerConfig)
	scrapeService := scrape.NewService(store, fetcher, analyzer, notifier, cfg.AnalyzerConfig)
	tripSearch := trips.NewSearchService(store, fetcher, catalog, cfg.TripConfig)
	awardPoller := awards.NewPoller(store, awards.NewHTTPClient(cfg.SourcesConfig.SeatsAeroAPIKey), notifier)
	dealRater := worker.NewDealRater(store, fetcher, cfg.AnalyzerConfig)

	var backupService *backup.Service
	if cfg.BackupConfig.Enabled && !strings.HasPrefix(cfg.DatabaseConfig.URL, "postgres") {
		backupService = backup.NewService(cfg.DatabaseConfig.URL, cfg.DataDir, cfg.BackupConfig)
	}

	scheduler := worker.NewScheduler(cfg.SchedulerTZ, store, scrapeService, tripSearch, awardPoller, dealRater, backupService)
	if cfg.WorkerEnabled {
		if err := scheduler.Start(); err != nil {
			logger.Fatal(err, "Could not start scheduler")
		}
		defer scheduler.Stop()
	} else {
		logger.Info("Scheduler disabled")
	}

	notifier.SendStartup(context.Background())

	var srv *http.Server
	if cfg.APIEnabled {
		if cfg.Environment == "production" {
			gin.SetMode(gin.ReleaseMode)
		}
		router := gin.New()
		router.Use(gin.Recovery())
		api.RegisterRoutes(router, store, catalog, fetcher, notifier)

		addr := cfg.HTTPBindAddr + ":" + cfg.Port
		srv = &http.Server{Addr: addr, Handler: router}

		go func() {
			logger.Info("HTTP server starting", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal(err, "HTTP server failed")
			}
		}()
	} else {
		logger.Info("API server disabled")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown signal received, stopping...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error(err, "HTTP server forced shutdown")
		}
	}

	logger.Info("Walkabout exited cleanly")
}
