package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Port           string
	HTTPBindAddr   string
	APIEnabled     bool
	Environment    string
	SchedulerTZ    string
	WorkerEnabled  bool
	InitSchema     bool
	DataDir        string
	LoggingConfig  LoggingConfig
	DatabaseConfig DatabaseConfig
	RedisConfig    RedisConfig
	SourcesConfig  SourcesConfig
	ScraperConfig  ScraperConfig
	AnalyzerConfig AnalyzerConfig
	TripConfig     TripConfig
	NotifyConfig   NotifyConfig
	AIConfig       AIConfig
	BackupConfig   BackupConfig
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// DatabaseConfig holds relational store configuration. The driver is derived
// from the URL scheme: postgres://... uses pgx, anything else is treated as
// a SQLite file path.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	TimescaleEnable bool
}

// RedisConfig holds the optional Redis cache configuration.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// SourcesConfig holds per-adapter credentials and endpoints. An empty
// credential simply marks the adapter unavailable.
type SourcesConfig struct {
	SerpAPIKey          string
	SkyscannerAPIKey    string
	SkyscannerAPIHost   string
	AmadeusClientID     string
	AmadeusClientSecret string
	AmadeusBaseURL      string
	SeatsAeroAPIKey     string
	MaxRetries          int
	RetryBaseDelay      time.Duration
}

// ScraperConfig holds headless-browser scraper configuration.
type ScraperConfig struct {
	ScreenshotsDir   string
	HTMLSnapshotsDir string
	NavigateTimeout  time.Duration
	Headless         bool
}

// AnalyzerConfig holds deal-detection thresholds.
type AnalyzerConfig struct {
	HistoryDays             int
	MinHistoryForAnalysis   int
	DealThresholdZ          float64
	NewLowMarginPct         float64
	AnomalyThresholdPct     float64
	InsightsPromotionSavPct float64
}

// TripConfig holds trip-plan search configuration.
type TripConfig struct {
	MaxSearchesPerPlan int
	SearchDelay        time.Duration
	MaxMatchesPerPlan  int
	TopPerDestination  int
	LockTimeout        time.Duration
}

// NotifyConfig holds notifier configuration.
type NotifyConfig struct {
	Provider          string // ntfy, ntfy_sh, discord, none
	NtfyServerURL     string
	NtfyTopic         string
	NtfyUsername      string
	NtfyPassword      string
	DiscordWebhookURL string
	BaseURL           string
}

// AIConfig holds optional AI enrichment configuration.
type AIConfig struct {
	APIKey   string
	Model    string
	CacheTTL time.Duration
}

// BackupConfig holds SQLite backup rotation settings.
type BackupConfig struct {
	Enabled  bool
	MaxKeep  int
	Interval time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	dataDir := getEnv("DATA_DIR", "./data")

	loggingConfig := LoggingConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "json"),
	}

	maxOpenConns, _ := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "10"))
	databaseConfig := DatabaseConfig{
		URL:             getEnv("DATABASE_URL", dataDir+"/walkabout.db"),
		MaxOpenConns:    maxOpenConns,
		TimescaleEnable: getEnv("DB_TIMESCALE", "false") == "true",
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisConfig := RedisConfig{
		Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	maxRetries, _ := strconv.Atoi(getEnv("SOURCE_MAX_RETRIES", "2"))
	retryBase, _ := time.ParseDuration(getEnv("SOURCE_RETRY_BASE_DELAY", "1s"))
	sourcesConfig := SourcesConfig{
		SerpAPIKey:          getEnv("SERPAPI_KEY", ""),
		SkyscannerAPIKey:    getEnv("SKYSCANNER_API_KEY", ""),
		SkyscannerAPIHost:   getEnv("SKYSCANNER_API_HOST", "skyscanner44.p.rapidapi.com"),
		AmadeusClientID:     getEnv("AMADEUS_CLIENT_ID", ""),
		AmadeusClientSecret: getEnv("AMADEUS_CLIENT_SECRET", ""),
		AmadeusBaseURL:      getEnv("AMADEUS_BASE_URL", "https://api.amadeus.com"),
		SeatsAeroAPIKey:     getEnv("SEATS_AERO_API_KEY", ""),
		MaxRetries:          maxRetries,
		RetryBaseDelay:      retryBase,
	}

	navTimeout, _ := time.ParseDuration(getEnv("SCRAPER_NAVIGATE_TIMEOUT", "30s"))
	scraperConfig := ScraperConfig{
		ScreenshotsDir:   getEnv("SCREENSHOTS_DIR", dataDir+"/screenshots"),
		HTMLSnapshotsDir: getEnv("HTML_SNAPSHOTS_DIR", dataDir+"/html_snapshots"),
		NavigateTimeout:  navTimeout,
		Headless:         getEnv("SCRAPER_HEADLESS", "true") == "true",
	}

	historyDays, _ := strconv.Atoi(getEnv("ANALYZER_HISTORY_DAYS", "90"))
	minHistory, _ := strconv.Atoi(getEnv("ANALYZER_MIN_HISTORY", "10"))
	dealZ, _ := strconv.ParseFloat(getEnv("ANALYZER_DEAL_THRESHOLD_Z", "-1.5"), 64)
	newLowMargin, _ := strconv.ParseFloat(getEnv("ANALYZER_NEW_LOW_MARGIN_PCT", "2"), 64)
	anomalyPct, _ := strconv.ParseFloat(getEnv("ANALYZER_ANOMALY_THRESHOLD_PCT", "300"), 64)
	insightsSav, _ := strconv.ParseFloat(getEnv("ANALYZER_INSIGHTS_PROMOTION_SAVINGS_PCT", "5"), 64)
	analyzerConfig := AnalyzerConfig{
		HistoryDays:             historyDays,
		MinHistoryForAnalysis:   minHistory,
		DealThresholdZ:          dealZ,
		NewLowMarginPct:         newLowMargin,
		AnomalyThresholdPct:     anomalyPct,
		InsightsPromotionSavPct: insightsSav,
	}

	maxSearches, _ := strconv.Atoi(getEnv("TRIP_MAX_SEARCHES_PER_PLAN", "6"))
	searchDelay, _ := time.ParseDuration(getEnv("TRIP_SEARCH_DELAY", "3s"))
	maxMatches, _ := strconv.Atoi(getEnv("TRIP_MAX_MATCHES_PER_PLAN", "10"))
	topPerDest, _ := strconv.Atoi(getEnv("TRIP_TOP_PER_DESTINATION", "3"))
	lockTimeout, _ := time.ParseDuration(getEnv("TRIP_LOCK_TIMEOUT", "10m"))
	tripConfig := TripConfig{
		MaxSearchesPerPlan: maxSearches,
		SearchDelay:        searchDelay,
		MaxMatchesPerPlan:  maxMatches,
		TopPerDestination:  topPerDest,
		LockTimeout:        lockTimeout,
	}

	notifyConfig := NotifyConfig{
		Provider:          getEnv("NOTIFY_PROVIDER", "none"),
		NtfyServerURL:     getEnv("NTFY_SERVER_URL", "https://ntfy.sh"),
		NtfyTopic:         getEnv("NTFY_TOPIC", ""),
		NtfyUsername:      getEnv("NTFY_USERNAME", ""),
		NtfyPassword:      getEnv("NTFY_PASSWORD", ""),
		DiscordWebhookURL: getEnv("DISCORD_WEBHOOK_URL", ""),
		BaseURL:           getEnv("BASE_URL", "http://localhost:8080"),
	}

	aiCacheTTL, _ := time.ParseDuration(getEnv("AI_CACHE_TTL", "24h"))
	aiConfig := AIConfig{
		APIKey:   getEnv("OPENAI_API_KEY", ""),
		Model:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		CacheTTL: aiCacheTTL,
	}

	backupKeep, _ := strconv.Atoi(getEnv("BACKUP_MAX_KEEP", "7"))
	backupInterval, _ := time.ParseDuration(getEnv("BACKUP_INTERVAL", "24h"))
	backupConfig := BackupConfig{
		Enabled:  getEnv("BACKUP_ENABLED", "true") == "true",
		MaxKeep:  backupKeep,
		Interval: backupInterval,
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		HTTPBindAddr:   getEnv("HTTP_BIND_ADDR", ""),
		APIEnabled:     getEnv("API_ENABLED", "true") == "true",
		Environment:    getEnv("ENVIRONMENT", "development"),
		SchedulerTZ:    getEnv("TZ", "UTC"),
		WorkerEnabled:  getEnv("WORKER_ENABLED", "true") == "true",
		InitSchema:     getEnv("INIT_SCHEMA", "true") == "true",
		DataDir:        dataDir,
		LoggingConfig:  loggingConfig,
		DatabaseConfig: databaseConfig,
		RedisConfig:    redisConfig,
		SourcesConfig:  sourcesConfig,
		ScraperConfig:  scraperConfig,
		AnalyzerConfig: analyzerConfig,
		TripConfig:     tripConfig,
		NotifyConfig:   notifyConfig,
		AIConfig:       aiConfig,
		BackupConfig:   backupConfig,
	}, nil
}

// TestConfig returns a default configuration for tests.
func TestConfig() *Config {
	cfg, _ := Load()
	cfg.Environment = "test"
	cfg.WorkerEnabled = false
	cfg.APIEnabled = false
	cfg.DatabaseConfig.URL = ":memory:"
	cfg.NotifyConfig.Provider = "none"
	return cfg
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}
