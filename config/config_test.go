package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, -1.5, cfg.AnalyzerConfig.DealThresholdZ)
	assert.Equal(t, 10, cfg.AnalyzerConfig.MinHistoryForAnalysis)
	assert.Equal(t, 300.0, cfg.AnalyzerConfig.AnomalyThresholdPct)
	assert.Equal(t, 6, cfg.TripConfig.MaxSearchesPerPlan)
	assert.Equal(t, 7, cfg.BackupConfig.MaxKeep)
	assert.Equal(t, "none", cfg.NotifyConfig.Provider)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ANALYZER_DEAL_THRESHOLD_Z", "-2.0")
	t.Setenv("SERPAPI_KEY", "test-key")
	t.Setenv("TZ", "Pacific/Auckland")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, -2.0, cfg.AnalyzerConfig.DealThresholdZ)
	assert.Equal(t, "test-key", cfg.SourcesConfig.SerpAPIKey)
	assert.Equal(t, "Pacific/Auckland", cfg.SchedulerTZ)
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()
	assert.Equal(t, "test", cfg.Environment)
	assert.False(t, cfg.WorkerEnabled)
	assert.Equal(t, ":memory:", cfg.DatabaseConfig.URL)
}
