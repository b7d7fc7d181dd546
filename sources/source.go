// Package sources contains the four interchangeable price adapters (three
// HTTP APIs plus a headless-browser scraper), the shared retry wrapper, and
// the cascading Fetcher that orchestrates them.
package sources

import (
	"context"
	"math/rand"
	"time"

	"github.com/jesposito/walkabout/flights"
	"github.com/jesposito/walkabout/pkg/logger"
)

// Adapter names, in default cascade order.
const (
	SourceSerpAPI    = "serpapi"
	SourceSkyscanner = "skyscanner"
	SourceAmadeus    = "amadeus"
	SourceBrowser    = "browser"
)

// Price is one normalized fare from any adapter.
type Price struct {
	Amount          float64
	Currency        string
	Airline         string
	Stops           int
	DurationMinutes int
	BookingURL      string
	Source          string

	// Extraction metadata. API adapters report full confidence; the browser
	// adapter carries the extractor's scores through.
	Confidence       float64
	ExtractionMethod string
	LayoverAirports  []string
	RawData          string
}

// PriceInsights is vendor-supplied context about a route's price level,
// surfaced for the deal-rating promotion rule.
type PriceInsights struct {
	LowestPrice       float64
	PriceLevel        string // low, typical, high
	TypicalPriceLow   float64
	TypicalPriceHigh  float64
	PriceHistoryDays  int
}

// FetchResult is the outcome of one adapter call (or the whole cascade).
type FetchResult struct {
	Success      bool
	Prices       []Price
	Source       string
	Err          string
	FallbackUsed bool
	Attempts     int
	Insights     *PriceInsights

	// Failure classification for health tracking, set by every adapter;
	// the artifact paths are populated only by the browser adapter.
	FailureReason  string
	ScreenshotPath string
	HTMLPath       string

	// Optional AI enrichment attached by the Fetcher.
	Recommendation string
}

// errNotConfigured marks a permanent per-adapter condition that retrying
// cannot fix.
const errNotConfigured = "not configured"

// Source is the adapter interface. artifactKey names failure artifacts on
// disk; only the browser adapter uses it.
type Source interface {
	Name() string
	IsAvailable() bool
	Fetch(ctx context.Context, q flights.Query, artifactKey int64) FetchResult
}

// fetchWithRetry wraps one adapter with exponential backoff plus jitter
// (base 1s, factor 2). Unavailable-credential failures are not retried.
func fetchWithRetry(ctx context.Context, s Source, q flights.Query, artifactKey int64, maxRetries int, baseDelay time.Duration) FetchResult {
	if baseDelay <= 0 {
		baseDelay = time.Second
	}

	var last FetchResult
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay*time.Duration(1<<(attempt-1)) +
				time.Duration(rand.Int63n(int64(time.Second)))
			logger.Info("Retrying price source", "source", s.Name(), "attempt", attempt, "delay", delay)

			select {
			case <-ctx.Done():
				last.Attempts = attempt
				last.Err = ctx.Err().Error()
				return last
			case <-time.After(delay):
			}
		}

		last = s.Fetch(ctx, q, artifactKey)
		last.Attempts = attempt + 1
		if last.Success {
			return last
		}
		if last.Err == errNotConfigured {
			break
		}
	}
	return last
}
