package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/jesposito/walkabout/flights"
	"github.com/jesposito/walkabout/pkg/logger"
)

// Enricher attaches an optional recommendation to successful results. The
// AI service implements it; pricing decisions never depend on it.
type Enricher interface {
	Recommend(ctx context.Context, prices []Price, route string, historicalAvg float64) (string, error)
	IsAvailable() bool
}

// FetchOpts tunes one cascade run.
type FetchOpts struct {
	// PreferredSource moves the named adapter to the front of the cascade.
	// "auto" and "" mean no preference. A preferred adapter with missing
	// credentials is filtered with the other unavailable ones and falls
	// through silently.
	PreferredSource string
	// ArtifactKey names browser failure artifacts (search definition id, or
	// a pseudo id for trip-plan searches).
	ArtifactKey int64
	// HistoricalAvg feeds the optional enrichment prompt.
	HistoricalAvg float64
	// SkipEnrichment disables the AI call even when configured.
	SkipEnrichment bool
}

// Fetcher cascades through the adapters in a fixed priority order, retrying
// each with backoff, and returns the first success with attribution.
type Fetcher struct {
	sources    []Source
	maxRetries int
	baseDelay  time.Duration
	enricher   Enricher
}

// NewFetcher builds the cascade in default order. enricher may be nil.
func NewFetcher(srcs []Source, maxRetries int, baseDelay time.Duration, enricher Enricher) *Fetcher {
	return &Fetcher{
		sources:    srcs,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		enricher:   enricher,
	}
}

// AvailableSources lists adapters with usable credentials.
func (f *Fetcher) AvailableSources() []string {
	var names []string
	for _, s := range f.sources {
		if s.IsAvailable() {
			names = append(names, s.Name())
		}
	}
	return names
}

// Fetch runs the cascade. On success the result carries the winning
// adapter's tag, fallback_used when it was not the first candidate, and the
// total attempt count across adapters. On exhaustion it returns a structured
// failure carrying the last adapter's error.
func (f *Fetcher) Fetch(ctx context.Context, q flights.Query, opts FetchOpts) FetchResult {
	if err := q.Validate(); err != nil {
		return FetchResult{Err: err.Error()}
	}

	ordered := f.ordered(opts.PreferredSource)

	var (
		last          FetchResult
		totalAttempts int
		tried         int
	)

	for _, source := range ordered {
		if !source.IsAvailable() {
			logger.Debug("Skipping unavailable price source", "source", source.Name())
			continue
		}

		logger.Info("Trying price source", "source", source.Name(), "route", q.Route())
		result := fetchWithRetry(ctx, source, q, opts.ArtifactKey, f.maxRetries, f.baseDelay)
		totalAttempts += result.Attempts

		if result.Success {
			result.FallbackUsed = tried > 0
			result.Attempts = totalAttempts
			f.enrich(ctx, &result, q, opts)
			return result
		}

		last = result
		tried++
		logger.Warn("Price source failed, cascading",
			"source", source.Name(), "route", q.Route(), "error", result.Err)
	}

	errMsg := "no sources available"
	if last.Err != "" {
		errMsg = fmt.Sprintf("all sources failed, last: %s: %s", last.Source, last.Err)
	}

	return FetchResult{
		Source:         last.Source,
		Err:            errMsg,
		FallbackUsed:   tried > 1,
		Attempts:       totalAttempts,
		FailureReason:  last.FailureReason,
		ScreenshotPath: last.ScreenshotPath,
		HTMLPath:       last.HTMLPath,
	}
}

// ordered returns the cascade with the preferred adapter (if any) first.
func (f *Fetcher) ordered(preferred string) []Source {
	if preferred == "" || preferred == "auto" {
		return f.sources
	}

	ordered := make([]Source, 0, len(f.sources))
	for _, s := range f.sources {
		if s.Name() == preferred {
			ordered = append(ordered, s)
		}
	}
	for _, s := range f.sources {
		if s.Name() != preferred {
			ordered = append(ordered, s)
		}
	}
	return ordered
}

func (f *Fetcher) enrich(ctx context.Context, result *FetchResult, q flights.Query, opts FetchOpts) {
	if opts.SkipEnrichment || f.enricher == nil || !f.enricher.IsAvailable() {
		return
	}

	recommendation, err := f.enricher.Recommend(ctx, result.Prices, q.Route(), opts.HistoricalAvg)
	if err != nil {
		logger.Warn("AI enrichment failed", "route", q.Route(), "error", err)
		return
	}
	result.Recommendation = recommendation
}
