// Package scrape glues the price fetcher, health tracker, analyzer, and
// notifier into the per-definition scraping pipeline: circuit check, date
// sampling, confidence gating, anomaly tagging, persistence, and deal
// emission.
package scrape

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jesposito/walkabout/config"
	"github.com/jesposito/walkabout/db"
	"github.com/jesposito/walkabout/deals"
	"github.com/jesposito/walkabout/flights"
	"github.com/jesposito/walkabout/notify"
	"github.com/jesposito/walkabout/pkg/logger"
	"github.com/jesposito/walkabout/sources"
)

// Confidence gate thresholds. Prices below StoreMinConfidence are dropped
// outright; prices in [StoreMinConfidence, DealMinConfidence) are stored but
// never feed deal analysis.
const (
	StoreMinConfidence = 0.5
	DealMinConfidence  = 0.6
)

// Staleness alerting: alert when no success for staleAfter, re-alert at most
// once per staleRealertWindow.
const (
	staleAfter         = 25 * time.Hour
	staleRealertWindow = 24 * time.Hour
)

// Result summarizes one scrape invocation.
type Result struct {
	Status       string // success or a failure reason
	PricesStored int
	DealsFound   int
	ErrorMessage string
}

// Fetcher is the slice of sources.Fetcher the service depends on.
type Fetcher interface {
	Fetch(ctx context.Context, q flights.Query, opts sources.FetchOpts) sources.FetchResult
}

// Service runs the scraping pipeline for search definitions.
type Service struct {
	store    db.Store
	fetcher  Fetcher
	analyzer *deals.Analyzer
	notifier *notify.Notifier
	cfg      config.AnalyzerConfig

	now func() time.Time
}

// NewService wires the pipeline.
func NewService(store db.Store, fetcher Fetcher, analyzer *deals.Analyzer, notifier *notify.Notifier, cfg config.AnalyzerConfig) *Service {
	return &Service{
		store:    store,
		fetcher:  fetcher,
		analyzer: analyzer,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// ScrapeDefinition executes the full pipeline for one search definition.
func (s *Service) ScrapeDefinition(ctx context.Context, searchDefID int64) (*Result, error) {
	def, err := s.store.GetSearchDefinition(ctx, searchDefID)
	if err != nil {
		return nil, fmt.Errorf("load search definition %d: %w", searchDefID, err)
	}

	health, err := s.store.GetOrCreateScrapeHealth(ctx, def.ID)
	if err != nil {
		return nil, fmt.Errorf("load scrape health for %d: %w", def.ID, err)
	}

	if health.CircuitOpen {
		logger.Warn("Circuit breaker open, skipping scrape", "route", def.DisplayName())
		return &Result{
			Status:       db.FailureBlocked,
			ErrorMessage: "circuit breaker is open after repeated failures",
		}, nil
	}

	now := s.now().UTC()
	departure, returnDate := GenerateTravelDates(def, now)

	query := buildQuery(def, departure, returnDate)
	logger.Info("Scraping search definition",
		"route", def.DisplayName(),
		"departure", departure.Format(time.DateOnly),
		"one_way", returnDate.IsZero())

	fetch := s.fetcher.Fetch(ctx, query, sources.FetchOpts{
		PreferredSource: def.PreferredSource,
		ArtifactKey:     def.ID,
	})

	if !fetch.Success {
		reason := fetch.FailureReason
		if reason == "" {
			reason = db.FailureUnknown
		}
		health.RecordFailure(now, reason, fetch.Err, fetch.ScreenshotPath, fetch.HTMLPath)
		if err := s.store.SaveScrapeHealth(ctx, health); err != nil {
			return nil, fmt.Errorf("save scrape health: %w", err)
		}
		logger.Error(nil, "Scrape failed", "route", def.DisplayName(), "reason", reason, "detail", fetch.Err)
		return &Result{Status: reason, ErrorMessage: fetch.Err}, nil
	}

	stored, dealsFound, err := s.processPrices(ctx, def, health, fetch.Prices, departure, returnDate, fetch.Source, now)
	if err != nil {
		return nil, err
	}

	return &Result{Status: "success", PricesStored: stored, DealsFound: dealsFound}, nil
}

func buildQuery(def *db.SearchDefinition, departure, returnDate time.Time) flights.Query {
	return flights.Query{
		Origin:        def.Origin,
		Destination:   def.Destination,
		DepartureDate: departure,
		ReturnDate:    returnDate,
		Travelers: flights.Travelers{
			Adults:        def.Adults,
			Children:      def.Children,
			InfantsInSeat: def.InfantsInSeat,
			InfantsOnLap:  def.InfantsOnLap,
		},
		CabinClass:  flights.CabinClass(def.CabinClass),
		StopsFilter: flights.StopsFilter(def.StopsFilter),
		Currency:    def.Currency,
		CarryOnBags: def.CarryOnBags,
		CheckedBags: def.CheckedBags,
	}
}

// processPrices applies the confidence gates and anomaly guard, persists the
// surviving rows together with the health update, and runs deal selection.
func (s *Service) processPrices(ctx context.Context, def *db.SearchDefinition, health *db.ScrapeHealth, prices []sources.Price, departure, returnDate time.Time, source string, now time.Time) (int, int, error) {
	var storable, rejected []sources.Price
	for _, p := range prices {
		if p.Confidence < StoreMinConfidence {
			rejected = append(rejected, p)
		} else {
			storable = append(storable, p)
		}
	}

	if len(rejected) > 0 {
		amounts := make([]float64, len(rejected))
		for i, r := range rejected {
			amounts[i] = r.Amount
		}
		logger.Info("Confidence gate rejected low-confidence flights",
			"route", def.DisplayName(), "rejected", len(rejected), "prices", amounts)
	}

	if len(storable) == 0 {
		// Extraction produced nothing storable; treated as a layout change.
		health.RecordFailure(now, db.FailureLayoutChange,
			fmt.Sprintf("all %d extracted flights fell below the %.1f storage threshold", len(prices), StoreMinConfidence), "", "")
		if err := s.store.SaveScrapeHealth(ctx, health); err != nil {
			return 0, 0, fmt.Errorf("save scrape health: %w", err)
		}
		return 0, 0, nil
	}

	// 30-day median for the anomaly guard.
	history, err := s.store.GetPriceHistory(ctx, def.ID, 30)
	if err != nil {
		return 0, 0, fmt.Errorf("load 30-day history: %w", err)
	}
	var median30 float64
	haveMedian := false
	if len(history) >= 5 {
		sorted := append([]float64(nil), history...)
		sort.Float64s(sorted)
		median30 = sorted[len(sorted)/2]
		haveMedian = true
	}

	passengers := def.TotalPassengers()
	var retDate sql.NullTime
	if !returnDate.IsZero() {
		retDate = sql.NullTime{Time: returnDate, Valid: true}
	}

	rows := make([]db.FlightPrice, 0, len(storable))
	suspicious := make([]bool, len(storable))
	for i, p := range storable {
		isSuspicious := s.isSuspicious(def, p.Amount, median30, haveMedian, now)
		suspicious[i] = isSuspicious

		row := db.FlightPrice{
			SearchDefinitionID: def.ID,
			ScrapedAt:          now,
			DepartureDate:      departure,
			ReturnDate:         retDate,
			Price:              p.Amount,
			TotalPrice:         p.Amount * float64(passengers),
			Passengers:         passengers,
			TripType:           def.TripType,
			Stops:              p.Stops,
			Source:             source,
			Confidence:         p.Confidence,
			IsSuspicious:       isSuspicious,
		}
		if p.Airline != "" {
			row.Airline = sql.NullString{String: p.Airline, Valid: true}
		}
		if p.DurationMinutes > 0 {
			row.DurationMinutes = sql.NullInt32{Int32: int32(p.DurationMinutes), Valid: true}
		}
		if len(p.LayoverAirports) > 0 {
			row.LayoverAirports = sql.NullString{String: strings.Join(p.LayoverAirports, ","), Valid: true}
		}
		if p.RawData != "" {
			row.RawData = sql.NullString{String: p.RawData, Valid: true}
		}
		rows = append(rows, row)
	}

	// Success path: prices and health counters land in one transaction.
	health.RecordSuccess(now)
	if err := s.store.InsertFlightPrices(ctx, rows, health); err != nil {
		return 0, 0, fmt.Errorf("persist flight prices: %w", err)
	}

	logger.Info("Stored scraped prices",
		"route", def.DisplayName(), "stored", len(rows), "source", source)

	dealsFound := s.selectAndEmitDeal(ctx, def, rows, suspicious)
	return len(rows), dealsFound, nil
}

// isSuspicious applies the anomaly guard: calendar years misread as prices,
// and prices far outside the 30-day median band. The bounds are asymmetric
// on purpose; they target the year-as-price and currency-confusion bug
// classes.
func (s *Service) isSuspicious(def *db.SearchDefinition, price, median30 float64, haveMedian bool, now time.Time) bool {
	year := now.Year()
	if p := int(price); price == float64(p) && (p == year-1 || p == year || p == year+1) {
		logger.Warn("Anomaly guard: price matches a calendar year",
			"route", def.DisplayName(), "price", price)
		return true
	}

	if !haveMedian {
		return false
	}

	if price > median30*(1+s.cfg.AnomalyThresholdPct/100) {
		logger.Warn("Anomaly guard: price far above 30-day median",
			"route", def.DisplayName(), "price", price, "median", median30)
		return true
	}
	if price < median30*0.2 {
		logger.Warn("Anomaly guard: price far below 30-day median",
			"route", def.DisplayName(), "price", price, "median", median30)
		return true
	}
	return false
}

// selectAndEmitDeal picks the cheapest deal-eligible row, analyzes it, and
// notifies on a hit. Eligibility requires confidence at or above the deal
// threshold and no suspicion flag.
func (s *Service) selectAndEmitDeal(ctx context.Context, def *db.SearchDefinition, rows []db.FlightPrice, suspicious []bool) int {
	best := -1
	for i, row := range rows {
		if suspicious[i] || row.Confidence < DealMinConfidence {
			continue
		}
		if best == -1 || row.Price < rows[best].Price {
			best = i
		}
	}
	if best == -1 {
		return 0
	}

	candidate := rows[best]
	analysis, err := s.analyzer.Analyze(ctx, &candidate)
	if err != nil {
		logger.Error(err, "Deal analysis failed", "route", def.DisplayName())
		return 0
	}
	if !analysis.IsDeal {
		return 0
	}

	logger.Info("Deal detected",
		"route", def.DisplayName(), "price", candidate.Price,
		"reason", analysis.Reason, "confidence", candidate.Confidence)

	settings, err := s.store.GetUserSettings(ctx)
	if err != nil {
		logger.Error(err, "Could not load user settings for deal alert")
		return 1
	}
	if err := s.notifier.SendDealAlert(ctx, settings, def, &candidate, analysis); err != nil {
		logger.Error(err, "Deal alert delivery failed", "route", def.DisplayName())
	}
	return 1
}

// CheckHealth evaluates staleness and failure streaks for every active
// definition and emits system alerts. Runs hourly from the scheduler.
func (s *Service) CheckHealth(ctx context.Context) error {
	defs, err := s.store.ListActiveSearchDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("list active definitions: %w", err)
	}

	settings, err := s.store.GetUserSettings(ctx)
	if err != nil {
		return fmt.Errorf("load user settings: %w", err)
	}

	now := s.now().UTC()
	for i := range defs {
		def := &defs[i]
		health, err := s.store.GetOrCreateScrapeHealth(ctx, def.ID)
		if err != nil {
			logger.Error(err, "Health check could not load health row", "route", def.DisplayName())
			continue
		}

		if health.LastSuccessAt.Valid && now.Sub(health.LastSuccessAt.Time) > staleAfter {
			alreadyAlerted := health.StaleAlertSentAt.Valid &&
				now.Sub(health.StaleAlertSentAt.Time) < staleRealertWindow
			if !alreadyAlerted {
				hours := now.Sub(health.LastSuccessAt.Time).Hours()
				_ = s.notifier.SendSystemAlert(ctx, settings,
					fmt.Sprintf("Stale Data: %s", def.DisplayName()),
					fmt.Sprintf("No successful scrape for %.1f hours.\nLast success: %s\nConsecutive failures: %d",
						hours, health.LastSuccessAt.Time.Format(time.RFC3339), health.ConsecutiveFailures),
					notify.PriorityDefault)
				if err := s.store.MarkStaleAlertSent(ctx, health.ID, now); err != nil {
					logger.Error(err, "Could not stamp stale alert", "route", def.DisplayName())
				}
			}
		}

		if health.ConsecutiveFailures >= 3 && !health.CircuitOpen {
			reason := ""
			if health.LastFailureReason.Valid {
				reason = health.LastFailureReason.String
			}
			_ = s.notifier.SendSystemAlert(ctx, settings,
				fmt.Sprintf("Scraping Failures: %s", def.DisplayName()),
				fmt.Sprintf("%d consecutive failures.\nLast error: %s", health.ConsecutiveFailures, reason),
				notify.PriorityHigh)
		}
	}
	return nil
}
