package scrape

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jesposito/walkabout/config"
	"github.com/jesposito/walkabout/db"
	"github.com/jesposito/walkabout/deals"
	"github.com/jesposito/walkabout/flights"
	"github.com/jesposito/walkabout/notify"
	"github.com/jesposito/walkabout/sources"
)

// stubStore implements the subset of db.Store the scrape service touches.
type stubStore struct {
	db.Store

	def      *db.SearchDefinition
	health   *db.ScrapeHealth
	history  []float64
	settings *db.UserSettings

	inserted    []db.FlightPrice
	savedHealth *db.ScrapeHealth
}

func (s *stubStore) GetSearchDefinition(_ context.Context, _ int64) (*db.SearchDefinition, error) {
	return s.def, nil
}

func (s *stubStore) GetOrCreateScrapeHealth(_ context.Context, _ int64) (*db.ScrapeHealth, error) {
	return s.health, nil
}

func (s *stubStore) SaveScrapeHealth(_ context.Context, h *db.ScrapeHealth) error {
	s.savedHealth = h
	return nil
}

func (s *stubStore) InsertFlightPrices(_ context.Context, prices []db.FlightPrice, h *db.ScrapeHealth) error {
	s.inserted = append(s.inserted, prices...)
	s.savedHealth = h
	return nil
}

func (s *stubStore) GetPriceHistory(_ context.Context, _ int64, _ int) ([]float64, error) {
	return s.history, nil
}

func (s *stubStore) GetUserSettings(_ context.Context) (*db.UserSettings, error) {
	return s.settings, nil
}

type stubFetcher struct {
	result sources.FetchResult
	called bool
}

func (f *stubFetcher) Fetch(_ context.Context, _ flights.Query, _ sources.FetchOpts) sources.FetchResult {
	f.called = true
	return f.result
}

func rollingDef() *db.SearchDefinition {
	return &db.SearchDefinition{
		ID:               1,
		Origin:           "AKL",
		Destination:      "NRT",
		TripType:         "round_trip",
		DepartureDaysMin: sql.NullInt32{Int32: 30, Valid: true},
		DepartureDaysMax: sql.NullInt32{Int32: 90, Valid: true},
		TripDurationMin:  sql.NullInt32{Int32: 7, Valid: true},
		TripDurationMax:  sql.NullInt32{Int32: 14, Valid: true},
		Adults:           2,
		CabinClass:       "economy",
		StopsFilter:      "any",
		Currency:         "NZD",
		PreferredSource:  "auto",
		IsActive:         true,
	}
}

func newTestService(store *stubStore, fetcher Fetcher) *Service {
	cfg := config.AnalyzerConfig{
		HistoryDays:           90,
		MinHistoryForAnalysis: 4,
		DealThresholdZ:        -1.5,
		NewLowMarginPct:       2,
		AnomalyThresholdPct:   300,
	}
	analyzer := deals.NewAnalyzer(store, cfg)
	notifier := notify.NewWithProvider(config.NotifyConfig{}, notify.NoneProvider{})
	return NewService(store, fetcher, analyzer, notifier, cfg)
}

func defaultSettings() *db.UserSettings {
	return &db.UserSettings{NotificationsEnabled: true, NotifyDeals: true, Timezone: "UTC"}
}

func TestGenerateTravelDatesDeterministic(t *testing.T) {
	t.Parallel()

	def := rollingDef()
	today := time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC)

	dep1, ret1 := GenerateTravelDates(def, today)
	dep2, ret2 := GenerateTravelDates(def, today)
	assert.Equal(t, dep1, dep2, "same day must sample the same departure")
	assert.Equal(t, ret1, ret2)

	// Bounds hold.
	daysOut := int(dep1.Sub(today).Hours() / 24)
	assert.GreaterOrEqual(t, daysOut, 30)
	assert.LessOrEqual(t, daysOut, 90)
	tripDays := int(ret1.Sub(dep1).Hours() / 24)
	assert.GreaterOrEqual(t, tripDays, 7)
	assert.LessOrEqual(t, tripDays, 14)

	// Across a run of days the sample must move at least once.
	changed := false
	for i := 1; i <= 7 && !changed; i++ {
		depN, _ := GenerateTravelDates(def, today.AddDate(0, 0, i))
		if !depN.Equal(dep1.AddDate(0, 0, i)) && !depN.Equal(dep1) {
			changed = true
		}
	}
	assert.True(t, changed, "rolling horizon must shift day over day")
}

func TestGenerateTravelDatesFixedAndOneWay(t *testing.T) {
	t.Parallel()

	today := time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC)
	fixed := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	def := rollingDef()
	def.DepartureDateStart = sql.NullTime{Time: fixed, Valid: true}
	dep, _ := GenerateTravelDates(def, today)
	assert.Equal(t, fixed, dep, "fixed-date searches use their start date verbatim")

	oneWay := rollingDef()
	oneWay.TripType = "one_way"
	_, ret := GenerateTravelDates(oneWay, today)
	assert.True(t, ret.IsZero(), "one-way searches have no return date")
}

func TestCircuitOpenBlocksScrape(t *testing.T) {
	t.Parallel()

	store := &stubStore{
		def:      rollingDef(),
		health:   &db.ScrapeHealth{ID: 1, SearchDefinitionID: 1, CircuitOpen: true},
		settings: defaultSettings(),
	}
	fetcher := &stubFetcher{}

	result, err := newTestService(store, fetcher).ScrapeDefinition(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, db.FailureBlocked, result.Status)
	assert.False(t, fetcher.called, "open circuit must not touch the scraper")
}

func TestFailureRecordsHealth(t *testing.T) {
	t.Parallel()

	store := &stubStore{
		def:      rollingDef(),
		health:   &db.ScrapeHealth{ID: 1, SearchDefinitionID: 1},
		settings: defaultSettings(),
	}
	fetcher := &stubFetcher{result: sources.FetchResult{
		Success:        false,
		FailureReason:  db.FailureLayoutChange,
		Err:            "no prices extracted",
		ScreenshotPath: "/data/screenshots/1_x_layout_change.png",
		HTMLPath:       "/data/html_snapshots/1_x_layout_change.html",
	}}

	result, err := newTestService(store, fetcher).ScrapeDefinition(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, db.FailureLayoutChange, result.Status)

	require.NotNil(t, store.savedHealth)
	assert.Equal(t, 1, store.savedHealth.ConsecutiveFailures)
	assert.Equal(t, db.FailureLayoutChange, store.savedHealth.LastFailureReason.String)
	assert.Equal(t, "/data/screenshots/1_x_layout_change.png", store.savedHealth.LastScreenshotPath.String)
}

func TestCircuitOpensAfterFiveFailures(t *testing.T) {
	t.Parallel()

	store := &stubStore{
		def:      rollingDef(),
		health:   &db.ScrapeHealth{ID: 1, SearchDefinitionID: 1, ConsecutiveFailures: 4, TotalAttempts: 4, TotalFailures: 4},
		settings: defaultSettings(),
	}
	fetcher := &stubFetcher{result: sources.FetchResult{Success: false, FailureReason: db.FailureTimeout, Err: "timed out"}}

	_, err := newTestService(store, fetcher).ScrapeDefinition(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, store.savedHealth.CircuitOpen, "fifth consecutive failure opens the circuit")
	assert.True(t, store.savedHealth.CircuitOpenedAt.Valid)
}

func TestConfidenceGates(t *testing.T) {
	t.Parallel()

	store := &stubStore{
		def:      rollingDef(),
		health:   &db.ScrapeHealth{ID: 1, SearchDefinitionID: 1},
		history:  []float64{900, 950, 1000, 980, 1020},
		settings: defaultSettings(),
	}
	fetcher := &stubFetcher{result: sources.FetchResult{
		Success: true,
		Source:  sources.SourceBrowser,
		Prices: []sources.Price{
			{Amount: 850, Confidence: 0.45}, // below storage threshold: dropped
			{Amount: 920, Confidence: 0.55}, // stored, deal-ineligible
			{Amount: 940, Confidence: 0.90}, // stored, deal-eligible
		},
	}}

	result, err := newTestService(store, fetcher).ScrapeDefinition(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	require.Len(t, store.inserted, 2)

	for _, row := range store.inserted {
		assert.GreaterOrEqual(t, row.Confidence, StoreMinConfidence)
	}
	assert.Equal(t, 920.0, store.inserted[0].Price)
	assert.Equal(t, 940.0, store.inserted[1].Price)
}

func TestAllBelowStorageThresholdIsLayoutChange(t *testing.T) {
	t.Parallel()

	store := &stubStore{
		def:      rollingDef(),
		health:   &db.ScrapeHealth{ID: 1, SearchDefinitionID: 1},
		settings: defaultSettings(),
	}
	fetcher := &stubFetcher{result: sources.FetchResult{
		Success: true,
		Source:  sources.SourceBrowser,
		Prices:  []sources.Price{{Amount: 700, Confidence: 0.2}, {Amount: 710, Confidence: 0.3}},
	}}

	result, err := newTestService(store, fetcher).ScrapeDefinition(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	assert.Zero(t, result.PricesStored)
	assert.Empty(t, store.inserted)
	assert.Equal(t, db.FailureLayoutChange, store.savedHealth.LastFailureReason.String)
}

func TestAnomalyGuardYearPrice(t *testing.T) {
	t.Parallel()

	store := &stubStore{
		def:      rollingDef(),
		health:   &db.ScrapeHealth{ID: 1, SearchDefinitionID: 1},
		history:  []float64{900, 950, 1000, 980, 1020},
		settings: defaultSettings(),
	}
	year := float64(time.Now().Year())
	fetcher := &stubFetcher{result: sources.FetchResult{
		Success: true,
		Source:  sources.SourceSerpAPI,
		Prices:  []sources.Price{{Amount: year, Confidence: 1.0}},
	}}

	_, err := newTestService(store, fetcher).ScrapeDefinition(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, store.inserted, 1)
	assert.True(t, store.inserted[0].IsSuspicious, "calendar-year price must be flagged suspicious")
}

func TestAnomalyGuardMedianBounds(t *testing.T) {
	t.Parallel()

	store := &stubStore{
		def:      rollingDef(),
		health:   &db.ScrapeHealth{ID: 1, SearchDefinitionID: 1},
		history:  []float64{1000, 1000, 1000, 1000, 1000},
		settings: defaultSettings(),
	}
	fetcher := &stubFetcher{result: sources.FetchResult{
		Success: true,
		Source:  sources.SourceSerpAPI,
		Prices: []sources.Price{
			{Amount: 5000, Confidence: 1.0}, // > median * 4
			{Amount: 150, Confidence: 1.0},  // < median * 0.2
			{Amount: 1100, Confidence: 1.0}, // normal
		},
	}}

	_, err := newTestService(store, fetcher).ScrapeDefinition(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, store.inserted, 3)
	assert.True(t, store.inserted[0].IsSuspicious)
	assert.True(t, store.inserted[1].IsSuspicious)
	assert.False(t, store.inserted[2].IsSuspicious)
}

func TestSuccessResetsHealthAndStoresTotals(t *testing.T) {
	t.Parallel()

	store := &stubStore{
		def:      rollingDef(),
		health:   &db.ScrapeHealth{ID: 1, SearchDefinitionID: 1, ConsecutiveFailures: 2, TotalAttempts: 2, TotalFailures: 2},
		history:  []float64{900, 950, 1000, 980, 1020},
		settings: defaultSettings(),
	}
	fetcher := &stubFetcher{result: sources.FetchResult{
		Success: true,
		Source:  sources.SourceSerpAPI,
		Prices:  []sources.Price{{Amount: 950, Confidence: 1.0}},
	}}

	result, err := newTestService(store, fetcher).ScrapeDefinition(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PricesStored)

	assert.Equal(t, 0, store.savedHealth.ConsecutiveFailures)
	assert.False(t, store.savedHealth.CircuitOpen)
	assert.Equal(t, 1, store.savedHealth.TotalSuccesses)

	// Total price reflects the passenger count (2 adults).
	assert.Equal(t, 1900.0, store.inserted[0].TotalPrice)
	assert.Equal(t, 2, store.inserted[0].Passengers)
}
