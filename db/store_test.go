package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jesposito/walkabout/config"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()

	database, err := Open(config.DatabaseConfig{URL: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, database.Migrate(context.Background(), false))
	return NewStore(database)
}

func testDefinition() *SearchDefinition {
	return &SearchDefinition{
		Origin:             "AKL",
		Destination:        "NRT",
		TripType:           "round_trip",
		DepartureDaysMin:   sql.NullInt32{Int32: 30, Valid: true},
		DepartureDaysMax:   sql.NullInt32{Int32: 90, Valid: true},
		TripDurationMin:    sql.NullInt32{Int32: 7, Valid: true},
		TripDurationMax:    sql.NullInt32{Int32: 14, Valid: true},
		Adults:             2,
		CabinClass:         "economy",
		StopsFilter:        "any",
		Currency:           "NZD",
		Locale:             "en-NZ",
		IsActive:           true,
		ScrapeFrequencyHrs: 12,
		PreferredSource:    "auto",
		Version:            1,
	}
}

func TestSearchDefinitionRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSearchDefinition(ctx, testDefinition())
	require.NoError(t, err)
	require.Positive(t, id)

	def, err := store.GetSearchDefinition(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "AKL", def.Origin)
	assert.Equal(t, 1, def.Version)
	assert.True(t, def.IsActive)

	active, err := store.ListActiveSearchDefinitions(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	_, err = store.GetSearchDefinition(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReviseSearchDefinitionVersions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSearchDefinition(ctx, testDefinition())
	require.NoError(t, err)

	// A price-affecting change creates version 2 linked to version 1.
	revised := testDefinition()
	revised.ID = id
	revised.CabinClass = "business"
	newID, err := store.ReviseSearchDefinition(ctx, revised)
	require.NoError(t, err)
	require.NotEqual(t, id, newID)

	v2, err := store.GetSearchDefinition(ctx, newID)
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)
	assert.Equal(t, id, v2.PreviousVersionID.Int64)
	assert.Equal(t, "business", v2.CabinClass)

	// The prior version is deactivated but still present; prices keep
	// referencing it.
	v1, err := store.GetSearchDefinition(ctx, id)
	require.NoError(t, err)
	assert.False(t, v1.IsActive)
}

func TestInsertPricesWithHealthTransaction(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSearchDefinition(ctx, testDefinition())
	require.NoError(t, err)

	health, err := store.GetOrCreateScrapeHealth(ctx, id)
	require.NoError(t, err)

	now := time.Now().UTC()
	health.RecordSuccess(now)

	prices := []FlightPrice{
		{
			SearchDefinitionID: id,
			ScrapedAt:          now,
			DepartureDate:      now.AddDate(0, 0, 45),
			Price:              899,
			TotalPrice:         1798,
			Passengers:         2,
			TripType:           "round_trip",
			Stops:              1,
			Source:             "serpapi",
			Confidence:         1,
		},
		{
			SearchDefinitionID: id,
			ScrapedAt:          now,
			DepartureDate:      now.AddDate(0, 0, 45),
			Price:              1100,
			TotalPrice:         2200,
			Passengers:         2,
			TripType:           "round_trip",
			Source:             "serpapi",
			Confidence:         0.9,
			IsSuspicious:       true,
		},
	}
	require.NoError(t, store.InsertFlightPrices(ctx, prices, health))

	// Suspicious rows are excluded from analyzer history.
	history, err := store.GetPriceHistory(ctx, id, 30)
	require.NoError(t, err)
	assert.Equal(t, []float64{899}, history)

	recent, err := store.ListRecentPrices(ctx, id, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	count, err := store.CountRecentPrices(ctx, id, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Health counters landed with the prices.
	reloaded, err := store.GetOrCreateScrapeHealth(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.TotalSuccesses)
	assert.Equal(t, 0, reloaded.ConsecutiveFailures)
}

func TestScrapeHealthPersistence(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSearchDefinition(ctx, testDefinition())
	require.NoError(t, err)

	health, err := store.GetOrCreateScrapeHealth(ctx, id)
	require.NoError(t, err)

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		health.RecordFailure(now, FailureTimeout, "navigation timed out", "", "")
	}
	assert.True(t, health.CircuitOpen)
	require.NoError(t, store.SaveScrapeHealth(ctx, health))

	reloaded, err := store.GetOrCreateScrapeHealth(ctx, id)
	require.NoError(t, err)
	assert.True(t, reloaded.CircuitOpen)
	assert.Equal(t, 5, reloaded.ConsecutiveFailures)
	assert.Equal(t, FailureTimeout, reloaded.LastFailureReason.String)
	assert.False(t, reloaded.IsHealthy())
}

func TestTripSearchLock(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	res, err := store.db.conn.ExecContext(ctx,
		`INSERT INTO trip_plans (name, budget_currency) VALUES ('Japan', 'NZD')`)
	require.NoError(t, err)
	planID, err := res.LastInsertId()
	require.NoError(t, err)

	acquired, err := store.AcquireTripSearchLock(ctx, planID, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)

	// A second acquisition inside the timeout is denied.
	acquired, err = store.AcquireTripSearchLock(ctx, planID, 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired)

	// A stale lock (older than the timeout) is taken over.
	acquired, err = store.AcquireTripSearchLock(ctx, planID, time.Nanosecond)
	require.NoError(t, err)
	assert.True(t, acquired)

	require.NoError(t, store.ReleaseTripSearchLock(ctx, planID, time.Now().UTC()))
	plan, err := store.GetTripPlan(ctx, planID)
	require.NoError(t, err)
	assert.False(t, plan.SearchInProgress)
	assert.True(t, plan.LastSearchAt.Valid)
}

func TestUserSettingsSingleton(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	settings, err := store.GetUserSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), settings.ID)
	assert.Equal(t, "NZD", settings.PreferredCurrency)
	assert.True(t, settings.NotificationsEnabled)
	assert.Equal(t, 60, settings.DealCooldownMinutes)

	again, err := store.GetUserSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.ID, again.ID)
}

func TestMatchLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	res, err := store.db.conn.ExecContext(ctx,
		`INSERT INTO trip_plans (name, budget_currency) VALUES ('Japan', 'NZD')`)
	require.NoError(t, err)
	planID, err := res.LastInsertId()
	require.NoError(t, err)

	dep := time.Now().UTC().AddDate(0, 0, 60).Truncate(24 * time.Hour)
	match := &TripPlanMatch{
		TripPlanID:    planID,
		Source:        MatchSourceGoogleFlights,
		Origin:        "AKL",
		Destination:   "NRT",
		DepartureDate: dep,
		PriceNZD:      1200,
		MatchScore:    50,
	}
	id, err := store.InsertMatch(ctx, match)
	require.NoError(t, err)
	match.ID = id

	found, err := store.FindMatch(ctx, planID, "AKL", "NRT", dep, sql.NullTime{})
	require.NoError(t, err)
	assert.Equal(t, 1200.0, found.PriceNZD)

	found.PriceNZD = 1100
	require.NoError(t, store.UpdateMatchPrice(ctx, found))

	matches, err := store.ListMatchesByPrice(ctx, planID, MatchSourceGoogleFlights, time.Now().UTC().Truncate(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 1100.0, matches[0].PriceNZD)

	require.NoError(t, store.UpdateMatchScore(ctx, id, 93))

	// Expired matches are purged.
	old := &TripPlanMatch{
		TripPlanID:    planID,
		Source:        MatchSourceGoogleFlights,
		Origin:        "AKL",
		Destination:   "SYD",
		DepartureDate: time.Now().UTC().AddDate(0, 0, -5),
		PriceNZD:      400,
		MatchScore:    50,
	}
	_, err = store.InsertMatch(ctx, old)
	require.NoError(t, err)

	purged, err := store.DeleteExpiredMatches(ctx, planID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}
