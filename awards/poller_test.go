package awards

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jesposito/walkabout/config"
	"github.com/jesposito/walkabout/db"
	"github.com/jesposito/walkabout/notify"
)

type stubAwardStore struct {
	db.Store

	searches []db.TrackedAwardSearch
	latest   *db.AwardObservation

	inserted []*db.AwardObservation
	touched  bool
	changed  bool
}

func (s *stubAwardStore) ListActiveAwardSearches(_ context.Context) ([]db.TrackedAwardSearch, error) {
	return s.searches, nil
}

func (s *stubAwardStore) LatestAwardObservation(_ context.Context, _ int64) (*db.AwardObservation, error) {
	if s.latest == nil {
		return nil, db.ErrNotFound
	}
	return s.latest, nil
}

func (s *stubAwardStore) InsertAwardObservation(_ context.Context, obs *db.AwardObservation) (int64, error) {
	s.inserted = append(s.inserted, obs)
	return int64(len(s.inserted)), nil
}

func (s *stubAwardStore) TouchAwardSearch(_ context.Context, _ int64, _ time.Time, changed bool) error {
	s.touched = true
	s.changed = changed
	return nil
}

func (s *stubAwardStore) GetUserSettings(_ context.Context) (*db.UserSettings, error) {
	return &db.UserSettings{NotificationsEnabled: true, NotifySystem: true, Timezone: "UTC"}, nil
}

type stubAwardClient struct {
	rows      []Availability
	available bool
}

func (c *stubAwardClient) IsAvailable() bool { return c.available }

func (c *stubAwardClient) Search(_ context.Context, _ *db.TrackedAwardSearch) ([]Availability, error) {
	return c.rows, nil
}

func trackedSearch() db.TrackedAwardSearch {
	return db.TrackedAwardSearch{
		ID:          1,
		Origin:      "AKL",
		Destination: "SIN",
		DateStart:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		DateEnd:     time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
		MinSeats:    1,
		IsActive:    true,
	}
}

func testNotifier() *notify.Notifier {
	return notify.NewWithProvider(config.NotifyConfig{}, notify.NoneProvider{})
}

func TestHashResultsOrderIndependent(t *testing.T) {
	t.Parallel()

	a := Availability{Program: "krisflyer", Cabin: "business", Date: "2026-04-10", Miles: 62000, Seats: 2}
	b := Availability{Program: "lifemiles", Cabin: "economy", Date: "2026-04-12", Miles: 25000, Seats: 4}

	assert.Equal(t, HashResults([]Availability{a, b}), HashResults([]Availability{b, a}))
	assert.NotEqual(t, HashResults([]Availability{a}), HashResults([]Availability{a, b}))
	assert.NotEmpty(t, HashResults(nil))
}

func TestPollRecordsObservation(t *testing.T) {
	t.Parallel()

	store := &stubAwardStore{searches: []db.TrackedAwardSearch{trackedSearch()}}
	client := &stubAwardClient{available: true, rows: []Availability{
		{Program: "krisflyer", Cabin: "business", Date: "2026-04-10", Miles: 62000, Seats: 2, Direct: true},
		{Program: "krisflyer", Cabin: "economy", Date: "2026-04-10", Miles: 25000, Seats: 5, Direct: true},
	}}

	poller := NewPoller(store, client, testNotifier())
	require.NoError(t, poller.PollAll(context.Background()))

	require.Len(t, store.inserted, 1)
	obs := store.inserted[0]
	assert.NotEmpty(t, obs.ObservationUUID)
	assert.NotEmpty(t, obs.ResultHash)
	assert.Equal(t, int64(62000), obs.BusinessBest.Int64)
	assert.Equal(t, int32(2), obs.BusinessMaxSeats.Int32)
	assert.Equal(t, int64(25000), obs.EconomyBestMiles.Int64)
	assert.Equal(t, "krisflyer", obs.Programs.String)
	assert.True(t, store.changed, "first observation counts as a change")
}

func TestPollUnchangedHash(t *testing.T) {
	t.Parallel()

	rows := []Availability{
		{Program: "krisflyer", Cabin: "business", Date: "2026-04-10", Miles: 62000, Seats: 2, Direct: true},
	}
	store := &stubAwardStore{
		searches: []db.TrackedAwardSearch{trackedSearch()},
		latest:   &db.AwardObservation{ResultHash: HashResults(rows)},
	}
	client := &stubAwardClient{available: true, rows: rows}

	poller := NewPoller(store, client, testNotifier())
	require.NoError(t, poller.PollAll(context.Background()))
	assert.True(t, store.touched)
	assert.False(t, store.changed, "identical result hash is not a change")
}

func TestFilterRows(t *testing.T) {
	t.Parallel()

	search := trackedSearch()
	search.MinSeats = 2
	search.DirectOnly = true
	search.CabinPref = sql.NullString{String: "business", Valid: true}

	rows := []Availability{
		{Cabin: "business", Seats: 2, Direct: true},  // kept
		{Cabin: "business", Seats: 1, Direct: true},  // too few seats
		{Cabin: "business", Seats: 3, Direct: false}, // not direct
		{Cabin: "economy", Seats: 4, Direct: true},   // wrong cabin
	}

	kept := filterRows(rows, &search)
	assert.Len(t, kept, 1)
}

func TestPollSkippedWithoutKey(t *testing.T) {
	t.Parallel()

	store := &stubAwardStore{searches: []db.TrackedAwardSearch{trackedSearch()}}
	poller := NewPoller(store, &stubAwardClient{available: false}, testNotifier())

	require.NoError(t, poller.PollAll(context.Background()))
	assert.Empty(t, store.inserted)
}
