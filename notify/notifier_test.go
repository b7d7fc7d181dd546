package notify

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jesposito/walkabout/config"
	"github.com/jesposito/walkabout/db"
	"github.com/jesposito/walkabout/deals"
)

type captureProvider struct {
	mu   sync.Mutex
	sent []Message
}

func (p *captureProvider) Name() string { return "capture" }

func (p *captureProvider) Send(_ context.Context, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	return nil
}

func (p *captureProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func testSettings() *db.UserSettings {
	return &db.UserSettings{
		ID:                   1,
		NotificationsEnabled: true,
		NotifyDeals:          true,
		NotifySystem:         true,
		Timezone:             "Pacific/Auckland",
		QuietHoursStart:      sql.NullInt32{Int32: 22, Valid: true},
		QuietHoursEnd:        sql.NullInt32{Int32: 7, Valid: true},
		DealCooldownMinutes:  60,
	}
}

func testNotifier(provider Provider) *Notifier {
	return NewWithProvider(config.NotifyConfig{BaseURL: "http://localhost:8080"}, provider)
}

func testDeal() (*db.SearchDefinition, *db.FlightPrice, *deals.Analysis) {
	def := &db.SearchDefinition{ID: 1, Origin: "AKL", Destination: "NRT", Currency: "NZD"}
	price := &db.FlightPrice{
		SearchDefinitionID: 1,
		Price:              799,
		DepartureDate:      time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	analysis := &deals.Analysis{
		IsDeal:       true,
		IsNewLow:     true,
		RobustZScore: -2.4,
		MedianPrice:  1100,
		Percentile:   5,
		HistoryCount: 25,
		Reason:       "New low price!",
	}
	return def, price, analysis
}

// aucklandTime returns a UTC instant whose Pacific/Auckland local hour is
// the given value.
func aucklandTime(t *testing.T, hour int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Pacific/Auckland")
	require.NoError(t, err)
	return time.Date(2026, 3, 15, hour, 0, 0, 0, loc)
}

func TestQuietHoursBlocksDeal(t *testing.T) {
	t.Parallel()

	provider := &captureProvider{}
	n := testNotifier(provider)
	def, price, analysis := testDeal()

	// 23:30 local falls inside 22 -> 7.
	n.now = func() time.Time { return aucklandTime(t, 23).Add(30 * time.Minute) }
	require.NoError(t, n.SendDealAlert(context.Background(), testSettings(), def, price, analysis))
	assert.Equal(t, 0, provider.count())

	// 08:00 local is outside the window.
	n.now = func() time.Time { return aucklandTime(t, 8) }
	require.NoError(t, n.SendDealAlert(context.Background(), testSettings(), def, price, analysis))
	assert.Equal(t, 1, provider.count())
}

func TestDealCooldownPerRoute(t *testing.T) {
	t.Parallel()

	provider := &captureProvider{}
	n := testNotifier(provider)
	def, price, analysis := testDeal()

	base := aucklandTime(t, 12)
	n.now = func() time.Time { return base }

	settings := testSettings()
	require.NoError(t, n.SendDealAlert(context.Background(), settings, def, price, analysis))
	require.NoError(t, n.SendDealAlert(context.Background(), settings, def, price, analysis))
	assert.Equal(t, 1, provider.count(), "second alert within cooldown must be dropped")

	// A different route is unaffected.
	other := &db.SearchDefinition{ID: 2, Origin: "AKL", Destination: "SYD", Currency: "NZD"}
	require.NoError(t, n.SendDealAlert(context.Background(), settings, other, price, analysis))
	assert.Equal(t, 2, provider.count())

	// After the cooldown the original route fires again.
	n.now = func() time.Time { return base.Add(61 * time.Minute) }
	require.NoError(t, n.SendDealAlert(context.Background(), settings, def, price, analysis))
	assert.Equal(t, 3, provider.count())
}

func TestTogglesRejectAlerts(t *testing.T) {
	t.Parallel()

	provider := &captureProvider{}
	n := testNotifier(provider)
	n.now = func() time.Time { return aucklandTime(t, 12) }
	def, price, analysis := testDeal()

	disabled := testSettings()
	disabled.NotificationsEnabled = false
	require.NoError(t, n.SendDealAlert(context.Background(), disabled, def, price, analysis))

	noDeals := testSettings()
	noDeals.NotifyDeals = false
	require.NoError(t, n.SendDealAlert(context.Background(), noDeals, def, price, analysis))

	assert.Equal(t, 0, provider.count())
}

func TestDealPrioritySeverity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		analysis deals.Analysis
		want     Priority
	}{
		{"new low is urgent", deals.Analysis{IsNewLow: true, RobustZScore: -1.0}, PriorityUrgent},
		{"deep z is urgent", deals.Analysis{RobustZScore: -2.5}, PriorityUrgent},
		{"moderate z is high", deals.Analysis{RobustZScore: -1.7}, PriorityHigh},
		{"mild deal is default", deals.Analysis{RobustZScore: -1.2}, PriorityDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &captureProvider{}
			n := testNotifier(provider)
			n.now = func() time.Time { return aucklandTime(t, 12) }
			def, price, _ := testDeal()

			a := tt.analysis
			require.NoError(t, n.SendDealAlert(context.Background(), testSettings(), def, price, &a))
			require.Equal(t, 1, provider.count())
			assert.Equal(t, tt.want, provider.sent[0].Priority)
		})
	}
}

func TestSystemAlertQuietHours(t *testing.T) {
	t.Parallel()

	provider := &captureProvider{}
	n := testNotifier(provider)
	n.now = func() time.Time { return aucklandTime(t, 23) }
	settings := testSettings()

	// Default priority is silenced during quiet hours.
	require.NoError(t, n.SendSystemAlert(context.Background(), settings, "Stale data", "details", PriorityDefault))
	assert.Equal(t, 0, provider.count())

	// Urgent bypasses quiet hours.
	require.NoError(t, n.SendSystemAlert(context.Background(), settings, "DB offline", "details", PriorityUrgent))
	assert.Equal(t, 1, provider.count())
}

func TestInQuietHoursNonWrapping(t *testing.T) {
	t.Parallel()

	n := testNotifier(&captureProvider{})
	settings := testSettings()
	settings.QuietHoursStart = sql.NullInt32{Int32: 9, Valid: true}
	settings.QuietHoursEnd = sql.NullInt32{Int32: 17, Valid: true}

	assert.True(t, n.inQuietHours(aucklandTime(t, 12), settings))
	assert.False(t, n.inQuietHours(aucklandTime(t, 8), settings))
	assert.False(t, n.inQuietHours(aucklandTime(t, 17), settings), "end hour is exclusive")
	assert.True(t, n.inQuietHours(aucklandTime(t, 9), settings), "start hour is inclusive")
}

func TestDealAlertBodyContents(t *testing.T) {
	t.Parallel()

	provider := &captureProvider{}
	n := testNotifier(provider)
	n.now = func() time.Time { return aucklandTime(t, 12) }
	def, price, analysis := testDeal()

	require.NoError(t, n.SendDealAlert(context.Background(), testSettings(), def, price, analysis))
	require.Equal(t, 1, provider.count())

	msg := provider.sent[0]
	assert.Contains(t, msg.Title, "NZ$799")
	assert.Contains(t, msg.Body, "AKL → NRT")
	assert.Contains(t, msg.Body, "5th percentile")
	assert.Equal(t, "http://localhost:8080/search/1", msg.ActionURL)
}
