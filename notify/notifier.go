package notify

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jesposito/walkabout/config"
	"github.com/jesposito/walkabout/currency"
	"github.com/jesposito/walkabout/db"
	"github.com/jesposito/walkabout/deals"
	"github.com/jesposito/walkabout/pkg/logger"
)

// Notifier enforces notification policy in front of a Provider: global and
// per-category toggles, the user's quiet hours, and a per-route cooldown on
// deal alerts.
type Notifier struct {
	provider Provider
	cfg      config.NotifyConfig

	mu             sync.Mutex
	lastRouteAlert map[string]time.Time

	now func() time.Time
}

// New creates a notifier for the configured provider.
func New(cfg config.NotifyConfig) *Notifier {
	return &Notifier{
		provider:       NewProvider(cfg),
		cfg:            cfg,
		lastRouteAlert: make(map[string]time.Time),
		now:            time.Now,
	}
}

// NewWithProvider injects a provider, for tests.
func NewWithProvider(cfg config.NotifyConfig, provider Provider) *Notifier {
	n := New(cfg)
	n.provider = provider
	return n
}

// SendDealAlert composes and dispatches a deal notification, or silently
// drops it when policy rejects it.
func (n *Notifier) SendDealAlert(ctx context.Context, settings *db.UserSettings, def *db.SearchDefinition, price *db.FlightPrice, analysis *deals.Analysis) error {
	if !settings.NotificationsEnabled || !settings.NotifyDeals {
		return nil
	}

	now := n.now()
	if n.inQuietHours(now, settings) {
		logger.Debug("Deal alert suppressed by quiet hours", "route", def.DisplayName())
		return nil
	}

	route := def.Origin + "-" + def.Destination
	cooldown := time.Duration(settings.DealCooldownMinutes) * time.Minute

	n.mu.Lock()
	if last, ok := n.lastRouteAlert[route]; ok && cooldown > 0 && now.Sub(last) < cooldown {
		n.mu.Unlock()
		logger.Debug("Deal alert suppressed by cooldown", "route", route)
		return nil
	}
	n.lastRouteAlert[route] = now
	n.mu.Unlock()

	priority := PriorityDefault
	tags := []string{"airplane", "moneybag"}
	switch {
	case analysis.IsNewLow || analysis.RobustZScore < -2.0:
		priority = PriorityUrgent
		tags = append(tags, "fire")
	case analysis.RobustZScore < -1.5:
		priority = PriorityHigh
	}

	retLabel := "One-way"
	if price.ReturnDate.Valid {
		retLabel = price.ReturnDate.Time.Format("Jan 2")
	}

	var savings string
	if analysis.IsNewLow {
		savings = fmt.Sprintf("NEW LOW! (median %s)", currency.FormatPrice(analysis.MedianPrice, def.Currency))
	} else {
		savings = fmt.Sprintf("%s below median", currency.FormatPrice(math.Abs(analysis.PriceVsMedian), def.Currency))
	}

	body := fmt.Sprintf("%s\n%s → %s\n%s\n%s\n%.0fth percentile\n%s",
		def.DisplayName(),
		price.DepartureDate.Format("Jan 2"), retLabel,
		currency.FormatPrice(price.Price, def.Currency),
		savings,
		analysis.Percentile,
		analysis.Reason)

	if price.Airline.Valid && price.Airline.String != "Unknown" {
		body += "\n" + price.Airline.String
	}
	if analysis.HistoryCount >= 10 {
		body += fmt.Sprintf("\nBased on %d price points", analysis.HistoryCount)
	}

	msg := Message{
		Title:       fmt.Sprintf("Flight Deal: %s", currency.FormatPrice(price.Price, def.Currency)),
		Body:        body,
		Priority:    priority,
		Tags:        tags,
		ActionLabel: "View Details",
		ActionURL:   fmt.Sprintf("%s/search/%d", n.cfg.BaseURL, def.ID),
	}

	if err := n.provider.Send(ctx, msg); err != nil {
		logger.Error(err, "Failed to send deal alert", "route", route)
		return err
	}
	return nil
}

// SendSystemAlert dispatches an operational alert. Quiet hours apply unless
// the priority is urgent; the notify_system toggle always applies.
func (n *Notifier) SendSystemAlert(ctx context.Context, settings *db.UserSettings, title, body string, priority Priority) error {
	if settings != nil {
		if !settings.NotificationsEnabled || !settings.NotifySystem {
			return nil
		}
		if priority != PriorityUrgent && n.inQuietHours(n.now(), settings) {
			return nil
		}
	}

	msg := Message{
		Title:    title,
		Body:     body,
		Priority: priority,
		Tags:     []string{"warning", "gear"},
	}
	if err := n.provider.Send(ctx, msg); err != nil {
		logger.Error(err, "Failed to send system alert", "title", title)
		return err
	}
	return nil
}

// SendStartup announces the process coming online.
func (n *Notifier) SendStartup(ctx context.Context) {
	_ = n.provider.Send(ctx, Message{
		Title:    "Walkabout Started",
		Body:     "Flight monitoring is online and tracking deals.",
		Priority: PriorityLow,
		Tags:     []string{"rocket", "airplane"},
	})
}

// SendTest verifies the provider end to end.
func (n *Notifier) SendTest(ctx context.Context) error {
	return n.provider.Send(ctx, Message{
		Title:    "Test Notification",
		Body:     "Walkabout notifications are working.",
		Priority: PriorityMin,
		Tags:     []string{"test_tube"},
	})
}

// inQuietHours reports whether local wall-clock time falls inside
// [quiet_hours_start, quiet_hours_end), wrapping across midnight.
func (n *Notifier) inQuietHours(now time.Time, settings *db.UserSettings) bool {
	if !settings.QuietHoursStart.Valid || !settings.QuietHoursEnd.Valid {
		return false
	}
	start := int(settings.QuietHoursStart.Int32)
	end := int(settings.QuietHoursEnd.Int32)
	if start == end {
		return false
	}

	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		loc = time.UTC
	}
	hour := now.In(loc).Hour()

	if start < end {
		return hour >= start && hour < end
	}
	// Window wraps across midnight, e.g. 22 -> 7.
	return hour >= start || hour < end
}
