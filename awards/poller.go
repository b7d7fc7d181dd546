// Package awards polls tracked award-availability searches and detects
// changes by hashing the normalized result set. The seats.aero partner API
// backs the poller; a missing key simply disables it.
package awards

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jesposito/walkabout/db"
	"github.com/jesposito/walkabout/notify"
	"github.com/jesposito/walkabout/pkg/logger"
)

const searchEndpoint = "https://seats.aero/partnerapi/search"

// Availability is one normalized award row from the upstream.
type Availability struct {
	Program   string `json:"program"`
	Cabin     string `json:"cabin"`
	Date      string `json:"date"`
	Miles     int64  `json:"miles"`
	Seats     int    `json:"seats"`
	Direct    bool   `json:"direct"`
	Carrier   string `json:"carrier"`
}

// Client fetches award availability.
type Client interface {
	Search(ctx context.Context, search *db.TrackedAwardSearch) ([]Availability, error)
	IsAvailable() bool
}

// HTTPClient is the seats.aero implementation.
type HTTPClient struct {
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient creates the client. An empty key disables polling.
func NewHTTPClient(apiKey string) *HTTPClient {
	return &HTTPClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) IsAvailable() bool { return c.apiKey != "" }

func (c *HTTPClient) Search(ctx context.Context, search *db.TrackedAwardSearch) ([]Availability, error) {
	url := fmt.Sprintf("%s?origin_airport=%s&destination_airport=%s&start_date=%s&end_date=%s",
		searchEndpoint, search.Origin, search.Destination,
		search.DateStart.Format(time.DateOnly), search.DateEnd.Format(time.DateOnly))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Partner-Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("award search returned HTTP %d", resp.StatusCode)
	}

	var payload struct {
		Data []Availability `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// Poller walks active tracked searches and records observations.
type Poller struct {
	store    db.Store
	client   Client
	notifier *notify.Notifier

	now func() time.Time
}

// NewPoller wires the poller.
func NewPoller(store db.Store, client Client, notifier *notify.Notifier) *Poller {
	return &Poller{store: store, client: client, notifier: notifier, now: time.Now}
}

// PollAll checks every active tracked search once.
func (p *Poller) PollAll(ctx context.Context) error {
	if !p.client.IsAvailable() {
		logger.Debug("Award polling disabled, no API key")
		return nil
	}

	searches, err := p.store.ListActiveAwardSearches(ctx)
	if err != nil {
		return fmt.Errorf("list award searches: %w", err)
	}

	for i := range searches {
		if err := p.pollOne(ctx, &searches[i]); err != nil {
			logger.Error(err, "Award poll failed",
				"origin", searches[i].Origin, "destination", searches[i].Destination)
		}
	}
	return nil
}

func (p *Poller) pollOne(ctx context.Context, search *db.TrackedAwardSearch) error {
	rows, err := p.client.Search(ctx, search)
	if err != nil {
		return err
	}

	rows = filterRows(rows, search)
	hash := HashResults(rows)

	previous, err := p.store.LatestAwardObservation(ctx, search.ID)
	changed := err == db.ErrNotFound || (err == nil && previous.ResultHash != hash)
	if err != nil && err != db.ErrNotFound {
		return err
	}

	now := p.now().UTC()
	obs := buildObservation(search.ID, hash, rows, now)
	if _, err := p.store.InsertAwardObservation(ctx, obs); err != nil {
		return err
	}
	if err := p.store.TouchAwardSearch(ctx, search.ID, now, changed); err != nil {
		return err
	}

	if changed && previous != nil {
		p.alertChange(ctx, search, obs)
	}
	return nil
}

func filterRows(rows []Availability, search *db.TrackedAwardSearch) []Availability {
	var kept []Availability
	for _, r := range rows {
		if r.Seats < search.MinSeats {
			continue
		}
		if search.DirectOnly && !r.Direct {
			continue
		}
		if search.CabinPref.Valid && !strings.EqualFold(r.Cabin, search.CabinPref.String) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// HashResults fingerprints a normalized, order-independent view of the
// result set, so reordered upstream responses do not register as changes.
func HashResults(rows []Availability) string {
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = fmt.Sprintf("%s|%s|%s|%d|%d|%t", r.Program, r.Cabin, r.Date, r.Miles, r.Seats, r.Direct)
	}
	sort.Strings(lines)

	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

func buildObservation(searchID int64, hash string, rows []Availability, now time.Time) *db.AwardObservation {
	obs := &db.AwardObservation{
		TrackedSearchID: searchID,
		ObservationUUID: uuid.NewString(),
		ResultHash:      hash,
		ObservedAt:      now,
	}

	programs := make(map[string]bool)
	for _, r := range rows {
		programs[r.Program] = true

		switch strings.ToLower(r.Cabin) {
		case "economy":
			updateCabin(&obs.EconomyBestMiles, &obs.EconomyMaxSeats, r)
		case "business":
			updateCabin(&obs.BusinessBest, &obs.BusinessMaxSeats, r)
		case "first":
			updateCabin(&obs.FirstBest, &obs.FirstMaxSeats, r)
		}
	}

	if len(programs) > 0 {
		names := make([]string, 0, len(programs))
		for p := range programs {
			names = append(names, p)
		}
		sort.Strings(names)
		obs.Programs = sql.NullString{String: strings.Join(names, ","), Valid: true}
	}

	if payload, err := json.Marshal(rows); err == nil {
		obs.RawPayload = sql.NullString{String: string(payload), Valid: true}
	}
	return obs
}

func updateCabin(bestMiles *sql.NullInt64, maxSeats *sql.NullInt32, r Availability) {
	if !bestMiles.Valid || r.Miles < bestMiles.Int64 {
		*bestMiles = sql.NullInt64{Int64: r.Miles, Valid: true}
	}
	if !maxSeats.Valid || int32(r.Seats) > maxSeats.Int32 {
		*maxSeats = sql.NullInt32{Int32: int32(r.Seats), Valid: true}
	}
}

func (p *Poller) alertChange(ctx context.Context, search *db.TrackedAwardSearch, obs *db.AwardObservation) {
	settings, err := p.store.GetUserSettings(ctx)
	if err != nil {
		logger.Error(err, "Could not load settings for award alert")
		return
	}

	body := fmt.Sprintf("Award availability changed for %s → %s", search.Origin, search.Destination)
	if obs.BusinessBest.Valid {
		body += fmt.Sprintf("\nBusiness from %d miles (%d seats)", obs.BusinessBest.Int64, obs.BusinessMaxSeats.Int32)
	}
	if obs.EconomyBestMiles.Valid {
		body += fmt.Sprintf("\nEconomy from %d miles (%d seats)", obs.EconomyBestMiles.Int64, obs.EconomyMaxSeats.Int32)
	}

	_ = p.notifier.SendSystemAlert(ctx, settings,
		fmt.Sprintf("Award Change: %s → %s", search.Origin, search.Destination),
		body, notify.PriorityHigh)
}
