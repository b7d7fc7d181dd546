package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// Store defines every query the services need. Components hold this
// interface, never a raw handle, so tests can substitute mocks.
type Store interface {
	// Search definitions
	GetSearchDefinition(ctx context.Context, id int64) (*SearchDefinition, error)
	ListActiveSearchDefinitions(ctx context.Context) ([]SearchDefinition, error)
	CreateSearchDefinition(ctx context.Context, def *SearchDefinition) (int64, error)
	ReviseSearchDefinition(ctx context.Context, def *SearchDefinition) (int64, error)
	SetSearchDefinitionActive(ctx context.Context, id int64, active bool) error

	// Prices. InsertFlightPrices also persists the health row in the same
	// transaction so counters never drift from observations.
	InsertFlightPrices(ctx context.Context, prices []FlightPrice, health *ScrapeHealth) error
	GetPriceHistory(ctx context.Context, searchDefID int64, days int) ([]float64, error)
	ListRecentPrices(ctx context.Context, searchDefID int64, limit int) ([]FlightPrice, error)
	CountRecentPrices(ctx context.Context, searchDefID int64, days int) (int, error)

	// Scrape health
	GetOrCreateScrapeHealth(ctx context.Context, searchDefID int64) (*ScrapeHealth, error)
	SaveScrapeHealth(ctx context.Context, health *ScrapeHealth) error
	MarkStaleAlertSent(ctx context.Context, healthID int64, at time.Time) error

	// Trip plans
	GetTripPlan(ctx context.Context, id int64) (*TripPlan, error)
	ListActiveTripPlans(ctx context.Context) ([]TripPlan, error)
	AcquireTripSearchLock(ctx context.Context, planID int64, staleAfter time.Duration) (bool, error)
	ReleaseTripSearchLock(ctx context.Context, planID int64, searchedAt time.Time) error
	UpdateTripPlanMatchStats(ctx context.Context, planID int64, matchCount int, at time.Time) error

	// Trip plan matches
	DeleteExpiredMatches(ctx context.Context, planID int64, before time.Time) (int64, error)
	FindMatch(ctx context.Context, planID int64, origin, dest string, dep time.Time, ret sql.NullTime) (*TripPlanMatch, error)
	InsertMatch(ctx context.Context, m *TripPlanMatch) (int64, error)
	UpdateMatchPrice(ctx context.Context, m *TripPlanMatch) error
	ListMatchesByPrice(ctx context.Context, planID int64, source string, from time.Time) ([]TripPlanMatch, error)
	UpdateMatchScore(ctx context.Context, id int64, score float64) error
	DeleteMatch(ctx context.Context, id int64) error

	// RSS deals (produced by the feed collaborator, consumed here)
	ListRelevantDeals(ctx context.Context, limit int) ([]Deal, error)
	ListUnratedDeals(ctx context.Context, limit int) ([]Deal, error)
	SetDealRating(ctx context.Context, id int64, rating string, at time.Time) error

	// Award tracking
	ListActiveAwardSearches(ctx context.Context) ([]TrackedAwardSearch, error)
	LatestAwardObservation(ctx context.Context, trackedSearchID int64) (*AwardObservation, error)
	InsertAwardObservation(ctx context.Context, obs *AwardObservation) (int64, error)
	TouchAwardSearch(ctx context.Context, id int64, checkedAt time.Time, changed bool) error

	// Settings (singleton, id=1)
	GetUserSettings(ctx context.Context) (*UserSettings, error)

	Close() error
}

// SQLStore implements Store over *DB.
type SQLStore struct {
	db *DB
}

// NewStore wraps an opened DB.
func NewStore(db *DB) *SQLStore {
	return &SQLStore{db: db}
}

// Close closes the underlying handle.
func (s *SQLStore) Close() error { return s.db.Close() }

const searchDefColumns = `id, origin, destination, trip_type,
	departure_date_start, departure_date_end, departure_days_min, departure_days_max,
	trip_duration_min, trip_duration_max,
	adults, children, infants_in_seat, infants_on_lap,
	cabin_class, stops_filter, currency, locale, carry_on_bags, checked_bags,
	airlines_include, airlines_exclude, is_active, scrape_frequency_hours,
	preferred_source, version, previous_version_id, created_at, updated_at`

func scanSearchDefinition(row interface{ Scan(...any) error }) (*SearchDefinition, error) {
	var d SearchDefinition
	err := row.Scan(
		&d.ID, &d.Origin, &d.Destination, &d.TripType,
		&d.DepartureDateStart, &d.DepartureDateEnd, &d.DepartureDaysMin, &d.DepartureDaysMax,
		&d.TripDurationMin, &d.TripDurationMax,
		&d.Adults, &d.Children, &d.InfantsInSeat, &d.InfantsOnLap,
		&d.CabinClass, &d.StopsFilter, &d.Currency, &d.Locale, &d.CarryOnBags, &d.CheckedBags,
		&d.AirlinesInclude, &d.AirlinesExclude, &d.IsActive, &d.ScrapeFrequencyHrs,
		&d.PreferredSource, &d.Version, &d.PreviousVersionID, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// GetSearchDefinition fetches one definition by id.
func (s *SQLStore) GetSearchDefinition(ctx context.Context, id int64) (*SearchDefinition, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+searchDefColumns+` FROM search_definitions WHERE id = $1`, id)
	return scanSearchDefinition(row)
}

// ListActiveSearchDefinitions returns all active definitions ordered by id.
func (s *SQLStore) ListActiveSearchDefinitions(ctx context.Context) ([]SearchDefinition, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+searchDefColumns+` FROM search_definitions WHERE is_active = TRUE ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []SearchDefinition
	for rows.Next() {
		d, err := scanSearchDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, *d)
	}
	return defs, rows.Err()
}

// CreateSearchDefinition inserts a new version-1 definition.
func (s *SQLStore) CreateSearchDefinition(ctx context.Context, def *SearchDefinition) (int64, error) {
	row := s.db.conn.QueryRowContext(ctx, `INSERT INTO search_definitions
		(origin, destination, trip_type, departure_date_start, departure_date_end,
		 departure_days_min, departure_days_max, trip_duration_min, trip_duration_max,
		 adults, children, infants_in_seat, infants_on_lap, cabin_class, stops_filter,
		 currency, locale, carry_on_bags, checked_bags, airlines_include, airlines_exclude,
		 is_active, scrape_frequency_hours, preferred_source, version, previous_version_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)
		RETURNING id`,
		def.Origin, def.Destination, def.TripType, def.DepartureDateStart, def.DepartureDateEnd,
		def.DepartureDaysMin, def.DepartureDaysMax, def.TripDurationMin, def.TripDurationMax,
		def.Adults, def.Children, def.InfantsInSeat, def.InfantsOnLap, def.CabinClass, def.StopsFilter,
		def.Currency, def.Locale, def.CarryOnBags, def.CheckedBags, def.AirlinesInclude, def.AirlinesExclude,
		def.IsActive, def.ScrapeFrequencyHrs, def.PreferredSource, def.Version, def.PreviousVersionID)

	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("create search definition: %w", err)
	}
	return id, nil
}

// ReviseSearchDefinition creates a new version of an existing definition,
// back-linked to the prior one, and deactivates the prior so new prices
// attach to the new version while old prices stay comparable.
func (s *SQLStore) ReviseSearchDefinition(ctx context.Context, def *SearchDefinition) (int64, error) {
	prior, err := s.GetSearchDefinition(ctx, def.ID)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE search_definitions SET is_active = FALSE, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), prior.ID); err != nil {
		return 0, err
	}

	row := tx.QueryRowContext(ctx, `INSERT INTO search_definitions
		(origin, destination, trip_type, departure_date_start, departure_date_end,
		 departure_days_min, departure_days_max, trip_duration_min, trip_duration_max,
		 adults, children, infants_in_seat, infants_on_lap, cabin_class, stops_filter,
		 currency, locale, carry_on_bags, checked_bags, airlines_include, airlines_exclude,
		 is_active, scrape_frequency_hours, preferred_source, version, previous_version_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)
		RETURNING id`,
		def.Origin, def.Destination, def.TripType, def.DepartureDateStart, def.DepartureDateEnd,
		def.DepartureDaysMin, def.DepartureDaysMax, def.TripDurationMin, def.TripDurationMax,
		def.Adults, def.Children, def.InfantsInSeat, def.InfantsOnLap, def.CabinClass, def.StopsFilter,
		def.Currency, def.Locale, def.CarryOnBags, def.CheckedBags, def.AirlinesInclude, def.AirlinesExclude,
		true, def.ScrapeFrequencyHrs, def.PreferredSource, prior.Version+1,
		sql.NullInt64{Int64: prior.ID, Valid: true})

	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("revise search definition: %w", err)
	}
	return id, tx.Commit()
}

// SetSearchDefinitionActive soft-activates or deactivates a definition.
// Definitions are never hard-deleted while prices reference them.
func (s *SQLStore) SetSearchDefinitionActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE search_definitions SET is_active = $1, updated_at = $2 WHERE id = $3`,
		active, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertFlightPrices stores the scraped rows and the updated health record in
// one transaction.
func (s *SQLStore) InsertFlightPrices(ctx context.Context, prices []FlightPrice, health *ScrapeHealth) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range prices {
		p := &prices[i]
		if _, err := tx.ExecContext(ctx, `INSERT INTO flight_prices
			(search_definition_id, scraped_at, departure_date, return_date, price, total_price,
			 passengers, trip_type, airline, stops, duration_minutes, layover_airports,
			 source, raw_data, confidence, is_suspicious)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			p.SearchDefinitionID, p.ScrapedAt, p.DepartureDate, p.ReturnDate, p.Price, p.TotalPrice,
			p.Passengers, p.TripType, p.Airline, p.Stops, p.DurationMinutes, p.LayoverAirports,
			p.Source, p.RawData, p.Confidence, p.IsSuspicious); err != nil {
			return fmt.Errorf("insert flight price: %w", err)
		}
	}

	if health != nil {
		if err := saveHealthTx(ctx, tx, health); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetPriceHistory returns per-passenger prices for the definition scraped in
// the last N days, excluding suspicious rows.
func (s *SQLStore) GetPriceHistory(ctx context.Context, searchDefID int64, days int) ([]float64, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT price FROM flight_prices
		 WHERE search_definition_id = $1 AND scraped_at >= $2 AND is_suspicious = FALSE`,
		searchDefID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prices []float64
	for rows.Next() {
		var p float64
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

const flightPriceColumns = `id, search_definition_id, scraped_at, departure_date, return_date,
	price, total_price, passengers, trip_type, airline, stops, duration_minutes,
	layover_airports, source, raw_data, confidence, is_suspicious`

func scanFlightPrice(row interface{ Scan(...any) error }) (*FlightPrice, error) {
	var p FlightPrice
	err := row.Scan(&p.ID, &p.SearchDefinitionID, &p.ScrapedAt, &p.DepartureDate, &p.ReturnDate,
		&p.Price, &p.TotalPrice, &p.Passengers, &p.TripType, &p.Airline, &p.Stops, &p.DurationMinutes,
		&p.LayoverAirports, &p.Source, &p.RawData, &p.Confidence, &p.IsSuspicious)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListRecentPrices returns the latest rows for a definition, newest first.
func (s *SQLStore) ListRecentPrices(ctx context.Context, searchDefID int64, limit int) ([]FlightPrice, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+flightPriceColumns+` FROM flight_prices
		 WHERE search_definition_id = $1 ORDER BY scraped_at DESC LIMIT $2`,
		searchDefID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prices []FlightPrice
	for rows.Next() {
		p, err := scanFlightPrice(rows)
		if err != nil {
			return nil, err
		}
		prices = append(prices, *p)
	}
	return prices, rows.Err()
}

// CountRecentPrices counts rows scraped in the last N days.
func (s *SQLStore) CountRecentPrices(ctx context.Context, searchDefID int64, days int) (int, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	var n int
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM flight_prices WHERE search_definition_id = $1 AND scraped_at >= $2`,
		searchDefID, since).Scan(&n)
	return n, err
}

const healthColumns = `id, search_definition_id, total_attempts, total_successes, total_failures,
	consecutive_failures, last_attempt_at, last_success_at, last_failure_at,
	last_failure_reason, last_failure_message, last_screenshot_path, last_html_snapshot_path,
	stale_alert_sent_at, circuit_open, circuit_opened_at, created_at, updated_at`

func scanHealth(row interface{ Scan(...any) error }) (*ScrapeHealth, error) {
	var h ScrapeHealth
	err := row.Scan(&h.ID, &h.SearchDefinitionID, &h.TotalAttempts, &h.TotalSuccesses, &h.TotalFailures,
		&h.ConsecutiveFailures, &h.LastAttemptAt, &h.LastSuccessAt, &h.LastFailureAt,
		&h.LastFailureReason, &h.LastFailureMessage, &h.LastScreenshotPath, &h.LastHTMLSnapshotPath,
		&h.StaleAlertSentAt, &h.CircuitOpen, &h.CircuitOpenedAt, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

// GetOrCreateScrapeHealth fetches the health row for a definition, creating
// an empty one on first use.
func (s *SQLStore) GetOrCreateScrapeHealth(ctx context.Context, searchDefID int64) (*ScrapeHealth, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+healthColumns+` FROM scrape_health WHERE search_definition_id = $1`, searchDefID)
	h, err := scanHealth(row)
	if err == nil {
		return h, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	row = s.db.conn.QueryRowContext(ctx,
		`INSERT INTO scrape_health (search_definition_id, created_at) VALUES ($1, $2) RETURNING id`,
		searchDefID, time.Now().UTC())
	var id int64
	if err := row.Scan(&id); err != nil {
		return nil, fmt.Errorf("create scrape health: %w", err)
	}
	return &ScrapeHealth{ID: id, SearchDefinitionID: searchDefID, CreatedAt: time.Now().UTC()}, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveHealthTx(ctx context.Context, ex execer, h *ScrapeHealth) error {
	_, err := ex.ExecContext(ctx, `UPDATE scrape_health SET
		total_attempts = $1, total_successes = $2, total_failures = $3, consecutive_failures = $4,
		last_attempt_at = $5, last_success_at = $6, last_failure_at = $7,
		last_failure_reason = $8, last_failure_message = $9,
		last_screenshot_path = $10, last_html_snapshot_path = $11,
		stale_alert_sent_at = $12, circuit_open = $13, circuit_opened_at = $14, updated_at = $15
		WHERE id = $16`,
		h.TotalAttempts, h.TotalSuccesses, h.TotalFailures, h.ConsecutiveFailures,
		h.LastAttemptAt, h.LastSuccessAt, h.LastFailureAt,
		h.LastFailureReason, h.LastFailureMessage,
		h.LastScreenshotPath, h.LastHTMLSnapshotPath,
		h.StaleAlertSentAt, h.CircuitOpen, h.CircuitOpenedAt, time.Now().UTC(), h.ID)
	if err != nil {
		return fmt.Errorf("save scrape health: %w", err)
	}
	return nil
}

// SaveScrapeHealth persists the health counters outside a price transaction
// (failure paths have no prices to store).
func (s *SQLStore) SaveScrapeHealth(ctx context.Context, health *ScrapeHealth) error {
	return saveHealthTx(ctx, s.db.conn, health)
}

// MarkStaleAlertSent stamps the stale-data alert time.
func (s *SQLStore) MarkStaleAlertSent(ctx context.Context, healthID int64, at time.Time) error {
	_, err := s.db.conn.ExecContext(ctx,
		`UPDATE scrape_health SET stale_alert_sent_at = $1 WHERE id = $2`, at, healthID)
	return err
}

const tripPlanColumns = `id, name, origins, destinations, destination_types,
	available_from, available_to, trip_duration_min, trip_duration_max,
	budget_max, budget_currency, cabin_classes, travelers_adults, travelers_children,
	check_frequency_hours, is_active, search_in_progress, search_started_at,
	last_search_at, match_count, last_match_at, created_at, updated_at`

func scanTripPlan(row interface{ Scan(...any) error }) (*TripPlan, error) {
	var p TripPlan
	err := row.Scan(&p.ID, &p.Name, &p.Origins, &p.Destinations, &p.DestinationTypes,
		&p.AvailableFrom, &p.AvailableTo, &p.TripDurationMin, &p.TripDurationMax,
		&p.BudgetMax, &p.BudgetCurrency, &p.CabinClasses, &p.TravelersAdults, &p.TravelersChildren,
		&p.CheckFrequencyHrs, &p.IsActive, &p.SearchInProgress, &p.SearchStartedAt,
		&p.LastSearchAt, &p.MatchCount, &p.LastMatchAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetTripPlan fetches one plan by id.
func (s *SQLStore) GetTripPlan(ctx context.Context, id int64) (*TripPlan, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+tripPlanColumns+` FROM trip_plans WHERE id = $1`, id)
	return scanTripPlan(row)
}

// ListActiveTripPlans returns all active plans.
func (s *SQLStore) ListActiveTripPlans(ctx context.Context) ([]TripPlan, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+tripPlanColumns+` FROM trip_plans WHERE is_active = TRUE ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []TripPlan
	for rows.Next() {
		p, err := scanTripPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

// AcquireTripSearchLock takes the soft advisory lock for a plan search. A
// lock whose stamp is older than staleAfter is treated as released.
func (s *SQLStore) AcquireTripSearchLock(ctx context.Context, planID int64, staleAfter time.Duration) (bool, error) {
	now := time.Now().UTC()
	staleBefore := now.Add(-staleAfter)

	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE trip_plans SET search_in_progress = TRUE, search_started_at = $1
		 WHERE id = $2 AND (search_in_progress = FALSE OR search_started_at < $3 OR search_started_at IS NULL)`,
		now, planID, staleBefore)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ReleaseTripSearchLock clears the lock and stamps last_search_at.
func (s *SQLStore) ReleaseTripSearchLock(ctx context.Context, planID int64, searchedAt time.Time) error {
	_, err := s.db.conn.ExecContext(ctx,
		`UPDATE trip_plans SET search_in_progress = FALSE, search_started_at = NULL,
		 last_search_at = $1, updated_at = $1 WHERE id = $2`,
		searchedAt, planID)
	return err
}

// UpdateTripPlanMatchStats stamps the match count after a persist pass.
func (s *SQLStore) UpdateTripPlanMatchStats(ctx context.Context, planID int64, matchCount int, at time.Time) error {
	_, err := s.db.conn.ExecContext(ctx,
		`UPDATE trip_plans SET match_count = $1, last_match_at = $2 WHERE id = $3`,
		matchCount, at, planID)
	return err
}

const matchColumns = `id, trip_plan_id, source, deal_id, origin, destination,
	departure_date, return_date, price_nzd, original_price, original_currency,
	airline, stops, duration_minutes, booking_url, match_score, created_at, updated_at`

func scanMatch(row interface{ Scan(...any) error }) (*TripPlanMatch, error) {
	var m TripPlanMatch
	err := row.Scan(&m.ID, &m.TripPlanID, &m.Source, &m.DealID, &m.Origin, &m.Destination,
		&m.DepartureDate, &m.ReturnDate, &m.PriceNZD, &m.OriginalPrice, &m.OriginalCurrency,
		&m.Airline, &m.Stops, &m.DurationMinutes, &m.BookingURL, &m.MatchScore, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// DeleteExpiredMatches removes matches whose departure is already past.
func (s *SQLStore) DeleteExpiredMatches(ctx context.Context, planID int64, before time.Time) (int64, error) {
	res, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM trip_plan_matches WHERE trip_plan_id = $1 AND departure_date < $2`,
		planID, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FindMatch looks up a match by its natural key.
func (s *SQLStore) FindMatch(ctx context.Context, planID int64, origin, dest string, dep time.Time, ret sql.NullTime) (*TripPlanMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM trip_plan_matches
		WHERE trip_plan_id = $1 AND origin = $2 AND destination = $3 AND departure_date = $4`
	args := []any{planID, origin, dest, dep}
	if ret.Valid {
		query += ` AND return_date = $5`
		args = append(args, ret.Time)
	} else {
		query += ` AND return_date IS NULL`
	}
	return scanMatch(s.db.conn.QueryRowContext(ctx, query, args...))
}

// InsertMatch stores a new match.
func (s *SQLStore) InsertMatch(ctx context.Context, m *TripPlanMatch) (int64, error) {
	row := s.db.conn.QueryRowContext(ctx, `INSERT INTO trip_plan_matches
		(trip_plan_id, source, deal_id, origin, destination, departure_date, return_date,
		 price_nzd, original_price, original_currency, airline, stops, duration_minutes,
		 booking_url, match_score, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING id`,
		m.TripPlanID, m.Source, m.DealID, m.Origin, m.Destination, m.DepartureDate, m.ReturnDate,
		m.PriceNZD, m.OriginalPrice, m.OriginalCurrency, m.Airline, m.Stops, m.DurationMinutes,
		m.BookingURL, m.MatchScore, time.Now().UTC())

	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("insert trip plan match: %w", err)
	}
	return id, nil
}

// UpdateMatchPrice replaces the stored price and flight attributes.
func (s *SQLStore) UpdateMatchPrice(ctx context.Context, m *TripPlanMatch) error {
	_, err := s.db.conn.ExecContext(ctx,
		`UPDATE trip_plan_matches SET price_nzd = $1, airline = $2, stops = $3,
		 duration_minutes = $4, booking_url = $5, updated_at = $6 WHERE id = $7`,
		m.PriceNZD, m.Airline, m.Stops, m.DurationMinutes, m.BookingURL, time.Now().UTC(), m.ID)
	return err
}

// ListMatchesByPrice returns a plan's matches from a source, cheapest first.
func (s *SQLStore) ListMatchesByPrice(ctx context.Context, planID int64, source string, from time.Time) ([]TripPlanMatch, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM trip_plan_matches
		 WHERE trip_plan_id = $1 AND source = $2 AND departure_date >= $3
		 ORDER BY price_nzd`, planID, source, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []TripPlanMatch
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

// UpdateMatchScore stores a recomputed score.
func (s *SQLStore) UpdateMatchScore(ctx context.Context, id int64, score float64) error {
	_, err := s.db.conn.ExecContext(ctx,
		`UPDATE trip_plan_matches SET match_score = $1, updated_at = $2 WHERE id = $3`,
		score, time.Now().UTC(), id)
	return err
}

// DeleteMatch removes one match row.
func (s *SQLStore) DeleteMatch(ctx context.Context, id int64) error {
	_, err := s.db.conn.ExecContext(ctx, `DELETE FROM trip_plan_matches WHERE id = $1`, id)
	return err
}

const dealColumns = `id, raw_title, parsed_origin, parsed_destination, parsed_price,
	parsed_currency, parsed_cabin_class, parsed_airline, travel_dates, parse_status,
	parse_confidence, is_relevant, rating, rated_at, published_at, url`

func scanDeal(row interface{ Scan(...any) error }) (*Deal, error) {
	var d Deal
	err := row.Scan(&d.ID, &d.RawTitle, &d.ParsedOrigin, &d.ParsedDest, &d.ParsedPrice,
		&d.ParsedCurrency, &d.ParsedCabinClass, &d.ParsedAirline, &d.TravelDates, &d.ParseStatus,
		&d.ParseConfidence, &d.IsRelevant, &d.Rating, &d.RatedAt, &d.PublishedAt, &d.URL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (s *SQLStore) queryDeals(ctx context.Context, query string, args ...any) ([]Deal, error) {
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *d)
	}
	return deals, rows.Err()
}

// ListRelevantDeals returns the newest relevant deals.
func (s *SQLStore) ListRelevantDeals(ctx context.Context, limit int) ([]Deal, error) {
	return s.queryDeals(ctx,
		`SELECT `+dealColumns+` FROM deals WHERE is_relevant = TRUE
		 ORDER BY published_at DESC LIMIT $1`, limit)
}

// ListUnratedDeals returns relevant deals that the rating job has not scored.
func (s *SQLStore) ListUnratedDeals(ctx context.Context, limit int) ([]Deal, error) {
	return s.queryDeals(ctx,
		`SELECT `+dealColumns+` FROM deals WHERE is_relevant = TRUE AND rating IS NULL
		 ORDER BY published_at DESC LIMIT $1`, limit)
}

// SetDealRating stores a rating for a deal.
func (s *SQLStore) SetDealRating(ctx context.Context, id int64, rating string, at time.Time) error {
	_, err := s.db.conn.ExecContext(ctx,
		`UPDATE deals SET rating = $1, rated_at = $2 WHERE id = $3`, rating, at, id)
	return err
}

// ListActiveAwardSearches returns award watches to poll.
func (s *SQLStore) ListActiveAwardSearches(ctx context.Context) ([]TrackedAwardSearch, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, origin, destination, programs, date_start, date_end, cabin_pref,
		 min_seats, direct_only, is_active, last_checked_at, last_change_at, created_at
		 FROM tracked_award_searches WHERE is_active = TRUE ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var searches []TrackedAwardSearch
	for rows.Next() {
		var a TrackedAwardSearch
		if err := rows.Scan(&a.ID, &a.Origin, &a.Destination, &a.Programs, &a.DateStart, &a.DateEnd,
			&a.CabinPref, &a.MinSeats, &a.DirectOnly, &a.IsActive, &a.LastCheckedAt,
			&a.LastChangeAt, &a.CreatedAt); err != nil {
			return nil, err
		}
		searches = append(searches, a)
	}
	return searches, rows.Err()
}

// LatestAwardObservation returns the newest observation for a watch.
func (s *SQLStore) LatestAwardObservation(ctx context.Context, trackedSearchID int64) (*AwardObservation, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT id, tracked_search_id, observation_uuid, result_hash,
		 economy_best_miles, economy_max_seats, business_best_miles, business_max_seats,
		 first_best_miles, first_max_seats, programs, raw_payload, observed_at
		 FROM award_observations WHERE tracked_search_id = $1
		 ORDER BY observed_at DESC LIMIT 1`, trackedSearchID)

	var o AwardObservation
	err := row.Scan(&o.ID, &o.TrackedSearchID, &o.ObservationUUID, &o.ResultHash,
		&o.EconomyBestMiles, &o.EconomyMaxSeats, &o.BusinessBest, &o.BusinessMaxSeats,
		&o.FirstBest, &o.FirstMaxSeats, &o.Programs, &o.RawPayload, &o.ObservedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// InsertAwardObservation stores one poll result.
func (s *SQLStore) InsertAwardObservation(ctx context.Context, obs *AwardObservation) (int64, error) {
	row := s.db.conn.QueryRowContext(ctx, `INSERT INTO award_observations
		(tracked_search_id, observation_uuid, result_hash,
		 economy_best_miles, economy_max_seats, business_best_miles, business_max_seats,
		 first_best_miles, first_max_seats, programs, raw_payload, observed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id`,
		obs.TrackedSearchID, obs.ObservationUUID, obs.ResultHash,
		obs.EconomyBestMiles, obs.EconomyMaxSeats, obs.BusinessBest, obs.BusinessMaxSeats,
		obs.FirstBest, obs.FirstMaxSeats, obs.Programs, obs.RawPayload, obs.ObservedAt)

	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("insert award observation: %w", err)
	}
	return id, nil
}

// TouchAwardSearch stamps the last poll, and the last change when the result
// hash moved.
func (s *SQLStore) TouchAwardSearch(ctx context.Context, id int64, checkedAt time.Time, changed bool) error {
	if changed {
		_, err := s.db.conn.ExecContext(ctx,
			`UPDATE tracked_award_searches SET last_checked_at = $1, last_change_at = $1 WHERE id = $2`,
			checkedAt, id)
		return err
	}
	_, err := s.db.conn.ExecContext(ctx,
		`UPDATE tracked_award_searches SET last_checked_at = $1 WHERE id = $2`, checkedAt, id)
	return err
}

// GetUserSettings returns the singleton settings row, creating defaults on
// first access.
func (s *SQLStore) GetUserSettings(ctx context.Context) (*UserSettings, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT id, home_airports, watched_destinations, watched_regions, preferred_currency,
		 notify_provider, notifications_enabled, notify_deals, notify_trips, notify_system,
		 quiet_hours_start, quiet_hours_end, timezone,
		 deal_cooldown_minutes, trip_cooldown_hours, route_cooldown_hours, updated_at
		 FROM user_settings WHERE id = 1`)

	var u UserSettings
	err := row.Scan(&u.ID, &u.HomeAirports, &u.WatchedDestinations, &u.WatchedRegions, &u.PreferredCurrency,
		&u.NotifyProvider, &u.NotificationsEnabled, &u.NotifyDeals, &u.NotifyTrips, &u.NotifySystem,
		&u.QuietHoursStart, &u.QuietHoursEnd, &u.Timezone,
		&u.DealCooldownMinutes, &u.TripCooldownHours, &u.RouteCooldownHours, &u.UpdatedAt)
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if _, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO user_settings (id, preferred_currency) VALUES (1, 'NZD')`); err != nil {
		return nil, fmt.Errorf("create user settings: %w", err)
	}
	return s.GetUserSettings(ctx)
}
