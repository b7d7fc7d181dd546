package db

import (
	"context"
	"fmt"

	"github.com/jesposito/walkabout/pkg/logger"
)

// pkType returns the auto-increment primary key column for the dialect.
func pkType(d Dialect) string {
	if d == DialectPostgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// tsType returns the timestamp column type for the dialect.
func tsType(d Dialect) string {
	if d == DialectPostgres {
		return "TIMESTAMPTZ"
	}
	return "TIMESTAMP"
}

// Migrate creates the schema idempotently. With TimescaleDB enabled the
// flight_prices table is converted to a hypertable on scraped_at with
// week-sized chunks; failure to convert is logged and ignored so plain
// Postgres keeps working.
func (d *DB) Migrate(ctx context.Context, timescale bool) error {
	pk, ts := pkType(d.dialect), tsType(d.dialect)

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS search_definitions (
			id %s,
			origin VARCHAR(3) NOT NULL,
			destination VARCHAR(3) NOT NULL,
			trip_type VARCHAR(20) NOT NULL DEFAULT 'round_trip',
			departure_date_start %s,
			departure_date_end %s,
			departure_days_min INTEGER,
			departure_days_max INTEGER,
			trip_duration_min INTEGER,
			trip_duration_max INTEGER,
			adults INTEGER NOT NULL DEFAULT 1,
			children INTEGER NOT NULL DEFAULT 0,
			infants_in_seat INTEGER NOT NULL DEFAULT 0,
			infants_on_lap INTEGER NOT NULL DEFAULT 0,
			cabin_class VARCHAR(20) NOT NULL DEFAULT 'economy',
			stops_filter VARCHAR(20) NOT NULL DEFAULT 'any',
			currency VARCHAR(3) NOT NULL DEFAULT 'NZD',
			locale VARCHAR(10) NOT NULL DEFAULT 'en-NZ',
			carry_on_bags INTEGER NOT NULL DEFAULT 0,
			checked_bags INTEGER NOT NULL DEFAULT 0,
			airlines_include TEXT,
			airlines_exclude TEXT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			scrape_frequency_hours INTEGER NOT NULL DEFAULT 12,
			preferred_source VARCHAR(30) NOT NULL DEFAULT 'auto',
			version INTEGER NOT NULL DEFAULT 1,
			previous_version_id BIGINT REFERENCES search_definitions(id),
			created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at %s
		)`, pk, ts, ts, ts, ts),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS flight_prices (
			id %s,
			search_definition_id BIGINT NOT NULL REFERENCES search_definitions(id),
			scraped_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
			departure_date %s NOT NULL,
			return_date %s,
			price DOUBLE PRECISION NOT NULL CHECK (price > 0),
			total_price DOUBLE PRECISION NOT NULL,
			passengers INTEGER NOT NULL DEFAULT 1,
			trip_type VARCHAR(20),
			airline VARCHAR(100),
			stops INTEGER NOT NULL DEFAULT 0,
			duration_minutes INTEGER,
			layover_airports TEXT,
			source VARCHAR(30) NOT NULL DEFAULT 'unknown',
			raw_data TEXT,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 1.0 CHECK (confidence >= 0 AND confidence <= 1),
			is_suspicious BOOLEAN NOT NULL DEFAULT FALSE
		)`, pk, ts, ts, ts),

		`CREATE INDEX IF NOT EXISTS idx_flight_prices_def_dep ON flight_prices (search_definition_id, departure_date)`,
		`CREATE INDEX IF NOT EXISTS idx_flight_prices_scraped ON flight_prices (scraped_at)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS scrape_health (
			id %s,
			search_definition_id BIGINT NOT NULL UNIQUE REFERENCES search_definitions(id) ON DELETE CASCADE,
			total_attempts INTEGER NOT NULL DEFAULT 0,
			total_successes INTEGER NOT NULL DEFAULT 0,
			total_failures INTEGER NOT NULL DEFAULT 0,
			consecutive_failures INTEGER NOT NULL DEFAULT 0,
			last_attempt_at %s,
			last_success_at %s,
			last_failure_at %s,
			last_failure_reason VARCHAR(50),
			last_failure_message TEXT,
			last_screenshot_path VARCHAR(500),
			last_html_snapshot_path VARCHAR(500),
			stale_alert_sent_at %s,
			circuit_open BOOLEAN NOT NULL DEFAULT FALSE,
			circuit_opened_at %s,
			created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at %s
		)`, pk, ts, ts, ts, ts, ts, ts, ts),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS trip_plans (
			id %s,
			name VARCHAR(200) NOT NULL,
			origins TEXT,
			destinations TEXT,
			destination_types TEXT,
			available_from %s,
			available_to %s,
			trip_duration_min INTEGER,
			trip_duration_max INTEGER,
			budget_max DOUBLE PRECISION,
			budget_currency VARCHAR(3) NOT NULL DEFAULT 'NZD',
			cabin_classes TEXT,
			travelers_adults INTEGER NOT NULL DEFAULT 2,
			travelers_children INTEGER NOT NULL DEFAULT 0,
			check_frequency_hours INTEGER NOT NULL DEFAULT 6,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			search_in_progress BOOLEAN NOT NULL DEFAULT FALSE,
			search_started_at %s,
			last_search_at %s,
			match_count INTEGER NOT NULL DEFAULT 0,
			last_match_at %s,
			created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at %s
		)`, pk, ts, ts, ts, ts, ts, ts, ts),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS trip_plan_matches (
			id %s,
			trip_plan_id BIGINT NOT NULL REFERENCES trip_plans(id) ON DELETE CASCADE,
			source VARCHAR(30) NOT NULL,
			deal_id BIGINT,
			origin VARCHAR(3) NOT NULL,
			destination VARCHAR(3) NOT NULL,
			departure_date %s NOT NULL,
			return_date %s,
			price_nzd DOUBLE PRECISION NOT NULL,
			original_price DOUBLE PRECISION,
			original_currency VARCHAR(3),
			airline VARCHAR(100),
			stops INTEGER NOT NULL DEFAULT 0,
			duration_minutes INTEGER,
			booking_url TEXT,
			match_score DOUBLE PRECISION NOT NULL DEFAULT 50,
			created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at %s
		)`, pk, ts, ts, ts, ts),

		`CREATE INDEX IF NOT EXISTS idx_trip_plan_matches_plan ON trip_plan_matches (trip_plan_id, price_nzd)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS deals (
			id %s,
			raw_title TEXT NOT NULL,
			parsed_origin VARCHAR(3),
			parsed_destination VARCHAR(3),
			parsed_price DOUBLE PRECISION,
			parsed_currency VARCHAR(3),
			parsed_cabin_class VARCHAR(20),
			parsed_airline VARCHAR(100),
			travel_dates TEXT,
			parse_status VARCHAR(20) NOT NULL DEFAULT 'pending',
			parse_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			is_relevant BOOLEAN NOT NULL DEFAULT FALSE,
			rating VARCHAR(20),
			rated_at %s,
			published_at %s NOT NULL,
			url TEXT
		)`, pk, ts, ts),

		`CREATE INDEX IF NOT EXISTS idx_deals_route ON deals (parsed_origin, parsed_destination)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS tracked_award_searches (
			id %s,
			origin VARCHAR(3) NOT NULL,
			destination VARCHAR(3) NOT NULL,
			programs TEXT,
			date_start %s NOT NULL,
			date_end %s NOT NULL,
			cabin_pref VARCHAR(20),
			min_seats INTEGER NOT NULL DEFAULT 1,
			direct_only BOOLEAN NOT NULL DEFAULT FALSE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			last_checked_at %s,
			last_change_at %s,
			created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, pk, ts, ts, ts, ts, ts),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS award_observations (
			id %s,
			tracked_search_id BIGINT NOT NULL REFERENCES tracked_award_searches(id) ON DELETE CASCADE,
			observation_uuid VARCHAR(36) NOT NULL,
			result_hash VARCHAR(64) NOT NULL,
			economy_best_miles BIGINT,
			economy_max_seats INTEGER,
			business_best_miles BIGINT,
			business_max_seats INTEGER,
			first_best_miles BIGINT,
			first_max_seats INTEGER,
			programs TEXT,
			raw_payload TEXT,
			observed_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, pk, ts),

		`CREATE INDEX IF NOT EXISTS idx_award_obs_search ON award_observations (tracked_search_id, observed_at)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS user_settings (
			id %s,
			home_airports TEXT,
			watched_destinations TEXT,
			watched_regions TEXT,
			preferred_currency VARCHAR(3) NOT NULL DEFAULT 'NZD',
			notify_provider VARCHAR(30),
			notifications_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			notify_deals BOOLEAN NOT NULL DEFAULT TRUE,
			notify_trips BOOLEAN NOT NULL DEFAULT TRUE,
			notify_system BOOLEAN NOT NULL DEFAULT TRUE,
			quiet_hours_start INTEGER,
			quiet_hours_end INTEGER,
			timezone VARCHAR(50) NOT NULL DEFAULT 'Pacific/Auckland',
			deal_cooldown_minutes INTEGER NOT NULL DEFAULT 60,
			trip_cooldown_hours INTEGER NOT NULL DEFAULT 6,
			route_cooldown_hours INTEGER NOT NULL DEFAULT 24,
			updated_at %s
		)`, pk, ts),
	}

	for _, stmt := range stmts {
		if _, err := d.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	if timescale && d.dialect == DialectPostgres {
		_, err := d.conn.ExecContext(ctx,
			`SELECT create_hypertable('flight_prices', 'scraped_at',
				chunk_time_interval => INTERVAL '7 days', if_not_exists => TRUE,
				migrate_data => TRUE)`)
		if err != nil {
			logger.Warn("TimescaleDB hypertable not created, continuing on plain Postgres", "error", err)
		}
	}

	return nil
}
