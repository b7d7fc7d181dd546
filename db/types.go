package db

import (
	"database/sql"
	"time"
)

// Failure reasons recorded on ScrapeHealth. These mirror the scrape result
// classification exactly so health rows can be joined against artifacts.
const (
	FailureCaptcha      = "captcha"
	FailureTimeout      = "timeout"
	FailureLayoutChange = "layout_change"
	FailureNoResults    = "no_results"
	FailureBlocked      = "blocked"
	FailureNetworkError = "network_error"
	FailureUnknown      = "unknown"
)

// Match sources for TripPlanMatch rows.
const (
	MatchSourceGoogleFlights = "google_flights"
	MatchSourceRSSDeal       = "rss_deal"
	MatchSourceSeatsAero     = "seats_aero"
	MatchSourceAmadeus       = "amadeus"
)

// SearchDefinition is the immutable, versioned bundle of parameters that
// makes two observed prices comparable. Any price-affecting change creates a
// new row with Version+1 and PreviousVersionID pointing back; old prices stay
// tied to the prior version.
type SearchDefinition struct {
	ID                 int64
	Origin             string
	Destination        string
	TripType           string // round_trip, one_way
	DepartureDateStart sql.NullTime
	DepartureDateEnd   sql.NullTime
	DepartureDaysMin   sql.NullInt32
	DepartureDaysMax   sql.NullInt32
	TripDurationMin    sql.NullInt32
	TripDurationMax    sql.NullInt32
	Adults             int
	Children           int
	InfantsInSeat      int
	InfantsOnLap       int
	CabinClass         string
	StopsFilter        string
	Currency           string
	Locale             string
	CarryOnBags        int
	CheckedBags        int
	AirlinesInclude    sql.NullString // comma-separated IATA carrier codes
	AirlinesExclude    sql.NullString
	IsActive           bool
	ScrapeFrequencyHrs int
	PreferredSource    string
	Version            int
	PreviousVersionID  sql.NullInt64
	CreatedAt          time.Time
	UpdatedAt          sql.NullTime
}

// DisplayName is the human route tag used in logs and alerts.
func (s *SearchDefinition) DisplayName() string {
	return s.Origin + " → " + s.Destination
}

// TotalPassengers counts every traveler including infants.
func (s *SearchDefinition) TotalPassengers() int {
	return s.Adults + s.Children + s.InfantsInSeat + s.InfantsOnLap
}

// FlightPrice is a single observed price tied to a search definition.
type FlightPrice struct {
	ID                 int64
	SearchDefinitionID int64
	ScrapedAt          time.Time
	DepartureDate      time.Time
	ReturnDate         sql.NullTime
	Price              float64 // per passenger, in the definition's currency
	TotalPrice         float64
	Passengers         int
	TripType           string
	Airline            sql.NullString
	Stops              int
	DurationMinutes    sql.NullInt32
	LayoverAirports    sql.NullString // comma-joined IATA codes
	Source             string
	RawData            sql.NullString // provider payload, JSON
	Confidence         float64
	IsSuspicious       bool
}

// ScrapeHealth is the 1:1 health record for a search definition.
type ScrapeHealth struct {
	ID                   int64
	SearchDefinitionID   int64
	TotalAttempts        int
	TotalSuccesses       int
	TotalFailures        int
	ConsecutiveFailures  int
	LastAttemptAt        sql.NullTime
	LastSuccessAt        sql.NullTime
	LastFailureAt        sql.NullTime
	LastFailureReason    sql.NullString
	LastFailureMessage   sql.NullString
	LastScreenshotPath   sql.NullString
	LastHTMLSnapshotPath sql.NullString
	StaleAlertSentAt     sql.NullTime
	CircuitOpen          bool
	CircuitOpenedAt      sql.NullTime
	CreatedAt            time.Time
	UpdatedAt            sql.NullTime
}

// circuitBreakerThreshold is the consecutive-failure count that opens the
// circuit and pauses scraping for the definition.
const circuitBreakerThreshold = 5

// SuccessRate returns the lifetime success percentage.
func (h *ScrapeHealth) SuccessRate() float64 {
	if h.TotalAttempts == 0 {
		return 0
	}
	return float64(h.TotalSuccesses) / float64(h.TotalAttempts) * 100
}

// IsHealthy reports whether the definition is scraping normally: circuit
// closed, under 3 consecutive failures, and at least 50% success once 10
// attempts have accumulated.
func (h *ScrapeHealth) IsHealthy() bool {
	if h.CircuitOpen {
		return false
	}
	if h.ConsecutiveFailures >= 3 {
		return false
	}
	if h.TotalAttempts >= 10 && h.SuccessRate() < 50 {
		return false
	}
	return true
}

// RecordSuccess updates counters after a successful scrape and closes the
// circuit if it was open.
func (h *ScrapeHealth) RecordSuccess(now time.Time) {
	h.TotalAttempts++
	h.TotalSuccesses++
	h.ConsecutiveFailures = 0
	h.LastAttemptAt = sql.NullTime{Time: now, Valid: true}
	h.LastSuccessAt = sql.NullTime{Time: now, Valid: true}

	if h.CircuitOpen {
		h.CircuitOpen = false
		h.CircuitOpenedAt = sql.NullTime{}
	}
}

// RecordFailure updates counters after a failed scrape and opens the circuit
// after 5 consecutive failures.
func (h *ScrapeHealth) RecordFailure(now time.Time, reason, message, screenshotPath, htmlPath string) {
	h.TotalAttempts++
	h.TotalFailures++
	h.ConsecutiveFailures++
	h.LastAttemptAt = sql.NullTime{Time: now, Valid: true}
	h.LastFailureAt = sql.NullTime{Time: now, Valid: true}
	h.LastFailureReason = sql.NullString{String: reason, Valid: true}
	h.LastFailureMessage = sql.NullString{String: message, Valid: message != ""}
	h.LastScreenshotPath = sql.NullString{String: screenshotPath, Valid: screenshotPath != ""}
	h.LastHTMLSnapshotPath = sql.NullString{String: htmlPath, Valid: htmlPath != ""}

	if h.ConsecutiveFailures >= circuitBreakerThreshold && !h.CircuitOpen {
		h.CircuitOpen = true
		h.CircuitOpenedAt = sql.NullTime{Time: now, Valid: true}
	}
}

// TripPlan is a flexible search spec: several possible origins and
// destinations (or destination-type tags), a travel window, duration bounds,
// and a budget.
type TripPlan struct {
	ID                 int64
	Name               string
	Origins            sql.NullString // comma-separated IATA; empty = home airports
	Destinations       sql.NullString
	DestinationTypes   sql.NullString // comma-separated tags like "japan"
	AvailableFrom      sql.NullTime
	AvailableTo        sql.NullTime
	TripDurationMin    sql.NullInt32
	TripDurationMax    sql.NullInt32
	BudgetMax          sql.NullFloat64
	BudgetCurrency     string
	CabinClasses       sql.NullString
	TravelersAdults    int
	TravelersChildren  int
	CheckFrequencyHrs  int
	IsActive           bool
	SearchInProgress   bool
	SearchStartedAt    sql.NullTime
	LastSearchAt       sql.NullTime
	MatchCount         int
	LastMatchAt        sql.NullTime
	CreatedAt          time.Time
	UpdatedAt          sql.NullTime
}

// TripPlanMatch is a concrete flight result attached to a plan.
type TripPlanMatch struct {
	ID               int64
	TripPlanID       int64
	Source           string
	DealID           sql.NullInt64
	Origin           string
	Destination      string
	DepartureDate    time.Time
	ReturnDate       sql.NullTime
	PriceNZD         float64
	OriginalPrice    sql.NullFloat64
	OriginalCurrency sql.NullString
	Airline          sql.NullString
	Stops            int
	DurationMinutes  sql.NullInt32
	BookingURL       sql.NullString
	MatchScore       float64
	CreatedAt        time.Time
	UpdatedAt        sql.NullTime
}

// Deal is a parsed RSS-feed deal. Ingestion lives outside the core; the
// matcher and the rating job consume these rows.
type Deal struct {
	ID               int64
	RawTitle         string
	ParsedOrigin     sql.NullString
	ParsedDest       sql.NullString
	ParsedPrice      sql.NullFloat64
	ParsedCurrency   sql.NullString
	ParsedCabinClass sql.NullString
	ParsedAirline    sql.NullString
	TravelDates      sql.NullString
	ParseStatus      string
	ParseConfidence  float64
	IsRelevant       bool
	Rating           sql.NullString
	RatedAt          sql.NullTime
	PublishedAt      time.Time
	URL              sql.NullString
}

// TrackedAwardSearch is an award-availability watch.
type TrackedAwardSearch struct {
	ID             int64
	Origin         string
	Destination    string
	Programs       sql.NullString // comma-separated program slugs
	DateStart      time.Time
	DateEnd        time.Time
	CabinPref      sql.NullString
	MinSeats       int
	DirectOnly     bool
	IsActive       bool
	LastCheckedAt  sql.NullTime
	LastChangeAt   sql.NullTime
	CreatedAt      time.Time
}

// AwardObservation is one poll of an award search. ResultHash fingerprints
// the normalized result set for change detection.
type AwardObservation struct {
	ID               int64
	TrackedSearchID  int64
	ObservationUUID  string
	ResultHash       string
	EconomyBestMiles sql.NullInt64
	EconomyMaxSeats  sql.NullInt32
	BusinessBest     sql.NullInt64
	BusinessMaxSeats sql.NullInt32
	FirstBest        sql.NullInt64
	FirstMaxSeats    sql.NullInt32
	Programs         sql.NullString
	RawPayload       sql.NullString
	ObservedAt       time.Time
}

// UserSettings is the singleton (id=1) user configuration row.
type UserSettings struct {
	ID                   int64
	HomeAirports         sql.NullString // comma-separated IATA
	WatchedDestinations  sql.NullString
	WatchedRegions       sql.NullString
	PreferredCurrency    string
	NotifyProvider       sql.NullString
	NotificationsEnabled bool
	NotifyDeals          bool
	NotifyTrips          bool
	NotifySystem         bool
	QuietHoursStart      sql.NullInt32 // hour of day, user timezone
	QuietHoursEnd        sql.NullInt32
	Timezone             string
	DealCooldownMinutes  int
	TripCooldownHours    int
	RouteCooldownHours   int
	UpdatedAt            sql.NullTime
}
