package trips

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jesposito/walkabout/airports"
	"github.com/jesposito/walkabout/config"
	"github.com/jesposito/walkabout/db"
	"github.com/jesposito/walkabout/flights"
	"github.com/jesposito/walkabout/pkg/logger"
	"github.com/jesposito/walkabout/sources"
)

// Search-window policy: Google Flights carries fares roughly ten months out,
// and dates inside two weeks are rarely deal material.
const (
	minLeadDays = 14
	maxLeadDays = 300
)

// pseudoKeyFactor derives the artifact key for trip-plan searches so browser
// failure artifacts never collide with real search-definition ids.
const pseudoKeyFactor = 10000

// Fetcher is the slice of sources.Fetcher the search service needs.
type Fetcher interface {
	Fetch(ctx context.Context, q flights.Query, opts sources.FetchOpts) sources.FetchResult
}

// SearchResult is one concrete flight found for a plan.
type SearchResult struct {
	Origin          string
	Destination     string
	DepartureDate   time.Time
	ReturnDate      time.Time
	Price           float64
	Airline         string
	Stops           int
	DurationMinutes int
	BookingURL      string
}

// SearchSummary reports one plan search run.
type SearchSummary struct {
	TripPlanID         int64
	SearchesAttempted  int
	SearchesSuccessful int
	Results            []SearchResult
	Errors             []string
	Message            string
}

// SearchService expands trip plans into concrete searches, executes them
// through the price fetcher, and persists the best matches.
type SearchService struct {
	store   db.Store
	fetcher Fetcher
	catalog *airports.Catalog
	cfg     config.TripConfig

	now   func() time.Time
	sleep func(time.Duration)
}

// NewSearchService wires the service. catalog may be nil, which skips
// destination-code validation.
func NewSearchService(store db.Store, fetcher Fetcher, catalog *airports.Catalog, cfg config.TripConfig) *SearchService {
	return &SearchService{
		store:   store,
		fetcher: fetcher,
		catalog: catalog,
		cfg:     cfg,
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// SearchPlan runs the full pipeline for one plan. The plan's
// search_in_progress column is a soft lock with a timeout; a concurrent or
// crashed search older than the timeout is taken over.
func (s *SearchService) SearchPlan(ctx context.Context, planID int64) (*SearchSummary, error) {
	acquired, err := s.store.AcquireTripSearchLock(ctx, planID, s.cfg.LockTimeout)
	if err != nil {
		return nil, fmt.Errorf("acquire trip search lock: %w", err)
	}
	if !acquired {
		return &SearchSummary{TripPlanID: planID, Message: "search already in progress"}, nil
	}
	defer func() {
		if err := s.store.ReleaseTripSearchLock(context.WithoutCancel(ctx), planID, s.now().UTC()); err != nil {
			logger.Error(err, "Could not release trip search lock", "trip_plan_id", planID)
		}
	}()

	plan, err := s.store.GetTripPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("load trip plan %d: %w", planID, err)
	}

	settings, err := s.store.GetUserSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load user settings: %w", err)
	}

	origins := s.origins(plan, settings)
	destinations := s.destinations(plan)
	if len(destinations) == 0 {
		return &SearchSummary{TripPlanID: planID,
			Message: "no destinations configured, add destination types or specific destinations"}, nil
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	dateCombos, message := GenerateDateCombos(plan, today)
	if len(dateCombos) == 0 {
		return &SearchSummary{TripPlanID: planID, Message: message}, nil
	}

	combos := s.searchCombos(origins, destinations, dateCombos)

	summary := &SearchSummary{TripPlanID: planID, SearchesAttempted: len(combos)}
	var all []SearchResult

	for i, combo := range combos {
		query := flights.Query{
			Origin:        combo.origin,
			Destination:   combo.dest,
			DepartureDate: combo.departure,
			ReturnDate:    combo.ret,
			Travelers: flights.Travelers{
				Adults:   orDefault(plan.TravelersAdults, 2),
				Children: plan.TravelersChildren,
			},
			CabinClass:  flights.Economy,
			StopsFilter: flights.AnyStops,
			Currency:    plan.BudgetCurrency,
		}

		logger.Info("Trip plan search", "trip_plan_id", planID,
			"route", query.Route(), "departure", combo.departure.Format(time.DateOnly))

		result := s.fetcher.Fetch(ctx, query, sources.FetchOpts{
			ArtifactKey:    planID*pseudoKeyFactor + int64(i),
			SkipEnrichment: true,
		})

		if result.Success {
			summary.SearchesSuccessful++
			for _, p := range result.Prices {
				all = append(all, SearchResult{
					Origin:          combo.origin,
					Destination:     combo.dest,
					DepartureDate:   combo.departure,
					ReturnDate:      combo.ret,
					Price:           p.Amount,
					Airline:         p.Airline,
					Stops:           p.Stops,
					DurationMinutes: p.DurationMinutes,
					BookingURL:      flights.BuildURL(query),
				})
			}
		} else if result.Err != "" {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %s", query.Route(), result.Err))
		}

		if i < len(combos)-1 {
			s.sleep(s.cfg.SearchDelay)
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Price < all[j].Price })

	if plan.BudgetMax.Valid {
		all = filterInPlace(all, func(r SearchResult) bool { return r.Price <= plan.BudgetMax.Float64 })
	}
	all = filterInPlace(all, PassesSanityCheck)

	top := keepTopPerDestination(all, s.cfg.TopPerDestination)
	summary.Results = top

	if err := s.persistMatches(ctx, plan, top); err != nil {
		logger.Error(err, "Could not persist trip plan matches", "trip_plan_id", planID)
		summary.Errors = append(summary.Errors, err.Error())
	}

	if len(summary.Errors) > 5 {
		summary.Errors = summary.Errors[:5]
	}
	return summary, nil
}

func (s *SearchService) origins(plan *db.TripPlan, settings *db.UserSettings) []string {
	if origins := splitList(plan.Origins); len(origins) > 0 {
		return upperAll(origins)
	}
	if home := splitList(settings.HomeAirports); len(home) > 0 {
		return upperAll(home)
	}
	return []string{"AKL"}
}

func (s *SearchService) destinations(plan *db.TripPlan) []string {
	seen := make(map[string]bool)
	var dests []string

	for _, d := range upperAll(splitList(plan.Destinations)) {
		if s.catalog != nil && !s.catalog.Known(d) {
			logger.Warn("Skipping unknown destination code", "trip_plan_id", plan.ID, "code", d)
			continue
		}
		if !seen[d] {
			seen[d] = true
			dests = append(dests, d)
		}
	}
	for _, d := range AirportsForTypes(splitList(plan.DestinationTypes)) {
		if !seen[d] {
			seen[d] = true
			dests = append(dests, d)
		}
	}
	return dests
}

type searchCombo struct {
	origin    string
	dest      string
	departure time.Time
	ret       time.Time
}

// searchCombos builds primary-origin x destination x date combinations,
// middle dates first, capped at the per-plan maximum.
func (s *SearchService) searchCombos(origins, dests []string, dates []DateCombo) []searchCombo {
	origin := origins[0]

	order := []int{0}
	if len(dates) > 1 {
		order = []int{1, 0, 2}
	}

	var combos []searchCombo
	for _, dateIdx := range order {
		if dateIdx >= len(dates) {
			continue
		}
		d := dates[dateIdx]
		for _, dest := range dests {
			if dest == origin {
				continue
			}
			combos = append(combos, searchCombo{origin: origin, dest: dest, departure: d.Departure, ret: d.Return})
			if len(combos) >= s.cfg.MaxSearchesPerPlan {
				return combos
			}
		}
	}
	return combos
}

// DateCombo is one synthesized (departure, return) pair.
type DateCombo struct {
	Departure time.Time
	Return    time.Time
}

// GenerateDateCombos computes the effective searchable window and spreads up
// to five date pairs across it using the duration midpoint. An unusable
// window returns an explanatory message instead.
func GenerateDateCombos(plan *db.TripPlan, today time.Time) ([]DateCombo, string) {
	start := today.AddDate(0, 0, 60)
	end := today.AddDate(0, 0, 90)
	if plan.AvailableFrom.Valid && plan.AvailableTo.Valid {
		start = plan.AvailableFrom.Time
		end = plan.AvailableTo.Time
	}

	minSearch := today.AddDate(0, 0, minLeadDays)
	maxSearch := today.AddDate(0, 0, maxLeadDays)

	if start.After(maxSearch) {
		daysUntil := int(start.Sub(today).Hours() / 24)
		return nil, fmt.Sprintf(
			"trip starts %s (%d days away); fares are only published ~10 months out, monitoring begins when dates become available",
			start.Format("Jan 2, 2006"), daysUntil)
	}

	effectiveStart := maxTime(start, minSearch)
	effectiveEnd := minTime(end, maxSearch)
	if effectiveStart.After(effectiveEnd) {
		return nil, "no overlap between the travel window and searchable dates (next 10 months)"
	}

	minDays, maxDays := 5, 14
	if plan.TripDurationMin.Valid {
		minDays = int(plan.TripDurationMin.Int32)
	}
	if plan.TripDurationMax.Valid {
		maxDays = int(plan.TripDurationMax.Int32)
	}
	midDays := (minDays + maxDays) / 2

	windowDays := int(effectiveEnd.Sub(effectiveStart).Hours() / 24)
	if windowDays < midDays {
		return nil, fmt.Sprintf("searchable window (%d days) is shorter than the typical trip duration (%d days)",
			windowDays, midDays)
	}

	var combos []DateCombo
	add := func(dep time.Time) {
		ret := dep.AddDate(0, 0, midDays)
		if ret.After(effectiveEnd) {
			return
		}
		for _, c := range combos {
			if c.Departure.Equal(dep) {
				return
			}
		}
		combos = append(combos, DateCombo{Departure: dep, Return: ret})
	}

	add(effectiveStart.AddDate(0, 0, 14))

	switch {
	case windowDays > 60:
		add(effectiveStart.AddDate(0, 0, windowDays/3))
		add(effectiveStart.AddDate(0, 0, windowDays*2/3))
	case windowDays > 30:
		add(effectiveStart.AddDate(0, 0, windowDays/2))
	}

	if len(combos) > 5 {
		combos = combos[:5]
	}
	if len(combos) == 0 {
		return nil, "no date combination fits inside the searchable window"
	}
	return combos, ""
}

// PassesSanityCheck drops plausibly bogus results: free fares, international
// hops priced like bus tickets, and zero-duration nonstops.
func PassesSanityCheck(r SearchResult) bool {
	if r.Price <= 0 {
		return false
	}
	// Different leading letter is a cheap cross-region proxy; international
	// fares under 200 are almost always extraction errors.
	if r.Origin[:1] != r.Destination[:1] && r.Price < 200 {
		return false
	}
	if r.Stops == 0 && r.DurationMinutes == 0 && r.Price < 500 {
		return false
	}
	return true
}

func keepTopPerDestination(results []SearchResult, topN int) []SearchResult {
	if topN <= 0 {
		topN = 3
	}
	counts := make(map[string]int)
	var top []SearchResult
	for _, r := range results {
		if counts[r.Destination] < topN {
			counts[r.Destination]++
			top = append(top, r)
		}
	}
	return top
}

// persistMatches upserts the results by natural key (replacing a stored
// price only when strictly lower), purges expired matches, rescores the
// survivors by rank with budget bonuses, and trims to the per-plan cap.
func (s *SearchService) persistMatches(ctx context.Context, plan *db.TripPlan, results []SearchResult) error {
	now := s.now().UTC()
	today := now.Truncate(24 * time.Hour)

	if expired, err := s.store.DeleteExpiredMatches(ctx, plan.ID, today); err != nil {
		return fmt.Errorf("delete expired matches: %w", err)
	} else if expired > 0 {
		logger.Info("Removed expired trip plan matches", "trip_plan_id", plan.ID, "expired", expired)
	}

	for _, r := range results {
		var ret sql.NullTime
		if !r.ReturnDate.IsZero() {
			ret = sql.NullTime{Time: r.ReturnDate, Valid: true}
		}

		existing, err := s.store.FindMatch(ctx, plan.ID, r.Origin, r.Destination, r.DepartureDate, ret)
		switch {
		case err == nil:
			if r.Price < existing.PriceNZD {
				existing.PriceNZD = r.Price
				existing.Airline = sql.NullString{String: r.Airline, Valid: r.Airline != ""}
				existing.Stops = r.Stops
				existing.DurationMinutes = sql.NullInt32{Int32: int32(r.DurationMinutes), Valid: r.DurationMinutes > 0}
				existing.BookingURL = sql.NullString{String: r.BookingURL, Valid: r.BookingURL != ""}
				if err := s.store.UpdateMatchPrice(ctx, existing); err != nil {
					return fmt.Errorf("update match price: %w", err)
				}
			}
		case err == db.ErrNotFound:
			match := &db.TripPlanMatch{
				TripPlanID:      plan.ID,
				Source:          db.MatchSourceGoogleFlights,
				Origin:          r.Origin,
				Destination:     r.Destination,
				DepartureDate:   r.DepartureDate,
				ReturnDate:      ret,
				PriceNZD:        r.Price,
				Airline:         sql.NullString{String: r.Airline, Valid: r.Airline != ""},
				Stops:           r.Stops,
				DurationMinutes: sql.NullInt32{Int32: int32(r.DurationMinutes), Valid: r.DurationMinutes > 0},
				BookingURL:      sql.NullString{String: r.BookingURL, Valid: r.BookingURL != ""},
				MatchScore:      50,
			}
			if _, err := s.store.InsertMatch(ctx, match); err != nil {
				return fmt.Errorf("insert match: %w", err)
			}
		default:
			return fmt.Errorf("find match: %w", err)
		}
	}

	// Rescore all surviving matches by rank; trim beyond the cap.
	matches, err := s.store.ListMatchesByPrice(ctx, plan.ID, db.MatchSourceGoogleFlights, today)
	if err != nil {
		return fmt.Errorf("list matches: %w", err)
	}

	kept := 0
	for i, match := range matches {
		if i >= s.cfg.MaxMatchesPerPlan {
			if err := s.store.DeleteMatch(ctx, match.ID); err != nil {
				return fmt.Errorf("trim match: %w", err)
			}
			continue
		}
		kept++

		score := ScoreByRank(i, match.PriceNZD, plan.BudgetMax)
		if err := s.store.UpdateMatchScore(ctx, match.ID, score); err != nil {
			return fmt.Errorf("rescore match: %w", err)
		}
	}

	if err := s.store.UpdateTripPlanMatchStats(ctx, plan.ID, kept, now); err != nil {
		return fmt.Errorf("update plan match stats: %w", err)
	}
	return nil
}

// ScoreByRank computes base 90 - 3*rank, plus 10 when the price is under
// half the budget and 5 when under three quarters, clamped to [0,100].
func ScoreByRank(rank int, price float64, budget sql.NullFloat64) float64 {
	score := 90.0 - 3.0*float64(rank)
	if budget.Valid {
		switch {
		case price < budget.Float64*0.5:
			score += 10
		case price < budget.Float64*0.75:
			score += 5
		}
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func upperAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(v)
	}
	return out
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func filterInPlace(results []SearchResult, keep func(SearchResult) bool) []SearchResult {
	filtered := results[:0]
	for _, r := range results {
		if keep(r) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
