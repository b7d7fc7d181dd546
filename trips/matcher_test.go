package trips

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jesposito/walkabout/db"
)

func ns(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nf(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: true}
}

func baseDeal() *db.Deal {
	return &db.Deal{
		RawTitle:       "Auckland to Tokyo return from $899",
		ParsedOrigin:   ns("AKL"),
		ParsedDest:     ns("NRT"),
		ParsedPrice:    nf(899),
		ParsedCurrency: ns("NZD"),
		IsRelevant:     true,
	}
}

func basePlan() *db.TripPlan {
	return &db.TripPlan{
		ID:             1,
		Origins:        ns("AKL"),
		Destinations:   ns("NRT"),
		BudgetCurrency: "NZD",
		IsActive:       true,
	}
}

func TestScoreMatchExactRoute(t *testing.T) {
	t.Parallel()

	score := ScoreMatch(baseDeal(), basePlan())
	// 30 origin + 30 destination, no budget set.
	assert.Equal(t, 60.0, score)
}

func TestScoreMatchSimilarAirports(t *testing.T) {
	t.Parallel()

	// Deal lands at HND; plan asks for NRT. Same metro group.
	deal := baseDeal()
	deal.ParsedDest = ns("HND")

	score := ScoreMatch(deal, basePlan())
	assert.Equal(t, 50.0, score) // 30 origin + 20 similar destination
}

func TestScoreMatchDestinationType(t *testing.T) {
	t.Parallel()

	plan := basePlan()
	plan.Destinations = sql.NullString{}
	plan.DestinationTypes = ns("japan")

	score := ScoreMatch(baseDeal(), plan)
	assert.Equal(t, 55.0, score) // 30 origin + 25 type match
}

func TestScoreMatchNoOriginsIsWildcard(t *testing.T) {
	t.Parallel()

	plan := basePlan()
	plan.Origins = sql.NullString{}

	score := ScoreMatch(baseDeal(), plan)
	assert.Equal(t, 40.0, score) // 10 wildcard origin + 30 destination
}

func TestScoreMatchHardRejects(t *testing.T) {
	t.Parallel()

	// Origin mismatch rejects outright.
	deal := baseDeal()
	deal.ParsedOrigin = ns("SYD")
	assert.Equal(t, 0.0, ScoreMatch(deal, basePlan()))

	// Destination mismatch rejects outright.
	deal = baseDeal()
	deal.ParsedDest = ns("LAX")
	assert.Equal(t, 0.0, ScoreMatch(deal, basePlan()))
}

func TestScoreMatchBudget(t *testing.T) {
	t.Parallel()

	// Under budget: +20 plus savings-scaled bonus.
	plan := basePlan()
	plan.BudgetMax = nf(1800)
	score := ScoreMatch(baseDeal(), plan) // 899 vs 1800: savings ~50%
	assert.InDelta(t, 60+20+10, score, 0.2)

	// Slightly over budget: graded penalty.
	plan.BudgetMax = nf(800)
	score = ScoreMatch(baseDeal(), plan) // 12.4% over
	assert.InDelta(t, 60-3.7, score, 0.2)

	// More than 20% over budget: hard reject.
	plan.BudgetMax = nf(700)
	assert.Equal(t, 0.0, ScoreMatch(baseDeal(), plan))
}

func TestScoreMatchBudgetCurrencyConversion(t *testing.T) {
	t.Parallel()

	// A 550 USD deal against a 1800 NZD budget must convert before
	// comparison (~918 NZD, well under budget).
	deal := baseDeal()
	deal.ParsedPrice = nf(550)
	deal.ParsedCurrency = ns("USD")

	plan := basePlan()
	plan.BudgetMax = nf(1800)

	score := ScoreMatch(deal, plan)
	assert.Greater(t, score, 60.0, "under-budget converted deal earns the budget bonus")
}

func TestScoreMatchCabinBonus(t *testing.T) {
	t.Parallel()

	deal := baseDeal()
	deal.ParsedCabinClass = ns("business")

	plan := basePlan()
	plan.CabinClasses = ns("business,first")

	assert.Equal(t, 70.0, ScoreMatch(deal, plan)) // 60 + 10 cabin
}

func TestAirportsForTypes(t *testing.T) {
	t.Parallel()

	japan := AirportsForTypes([]string{"japan"})
	assert.Contains(t, japan, "NRT")
	assert.Contains(t, japan, "KIX")

	// Overlapping tags deduplicate.
	mixed := AirportsForTypes([]string{"tropical", "pacific_islands"})
	count := 0
	for _, code := range mixed {
		if code == "NAN" {
			count++
		}
	}
	assert.Equal(t, 1, count)

	assert.Empty(t, AirportsForTypes([]string{"atlantis"}))
}

func TestMatchesType(t *testing.T) {
	t.Parallel()

	assert.True(t, MatchesType("NRT", "", []string{"japan"}))
	assert.True(t, MatchesType("", "Cheap flights to Tokyo this spring", []string{"japan"}))
	assert.False(t, MatchesType("LAX", "Los Angeles sale", []string{"japan"}))
}

func TestSimilarAirports(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"HND"}, SimilarAirports("NRT"))
	assert.ElementsMatch(t, []string{"EWR", "LGA"}, SimilarAirports("JFK"))
	assert.Nil(t, SimilarAirports("AKL2"))
}
