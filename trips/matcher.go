package trips

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/jesposito/walkabout/currency"
	"github.com/jesposito/walkabout/db"
)

// Matcher scores RSS deals against trip plans on a 0-100 relevance scale.
type Matcher struct {
	store db.Store
}

// NewMatcher creates a matcher.
func NewMatcher(store db.Store) *Matcher {
	return &Matcher{store: store}
}

// PlanScore pairs a plan with its match score for one deal.
type PlanScore struct {
	Plan  db.TripPlan
	Score float64
}

// MatchDealToPlans scores a deal against every active plan and returns the
// non-zero matches, best first.
func (m *Matcher) MatchDealToPlans(ctx context.Context, deal *db.Deal) ([]PlanScore, error) {
	plans, err := m.store.ListActiveTripPlans(ctx)
	if err != nil {
		return nil, err
	}

	var matches []PlanScore
	for _, plan := range plans {
		score := ScoreMatch(deal, &plan)
		if score > 0 {
			matches = append(matches, PlanScore{Plan: plan, Score: score})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches, nil
}

// ScoreMatch computes the relevance of a deal to a plan. Both an origin and
// a destination match are required for any non-zero score; budget overruns
// beyond 20% hard-reject.
func ScoreMatch(deal *db.Deal, plan *db.TripPlan) float64 {
	score := 0.0

	dealOrigin := strings.ToUpper(deal.ParsedOrigin.String)
	dealDest := strings.ToUpper(deal.ParsedDest.String)
	planOrigins := splitList(plan.Origins)
	planDests := splitList(plan.Destinations)
	planTypes := splitList(plan.DestinationTypes)

	originMatch := false
	if len(planOrigins) > 0 {
		if containsCode(planOrigins, dealOrigin) {
			originMatch = true
			score += 30
		} else {
			for _, po := range planOrigins {
				if containsCode(SimilarAirports(po), dealOrigin) {
					originMatch = true
					score += 15
					break
				}
			}
		}
	} else {
		originMatch = true
		score += 10
	}

	destMatch := false
	if len(planDests) > 0 {
		if containsCode(planDests, dealDest) {
			destMatch = true
			score += 30
		} else {
			for _, pd := range planDests {
				if containsCode(SimilarAirports(pd), dealDest) {
					destMatch = true
					score += 20
					break
				}
			}
		}
	}
	if !destMatch && len(planTypes) > 0 && MatchesType(dealDest, deal.RawTitle, planTypes) {
		destMatch = true
		score += 25
	}
	if len(planDests) == 0 && len(planTypes) == 0 {
		destMatch = true
		score += 10
	}

	if !originMatch || !destMatch {
		return 0
	}

	if plan.BudgetMax.Valid && deal.ParsedPrice.Valid {
		dealPrice := deal.ParsedPrice.Float64
		dealCurrency := deal.ParsedCurrency.String
		if dealCurrency == "" {
			dealCurrency = "USD"
		}

		if dealCurrency != plan.BudgetCurrency {
			if converted, ok := currency.ConvertFallback(dealPrice, dealCurrency, plan.BudgetCurrency); ok {
				dealPrice = converted
			}
		}

		budget := plan.BudgetMax.Float64
		if dealPrice <= budget {
			savingsPct := (budget - dealPrice) / budget
			score += 20 + savingsPct*20
		} else {
			overPct := (dealPrice - budget) / budget
			if overPct > 0.2 {
				return 0
			}
			score -= overPct * 30
		}
	}

	if plan.CabinClasses.Valid {
		dealCabin := strings.ToLower(deal.ParsedCabinClass.String)
		if dealCabin == "" {
			dealCabin = "economy"
		}
		for _, c := range splitList(plan.CabinClasses) {
			if strings.EqualFold(c, dealCabin) {
				score += 10
				break
			}
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

// splitList parses a comma-separated nullable column into trimmed values.
func splitList(s sql.NullString) []string {
	if !s.Valid || strings.TrimSpace(s.String) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s.String, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsCode(codes []string, code string) bool {
	if code == "" {
		return false
	}
	for _, c := range codes {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}
