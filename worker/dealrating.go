package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jesposito/walkabout/config"
	"github.com/jesposito/walkabout/currency"
	"github.com/jesposito/walkabout/db"
	"github.com/jesposito/walkabout/pkg/logger"
	"github.com/jesposito/walkabout/trips"
)

// Deal rating labels.
const (
	RatingGreat  = "great"
	RatingGood   = "good"
	RatingDecent = "decent"
	RatingPoor   = "poor"
)

// dealRatingBatch bounds one rating pass.
const dealRatingBatch = 50

// InsightsLookup optionally fetches vendor price insights for a route. The
// fetcher provides it; rating still works without one.
type InsightsLookup interface {
	PriceLevel(ctx context.Context, origin, dest string) (level string, typicalMid float64, err error)
}

// DealRater scores unrated RSS deals against the user's trip plans and
// vendor price insights.
type DealRater struct {
	store    db.Store
	insights InsightsLookup
	cfg      config.AnalyzerConfig

	now func() time.Time
}

// NewDealRater wires the rater; insights may be nil.
func NewDealRater(store db.Store, insights InsightsLookup, cfg config.AnalyzerConfig) *DealRater {
	return &DealRater{store: store, insights: insights, cfg: cfg, now: time.Now}
}

// RateUnrated scores a batch of unrated relevant deals.
func (r *DealRater) RateUnrated(ctx context.Context) error {
	unrated, err := r.store.ListUnratedDeals(ctx, dealRatingBatch)
	if err != nil {
		return fmt.Errorf("list unrated deals: %w", err)
	}
	if len(unrated) == 0 {
		return nil
	}

	plans, err := r.store.ListActiveTripPlans(ctx)
	if err != nil {
		return fmt.Errorf("list trip plans: %w", err)
	}

	now := r.now().UTC()
	for i := range unrated {
		deal := &unrated[i]
		rating := r.rate(ctx, deal, plans)
		if err := r.store.SetDealRating(ctx, deal.ID, rating, now); err != nil {
			logger.Error(err, "Could not store deal rating", "deal_id", deal.ID)
			continue
		}
		logger.Debug("Rated deal", "deal_id", deal.ID, "rating", rating)
	}

	logger.Info("Deal rating pass complete", "rated", len(unrated))
	return nil
}

// rate combines the best trip-plan match score with an insights-driven
// savings signal. A marginal savings is promoted to decent when the vendor
// reports the route's price level as low; the promotion threshold is the
// tunable InsightsPromotionSavPct.
func (r *DealRater) rate(ctx context.Context, deal *db.Deal, plans []db.TripPlan) string {
	best := 0.0
	for i := range plans {
		if score := trips.ScoreMatch(deal, &plans[i]); score > best {
			best = score
		}
	}

	rating := RatingPoor
	switch {
	case best >= 80:
		rating = RatingGreat
	case best >= 60:
		rating = RatingGood
	case best >= 40:
		rating = RatingDecent
	}

	if rating != RatingPoor || r.insights == nil || !deal.ParsedPrice.Valid {
		return rating
	}

	origin := deal.ParsedOrigin.String
	dest := deal.ParsedDest.String
	if origin == "" || dest == "" {
		return rating
	}

	level, typicalMid, err := r.insights.PriceLevel(ctx, origin, dest)
	if err != nil || typicalMid <= 0 {
		return rating
	}

	price := deal.ParsedPrice.Float64
	if cur := deal.ParsedCurrency.String; cur != "" && cur != "NZD" {
		if converted, ok := currency.ConvertFallback(price, cur, "NZD"); ok {
			price = converted
		}
	}

	savingsPct := (typicalMid - price) / typicalMid * 100
	if level == "low" && savingsPct >= r.cfg.InsightsPromotionSavPct {
		return RatingDecent
	}
	return rating
}
