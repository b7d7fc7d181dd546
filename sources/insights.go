package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/jesposito/walkabout/flights"
)

// PriceLevel fetches vendor price insights for a route by running a probe
// search two months out. Only SerpAPI surfaces insights, so it is preferred;
// a successful fetch without insights is still an error for the caller.
func (f *Fetcher) PriceLevel(ctx context.Context, origin, dest string) (string, float64, error) {
	departure := time.Now().UTC().AddDate(0, 0, 60)
	q := flights.Query{
		Origin:        origin,
		Destination:   dest,
		DepartureDate: departure,
		ReturnDate:    departure.AddDate(0, 0, 7),
		Travelers:     flights.Travelers{Adults: 1},
		CabinClass:    flights.Economy,
		StopsFilter:   flights.AnyStops,
		Currency:      "NZD",
	}

	result := f.Fetch(ctx, q, FetchOpts{
		PreferredSource: SourceSerpAPI,
		SkipEnrichment:  true,
	})
	if !result.Success {
		return "", 0, fmt.Errorf("insights probe failed: %s", result.Err)
	}
	if result.Insights == nil {
		return "", 0, fmt.Errorf("no price insights for %s-%s", origin, dest)
	}

	mid := (result.Insights.TypicalPriceLow + result.Insights.TypicalPriceHigh) / 2
	return result.Insights.PriceLevel, mid, nil
}
