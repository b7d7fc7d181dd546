// Package deals classifies observed prices against their own search
// definition's history using robust statistics. Flight pricing is
// non-stationary and spiky, so the primary signal is a median/MAD z-score
// rather than mean/stddev; an absolute-new-low rule fires independently of
// either.
package deals

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/jesposito/walkabout/config"
	"github.com/jesposito/walkabout/db"
)

// madScale makes MAD comparable to stddev under normality.
const madScale = 1.4826

// Analysis is the full verdict for one candidate price.
type Analysis struct {
	IsDeal       bool
	IsNewLow     bool
	ZScore       float64
	RobustZScore float64
	MeanPrice    float64
	MedianPrice  float64
	StddevPrice  float64
	MADPrice     float64
	PriceVsMean  float64
	PriceVsMedian float64
	Percentile   float64
	HistoryCount int
	Reason       string
}

// HistoryStore is the slice of db.Store the analyzer needs.
type HistoryStore interface {
	GetPriceHistory(ctx context.Context, searchDefID int64, days int) ([]float64, error)
}

// Analyzer evaluates candidate prices against per-definition history.
type Analyzer struct {
	store  HistoryStore
	config config.AnalyzerConfig
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(store HistoryStore, cfg config.AnalyzerConfig) *Analyzer {
	return &Analyzer{store: store, config: cfg}
}

// Analyze loads the definition's history and classifies the price.
func (a *Analyzer) Analyze(ctx context.Context, price *db.FlightPrice) (*Analysis, error) {
	history, err := a.store.GetPriceHistory(ctx, price.SearchDefinitionID, a.config.HistoryDays)
	if err != nil {
		return nil, fmt.Errorf("load price history: %w", err)
	}
	return a.AnalyzeAgainst(price.Price, history), nil
}

// AnalyzeAgainst classifies a price against an explicit history slice.
func (a *Analyzer) AnalyzeAgainst(price float64, history []float64) *Analysis {
	if len(history) < a.config.MinHistoryForAnalysis {
		return &Analysis{
			Percentile:   50,
			HistoryCount: len(history),
			Reason: fmt.Sprintf("Insufficient history (%d < %d)",
				len(history), a.config.MinHistoryForAnalysis),
		}
	}

	mean := mean(history)
	stddev := stddev(history, mean)
	if stddev == 0 {
		stddev = 1
	}
	traditionalZ := (price - mean) / stddev

	med := median(history)
	mad := medianAbsoluteDeviation(history, med)
	robustZ := RobustZScore(price, med, mad)

	percentile := Percentile(price, history)
	newLow := IsAbsoluteNewLow(price, history, a.config.NewLowMarginPct)

	isDeal := robustZ <= a.config.DealThresholdZ || newLow

	var reason string
	switch {
	case newLow:
		reason = fmt.Sprintf("New low price! ($%.0f vs historical min $%.0f)", price, minOf(history))
	case robustZ <= a.config.DealThresholdZ:
		reason = fmt.Sprintf("Price is %.1f MADs below median (robust z=%.2f)", math.Abs(robustZ), robustZ)
	default:
		reason = fmt.Sprintf("Price is within normal range (robust z=%.2f, traditional z=%.2f)", robustZ, traditionalZ)
	}

	return &Analysis{
		IsDeal:        isDeal,
		IsNewLow:      newLow,
		ZScore:        traditionalZ,
		RobustZScore:  robustZ,
		MeanPrice:     mean,
		MedianPrice:   med,
		StddevPrice:   stddev,
		MADPrice:      mad,
		PriceVsMean:   price - mean,
		PriceVsMedian: price - med,
		Percentile:    percentile,
		HistoryCount:  len(history),
		Reason:        reason,
	}
}

// RobustZScore computes (price - median) / scaledMAD where scaledMAD is
// floored at max(1.4826*MAD, 0.01*median, 1.0) to avoid division by zero
// when history is flat.
func RobustZScore(price, med, mad float64) float64 {
	scaled := madScale * mad
	if floor := 0.01 * med; floor > scaled {
		scaled = floor
	}
	if scaled < 1 {
		scaled = 1
	}
	return (price - med) / scaled
}

// Percentile returns the share of history strictly cheaper than the price,
// 0..100. Lower is better: 0 means the cheapest ever seen.
func Percentile(price float64, history []float64) float64 {
	if len(history) == 0 {
		return 50
	}
	atOrAbove := 0
	for _, p := range history {
		if p >= price {
			atOrAbove++
		}
	}
	return 100 - float64(atOrAbove)/float64(len(history))*100
}

// IsAbsoluteNewLow reports whether the price is at or below the historical
// minimum within the margin percentage.
func IsAbsoluteNewLow(price float64, history []float64, marginPct float64) bool {
	if len(history) == 0 {
		return false
	}
	return price <= minOf(history)*(1+marginPct/100)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

func medianAbsoluteDeviation(values []float64, med float64) float64 {
	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = math.Abs(v - med)
	}
	return median(deviations)
}

func stddev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
