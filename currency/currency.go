// Package currency converts amounts between currencies using a 6-hour-TTL
// in-memory rate table with single-flight refresh and a small hard-coded
// fallback when the upstream is unreachable.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jesposito/walkabout/pkg/logger"
)

const (
	ratesURL = "https://api.exchangerate-api.com/v4/latest/USD"
	cacheTTL = 6 * time.Hour
)

// fallbackRates are USD-based rates used when no live table is available.
var fallbackRates = map[string]float64{
	"USD": 1.0, "EUR": 0.92, "GBP": 0.79, "NZD": 1.67, "AUD": 1.53,
	"CAD": 1.36, "SGD": 1.34, "JPY": 149.5, "CHF": 0.88, "HKD": 7.82,
	"CNY": 7.24, "KRW": 1320.0, "THB": 35.5, "MYR": 4.47, "PHP": 56.2,
	"INR": 83.1, "IDR": 15800.0, "VND": 24500.0, "MXN": 17.1, "BRL": 4.97,
	"ZAR": 18.9, "AED": 3.67, "QAR": 3.64, "FJD": 2.25,
}

// Service caches USD-based exchange rates and converts between currencies.
// Safe for concurrent use; concurrent cache misses share one refresh.
type Service struct {
	httpClient *http.Client
	group      singleflight.Group

	mu        sync.RWMutex
	rates     map[string]float64
	fetchedAt time.Time
}

// NewService creates a currency service with a 10-second fetch timeout.
func NewService() *Service {
	return &Service{
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Convert converts an amount between currencies via USD. Returns false when
// either currency is missing from the rate table in use: the cached live
// table once one has been fetched, otherwise the fallback table. The two
// tables are not merged.
func (s *Service) Convert(ctx context.Context, amount float64, from, to string) (float64, bool) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == to {
		return amount, true
	}

	rates := s.getRates(ctx)

	fromRate, okFrom := rates[from]
	toRate, okTo := rates[to]
	if !okFrom || !okTo || fromRate == 0 {
		return 0, false
	}

	usd := amount / fromRate
	return usd * toRate, true
}

// ConvertFallback converts using only the hard-coded table. Used by scoring
// paths that must not block on network I/O.
func ConvertFallback(amount float64, from, to string) (float64, bool) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == to {
		return amount, true
	}

	fromRate, okFrom := fallbackRates[from]
	toRate, okTo := fallbackRates[to]
	if !okFrom || !okTo || fromRate == 0 {
		return 0, false
	}
	return amount / fromRate * toRate, true
}

func (s *Service) getRates(ctx context.Context) map[string]float64 {
	s.mu.RLock()
	fresh := s.rates != nil && time.Since(s.fetchedAt) < cacheTTL
	rates := s.rates
	s.mu.RUnlock()

	if fresh {
		return rates
	}

	// One refresh per expiry regardless of caller count.
	v, _, _ := s.group.Do("rates", func() (interface{}, error) {
		fetched, err := s.fetchRates(ctx)
		if err != nil {
			logger.Warn("Exchange rate refresh failed, using fallback table", "error", err)
			s.mu.RLock()
			stale := s.rates
			s.mu.RUnlock()
			if stale != nil {
				return stale, nil
			}
			return fallbackRates, nil
		}

		s.mu.Lock()
		s.rates = fetched
		s.fetchedAt = time.Now()
		s.mu.Unlock()
		return fetched, nil
	})

	return v.(map[string]float64)
}

func (s *Service) fetchRates(ctx context.Context) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ratesURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates upstream returned %d", resp.StatusCode)
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if len(payload.Rates) == 0 {
		return nil, fmt.Errorf("rates upstream returned empty table")
	}
	return payload.Rates, nil
}

// FormatPrice renders an amount with its currency symbol. Zero-decimal
// currencies are shown without cents.
func FormatPrice(amount float64, currency string) string {
	symbols := map[string]string{
		"USD": "$", "EUR": "€", "GBP": "£", "NZD": "NZ$", "AUD": "A$",
		"CAD": "C$", "JPY": "¥", "CNY": "¥", "SGD": "S$", "HKD": "HK$",
	}

	currency = strings.ToUpper(currency)
	var formatted string
	switch currency {
	case "JPY", "KRW", "VND", "IDR":
		formatted = fmt.Sprintf("%.0f", amount)
	default:
		formatted = fmt.Sprintf("%.2f", amount)
	}

	if symbol, ok := symbols[currency]; ok {
		return symbol + formatted
	}
	return currency + " " + formatted
}
