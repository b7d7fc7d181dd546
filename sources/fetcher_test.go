package sources

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jesposito/walkabout/flights"
)

type stubSource struct {
	name      string
	available bool
	results   []FetchResult
	calls     int
}

func (s *stubSource) Name() string       { return s.name }
func (s *stubSource) IsAvailable() bool  { return s.available }
func (s *stubSource) Fetch(_ context.Context, _ flights.Query, _ int64) FetchResult {
	result := s.results[min(s.calls, len(s.results)-1)]
	s.calls++
	return result
}

func testQuery() flights.Query {
	return flights.Query{
		Origin:        "AKL",
		Destination:   "NRT",
		DepartureDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Travelers:     flights.Travelers{Adults: 2},
		Currency:      "NZD",
	}
}

func TestFetcherCascadeAndFallback(t *testing.T) {
	t.Parallel()

	// SerpAPI fails twice (initial + one retry), Skyscanner succeeds on its
	// first attempt: total attempts = 3, fallback attribution set.
	serp := &stubSource{
		name:      SourceSerpAPI,
		available: true,
		results:   []FetchResult{{Source: SourceSerpAPI, Err: "HTTP 500", FailureReason: "network_error"}},
	}
	sky := &stubSource{
		name:      SourceSkyscanner,
		available: true,
		results: []FetchResult{{
			Success: true,
			Source:  SourceSkyscanner,
			Prices:  []Price{{Amount: 899, Currency: "NZD", Source: SourceSkyscanner, Confidence: 1}},
		}},
	}

	f := NewFetcher([]Source{serp, sky}, 1, time.Millisecond, nil)
	result := f.Fetch(context.Background(), testQuery(), FetchOpts{})

	require.True(t, result.Success)
	assert.Equal(t, SourceSkyscanner, result.Source)
	assert.True(t, result.FallbackUsed)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 2, serp.calls)
	assert.Equal(t, 1, sky.calls)
}

func TestFetcherSkipsUnavailable(t *testing.T) {
	t.Parallel()

	unavailable := &stubSource{name: SourceSerpAPI, available: false}
	ok := &stubSource{
		name:      SourceAmadeus,
		available: true,
		results:   []FetchResult{{Success: true, Source: SourceAmadeus, Prices: []Price{{Amount: 1200}}}},
	}

	f := NewFetcher([]Source{unavailable, ok}, 0, time.Millisecond, nil)
	result := f.Fetch(context.Background(), testQuery(), FetchOpts{})

	require.True(t, result.Success)
	assert.Equal(t, SourceAmadeus, result.Source)
	// Unavailable sources never count as attempted fallbacks.
	assert.False(t, result.FallbackUsed)
	assert.Equal(t, 0, unavailable.calls)
}

func TestFetcherPreferredSource(t *testing.T) {
	t.Parallel()

	serp := &stubSource{
		name:      SourceSerpAPI,
		available: true,
		results:   []FetchResult{{Success: true, Source: SourceSerpAPI, Prices: []Price{{Amount: 1000}}}},
	}
	browser := &stubSource{
		name:      SourceBrowser,
		available: true,
		results:   []FetchResult{{Success: true, Source: SourceBrowser, Prices: []Price{{Amount: 950}}}},
	}

	f := NewFetcher([]Source{serp, browser}, 0, time.Millisecond, nil)

	result := f.Fetch(context.Background(), testQuery(), FetchOpts{PreferredSource: SourceBrowser})
	require.True(t, result.Success)
	assert.Equal(t, SourceBrowser, result.Source)
	assert.Equal(t, 0, serp.calls)

	// "auto" keeps the default order.
	result = f.Fetch(context.Background(), testQuery(), FetchOpts{PreferredSource: "auto"})
	assert.Equal(t, SourceSerpAPI, result.Source)
}

func TestFetcherPreferredUnavailableFallsThrough(t *testing.T) {
	t.Parallel()

	preferred := &stubSource{name: SourceSkyscanner, available: false}
	ok := &stubSource{
		name:      SourceSerpAPI,
		available: true,
		results:   []FetchResult{{Success: true, Source: SourceSerpAPI, Prices: []Price{{Amount: 800}}}},
	}

	f := NewFetcher([]Source{ok, preferred}, 0, time.Millisecond, nil)
	result := f.Fetch(context.Background(), testQuery(), FetchOpts{PreferredSource: SourceSkyscanner})

	require.True(t, result.Success)
	assert.Equal(t, SourceSerpAPI, result.Source)
}

func TestFetcherAllFail(t *testing.T) {
	t.Parallel()

	a := &stubSource{name: SourceSerpAPI, available: true,
		results: []FetchResult{{Source: SourceSerpAPI, Err: "HTTP 502", FailureReason: "network_error"}}}
	b := &stubSource{name: SourceSkyscanner, available: true,
		results: []FetchResult{{Source: SourceSkyscanner, Err: "HTTP 429", FailureReason: "network_error"}}}

	f := NewFetcher([]Source{a, b}, 0, time.Millisecond, nil)
	result := f.Fetch(context.Background(), testQuery(), FetchOpts{})

	require.False(t, result.Success)
	assert.Contains(t, result.Err, "HTTP 429")
	assert.Equal(t, "network_error", result.FailureReason)
	assert.Equal(t, 2, result.Attempts)
}

func TestFetchWithRetryStopsOnNotConfigured(t *testing.T) {
	t.Parallel()

	s := &stubSource{name: SourceSerpAPI, available: true,
		results: []FetchResult{{Source: SourceSerpAPI, Err: errNotConfigured}}}

	result := fetchWithRetry(context.Background(), s, testQuery(), 0, 3, time.Millisecond)
	assert.False(t, result.Success)
	assert.Equal(t, 1, s.calls, "credential failures must not be retried")
	_ = result
}

func TestParseISODuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"PT12H30M", 750},
		{"PT2H", 120},
		{"PT45M", 45},
		{"PT0H0M", 0},
		{"garbage", 0},
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseISODuration(tt.in), tt.in)
	}
}

func TestResolveCarrier(t *testing.T) {
	t.Parallel()

	carriers := map[string]string{"NZ": "Air New Zealand"}
	assert.Equal(t, "Air New Zealand", resolveCarrier("NZ", carriers))
	assert.Equal(t, "QF", resolveCarrier("QF", carriers))
}
