package extractor

import (
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const structuralRowPage = `<html><body>
<ul>
  <li class="pIav2d">
    <img alt="Air New Zealand">
    <span aria-label="1,299 New Zealand dollars">$1,299</span>
    <span aria-label="Total duration 11 hr 30 min"></span>
    <span>Nonstop flight departing in the morning padding text</span>
  </li>
  <li class="pIav2d">
    <img alt="Qantas">
    <span aria-label="899 New Zealand dollars">$899</span>
    <span aria-label="Total duration 14 hr 5 min"></span>
    <span aria-label="Layover 2 hr at Sydney Kingsford Smith (SYD)"></span>
    <span>1 stop via Sydney with extra padding text here</span>
  </li>
</ul>
</body></html>`

func TestExtractStructuralRows(t *testing.T) {
	t.Parallel()

	flights, err := New().Extract(structuralRowPage)
	require.NoError(t, err)
	require.Len(t, flights, 2)

	first := flights[0]
	assert.Equal(t, 1299.0, first.Price)
	assert.Equal(t, "aria_label_dollars", first.PriceStrategy)
	assert.Equal(t, 0.95, first.PriceConfidence)
	assert.Equal(t, "Air New Zealand", first.Airline)
	assert.Equal(t, 0, first.Stops)
	assert.True(t, first.StopsFound)
	assert.Equal(t, 11*60+30, first.DurationMinutes)
	assert.Equal(t, MethodPerRow, first.ExtractionMethod)
	assert.Equal(t, 0.95, first.CorrelationConfidence)
	assert.Greater(t, first.OverallConfidence, 0.8)

	second := flights[1]
	assert.Equal(t, 899.0, second.Price)
	assert.Equal(t, 1, second.Stops)
	assert.Equal(t, []string{"SYD"}, second.LayoverAirports)
}

func TestExtractPageLevelFallback(t *testing.T) {
	t.Parallel()

	page := `<html><body>
		<div>Great deals from $749 this week</div>
		<div>Also seen: NZ$1,150 return</div>
	</body></html>`

	flights, err := New().Extract(page)
	require.NoError(t, err)
	require.NotEmpty(t, flights)

	for _, f := range flights {
		assert.Equal(t, MethodPageLevel, f.ExtractionMethod)
		assert.Equal(t, pageLevelCorrelation, f.CorrelationConfidence)
		// Page-level extractions stay below the deal-eligibility threshold.
		assert.Less(t, f.OverallConfidence, 0.6)
	}
}

func TestExtractNothing(t *testing.T) {
	t.Parallel()

	flights, err := New().Extract(`<html><body><p>No flights found. Try different dates.</p></body></html>`)
	require.NoError(t, err)
	assert.Empty(t, flights)
}

func TestPriceValidatorBounds(t *testing.T) {
	t.Parallel()

	v := DefaultPriceValidator()
	assert.True(t, v.Valid(899))
	assert.False(t, v.Valid(49))
	assert.False(t, v.Valid(50001))
	assert.False(t, v.Valid(1000), "suspicious constant must be rejected")
	assert.True(t, v.Valid(1001))
}

func TestBareNumbersNeverMatch(t *testing.T) {
	t.Parallel()

	// Flight numbers, years, and counters carry no currency marker and must
	// not be parsed as prices.
	for _, text := range []string{"Flight NZ1026", "operated in 2026", "3456 reviews"} {
		_, ok := parsePriceText(text)
		assert.False(t, ok, "parsed a bare number from %q", text)
	}
}

func TestOverallConfidenceFormula(t *testing.T) {
	t.Parallel()

	f := FlightData{
		PriceConfidence:       0.9,
		AirlineConfidence:     0.8,
		StopsConfidence:       0.9,
		DurationConfidence:    0.8,
		CorrelationConfidence: 0.95,
	}
	// field_avg = 0.85, overall = 0.4*0.85 + 0.6*0.95 = 0.91
	assert.InDelta(t, 0.91, overallConfidence(f), 0.0001)

	// Penalty subtracts directly.
	f.CrossValidationPenalty = 0.2
	assert.InDelta(t, 0.71, overallConfidence(f), 0.0001)

	// Without correlation, plain field average.
	bare := FlightData{PriceConfidence: 0.7}
	assert.InDelta(t, 0.7, overallConfidence(bare), 0.0001)
}

func TestCrossValidatePenalties(t *testing.T) {
	t.Parallel()

	nonstopLong := FlightData{StopsFound: true, Stops: 0, DurationMinutes: 21 * 60, Price: 900}
	assert.Equal(t, 0.20, crossValidate(nonstopLong))

	manyStopsShort := FlightData{StopsFound: true, Stops: 3, DurationMinutes: 90, Price: 900}
	assert.Equal(t, 0.20, crossValidate(manyStopsShort))

	clean := FlightData{StopsFound: true, Stops: 1, DurationMinutes: 10 * 60, Price: 900}
	assert.Equal(t, 0.0, crossValidate(clean))
}

func TestRowLevelFallthrough(t *testing.T) {
	t.Parallel()

	// No structural classes; ARIA roles only. L0/L1 find nothing and L2
	// must pick it up with 0.90 correlation.
	page := `<html><body>
	<ul role="list">
	  <li role="listitem">
	    <span aria-label="2,450 New Zealand dollars">$2,450</span>
	    <span>2 stops, 22 hr 15 min total travel time on this itinerary</span>
	  </li>
	</ul>
	</body></html>`

	flights, err := New().Extract(page)
	require.NoError(t, err)
	require.Len(t, flights, 1)
	assert.Equal(t, 0.90, flights[0].CorrelationConfidence)
	assert.Equal(t, 2450.0, flights[0].Price)
	assert.Equal(t, 2, flights[0].Stops)
}

func TestTraversalRows(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fmt.Sprintf(`<html><body>
	<div><div class="wrapper">
	  <span aria-label="%s">$780</span>
	  <span>Fiji Airways nonstop 3 hr 10 min filler filler filler</span>
	</div></div>
	</body></html>`, "780 New Zealand dollars")))
	require.NoError(t, err)

	rows := traversalRows(doc)
	require.NotEmpty(t, rows)
}

func TestDurationParsing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want int
	}{
		{"11 hr 30 min", 690},
		{"14 hr", 840},
		{"9h 45m", 585},
		{"no duration here", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseDurationText(tt.text), tt.text)
	}
}
