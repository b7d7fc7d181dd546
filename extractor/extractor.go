// Package extractor pulls flight prices and attributes out of rendered
// Google Flights pages. It layers dozens of selector and pattern strategies:
// row-based extraction first (price, airline, stops, and duration co-located
// in one DOM subtree), then a page-level sweep as a last resort. Every value
// carries the confidence of the strategy that produced it, and each flight
// gets an overall confidence that strongly rewards row locality.
package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extraction methods recorded on each flight.
const (
	MethodPerRow    = "per_row"
	MethodPageLevel = "page_level"
)

// pageLevelCorrelation is the a-priori correlation confidence of page-level
// extraction. A number found anywhere on the page, with no row locality, is
// near-worthless evidence on its own.
const pageLevelCorrelation = 0.30

// FlightData is one extracted flight with per-field and overall confidences.
type FlightData struct {
	Price           float64
	PriceConfidence float64
	PriceStrategy   string

	Airline           string
	AirlineConfidence float64
	AirlineStrategy   string

	Stops           int
	StopsFound      bool
	StopsConfidence float64

	DurationMinutes    int
	DurationConfidence float64

	LayoverAirports []string

	CorrelationConfidence  float64
	CrossValidationPenalty float64
	OverallConfidence      float64
	ExtractionMethod       string
}

// Extractor runs the strategy cascade against rendered HTML.
type Extractor struct {
	validator PriceValidator
}

// New creates an extractor with the default price validator.
func New() *Extractor {
	return &Extractor{validator: DefaultPriceValidator()}
}

// NewWithValidator creates an extractor with a custom price validator.
func NewWithValidator(v PriceValidator) *Extractor {
	return &Extractor{validator: v}
}

// Extract parses the HTML and returns every flight it can find. Row levels
// are tried in confidence order and never skipped: a level that finds rows
// but no prices falls through to the next. Only when no row anywhere yields
// a price does extraction drop to the page-level sweep.
func (e *Extractor) Extract(html string) ([]FlightData, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	for _, level := range rowLevels {
		rows := level.findRows(doc)
		if len(rows) == 0 {
			continue
		}

		flights := e.extractRows(rows, level.correlation)
		if len(flights) > 0 {
			return flights, nil
		}
	}

	return e.extractPageLevel(doc), nil
}

func (e *Extractor) extractRows(rows []*goquery.Selection, correlation float64) []FlightData {
	var flights []FlightData

	for _, row := range rows {
		price, priceConf, strategy, ok := extractPrice(row, e.validator)
		if !ok {
			continue
		}

		f := FlightData{
			Price:                 price,
			PriceConfidence:       priceConf,
			PriceStrategy:         strategy,
			CorrelationConfidence: correlation,
			ExtractionMethod:      MethodPerRow,
		}

		f.Airline, f.AirlineConfidence, f.AirlineStrategy = extractAirline(row)
		f.Stops, f.StopsConfidence, f.StopsFound = extractStops(row)
		f.DurationMinutes, f.DurationConfidence = extractDuration(row)
		f.LayoverAirports = extractLayovers(row)

		f.CrossValidationPenalty = crossValidate(f)
		f.OverallConfidence = overallConfidence(f)
		flights = append(flights, f)
	}

	return flights
}

func (e *Extractor) extractPageLevel(doc *goquery.Document) []FlightData {
	prices := extractPagePrices(doc, e.validator)

	flights := make([]FlightData, 0, len(prices))
	for _, p := range prices {
		f := FlightData{
			Price:                 p.value,
			PriceConfidence:       p.confidence,
			PriceStrategy:         p.strategy,
			CorrelationConfidence: pageLevelCorrelation,
			ExtractionMethod:      MethodPageLevel,
		}
		f.OverallConfidence = overallConfidence(f)
		flights = append(flights, f)
	}
	return flights
}

// overallConfidence combines field confidences with the correlation signal:
//
//	field_avg = mean of non-zero field confidences (price at minimum)
//	overall   = 0.4*field_avg + 0.6*correlation - penalty  (correlation known)
//	overall   = field_avg - penalty                        (otherwise)
//
// clamped to [0,1]. The 0.6 correlation weight is deliberate: attribute
// locality inside one row is the strongest evidence the numbers belong to
// the same flight.
func overallConfidence(f FlightData) float64 {
	sum := f.PriceConfidence
	n := 1
	if f.AirlineConfidence > 0 {
		sum += f.AirlineConfidence
		n++
	}
	if f.StopsConfidence > 0 {
		sum += f.StopsConfidence
		n++
	}
	if f.DurationConfidence > 0 {
		sum += f.DurationConfidence
		n++
	}
	fieldAvg := sum / float64(n)

	var overall float64
	if f.CorrelationConfidence > 0 {
		overall = 0.4*fieldAvg + 0.6*f.CorrelationConfidence - f.CrossValidationPenalty
	} else {
		overall = fieldAvg - f.CrossValidationPenalty
	}

	if overall < 0 {
		return 0
	}
	if overall > 1 {
		return 1
	}
	return overall
}
