package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jesposito/walkabout/flights"
)

const serpAPIEndpoint = "https://serpapi.com/search"

// serpStopsCodes maps the stops filter to SerpAPI's numeric code.
var serpStopsCodes = map[flights.StopsFilter]string{
	flights.AnyStops: "0",
	flights.Nonstop:  "1",
	flights.OneStop:  "2",
	flights.TwoPlus:  "3",
}

var serpCabinCodes = map[flights.CabinClass]string{
	flights.Economy:        "1",
	flights.PremiumEconomy: "2",
	flights.Business:       "3",
	flights.First:          "4",
}

// SerpAPISource queries Google Flights through SerpAPI.
type SerpAPISource struct {
	apiKey     string
	httpClient *http.Client
}

// NewSerpAPISource creates the adapter. An empty key marks it unavailable.
func NewSerpAPISource(apiKey string) *SerpAPISource {
	return &SerpAPISource{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *SerpAPISource) Name() string { return SourceSerpAPI }

func (s *SerpAPISource) IsAvailable() bool { return s.apiKey != "" }

type serpFlightLeg struct {
	Airline          string `json:"airline"`
	DepartureAirport struct {
		ID   string `json:"id"`
		Time string `json:"time"`
	} `json:"departure_airport"`
	ArrivalAirport struct {
		ID   string `json:"id"`
		Time string `json:"time"`
	} `json:"arrival_airport"`
}

type serpFlight struct {
	Price         float64         `json:"price"`
	TotalDuration int             `json:"total_duration"`
	Flights       []serpFlightLeg `json:"flights"`
}

type serpResponse struct {
	BestFlights   []serpFlight `json:"best_flights"`
	OtherFlights  []serpFlight `json:"other_flights"`
	PriceInsights *struct {
		LowestPrice       float64   `json:"lowest_price"`
		PriceLevel        string    `json:"price_level"`
		TypicalPriceRange []float64 `json:"typical_price_range"`
		PriceHistory      [][]int64 `json:"price_history"`
	} `json:"price_insights"`
}

func (s *SerpAPISource) Fetch(ctx context.Context, q flights.Query, _ int64) FetchResult {
	if !s.IsAvailable() {
		return FetchResult{Source: s.Name(), Err: errNotConfigured}
	}

	params := url.Values{}
	params.Set("engine", "google_flights")
	params.Set("departure_id", q.Origin)
	params.Set("arrival_id", q.Destination)
	params.Set("outbound_date", q.DepartureDate.Format(time.DateOnly))
	params.Set("currency", q.Currency)
	params.Set("hl", "en")
	params.Set("adults", strconv.Itoa(q.Travelers.Adults))
	params.Set("children", strconv.Itoa(q.Travelers.Children))
	params.Set("deep_search", "true")
	params.Set("api_key", s.apiKey)

	gl, ok := flights.CountryOfSale[q.Origin]
	if !ok {
		gl = "nz"
	}
	params.Set("gl", gl)

	if q.Travelers.InfantsInSeat > 0 {
		params.Set("infants_in_seat", strconv.Itoa(q.Travelers.InfantsInSeat))
	}
	if q.Travelers.InfantsOnLap > 0 {
		params.Set("infants_on_lap", strconv.Itoa(q.Travelers.InfantsOnLap))
	}

	if code := serpStopsCodes[q.StopsFilter]; code != "" && code != "0" {
		params.Set("stops", code)
	}

	if bags := max(q.CarryOnBags, q.CheckedBags); bags > 0 {
		params.Set("bags", strconv.Itoa(bags))
	}

	if q.IsRoundTrip() {
		params.Set("return_date", q.ReturnDate.Format(time.DateOnly))
		params.Set("type", "1")
	} else {
		params.Set("type", "2")
	}

	cabin := serpCabinCodes[q.CabinClass]
	if cabin == "" {
		cabin = "1"
	}
	params.Set("travel_class", cabin)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serpAPIEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return FetchResult{Source: s.Name(), Err: err.Error(), FailureReason: "unknown"}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return FetchResult{Source: s.Name(), Err: err.Error(), FailureReason: "network_error"}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FetchResult{Source: s.Name(), Err: fmt.Sprintf("HTTP %d", resp.StatusCode), FailureReason: "network_error"}
	}

	var payload serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return FetchResult{Source: s.Name(), Err: err.Error(), FailureReason: "unknown"}
	}

	var prices []Price
	for _, flight := range append(payload.BestFlights, payload.OtherFlights...) {
		if flight.Price <= 0 {
			continue
		}
		p := Price{
			Amount:          flight.Price,
			Currency:        q.Currency,
			Stops:           len(flight.Flights) - 1,
			DurationMinutes: flight.TotalDuration,
			Source:          s.Name(),
			Confidence:      1.0,
		}
		if p.Stops < 0 {
			p.Stops = 0
		}
		if len(flight.Flights) > 0 {
			p.Airline = flight.Flights[0].Airline
			for _, leg := range flight.Flights[:len(flight.Flights)-1] {
				p.LayoverAirports = append(p.LayoverAirports, leg.ArrivalAirport.ID)
			}
		}
		prices = append(prices, p)
	}

	if len(prices) == 0 {
		return FetchResult{Source: s.Name(), Err: "no prices in response", FailureReason: "no_results"}
	}

	result := FetchResult{Success: true, Prices: prices, Source: s.Name()}
	if pi := payload.PriceInsights; pi != nil {
		insights := &PriceInsights{
			LowestPrice:      pi.LowestPrice,
			PriceLevel:       pi.PriceLevel,
			PriceHistoryDays: len(pi.PriceHistory),
		}
		if len(pi.TypicalPriceRange) == 2 {
			insights.TypicalPriceLow = pi.TypicalPriceRange[0]
			insights.TypicalPriceHigh = pi.TypicalPriceRange[1]
		}
		result.Insights = insights
	}
	return result
}
