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

// SkyscannerSource queries Skyscanner through a RapidAPI gateway.
type SkyscannerSource struct {
	apiKey     string
	apiHost    string
	httpClient *http.Client
}

// NewSkyscannerSource creates the adapter. An empty key marks it unavailable.
func NewSkyscannerSource(apiKey, apiHost string) *SkyscannerSource {
	if apiHost == "" {
		apiHost = "skyscanner44.p.rapidapi.com"
	}
	return &SkyscannerSource{
		apiKey:     apiKey,
		apiHost:    apiHost,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *SkyscannerSource) Name() string { return SourceSkyscanner }

func (s *SkyscannerSource) IsAvailable() bool { return s.apiKey != "" }

type skyscannerResponse struct {
	Itineraries struct {
		Results []struct {
			PricingOptions []struct {
				Price struct {
					Amount float64 `json:"amount"`
				} `json:"price"`
				Items []struct {
					URL string `json:"url"`
				} `json:"items"`
			} `json:"pricing_options"`
			Legs []struct {
				StopCount int `json:"stop_count"`
				Duration  int `json:"duration"`
				Carriers  struct {
					Marketing []struct {
						Name string `json:"name"`
					} `json:"marketing"`
				} `json:"carriers"`
			} `json:"legs"`
		} `json:"results"`
	} `json:"itineraries"`
}

func (s *SkyscannerSource) Fetch(ctx context.Context, q flights.Query, _ int64) FetchResult {
	if !s.IsAvailable() {
		return FetchResult{Source: s.Name(), Err: errNotConfigured}
	}

	params := url.Values{}
	params.Set("origin", q.Origin)
	params.Set("destination", q.Destination)
	params.Set("date", q.DepartureDate.Format(time.DateOnly))
	params.Set("adults", strconv.Itoa(q.Travelers.Adults))
	params.Set("children", strconv.Itoa(q.Travelers.Children))
	params.Set("currency", q.Currency)
	params.Set("cabinClass", string(q.CabinClass))
	if q.IsRoundTrip() {
		params.Set("returnDate", q.ReturnDate.Format(time.DateOnly))
	}

	endpoint := fmt.Sprintf("https://%s/search?%s", s.apiHost, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return FetchResult{Source: s.Name(), Err: err.Error(), FailureReason: "unknown"}
	}
	req.Header.Set("X-RapidAPI-Key", s.apiKey)
	req.Header.Set("X-RapidAPI-Host", s.apiHost)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return FetchResult{Source: s.Name(), Err: err.Error(), FailureReason: "network_error"}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FetchResult{Source: s.Name(), Err: fmt.Sprintf("HTTP %d", resp.StatusCode), FailureReason: "network_error"}
	}

	var payload skyscannerResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return FetchResult{Source: s.Name(), Err: err.Error(), FailureReason: "unknown"}
	}

	var prices []Price
	for _, itinerary := range payload.Itineraries.Results {
		if len(itinerary.PricingOptions) == 0 {
			continue
		}
		option := itinerary.PricingOptions[0]
		if option.Price.Amount <= 0 {
			continue
		}

		p := Price{
			Amount:     option.Price.Amount,
			Currency:   q.Currency,
			Source:     s.Name(),
			Confidence: 1.0,
		}
		if len(option.Items) > 0 {
			p.BookingURL = option.Items[0].URL
		}
		if len(itinerary.Legs) > 0 {
			leg := itinerary.Legs[0]
			p.Stops = leg.StopCount
			p.DurationMinutes = leg.Duration
			if len(leg.Carriers.Marketing) > 0 {
				p.Airline = leg.Carriers.Marketing[0].Name
			}
		}
		prices = append(prices, p)
	}

	if len(prices) == 0 {
		return FetchResult{Source: s.Name(), Err: "no prices in response", FailureReason: "no_results"}
	}
	return FetchResult{Success: true, Prices: prices, Source: s.Name()}
}
