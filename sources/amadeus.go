package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jesposito/walkabout/flights"
)

var amadeusCabins = map[flights.CabinClass]string{
	flights.Economy:        "ECONOMY",
	flights.PremiumEconomy: "PREMIUM_ECONOMY",
	flights.Business:       "BUSINESS",
	flights.First:          "FIRST",
}

// AmadeusSource queries the Amadeus Self-Service flight-offers API using the
// OAuth2 client-credentials flow with a cached token.
type AmadeusSource struct {
	clientID     string
	clientSecret string
	baseURL      string
	httpClient   *http.Client
	authClient   *http.Client

	mu           sync.Mutex
	token        string
	tokenExpires time.Time
}

// NewAmadeusSource creates the adapter. Missing credentials mark it
// unavailable.
func NewAmadeusSource(clientID, clientSecret, baseURL string) *AmadeusSource {
	if baseURL == "" {
		baseURL = "https://api.amadeus.com"
	}
	return &AmadeusSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		authClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *AmadeusSource) Name() string { return SourceAmadeus }

func (s *AmadeusSource) IsAvailable() bool {
	return s.clientID != "" && s.clientSecret != ""
}

// getToken returns the cached bearer token, refreshing it 60 seconds before
// upstream expiry.
func (s *AmadeusSource) getToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.tokenExpires) {
		return s.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", s.clientID)
	form.Set("client_secret", s.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.authClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth returned HTTP %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("auth response missing access token")
	}

	if payload.ExpiresIn == 0 {
		payload.ExpiresIn = 1799
	}
	s.token = payload.AccessToken
	s.tokenExpires = time.Now().Add(time.Duration(payload.ExpiresIn-60) * time.Second)
	return s.token, nil
}

type amadeusOffer struct {
	Price struct {
		GrandTotal string `json:"grandTotal"`
		Currency   string `json:"currency"`
	} `json:"price"`
	Itineraries []struct {
		Duration string `json:"duration"`
		Segments []struct {
			CarrierCode string `json:"carrierCode"`
			Arrival     struct {
				IATACode string `json:"iataCode"`
			} `json:"arrival"`
		} `json:"segments"`
	} `json:"itineraries"`
}

type amadeusResponse struct {
	Data         []amadeusOffer `json:"data"`
	Dictionaries struct {
		Carriers map[string]string `json:"carriers"`
	} `json:"dictionaries"`
}

func (s *AmadeusSource) Fetch(ctx context.Context, q flights.Query, _ int64) FetchResult {
	if !s.IsAvailable() {
		return FetchResult{Source: s.Name(), Err: errNotConfigured}
	}

	token, err := s.getToken(ctx)
	if err != nil {
		return FetchResult{Source: s.Name(), Err: fmt.Sprintf("authentication failed: %v", err), FailureReason: "network_error"}
	}

	cabin := amadeusCabins[q.CabinClass]
	if cabin == "" {
		cabin = "ECONOMY"
	}

	params := url.Values{}
	params.Set("originLocationCode", q.Origin)
	params.Set("destinationLocationCode", q.Destination)
	params.Set("departureDate", q.DepartureDate.Format(time.DateOnly))
	params.Set("adults", strconv.Itoa(q.Travelers.Adults))
	params.Set("children", strconv.Itoa(q.Travelers.Children))
	params.Set("travelClass", cabin)
	params.Set("currencyCode", q.Currency)
	params.Set("max", "20")
	// nonStop is always sent explicitly.
	if q.StopsFilter == flights.Nonstop {
		params.Set("nonStop", "true")
	} else {
		params.Set("nonStop", "false")
	}
	if infants := q.Travelers.InfantsInSeat + q.Travelers.InfantsOnLap; infants > 0 {
		params.Set("infants", strconv.Itoa(infants))
	}
	if q.IsRoundTrip() {
		params.Set("returnDate", q.ReturnDate.Format(time.DateOnly))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/v2/shopping/flight-offers?"+params.Encode(), nil)
	if err != nil {
		return FetchResult{Source: s.Name(), Err: err.Error(), FailureReason: "unknown"}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return FetchResult{Source: s.Name(), Err: err.Error(), FailureReason: "network_error"}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FetchResult{Source: s.Name(), Err: fmt.Sprintf("HTTP %d", resp.StatusCode), FailureReason: "network_error"}
	}

	var payload amadeusResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return FetchResult{Source: s.Name(), Err: err.Error(), FailureReason: "unknown"}
	}

	var prices []Price
	for _, offer := range payload.Data {
		amount, err := strconv.ParseFloat(offer.Price.GrandTotal, 64)
		if err != nil || amount <= 0 {
			continue
		}

		p := Price{
			Amount:     amount,
			Currency:   offer.Price.Currency,
			Source:     s.Name(),
			Confidence: 1.0,
		}
		if p.Currency == "" {
			p.Currency = q.Currency
		}

		if len(offer.Itineraries) > 0 {
			itinerary := offer.Itineraries[0]
			p.DurationMinutes = ParseISODuration(itinerary.Duration)
			if n := len(itinerary.Segments); n > 0 {
				p.Stops = n - 1
				p.Airline = resolveCarrier(itinerary.Segments[0].CarrierCode, payload.Dictionaries.Carriers)
				for _, seg := range itinerary.Segments[:n-1] {
					p.LayoverAirports = append(p.LayoverAirports, seg.Arrival.IATACode)
				}
			}
		}
		prices = append(prices, p)
	}

	if len(prices) == 0 {
		return FetchResult{Source: s.Name(), Err: "no prices in response", FailureReason: "no_results"}
	}
	return FetchResult{Success: true, Prices: prices, Source: s.Name()}
}

// resolveCarrier maps a carrier code through the response dictionaries,
// falling back to the raw code.
func resolveCarrier(code string, carriers map[string]string) string {
	if name, ok := carriers[code]; ok && name != "" {
		return name
	}
	return code
}

var isoDurationRe = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?$`)

// ParseISODuration converts an ISO 8601 duration like PT12H30M to minutes.
// Unparseable input returns 0.
func ParseISODuration(s string) int {
	m := isoDurationRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	hours, mins := 0, 0
	if m[1] != "" {
		hours, _ = strconv.Atoi(m[1])
	}
	if m[2] != "" {
		mins, _ = strconv.Atoi(m[2])
	}
	return hours*60 + mins
}
