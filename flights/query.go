// Package flights defines the canonical flight-search query shared by every
// price source, and the single authoritative Google Flights URL builder.
package flights

import (
	"fmt"
	"time"
)

// TripType distinguishes round trips from one-way searches.
type TripType string

const (
	RoundTrip TripType = "round_trip"
	OneWay    TripType = "one_way"
)

// CabinClass is the requested cabin of service.
type CabinClass string

const (
	Economy        CabinClass = "economy"
	PremiumEconomy CabinClass = "premium_economy"
	Business       CabinClass = "business"
	First          CabinClass = "first"
)

// StopsFilter restricts the number of stops in results.
type StopsFilter string

const (
	AnyStops StopsFilter = "any"
	Nonstop  StopsFilter = "nonstop"
	OneStop  StopsFilter = "one_stop"
	TwoPlus  StopsFilter = "two_plus"
)

// Travelers holds passenger counts for a search.
type Travelers struct {
	Adults        int
	Children      int
	InfantsInSeat int
	InfantsOnLap  int
}

// Total returns the full passenger count including infants.
func (t Travelers) Total() int {
	return t.Adults + t.Children + t.InfantsInSeat + t.InfantsOnLap
}

// Query is the canonical search spec handed to price sources. All adapters
// translate this one struct into their upstream's parameter names.
type Query struct {
	Origin        string
	Destination   string
	DepartureDate time.Time
	ReturnDate    time.Time // zero for one-way
	Travelers     Travelers
	CabinClass    CabinClass
	StopsFilter   StopsFilter
	Currency      string
	CarryOnBags   int
	CheckedBags   int
}

// IsRoundTrip reports whether a return date is set.
func (q Query) IsRoundTrip() bool {
	return !q.ReturnDate.IsZero()
}

// Route returns the "ORG-DST" route tag used in logs and cooldown keys.
func (q Query) Route() string {
	return q.Origin + "-" + q.Destination
}

// Validate rejects queries that should never reach an upstream.
func (q Query) Validate() error {
	if len(q.Origin) != 3 || len(q.Destination) != 3 {
		return fmt.Errorf("origin and destination must be 3-letter IATA codes, got %q -> %q", q.Origin, q.Destination)
	}
	if q.DepartureDate.IsZero() {
		return fmt.Errorf("departure date is required")
	}
	if q.IsRoundTrip() && q.ReturnDate.Before(q.DepartureDate) {
		return fmt.Errorf("return date %s precedes departure %s",
			q.ReturnDate.Format(time.DateOnly), q.DepartureDate.Format(time.DateOnly))
	}
	if q.Travelers.Adults < 1 {
		return fmt.Errorf("at least one adult traveler is required")
	}
	return nil
}
