package flights

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const baseURL = "https://www.google.com/travel/flights"

// CountryOfSale maps origin airports to the gl= country-of-sale code sent to
// Google. Unlisted origins default to "nz".
var CountryOfSale = map[string]string{
	"AKL": "nz", "WLG": "nz", "CHC": "nz", "ZQN": "nz", "DUD": "nz",
	"SYD": "au", "MEL": "au", "BNE": "au", "PER": "au", "ADL": "au",
	"LAX": "us", "SFO": "us", "JFK": "us", "SEA": "us",
	"LHR": "uk", "SIN": "sg", "HKG": "hk", "NRT": "jp", "HND": "jp",
}

// BuildURL assembles the Google Flights search URL for a query. Filters ride
// in the q= parameter as natural-language hints, which Google parses
// server-side. Every component that needs a Google Flights link (the browser
// adapter, booking URLs, trip-plan matches) goes through this one function.
func BuildURL(q Query) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Flights from %s to %s on %s",
		q.Origin, q.Destination, q.DepartureDate.Format(time.DateOnly))

	if q.IsRoundTrip() {
		fmt.Fprintf(&b, " returning %s", q.ReturnDate.Format(time.DateOnly))
	}

	switch q.CabinClass {
	case Business:
		b.WriteString(" business class")
	case First:
		b.WriteString(" first class")
	case PremiumEconomy:
		b.WriteString(" premium economy")
	}

	switch q.StopsFilter {
	case Nonstop:
		b.WriteString(" nonstop")
	case OneStop:
		b.WriteString(" 1 stop or fewer")
	}

	// Passenger hints only when non-default (a single adult).
	if q.Travelers.Total() > 1 {
		if q.Travelers.Adults > 1 {
			fmt.Fprintf(&b, " %d adults", q.Travelers.Adults)
		}
		if q.Travelers.Children == 1 {
			b.WriteString(" 1 child")
		} else if q.Travelers.Children > 1 {
			fmt.Fprintf(&b, " %d children", q.Travelers.Children)
		}
		if infants := q.Travelers.InfantsInSeat + q.Travelers.InfantsOnLap; infants == 1 {
			b.WriteString(" 1 infant")
		} else if infants > 1 {
			fmt.Fprintf(&b, " %d infants", infants)
		}
	}

	currency := q.Currency
	if currency == "" {
		currency = "NZD"
	}

	gl, ok := CountryOfSale[q.Origin]
	if !ok {
		gl = "nz"
	}

	return baseURL + "?q=" + url.QueryEscape(b.String()) +
		"&curr=" + currency + "&hl=en&gl=" + gl
}
