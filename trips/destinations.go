// Package trips expands flexible trip plans into concrete flight searches
// and scores deals against plans.
package trips

import "strings"

// DestinationType groups airports under a user-facing tag like "japan" or
// "tropical", with keywords for matching RSS deal titles.
type DestinationType struct {
	Name     string
	Airports []string
	Keywords []string
}

// destinationTypes is the fixed tag -> airport-set table used to expand
// trip-plan destination types into searchable airports.
var destinationTypes = map[string]DestinationType{
	"tropical": {
		Name:     "Tropical Beach",
		Airports: []string{"NAN", "RAR", "PPT", "DPS", "HKT", "MLE", "MRU", "CEB", "HNL", "OGG"},
		Keywords: []string{"fiji", "tahiti", "bali", "phuket", "maldives", "hawaii", "beach", "island", "tropical"},
	},
	"pacific_islands": {
		Name:     "Pacific Islands",
		Airports: []string{"NAN", "SUV", "RAR", "APW", "TBU", "VLI", "NOU", "PPT"},
		Keywords: []string{"fiji", "cook islands", "samoa", "tonga", "vanuatu", "tahiti", "pacific"},
	},
	"australia": {
		Name:     "Australia",
		Airports: []string{"SYD", "MEL", "BNE", "PER", "ADL", "CBR", "OOL", "CNS", "HBA"},
		Keywords: []string{"sydney", "melbourne", "brisbane", "australia", "gold coast", "cairns"},
	},
	"japan": {
		Name:     "Japan",
		Airports: []string{"NRT", "HND", "KIX", "NGO", "FUK", "CTS", "OKA"},
		Keywords: []string{"tokyo", "osaka", "japan", "kyoto", "japanese"},
	},
	"southeast_asia": {
		Name:     "Southeast Asia",
		Airports: []string{"BKK", "HKT", "SIN", "KUL", "SGN", "HAN", "DAD", "MNL", "CEB", "DPS"},
		Keywords: []string{"thailand", "vietnam", "singapore", "bali", "malaysia", "philippines", "bangkok", "phuket"},
	},
	"europe": {
		Name:     "Europe",
		Airports: []string{"LHR", "CDG", "AMS", "FRA", "FCO", "BCN", "MAD"},
		Keywords: []string{"london", "paris", "rome", "barcelona", "amsterdam", "europe", "european"},
	},
	"uk": {
		Name:     "United Kingdom",
		Airports: []string{"LHR", "LGW", "MAN", "EDI"},
		Keywords: []string{"london", "uk", "britain", "england", "scotland"},
	},
	"usa_west": {
		Name:     "US West Coast",
		Airports: []string{"LAX", "SFO", "SEA", "PDX", "SAN", "LAS"},
		Keywords: []string{"los angeles", "san francisco", "seattle", "las vegas", "california"},
	},
	"usa_east": {
		Name:     "US East Coast",
		Airports: []string{"JFK", "EWR", "BOS", "MIA"},
		Keywords: []string{"new york", "miami", "boston", "florida"},
	},
	"hawaii": {
		Name:     "Hawaii",
		Airports: []string{"HNL", "OGG", "LIH", "KOA"},
		Keywords: []string{"hawaii", "honolulu", "maui", "waikiki", "oahu"},
	},
}

// AirportsForTypes expands tags to a deduplicated airport set.
func AirportsForTypes(tags []string) []string {
	seen := make(map[string]bool)
	var airports []string
	for _, tag := range tags {
		dt, ok := destinationTypes[strings.ToLower(strings.TrimSpace(tag))]
		if !ok {
			continue
		}
		for _, code := range dt.Airports {
			if !seen[code] {
				seen[code] = true
				airports = append(airports, code)
			}
		}
	}
	return airports
}

// MatchesType reports whether a deal's destination or title matches any of
// the given destination-type tags.
func MatchesType(dest, title string, tags []string) bool {
	dest = strings.ToUpper(strings.TrimSpace(dest))
	title = strings.ToLower(title)

	for _, tag := range tags {
		dt, ok := destinationTypes[strings.ToLower(strings.TrimSpace(tag))]
		if !ok {
			continue
		}
		for _, code := range dt.Airports {
			if code == dest {
				return true
			}
		}
		for _, kw := range dt.Keywords {
			if strings.Contains(title, kw) {
				return true
			}
		}
	}
	return false
}

// similarAirportGroups lists airports considered interchangeable for
// matching purposes: same metro area or a short hop apart.
var similarAirportGroups = [][]string{
	{"NRT", "HND"},
	{"JFK", "EWR", "LGA"},
	{"LHR", "LGW", "STN"},
	{"AKL", "HLZ"},
	{"SYD", "OOL"},
	{"MEL", "AVV"},
	{"BKK", "DMK"},
	{"KIX", "ITM"},
	{"CGK", "HLP"},
	{"SFO", "OAK", "SJC"},
	{"LAX", "SNA", "BUR", "ONT"},
}

// SimilarAirports returns the other members of an airport's group.
func SimilarAirports(code string) []string {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, group := range similarAirportGroups {
		for _, member := range group {
			if member == code {
				var others []string
				for _, m := range group {
					if m != code {
						others = append(others, m)
					}
				}
				return others
			}
		}
	}
	return nil
}
