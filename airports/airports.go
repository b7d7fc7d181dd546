// Package airports provides the static IATA airport catalog: code lookup,
// text search, great-circle proximity, and country queries. The catalog is
// loaded once at startup from a CSV and falls back to a small built-in table
// when the file is missing.
package airports

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/jesposito/walkabout/pkg/geo"
	"github.com/jesposito/walkabout/pkg/logger"
)

// Airport is one catalog entry.
type Airport struct {
	Code    string
	Name    string
	City    string
	Country string
	Region  string
	Coords  geo.Coordinates
}

// Catalog is the in-memory airport index. Immutable after load, safe for
// concurrent readers.
type Catalog struct {
	byCode    map[string]Airport
	byCity    map[string][]string // lowercase city -> codes
	byCountry map[string][]string // lowercase country -> codes
}

// NearbyResult pairs an airport with its distance from the query point.
type NearbyResult struct {
	Airport    Airport
	DistanceKm float64
}

// Load reads the catalog CSV (code,name,city,country,region,lat,lon with a
// header row). A missing file falls back to the built-in table with a
// warning; a malformed row is skipped.
func Load(path string) *Catalog {
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("Airport CSV not found, using built-in fallback table",
			"path", path, "fallback_size", len(fallbackAirports))
		return newCatalog(fallbackAirports)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 7

	var airports []Airport
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if first {
			first = false
			if strings.EqualFold(record[0], "code") {
				continue
			}
		}

		lat, latErr := strconv.ParseFloat(record[5], 64)
		lon, lonErr := strconv.ParseFloat(record[6], 64)
		if latErr != nil || lonErr != nil {
			continue
		}

		code := strings.ToUpper(strings.TrimSpace(record[0]))
		if len(code) != 3 {
			continue
		}

		airports = append(airports, Airport{
			Code:    code,
			Name:    record[1],
			City:    record[2],
			Country: record[3],
			Region:  record[4],
			Coords:  geo.Coordinates{Lat: lat, Lon: lon},
		})
	}

	if len(airports) == 0 {
		logger.Warn("Airport CSV contained no usable rows, using built-in fallback table", "path", path)
		return newCatalog(fallbackAirports)
	}

	logger.Info("Airport catalog loaded", "path", path, "airports", len(airports))
	return newCatalog(airports)
}

func newCatalog(airports []Airport) *Catalog {
	c := &Catalog{
		byCode:    make(map[string]Airport, len(airports)),
		byCity:    make(map[string][]string),
		byCountry: make(map[string][]string),
	}
	for _, a := range airports {
		c.byCode[a.Code] = a
		city := strings.ToLower(a.City)
		country := strings.ToLower(a.Country)
		c.byCity[city] = append(c.byCity[city], a.Code)
		c.byCountry[country] = append(c.byCountry[country], a.Code)
	}
	return c
}

// Lookup returns the airport for a code, if known.
func (c *Catalog) Lookup(code string) (Airport, bool) {
	a, ok := c.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return a, ok
}

// Known reports whether a code exists in the catalog.
func (c *Catalog) Known(code string) bool {
	_, ok := c.Lookup(code)
	return ok
}

// Size returns the number of airports in the catalog.
func (c *Catalog) Size() int { return len(c.byCode) }

// Search scores airports against a free-text query across code, city,
// country, and name: exact code beats prefix beats substring. Results come
// back best-first, capped at limit.
func (c *Catalog) Search(query string, limit int) []Airport {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || limit <= 0 {
		return nil
	}

	type scored struct {
		airport Airport
		score   int
	}
	var results []scored

	for _, a := range c.byCode {
		score := 0
		code := strings.ToLower(a.Code)
		city := strings.ToLower(a.City)
		country := strings.ToLower(a.Country)
		name := strings.ToLower(a.Name)

		switch {
		case code == query:
			score = 100
		case city == query:
			score = 90
		case strings.HasPrefix(city, query):
			score = 70
		case strings.HasPrefix(country, query), strings.HasPrefix(name, query):
			score = 50
		case strings.Contains(city, query), strings.Contains(name, query), strings.Contains(country, query):
			score = 30
		}

		if score > 0 {
			results = append(results, scored{airport: a, score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].airport.Code < results[j].airport.Code
	})

	if len(results) > limit {
		results = results[:limit]
	}
	out := make([]Airport, len(results))
	for i, r := range results {
		out[i] = r.airport
	}
	return out
}

// Nearby returns airports within radiusKm of the given code, nearest first.
// The anchoring airport itself is excluded.
func (c *Catalog) Nearby(code string, radiusKm float64) ([]NearbyResult, error) {
	origin, ok := c.Lookup(code)
	if !ok {
		return nil, fmt.Errorf("unknown airport code %q", code)
	}

	var results []NearbyResult
	for _, a := range c.byCode {
		if a.Code == origin.Code {
			continue
		}
		d := geo.DistanceBetween(origin.Coords, a.Coords)
		if d <= radiusKm {
			results = append(results, NearbyResult{Airport: a, DistanceKm: d})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].DistanceKm < results[j].DistanceKm
	})
	return results, nil
}

// ByCountry returns all airports in a country, sorted by code.
func (c *Catalog) ByCountry(country string) []Airport {
	codes := c.byCountry[strings.ToLower(strings.TrimSpace(country))]
	out := make([]Airport, 0, len(codes))
	for _, code := range codes {
		out = append(out, c.byCode[code])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// CityCodes returns the airport codes serving a city.
func (c *Catalog) CityCodes(city string) []string {
	codes := c.byCity[strings.ToLower(strings.TrimSpace(city))]
	out := append([]string(nil), codes...)
	sort.Strings(out)
	return out
}

// PreferredCityCode returns the curated primary airport for a major city.
// Only the RSS deal parser uses this; route searches always take explicit
// codes.
func PreferredCityCode(city string) (string, bool) {
	code, ok := preferredCityCodes[strings.ToLower(strings.TrimSpace(city))]
	return code, ok
}
