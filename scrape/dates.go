package scrape

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jesposito/walkabout/db"
)

// tripDurationSeedOffset decorrelates the trip-length sample from the
// departure sample for the same definition and day.
const tripDurationSeedOffset = 10000

// deterministicSample picks a value in [min, max] from a hash of the search
// id and today's date: stable within a day, shifting across days so repeated
// scrapes cover the whole window over time.
func deterministicSample(searchID int64, today time.Time, min, max int) int {
	if max <= min {
		return min
	}
	h := fnv.New32a()
	fmt.Fprintf(h, "%d-%s", searchID, today.Format(time.DateOnly))
	return min + int(h.Sum32()%uint32(max-min+1))
}

// GenerateTravelDates derives the (departure, return) pair for a scrape.
// Fixed-window definitions use their start date verbatim; rolling-window
// definitions sample days-out and trip length deterministically per day.
// One-way trips get a zero return date.
func GenerateTravelDates(def *db.SearchDefinition, today time.Time) (time.Time, time.Time) {
	var departure time.Time
	switch {
	case def.DepartureDateStart.Valid:
		departure = def.DepartureDateStart.Time
	case def.DepartureDaysMin.Valid && def.DepartureDaysMax.Valid:
		daysOut := deterministicSample(def.ID, today,
			int(def.DepartureDaysMin.Int32), int(def.DepartureDaysMax.Int32))
		departure = today.AddDate(0, 0, daysOut)
	default:
		departure = today.AddDate(0, 0, 60)
	}

	if def.TripType == "one_way" {
		return departure, time.Time{}
	}

	if def.TripDurationMin.Valid && def.TripDurationMax.Valid {
		tripDays := deterministicSample(def.ID+tripDurationSeedOffset, today,
			int(def.TripDurationMin.Int32), int(def.TripDurationMax.Int32))
		return departure, departure.AddDate(0, 0, tripDays)
	}
	return departure, departure.AddDate(0, 0, 7)
}
