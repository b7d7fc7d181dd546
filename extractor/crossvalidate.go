package extractor

// crossValidate applies sanity penalties when a row's attributes contradict
// each other. The penalty is subtracted from the overall confidence; it never
// rejects a row outright.
func crossValidate(f FlightData) float64 {
	penalty := 0.0

	// Nonstop flights over 20 hours almost always mean the stops value came
	// from somewhere else on the page.
	if f.StopsFound && f.Stops == 0 && f.DurationMinutes > 20*60 {
		penalty += 0.20
	}

	// Three or more stops cannot fit inside two hours of travel.
	if f.StopsFound && f.Stops >= 3 && f.DurationMinutes > 0 && f.DurationMinutes < 2*60 {
		penalty += 0.20
	}

	// A long-haul duration with a sub-100 fare suggests a mismatched price.
	if f.DurationMinutes > 10*60 && f.Price > 0 && f.Price < 100 {
		penalty += 0.10
	}

	// Layovers present on a claimed nonstop.
	if f.StopsFound && f.Stops == 0 && len(f.LayoverAirports) > 0 {
		penalty += 0.10
	}

	if penalty > 0.5 {
		penalty = 0.5
	}
	return penalty
}
