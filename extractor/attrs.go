package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	nonstopRe     = regexp.MustCompile(`(?i)\bnon-?stop\b`)
	stopsCountRe  = regexp.MustCompile(`(?i)\b(\d)\s+stops?\b`)
	durationHrMin = regexp.MustCompile(`(?i)\b(\d{1,2})\s*hr[s]?\.?\s*(?:(\d{1,2})\s*min)?`)
	durationHM    = regexp.MustCompile(`(?i)\b(\d{1,2})\s*h(?:\s*(\d{1,2})\s*m)?\b`)
	withCarrierRe = regexp.MustCompile(`\bwith\s+([A-Z][A-Za-z ]{2,30})`)
	layoverCodeRe = regexp.MustCompile(`(?i)layover[^.]*?\(([A-Z]{3})\)`)
	parenCodeRe   = regexp.MustCompile(`\(([A-Z]{3})\)`)
)

// knownAirlines is the scan list for the lowest-confidence airline strategy.
var knownAirlines = []string{
	"Air New Zealand", "Qantas", "Jetstar", "Virgin Australia", "Fiji Airways",
	"Singapore Airlines", "Cathay Pacific", "Emirates", "Qatar Airways",
	"Air Tahiti Nui", "LATAM", "United", "Delta", "American", "Hawaiian Airlines",
	"ANA", "Japan Airlines", "Korean Air", "China Airlines", "EVA Air",
	"Malaysia Airlines", "Thai Airways", "Vietnam Airlines", "Air Canada",
	"British Airways", "Air France", "KLM", "Lufthansa",
}

// extractAirline tries ranked strategies inside a row: logo alt text, then
// carrier-tagged elements, then aria-label phrasing, then a known-name scan.
func extractAirline(row *goquery.Selection) (airline string, confidence float64, strategy string) {
	if alt := firstAttr(row, "img[alt]", "alt"); alt != "" && len(alt) <= 40 && !strings.Contains(strings.ToLower(alt), "logo of") {
		return strings.TrimSpace(alt), 0.90, "img_alt"
	}

	var found string
	row.Find("span[class*=\"airline\"], div[class*=\"airline\"], span[class*=\"carrier\"]").
		EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if text != "" && len(text) <= 40 {
				found = text
				return false
			}
			return true
		})
	if found != "" {
		return found, 0.80, "carrier_class"
	}

	var viaLabel string
	row.Find("[aria-label]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		label, _ := s.Attr("aria-label")
		if m := withCarrierRe.FindStringSubmatch(label); m != nil {
			viaLabel = strings.TrimSpace(m[1])
			return false
		}
		return true
	})
	if viaLabel != "" {
		return viaLabel, 0.70, "aria_with_carrier"
	}

	text := row.Text()
	for _, name := range knownAirlines {
		if strings.Contains(text, name) {
			return name, 0.60, "known_name_scan"
		}
	}

	return "", 0, ""
}

// extractStops looks for "Nonstop" first, then an explicit stop count, in
// both element text and aria-labels.
func extractStops(row *goquery.Selection) (stops int, confidence float64, found bool) {
	text := row.Text()
	if nonstopRe.MatchString(text) {
		return 0, 0.95, true
	}
	if m := stopsCountRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, 0.90, true
	}

	var (
		ariaStops int
		ariaFound bool
		ariaConf  float64
	)
	row.Find("[aria-label]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		label, _ := s.Attr("aria-label")
		if nonstopRe.MatchString(label) {
			ariaStops, ariaConf, ariaFound = 0, 0.85, true
			return false
		}
		if m := stopsCountRe.FindStringSubmatch(label); m != nil {
			n, _ := strconv.Atoi(m[1])
			ariaStops, ariaConf, ariaFound = n, 0.85, true
			return false
		}
		return true
	})
	if ariaFound {
		return ariaStops, ariaConf, true
	}

	return 0, 0, false
}

// extractDuration parses total travel time, preferring aria-labels that name
// it explicitly over loose "Nhr Mmin" text.
func extractDuration(row *goquery.Selection) (minutes int, confidence float64) {
	var ariaMinutes int
	row.Find("[aria-label*=\"duration\"], [aria-label*=\"Total\"]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		label, _ := s.Attr("aria-label")
		if m := parseDurationText(label); m > 0 {
			ariaMinutes = m
			return false
		}
		return true
	})
	if ariaMinutes > 0 {
		return ariaMinutes, 0.90
	}

	if m := parseDurationText(row.Text()); m > 0 {
		return m, 0.80
	}
	return 0, 0
}

func parseDurationText(text string) int {
	if m := durationHrMin.FindStringSubmatch(text); m != nil {
		hours, _ := strconv.Atoi(m[1])
		mins := 0
		if m[2] != "" {
			mins, _ = strconv.Atoi(m[2])
		}
		return hours*60 + mins
	}
	if m := durationHM.FindStringSubmatch(text); m != nil {
		hours, _ := strconv.Atoi(m[1])
		mins := 0
		if m[2] != "" {
			mins, _ = strconv.Atoi(m[2])
		}
		return hours*60 + mins
	}
	return 0
}

// extractLayovers pulls the ordered layover airport codes for a row, first
// from layover-specific aria-label phrasing, then from parenthesised codes
// inside layover-classed elements.
func extractLayovers(row *goquery.Selection) []string {
	var codes []string
	seen := make(map[string]bool)

	add := func(code string) {
		code = strings.ToUpper(code)
		if !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}

	row.Find("[aria-label]").Each(func(_ int, s *goquery.Selection) {
		label, _ := s.Attr("aria-label")
		for _, m := range layoverCodeRe.FindAllStringSubmatch(label, -1) {
			add(m[1])
		}
	})

	if len(codes) == 0 {
		row.Find("span[class*=\"layover\"], div[class*=\"layover\"]").Each(func(_ int, s *goquery.Selection) {
			for _, m := range parenCodeRe.FindAllStringSubmatch(s.Text(), -1) {
				add(m[1])
			}
		})
	}

	return codes
}

func firstAttr(row *goquery.Selection, selector, attr string) string {
	val, _ := row.Find(selector).First().Attr(attr)
	return strings.TrimSpace(val)
}
