package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PriceValidator bounds-checks extracted prices and rejects values from the
// suspicious-constants set (round numbers that tend to be UI counters, not
// fares).
type PriceValidator struct {
	Min        float64
	Max        float64
	Suspicious map[int]bool
}

// DefaultPriceValidator accepts fares between 50 and 50000 and rejects the
// usual UI-counter constants.
func DefaultPriceValidator() PriceValidator {
	return PriceValidator{
		Min: 50,
		Max: 50000,
		Suspicious: map[int]bool{
			1000:  true,
			2000:  true,
			5000:  true,
			10000: true,
		},
	}
}

// Valid reports whether a price passes bounds and the suspicious set.
func (v PriceValidator) Valid(price float64) bool {
	if price < v.Min || price > v.Max {
		return false
	}
	if price == float64(int(price)) && v.Suspicious[int(price)] {
		return false
	}
	return true
}

// Price patterns all demand an explicit currency marker. Patterns admitting
// bare numbers (\b\d{3,5}\b) are disallowed: they match flight numbers,
// years, and UI counters.
var (
	ariaDollarsRe  = regexp.MustCompile(`([\d,]+)\s+(?:New Zealand |US |Australian |Canadian |Singapore )?dollars`)
	currencyCodeRe = regexp.MustCompile(`(?:NZD|USD|AUD|CAD|SGD)\s*\$?\s*([\d,]+(?:\.\d{1,2})?)`)
	symbolPriceRe  = regexp.MustCompile(`(?:NZ\$|A\$|US\$|S\$|C\$|\$)\s*([\d,]+(?:\.\d{1,2})?)`)
)

// priceStrategy is one ranked extraction tactic inside a row.
type priceStrategy struct {
	name       string
	confidence float64
	extract    func(row *goquery.Selection) (float64, bool)
}

// priceStrategies run in order until one yields a valid price.
var priceStrategies = []priceStrategy{
	{
		name:       "aria_label_dollars",
		confidence: 0.95,
		extract: func(row *goquery.Selection) (float64, bool) {
			var price float64
			found := false
			row.Find("span[aria-label]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
				label, _ := s.Attr("aria-label")
				if p, ok := parsePriceMatch(ariaDollarsRe, label); ok {
					price, found = p, true
					return false
				}
				return true
			})
			return price, found
		},
	},
	{
		name:       "data_gs_attribute",
		confidence: 0.90,
		extract: func(row *goquery.Selection) (float64, bool) {
			var price float64
			found := false
			row.Find("[data-gs]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
				if p, ok := parsePriceText(s.Text()); ok {
					price, found = p, true
					return false
				}
				return true
			})
			return price, found
		},
	},
	{
		name:       "jsname_price_element",
		confidence: 0.85,
		extract: func(row *goquery.Selection) (float64, bool) {
			var price float64
			found := false
			row.Find("[jsname=\"IWWDBc\"], [jsname=\"qCDwBb\"]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
				if p, ok := parsePriceText(s.Text()); ok {
					price, found = p, true
					return false
				}
				return true
			})
			return price, found
		},
	},
	{
		name:       "price_class_span",
		confidence: 0.75,
		extract: func(row *goquery.Selection) (float64, bool) {
			var price float64
			found := false
			row.Find("div[class*=\"price\"] span, span[class*=\"price\"]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
				if p, ok := parsePriceText(s.Text()); ok {
					price, found = p, true
					return false
				}
				return true
			})
			return price, found
		},
	},
	{
		name:       "row_text_currency",
		confidence: 0.65,
		extract: func(row *goquery.Selection) (float64, bool) {
			return parsePriceText(row.Text())
		},
	},
}

// extractPrice runs the strategy ladder for one row.
func extractPrice(row *goquery.Selection, v PriceValidator) (price, confidence float64, strategy string, ok bool) {
	for _, s := range priceStrategies {
		if p, found := s.extract(row); found && v.Valid(p) {
			return p, s.confidence, s.name, true
		}
	}
	return 0, 0, "", false
}

// pagePrice is one price found by the page-level sweep.
type pagePrice struct {
	value      float64
	confidence float64
	strategy   string
}

// pageLevelCap bounds how many page-level candidates are returned; beyond a
// handful, global matches are noise.
const pageLevelCap = 10

// extractPagePrices is the global fallback: currency-anchored patterns over
// the whole document, deduplicated.
func extractPagePrices(doc *goquery.Document, v PriceValidator) []pagePrice {
	seen := make(map[float64]bool)
	var prices []pagePrice

	add := func(p float64, confidence float64, strategy string) {
		if !v.Valid(p) || seen[p] {
			return
		}
		seen[p] = true
		prices = append(prices, pagePrice{value: p, confidence: confidence, strategy: strategy})
	}

	doc.Find("span[aria-label]").Each(func(_ int, s *goquery.Selection) {
		label, _ := s.Attr("aria-label")
		if p, ok := parsePriceMatch(ariaDollarsRe, label); ok {
			add(p, 0.60, "page_aria_label")
		}
	})

	doc.Find("[data-gs]").Each(func(_ int, s *goquery.Selection) {
		if p, ok := parsePriceText(s.Text()); ok {
			add(p, 0.55, "page_data_gs")
		}
	})

	if len(prices) == 0 {
		body := doc.Find("body").Text()
		for _, m := range symbolPriceRe.FindAllStringSubmatch(body, pageLevelCap) {
			if p, ok := parseAmount(m[1]); ok {
				add(p, 0.45, "page_body_regex")
			}
		}
	}

	if len(prices) > pageLevelCap {
		prices = prices[:pageLevelCap]
	}
	return prices
}

// parsePriceText extracts the first currency-marked amount from text.
func parsePriceText(text string) (float64, bool) {
	if p, ok := parsePriceMatch(symbolPriceRe, text); ok {
		return p, true
	}
	return parsePriceMatch(currencyCodeRe, text)
}

func parsePriceMatch(re *regexp.Regexp, text string) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	return parseAmount(m[1])
}

func parseAmount(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(raw, ",", "")
	p, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || p <= 0 {
		return 0, false
	}
	return p, true
}
