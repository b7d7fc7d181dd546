package extractor

import "github.com/PuerkitoBio/goquery"

// rowLevel is one tier of the row-discovery hierarchy. Levels are ordered by
// how specific their selectors are to Google's current markup; each carries
// the a-priori correlation confidence granted to rows it finds.
type rowLevel struct {
	name        string
	correlation float64
	findRows    func(doc *goquery.Document) []*goquery.Selection
}

// rowLevels is the full hierarchy, most specific first. A level that finds
// no usable rows falls through to the next.
var rowLevels = []rowLevel{
	{
		// L0: Google-specific structural selectors.
		name:        "structural",
		correlation: 0.95,
		findRows: selectorRows(
			"li.pIav2d",
			"div[jsname=\"YdtKid\"] li",
			"div[jsname=\"IWWDBc\"] li",
		),
	},
	{
		// L1: category-scoped class heuristics.
		name:        "category",
		correlation: 0.90,
		findRows: selectorRows(
			"ul[class*=\"flight\"] > li",
			"div[class*=\"flight-result\"]",
			"li[class*=\"result\"]",
			"div[class*=\"itinerary\"]",
		),
	},
	{
		// L2: ARIA roles.
		name:        "aria",
		correlation: 0.90,
		findRows: selectorRows(
			"ul[role=\"list\"] > li[role=\"listitem\"]",
			"[role=\"listitem\"]",
		),
	},
	{
		// L3: DOM traversal anchored on price-bearing elements, climbing to
		// the enclosing row-like container.
		name:        "traversal",
		correlation: 0.80,
		findRows:    traversalRows,
	},
}

// selectorRows builds a finder that returns each match of the first selector
// producing at least one plausible row.
func selectorRows(selectors ...string) func(doc *goquery.Document) []*goquery.Selection {
	return func(doc *goquery.Document) []*goquery.Selection {
		for _, sel := range selectors {
			var rows []*goquery.Selection
			doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
				if plausibleRow(s) {
					rows = append(rows, s)
				}
			})
			if len(rows) > 0 {
				return rows
			}
		}
		return nil
	}
}

// traversalRows anchors on elements that look like prices and walks up to
// the nearest li or row-like div, deduplicating by node.
func traversalRows(doc *goquery.Document) []*goquery.Selection {
	anchors := doc.Find("span[aria-label*=\"dollar\"], [data-gs], span[aria-label*=\"price\"]")

	seen := make(map[*goquery.Selection]bool)
	var rows []*goquery.Selection

	anchors.Each(func(_ int, anchor *goquery.Selection) {
		row := anchor.Closest("li")
		if row.Length() == 0 {
			row = anchor.ParentsFiltered("div").First()
		}
		if row.Length() == 0 || !plausibleRow(row) {
			return
		}

		node := row.Get(0)
		for existing := range seen {
			if existing.Get(0) == node {
				return
			}
		}
		seen[row] = true
		rows = append(rows, row)
	})

	return rows
}

// plausibleRow filters out containers too small to be a flight row (stray
// list items, icons) and page-sized wrappers.
func plausibleRow(s *goquery.Selection) bool {
	text := s.Text()
	return len(text) >= 20 && len(text) <= 4000
}
