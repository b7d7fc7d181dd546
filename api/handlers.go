package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jesposito/walkabout/airports"
	"github.com/jesposito/walkabout/db"
	"github.com/jesposito/walkabout/notify"
	"github.com/jesposito/walkabout/sources"
)

type handlers struct {
	store    db.Store
	catalog  *airports.Catalog
	fetcher  *sources.Fetcher
	notifier *notify.Notifier
}

func (h *handlers) searchAirports(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q parameter is required"})
		return
	}

	results := h.catalog.Search(query, 10)
	out := make([]gin.H, 0, len(results))
	for _, a := range results {
		out = append(out, gin.H{
			"code":    a.Code,
			"name":    a.Name,
			"city":    a.City,
			"country": a.Country,
			"region":  a.Region,
		})
	}
	c.JSON(http.StatusOK, gin.H{"airports": out})
}

func (h *handlers) nearbyAirports(c *gin.Context) {
	radiusKm := 500.0
	if raw := c.Query("radius_km"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			radiusKm = parsed
		}
	}

	results, err := h.catalog.Nearby(c.Param("code"), radiusKm)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(results))
	for _, r := range results {
		out = append(out, gin.H{
			"code":        r.Airport.Code,
			"city":        r.Airport.City,
			"country":     r.Airport.Country,
			"distance_km": r.DistanceKm,
		})
	}
	c.JSON(http.StatusOK, gin.H{"airports": out})
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"available_sources": h.fetcher.AvailableSources(),
		"time":              time.Now().UTC(),
	})
}

func (h *handlers) listSearches(c *gin.Context) {
	defs, err := h.store.ListActiveSearchDefinitions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(defs))
	for _, d := range defs {
		out = append(out, gin.H{
			"id":               d.ID,
			"origin":           d.Origin,
			"destination":      d.Destination,
			"trip_type":        d.TripType,
			"cabin_class":      d.CabinClass,
			"currency":         d.Currency,
			"version":          d.Version,
			"preferred_source": d.PreferredSource,
		})
	}
	c.JSON(http.StatusOK, gin.H{"searches": out})
}

func (h *handlers) listPrices(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid search id"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	prices, err := h.store.ListRecentPrices(c.Request.Context(), id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(prices))
	for _, p := range prices {
		row := gin.H{
			"scraped_at":     p.ScrapedAt,
			"departure_date": p.DepartureDate.Format(time.DateOnly),
			"price":          p.Price,
			"total_price":    p.TotalPrice,
			"stops":          p.Stops,
			"source":         p.Source,
			"confidence":     p.Confidence,
			"is_suspicious":  p.IsSuspicious,
		}
		if p.ReturnDate.Valid {
			row["return_date"] = p.ReturnDate.Time.Format(time.DateOnly)
		}
		if p.Airline.Valid {
			row["airline"] = p.Airline.String
		}
		out = append(out, row)
	}
	c.JSON(http.StatusOK, gin.H{"prices": out})
}

func (h *handlers) searchHealth(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid search id"})
		return
	}

	health, err := h.store.GetOrCreateScrapeHealth(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"healthy":              health.IsHealthy(),
		"total_attempts":       health.TotalAttempts,
		"total_successes":      health.TotalSuccesses,
		"total_failures":       health.TotalFailures,
		"consecutive_failures": health.ConsecutiveFailures,
		"success_rate":         health.SuccessRate(),
		"circuit_open":         health.CircuitOpen,
		"last_failure_reason":  health.LastFailureReason.String,
	})
}

func (h *handlers) listTrips(c *gin.Context) {
	plans, err := h.store.ListActiveTripPlans(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(plans))
	for _, p := range plans {
		out = append(out, gin.H{
			"id":                 p.ID,
			"name":               p.Name,
			"match_count":        p.MatchCount,
			"search_in_progress": p.SearchInProgress,
			"budget_currency":    p.BudgetCurrency,
		})
	}
	c.JSON(http.StatusOK, gin.H{"trips": out})
}

func (h *handlers) listMatches(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trip id"})
		return
	}

	matches, err := h.store.ListMatchesByPrice(c.Request.Context(), id, db.MatchSourceGoogleFlights, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(matches))
	for _, m := range matches {
		row := gin.H{
			"origin":         m.Origin,
			"destination":    m.Destination,
			"departure_date": m.DepartureDate.Format(time.DateOnly),
			"price_nzd":      m.PriceNZD,
			"stops":          m.Stops,
			"match_score":    m.MatchScore,
		}
		if m.ReturnDate.Valid {
			row["return_date"] = m.ReturnDate.Time.Format(time.DateOnly)
		}
		if m.BookingURL.Valid {
			row["booking_url"] = m.BookingURL.String
		}
		out = append(out, row)
	}
	c.JSON(http.StatusOK, gin.H{"matches": out})
}

func (h *handlers) listDeals(c *gin.Context) {
	deals, err := h.store.ListRelevantDeals(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(deals))
	for _, d := range deals {
		out = append(out, gin.H{
			"id":           d.ID,
			"title":        d.RawTitle,
			"origin":       d.ParsedOrigin.String,
			"destination":  d.ParsedDest.String,
			"price":        d.ParsedPrice.Float64,
			"currency":     d.ParsedCurrency.String,
			"rating":       d.Rating.String,
			"published_at": d.PublishedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"deals": out})
}

func (h *handlers) testNotification(c *gin.Context) {
	if err := h.notifier.SendTest(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true})
}
