// Package api is the thin read/ops HTTP shell over the core's data model.
// The pipeline never depends on it.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/jesposito/walkabout/airports"
	"github.com/jesposito/walkabout/db"
	"github.com/jesposito/walkabout/notify"
	"github.com/jesposito/walkabout/sources"
)

// RegisterRoutes mounts the API on the router.
func RegisterRoutes(router *gin.Engine, store db.Store, catalog *airports.Catalog, fetcher *sources.Fetcher, notifier *notify.Notifier) {
	h := &handlers{store: store, catalog: catalog, fetcher: fetcher, notifier: notifier}

	router.GET("/health", h.health)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", h.status)
		v1.GET("/airports/search", h.searchAirports)
		v1.GET("/airports/:code/nearby", h.nearbyAirports)
		v1.GET("/searches", h.listSearches)
		v1.GET("/searches/:id/prices", h.listPrices)
		v1.GET("/searches/:id/health", h.searchHealth)
		v1.GET("/trips", h.listTrips)
		v1.GET("/trips/:id/matches", h.listMatches)
		v1.GET("/deals", h.listDeals)
		v1.POST("/notifications/test", h.testNotification)
	}
}
