package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/webkeep/models"
)

// Destinations lists the directories archives can be written to.
type Destinations interface {
	ListDestinations() ([]string, error)
	BaseDir() string
}

// ListDestinations returns a handler for GET /api/v1/destinations.
func ListDestinations(ds Destinations) gin.HandlerFunc {
	return func(c *gin.Context) {
		names, err := ds.ListDestinations()
		if err != nil {
			slog.Error("list destinations failed", "error", err)
			ae := asArchiveError(err)
			c.JSON(mapErrorToStatus(ae.Code), gin.H{"error": ae.ToDetail()})
			return
		}
		c.JSON(http.StatusOK, models.DestinationsResponse{Destinations: names})
	}
}
