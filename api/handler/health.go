package handler

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/webkeep/models"
)

// Version is reported by the health endpoint. Overridden at link time.
var Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Reports "degraded" when the base directory is no longer a directory.
func Health(ds Destinations, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := models.HealthResponse{
			Status:  "healthy",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: Version,
			BaseDir: ds.BaseDir(),
		}

		info, err := os.Stat(resp.BaseDir)
		switch {
		case err != nil:
			resp.Status = "degraded"
			resp.BaseDirError = err.Error()
		case !info.IsDir():
			resp.Status = "degraded"
			resp.BaseDirError = "not a directory"
		}

		c.JSON(http.StatusOK, resp)
	}
}
