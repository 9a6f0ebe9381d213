package api

import (
	"embed"
	"html/template"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/webkeep/api/handler"
	"github.com/use-agent/webkeep/api/middleware"
	"github.com/use-agent/webkeep/cache"
	"github.com/use-agent/webkeep/config"
	"github.com/use-agent/webkeep/metrics"
	"github.com/use-agent/webkeep/models"
	"github.com/use-agent/webkeep/webhook"
)

//go:embed templates/*.html
var templateFS embed.FS

// Services are the collaborators the handlers call.
type Services struct {
	Archiver     handler.Archiver
	Destinations handler.Destinations
	Jobs         *cache.Cache[*models.BatchJob]
	Notifier     *webhook.Notifier
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	Form:    RateLimit
//	API:     Auth (if enabled) → RateLimit
//
// Health, destinations and metrics stay outside auth so health checks always work.
func NewRouter(svc Services, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	limit := middleware.RateLimit(cfg.RateLimit)

	// Form UI.
	r.GET("/", handler.Index(svc.Destinations))
	r.POST("/extract", limit, handler.Extract(svc.Archiver, svc.Destinations))

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(svc.Destinations, startTime))
	v1.GET("/destinations", handler.ListDestinations(svc.Destinations))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(limit)

	protected.POST("/archive", handler.Archive(svc.Archiver))

	protected.POST("/batch/archive", handler.PostBatch(svc.Archiver, svc.Jobs, svc.Notifier, cfg.Batch))
	protected.GET("/batch/:id", handler.GetBatch(svc.Jobs))

	return r
}
