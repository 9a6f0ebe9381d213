package handler

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/webkeep/models"
)

// formPage is the template rendered by Index and Extract.
const formPage = "index.html"

// formView is the data the form template renders.
type formView struct {
	Destinations []string
	Selected     string
	URL          string
	Result       *models.ArchiveResponse
	Error        string
}

// Index returns a handler for GET / rendering the archive form.
func Index(ds Destinations) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, formPage, formView{
			Destinations: destinationsOrEmpty(ds),
			Selected:     models.DefaultDestination,
		})
	}
}

// Extract returns a handler for POST /extract, the form submission.
//
// The destination is the typed-in new destination, else the selected
// one, else "exports". Failures re-render the form with the message.
func Extract(ar Archiver, ds Destinations) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Parse form ───────────────────────────────────────────
		var req models.FormRequest
		if err := c.ShouldBind(&req); err != nil {
			c.HTML(http.StatusBadRequest, formPage, formView{
				Destinations: destinationsOrEmpty(ds),
				Selected:     models.DefaultDestination,
				Error:        "a URL is required",
			})
			return
		}
		dest := req.ResolvedDestination()

		// ── 2. Archive ──────────────────────────────────────────────
		resp, err := archiveOne(c.Request.Context(), ar, req.URL, dest)

		// ── 3. Render ───────────────────────────────────────────────
		view := formView{
			Destinations: destinationsOrEmpty(ds),
			Selected:     dest,
			URL:          req.URL,
		}
		if err != nil {
			view.Error = resp.Error.Message
			c.HTML(mapErrorToStatus(resp.Error.Code), formPage, view)
			return
		}
		view.Result = resp
		c.HTML(http.StatusOK, formPage, view)
	}
}

// destinationsOrEmpty lists the existing destinations for the dropdown,
// always offering the default one.
func destinationsOrEmpty(ds Destinations) []string {
	names, err := ds.ListDestinations()
	if err != nil {
		slog.Warn("list destinations failed", "error", err)
	}
	if !slices.Contains(names, models.DefaultDestination) {
		names = append(names, models.DefaultDestination)
	}
	return names
}
