package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/webkeep/cleaner"
	"github.com/use-agent/webkeep/models"
)

// Archiver runs one archive.
type Archiver interface {
	Execute(ctx context.Context, url, destination string) (models.ExtractionResult, error)
}

// Archive returns a handler for POST /api/v1/archive.
//
// Orchestration flow:
//  1. Parse & validate request.
//  2. Archiver.Execute → document + saved images.
//  3. Fill token estimate and timing, return 200.
func Archive(ar Archiver) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Parse request ────────────────────────────────────────
		var req models.ArchiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ArchiveResponse{
				Success: false,
				Images:  []string{},
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		// ── 2-3. Archive and respond ────────────────────────────────
		resp, err := archiveOne(c.Request.Context(), ar, req.URL, req.Destination)
		if err != nil {
			respondError(c, err, resp)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// archiveOne runs an archive and always returns a response carrying the
// URL and timing; on failure the error is returned alongside it.
func archiveOne(ctx context.Context, ar Archiver, url, destination string) (*models.ArchiveResponse, error) {
	start := time.Now()

	res, err := ar.Execute(ctx, url, destination)
	timing := models.TimingInfo{TotalMs: time.Since(start).Milliseconds()}
	if err != nil {
		return &models.ArchiveResponse{
			URL:    url,
			Images: []string{},
			Timing: timing,
			Error:  asArchiveError(err).ToDetail(),
		}, err
	}

	resp := models.NewArchiveResponse(url, res)
	resp.Tokens = models.TokenInfo{DocumentEstimate: cleaner.EstimateTokens(res.Document)}
	resp.Timing = timing
	return resp, nil
}
