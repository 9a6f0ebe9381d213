package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/use-agent/webkeep/archiver"
	"github.com/use-agent/webkeep/cache"
	"github.com/use-agent/webkeep/config"
	"github.com/use-agent/webkeep/models"
	"github.com/use-agent/webkeep/webhook"
)

// PostBatch returns a handler for POST /api/v1/batch/archive.
// It validates the request, registers a job and archives the URLs in the
// background, at most cfg.Concurrency at a time.
func PostBatch(ar Archiver, jobs *cache.Cache[*models.BatchJob], notifier *webhook.Notifier, cfg config.BatchConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		if len(req.URLs) > cfg.MaxURLs {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: fmt.Sprintf("maximum %d URLs per batch", cfg.MaxURLs),
				},
			})
			return
		}

		job := models.NewBatchJob(uuid.NewString(), len(req.URLs), time.Now().Unix())
		jobs.Set(job.ID, job)

		go runBatch(ar, notifier, job, req, cfg.Concurrency)

		c.JSON(http.StatusAccepted, models.BatchResponse{
			ID:     job.ID,
			Status: models.BatchProcessing,
			Total:  job.Total,
		})
	}
}

// GetBatch returns a handler for GET /api/v1/batch/:id.
func GetBatch(jobs *cache.Cache[*models.BatchJob]) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := jobs.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeNotFound,
					Message: "batch job not found",
				},
			})
			return
		}
		c.JSON(http.StatusOK, job.Snapshot())
	}
}

// runBatch archives every URL of req into the shared destination, records
// each result at its URL index and delivers the webhook when done.
func runBatch(ar Archiver, notifier *webhook.Notifier, job *models.BatchJob, req models.BatchRequest, concurrency int) {
	ctx := context.Background()

	var g errgroup.Group
	g.SetLimit(max(concurrency, 1))
	for i, target := range req.URLs {
		g.Go(func() error {
			// Each page gets its own subdirectory so image names never collide.
			dest := path.Join(req.Destination, archiver.SafeFilename(target))
			resp, _ := archiveOne(ctx, ar, target, dest)
			job.Record(i, resp)
			return nil
		})
	}
	_ = g.Wait()
	job.Finish()

	snap := job.Snapshot()
	slog.Info("batch job finished",
		"id", snap.ID,
		"status", snap.Status,
		"completed", snap.Completed,
		"total", snap.Total,
	)

	if req.WebhookURL != "" && notifier != nil {
		notifier.DeliverAsync(req.WebhookURL, req.WebhookSecret, &webhook.Event{
			Type:      webhook.EventBatchCompleted,
			JobID:     snap.ID,
			Timestamp: time.Now().Unix(),
			Data:      snap,
		})
	}
}
