package models

import "sync"

// Batch job states.
const (
	BatchProcessing = "processing"
	BatchCompleted  = "completed"
	BatchPartial    = "partial"
	BatchFailed     = "failed"
)

// BatchRequest is the payload for POST /api/v1/batch/archive.
type BatchRequest struct {
	// URLs is the list of pages to archive. Required.
	URLs []string `json:"urls" binding:"required,min=1,dive,url"`

	// Destination is the parent directory for the batch. Each URL is
	// archived into its own subdirectory named after the URL.
	Destination string `json:"destination,omitempty"`

	// WebhookURL receives the final job status when the batch finishes.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`

	// WebhookSecret signs the webhook payload (HMAC-SHA256).
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// BatchResponse is the immediate response for POST /api/v1/batch/archive.
type BatchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// BatchStatusResponse is the response for GET /api/v1/batch/:id and the
// webhook payload.
type BatchStatusResponse struct {
	ID        string             `json:"id"`
	Status    string             `json:"status"`
	Completed int                `json:"completed"`
	Total     int                `json:"total"`
	Results   []*ArchiveResponse `json:"results,omitempty"`
}

// BatchJob tracks an in-progress batch archive operation.
type BatchJob struct {
	mu        sync.Mutex
	ID        string
	Status    string
	Total     int
	Completed int
	Results   []*ArchiveResponse
	CreatedAt int64 // unix timestamp
}

// NewBatchJob creates a job in the processing state.
func NewBatchJob(id string, total int, createdAt int64) *BatchJob {
	return &BatchJob{
		ID:        id,
		Status:    BatchProcessing,
		Total:     total,
		Results:   make([]*ArchiveResponse, total),
		CreatedAt: createdAt,
	}
}

// Record stores the result for URL index i.
func (j *BatchJob) Record(i int, resp *ArchiveResponse) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Results[i] = resp
	j.Completed++
}

// Finish derives the final status from the recorded results.
func (j *BatchJob) Finish() {
	j.mu.Lock()
	defer j.mu.Unlock()
	ok := 0
	for _, r := range j.Results {
		if r != nil && r.Success {
			ok++
		}
	}
	switch {
	case ok == j.Total:
		j.Status = BatchCompleted
	case ok == 0:
		j.Status = BatchFailed
	default:
		j.Status = BatchPartial
	}
}

// Snapshot returns a copy safe to serialize while workers are running.
func (j *BatchJob) Snapshot() BatchStatusResponse {
	j.mu.Lock()
	defer j.mu.Unlock()
	results := make([]*ArchiveResponse, 0, len(j.Results))
	for _, r := range j.Results {
		if r != nil {
			results = append(results, r)
		}
	}
	return BatchStatusResponse{
		ID:        j.ID,
		Status:    j.Status,
		Completed: j.Completed,
		Total:     j.Total,
		Results:   results,
	}
}
