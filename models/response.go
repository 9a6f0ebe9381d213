package models

// ArchiveResponse is the response for POST /api/v1/archive.
type ArchiveResponse struct {
	// Success indicates whether the document was archived.
	Success bool `json:"success"`

	// URL echoes the archived page.
	URL string `json:"url"`

	// Destination is the directory the files were written to.
	Destination string `json:"destination,omitempty"`

	// DocumentPath is the location of the saved Markdown file.
	DocumentPath string `json:"document_path,omitempty"`

	// Document is the Markdown that was saved.
	Document string `json:"document,omitempty"`

	// Images lists saved image paths relative to the destination.
	Images []string `json:"images"`

	// Discovered is the number of image URLs found on the page.
	Discovered int `json:"discovered"`

	// Tokens estimates the LLM token footprint of the document.
	Tokens TokenInfo `json:"tokens"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// NewArchiveResponse builds a successful response from a result.
func NewArchiveResponse(url string, res ExtractionResult) *ArchiveResponse {
	images := res.ImageFilenames
	if images == nil {
		images = []string{}
	}
	return &ArchiveResponse{
		Success:      true,
		URL:          url,
		Destination:  res.Destination,
		DocumentPath: res.DocumentPath,
		Document:     res.Document,
		Images:       images,
		Discovered:   res.DiscoveredImages,
	}
}

// TokenInfo estimates how many LLM tokens the saved document costs.
type TokenInfo struct {
	DocumentEstimate int `json:"document_estimate"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`
}

// DestinationsResponse is the response for GET /api/v1/destinations.
type DestinationsResponse struct {
	Destinations []string `json:"destinations"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status       string `json:"status"` // "healthy" or "degraded"
	Uptime       string `json:"uptime"`
	Version      string `json:"version"`
	BaseDir      string `json:"base_dir"`
	BaseDirError string `json:"base_dir_error,omitempty"`
}
