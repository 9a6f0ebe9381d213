package models

import "strings"

// DefaultDestination is used when a form submission names no destination.
const DefaultDestination = "exports"

// ArchiveRequest is the payload for POST /api/v1/archive.
type ArchiveRequest struct {
	// URL is the page to archive. Required.
	URL string `json:"url" binding:"required,url"`

	// Destination names the directory the document and images are
	// written to. Relative names resolve under the configured base
	// directory; empty means a timestamped "export-..." directory.
	Destination string `json:"destination,omitempty"`
}

// FormRequest is the payload of the HTML form posted to /extract.
type FormRequest struct {
	URL            string `form:"url" binding:"required"`
	Destination    string `form:"destination"`
	NewDestination string `form:"new_destination"`
}

// ResolvedDestination picks the typed-in destination over the selected
// one, falling back to DefaultDestination.
func (r *FormRequest) ResolvedDestination() string {
	if d := strings.TrimSpace(r.NewDestination); d != "" {
		return d
	}
	if d := strings.TrimSpace(r.Destination); d != "" {
		return d
	}
	return DefaultDestination
}
