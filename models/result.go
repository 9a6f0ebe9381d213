package models

// ExtractionResult is what one archive run produced.
//
// ImageFilenames lists only images that were fetched, normalized and
// persisted, in discovery order. Filenames are relative to Destination
// (e.g. "images/img_003.jpg").
type ExtractionResult struct {
	Document       string
	ImageFilenames []string

	// Destination is the store's token for the directory written to.
	Destination string

	// DocumentPath is where the Markdown document was saved.
	DocumentPath string

	// DiscoveredImages counts image URLs found on the page, including
	// the ones that failed to download or decode.
	DiscoveredImages int
}

// PageAssets is the fetched page handed to extraction and discovery.
type PageAssets struct {
	HTML string
	URL  string
}
