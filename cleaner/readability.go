package cleaner

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the text length below which auto mode does not trust
// an extractor's result over a much longer alternative.
const minContentLength = 50

// ExtractContent runs the Mozilla Readability algorithm on rawHTML.
//
// The second return value is false when the URL is unusable, readability
// errors, or it finds no text; the article is then empty and the raw page
// is never returned in its place.
func ExtractContent(rawHTML string, sourceURL string) (article, bool) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Warn("readability: invalid source URL", "url", sourceURL, "error", err)
		return article{}, false
	}

	ra, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("readability: extraction failed", "url", sourceURL, "error", err)
		return article{}, false
	}

	if strings.TrimSpace(ra.TextContent) == "" {
		slog.Debug("readability: no content found", "url", sourceURL)
		return article{}, false
	}

	return article{
		Title:   ra.Title,
		Content: ra.Content,
		Text:    ra.TextContent,
	}, true
}
