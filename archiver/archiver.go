// Package archiver runs one archive: fetch a page, extract its content,
// download and normalize its images, and save everything to a destination.
package archiver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/use-agent/webkeep/metrics"
	"github.com/use-agent/webkeep/models"
)

// Placeholder is the document saved when no content could be extracted.
const Placeholder = "# Extracted Content\n\n_Source:_ %s\n\n(No main content detected.)\n"

// Fetcher downloads pages and images.
type Fetcher interface {
	GetText(ctx context.Context, url string) (string, error)
	GetBytes(ctx context.Context, url string) ([]byte, error)
}

// ContentExtractor turns page HTML into Markdown. It never fails; "" means
// nothing was found.
type ContentExtractor interface {
	ExtractMarkdown(html, baseURL string) string
}

// ImageDiscoverer lists the absolute image URLs of a page in document order.
type ImageDiscoverer interface {
	DiscoverImageURLs(html, baseURL string) []string
}

// ImageNormalizer re-encodes an image to fit a maxPx square.
type ImageNormalizer interface {
	ResizeSquareMax(data []byte, maxPx int) ([]byte, string, error)
}

// Store persists destinations and files.
type Store interface {
	EnsureDestination(name string) (string, error)
	SaveMarkdown(dest, filename, text string) (string, error)
	SaveBinary(dest, filename string, data []byte) (string, error)
}

// Options tunes image handling.
type Options struct {
	MaxPx   int // default: 800
	Workers int // concurrent image downloads; default: 4
}

// Archiver wires the collaborators of an archive run. It holds no
// per-run state and is safe for concurrent use.
type Archiver struct {
	fetcher    Fetcher
	extractor  ContentExtractor
	discoverer ImageDiscoverer
	normalizer ImageNormalizer
	store      Store
	opts       Options
}

// New creates an Archiver.
func New(f Fetcher, e ContentExtractor, d ImageDiscoverer, n ImageNormalizer, s Store, opts Options) *Archiver {
	if opts.MaxPx < 1 {
		opts.MaxPx = 800
	}
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	return &Archiver{
		fetcher:    f,
		extractor:  e,
		discoverer: d,
		normalizer: n,
		store:      s,
		opts:       opts,
	}
}

// Execute archives pageURL into the destination named destinationName.
//
// Flow:
//  1. Ensure the destination (fails before any network I/O).
//  2. Fetch the page.
//  3. Extract Markdown, or use the placeholder.
//  4. Discover image URLs.
//  5. Download, normalize and save images on a bounded worker pool.
//  6. Append an "Extracted Images" section for the saved ones.
//  7. Save the document as "{safe name}.md".
//
// Destination, page fetch and document save errors abort the run. A failed
// image is logged and left out; images saved before a later abort stay.
func (a *Archiver) Execute(ctx context.Context, pageURL, destinationName string) (models.ExtractionResult, error) {
	start := time.Now()
	res, err := a.execute(ctx, pageURL, destinationName)
	if err != nil {
		metrics.ObserveArchive(models.CodeOf(err))
		slog.Error("archive failed", "url", pageURL, "destination", destinationName, "error", err)
		return models.ExtractionResult{}, err
	}

	metrics.ObserveArchive("ok")
	slog.Info("archive complete",
		"url", pageURL,
		"path", res.DocumentPath,
		"images", len(res.ImageFilenames),
		"discovered", res.DiscoveredImages,
		"duration", time.Since(start),
	)
	return res, nil
}

func (a *Archiver) execute(ctx context.Context, pageURL, destinationName string) (models.ExtractionResult, error) {
	// ── 1. Destination ──────────────────────────────────────────────
	dest, err := a.store.EnsureDestination(destinationName)
	if err != nil {
		return models.ExtractionResult{}, err
	}

	// ── 2. Fetch page ───────────────────────────────────────────────
	html, err := a.fetcher.GetText(ctx, pageURL)
	if err != nil {
		return models.ExtractionResult{}, err
	}

	// ── 3. Extract ──────────────────────────────────────────────────
	page := models.PageAssets{HTML: html, URL: pageURL}
	document := a.extractor.ExtractMarkdown(page.HTML, page.URL)
	if strings.TrimSpace(document) == "" {
		document = fmt.Sprintf(Placeholder, pageURL)
	}

	// ── 4-5. Images ─────────────────────────────────────────────────
	imageURLs := a.discoverer.DiscoverImageURLs(page.HTML, page.URL)
	saved := a.saveImages(ctx, dest, imageURLs)

	// ── 6. Compose ──────────────────────────────────────────────────
	document = AppendImages(document, saved)

	// ── 7. Save document ────────────────────────────────────────────
	docPath, err := a.store.SaveMarkdown(dest, SafeFilename(pageURL)+".md", document)
	if err != nil {
		return models.ExtractionResult{}, err
	}

	return models.ExtractionResult{
		Document:         document,
		ImageFilenames:   saved,
		Destination:      dest,
		DocumentPath:     docPath,
		DiscoveredImages: len(imageURLs),
	}, nil
}

// imageOutcome is the result of one image: a saved filename or an error.
type imageOutcome struct {
	url      string
	filename string
	err      error
}

// saveImages processes urls with at most opts.Workers in flight. Outcomes
// are stored by discovery index, so numbering and order do not depend on
// completion order. Only successes are returned.
func (a *Archiver) saveImages(ctx context.Context, dest string, urls []string) []string {
	outcomes := make([]imageOutcome, len(urls))

	var g errgroup.Group
	g.SetLimit(a.opts.Workers)
	for i, u := range urls {
		g.Go(func() error {
			outcomes[i] = a.saveImage(ctx, dest, i+1, u)
			return nil
		})
	}
	_ = g.Wait()

	saved := []string{}
	for _, o := range outcomes {
		if o.err != nil {
			metrics.ObserveImage("skipped")
			slog.Warn("image skipped", "url", o.url, "error", o.err)
			continue
		}
		metrics.ObserveImage("saved")
		saved = append(saved, o.filename)
	}
	return saved
}

func (a *Archiver) saveImage(ctx context.Context, dest string, index int, url string) imageOutcome {
	data, err := a.fetcher.GetBytes(ctx, url)
	if err != nil {
		return imageOutcome{url: url, err: err}
	}
	resized, ext, err := a.normalizer.ResizeSquareMax(data, a.opts.MaxPx)
	if err != nil {
		return imageOutcome{url: url, err: err}
	}
	filename := ImageFilename(index, ext)
	if _, err := a.store.SaveBinary(dest, filename, resized); err != nil {
		return imageOutcome{url: url, err: err}
	}
	return imageOutcome{url: url, filename: filename}
}
