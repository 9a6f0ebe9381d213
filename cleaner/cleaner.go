package cleaner

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// General extraction modes.
const (
	ModeReadability = "readability"
	ModePruning     = "pruning"
	ModeAuto        = "auto"
)

// Link styles for the general Markdown.
const (
	LinkStyleInline    = "inline"
	LinkStyleCitations = "citations"
)

// Options tunes a Cleaner. The zero value means readability mode with
// inline links and no section dedup.
type Options struct {
	Mode          string
	LinkStyle     string
	DedupSections bool
	CSSSelector   string
}

// Cleaner turns a fetched page into Markdown in two passes:
//
//	general:    main-content extraction (readability / pruning) → Markdown
//	disclosure: <details>/<summary> widgets the general pass drops
//
// The converter is created once and reused across calls (goroutine-safe).
type Cleaner struct {
	mdConverter *converter.Converter
	opts        Options
}

// New creates a Cleaner. It fails only on an invalid CSS selector or an
// unknown mode.
func New(opts Options) (*Cleaner, error) {
	switch opts.Mode {
	case "":
		opts.Mode = ModeReadability
	case ModeReadability, ModePruning, ModeAuto:
	default:
		return nil, fmt.Errorf("cleaner: unknown extract mode %q", opts.Mode)
	}
	if opts.CSSSelector != "" {
		if _, err := cascadia.Parse(opts.CSSSelector); err != nil {
			return nil, fmt.Errorf("cleaner: css selector %q: %w", opts.CSSSelector, err)
		}
	}
	return &Cleaner{
		mdConverter: newMarkdownConverter(),
		opts:        opts,
	}, nil
}

// ExtractMarkdown returns the page's main content followed by any content
// recovered from disclosure widgets. It never fails: malformed HTML yields
// best-effort output, and "" when nothing was found.
func (c *Cleaner) ExtractMarkdown(rawHTML, baseURL string) string {
	general := c.general(rawHTML, baseURL)
	disclosure := c.disclosure(rawHTML)

	switch {
	case disclosure == "":
		return general
	case general == "":
		return disclosure
	default:
		return general + "\n\n" + disclosure
	}
}

// general runs the configured main-content extractor and converts the
// result to Markdown.
func (c *Cleaner) general(rawHTML, baseURL string) string {
	input := rawHTML
	if c.opts.CSSSelector != "" {
		scoped, err := ApplyCSSSelector(rawHTML, c.opts.CSSSelector)
		if err != nil {
			slog.Warn("css selector failed, using full page", "url", baseURL, "error", err)
		} else {
			input = scoped
		}
	}

	var art article
	switch c.opts.Mode {
	case ModePruning:
		art = pruneArticle(input)
	case ModeAuto:
		art = autoExtract(input, baseURL)
	default:
		art, _ = ExtractContent(input, baseURL)
	}
	if strings.TrimSpace(art.Text) == "" {
		return ""
	}

	md, err := ToMarkdown(c.mdConverter, art.Content, baseURL)
	if err != nil {
		slog.Warn("markdown conversion failed", "url", baseURL, "error", err)
		return ""
	}
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}

	// Readability strips an <h1> that repeats the title.
	if title := strings.TrimSpace(art.Title); title != "" && !strings.HasPrefix(md, "#") {
		md = "# " + title + "\n\n" + md
	}

	if c.opts.LinkStyle == LinkStyleCitations {
		md = ConvertToCitations(md)
	}
	return md
}

// article is the extractor-neutral result of the general pass.
type article struct {
	Title   string
	Content string // HTML
	Text    string
}

// pruneArticle runs the block scorer; the title comes from <title>.
func pruneArticle(rawHTML string) article {
	pruned, err := PruneContent(rawHTML)
	if err != nil {
		slog.Warn("pruning failed", "error", err)
		return article{}
	}
	return article{
		Title:   pageTitle(rawHTML),
		Content: pruned,
		Text:    stripTags(pruned),
	}
}

// autoExtract runs readability and pruning concurrently and keeps the one
// that found more text, unless it is more than ten times longer than a
// still-substantial alternative (likely boilerplate).
func autoExtract(rawHTML, sourceURL string) article {
	var (
		readable article
		pruned   article
		wg       sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		readable, _ = ExtractContent(rawHTML, sourceURL)
	}()
	go func() {
		defer wg.Done()
		pruned = pruneArticle(rawHTML)
	}()
	wg.Wait()

	rText := len(strings.TrimSpace(readable.Text))
	pText := len(pruned.Text)

	useReadability := rText >= pText
	if useReadability && pText > minContentLength && rText > 10*pText {
		useReadability = false
	} else if !useReadability && rText > minContentLength && pText > 10*rText {
		useReadability = true
	}

	if useReadability {
		return readable
	}
	if readable.Title != "" {
		pruned.Title = readable.Title
	}
	return pruned
}

// stripTags extracts visible text from an HTML fragment.
func stripTags(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.TrimSpace(doc.Text())
}

func pageTitle(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
