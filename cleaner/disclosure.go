package cleaner

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/webkeep/simhash"
)

// minSectionChars is the noise floor for a disclosure body.
const minSectionChars = 10

// dedupThreshold is the SimHash distance under which two bodies in the
// same category are treated as the same text.
const dedupThreshold = 3

// Category groups disclosure sections in the composed output.
type Category int

const (
	CategoryOther Category = iota
	CategoryIngredients
	CategoryUsage
)

func (c Category) String() string {
	switch c {
	case CategoryIngredients:
		return "ingredients"
	case CategoryUsage:
		return "usage"
	default:
		return "other"
	}
}

var usageKeywords = []string{"how to use", "usage", "directions", "instructions"}

// DisclosureSection is one <details> widget's title and body text.
type DisclosureSection struct {
	Title    string
	Body     string
	Category Category
}

// Classify assigns a category from a section title.
func Classify(title string) Category {
	lower := strings.ToLower(title)
	if strings.Contains(lower, "ingredient") {
		return CategoryIngredients
	}
	for _, kw := range usageKeywords {
		if strings.Contains(lower, kw) {
			return CategoryUsage
		}
	}
	return CategoryOther
}

// ScanDisclosures returns every <details> widget with a <summary>, a
// non-empty title and a body of at least minSectionChars, in document order.
func ScanDisclosures(rawHTML string) []DisclosureSection {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}

	var sections []DisclosureSection
	doc.Find("details").Each(func(_ int, details *goquery.Selection) {
		summary := details.Find("summary").First()
		if summary.Length() == 0 {
			return
		}

		titleSel := summary
		if h := summary.Find("h1, h2, h3, h4, h5, h6").First(); h.Length() > 0 {
			titleSel = h
		}
		title := strings.ReplaceAll(normalizeLines(blockText(titleSel)), "\n", " ")
		if title == "" {
			return
		}

		body := disclosureBody(details)
		if !substantial(body) {
			return
		}

		sections = append(sections, DisclosureSection{
			Title:    title,
			Body:     body,
			Category: Classify(title),
		})
	})
	return sections
}

// disclosureBody prefers a content/accordion panel inside the widget and
// otherwise takes everything but the summary.
func disclosureBody(details *goquery.Selection) string {
	var body string
	details.Find("div").EachWithBreak(func(_ int, div *goquery.Selection) bool {
		class := strings.ToLower(div.AttrOr("class", ""))
		if !strings.Contains(class, "content") && !strings.Contains(class, "accordion") {
			return true
		}
		if text := normalizeLines(blockText(div)); substantial(text) {
			body = text
			return false
		}
		return true
	})
	if body != "" {
		return body
	}

	clone := details.Clone()
	clone.Find("summary").First().Remove()
	return normalizeLines(blockText(clone))
}

// ComposeDisclosures renders sections as Markdown: Ingredients, then
// How to use, then Additional Information with a sub-heading per section.
// Empty groups are omitted; order within a group is kept.
func ComposeDisclosures(sections []DisclosureSection) string {
	var ingredients, usage, other []DisclosureSection
	for _, s := range sections {
		switch s.Category {
		case CategoryIngredients:
			ingredients = append(ingredients, s)
		case CategoryUsage:
			usage = append(usage, s)
		default:
			other = append(other, s)
		}
	}

	var lines []string
	if len(ingredients) > 0 {
		lines = append(lines, "## Ingredients")
		for _, s := range ingredients {
			lines = append(lines, s.Body, "")
		}
	}
	if len(usage) > 0 {
		lines = append(lines, "## How to use")
		for _, s := range usage {
			lines = append(lines, s.Body, "")
		}
	}
	if len(other) > 0 {
		lines = append(lines, "## Additional Information")
		for _, s := range other {
			lines = append(lines, "### "+s.Title, s.Body, "")
		}
	}
	return strings.Join(lines, "\n")
}

// dedupSections drops a section whose text is a near duplicate of an
// earlier one in the same category.
func dedupSections(sections []DisclosureSection) []DisclosureSection {
	indexes := map[Category]*simhash.Index{}
	kept := sections[:0:0]
	for _, s := range sections {
		ix, ok := indexes[s.Category]
		if !ok {
			ix = simhash.NewIndex(dedupThreshold)
			indexes[s.Category] = ix
		}
		key := s.Body
		if s.Category == CategoryOther {
			key = s.Title + "\n" + s.Body
		}
		if ix.Seen(key) {
			slog.Debug("duplicate disclosure section dropped",
				"category", s.Category.String(),
				"title", s.Title,
			)
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

func (c *Cleaner) disclosure(rawHTML string) string {
	sections := ScanDisclosures(rawHTML)
	if len(sections) == 0 {
		return ""
	}
	if c.opts.DedupSections {
		sections = dedupSections(sections)
	}
	return ComposeDisclosures(sections)
}
