package cleaner

import (
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Blocks scoring at or below pruneScoreThreshold are dropped as boilerplate.
const pruneScoreThreshold = 0.0

// Signal weights for the pruning scorer.
const (
	wTextDensity   = 3.0
	wLinkDensity   = -2.0
	wTagWeight     = 1.5
	wClassIDWeight = 1.0
	wTextLength    = 0.5
)

var positiveClassIDPatterns = []string{
	"content", "article", "post", "entry", "body", "main", "text", "product", "description",
}

var negativeClassIDPatterns = []string{
	"sidebar", "widget", "nav", "menu", "comment", "footer",
	"header", "banner", "popup", "modal", "cookie", "social", "share",
	"related", "recommend", "promo", "newsletter",
}

// blockSignals are the raw measurements behind a block's score.
type blockSignals struct {
	textLen     int
	htmlLen     int
	linkTextLen int
	tag         float64
	classID     float64
}

func (s blockSignals) score() float64 {
	textDensity, linkDensity := 0.0, 0.0
	if s.htmlLen > 0 {
		textDensity = float64(s.textLen) / float64(s.htmlLen)
	}
	if s.textLen > 0 {
		linkDensity = float64(s.linkTextLen) / float64(s.textLen)
	}
	return textDensity*wTextDensity +
		linkDensity*wLinkDensity +
		s.tag*wTagWeight +
		s.classID*wClassIDWeight +
		math.Log10(float64(s.textLen)+1)*wTextLength
}

// PruneContent keeps the top-level <body> blocks that score above the
// threshold on text density, link density, semantic tag and class/id
// hints. When nothing passes, the whole body is returned.
func PruneContent(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		return rawHTML, nil
	}

	var retained []string
	body.Children().Each(func(_ int, el *goquery.Selection) {
		sig, ok := measure(el)
		if !ok || sig.score() <= pruneScoreThreshold {
			return
		}
		if html, err := goquery.OuterHtml(el); err == nil {
			retained = append(retained, html)
		}
	})

	if len(retained) == 0 {
		return body.Html()
	}
	return strings.Join(retained, "\n"), nil
}

func measure(el *goquery.Selection) (blockSignals, bool) {
	switch goquery.NodeName(el) {
	case "script", "style", "noscript", "template":
		return blockSignals{}, false
	}
	fullHTML, err := goquery.OuterHtml(el)
	if err != nil {
		return blockSignals{}, false
	}

	sig := blockSignals{
		textLen: len(strings.TrimSpace(el.Text())),
		htmlLen: len(fullHTML),
		tag:     tagWeight(goquery.NodeName(el)),
		classID: classIDWeight(el),
	}
	el.Find("a").Each(func(_ int, a *goquery.Selection) {
		sig.linkTextLen += len(strings.TrimSpace(a.Text()))
	})
	return sig, true
}

func tagWeight(tag string) float64 {
	switch tag {
	case "article", "main", "section":
		return 5.0
	case "nav", "footer", "aside", "header":
		return -5.0
	default:
		return 0.0
	}
}

// classIDWeight counts at most one positive and one negative hint.
func classIDWeight(el *goquery.Selection) float64 {
	combined := strings.ToLower(el.AttrOr("class", "") + " " + el.AttrOr("id", ""))

	score := 0.0
	for _, pat := range positiveClassIDPatterns {
		if strings.Contains(combined, pat) {
			score += 3.0
			break
		}
	}
	for _, pat := range negativeClassIDPatterns {
		if strings.Contains(combined, pat) {
			score -= 3.0
			break
		}
	}
	return score
}
