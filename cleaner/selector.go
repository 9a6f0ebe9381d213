package cleaner

import (
	"bytes"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// ApplyCSSSelector returns the outer HTML of every element matching
// selector, wrapped in a minimal document that keeps the page <title>.
// When nothing matches, rawHTML is returned unchanged.
func ApplyCSSSelector(rawHTML string, selector string) (string, error) {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return "", err
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	matches := cascadia.QueryAll(doc, sel)
	if len(matches) == 0 {
		return rawHTML, nil
	}

	var buf bytes.Buffer
	buf.WriteString("<html><head>")
	if title := cascadia.Query(doc, cascadia.MustCompile("head > title")); title != nil {
		if err := html.Render(&buf, title); err != nil {
			return "", err
		}
	}
	buf.WriteString("</head><body>")
	for _, node := range matches {
		if err := html.Render(&buf, node); err != nil {
			return "", err
		}
	}
	buf.WriteString("</body></html>")

	return buf.String(), nil
}
