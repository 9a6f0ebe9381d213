package archiver

import (
	"fmt"
	"strings"
	"unicode"
)

// maxBaseName is the longest document base name, in runes.
const maxBaseName = 80

// ImageFilename names the index-th discovered image (1-based).
func ImageFilename(index int, ext string) string {
	return fmt.Sprintf("images/img_%03d.%s", index, ext)
}

// SafeFilename derives a document base name from a URL: every rune that
// is not a letter or digit becomes "-", leading and trailing dashes are
// trimmed, and the result is cut to 80 runes. An empty result is "page".
func SafeFilename(url string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '-'
	}, url)
	mapped = strings.Trim(mapped, "-")

	if runes := []rune(mapped); len(runes) > maxBaseName {
		mapped = strings.TrimRight(string(runes[:maxBaseName]), "-")
	}
	if mapped == "" {
		return "page"
	}
	return mapped
}

// AppendImages adds an "Extracted Images" section listing files. With no
// files the document is returned unchanged.
func AppendImages(document string, files []string) string {
	if len(files) == 0 {
		return document
	}
	var b strings.Builder
	b.WriteString(strings.TrimRightFunc(document, unicode.IsSpace))
	b.WriteString("\n\n## Extracted Images\n\n")
	for i, f := range files {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("![image](" + f + ")")
	}
	b.WriteByte('\n')
	return b.String()
}
