package cleaner

import (
	"fmt"
	"regexp"
	"strings"
)

// inlineLinkRe matches [text](url) and ![alt](src); images stay inline.
var inlineLinkRe = regexp.MustCompile(`!?\[([^\]]+)\]\(([^)\s]+)\)`)

// ConvertToCitations rewrites inline Markdown links as numbered references
// listed at the end of the document:
//
//	See [Google](https://google.com)  →  See [Google][1]
//	...
//	[1]: https://google.com
//
// A URL linked twice reuses its number.
func ConvertToCitations(markdown string) string {
	urlToNum := make(map[string]int)
	var refs []string

	result := inlineLinkRe.ReplaceAllStringFunc(markdown, func(match string) string {
		if strings.HasPrefix(match, "!") {
			return match
		}
		parts := inlineLinkRe.FindStringSubmatch(match)
		text, url := parts[1], parts[2]

		num, exists := urlToNum[url]
		if !exists {
			num = len(refs) + 1
			urlToNum[url] = num
			refs = append(refs, fmt.Sprintf("[%d]: %s", num, url))
		}
		return fmt.Sprintf("[%s][%d]", text, num)
	})

	if len(refs) == 0 {
		return markdown
	}
	return result + "\n\n---\n" + strings.Join(refs, "\n")
}
