package cleaner

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DiscoverImageURLs lists the absolute URLs of <img> and <source> elements
// in document order, each URL once. The source is the first non-empty of
// src, data-src and srcset; for srcset only the first candidate's URL is
// used. data: URIs and values that do not resolve to http(s) are skipped.
func DiscoverImageURLs(rawHTML, baseURL string) []string {
	urls := []string{}

	base, err := url.Parse(baseURL)
	if err != nil {
		return urls
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return urls
	}

	seen := make(map[string]struct{})
	doc.Find("img, source").Each(func(_ int, s *goquery.Selection) {
		src := imageSource(s)
		if src == "" {
			return
		}

		resolved, err := base.Parse(src)
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}

		absURL := resolved.String()
		if _, ok := seen[absURL]; ok {
			return
		}
		seen[absURL] = struct{}{}
		urls = append(urls, absURL)
	})

	return urls
}

func imageSource(s *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src"} {
		if v := strings.TrimSpace(s.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	return firstSrcsetCandidate(s.AttrOr("srcset", ""))
}

// firstSrcsetCandidate returns the URL of the first "url descriptor"
// entry of a srcset value.
func firstSrcsetCandidate(srcset string) string {
	first, _, _ := strings.Cut(srcset, ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// DiscoverImageURLs lets a Cleaner serve as the archiver's image discoverer.
func (c *Cleaner) DiscoverImageURLs(rawHTML, baseURL string) []string {
	return DiscoverImageURLs(rawHTML, baseURL)
}
