package feeds

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/CurationsLA/lemon/internal/domain"
)

// Excerpt formatting.
const (
	maxExcerptChars = 200
	excerptEllipsis = "..."
)

// MaxItemsPerFeed splits a total item budget evenly across feeds,
// rounding up so a small budget still yields at least one item per feed.
func MaxItemsPerFeed(maxItems, feedCount int) int {
	if feedCount <= 0 {
		return maxItems
	}
	return (maxItems + feedCount - 1) / feedCount
}

// Extract parses one raw feed body and returns up to limit normalized
// items in their original feed order.
//
// Extraction is deliberately lenient: a body that cannot be parsed at all
// yields zero items rather than an error, so one malformed feed never
// aborts a sourcing run. Items missing a title or link are dropped.
func Extract(body string, limit int) []domain.RawItem {
	parsed, err := gofeed.NewParser().ParseString(body)
	if err != nil || parsed == nil {
		return nil
	}

	items := make([]domain.RawItem, 0, min(limit, len(parsed.Items)))
	for _, entry := range parsed.Items {
		if len(items) >= limit {
			break
		}

		title := strings.TrimSpace(StripHTML(entry.Title))
		link := strings.TrimSpace(entry.Link)
		if title == "" || link == "" {
			continue
		}

		items = append(items, domain.RawItem{
			Title:   title,
			Link:    link,
			Excerpt: CleanExcerpt(entry.Description),
		})
	}

	return items
}

// CleanExcerpt strips HTML tags and entities from a description, collapses
// whitespace, and truncates to the excerpt budget with a trailing ellipsis.
func CleanExcerpt(raw string) string {
	text := collapseWhitespace(StripHTML(raw))
	if len([]rune(text)) > maxExcerptChars {
		return string([]rune(text)[:maxExcerptChars]) + excerptEllipsis
	}
	return text
}

// StripHTML returns the text content of an HTML fragment. The underlying
// parser never fails on arbitrary text; on the impossible error path the
// input is returned unchanged.
func StripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return doc.Text()
}

// SourceDomain derives a display domain from an item link: the hostname
// with a leading "www." removed, or the Unknown sentinel when the link
// does not parse as a URL with a host.
func SourceDomain(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return domain.UnknownDomain
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
