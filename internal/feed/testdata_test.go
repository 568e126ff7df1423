package feed

import (
	"fmt"
	"strings"
)

// rssItem renders one <item>. Extra is inserted verbatim.
func rssItem(title, link, pubDate, extra string) string {
	var b strings.Builder
	b.WriteString("<item>")
	if title != "" {
		fmt.Fprintf(&b, "<title>%s</title>", title)
	}
	if link != "" {
		fmt.Fprintf(&b, "<link>%s</link>", link)
	}
	if pubDate != "" {
		fmt.Fprintf(&b, "<pubDate>%s</pubDate>", pubDate)
	}
	b.WriteString(extra)
	b.WriteString("</item>")
	return b.String()
}

func rssFeed(items ...string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:atom="http://www.w3.org/2005/Atom">
<channel><title>Test feed</title><link>https://feed.example.com</link><description>d</description>` +
		strings.Join(items, "\n") +
		`</channel></rss>`)
}
