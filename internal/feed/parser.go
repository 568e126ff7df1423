package feed

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/mmcdole/gofeed"
)

// ParseFeed detects the document shape and returns its entries as raw items:
// channel items for RSS, feed entries for Atom. Anything else, including
// JSON feeds and malformed XML, is a FormatError.
func ParseFeed(feedURL string, data []byte) ([]RawItem, error) {
	kind := gofeed.DetectFeedType(bytes.NewReader(data))
	if kind != gofeed.FeedTypeRSS && kind != gofeed.FeedTypeAtom {
		return nil, &FormatError{URL: feedURL, Reason: "document is neither RSS nor Atom"}
	}
	// gofeed reads a bare <rss/> as an empty feed.
	if kind == gofeed.FeedTypeRSS && !hasChannel(data) {
		return nil, &FormatError{URL: feedURL, Reason: "rss document has no channel"}
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &FormatError{URL: feedURL, Reason: "malformed feed", Err: err}
	}

	items := make([]RawItem, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		items = append(items, toRawItem(item))
	}
	return items, nil
}

// hasChannel reports whether the root element has a direct <channel> child.
// Only element names are read, so any declared charset is passed through.
func hasChannel(data []byte) bool {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }

	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return false
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 && strings.EqualFold(t.Name.Local, "channel") {
				return true
			}
		case xml.EndElement:
			depth--
			if depth <= 0 {
				return false
			}
		}
	}
}

func toRawItem(item *gofeed.Item) RawItem {
	if item == nil {
		return RawItem{}
	}

	raw := RawItem{
		Title:       PlainText(item.Title),
		Description: item.Description,
		Content:     item.Content,
		Published:   item.PublishedParsed,
		Updated:     item.UpdatedParsed,

		MediaContent:    extensionAttrs(item.Extensions, "media", "content", "url"),
		MediaThumbnails: extensionAttrs(item.Extensions, "media", "thumbnail", "url"),
	}
	if Resolve(raw.Title) == "" {
		raw.Title = ResolveFirstValue(extensionText(item.Extensions, "dc", "title"))
	}

	raw.Link = append(raw.Link, PlainText(item.Link))
	for _, l := range item.Links {
		raw.Link = append(raw.Link, PlainText(l))
	}
	for _, ref := range extensionAttrs(item.Extensions, "atom", "link", "href") {
		raw.Link = append(raw.Link, ref)
	}

	for _, c := range item.Categories {
		raw.Category = append(raw.Category, PlainText(c))
	}
	raw.Category = append(raw.Category, extensionText(item.Extensions, "dc", "subject")...)

	for _, e := range item.Enclosures {
		if e != nil {
			raw.Enclosures = append(raw.Enclosures, Enclosure{URL: e.URL, Type: e.Type})
		}
	}
	return raw
}

// ResolveFirstValue returns the first value that resolves to a non-empty
// string, or nil.
func ResolveFirstValue(values []FieldValue) FieldValue {
	for _, v := range values {
		if Resolve(v) != "" {
			return v
		}
	}
	return nil
}
