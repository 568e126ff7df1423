package feed

import (
	"regexp"
	"strings"
)

// Patterns used to find an image inside item HTML. Attribute order varies
// between publishers, so both property-first and content-first meta tags are
// matched.
var (
	// <meta property="og:image" content="..."> and name="twitter:image"
	metaImagePattern = regexp.MustCompile(`(?i)<meta[^>]+(?:property|name)\s*=\s*["'](?:og:image|twitter:image)["'][^>]*?\scontent\s*=\s*["']([^"']+)["']`)
	// <meta content="..." property="og:image">
	metaImageReversedPattern = regexp.MustCompile(`(?i)<meta[^>]+content\s*=\s*["']([^"']+)["'][^>]*?\s(?:property|name)\s*=\s*["'](?:og:image|twitter:image)["']`)
	// <img ... src="..."> or src='...'
	imgSrcPattern = regexp.MustCompile(`(?i)<img\b[^>]*?\ssrc\s*=\s*(?:"([^"]+)"|'([^']+)')`)
)

// Enclosure is an RSS enclosure or Atom enclosure link.
type Enclosure struct {
	URL  string
	Type string
}

// ImageFromHTML returns the first og:image/twitter:image meta value, else the
// src of the first <img> tag, else "".
func ImageFromHTML(html string) string {
	if html == "" {
		return ""
	}
	for _, re := range []*regexp.Regexp{metaImagePattern, metaImageReversedPattern} {
		if m := re.FindStringSubmatch(html); m != nil {
			return DecodeHTMLEntities(strings.TrimSpace(m[1]))
		}
	}
	if m := imgSrcPattern.FindStringSubmatch(html); m != nil {
		src := m[1]
		if src == "" {
			src = m[2]
		}
		return DecodeHTMLEntities(strings.TrimSpace(src))
	}
	return ""
}

// ImageFromEnclosures returns the URL of the first enclosure with an image
// MIME type.
func ImageFromEnclosures(enclosures []Enclosure) string {
	for _, e := range enclosures {
		if e.URL != "" && strings.HasPrefix(strings.ToLower(e.Type), "image/") {
			return e.URL
		}
	}
	return ""
}

// extractImage applies the image sources in priority order: media:content,
// media:thumbnail, image enclosure, meta tags and finally the first <img>.
func extractImage(raw RawItem) string {
	for _, ref := range raw.MediaContent {
		if u := Resolve(ref); u != "" {
			return u
		}
	}
	for _, ref := range raw.MediaThumbnails {
		if u := Resolve(ref); u != "" {
			return u
		}
	}
	if u := ImageFromEnclosures(raw.Enclosures); u != "" {
		return u
	}
	return ImageFromHTML(raw.Content + " " + raw.Description)
}
