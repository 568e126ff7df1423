package feed

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bilgisen/tldrit/internal/models"
	"github.com/bilgisen/tldrit/internal/utils"
)

// MaxSummaryLength is the rune budget of a visible summary before "...".
const MaxSummaryLength = 300

var (
	errMissingTitle = errors.New("missing title")
	errMissingLink  = errors.New("missing link")

	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)
)

// NormalizeItem converts a raw entry into a NewsItem. Entries without a title
// or link return an error and must be dropped by the caller.
func NormalizeItem(raw RawItem, index int, feedURL string, now time.Time) (models.NewsItem, error) {
	title := DecodeHTMLEntities(Resolve(raw.Title))
	title = strings.TrimSpace(title)
	if title == "" {
		return models.NewsItem{}, errMissingTitle
	}

	link := ResolveFirst(raw.Link...)
	if link == "" {
		return models.NewsItem{}, errMissingLink
	}

	category := strings.ToLower(ResolveFirst(raw.Category...))
	if category == "" {
		category = models.DefaultCategory
	}

	published := now
	if raw.Published != nil && !raw.Published.IsZero() {
		published = *raw.Published
	} else if raw.Updated != nil && !raw.Updated.IsZero() {
		published = *raw.Updated
	}

	return models.NewsItem{
		ID:          fmt.Sprintf("%s-%d-%d", feedURL, index, now.UnixMilli()),
		Key:         utils.URLKey(link),
		Title:       title,
		SourceURL:   link,
		Category:    category,
		Summary:     Summarize(raw.Description),
		PublishedAt: published.UTC().Format(time.RFC3339),
		ImageURL:    extractImage(raw),
	}, nil
}

// StripHTML deletes tags, decodes entities and trims the result. Inner
// whitespace is kept as the feed wrote it.
func StripHTML(s string) string {
	s = htmlTagPattern.ReplaceAllString(s, "")
	s = DecodeHTMLEntities(s)
	return strings.TrimSpace(s)
}

// Summarize turns an HTML description into the visible summary, truncated to
// MaxSummaryLength runes plus "..." when longer.
func Summarize(description string) string {
	text := StripHTML(description)
	if utf8.RuneCountInString(text) <= MaxSummaryLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:MaxSummaryLength]) + "..."
}
