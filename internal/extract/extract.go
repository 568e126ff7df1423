// Package extract pulls readable article text out of web pages so that
// articles referenced by URL can be summarized.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// ErrNoContent is returned when a page has no readable text.
var ErrNoContent = errors.New("no readable content")

// minParagraphLength drops captions, bylines and button labels.
const minParagraphLength = 40

// Article is the readable part of a page.
type Article struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Text        string `json:"text"`
}

// Extractor downloads pages and extracts their article text.
type Extractor struct {
	client    *resty.Client
	userAgent string
}

func NewExtractor(timeout time.Duration, userAgent string) *Extractor {
	return &Extractor{
		client:    resty.New().SetTimeout(timeout).SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)),
		userAgent: userAgent,
	}
}

// Extract fetches url and returns its article.
func (e *Extractor) Extract(ctx context.Context, url string) (*Article, error) {
	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", e.userAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode(), url)
	}

	article, err := FromHTML(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	article.URL = url
	return article, nil
}

// FromHTML parses an HTML document and returns its article.
func FromHTML(r io.Reader) (*Article, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	metaContent := func(attr, val string) string {
		if s, ok := doc.Find(fmt.Sprintf(`meta[%s="%s"]`, attr, val)).Attr("content"); ok {
			return strings.TrimSpace(s)
		}
		return ""
	}

	article := &Article{
		Title: firstNonEmpty(
			metaContent("property", "og:title"),
			metaContent("name", "twitter:title"),
			doc.Find("h1").First().Text(),
			doc.Find("title").First().Text(),
		),
		Description: firstNonEmpty(
			metaContent("property", "og:description"),
			metaContent("name", "description"),
		),
		ImageURL: firstNonEmpty(
			metaContent("property", "og:image"),
			metaContent("name", "twitter:image"),
		),
	}

	doc.Find("script, style, noscript, nav, header, footer, aside, form, figure, iframe").Remove()

	for _, scope := range []string{"article", "main", "[role=main]", "body"} {
		if text := paragraphs(doc.Find(scope)); text != "" {
			article.Text = text
			break
		}
	}
	if article.Text == "" {
		article.Text = collapse(doc.Find("body").Text())
	}
	if article.Text == "" {
		return nil, ErrNoContent
	}
	return article, nil
}

// paragraphs joins the substantial <p> elements inside sel.
func paragraphs(sel *goquery.Selection) string {
	var paras []string
	sel.Find("p").Each(func(_ int, p *goquery.Selection) {
		txt := collapse(p.Text())
		if len([]rune(txt)) >= minParagraphLength {
			paras = append(paras, txt)
		}
	})
	return strings.Join(paras, "\n\n")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := collapse(v); s != "" {
			return s
		}
	}
	return ""
}
