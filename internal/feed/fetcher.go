package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// AcceptFeeds is sent with every feed request.
const AcceptFeeds = "application/rss+xml, application/xml, text/xml, application/atom+xml"

// RemoteFetcher returns the raw body of a feed URL.
type RemoteFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Fetcher struct {
	client    *resty.Client
	userAgent string
	proxyURL  string
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithProxy routes every request through a CORS-style proxy endpoint that
// takes the target in its "url" query parameter.
func WithProxy(proxyURL string) FetcherOption {
	return func(f *Fetcher) { f.proxyURL = proxyURL }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// NewFetcher creates a fetcher with a per-request timeout. It never retries;
// the pipeline moves on to the next candidate URL instead.
func NewFetcher(timeout time.Duration, userAgent string, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:    resty.New().SetTimeout(timeout),
		userAgent: userAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves url and returns the body. Responses outside 2xx are
// reported as *HTTPError.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req := f.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", f.userAgent).
		SetHeader("Accept", AcceptFeeds)

	target := url
	if f.proxyURL != "" {
		req.SetQueryParam("url", url)
		target = f.proxyURL
	}

	resp, err := req.Get(target)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed from %s: %w", url, err)
	}
	if !resp.IsSuccess() {
		return nil, &HTTPError{URL: url, StatusCode: resp.StatusCode()}
	}
	return resp.Body(), nil
}
