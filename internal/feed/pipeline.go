package feed

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bilgisen/tldrit/internal/config"
	"github.com/bilgisen/tldrit/internal/logger"
	"github.com/bilgisen/tldrit/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxItems bounds the merged result of FetchNewsForCategories.
	DefaultMaxItems = 50
	// titlePrefixLength is the prefix compared by the near-duplicate filter.
	titlePrefixLength = 20
)

// Pipeline fetches, normalizes and merges news for a set of categories.
type Pipeline struct {
	sources     config.Sources
	fetcher     RemoteFetcher
	now         func() time.Time
	concurrency int
	maxItems    int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock replaces time.Now, used for ids and missing publish dates.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithConcurrency lets up to n categories be fetched at once. Candidate URLs
// within one category are always tried one after another.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithMaxItems overrides the result bound.
func WithMaxItems(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxItems = n
		}
	}
}

func NewPipeline(sources config.Sources, fetcher RemoteFetcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		sources:     sources,
		fetcher:     fetcher,
		now:         time.Now,
		concurrency: 1,
		maxItems:    DefaultMaxItems,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Sources returns the category table the pipeline was built with.
func (p *Pipeline) Sources() config.Sources {
	return p.sources
}

// FetchAndParseFeed downloads one feed and normalizes its entries. Entries
// that fail normalization are logged and skipped.
func (p *Pipeline) FetchAndParseFeed(ctx context.Context, url string) ([]models.NewsItem, error) {
	log := logger.Component("feed")

	body, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	raws, err := ParseFeed(url, body)
	if err != nil {
		return nil, err
	}

	now := p.now()
	items := make([]models.NewsItem, 0, len(raws))
	for i, raw := range raws {
		item, err := normalizeSafely(raw, i, url, now)
		if err != nil {
			log.Debug().
				Err(&ItemError{Index: i, Err: err}).
				Str("url", url).
				Msg("Skipping feed item")
			continue
		}
		items = append(items, item)
	}

	log.Debug().
		Str("url", url).
		Int("raw_items", len(raws)).
		Int("items", len(items)).
		Msg("Parsed feed")
	return items, nil
}

// normalizeSafely keeps a panic in one entry from aborting its siblings.
func normalizeSafely(raw RawItem, index int, url string, now time.Time) (item models.NewsItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during normalization: %v", r)
		}
	}()
	return NormalizeItem(raw, index, url, now)
}

// FetchCategory returns the items of the first candidate feed that loads
// and parses. An unknown category or exhausted candidates yield nil.
func (p *Pipeline) FetchCategory(ctx context.Context, category string) []models.NewsItem {
	log := logger.Component("feed")

	candidates := p.sources.Candidates(category)
	if len(candidates) == 0 {
		log.Warn().Str("category", category).Msg("Unknown category")
		return nil
	}

	items, ok := firstSuccess(ctx, candidates, p.FetchAndParseFeed, func(url string, err error) {
		log.Warn().
			Err(err).
			Str("category", category).
			Str("url", url).
			Msg("Feed source failed, trying next")
	})
	if !ok {
		log.Warn().
			Str("category", category).
			Int("candidates", len(candidates)).
			Msg("All feed sources failed")
		return nil
	}
	return items
}

// firstSuccess calls attempt for each candidate in order and returns the
// first result without error. A cancelled context stops the loop.
func firstSuccess[T any](ctx context.Context, candidates []string, attempt func(context.Context, string) (T, error), onFailure func(string, error)) (T, bool) {
	var zero T
	for _, c := range candidates {
		if ctx.Err() != nil {
			return zero, false
		}
		result, err := attempt(ctx, c)
		if err == nil {
			return result, true
		}
		if onFailure != nil {
			onFailure(c, err)
		}
	}
	return zero, false
}

// FetchNewsForCategories fetches every category, relabels items that only
// carry the default category, then sorts newest first, drops near-duplicate
// titles and bounds the result. Failures only shrink the result.
func (p *Pipeline) FetchNewsForCategories(ctx context.Context, categories []string) []models.NewsItem {
	log := logger.Component("feed")
	start := time.Now()

	perCategory := make([][]models.NewsItem, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, category := range categories {
		i, category := i, category
		g.Go(func() error {
			items := p.FetchCategory(gctx, category)
			for j := range items {
				if items[j].Category == models.DefaultCategory {
					items[j].Category = category
				}
			}
			perCategory[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var merged []models.NewsItem
	for _, items := range perCategory {
		merged = append(merged, items...)
	}

	SortByPublishedDesc(merged)
	result := DedupeByTitlePrefix(merged)
	if len(result) > p.maxItems {
		result = result[:p.maxItems]
	}

	log.Info().
		Strs("categories", categories).
		Int("merged", len(merged)).
		Int("returned", len(result)).
		Dur("duration", time.Since(start)).
		Msg("Fetched news")
	return result
}

// SortByPublishedDesc orders items newest first. Equal timestamps keep their
// input order.
func SortByPublishedDesc(items []models.NewsItem) {
	slices.SortStableFunc(items, func(a, b models.NewsItem) int {
		return b.PublishedTime().Compare(a.PublishedTime())
	})
}

// DedupeByTitlePrefix drops an item when its lowercased title contains the
// first 20 characters of an already accepted title, or the accepted title
// contains its first 20 characters.
func DedupeByTitlePrefix(items []models.NewsItem) []models.NewsItem {
	accepted := make([]models.NewsItem, 0, len(items))
	seen := make([]string, 0, len(items))

	for _, item := range items {
		title := strings.ToLower(item.Title)
		prefix := titlePrefix(title)

		duplicate := false
		for _, other := range seen {
			if strings.Contains(title, titlePrefix(other)) || strings.Contains(other, prefix) {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		accepted = append(accepted, item)
		seen = append(seen, title)
	}
	return accepted
}

func titlePrefix(s string) string {
	runes := []rune(s)
	if len(runes) <= titlePrefixLength {
		return s
	}
	return string(runes[:titlePrefixLength])
}
