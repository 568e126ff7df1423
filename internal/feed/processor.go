package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bilgisen/tldrit/internal/cache"
	"github.com/bilgisen/tldrit/internal/logger"
	"github.com/bilgisen/tldrit/internal/models"
)

// NewsStore persists fetched items so later requests can page through them
// and attach summaries or audio.
type NewsStore interface {
	UpsertNewsItems(ctx context.Context, items []models.NewsItem) error
}

// Processor serves merged news through a cache and records every fetched
// item in the store.
type Processor struct {
	pipeline *Pipeline
	cache    cache.Cache
	store    NewsStore
	ttl      time.Duration

	wg sync.WaitGroup
}

// NewProcessor wires a pipeline to a cache and an optional store.
func NewProcessor(pipeline *Pipeline, c cache.Cache, store NewsStore, ttl time.Duration) *Processor {
	return &Processor{
		pipeline: pipeline,
		cache:    c,
		store:    store,
		ttl:      ttl,
	}
}

// Pipeline exposes the underlying pipeline.
func (p *Processor) Pipeline() *Pipeline {
	return p.pipeline
}

// News returns merged news for categories, from cache when possible. Cache
// failures are logged and fall through to a live fetch.
func (p *Processor) News(ctx context.Context, categories []string) ([]models.NewsItem, error) {
	log := logger.Component("processor")
	key := cache.NewsKey(categories)

	var cached []models.NewsItem
	hit, err := cache.GetJSON(ctx, p.cache, key, &cached)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to read news cache")
	}
	if hit {
		log.Debug().Str("key", key).Int("items", len(cached)).Msg("News served from cache")
		return cached, nil
	}

	items := p.pipeline.FetchNewsForCategories(ctx, categories)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// An empty result is not cached so the next request retries the sources.
	if len(items) > 0 {
		if err := cache.SetJSON(ctx, p.cache, key, items, p.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to write news cache")
		}
		p.persistAsync(items)
	}
	return items, nil
}

// Refresh fetches every configured category, replaces their cache entries and
// stores the result. It returns the number of items stored.
func (p *Processor) Refresh(ctx context.Context) (int, error) {
	log := logger.Component("processor")
	start := time.Now()

	categories := p.pipeline.Sources().Categories()
	total := 0
	for _, category := range categories {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		items := p.pipeline.FetchNewsForCategories(ctx, []string{category})
		if len(items) == 0 {
			continue
		}

		key := cache.NewsKey([]string{category})
		if err := cache.SetJSON(ctx, p.cache, key, items, p.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to write news cache")
		}
		if err := p.persist(ctx, items); err != nil {
			return total, fmt.Errorf("store %s items: %w", category, err)
		}
		total += len(items)
	}

	log.Info().
		Int("categories", len(categories)).
		Int("items", total).
		Dur("duration", time.Since(start)).
		Msg("Refreshed news")
	return total, nil
}

// Wait blocks until background writes started by News have finished.
func (p *Processor) Wait() {
	p.wg.Wait()
}

func (p *Processor) persist(ctx context.Context, items []models.NewsItem) error {
	if p.store == nil {
		return nil
	}
	return p.store.UpsertNewsItems(ctx, items)
}

func (p *Processor) persistAsync(items []models.NewsItem) {
	if p.store == nil {
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := p.store.UpsertNewsItems(ctx, items); err != nil {
			log := logger.Component("processor")
			log.Error().
				Err(err).
				Int("items", len(items)).
				Msg("Failed to store news items")
		}
	}()
}
