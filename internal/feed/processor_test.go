package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bilgisen/tldrit/internal/cache"
	"github.com/bilgisen/tldrit/internal/config"
	"github.com/bilgisen/tldrit/internal/models"
)

type recordingStore struct {
	mu    sync.Mutex
	items []models.NewsItem
	err   error
}

func (s *recordingStore) UpsertNewsItems(_ context.Context, items []models.NewsItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.items = append(s.items, items...)
	return nil
}

func (s *recordingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func TestProcessorNewsUsesCache(t *testing.T) {
	f := newFakeFetcher()
	f.body("tech", rssFeed(rssItem("Cached story", "https://a.example.com/1", "", "")))
	store := &recordingStore{}
	pipeline := NewPipeline(config.Sources{"technology": {"tech"}}, f, WithClock(fixedClock))
	p := NewProcessor(pipeline, cache.NewMemoryCache(), store, time.Minute)

	ctx := context.Background()
	first, err := p.News(ctx, []string{"technology"})
	if err != nil {
		t.Fatalf("News: %v", err)
	}
	second, err := p.News(ctx, []string{"technology"})
	if err != nil {
		t.Fatalf("News: %v", err)
	}
	p.Wait()

	if len(first) != 1 || len(second) != 1 || first[0].ID != second[0].ID {
		t.Fatalf("cached result differs: %+v vs %+v", first, second)
	}
	if n := f.called("tech"); n != 1 {
		t.Errorf("feed fetched %d times, want 1", n)
	}
	if store.count() != 1 {
		t.Errorf("stored %d items, want 1", store.count())
	}
}

func TestProcessorNewsDoesNotCacheEmpty(t *testing.T) {
	f := newFakeFetcher()
	f.status("tech", 500)
	pipeline := NewPipeline(config.Sources{"technology": {"tech"}}, f)
	p := NewProcessor(pipeline, cache.NewMemoryCache(), nil, time.Minute)

	for i := 0; i < 2; i++ {
		items, err := p.News(context.Background(), []string{"technology"})
		if err != nil {
			t.Fatalf("News: %v", err)
		}
		if len(items) != 0 {
			t.Fatalf("got %d items", len(items))
		}
	}
	if n := f.called("tech"); n != 2 {
		t.Errorf("feed fetched %d times, want 2", n)
	}
}

func TestProcessorRefresh(t *testing.T) {
	f := newFakeFetcher()
	f.body("tech", rssFeed(
		rssItem("Tech one", "https://a.example.com/1", "", ""),
		rssItem("Tech two", "https://a.example.com/2", "", ""),
	))
	f.body("sci", rssFeed(rssItem("Science one", "https://b.example.com/1", "", "")))
	f.status("dead", 502)

	store := &recordingStore{}
	c := cache.NewMemoryCache()
	pipeline := NewPipeline(config.Sources{"technology": {"tech"}, "science": {"sci"}, "sports": {"dead"}}, f)
	p := NewProcessor(pipeline, c, store, time.Minute)

	n, err := p.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if n != 3 || store.count() != 3 {
		t.Errorf("refreshed %d, stored %d, want 3", n, store.count())
	}

	var cached []models.NewsItem
	hit, err := cache.GetJSON(context.Background(), c, cache.NewsKey([]string{"science"}), &cached)
	if err != nil || !hit || len(cached) != 1 {
		t.Fatalf("science cache not warmed: hit=%v err=%v items=%d", hit, err, len(cached))
	}
	if cached[0].Category != "science" {
		t.Errorf("cached category = %q", cached[0].Category)
	}
}

func TestProcessorRefreshStoreError(t *testing.T) {
	f := newFakeFetcher()
	f.body("tech", rssFeed(rssItem("Tech", "https://a.example.com/1", "", "")))
	store := &recordingStore{err: errors.New("disk full")}
	pipeline := NewPipeline(config.Sources{"technology": {"tech"}}, f)
	p := NewProcessor(pipeline, cache.NewMemoryCache(), store, time.Minute)

	if _, err := p.Refresh(context.Background()); err == nil {
		t.Fatal("expected store error")
	}
}
