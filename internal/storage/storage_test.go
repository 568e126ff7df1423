package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bilgisen/tldrit/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newsItem(key, title, category, published string) models.NewsItem {
	return models.NewsItem{
		ID:          "feed-0-1",
		Key:         key,
		Title:       title,
		SourceURL:   "https://news.example.com/" + key,
		Category:    category,
		Summary:     "summary of " + title,
		PublishedAt: published,
	}
}

func keysOf[T any](items []T, key func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, key(it))
	}
	return out
}

func storedKey(i models.StoredItem) string { return i.Key }
func userKey(i models.UserItem) string     { return i.Key }

func TestUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	item := newsItem("k1", "First", "technology", "2024-03-01T10:00:00Z")
	item.ImageURL = "https://img.example.com/1.jpg"
	if err := s.UpsertNewsItems(ctx, []models.NewsItem{item}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.GetItem(ctx, "k1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "First" || got.Category != "technology" || got.ImageURL != item.ImageURL {
		t.Errorf("unexpected item: %+v", got)
	}
	if !got.PublishedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("PublishedAt = %v", got.PublishedAt)
	}

	if _, err := s.GetItem(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertKeepsGeneratedFields(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	if err := s.UpsertNewsItems(ctx, []models.NewsItem{newsItem("k1", "Old title", "ai", "2024-03-01T10:00:00Z")}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveTLDR(ctx, "k1", "short version"); err != nil {
		t.Fatalf("save tldr: %v", err)
	}
	if err := s.SaveAudioURL(ctx, "k1", "https://cdn.example.com/k1.mp3"); err != nil {
		t.Fatalf("save audio: %v", err)
	}
	if err := s.UpsertNewsItems(ctx, []models.NewsItem{newsItem("k1", "New title", "ai", "2024-03-01T10:00:00Z")}); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetItem(ctx, "k1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "New title" {
		t.Errorf("title not refreshed: %q", got.Title)
	}
	if got.TLDR != "short version" || got.AudioURL != "https://cdn.example.com/k1.mp3" {
		t.Errorf("generated fields lost: tldr=%q audio=%q", got.TLDR, got.AudioURL)
	}

	if err := s.SaveTLDR(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListNews(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	items := []models.NewsItem{
		newsItem("a", "A", "technology", "2024-03-01T10:00:00Z"),
		newsItem("b", "B", "science", "2024-03-03T10:00:00Z"),
		newsItem("c", "C", "technology", "2024-03-02T10:00:00Z"),
		newsItem("d", "D", "technology", "2024-02-28T10:00:00Z"),
	}
	if err := s.UpsertNewsItems(ctx, items); err != nil {
		t.Fatal(err)
	}

	all, err := s.ListNews(ctx, "", 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"b", "c", "a", "d"}, keysOf(all, storedKey)); diff != "" {
		t.Errorf("all (-want +got):\n%s", diff)
	}

	tech, err := s.ListNews(ctx, "technology", 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"d"}, keysOf(tech, storedKey)); diff != "" {
		t.Errorf("technology page 2 (-want +got):\n%s", diff)
	}

	empty, err := s.ListNews(ctx, "sports", 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", empty)
	}
}

func TestDeleteItem(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	if err := s.UpsertNewsItems(ctx, []models.NewsItem{newsItem("k1", "T", "ai", "2024-03-01T10:00:00Z")}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBookmark(ctx, "u1", "k1", true); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteItem(ctx, "k1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetItem(ctx, "k1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("item still present: %v", err)
	}
	bookmarks, err := s.ListBookmarks(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(bookmarks) != 0 {
		t.Errorf("bookmarks survived delete: %+v", bookmarks)
	}
	if err := s.DeleteItem(ctx, "k1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestBookmarks(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	if err := s.UpsertNewsItems(ctx, []models.NewsItem{
		newsItem("a", "A", "ai", "2024-03-01T10:00:00Z"),
		newsItem("b", "B", "ai", "2024-03-02T10:00:00Z"),
	}); err != nil {
		t.Fatal(err)
	}

	clock := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	if err := s.SetBookmark(ctx, "u1", "a", true); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBookmark(ctx, "u1", "b", true); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBookmark(ctx, "u2", "a", true); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListBookmarks(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"b", "a"}, keysOf(got, userKey)); diff != "" {
		t.Errorf("bookmarks (-want +got):\n%s", diff)
	}
	if !got[0].Bookmarked || got[0].InPlaylist {
		t.Errorf("flags = %+v", got[0])
	}

	if err := s.SetBookmark(ctx, "u1", "a", false); err != nil {
		t.Fatal(err)
	}
	got, err = s.ListBookmarks(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"b"}, keysOf(got, userKey)); diff != "" {
		t.Errorf("after removal (-want +got):\n%s", diff)
	}

	if err := s.SetBookmark(ctx, "u1", "missing", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPlaylist(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	if err := s.UpsertNewsItems(ctx, []models.NewsItem{
		newsItem("a", "A", "ai", "2024-03-01T10:00:00Z"),
		newsItem("b", "B", "ai", "2024-03-02T10:00:00Z"),
		newsItem("c", "C", "ai", "2024-03-03T10:00:00Z"),
	}); err != nil {
		t.Fatal(err)
	}

	for _, k := range []string{"b", "a", "c"} {
		if err := s.SetPlaylist(ctx, "u1", k, true); err != nil {
			t.Fatalf("add %s: %v", k, err)
		}
	}
	// Re-adding keeps the position.
	if err := s.SetPlaylist(ctx, "u1", "b", true); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBookmark(ctx, "u1", "a", true); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListPlaylist(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"b", "a", "c"}, keysOf(got, userKey)); diff != "" {
		t.Errorf("playlist (-want +got):\n%s", diff)
	}
	if !got[1].Bookmarked || !got[1].InPlaylist {
		t.Errorf("bookmark lost playlist flag: %+v", got[1])
	}

	if err := s.ReorderPlaylist(ctx, "u1", []string{"c"}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	got, err = s.ListPlaylist(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"c", "b", "a"}, keysOf(got, userKey)); diff != "" {
		t.Errorf("after reorder (-want +got):\n%s", diff)
	}

	if err := s.SetPlaylist(ctx, "u1", "b", false); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPlaylist(ctx, "u1", "b", true); err != nil {
		t.Fatal(err)
	}
	got, err = s.ListPlaylist(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"c", "a", "b"}, keysOf(got, userKey)); diff != "" {
		t.Errorf("re-added item not appended (-want +got):\n%s", diff)
	}

	if err := s.ReorderPlaylist(ctx, "u1", []string{"a", "zzz"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown key, got %v", err)
	}

	other, err := s.ListPlaylist(ctx, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("other user sees %d items", len(other))
	}
}
