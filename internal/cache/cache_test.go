package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	if _, err := c.Get(ctx, "missing"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("got %q, want v", got)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss after delete, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	now = now.Add(59 * time.Second)
	if _, err := c.Get(ctx, "k"); err != nil {
		t.Fatalf("expected hit before expiry, got %v", err)
	}
	now = now.Add(time.Second)
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss at expiry, got %v", err)
	}
}

func TestMemoryCacheClear(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	for _, k := range []string{"a", "b"} {
		if _, err := c.Get(ctx, k); !errors.Is(err, ErrMiss) {
			t.Errorf("expected %s cleared, got %v", k, err)
		}
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	type payload struct {
		Items []string `json:"items"`
	}

	var dst payload
	hit, err := GetJSON(ctx, c, "p", &dst)
	if err != nil || hit {
		t.Fatalf("expected miss, got hit=%v err=%v", hit, err)
	}

	want := payload{Items: []string{"a", "b"}}
	if err := SetJSON(ctx, c, "p", want, time.Minute); err != nil {
		t.Fatalf("set json: %v", err)
	}
	hit, err = GetJSON(ctx, c, "p", &dst)
	if err != nil || !hit {
		t.Fatalf("expected hit, got hit=%v err=%v", hit, err)
	}
	if diff := cmp.Diff(want, dst); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}

	_ = c.Set(ctx, "bad", []byte("{"), 0)
	if _, err := GetJSON(ctx, c, "bad", &dst); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestKeys(t *testing.T) {
	if got := NewsKey([]string{"ai", "sports"}); got != "news:ai,sports" {
		t.Errorf("NewsKey = %q", got)
	}
	if NewsKey([]string{"ai", "sports"}) == NewsKey([]string{"sports", "ai"}) {
		t.Error("category order must produce distinct keys")
	}
	if got := SummaryKey("openai", "abc"); got != "summary:openai:abc" {
		t.Errorf("SummaryKey = %q", got)
	}
}

func TestRedisClient(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	ctx := context.Background()

	r, err := NewRedisClient(url, "tldrit-test:")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_ = r.Clear(ctx)
		_ = r.Close()
	})

	if _, err := r.Get(ctx, "missing"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}
	if err := r.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := r.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("get = %q, %v", got, err)
	}
	if err := r.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := r.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss after clear, got %v", err)
	}
}

func TestNewRedisClientBadURL(t *testing.T) {
	if _, err := NewRedisClient("://bad", "p:"); err == nil {
		t.Fatal("expected parse error")
	}
}
