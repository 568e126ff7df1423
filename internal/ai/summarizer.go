package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bilgisen/tldrit/internal/cache"
	"github.com/bilgisen/tldrit/internal/logger"
	"github.com/bilgisen/tldrit/internal/models"
	"github.com/bilgisen/tldrit/internal/utils"
)

// Completer is a chat model that answers a system and user prompt.
type Completer interface {
	Name() string
	Model() string
	Available() bool
	Complete(ctx context.Context, system, user string) (string, error)
}

// Summarizer produces TLDRs through one of several providers and caches them
// by provider and input hash.
type Summarizer struct {
	providers       map[string]Completer
	defaultProvider string
	cache           cache.Cache
	ttl             time.Duration
	maxInput        int
	post            *PostProcessor
	now             func() time.Time
}

// NewSummarizer registers the given providers. c may be nil to disable
// caching.
func NewSummarizer(defaultProvider string, c cache.Cache, ttl time.Duration, maxInput int, providers ...Completer) *Summarizer {
	s := &Summarizer{
		providers:       make(map[string]Completer, len(providers)),
		defaultProvider: defaultProvider,
		cache:           c,
		ttl:             ttl,
		maxInput:        maxInput,
		post:            NewPostProcessor(),
		now:             time.Now,
	}
	for _, p := range providers {
		s.providers[p.Name()] = p
	}
	return s
}

// Provider resolves a provider name, "" meaning the default.
func (s *Summarizer) Provider(name string) (Completer, error) {
	if name == "" {
		name = s.defaultProvider
	}
	p, ok := s.providers[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownProvider)
	}
	if !p.Available() {
		return nil, fmt.Errorf("%s: %w", name, ErrNotConfigured)
	}
	return p, nil
}

// Summarize returns a TLDR of text. Input longer than the configured bound is
// truncated first; identical input is served from cache.
func (s *Summarizer) Summarize(ctx context.Context, title, text, provider string) (*models.Summary, error) {
	log := logger.Component("summarizer")

	text = TruncateInput(strings.TrimSpace(text), s.maxInput)
	if text == "" {
		return nil, ErrEmptyInput
	}

	p, err := s.Provider(provider)
	if err != nil {
		return nil, err
	}

	key := cache.SummaryKey(p.Name(), utils.Hash(p.Model()+"\x00"+title+"\x00"+text))
	if s.cache != nil {
		var cached models.Summary
		hit, err := cache.GetJSON(ctx, s.cache, key, &cached)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to read summary cache")
		}
		if hit {
			cached.Cached = true
			return &cached, nil
		}
	}

	raw, err := p.Complete(ctx, PromptTemplates.SummarySystem, BuildSummaryPrompt(title, text))
	if err != nil {
		return nil, err
	}
	clean, err := s.post.CleanSummary(raw)
	if err != nil {
		return nil, fmt.Errorf("%s returned an unusable summary: %w", p.Name(), err)
	}

	summary := &models.Summary{
		Text:      clean,
		Provider:  p.Name(),
		Model:     p.Model(),
		CreatedAt: s.now().UTC(),
	}
	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, key, summary, s.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to write summary cache")
		}
	}

	log.Info().
		Str("provider", summary.Provider).
		Str("model", summary.Model).
		Int("input_length", len(text)).
		Int("summary_length", len(clean)).
		Msg("Generated summary")
	return summary, nil
}
