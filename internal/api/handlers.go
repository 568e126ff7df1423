package api

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/tldrit/internal/ai"
	"github.com/bilgisen/tldrit/internal/cache"
	"github.com/bilgisen/tldrit/internal/config"
	"github.com/bilgisen/tldrit/internal/extract"
	"github.com/bilgisen/tldrit/internal/feed"
	"github.com/bilgisen/tldrit/internal/logger"
	"github.com/bilgisen/tldrit/internal/middleware"
	"github.com/bilgisen/tldrit/internal/models"
	"github.com/bilgisen/tldrit/internal/storage"
	"github.com/bilgisen/tldrit/internal/utils"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// NewsService serves merged live news. *feed.Processor implements it.
type NewsService interface {
	News(ctx context.Context, categories []string) ([]models.NewsItem, error)
	Refresh(ctx context.Context) (int, error)
}

// Store is the persistence the handlers need. *storage.Storage implements it.
type Store interface {
	Ping(ctx context.Context) error
	GetItem(ctx context.Context, key string) (*models.StoredItem, error)
	ListNews(ctx context.Context, category string, page, pageSize int) ([]models.StoredItem, error)
	DeleteItem(ctx context.Context, key string) error
	SaveTLDR(ctx context.Context, key, tldr string) error
	SaveAudioURL(ctx context.Context, key, url string) error
	SetBookmark(ctx context.Context, userID, key string, value bool) error
	SetPlaylist(ctx context.Context, userID, key string, value bool) error
	ListBookmarks(ctx context.Context, userID string) ([]models.UserItem, error)
	ListPlaylist(ctx context.Context, userID string) ([]models.UserItem, error)
	ReorderPlaylist(ctx context.Context, userID string, keys []string) error
}

// Summarizer produces TLDRs. *ai.Summarizer implements it.
type Summarizer interface {
	Summarize(ctx context.Context, title, text, provider string) (*models.Summary, error)
}

// Narrator produces and stores audio. *ai.Speaker implements it.
type Narrator interface {
	Available() bool
	Narrate(ctx context.Context, name, text, voice string) (string, error)
}

// ArticleExtractor loads the readable text behind a URL.
type ArticleExtractor interface {
	Extract(ctx context.Context, url string) (*extract.Article, error)
}

// Deps collects the collaborators of Handlers.
type Deps struct {
	Config     *config.Config
	Sources    config.Sources
	News       NewsService
	Fetcher    feed.RemoteFetcher
	Store      Store
	Cache      cache.Cache
	Summarizer Summarizer
	Speaker    Narrator
	Extractor  ArticleExtractor
}

type Handlers struct {
	Deps
	refreshTimeout time.Duration
	proxyHosts     map[string]bool
}

func NewHandlers(d Deps) *Handlers {
	return &Handlers{
		Deps:           d,
		refreshTimeout: 10 * time.Minute,
		proxyHosts:     sourceHosts(d.Sources),
	}
}

// sourceHosts collects the lowercase hosts of every configured feed URL.
func sourceHosts(sources config.Sources) map[string]bool {
	hosts := make(map[string]bool)
	for _, urls := range sources {
		for _, raw := range urls {
			if u, err := url.Parse(raw); err == nil && u.Host != "" {
				hosts[strings.ToLower(u.Hostname())] = true
			}
		}
	}
	return hosts
}

type storedNewsQuery struct {
	Category string `query:"category" validate:"omitempty,max=64"`
	Page     int    `query:"page" validate:"gte=0"`
	PageSize int    `query:"page_size" validate:"gte=0,lte=100"`
}

type summarizeRequest struct {
	Title    string `json:"title" validate:"max=500"`
	Text     string `json:"text" validate:"required_without=URL"`
	URL      string `json:"url" validate:"omitempty,url"`
	Provider string `json:"provider" validate:"omitempty,oneof=openai openrouter"`
}

type itemSummaryRequest struct {
	Provider string `json:"provider" validate:"omitempty,oneof=openai openrouter"`
	Refresh  bool   `json:"refresh"`
}

type ttsRequest struct {
	Text  string `json:"text" validate:"required,max=4096"`
	Voice string `json:"voice" validate:"omitempty,oneof=alloy echo fable onyx nova shimmer"`
}

type itemAudioRequest struct {
	Voice   string `json:"voice" validate:"omitempty,oneof=alloy echo fable onyx nova shimmer"`
	Refresh bool   `json:"refresh"`
}

type flagRequest struct {
	Value *bool `json:"value" validate:"required"`
}

type reorderRequest struct {
	Keys []string `json:"keys" validate:"required,min=1,dive,required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	status := "ok"
	code := fiber.StatusOK
	if h.Store != nil {
		if err := h.Store.Ping(c.UserContext()); err != nil {
			log := logger.Component("api")
			log.Error().Err(err).Msg("Database health check failed")
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}
	}

	return c.Status(code).JSON(fiber.Map{
		"status":  status,
		"version": Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// GetNews handles GET /news?categories=a,b
func (h *Handlers) GetNews(c *fiber.Ctx) error {
	categories := parseCategories(c.Query("categories"))
	if len(categories) == 0 {
		categories = h.Sources.Categories()
	}

	items, err := h.News.News(c.UserContext(), categories)
	if err != nil {
		return toHTTPError(err)
	}
	if items == nil {
		items = []models.NewsItem{}
	}

	return c.JSON(fiber.Map{
		"categories": categories,
		"count":      len(items),
		"items":      items,
	})
}

// parseCategories splits a comma list, lowercasing and dropping duplicates
// while keeping the first-seen order.
func parseCategories(raw string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

// GetStoredNews handles GET /news/stored
func (h *Handlers) GetStoredNews(c *fiber.Ctx) error {
	q := middleware.Query[storedNewsQuery](c)
	page, pageSize := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = storage.DefaultPageSize
	}

	items, err := h.Store.ListNews(c.UserContext(), strings.ToLower(q.Category), page, pageSize)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(fiber.Map{
		"page":      page,
		"page_size": pageSize,
		"count":     len(items),
		"items":     items,
	})
}

// GetNewsItem handles GET /news/:key
func (h *Handlers) GetNewsItem(c *fiber.Ctx) error {
	item, err := h.Store.GetItem(c.UserContext(), c.Params("key"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(item)
}

// GetCategories handles GET /categories
func (h *Handlers) GetCategories(c *fiber.Ctx) error {
	type category struct {
		Key     string `json:"key"`
		Sources int    `json:"sources"`
	}

	keys := h.Sources.Categories()
	out := make([]category, 0, len(keys))
	for _, k := range keys {
		out = append(out, category{Key: k, Sources: len(h.Sources[k])})
	}
	return c.JSON(fiber.Map{"categories": out})
}

// ProxyRSS handles GET /proxy/rss?url= and returns the feed body unchanged.
// Only hosts of configured feed sources are fetched.
func (h *Handlers) ProxyRSS(c *fiber.Ctx) error {
	target := strings.TrimSpace(c.Query("url"))
	u, err := url.Parse(target)
	if target == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fiber.NewError(fiber.StatusBadRequest, "A valid http(s) url parameter is required")
	}
	if !h.proxyHosts[strings.ToLower(u.Hostname())] {
		return fiber.NewError(fiber.StatusForbidden, "Host is not a configured feed source")
	}

	body, err := h.Fetcher.Fetch(c.UserContext(), target)
	if err != nil {
		var httpErr *feed.HTTPError
		if errors.As(err, &httpErr) {
			return toHTTPError(err)
		}
		return fiber.NewError(fiber.StatusBadGateway, "Could not fetch feed")
	}

	c.Set(fiber.HeaderContentType, "application/xml; charset=utf-8")
	return c.Send(body)
}

// Summarize handles POST /summarize
func (h *Handlers) Summarize(c *fiber.Ctx) error {
	req := middleware.Body[summarizeRequest](c)
	ctx := c.UserContext()

	title, text := req.Title, req.Text
	if strings.TrimSpace(text) == "" {
		if strings.TrimSpace(req.URL) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Either text or url is required")
		}
		article, err := h.Extractor.Extract(ctx, req.URL)
		if err != nil {
			if errors.Is(err, extract.ErrNoContent) {
				return toHTTPError(err)
			}
			return fiber.NewError(fiber.StatusBadGateway, "Could not fetch article")
		}
		text = article.Text
		if title == "" {
			title = article.Title
		}
	}

	summary, err := h.Summarizer.Summarize(ctx, title, text, req.Provider)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(summary)
}

// SummarizeItem handles POST /news/:key/summary. A stored TLDR is returned
// unless refresh is requested.
func (h *Handlers) SummarizeItem(c *fiber.Ctx) error {
	req := middleware.Body[itemSummaryRequest](c)
	ctx := c.UserContext()
	key := c.Params("key")

	item, err := h.Store.GetItem(ctx, key)
	if err != nil {
		return toHTTPError(err)
	}
	if item.TLDR != "" && !req.Refresh {
		return c.JSON(models.Summary{Text: item.TLDR, Cached: true, CreatedAt: item.UpdatedAt})
	}

	text := item.Summary
	if h.Extractor != nil {
		article, err := h.Extractor.Extract(ctx, item.SourceURL)
		if err == nil {
			text = article.Text
		} else {
			log := logger.Component("api")
			log.Warn().Err(err).Str("key", key).Msg("Article extraction failed, using feed summary")
		}
	}
	if strings.TrimSpace(text) == "" {
		text = item.Title
	}

	summary, err := h.Summarizer.Summarize(ctx, item.Title, text, req.Provider)
	if err != nil {
		return toHTTPError(err)
	}
	if err := h.Store.SaveTLDR(ctx, key, summary.Text); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(summary)
}

// TextToSpeech handles POST /tts
func (h *Handlers) TextToSpeech(c *fiber.Ctx) error {
	req := middleware.Body[ttsRequest](c)

	name := utils.Hash(req.Voice + "\x00" + req.Text)[:24]
	audioURL, err := h.Speaker.Narrate(c.UserContext(), name, req.Text, req.Voice)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(fiber.Map{"audioUrl": audioURL})
}

// ItemAudio handles POST /news/:key/audio. The TLDR is narrated when present,
// otherwise the title and feed summary.
func (h *Handlers) ItemAudio(c *fiber.Ctx) error {
	req := middleware.Body[itemAudioRequest](c)
	ctx := c.UserContext()
	key := c.Params("key")

	item, err := h.Store.GetItem(ctx, key)
	if err != nil {
		return toHTTPError(err)
	}
	if item.AudioURL != "" && !req.Refresh {
		return c.JSON(fiber.Map{"key": key, "audioUrl": item.AudioURL})
	}

	text := item.TLDR
	if text == "" {
		text = strings.TrimSpace(item.Title + ". " + item.Summary)
	}

	audioURL, err := h.Speaker.Narrate(ctx, key, text, req.Voice)
	if err != nil {
		return toHTTPError(err)
	}
	if err := h.Store.SaveAudioURL(ctx, key, audioURL); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(fiber.Map{"key": key, "audioUrl": audioURL})
}

// SetBookmark handles PUT /users/:user/items/:key/bookmark
func (h *Handlers) SetBookmark(c *fiber.Ctx) error {
	req := middleware.Body[flagRequest](c)
	user, key := c.Params("user"), c.Params("key")

	if err := h.Store.SetBookmark(c.UserContext(), user, key, *req.Value); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(fiber.Map{"user": user, "key": key, "bookmarked": *req.Value})
}

// SetPlaylist handles PUT /users/:user/items/:key/playlist
func (h *Handlers) SetPlaylist(c *fiber.Ctx) error {
	req := middleware.Body[flagRequest](c)
	user, key := c.Params("user"), c.Params("key")

	if err := h.Store.SetPlaylist(c.UserContext(), user, key, *req.Value); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(fiber.Map{"user": user, "key": key, "inPlaylist": *req.Value})
}

// ListBookmarks handles GET /users/:user/bookmarks
func (h *Handlers) ListBookmarks(c *fiber.Ctx) error {
	items, err := h.Store.ListBookmarks(c.UserContext(), c.Params("user"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(fiber.Map{"count": len(items), "items": items})
}

// ListPlaylist handles GET /users/:user/playlist
func (h *Handlers) ListPlaylist(c *fiber.Ctx) error {
	items, err := h.Store.ListPlaylist(c.UserContext(), c.Params("user"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(fiber.Map{"count": len(items), "items": items})
}

// ReorderPlaylist handles PUT /users/:user/playlist/order
func (h *Handlers) ReorderPlaylist(c *fiber.Ctx) error {
	req := middleware.Body[reorderRequest](c)
	ctx := c.UserContext()
	user := c.Params("user")

	if err := h.Store.ReorderPlaylist(ctx, user, req.Keys); err != nil {
		return toHTTPError(err)
	}
	items, err := h.Store.ListPlaylist(ctx, user)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(fiber.Map{"count": len(items), "items": items})
}

// RefreshNews handles POST /admin/refresh. The refresh runs in the
// background; the request returns immediately.
func (h *Handlers) RefreshNews(c *fiber.Ctx) error {
	log := logger.Component("api")
	log.Info().
		Str("ip", c.IP()).
		Msg("Received refresh request")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.refreshTimeout)
		defer cancel()

		start := time.Now()
		n, err := h.News.Refresh(ctx)
		if err != nil {
			log.Error().Err(err).Int("items", n).Msg("Background refresh failed")
			return
		}
		log.Info().Int("items", n).Dur("duration", time.Since(start)).Msg("Background refresh finished")
	}()

	categories := h.Sources.Categories()
	sort.Strings(categories)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":     "started",
		"categories": categories,
	})
}

// DeleteNews handles DELETE /admin/news/:key
func (h *Handlers) DeleteNews(c *fiber.Ctx) error {
	key := c.Params("key")
	if err := h.Store.DeleteItem(c.UserContext(), key); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(fiber.Map{
		"status":  "deleted",
		"message": "News item deleted successfully",
	})
}

// ClearCache handles DELETE /admin/cache
func (h *Handlers) ClearCache(c *fiber.Ctx) error {
	if err := h.Cache.Clear(c.UserContext()); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(fiber.Map{"status": "cleared"})
}

// toHTTPError maps domain errors onto HTTP statuses. Unknown errors become
// 500 and are logged by the error handler.
func toHTTPError(err error) error {
	var (
		apiErr  *ai.APIError
		httpErr *feed.HTTPError
		fmtErr  *feed.FormatError
	)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Not found")
	case errors.Is(err, ai.ErrNotConfigured):
		return fiber.NewError(fiber.StatusServiceUnavailable, "AI service is not configured")
	case errors.Is(err, ai.ErrUnknownProvider):
		return fiber.NewError(fiber.StatusBadRequest, "Unknown AI provider")
	case errors.Is(err, ai.ErrEmptyInput):
		return fiber.NewError(fiber.StatusUnprocessableEntity, "Nothing to process")
	case errors.Is(err, extract.ErrNoContent):
		return fiber.NewError(fiber.StatusUnprocessableEntity, "No readable article text found")
	case errors.As(err, &apiErr):
		return fiber.NewError(fiber.StatusBadGateway, "AI provider error: "+apiErr.Message)
	case errors.As(err, &httpErr):
		return fiber.NewError(fiber.StatusBadGateway, httpErr.Error())
	case errors.As(err, &fmtErr):
		return fiber.NewError(fiber.StatusBadGateway, fmtErr.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, "Upstream timed out")
	default:
		return err
	}
}
