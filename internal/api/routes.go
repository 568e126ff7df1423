package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/bilgisen/tldrit/internal/config"
	"github.com/bilgisen/tldrit/internal/middleware"
)

// NewApp creates the Fiber application with the JSON error handler.
func NewApp(cfg *config.Config) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               "tldrit",
		ReadTimeout:           cfg.HTTPTimeout,
		WriteTimeout:          cfg.HTTPTimeout,
		ErrorHandler:          middleware.ErrorHandler,
		DisableStartupMessage: cfg.IsProduction(),
	})
}

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, h *Handlers, cfg *config.Config) {
	app.Use(recover.New())
	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-API-Key",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	// Locally stored narration when no object storage is configured.
	if cfg.MediaDir != "" && !cfg.ObjectStorageEnabled() {
		app.Static("/media", cfg.MediaDir)
	}

	// Summaries and speech cost money, so they are gated when keys are set.
	aiGuard := func(c *fiber.Ctx) error { return c.Next() }
	if len(cfg.APIKeys) > 0 {
		aiGuard = middleware.NewAuth(middleware.AuthConfig{
			Validator: middleware.KeySet(cfg.APIKeys),
		})
	}

	api := app.Group("/api/v1")

	api.Get("/health", h.HealthCheck)
	api.Get("/categories", h.GetCategories)
	api.Get("/proxy/rss", h.ProxyRSS)

	news := api.Group("/news")
	{
		news.Get("", h.GetNews)
		news.Get("/stored", middleware.ValidateQueryParams[storedNewsQuery](), h.GetStoredNews)
		news.Get("/:key", h.GetNewsItem)
		news.Post("/:key/summary", aiGuard, middleware.ValidateRequest[itemSummaryRequest](), h.SummarizeItem)
		news.Post("/:key/audio", aiGuard, middleware.ValidateRequest[itemAudioRequest](), h.ItemAudio)
	}

	api.Post("/summarize", aiGuard, middleware.ValidateRequest[summarizeRequest](), h.Summarize)
	api.Post("/tts", aiGuard, middleware.ValidateRequest[ttsRequest](), h.TextToSpeech)

	users := api.Group("/users/:user")
	{
		users.Put("/items/:key/bookmark", middleware.ValidateRequest[flagRequest](), h.SetBookmark)
		users.Put("/items/:key/playlist", middleware.ValidateRequest[flagRequest](), h.SetPlaylist)
		users.Get("/bookmarks", h.ListBookmarks)
		users.Get("/playlist", h.ListPlaylist)
		users.Put("/playlist/order", middleware.ValidateRequest[reorderRequest](), h.ReorderPlaylist)
	}

	admin := api.Group("/admin", middleware.AdminOnly(cfg.AdminAPIKey))
	{
		admin.Post("/refresh", h.RefreshNews)
		admin.Delete("/news/:key", h.DeleteNews)
		admin.Delete("/cache", h.ClearCache)
	}

	// 404 Handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}
