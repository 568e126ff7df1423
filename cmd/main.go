package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bilgisen/tldrit/internal/ai"
	"github.com/bilgisen/tldrit/internal/api"
	"github.com/bilgisen/tldrit/internal/cache"
	"github.com/bilgisen/tldrit/internal/config"
	"github.com/bilgisen/tldrit/internal/extract"
	"github.com/bilgisen/tldrit/internal/feed"
	"github.com/bilgisen/tldrit/internal/logger"
	"github.com/bilgisen/tldrit/internal/storage"
)

func main() {
	// Load and validate configuration
	cfg := config.Load()

	// Initialize logger
	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: cfg.LogFile,
		Pretty: !cfg.IsProduction(),
	}); err != nil {
		panic(err)
	}

	log := logger.Get()
	log.Info().Str("env", cfg.Env).Msg("Starting application...")

	// Cache: Redis when configured, otherwise process memory
	var newsCache cache.Cache
	if cfg.RedisURL != "" {
		redisClient, err := cache.NewRedisClient(cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Redis client")
		}
		newsCache = redisClient
	} else {
		log.Warn().Msg("REDIS_URL not set, using in-memory cache")
		newsCache = cache.NewMemoryCache()
	}
	defer func() {
		log.Info().Msg("Closing cache...")
		if err := newsCache.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing cache")
		}
	}()

	store, err := storage.NewStorage(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("Failed to open database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	// Audio goes to R2 when credentials are complete, otherwise to MEDIA_DIR
	var objects ai.ObjectStore
	if cfg.ObjectStorageEnabled() {
		s3Store, err := storage.NewS3ObjectStore(context.Background(), storage.S3Config{
			Endpoint:  cfg.R2Endpoint,
			AccountID: cfg.R2AccountID,
			AccessKey: cfg.R2AccessKey,
			SecretKey: cfg.R2SecretKey,
			Bucket:    cfg.R2Bucket,
			PublicURL: cfg.R2PublicURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize object storage")
		}
		objects = s3Store
		log.Info().Str("bucket", cfg.R2Bucket).Msg("Audio uploads go to object storage")
	} else {
		fileStore, err := storage.NewFileObjectStore(cfg.MediaDir, cfg.MediaURL())
		if err != nil {
			log.Fatal().Err(err).Str("dir", cfg.MediaDir).Msg("Failed to prepare media directory")
		}
		objects = fileStore
		log.Info().Str("dir", fileStore.BasePath()).Msg("Audio is stored locally")
	}

	sources, err := cfg.ResolveSources()
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.FeedSourcesFile).Msg("Failed to load feed sources")
	}

	fetcher := feed.NewFetcher(cfg.FeedTimeout, cfg.FeedUserAgent, feed.WithProxy(cfg.FeedProxyURL))
	pipeline := feed.NewPipeline(sources, fetcher,
		feed.WithConcurrency(cfg.FeedConcurrency),
		feed.WithMaxItems(cfg.MaxNewsItems),
	)
	processor := feed.NewProcessor(pipeline, newsCache, store, cfg.NewsCacheTTL)

	aiOpts := ai.ClientOptions{
		Timeout:        cfg.AITimeout,
		MaxTokens:      cfg.AIMaxTokens,
		RequestsPerMin: cfg.AIRequestsPerMin,
	}
	summarizer := ai.NewSummarizer(cfg.AIProvider, newsCache, cfg.SummaryCacheTTL, cfg.MaxSummaryInput,
		ai.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModel, aiOpts),
		ai.NewOpenRouterClient(cfg.OpenRouterKey, cfg.OpenRouterModel, aiOpts),
	)
	speaker := ai.NewSpeaker(cfg.OpenAIKey, cfg.TTSModel, cfg.TTSVoice, objects, aiOpts)
	if !speaker.Available() {
		log.Warn().Msg("OPENAI_API_KEY not set, text-to-speech is disabled")
	}

	handlers := api.NewHandlers(api.Deps{
		Config:     cfg,
		Sources:    sources,
		News:       processor,
		Fetcher:    fetcher,
		Store:      store,
		Cache:      newsCache,
		Summarizer: summarizer,
		Speaker:    speaker,
		Extractor:  extract.NewExtractor(cfg.HTTPTimeout, cfg.FeedUserAgent),
	})

	app := api.NewApp(cfg)
	api.SetupRoutes(app, handlers, cfg)

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Int("categories", len(sources)).Msg("Starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let pending item writes finish before the database closes
	done := make(chan struct{})
	go func() {
		processor.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(cfg.ShutdownTimeout):
		log.Warn().Msg("Timed out waiting for background writes")
	}

	log.Info().Msg("Server exited properly")
}
