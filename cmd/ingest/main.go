package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/bilgisen/tldrit/internal/config"
	"github.com/bilgisen/tldrit/internal/feed"
	"github.com/bilgisen/tldrit/internal/logger"
	"github.com/bilgisen/tldrit/internal/models"
	"github.com/bilgisen/tldrit/internal/storage"
)

type options struct {
	Categories  []string      `short:"c" long:"category" description:"Category to fetch, repeatable or comma separated (default: all configured)"`
	SourcesFile string        `long:"sources" env:"FEED_SOURCES_FILE" description:"YAML file mapping categories to feed URLs"`
	Timeout     time.Duration `long:"timeout" env:"FEED_TIMEOUT" default:"15s" description:"Per-request feed timeout"`
	Concurrency int           `long:"concurrency" env:"FEED_CONCURRENCY" default:"1" description:"Categories fetched at once"`
	MaxItems    int           `long:"max-items" env:"MAX_NEWS_ITEMS" default:"50" description:"Maximum number of items returned"`
	UserAgent   string        `long:"user-agent" env:"FEED_USER_AGENT" description:"User-Agent sent to feed hosts"`
	ProxyURL    string        `long:"proxy" env:"FEED_PROXY_URL" description:"Proxy endpoint taking the feed in its url parameter"`
	Pretty      bool          `long:"pretty" description:"Indent JSON output"`
	LogLevel    string        `long:"log-level" env:"LOG_LEVEL" default:"warn" description:"Log level, logs go to stderr"`

	DatabaseDriver string `long:"db-driver" env:"DATABASE_DRIVER" default:"sqlite" choice:"sqlite" choice:"postgres" description:"Database driver"`
	DatabaseURL    string `long:"db" description:"Also store the items in this database"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[OPTIONS]\n\nFetches news once and prints the merged items as JSON."

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if err := logger.Init(logger.Config{Level: opts.LogLevel, Output: "stderr", Pretty: true}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		log := logger.Get()
		log.Error().Err(err).Msg("Ingest failed")
		os.Exit(1)
	}
}

func run(opts options) error {
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources := config.DefaultSources()
	if opts.SourcesFile != "" {
		loaded, err := config.LoadSources(opts.SourcesFile)
		if err != nil {
			return err
		}
		sources = loaded
	}

	categories := splitCategories(opts.Categories)
	if len(categories) == 0 {
		categories = sources.Categories()
	}
	for _, c := range categories {
		if len(sources.Candidates(c)) == 0 {
			log.Warn().Str("category", c).Msg("Category has no configured feeds")
		}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}
	fetcher := feed.NewFetcher(opts.Timeout, userAgent, feed.WithProxy(opts.ProxyURL))
	pipeline := feed.NewPipeline(sources, fetcher,
		feed.WithConcurrency(opts.Concurrency),
		feed.WithMaxItems(opts.MaxItems),
	)

	start := time.Now()
	items := pipeline.FetchNewsForCategories(ctx, categories)
	if err := ctx.Err(); err != nil {
		return err
	}
	if items == nil {
		items = []models.NewsItem{}
	}
	log.Info().
		Strs("categories", categories).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Fetched news")

	if opts.DatabaseURL != "" {
		store, err := storage.NewStorage(opts.DatabaseDriver, opts.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.UpsertNewsItems(ctx, items); err != nil {
			return fmt.Errorf("store items: %w", err)
		}
		log.Info().Int("items", len(items)).Msg("Stored news items")
	}

	enc := json.NewEncoder(os.Stdout)
	if opts.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(items)
}

func splitCategories(values []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" && !seen[part] {
				seen[part] = true
				out = append(out, part)
			}
		}
	}
	return out
}
