package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port" validate:"required,numeric"`
	Env             string        `json:"env" validate:"oneof=development production test"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" validate:"gt=0"`
	HTTPTimeout     time.Duration `json:"http_timeout" validate:"gt=0"`
	CORSOrigins     string        `json:"cors_origins"`

	// Redis configuration. An empty URL selects the in-memory cache.
	RedisURL        string        `json:"redis_url" validate:"omitempty,url"`
	RedisPrefix     string        `json:"redis_prefix"`
	NewsCacheTTL    time.Duration `json:"news_cache_ttl" validate:"gte=0"`
	SummaryCacheTTL time.Duration `json:"summary_cache_ttl" validate:"gte=0"`

	// Database
	DatabaseDriver string `json:"database_driver" validate:"oneof=sqlite postgres"`
	DatabaseURL    string `json:"database_url" validate:"required"`

	// CloudFlare R2 Configuration (audio uploads)
	R2Endpoint  string `json:"r2_endpoint" validate:"omitempty,url"`
	R2AccessKey string `json:"r2_access_key"`
	R2SecretKey string `json:"r2_secret_key"`
	R2Bucket    string `json:"r2_bucket"`
	R2AccountID string `json:"r2_account_id"`
	R2PublicURL string `json:"r2_public_url" validate:"omitempty,url"`

	// Local audio storage used when R2 is not configured, served under /media.
	MediaDir      string `json:"media_dir" validate:"required"`
	PublicBaseURL string `json:"public_base_url" validate:"omitempty,url"`

	// AI Configuration
	OpenAIKey        string        `json:"openai_key"`
	OpenAIModel      string        `json:"openai_model"`
	OpenRouterKey    string        `json:"openrouter_key"`
	OpenRouterModel  string        `json:"openrouter_model"`
	AIProvider       string        `json:"ai_provider" validate:"oneof=openai openrouter"`
	AITimeout        time.Duration `json:"ai_timeout" validate:"gt=0"`
	AIMaxTokens      int           `json:"ai_max_tokens" validate:"gt=0"`
	AIRequestsPerMin int           `json:"ai_requests_per_min" validate:"gte=0"`
	TTSModel         string        `json:"tts_model"`
	TTSVoice         string        `json:"tts_voice"`
	MaxSummaryInput  int           `json:"max_summary_input" validate:"gt=0"`

	// Feed ingestion
	FeedTimeout     time.Duration `json:"feed_timeout" validate:"gt=0"`
	FeedProxyURL    string        `json:"feed_proxy_url" validate:"omitempty,url"`
	FeedUserAgent   string        `json:"feed_user_agent" validate:"required"`
	FeedConcurrency int           `json:"feed_concurrency" validate:"gte=1"`
	FeedSourcesFile string        `json:"feed_sources_file"`
	MaxNewsItems    int           `json:"max_news_items" validate:"gte=1"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// Security
	AdminAPIKey string   `json:"admin_api_key"`
	APIKeys     []string `json:"-"`
}

// DefaultUserAgent identifies feed requests as a regular browser; several
// publishers reject unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Load loads configuration from environment variables and validates it
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg, err := FromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// FromEnv builds the configuration from the current environment.
func FromEnv() (*Config, error) {
	cfg := &Config{
		// Server configuration
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		CORSOrigins:     getEnv("CORS_ORIGINS", "*"),

		// Redis configuration
		RedisURL:        getEnv("REDIS_URL", ""),
		RedisPrefix:     getEnv("REDIS_PREFIX", "tldrit:"),
		NewsCacheTTL:    getEnvAsDuration("NEWS_CACHE_TTL", 15*time.Minute),
		SummaryCacheTTL: getEnvAsDuration("SUMMARY_CACHE_TTL", 720*time.Hour), // 30 days

		// Database
		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:    getEnv("DATABASE_URL", "./data/tldrit.db"),

		// CloudFlare R2 Configuration
		R2Endpoint:  getEnv("R2_ENDPOINT", ""),
		R2AccessKey: getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:    getEnv("R2_BUCKET", "tldrit-audio"),
		R2AccountID: getEnv("CLOUDFLARE_ACCOUNT_ID", ""),
		R2PublicURL: getEnv("R2_PUBLIC_URL", ""),

		MediaDir:      getEnv("MEDIA_DIR", "./data/media"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		// AI Configuration
		OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenRouterKey:    getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterModel:  getEnv("OPENROUTER_MODEL", "anthropic/claude-3.5-sonnet"),
		AIProvider:       getEnv("AI_PROVIDER", "openai"),
		AITimeout:        getEnvAsDuration("AI_TIMEOUT", 60*time.Second),
		AIMaxTokens:      getEnvAsInt("AI_MAX_TOKENS", 1000),
		AIRequestsPerMin: getEnvAsInt("AI_REQUESTS_PER_MIN", 60),
		TTSModel:         getEnv("TTS_MODEL", "tts-1"),
		TTSVoice:         getEnv("TTS_VOICE", "alloy"),
		MaxSummaryInput:  getEnvAsInt("MAX_SUMMARY_INPUT", 48000),

		// Feed ingestion
		FeedTimeout:     getEnvAsDuration("FEED_TIMEOUT", 15*time.Second),
		FeedProxyURL:    getEnv("FEED_PROXY_URL", ""),
		FeedUserAgent:   getEnv("FEED_USER_AGENT", DefaultUserAgent),
		FeedConcurrency: getEnvAsInt("FEED_CONCURRENCY", 1),
		FeedSourcesFile: getEnv("FEED_SOURCES_FILE", ""),
		MaxNewsItems:    getEnvAsInt("MAX_NEWS_ITEMS", 50),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		// Security
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
		APIKeys:     getEnvAsList("API_KEYS"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if c.AIProvider == "openrouter" && c.OpenRouterKey == "" {
		return fmt.Errorf("validate config: AI_PROVIDER=openrouter requires OPENROUTER_API_KEY")
	}
	return nil
}

// MediaURL is the public prefix of locally stored audio.
func (c *Config) MediaURL() string {
	base := strings.TrimRight(c.PublicBaseURL, "/")
	if base == "" {
		base = "http://localhost:" + c.Port
	}
	return base + "/media"
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ObjectStorageEnabled reports whether R2 credentials are complete.
func (c *Config) ObjectStorageEnabled() bool {
	return c.R2Bucket != "" && c.R2AccessKey != "" && c.R2SecretKey != "" &&
		(c.R2Endpoint != "" || c.R2AccountID != "")
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsList(name string) []string {
	var out []string
	for _, s := range strings.Split(getEnv(name, ""), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
