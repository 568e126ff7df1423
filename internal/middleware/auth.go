package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/tldrit/internal/logger"
)

// AuthConfig defines the config for the auth middleware
type AuthConfig struct {
	// Next skips the middleware when it returns true.
	Next func(c *fiber.Ctx) bool

	// Validator reports whether a key is accepted. Required.
	Validator func(key string) (bool, error)

	// ErrorHandler renders a rejected request.
	// Optional. Default: 401 Invalid or missing API Key
	ErrorHandler fiber.ErrorHandler

	// ContextKey is the Locals key the accepted key is stored under.
	// Optional. Default: "apiKey"
	ContextKey string

	// Header carries the key, with or without a "Bearer " prefix.
	// Optional. Default: "X-API-Key"
	Header string
}

// ConfigDefault is the default config
var ConfigDefault = AuthConfig{
	ErrorHandler: func(c *fiber.Ctx, err error) error {
		log := logger.Component("auth")
		log.Warn().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Err(err).
			Msg("Authentication failed")

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or missing API Key",
		})
	},
	ContextKey: "apiKey",
	Header:     "X-API-Key",
}

// NewAuth creates an API key middleware.
func NewAuth(config ...AuthConfig) fiber.Handler {
	cfg := ConfigDefault
	if len(config) > 0 {
		cfg = config[0]
		if cfg.ErrorHandler == nil {
			cfg.ErrorHandler = ConfigDefault.ErrorHandler
		}
		if cfg.ContextKey == "" {
			cfg.ContextKey = ConfigDefault.ContextKey
		}
		if cfg.Header == "" {
			cfg.Header = ConfigDefault.Header
		}
	}
	if cfg.Validator == nil {
		panic("middleware: NewAuth requires a Validator")
	}

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		header := c.Get(cfg.Header)
		if header == "" && cfg.Header != fiber.HeaderAuthorization {
			header = c.Get(fiber.HeaderAuthorization)
		}
		if header == "" {
			return cfg.ErrorHandler(c, errors.New("missing API key"))
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		valid, err := cfg.Validator(token)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}
		if !valid {
			return cfg.ErrorHandler(c, errors.New("invalid API key"))
		}

		c.Locals(cfg.ContextKey, token)
		return c.Next()
	}
}

// KeySet returns a Validator accepting any of keys. Comparison is constant
// time.
func KeySet(keys []string) func(string) (bool, error) {
	return func(key string) (bool, error) {
		ok := false
		for _, k := range keys {
			if k != "" && subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
				ok = true
			}
		}
		return ok, nil
	}
}

// AdminOnly lets a request through only when X-API-Key equals adminKey. With
// an empty adminKey every request is refused.
func AdminOnly(adminKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		log := logger.Component("auth")

		if adminKey == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin API is disabled",
			})
		}

		apiKey := c.Get("X-API-Key")
		if apiKey == "" {
			log.Warn().
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Msg("Admin access attempt without API key")

			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "API key is required",
			})
		}

		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(adminKey)) != 1 {
			log.Warn().
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Msg("Unauthorized admin access attempt")

			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin access required",
			})
		}

		return c.Next()
	}
}
