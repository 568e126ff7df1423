package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/bilgisen/tldrit/internal/logger"
)

// LoggerConfig defines the config for the logger middleware
type LoggerConfig struct {
	// Next skips the middleware when it returns true.
	Next func(c *fiber.Ctx) bool

	// Logger receives the access log. Default: the "http" component logger.
	Logger *zerolog.Logger

	// Fields to include in the logs. Unknown names are ignored.
	Fields []string
}

// DefaultLoggerConfig is the default config
var DefaultLoggerConfig = LoggerConfig{
	Fields: []string{"latency", "status", "method", "path", "ip", "user_agent"},
}

type accessEntry struct {
	c       *fiber.Ctx
	status  int
	latency time.Duration
}

type fieldWriter func(e *zerolog.Event, a accessEntry) *zerolog.Event

var fieldWriters = map[string]fieldWriter{
	"method":     func(e *zerolog.Event, a accessEntry) *zerolog.Event { return e.Str("method", a.c.Method()) },
	"path":       func(e *zerolog.Event, a accessEntry) *zerolog.Event { return e.Str("path", a.c.Path()) },
	"status":     func(e *zerolog.Event, a accessEntry) *zerolog.Event { return e.Int("status", a.status) },
	"ip":         func(e *zerolog.Event, a accessEntry) *zerolog.Event { return e.Str("ip", a.c.IP()) },
	"latency":    func(e *zerolog.Event, a accessEntry) *zerolog.Event { return e.Dur("latency", a.latency) },
	"user_agent": func(e *zerolog.Event, a accessEntry) *zerolog.Event { return e.Str("user_agent", a.c.Get(fiber.HeaderUserAgent)) },
}

// NewLogger creates an access log middleware. Server errors are logged at
// error level, client errors at warn and everything else at info.
func NewLogger(config ...LoggerConfig) fiber.Handler {
	cfg := DefaultLoggerConfig
	if len(config) > 0 {
		cfg = config[0]
		if len(cfg.Fields) == 0 {
			cfg.Fields = DefaultLoggerConfig.Fields
		}
	}

	writers := make([]fieldWriter, 0, len(cfg.Fields))
	for _, name := range cfg.Fields {
		if w, ok := fieldWriters[name]; ok {
			writers = append(writers, w)
		}
	}

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		entry := accessEntry{c: c, status: responseStatus(c, err), latency: time.Since(start)}

		log := cfg.Logger
		if log == nil {
			l := logger.Component("http")
			log = &l
		}

		event := levelFor(log, entry.status)
		for _, w := range writers {
			event = w(event, entry)
		}
		if err != nil {
			event = event.Err(err)
		}
		event.Msg("request")
		return err
	}
}

// responseStatus is the status the client will see. The error handler has
// not run yet, so a returned error decides it.
func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	if e, ok := err.(*fiber.Error); ok {
		return e.Code
	}
	return fiber.StatusInternalServerError
}

func levelFor(log *zerolog.Logger, status int) *zerolog.Event {
	switch {
	case status >= fiber.StatusInternalServerError:
		return log.Error()
	case status >= fiber.StatusBadRequest:
		return log.Warn()
	default:
		return log.Info()
	}
}

// RequestLogger logs without the user agent.
func RequestLogger() fiber.Handler {
	return NewLogger(LoggerConfig{
		Fields: []string{"latency", "status", "method", "path", "ip"},
	})
}
