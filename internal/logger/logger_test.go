package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetAndComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := *Get()
	t.Cleanup(func() { Set(prev) })

	Set(zerolog.New(&buf))
	log := Component("feed")
	log.Warn().Str("url", "https://a.test/rss").Msg("feed failed")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	if entry["component"] != "feed" {
		t.Errorf("component = %v, want feed", entry["component"])
	}
	if entry["level"] != "warn" {
		t.Errorf("level = %v, want warn", entry["level"])
	}
}

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{level: "debug", want: zerolog.DebugLevel},
		{level: "WARN", want: zerolog.WarnLevel},
		{level: "", want: zerolog.InfoLevel},
		{level: "bogus", want: zerolog.InfoLevel},
		{level: Disabled, want: zerolog.Disabled},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, err := New(Config{Level: tt.level, Output: "stderr"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := l.GetLevel(); got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	if _, err := New(Config{Level: "info", Output: path}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
