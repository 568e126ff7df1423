package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/bilgisen/tldrit/internal/logger"
)

// MaxSpeechInput is the longest text the speech endpoint accepts.
const MaxSpeechInput = 4096

// Voices lists the accepted speech voices.
var Voices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

// ObjectStore keeps generated audio and returns its public URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Speaker turns text into MP3 narration through the OpenAI speech endpoint and
// uploads the result.
type Speaker struct {
	client  *resty.Client
	apiKey  string
	model   string
	voice   string
	limiter *rate.Limiter
	store   ObjectStore
	now     func() time.Time
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// NewSpeaker creates a speaker. store may be nil, in which case Narrate
// returns ErrNotConfigured.
func NewSpeaker(apiKey, model, voice string, store ObjectStore, opts ClientOptions) *Speaker {
	if opts.BaseURL == "" {
		opts.BaseURL = OpenAIBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Speaker{
		client: resty.New().
			SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
			SetTimeout(opts.Timeout).
			SetHeader("Content-Type", "application/json"),
		apiKey:  apiKey,
		model:   model,
		voice:   voice,
		limiter: newLimiter(opts.RequestsPerMin),
		store:   store,
		now:     time.Now,
	}
}

// Available reports whether both credentials and storage are configured.
func (s *Speaker) Available() bool {
	return s.apiKey != "" && s.store != nil
}

// ValidVoice reports whether voice is accepted, "" meaning the default.
func ValidVoice(voice string) bool {
	if voice == "" {
		return true
	}
	for _, v := range Voices {
		if v == voice {
			return true
		}
	}
	return false
}

// Synthesize returns MP3 audio for text.
func (s *Speaker) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("speech: %w", ErrNotConfigured)
	}
	text = TruncateInput(strings.TrimSpace(text), MaxSpeechInput)
	if text == "" {
		return nil, ErrEmptyInput
	}
	if voice == "" {
		voice = s.voice
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var failure errorResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.apiKey).
		SetBody(speechRequest{
			Model:          s.model,
			Input:          text,
			Voice:          voice,
			ResponseFormat: "mp3",
		}).
		SetError(&failure).
		Post("/audio/speech")
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	if resp.IsError() {
		msg := failure.Error.Message
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return nil, &APIError{Provider: ProviderOpenAI, StatusCode: resp.StatusCode(), Message: msg}
	}
	if len(resp.Body()) == 0 {
		return nil, fmt.Errorf("speech: empty audio response")
	}
	return resp.Body(), nil
}

// Narrate synthesizes text and uploads it under a dated key derived from
// name. It returns the public URL of the audio.
func (s *Speaker) Narrate(ctx context.Context, name, text, voice string) (string, error) {
	if s.store == nil {
		return "", fmt.Errorf("audio storage: %w", ErrNotConfigured)
	}

	audio, err := s.Synthesize(ctx, text, voice)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("audio/%s/%s.mp3", s.now().UTC().Format("2006/01/02"), name)
	url, err := s.store.Put(ctx, key, audio, "audio/mpeg")
	if err != nil {
		return "", fmt.Errorf("store audio: %w", err)
	}

	log := logger.Component("tts")
	log.Info().
		Str("key", key).
		Int("bytes", len(audio)).
		Msg("Stored narration")
	return url, nil
}
