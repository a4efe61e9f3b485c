// Package config loads the demo app configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/techdhakaai/amarvoice-ai/pkg/voice"
)

// Config holds everything the demo CLI needs to run.
type Config struct {
	// APIKey authenticates against the live voice service.
	APIKey string

	// BaseURL of the live voice service. http(s) or ws(s) schemes.
	BaseURL string

	// VoiceID is the initial synthesis voice. Must be in the catalog.
	VoiceID string

	// InputSampleRate is the microphone capture rate in Hz.
	InputSampleRate int

	// OutputSampleRate is the playback rate in Hz.
	OutputSampleRate int

	// OpenAIAPIKey backs the translate_text tool. Empty disables it.
	OpenAIAPIKey string

	// OrdersDBPath is the sqlite file for the demo order store.
	OrdersDBPath string

	// ToolTimeout bounds each tool handler invocation.
	ToolTimeout time.Duration

	// MarkInterval is how often playback marks are sent while playing.
	MarkInterval time.Duration

	// PrebufferMS is how much assistant audio must queue before playback
	// starts.
	PrebufferMS int

	// DebugLogPath receives slog output when set. Empty discards logs so
	// they do not tear the TUI.
	DebugLogPath string
}

// LoadFromEnv reads configuration from AMARVOICE_* environment variables.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		APIKey:           strings.TrimSpace(os.Getenv("AMARVOICE_API_KEY")),
		BaseURL:          envOr("AMARVOICE_BASE_URL", "wss://api.amarvoice.ai"),
		VoiceID:          envOr("AMARVOICE_VOICE", voice.DefaultVoice().ID),
		InputSampleRate:  envIntOr("AMARVOICE_INPUT_SAMPLE_RATE", 16000),
		OutputSampleRate: envIntOr("AMARVOICE_OUTPUT_SAMPLE_RATE", 24000),
		OpenAIAPIKey:     strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OrdersDBPath:     envOr("AMARVOICE_ORDERS_DB", "amarvoice-orders.db"),
		ToolTimeout:      envDurationOr("AMARVOICE_TOOL_TIMEOUT", 15*time.Second),
		MarkInterval:     envDurationOr("AMARVOICE_MARK_INTERVAL", 250*time.Millisecond),
		PrebufferMS:      envIntOr("AMARVOICE_PREBUFFER_MS", 50),
		DebugLogPath:     strings.TrimSpace(os.Getenv("AMARVOICE_DEBUG_LOG")),
	}

	if cfg.APIKey == "" {
		return Config{}, fmt.Errorf("AMARVOICE_API_KEY must be set")
	}
	if _, ok := voice.VoiceByID(cfg.VoiceID); !ok {
		return Config{}, fmt.Errorf("AMARVOICE_VOICE must name a catalog voice, got %q", cfg.VoiceID)
	}
	if cfg.InputSampleRate <= 0 {
		return Config{}, fmt.Errorf("AMARVOICE_INPUT_SAMPLE_RATE must be > 0")
	}
	if cfg.OutputSampleRate <= 0 {
		return Config{}, fmt.Errorf("AMARVOICE_OUTPUT_SAMPLE_RATE must be > 0")
	}
	if strings.TrimSpace(cfg.OrdersDBPath) == "" {
		return Config{}, fmt.Errorf("AMARVOICE_ORDERS_DB must not be empty")
	}
	if cfg.ToolTimeout < 0 {
		return Config{}, fmt.Errorf("AMARVOICE_TOOL_TIMEOUT must be >= 0")
	}
	if cfg.MarkInterval <= 0 {
		return Config{}, fmt.Errorf("AMARVOICE_MARK_INTERVAL must be > 0")
	}
	if cfg.PrebufferMS < 0 {
		return Config{}, fmt.Errorf("AMARVOICE_PREBUFFER_MS must be >= 0")
	}

	return cfg, nil
}

// InputFormat returns the capture-side PCM format.
func (c Config) InputFormat() voice.AudioConfig {
	return voice.AudioConfig{SampleRateHz: c.InputSampleRate, Channels: 1, BitsPerSample: 16}
}

// OutputFormat returns the playback-side PCM format.
func (c Config) OutputFormat() voice.AudioConfig {
	return voice.AudioConfig{SampleRateHz: c.OutputSampleRate, Channels: 1, BitsPerSample: 16}
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
