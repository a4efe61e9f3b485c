// Package amarvoice provides the AmarVoice client SDK for Go.
//
// The SDK covers live voice sessions against the hosted conversational
// service: streaming microphone audio up, playing synthesized speech
// back, rendering transcripts, and executing client-side tools the
// model invokes mid-conversation.
package amarvoice

import (
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/techdhakaai/amarvoice-ai/pkg/core"
)

const (
	// Version is the SDK release version reported in the hello frame.
	Version = "0.4.1"

	defaultBaseURL = "https://api.amarvoice.ai"

	amarVersionHeader = "X-AmarVoice-Version"
	amarVersionValue  = "1"

	defaultWSDialTimeout = 15 * time.Second
)

// Client is the main entry point for the SDK.
type Client struct {
	Live *LiveService

	// Internal
	apiKey        string
	baseURL       string
	httpClient    *http.Client
	wsDialTimeout time.Duration
	logger        *slog.Logger
	tracer        trace.Tracer
}

// NewClient creates a new client. The API key defaults to the
// AMARVOICE_API_KEY environment variable when not set explicitly.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       defaultBaseURL,
		httpClient:    http.DefaultClient,
		wsDialTimeout: defaultWSDialTimeout,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.apiKey == "" {
		c.apiKey = os.Getenv("AMARVOICE_API_KEY")
	}

	c.Live = &LiveService{client: c}
	return c
}

// BaseURL returns the configured service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) websocketEndpoint(path string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(c.baseURL), "/")
	if base == "" {
		return "", core.NewInvalidRequestError("base URL must not be empty")
	}
	u, err := url.Parse(base + path)
	if err != nil {
		return "", core.NewInvalidRequestError("invalid base URL")
	}
	switch strings.ToLower(strings.TrimSpace(u.Scheme)) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// already websocket scheme.
	default:
		return "", core.NewInvalidRequestError("base URL must use http(s) or ws(s)")
	}
	return u.String(), nil
}

func (c *Client) dialHeaders() http.Header {
	headers := make(http.Header)
	headers.Set(amarVersionHeader, amarVersionValue)
	if c.apiKey != "" {
		headers.Set("Authorization", "Bearer "+c.apiKey)
	}
	return headers
}
