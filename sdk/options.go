package amarvoice

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the AmarVoice API key.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithBaseURL sets the service base URL. Accepts http(s) or ws(s)
// schemes; http(s) is rewritten to the websocket scheme on dial.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client for the websocket dial.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithWSDialTimeout bounds the websocket dial plus handshake when the
// caller's context has no deadline of its own.
func WithWSDialTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.wsDialTimeout = d
	}
}

// WithLogger sets the logger for the client.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithTracer sets the OpenTelemetry tracer for the client.
func WithTracer(t trace.Tracer) ClientOption {
	return func(c *Client) {
		c.tracer = t
	}
}
