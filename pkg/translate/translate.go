// Package translate wraps an OpenAI chat model as a text translation
// engine for the translate_text tool. When no API key is configured the
// translator stays disabled and every call reports ErrDisabled.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/techdhakaai/amarvoice-ai/pkg/core"
)

// DefaultModel is the chat model used for translations.
const DefaultModel = openai.GPT4oMini

// ErrDisabled is returned when the translator has no API key.
var ErrDisabled = errors.New("translation is disabled: no OpenAI API key configured")

// languageNames maps supported language codes to the names used in the
// translation prompt. Region subtags ("bn-BD", "en-US") are accepted and
// reduced to their base language.
var languageNames = map[string]string{
	"bn": "Bangla",
	"en": "English",
}

// Translator translates short conversational text between Bangla and
// English using a chat completion model.
type Translator struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// Option customizes a Translator.
type Option func(*options)

type options struct {
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// WithModel overrides the chat model.
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

// WithBaseURL points the client at a different API endpoint, used for
// gateways and tests.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates a Translator. An empty apiKey yields a disabled translator
// rather than an error so callers can wire it unconditionally.
func New(apiKey string, opts ...Option) *Translator {
	o := options{
		model:  DefaultModel,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	t := &Translator{model: o.model, logger: o.logger}
	if strings.TrimSpace(apiKey) == "" {
		return t
	}

	config := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		config.BaseURL = o.baseURL
	}
	if o.httpClient != nil {
		config.HTTPClient = o.httpClient
	}
	t.client = openai.NewClientWithConfig(config)
	return t
}

// Enabled reports whether the translator can serve requests.
func (t *Translator) Enabled() bool {
	return t.client != nil
}

// Translate renders text from sourceLang into targetLang. Language codes
// are "bn" or "en", optionally with a region subtag.
func (t *Translator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if t.client == nil {
		return "", ErrDisabled
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("text must not be empty")
	}

	source, err := languageName(sourceLang)
	if err != nil {
		return "", err
	}
	target, err := languageName(targetLang)
	if err != nil {
		return "", err
	}
	if source == target {
		return text, nil
	}

	system := fmt.Sprintf(
		"You are a translation engine. Translate the user's text from %s to %s. Reply with only the translated text.",
		source, target)

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0.2,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusUnauthorized {
			return "", core.NewAuthenticationError(fmt.Sprintf("openai rejected the API key: %v", apiErr.Message))
		}
		return "", core.NewProviderError("openai", err)
	}
	if len(resp.Choices) == 0 {
		return "", core.NewProviderError("openai", errors.New("translation response had no choices"))
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	t.logger.Debug("translated text", "source", sourceLang, "target", targetLang,
		"in_chars", len(text), "out_chars", len(out))
	return out, nil
}

func languageName(code string) (string, error) {
	base := strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(base, "-_"); i > 0 {
		base = base[:i]
	}
	name, ok := languageNames[base]
	if !ok {
		return "", fmt.Errorf("unsupported language %q", code)
	}
	return name, nil
}
