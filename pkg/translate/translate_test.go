package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/techdhakaai/amarvoice-ai/pkg/core"
)

func TestTranslate_DisabledWithoutKey(t *testing.T) {
	tr := New("")

	if tr.Enabled() {
		t.Error("Enabled() = true without API key")
	}

	_, err := tr.Translate(context.Background(), "hello", "en", "bn")
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}

func newChatCompletionTestServer(t *testing.T, content string, gotReq *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if gotReq != nil {
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
				*gotReq = body
			}
		}
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestTranslate_EnglishToBangla(t *testing.T) {
	var gotReq map[string]any
	server := newChatCompletionTestServer(t, "  আপনার অর্ডার পথে আছে।  ", &gotReq)
	defer server.Close()

	tr := New("sk-test", WithBaseURL(server.URL+"/v1"))
	if !tr.Enabled() {
		t.Fatal("Enabled() = false with API key")
	}

	out, err := tr.Translate(context.Background(), "Your order is on the way.", "en", "bn-BD")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out != "আপনার অর্ডার পথে আছে।" {
		t.Errorf("out = %q", out)
	}

	if gotReq["model"] != DefaultModel {
		t.Errorf("model = %v, want %v", gotReq["model"], DefaultModel)
	}
	messages, _ := gotReq["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("messages = %v, want system+user", gotReq["messages"])
	}
	system, _ := messages[0].(map[string]any)
	if !strings.Contains(system["content"].(string), "English") ||
		!strings.Contains(system["content"].(string), "Bangla") {
		t.Errorf("system prompt = %v", system["content"])
	}
	user, _ := messages[1].(map[string]any)
	if user["content"] != "Your order is on the way." {
		t.Errorf("user content = %v", user["content"])
	}
}

func TestTranslate_SameLanguageShortCircuits(t *testing.T) {
	// No server: identical source and target must not hit the API.
	tr := New("sk-test", WithBaseURL("http://127.0.0.1:9/v1"))

	out, err := tr.Translate(context.Background(), "hello there", "en", "en-US")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out != "hello there" {
		t.Errorf("out = %q", out)
	}
}

func TestTranslate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   core.ErrorType
	}{
		{"unauthorized maps to authentication", http.StatusUnauthorized, core.ErrAuthentication},
		{"server failure maps to provider", http.StatusInternalServerError, core.ErrProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"message": "upstream failed", "type": "api_error"},
				})
			}))
			defer server.Close()

			tr := New("sk-test", WithBaseURL(server.URL+"/v1"))
			_, err := tr.Translate(context.Background(), "hello", "en", "bn")

			var coreErr *core.Error
			if !errors.As(err, &coreErr) {
				t.Fatalf("err = %v (%T), want *core.Error", err, err)
			}
			if coreErr.Type != tt.want {
				t.Errorf("Type = %v, want %v", coreErr.Type, tt.want)
			}
		})
	}
}

func TestTranslate_TransportFailureIsProviderError(t *testing.T) {
	// Port 9 (discard) refuses connections; no HTTP status is involved.
	tr := New("sk-test", WithBaseURL("http://127.0.0.1:9/v1"))

	_, err := tr.Translate(context.Background(), "hello", "en", "bn")

	var coreErr *core.Error
	if !errors.As(err, &coreErr) {
		t.Fatalf("err = %v (%T), want *core.Error", err, err)
	}
	if coreErr.Type != core.ErrProvider {
		t.Errorf("Type = %v, want %v", coreErr.Type, core.ErrProvider)
	}
}

func TestTranslate_UnsupportedLanguage(t *testing.T) {
	tr := New("sk-test")

	_, err := tr.Translate(context.Background(), "hola", "es", "en")
	if err == nil {
		t.Fatal("expected unsupported language error")
	}
	if !strings.Contains(err.Error(), "unsupported language") {
		t.Errorf("err = %v", err)
	}
}

func TestTranslate_EmptyText(t *testing.T) {
	tr := New("sk-test")

	_, err := tr.Translate(context.Background(), "   ", "en", "bn")
	if err == nil {
		t.Fatal("expected empty text error")
	}
}

func TestLanguageName(t *testing.T) {
	tests := []struct {
		code string
		want string
		ok   bool
	}{
		{"bn", "Bangla", true},
		{"bn-BD", "Bangla", true},
		{"bn_IN", "Bangla", true},
		{"EN", "English", true},
		{"en-GB", "English", true},
		{"fr", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := languageName(tt.code)
			if tt.ok && err != nil {
				t.Fatalf("languageName(%q): %v", tt.code, err)
			}
			if !tt.ok && err == nil {
				t.Fatalf("languageName(%q) should fail", tt.code)
			}
			if got != tt.want {
				t.Errorf("languageName(%q) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}
