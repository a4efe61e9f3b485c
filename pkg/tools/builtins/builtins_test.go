package builtins

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	amarvoice "github.com/techdhakaai/amarvoice-ai/sdk"

	"github.com/techdhakaai/amarvoice-ai/pkg/store/orders"
	"github.com/techdhakaai/amarvoice-ai/pkg/translate"
)

type fakeControls struct {
	muted   bool
	muteErr error
}

func (f *fakeControls) Mute() error {
	if f.muteErr != nil {
		return f.muteErr
	}
	f.muted = true
	return nil
}

func (f *fakeControls) Unmute() error {
	if f.muteErr != nil {
		return f.muteErr
	}
	f.muted = false
	return nil
}

func (f *fakeControls) Muted() bool { return f.muted }

func newTestOrders(t *testing.T) *orders.Store {
	t.Helper()
	s, err := orders.Open(filepath.Join(t.TempDir(), "orders.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return s
}

func TestRegistry_ToolSetShape(t *testing.T) {
	reg := New(Config{
		Orders:     newTestOrders(t),
		Translator: translate.New(""),
		Controls:   &fakeControls{},
	})

	tools := reg.Tools()
	if len(tools) != 4 {
		t.Fatalf("len(Tools()) = %d, want 4", len(tools))
	}

	names := make(map[string]bool)
	for _, tool := range tools {
		names[tool.Name] = true
		if tool.InputSchema == nil {
			t.Errorf("tool %q has nil schema", tool.Name)
		}
		if tool.Handler == nil {
			t.Errorf("tool %q has nil handler", tool.Name)
		}
	}
	for _, want := range []string{"lookup_order", "translate_text", "set_microphone", "end_call"} {
		if !names[want] {
			t.Errorf("tool %q missing", want)
		}
	}
}

func TestRegistry_SkipsToolsWithoutDependencies(t *testing.T) {
	reg := New(Config{})

	tools := reg.Tools()
	if len(tools) != 1 {
		t.Fatalf("len(Tools()) = %d, want only end_call", len(tools))
	}
	if tools[0].Name != "end_call" {
		t.Errorf("tool = %q", tools[0].Name)
	}
}

func findTool(t *testing.T, reg *Registry, name string) amarvoice.ToolHandler {
	t.Helper()
	for _, tool := range reg.Tools() {
		if tool.Name == name {
			return tool.Handler
		}
	}
	t.Fatalf("tool %q not declared", name)
	return nil
}

func TestLookupOrder(t *testing.T) {
	reg := New(Config{Orders: newTestOrders(t)})
	handler := findTool(t, reg, "lookup_order")

	out, err := handler(context.Background(), []byte(`{"order_id":"bd-1009"}`))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	result, ok := out.(lookupOrderResult)
	if !ok {
		t.Fatalf("result type = %T", out)
	}
	if !result.Found || result.Order == nil {
		t.Fatalf("result = %+v, want found order", result)
	}
	if result.Order.ID != "BD-1009" {
		t.Errorf("Order.ID = %q", result.Order.ID)
	}
	if !strings.Contains(result.Summary, "Nusrat Jahan") {
		t.Errorf("Summary = %q", result.Summary)
	}
	if !strings.Contains(result.Summary, "in transit") {
		t.Errorf("Summary = %q, want spoken status", result.Summary)
	}
	if !strings.Contains(result.Summary, "2 days") {
		t.Errorf("Summary = %q, want ETA", result.Summary)
	}
	if !strings.Contains(result.Summary, "785.00 BDT") {
		t.Errorf("Summary = %q, want total", result.Summary)
	}
}

func TestLookupOrder_NotFound(t *testing.T) {
	reg := New(Config{Orders: newTestOrders(t)})
	handler := findTool(t, reg, "lookup_order")

	// An unknown id must come back as a structured result the model can
	// read out, not as a failed tool call.
	out, err := handler(context.Background(), []byte(`{"order_id":"BD-9999"}`))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	result, ok := out.(lookupOrderResult)
	if !ok {
		t.Fatalf("result type = %T", out)
	}
	if result.Found || result.Order != nil {
		t.Errorf("result = %+v, want not-found shape", result)
	}
	if !strings.Contains(result.Summary, "No order found with id BD-9999") {
		t.Errorf("Summary = %q", result.Summary)
	}
}

func TestTranslateText_Disabled(t *testing.T) {
	reg := New(Config{Translator: translate.New("")})
	handler := findTool(t, reg, "translate_text")

	_, err := handler(context.Background(),
		[]byte(`{"text":"hello","source_lang":"en","target_lang":"bn"}`))
	if !errors.Is(err, translate.ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}

func TestSetMicrophone(t *testing.T) {
	controls := &fakeControls{}
	reg := New(Config{Controls: controls})
	handler := findTool(t, reg, "set_microphone")

	out, err := handler(context.Background(), []byte(`{"muted":true}`))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result := out.(setMicrophoneResult); !result.Muted {
		t.Error("result.Muted = false after mute")
	}
	if !controls.muted {
		t.Error("controls not muted")
	}

	out, err = handler(context.Background(), []byte(`{"muted":false}`))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result := out.(setMicrophoneResult); result.Muted {
		t.Error("result.Muted = true after unmute")
	}
}

func TestSetMicrophone_PropagatesError(t *testing.T) {
	wantErr := errors.New("session closed")
	reg := New(Config{Controls: &fakeControls{muteErr: wantErr}})
	handler := findTool(t, reg, "set_microphone")

	_, err := handler(context.Background(), []byte(`{"muted":true}`))
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestEndCall(t *testing.T) {
	var gotReason string
	reg := New(Config{OnEndCall: func(reason string) { gotReason = reason }})
	handler := findTool(t, reg, "end_call")

	out, err := handler(context.Background(), []byte(`{"reason":"customer satisfied"}`))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result := out.(endCallResult); result.Status != "ending" {
		t.Errorf("Status = %q", result.Status)
	}
	if gotReason != "customer satisfied" {
		t.Errorf("reason = %q", gotReason)
	}
}

func TestEndCall_DefaultReason(t *testing.T) {
	var gotReason string
	reg := New(Config{OnEndCall: func(reason string) { gotReason = reason }})
	handler := findTool(t, reg, "end_call")

	if _, err := handler(context.Background(), []byte(`{}`)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if gotReason != "conversation complete" {
		t.Errorf("reason = %q", gotReason)
	}
}
