// Package builtins defines the client-side tools the demo declares to
// the model: order lookup against the local database, text translation,
// microphone control, and call termination.
package builtins

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	amarvoice "github.com/techdhakaai/amarvoice-ai/sdk"

	"github.com/techdhakaai/amarvoice-ai/pkg/store/orders"
	"github.com/techdhakaai/amarvoice-ai/pkg/translate"
)

// SessionControls is the slice of live-session behavior the control
// tools need. *amarvoice.LiveSession satisfies it.
type SessionControls interface {
	Mute() error
	Unmute() error
	Muted() bool
}

// Config wires the registry's dependencies.
type Config struct {
	Orders     *orders.Store
	Translator *translate.Translator
	Controls   SessionControls

	// OnEndCall runs after the end_call tool returns its result. It should
	// schedule a graceful shutdown rather than tear the session down
	// inline, so the result frame still reaches the service.
	OnEndCall func(reason string)

	Logger *slog.Logger
}

// Registry holds the demo's tool set.
type Registry struct {
	cfg Config
}

// New creates a tool registry. Nil dependencies disable the tools that
// need them: a registry without an order store simply does not declare
// lookup_order.
func New(cfg Config) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Registry{cfg: cfg}
}

// Tools returns the declared tools in a stable order for the hello frame.
func (r *Registry) Tools() []amarvoice.ToolWithHandler {
	var tools []amarvoice.ToolWithHandler
	if r.cfg.Orders != nil {
		tools = append(tools, r.lookupOrderTool())
	}
	if r.cfg.Translator != nil {
		tools = append(tools, r.translateTextTool())
	}
	if r.cfg.Controls != nil {
		tools = append(tools, r.setMicrophoneTool())
	}
	tools = append(tools, r.endCallTool())
	return tools
}

type lookupOrderInput struct {
	OrderID string `json:"order_id" desc:"Order id the customer gave, e.g. BD-1042"`
}

type lookupOrderResult struct {
	Found   bool          `json:"found"`
	Order   *orders.Order `json:"order,omitempty"`
	Summary string        `json:"summary"`
}

func (r *Registry) lookupOrderTool() amarvoice.ToolWithHandler {
	return amarvoice.MakeTool(
		"lookup_order",
		"Look up a customer order by its id and report status, ETA, and total.",
		func(ctx context.Context, in lookupOrderInput) (lookupOrderResult, error) {
			order, err := r.cfg.Orders.Get(ctx, in.OrderID)
			if errors.Is(err, orders.ErrNotFound) {
				// An unknown id is an answer for the model to relay, not a
				// failed tool call.
				return lookupOrderResult{
					Summary: fmt.Sprintf("No order found with id %s.", strings.TrimSpace(in.OrderID)),
				}, nil
			}
			if err != nil {
				r.cfg.Logger.Error("order lookup failed", "order_id", in.OrderID, "error", err)
				return lookupOrderResult{}, errors.New("order database is unavailable")
			}
			return lookupOrderResult{Found: true, Order: &order, Summary: summarizeOrder(order)}, nil
		},
	)
}

func summarizeOrder(o orders.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s for %s is %s", o.ID, o.CustomerName, strings.ReplaceAll(o.Status, "_", " "))
	switch {
	case o.Status == orders.StatusDelivered:
		b.WriteString(".")
	case o.ETADays == 1:
		b.WriteString(", arriving in 1 day.")
	case o.ETADays > 1:
		fmt.Fprintf(&b, ", arriving in %d days.", o.ETADays)
	default:
		b.WriteString(".")
	}
	fmt.Fprintf(&b, " Total %d.%02d BDT.", o.TotalCents/100, o.TotalCents%100)
	return b.String()
}

type translateTextInput struct {
	Text       string `json:"text" desc:"Text to translate"`
	SourceLang string `json:"source_lang" desc:"Language the text is in" enum:"bn,en"`
	TargetLang string `json:"target_lang" desc:"Language to translate into" enum:"bn,en"`
}

type translateTextResult struct {
	TranslatedText string `json:"translated_text"`
	TargetLang     string `json:"target_lang"`
}

func (r *Registry) translateTextTool() amarvoice.ToolWithHandler {
	return amarvoice.MakeTool(
		"translate_text",
		"Translate text between Bangla and English for the customer.",
		func(ctx context.Context, in translateTextInput) (translateTextResult, error) {
			out, err := r.cfg.Translator.Translate(ctx, in.Text, in.SourceLang, in.TargetLang)
			if err != nil {
				return translateTextResult{}, err
			}
			return translateTextResult{TranslatedText: out, TargetLang: in.TargetLang}, nil
		},
	)
}

type setMicrophoneInput struct {
	Muted bool `json:"muted" desc:"True to mute the customer's microphone, false to unmute"`
}

type setMicrophoneResult struct {
	Muted bool `json:"muted"`
}

func (r *Registry) setMicrophoneTool() amarvoice.ToolWithHandler {
	return amarvoice.MakeTool(
		"set_microphone",
		"Mute or unmute the customer's microphone, for example while they fetch paperwork.",
		func(ctx context.Context, in setMicrophoneInput) (setMicrophoneResult, error) {
			var err error
			if in.Muted {
				err = r.cfg.Controls.Mute()
			} else {
				err = r.cfg.Controls.Unmute()
			}
			if err != nil {
				return setMicrophoneResult{}, err
			}
			return setMicrophoneResult{Muted: r.cfg.Controls.Muted()}, nil
		},
	)
}

type endCallInput struct {
	Reason string `json:"reason,omitempty" desc:"Why the call is ending"`
}

type endCallResult struct {
	Status string `json:"status"`
}

func (r *Registry) endCallTool() amarvoice.ToolWithHandler {
	return amarvoice.MakeTool(
		"end_call",
		"End the call once the customer's request is resolved and goodbyes are done.",
		func(ctx context.Context, in endCallInput) (endCallResult, error) {
			reason := strings.TrimSpace(in.Reason)
			if reason == "" {
				reason = "conversation complete"
			}
			r.cfg.Logger.Info("call end requested", "reason", reason)
			if r.cfg.OnEndCall != nil {
				r.cfg.OnEndCall(reason)
			}
			return endCallResult{Status: "ending"}, nil
		},
	)
}
