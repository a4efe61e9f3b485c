package amarvoice

import (
	"context"
	"encoding/json"
	"reflect"
)

// ToolHandler executes one tool call. It receives the raw JSON
// arguments from the service and returns a JSON-marshalable result.
type ToolHandler func(ctx context.Context, input json.RawMessage) (any, error)

// Tool is a client-side tool definition declared to the service in the
// hello frame.
type Tool struct {
	Name        string
	Description string
	InputSchema *JSONSchema
}

// ToolWithHandler wraps a Tool with its handler function. Pass these to
// WithTools() on connect for automatic registration and dispatch.
type ToolWithHandler struct {
	Tool
	Handler ToolHandler
}

// MakeTool creates a ToolWithHandler from a typed function. The input
// schema is generated from T's struct tags.
//
// Example:
//
//	tool := amarvoice.MakeTool("lookup_order", "Look up an order by id",
//	    func(ctx context.Context, input struct {
//	        OrderID string `json:"order_id" desc:"Order number, e.g. BD-1042"`
//	    }) (string, error) {
//	        return store.StatusLine(ctx, input.OrderID)
//	    },
//	)
func MakeTool[T any, R any](name, description string, fn func(context.Context, T) (R, error)) ToolWithHandler {
	var zero T
	schema := GenerateJSONSchema(reflect.TypeOf(zero))

	handler := func(ctx context.Context, rawInput json.RawMessage) (any, error) {
		var input T
		if err := json.Unmarshal(rawInput, &input); err != nil {
			return nil, err
		}
		return fn(ctx, input)
	}

	return ToolWithHandler{
		Tool: Tool{
			Name:        name,
			Description: description,
			InputSchema: schema,
		},
		Handler: handler,
	}
}

// ToolSet is a collection of tools with their handlers.
type ToolSet struct {
	tools    []Tool
	handlers map[string]ToolHandler
}

// NewToolSet creates a new empty tool set.
func NewToolSet() *ToolSet {
	return &ToolSet{
		tools:    []Tool{},
		handlers: make(map[string]ToolHandler),
	}
}

// Add adds a tool with its handler to the set.
func (ts *ToolSet) Add(tool Tool, handler ToolHandler) *ToolSet {
	ts.tools = append(ts.tools, tool)
	if handler != nil && tool.Name != "" {
		ts.handlers[tool.Name] = handler
	}
	return ts
}

// AddTool adds a ToolWithHandler to the set.
func (ts *ToolSet) AddTool(tool ToolWithHandler) *ToolSet {
	return ts.Add(tool.Tool, tool.Handler)
}

// Tools returns all tool definitions.
func (ts *ToolSet) Tools() []Tool {
	return ts.tools
}

// Handlers returns all tool handlers.
func (ts *ToolSet) Handlers() map[string]ToolHandler {
	return ts.handlers
}

// Handler returns the handler for a specific tool.
func (ts *ToolSet) Handler(name string) (ToolHandler, bool) {
	h, ok := ts.handlers[name]
	return h, ok
}
