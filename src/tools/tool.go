package tools

import (
	"context"
	"strings"
)

// InputSchema is the JSON-schema-shaped description of a tool's parameters.
type InputSchema struct {
	Type                 string                 `json:"type"`
	Properties           map[string]interface{} `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Title                string                 `json:"title,omitempty"`
	Items                map[string]interface{} `json:"items,omitempty"`
	Enum                 []interface{}          `json:"enum,omitempty"`
	AdditionalProperties *bool                  `json:"additionalProperties,omitempty"`
}

// ObjectSchema returns an empty open object schema, the default for tools
// that take no arguments.
func ObjectSchema() InputSchema {
	return InputSchema{Type: "object", Properties: map[string]interface{}{}}
}

// Handler performs a tool's work against whatever backend it wraps.
// The returned string is the textual payload of a successful call; a non-nil
// error is a domain failure and is reported to the caller as an error result,
// never as a protocol fault.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Tool holds the identity and contract of one invocable operation.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Inputs      InputSchema `json:"inputSchema"`
	Handler     Handler     `json:"-"`
}

// ShortDescription returns the first line of the description, the form used
// by listings.
func (t Tool) ShortDescription() string {
	if i := strings.IndexByte(t.Description, '\n'); i >= 0 {
		return strings.TrimSpace(t.Description[:i])
	}
	return t.Description
}

// Call is one invocation request, consumed exactly once by a dispatcher.
type Call struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}
