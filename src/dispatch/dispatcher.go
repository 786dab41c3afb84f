package dispatch

import (
	"context"
	"fmt"

	"github.com/toolwire-protocol/go-toolwire/src/registry"
	"github.com/toolwire-protocol/go-toolwire/src/schema"
	"github.com/toolwire-protocol/go-toolwire/src/tools"
)

// Dispatcher resolves tool calls against a registry and executes them.
// It is stateless between calls and safe for concurrent use.
type Dispatcher struct {
	registry *registry.Registry
	logger   func(format string, args ...interface{})
}

// New constructs a dispatcher over the given registry. The logger may be nil.
func New(reg *registry.Registry, logger func(format string, args ...interface{})) *Dispatcher {
	if logger == nil {
		logger = func(string, ...interface{}) {}
	}
	return &Dispatcher{registry: reg, logger: logger}
}

// Execute runs one tool call. An unknown tool name or schema-invalid
// arguments come back as an error before any handler runs
// (registry.UnknownToolError, schema.ValidationError). A failure inside the
// handler, including a panic, is captured as Result{IsError: true} so that
// backend conditions stay visible to the caller as data.
func (d *Dispatcher) Execute(ctx context.Context, call tools.Call) (*tools.Result, error) {
	tool, err := d.registry.Lookup(call.Name)
	if err != nil {
		return nil, err
	}

	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}
	if err := schema.Validate(call.Name, tool.Inputs, args); err != nil {
		return nil, err
	}

	text, err := d.run(ctx, tool, args)
	if err != nil {
		d.logger("tool %q failed: %v", call.Name, err)
		return tools.ErrorResult(err.Error()), nil
	}
	return tools.TextResult(text), nil
}

// run invokes the handler with panic capture. A panicking handler must not
// take the server process down with it.
func (d *Dispatcher) run(ctx context.Context, tool tools.Tool, args map[string]any) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %q panicked: %v", tool.Name, r)
		}
	}()
	return tool.Handler(ctx, args)
}
