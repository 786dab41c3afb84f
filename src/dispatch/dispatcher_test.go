package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolwire-protocol/go-toolwire/src/registry"
	"github.com/toolwire-protocol/go-toolwire/src/schema"
	"github.com/toolwire-protocol/go-toolwire/src/tools"
)

func demoRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	reg.MustRegister(tools.Tool{
		Name:        "ping",
		Description: "Always succeeds.",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return "pong", nil
		},
	})
	reg.MustRegister(tools.Tool{
		Name:        "echo",
		Description: "Repeats its message.",
		Inputs: tools.InputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"message": map[string]interface{}{"type": "string"},
			},
			Required: []string{"message"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return args["message"].(string), nil
		},
	})
	reg.MustRegister(tools.Tool{
		Name:        "boom",
		Description: "Fails in the domain.",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return "", fmt.Errorf("backend unavailable")
		},
	})
	reg.MustRegister(tools.Tool{
		Name:        "panic",
		Description: "Panics.",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			panic("handler bug")
		},
	})
	return reg
}

func TestExecuteSuccess(t *testing.T) {
	d := New(demoRegistry(t), nil)

	res, err := d.Execute(context.Background(), tools.Call{
		Name:      "echo",
		Arguments: map[string]any{"message": "hello"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "hello", res.Text())
}

func TestExecuteNilArguments(t *testing.T) {
	d := New(demoRegistry(t), nil)

	res, err := d.Execute(context.Background(), tools.Call{Name: "ping"})
	require.NoError(t, err)
	assert.Equal(t, "pong", res.Text())
}

func TestExecuteUnknownTool(t *testing.T) {
	d := New(demoRegistry(t), nil)

	res, err := d.Execute(context.Background(), tools.Call{Name: "missing"})
	assert.Nil(t, res)
	var unknown *registry.UnknownToolError
	require.True(t, errors.As(err, &unknown))
}

func TestExecuteInvalidArguments(t *testing.T) {
	d := New(demoRegistry(t), nil)

	res, err := d.Execute(context.Background(), tools.Call{Name: "echo"})
	assert.Nil(t, res)
	var verr *schema.ValidationError
	require.True(t, errors.As(err, &verr), "want ValidationError, got %v", err)
}

func TestExecuteDomainFailureBecomesResult(t *testing.T) {
	d := New(demoRegistry(t), nil)

	res, err := d.Execute(context.Background(), tools.Call{Name: "boom"})
	require.NoError(t, err, "a domain failure must not surface as a dispatch error")
	assert.True(t, res.IsError)
	assert.Contains(t, res.Text(), "backend unavailable")
}

func TestExecuteCapturesPanic(t *testing.T) {
	d := New(demoRegistry(t), nil)

	res, err := d.Execute(context.Background(), tools.Call{Name: "panic"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Text(), "handler bug")
}

func TestExecuteRejectionLeavesDispatcherUsable(t *testing.T) {
	d := New(demoRegistry(t), nil)
	ctx := context.Background()

	_, err := d.Execute(ctx, tools.Call{Name: "missing"})
	require.Error(t, err)

	res, err := d.Execute(ctx, tools.Call{Name: "ping"})
	require.NoError(t, err)
	assert.Equal(t, "pong", res.Text())
}
