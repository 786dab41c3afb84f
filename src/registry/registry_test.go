package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolwire-protocol/go-toolwire/src/tools"
)

func nopHandler(ctx context.Context, args map[string]any) (string, error) {
	return "", nil
}

func TestRegisterPreservesOrder(t *testing.T) {
	r := New()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(tools.Tool{Name: name, Handler: nopHandler}))
	}

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, r.Names())

	// Every listing restarts the same sequence.
	first := r.Tools()
	second := r.Tools()
	require.Len(t, first, 3)
	for i := range first {
		assert.Equal(t, first[i].Name, second[i].Name)
	}
}

func TestRegisterDuplicateRejected(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(tools.Tool{Name: "echo", Handler: nopHandler}))

	err := r.Register(tools.Tool{Name: "echo", Handler: nopHandler})
	var dup *DuplicateToolError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "echo", dup.Name)

	// The original registration is untouched.
	assert.Equal(t, 1, r.Len())
}

func TestRegisterRequiresNameAndHandler(t *testing.T) {
	r := New()
	assert.Error(t, r.Register(tools.Tool{Handler: nopHandler}))
	assert.Error(t, r.Register(tools.Tool{Name: "no-handler"}))
}

func TestRegisterDefaultsSchema(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(tools.Tool{Name: "bare", Handler: nopHandler}))

	got, err := r.Lookup("bare")
	require.NoError(t, err)
	assert.Equal(t, "object", got.Inputs.Type)
}

func TestLookupUnknown(t *testing.T) {
	r := New()
	_, err := r.Lookup("ghost")
	var unknown *UnknownToolError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "ghost", unknown.Name)
}

func TestToolsSnapshotIsIndependent(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(tools.Tool{Name: "a", Handler: nopHandler}))

	snap := r.Tools()
	snap[0].Name = "mutated"

	got, err := r.Lookup("a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name)
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	r := New()
	r.MustRegister(tools.Tool{Name: "once", Handler: nopHandler})
	assert.Panics(t, func() {
		r.MustRegister(tools.Tool{Name: "once", Handler: nopHandler})
	})
}
