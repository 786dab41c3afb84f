package agent

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
variables:
  API_HOST: example.internal
servers:
  storage:
    transport: streamhttp
    url: http://${API_HOST}:8000/mcp
    headers:
      Authorization: Bearer ${API_TOKEN}
  local:
    transport: stdio
    command: ["go", "run", "./examples/stdio_server"]
    env:
      TOOLWIRE_DB: ${DB_PATH}
    disabled: true
`

type mapLoader map[string]string

func (m mapLoader) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleYAML))
	require.NoError(t, err)
	require.Len(t, cfg.Servers, 2)

	storage := cfg.Servers["storage"]
	assert.Equal(t, TransportStreamHTTP, storage.Transport)
	assert.False(t, storage.Disabled)

	local := cfg.Servers["local"]
	assert.Equal(t, TransportStdio, local.Transport)
	assert.True(t, local.Disabled)
}

func TestParseConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing transport", "servers:\n  s:\n    url: http://x\n"},
		{"unknown transport", "servers:\n  s:\n    transport: carrier-pigeon\n    url: http://x\n"},
		{"stdio without command", "servers:\n  s:\n    transport: stdio\n"},
		{"streamhttp without url", "servers:\n  s:\n    transport: streamhttp\n"},
		{"websocket without url", "servers:\n  s:\n    transport: websocket\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestVariableLookupChain(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleYAML))
	require.NoError(t, err)
	cfg.AddLoader(mapLoader{"API_TOKEN": "from-loader", "API_HOST": "loader-host"})
	t.Setenv("API_TOKEN", "from-env")
	t.Setenv("DB_PATH", "/tmp/demo.db")

	resolved, err := cfg.resolveServer(cfg.Servers["storage"])
	require.NoError(t, err)

	// Explicit variables beat loaders, loaders beat the environment.
	assert.Equal(t, "http://example.internal:8000/mcp", resolved.URL)
	assert.Equal(t, "Bearer from-loader", resolved.Headers["Authorization"])

	local, err := cfg.resolveServer(cfg.Servers["local"])
	require.NoError(t, err)
	assert.Equal(t, "/tmp/demo.db", local.Env["TOOLWIRE_DB"])
}

func TestUndefinedVariable(t *testing.T) {
	cfg, err := ParseConfig([]byte("servers:\n  s:\n    transport: streamhttp\n    url: http://${NOPE_UNDEFINED_VAR}/mcp\n"))
	require.NoError(t, err)

	_, err = cfg.resolveServer(cfg.Servers["s"])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOPE_UNDEFINED_VAR")
}

func TestDotEnvLoader(t *testing.T) {
	path := t.TempDir() + "/.env"
	require.NoError(t, os.WriteFile(path, []byte("API_TOKEN=dotenv-token\n"), 0o600))

	loader, err := NewDotEnvLoader(path)
	require.NoError(t, err)

	v, ok := loader.Get("API_TOKEN")
	require.True(t, ok)
	assert.Equal(t, "dotenv-token", v)

	_, ok = loader.Get("MISSING")
	assert.False(t, ok)

	_, err = NewDotEnvLoader(t.TempDir() + "/absent.env")
	assert.Error(t, err)
}

func TestSplitToolName(t *testing.T) {
	server, tool, ok := splitToolName("storage.get_object")
	require.True(t, ok)
	assert.Equal(t, "storage", server)
	assert.Equal(t, "get_object", tool)

	for _, bad := range []string{"noserver", ".tool", "server.", ""} {
		_, _, ok := splitToolName(bad)
		assert.False(t, ok, "%q must not split", bad)
	}
}
