package agent

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Transport kinds accepted in server configuration.
const (
	TransportStdio      = "stdio"
	TransportStreamHTTP = "streamhttp"
	TransportWebSocket  = "websocket"
)

// ServerConfig describes one tool server the agent should attach to.
type ServerConfig struct {
	// Transport selects the binding: stdio, streamhttp or websocket.
	Transport string `yaml:"transport"`

	// URL is the endpoint for network transports.
	URL string `yaml:"url,omitempty"`

	// Command is the subprocess command line for the stdio transport.
	Command []string `yaml:"command,omitempty"`

	// Env holds extra environment variables passed to a stdio subprocess.
	Env map[string]string `yaml:"env,omitempty"`

	// Headers are sent with every streamhttp request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Disabled skips this server without removing its entry.
	Disabled bool `yaml:"disabled,omitempty"`
}

// Config is the agent configuration document. String fields in server
// entries may reference variables as ${NAME}; values resolve from the
// explicit Variables map first, then from the loaders, then from the
// process environment.
type Config struct {
	Variables map[string]string       `yaml:"variables,omitempty"`
	Servers   map[string]ServerConfig `yaml:"servers"`

	loaders []VariableLoader
}

// VariableLoader supplies values for ${NAME} references from an external
// source.
type VariableLoader interface {
	Get(key string) (string, bool)
}

// DotEnvLoader reads variables from a dotenv file once, at construction.
type DotEnvLoader struct {
	values map[string]string
}

// NewDotEnvLoader parses the dotenv file at path.
func NewDotEnvLoader(path string) (*DotEnvLoader, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("load dotenv %s: %w", path, err)
	}
	return &DotEnvLoader{values: values}, nil
}

func (l *DotEnvLoader) Get(key string) (string, bool) {
	v, ok := l.values[key]
	return v, ok
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration bytes.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	for name, sc := range cfg.Servers {
		if err := sc.validate(); err != nil {
			return nil, fmt.Errorf("server %q: %w", name, err)
		}
	}
	return &cfg, nil
}

func (sc ServerConfig) validate() error {
	switch sc.Transport {
	case TransportStdio:
		if len(sc.Command) == 0 {
			return fmt.Errorf("stdio transport needs a command")
		}
	case TransportStreamHTTP, TransportWebSocket:
		if sc.URL == "" {
			return fmt.Errorf("%s transport needs a url", sc.Transport)
		}
	case "":
		return fmt.Errorf("transport is required")
	default:
		return fmt.Errorf("unknown transport %q", sc.Transport)
	}
	return nil
}

// AddLoader appends a variable source consulted after the explicit
// Variables map and before the process environment.
func (c *Config) AddLoader(l VariableLoader) {
	if l != nil {
		c.loaders = append(c.loaders, l)
	}
}

var variableRef = regexp.MustCompile(`\$\{(\w+)\}`)

// getVariable resolves one variable name through the lookup chain.
func (c *Config) getVariable(key string) (string, error) {
	if v, ok := c.Variables[key]; ok {
		return v, nil
	}
	for _, l := range c.loaders {
		if v, ok := l.Get(key); ok {
			return v, nil
		}
	}
	if v, ok := os.LookupEnv(key); ok {
		return v, nil
	}
	return "", fmt.Errorf("variable %q is not defined", key)
}

// substitute replaces every ${NAME} reference in s.
func (c *Config) substitute(s string) (string, error) {
	var firstErr error
	out := variableRef.ReplaceAllStringFunc(s, func(ref string) string {
		key := variableRef.FindStringSubmatch(ref)[1]
		v, err := c.getVariable(key)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return v
	})
	return out, firstErr
}

// resolveServer returns a copy of the server entry with all variable
// references substituted.
func (c *Config) resolveServer(sc ServerConfig) (ServerConfig, error) {
	var err error
	if sc.URL, err = c.substitute(sc.URL); err != nil {
		return sc, err
	}
	if sc.Command, err = c.substituteSlice(sc.Command); err != nil {
		return sc, err
	}
	if sc.Env, err = c.substituteMap(sc.Env); err != nil {
		return sc, err
	}
	if sc.Headers, err = c.substituteMap(sc.Headers); err != nil {
		return sc, err
	}
	return sc, nil
}

func (c *Config) substituteSlice(in []string) ([]string, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		v, err := c.substitute(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (c *Config) substituteMap(in map[string]string) (map[string]string, error) {
	if in == nil {
		return nil, nil
	}
	out := make(map[string]string, len(in))
	for k, s := range in {
		v, err := c.substitute(s)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// splitToolName separates a namespaced tool name into server and tool
// parts.
func splitToolName(name string) (server, tool string, ok bool) {
	server, tool, found := strings.Cut(name, ".")
	if !found || server == "" || tool == "" {
		return "", "", false
	}
	return server, tool, true
}
