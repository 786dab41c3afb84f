package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"

	"github.com/toolwire-protocol/go-toolwire/src/tools"
)

// ValidationError reports arguments that do not satisfy a tool's input
// schema. It is a protocol-level failure: the handler never ran.
type ValidationError struct {
	Tool    string
	Reasons []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("arguments for tool %q failed validation: %s", e.Tool, strings.Join(e.Reasons, "; "))
}

// Validate checks args against the schema. Required fields must be present
// and every supplied field must match its declared type. Fields without a
// declared schema are accepted unless additionalProperties is false.
func Validate(toolName string, s tools.InputSchema, args map[string]any) error {
	var reasons []string

	for _, req := range s.Required {
		if _, ok := args[req]; !ok {
			reasons = append(reasons, fmt.Sprintf("missing required parameter %q", req))
		}
	}

	// Deterministic order for error messages.
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop, declared := s.Properties[name]
		if !declared {
			if s.AdditionalProperties != nil && !*s.AdditionalProperties {
				reasons = append(reasons, fmt.Sprintf("unexpected parameter %q", name))
			}
			continue
		}
		propMap, ok := prop.(map[string]interface{})
		if !ok {
			continue
		}
		wantType, _ := propMap["type"].(string)
		if wantType == "" {
			continue
		}
		if reason := checkType(name, wantType, args[name]); reason != "" {
			reasons = append(reasons, reason)
		}
	}

	if len(reasons) > 0 {
		return &ValidationError{Tool: toolName, Reasons: reasons}
	}
	return nil
}

// checkType verifies one value against a JSON schema primitive type name.
// Numeric checks tolerate the usual JSON decode shapes (float64 for every
// number) via cast.
func checkType(name, wantType string, value any) string {
	if value == nil {
		return fmt.Sprintf("parameter %q is null, expected %s", name, wantType)
	}
	switch wantType {
	case "string":
		if _, ok := value.(string); !ok {
			return typeMismatch(name, wantType, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return typeMismatch(name, wantType, value)
		}
	case "number":
		if _, isStr := value.(string); isStr {
			return typeMismatch(name, wantType, value)
		}
		if _, err := cast.ToFloat64E(value); err != nil {
			return typeMismatch(name, wantType, value)
		}
	case "integer":
		if _, isStr := value.(string); isStr {
			return typeMismatch(name, wantType, value)
		}
		f, err := cast.ToFloat64E(value)
		if err != nil || f != float64(int64(f)) {
			return typeMismatch(name, wantType, value)
		}
	case "object":
		if _, ok := value.(map[string]interface{}); !ok {
			return typeMismatch(name, wantType, value)
		}
	case "array":
		if _, ok := value.([]interface{}); !ok {
			return typeMismatch(name, wantType, value)
		}
	}
	return ""
}

func typeMismatch(name, wantType string, value any) string {
	return fmt.Sprintf("parameter %q has type %T, expected %s", name, value, wantType)
}
