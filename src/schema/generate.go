package schema

import (
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/toolwire-protocol/go-toolwire/src/json"
	"github.com/toolwire-protocol/go-toolwire/src/tools"
)

// For derives a tool input schema from a Go argument struct using its json
// and jsonschema struct tags.
//
//	type getObjectArgs struct {
//	    Bucket string `json:"bucket" jsonschema:"required,description=Bucket name"`
//	    Key    string `json:"key" jsonschema:"required,description=Object key"`
//	}
func For[T any]() (tools.InputSchema, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	reflected := reflector.Reflect(new(T))

	raw, err := json.Marshal(reflected)
	if err != nil {
		return tools.InputSchema{}, fmt.Errorf("failed to marshal reflected schema: %w", err)
	}
	var out tools.InputSchema
	if err := json.Unmarshal(raw, &out); err != nil {
		return tools.InputSchema{}, fmt.Errorf("failed to decode reflected schema: %w", err)
	}
	if out.Type == "" {
		out.Type = "object"
	}
	return out, nil
}

// MustFor is For but panics on reflection failure. Schemas are built at
// registration time from static types, so a failure is a programming error.
func MustFor[T any]() tools.InputSchema {
	s, err := For[T]()
	if err != nil {
		panic(err)
	}
	return s
}
