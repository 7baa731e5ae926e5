package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// FieldError reports a single field that failed StructuredType.Validate.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// Validate checks data against s: required fields must be present (or
// resolvable from a default), and returns a normalized copy of data with
// defaults filled in for every absent optional field.
//
// Validate does not itself enforce JSON-schema-level shape constraints for
// TypeJSON/TypeStructured fields beyond presence; callers that need full
// JSON-schema validation (tool arguments, structured output) should use
// CompileToolSchema/ValidateAgainst.
func (s StructuredType) Validate(data map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		v, present := data[f.Name]
		if !present || v == nil {
			switch {
			case present && v == nil && f.Nullable:
				out[f.Name] = nil
			case f.HasDefault:
				out[f.Name] = f.Default
			case f.Required:
				return nil, &FieldError{Field: f.Name, Reason: "required field missing and no default is declared"}
			default:
				// optional, no default: simply absent from the normalized map
			}
			continue
		}
		out[f.Name] = v
	}
	// Pass through any fields not declared by the schema (components may
	// declare extra=allow semantics, mirroring the Python model_config).
	for k, v := range data {
		if _, declared := s.Get(k); !declared {
			out[k] = v
		}
	}
	return out, nil
}

var schemaResourceSeq int64

// CompileToolSchema compiles a JSON-schema object (as produced by
// ToolDescription.Parameters) into a reusable validator.
func CompileToolSchema(properties map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(properties)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	id := fmt.Sprintf("mem://schema/%d", atomic.AddInt64(&schemaResourceSeq, 1))
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(id, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile(id)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return sch, nil
}

// ValidateAgainst validates instance (a decoded JSON value: map, slice,
// string, number, bool, or nil) against a compiled tool/output schema.
func ValidateAgainst(sch *jsonschema.Schema, instance any) error {
	return sch.Validate(instance)
}
