// Package coercion implements the type coercion matrix (spec.md §4.1): the
// table of accepted conversions between declared port types, used both at
// graph-build time (check-only, §4.3 step 5) and at run time by the
// scheduler's per-edge propagation (§4.4 step 3).
package coercion

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/draftnrun/agentgraph/nodedata"
	"github.com/draftnrun/agentgraph/schema"
)

// Error wraps a failed coercion with both types, the offending value, and a
// human-readable reason, as required by spec.md §4.1/§7.
type Error struct {
	SourceType schema.PortType
	TargetType schema.PortType
	Value      any
	Reason     string
	// Component, when set, names the component the coercion failed for
	// (populated by the component wrapper, not by the matrix itself).
	Component string
}

func (e *Error) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("cannot coerce %s -> %s for component %q: %s", e.SourceType, e.TargetType, e.Component, e.Reason)
	}
	return fmt.Sprintf("cannot coerce %s -> %s: %s", e.SourceType, e.TargetType, e.Reason)
}

func fail(src, tgt schema.PortType, value any, reason string) (any, error) {
	return nil, &Error{SourceType: src, TargetType: tgt, Value: value, Reason: reason}
}

// Accepts reports whether the matrix has a rule for source -> target at
// all, independent of any particular value. Used by the port-mapping
// resolver's build-time check (spec.md §4.3 step 5): a mapping whose types
// have no accepted rule is rejected before any node ever runs.
func Accepts(source, target schema.PortType) bool {
	if source == target {
		return true
	}
	switch {
	case source == schema.TypeAny || target == schema.TypeAny:
		return true
	case source == schema.TypeMessages && target == schema.TypeString:
		return true
	case source == schema.TypeString && target == schema.TypeMessages:
		return true
	case source == schema.TypeStructured && target == schema.TypeMapping:
		return true
	case source == schema.TypeMapping && target == schema.TypeStructured:
		return true
	case source == schema.TypeJSON && (target == schema.TypeMapping || target == schema.TypeStructured):
		return true
	case source == schema.TypeInt && target == schema.TypeFloat:
		return true
	case (source == schema.TypeInt || source == schema.TypeFloat || source == schema.TypeString) && target == schema.TypeString:
		return true
	case source == schema.TypeString && target == schema.TypeBool:
		return true
	default:
		return false
	}
}

// truthyLiterals is the literal set spec.md §4.1 mandates for string ->
// bool coercion.
var truthyLiterals = map[string]bool{
	"true": true, "1": true, "yes": true, "y": true, "on": true,
}

// Coerce converts value from source to target per the accepted matrix,
// returning an *Error (wrapped as error) when no rule applies or the value
// does not actually satisfy the rule (e.g. malformed JSON).
func Coerce(source, target schema.PortType, value any) (any, error) {
	if source == target {
		return value, nil
	}
	if source == schema.TypeAny || target == schema.TypeAny {
		return value, nil
	}

	switch {
	case source == schema.TypeMessages && target == schema.TypeString:
		return messagesToString(value)
	case source == schema.TypeString && target == schema.TypeMessages:
		s, ok := value.(string)
		if !ok {
			return fail(source, target, value, "expected a string value")
		}
		return []nodedata.ChatMessage{{Role: nodedata.RoleUser, Content: s}}, nil
	case source == schema.TypeStructured && target == schema.TypeMapping:
		return structuredToMapping(value)
	case source == schema.TypeMapping && target == schema.TypeStructured:
		m, ok := value.(map[string]any)
		if !ok {
			return fail(source, target, value, "expected a mapping value")
		}
		return m, nil
	case source == schema.TypeJSON && (target == schema.TypeMapping || target == schema.TypeStructured):
		return jsonStringToMapping(value)
	case source == schema.TypeInt && target == schema.TypeFloat:
		return intToFloat(value)
	case (source == schema.TypeInt || source == schema.TypeFloat || source == schema.TypeString) && target == schema.TypeString:
		return scalarToString(value)
	case source == schema.TypeString && target == schema.TypeBool:
		s, ok := value.(string)
		if !ok {
			return fail(source, target, value, "expected a string value")
		}
		return truthyLiterals[strings.ToLower(strings.TrimSpace(s))], nil
	default:
		return fail(source, target, value, "no accepted coercion rule for this type pair")
	}
}

func messagesToString(value any) (any, error) {
	msgs, ok := value.([]nodedata.ChatMessage)
	if !ok {
		return fail(schema.TypeMessages, schema.TypeString, value, "expected an ordered sequence of ChatMessage")
	}
	if len(msgs) == 0 {
		return "", nil
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == nodedata.RoleUser {
			return msgs[i].ToString(), nil
		}
	}
	return msgs[len(msgs)-1].ToString(), nil
}

func structuredToMapping(value any) (any, error) {
	if m, ok := value.(map[string]any); ok {
		return m, nil
	}
	type dumper interface {
		ModelDump() map[string]any
	}
	if d, ok := value.(dumper); ok {
		return d.ModelDump(), nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return fail(schema.TypeStructured, schema.TypeMapping, value, "value is not a mapping and could not be marshaled: "+err.Error())
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return fail(schema.TypeStructured, schema.TypeMapping, value, "marshaled value is not a JSON object: "+err.Error())
	}
	return m, nil
}

func jsonStringToMapping(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return fail(schema.TypeJSON, schema.TypeMapping, value, "expected a JSON-encoded string")
	}
	cleaned := stripTrailingCommas(s)
	var m map[string]any
	if err := json.Unmarshal([]byte(cleaned), &m); err != nil {
		return fail(schema.TypeJSON, schema.TypeMapping, value, "malformed JSON: "+err.Error())
	}
	return m, nil
}

// stripTrailingCommas makes JSON parsing tolerant of a trailing comma
// before a closing brace/bracket, per spec.md §4.1 ("tolerant to trailing
// commas").
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == ',' {
			j := i + 1
			for j < len(runes) && (runes[j] == ' ' || runes[j] == '\n' || runes[j] == '\t' || runes[j] == '\r') {
				j++
			}
			if j < len(runes) && (runes[j] == '}' || runes[j] == ']') {
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

func intToFloat(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return fail(schema.TypeInt, schema.TypeFloat, value, "expected an integer value")
	}
}

func scalarToString(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return fail(schema.TypeString, schema.TypeString, value, "value has no scalar string representation")
	}
}
