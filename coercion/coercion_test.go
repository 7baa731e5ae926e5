package coercion

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/draftnrun/agentgraph/nodedata"
	"github.com/draftnrun/agentgraph/schema"
)

// allPortTypes enumerates every declared PortType, used to drive the
// property tests below over the full matrix rather than a hand-picked
// subset.
var allPortTypes = []schema.PortType{
	schema.TypeString,
	schema.TypeMessages,
	schema.TypeMapping,
	schema.TypeStructured,
	schema.TypeBool,
	schema.TypeInt,
	schema.TypeFloat,
	schema.TypeJSON,
	schema.TypeAny,
}

// validSample returns a value that legitimately inhabits t, used both to
// exercise reflexivity and to drive every accepted conversion with a value
// it can actually coerce.
func validSample(t schema.PortType) any {
	switch t {
	case schema.TypeString:
		return "hello"
	case schema.TypeMessages:
		return []nodedata.ChatMessage{{Role: nodedata.RoleUser, Content: "hi"}}
	case schema.TypeMapping:
		return map[string]any{"k": "v"}
	case schema.TypeStructured:
		return map[string]any{"k": "v"}
	case schema.TypeBool:
		return true
	case schema.TypeInt:
		return 3
	case schema.TypeFloat:
		return 3.5
	case schema.TypeJSON:
		return `{"k":"v"}`
	case schema.TypeAny:
		return "anything"
	default:
		return nil
	}
}

func genPortType() gopter.Gen {
	return gen.IntRange(0, len(allPortTypes)-1).Map(func(i int) schema.PortType {
		return allPortTypes[i]
	})
}

// TestCoerceIsReflexive exercises spec.md §8's "coercion reflexivity"
// invariant: coercing any well-typed value to its own declared type is
// always a no-op that succeeds.
func TestCoerceIsReflexive(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("Coerce(t, t, v) == v for every declared port type", prop.ForAll(
		func(pt schema.PortType) bool {
			v := validSample(pt)
			out, err := Coerce(pt, pt, v)
			if err != nil {
				return false
			}
			switch pt {
			case schema.TypeMessages:
				msgs, ok := out.([]nodedata.ChatMessage)
				return ok && len(msgs) == 1 && msgs[0].Content == "hi"
			case schema.TypeMapping, schema.TypeStructured:
				m, ok := out.(map[string]any)
				return ok && m["k"] == "v"
			default:
				return out == v
			}
		},
		genPortType(),
	))

	properties.TestingRun(t)
}

// TestCoerceAcceptanceMatchesCheck exercises spec.md §8's "coercion
// acceptance matches check" invariant: for every (source, target) pair,
// Accepts reports true exactly when Coerce, given a well-typed sample of
// source, actually succeeds.
func TestCoerceAcceptanceMatchesCheck(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("Accepts(source, target) == (Coerce succeeds on a well-typed sample)", prop.ForAll(
		func(source, target schema.PortType) bool {
			_, err := Coerce(source, target, validSample(source))
			coerces := err == nil
			return Accepts(source, target) == coerces
		},
		genPortType(), genPortType(),
	))

	properties.TestingRun(t)
}

func TestCoerceJSONStringToMappingMalformedFails(t *testing.T) {
	_, err := Coerce(schema.TypeJSON, schema.TypeMapping, `{"a": `)
	require.Error(t, err)

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, schema.TypeJSON, cerr.SourceType)
	require.Equal(t, schema.TypeMapping, cerr.TargetType)
}

func TestCoerceJSONStringToMappingToleratesTrailingCommas(t *testing.T) {
	out, err := Coerce(schema.TypeJSON, schema.TypeMapping, `{"a": 1, "b": 2,}`)
	require.NoError(t, err)
	m := out.(map[string]any)
	require.Equal(t, float64(1), m["a"])
	require.Equal(t, float64(2), m["b"])
}

func TestCoerceJSONStringToMappingToleratesTrailingCommaInArray(t *testing.T) {
	out, err := Coerce(schema.TypeJSON, schema.TypeMapping, `{"list": [1, 2, 3,]}`)
	require.NoError(t, err)
	m := out.(map[string]any)
	require.Equal(t, []any{float64(1), float64(2), float64(3)}, m["list"])
}

func TestCoerceStringToBoolRecognizesTruthyLiterals(t *testing.T) {
	for _, truthy := range []string{"true", "1", "yes", "y", "on", "TRUE", " Yes ", "On"} {
		out, err := Coerce(schema.TypeString, schema.TypeBool, truthy)
		require.NoError(t, err)
		require.Equal(t, true, out, "literal %q should coerce to true", truthy)
	}
}

func TestCoerceStringToBoolRejectsUnrecognizedLiteralsAsFalse(t *testing.T) {
	for _, falsy := range []string{"false", "0", "no", "n", "off", "garbage", ""} {
		out, err := Coerce(schema.TypeString, schema.TypeBool, falsy)
		require.NoError(t, err)
		require.Equal(t, false, out, "literal %q should coerce to false, not error", falsy)
	}
}

func TestCoerceStringToBoolRequiresStringValue(t *testing.T) {
	_, err := Coerce(schema.TypeString, schema.TypeBool, 1)
	require.Error(t, err)
}

func TestCoerceMessagesToStringUsesLastUserMessage(t *testing.T) {
	out, err := Coerce(schema.TypeMessages, schema.TypeString, []nodedata.ChatMessage{
		{Role: nodedata.RoleUser, Content: "first question"},
		{Role: nodedata.RoleAssistant, Content: "an answer"},
		{Role: nodedata.RoleUser, Content: "second question"},
	})
	require.NoError(t, err)
	require.Contains(t, out, "second question")
}

func TestCoerceMessagesToStringFallsBackToFinalMessage(t *testing.T) {
	out, err := Coerce(schema.TypeMessages, schema.TypeString, []nodedata.ChatMessage{
		{Role: nodedata.RoleSystem, Content: "setup"},
		{Role: nodedata.RoleAssistant, Content: "closing remark"},
	})
	require.NoError(t, err)
	require.Contains(t, out, "closing remark")
}

func TestCoerceRejectsUnacceptedTypePair(t *testing.T) {
	_, err := Coerce(schema.TypeBool, schema.TypeMessages, true)
	require.Error(t, err)
	require.False(t, Accepts(schema.TypeBool, schema.TypeMessages))
}

// TestMissingFieldHonorsNullableOrDefault covers spec.md §4.1's "missing
// source field" edge case: coercion in this codebase is only ever invoked
// on a value already present on the wire, and presence/default resolution
// happens one layer up in schema.StructuredType.Validate, which is what a
// missing-field mapping actually goes through before Coerce ever sees it.
func TestMissingFieldHonorsNullableOrDefault(t *testing.T) {
	st := schema.StructuredType{Fields: []schema.Port{
		{Name: "nullable_field", Type: schema.TypeString, Nullable: true},
		{Name: "defaulted_field", Type: schema.TypeString, HasDefault: true, Default: "fallback"},
		{Name: "required_field", Type: schema.TypeString, Required: true},
	}}

	_, err := st.Validate(map[string]any{
		"nullable_field":  nil,
		"defaulted_field": nil,
	})
	require.Error(t, err, "required_field missing with no default must fail")

	out, err := st.Validate(map[string]any{
		"nullable_field":  nil,
		"defaulted_field": nil,
		"required_field":  "present",
	})
	require.NoError(t, err)
	require.Nil(t, out["nullable_field"])
	require.Equal(t, "fallback", out["defaulted_field"])
	require.Equal(t, "present", out["required_field"])
}
