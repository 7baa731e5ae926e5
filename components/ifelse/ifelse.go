// Package ifelse implements the If/Else component, a two-branch
// specialization of Router with fixed true/false semantics, grounded on
// original_source/engine/components/if_else.py.
package ifelse

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/draftnrun/agentgraph/component"
	"github.com/draftnrun/agentgraph/nodedata"
	"github.com/draftnrun/agentgraph/schema"
	"github.com/draftnrun/agentgraph/telemetry"
)

// Operator enumerates the comparison operators If/Else supports.
type Operator string

const (
	IsEmpty             Operator = "is_empty"
	IsNotEmpty          Operator = "is_not_empty"
	NumberGreaterThan   Operator = "number_greater_than"
	NumberLessThan      Operator = "number_less_than"
	NumberEqualTo       Operator = "number_equal_to"
	NumberGreaterOrEq   Operator = "number_greater_or_equal"
	NumberLessOrEqual   Operator = "number_less_or_equal"
	BooleanIsTrue       Operator = "boolean_is_true"
	BooleanIsFalse      Operator = "boolean_is_false"
	TextContains        Operator = "text_contains"
	TextDoesNotContain  Operator = "text_does_not_contain"
	TextEquals          Operator = "text_equals"
	TextDoesNotEqual    Operator = "text_does_not_equal"
)

// Logic combines two adjacent conditions.
type Logic string

const (
	And Logic = "AND"
	Or  Logic = "OR"
)

// Condition is one entry of the conditions input.
type Condition struct {
	ValueA    any
	Operator  Operator
	ValueB    any
	NextLogic Logic // empty for the last condition
}

// Config configures an If/Else instance.
type Config struct {
	Attributes nodedata.ComponentAttributes
	Tracer     telemetry.Tracer
	Metrics    telemetry.Metrics
}

// New builds the If/Else Component: canonical input port "conditions",
// canonical output port "output". Output carries OutputValueIfTrue when
// the evaluated chain is true, and an ExecutionDirective halting every
// descendant otherwise (should_halt=true in the original maps to
// StrategyHaltAll here, since If/Else has a single output port rather
// than Router's many route ports).
func New(cfg Config) component.Component {
	base := &component.Base{
		Attributes: cfg.Attributes,
		Inputs: schema.StructuredType{Fields: []schema.Port{
			{Name: "conditions", Type: schema.TypeJSON, Required: true},
			{Name: "output_value_if_true", Type: schema.TypeAny, Nullable: true},
		}},
		Outputs: schema.StructuredType{Fields: []schema.Port{
			{Name: "result", Type: schema.TypeBool},
			{Name: "output", Type: schema.TypeAny, Nullable: true},
			{Name: "should_halt", Type: schema.TypeBool},
		}},
		Canonical: component.CanonicalPorts{Input: "conditions", Output: "output"},
		Tracer:    cfg.Tracer,
		Metrics:   cfg.Metrics,
	}
	base.Core = func(ctx context.Context, cc *component.CallContext, inputs map[string]any, _ map[string]any) (map[string]any, error) {
		conditions, err := decodeConditions(inputs["conditions"])
		if err != nil {
			return nil, err
		}
		result, err := evaluateConditions(conditions)
		if err != nil {
			return nil, err
		}
		cc.LogTrace(map[string]any{"result": result})

		out := map[string]any{"result": result, "should_halt": !result}
		if result {
			out["output"] = inputs["output_value_if_true"]
		} else {
			out["output"] = nil
			out[nodedata.DirectiveKey] = nodedata.ExecutionDirective{Strategy: nodedata.StrategyHaltAll}
		}
		return out, nil
	}
	return base
}

func decodeConditions(raw any) ([]Condition, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("ifelse: conditions input must be a list, got %T", raw)
	}
	out := make([]Condition, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("ifelse: each condition must be an object, got %T", item)
		}
		op, _ := m["operator"].(string)
		next, _ := m["next_logic"].(string)
		out = append(out, Condition{
			ValueA:    m["value_a"],
			Operator:  Operator(op),
			ValueB:    m["value_b"],
			NextLogic: Logic(next),
		})
	}
	return out, nil
}

func evaluateConditions(conditions []Condition) (bool, error) {
	if len(conditions) == 0 {
		return false, fmt.Errorf("ifelse: no conditions provided for evaluation")
	}

	result, err := compareSingle(conditions[0].ValueA, conditions[0].ValueB, conditions[0].Operator)
	if err != nil {
		return false, err
	}

	for i := 1; i < len(conditions); i++ {
		prevLogic := conditions[i-1].NextLogic
		if prevLogic == "" {
			break
		}
		current, err := compareSingle(conditions[i].ValueA, conditions[i].ValueB, conditions[i].Operator)
		if err != nil {
			return false, err
		}
		switch prevLogic {
		case And:
			result = result && current
		case Or:
			result = result || current
		}
	}
	return result, nil
}

func compareSingle(valueA, valueB any, op Operator) (bool, error) {
	switch op {
	case IsEmpty:
		return isEmpty(valueA), nil
	case IsNotEmpty:
		return !isEmpty(valueA), nil
	case BooleanIsTrue:
		return toBoolean(valueA) == true, nil
	case BooleanIsFalse:
		return toBoolean(valueA) == false, nil
	}

	if valueB == nil {
		return false, fmt.Errorf("ifelse: operator %s requires a second value", op)
	}

	switch op {
	case NumberGreaterThan, NumberLessThan, NumberEqualTo, NumberGreaterOrEq, NumberLessOrEqual:
		numA, err := toNumber(valueA)
		if err != nil {
			return false, fmt.Errorf("ifelse: cannot convert values to numbers for comparison: %w", err)
		}
		numB, err := toNumber(valueB)
		if err != nil {
			return false, fmt.Errorf("ifelse: cannot convert values to numbers for comparison: %w", err)
		}
		switch op {
		case NumberGreaterThan:
			return numA > numB, nil
		case NumberLessThan:
			return numA < numB, nil
		case NumberEqualTo:
			return numA == numB, nil
		case NumberGreaterOrEq:
			return numA >= numB, nil
		case NumberLessOrEqual:
			return numA <= numB, nil
		}
	}

	strA, strB := fmt.Sprint(valueA), fmt.Sprint(valueB)
	switch op {
	case TextContains:
		return strings.Contains(strA, strB), nil
	case TextDoesNotContain:
		return !strings.Contains(strA, strB), nil
	case TextEquals:
		return strA == strB, nil
	case TextDoesNotEqual:
		return strA != strB, nil
	}

	return false, fmt.Errorf("ifelse: unsupported operator %q", op)
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	}
	return false
}

func toNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to number", v)
	}
}

func toBoolean(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch strings.ToLower(val) {
		case "true", "1", "yes", "y", "on":
			return true
		}
		return false
	default:
		return v != nil
	}
}
