package react

import (
	"fmt"
	"strings"
)

// ErrMissingPromptKey is returned by FillPromptTemplate when the template
// references a variable present in neither inputs nor ctx.
type ErrMissingPromptKey struct {
	Key           string
	ComponentName string
	Available     []string
}

func (e *ErrMissingPromptKey) Error() string {
	return fmt.Sprintf(
		"missing template variable %q needed in prompt template of component %q (available: %v)",
		e.Key, e.ComponentName, e.Available,
	)
}

// FillPromptTemplate substitutes "{name}"-style placeholders in template,
// resolving each against inputs first and ctx second (inputs takes
// priority), per the original prompt-filling rule. Every value is rendered
// with fmt.Sprint before substitution. A template with no placeholders is
// returned unchanged.
func FillPromptTemplate(template, componentName string, inputs, ctx map[string]any) (string, error) {
	keys := templateKeys(template)
	if len(keys) == 0 {
		return template, nil
	}

	replacements := make(map[string]string, len(keys))
	for _, key := range keys {
		if v, ok := inputs[key]; ok {
			replacements[key] = fmt.Sprint(v)
			continue
		}
		if v, ok := ctx[key]; ok {
			replacements[key] = fmt.Sprint(v)
			continue
		}
		available := make([]string, 0, len(inputs)+len(ctx))
		for k := range inputs {
			available = append(available, k)
		}
		for k := range ctx {
			available = append(available, k)
		}
		return "", &ErrMissingPromptKey{Key: key, ComponentName: componentName, Available: available}
	}

	out := template
	for key, value := range replacements {
		out = strings.ReplaceAll(out, "{"+key+"}", value)
	}
	return out, nil
}

// templateKeys extracts every distinct "{name}" placeholder from template,
// ignoring "{{" (a literal brace, Python str.format's escape convention).
func templateKeys(template string) []string {
	var keys []string
	seen := map[string]bool{}
	runes := []rune(template)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '{' {
			continue
		}
		if i+1 < len(runes) && runes[i+1] == '{' {
			i++
			continue
		}
		end := -1
		for j := i + 1; j < len(runes); j++ {
			if runes[j] == '}' {
				end = j
				break
			}
		}
		if end == -1 {
			continue
		}
		name := strings.TrimSpace(string(runes[i+1 : end]))
		if name != "" && !seen[name] {
			seen[name] = true
			keys = append(keys, name)
		}
		i = end
	}
	return keys
}
