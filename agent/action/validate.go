package action

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	contractx "github.com/tanpawarit/slide-copilot/agent/contract"
)

// Problem is a single argument that failed validation.
type Problem struct {
	Argument string `json:"argument"`
	Reason   string `json:"reason"`
}

func (p Problem) String() string {
	return fmt.Sprintf("argument %q: %s", p.Argument, p.Reason)
}

// ValidationError lists every argument problem found for one invocation.
type ValidationError struct {
	Action   string
	Problems []Problem
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.String())
	}
	return fmt.Sprintf("%s: action=%s: %s", contractx.ErrValidation, e.Action, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return contractx.ErrValidation
}

// Arguments returns the names of the offending arguments in report order.
func (e *ValidationError) Arguments() []string {
	out := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		out = append(out, p.Argument)
	}
	return out
}

// HandlerError wraps a failure raised inside an action handler.
type HandlerError struct {
	Action string
	Cause  error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s: action=%s: %v", contractx.ErrHandler, e.Action, e.Cause)
}

func (e *HandlerError) Unwrap() []error {
	return []error{contractx.ErrHandler, e.Cause}
}

// validateArguments checks raw against specs and returns the validated projection.
// Every problem is collected; the projection is only meaningful when the error is nil.
func validateArguments(action string, specs []ArgumentSpec, raw map[string]any) (Args, error) {
	projected := make(Args, len(specs))
	var problems []Problem

	for _, spec := range specs {
		value, ok := raw[spec.Name]
		if !ok || value == nil {
			if spec.Required {
				problems = append(problems, Problem{Argument: spec.Name, Reason: "required"})
			}
			continue
		}

		normalized, ok := matchType(spec.Type, value)
		if !ok {
			problems = append(problems, Problem{
				Argument: spec.Name,
				Reason:   fmt.Sprintf("must be %s, got %T", spec.Type, value),
			})
			continue
		}

		if spec.Type == ArgString && spec.MinLength > 0 {
			if n := utf8.RuneCountInString(strings.TrimSpace(normalized.(string))); n < spec.MinLength {
				problems = append(problems, Problem{
					Argument: spec.Name,
					Reason:   fmt.Sprintf("must be at least %d characters, got %d", spec.MinLength, n),
				})
				continue
			}
		}

		projected[spec.Name] = normalized
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Action: action, Problems: problems}
	}
	return projected, nil
}

func matchType(expected ArgType, value any) (any, bool) {
	switch expected {
	case ArgString:
		s, ok := value.(string)
		return s, ok
	case ArgBoolean:
		b, ok := value.(bool)
		return b, ok
	case ArgNumber:
		f, ok := toFloat(value)
		return f, ok
	case ArgObject:
		if m, ok := value.(map[string]any); ok {
			return m, true
		}
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
			out := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				out[iter.Key().String()] = iter.Value().Interface()
			}
			return out, true
		}
		return nil, false
	case ArgArray:
		if l, ok := value.([]any); ok {
			return l, true
		}
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			out := make([]any, rv.Len())
			for i := range out {
				out[i] = rv.Index(i).Interface()
			}
			return out, true
		}
		return nil, false
	default:
		return nil, false
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
