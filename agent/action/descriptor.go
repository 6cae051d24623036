package action

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ArgType is the declared type tag of an action argument.
type ArgType string

const (
	ArgString  ArgType = "string"
	ArgNumber  ArgType = "number"
	ArgBoolean ArgType = "boolean"
	ArgObject  ArgType = "object"
	ArgArray   ArgType = "array"
)

func (t ArgType) Valid() bool {
	switch t {
	case ArgString, ArgNumber, ArgBoolean, ArgObject, ArgArray:
		return true
	default:
		return false
	}
}

type ArgumentSpec struct {
	Name        string  `json:"name"`
	Type        ArgType `json:"type"`
	Description string  `json:"description"`
	Required    bool    `json:"required"`
	// MinLength is the minimum rune count of a string argument after trimming
	// surrounding whitespace. Zero disables the check.
	MinLength int `json:"minLength,omitempty"`
}

// Handler executes one action with its validated arguments.
type Handler func(ctx context.Context, args Args) (any, error)

// Descriptor describes an action the agent may invoke.
// Description is intent-matching metadata for the agent; the registry never reads it.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Arguments   []ArgumentSpec `json:"arguments"`
	Handler     Handler        `json:"-"`
}

// Args is the validated projection of an invocation's arguments.
// It only holds arguments declared by the descriptor.
type Args map[string]any

func (a Args) String(name string) string {
	v, _ := a[name].(string)
	return v
}

func (a Args) Number(name string) float64 {
	v, _ := toFloat(a[name])
	return v
}

func (a Args) Bool(name string) bool {
	v, _ := a[name].(bool)
	return v
}

func (a Args) Object(name string) map[string]any {
	v, _ := a[name].(map[string]any)
	return v
}

func (a Args) Array(name string) []any {
	v, _ := a[name].([]any)
	return v
}

func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Decode copies validated arguments into a typed struct using mapstructure tags.
func Decode[T any](args Args) (T, error) {
	var out T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: false,
		ErrorUnused:      false,
	})
	if err != nil {
		return out, fmt.Errorf("build argument decoder: %w", err)
	}
	if err := decoder.Decode(map[string]any(args)); err != nil {
		return out, fmt.Errorf("decode arguments: %w", err)
	}
	return out, nil
}

// Typed adapts a handler that takes a decoded argument struct.
// Arguments that do not fit T are reported as a *ValidationError and fn is not called.
func Typed[T any](fn func(ctx context.Context, in T) (any, error)) Handler {
	return func(ctx context.Context, args Args) (any, error) {
		in, err := Decode[T](args)
		if err != nil {
			return nil, decodeProblems[T](args, err)
		}
		return fn(ctx, in)
	}
}

// decodeProblems decodes each argument on its own to find the ones T rejects.
func decodeProblems[T any](args Args, cause error) *ValidationError {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	var problems []Problem
	for _, name := range names {
		if _, err := Decode[T](Args{name: args[name]}); err != nil {
			problems = append(problems, Problem{Argument: name, Reason: decodeReason(err)})
		}
	}
	if len(problems) == 0 {
		problems = []Problem{{Argument: "arguments", Reason: decodeReason(cause)}}
	}
	return &ValidationError{Problems: problems}
}

func decodeReason(err error) string {
	var decodeErr *mapstructure.Error
	if errors.As(err, &decodeErr) && len(decodeErr.Errors) > 0 {
		return strings.Join(decodeErr.Errors, "; ")
	}
	return err.Error()
}
