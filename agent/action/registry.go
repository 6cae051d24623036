package action

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/slide-copilot/agent/contract"
	metricsx "github.com/tanpawarit/slide-copilot/pkg/metrics"
)

var (
	ErrNameEmpty   = errors.New("action name is empty")
	ErrNilHandler  = errors.New("action handler is nil")
	ErrInvalidSpec = errors.New("invalid argument spec")
)

const (
	outcomeOK         = "ok"
	outcomeUnknown    = "unknown"
	outcomeValidation = "validation_error"
	outcomeHandler    = "handler_error"
	outcomeCanceled   = "canceled"

	// unregisteredLabel stands in for names that are not registered so
	// callers cannot mint new metric series.
	unregisteredLabel = "_unknown"
)

var _ contractx.ActionInvoker = (*Registry)(nil)

// Option customizes a Registry.
type Option func(*Registry)

func WithMetrics(m *metricsx.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// Registry maps action names to descriptors and dispatches validated calls.
// It holds no document state; handlers carry whatever they mutate.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]*Descriptor
	metrics *metricsx.Metrics
}

func New(opts ...Option) *Registry {
	r := &Registry{
		actions: make(map[string]*Descriptor, 8),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Register adds d. It fails if the name is already taken.
func (r *Registry) Register(d Descriptor) error {
	stored, err := checkDescriptor(d)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.actions[stored.Name]; ok {
		return fmt.Errorf("%w: %q", contractx.ErrDuplicateAction, stored.Name)
	}
	r.actions[stored.Name] = stored
	return nil
}

// Replace registers d, swapping out any descriptor with the same name.
// A call already in flight finishes with the descriptor it resolved.
func (r *Registry) Replace(d Descriptor) error {
	stored, err := checkDescriptor(d)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.actions[stored.Name] = stored
	r.mu.Unlock()
	return nil
}

// Unregister removes name. Removing an absent action is a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	delete(r.actions, name)
	r.mu.Unlock()
}

func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	d, ok := r.actions[name]
	r.mu.RUnlock()
	if !ok {
		return Descriptor{}, false
	}
	return *d, true
}

// Descriptors returns every registered descriptor sorted by name.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	out := make([]Descriptor, 0, len(r.actions))
	for _, d := range r.actions {
		out = append(out, *d)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Invoke validates args against the named descriptor and runs its handler.
// The handler is never called when validation fails. A *ValidationError
// returned by the handler itself is passed through unwrapped.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	d, ok := r.actions[name]
	r.mu.RUnlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		label := unregisteredLabel
		if ok {
			label = d.Name
		}
		r.metrics.ObserveAction(label, outcomeCanceled, 0)
		return nil, ctxErr
	}
	if !ok {
		r.metrics.ObserveAction(unregisteredLabel, outcomeUnknown, 0)
		return nil, fmt.Errorf("%w: %q", contractx.ErrUnknownAction, name)
	}

	validated, err := validateArguments(d.Name, d.Arguments, args)
	if err != nil {
		r.metrics.ObserveAction(d.Name, outcomeValidation, 0)
		log.Debug().Str("action", d.Name).Err(err).Msg("action arguments rejected")
		return nil, err
	}

	started := time.Now()
	result, err := d.Handler(ctx, validated)
	elapsed := time.Since(started)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			if vErr.Action == "" {
				vErr.Action = d.Name
			}
			r.metrics.ObserveAction(d.Name, outcomeValidation, 0)
			log.Debug().Str("action", d.Name).Err(vErr).Msg("action arguments rejected")
			return nil, vErr
		}
		r.metrics.ObserveAction(d.Name, outcomeHandler, elapsed)
		log.Warn().Str("action", d.Name).Dur("elapsed", elapsed).Err(err).Msg("action handler failed")
		return nil, &HandlerError{Action: d.Name, Cause: err}
	}

	r.metrics.ObserveAction(d.Name, outcomeOK, elapsed)
	log.Debug().Str("action", d.Name).Dur("elapsed", elapsed).Msg("action invoked")
	return result, nil
}

func checkDescriptor(d Descriptor) (*Descriptor, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return nil, ErrNameEmpty
	}
	if d.Handler == nil {
		return nil, fmt.Errorf("%w: %q", ErrNilHandler, name)
	}

	seen := make(map[string]struct{}, len(d.Arguments))
	for _, spec := range d.Arguments {
		if strings.TrimSpace(spec.Name) == "" {
			return nil, fmt.Errorf("%w: action=%s: argument name is empty", ErrInvalidSpec, name)
		}
		if !spec.Type.Valid() {
			return nil, fmt.Errorf("%w: action=%s argument=%s: unsupported type %q", ErrInvalidSpec, name, spec.Name, spec.Type)
		}
		if _, dup := seen[spec.Name]; dup {
			return nil, fmt.Errorf("%w: action=%s: duplicate argument %q", ErrInvalidSpec, name, spec.Name)
		}
		seen[spec.Name] = struct{}{}
	}

	stored := d
	stored.Name = name
	stored.Arguments = append([]ArgumentSpec(nil), d.Arguments...)
	return &stored, nil
}
