package readable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

const (
	LabelAllSlides    = "all slides"
	LabelCurrentSlide = "current slide"
)

var (
	ErrLabelEmpty   = errors.New("context label is empty")
	ErrMirrorFailed = errors.New("context mirror failed")
)

// Sink mirrors published entries to a place an external agent runtime can read.
type Sink interface {
	Mirror(ctx context.Context, sessionID, label, value string) error
	Clear(ctx context.Context, sessionID string) error
}

// Option customizes a Store.
type Option func(*Store)

// WithSink mirrors every publish to sink under sessionID.
func WithSink(sessionID string, sink Sink) Option {
	return func(s *Store) {
		if sink != nil && strings.TrimSpace(sessionID) != "" {
			s.sink = sink
			s.sessionID = strings.TrimSpace(sessionID)
		}
	}
}

// Store keeps the latest serialized value per label for the agent to read.
// Republishing a label overwrites its value. The store does not watch the
// document; owners publish after each mutation.
type Store struct {
	mu        sync.RWMutex
	entries   map[string]string
	sink      Sink
	sessionID string
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]string, 4),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Publish serializes value as JSON and stores it under label.
// The in-memory entry is updated before mirroring, so a mirror error never
// leaves the snapshot stale.
func (s *Store) Publish(ctx context.Context, label string, value any) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return ErrLabelEmpty
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal context %q: %w", label, err)
	}
	encoded := string(raw)

	s.mu.Lock()
	s.entries[label] = encoded
	s.mu.Unlock()

	if s.sink == nil {
		return nil
	}
	if err := s.sink.Mirror(ctx, s.sessionID, label, encoded); err != nil {
		return fmt.Errorf("%w: label=%q: %w", ErrMirrorFailed, label, err)
	}
	return nil
}

// Get returns the latest serialized value for label.
func (s *Store) Get(label string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[label]
	return v, ok
}

// Snapshot returns a copy of every label and its latest value.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// Close drops mirrored entries. The in-memory snapshot stays readable.
func (s *Store) Close(ctx context.Context) error {
	if s.sink == nil {
		return nil
	}
	return s.sink.Clear(ctx, s.sessionID)
}
