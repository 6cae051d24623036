package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	actionx "github.com/tanpawarit/slide-copilot/agent/action"
	contractx "github.com/tanpawarit/slide-copilot/agent/contract"
	deckx "github.com/tanpawarit/slide-copilot/agent/deck"
	readablex "github.com/tanpawarit/slide-copilot/agent/readable"
	researchx "github.com/tanpawarit/slide-copilot/agent/research"
	taskx "github.com/tanpawarit/slide-copilot/agent/task"
	metricsx "github.com/tanpawarit/slide-copilot/pkg/metrics"
)

var _ contractx.DeckGate = (*Session)(nil)

type Deps struct {
	Researcher contractx.Researcher
	Composer   contractx.Composer
}

type Option func(*options)

type options struct {
	seed            *deckx.Slide
	sink            readablex.Sink
	metrics         *metricsx.Metrics
	researchTimeout time.Duration
}

func WithSeed(seed deckx.Slide) Option {
	return func(o *options) {
		o.seed = &seed
	}
}

func WithSink(sink readablex.Sink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

func WithMetrics(m *metricsx.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func WithResearchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.researchTimeout = d
	}
}

// Session owns one document together with its action registry, readable
// context and generate task. mu guards the document: every read and every
// mutation of it happens under mu, and context is republished before mu is
// released so the published entries follow mutation order.
type Session struct {
	id string

	mu     sync.Mutex
	doc    *deckx.Document
	closed bool

	registry   *actionx.Registry
	readable   *readablex.Store
	runner     *taskx.Runner
	researcher contractx.Researcher
	composer   contractx.Composer
}

// Snapshot is a consistent view of a session for callers outside the agent runtime.
type Snapshot struct {
	ID      string             `json:"id"`
	Deck    contractx.DeckView `json:"deck"`
	Context map[string]string  `json:"context"`
	Task    taskx.Status       `json:"task"`
}

func New(ctx context.Context, id string, deps Deps, opts ...Option) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: session id is required", contractx.ErrValidation)
	}
	if deps.Researcher == nil {
		return nil, errors.New("researcher is required")
	}
	if deps.Composer == nil {
		return nil, errors.New("composer is required")
	}

	o := options{researchTimeout: taskx.DefaultResearchTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	doc := deckx.NewWithDefaultSeed()
	if o.seed != nil {
		doc = deckx.New(*o.seed)
	}

	s := &Session{
		id:         id,
		doc:        doc,
		registry:   actionx.New(actionx.WithMetrics(o.metrics)),
		readable:   readablex.NewStore(readablex.WithSink(id, o.sink)),
		researcher: researchx.WithTimeout(deps.Researcher, o.researchTimeout),
		composer:   deps.Composer,
	}

	if err := s.registerActions(); err != nil {
		return nil, err
	}

	runner, err := taskx.New(ctx, taskx.Deps{
		Gate:       s,
		Researcher: deps.Researcher,
		Actions:    s.registry,
	},
		taskx.WithResearchTimeout(o.researchTimeout),
		taskx.WithMetrics(o.metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("create generate task: %w", err)
	}
	s.runner = runner

	s.mu.Lock()
	s.publishLocked(ctx)
	s.mu.Unlock()

	log.Info().Str("session_id", id).Int("slides", doc.Len()).Msg("session created")
	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

// Invoke dispatches an agent action call through the registry.
func (s *Session) Invoke(ctx context.Context, call contractx.ActionCall) (any, error) {
	if s.isClosed() {
		return nil, contractx.ErrSessionClosed
	}
	return s.registry.Invoke(ctx, call.Name, call.Arguments)
}

func (s *Session) Descriptors() []actionx.Descriptor {
	return s.registry.Descriptors()
}

func (s *Session) ToolInfos() []*schema.ToolInfo {
	return s.registry.ToolInfos()
}

// Navigate moves the current slide by delta, clamped to the document bounds.
func (s *Session) Navigate(ctx context.Context, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, contractx.ErrSessionClosed
	}
	index := s.doc.Navigate(delta)
	s.publishLocked(ctx)
	return index, nil
}

func (s *Session) View() contractx.DeckView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// InsertAfterCurrent is the generate task's write path. It refuses once the
// session is closed so a cancelled run never mutates the document.
func (s *Session) InsertAfterCurrent(ctx context.Context, slide deckx.Slide) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, contractx.ErrSessionClosed
	}
	index := s.doc.CurrentIndex() + 1
	if err := s.doc.InsertAt(index, slide); err != nil {
		return 0, err
	}
	s.publishLocked(ctx)
	return index, nil
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	view := s.viewLocked()
	s.mu.Unlock()

	return Snapshot{
		ID:      s.id,
		Deck:    view,
		Context: s.readable.Snapshot(),
		Task:    s.runner.Status(),
	}
}

// Context returns the readable context as the agent sees it.
func (s *Session) Context() map[string]string {
	return s.readable.Snapshot()
}

func (s *Session) Generate(ctx context.Context) (taskx.Status, error) {
	if s.isClosed() {
		return s.runner.Status(), contractx.ErrSessionClosed
	}
	return s.runner.Start(ctx)
}

func (s *Session) Task() *taskx.Runner {
	return s.runner
}

// Close ends the session. An in-flight generate run is cancelled and its
// result discarded; mirrored context is cleared.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.runner.Close()
	if err := s.readable.Close(ctx); err != nil {
		return fmt.Errorf("close session %s: %w", s.id, err)
	}

	log.Info().Str("session_id", s.id).Msg("session closed")
	return nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) viewLocked() contractx.DeckView {
	return contractx.DeckView{
		Slides:  s.doc.Slides(),
		Current: s.doc.CurrentIndex(),
	}
}

// publishLocked refreshes both readable-context entries. Mirror failures are
// logged; the local entries are already current when Publish reports them.
func (s *Session) publishLocked(ctx context.Context) {
	if err := s.readable.Publish(ctx, readablex.LabelAllSlides, s.doc.Slides()); err != nil {
		log.Warn().Err(err).Str("session_id", s.id).Str("label", readablex.LabelAllSlides).Msg("publish context failed")
	}
	if err := s.readable.Publish(ctx, readablex.LabelCurrentSlide, s.doc.CurrentSlide()); err != nil {
		log.Warn().Err(err).Str("session_id", s.id).Str("label", readablex.LabelCurrentSlide).Msg("publish context failed")
	}
}
