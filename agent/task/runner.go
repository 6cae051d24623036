package task

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/slide-copilot/agent/contract"
	deckx "github.com/tanpawarit/slide-copilot/agent/deck"
	nodex "github.com/tanpawarit/slide-copilot/agent/nodes/generate"
	researchx "github.com/tanpawarit/slide-copilot/agent/research"
	metricsx "github.com/tanpawarit/slide-copilot/pkg/metrics"
)

type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

const DefaultResearchTimeout = 60 * time.Second

// Status is a snapshot of the runner. Terminal states stay visible until
// Acknowledge is called or a new run starts.
type Status struct {
	State      State        `json:"state"`
	RunID      string       `json:"runId,omitempty"`
	Topic      string       `json:"topic,omitempty"`
	Slide      *deckx.Slide `json:"slide,omitempty"`
	Inserted   *int         `json:"inserted,omitempty"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"startedAt,omitzero"`
	FinishedAt time.Time    `json:"finishedAt,omitzero"`

	Err error `json:"-"`
}

type Deps struct {
	Gate       contractx.DeckGate
	Researcher contractx.Researcher
	Actions    contractx.ActionInvoker
}

type Option func(*Runner)

func WithResearchTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.researchTimeout = d
	}
}

func WithMetrics(m *metricsx.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// Runner executes the generate-next-slide workflow, at most one run at a time.
type Runner struct {
	gate       contractx.DeckGate
	researcher contractx.Researcher
	actions    contractx.ActionInvoker

	researchTimeout time.Duration
	metrics         *metricsx.Metrics
	now             func() time.Time

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	mu     sync.Mutex
	status Status
	done   chan struct{}
	cancel context.CancelFunc
	closed bool
}

func New(ctx context.Context, deps Deps, opts ...Option) (*Runner, error) {
	if deps.Gate == nil {
		return nil, errors.New("deck gate is required")
	}
	if deps.Researcher == nil {
		return nil, errors.New("researcher is required")
	}
	if deps.Actions == nil {
		return nil, errors.New("action invoker is required")
	}

	r := &Runner{
		gate:            deps.Gate,
		actions:         deps.Actions,
		researchTimeout: DefaultResearchTimeout,
		now:             time.Now,
		status:          Status{State: StateIdle},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.researcher = researchx.WithTimeout(deps.Researcher, r.researchTimeout)

	graphRunner, err := r.compileGenerateGraph(ctx)
	if err != nil {
		return nil, err
	}
	r.graphRunner = graphRunner
	return r, nil
}

// Start launches a run in the background and returns immediately.
// The run is detached from ctx cancellation; use Close to stop it.
func (r *Runner) Start(ctx context.Context) (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return r.status, contractx.ErrSessionClosed
	}
	if r.status.State == StateRunning {
		return r.status, contractx.ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	runID := uuid.NewString()
	done := make(chan struct{})

	r.cancel = cancel
	r.done = done
	r.status = Status{
		State:     StateRunning,
		RunID:     runID,
		StartedAt: r.now().UTC(),
	}
	r.metrics.TaskStarted()

	log.Info().Str("run_id", runID).Msg("generate task started")

	go r.run(runCtx, runID, done)
	return r.status, nil
}

func (r *Runner) run(ctx context.Context, runID string, done chan struct{}) {
	defer close(done)

	out, err := r.graphRunner.Invoke(ctx, nodex.GraphInput{RunID: runID})

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}

	st := Status{
		RunID:      runID,
		StartedAt:  r.status.StartedAt,
		FinishedAt: r.now().UTC(),
	}
	// A nil error means the gate already committed the insert, so the run
	// succeeded even if Close landed afterwards.
	switch {
	case err != nil && r.closed:
		st.State = StateFailed
		st.Err = contractx.ErrSessionClosed
	case err != nil:
		st.State = StateFailed
		st.Err = err
	default:
		st.State = StateSucceeded
		st.Topic = out.Topic
		slide := out.Slide
		inserted := out.Inserted
		st.Slide = &slide
		st.Inserted = &inserted
	}
	if st.Err != nil {
		st.Error = st.Err.Error()
	}
	r.status = st
	r.metrics.TaskFinished(string(st.State))

	if st.Err != nil {
		log.Warn().Err(st.Err).Str("run_id", runID).Msg("generate task failed")
		return
	}
	log.Info().
		Str("run_id", runID).
		Str("topic", st.Topic).
		Int("inserted", *st.Inserted).
		Msg("generate task succeeded")
}

func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Wait blocks until the current run finishes or ctx is done.
// It returns immediately when no run is in flight.
func (r *Runner) Wait(ctx context.Context) (Status, error) {
	r.mu.Lock()
	done := r.done
	running := r.status.State == StateRunning
	r.mu.Unlock()

	if running && done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return r.Status(), ctx.Err()
		}
	}
	return r.Status(), nil
}

// Acknowledge returns the current status and resets a terminal state to idle.
func (r *Runner) Acknowledge() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.status
	if st.State.Terminal() {
		r.status = Status{State: StateIdle}
	}
	return st
}

// Close cancels any in-flight run and refuses further starts.
// It does not wait for the run to unwind.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}
