package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	actionx "github.com/tanpawarit/slide-copilot/agent/action"
	contractx "github.com/tanpawarit/slide-copilot/agent/contract"
	deckx "github.com/tanpawarit/slide-copilot/agent/deck"
	readablex "github.com/tanpawarit/slide-copilot/agent/readable"
	taskx "github.com/tanpawarit/slide-copilot/agent/task"
)

type fakeResearcher struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (f *fakeResearcher) Research(ctx context.Context, topic string) (contractx.ResearchResult, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return contractx.ResearchResult{}, ctx.Err()
		}
	}
	if f.err != nil {
		return contractx.ResearchResult{}, f.err
	}
	return contractx.ResearchResult{Topic: topic, Text: "notes about " + topic}, nil
}

type fakeComposer struct {
	mu   sync.Mutex
	reqs []contractx.ComposeRequest
}

func (f *fakeComposer) Compose(_ context.Context, req contractx.ComposeRequest) (deckx.Slide, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return deckx.Slide{
		Title:                      "Deep dive: " + req.Topic,
		Content:                    "Key points",
		BackgroundImageDescription: "library",
		SpokenNarration:            "Let's go deeper.",
	}, nil
}

type memorySink struct {
	mu      sync.Mutex
	entries map[string]string
	cleared bool
}

func (m *memorySink) Mirror(_ context.Context, _, label, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = map[string]string{}
	}
	m.entries[label] = value
	return nil
}

func (m *memorySink) Clear(context.Context, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = true
	m.entries = nil
	return nil
}

func newTestSession(t *testing.T, researcher contractx.Researcher, opts ...Option) (*Session, *fakeComposer) {
	t.Helper()
	composer := &fakeComposer{}
	s, err := New(context.Background(), "deck-1", Deps{Researcher: researcher, Composer: composer}, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, composer
}

func slideArgs(title, content, bg, narration string) map[string]any {
	return map[string]any{
		"title":                      title,
		"content":                    content,
		"backgroundImageDescription": bg,
		"spokenNarration":            narration,
	}
}

func invoke(t *testing.T, s *Session, name string, args map[string]any) any {
	t.Helper()
	out, err := s.Invoke(context.Background(), contractx.ActionCall{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("Invoke(%s) error = %v", name, err)
	}
	return out
}

func decodeContext[T any](t *testing.T, s *Session, label string) T {
	t.Helper()
	var out T
	raw, ok := s.Context()[label]
	if !ok {
		t.Fatalf("context label %q is missing", label)
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("unmarshal %q: %v", label, err)
	}
	return out
}

func TestNewPublishesSeedContext(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession(t, &fakeResearcher{})

	all := decodeContext[[]deckx.Slide](t, s, readablex.LabelAllSlides)
	if len(all) != 1 || all[0] != deckx.DefaultSeed() {
		t.Fatalf("unexpected all slides: %#v", all)
	}
	current := decodeContext[deckx.Slide](t, s, readablex.LabelCurrentSlide)
	if current != deckx.DefaultSeed() {
		t.Fatalf("unexpected current slide: %#v", current)
	}
}

func TestAppendThenUpdateEndToEnd(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession(t, &fakeResearcher{})
	seed := deckx.DefaultSeed()

	invoke(t, s, contractx.ActionAppendSlide, slideArgs("A", "B", "c", "d"))
	out := invoke(t, s, contractx.ActionAppendSlide, slideArgs("E", "F", "g", "h"))
	if res := out.(MutationResult); res.Index != 2 || res.Length != 3 || res.Current != 0 {
		t.Fatalf("unexpected mutation result: %#v", res)
	}

	view := s.View()
	titles := []string{view.Slides[0].Title, view.Slides[1].Title, view.Slides[2].Title}
	if len(view.Slides) != 3 || titles[0] != seed.Title || titles[1] != "A" || titles[2] != "E" {
		t.Fatalf("unexpected order: %v", titles)
	}

	before := view.Slides
	invoke(t, s, contractx.ActionUpdateSlide, slideArgs("New", "Body", "sky", "Hi"))
	after := s.View().Slides

	if after[0] != (deckx.Slide{Title: "New", Content: "Body", BackgroundImageDescription: "sky", SpokenNarration: "Hi"}) {
		t.Fatalf("current slide not overwritten: %#v", after[0])
	}
	if after[1] != before[1] || after[2] != before[2] {
		t.Fatal("update must not touch other slides")
	}

	all := decodeContext[[]deckx.Slide](t, s, readablex.LabelAllSlides)
	if len(all) != 3 || all[0].Title != "New" {
		t.Fatalf("context not republished: %#v", all)
	}
	if current := decodeContext[deckx.Slide](t, s, readablex.LabelCurrentSlide); current.Title != "New" {
		t.Fatalf("current slide context = %#v", current)
	}
}

func TestResearchShortTopicRejectedBeforeAdapter(t *testing.T) {
	t.Parallel()

	researcher := &fakeResearcher{}
	s, _ := newTestSession(t, researcher)

	_, err := s.Invoke(context.Background(), contractx.ActionCall{
		Name:      contractx.ActionResearch,
		Arguments: map[string]any{"topic": "ai"},
	})
	var verr *actionx.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if got := verr.Arguments(); len(got) != 1 || got[0] != "topic" {
		t.Fatalf("unexpected offending arguments: %v", got)
	}
	if researcher.calls.Load() != 0 {
		t.Fatal("research adapter must not be called")
	}
}

func TestResearchBlankTopicRejectedBeforeAdapter(t *testing.T) {
	t.Parallel()

	researcher := &fakeResearcher{}
	s, _ := newTestSession(t, researcher)

	_, err := s.Invoke(context.Background(), contractx.ActionCall{
		Name:      contractx.ActionResearch,
		Arguments: map[string]any{"topic": "       "},
	})
	var verr *actionx.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if researcher.calls.Load() != 0 {
		t.Fatal("research adapter must not be called")
	}
}

func TestResearchReturnsText(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession(t, &fakeResearcher{})
	out := invoke(t, s, contractx.ActionResearch, map[string]any{"topic": "quantum computing"})
	if out != "notes about quantum computing" {
		t.Fatalf("unexpected research output: %#v", out)
	}
}

func TestResearchFailureIsHandlerError(t *testing.T) {
	t.Parallel()

	cause := errors.New("backend down")
	s, _ := newTestSession(t, &fakeResearcher{err: cause})

	_, err := s.Invoke(context.Background(), contractx.ActionCall{
		Name:      contractx.ActionResearch,
		Arguments: map[string]any{"topic": "quantum computing"},
	})
	for _, target := range []error{contractx.ErrHandler, contractx.ErrResearchFailure, cause} {
		if !errors.Is(err, target) {
			t.Fatalf("errors.Is(%v, %v) = false", err, target)
		}
	}
}

func TestResearchDoesNotHoldDocumentLock(t *testing.T) {
	t.Parallel()

	researcher := &fakeResearcher{release: make(chan struct{})}
	s, _ := newTestSession(t, researcher)

	done := make(chan error, 1)
	go func() {
		_, err := s.Invoke(context.Background(), contractx.ActionCall{
			Name:      contractx.ActionResearch,
			Arguments: map[string]any{"topic": "quantum computing"},
		})
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for researcher.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("research never started")
		}
		time.Sleep(time.Millisecond)
	}

	invoke(t, s, contractx.ActionAppendSlide, slideArgs("A", "B", "c", "d"))
	close(researcher.release)
	if err := <-done; err != nil {
		t.Fatalf("research error = %v", err)
	}
}

func TestDeleteSlide(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession(t, &fakeResearcher{})

	_, err := s.Invoke(context.Background(), contractx.ActionCall{Name: contractx.ActionDeleteSlide})
	if !errors.Is(err, deckx.ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
	if s.View().Slides[0] != deckx.DefaultSeed() {
		t.Fatal("failed delete must leave the document unchanged")
	}

	invoke(t, s, contractx.ActionAppendSlide, slideArgs("A", "B", "c", "d"))
	if _, err := s.Navigate(context.Background(), 1); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	invoke(t, s, contractx.ActionDeleteSlide, nil)

	view := s.View()
	if len(view.Slides) != 1 || view.Current != 0 || view.Slides[0] != deckx.DefaultSeed() {
		t.Fatalf("unexpected view after delete: %#v", view)
	}
}

func TestNavigateClampsAndRepublishes(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession(t, &fakeResearcher{})
	invoke(t, s, contractx.ActionAppendSlide, slideArgs("A", "B", "c", "d"))

	index, err := s.Navigate(context.Background(), 10)
	if err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if index != 1 {
		t.Fatalf("index = %d, want 1", index)
	}
	if current := decodeContext[deckx.Slide](t, s, readablex.LabelCurrentSlide); current.Title != "A" {
		t.Fatalf("current slide context = %#v", current)
	}

	if index, _ := s.Navigate(context.Background(), -10); index != 0 {
		t.Fatalf("index = %d, want 0", index)
	}
}

func TestGenerateInsertsAfterCurrent(t *testing.T) {
	t.Parallel()

	s, composer := newTestSession(t, &fakeResearcher{})
	invoke(t, s, contractx.ActionAppendSlide, slideArgs("Ocean currents", "B", "c", "d"))

	if _, err := s.Generate(context.Background()); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := s.Task().Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if st.State != taskx.StateSucceeded || st.Inserted == nil || *st.Inserted != 1 {
		t.Fatalf("unexpected status: %#v", st)
	}

	view := s.View()
	if len(view.Slides) != 3 || view.Slides[1].Title != "Deep dive: "+deckx.DefaultSeed().Title {
		t.Fatalf("unexpected slides: %#v", view.Slides)
	}
	if view.Slides[2].Title != "Ocean currents" {
		t.Fatal("existing slides must keep their order")
	}

	if len(composer.reqs) != 1 || len(composer.reqs[0].Presentation) != 2 {
		t.Fatalf("composer saw %#v", composer.reqs)
	}
	if composer.reqs[0].Research != "notes about "+deckx.DefaultSeed().Title {
		t.Fatalf("composer research = %q", composer.reqs[0].Research)
	}
}

func TestGenerateSingleFlight(t *testing.T) {
	t.Parallel()

	researcher := &fakeResearcher{release: make(chan struct{})}
	s, _ := newTestSession(t, researcher)

	if _, err := s.Generate(context.Background()); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := s.Generate(context.Background()); !errors.Is(err, contractx.ErrAlreadyRunning) {
		t.Fatalf("second Generate() error = %v, want ErrAlreadyRunning", err)
	}
	close(researcher.release)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.Task().Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got := len(s.View().Slides); got != 2 {
		t.Fatalf("document has %d slides, want 2", got)
	}
}

func TestCloseDuringGenerateDiscardsResult(t *testing.T) {
	t.Parallel()

	researcher := &fakeResearcher{release: make(chan struct{})}
	sink := &memorySink{}
	s, _ := newTestSession(t, researcher, WithSink(sink))

	if _, err := s.Generate(context.Background()); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := s.Task().Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if !errors.Is(st.Err, contractx.ErrSessionClosed) {
		t.Fatalf("status err = %v, want ErrSessionClosed", st.Err)
	}
	if got := len(s.View().Slides); got != 1 {
		t.Fatalf("document has %d slides, want 1", got)
	}
	if !sink.cleared {
		t.Fatal("mirrored context must be cleared on close")
	}

	if _, err := s.Invoke(context.Background(), contractx.ActionCall{Name: contractx.ActionAppendSlide, Arguments: slideArgs("A", "B", "c", "d")}); !errors.Is(err, contractx.ErrSessionClosed) {
		t.Fatalf("Invoke() after close error = %v", err)
	}
}

func TestSinkReceivesPublishedContext(t *testing.T) {
	t.Parallel()

	sink := &memorySink{}
	s, _ := newTestSession(t, &fakeResearcher{}, WithSink(sink))
	invoke(t, s, contractx.ActionAppendSlide, slideArgs("A", "B", "c", "d"))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.entries[readablex.LabelAllSlides] != s.Context()[readablex.LabelAllSlides] {
		t.Fatal("sink and local context diverged")
	}
}

func TestComposeSlideActionIsPure(t *testing.T) {
	t.Parallel()

	s, composer := newTestSession(t, &fakeResearcher{})
	out := invoke(t, s, contractx.ActionComposeSlide, map[string]any{
		"topic":    "quantum computing",
		"research": "notes",
		"presentation": []any{
			map[string]any{"title": "Intro", "content": "x"},
		},
	})
	slide, ok := out.(deckx.Slide)
	if !ok || slide.Title != "Deep dive: quantum computing" {
		t.Fatalf("unexpected compose output: %#v", out)
	}
	if len(composer.reqs[0].Presentation) != 1 || composer.reqs[0].Presentation[0].Title != "Intro" {
		t.Fatalf("presentation not decoded: %#v", composer.reqs[0].Presentation)
	}
	if len(s.View().Slides) != 1 {
		t.Fatal("composeSlide must not change the document")
	}
}

func TestComposeSlideMalformedPresentationIsValidationError(t *testing.T) {
	t.Parallel()

	s, composer := newTestSession(t, &fakeResearcher{})
	_, err := s.Invoke(context.Background(), contractx.ActionCall{
		Name: contractx.ActionComposeSlide,
		Arguments: map[string]any{
			"topic":        "quantum computing",
			"research":     "notes",
			"presentation": []any{"x"},
		},
	})
	var verr *actionx.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if errors.Is(err, contractx.ErrHandler) {
		t.Fatalf("malformed arguments must not be reported as a handler failure: %v", err)
	}
	if got := verr.Arguments(); len(got) != 1 || got[0] != "presentation" {
		t.Fatalf("unexpected offending arguments: %v", got)
	}
	if len(composer.reqs) != 0 {
		t.Fatal("composer must not be called")
	}
}

func TestWithSeed(t *testing.T) {
	t.Parallel()

	seed := deckx.Slide{Title: "Custom", Content: "Start"}
	s, _ := newTestSession(t, &fakeResearcher{}, WithSeed(seed))
	if got := s.Snapshot().Deck.Slides; len(got) != 1 || got[0] != seed {
		t.Fatalf("unexpected seed: %#v", got)
	}
}
