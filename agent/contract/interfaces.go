package contract

import (
	"context"

	deckx "github.com/tanpawarit/slide-copilot/agent/deck"
)

// Researcher gathers information about a topic from an external backend.
// Latency and backend identity are opaque to callers.
type Researcher interface {
	Research(ctx context.Context, topic string) (ResearchResult, error)
}

// Composer turns research into a slide.
type Composer interface {
	Compose(ctx context.Context, req ComposeRequest) (deckx.Slide, error)
}

// ActionInvoker dispatches a validated action call.
type ActionInvoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) (any, error)
}

// DeckGate is the serialized access path to a session's document for work
// that runs outside an action invocation.
type DeckGate interface {
	View() DeckView
	InsertAfterCurrent(ctx context.Context, slide deckx.Slide) (int, error)
}
