package session

import (
	"context"
	"fmt"

	actionx "github.com/tanpawarit/slide-copilot/agent/action"
	contractx "github.com/tanpawarit/slide-copilot/agent/contract"
	deckx "github.com/tanpawarit/slide-copilot/agent/deck"
)

// MutationResult reports where a mutating action left the document.
type MutationResult struct {
	Index   int `json:"index"`
	Current int `json:"current"`
	Length  int `json:"length"`
}

type composeArgs struct {
	Topic        string        `mapstructure:"topic"`
	Research     string        `mapstructure:"research"`
	Presentation []deckx.Slide `mapstructure:"presentation"`
}

func slideArguments() []actionx.ArgumentSpec {
	return []actionx.ArgumentSpec{
		{Name: "title", Type: actionx.ArgString, Required: true, Description: "The title of the slide."},
		{Name: "content", Type: actionx.ArgString, Required: true, Description: "The text content of the slide."},
		{Name: "backgroundImageDescription", Type: actionx.ArgString, Required: true, Description: "What to display in the background of the slide, e.g. 'dog' or 'house'."},
		{Name: "spokenNarration", Type: actionx.ArgString, Required: true, Description: "The text to read while presenting the slide."},
	}
}

func (s *Session) registerActions() error {
	descriptors := []actionx.Descriptor{
		{
			Name:        contractx.ActionResearch,
			Description: "Research a topic to gather information for the presentation.",
			Arguments: []actionx.ArgumentSpec{
				{Name: "topic", Type: actionx.ArgString, Required: true, MinLength: contractx.MinTopicLength, Description: "The topic to research."},
			},
			Handler: s.handleResearch,
		},
		{
			Name:        contractx.ActionAppendSlide,
			Description: "Add a slide after all the existing slides. Call this for every slide you want to add.",
			Arguments:   slideArguments(),
			Handler:     actionx.Typed(s.handleAppendSlide),
		},
		{
			Name:        contractx.ActionUpdateSlide,
			Description: "Update the current slide, overwriting all of its fields.",
			Arguments:   slideArguments(),
			Handler:     actionx.Typed(s.handleUpdateSlide),
		},
		{
			Name:        contractx.ActionDeleteSlide,
			Description: "Delete the current slide. Only possible once more than one slide exists.",
			Handler:     s.handleDeleteSlide,
		},
		{
			Name:        contractx.ActionComposeSlide,
			Description: "Write one new slide about a topic from research notes, fitting the existing presentation. Does not change the deck.",
			Arguments: []actionx.ArgumentSpec{
				{Name: "topic", Type: actionx.ArgString, Required: true, Description: "What the new slide is about."},
				{Name: "research", Type: actionx.ArgString, Required: true, Description: "Research notes to base the slide on."},
				{Name: "presentation", Type: actionx.ArgArray, Description: "The existing slides, in order."},
			},
			Handler: actionx.Typed(s.handleComposeSlide),
		},
	}

	for _, d := range descriptors {
		if err := s.registry.Register(d); err != nil {
			return fmt.Errorf("register action %s: %w", d.Name, err)
		}
	}
	return nil
}

// handleResearch runs without the document lock; research can take a while
// and other actions stay available meanwhile.
func (s *Session) handleResearch(ctx context.Context, args actionx.Args) (any, error) {
	result, err := s.researcher.Research(ctx, args.String("topic"))
	if err != nil {
		return nil, err
	}
	return result.Text, nil
}

func (s *Session) handleAppendSlide(ctx context.Context, slide deckx.Slide) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, contractx.ErrSessionClosed
	}
	index := s.doc.Append(slide)
	s.publishLocked(ctx)
	return s.mutationLocked(index), nil
}

func (s *Session) handleUpdateSlide(ctx context.Context, slide deckx.Slide) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, contractx.ErrSessionClosed
	}
	index := s.doc.CurrentIndex()
	if err := s.doc.UpdateAt(index, deckx.FullPatch(slide)); err != nil {
		return nil, err
	}
	s.publishLocked(ctx)
	return s.mutationLocked(index), nil
}

func (s *Session) handleDeleteSlide(ctx context.Context, _ actionx.Args) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, contractx.ErrSessionClosed
	}
	index := s.doc.CurrentIndex()
	if err := s.doc.DeleteAt(index); err != nil {
		return nil, err
	}
	s.publishLocked(ctx)
	return s.mutationLocked(index), nil
}

func (s *Session) handleComposeSlide(ctx context.Context, in composeArgs) (any, error) {
	return s.composer.Compose(ctx, contractx.ComposeRequest{
		Topic:        in.Topic,
		Research:     in.Research,
		Presentation: in.Presentation,
	})
}

func (s *Session) mutationLocked(index int) MutationResult {
	return MutationResult{
		Index:   index,
		Current: s.doc.CurrentIndex(),
		Length:  s.doc.Len(),
	}
}
