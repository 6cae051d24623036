package generatenode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/slide-copilot/agent/contract"
	deckx "github.com/tanpawarit/slide-copilot/agent/deck"
)

// Compose asks the composeSlide action for the next slide so composition goes
// through the same validation path as agent-initiated calls.
func Compose(
	ctx context.Context,
	in *GraphState,
	actions contractx.ActionInvoker,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	presentation := make([]any, 0, len(in.Presentation))
	for _, s := range in.Presentation {
		presentation = append(presentation, slideArgument(s))
	}

	out, err := actions.Invoke(ctx, contractx.ActionComposeSlide, map[string]any{
		"topic":        in.Topic,
		"research":     in.Research.Text,
		"presentation": presentation,
	})
	if err != nil {
		return nil, err
	}

	slide, ok := out.(deckx.Slide)
	if !ok {
		return nil, fmt.Errorf("%w: %s returned %T", contractx.ErrSchemaViolation, contractx.ActionComposeSlide, out)
	}
	in.Slide = slide
	return in, nil
}

func slideArgument(s deckx.Slide) map[string]any {
	return map[string]any{
		"title":                      s.Title,
		"content":                    s.Content,
		"backgroundImageDescription": s.BackgroundImageDescription,
		"spokenNarration":            s.SpokenNarration,
	}
}
