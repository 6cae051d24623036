package generatenode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/slide-copilot/agent/contract"
)

func Research(
	ctx context.Context,
	in *GraphState,
	researcher contractx.Researcher,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	result, err := researcher.Research(ctx, in.Topic)
	if err != nil {
		return nil, err
	}
	in.Research = result
	return in, nil
}
