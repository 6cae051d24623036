package generatenode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/slide-copilot/agent/contract"
)

func Insert(
	ctx context.Context,
	in *GraphState,
	gate contractx.DeckGate,
) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if err := ctx.Err(); err != nil {
		return GraphOutput{}, err
	}

	index, err := gate.InsertAfterCurrent(ctx, in.Slide)
	if err != nil {
		return GraphOutput{}, err
	}
	in.Inserted = index

	return GraphOutput{
		RunID:    in.RunID,
		Topic:    in.Topic,
		Slide:    in.Slide,
		Inserted: index,
	}, nil
}
