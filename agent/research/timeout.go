package research

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/slide-copilot/agent/contract"
)

// WithTimeout bounds every call to next by timeout and reports any failure,
// a timeout included, as contract.ErrResearchFailure. It never retries.
// A non-positive timeout only applies the failure wrapping.
func WithTimeout(next contractx.Researcher, timeout time.Duration) contractx.Researcher {
	if next == nil {
		return nil
	}
	return &timeoutResearcher{
		next:    next,
		timeout: timeout,
	}
}

type timeoutResearcher struct {
	next    contractx.Researcher
	timeout time.Duration
}

func (t *timeoutResearcher) Research(ctx context.Context, topic string) (contractx.ResearchResult, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	started := time.Now()
	result, err := t.next.Research(ctx, topic)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		log.Warn().Str("topic", topic).Dur("elapsed", time.Since(started)).Err(err).Msg("research failed")
		return contractx.ResearchResult{}, fmt.Errorf("%w: topic=%q: %w", contractx.ErrResearchFailure, topic, err)
	}
	return result, nil
}
