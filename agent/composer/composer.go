package composer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/slide-copilot/agent/contract"
	deckx "github.com/tanpawarit/slide-copilot/agent/deck"
)

var _ contractx.Composer = (*LLMComposer)(nil)

// LLMComposer writes the next slide with a chat model that answers in JSON.
type LLMComposer struct {
	runner compose.Runnable[map[string]any, slideLLMOutput]
}

func NewLLMComposer(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*LLMComposer, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is nil", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: compose", contractx.ErrPromptMissing)
	}

	runner, err := compileComposeGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile compose graph: %v", contractx.ErrModelInvoke, err)
	}
	return &LLMComposer{runner: runner}, nil
}

func (c *LLMComposer) Compose(ctx context.Context, req contractx.ComposeRequest) (deckx.Slide, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return deckx.Slide{}, fmt.Errorf("%w: topic is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(req.Research) == "" {
		return deckx.Slide{}, fmt.Errorf("%w: research is required", contractx.ErrValidation)
	}

	inputBytes, err := json.Marshal(req)
	if err != nil {
		return deckx.Slide{}, fmt.Errorf("%w: marshal compose payload: %v", contractx.ErrValidation, err)
	}

	out, err := c.runner.Invoke(ctx, map[string]any{
		"input": string(inputBytes),
	})
	if err != nil {
		return deckx.Slide{}, fmt.Errorf("%w: compose invoke: %v", contractx.ErrModelInvoke, err)
	}

	slide := deckx.Slide{
		Title:                      strings.TrimSpace(out.Title),
		Content:                    strings.TrimSpace(out.Content),
		BackgroundImageDescription: strings.TrimSpace(out.BackgroundImageDescription),
		SpokenNarration:            strings.TrimSpace(out.SpokenNarration),
	}
	if err := validateSlide(slide, req.Research); err != nil {
		return deckx.Slide{}, err
	}

	log.Debug().
		Str("topic", req.Topic).
		Str("title", slide.Title).
		Int("presentation_len", len(req.Presentation)).
		Msg("slide composed")
	return slide, nil
}

func validateSlide(slide deckx.Slide, research string) error {
	if slide.Title == "" {
		return fmt.Errorf("%w: title is empty", contractx.ErrSchemaViolation)
	}
	if slide.Content == "" {
		return fmt.Errorf("%w: content is empty", contractx.ErrSchemaViolation)
	}
	// The research notes must not be pasted verbatim into the slide body.
	if notes := strings.TrimSpace(research); len(notes) > 0 && slide.Content == notes {
		return fmt.Errorf("%w: content repeats the research notes verbatim", contractx.ErrSchemaViolation)
	}
	return nil
}
