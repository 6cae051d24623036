package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	openaisdk "github.com/openai/openai-go"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/slide-copilot/agent/contract"
)

var ErrEmptyResearch = errors.New("research backend returned no content")

var _ contractx.Researcher = (*OpenAIResearcher)(nil)

// OpenAIResearcher asks an OpenAI-compatible chat completion endpoint to
// research a topic.
type OpenAIResearcher struct {
	client       *openaisdk.Client
	model        string
	systemPrompt string
	temperature  float32
}

func NewOpenAIResearcher(client *openaisdk.Client, model, systemPrompt string, temperature float32) (*OpenAIResearcher, error) {
	if client == nil {
		return nil, errors.New("openai client is required")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, fmt.Errorf("%w: research model is required", contractx.ErrValidation)
	}
	systemPrompt = strings.TrimSpace(systemPrompt)
	if systemPrompt == "" {
		return nil, fmt.Errorf("%w: research", contractx.ErrPromptMissing)
	}
	return &OpenAIResearcher{
		client:       client,
		model:        model,
		systemPrompt: systemPrompt,
		temperature:  temperature,
	}, nil
}

func (r *OpenAIResearcher) Research(ctx context.Context, topic string) (contractx.ResearchResult, error) {
	topic = strings.TrimSpace(topic)
	if n := utf8.RuneCountInString(topic); n < contractx.MinTopicLength {
		return contractx.ResearchResult{}, fmt.Errorf("%w: topic must be at least %d characters, got %d", contractx.ErrValidation, contractx.MinTopicLength, n)
	}

	params := openaisdk.ChatCompletionNewParams{
		Model: r.model,
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(r.systemPrompt),
			openaisdk.UserMessage(topic),
		},
	}
	if r.temperature >= 0 {
		params.Temperature = openaisdk.Float(float64(r.temperature))
	}

	log.Debug().Str("topic", topic).Str("model", r.model).Msg("researching topic")

	completion, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return contractx.ResearchResult{}, fmt.Errorf("%w: research completion: %w", contractx.ErrModelInvoke, err)
	}
	if len(completion.Choices) == 0 {
		return contractx.ResearchResult{}, ErrEmptyResearch
	}

	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return contractx.ResearchResult{}, ErrEmptyResearch
	}

	return contractx.ResearchResult{
		Topic: topic,
		Text:  text,
	}, nil
}
