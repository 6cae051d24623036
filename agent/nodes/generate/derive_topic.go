package generatenode

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	contractx "github.com/tanpawarit/slide-copilot/agent/contract"
	deckx "github.com/tanpawarit/slide-copilot/agent/deck"
)

var ErrNoCurrentSlide = errors.New("document has no current slide")

type GraphInput struct {
	RunID string
}

type GraphOutput struct {
	RunID    string
	Topic    string
	Slide    deckx.Slide
	Inserted int
}

type GraphState struct {
	RunID string

	Topic        string
	Presentation []deckx.Slide
	Research     contractx.ResearchResult

	Slide    deckx.Slide
	Inserted int
}

// DeriveTopic takes the topic from the current slide's title, falling back
// to title and content together when the title alone is too short.
func DeriveTopic(in GraphInput, gate contractx.DeckGate) (*GraphState, error) {
	view := gate.View()
	current, ok := view.CurrentSlide()
	if !ok {
		return nil, ErrNoCurrentSlide
	}

	topic := TopicFromSlide(current)
	if n := utf8.RuneCountInString(topic); n < contractx.MinTopicLength {
		return nil, fmt.Errorf("%w: derived topic %q has %d characters, need at least %d",
			contractx.ErrValidation, topic, n, contractx.MinTopicLength)
	}

	return &GraphState{
		RunID:        in.RunID,
		Topic:        topic,
		Presentation: view.Slides,
	}, nil
}

func TopicFromSlide(s deckx.Slide) string {
	title := strings.TrimSpace(s.Title)
	if utf8.RuneCountInString(title) >= contractx.MinTopicLength {
		return title
	}
	content := strings.TrimSpace(s.Content)
	switch {
	case title == "":
		return content
	case content == "":
		return title
	default:
		return title + ": " + content
	}
}
