package contract

import (
	deckx "github.com/tanpawarit/slide-copilot/agent/deck"
)

const (
	ActionResearch     = "research"
	ActionAppendSlide  = "appendSlide"
	ActionUpdateSlide  = "updateSlide"
	ActionDeleteSlide  = "deleteSlide"
	ActionComposeSlide = "composeSlide"
)

// MinTopicLength is the shortest topic the research action accepts.
const MinTopicLength = 5

type ResearchResult struct {
	Topic string `json:"topic"`
	Text  string `json:"text"`
}

type ComposeRequest struct {
	Topic        string        `json:"topic"`
	Research     string        `json:"research"`
	Presentation []deckx.Slide `json:"presentation,omitempty"`
}

// ActionCall is what the agent runtime sends to invoke an action.
type ActionCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ActionResult is the structured outcome returned to the agent runtime.
type ActionResult struct {
	Name     string   `json:"name"`
	Result   any      `json:"result,omitempty"`
	Error    string   `json:"error,omitempty"`
	Problems []string `json:"problems,omitempty"`
}

// DeckView is a consistent copy of a document.
type DeckView struct {
	Slides  []deckx.Slide `json:"slides"`
	Current int           `json:"current"`
}

func (v DeckView) CurrentSlide() (deckx.Slide, bool) {
	if v.Current < 0 || v.Current >= len(v.Slides) {
		return deckx.Slide{}, false
	}
	return v.Slides[v.Current], true
}
