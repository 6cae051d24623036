package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/slide-copilot/agent/contract"
)

var (
	//go:embed template/research.txt
	researchRaw string

	//go:embed template/compose.txt
	composeRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Research string
	Compose  string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Research: strings.TrimSpace(researchRaw),
		Compose:  strings.TrimSpace(composeRaw),
	}
}

func (p PromptSet) Validate() error {
	if p.Research == "" {
		return fmt.Errorf("%w: research", contractx.ErrPromptMissing)
	}
	if p.Compose == "" {
		return fmt.Errorf("%w: compose", contractx.ErrPromptMissing)
	}
	return nil
}
