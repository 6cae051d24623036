package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/slide-copilot/agent/contract"
	openrouterx "github.com/tanpawarit/slide-copilot/pkg/openrouter"
)

// Role names the model consumer a config is resolved for.
type Role string

const (
	RoleResearch Role = "research"
	RoleCompose  Role = "compose"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	ResearchModel       string  `envconfig:"RESEARCH_MODEL" split_words:"true"`
	ComposeModel        string  `envconfig:"COMPOSE_MODEL" split_words:"true"`
	ResearchTemperature float32 `envconfig:"RESEARCH_TEMPERATURE" split_words:"true" default:"-1"`
	ComposeTemperature  float32 `envconfig:"COMPOSE_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenRouterFor resolves the model and temperature for role, falling back to
// the defaults when no role override is set.
func (c Config) OpenRouterFor(role Role) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch role {
	case RoleResearch:
		if v := strings.TrimSpace(c.ResearchModel); v != "" {
			modelName = v
		}
		if c.ResearchTemperature >= 0 {
			temp = c.ResearchTemperature
		}
	case RoleCompose:
		if v := strings.TrimSpace(c.ComposeModel); v != "" {
			modelName = v
		}
		if c.ComposeTemperature >= 0 {
			temp = c.ComposeTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
