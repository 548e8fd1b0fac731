package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/chative-crm-assistant/agent/contract"
	arkx "github.com/tanpawarit/chative-crm-assistant/pkg/ark"
	openrouterx "github.com/tanpawarit/chative-crm-assistant/pkg/openrouter"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderArk        = "ark"
)

type Config struct {
	Provider string `envconfig:"PROVIDER" split_words:"true" default:"openrouter"`

	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"openai/gpt-4.1-mini"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"4000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.2"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	CRMModel         string  `envconfig:"CRM_MODEL" split_words:"true"`
	EventModel       string  `envconfig:"EVENT_MODEL" split_words:"true"`
	CRMTemperature   float32 `envconfig:"CRM_TEMPERATURE" split_words:"true" default:"-1"`
	EventTemperature float32 `envconfig:"EVENT_TEMPERATURE" split_words:"true" default:"-1"`

	// MaxSteps caps the agent loop. A model turn and a tool round count as
	// one step each.
	MaxSteps     int           `envconfig:"MAX_STEPS" split_words:"true" default:"25"`
	AgentTimeout time.Duration `envconfig:"AGENT_TIMEOUT" split_words:"true" default:"5m"`
}

func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case ProviderOpenRouter:
		if strings.TrimSpace(c.APIKey) == "" {
			return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
		}
		if strings.TrimSpace(c.Model) == "" {
			return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
		}
	case ProviderArk:
	default:
		return fmt.Errorf("%w: unknown llm provider %q", contractx.ErrValidation, c.Provider)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("%w: max steps must be positive", contractx.ErrValidation)
	}
	if c.AgentTimeout <= 0 {
		return fmt.Errorf("%w: agent timeout must be positive", contractx.ErrValidation)
	}
	return nil
}

func (c Config) UsesArk() bool {
	return strings.EqualFold(strings.TrimSpace(c.Provider), ProviderArk)
}

// overrides returns the per-agent model name and temperature, empty and nil
// when the agent uses the defaults.
func (c Config) overrides(agentType contractx.AgentType) (string, *float32) {
	var (
		name string
		temp float32 = -1
	)
	switch agentType {
	case contractx.AgentTypeCRM:
		name, temp = c.CRMModel, c.CRMTemperature
	case contractx.AgentTypeEvent:
		name, temp = c.EventModel, c.EventTemperature
	}
	if temp < 0 {
		return strings.TrimSpace(name), nil
	}
	return strings.TrimSpace(name), &temp
}

func (c Config) OpenRouterFor(agentType contractx.AgentType) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	name, override := c.overrides(agentType)
	if name != "" {
		modelName = name
	}
	if override != nil {
		temp = *override
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

// BuilderFor picks the model backend for one agent.
func (c Config) BuilderFor(agentType contractx.AgentType, ark arkx.Config) openrouterx.LLMBuilder {
	if c.UsesArk() {
		name, temp := c.overrides(agentType)
		arkCfg := ark.WithModel(name, temp)
		return &arkCfg
	}
	orCfg := c.OpenRouterFor(agentType)
	return &orCfg
}
