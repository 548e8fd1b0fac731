// Package ark builds a Volcengine Ark chat model as an alternative backend
// for both agents.
package ark

import (
	"context"
	"fmt"
	"strings"

	arkmodel "github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

type Config struct {
	BaseURL     string   `envconfig:"BASE_URL" split_words:"true" default:"https://ark.cn-beijing.volces.com/api/v3"`
	Region      string   `envconfig:"REGION" split_words:"true" default:"cn-beijing"`
	APIKey      string   `envconfig:"API_KEY" split_words:"true"`
	AccessKey   string   `envconfig:"ACCESS_KEY" split_words:"true"`
	SecretKey   string   `envconfig:"SECRET_KEY" split_words:"true"`
	Model       string   `envconfig:"MODEL" split_words:"true"`
	MaxTokens   *int     `envconfig:"MAX_TOKENS" split_words:"true"`
	Temperature *float32 `envconfig:"TEMPERATURE" split_words:"true"`
	TopP        *float32 `envconfig:"TOP_P" split_words:"true"`
}

// Configured reports whether enough credentials are present to build a model.
func (c Config) Configured() bool {
	if strings.TrimSpace(c.Model) == "" {
		return false
	}
	if strings.TrimSpace(c.APIKey) != "" {
		return true
	}
	return strings.TrimSpace(c.AccessKey) != "" && strings.TrimSpace(c.SecretKey) != ""
}

// WithModel returns a copy targeting another endpoint id, keeping credentials.
func (c Config) WithModel(name string, temperature *float32) Config {
	out := c
	if v := strings.TrimSpace(name); v != "" {
		out.Model = v
	}
	if temperature != nil {
		t := *temperature
		out.Temperature = &t
	}
	return out
}

func (c *Config) New(ctx context.Context) (model.ToolCallingChatModel, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("ark: model and credentials are required")
	}

	cfg := &arkmodel.ChatModelConfig{
		BaseURL:     strings.TrimRight(c.BaseURL, "/"),
		Region:      c.Region,
		APIKey:      strings.TrimSpace(c.APIKey),
		AccessKey:   strings.TrimSpace(c.AccessKey),
		SecretKey:   strings.TrimSpace(c.SecretKey),
		Model:       strings.TrimSpace(c.Model),
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		TopP:        c.TopP,
	}

	m, err := arkmodel.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ark: create chat model: %w", err)
	}
	return m, nil
}
