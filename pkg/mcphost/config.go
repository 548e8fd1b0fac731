package mcphost

import (
	"errors"
	"strings"
	"time"
)

const (
	ServerWhatsApp = "whatsapp"
	ServerCalendar = "google-calendar"
	ServerMaps     = "google-maps"
)

// ServerConfig describes one stdio MCP server process.
type ServerConfig struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string
}

type Config struct {
	WhatsAppCommand string   `envconfig:"WHATSAPP_COMMAND" default:"uv"`
	WhatsAppArgs    []string `envconfig:"WHATSAPP_ARGS" default:"--directory,whatsapp-mcp/whatsapp_mcp_server,run,main.py"`

	CalendarEnabled bool     `envconfig:"CALENDAR_ENABLED" default:"true"`
	CalendarCommand string   `envconfig:"CALENDAR_COMMAND" default:"node"`
	CalendarArgs    []string `envconfig:"CALENDAR_ARGS" default:"google-calendar-mcp/build/index.js"`

	MapsEnabled bool     `envconfig:"MAPS_ENABLED" default:"true"`
	MapsCommand string   `envconfig:"MAPS_COMMAND" default:"npx"`
	MapsArgs    []string `envconfig:"MAPS_ARGS" default:"-y,@modelcontextprotocol/server-google-maps"`
	MapsAPIKey  string   `envconfig:"GOOGLE_MAPS_API_KEY" required:"true"`

	ToolTimeout  time.Duration `envconfig:"TOOL_TIMEOUT" default:"60s"`
	StartTimeout time.Duration `envconfig:"START_TIMEOUT" default:"30s"`
	ClientName   string        `envconfig:"CLIENT_NAME" default:"crm-assistant"`
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.WhatsAppCommand) == "" {
		return errors.New("whatsapp server command is required")
	}
	if strings.TrimSpace(c.MapsAPIKey) == "" {
		return errors.New("GOOGLE_MAPS_API_KEY is required")
	}
	if c.ToolTimeout <= 0 {
		return errors.New("tool timeout must be positive")
	}
	if c.StartTimeout <= 0 {
		return errors.New("start timeout must be positive")
	}
	return nil
}

// Servers lists the enabled servers, messaging first.
func (c Config) Servers() []ServerConfig {
	out := []ServerConfig{{
		Name:    ServerWhatsApp,
		Command: strings.TrimSpace(c.WhatsAppCommand),
		Args:    trimArgs(c.WhatsAppArgs),
	}}

	if c.CalendarEnabled {
		out = append(out, ServerConfig{
			Name:    ServerCalendar,
			Command: strings.TrimSpace(c.CalendarCommand),
			Args:    trimArgs(c.CalendarArgs),
		})
	}

	if c.MapsEnabled {
		out = append(out, ServerConfig{
			Name:    ServerMaps,
			Command: strings.TrimSpace(c.MapsCommand),
			Args:    trimArgs(c.MapsArgs),
			Env:     map[string]string{"GOOGLE_MAPS_API_KEY": strings.TrimSpace(c.MapsAPIKey)},
		})
	}

	return out
}

func trimArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
