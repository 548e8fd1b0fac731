package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/chative-crm-assistant/agent/agents/orchestrator"
	"github.com/tanpawarit/chative-crm-assistant/agent/agents/specialist"
	crmx "github.com/tanpawarit/chative-crm-assistant/agent/crm"
	llmx "github.com/tanpawarit/chative-crm-assistant/agent/llm"
	"github.com/tanpawarit/chative-crm-assistant/agent/runner"
	"github.com/tanpawarit/chative-crm-assistant/agent/scanner"
	toolx "github.com/tanpawarit/chative-crm-assistant/agent/tool"
	transcriptx "github.com/tanpawarit/chative-crm-assistant/agent/transcript"
	arkx "github.com/tanpawarit/chative-crm-assistant/pkg/ark"
	configx "github.com/tanpawarit/chative-crm-assistant/pkg/config"
	_ "github.com/tanpawarit/chative-crm-assistant/pkg/logger/autoload"
	mcphostx "github.com/tanpawarit/chative-crm-assistant/pkg/mcphost"
	openrouterx "github.com/tanpawarit/chative-crm-assistant/pkg/openrouter"
	"github.com/tanpawarit/chative-crm-assistant/pkg/statusapi"

	_ "time/tzdata"
)

const version = "0.1.0"

type AppConfig struct {
	CRMDir            string        `envconfig:"CRM_DIR" default:"crm"`
	TranscriptPath    string        `envconfig:"TRANSCRIPT_PATH" default:"output.txt"`
	ScanEnabled       bool          `envconfig:"SCAN_ENABLED" default:"true"`
	ScanInterval      time.Duration `envconfig:"SCAN_INTERVAL" default:"10m"`
	ScanWindowMinutes int           `envconfig:"SCAN_WINDOW_MINUTES" default:"10"`
	ConversationLimit int           `envconfig:"CONVERSATION_LIMIT" default:"1000"`
	ConsoleEnabled    bool          `envconfig:"CONSOLE_ENABLED" default:"true"`
	StatusAddr        string        `envconfig:"STATUS_ADDR"`
	Timezone          string        `envconfig:"TIMEZONE" default:"Asia/Kolkata"`
}

func (c *AppConfig) Validate() error {
	if !c.ScanEnabled && !c.ConsoleEnabled {
		return errors.New("at least one of scan or console must be enabled")
	}
	if c.ScanWindowMinutes <= 0 {
		return scanner.ErrInvalidWindow
	}
	return nil
}

func main() {
	appCfg := configx.MustNew[AppConfig]("ASSISTANT")
	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	arkCfg := configx.MustNew[arkx.Config]("ARK")
	mcpCfg := configx.MustNew[mcphostx.Config]("MCP")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc := toolx.ReferenceLocation(appCfg.Timezone)
	started := time.Now()

	if !llmCfg.UsesArk() {
		pingCtx, cancel := context.WithTimeout(ctx, llmCfg.Timeout)
		err := openrouterx.Ping(pingCtx, llmCfg.OpenRouterFor(""))
		cancel()
		if err != nil {
			log.Fatal().Err(err).Str("base_url", llmCfg.BaseURL).Msg("model backend unreachable")
		}
	}

	hub := mcphostx.NewHub(mcphostx.StdioDialer(mcpCfg.ClientName, version), mcpCfg.ToolTimeout)
	defer func() {
		if err := hub.Close(); err != nil {
			log.Warn().Err(err).Msg("close mcp servers")
		}
	}()
	for _, srv := range mcpCfg.Servers() {
		connectCtx, cancel := context.WithTimeout(ctx, mcpCfg.StartTimeout)
		err := hub.Connect(connectCtx, srv)
		cancel()
		if err == nil {
			log.Info().Str("server", srv.Name).Msg("mcp server connected")
			continue
		}
		if srv.Name == mcphostx.ServerWhatsApp {
			log.Fatal().Err(err).Msg("whatsapp server is required")
		}
		log.Warn().Err(err).Str("server", srv.Name).Msg("mcp server unavailable, continuing without its tools")
	}

	store, err := crmx.NewFileStore(appCfg.CRMDir)
	if err != nil {
		log.Fatal().Err(err).Msg("open crm store")
	}

	catalog := toolx.NewCatalog()
	if err := toolx.RegisterClockTools(catalog, loc, time.Now); err != nil {
		log.Fatal().Err(err).Msg("register clock tools")
	}
	if err := toolx.RegisterCRMTools(catalog, store); err != nil {
		log.Fatal().Err(err).Msg("register crm tools")
	}
	if err := toolx.RegisterRemoteTools(catalog, hub, hub.Tools()); err != nil {
		log.Fatal().Err(err).Msg("register remote tools")
	}
	log.Info().Strs("tools", catalog.Names()).Msg("tool catalog ready")

	registry, err := specialist.NewRegistry(ctx, *llmCfg, *arkCfg, specialist.Options{
		Tools:    catalog.BaseTools(),
		MaxSteps: llmCfg.MaxSteps,
		Location: loc,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build agents")
	}

	transcript, err := transcriptx.NewFileLog(appCfg.TranscriptPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open transcript")
	}

	orch, err := orchestrator.New(registry, transcript, orchestrator.Config{AgentTimeout: llmCfg.AgentTimeout})
	if err != nil {
		log.Fatal().Err(err).Msg("build orchestrator")
	}

	printer := runner.NewPrinter(os.Stdout)
	stats := &runner.Stats{}

	var wg sync.WaitGroup
	var trigger func() bool

	if appCfg.ScanEnabled {
		sc, err := scanner.New(scanner.NewMCPMessenger(hub, mcphostx.ServerWhatsApp), scanner.Config{
			ConversationLimit: appCfg.ConversationLimit,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("build scanner")
		}
		scanLoop, err := runner.NewScanLoop(sc, orch, printer, stats, runner.ScanLoopConfig{
			Interval: appCfg.ScanInterval,
			Window:   scanner.WindowMinutes(appCfg.ScanWindowMinutes),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("build scan loop")
		}
		trigger = scanLoop.Trigger

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := scanLoop.Run(ctx); err != nil {
				log.Error().Err(err).Msg("scan loop exited")
			}
		}()
	}

	if appCfg.ConsoleEnabled {
		console, err := runner.NewConsoleLoop(os.Stdin, orch, printer, stats, runner.ConsoleLoopConfig{
			Prompt:  "> ",
			Trigger: trigger,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("build console loop")
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := console.Run(ctx); err != nil {
				log.Error().Err(err).Msg("console loop exited")
			}
			// leaving the console ends the process
			stop()
		}()
	}

	if appCfg.StatusAddr != "" {
		router := statusapi.NewRouter(
			func() any { return stats.Snapshot() },
			func() any { return hub.Status() },
			started,
		)
		srv := statusapi.NewServer(appCfg.StatusAddr, router)

		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Str("addr", appCfg.StatusAddr).Msg("status endpoint listening")
			if err := statusapi.Serve(ctx, srv); err != nil {
				log.Error().Err(err).Msg("status endpoint failed")
			}
		}()
	}

	wg.Wait()
	log.Info().Msg("assistant stopped")
}
