package runner

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/chative-crm-assistant/agent/contract"
	statex "github.com/tanpawarit/chative-crm-assistant/agent/state"
)

const (
	CommandReset = "/reset"
	CommandScan  = "/scan"
	CommandQuit  = "/quit"
)

type ConsoleLoopConfig struct {
	Prompt string
	Now    func() time.Time
	// Trigger starts an immediate scan; nil when no scan loop runs.
	Trigger func() bool
}

// ConsoleLoop feeds operator input into one long-lived console interaction.
type ConsoleLoop struct {
	in      io.Reader
	handler Handler
	printer *Printer
	stats   *Stats

	prompt  string
	now     func() time.Time
	trigger func() bool

	interaction *statex.Interaction
}

func NewConsoleLoop(in io.Reader, handler Handler, printer *Printer, stats *Stats, cfg ConsoleLoopConfig) (*ConsoleLoop, error) {
	if in == nil {
		return nil, errors.New("input reader is required")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if stats == nil {
		stats = &Stats{}
	}
	return &ConsoleLoop{
		in:          in,
		handler:     handler,
		printer:     printer,
		stats:       stats,
		prompt:      cfg.Prompt,
		now:         cfg.Now,
		trigger:     cfg.Trigger,
		interaction: statex.NewInteraction(statex.SourceConsole, "", "", cfg.Now()),
	}, nil
}

func (l *ConsoleLoop) Interaction() *statex.Interaction {
	return l.interaction
}

// Run reads lines until EOF, /quit or ctx cancellation.
func (l *ConsoleLoop) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(l.in)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		if l.prompt != "" {
			l.printer.write(l.prompt)
		}

		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			select {
			case err := <-readErr:
				if err != nil {
					return err
				}
			default:
			}
			log.Info().Msg("console loop: input closed")
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isCommand(line) {
			if l.command(line) {
				return nil
			}
			continue
		}

		l.stats.consoleInputs.Add(1)
		l.interaction.Append(statex.UserEntry(line))
		res, err := l.handler.Handle(ctx, l.interaction)
		switch {
		case errors.Is(err, contractx.ErrPersist):
			l.stats.persistErrors.Add(1)
			log.Error().Err(err).Msg("console loop: transcript append failed")
			l.printer.Line("transcript not saved: %v", err)
		case err != nil:
			log.Error().Err(err).Msg("console loop: dispatch failed")
			l.printer.Line("error: %v", err)
			continue
		}
		l.stats.recordDispatch(res)
		l.printer.Result(res)
	}
}

func isCommand(line string) bool {
	switch line {
	case CommandReset, CommandScan, CommandQuit:
		return true
	}
	return false
}

// command handles the built-in operator commands. It reports whether the
// loop should stop.
func (l *ConsoleLoop) command(line string) bool {
	switch line {
	case CommandQuit:
		log.Info().Msg("console loop: quit requested")
		return true
	case CommandReset:
		l.interaction.Reset()
		l.printer.Line("console history cleared")
	case CommandScan:
		if l.trigger == nil {
			l.printer.Line("scanning is disabled")
		} else if l.trigger() {
			l.printer.Line("scan requested")
		} else {
			l.printer.Line("scan already pending")
		}
	}
	return false
}
