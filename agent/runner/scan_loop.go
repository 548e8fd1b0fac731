package runner

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/chative-crm-assistant/agent/contract"
	statex "github.com/tanpawarit/chative-crm-assistant/agent/state"
)

type ConversationScanner interface {
	Scan(ctx context.Context, window time.Duration) (map[string]statex.Conversation, error)
}

type ScanLoopConfig struct {
	Interval time.Duration
	Window   time.Duration
	Now      func() time.Time
	// After defaults to time.After.
	After func(time.Duration) <-chan time.Time
}

// ScanLoop periodically scans for active conversations and dispatches each
// one in its own interaction.
type ScanLoop struct {
	scanner ConversationScanner
	handler Handler
	printer *Printer
	stats   *Stats

	interval time.Duration
	window   time.Duration
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time

	trigger chan struct{}
}

func NewScanLoop(scanner ConversationScanner, handler Handler, printer *Printer, stats *Stats, cfg ScanLoopConfig) (*ScanLoop, error) {
	if scanner == nil {
		return nil, errors.New("scanner is required")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.Window <= 0 {
		cfg.Window = 10 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.After == nil {
		cfg.After = time.After
	}
	if stats == nil {
		stats = &Stats{}
	}

	return &ScanLoop{
		scanner:  scanner,
		handler:  handler,
		printer:  printer,
		stats:    stats,
		interval: cfg.Interval,
		window:   cfg.Window,
		now:      cfg.Now,
		after:    cfg.After,
		trigger:  make(chan struct{}, 1),
	}, nil
}

// Trigger asks for an immediate cycle. It reports false if one is already pending.
func (l *ScanLoop) Trigger() bool {
	select {
	case l.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run scans until ctx is cancelled. Cancellation is a clean exit.
func (l *ScanLoop) Run(ctx context.Context) error {
	log.Info().Dur("interval", l.interval).Dur("window", l.window).Msg("scan loop: started")
	for {
		l.Cycle(ctx)

		select {
		case <-ctx.Done():
			log.Info().Msg("scan loop: stopped")
			return nil
		case <-l.after(l.interval):
		case <-l.trigger:
			log.Info().Msg("scan loop: manual trigger")
		}
	}
}

// Cycle runs one scan and dispatches every active conversation, most recent
// activity first. It returns the number of conversations dispatched.
func (l *ScanLoop) Cycle(ctx context.Context) int {
	l.stats.scanCycles.Add(1)
	l.stats.lastScan.Store(l.now().UnixNano())

	convs, err := l.scanner.Scan(ctx, l.window)
	if err != nil {
		l.stats.scanFailures.Add(1)
		log.Error().Err(err).Msg("scan loop: scan failed, retrying next cycle")
	}
	if len(convs) == 0 {
		return 0
	}

	ordered := make([]statex.Conversation, 0, len(convs))
	for _, c := range convs {
		ordered = append(ordered, c)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].LastActivity.Equal(ordered[j].LastActivity) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].LastActivity.After(ordered[j].LastActivity)
	})

	dispatched := 0
	for _, conv := range ordered {
		if ctx.Err() != nil {
			break
		}
		l.stats.conversations.Add(1)

		it := statex.NewConversationInteraction(conv, l.now())
		res, err := l.handler.Handle(ctx, it)
		switch {
		case errors.Is(err, contractx.ErrPersist):
			l.stats.persistErrors.Add(1)
			log.Error().Err(err).Str("conversation_id", conv.ID).Msg("scan loop: transcript append failed")
			l.printer.Line("transcript not saved for %s: %v", conv.ID, err)
		case err != nil:
			log.Error().Err(err).Str("conversation_id", conv.ID).Msg("scan loop: dispatch failed")
			continue
		}

		dispatched++
		l.stats.recordDispatch(res)
		l.printer.Result(res)
		log.Info().
			Str("conversation_id", conv.ID).
			Str("interaction_id", res.InteractionID).
			Bool("crm_failed", res.CRM.Failed()).
			Bool("event_failed", res.Event.Failed()).
			Msg("scan loop: conversation processed")
	}
	return dispatched
}
