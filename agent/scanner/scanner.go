package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/chative-crm-assistant/agent/contract"
	statex "github.com/tanpawarit/chative-crm-assistant/agent/state"
)

var ErrInvalidWindow = errors.New("scan window must be positive")

const DefaultConversationLimit = 1000

type Config struct {
	ConversationLimit int
	Now               func() time.Time
}

// Scanner finds conversations with recent activity and loads their history.
// It never writes to the messaging backend.
type Scanner struct {
	messenger contractx.Messenger
	limit     int
	now       func() time.Time
}

func New(messenger contractx.Messenger, cfg Config) (*Scanner, error) {
	if messenger == nil {
		return nil, errors.New("messenger is required")
	}
	limit := cfg.ConversationLimit
	if limit <= 0 {
		limit = DefaultConversationLimit
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Scanner{messenger: messenger, limit: limit, now: now}, nil
}

// Scan returns every conversation whose last activity falls in
// [now-window, now], keyed by conversation id, each with its full history.
func (s *Scanner) Scan(ctx context.Context, window time.Duration) (map[string]statex.Conversation, error) {
	if window <= 0 {
		return map[string]statex.Conversation{}, fmt.Errorf("%w: %s", ErrInvalidWindow, window)
	}

	now := s.now()
	from := now.Add(-window)

	convs, err := s.messenger.ListConversations(ctx, s.limit)
	if err != nil {
		return map[string]statex.Conversation{}, fmt.Errorf("%w: list conversations: %w", contractx.ErrBackendUnavailable, err)
	}

	out := make(map[string]statex.Conversation)
	for _, conv := range convs {
		if conv.ID == "" || !inWindow(conv.LastActivity, from, now) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}

		msgs, err := s.messenger.ListMessages(ctx, conv.ID, -1, false)
		if err != nil {
			log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("scanner: skip conversation, history unavailable")
			continue
		}
		if len(msgs) == 0 {
			continue
		}
		conv.Messages = msgs
		out[conv.ID] = conv
	}

	log.Debug().
		Int("listed", len(convs)).
		Int("active", len(out)).
		Dur("window", window).
		Msg("scanner: scan complete")
	return out, nil
}

func inWindow(at, from, to time.Time) bool {
	if at.IsZero() {
		return false
	}
	return !at.Before(from) && !at.After(to)
}

// WindowMinutes converts the operator-facing minute count into a window.
func WindowMinutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}
