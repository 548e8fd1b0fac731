package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	contractx "github.com/tanpawarit/chative-crm-assistant/agent/contract"
	statex "github.com/tanpawarit/chative-crm-assistant/agent/state"
	mcphostx "github.com/tanpawarit/chative-crm-assistant/pkg/mcphost"
)

const (
	toolListChats    = "list_chats"
	toolListMessages = "list_messages"
)

type Caller interface {
	Call(ctx context.Context, server, tool string, args map[string]any) (string, error)
}

// MCPMessenger reads chats and messages from the WhatsApp MCP server.
type MCPMessenger struct {
	caller Caller
	server string
}

var _ contractx.Messenger = (*MCPMessenger)(nil)

func NewMCPMessenger(caller Caller, server string) *MCPMessenger {
	if server == "" {
		server = mcphostx.ServerWhatsApp
	}
	return &MCPMessenger{caller: caller, server: server}
}

func (m *MCPMessenger) ListConversations(ctx context.Context, limit int) ([]statex.Conversation, error) {
	text, err := m.caller.Call(ctx, m.server, toolListChats, map[string]any{
		"limit":   limit,
		"sort_by": "last_active",
	})
	if err != nil {
		return nil, err
	}

	rows, err := decodeRows[chatRow](text)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", toolListChats, err)
	}
	out := make([]statex.Conversation, 0, len(rows))
	for _, r := range rows {
		out = append(out, statex.Conversation{
			ID:           r.JID,
			Name:         r.Name,
			LastActivity: r.LastMessageTime.Time,
		})
	}
	return out, nil
}

func (m *MCPMessenger) ListMessages(ctx context.Context, chatID string, limit int, includeContext bool) ([]statex.Message, error) {
	text, err := m.caller.Call(ctx, m.server, toolListMessages, map[string]any{
		"chat_jid":        chatID,
		"limit":           limit,
		"include_context": includeContext,
	})
	if err != nil {
		return nil, err
	}

	rows, err := decodeRows[messageRow](text)
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &syntaxErr), errors.Is(err, errNotRows):
		return renderedListing(text, chatID), nil
	case err != nil:
		return nil, fmt.Errorf("decode %s: %w", toolListMessages, err)
	}
	out := make([]statex.Message, 0, len(rows))
	for _, r := range rows {
		chat := r.ChatJID
		if chat == "" {
			chat = chatID
		}
		out = append(out, statex.Message{
			ID:        r.ID,
			ChatID:    chat,
			ChatName:  r.ChatName,
			Sender:    r.Sender,
			Timestamp: r.Timestamp.Time,
			Content:   r.Content,
			MediaType: r.MediaType,
			IsFromMe:  r.IsFromMe,
		})
	}
	return out, nil
}

// noMessagesText is what the server renders for an empty history.
const noMessagesText = "no messages to display"

// renderedListing keeps a plain-text history as one opaque message, the way
// the server formatted it.
func renderedListing(text, chatID string) []statex.Message {
	body := strings.TrimSpace(text)
	if body == "" || strings.EqualFold(strings.TrimRight(body, "."), noMessagesText) {
		return nil
	}
	return []statex.Message{{ID: chatID + "#listing", ChatID: chatID, Content: body}}
}

type chatRow struct {
	JID             string   `json:"jid"`
	Name            string   `json:"name"`
	LastMessageTime flexTime `json:"last_message_time"`
}

type messageRow struct {
	ID        string   `json:"id"`
	ChatJID   string   `json:"chat_jid"`
	ChatName  string   `json:"chat_name"`
	Sender    string   `json:"sender"`
	Timestamp flexTime `json:"timestamp"`
	Content   string   `json:"content"`
	MediaType string   `json:"media_type"`
	IsFromMe  bool     `json:"is_from_me"`
}

var errNotRows = errors.New("payload is not a JSON row set")

// decodeRows accepts a JSON array, a single object, or a sequence of either,
// which covers servers that return one content block per row.
func decodeRows[T any](text string) ([]T, error) {
	var out []T
	dec := json.NewDecoder(strings.NewReader(text))
	for {
		var raw json.RawMessage
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		trimmed := bytes.TrimSpace(raw)
		switch {
		case bytes.HasPrefix(trimmed, []byte("[")):
			var rows []T
			if err := json.Unmarshal(trimmed, &rows); err != nil {
				return nil, err
			}
			out = append(out, rows...)
		case bytes.HasPrefix(trimmed, []byte("{")):
			var row T
			if err := json.Unmarshal(trimmed, &row); err != nil {
				return nil, err
			}
			out = append(out, row)
		case bytes.Equal(trimmed, []byte("null")):
		default:
			return nil, fmt.Errorf("%w: unexpected value %.40s", errNotRows, trimmed)
		}
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// epochMillisThreshold separates epoch seconds from epoch milliseconds;
// 1e11 seconds is past the year 5000.
const epochMillisThreshold = 1e11

// flexTime parses the timestamp shapes the backend emits. Values without a
// zone are read as UTC.
type flexTime struct {
	time.Time
}

func (f *flexTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		f.Time = time.Time{}
		return nil
	}

	var unix float64
	if err := json.Unmarshal(b, &unix); err == nil {
		if math.Abs(unix) >= epochMillisThreshold {
			f.Time = time.UnixMilli(int64(unix)).UTC()
			return nil
		}
		sec := int64(unix)
		f.Time = time.Unix(sec, int64((unix-float64(sec))*1e9)).UTC()
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		f.Time = time.Time{}
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			f.Time = t
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}
