package state

import (
	"fmt"
	"strings"
	"time"
)

// Conversation is one messaging thread with a single counterpart.
type Conversation struct {
	ID           string    `json:"jid"`
	Name         string    `json:"name"`
	LastActivity time.Time `json:"last_message_time"`
	Messages     []Message `json:"messages,omitempty"`
}

// Message is immutable once fetched from the messaging backend.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_jid"`
	ChatName  string    `json:"chat_name,omitempty"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
	MediaType string    `json:"media_type,omitempty"`
	IsFromMe  bool      `json:"is_from_me"`
}

// Label is the human readable name used in transcript headers.
func (c Conversation) Label() string {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return c.ID
	}
	return name
}

// ContactMessages returns only the messages authored by the counterpart.
func (c Conversation) ContactMessages() []Message {
	out := make([]Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		if !m.IsFromMe {
			out = append(out, m)
		}
	}
	return out
}

// Render formats the conversation as the single user turn handed to an agent.
// With contactOnly set, operator-authored messages are left out.
func (c Conversation) Render(contactOnly bool) string {
	msgs := c.Messages
	if contactOnly {
		msgs = c.ContactMessages()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "New messages in chat :: %s (%s) ::\n", c.Label(), c.ID)
	if len(msgs) == 0 {
		sb.WriteString("(no messages from the contact in this batch)\n")
		return sb.String()
	}
	for _, m := range msgs {
		sb.WriteString(m.Line())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Line renders one message as "[time] sender: body". A message with neither
// time nor sender is an already rendered listing and is returned as is.
func (m Message) Line() string {
	if m.Timestamp.IsZero() && strings.TrimSpace(m.Sender) == "" && !m.IsFromMe && m.MediaType == "" {
		return strings.TrimSpace(m.Content)
	}
	sender := strings.TrimSpace(m.Sender)
	if m.IsFromMe {
		sender = "me"
	} else if sender == "" {
		sender = "contact"
	}

	body := strings.TrimSpace(m.Content)
	if m.MediaType != "" {
		media := fmt.Sprintf("[%s media id=%s]", m.MediaType, m.ID)
		if body == "" {
			body = media
		} else {
			body = media + " " + body
		}
	}
	return fmt.Sprintf("[%s] %s: %s", m.Timestamp.Format(time.RFC3339), sender, body)
}
