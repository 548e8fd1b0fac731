package state

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Source string

const (
	SourceScan    Source = "scan"
	SourceConsole Source = "console"
)

// Entry is one role-tagged turn of a message batch.
type Entry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Conversation is set on entries seeded from a scanned conversation so
	// that agents can be given a contact-only rendering of the same turn.
	Conversation *Conversation `json:"-"`
}

// Text returns the entry content, restricted to the contact's own messages
// when contactOnly is set and the entry came from a conversation.
func (e Entry) Text(contactOnly bool) string {
	if e.Conversation != nil {
		return e.Conversation.Render(contactOnly)
	}
	return e.Content
}

func UserEntry(content string) Entry {
	return Entry{Role: RoleUser, Content: content}
}

func AssistantEntry(content string) Entry {
	return Entry{Role: RoleAssistant, Content: content}
}

// Interaction is the running message list of one unit of work: a scanned
// conversation or the operator's console session. Each loop owns its own
// interactions; nothing here is shared between loops.
type Interaction struct {
	ID        string
	Source    Source
	ContactID string
	Label     string
	CreatedAt time.Time

	// turn is held for a whole dispatch+aggregate cycle.
	turn sync.Mutex

	mu      sync.RWMutex
	entries []Entry
}

func NewInteraction(source Source, contactID, label string, now time.Time) *Interaction {
	return &Interaction{
		ID:        uuid.NewString(),
		Source:    source,
		ContactID: strings.TrimSpace(contactID),
		Label:     strings.TrimSpace(label),
		CreatedAt: now.UTC(),
		entries:   make([]Entry, 0, 8),
	}
}

// NewConversationInteraction seeds an interaction with a conversation batch.
func NewConversationInteraction(conv Conversation, now time.Time) *Interaction {
	it := NewInteraction(SourceScan, conv.ID, conv.Label(), now)
	c := conv
	it.entries = append(it.entries, Entry{
		Role:         RoleUser,
		Content:      c.Render(false),
		Conversation: &c,
	})
	return it
}

// Begin acquires the interaction for one dispatch. The returned func releases it.
func (i *Interaction) Begin() func() {
	i.turn.Lock()
	return i.turn.Unlock
}

func (i *Interaction) Append(entries ...Entry) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.entries = append(i.entries, entries...)
}

// Entries returns a copy of the current batch.
func (i *Interaction) Entries() []Entry {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]Entry, len(i.entries))
	copy(out, i.entries)
	return out
}

func (i *Interaction) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

func (i *Interaction) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.entries = i.entries[:0]
}
