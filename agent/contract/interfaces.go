package contract

import (
	"context"

	statex "github.com/tanpawarit/chative-crm-assistant/agent/state"
)

type Agent interface {
	Run(ctx context.Context, req AgentRequest) (AgentResponse, error)
}

type Registry interface {
	CRM() Agent
	Event() Agent
}

type Transcript interface {
	Append(ctx context.Context, entry TranscriptEntry) error
}

type RecordStore interface {
	Read(ctx context.Context, contactID string) (string, error)
	Write(ctx context.Context, contactID string, content string) error
}

type Messenger interface {
	ListConversations(ctx context.Context, limit int) ([]statex.Conversation, error)
	ListMessages(ctx context.Context, chatID string, limit int, includeContext bool) ([]statex.Message, error)
}
