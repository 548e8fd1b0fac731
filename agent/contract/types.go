package contract

import (
	"fmt"
	"time"

	statex "github.com/tanpawarit/chative-crm-assistant/agent/state"
)

type AgentType string

const (
	AgentTypeCRM   AgentType = "crm"
	AgentTypeEvent AgentType = "event"
)

// NoEventSentinel is the exact event agent result when nothing is actionable.
const NoEventSentinel = "No event found."

type AgentRequest struct {
	InteractionID string         `json:"interaction_id"`
	ContactID     string         `json:"contact_id,omitempty"`
	Label         string         `json:"label"`
	Entries       []statex.Entry `json:"entries"`
	Now           time.Time      `json:"now"`
}

type AgentResponse struct {
	Message string `json:"message"`
}

type AgentOutcome struct {
	Agent    AgentType     `json:"agent"`
	Text     string        `json:"text,omitempty"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

func (o AgentOutcome) Failed() bool {
	return o.Err != nil
}

// Display is the text recorded for this side: the agent's answer or a failure marker.
func (o AgentOutcome) Display() string {
	if o.Err != nil {
		return fmt.Sprintf("[%s agent failed: %v]", o.Agent, o.Err)
	}
	return o.Text
}

// DispatchResult pairs both agents' outcomes in a fixed order.
type DispatchResult struct {
	CRM   AgentOutcome `json:"crm"`
	Event AgentOutcome `json:"event"`
}

type TranscriptEntry struct {
	Header string    `json:"header"`
	At     time.Time `json:"at"`
	CRM    string    `json:"crm"`
	Event  string    `json:"event"`
}

// ToolResult is what a tool executor returns. Error is reported back to the
// model as tool output; it does not fail the agent run.
type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}
