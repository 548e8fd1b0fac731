package specialist

import (
	"context"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/chative-crm-assistant/agent/contract"
	statex "github.com/tanpawarit/chative-crm-assistant/agent/state"
)

// Options are shared by both agents.
type Options struct {
	Tools    []einotool.BaseTool
	MaxSteps int
	Location *time.Location
}

type agentImpl struct {
	agentType    contractx.AgentType
	systemPrompt string
	// contactOnly restricts conversation batches to the contact's messages.
	contactOnly bool
	loc         *time.Location
	runner      compose.Runnable[contractx.AgentRequest, contractx.AgentResponse]
}

var _ contractx.Agent = (*agentImpl)(nil)

func newAgent(
	ctx context.Context,
	agentType contractx.AgentType,
	chatModel einomodel.ToolCallingChatModel,
	systemPrompt string,
	opts Options,
) (*agentImpl, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: %s agent has no model", contractx.ErrValidation, agentType)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: %s system prompt", contractx.ErrPromptMissing, agentType)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	loop, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: chatModel,
		ToolsConfig:      compose.ToolsNodeConfig{Tools: opts.Tools},
		MaxStep:          opts.MaxSteps,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: build %s agent loop: %v", contractx.ErrModelInvoke, agentType, err)
	}

	a := &agentImpl{
		agentType:    agentType,
		systemPrompt: systemPrompt,
		contactOnly:  agentType == contractx.AgentTypeCRM,
		loc:          loc,
	}

	runner, err := compileAgentGraph(ctx, string(agentType)+".agent_graph", a.prepare, loop, a.normalize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	a.runner = runner
	return a, nil
}

func (a *agentImpl) Run(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	return a.runner.Invoke(ctx, req)
}

func (a *agentImpl) prepare(_ context.Context, req contractx.AgentRequest) ([]*schema.Message, error) {
	if len(req.Entries) == 0 {
		return nil, fmt.Errorf("%w: %s agent", contractx.ErrEmptyBatch, a.agentType)
	}

	msgs := make([]*schema.Message, 0, len(req.Entries)+2)
	msgs = append(msgs, schema.SystemMessage(a.systemPrompt))
	msgs = append(msgs, schema.SystemMessage(a.contextNote(req)))

	for _, e := range req.Entries {
		switch e.Role {
		case statex.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(e.Content, nil))
		default:
			msgs = append(msgs, schema.UserMessage(e.Text(a.contactOnly)))
		}
	}
	return msgs, nil
}

func (a *agentImpl) contextNote(req contractx.AgentRequest) string {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Current time: %s (%s).", now.In(a.loc).Format(time.RFC1123), a.loc)
	if req.ContactID != "" {
		fmt.Fprintf(&sb, " Chat id (user_id): %s.", req.ContactID)
	}
	if req.Label != "" {
		fmt.Fprintf(&sb, " Contact name: %s.", req.Label)
	}
	return sb.String()
}

func (a *agentImpl) normalize(_ context.Context, msg *schema.Message) (contractx.AgentResponse, error) {
	if msg == nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: %s agent returned no message", contractx.ErrModelInvoke, a.agentType)
	}
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return contractx.AgentResponse{}, fmt.Errorf("%w: %s agent returned empty text", contractx.ErrModelInvoke, a.agentType)
	}
	if a.agentType == contractx.AgentTypeEvent {
		text = NormalizeEventResult(text)
	}
	return contractx.AgentResponse{Message: text}, nil
}

// NormalizeEventResult maps case and punctuation variants of the no-event
// reply onto the exact sentinel.
func NormalizeEventResult(text string) string {
	trimmed := strings.TrimSpace(text)
	key := strings.ToLower(strings.Trim(trimmed, " \t\r\n.!\"'`*_"))
	key = strings.Join(strings.Fields(key), " ")
	if key == "no event found" || key == "no events found" {
		return contractx.NoEventSentinel
	}
	return trimmed
}
