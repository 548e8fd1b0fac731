package specialist

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/chative-crm-assistant/agent/contract"
	llmx "github.com/tanpawarit/chative-crm-assistant/agent/llm"
	promptx "github.com/tanpawarit/chative-crm-assistant/agent/prompt"
	arkx "github.com/tanpawarit/chative-crm-assistant/pkg/ark"
)

type registryImpl struct {
	crm   contractx.Agent
	event contractx.Agent
}

func (r *registryImpl) CRM() contractx.Agent {
	return r.crm
}

func (r *registryImpl) Event() contractx.Agent {
	return r.event
}

// NewRegistry builds one model per agent from cfg and wires both agents.
func NewRegistry(ctx context.Context, cfg llmx.Config, ark arkx.Config, opts Options) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	crmModel, err := cfg.BuilderFor(contractx.AgentTypeCRM, ark).New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create crm model: %v", contractx.ErrModelInvoke, err)
	}
	eventModel, err := cfg.BuilderFor(contractx.AgentTypeEvent, ark).New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create event model: %v", contractx.ErrModelInvoke, err)
	}

	if opts.MaxSteps <= 0 {
		opts.MaxSteps = cfg.MaxSteps
	}
	return NewRegistryWithModels(ctx, crmModel, eventModel, opts)
}

// NewRegistryWithModels wires both agents around already built models.
func NewRegistryWithModels(
	ctx context.Context,
	crmModel einomodel.ToolCallingChatModel,
	eventModel einomodel.ToolCallingChatModel,
	opts Options,
) (contractx.Registry, error) {
	prompts := promptx.LoadPromptSet()

	crm, err := newAgent(ctx, contractx.AgentTypeCRM, crmModel, prompts.CRM, opts)
	if err != nil {
		return nil, err
	}
	event, err := newAgent(ctx, contractx.AgentTypeEvent, eventModel, prompts.Event, opts)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		crm:   crm,
		event: event,
	}, nil
}
