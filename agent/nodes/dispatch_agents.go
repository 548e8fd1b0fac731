package orchestratornode

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	contractx "github.com/tanpawarit/chative-crm-assistant/agent/contract"
)

func DispatchStep(
	ctx context.Context,
	in *GraphState,
	registry contractx.Registry,
	timeout time.Duration,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.Dispatch = DispatchAgents(ctx, in.Request, registry, timeout)
	return in, nil
}

// DispatchAgents runs both agents concurrently on the same batch. Each side
// fails alone: errors, panics and timeouts land in that side's outcome. The
// result pairs CRM then event whatever order they finish in.
func DispatchAgents(
	ctx context.Context,
	req contractx.AgentRequest,
	registry contractx.Registry,
	timeout time.Duration,
) contractx.DispatchResult {
	var crmAgent, eventAgent contractx.Agent
	if registry != nil {
		crmAgent, eventAgent = registry.CRM(), registry.Event()
	}

	var (
		res contractx.DispatchResult
		wg  sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		res.CRM = runAgent(ctx, contractx.AgentTypeCRM, crmAgent, req, timeout)
	}()
	go func() {
		defer wg.Done()
		res.Event = runAgent(ctx, contractx.AgentTypeEvent, eventAgent, req, timeout)
	}()
	wg.Wait()

	return res
}

func runAgent(
	ctx context.Context,
	agentType contractx.AgentType,
	agent contractx.Agent,
	req contractx.AgentRequest,
	timeout time.Duration,
) (out contractx.AgentOutcome) {
	out.Agent = agentType
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out.Text = ""
			out.Err = fmt.Errorf("%w: panic: %v", contractx.ErrAgentFailed, r)
		}
		out.Duration = time.Since(start)
	}()

	if agent == nil {
		out.Err = fmt.Errorf("%w: %s agent is not configured", contractx.ErrAgentFailed, agentType)
		return out
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := agent.Run(runCtx, req)
	if err != nil {
		if ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			out.Err = fmt.Errorf("%w: timed out after %s: %v", contractx.ErrAgentFailed, timeout, err)
			return out
		}
		out.Err = fmt.Errorf("%w: %w", contractx.ErrAgentFailed, err)
		return out
	}

	out.Text = resp.Message
	return out
}
