package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/chative-crm-assistant/agent/contract"
	nodex "github.com/tanpawarit/chative-crm-assistant/agent/nodes"
	statex "github.com/tanpawarit/chative-crm-assistant/agent/state"
)

var ErrNoInteraction = nodex.ErrNoInteraction

type Config struct {
	AgentTimeout time.Duration
	Now          func() time.Time
}

// Result is what one dispatch produced.
type Result struct {
	InteractionID string
	Header        string
	At            time.Time
	CRM           contractx.AgentOutcome
	Event         contractx.AgentOutcome
}

type Orchestrator struct {
	agents     contractx.Registry
	transcript contractx.Transcript

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	agentTimeout time.Duration
	now          func() time.Time
}

func New(
	agents contractx.Registry,
	transcript contractx.Transcript,
	cfg Config,
) (*Orchestrator, error) {
	if agents == nil {
		return nil, errors.New("agent registry is required")
	}
	if transcript == nil {
		return nil, errors.New("transcript is required")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	o := &Orchestrator{
		agents:       agents,
		transcript:   transcript,
		agentTimeout: cfg.AgentTimeout,
		now:          now,
	}

	graphRunner, err := o.compileHandleGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Handle dispatches the interaction's current batch to both agents, appends
// their results to it and records them in the transcript. It holds the
// interaction for the whole cycle. A transcript failure is returned wrapping
// contract.ErrPersist together with the full result.
func (o *Orchestrator) Handle(ctx context.Context, it *statex.Interaction) (Result, error) {
	if it == nil {
		return Result{}, ErrNoInteraction
	}
	release := it.Begin()
	defer release()

	if it.Len() == 0 {
		return Result{}, fmt.Errorf("%w: interaction %s", contractx.ErrEmptyBatch, it.ID)
	}

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{Interaction: it})
	if err != nil {
		return Result{}, err
	}

	res := Result{
		InteractionID: it.ID,
		Header:        out.Header,
		At:            out.At,
		CRM:           out.Dispatch.CRM,
		Event:         out.Dispatch.Event,
	}
	if out.PersistErr != nil {
		return res, out.PersistErr
	}
	return res, nil
}
