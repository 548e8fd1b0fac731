package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/chative-crm-assistant/agent/contract"
)

// AppendTranscript records the pair. A failure is kept on the state instead
// of failing the graph, so the caller still gets the agents' results.
func AppendTranscript(
	ctx context.Context,
	in *GraphState,
	transcript contractx.Transcript,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if transcript == nil {
		return in, nil
	}

	err := transcript.Append(ctx, contractx.TranscriptEntry{
		Header: in.Header,
		At:     in.Now,
		CRM:    in.Dispatch.CRM.Display(),
		Event:  in.Dispatch.Event.Display(),
	})
	if err != nil {
		in.PersistErr = fmt.Errorf("%w: %w", contractx.ErrPersist, err)
	}
	return in, nil
}

func FinalizeResult(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	return GraphOutput{
		Header:     in.Header,
		At:         in.Now,
		Dispatch:   in.Dispatch,
		PersistErr: in.PersistErr,
	}, nil
}
