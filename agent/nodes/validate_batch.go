package orchestratornode

import (
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/chative-crm-assistant/agent/contract"
	statex "github.com/tanpawarit/chative-crm-assistant/agent/state"
	transcriptx "github.com/tanpawarit/chative-crm-assistant/agent/transcript"
)

var ErrNoInteraction = errors.New("interaction is nil")

type GraphInput struct {
	Interaction *statex.Interaction
}

type GraphOutput struct {
	Header   string
	At       time.Time
	Dispatch contractx.DispatchResult
	// PersistErr is set when the transcript append failed. The interaction
	// already holds the results at that point.
	PersistErr error
}

type GraphState struct {
	Interaction *statex.Interaction
	Request     contractx.AgentRequest
	Header      string
	Now         time.Time

	Dispatch   contractx.DispatchResult
	PersistErr error
}

// ValidateBatch snapshots the interaction into an agent request.
func ValidateBatch(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	it := in.Interaction
	if it == nil {
		return nil, ErrNoInteraction
	}

	entries := it.Entries()
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: interaction %s", contractx.ErrEmptyBatch, it.ID)
	}

	hasText := false
	for _, e := range entries {
		if strings.TrimSpace(e.Text(false)) != "" {
			hasText = true
			break
		}
	}
	if !hasText {
		return nil, fmt.Errorf("%w: interaction %s has only blank entries", contractx.ErrEmptyBatch, it.ID)
	}

	now := nowFn()
	return &GraphState{
		Interaction: it,
		Request: contractx.AgentRequest{
			InteractionID: it.ID,
			ContactID:     it.ContactID,
			Label:         it.Label,
			Entries:       entries,
			Now:           now,
		},
		Header: headerFor(it),
		Now:    now,
	}, nil
}

func headerFor(it *statex.Interaction) string {
	if it.Source == statex.SourceConsole {
		return transcriptx.ConsoleHeader
	}
	label := it.Label
	if label == "" {
		label = it.ContactID
	}
	return transcriptx.ChatHeader(label, it.ContactID)
}
