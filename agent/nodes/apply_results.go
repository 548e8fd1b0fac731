package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/chative-crm-assistant/agent/contract"
	statex "github.com/tanpawarit/chative-crm-assistant/agent/state"
)

// ApplyResults appends the CRM result then the event result to the
// interaction as assistant turns. A failed side is recorded as its marker.
func ApplyResults(it *statex.Interaction, res contractx.DispatchResult) {
	it.Append(
		statex.AssistantEntry(res.CRM.Display()),
		statex.AssistantEntry(res.Event.Display()),
	)
}

func ApplyStep(in *GraphState) (*GraphState, error) {
	if in == nil || in.Interaction == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	ApplyResults(in.Interaction, in.Dispatch)
	return in, nil
}
