package orchestratornode

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/tanpawarit/chative-crm-assistant/agent/contract"
	statex "github.com/tanpawarit/chative-crm-assistant/agent/state"
	transcriptx "github.com/tanpawarit/chative-crm-assistant/agent/transcript"
)

type fakeAgent struct {
	run func(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error)
}

func (f fakeAgent) Run(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	return f.run(ctx, req)
}

type fakeRegistry struct {
	crm   contractx.Agent
	event contractx.Agent
}

func (r fakeRegistry) CRM() contractx.Agent   { return r.crm }
func (r fakeRegistry) Event() contractx.Agent { return r.event }

func reply(text string) fakeAgent {
	return fakeAgent{run: func(context.Context, contractx.AgentRequest) (contractx.AgentResponse, error) {
		return contractx.AgentResponse{Message: text}, nil
	}}
}

func consoleInteraction(text string) *statex.Interaction {
	it := statex.NewInteraction(statex.SourceConsole, "", "", time.Now())
	it.Append(statex.UserEntry(text))
	return it
}

func TestDispatchAgentsPairsInFixedOrder(t *testing.T) {
	t.Parallel()

	eventDone := make(chan struct{})
	reg := fakeRegistry{
		// crm finishes after event
		crm: fakeAgent{run: func(ctx context.Context, _ contractx.AgentRequest) (contractx.AgentResponse, error) {
			<-eventDone
			return contractx.AgentResponse{Message: "crm result"}, nil
		}},
		event: fakeAgent{run: func(context.Context, contractx.AgentRequest) (contractx.AgentResponse, error) {
			defer close(eventDone)
			return contractx.AgentResponse{Message: "event result"}, nil
		}},
	}

	res := DispatchAgents(context.Background(), contractx.AgentRequest{Entries: []statex.Entry{statex.UserEntry("hi")}}, reg, time.Second)
	if res.CRM.Agent != contractx.AgentTypeCRM || res.CRM.Text != "crm result" {
		t.Fatalf("unexpected crm outcome: %+v", res.CRM)
	}
	if res.Event.Agent != contractx.AgentTypeEvent || res.Event.Text != "event result" {
		t.Fatalf("unexpected event outcome: %+v", res.Event)
	}
}

func TestDispatchAgentsRunsConcurrently(t *testing.T) {
	t.Parallel()

	// each agent waits for the other to start
	crmStarted, eventStarted := make(chan struct{}), make(chan struct{})
	wait := func(mine, other chan struct{}) fakeAgent {
		return fakeAgent{run: func(ctx context.Context, _ contractx.AgentRequest) (contractx.AgentResponse, error) {
			close(mine)
			select {
			case <-other:
				return contractx.AgentResponse{Message: "ok"}, nil
			case <-ctx.Done():
				return contractx.AgentResponse{}, ctx.Err()
			}
		}}
	}
	reg := fakeRegistry{crm: wait(crmStarted, eventStarted), event: wait(eventStarted, crmStarted)}

	res := DispatchAgents(context.Background(), contractx.AgentRequest{}, reg, 2*time.Second)
	if res.CRM.Failed() || res.Event.Failed() {
		t.Fatalf("agents did not overlap: %+v", res)
	}
}

func TestDispatchAgentsIsolatesFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		crm  contractx.Agent
	}{
		{name: "error", crm: fakeAgent{run: func(context.Context, contractx.AgentRequest) (contractx.AgentResponse, error) {
			return contractx.AgentResponse{}, errors.New("model 500")
		}}},
		{name: "panic", crm: fakeAgent{run: func(context.Context, contractx.AgentRequest) (contractx.AgentResponse, error) {
			panic("boom")
		}}},
		{name: "timeout", crm: fakeAgent{run: func(ctx context.Context, _ contractx.AgentRequest) (contractx.AgentResponse, error) {
			<-ctx.Done()
			return contractx.AgentResponse{}, ctx.Err()
		}}},
		{name: "missing", crm: nil},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			reg := fakeRegistry{crm: tc.crm, event: reply(contractx.NoEventSentinel)}
			res := DispatchAgents(context.Background(), contractx.AgentRequest{}, reg, 50*time.Millisecond)

			if !res.CRM.Failed() || !errors.Is(res.CRM.Err, contractx.ErrAgentFailed) {
				t.Fatalf("expected crm failure, got %+v", res.CRM)
			}
			if res.Event.Failed() || res.Event.Text != contractx.NoEventSentinel {
				t.Fatalf("event side must be unaffected: %+v", res.Event)
			}
			if !strings.HasPrefix(res.CRM.Display(), "[crm agent failed: ") {
				t.Fatalf("unexpected marker: %q", res.CRM.Display())
			}
		})
	}
}

func TestApplyResultsAppendsCRMThenEvent(t *testing.T) {
	t.Parallel()

	it := consoleInteraction("lunch tomorrow at 1?")
	ApplyResults(it, contractx.DispatchResult{
		CRM:   contractx.AgentOutcome{Agent: contractx.AgentTypeCRM, Err: errors.New("x")},
		Event: contractx.AgentOutcome{Agent: contractx.AgentTypeEvent, Text: "Created Lunch."},
	})

	entries := it.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[1].Role != statex.RoleAssistant || !strings.HasPrefix(entries[1].Content, "[crm agent failed") {
		t.Fatalf("unexpected crm entry: %+v", entries[1])
	}
	if entries[2].Content != "Created Lunch." {
		t.Fatalf("unexpected event entry: %+v", entries[2])
	}
}

func TestValidateBatch(t *testing.T) {
	t.Parallel()

	now := func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	if _, err := ValidateBatch(GraphInput{}, now); !errors.Is(err, ErrNoInteraction) {
		t.Fatalf("expected ErrNoInteraction, got %v", err)
	}

	empty := statex.NewInteraction(statex.SourceConsole, "", "", now())
	if _, err := ValidateBatch(GraphInput{Interaction: empty}, now); !errors.Is(err, contractx.ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}

	conv := statex.Conversation{ID: "42@s.whatsapp.net", Name: "Ravi", Messages: []statex.Message{{Content: "hi"}}}
	st, err := ValidateBatch(GraphInput{Interaction: statex.NewConversationInteraction(conv, now())}, now)
	if err != nil {
		t.Fatalf("ValidateBatch() error = %v", err)
	}
	if st.Header != "Processing chat: Ravi [42@s.whatsapp.net]" {
		t.Fatalf("unexpected header: %q", st.Header)
	}
	if st.Request.ContactID != "42@s.whatsapp.net" || len(st.Request.Entries) != 1 {
		t.Fatalf("unexpected request: %+v", st.Request)
	}

	st, err = ValidateBatch(GraphInput{Interaction: consoleInteraction("hello")}, now)
	if err != nil || st.Header != transcriptx.ConsoleHeader {
		t.Fatalf("console header = %q, %v", st.Header, err)
	}
}

type failingTranscript struct{}

func (failingTranscript) Append(context.Context, contractx.TranscriptEntry) error {
	return errors.New("disk full")
}

func TestAppendTranscriptKeepsFailureOnState(t *testing.T) {
	t.Parallel()

	st := &GraphState{Header: transcriptx.ConsoleHeader}
	out, err := AppendTranscript(context.Background(), st, failingTranscript{})
	if err != nil {
		t.Fatalf("AppendTranscript() must not fail the graph: %v", err)
	}
	if !errors.Is(out.PersistErr, contractx.ErrPersist) {
		t.Fatalf("expected ErrPersist on state, got %v", out.PersistErr)
	}
}
