package runner

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tanpawarit/chative-crm-assistant/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/chative-crm-assistant/agent/contract"
	statex "github.com/tanpawarit/chative-crm-assistant/agent/state"
	transcriptx "github.com/tanpawarit/chative-crm-assistant/agent/transcript"
)

type Handler interface {
	Handle(ctx context.Context, it *statex.Interaction) (orchestrator.Result, error)
}

// Printer serialises result output from both loops onto one writer.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

func (p *Printer) Result(res orchestrator.Result) {
	p.write(transcriptx.Format(contractx.TranscriptEntry{
		Header: res.Header,
		At:     res.At,
		CRM:    res.CRM.Display(),
		Event:  res.Event.Display(),
	}))
}

func (p *Printer) Line(format string, args ...any) {
	p.write(fmt.Sprintf(format+"\n", args...))
}

func (p *Printer) write(s string) {
	if p == nil || p.out == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.out, s)
}

// Stats counts loop activity. Safe for concurrent use.
type Stats struct {
	scanCycles    atomic.Int64
	scanFailures  atomic.Int64
	conversations atomic.Int64
	dispatches    atomic.Int64
	agentFailures atomic.Int64
	persistErrors atomic.Int64
	consoleInputs atomic.Int64
	lastScan      atomic.Int64
}

type StatsSnapshot struct {
	ScanCycles    int64     `json:"scan_cycles"`
	ScanFailures  int64     `json:"scan_failures"`
	Conversations int64     `json:"conversations"`
	Dispatches    int64     `json:"dispatches"`
	AgentFailures int64     `json:"agent_failures"`
	PersistErrors int64     `json:"persist_errors"`
	ConsoleInputs int64     `json:"console_inputs"`
	LastScan      time.Time `json:"last_scan,omitzero"`
}

func (s *Stats) Snapshot() StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}
	snap := StatsSnapshot{
		ScanCycles:    s.scanCycles.Load(),
		ScanFailures:  s.scanFailures.Load(),
		Conversations: s.conversations.Load(),
		Dispatches:    s.dispatches.Load(),
		AgentFailures: s.agentFailures.Load(),
		PersistErrors: s.persistErrors.Load(),
		ConsoleInputs: s.consoleInputs.Load(),
	}
	if ns := s.lastScan.Load(); ns != 0 {
		snap.LastScan = time.Unix(0, ns).UTC()
	}
	return snap
}

func (s *Stats) recordDispatch(res orchestrator.Result) {
	if s == nil {
		return
	}
	s.dispatches.Add(1)
	if res.CRM.Failed() {
		s.agentFailures.Add(1)
	}
	if res.Event.Failed() {
		s.agentFailures.Add(1)
	}
}
