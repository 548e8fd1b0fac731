package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/crm.txt
	crmRaw string

	//go:embed template/event.txt
	eventRaw string
)

// PromptSet holds the system prompts of both agents.
type PromptSet struct {
	CRM   string
	Event string
}

func LoadPromptSet() PromptSet {
	return PromptSet{
		CRM:   strings.TrimSpace(crmRaw),
		Event: strings.TrimSpace(eventRaw),
	}
}
