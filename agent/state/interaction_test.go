package state

import (
	"strings"
	"testing"
	"time"
)

func sampleConversation() Conversation {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return Conversation{
		ID:           "9198@s.whatsapp.net",
		Name:         "Asha",
		LastActivity: base.Add(2 * time.Minute),
		Messages: []Message{
			{ID: "m1", ChatID: "9198@s.whatsapp.net", Sender: "9198", Timestamp: base, Content: "My birthday is March 3rd"},
			{ID: "m2", ChatID: "9198@s.whatsapp.net", Sender: "me", Timestamp: base.Add(time.Minute), Content: "I live in Pune", IsFromMe: true},
			{ID: "m3", ChatID: "9198@s.whatsapp.net", Sender: "9198", Timestamp: base.Add(2 * time.Minute), MediaType: "image"},
		},
	}
}

func TestConversationRenderContactOnly(t *testing.T) {
	t.Parallel()

	conv := sampleConversation()

	full := conv.Render(false)
	if !strings.Contains(full, "I live in Pune") {
		t.Fatalf("full rendering must include operator messages: %q", full)
	}

	contact := conv.Render(true)
	if strings.Contains(contact, "I live in Pune") {
		t.Fatalf("contact rendering must drop operator messages: %q", contact)
	}
	if !strings.Contains(contact, "My birthday is March 3rd") {
		t.Fatalf("contact rendering lost contact message: %q", contact)
	}
	if !strings.Contains(contact, "[image media id=m3]") {
		t.Fatalf("media reference missing: %q", contact)
	}
	if !strings.HasPrefix(contact, "New messages in chat :: Asha (9198@s.whatsapp.net) ::") {
		t.Fatalf("unexpected header: %q", contact)
	}
}

func TestConversationRenderNoContactMessages(t *testing.T) {
	t.Parallel()

	conv := Conversation{
		ID: "x@s.whatsapp.net",
		Messages: []Message{
			{Sender: "me", Content: "hello?", IsFromMe: true},
		},
	}
	got := conv.Render(true)
	if !strings.Contains(got, "no messages from the contact") {
		t.Fatalf("unexpected rendering: %q", got)
	}
	if conv.Label() != "x@s.whatsapp.net" {
		t.Fatalf("label must fall back to id, got %q", conv.Label())
	}
}

func TestNewConversationInteractionSeedsBatch(t *testing.T) {
	t.Parallel()

	conv := sampleConversation()
	it := NewConversationInteraction(conv, time.Now())

	if it.ID == "" {
		t.Fatal("interaction id must be set")
	}
	if it.ContactID != conv.ID || it.Label != "Asha" || it.Source != SourceScan {
		t.Fatalf("unexpected interaction identity: %+v", it)
	}

	entries := it.Entries()
	if len(entries) != 1 || entries[0].Role != RoleUser {
		t.Fatalf("unexpected seed entries: %#v", entries)
	}
	if strings.Contains(entries[0].Text(true), "I live in Pune") {
		t.Fatal("contact-only text must not contain operator messages")
	}
	if entries[0].Text(false) != entries[0].Content {
		t.Fatal("full text must equal stored content")
	}
}

func TestInteractionEntriesIsCopy(t *testing.T) {
	t.Parallel()

	it := NewInteraction(SourceConsole, "", "console", time.Now())
	it.Append(UserEntry("hi"))

	snapshot := it.Entries()
	snapshot[0].Content = "mutated"
	it.Append(AssistantEntry("crm"), AssistantEntry("event"))

	got := it.Entries()
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].Content != "hi" {
		t.Fatalf("snapshot mutation leaked into interaction: %q", got[0].Content)
	}

	it.Reset()
	if it.Len() != 0 {
		t.Fatalf("expected empty interaction after reset, got %d", it.Len())
	}
}
