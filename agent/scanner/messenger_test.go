package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	mcphostx "github.com/tanpawarit/chative-crm-assistant/pkg/mcphost"
)

type fakeCaller struct {
	server string
	tool   string
	args   map[string]any
	out    string
	err    error
}

func (f *fakeCaller) Call(_ context.Context, server, tool string, args map[string]any) (string, error) {
	f.server, f.tool, f.args = server, tool, args
	return f.out, f.err
}

func TestMCPMessengerListConversations(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{out: `[
		{"jid":"9198@s.whatsapp.net","name":"Asha","last_message_time":"2026-03-01T08:58:00+00:00"},
		{"jid":"4411@s.whatsapp.net","name":null,"last_message_time":"2026-03-01 08:40:12"}
	]`}
	m := NewMCPMessenger(caller, "")

	convs, err := m.ListConversations(context.Background(), 1000)
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}
	if caller.server != mcphostx.ServerWhatsApp || caller.tool != "list_chats" {
		t.Fatalf("unexpected route %s/%s", caller.server, caller.tool)
	}
	if caller.args["sort_by"] != "last_active" || caller.args["limit"] != 1000 {
		t.Fatalf("unexpected args: %v", caller.args)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	if !convs[0].LastActivity.Equal(time.Date(2026, 3, 1, 8, 58, 0, 0, time.UTC)) {
		t.Fatalf("unexpected time: %s", convs[0].LastActivity)
	}
	if !convs[1].LastActivity.Equal(time.Date(2026, 3, 1, 8, 40, 12, 0, time.UTC)) {
		t.Fatalf("zone-less time must read as UTC: %s", convs[1].LastActivity)
	}
	if convs[1].Label() != "4411@s.whatsapp.net" {
		t.Fatalf("unexpected label: %q", convs[1].Label())
	}
}

func TestMCPMessengerListMessagesPerBlock(t *testing.T) {
	t.Parallel()

	// one content block per row, joined by newlines
	caller := &fakeCaller{out: `{"id":"m1","sender":"9198","timestamp":"2026-03-01T08:57:00","content":"hi","is_from_me":false}
{"id":"m2","sender":"me","timestamp":1772355480,"content":"hello","is_from_me":true}`}
	m := NewMCPMessenger(caller, mcphostx.ServerWhatsApp)

	msgs, err := m.ListMessages(context.Background(), "9198@s.whatsapp.net", -1, false)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if caller.args["chat_jid"] != "9198@s.whatsapp.net" || caller.args["limit"] != -1 || caller.args["include_context"] != false {
		t.Fatalf("unexpected args: %v", caller.args)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ChatID != "9198@s.whatsapp.net" || msgs[0].IsFromMe {
		t.Fatalf("unexpected first message: %+v", msgs[0])
	}
	if !msgs[1].IsFromMe || msgs[1].Timestamp.Unix() != 1772355480 {
		t.Fatalf("unexpected second message: %+v", msgs[1])
	}
}

func TestMCPMessengerErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("not connected")
	m := NewMCPMessenger(&fakeCaller{err: boom}, "")
	if _, err := m.ListConversations(context.Background(), 10); !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}

	m = NewMCPMessenger(&fakeCaller{out: "Error: database is locked"}, "")
	if _, err := m.ListConversations(context.Background(), 10); err == nil {
		t.Fatal("expected decode error for non-JSON chat listing")
	}

	m = NewMCPMessenger(&fakeCaller{out: `{"id":"m1","timestamp":"yesterday"}`}, "")
	if _, err := m.ListMessages(context.Background(), "x", -1, false); err == nil {
		t.Fatal("expected timestamp error")
	}

	m = NewMCPMessenger(&fakeCaller{out: "   "}, "")
	msgs, err := m.ListMessages(context.Background(), "x", -1, false)
	if err != nil || len(msgs) != 0 {
		t.Fatalf("blank output must decode to no rows, got %v (%v)", msgs, err)
	}
}

func TestMCPMessengerKeepsTextListing(t *testing.T) {
	t.Parallel()

	listing := "[2025-04-01 12:00:00] Chat: Bob From: Bob: are you free Friday?\n[2025-04-01 12:01:00] Chat: Bob From: Me: yes, lunch?"
	m := NewMCPMessenger(&fakeCaller{out: "\n" + listing + "\n"}, "")

	msgs, err := m.ListMessages(context.Background(), "4411@s.whatsapp.net", -1, false)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected one opaque message, got %d", len(msgs))
	}
	if msgs[0].Content != listing || msgs[0].ChatID != "4411@s.whatsapp.net" {
		t.Fatalf("unexpected message: %+v", msgs[0])
	}
	if msgs[0].Line() != listing {
		t.Fatalf("listing must render unchanged, got %q", msgs[0].Line())
	}

	m = NewMCPMessenger(&fakeCaller{out: "42 messages"}, "")
	msgs, err = m.ListMessages(context.Background(), "x", -1, false)
	if err != nil || len(msgs) != 1 || msgs[0].Content != "42 messages" {
		t.Fatalf("unexpected result for scalar text: %+v (%v)", msgs, err)
	}
}

func TestMCPMessengerEmptyTextListing(t *testing.T) {
	t.Parallel()

	for _, out := range []string{"No messages to display.", "  no messages to display\n"} {
		m := NewMCPMessenger(&fakeCaller{out: out}, "")
		msgs, err := m.ListMessages(context.Background(), "x", -1, false)
		if err != nil || len(msgs) != 0 {
			t.Fatalf("ListMessages(%q) = %+v, %v; want no messages", out, msgs, err)
		}
	}
}

func TestScanKeepsConversationWithTextListing(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	caller := &routedCaller{out: map[string]string{
		"list_chats":    `[{"jid":"4411@s.whatsapp.net","name":"Bob","last_message_time":"2026-03-01T08:58:00Z"}]`,
		"list_messages": "[2026-03-01 08:58:00] Chat: Bob From: Bob: dinner Saturday?",
	}}
	s, err := New(NewMCPMessenger(caller, ""), Config{Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := s.Scan(context.Background(), WindowMinutes(10))
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	conv, ok := got["4411@s.whatsapp.net"]
	if !ok || len(conv.Messages) != 1 {
		t.Fatalf("conversation must survive a text listing: %+v", got)
	}
}

type routedCaller struct {
	out map[string]string
}

func (r *routedCaller) Call(_ context.Context, _, tool string, _ map[string]any) (string, error) {
	return r.out[tool], nil
}

func TestFlexTimeEpochUnits(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 3, 1, 8, 58, 0, 0, time.UTC)
	for _, raw := range []string{"1772355480", "1772355480000"} {
		var f flexTime
		if err := f.UnmarshalJSON([]byte(raw)); err != nil {
			t.Fatalf("UnmarshalJSON(%s) error = %v", raw, err)
		}
		if !f.Equal(want) {
			t.Fatalf("UnmarshalJSON(%s) = %s, want %s", raw, f.Time, want)
		}
	}
}
