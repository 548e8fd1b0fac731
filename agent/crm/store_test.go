package crm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func newStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "crm"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return s
}

func (s *FileStore) heldLocks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

func TestReadMissingRecord(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	_, err := s.Read(context.Background(), "9198@s.whatsapp.net")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestBlankRecordIsNotFound(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	if err := os.WriteFile(filepath.Join(s.Dir(), "blank.txt"), []byte(" \n"), 0o644); err != nil {
		t.Fatalf("seed blank record: %v", err)
	}
	if _, err := s.Read(context.Background(), "blank"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound for blank record, got %v", err)
	}
}

func TestWriteCreatesThenOverwritesFully(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStore(t)
	id := "9198@s.whatsapp.net"

	first := `{"full_name":"Asha","birthday":"March 3"}`
	if err := s.Write(ctx, id, first); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := s.Read(ctx, id)
	if err != nil || got != first {
		t.Fatalf("Read() = %q, %v", got, err)
	}

	second := `{"full_name":"Asha"}`
	if err := s.Write(ctx, id, second); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, _ = s.Read(ctx, id)
	if got != second {
		t.Fatalf("record not fully replaced: %q", got)
	}

	// unchanged rewrite still succeeds
	if err := s.Write(ctx, id, second); err != nil {
		t.Fatalf("unchanged Write() error = %v", err)
	}

	ids, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("expected exactly one record, got %v", ids)
	}
}

func TestInvalidIDs(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	for _, id := range []string{"", " ", "..", "../escape", `a\b`} {
		if err := s.Write(context.Background(), id, "x"); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("Write(%q) expected ErrInvalidID, got %v", id, err)
		}
	}
}

func TestConcurrentWritesLeaveOneCompleteRecord(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStore(t)
	id := "contact"

	var wg sync.WaitGroup
	payloads := make(map[string]bool)
	for i := 0; i < 16; i++ {
		p := fmt.Sprintf(`{"writer":%d,"pad":"%0200d"}`, i, i)
		payloads[p] = true
		wg.Add(1)
		go func(content string) {
			defer wg.Done()
			if err := s.Write(ctx, id, content); err != nil {
				t.Errorf("Write() error = %v", err)
			}
		}(p)
	}
	wg.Wait()

	got, err := s.Read(ctx, id)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !payloads[got] {
		t.Fatalf("record is not one of the written payloads: %q", got)
	}

	ids, _ := s.List(ctx)
	if len(ids) != 1 {
		t.Fatalf("temp files leaked into listing: %v", ids)
	}
	if n := s.heldLocks(); n != 0 {
		t.Fatalf("per-contact locks must be released, %d left", n)
	}
}

func TestLocksDoNotAccumulateAcrossContacts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStore(t)
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("%d@s.whatsapp.net", i)
		if err := s.Write(ctx, id, `{"n":1}`); err != nil {
			t.Fatalf("Write(%s) error = %v", id, err)
		}
		if _, err := s.Read(ctx, id); err != nil {
			t.Fatalf("Read(%s) error = %v", id, err)
		}
	}
	if n := s.heldLocks(); n != 0 {
		t.Fatalf("expected no idle locks, got %d", n)
	}
}
