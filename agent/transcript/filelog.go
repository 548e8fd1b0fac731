// Package transcript appends agent results to a plain text log.
package transcript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	contractx "github.com/tanpawarit/chative-crm-assistant/agent/contract"
)

var _ contractx.Transcript = (*FileLog)(nil)

type FileLog struct {
	path string

	mu sync.Mutex
}

func NewFileLog(path string) (*FileLog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: transcript path is required", contractx.ErrValidation)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create transcript directory: %w", err)
		}
	}
	return &FileLog{path: path}, nil
}

func (l *FileLog) Path() string {
	return l.path
}

// Append writes one entry with a single write call so concurrent appenders
// never interleave inside an entry.
func (l *FileLog) Append(ctx context.Context, entry contractx.TranscriptEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload := []byte(Format(entry))

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	if _, err := f.Write(payload); err != nil {
		_ = f.Close()
		return fmt.Errorf("append transcript: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close transcript: %w", err)
	}
	return nil
}

// Format renders an entry the way it appears in the log.
func Format(entry contractx.TranscriptEntry) string {
	at := entry.At
	if at.IsZero() {
		at = time.Now()
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(entry.Header)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "At: %s\n", at.Format(time.RFC3339))
	sb.WriteString("CRM Update Result:\n")
	sb.WriteString(strings.TrimRight(entry.CRM, "\n"))
	sb.WriteString("\n\n")
	sb.WriteString("Event Scheduling Result:\n")
	sb.WriteString(strings.TrimRight(entry.Event, "\n"))
	sb.WriteString("\n")
	return sb.String()
}

// ChatHeader and ConsoleHeader are the two entry headers.
func ChatHeader(label, id string) string {
	return fmt.Sprintf("Processing chat: %s [%s]", label, id)
}

const ConsoleHeader = "User Input Processing:"
