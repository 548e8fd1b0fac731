// Package crm keeps one flat text record per contact on disk.
package crm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	contractx "github.com/tanpawarit/chative-crm-assistant/agent/contract"
)

const recordExt = ".txt"

var (
	ErrRecordNotFound = errors.New("crm record not found")
	ErrInvalidID      = errors.New("invalid contact id")
)

var _ contractx.RecordStore = (*FileStore)(nil)

// FileStore stores records as <dir>/<contact id>.txt. Reads and writes for
// the same contact are serialised; writes replace the file atomically.
type FileStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*contactLock
}

func NewFileStore(dir string) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("%w: crm directory is required", contractx.ErrValidation)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create crm directory: %w", err)
	}
	return &FileStore{dir: dir, locks: make(map[string]*contactLock)}, nil
}

func (s *FileStore) Dir() string {
	return s.dir
}

// contactLock is dropped from the map once no caller holds or waits on it.
type contactLock struct {
	mu   sync.Mutex
	refs int
}

func (s *FileStore) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &contactLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

func (s *FileStore) path(contactID string) (string, string, error) {
	id := strings.TrimSpace(contactID)
	switch {
	case id == "", id == ".", id == "..":
		return "", "", fmt.Errorf("%w: %q", ErrInvalidID, contactID)
	case strings.ContainsAny(id, "/\\\x00"):
		return "", "", fmt.Errorf("%w: %q", ErrInvalidID, contactID)
	}
	return id, filepath.Join(s.dir, id+recordExt), nil
}

// Read returns the record. Missing and blank records both yield ErrRecordNotFound.
func (s *FileStore) Read(_ context.Context, contactID string) (string, error) {
	id, path, err := s.path(contactID)
	if err != nil {
		return "", err
	}

	unlock := s.lock(id)
	defer unlock()

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		return "", fmt.Errorf("read crm record %s: %w", id, err)
	}
	if strings.TrimSpace(string(b)) == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrRecordNotFound, id)
	}
	return string(b), nil
}

// Write replaces the whole record, even when content is unchanged.
func (s *FileStore) Write(ctx context.Context, contactID string, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id, path, err := s.path(contactID)
	if err != nil {
		return err
	}

	unlock := s.lock(id)
	defer unlock()

	tmp, err := os.CreateTemp(s.dir, "."+id+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp crm record: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write crm record %s: %w", id, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync crm record %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close crm record %s: %w", id, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace crm record %s: %w", id, err)
	}
	return nil
}

// List returns the contact ids that have a record, sorted.
func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list crm records: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, recordExt))
	}
	sort.Strings(ids)
	return ids, nil
}
