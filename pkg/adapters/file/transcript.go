package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
)

// Transcript appends records as JSON lines to a single file.
// Writes are serialised so lines from concurrent sessions never interleave.
type Transcript struct {
	path string
	sync bool

	mu sync.Mutex
	f  *os.File
}

// TranscriptOption configures the Transcript.
type TranscriptOption func(*Transcript)

// WithFsync syncs the file after every record.
func WithFsync(enabled bool) TranscriptOption {
	return func(t *Transcript) {
		t.sync = enabled
	}
}

// OpenTranscript opens (or creates) the file in append mode.
func OpenTranscript(path string, opts ...TranscriptOption) (*Transcript, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure transcript directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript file: %w", err)
	}
	t := &Transcript{path: path, f: f}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

var (
	_ ports.TranscriptSink   = (*Transcript)(nil)
	_ ports.TranscriptReader = (*Transcript)(nil)
)

// Append writes one line.
func (t *Transcript) Append(ctx context.Context, record domain.TranscriptRecord) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript record: %w", err)
	}
	line = append(line, '\n')

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.f == nil {
		return errors.New("transcript file is closed")
	}
	if _, err := t.f.Write(line); err != nil {
		return fmt.Errorf("failed to write transcript record: %w", err)
	}
	if t.sync {
		if err := t.f.Sync(); err != nil {
			return fmt.Errorf("failed to fsync transcript: %w", err)
		}
	}
	return nil
}

// List re-reads the file and returns one session's records in file order.
func (t *Transcript) List(ctx context.Context, sessionID string) ([]domain.TranscriptRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript file: %w", err)
	}
	defer f.Close()

	var out []domain.TranscriptRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var r domain.TranscriptRecord
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			return nil, fmt.Errorf("corrupt transcript line: %w", err)
		}
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transcript file: %w", err)
	}
	return out, nil
}

// Close closes the underlying file.
func (t *Transcript) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.f == nil {
		return nil
	}
	err := t.f.Close()
	t.f = nil
	return err
}
