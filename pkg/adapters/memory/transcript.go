package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
)

// Transcript keeps every record in arrival order.
type Transcript struct {
	mu      sync.Mutex
	records []domain.TranscriptRecord
}

// NewTranscript creates an empty in-memory transcript sink.
func NewTranscript() *Transcript {
	return &Transcript{}
}

var (
	_ ports.TranscriptSink   = (*Transcript)(nil)
	_ ports.TranscriptReader = (*Transcript)(nil)
)

// Append stores a copy of the record.
func (t *Transcript) Append(ctx context.Context, record domain.TranscriptRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, record)
	return nil
}

// List returns the records of one session in arrival order.
func (t *Transcript) List(ctx context.Context, sessionID string) ([]domain.TranscriptRecord, error) {
	return t.Records(sessionID), nil
}

// Records returns the records of one session, or all of them when sessionID is empty.
func (t *Transcript) Records(sessionID string) []domain.TranscriptRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	if sessionID == "" {
		return slices.Clone(t.records)
	}
	var out []domain.TranscriptRecord
	for _, r := range t.records {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out
}

// Texts returns the text of every record of the session by the given actor.
func (t *Transcript) Texts(sessionID string, actor domain.Actor) []string {
	var out []string
	for _, r := range t.Records(sessionID) {
		if r.Actor == actor {
			out = append(out, r.Text)
		}
	}
	return out
}
