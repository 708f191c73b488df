package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// Transcript appends records to a Redis stream shared by all sessions.
type Transcript struct {
	client *backend.Client
	opts   options
}

// NewTranscript creates a stream-backed transcript sink.
func NewTranscript(client *backend.Client, opts ...Option) *Transcript {
	return &Transcript{client: client, opts: newOptions(opts)}
}

var (
	_ ports.TranscriptSink   = (*Transcript)(nil)
	_ ports.TranscriptReader = (*Transcript)(nil)
)

// StreamKey returns the stream the records are written to.
func (t *Transcript) StreamKey() string {
	return t.opts.prefix + "transcript"
}

// Append adds one stream entry.
func (t *Transcript) Append(ctx context.Context, record domain.TranscriptRecord) error {
	args := &backend.XAddArgs{
		Stream: t.StreamKey(),
		Values: map[string]any{
			"id":         record.ID,
			"session_id": record.SessionID,
			"actor":      string(record.Actor),
			"text":       record.Text,
			"block_id":   record.BlockID,
			"timestamp":  record.Timestamp.UTC().Format(time.RFC3339Nano),
		},
	}
	if t.opts.maxLen > 0 {
		args.MaxLen = t.opts.maxLen
		args.Approx = true
	}
	if err := t.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to append transcript record: %w", err)
	}
	return nil
}

// List scans the stream for one session's records. It is meant for debugging, not hot paths.
func (t *Transcript) List(ctx context.Context, sessionID string) ([]domain.TranscriptRecord, error) {
	msgs, err := t.client.XRange(ctx, t.StreamKey(), "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript stream: %w", err)
	}

	var out []domain.TranscriptRecord
	for _, m := range msgs {
		if field(m.Values, "session_id") != sessionID {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, field(m.Values, "timestamp"))
		if err != nil {
			return nil, fmt.Errorf("bad timestamp in stream entry %s: %w", m.ID, err)
		}
		out = append(out, domain.TranscriptRecord{
			ID:        field(m.Values, "id"),
			SessionID: sessionID,
			Actor:     domain.Actor(field(m.Values, "actor")),
			Text:      field(m.Values, "text"),
			BlockID:   field(m.Values, "block_id"),
			Timestamp: ts,
		})
	}
	return out, nil
}

func field(values map[string]any, name string) string {
	s, _ := values[name].(string)
	return s
}
