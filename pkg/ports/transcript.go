package ports

import (
	"context"

	"github.com/aretw0/chatflow/pkg/domain"
)

// TranscriptSink durably appends transcript records.
// It must tolerate concurrent appends from independent sessions. The engine never reads it back.
type TranscriptSink interface {
	Append(ctx context.Context, record domain.TranscriptRecord) error
}

// TranscriptReader is implemented by sinks that can list what they stored (admin and tests).
type TranscriptReader interface {
	List(ctx context.Context, sessionID string) ([]domain.TranscriptRecord, error)
}

// DiscardTranscript drops every record.
type DiscardTranscript struct{}

// Append implements TranscriptSink.
func (DiscardTranscript) Append(context.Context, domain.TranscriptRecord) error { return nil }

// TranscriptSinkFunc adapts a function to TranscriptSink.
type TranscriptSinkFunc func(ctx context.Context, record domain.TranscriptRecord) error

// Append implements TranscriptSink.
func (f TranscriptSinkFunc) Append(ctx context.Context, record domain.TranscriptRecord) error {
	return f(ctx, record)
}
