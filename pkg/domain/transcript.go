package domain

import (
	"time"

	"github.com/google/uuid"
)

// Actor identifies who produced a transcript message.
type Actor string

const (
	ActorUser Actor = "USER"
	ActorBot  Actor = "BOT"
)

// TranscriptRecord is one message exchanged in a session.
// BlockID is the block active when the message was produced or consumed, empty if none.
type TranscriptRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Actor     Actor     `json:"actor"`
	Text      string    `json:"text"`
	BlockID   string    `json:"block_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTranscriptRecord stamps a record with a fresh id.
func NewTranscriptRecord(sessionID string, actor Actor, text, blockID string, at time.Time) TranscriptRecord {
	return TranscriptRecord{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Actor:     actor,
		Text:      text,
		BlockID:   blockID,
		Timestamp: at.UTC(),
	}
}
