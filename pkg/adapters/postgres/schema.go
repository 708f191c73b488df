package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS conversation_entries (
    seq             BIGSERIAL,
    id              TEXT PRIMARY KEY,
    conversation_id TEXT NOT NULL,
    actor           TEXT NOT NULL,
    message         TEXT NOT NULL,
    block_id        TEXT NOT NULL DEFAULT '',
    timestamp       TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversation_entries_conversation
    ON conversation_entries(conversation_id, timestamp);
`

// CreateSchema creates the conversation_entries table if it doesn't exist.
func (s *Transcript) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the conversation_entries table.
func (s *Transcript) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS conversation_entries;`)
	return err
}
