// Package postgres persists transcript records in PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Transcript implements ports.TranscriptSink on the conversation_entries table.
type Transcript struct {
	db *pgxpool.Pool
}

// New creates a Transcript backed by the given pgx connection pool.
func New(db *pgxpool.Pool) *Transcript {
	return &Transcript{db: db}
}

// Connect opens a pool for dsn and verifies it.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("transcript: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("transcript: ping: %w", err)
	}
	return pool, nil
}

var (
	_ ports.TranscriptSink   = (*Transcript)(nil)
	_ ports.TranscriptReader = (*Transcript)(nil)
)

// Append inserts one row. Records are write-once: a repeated id is ignored.
func (s *Transcript) Append(ctx context.Context, r domain.TranscriptRecord) error {
	if _, err := s.db.Exec(ctx,
		`INSERT INTO conversation_entries (id, conversation_id, actor, message, block_id, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		r.ID, r.SessionID, string(r.Actor), r.Text, r.BlockID, r.Timestamp,
	); err != nil {
		return fmt.Errorf("transcript: insert %s: %w", r.ID, err)
	}
	return nil
}

// List returns one conversation in timestamp order.
func (s *Transcript) List(ctx context.Context, sessionID string) ([]domain.TranscriptRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, conversation_id, actor, message, block_id, timestamp
		 FROM conversation_entries WHERE conversation_id = $1 ORDER BY timestamp, seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("transcript: query: %w", err)
	}
	defer rows.Close()

	var out []domain.TranscriptRecord
	for rows.Next() {
		var r domain.TranscriptRecord
		var actor string
		if err := rows.Scan(&r.ID, &r.SessionID, &actor, &r.Text, &r.BlockID, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("transcript: scan: %w", err)
		}
		r.Actor = domain.Actor(actor)
		r.Timestamp = r.Timestamp.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transcript: rows: %w", err)
	}
	return out, nil
}
