package ports

import "context"

// SessionRegistry maps an active session id to the block it is currently suspended at.
// Implementations must be safe for concurrent use across arbitrary session ids.
type SessionRegistry interface {
	// Begin prepares a session for tracking. It creates no entry.
	Begin(ctx context.Context, sessionID string) error

	// Get returns the suspended block id.
	// Returns domain.ErrSessionNotFound if the session has no entry.
	Get(ctx context.Context, sessionID string) (string, error)

	// Set overwrites the suspended block id (last write wins).
	Set(ctx context.Context, sessionID, blockID string) error

	// Remove deletes the entry. Unknown ids are a no-op.
	Remove(ctx context.Context, sessionID string) error

	// List returns the ids of every tracked session.
	List(ctx context.Context) ([]string, error)
}
