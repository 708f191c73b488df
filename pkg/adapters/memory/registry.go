// Package memory provides in-process implementations of the chatflow ports.
package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
)

// Registry implements ports.SessionRegistry in memory.
// Safe for concurrent use.
type Registry struct {
	data   map[string]string
	mu     sync.RWMutex
	logger *slog.Logger
}

// RegistryOption configures the Registry.
type RegistryOption func(*Registry)

// WithLogger configures a logger for the Registry.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty in-memory registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		data:   make(map[string]string),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ ports.SessionRegistry = (*Registry)(nil)

// Begin only logs: a session has no entry until it suspends.
func (r *Registry) Begin(ctx context.Context, sessionID string) error {
	r.logger.Debug("Session registered", "session_id", sessionID)
	return nil
}

// Get returns the block the session is suspended at.
func (r *Registry) Get(ctx context.Context, sessionID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	blockID, ok := r.data[sessionID]
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	return blockID, nil
}

// Set records the suspended block.
func (r *Registry) Set(ctx context.Context, sessionID, blockID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[sessionID] = blockID
	return nil
}

// Remove deletes the entry.
func (r *Registry) Remove(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, sessionID)
	return nil
}

// List returns active sessions in a deterministic order.
func (r *Registry) List(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]string, 0, len(r.data))
	for id := range r.data {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}
