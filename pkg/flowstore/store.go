// Package flowstore holds the single active flow graph of a process.
package flowstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
)

// Store implements ports.FlowStore with an atomic pointer swap.
// Readers observe either the previous graph or the fully installed new one, never a mix.
type Store struct {
	current  atomic.Pointer[domain.Graph]
	snapshot ports.FlowSnapshotter
	listener func(*domain.Graph, error)
	logger   *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithSnapshotter persists every successful install.
func WithSnapshotter(s ports.FlowSnapshotter) Option {
	return func(st *Store) {
		st.snapshot = s
	}
}

// WithInstallListener is called after every install attempt, with the rejection error if any.
func WithInstallListener(fn func(*domain.Graph, error)) Option {
	return func(st *Store) {
		st.listener = fn
	}
}

// WithLogger configures a logger for the Store.
func WithLogger(logger *slog.Logger) Option {
	return func(st *Store) {
		st.logger = logger
	}
}

// New creates an unconfigured Store.
func New(opts ...Option) *Store {
	s := &Store{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.FlowStore = (*Store)(nil)

// Install validates the graph and swaps it in.
// A snapshot failure is logged but does not undo the install: the in-memory flow is authoritative.
func (s *Store) Install(ctx context.Context, graph *domain.Graph) error {
	if err := graph.Validate(); err != nil {
		s.logger.Warn("Flow rejected", "err", err)
		s.notify(graph, err)
		return err
	}

	sealed := graph.Seal()
	s.current.Store(sealed)
	s.logger.Info("Flow installed", "flow_id", sealed.FlowID, "blocks", len(sealed.Blocks))

	if s.snapshot != nil {
		if err := s.snapshot.SaveFlow(ctx, sealed); err != nil {
			s.logger.Warn("Failed to persist flow snapshot", "flow_id", sealed.FlowID, "err", err)
		}
	}
	s.notify(sealed, nil)
	return nil
}

// Current returns the installed graph, or false when unconfigured.
func (s *Store) Current() (*domain.Graph, bool) {
	g := s.current.Load()
	return g, g != nil
}

// Clear drops the installed graph, returning the store to the unconfigured state.
func (s *Store) Clear() {
	s.current.Store(nil)
}

// Restore installs the last persisted snapshot, if any.
// It returns false when there was nothing to restore.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	if s.snapshot == nil {
		return false, nil
	}
	g, err := s.snapshot.LoadFlow(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrUnconfigured) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load flow snapshot: %w", err)
	}
	if err := g.Validate(); err != nil {
		return false, fmt.Errorf("persisted flow is invalid: %w", err)
	}
	s.current.Store(g.Seal())
	s.logger.Info("Flow restored from snapshot", "flow_id", g.FlowID)
	return true, nil
}

func (s *Store) notify(g *domain.Graph, err error) {
	if s.listener != nil {
		s.listener(g, err)
	}
}
