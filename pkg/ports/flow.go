package ports

import (
	"context"

	"github.com/aretw0/chatflow/pkg/domain"
)

// FlowStore holds the currently active flow graph.
type FlowStore interface {
	// Install validates and atomically replaces the active graph.
	// On error the previous graph (or the unconfigured state) is kept.
	Install(ctx context.Context, graph *domain.Graph) error

	// Current returns the installed graph, or false when no flow is configured.
	Current() (*domain.Graph, bool)
}

// FlowSnapshotter persists the last installed flow so a restarted process can restore it.
type FlowSnapshotter interface {
	SaveFlow(ctx context.Context, graph *domain.Graph) error
	// LoadFlow returns domain.ErrUnconfigured when nothing was saved.
	LoadFlow(ctx context.Context) (*domain.Graph, error)
}

// FlowSource loads a flow graph from an authoring location (file, directory, ...).
type FlowSource interface {
	Load(ctx context.Context) (*domain.Graph, error)
}

// Watchable defines an interface for sources that can notify about backend changes.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying flow changes.
	Watch(ctx context.Context) (<-chan string, error)
}
