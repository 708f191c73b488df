package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// FlowSnapshot stores the installed flow as JSON so every replica, and every restart,
// can restore it.
type FlowSnapshot struct {
	client *backend.Client
	opts   options
}

// NewFlowSnapshot creates a snapshotter on an existing client.
func NewFlowSnapshot(client *backend.Client, opts ...Option) *FlowSnapshot {
	return &FlowSnapshot{client: client, opts: newOptions(opts)}
}

var _ ports.FlowSnapshotter = (*FlowSnapshot)(nil)

func (s *FlowSnapshot) key() string {
	return s.opts.prefix + "flow"
}

// SaveFlow overwrites the snapshot. It never expires.
func (s *FlowSnapshot) SaveFlow(ctx context.Context, graph *domain.Graph) error {
	data, err := json.Marshal(graph)
	if err != nil {
		return fmt.Errorf("failed to marshal flow: %w", err)
	}
	if err := s.client.Set(ctx, s.key(), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save flow to redis: %w", err)
	}
	return nil
}

// LoadFlow returns domain.ErrUnconfigured when no flow was ever saved.
func (s *FlowSnapshot) LoadFlow(ctx context.Context) (*domain.Graph, error) {
	data, err := s.client.Get(ctx, s.key()).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrUnconfigured
		}
		return nil, fmt.Errorf("failed to load flow from redis: %w", err)
	}
	var g domain.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to decode flow snapshot: %w", err)
	}
	return &g, nil
}
