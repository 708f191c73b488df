package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
)

// Snapshot implements ports.FlowSnapshotter by keeping the last flow in its authoring JSON form,
// so a restored graph shares nothing with the installed one.
type Snapshot struct {
	mu   sync.RWMutex
	data []byte
}

// NewSnapshot creates an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{}
}

var _ ports.FlowSnapshotter = (*Snapshot)(nil)

// SaveFlow serialises the graph.
func (s *Snapshot) SaveFlow(ctx context.Context, graph *domain.Graph) error {
	data, err := json.Marshal(graph)
	if err != nil {
		return fmt.Errorf("failed to marshal flow %s: %w", graph.FlowID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	return nil
}

// LoadFlow decodes the last saved graph.
func (s *Snapshot) LoadFlow(ctx context.Context) (*domain.Graph, error) {
	s.mu.RLock()
	data := s.data
	s.mu.RUnlock()

	if data == nil {
		return nil, domain.ErrUnconfigured
	}
	var g domain.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to decode flow snapshot: %w", err)
	}
	return &g, nil
}
