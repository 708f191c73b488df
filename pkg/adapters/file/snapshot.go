package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
)

// Snapshot keeps the installed flow in a JSON file.
type Snapshot struct {
	Path string
}

// NewSnapshot creates a snapshot at path. If path is empty, it defaults to ".chatflow/flow.json".
func NewSnapshot(path string) *Snapshot {
	if path == "" {
		path = filepath.Join(".chatflow", "flow.json")
	}
	return &Snapshot{Path: path}
}

var _ ports.FlowSnapshotter = (*Snapshot)(nil)

// SaveFlow writes the graph atomically: temp file, fsync, rename.
func (s *Snapshot) SaveFlow(ctx context.Context, graph *domain.Graph) error {
	data, err := json.MarshalIndent(graph, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal flow: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure snapshot directory: %w", err)
	}

	// Same directory so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(dir, "tmp-flow-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("failed to replace flow snapshot: %w", err)
	}
	return nil
}

// LoadFlow returns domain.ErrUnconfigured when the file does not exist.
func (s *Snapshot) LoadFlow(ctx context.Context) (*domain.Graph, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrUnconfigured
		}
		return nil, fmt.Errorf("failed to read flow snapshot: %w", err)
	}
	var g domain.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to decode flow snapshot: %w", err)
	}
	return &g, nil
}
