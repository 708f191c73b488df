// Package file implements chatflow ports on the local filesystem: a flow source for YAML or JSON
// authoring files, an atomic flow snapshot and an append-only JSON-Lines transcript.
package file

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"gopkg.in/yaml.v3"
)

// Source loads a flow graph from a single file. JSON is accepted as a subset of YAML.
type Source struct {
	Path string
}

// NewSource creates a Source for path.
func NewSource(path string) *Source {
	return &Source{Path: path}
}

var _ ports.FlowSource = (*Source)(nil)

// Load reads and decodes the file.
func (s *Source) Load(ctx context.Context) (*domain.Graph, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow file: %w", err)
	}
	g, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return g, nil
}

// Parse decodes a flow from YAML or JSON bytes in the authoring format.
func Parse(data []byte) (*domain.Graph, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", domain.ErrInvalidGraph)
	}
	var raw domain.RawGraph
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidGraph, err)
	}
	return domain.DecodeGraph(raw)
}

// Marshal encodes a graph as YAML in the authoring format.
func Marshal(g *domain.Graph) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(domain.EncodeGraph(g)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
