package domain

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Graph is one conversation script.
// A Graph is immutable once published to a flow store: the engine only ever reads it.
type Graph struct {
	FlowID       string
	StartBlockID string
	Blocks       []Block

	index map[string]int
}

// Validate performs the install-time checks. The scope is intentionally minimal:
// deeper structural problems are reported by Lint and handled at runtime as FlowCorrupted.
func (g *Graph) Validate() error {
	if g == nil {
		return fmt.Errorf("%w: flow is nil", ErrInvalidGraph)
	}
	if strings.TrimSpace(g.FlowID) == "" {
		return fmt.Errorf("%w: flowId is required", ErrInvalidGraph)
	}
	for i, b := range g.Blocks {
		switch b.Kind {
		case BlockMessage:
			if b.Message == nil {
				return fmt.Errorf("%w: block %d (%q) has no message payload", ErrInvalidGraph, i, b.ID)
			}
		case BlockIntentDetection:
			if b.Intent == nil {
				return fmt.Errorf("%w: block %d (%q) has no intent payload", ErrInvalidGraph, i, b.ID)
			}
		default:
			return fmt.Errorf("%w: block %d (%q) has unknown type %q", ErrInvalidGraph, i, b.ID, b.Kind)
		}
	}
	return nil
}

// Seal returns a copy of the graph with its block index built.
// The copy is deep: payloads, candidate lists and mappings are not shared with g.
func (g *Graph) Seal() *Graph {
	cp := &Graph{
		FlowID:       g.FlowID,
		StartBlockID: g.StartBlockID,
		Blocks:       make([]Block, len(g.Blocks)),
		index:        make(map[string]int, len(g.Blocks)),
	}
	for i, b := range g.Blocks {
		cp.Blocks[i] = b.clone()
		// First occurrence wins on duplicate ids.
		if _, dup := cp.index[b.ID]; !dup {
			cp.index[b.ID] = i
		}
	}
	return cp
}

// Block resolves a block id.
func (g *Graph) Block(id string) (*Block, bool) {
	if g.index != nil {
		i, ok := g.index[id]
		if !ok {
			return nil, false
		}
		return &g.Blocks[i], true
	}
	for i := range g.Blocks {
		if g.Blocks[i].ID == id {
			return &g.Blocks[i], true
		}
	}
	return nil, false
}

func (b Block) clone() Block {
	if b.Message != nil {
		m := *b.Message
		b.Message = &m
	}
	if b.Intent != nil {
		p := *b.Intent
		p.CandidateIntents = slices.Clone(p.CandidateIntents)
		p.IntentToBlock = maps.Clone(p.IntentToBlock)
		b.Intent = &p
	}
	return b
}
