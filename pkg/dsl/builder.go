package dsl

import (
	"github.com/aretw0/chatflow/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	flowID string
	start  string
	blocks []*domain.Block
	byID   map[string]*domain.Block
}

// New creates a new graph builder.
func New(flowID string) *Builder {
	return &Builder{
		flowID: flowID,
		byID:   make(map[string]*domain.Block),
	}
}

// Start sets the start block id.
func (b *Builder) Start(id string) *Builder {
	b.start = id
	return b
}

// Message adds (or reopens) a Message block.
func (b *Builder) Message(id string) *MessageBuilder {
	blk := b.block(id, domain.BlockMessage)
	if blk.Message == nil {
		blk.Message = &domain.MessagePayload{}
	}
	return &MessageBuilder{Builder: b, block: blk}
}

// Intent adds (or reopens) an IntentDetection block.
func (b *Builder) Intent(id string) *IntentBuilder {
	blk := b.block(id, domain.BlockIntentDetection)
	if blk.Intent == nil {
		blk.Intent = &domain.IntentPayload{IntentToBlock: map[string]string{}}
	}
	return &IntentBuilder{Builder: b, block: blk}
}

func (b *Builder) block(id string, kind domain.BlockKind) *domain.Block {
	if blk, ok := b.byID[id]; ok {
		if blk.Kind != kind {
			*blk = domain.Block{ID: id, Kind: kind}
		}
		return blk
	}
	blk := &domain.Block{ID: id, Kind: kind}
	b.blocks = append(b.blocks, blk)
	b.byID[id] = blk
	if b.start == "" {
		b.start = id
	}
	return blk
}

// Build returns the graph after the install-time validation. Blocks keep insertion order.
func (b *Builder) Build() (*domain.Graph, error) {
	g := &domain.Graph{
		FlowID:       b.flowID,
		StartBlockID: b.start,
		Blocks:       make([]domain.Block, 0, len(b.blocks)),
	}
	for _, blk := range b.blocks {
		g.Blocks = append(g.Blocks, *blk)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// MustBuild is like Build but panics on error. Intended for tests and package-level flows.
func (b *Builder) MustBuild() *domain.Graph {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}
