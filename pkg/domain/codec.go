package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// RawBlock is the authoring form of a block: the payload is a free-form "data" object
// whose shape depends on "type". It is decoded once into a typed Block by DecodeGraph.
type RawBlock struct {
	ID          string         `json:"id" yaml:"id"`
	Type        string         `json:"type" yaml:"type"`
	Data        map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
	NextBlockID string         `json:"nextBlockId,omitempty" yaml:"nextBlockId,omitempty"`
}

// RawGraph is the authoring form of a flow, as uploaded by the configuration surface.
type RawGraph struct {
	FlowID       string     `json:"flowId" yaml:"flowId"`
	StartBlockID string     `json:"startBlockId" yaml:"startBlockId"`
	Blocks       []RawBlock `json:"blocks" yaml:"blocks"`
}

// DecodeGraph resolves every raw payload into its typed form.
// Unknown block types and malformed payloads are rejected with ErrInvalidGraph.
func DecodeGraph(raw RawGraph) (*Graph, error) {
	g := &Graph{
		FlowID:       raw.FlowID,
		StartBlockID: raw.StartBlockID,
		Blocks:       make([]Block, 0, len(raw.Blocks)),
	}
	for i, rb := range raw.Blocks {
		b, err := DecodeBlock(rb)
		if err != nil {
			return nil, fmt.Errorf("%w: block %d: %v", ErrInvalidGraph, i, err)
		}
		g.Blocks = append(g.Blocks, b)
	}
	return g, nil
}

// DecodeBlock converts a single raw block.
func DecodeBlock(rb RawBlock) (Block, error) {
	b := Block{
		ID:          rb.ID,
		NextBlockID: rb.NextBlockID,
	}

	switch BlockKind(strings.ToUpper(strings.TrimSpace(rb.Type))) {
	case BlockMessage:
		b.Kind = BlockMessage
		b.Message = &MessagePayload{}
		if err := decodePayload(rb.Data, b.Message); err != nil {
			return Block{}, fmt.Errorf("block %q: %w", rb.ID, err)
		}
	case BlockIntentDetection:
		b.Kind = BlockIntentDetection
		b.Intent = &IntentPayload{}
		if err := decodePayload(rb.Data, b.Intent); err != nil {
			return Block{}, fmt.Errorf("block %q: %w", rb.ID, err)
		}
		if b.Intent.IntentToBlock == nil {
			b.Intent.IntentToBlock = map[string]string{}
		}
		// NO_MATCH always routes to the fallback.
		delete(b.Intent.IntentToBlock, NoMatch)
	default:
		return Block{}, fmt.Errorf("block %q: unknown type %q", rb.ID, rb.Type)
	}
	return b, nil
}

func decodePayload(data map[string]any, out any) error {
	if len(data) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(data); err != nil {
		return fmt.Errorf("invalid data: %w", err)
	}
	return nil
}

// EncodeGraph converts a typed graph back to its authoring form.
func EncodeGraph(g *Graph) RawGraph {
	raw := RawGraph{
		FlowID:       g.FlowID,
		StartBlockID: g.StartBlockID,
		Blocks:       make([]RawBlock, 0, len(g.Blocks)),
	}
	for _, b := range g.Blocks {
		rb := RawBlock{ID: b.ID, Type: string(b.Kind), NextBlockID: b.NextBlockID}
		switch {
		case b.Message != nil:
			rb.Data = map[string]any{"text": b.Message.Text}
		case b.Intent != nil:
			rb.Data = map[string]any{
				"intents":         b.Intent.CandidateIntents,
				"mappings":        b.Intent.IntentToBlock,
				"fallbackBlockId": b.Intent.FallbackBlockID,
			}
		}
		raw.Blocks = append(raw.Blocks, rb)
	}
	return raw
}

// MarshalJSON renders the graph in its authoring form.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(EncodeGraph(g))
}

// UnmarshalJSON parses the authoring form and decodes every payload.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var raw RawGraph
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := DecodeGraph(raw)
	if err != nil {
		return err
	}
	*g = *decoded
	return nil
}
