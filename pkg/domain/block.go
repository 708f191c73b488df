package domain

import "sort"

// BlockKind selects the control flow behavior of a block.
type BlockKind string

const (
	// BlockMessage emits its text and continues immediately with NextBlockID.
	BlockMessage BlockKind = "MESSAGE"
	// BlockIntentDetection emits nothing and suspends until the next user message is classified.
	BlockIntentDetection BlockKind = "INTENT_DETECTION"
)

// NoMatch is the intent returned when nothing in the candidate list fits.
// It is never a key of IntentPayload.IntentToBlock.
const NoMatch = "NO_MATCH"

// MessagePayload is the payload of a Message block.
type MessagePayload struct {
	Text string `json:"text" mapstructure:"text"`
}

// IntentPayload is the payload of an IntentDetection block.
type IntentPayload struct {
	CandidateIntents []string          `json:"intents" mapstructure:"intents"`
	IntentToBlock    map[string]string `json:"mappings" mapstructure:"mappings"`
	FallbackBlockID  string            `json:"fallbackBlockId" mapstructure:"fallbackBlockId"`
}

// Route maps a classified intent to the successor block id.
// Unknown intents and NoMatch go to the fallback block.
func (p *IntentPayload) Route(intent string) string {
	if intent != NoMatch {
		if to, ok := p.IntentToBlock[intent]; ok {
			return to
		}
	}
	return p.FallbackBlockID
}

// Block is a node of the flow graph.
// Exactly one of Message or Intent is set, according to Kind.
type Block struct {
	ID   string
	Kind BlockKind

	// NextBlockID is only meaningful for Message blocks. Empty ends the conversation.
	NextBlockID string

	Message *MessagePayload
	Intent  *IntentPayload
}

// Successors returns every block id this block may transition to, in declaration order.
func (b *Block) Successors() []string {
	switch b.Kind {
	case BlockMessage:
		if b.NextBlockID == "" {
			return nil
		}
		return []string{b.NextBlockID}
	case BlockIntentDetection:
		if b.Intent == nil {
			return nil
		}
		out := make([]string, 0, len(b.Intent.IntentToBlock)+1)
		seen := make(map[string]bool, len(b.Intent.CandidateIntents))
		for _, intent := range b.Intent.CandidateIntents {
			seen[intent] = true
			if to, ok := b.Intent.IntentToBlock[intent]; ok && to != "" {
				out = append(out, to)
			}
		}
		// Mappings for intents outside the candidate list are unreachable at runtime,
		// but they still reference blocks.
		extra := make([]string, 0)
		for intent := range b.Intent.IntentToBlock {
			if !seen[intent] {
				extra = append(extra, intent)
			}
		}
		sort.Strings(extra)
		for _, intent := range extra {
			if to := b.Intent.IntentToBlock[intent]; to != "" {
				out = append(out, to)
			}
		}
		if b.Intent.FallbackBlockID != "" {
			out = append(out, b.Intent.FallbackBlockID)
		}
		return out
	}
	return nil
}
