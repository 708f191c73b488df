package dsl

import "github.com/aretw0/chatflow/pkg/domain"

// MessageBuilder configures a Message block. The embedded Builder continues the chain.
type MessageBuilder struct {
	*Builder
	block *domain.Block
}

// Text sets the message sent to the user.
func (m *MessageBuilder) Text(text string) *MessageBuilder {
	m.block.Message.Text = text
	return m
}

// Go sets the successor block. Without it the conversation ends here.
func (m *MessageBuilder) Go(target string) *MessageBuilder {
	m.block.NextBlockID = target
	return m
}

// IntentBuilder configures an IntentDetection block.
type IntentBuilder struct {
	*Builder
	block *domain.Block
}

// When adds a candidate intent routed to target.
func (i *IntentBuilder) When(intent, target string) *IntentBuilder {
	p := i.block.Intent
	if _, ok := p.IntentToBlock[intent]; !ok {
		p.CandidateIntents = append(p.CandidateIntents, intent)
	}
	p.IntentToBlock[intent] = target
	return i
}

// Otherwise sets the block reached on NO_MATCH or any unmapped intent.
func (i *IntentBuilder) Otherwise(target string) *IntentBuilder {
	i.block.Intent.FallbackBlockID = target
	return i
}
