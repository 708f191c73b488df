package domain_test

import (
	"strings"
	"testing"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func msg(id, text, next string) domain.Block {
	return domain.Block{ID: id, Kind: domain.BlockMessage, NextBlockID: next, Message: &domain.MessagePayload{Text: text}}
}

func findingsFor(findings []domain.Finding, blockID string) []string {
	var out []string
	for _, f := range findings {
		if f.BlockID == blockID {
			out = append(out, f.Message)
		}
	}
	return out
}

func TestLint_CleanGraph(t *testing.T) {
	g := &domain.Graph{
		FlowID:       "f",
		StartBlockID: "a",
		Blocks: []domain.Block{
			msg("a", "hi", "b"),
			{ID: "b", Kind: domain.BlockIntentDetection, Intent: &domain.IntentPayload{
				CandidateIntents: []string{"yes"},
				IntentToBlock:    map[string]string{"yes": "c"},
				FallbackBlockID:  "c",
			}},
			msg("c", "bye", ""),
		},
	}
	assert.Empty(t, g.Lint())
}

func TestLint_Problems(t *testing.T) {
	g := &domain.Graph{
		FlowID:       "f",
		StartBlockID: "a",
		Blocks: []domain.Block{
			msg("a", "hi", "ghost"),
			msg("loop1", "ping", "loop2"),
			msg("loop2", "pong", "loop1"),
			{ID: "ask", Kind: domain.BlockIntentDetection, Intent: &domain.IntentPayload{
				CandidateIntents: []string{"x"},
			}},
		},
	}
	findings := g.Lint()
	assert.True(t, domain.HasErrors(findings))

	assert.Contains(t, findingsFor(findings, "a"), `dangling reference to "ghost"`)
	assert.Contains(t, findingsFor(findings, "loop2"), "unreachable from start block")
	assert.Contains(t, findingsFor(findings, "ask"), `intent "x" has no mapping`)

	var cycles int
	for _, f := range findings {
		if strings.Contains(f.Message, "cycle") {
			cycles++
		}
	}
	assert.Equal(t, 1, cycles, "a cycle is reported once")
}

func TestLint_MissingStart(t *testing.T) {
	g := &domain.Graph{FlowID: "f", StartBlockID: "nope"}
	assert.Contains(t, findingsFor(g.Lint(), "nope"), "start block not found")
}
