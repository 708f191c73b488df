package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/chatflow/internal/presentation/graph"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func weatherFlow() *domain.Graph {
	return &domain.Graph{
		FlowID:       "weather-bot",
		StartBlockID: "A",
		Blocks: []domain.Block{
			{ID: "A", Kind: domain.BlockMessage, NextBlockID: "B", Message: &domain.MessagePayload{Text: "Welcome!"}},
			{ID: "B", Kind: domain.BlockIntentDetection, Intent: &domain.IntentPayload{
				CandidateIntents: []string{"Get Weather", "Get News"},
				IntentToBlock:    map[string]string{"Get Weather": "C", "Get News": "D"},
				FallbackBlockID:  "E",
			}},
			{ID: "C", Kind: domain.BlockMessage, Message: &domain.MessagePayload{Text: "It's sunny."}},
			{ID: "E", Kind: domain.BlockMessage, NextBlockID: "B", Message: &domain.MessagePayload{Text: "Say \"weather\" or \"news\"."}},
		},
	}
}

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		graph    *domain.Graph
		overlay  *graph.GraphOverlay
		contains []string
		absent   []string
	}{
		{
			name:  "Shapes",
			graph: weatherFlow(),
			contains: []string{
				"graph TD\n",
				`A(("A<br/>Welcome!"))`,
				`B[/"B"/]`,
				`C["C<br/>It's sunny."]`,
			},
		},
		{
			name:  "Edges",
			graph: weatherFlow(),
			contains: []string{
				"A --> B",
				`B -- "Get Weather" --> C`,
				`B -- "Get News" --> D`,
				"B -. fallback .-> E",
				"E --> B",
			},
		},
		{
			name:  "Quotes escaped",
			graph: weatherFlow(),
			contains: []string{
				`E["E<br/>Say 'weather' or 'news'."]`,
			},
		},
		{
			name:  "Dangling reference",
			graph: weatherFlow(),
			contains: []string{
				"classDef missing",
				`D["D ?"]`,
				"class D missing;",
			},
			absent: []string{"class C missing;"},
		},
		{
			name:  "ID sanitization",
			graph: &domain.Graph{FlowID: "x", StartBlockID: "intro.step-1", Blocks: []domain.Block{
				{ID: "intro.step-1", Kind: domain.BlockMessage, Message: &domain.MessagePayload{}},
			}},
			contains: []string{`intro_step_1(("intro.step-1"))`},
		},
		{
			name:    "Overlay",
			graph:   weatherFlow(),
			overlay: &graph.GraphOverlay{VisitedBlocks: []string{"A", "B", "A"}, CurrentBlock: "B"},
			contains: []string{
				"classDef visited",
				"class A visited;",
				"class B current;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.graph, tt.overlay)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, not := range tt.absent {
				assert.NotContains(t, got, not)
			}
		})
	}
}

func TestGenerateMermaid_VisitedDeduplicated(t *testing.T) {
	got := graph.GenerateMermaid(weatherFlow(), &graph.GraphOverlay{VisitedBlocks: []string{"A", "A", ""}})
	assert.Equal(t, 1, strings.Count(got, "class A visited;"))
}

func TestGenerateMermaid_LongTextTruncated(t *testing.T) {
	g := &domain.Graph{FlowID: "x", Blocks: []domain.Block{
		{ID: "m", Kind: domain.BlockMessage, Message: &domain.MessagePayload{Text: strings.Repeat("word ", 30)}},
	}}
	got := graph.GenerateMermaid(g, nil)
	assert.Contains(t, got, "…")
	assert.NotContains(t, got, strings.Repeat("word ", 10))
}

func TestGenerateMermaid_Nil(t *testing.T) {
	assert.Equal(t, "graph TD\n", graph.GenerateMermaid(nil, nil))
}
