package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const weatherFlow = `{
  "flowId": "weather",
  "startBlockId": "A",
  "blocks": [
    {"id": "A", "type": "MESSAGE", "data": {"text": "Welcome!"}, "nextBlockId": "B"},
    {"id": "B", "type": "INTENT_DETECTION", "data": {
      "intents": ["Get Weather"],
      "mappings": {"Get Weather": "C", "NO_MATCH": "C"},
      "fallbackBlockId": "D"
    }},
    {"id": "C", "type": "MESSAGE", "data": {"text": "It is sunny."}},
    {"id": "D", "type": "message", "data": {"text": "Sorry, I did not get that."}}
  ]
}`

func TestGraph_UnmarshalJSON(t *testing.T) {
	var g domain.Graph
	require.NoError(t, json.Unmarshal([]byte(weatherFlow), &g))

	want := []domain.Block{
		{ID: "A", Kind: domain.BlockMessage, NextBlockID: "B", Message: &domain.MessagePayload{Text: "Welcome!"}},
		{ID: "B", Kind: domain.BlockIntentDetection, Intent: &domain.IntentPayload{
			CandidateIntents: []string{"Get Weather"},
			IntentToBlock:    map[string]string{"Get Weather": "C"},
			FallbackBlockID:  "D",
		}},
		{ID: "C", Kind: domain.BlockMessage, Message: &domain.MessagePayload{Text: "It is sunny."}},
		{ID: "D", Kind: domain.BlockMessage, Message: &domain.MessagePayload{Text: "Sorry, I did not get that."}},
	}

	assert.Equal(t, "weather", g.FlowID)
	assert.Equal(t, "A", g.StartBlockID)
	if diff := cmp.Diff(want, g.Blocks, cmp.AllowUnexported(domain.Graph{})); diff != "" {
		t.Errorf("decoded blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestGraph_UnmarshalJSON_UnknownType(t *testing.T) {
	var g domain.Graph
	err := json.Unmarshal([]byte(`{"flowId":"x","blocks":[{"id":"a","type":"API_CALL"}]}`), &g)
	assert.ErrorIs(t, err, domain.ErrInvalidGraph)
}

func TestGraph_MarshalJSON_AuthoringForm(t *testing.T) {
	var g domain.Graph
	require.NoError(t, json.Unmarshal([]byte(weatherFlow), &g))

	out, err := json.Marshal(&g)
	require.NoError(t, err)

	var raw domain.RawGraph
	require.NoError(t, json.Unmarshal(out, &raw))
	assert.Equal(t, "weather", raw.FlowID)
	require.Len(t, raw.Blocks, 4)
	assert.Equal(t, "INTENT_DETECTION", raw.Blocks[1].Type)
	assert.Equal(t, "D", raw.Blocks[1].Data["fallbackBlockId"])
	assert.Equal(t, "Welcome!", raw.Blocks[0].Data["text"])
}

func TestGraph_Validate(t *testing.T) {
	tests := []struct {
		name    string
		graph   *domain.Graph
		wantErr bool
	}{
		{name: "nil graph", graph: nil, wantErr: true},
		{name: "empty flowId", graph: &domain.Graph{StartBlockID: "a"}, wantErr: true},
		{name: "blank flowId", graph: &domain.Graph{FlowID: "   "}, wantErr: true},
		{name: "message without payload", graph: &domain.Graph{FlowID: "f", Blocks: []domain.Block{{ID: "a", Kind: domain.BlockMessage}}}, wantErr: true},
		{name: "unknown kind", graph: &domain.Graph{FlowID: "f", Blocks: []domain.Block{{ID: "a", Kind: "LOOP"}}}, wantErr: true},
		{name: "minimal", graph: &domain.Graph{FlowID: "f"}, wantErr: false},
		{name: "dangling references are a runtime concern", graph: &domain.Graph{
			FlowID:       "f",
			StartBlockID: "missing",
			Blocks:       []domain.Block{{ID: "a", Kind: domain.BlockMessage, NextBlockID: "nowhere", Message: &domain.MessagePayload{}}},
		}, wantErr: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.graph.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidGraph)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGraph_SealAndLookup(t *testing.T) {
	g := &domain.Graph{
		FlowID: "f",
		Blocks: []domain.Block{
			{ID: "a", Kind: domain.BlockMessage, Message: &domain.MessagePayload{Text: "first"}},
			{ID: "a", Kind: domain.BlockMessage, Message: &domain.MessagePayload{Text: "second"}},
		},
	}
	sealed := g.Seal()

	b, ok := sealed.Block("a")
	require.True(t, ok)
	assert.Equal(t, "first", b.Message.Text, "first definition wins")

	_, ok = sealed.Block("b")
	assert.False(t, ok)

	// Sealing copies the block slice.
	g.Blocks[0].ID = "changed"
	_, ok = sealed.Block("a")
	assert.True(t, ok)
}

func TestIntentPayload_Route(t *testing.T) {
	p := &domain.IntentPayload{
		CandidateIntents: []string{"Get Weather", "Get News"},
		IntentToBlock:    map[string]string{"Get Weather": "weather"},
		FallbackBlockID:  "fallback",
	}
	assert.Equal(t, "weather", p.Route("Get Weather"))
	assert.Equal(t, "fallback", p.Route("Get News"))
	assert.Equal(t, "fallback", p.Route(domain.NoMatch))
	assert.Equal(t, "fallback", p.Route("something else"))
}
