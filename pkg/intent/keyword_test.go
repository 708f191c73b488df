package intent_test

import (
	"context"
	"testing"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/intent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordResolver(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"exact", "get weather", "Get Weather"},
		{"substring", "could you get news for me", "Get News"},
		{"first candidate wins", "get weather and get news", "Get Weather"},
		{"no match", "hello there", domain.NoMatch},
		{"blank", "   ", domain.NoMatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := intent.KeywordResolver{}.Classify(context.Background(), tt.text, candidates)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeywordResolver_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := intent.KeywordResolver{}.Classify(ctx, "get news", candidates)
	assert.ErrorIs(t, err, context.Canceled)
}
