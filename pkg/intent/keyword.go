package intent

import (
	"context"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
)

// KeywordResolver is an offline classifier: a candidate matches when the text equals it or
// contains it, ignoring case. The first matching candidate wins.
type KeywordResolver struct{}

var _ ports.IntentResolver = KeywordResolver{}

// Classify implements ports.IntentResolver.
func (KeywordResolver) Classify(ctx context.Context, text string, candidates []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return domain.NoMatch, nil
	}
	for _, c := range candidates {
		lc := strings.ToLower(strings.TrimSpace(c))
		if lc == "" {
			continue
		}
		if needle == lc || strings.Contains(needle, lc) {
			return c, nil
		}
	}
	return domain.NoMatch, nil
}
