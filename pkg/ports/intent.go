package ports

import "context"

// IntentResolver is the external classification capability.
// It returns one of candidates or domain.NoMatch; it may fail or block.
// Callers bound it with a timeout and treat any failure as domain.NoMatch.
type IntentResolver interface {
	Classify(ctx context.Context, text string, candidates []string) (string, error)
}

// IntentResolverFunc adapts a function to IntentResolver.
type IntentResolverFunc func(ctx context.Context, text string, candidates []string) (string, error)

// Classify calls f.
func (f IntentResolverFunc) Classify(ctx context.Context, text string, candidates []string) (string, error) {
	return f(ctx, text, candidates)
}
