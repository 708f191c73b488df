package ports

import "context"

// MessageSender delivers a bot message to a session.
// Delivery is best-effort: a returned error is only logged, never retried.
type MessageSender interface {
	Send(ctx context.Context, sessionID, text string) error
}

// SenderFunc adapts a function to MessageSender.
type SenderFunc func(ctx context.Context, sessionID, text string) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, sessionID, text string) error {
	return f(ctx, sessionID, text)
}
