package runner

import "context"

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Output presents a bot message.
	Output(ctx context.Context, text string) error

	// Input blocks until the user submits a line. io.EOF ends the conversation.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a notice that did not come from the flow.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)
