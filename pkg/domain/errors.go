package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGraph is returned when a flow is rejected at install time.
	ErrInvalidGraph = errors.New("invalid flow graph")

	// ErrUnconfigured is returned when a session connects while no flow is installed.
	ErrUnconfigured = errors.New("chatbot not configured")

	// ErrFlowCorrupted is returned when a referenced block id does not resolve.
	ErrFlowCorrupted = errors.New("flow corrupted")

	// ErrUnexpectedInput is returned when a message arrives while the session is not suspended.
	ErrUnexpectedInput = errors.New("unexpected input")

	// ErrClassificationUnavailable marks a resolver timeout or failure. It never reaches the user.
	ErrClassificationUnavailable = errors.New("classification unavailable")

	// ErrSessionNotFound is returned when a session id has no tracked state.
	ErrSessionNotFound = errors.New("session not found")
)

// FlowCorruptedError names the block id that could not be resolved.
type FlowCorruptedError struct {
	BlockID string
	Reason  string
}

func (e *FlowCorruptedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("flow corrupted at block %q: %s", e.BlockID, e.Reason)
	}
	return fmt.Sprintf("flow corrupted: block %q not found", e.BlockID)
}

func (e *FlowCorruptedError) Unwrap() error {
	return ErrFlowCorrupted
}
