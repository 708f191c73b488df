package runtime

import "fmt"

// User-visible messages sent by the engine itself.
const (
	MsgUnconfigured    = "Chatbot not configured. Please upload a flow."
	MsgUnexpectedInput = "Error: I was not expecting a message right now."
	MsgInvalidInput    = "Error: invalid input."
)

// MsgFlowCorrupted names the block id that could not be resolved.
func MsgFlowCorrupted(blockID string) string {
	return fmt.Sprintf("Error: Flow is corrupted. Cannot find block with ID: %s", blockID)
}

// MsgStepLimit names the block where an endless chain of messages was cut.
func MsgStepLimit(blockID string) string {
	return fmt.Sprintf("Error: Flow is corrupted. Too many consecutive blocks without input at block ID: %s", blockID)
}
