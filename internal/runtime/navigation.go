package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/chatflow/pkg/domain"
)

// advance walks the graph from blockID until the session suspends at an intent detection
// block, the flow ends, or the flow turns out to be corrupted.
// Callers hold the session guard.
func (e *Engine) advance(ctx context.Context, sessionID string, graph *domain.Graph, blockID string) error {
	for steps := 0; ; steps++ {
		if blockID == "" {
			return e.end(ctx, sessionID, graph.FlowID)
		}
		if steps >= e.maxSteps {
			e.logger.Warn("Step limit reached, halting traversal",
				"session_id", sessionID,
				"block_id", blockID,
				"max_steps", e.maxSteps,
			)
			return e.corrupted(ctx, sessionID, MsgStepLimit(blockID), &domain.FlowCorruptedError{
				BlockID: blockID,
				Reason:  fmt.Sprintf("more than %d blocks without user input", e.maxSteps),
			})
		}

		block, ok := graph.Block(blockID)
		if !ok {
			return e.corrupted(ctx, sessionID, MsgFlowCorrupted(blockID), &domain.FlowCorruptedError{BlockID: blockID})
		}
		e.emitBlock(ctx, domain.EventBlockEnter, sessionID, block)

		switch block.Kind {
		case domain.BlockMessage:
			text := ""
			if block.Message != nil {
				text = block.Message.Text
			}
			e.say(ctx, sessionID, block.ID, text)
			blockID = block.NextBlockID

		case domain.BlockIntentDetection:
			if err := e.registry.Set(ctx, sessionID, block.ID); err != nil {
				return fmt.Errorf("failed to suspend session %s at %s: %w", sessionID, block.ID, err)
			}
			e.emitBlock(ctx, domain.EventSuspend, sessionID, block)
			return nil

		default:
			return e.corrupted(ctx, sessionID, MsgFlowCorrupted(block.ID), &domain.FlowCorruptedError{
				BlockID: block.ID,
				Reason:  fmt.Sprintf("unknown block kind %q", block.Kind),
			})
		}
	}
}

// end removes the session entry once the flow runs out of blocks.
func (e *Engine) end(ctx context.Context, sessionID, flowID string) error {
	if err := e.registry.Remove(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to end session %s: %w", sessionID, err)
	}
	e.logger.Debug("Conversation ended", "session_id", sessionID, "flow_id", flowID)
	e.emitSession(ctx, domain.EventEnd, sessionID, flowID, "completed")
	return nil
}

// corrupted reports a broken flow to the user and halts the session.
// The entry is removed so the same error is not raised on every following message.
func (e *Engine) corrupted(ctx context.Context, sessionID, msg string, cause *domain.FlowCorruptedError) error {
	e.logger.Error("Flow corrupted", "session_id", sessionID, "block_id", cause.BlockID, "err", cause)
	e.say(ctx, sessionID, "", msg)

	if err := e.registry.Remove(ctx, sessionID); err != nil {
		e.logger.Warn("Failed to clear corrupted session", "session_id", sessionID, "err", err)
	}
	e.emitFailure(ctx, sessionID, domain.FailureFlowCorrupted, cause.BlockID, cause)
	e.emitSession(ctx, domain.EventEnd, sessionID, "", "corrupted")
	return cause
}

// say sends a bot message. The transcript record is written first so a failed send is
// still on record.
func (e *Engine) say(ctx context.Context, sessionID, blockID, text string) {
	e.record(ctx, sessionID, domain.ActorBot, text, blockID)
	if err := e.sender.Send(ctx, sessionID, text); err != nil {
		e.logger.Warn("Failed to send message", "session_id", sessionID, "block_id", blockID, "err", err)
		e.emitFailure(ctx, sessionID, domain.FailureSend, blockID, err)
	}
}

func (e *Engine) record(ctx context.Context, sessionID string, actor domain.Actor, text, blockID string) {
	rec := domain.NewTranscriptRecord(sessionID, actor, text, blockID, e.now())
	if err := e.transcript.Append(ctx, rec); err != nil {
		e.logger.Warn("Failed to append transcript record",
			"session_id", sessionID,
			"actor", actor,
			"err", err,
		)
		e.emitFailure(ctx, sessionID, domain.FailureTranscript, blockID, err)
	}
}
