package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventConnect    EventType = "connect"
	EventDisconnect EventType = "disconnect"
	EventBlockEnter EventType = "block_enter"
	EventSuspend    EventType = "suspend"
	EventEnd        EventType = "end"
	EventClassify   EventType = "classify"
	EventFailure    EventType = "failure"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// SessionEvent marks connect, disconnect and conversation end.
type SessionEvent struct {
	EventBase
	FlowID string `json:"flow_id,omitempty"`
	// Reason is set on EventEnd: "completed" or "corrupted".
	Reason string `json:"reason,omitempty"`
}

// BlockEvent marks entry into a block or suspension at one.
type BlockEvent struct {
	EventBase
	BlockID string    `json:"block_id"`
	Kind    BlockKind `json:"kind"`
}

// ClassifyOutcome describes how an intent was obtained.
type ClassifyOutcome string

const (
	OutcomeMatched ClassifyOutcome = "matched"
	OutcomeNoMatch ClassifyOutcome = "no_match"
	OutcomeInvalid ClassifyOutcome = "invalid"
	OutcomeTimeout ClassifyOutcome = "timeout"
	OutcomeError   ClassifyOutcome = "error"
)

// ClassifyEvent reports a single intent classification.
type ClassifyEvent struct {
	EventBase
	BlockID  string          `json:"block_id"`
	Intent   string          `json:"intent"`
	Outcome  ClassifyOutcome `json:"outcome"`
	Duration time.Duration   `json:"duration"`
	Err      error           `json:"-"`
}

// FailureKind categorises session-local failures.
type FailureKind string

const (
	FailureUnconfigured    FailureKind = "unconfigured"
	FailureFlowCorrupted   FailureKind = "flow_corrupted"
	FailureUnexpectedInput FailureKind = "unexpected_input"
	FailureInvalidInput    FailureKind = "invalid_input"
	FailureSend            FailureKind = "send"
	FailureTranscript      FailureKind = "transcript"
)

// FailureEvent reports a recovered, session-local failure.
type FailureEvent struct {
	EventBase
	Kind    FailureKind `json:"kind"`
	BlockID string      `json:"block_id,omitempty"`
	Err     error       `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Every hook is optional.
type LifecycleHooks struct {
	OnConnect    func(context.Context, *SessionEvent)
	OnDisconnect func(context.Context, *SessionEvent)
	OnBlockEnter func(context.Context, *BlockEvent)
	OnSuspend    func(context.Context, *BlockEvent)
	OnEnd        func(context.Context, *SessionEvent)
	OnClassify   func(context.Context, *ClassifyEvent)
	OnFailure    func(context.Context, *FailureEvent)
}

// MergeHooks fans every event out to all the given hook sets, in order.
func MergeHooks(sets ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnConnect: func(ctx context.Context, e *SessionEvent) {
			for _, h := range sets {
				if h.OnConnect != nil {
					h.OnConnect(ctx, e)
				}
			}
		},
		OnDisconnect: func(ctx context.Context, e *SessionEvent) {
			for _, h := range sets {
				if h.OnDisconnect != nil {
					h.OnDisconnect(ctx, e)
				}
			}
		},
		OnBlockEnter: func(ctx context.Context, e *BlockEvent) {
			for _, h := range sets {
				if h.OnBlockEnter != nil {
					h.OnBlockEnter(ctx, e)
				}
			}
		},
		OnSuspend: func(ctx context.Context, e *BlockEvent) {
			for _, h := range sets {
				if h.OnSuspend != nil {
					h.OnSuspend(ctx, e)
				}
			}
		},
		OnEnd: func(ctx context.Context, e *SessionEvent) {
			for _, h := range sets {
				if h.OnEnd != nil {
					h.OnEnd(ctx, e)
				}
			}
		},
		OnClassify: func(ctx context.Context, e *ClassifyEvent) {
			for _, h := range sets {
				if h.OnClassify != nil {
					h.OnClassify(ctx, e)
				}
			}
		},
		OnFailure: func(ctx context.Context, e *FailureEvent) {
			for _, h := range sets {
				if h.OnFailure != nil {
					h.OnFailure(ctx, e)
				}
			}
		},
	}
}
