package runtime

import (
	"context"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/intent"
)

func (e *Engine) base(t domain.EventType, sessionID string) domain.EventBase {
	return domain.EventBase{Timestamp: e.now(), Type: t, SessionID: sessionID}
}

func (e *Engine) emitSession(ctx context.Context, t domain.EventType, sessionID, flowID, reason string) {
	var hook func(context.Context, *domain.SessionEvent)
	switch t {
	case domain.EventConnect:
		hook = e.hooks.OnConnect
	case domain.EventDisconnect:
		hook = e.hooks.OnDisconnect
	case domain.EventEnd:
		hook = e.hooks.OnEnd
	}
	if hook == nil {
		return
	}
	hook(ctx, &domain.SessionEvent{EventBase: e.base(t, sessionID), FlowID: flowID, Reason: reason})
}

func (e *Engine) emitBlock(ctx context.Context, t domain.EventType, sessionID string, block *domain.Block) {
	hook := e.hooks.OnBlockEnter
	if t == domain.EventSuspend {
		hook = e.hooks.OnSuspend
	}
	if hook == nil {
		return
	}
	hook(ctx, &domain.BlockEvent{EventBase: e.base(t, sessionID), BlockID: block.ID, Kind: block.Kind})
}

func (e *Engine) emitClassify(ctx context.Context, sessionID, blockID string, res intent.Result) {
	if e.hooks.OnClassify == nil {
		return
	}
	e.hooks.OnClassify(ctx, &domain.ClassifyEvent{
		EventBase: e.base(domain.EventClassify, sessionID),
		BlockID:   blockID,
		Intent:    res.Intent,
		Outcome:   res.Outcome,
		Duration:  res.Duration,
		Err:       res.Err,
	})
}

func (e *Engine) emitFailure(ctx context.Context, sessionID string, kind domain.FailureKind, blockID string, err error) {
	if e.hooks.OnFailure == nil {
		return
	}
	e.hooks.OnFailure(ctx, &domain.FailureEvent{
		EventBase: e.base(domain.EventFailure, sessionID),
		Kind:      kind,
		BlockID:   blockID,
		Err:       err,
	})
}
