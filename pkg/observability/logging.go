package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/chatflow/pkg/domain"
)

// LoggingHooks logs every lifecycle event at debug level, failures at warn.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	session := func(ctx context.Context, e *domain.SessionEvent) {
		logger.DebugContext(ctx, string(e.Type),
			"session_id", e.SessionID,
			"flow_id", e.FlowID,
			"reason", e.Reason,
		)
	}
	block := func(ctx context.Context, e *domain.BlockEvent) {
		logger.DebugContext(ctx, string(e.Type),
			"session_id", e.SessionID,
			"block_id", e.BlockID,
			"kind", e.Kind,
		)
	}
	return domain.LifecycleHooks{
		OnConnect:    session,
		OnDisconnect: session,
		OnEnd:        session,
		OnBlockEnter: block,
		OnSuspend:    block,
		OnClassify: func(ctx context.Context, e *domain.ClassifyEvent) {
			attrs := []any{
				"session_id", e.SessionID,
				"block_id", e.BlockID,
				"intent", e.Intent,
				"outcome", e.Outcome,
				"duration", e.Duration,
			}
			if e.Err != nil {
				logger.WarnContext(ctx, "classify", append(attrs, "err", e.Err)...)
				return
			}
			logger.DebugContext(ctx, "classify", attrs...)
		},
		OnFailure: func(ctx context.Context, e *domain.FailureEvent) {
			logger.WarnContext(ctx, "failure",
				"session_id", e.SessionID,
				"kind", e.Kind,
				"block_id", e.BlockID,
				"err", e.Err,
			)
		},
	}
}
