package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/intent"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/aretw0/chatflow/pkg/session"
)

// DefaultMaxSteps bounds the number of blocks visited by a single traversal burst.
const DefaultMaxSteps = 100

// Engine drives sessions through the installed flow graph.
// It holds no conversation state of its own beyond the registry entry: the graph is
// re-read from the flow store on every event.
type Engine struct {
	flows      ports.FlowStore
	registry   ports.SessionRegistry
	sender     ports.MessageSender
	resolver   ports.IntentResolver
	classifier *intent.Adapter
	transcript ports.TranscriptSink

	// events serialises Connect and Message per session.
	events *session.Manager
	// guard serialises registry writes against Disconnect. It is never held across a classification.
	guard *session.Manager

	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	maxSteps int
	now      func() time.Time
	sanitize func(string) (string, error)

	// live maps a session to the generation of its current connection. Disconnect retires it;
	// a classification that finishes after its generation was retired is dropped.
	liveMu sync.Mutex
	live   map[string]uint64
	gen    uint64
}

// Option configures the Engine.
type Option func(*Engine)

// WithResolver classifies intents with the given resolver and the default timeout.
func WithResolver(r ports.IntentResolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithIntentAdapter installs a preconfigured adapter. It takes precedence over WithResolver.
func WithIntentAdapter(a *intent.Adapter) Option {
	return func(e *Engine) {
		e.classifier = a
	}
}

// WithTranscriptSink records every exchanged message.
func WithTranscriptSink(sink ports.TranscriptSink) Option {
	return func(e *Engine) {
		e.transcript = sink
	}
}

// WithSessionManager overrides the per-session event lock.
func WithSessionManager(m *session.Manager) Option {
	return func(e *Engine) {
		e.events = m
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger configures a logger for the Engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxSteps overrides DefaultMaxSteps.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithClock overrides the transcript timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithInputSanitizer overrides domain.SanitizeInput for inbound messages.
func WithInputSanitizer(fn func(string) (string, error)) Option {
	return func(e *Engine) {
		e.sanitize = fn
	}
}

// NewEngine creates an Engine. Without WithResolver every message classifies as NO_MATCH.
func NewEngine(flows ports.FlowStore, registry ports.SessionRegistry, sender ports.MessageSender, opts ...Option) *Engine {
	e := &Engine{
		flows:      flows,
		registry:   registry,
		sender:     sender,
		transcript: ports.DiscardTranscript{},
		guard:      session.NewManager(),
		logger:     logging.NewNop(),
		maxSteps:   DefaultMaxSteps,
		now:        time.Now,
		sanitize:   domain.SanitizeInput,
		live:       make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.events == nil {
		e.events = session.NewManager(session.WithLogger(e.logger))
	}
	if e.classifier == nil {
		e.classifier = intent.NewAdapter(e.resolver, intent.WithLogger(e.logger))
	}
	return e
}

// Connect starts (or restarts) the conversation for a session at the start block.
func (e *Engine) Connect(ctx context.Context, sessionID string) error {
	return e.events.WithLock(ctx, sessionID, func(ctx context.Context) error {
		tok := e.renew(sessionID)
		e.emitSession(ctx, domain.EventConnect, sessionID, "", "")

		if err := e.registry.Begin(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to begin session %s: %w", sessionID, err)
		}

		graph, ok := e.flows.Current()
		if !ok {
			e.logger.Info("Session connected without a flow", "session_id", sessionID)
			if err := e.guard.WithLock(ctx, sessionID, func(ctx context.Context) error {
				return e.registry.Remove(ctx, sessionID)
			}); err != nil {
				return fmt.Errorf("failed to reset session %s: %w", sessionID, err)
			}
			e.say(ctx, sessionID, "", MsgUnconfigured)
			e.emitFailure(ctx, sessionID, domain.FailureUnconfigured, "", domain.ErrUnconfigured)
			return domain.ErrUnconfigured
		}

		return e.guard.WithLock(ctx, sessionID, func(ctx context.Context) error {
			if !e.alive(sessionID, tok) {
				return nil
			}
			if err := e.registry.Remove(ctx, sessionID); err != nil {
				return fmt.Errorf("failed to reset session %s: %w", sessionID, err)
			}
			e.logger.Debug("Session started", "session_id", sessionID, "flow_id", graph.FlowID)
			return e.advance(ctx, sessionID, graph, graph.StartBlockID)
		})
	})
}

// Message resumes a suspended session with user input.
func (e *Engine) Message(ctx context.Context, sessionID, text string) error {
	return e.events.WithLock(ctx, sessionID, func(ctx context.Context) error {
		tok := e.attach(sessionID)

		blockID, err := e.suspendedAt(ctx, sessionID)
		if err != nil {
			return err
		}

		clean, err := e.sanitize(text)
		if err != nil {
			e.record(ctx, sessionID, domain.ActorUser, strings.ToValidUTF8(text, "\uFFFD"), blockID)
			e.logger.Warn("Rejected user input", "session_id", sessionID, "err", err)
			e.say(ctx, sessionID, blockID, MsgInvalidInput)
			e.emitFailure(ctx, sessionID, domain.FailureInvalidInput, blockID, err)
			return fmt.Errorf("invalid input: %w", err)
		}
		e.record(ctx, sessionID, domain.ActorUser, clean, blockID)

		if blockID == "" {
			e.say(ctx, sessionID, "", MsgUnexpectedInput)
			e.emitFailure(ctx, sessionID, domain.FailureUnexpectedInput, "", domain.ErrUnexpectedInput)
			return domain.ErrUnexpectedInput
		}

		graph, ok := e.flows.Current()
		if !ok {
			e.say(ctx, sessionID, "", MsgUnconfigured)
			e.emitFailure(ctx, sessionID, domain.FailureUnconfigured, blockID, domain.ErrUnconfigured)
			return domain.ErrUnconfigured
		}

		block, ok := graph.Block(blockID)
		if !ok {
			return e.guard.WithLock(ctx, sessionID, func(ctx context.Context) error {
				return e.corrupted(ctx, sessionID, MsgFlowCorrupted(blockID), &domain.FlowCorruptedError{BlockID: blockID})
			})
		}
		if block.Kind != domain.BlockIntentDetection || block.Intent == nil {
			e.say(ctx, sessionID, blockID, MsgUnexpectedInput)
			e.emitFailure(ctx, sessionID, domain.FailureUnexpectedInput, blockID, domain.ErrUnexpectedInput)
			return domain.ErrUnexpectedInput
		}

		res := e.classifier.Resolve(ctx, clean, block.Intent.CandidateIntents)
		e.emitClassify(ctx, sessionID, blockID, res)

		return e.guard.WithLock(ctx, sessionID, func(ctx context.Context) error {
			if !e.alive(sessionID, tok) {
				e.logger.Debug("Discarding classification for a disconnected session",
					"session_id", sessionID, "intent", res.Intent)
				return nil
			}
			// The flow may have been replaced while classifying.
			if g, ok := e.flows.Current(); ok {
				graph = g
			}
			routes := block.Intent
			if b, ok := graph.Block(blockID); ok && b.Intent != nil {
				routes = b.Intent
			}
			next := routes.Route(res.Intent)
			e.logger.Debug("Intent routed",
				"session_id", sessionID,
				"block_id", blockID,
				"intent", res.Intent,
				"next", next,
			)
			return e.advance(ctx, sessionID, graph, next)
		})
	})
}

// Disconnect forgets a session. It does not wait for an in-flight classification:
// the pending result is dropped when it arrives.
func (e *Engine) Disconnect(ctx context.Context, sessionID string) error {
	return e.guard.WithLock(ctx, sessionID, func(ctx context.Context) error {
		e.retire(sessionID)
		e.emitSession(ctx, domain.EventDisconnect, sessionID, "", "")
		if err := e.registry.Remove(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to remove session %s: %w", sessionID, err)
		}
		e.logger.Debug("Session disconnected", "session_id", sessionID)
		return nil
	})
}

// Sessions returns the ids of every session suspended at a block.
func (e *Engine) Sessions(ctx context.Context) ([]string, error) {
	return e.registry.List(ctx)
}

func (e *Engine) suspendedAt(ctx context.Context, sessionID string) (string, error) {
	blockID, err := e.registry.Get(ctx, sessionID)
	if err == nil {
		return blockID, nil
	}
	if errors.Is(err, domain.ErrSessionNotFound) {
		return "", nil
	}
	return "", fmt.Errorf("failed to read session %s: %w", sessionID, err)
}

// renew starts a new generation for the session, retiring any previous connection.
func (e *Engine) renew(sessionID string) uint64 {
	e.liveMu.Lock()
	defer e.liveMu.Unlock()
	e.gen++
	e.live[sessionID] = e.gen
	return e.gen
}

// attach returns the current generation, creating one for sessions started by another process.
func (e *Engine) attach(sessionID string) uint64 {
	e.liveMu.Lock()
	defer e.liveMu.Unlock()
	tok, ok := e.live[sessionID]
	if !ok {
		e.gen++
		tok = e.gen
		e.live[sessionID] = tok
	}
	return tok
}

func (e *Engine) retire(sessionID string) {
	e.liveMu.Lock()
	defer e.liveMu.Unlock()
	delete(e.live, sessionID)
}

func (e *Engine) alive(sessionID string, tok uint64) bool {
	e.liveMu.Lock()
	defer e.liveMu.Unlock()
	return e.live[sessionID] == tok
}
