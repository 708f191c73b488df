package chatflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/internal/runtime"
	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/flowstore"
	"github.com/aretw0/chatflow/pkg/intent"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/aretw0/chatflow/pkg/session"
)

// Engine is the high-level entry point of the library.
// It owns the flow store and wraps the internal runtime.
type Engine struct {
	runtime *runtime.Engine
	flows   *flowstore.Store

	registry        ports.SessionRegistry
	resolver        ports.IntentResolver
	classifyTimeout time.Duration
	transcript      ports.TranscriptSink
	locker          ports.DistributedLocker
	snapshot        ports.FlowSnapshotter
	hooks           domain.LifecycleHooks
	installListener func(*domain.Graph, error)
	maxSteps        int
	logger          *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithRegistry sets where suspended sessions are tracked (default: in memory).
func WithRegistry(r ports.SessionRegistry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithResolver sets the intent classifier. Without one every message takes the fallback.
func WithResolver(r ports.IntentResolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithClassifyTimeout overrides intent.DefaultTimeout.
func WithClassifyTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.classifyTimeout = d
	}
}

// WithTranscriptSink records every exchanged message.
func WithTranscriptSink(sink ports.TranscriptSink) Option {
	return func(e *Engine) {
		e.transcript = sink
	}
}

// WithSessionLocker also takes a distributed lock per session event, for deployments where
// several processes share a registry.
func WithSessionLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithSnapshotter persists installed flows so Restore can bring them back after a restart.
func WithSnapshotter(s ports.FlowSnapshotter) Option {
	return func(e *Engine) {
		e.snapshot = s
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithInstallListener is called after every install attempt.
func WithInstallListener(fn func(*domain.Graph, error)) Option {
	return func(e *Engine) {
		e.installListener = fn
	}
}

// WithMaxSteps bounds the blocks visited between two user messages.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an unconfigured Engine that talks to users through sender.
func New(sender ports.MessageSender, opts ...Option) *Engine {
	e := &Engine{
		classifyTimeout: intent.DefaultTimeout,
		logger:          logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = memory.NewRegistry(memory.WithLogger(e.logger))
	}

	storeOpts := []flowstore.Option{flowstore.WithLogger(e.logger)}
	if e.snapshot != nil {
		storeOpts = append(storeOpts, flowstore.WithSnapshotter(e.snapshot))
	}
	if e.installListener != nil {
		storeOpts = append(storeOpts, flowstore.WithInstallListener(e.installListener))
	}
	e.flows = flowstore.New(storeOpts...)

	sessionOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(e.locker))
	}

	rtOpts := []runtime.Option{
		runtime.WithLogger(e.logger),
		runtime.WithIntentAdapter(intent.NewAdapter(e.resolver,
			intent.WithTimeout(e.classifyTimeout),
			intent.WithLogger(e.logger),
		)),
		runtime.WithSessionManager(session.NewManager(sessionOpts...)),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithMaxSteps(e.maxSteps),
	}
	if e.transcript != nil {
		rtOpts = append(rtOpts, runtime.WithTranscriptSink(e.transcript))
	}
	e.runtime = runtime.NewEngine(e.flows, e.registry, sender, rtOpts...)
	return e
}

// Flows returns the flow store, for transports that install flows.
func (e *Engine) Flows() *flowstore.Store {
	return e.flows
}

// Install validates and activates a flow.
func (e *Engine) Install(ctx context.Context, g *domain.Graph) error {
	return e.flows.Install(ctx, g)
}

// InstallFrom loads a flow from src and activates it.
func (e *Engine) InstallFrom(ctx context.Context, src ports.FlowSource) error {
	g, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load flow: %w", err)
	}
	return e.flows.Install(ctx, g)
}

// Current returns the active flow, or false when none is installed.
func (e *Engine) Current() (*domain.Graph, bool) {
	return e.flows.Current()
}

// Restore activates the last snapshot saved through WithSnapshotter.
func (e *Engine) Restore(ctx context.Context) (bool, error) {
	return e.flows.Restore(ctx)
}

// Connect starts or restarts the conversation of a session.
func (e *Engine) Connect(ctx context.Context, sessionID string) error {
	return e.runtime.Connect(ctx, sessionID)
}

// Message delivers a user message to a session.
func (e *Engine) Message(ctx context.Context, sessionID, text string) error {
	return e.runtime.Message(ctx, sessionID, text)
}

// Disconnect forgets a session.
func (e *Engine) Disconnect(ctx context.Context, sessionID string) error {
	return e.runtime.Disconnect(ctx, sessionID)
}

// Sessions lists the sessions currently waiting for input.
func (e *Engine) Sessions(ctx context.Context) ([]string, error) {
	return e.runtime.Sessions(ctx)
}
