package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
)

// Chat commands recognised by the Runner.
const (
	CommandQuit    = "/quit"
	CommandRestart = "/restart"
)

// DefaultSessionID is used when no session id is configured.
const DefaultSessionID = "local"

// Conversation is the engine surface the Runner drives.
type Conversation interface {
	Connect(ctx context.Context, sessionID string) error
	Message(ctx context.Context, sessionID, text string) error
	Disconnect(ctx context.Context, sessionID string) error
}

// Runner handles the read loop of one local session using the provided IO.
type Runner struct {
	Handler   IOHandler
	Logger    *slog.Logger
	SessionID string

	// interrupt stops the loop in place of OS signals (tests, embedding).
	interrupt <-chan struct{}
}

var _ ports.MessageSender = (*Runner)(nil)

// New creates a Runner with text IO on Stdin/Stdout.
func New(opts ...Option) *Runner {
	r := &Runner{
		Logger:    logging.NewNop(),
		SessionID: DefaultSessionID,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	return r
}

// Send implements ports.MessageSender. Messages for other sessions are rejected.
func (r *Runner) Send(ctx context.Context, sessionID, text string) error {
	if sessionID != r.SessionID {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	return r.Handler.Output(ctx, text)
}

// Run connects the session and forwards user lines until EOF, /quit or an interrupt.
// The session is always disconnected on the way out.
func (r *Runner) Run(ctx context.Context, conv Conversation) error {
	ctx, stop := r.signalContext(ctx)
	defer stop()

	defer func() {
		if err := conv.Disconnect(context.WithoutCancel(ctx), r.SessionID); err != nil {
			r.Logger.Warn("Failed to disconnect session", "session_id", r.SessionID, "err", err)
		}
	}()

	if err := r.connect(ctx, conv); err != nil {
		return err
	}

	for {
		text, err := r.Handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		switch text {
		case "":
			continue
		case CommandQuit:
			return nil
		case CommandRestart:
			_ = r.Handler.SystemOutput(ctx, "Restarting conversation.")
			if err := r.connect(ctx, conv); err != nil {
				return err
			}
			continue
		}

		if err := conv.Message(ctx, r.SessionID, text); err != nil && !Recoverable(err) {
			return fmt.Errorf("message error: %w", err)
		}
	}
}

func (r *Runner) connect(ctx context.Context, conv Conversation) error {
	if err := conv.Connect(ctx, r.SessionID); err != nil && !Recoverable(err) {
		return fmt.Errorf("connect error: %w", err)
	}
	return nil
}

// Recoverable reports whether err was already surfaced to the user as a bot message,
// so the conversation can go on.
func Recoverable(err error) bool {
	return errors.Is(err, domain.ErrUnconfigured) ||
		errors.Is(err, domain.ErrFlowCorrupted) ||
		errors.Is(err, domain.ErrUnexpectedInput) ||
		errors.Is(err, domain.ErrInputTooLarge) ||
		errors.Is(err, domain.ErrInvalidUTF8)
}

// signalContext cancels on SIGINT/SIGTERM, or on the configured interrupt source.
func (r *Runner) signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if r.interrupt == nil {
		return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	}
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-r.interrupt:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
