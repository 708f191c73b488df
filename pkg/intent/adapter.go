// Package intent bounds and sanitises calls to an external intent classifier.
package intent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
)

// DefaultTimeout bounds a single classification.
const DefaultTimeout = 15 * time.Second

// Result is the outcome of one classification. Intent is always a candidate or domain.NoMatch.
type Result struct {
	Intent   string
	Outcome  domain.ClassifyOutcome
	Duration time.Duration
	// Err holds the recovered failure, wrapping domain.ErrClassificationUnavailable.
	Err error
}

// Adapter wraps a ports.IntentResolver so that it can never fail, hang or answer
// outside the candidate list.
type Adapter struct {
	resolver ports.IntentResolver
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures the Adapter.
type Option func(*Adapter)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithLogger configures a logger for the Adapter.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// NewAdapter wraps resolver. A nil resolver makes every classification unavailable.
func NewAdapter(resolver ports.IntentResolver, opts ...Option) *Adapter {
	a := &Adapter{
		resolver: resolver,
		timeout:  DefaultTimeout,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Timeout returns the configured bound.
func (a *Adapter) Timeout() time.Duration {
	return a.timeout
}

type reply struct {
	intent string
	err    error
}

// Resolve classifies text against candidates.
// The resolver runs in its own goroutine so that a resolver ignoring its context still cannot
// hold the caller past the timeout; its late answer is dropped.
func (a *Adapter) Resolve(ctx context.Context, text string, candidates []string) Result {
	start := time.Now()
	if a.resolver == nil {
		return a.unavailable(start, errors.New("no resolver configured"), domain.OutcomeError)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	ch := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- reply{err: fmt.Errorf("resolver panic: %v", r)}
			}
		}()
		intent, err := a.resolver.Classify(ctx, text, slices.Clone(candidates))
		ch <- reply{intent: intent, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return a.unavailable(start, fmt.Errorf("timed out after %s", a.timeout), domain.OutcomeTimeout)
		}
		return a.unavailable(start, ctx.Err(), domain.OutcomeError)
	case r := <-ch:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) {
				return a.unavailable(start, r.err, domain.OutcomeTimeout)
			}
			return a.unavailable(start, r.err, domain.OutcomeError)
		}
		return a.accept(start, r.intent, candidates)
	}
}

func (a *Adapter) accept(start time.Time, raw string, candidates []string) Result {
	intent := Normalize(raw)
	res := Result{Intent: domain.NoMatch, Duration: time.Since(start)}

	switch {
	case intent == "" || intent == domain.NoMatch:
		res.Outcome = domain.OutcomeNoMatch
	case slices.Contains(candidates, intent):
		res.Intent = intent
		res.Outcome = domain.OutcomeMatched
	default:
		a.logger.Warn("Classifier answered outside the candidate list", "answer", intent)
		res.Outcome = domain.OutcomeInvalid
	}
	return res
}

func (a *Adapter) unavailable(start time.Time, err error, outcome domain.ClassifyOutcome) Result {
	a.logger.Warn("Intent classification unavailable, using NO_MATCH", "outcome", outcome, "err", err)
	return Result{
		Intent:   domain.NoMatch,
		Outcome:  outcome,
		Duration: time.Since(start),
		Err:      fmt.Errorf("%w: %v", domain.ErrClassificationUnavailable, err),
	}
}

// Normalize strips the decoration classifiers tend to add around a label:
// surrounding whitespace, backticks and double quotes.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "`", "")
	s = strings.ReplaceAll(s, `"`, "")
	return strings.TrimSpace(s)
}
