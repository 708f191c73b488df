// Package cli wires the configured adapters into a running chatflow engine for the
// command-line entry points.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/internal/config"
	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/adapters/file"
	"github.com/aretw0/chatflow/pkg/adapters/gemini"
	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/adapters/postgres"
	"github.com/aretw0/chatflow/pkg/adapters/redis"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/intent"
	"github.com/aretw0/chatflow/pkg/observability"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/aretw0/chatflow/pkg/transcript"
	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
)

// App is an engine together with the resources it owns.
type App struct {
	Engine *chatflow.Engine

	// Transcripts reads back what the sink wrote, decrypted. Nil when transcripts are off.
	Transcripts ports.TranscriptReader
	Metrics     *observability.Metrics
	Logger      *slog.Logger

	closers []func() error
}

// Close releases every connection and file opened by Build, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

type buildOptions struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	redis      *backend.Client
	resolver   ports.IntentResolver
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) BuildOption {
	return func(o *buildOptions) {
		o.logger = logger
	}
}

// WithRegisterer enables Prometheus metrics on reg.
func WithRegisterer(reg prometheus.Registerer) BuildOption {
	return func(o *buildOptions) {
		o.registerer = reg
	}
}

// WithRedisClient reuses client instead of dialling cfg.RedisAddr. The caller keeps ownership.
func WithRedisClient(client *backend.Client) BuildOption {
	return func(o *buildOptions) {
		o.redis = client
	}
}

// WithResolver overrides the resolver selected by cfg.Resolver.
func WithResolver(r ports.IntentResolver) BuildOption {
	return func(o *buildOptions) {
		o.resolver = r
	}
}

// Build validates cfg and assembles an engine that talks through sender. The flow is not
// installed; see LoadFlow and Restore.
func Build(ctx context.Context, cfg config.Config, sender ports.MessageSender, opts ...BuildOption) (*App, error) {
	o := buildOptions{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{Logger: o.logger}
	engineOpts := []chatflow.Option{
		chatflow.WithLogger(o.logger),
		chatflow.WithClassifyTimeout(cfg.ClassifyTimeout),
		chatflow.WithMaxSteps(cfg.MaxSteps),
	}

	fail := func(err error) (*App, error) {
		_ = app.Close()
		return nil, err
	}

	client := o.redis
	if client == nil && cfg.UsesRedis() {
		client = redis.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		app.closers = append(app.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return fail(fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err))
		}
	}
	redisOpts := []redis.Option{redis.WithPrefix(cfg.RedisPrefix)}

	switch cfg.Registry {
	case config.BackendRedis:
		engineOpts = append(engineOpts,
			chatflow.WithRegistry(redis.NewRegistry(client, append(redisOpts, redis.WithTTL(cfg.SessionTTL))...)),
			chatflow.WithSessionLocker(redis.NewLocker(client, redisOpts...)),
		)
	default:
		engineOpts = append(engineOpts, chatflow.WithRegistry(memory.NewRegistry(memory.WithLogger(o.logger))))
	}

	sink, reader, err := openTranscript(ctx, cfg, client, redisOpts, app)
	if err != nil {
		return fail(err)
	}
	if sink != nil {
		var mws []transcript.Middleware
		if len(cfg.Redact) > 0 {
			redact, err := transcript.Redact(cfg.Redact)
			if err != nil {
				return fail(fmt.Errorf("redact patterns: %w", err))
			}
			mws = append(mws, redact)
		}
		enc, err := cfg.Encryption()
		if err != nil {
			return fail(err)
		}
		if enc != nil {
			seal, err := transcript.Encrypt(*enc)
			if err != nil {
				return fail(err)
			}
			mws = append(mws, seal)
			if reader, err = transcript.DecryptReader(reader, *enc); err != nil {
				return fail(err)
			}
		}
		engineOpts = append(engineOpts, chatflow.WithTranscriptSink(transcript.Chain(sink, mws...)))
		app.Transcripts = reader
	}

	switch cfg.Snapshot {
	case config.BackendRedis:
		engineOpts = append(engineOpts, chatflow.WithSnapshotter(redis.NewFlowSnapshot(client, redisOpts...)))
	case config.BackendFile:
		engineOpts = append(engineOpts, chatflow.WithSnapshotter(file.NewSnapshot(cfg.SnapshotPath)))
	}

	resolver := o.resolver
	if resolver == nil {
		if resolver, err = newResolver(ctx, cfg, o.logger); err != nil {
			return fail(err)
		}
	}
	engineOpts = append(engineOpts, chatflow.WithResolver(resolver))

	hooks := []domain.LifecycleHooks{observability.LoggingHooks(o.logger)}
	if o.registerer != nil {
		app.Metrics = observability.NewMetrics(o.registerer)
		hooks = append(hooks, app.Metrics.Hooks())
		engineOpts = append(engineOpts, chatflow.WithInstallListener(app.Metrics.InstallListener()))
	}
	engineOpts = append(engineOpts, chatflow.WithLifecycleHooks(domain.MergeHooks(hooks...)))

	app.Engine = chatflow.New(sender, engineOpts...)
	return app, nil
}

// transcriptStore is what every transcript backend provides.
type transcriptStore interface {
	ports.TranscriptSink
	ports.TranscriptReader
}

func openTranscript(ctx context.Context, cfg config.Config, client *backend.Client, redisOpts []redis.Option, app *App) (ports.TranscriptSink, ports.TranscriptReader, error) {
	var store transcriptStore
	switch cfg.Transcript {
	case config.BackendNone:
		return nil, nil, nil
	case config.BackendRedis:
		store = redis.NewTranscript(client, redisOpts...)
	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		app.closers = append(app.closers, func() error {
			pool.Close()
			return nil
		})
		pg := postgres.New(pool)
		if err := pg.CreateSchema(ctx); err != nil {
			return nil, nil, fmt.Errorf("create transcript schema: %w", err)
		}
		store = pg
	case config.BackendFile:
		f, err := file.OpenTranscript(cfg.TranscriptFile)
		if err != nil {
			return nil, nil, err
		}
		app.closers = append(app.closers, f.Close)
		store = f
	default:
		store = memory.NewTranscript()
	}
	return store, store, nil
}

func newResolver(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.IntentResolver, error) {
	if cfg.Resolver == config.ResolverGemini {
		r, err := gemini.New(ctx, cfg.GeminiAPIKey,
			gemini.WithModel(cfg.GeminiModel),
			gemini.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return intent.KeywordResolver{}, nil
}
