package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// farFuture scores index members of sessions without a TTL.
const farFuture = 4102444800 // 2100-01-01

// Registry implements ports.SessionRegistry using Redis.
// Each entry is a plain string key; a sorted set indexes them for List.
type Registry struct {
	client *backend.Client
	opts   options
}

// NewRegistry creates a registry on an existing client.
func NewRegistry(client *backend.Client, opts ...Option) *Registry {
	return &Registry{client: client, opts: newOptions(opts)}
}

var _ ports.SessionRegistry = (*Registry)(nil)

func (r *Registry) key(sessionID string) string {
	return r.opts.prefix + "session:" + sessionID
}

func (r *Registry) indexKey() string {
	return r.opts.prefix + "session:index"
}

// Begin is a no-op: entries are created when a session suspends.
func (r *Registry) Begin(ctx context.Context, sessionID string) error {
	return nil
}

// Get returns the suspended block id.
func (r *Registry) Get(ctx context.Context, sessionID string) (string, error) {
	val, err := r.client.Get(ctx, r.key(sessionID)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return "", domain.ErrSessionNotFound
		}
		return "", fmt.Errorf("failed to get from redis: %w", err)
	}
	return val, nil
}

// Set writes the entry and refreshes its index score.
func (r *Registry) Set(ctx context.Context, sessionID, blockID string) error {
	score := float64(time.Now().Add(r.opts.ttl).Unix())
	if r.opts.ttl == 0 {
		score = farFuture
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(sessionID), blockID, r.opts.ttl)
	pipe.ZAdd(ctx, r.indexKey(), backend.Z{Score: score, Member: sessionID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Remove deletes the entry and its index member.
func (r *Registry) Remove(ctx context.Context, sessionID string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key(sessionID))
	pipe.ZRem(ctx, r.indexKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove from redis: %w", err)
	}
	return nil
}

// List prunes expired index members, then returns the rest.
func (r *Registry) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := r.client.ZRemRangeByScore(ctx, r.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	sessions, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}
