// Package redis implements the chatflow ports on Redis: the session registry, the per-session
// distributed lock, the transcript stream and the installed flow snapshot.
package redis

import (
	"time"

	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "chatflow:"

type options struct {
	prefix string
	ttl    time.Duration
	maxLen int64
}

// Option configures the Redis adapters.
type Option func(*options)

// WithTTL sets the expiration for session entries.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithStreamMaxLen caps the transcript stream (approximate trimming). Zero keeps everything.
func WithStreamMaxLen(n int64) Option {
	return func(o *options) {
		o.maxLen = n
	}
}

func newOptions(opts []Option) options {
	o := options{prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewClient creates a client for the given address.
func NewClient(address, password string, db int) *backend.Client {
	return backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
}
