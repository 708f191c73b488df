// Package config assembles the process configuration from environment variables and
// command-line flags. Flags win over the environment, which wins over defaults.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/intent"
	"github.com/aretw0/chatflow/pkg/transcript"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CHATFLOW_"

// Backend names.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendFile     = "file"
	BackendNone     = "none"

	ResolverKeyword = "keyword"
	ResolverGemini  = "gemini"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full process configuration.
type Config struct {
	Addr string

	// FlowPath is a flow document (.json, .yaml) or a directory of markdown blocks.
	FlowPath string
	Watch    bool

	Resolver        string
	GeminiAPIKey    string
	GeminiModel     string
	ClassifyTimeout time.Duration
	MaxSteps        int

	Registry   string
	Transcript string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	SessionTTL    time.Duration

	PostgresDSN    string
	TranscriptFile string
	Redact         []string

	// TranscriptKey is a base64 AES-256 key sealing transcript text; FallbackKeys decrypt
	// records written before a rotation.
	TranscriptKey          string
	TranscriptFallbackKeys []string

	// Snapshot persists installed flows: "none", "redis" or "file".
	Snapshot     string
	SnapshotPath string

	LogLevel string
	LogJSON  bool
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Addr:            ":8080",
		Resolver:        ResolverKeyword,
		GeminiModel:     "gemini-1.5-flash-latest",
		ClassifyTimeout: intent.DefaultTimeout,
		MaxSteps:        100,
		Registry:        BackendMemory,
		Transcript:      BackendMemory,
		RedisPrefix:     "chatflow:",
		Snapshot:        BackendNone,
		SnapshotPath:    ".chatflow/flow.json",
		LogLevel:        "info",
	}
}

// Load returns Default overlaid with the CHATFLOW_* environment.
// A Gemini API key alone selects the Gemini resolver.
func Load(lookup func(string) (string, bool)) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	c := Default()
	env := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	var errs []error
	str := func(name string, dst *string) {
		if v, ok := env(name); ok {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := env(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := env(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := env(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("ADDR", &c.Addr)
	str("FLOW", &c.FlowPath)
	boolean("WATCH", &c.Watch)
	str("GEMINI_API_KEY", &c.GeminiAPIKey)
	if c.GeminiAPIKey != "" {
		c.Resolver = ResolverGemini
	}
	str("RESOLVER", &c.Resolver)
	str("GEMINI_MODEL", &c.GeminiModel)
	duration("CLASSIFY_TIMEOUT", &c.ClassifyTimeout)
	integer("MAX_STEPS", &c.MaxSteps)
	str("REGISTRY", &c.Registry)
	str("TRANSCRIPT", &c.Transcript)
	str("REDIS_ADDR", &c.RedisAddr)
	str("REDIS_PASSWORD", &c.RedisPassword)
	integer("REDIS_DB", &c.RedisDB)
	str("REDIS_PREFIX", &c.RedisPrefix)
	duration("SESSION_TTL", &c.SessionTTL)
	str("POSTGRES_DSN", &c.PostgresDSN)
	str("TRANSCRIPT_FILE", &c.TranscriptFile)
	if v, ok := env("REDACT"); ok {
		c.Redact = splitList(v)
	}
	str("TRANSCRIPT_KEY", &c.TranscriptKey)
	if v, ok := env("TRANSCRIPT_FALLBACK_KEYS"); ok {
		c.TranscriptFallbackKeys = splitList(v)
	}
	str("SNAPSHOT", &c.Snapshot)
	str("SNAPSHOT_PATH", &c.SnapshotPath)
	str("LOG_LEVEL", &c.LogLevel)
	boolean("LOG_JSON", &c.LogJSON)

	return c, errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// BindFlags registers every setting on fs, using the current values as defaults.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.FlowPath, "flow", c.FlowPath, "Flow document (.json/.yaml) or directory of markdown blocks")
	fs.BoolVar(&c.Watch, "watch", c.Watch, "Reinstall the flow when its source changes")
	fs.StringVar(&c.Resolver, "resolver", c.Resolver, "Intent resolver: keyword or gemini")
	fs.StringVar(&c.GeminiAPIKey, "gemini-api-key", c.GeminiAPIKey, "Gemini API key")
	fs.StringVar(&c.GeminiModel, "gemini-model", c.GeminiModel, "Gemini model name")
	fs.DurationVar(&c.ClassifyTimeout, "classify-timeout", c.ClassifyTimeout, "Upper bound of one intent classification")
	fs.IntVar(&c.MaxSteps, "max-steps", c.MaxSteps, "Blocks visited between two user messages before the flow is declared corrupted")
	fs.StringVar(&c.Registry, "registry", c.Registry, "Session registry: memory or redis")
	fs.StringVar(&c.Transcript, "transcript", c.Transcript, "Transcript sink: memory, postgres, redis, file or none")
	fs.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "Redis address (host:port)")
	fs.StringVar(&c.RedisPassword, "redis-password", c.RedisPassword, "Redis password")
	fs.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database")
	fs.StringVar(&c.RedisPrefix, "redis-prefix", c.RedisPrefix, "Prefix of every Redis key")
	fs.DurationVar(&c.SessionTTL, "session-ttl", c.SessionTTL, "Expiry of idle Redis sessions (0 keeps them)")
	fs.StringVar(&c.PostgresDSN, "postgres-dsn", c.PostgresDSN, "PostgreSQL connection string for the transcript")
	fs.StringVar(&c.TranscriptFile, "transcript-file", c.TranscriptFile, "JSONL transcript path")
	fs.StringSliceVar(&c.Redact, "redact", c.Redact, "Regular expressions masked in transcripts")
	fs.StringVar(&c.TranscriptKey, "transcript-key", c.TranscriptKey, "Base64 AES-256 key encrypting transcript text")
	fs.StringSliceVar(&c.TranscriptFallbackKeys, "transcript-fallback-keys", c.TranscriptFallbackKeys, "Retired base64 keys still accepted for decryption")
	fs.StringVar(&c.Snapshot, "snapshot", c.Snapshot, "Flow snapshot: none, redis or file")
	fs.StringVar(&c.SnapshotPath, "snapshot-path", c.SnapshotPath, "Flow snapshot file")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error")
	fs.BoolVar(&c.LogJSON, "log-json", c.LogJSON, "Log as JSON")
}

// Validate reports every inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.Resolver {
	case ResolverKeyword:
	case ResolverGemini:
		if c.GeminiAPIKey == "" {
			bad("resolver %q requires an API key", c.Resolver)
		}
	default:
		bad("unknown resolver %q", c.Resolver)
	}
	if c.ClassifyTimeout <= 0 {
		bad("classify timeout must be positive, got %s", c.ClassifyTimeout)
	}
	if c.MaxSteps <= 0 {
		bad("max steps must be positive, got %d", c.MaxSteps)
	}

	switch c.Registry {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			bad("registry %q requires a Redis address", c.Registry)
		}
	default:
		bad("unknown registry %q", c.Registry)
	}

	switch c.Transcript {
	case BackendMemory, BackendNone:
	case BackendRedis:
		if c.RedisAddr == "" {
			bad("transcript %q requires a Redis address", c.Transcript)
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			bad("transcript %q requires a PostgreSQL DSN", c.Transcript)
		}
	case BackendFile:
		if c.TranscriptFile == "" {
			bad("transcript %q requires a file path", c.Transcript)
		}
	default:
		bad("unknown transcript sink %q", c.Transcript)
	}

	switch c.Snapshot {
	case BackendNone:
	case BackendRedis:
		if c.RedisAddr == "" {
			bad("snapshot %q requires a Redis address", c.Snapshot)
		}
	case BackendFile:
		if c.SnapshotPath == "" {
			bad("snapshot %q requires a file path", c.Snapshot)
		}
	default:
		bad("unknown snapshot store %q", c.Snapshot)
	}

	if c.TranscriptKey == "" && len(c.TranscriptFallbackKeys) > 0 {
		bad("fallback transcript keys require an active key")
	}
	if _, err := c.Encryption(); err != nil {
		errs = append(errs, err)
	}

	if c.Watch && c.FlowPath == "" {
		bad("watch requires a flow path")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// Encryption decodes the transcript keys. It returns nil when encryption is off.
func (c Config) Encryption() (*transcript.EncryptionConfig, error) {
	if c.TranscriptKey == "" {
		return nil, nil
	}
	active, err := decodeKey(c.TranscriptKey)
	if err != nil {
		return nil, fmt.Errorf("transcript key: %w", err)
	}
	enc := &transcript.EncryptionConfig{ActiveKey: active}
	for i, k := range c.TranscriptFallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, fmt.Errorf("transcript fallback key %d: %w", i, err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, key)
	}
	return enc, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, transcript.ErrKeySize
	}
	return key, nil
}

// UsesRedis reports whether any component needs a Redis client.
func (c Config) UsesRedis() bool {
	return c.Registry == BackendRedis || c.Transcript == BackendRedis || c.Snapshot == BackendRedis
}
