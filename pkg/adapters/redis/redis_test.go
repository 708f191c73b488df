package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/chatflow/pkg/adapters/redis"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisRegistry_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunSessionRegistryContract(t, redis.NewRegistry(client))
}

func TestRedisRegistry_Prefix(t *testing.T) {
	mr, client := setup(t)
	registry := redis.NewRegistry(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, registry.Set(ctx, "my-session", "B"))

	assert.True(t, mr.Exists("custom:app:session:my-session"))
	assert.True(t, mr.Exists("custom:app:session:index"))
	got, err := mr.Get("custom:app:session:my-session")
	require.NoError(t, err)
	assert.Equal(t, "B", got)
}

func TestRedisRegistry_TTLExpiration(t *testing.T) {
	mr, client := setup(t)
	registry := redis.NewRegistry(client, redis.WithTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, registry.Set(ctx, "session-ttl", "B"))
	sessions, err := registry.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, sessions, "session-ttl")

	mr.FastForward(2 * time.Second)
	_, err = registry.Get(ctx, "session-ttl")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// Index pruning is based on wall clock time.
	time.Sleep(1200 * time.Millisecond)
	sessions, err = registry.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client, redis.WithPrefix("test:"))
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "s1", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:s1"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:s1"))
}

func TestRedisLocker_Contention(t *testing.T) {
	mr, client := setup(t)
	locker1 := redis.NewLocker(client)
	locker2 := redis.NewLocker(client)
	ctx := context.Background()

	unlock1, err := locker1.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)

	ctxTimeout, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker2.Lock(ctxTimeout, "shared", 5*time.Second)
	assert.ErrorIs(t, err, redis.ErrLockAcquire)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock1(ctx))

	unlock2, err := locker2.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)
	defer func() { _ = unlock2(ctx) }()
	assert.True(t, mr.Exists(redis.DefaultPrefix+"lock:shared"))
}

func TestRedisLocker_StaleUnlockKeepsNewOwner(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client)
	ctx := context.Background()

	unlockOld, err := locker.Lock(ctx, "s1", time.Second)
	require.NoError(t, err)

	// The first holder's lock expires and someone else takes it.
	mr.FastForward(2 * time.Second)
	unlockNew, err := locker.Lock(ctx, "s1", 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, unlockOld(ctx))
	assert.True(t, mr.Exists(redis.DefaultPrefix+"lock:s1"), "stale unlock must not release the new owner")
	require.NoError(t, unlockNew(ctx))
}

func TestRedisTranscript_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunTranscriptSinkContract(t, redis.NewTranscript(client))
}

func TestRedisTranscript_StreamFields(t *testing.T) {
	_, client := setup(t)
	sink := redis.NewTranscript(client)
	ctx := context.Background()

	rec := domain.NewTranscriptRecord("s1", domain.ActorBot, "Welcome!", "A", time.Now())
	require.NoError(t, sink.Append(ctx, rec))

	entries, err := client.XRange(ctx, sink.StreamKey(), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Welcome!", entries[0].Values["text"])
	assert.Equal(t, "BOT", entries[0].Values["actor"])
	assert.Equal(t, "s1", entries[0].Values["session_id"])
}

func TestRedisFlowSnapshot(t *testing.T) {
	_, client := setup(t)
	snap := redis.NewFlowSnapshot(client)
	ctx := context.Background()

	_, err := snap.LoadFlow(ctx)
	assert.ErrorIs(t, err, domain.ErrUnconfigured)

	g := &domain.Graph{
		FlowID:       "weather-bot",
		StartBlockID: "B",
		Blocks: []domain.Block{
			{ID: "B", Kind: domain.BlockIntentDetection, Intent: &domain.IntentPayload{
				CandidateIntents: []string{"Get Weather"},
				IntentToBlock:    map[string]string{"Get Weather": "C"},
				FallbackBlockID:  "B",
			}},
			{ID: "C", Kind: domain.BlockMessage, Message: &domain.MessagePayload{Text: "Sunny."}},
		},
	}
	require.NoError(t, snap.SaveFlow(ctx, g))

	got, err := snap.LoadFlow(ctx)
	require.NoError(t, err)
	require.NoError(t, got.Validate())
	b, ok := got.Block("B")
	require.True(t, ok)
	assert.Equal(t, "C", b.Intent.Route("Get Weather"))
	assert.Equal(t, "B", b.Intent.Route(domain.NoMatch))
}
