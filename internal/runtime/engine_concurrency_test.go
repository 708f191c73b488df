package runtime_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/chatflow/internal/runtime"
	"github.com/aretw0/chatflow/pkg/intent"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedResolver blocks every classification until released, signalling when a call starts.
type gatedResolver struct {
	started chan string
	release chan struct{}
}

func newGatedResolver() *gatedResolver {
	return &gatedResolver{started: make(chan string, 8), release: make(chan struct{})}
}

func (g *gatedResolver) Classify(ctx context.Context, text string, candidates []string) (string, error) {
	g.started <- text
	<-g.release
	return intent.KeywordResolver{}.Classify(ctx, text, candidates)
}

var _ ports.IntentResolver = (*gatedResolver)(nil)

func TestEngine_DisconnectDuringClassification(t *testing.T) {
	ctx := context.Background()
	gate := newGatedResolver()
	f := newFixture(t, weatherFlow(), runtime.WithResolver(gate))

	require.NoError(t, f.engine.Connect(ctx, "s1"))

	done := make(chan error, 1)
	go func() { done <- f.engine.Message(ctx, "s1", "get weather") }()

	<-gate.started
	// Disconnect must not wait for the pending classification.
	disconnected := make(chan error, 1)
	go func() { disconnected <- f.engine.Disconnect(ctx, "s1") }()
	select {
	case err := <-disconnected:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Disconnect blocked on an in-flight classification")
	}

	close(gate.release)
	require.NoError(t, <-done)

	assert.Equal(t, []string{"Welcome!"}, f.sender.messages("s1"), "late result must be dropped")
	assert.Equal(t, "", f.suspendedAt(t, "s1"))
}

func TestEngine_ReconnectDuringClassificationDropsOldResult(t *testing.T) {
	ctx := context.Background()
	gate := newGatedResolver()
	f := newFixture(t, weatherFlow(), runtime.WithResolver(gate))

	require.NoError(t, f.engine.Connect(ctx, "s1"))

	done := make(chan error, 1)
	go func() { done <- f.engine.Message(ctx, "s1", "get weather") }()
	<-gate.started

	require.NoError(t, f.engine.Disconnect(ctx, "s1"))
	close(gate.release)
	require.NoError(t, <-done)

	require.NoError(t, f.engine.Connect(ctx, "s1"))
	assert.Equal(t, []string{"Welcome!", "Welcome!"}, f.sender.messages("s1"))
	assert.Equal(t, "B", f.suspendedAt(t, "s1"))
}

func TestEngine_SessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	gate := newGatedResolver()
	f := newFixture(t, weatherFlow(), runtime.WithResolver(gate))

	require.NoError(t, f.engine.Connect(ctx, "slow"))
	done := make(chan error, 1)
	go func() { done <- f.engine.Message(ctx, "slow", "get weather") }()
	<-gate.started

	// Another session connects while the first one is classifying.
	connected := make(chan error, 1)
	go func() { connected <- f.engine.Connect(ctx, "fast") }()
	select {
	case err := <-connected:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("independent session was blocked")
	}
	assert.Equal(t, "B", f.suspendedAt(t, "fast"))

	close(gate.release)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"Welcome!", "It's sunny."}, f.sender.messages("slow"))
}

func TestEngine_SameSessionIsSerialised(t *testing.T) {
	ctx := context.Background()
	gate := newGatedResolver()
	f := newFixture(t, weatherFlow(), runtime.WithResolver(gate))
	require.NoError(t, f.engine.Connect(ctx, "s1"))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = f.engine.Message(ctx, "s1", "nonsense") }()
	<-gate.started

	go func() { defer wg.Done(); _ = f.engine.Message(ctx, "s1", "get news") }()

	select {
	case <-gate.started:
		t.Fatal("second message classified before the first finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate.release)
	wg.Wait()

	assert.Equal(t, []string{"Welcome!", "Sorry, I didn't understand.", "Nothing new today."}, f.sender.messages("s1"))
}

func TestEngine_ManyConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, weatherFlow())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, f.engine.Connect(ctx, id))
			assert.NoError(t, f.engine.Message(ctx, id, "get weather"))
		}(fmt.Sprintf("session-%d", i))
	}
	wg.Wait()

	sessions, err := f.engine.Sessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
