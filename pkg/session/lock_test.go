package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager()
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		sid := fmt.Sprintf("session-%d", i)
		require.NoError(t, mgr.WithLock(ctx, sid, func(context.Context) error { return nil }))
	}

	// Every entry is released once its last holder leaves.
	assert.Empty(t, mgr.locks)
	assert.Zero(t, mgr.Active())
}

func TestManager_LockHeldWhileWaiting(t *testing.T) {
	mgr := NewManager()
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = mgr.WithLock(ctx, "s1", func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	assert.Equal(t, 1, mgr.Active())
	close(release)
	wg.Wait()
	assert.Zero(t, mgr.Active())
}
