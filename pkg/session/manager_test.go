package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/aretw0/chatflow/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SerialisesSameSession(t *testing.T) {
	manager := session.NewManager()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.WithLock(ctx, "same", func(ctx context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					cur := atomic.LoadInt32(&maxInside)
					if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, manager.Active(), "lock entries are garbage collected")
}

func TestManager_DifferentSessionsDoNotBlock(t *testing.T) {
	manager := session.NewManager()
	ctx := context.Background()

	held := make(chan struct{})
	releaseA := make(chan struct{})
	go func() {
		_ = manager.WithLock(ctx, "a", func(ctx context.Context) error {
			close(held)
			<-releaseA
			return nil
		})
	}()
	<-held

	done := make(chan struct{})
	go func() {
		_ = manager.WithLock(ctx, "b", func(ctx context.Context) error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session b was blocked by session a")
	}
	close(releaseA)
}

func TestManager_PropagatesError(t *testing.T) {
	manager := session.NewManager()
	want := errors.New("boom")
	err := manager.WithLock(context.Background(), "s", func(ctx context.Context) error { return want })
	assert.ErrorIs(t, err, want)
}

type recordingLocker struct {
	mu       sync.Mutex
	locked   []string
	unlocked []string
	fail     bool
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if l.fail {
		return nil, errors.New("redis down")
	}
	l.mu.Lock()
	l.locked = append(l.locked, key)
	l.mu.Unlock()
	return func(ctx context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocked = append(l.unlocked, key)
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &recordingLocker{}
	manager := session.NewManager(session.WithLocker(locker), session.WithLockTTL(time.Second))

	called := false
	err := manager.WithLock(context.Background(), "s1", func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, []string{"s1"}, locker.locked)
	assert.Equal(t, []string{"s1"}, locker.unlocked)
}

func TestManager_DistributedLockerFailure(t *testing.T) {
	manager := session.NewManager(session.WithLocker(&recordingLocker{fail: true}))
	err := manager.WithLock(context.Background(), "s1", func(ctx context.Context) error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	assert.Error(t, err)
}
