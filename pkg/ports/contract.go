package ports

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionRegistryContract runs a suite of tests to verify that a SessionRegistry
// implementation adheres to the defined interface contract.
func RunSessionRegistryContract(t *testing.T, registry SessionRegistry) {
	ctx := context.Background()
	sessionID := "contract-session-" + time.Now().Format("20060102150405.000")

	t.Run("Begin creates no entry", func(t *testing.T) {
		require.NoError(t, registry.Begin(ctx, sessionID))
		_, err := registry.Get(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Set and Get", func(t *testing.T) {
		require.NoError(t, registry.Set(ctx, sessionID, "ask"))
		blockID, err := registry.Get(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "ask", blockID)
	})

	t.Run("Set overwrites", func(t *testing.T) {
		require.NoError(t, registry.Set(ctx, sessionID, "first"))
		require.NoError(t, registry.Set(ctx, sessionID, "second"))
		blockID, err := registry.Get(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "second", blockID)
	})

	t.Run("Remove", func(t *testing.T) {
		require.NoError(t, registry.Set(ctx, sessionID, "ask"))
		require.NoError(t, registry.Remove(ctx, sessionID))
		_, err := registry.Get(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Remove unknown is a no-op", func(t *testing.T) {
		assert.NoError(t, registry.Remove(ctx, "never-seen-"+sessionID))
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, registry.Set(ctx, id1, "a"))
		require.NoError(t, registry.Set(ctx, id2, "b"))
		defer func() {
			_ = registry.Remove(ctx, id1)
			_ = registry.Remove(ctx, id2)
		}()

		sessions, err := registry.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})

	t.Run("Concurrent sessions", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("%s-c%d", sessionID, i)
				assert.NoError(t, registry.Set(ctx, id, fmt.Sprintf("block-%d", i)))
				got, err := registry.Get(ctx, id)
				assert.NoError(t, err)
				assert.Equal(t, fmt.Sprintf("block-%d", i), got)
				assert.NoError(t, registry.Remove(ctx, id))
			}(i)
		}
		wg.Wait()
	})
}

// RunTranscriptSinkContract verifies that a sink accepts concurrent appends and, when it also
// implements TranscriptReader, returns each session's records in append order.
func RunTranscriptSinkContract(t *testing.T, sink TranscriptSink) {
	ctx := context.Background()
	sessionID := "contract-transcript-" + time.Now().Format("20060102150405.000")
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Append", func(t *testing.T) {
		records := []domain.TranscriptRecord{
			domain.NewTranscriptRecord(sessionID, domain.ActorBot, "Welcome!", "A", base),
			domain.NewTranscriptRecord(sessionID, domain.ActorUser, "weather?", "B", base.Add(time.Second)),
			domain.NewTranscriptRecord(sessionID, domain.ActorBot, "Sunny.", "C", base.Add(2*time.Second)),
		}
		for _, r := range records {
			require.NoError(t, sink.Append(ctx, r))
		}

		reader, ok := sink.(TranscriptReader)
		if !ok {
			return
		}
		got, err := reader.List(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, got, len(records))
		for i := range records {
			assert.Equal(t, records[i].ID, got[i].ID)
			assert.Equal(t, records[i].Actor, got[i].Actor)
			assert.Equal(t, records[i].Text, got[i].Text)
			assert.Equal(t, records[i].BlockID, got[i].BlockID)
			assert.True(t, records[i].Timestamp.Equal(got[i].Timestamp), "timestamp %d", i)
		}
	})

	t.Run("Concurrent sessions", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("%s-c%d", sessionID, i)
				for j := 0; j < 5; j++ {
					r := domain.NewTranscriptRecord(id, domain.ActorUser, fmt.Sprintf("msg %d", j), "", base.Add(time.Duration(j)*time.Second))
					assert.NoError(t, sink.Append(ctx, r))
				}
			}(i)
		}
		wg.Wait()

		reader, ok := sink.(TranscriptReader)
		if !ok {
			return
		}
		for i := 0; i < 10; i++ {
			got, err := reader.List(ctx, fmt.Sprintf("%s-c%d", sessionID, i))
			require.NoError(t, err)
			require.Len(t, got, 5)
			for j, r := range got {
				assert.Equal(t, fmt.Sprintf("msg %d", j), r.Text)
			}
		}
	})
}
