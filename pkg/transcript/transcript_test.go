package transcript_test

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/aretw0/chatflow/pkg/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(text string) domain.TranscriptRecord {
	return domain.NewTranscriptRecord("s1", domain.ActorUser, text, "B", time.Now())
}

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func TestRedact_MasksMatches(t *testing.T) {
	store := memory.NewTranscript()
	sink := transcript.MustRedact(`\b\d{3}-\d{2}-\d{4}\b`, `[\w.+-]+@[\w-]+\.[\w.]+`)(store)

	rec := record("my ssn is 999-99-9999, mail me at jane@example.com")
	require.NoError(t, sink.Append(context.Background(), rec))

	stored := store.Records("s1")
	require.Len(t, stored, 1)
	assert.Equal(t, "my ssn is ***, mail me at ***", stored[0].Text)
	assert.Equal(t, rec.ID, stored[0].ID)
	assert.Contains(t, rec.Text, "999-99-9999", "caller's record untouched")
}

func TestRedact_InvalidPattern(t *testing.T) {
	_, err := transcript.Redact([]string{"("})
	assert.Error(t, err)
	assert.Panics(t, func() { transcript.MustRedact("(") })
}

func TestEncrypt_Roundtrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTranscript()
	cfg := transcript.EncryptionConfig{ActiveKey: generateKey(t)}

	mw, err := transcript.Encrypt(cfg)
	require.NoError(t, err)
	require.NoError(t, mw(store).Append(ctx, record("my-secret-sauce")))

	raw := store.Records("s1")
	require.Len(t, raw, 1)
	assert.NotContains(t, raw[0].Text, "secret")
	assert.Equal(t, domain.ActorUser, raw[0].Actor)

	reader, err := transcript.DecryptReader(store, cfg)
	require.NoError(t, err)
	got, err := reader.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "my-secret-sauce", got[0].Text)
}

func TestEncrypt_KeyRotation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTranscript()
	oldKey, newKey := generateKey(t), generateKey(t)

	mw, err := transcript.Encrypt(transcript.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, err)
	require.NoError(t, mw(store).Append(ctx, record("before rotation")))
	require.NoError(t, store.Append(ctx, record("plain")))

	reader, err := transcript.DecryptReader(store, transcript.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	require.NoError(t, err)
	got, err := reader.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "before rotation", got[0].Text)
	assert.Equal(t, "plain", got[1].Text)

	wrong, err := transcript.DecryptReader(store, transcript.EncryptionConfig{ActiveKey: newKey})
	require.NoError(t, err)
	_, err = wrong.List(ctx, "s1")
	assert.Error(t, err)
}

func TestEncrypt_KeySize(t *testing.T) {
	_, err := transcript.Encrypt(transcript.EncryptionConfig{ActiveKey: []byte("short")})
	assert.ErrorIs(t, err, transcript.ErrKeySize)
}

type failingSink struct{ err error }

func (f failingSink) Append(context.Context, domain.TranscriptRecord) error { return f.err }

func TestTee(t *testing.T) {
	a, b := memory.NewTranscript(), memory.NewTranscript()
	boom := errors.New("boom")
	sink := transcript.Tee(a, failingSink{boom}, b)

	err := sink.Append(context.Background(), record("hello"))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, a.Records("s1"), 1)
	assert.Len(t, b.Records("s1"), 1, "later sinks still attempted")
}

func TestChain_Order(t *testing.T) {
	store := memory.NewTranscript()
	upper := func(next ports.TranscriptSink) ports.TranscriptSink {
		return ports.TranscriptSinkFunc(func(ctx context.Context, r domain.TranscriptRecord) error {
			r.Text = r.Text + "!"
			return next.Append(ctx, r)
		})
	}
	sink := transcript.Chain(store, transcript.MustRedact("secret"), upper)
	require.NoError(t, sink.Append(context.Background(), record("a secret")))
	assert.Equal(t, "a ***!", store.Records("s1")[0].Text)
}

func TestSinkContract(t *testing.T) {
	ports.RunTranscriptSinkContract(t, transcript.Chain(memory.NewTranscript(), transcript.MustRedact("nothing-matches")))
}
