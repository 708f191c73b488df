package runner

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConversation struct {
	mu     sync.Mutex
	events []string
	msgErr error
	sender *Runner
}

func (f *fakeConversation) log(e string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeConversation) Connect(ctx context.Context, sessionID string) error {
	f.log("connect:" + sessionID)
	return f.sender.Send(ctx, sessionID, "Welcome!")
}

func (f *fakeConversation) Message(ctx context.Context, sessionID, text string) error {
	f.log("message:" + text)
	return f.msgErr
}

func (f *fakeConversation) Disconnect(ctx context.Context, sessionID string) error {
	f.log("disconnect:" + sessionID)
	return nil
}

func newTestRunner(input string, out *bytes.Buffer) *Runner {
	return New(
		WithSessionID("s1"),
		WithInputHandler(NewTextHandler(strings.NewReader(input), out, WithPrompt(""))),
		WithInterruptSource(make(chan struct{})),
	)
}

func TestRunner_ForwardsLinesUntilEOF(t *testing.T) {
	out := &bytes.Buffer{}
	r := newTestRunner("hello\n\nweather\n", out)
	conv := &fakeConversation{sender: r}

	require.NoError(t, r.Run(context.Background(), conv))

	assert.Equal(t, []string{"connect:s1", "message:hello", "message:weather", "disconnect:s1"}, conv.events)
	assert.Equal(t, "Welcome!\n", out.String())
}

func TestRunner_Commands(t *testing.T) {
	out := &bytes.Buffer{}
	r := newTestRunner("/restart\n/quit\nnever sent\n", out)
	conv := &fakeConversation{sender: r}

	require.NoError(t, r.Run(context.Background(), conv))

	assert.Equal(t, []string{"connect:s1", "connect:s1", "disconnect:s1"}, conv.events)
	assert.Contains(t, out.String(), "[System] Restarting conversation.")
}

func TestRunner_RecoverableErrorsKeepGoing(t *testing.T) {
	r := newTestRunner("one\ntwo\n", &bytes.Buffer{})
	conv := &fakeConversation{sender: r, msgErr: domain.ErrUnexpectedInput}

	require.NoError(t, r.Run(context.Background(), conv))
	assert.Len(t, conv.events, 4)
}

func TestRunner_FatalErrorStops(t *testing.T) {
	r := newTestRunner("one\ntwo\n", &bytes.Buffer{})
	conv := &fakeConversation{sender: r, msgErr: errors.New("redis down")}

	err := r.Run(context.Background(), conv)
	require.Error(t, err)
	assert.Equal(t, []string{"connect:s1", "message:one", "disconnect:s1"}, conv.events)
}

func TestRunner_SendRejectsOtherSessions(t *testing.T) {
	r := newTestRunner("", &bytes.Buffer{})
	err := r.Send(context.Background(), "other", "hi")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRecoverable(t *testing.T) {
	assert.True(t, Recoverable(&domain.FlowCorruptedError{BlockID: "x"}))
	assert.True(t, Recoverable(domain.ErrUnconfigured))
	assert.False(t, Recoverable(errors.New("boom")))
	assert.False(t, Recoverable(nil))
}
