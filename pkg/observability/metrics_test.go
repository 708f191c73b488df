package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func session(t domain.EventType, id string) *domain.SessionEvent {
	return &domain.SessionEvent{EventBase: domain.EventBase{Type: t, SessionID: id}}
}

func TestMetrics_SessionsActive(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())
	h := m.Hooks()
	ctx := context.Background()

	h.OnConnect(ctx, session(domain.EventConnect, "a"))
	h.OnConnect(ctx, session(domain.EventConnect, "b"))
	h.OnConnect(ctx, session(domain.EventConnect, "a"))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionsActive))

	h.OnDisconnect(ctx, session(domain.EventDisconnect, "a"))
	h.OnDisconnect(ctx, session(domain.EventDisconnect, "unknown"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsActive))
}

func TestMetrics_Counters(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())
	h := m.Hooks()
	ctx := context.Background()

	h.OnBlockEnter(ctx, &domain.BlockEvent{Kind: domain.BlockMessage})
	h.OnBlockEnter(ctx, &domain.BlockEvent{Kind: domain.BlockMessage})
	h.OnBlockEnter(ctx, &domain.BlockEvent{Kind: domain.BlockIntentDetection})
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BlockVisits.WithLabelValues("MESSAGE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BlockVisits.WithLabelValues("INTENT_DETECTION")))

	h.OnClassify(ctx, &domain.ClassifyEvent{Outcome: domain.OutcomeTimeout, Duration: 15 * time.Second})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Classifications.WithLabelValues("timeout")))

	h.OnFailure(ctx, &domain.FailureEvent{Kind: domain.FailureSend})
	h.OnFailure(ctx, &domain.FailureEvent{Kind: domain.FailureTranscript})
	h.OnFailure(ctx, &domain.FailureEvent{Kind: domain.FailureFlowCorrupted})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SendFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TranscriptFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionFailures.WithLabelValues("flow_corrupted")))

	end := session(domain.EventEnd, "a")
	end.Reason = "completed"
	h.OnEnd(ctx, end)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Conversations.WithLabelValues("completed")))
}

func TestMetrics_InstallListener(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())
	listen := m.InstallListener()

	listen(&domain.Graph{FlowID: "x"}, nil)
	listen(nil, domain.ErrInvalidGraph)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FlowInstalls.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FlowInstalls.WithLabelValues("rejected")))
}

func TestMetrics_RegisterTwicePanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.NewMetrics(reg)
	assert.Panics(t, func() { observability.NewMetrics(reg) })
}

func TestMetrics_Gather(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	m.Hooks().OnClassify(context.Background(), &domain.ClassifyEvent{Outcome: domain.OutcomeMatched, Duration: time.Second})

	n, err := testutil.GatherAndCount(reg, "chatflow_classification_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := observability.LoggingHooks(logger)
	ctx := context.Background()

	h.OnConnect(ctx, session(domain.EventConnect, "s1"))
	h.OnClassify(ctx, &domain.ClassifyEvent{
		EventBase: domain.EventBase{SessionID: "s1"},
		Outcome:   domain.OutcomeError,
		Err:       errors.New("boom"),
	})
	h.OnFailure(ctx, &domain.FailureEvent{EventBase: domain.EventBase{SessionID: "s1"}, Kind: domain.FailureSend})

	out := buf.String()
	assert.Contains(t, out, "msg=connect")
	assert.Contains(t, out, "session_id=s1")
	assert.Contains(t, out, "level=WARN msg=classify")
	assert.Contains(t, out, "err=boom")
	assert.Contains(t, out, "kind=send")
}
