package observability

import (
	"context"
	"sync"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "chatflow"

// Metrics holds the engine collectors.
type Metrics struct {
	SessionsActive         prometheus.Gauge
	BlockVisits            *prometheus.CounterVec
	Classifications        *prometheus.CounterVec
	ClassificationDuration prometheus.Histogram
	SendFailures           prometheus.Counter
	TranscriptFailures     prometheus.Counter
	SessionFailures        *prometheus.CounterVec
	Conversations          *prometheus.CounterVec
	FlowInstalls           *prometheus.CounterVec

	mu     sync.Mutex
	active map[string]struct{}
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of connected sessions.",
		}),
		BlockVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "block_visits_total",
			Help:      "Blocks entered, by kind.",
		}, []string{"kind"}),
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Intent classifications, by outcome.",
		}, []string{"outcome"}),
		ClassificationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classification_duration_seconds",
			Help:      "Latency of intent classification, including timeouts.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		}),
		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Bot messages that could not be delivered.",
		}),
		TranscriptFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_failures_total",
			Help:      "Transcript records that could not be appended.",
		}),
		SessionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_failures_total",
			Help:      "Recovered session-local failures, by kind.",
		}, []string{"kind"}),
		Conversations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_ended_total",
			Help:      "Conversations that reached an end, by reason.",
		}, []string{"reason"}),
		FlowInstalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_installs_total",
			Help:      "Flow install attempts, by result.",
		}, []string{"result"}),
		active: make(map[string]struct{}),
	}
	reg.MustRegister(
		m.SessionsActive,
		m.BlockVisits,
		m.Classifications,
		m.ClassificationDuration,
		m.SendFailures,
		m.TranscriptFailures,
		m.SessionFailures,
		m.Conversations,
		m.FlowInstalls,
	)
	return m
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnConnect: func(_ context.Context, e *domain.SessionEvent) {
			m.mu.Lock()
			defer m.mu.Unlock()
			// A reconnect on the same id is still one session.
			if _, ok := m.active[e.SessionID]; !ok {
				m.active[e.SessionID] = struct{}{}
				m.SessionsActive.Inc()
			}
		},
		OnDisconnect: func(_ context.Context, e *domain.SessionEvent) {
			m.mu.Lock()
			defer m.mu.Unlock()
			if _, ok := m.active[e.SessionID]; ok {
				delete(m.active, e.SessionID)
				m.SessionsActive.Dec()
			}
		},
		OnBlockEnter: func(_ context.Context, e *domain.BlockEvent) {
			m.BlockVisits.WithLabelValues(string(e.Kind)).Inc()
		},
		OnEnd: func(_ context.Context, e *domain.SessionEvent) {
			m.Conversations.WithLabelValues(e.Reason).Inc()
		},
		OnClassify: func(_ context.Context, e *domain.ClassifyEvent) {
			m.Classifications.WithLabelValues(string(e.Outcome)).Inc()
			m.ClassificationDuration.Observe(e.Duration.Seconds())
		},
		OnFailure: func(_ context.Context, e *domain.FailureEvent) {
			switch e.Kind {
			case domain.FailureSend:
				m.SendFailures.Inc()
			case domain.FailureTranscript:
				m.TranscriptFailures.Inc()
			default:
				m.SessionFailures.WithLabelValues(string(e.Kind)).Inc()
			}
		},
	}
}

// InstallListener counts install attempts. Pass it to flowstore.WithInstallListener.
func (m *Metrics) InstallListener() func(*domain.Graph, error) {
	return func(_ *domain.Graph, err error) {
		result := "success"
		if err != nil {
			result = "rejected"
		}
		m.FlowInstalls.WithLabelValues(result).Inc()
	}
}
