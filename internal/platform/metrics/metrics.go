package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	ActionsTotal          *prometheus.CounterVec
	ActionDuration        *prometheus.HistogramVec
	GateDenials           *prometheus.CounterVec
	Confirmations         *prometheus.CounterVec
	JournalWriteFailures  prometheus.Counter
	JournalPublishDropped prometheus.Counter
	Evaluations           *prometheus.CounterVec
	CallsStarted          prometheus.Counter
	CallsEnded            prometheus.Counter
}

// New creates and registers all metrics on reg. Pass prometheus.NewRegistry()
// in tests to avoid duplicate registration panics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicedesk_actions_total",
			Help: "Operations invoked by the runtime, by action and outcome",
		}, []string{"action", "outcome"}),
		ActionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voicedesk_action_duration_seconds",
			Help:    "Operation latency including journal writes",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),
		GateDenials: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicedesk_gate_denials_total",
			Help: "Guarded operations refused because identity was not confirmed",
		}, []string{"action"}),
		Confirmations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicedesk_identity_confirmations_total",
			Help: "Identity confirmation attempts, by method and result",
		}, []string{"method", "result"}),
		JournalWriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicedesk_journal_write_failures_total",
			Help: "Journal appends that failed and were skipped",
		}),
		JournalPublishDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicedesk_journal_publish_dropped_total",
			Help: "Journal entries not streamed because publishing failed or the breaker was open",
		}),
		Evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicedesk_evaluations_total",
			Help: "Post-call evaluations, by result",
		}, []string{"result"}),
		CallsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicedesk_calls_started_total",
			Help: "Calls started",
		}),
		CallsEnded: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicedesk_calls_ended_total",
			Help: "Calls ended",
		}),
	}
}

func (m *Metrics) ObserveAction(action, outcome string, seconds float64) {
	m.ActionsTotal.WithLabelValues(action, outcome).Inc()
	m.ActionDuration.WithLabelValues(action).Observe(seconds)
}

func (m *Metrics) IncGateDenial(action string) {
	m.GateDenials.WithLabelValues(action).Inc()
}

func (m *Metrics) IncConfirmation(method, result string) {
	m.Confirmations.WithLabelValues(method, result).Inc()
}

func (m *Metrics) IncJournalWriteFailure() {
	m.JournalWriteFailures.Inc()
}

func (m *Metrics) IncJournalPublishDropped() {
	m.JournalPublishDropped.Inc()
}

func (m *Metrics) IncEvaluation(result string) {
	m.Evaluations.WithLabelValues(result).Inc()
}

func (m *Metrics) IncCallsStarted() {
	m.CallsStarted.Inc()
}

func (m *Metrics) IncCallsEnded() {
	m.CallsEnded.Inc()
}
