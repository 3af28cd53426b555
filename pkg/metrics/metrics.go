// Package metrics exposes Prometheus counters for the approval workflow.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkflowMetrics counts workflow events. The zero value and a nil pointer
// are both usable; counters stay unexported until Register is called.
type WorkflowMetrics struct {
	submissions          *prometheus.CounterVec
	decisions            *prometheus.CounterVec
	statusChanges        *prometheus.CounterVec
	notificationFailures *prometheus.CounterVec
	activityFailures     prometheus.Counter

	registerOnce sync.Once
}

// New returns WorkflowMetrics registered with registry. A nil registry
// yields metrics that record nothing.
func New(registry prometheus.Registerer) *WorkflowMetrics {
	m := &WorkflowMetrics{}
	m.Register(registry)
	return m
}

// Register registers the counters with the given registry.
// If registry is nil, this is a no-op. Subsequent calls are no-ops.
func (m *WorkflowMetrics) Register(registry prometheus.Registerer) {
	if m == nil || registry == nil {
		return
	}

	m.registerOnce.Do(func() {
		factory := promauto.With(registry)

		m.submissions = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_submissions_total",
			Help: "Total number of asset submissions for review, by outcome",
		}, []string{"outcome"})

		m.decisions = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_approval_decisions_total",
			Help: "Total number of recorded approval decisions, by decision",
		}, []string{"decision"})

		m.statusChanges = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_asset_status_changes_total",
			Help: "Total number of asset status changes, by new status",
		}, []string{"status"})

		m.notificationFailures = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_notification_failures_total",
			Help: "Total number of notification emails that could not be delivered, by kind",
		}, []string{"kind"})

		m.activityFailures = factory.NewCounter(prometheus.CounterOpts{
			Name: "hub_activity_log_failures_total",
			Help: "Total number of activity log entries that could not be written",
		})
	})
}

// IncSubmission counts a submission attempt. outcome is "ok" or an error class.
func (m *WorkflowMetrics) IncSubmission(outcome string) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// IncDecision counts a recorded decision.
func (m *WorkflowMetrics) IncDecision(decision string) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.WithLabelValues(decision).Inc()
}

// IncStatusChange counts an asset entering status.
func (m *WorkflowMetrics) IncStatusChange(status string) {
	if m == nil || m.statusChanges == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

// IncNotificationFailure counts an undelivered notification.
func (m *WorkflowMetrics) IncNotificationFailure(kind string) {
	if m == nil || m.notificationFailures == nil {
		return
	}
	m.notificationFailures.WithLabelValues(kind).Inc()
}

// IncActivityFailure counts an activity entry that was dropped.
func (m *WorkflowMetrics) IncActivityFailure() {
	if m == nil || m.activityFailures == nil {
		return
	}
	m.activityFailures.Inc()
}
