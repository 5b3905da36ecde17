package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cody"

// OnboardingMetrics records outcomes of the onboarding engine.
type OnboardingMetrics struct {
	decisions  *prometheus.CounterVec
	promotions prometheus.Counter
	resets     prometheus.Counter
	roleSync   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewOnboardingMetrics registers the onboarding metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewOnboardingMetrics(reg prometheus.Registerer) *OnboardingMetrics {
	if reg == nil {
		return &OnboardingMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mentor_decisions_total",
		Help:      "Mentor decisions by kind and outcome.",
	}, []string{"kind", "outcome"})
	promotions := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "onboarding_promotions_total",
		Help:      "Members promoted from NONE to STARTER.",
	})
	resets := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "onboarding_resets_total",
		Help:      "Incomplete members reset on re-entry.",
	})
	roleSync := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rank_role_sync_total",
		Help:      "Rank role reconciliation runs by result.",
	}, []string{"result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of onboarding operations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(decisions, promotions, resets, roleSync, duration)
	return &OnboardingMetrics{
		decisions:  decisions,
		promotions: promotions,
		resets:     resets,
		roleSync:   roleSync,
		duration:   duration,
	}
}

// ObserveDecision counts a mentor decision attempt. outcome is "ok" or a rejection code.
func (m *OnboardingMetrics) ObserveDecision(kind, outcome string) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// IncPromotion counts a NONE→STARTER promotion.
func (m *OnboardingMetrics) IncPromotion() {
	if m == nil || m.promotions == nil {
		return
	}
	m.promotions.Inc()
}

// IncReset counts a re-entry reset.
func (m *OnboardingMetrics) IncReset() {
	if m == nil || m.resets == nil {
		return
	}
	m.resets.Inc()
}

// ObserveRoleSync counts a reconciliation run by result.
func (m *OnboardingMetrics) ObserveRoleSync(result string) {
	if m == nil || m.roleSync == nil {
		return
	}
	m.roleSync.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveDuration records the duration for the named operation.
func (m *OnboardingMetrics) ObserveDuration(operation string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
