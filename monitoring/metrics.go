package monitoring

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"wedding-gate/internal/flow"
	"wedding-gate/utils"
)

var (
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "guest_sessions_active",
			Help: "Current number of live guest sessions",
		},
	)

	passcodeAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passcode_attempts_total",
			Help: "Completed passcode attempts by outcome",
		},
		[]string{"outcome"},
	)

	reviewOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_outcomes_total",
			Help: "Review gate completions by branch",
		},
		[]string{"flow"},
	)

	reviewRatings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_ratings_total",
			Help: "Star ratings chosen by guests",
		},
		[]string{"rating"},
	)

	persistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persistence_failures_total",
			Help: "Background persistence failures by operation",
		},
		[]string{"operation"},
	)

	weddingLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wedding_lookups_total",
			Help: "Today's wedding list lookups by status",
		},
		[]string{"status"},
	)

	weddingLookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wedding_lookup_duration_seconds",
			Help:    "Duration of today's wedding list lookups",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half open, 2 open)",
		},
		[]string{"name"},
	)
)

// SessionCounter reports how many guest sessions are live.
type SessionCounter interface {
	Count() int
}

// Monitor turns gate events and persistence failures into metrics and logs.
type Monitor struct {
	sessions SessionCounter
	interval time.Duration
	log      zerolog.Logger
}

func NewMonitor(sessions SessionCounter, logger zerolog.Logger) *Monitor {
	return &Monitor{
		sessions: sessions,
		interval: 15 * time.Second,
		log:      utils.Component(logger, "monitor"),
	}
}

// Watch sets the session source sampled by Run. Call it before Run.
func (m *Monitor) Watch(sessions SessionCounter) {
	m.sessions = sessions
}

// Run samples gauges until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.collectSessionMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collectSessionMetrics()
		}
	}
}

func (m *Monitor) collectSessionMetrics() {
	if m.sessions == nil {
		return
	}
	activeSessions.Set(float64(m.sessions.Count()))
}

// Publish implements flow.EventSink.
func (m *Monitor) Publish(_ string, ev flow.Event) {
	switch ev.Type {
	case flow.EventPasscodeUnlocked:
		passcodeAttempts.WithLabelValues("unlocked").Inc()
	case flow.EventPasscodeRejected:
		passcodeAttempts.WithLabelValues("rejected").Inc()
	case flow.EventRatingSet:
		reviewRatings.WithLabelValues(strconv.Itoa(ev.Rating)).Inc()
	case flow.EventReviewSkipped:
		reviewOutcomes.WithLabelValues("skipped").Inc()
	case flow.EventReviewCompleted:
		if ev.HighFlow {
			reviewOutcomes.WithLabelValues("high").Inc()
		} else {
			reviewOutcomes.WithLabelValues("low").Inc()
		}
	}
}

// RecordFailure is the flow runner's failure side channel.
func (m *Monitor) RecordFailure(op string, err error) {
	persistenceFailures.WithLabelValues(op).Inc()
	m.log.Error().Err(err).Str("operation", op).Msg("background persistence failed")
}

func (m *Monitor) TrackWeddingLookup(err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	weddingLookups.WithLabelValues(status).Inc()
	weddingLookupDuration.Observe(duration.Seconds())
}

// TrackBreaker matches utils.BreakerSettings.OnStateChange.
func (m *Monitor) TrackBreaker(name string, from, to utils.State) {
	breakerState.WithLabelValues(name).Set(float64(to))
	m.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
}
