// Package telemetry records checking activity and user feedback as
// Prometheus metrics.
//
// Metrics satisfies the reporting interfaces of the matcher service and the
// command palette, and its Observe method can be subscribed to a store to
// track in-flight work:
//
//	m := telemetry.New(prometheus.DefaultRegisterer)
//	svc := matcher.NewService(ed, cmds, checker, matcher.WithMetrics(m))
//	ed.Subscribe(m.Observe)
//
// # Thread Safety
//
// All operations are thread-safe.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dshills/redline/internal/state"
	"github.com/dshills/redline/internal/store"
)

const namespace = "redline"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the redline collectors.
type Metrics struct {
	// DocumentsChecked counts whole-document check requests.
	DocumentsChecked prometheus.Counter

	// BlockChecks counts block checks.
	// Labels: result (ok, error)
	BlockChecks *prometheus.CounterVec

	// BlockCheckDuration measures how long a checker takes per block.
	BlockCheckDuration prometheus.Histogram

	// MatchesFound counts matches returned by checkers.
	// Labels: category
	MatchesFound *prometheus.CounterVec

	// SuggestionsAccepted counts applied suggestions.
	// Labels: category
	SuggestionsAccepted *prometheus.CounterVec

	// MatchesIgnored counts matches the user marked as correct.
	// Labels: category
	MatchesIgnored *prometheus.CounterVec

	// BlocksInFlight is the number of blocks awaiting results.
	BlocksInFlight prometheus.Gauge

	// Matches is the number of matches currently held.
	Matches prometheus.Gauge
}

// New creates Metrics registered with reg. A nil reg creates unregistered
// collectors.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DocumentsChecked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_checked_total",
			Help:      "Total whole-document check requests",
		}),
		BlockChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checker",
			Name:      "blocks_total",
			Help:      "Total block checks by result",
		}, []string{"result"}),
		BlockCheckDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "checker",
			Name:      "block_duration_seconds",
			Help:      "Time taken to check one block",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}),
		MatchesFound: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_found_total",
			Help:      "Total matches returned by checkers",
		}, []string{"category"}),
		SuggestionsAccepted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_accepted_total",
			Help:      "Total suggestions applied to the document",
		}, []string{"category"}),
		MatchesIgnored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_ignored_total",
			Help:      "Total matches marked as correct",
		}, []string{"category"}),
		BlocksInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "blocks_in_flight",
			Help:      "Blocks awaiting check results",
		}),
		Matches: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "matches",
			Help:      "Matches currently held",
		}),
	}
}

// DocumentChecked records a whole-document check request.
func (m *Metrics) DocumentChecked() {
	m.DocumentsChecked.Inc()
}

// BlockChecked records one checker call.
func (m *Metrics) BlockChecked(d time.Duration, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.BlockChecks.WithLabelValues(result).Inc()
	m.BlockCheckDuration.Observe(d.Seconds())
}

// MatchesReturned records the matches a checker returned.
func (m *Metrics) MatchesReturned(matches []state.Match) {
	for _, match := range matches {
		m.MatchesFound.WithLabelValues(match.Category.ID).Inc()
	}
}

// SuggestionAccepted records an applied suggestion.
func (m *Metrics) SuggestionAccepted(match state.Match, _ string) {
	m.SuggestionsAccepted.WithLabelValues(match.Category.ID).Inc()
}

// MatchIgnored records a match marked as correct.
func (m *Metrics) MatchIgnored(match state.Match) {
	m.MatchesIgnored.WithLabelValues(match.Category.ID).Inc()
}

// Observe updates the gauges from a state transition. It is a store.Observer.
func (m *Metrics) Observe(e store.Event) {
	if e.Type != store.EventStateChanged {
		return
	}
	m.BlocksInFlight.Set(float64(len(state.SelectAllBlocksInFlight(e.Next))))
	m.Matches.Set(float64(len(e.Next.Matches)))
}
