/*
Package metrics records engine activity counters.

PURPOSE:
  The resolver, the invalidation engine and the mutating operations report
  what they wrote or deleted through a Recorder. Tests assert on the counters
  to prove that a recomputation really happened, since a recomputed
  theoretical shift has the same value as the stale one.

IMPLEMENTATIONS:
  Prometheus: client_golang counters registered on a caller-supplied registry
  Nop:        discards everything (default when no recorder is configured)

SEE ALSO:
  - invalidation/invalidation.go: TheoreticalInvalidated callers
  - schedule/resolver.go: TheoreticalMemoized callers
*/
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Invalidation reasons used as the "reason" label.
const (
	ReasonHolidayAdded   = "holiday_added"
	ReasonHolidayRemoved = "holiday_removed"
	ReasonAgentEdited    = "agent_edited"
	ReasonLeaveCancelled = "leave_cancelled"
)

// Swap outcomes used as the "outcome" label.
const (
	SwapApplied = "applied"
	SwapNoop    = "noop"
	SwapFailed  = "failed"
)

// Recorder receives engine events.
type Recorder interface {
	// TheoreticalMemoized counts THEORETICAL rows written by the resolver.
	TheoreticalMemoized(n int)

	// TheoreticalInvalidated counts THEORETICAL rows deleted, by reason.
	TheoreticalInvalidated(reason string, n int)

	// OverrideWritten counts override rows written, by origin tag.
	OverrideWritten(origin string, n int)

	// SwapAttempted counts swap requests by outcome.
	SwapAttempted(outcome string)
}

// =============================================================================
// NOP
// =============================================================================

// Nop discards all events.
type Nop struct{}

// Compile-time assertion that Nop implements Recorder.
var _ Recorder = Nop{}

func NewNop() Nop { return Nop{} }

func (Nop) TheoreticalMemoized(int)            {}
func (Nop) TheoreticalInvalidated(string, int) {}
func (Nop) OverrideWritten(string, int)        {}
func (Nop) SwapAttempted(string)               {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}

// =============================================================================
// PROMETHEUS
// =============================================================================

// Prometheus implements Recorder with client_golang counters.
type Prometheus struct {
	memoized    prometheus.Counter
	invalidated *prometheus.CounterVec
	overrides   *prometheus.CounterVec
	swaps       *prometheus.CounterVec
}

// Compile-time assertion that Prometheus implements Recorder.
var _ Recorder = (*Prometheus)(nil)

// NewPrometheus registers the engine counters on reg.
//
// Parameters:
//   - reg: registerer (prometheus.DefaultRegisterer if nil)
//   - namespace: metric namespace ("rota" if empty)
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "rota"
	}

	p := &Prometheus{
		memoized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "theoretical_memoized_total",
			Help:      "Theoretical shifts computed and pinned in the override store.",
		}),
		invalidated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invalidation",
			Name:      "theoretical_rows_deleted_total",
			Help:      "Memoized theoretical rows deleted to force recomputation, by reason.",
		}, []string{"reason"}),
		overrides: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "operations",
			Name:      "override_rows_written_total",
			Help:      "Override rows written by mutating operations, by origin tag.",
		}, []string{"origin"}),
		swaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "operations",
			Name:      "swaps_total",
			Help:      "Shift swap requests by outcome (applied, noop, failed).",
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{p.memoized, p.invalidated, p.overrides, p.swaps} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) TheoreticalMemoized(n int) {
	p.memoized.Add(float64(n))
}

func (p *Prometheus) TheoreticalInvalidated(reason string, n int) {
	p.invalidated.WithLabelValues(reason).Add(float64(n))
}

func (p *Prometheus) OverrideWritten(origin string, n int) {
	p.overrides.WithLabelValues(origin).Add(float64(n))
}

func (p *Prometheus) SwapAttempted(outcome string) {
	p.swaps.WithLabelValues(outcome).Inc()
}

// Invalidated exposes the counter for one reason (tests and dashboards).
func (p *Prometheus) Invalidated(reason string) prometheus.Counter {
	return p.invalidated.WithLabelValues(reason)
}

// Memoized exposes the memoization counter.
func (p *Prometheus) Memoized() prometheus.Counter {
	return p.memoized
}
