package phase

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Unwinds counts tracked operations unwound, by terminal state.
var Unwinds = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "phase_unwinds_total",
		Help: "Total number of tracked operations unwound",
	},
	[]string{"state"},
)

// EventsPosted counts events posted during unwinds.
var EventsPosted = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "phase_events_posted_total",
		Help: "Total number of events posted while unwinding",
	},
	[]string{"event", "cancelled"},
)

// EntitiesCommitted counts entities spawned into the world by unwinds.
var EntitiesCommitted = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "phase_entities_committed_total",
		Help: "Total number of captured entities committed to the world",
	},
	[]string{"state"},
)

// CollisionsCapped counts collision queries stopped by a source cap.
var CollisionsCapped = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "phase_collisions_capped_total",
		Help: "Total number of collision list appends refused by a cap",
	},
	[]string{"kind"},
)

// CollisionRefreshes counts lazy collision limit refreshes.
var CollisionRefreshes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "phase_collision_refreshes_total",
		Help: "Total number of collision limit cache refreshes",
	},
	[]string{"kind"},
)

// ContractViolations counts unwinds aborted for a missing source.
var ContractViolations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "phase_contract_violations_total",
		Help: "Total number of unwinds aborted by a missing causal source",
	},
	[]string{"state"},
)

// PipelineFailures counts block capture pipeline failures.
var PipelineFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "phase_pipeline_failures_total",
		Help: "Total number of block capture pipeline failures",
	},
	[]string{"state"},
)

// RegisterMetrics registers the package metrics with the given registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Unwinds)
	reg.MustRegister(EventsPosted)
	reg.MustRegister(EntitiesCommitted)
	reg.MustRegister(CollisionsCapped)
	reg.MustRegister(CollisionRefreshes)
	reg.MustRegister(ContractViolations)
	reg.MustRegister(PipelineFailures)
}

func recordEvent(e Event) {
	EventsPosted.WithLabelValues(eventName(e), strconv.FormatBool(e.Cancelled())).Inc()
}
