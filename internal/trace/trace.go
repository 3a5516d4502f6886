// Package trace is a structured query-execution event collector: the
// optimizer and executor emit named events with free-form data, a
// Collector accumulates them per query, and a Formatter renders them
// for -verbose CLI output or the EXPLAIN API.
package trace

import (
	"sync"
	"time"
)

// Event names, grouped by the component that emits them.
const (
	OptimizeFoldApplied     = "optimize/fold.applied"
	OptimizeReorderApplied  = "optimize/reorder.applied"
	OptimizePushdownApplied = "optimize/pushdown.applied"

	PlanCacheHit  = "plan/cache.hit"
	PlanCacheMiss = "plan/cache.miss"
	PlanChosen    = "plan/chosen"

	ExecBGPScan    = "exec/bgp.scan"
	ExecJoin       = "exec/join"
	ExecFilterDrop = "exec/filter.drop"

	QueryBegin    = "query/begin"
	QueryComplete = "query/complete"
)

// Event is a single named occurrence with an optional timing window
// and free-form structured data.
type Event struct {
	Name    string
	Start   time.Time
	End     time.Time
	Latency time.Duration
	Data    map[string]interface{}
}

// Collector accumulates events for a single query's execution. It is
// safe for concurrent use: regex timeout workers and parallel BGP
// probes may all emit events for the same query.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

// NewCollector returns an empty collector.
func NewCollector() *Collector { return &Collector{} }

// Add appends an event, stamping Latency if both Start and End are set.
func (c *Collector) Add(e Event) {
	if !e.Start.IsZero() && !e.End.IsZero() && e.Latency == 0 {
		e.Latency = e.End.Sub(e.Start)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

// Events returns a snapshot copy of the collected events in emission order.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Handler receives events as they are emitted, for live -verbose
// streaming rather than post-hoc draining of Events().
type Handler func(Event)

// HandledCollector wraps a Collector so every Add call also invokes fn.
type HandledCollector struct {
	*Collector
	fn Handler
}

// NewHandledCollector returns a collector that also forwards every event to fn.
func NewHandledCollector(fn Handler) *HandledCollector {
	return &HandledCollector{Collector: NewCollector(), fn: fn}
}

func (h *HandledCollector) Add(e Event) {
	h.Collector.Add(e)
	if h.fn != nil {
		h.fn(e)
	}
}
