// Package telemetry aggregates operation latencies and cache
// effectiveness for the current session. Nothing here is persisted;
// the buffer is bounded and the summary is derived on demand.
package telemetry

import (
	"strings"
	"sync"
	"time"
)

// Category classifies a recorded event.
type Category string

const (
	CategoryVital  Category = "web-vital"
	CategoryCustom Category = "custom"
	CategoryError  Category = "error"
)

// Kind selects the slow-operation threshold for a measurement.
type Kind string

const (
	KindRender      Kind = "render"
	KindInteraction Kind = "interaction"
	KindNetwork     Kind = "network"
)

// Slow-operation thresholds per kind (milliseconds).
const (
	slowRenderMs      = 100
	slowInteractionMs = 200
	slowNetworkMs     = 3000
)

// Buffer bound: exceeding maxEvents truncates to the most recent
// keepEvents in one batch drop, not incrementally.
const (
	maxEvents  = 100
	keepEvents = 50
)

// Event is one telemetry sample. Value is milliseconds for latency
// events and a ratio/flag for the rest.
type Event struct {
	Category  Category  `json:"category"`
	Name      string    `json:"name"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
	Agent     string    `json:"agent,omitempty"`
}

// Aggregator collects events in a bounded in-memory buffer and keeps
// running cache hit counters. Thread-safe.
type Aggregator struct {
	mu     sync.Mutex
	events []Event

	hits  int64
	total int64

	source string
	agent  string
	now    func() time.Time
}

// New creates an Aggregator. Source and agent are stamped onto every
// event (the origin label and client identification of the session).
func New(source, agent string) *Aggregator {
	return &Aggregator{
		events: make([]Event, 0, maxEvents),
		source: source,
		agent:  agent,
		now:    time.Now,
	}
}

// Measurement is a handle returned by Measure; End records the elapsed time.
type Measurement struct {
	agg   *Aggregator
	name  string
	kind  Kind
	start time.Time
}

// Measure starts timing a named operation.
func (a *Aggregator) Measure(name string, kind Kind) *Measurement {
	return &Measurement{agg: a, name: name, kind: kind, start: a.now()}
}

// End records the elapsed wall-clock time in milliseconds and, past the
// kind's threshold, an additional "slow-<name>" event. Returns the
// elapsed milliseconds. Safe on a nil receiver so callers can disable
// measurement without branching.
func (m *Measurement) End() float64 {
	if m == nil {
		return 0
	}
	elapsed := float64(m.agg.now().Sub(m.start).Microseconds()) / 1000
	m.agg.append(Event{Category: CategoryCustom, Name: m.name, Value: elapsed})

	if elapsed > thresholdMs(m.kind) {
		m.agg.append(Event{Category: CategoryCustom, Name: "slow-" + m.name, Value: elapsed})
	}
	return elapsed
}

func thresholdMs(k Kind) float64 {
	switch k {
	case KindRender:
		return slowRenderMs
	case KindInteraction:
		return slowInteractionMs
	default:
		return slowNetworkMs
	}
}

// RecordCacheHit updates the running hit counters and emits a discrete
// hit/miss event plus the updated rate.
func (a *Aggregator) RecordCacheHit(hit bool) {
	a.mu.Lock()
	a.total++
	if hit {
		a.hits++
	}
	rate := a.hitRateLocked()
	a.mu.Unlock()

	name := "cache-miss"
	if hit {
		name = "cache-hit"
	}
	a.append(Event{Category: CategoryCustom, Name: name, Value: 1})
	a.append(Event{Category: CategoryCustom, Name: "cache-hit-rate", Value: rate})
}

// HitRate returns hits/total, 0 when nothing was recorded yet.
func (a *Aggregator) HitRate() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hitRateLocked()
}

func (a *Aggregator) hitRateLocked() float64 {
	if a.total == 0 {
		return 0
	}
	return float64(a.hits) / float64(a.total)
}

// RecordError records a failed operation as an error event.
func (a *Aggregator) RecordError(name string) {
	a.append(Event{Category: CategoryError, Name: name, Value: 1})
}

// RecordVital records an externally measured vital sample.
func (a *Aggregator) RecordVital(name string, valueMs float64) {
	a.append(Event{Category: CategoryVital, Name: name, Value: valueMs})
}

func (a *Aggregator) append(ev Event) {
	ev.Timestamp = a.now()
	ev.Source = a.source
	ev.Agent = a.agent

	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
	if len(a.events) > maxEvents {
		kept := a.events[len(a.events)-keepEvents:]
		a.events = append(make([]Event, 0, maxEvents), kept...)
	}
}

// Events returns a snapshot of the current buffer, oldest first.
func (a *Aggregator) Events() []Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Event, len(a.events))
	copy(out, a.events)
	return out
}

// Summary holds aggregate statistics derived from the retained events.
type Summary struct {
	AvgQueryMs   float64 `json:"avg_query_ms"`
	AvgRenderMs  float64 `json:"avg_render_ms"`
	ErrorCount   int     `json:"error_count"`
	SlowCount    int     `json:"slow_count"`
	CacheHitRate float64 `json:"cache_hit_rate"`
	EventCount   int     `json:"event_count"`
}

// Summarize scans the current buffer on demand. Statistics computed
// after a truncation reflect only the retained events; the cache hit
// rate comes from the running counters and survives truncation.
func (a *Aggregator) Summarize() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	var s Summary
	s.EventCount = len(a.events)
	s.CacheHitRate = a.hitRateLocked()

	var querySum, renderSum float64
	var queryN, renderN int

	for _, ev := range a.events {
		if ev.Category == CategoryError {
			s.ErrorCount++
			continue
		}
		switch {
		case strings.HasPrefix(ev.Name, "slow-"):
			s.SlowCount++
		case strings.HasPrefix(ev.Name, "query"):
			querySum += ev.Value
			queryN++
		case strings.HasPrefix(ev.Name, "render"):
			renderSum += ev.Value
			renderN++
		}
	}

	if queryN > 0 {
		s.AvgQueryMs = querySum / float64(queryN)
	}
	if renderN > 0 {
		s.AvgRenderMs = renderSum / float64(renderN)
	}
	return s
}

// Reset clears the buffer and the running counters.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = a.events[:0]
	a.hits = 0
	a.total = 0
}
