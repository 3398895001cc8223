package observability

import (
	"math"
	"sort"
	"sync"
	"time"
)

// NotifyEventStats summarizes recent bridge round trips for one event kind.
type NotifyEventStats struct {
	Event    string         `json:"event"`
	Samples  int            `json:"samples"`
	LastMS   float64        `json:"last_ms"`
	AvgMS    float64        `json:"avg_ms"`
	P50MS    float64        `json:"p50_ms"`
	P95MS    float64        `json:"p95_ms"`
	MaxMS    float64        `json:"max_ms"`
	Outcomes map[string]int `json:"outcomes"`
}

type NotifySnapshot struct {
	GeneratedAt time.Time          `json:"generated_at"`
	WindowSize  int                `json:"window_size"`
	Events      []NotifyEventStats `json:"events"`
}

// notifyWindow keeps a fixed-size ring of latencies per event plus running
// outcome counts since the last reset.
type notifyWindow struct {
	mu         sync.RWMutex
	maxSamples int
	events     map[string]*latencyRing
	outcomes   map[string]map[string]int
}

type latencyRing struct {
	values []float64
	next   int
	filled bool
	last   float64
}

func newNotifyWindow(maxSamples int) *notifyWindow {
	if maxSamples <= 0 {
		maxSamples = 256
	}
	return &notifyWindow{
		maxSamples: maxSamples,
		events:     make(map[string]*latencyRing),
		outcomes:   make(map[string]map[string]int),
	}
}

func (w *notifyWindow) Observe(event, outcome string, ms float64) {
	if event == "" || ms < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	ring, ok := w.events[event]
	if !ok {
		ring = &latencyRing{values: make([]float64, w.maxSamples)}
		w.events[event] = ring
	}
	ring.values[ring.next] = ms
	ring.last = ms
	ring.next++
	if ring.next >= len(ring.values) {
		ring.next = 0
		ring.filled = true
	}

	if outcome == "" {
		return
	}
	counts, ok := w.outcomes[event]
	if !ok {
		counts = make(map[string]int)
		w.outcomes[event] = counts
	}
	counts[outcome]++
}

func (w *notifyWindow) Snapshot() NotifySnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	keys := make([]string, 0, len(w.events))
	for event := range w.events {
		keys = append(keys, event)
	}
	sort.Strings(keys)

	events := make([]NotifyEventStats, 0, len(keys))
	for _, event := range keys {
		ring := w.events[event]
		n := ring.next
		if ring.filled {
			n = len(ring.values)
		}
		if n <= 0 {
			continue
		}
		samples := make([]float64, n)
		copy(samples, ring.values[:n])
		sort.Float64s(samples)

		sum := 0.0
		for _, v := range samples {
			sum += v
		}

		outcomes := make(map[string]int, len(w.outcomes[event]))
		for k, v := range w.outcomes[event] {
			outcomes[k] = v
		}

		events = append(events, NotifyEventStats{
			Event:    event,
			Samples:  n,
			LastMS:   round2(ring.last),
			AvgMS:    round2(sum / float64(n)),
			P50MS:    round2(quantile(samples, 0.50)),
			P95MS:    round2(quantile(samples, 0.95)),
			MaxMS:    round2(samples[n-1]),
			Outcomes: outcomes,
		})
	}

	return NotifySnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.maxSamples,
		Events:      events,
	}
}

func (w *notifyWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = make(map[string]*latencyRing)
	w.outcomes = make(map[string]map[string]int)
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := q * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
