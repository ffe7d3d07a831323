package metrics

import (
	"sort"
	"sync"
	"time"
)

const DefaultWindowSize = 1000

// Summary describes the current rolling window of one event. A zero
// Count means no data has been recorded.
type Summary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
}

type window struct {
	buf   []float64
	next  int
	count int
}

func (w *window) push(v float64) {
	w.buf[w.next] = v
	w.next = (w.next + 1) % len(w.buf)
	if w.count < len(w.buf) {
		w.count++
	}
}

// values returns the window contents, oldest first.
func (w *window) values() []float64 {
	out := make([]float64, w.count)
	if w.count < len(w.buf) {
		copy(out, w.buf[:w.count])
		return out
	}
	n := copy(out, w.buf[w.next:])
	copy(out[n:], w.buf[:w.next])
	return out
}

// Tracker is the process-wide store of named rolling-window statistics
// and counters. One instance is constructed at startup and handed to
// every component that records timings.
type Tracker struct {
	mu         sync.RWMutex
	windowSize int
	windows    map[string]*window
	counters   map[string]int64
}

func NewTracker(windowSize int) *Tracker {
	if windowSize < 1 {
		windowSize = DefaultWindowSize
	}
	return &Tracker{
		windowSize: windowSize,
		windows:    make(map[string]*window),
		counters:   make(map[string]int64),
	}
}

// Record appends a value to the named event's window. Once the window
// is full the oldest value is evicted first.
func (t *Tracker) Record(name string, value float64) {
	t.mu.Lock()
	w, ok := t.windows[name]
	if !ok {
		w = &window{buf: make([]float64, t.windowSize)}
		t.windows[name] = w
	}
	w.push(value)
	t.mu.Unlock()
}

// Time starts a timer for the named event. The returned stop function
// records the elapsed milliseconds.
func (t *Tracker) Time(name string) func() {
	start := time.Now()
	return func() {
		t.Record(name, float64(time.Since(start).Microseconds())/1000.0)
	}
}

// Inc adds delta to the named counter.
func (t *Tracker) Inc(name string, delta int64) {
	t.mu.Lock()
	t.counters[name] += delta
	t.mu.Unlock()
}

// Latest returns the most recently recorded value for the event.
func (t *Tracker) Latest(name string) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	w, ok := t.windows[name]
	if !ok || w.count == 0 {
		return 0, false
	}
	idx := (w.next - 1 + len(w.buf)) % len(w.buf)
	return w.buf[idx], true
}

// Summary computes statistics over the event's current window.
func (t *Tracker) Summary(name string) Summary {
	t.mu.RLock()
	var vals []float64
	if w, ok := t.windows[name]; ok {
		vals = w.values()
	}
	t.mu.RUnlock()
	return summarize(vals)
}

// SummaryAll returns a summary for every known event.
func (t *Tracker) SummaryAll() map[string]Summary {
	t.mu.RLock()
	snapshots := make(map[string][]float64, len(t.windows))
	for name, w := range t.windows {
		snapshots[name] = w.values()
	}
	t.mu.RUnlock()

	out := make(map[string]Summary, len(snapshots))
	for name, vals := range snapshots {
		out[name] = summarize(vals)
	}
	return out
}

// Counters returns a snapshot of all counter values.
func (t *Tracker) Counters() map[string]int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]int64, len(t.counters))
	for name, v := range t.counters {
		out[name] = v
	}
	return out
}

// Reset drops all windows and counters.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.windows = make(map[string]*window)
	t.counters = make(map[string]int64)
	t.mu.Unlock()
}

func summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	s := Summary{Count: len(values), Min: values[0], Max: values[0]}
	var sum float64
	for _, v := range values {
		sum += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Mean = sum / float64(len(values))

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	s.P50 = percentileSorted(sorted, 50)
	s.P95 = percentileSorted(sorted, 95)
	return s
}

// Mean returns the arithmetic mean, 0 for empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Percentile returns the p-th percentile of values by sorted rank.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

func percentileSorted(sorted []float64, p float64) float64 {
	idx := int(float64(len(sorted)) * p / 100)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
