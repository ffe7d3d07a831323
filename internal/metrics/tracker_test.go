package metrics

import (
	"math"
	"strings"
	"sync"
	"testing"
)

// TestRecordAndSummary verifies basic window statistics.
func TestRecordAndSummary(t *testing.T) {
	tracker := NewTracker(100)
	for _, v := range []float64{10, 20, 30} {
		tracker.Record("frame_time", v)
	}

	s := tracker.Summary("frame_time")
	if s.Count != 3 {
		t.Errorf("Expected count 3, got %d", s.Count)
	}
	if s.Mean != 20 {
		t.Errorf("Expected mean 20, got %f", s.Mean)
	}
	if s.Min != 10 || s.Max != 30 {
		t.Errorf("Expected min 10 max 30, got min %f max %f", s.Min, s.Max)
	}
}

// TestWindowEviction verifies only the most recent W values survive
// after recording more than the window holds.
func TestWindowEviction(t *testing.T) {
	tracker := NewTracker(5)
	for i := 1; i <= 8; i++ {
		tracker.Record("evict", float64(i))
	}

	s := tracker.Summary("evict")
	if s.Count != 5 {
		t.Fatalf("Expected count 5, got %d", s.Count)
	}
	if s.Min != 4 {
		t.Errorf("Expected oldest surviving value 4, got min %f", s.Min)
	}
	if s.Max != 8 {
		t.Errorf("Expected max 8, got %f", s.Max)
	}
	if s.Mean != 6 {
		t.Errorf("Expected mean 6, got %f", s.Mean)
	}
}

// TestSummaryEmpty verifies an unknown event yields a no-data summary.
func TestSummaryEmpty(t *testing.T) {
	tracker := NewTracker(10)
	s := tracker.Summary("never_recorded")
	if s.Count != 0 {
		t.Errorf("Expected count 0, got %d", s.Count)
	}
	if s.Mean != 0 || s.Min != 0 || s.Max != 0 || s.P50 != 0 || s.P95 != 0 {
		t.Errorf("Expected zeroed summary, got %+v", s)
	}
}

// TestPercentiles verifies the sorted-rank percentile indexing.
func TestPercentiles(t *testing.T) {
	tracker := NewTracker(100)
	for i := 1; i <= 10; i++ {
		tracker.Record("latency", float64(i))
	}

	s := tracker.Summary("latency")
	if s.P50 != 6 {
		t.Errorf("Expected p50 6, got %f", s.P50)
	}
	if s.P95 != 10 {
		t.Errorf("Expected p95 10, got %f", s.P95)
	}
}

// TestSummaryAll verifies every recorded event is reported.
func TestSummaryAll(t *testing.T) {
	tracker := NewTracker(10)
	tracker.Record("detect", 5)
	tracker.Record("describe", 7)
	tracker.Record("describe", 9)

	all := tracker.SummaryAll()
	if len(all) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(all))
	}
	if all["detect"].Count != 1 {
		t.Errorf("Expected detect count 1, got %d", all["detect"].Count)
	}
	if all["describe"].Count != 2 {
		t.Errorf("Expected describe count 2, got %d", all["describe"].Count)
	}
}

// TestCounters verifies counter increments accumulate.
func TestCounters(t *testing.T) {
	tracker := NewTracker(10)
	tracker.Inc("frames_total", 1)
	tracker.Inc("frames_total", 2)

	counters := tracker.Counters()
	if counters["frames_total"] != 3 {
		t.Errorf("Expected counter 3, got %d", counters["frames_total"])
	}
}

// TestLatest verifies the most recent value is returned.
func TestLatest(t *testing.T) {
	tracker := NewTracker(3)

	if _, ok := tracker.Latest("missing"); ok {
		t.Error("Expected no latest value for unknown event")
	}

	for i := 1; i <= 5; i++ {
		tracker.Record("seq", float64(i))
	}
	v, ok := tracker.Latest("seq")
	if !ok || v != 5 {
		t.Errorf("Expected latest 5, got %f (ok=%v)", v, ok)
	}
}

// TestTime verifies the timer helper records one sample.
func TestTime(t *testing.T) {
	tracker := NewTracker(10)
	stop := tracker.Time("op_duration")
	stop()

	s := tracker.Summary("op_duration")
	if s.Count != 1 {
		t.Fatalf("Expected 1 sample, got %d", s.Count)
	}
	if s.Mean < 0 {
		t.Errorf("Expected non-negative duration, got %f", s.Mean)
	}
}

// TestConcurrentRecord verifies concurrent writers lose no updates.
func TestConcurrentRecord(t *testing.T) {
	tracker := NewTracker(2000)

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				tracker.Record("shared", 1)
				tracker.Inc("shared_total", 1)
			}
		}()
	}
	wg.Wait()

	if s := tracker.Summary("shared"); s.Count != 1000 {
		t.Errorf("Expected 1000 samples, got %d", s.Count)
	}
	if c := tracker.Counters()["shared_total"]; c != 1000 {
		t.Errorf("Expected counter 1000, got %d", c)
	}
}

// TestReset verifies all state is dropped.
func TestReset(t *testing.T) {
	tracker := NewTracker(10)
	tracker.Record("x", 1)
	tracker.Inc("y", 1)
	tracker.Reset()

	if s := tracker.Summary("x"); s.Count != 0 {
		t.Errorf("Expected empty window after reset, got count %d", s.Count)
	}
	if len(tracker.Counters()) != 0 {
		t.Error("Expected no counters after reset")
	}
}

// TestPercentileHelper verifies the package-level helper on unsorted input.
func TestPercentileHelper(t *testing.T) {
	values := []float64{9, 1, 7, 3, 5}
	if got := Percentile(values, 50); got != 7 {
		t.Errorf("Expected p50 7, got %f", got)
	}
	if got := Percentile(nil, 95); got != 0 {
		t.Errorf("Expected 0 for empty input, got %f", got)
	}
	if got := Mean(values); math.Abs(got-5) > 1e-9 {
		t.Errorf("Expected mean 5, got %f", got)
	}
}

// TestExporterCollect verifies tracker state surfaces in the registry.
func TestExporterCollect(t *testing.T) {
	tracker := NewTracker(10)
	tracker.Record("assess_duration", 12.5)
	tracker.Inc("frames_total", 4)

	exporter := NewExporter(tracker, "fusion")
	server := exporter.Handler()
	if server == nil {
		t.Fatal("Expected non-nil handler")
	}

	metrics, err := exporter.registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	var names []string
	for _, mf := range metrics {
		names = append(names, mf.GetName())
	}
	joined := strings.Join(names, ",")
	if !strings.Contains(joined, "fusion_event_mean") {
		t.Errorf("Expected fusion_event_mean in %v", names)
	}
	if !strings.Contains(joined, "fusion_counter_total") {
		t.Errorf("Expected fusion_counter_total in %v", names)
	}
}
