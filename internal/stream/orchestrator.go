package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/Hollis36/smolvlm-anti-drone/internal/metrics"
	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
	"github.com/Hollis36/smolvlm-anti-drone/internal/schedule"
)

// ErrRunActive is returned when Run is called while another run of the
// same orchestrator is still in flight.
var ErrRunActive = errors.New("run already in progress")

// Summary aggregates one run. Level counts cover every frame seen;
// timing statistics cover processed frames only.
type Summary struct {
	TotalFrames     int64            `json:"total_frames"`
	ProcessedFrames int64            `json:"processed_frames"`
	SkippedFrames   int64            `json:"skipped_frames"`
	LevelCounts     map[string]int64 `json:"level_counts"`
	MeanMS          float64          `json:"mean_ms"`
	MedianMS        float64          `json:"median_ms"`
	P95MS           float64          `json:"p95_ms"`
}

type Config struct {
	// StartIndex offsets the frame counter, used when resuming a
	// stream from persisted progress.
	StartIndex int64
}

// Orchestrator drives frames from a source through the scheduler one at
// a time, in source order. Stop is safe to call from another goroutine
// and takes effect at the next frame boundary.
type Orchestrator struct {
	scheduler *schedule.Scheduler
	pipeline  *Pipeline
	tracker   *metrics.Tracker

	startIndex int64
	running    atomic.Bool
	stopped    atomic.Bool

	mu             sync.Mutex
	totalFrames    int64
	processed      int64
	skipped        int64
	levelCounts    map[string]int64
	processedTimes []float64
}

func NewOrchestrator(cfg Config, scheduler *schedule.Scheduler, pipeline *Pipeline, tracker *metrics.Tracker) (*Orchestrator, error) {
	if cfg.StartIndex < 0 {
		return nil, &models.ConfigError{Param: "start_index", Reason: fmt.Sprintf("%d is negative", cfg.StartIndex)}
	}
	return &Orchestrator{
		scheduler:   scheduler,
		pipeline:    pipeline,
		tracker:     tracker,
		startIndex:  cfg.StartIndex,
		levelCounts: make(map[string]int64),
	}, nil
}

// Run drives the source to exhaustion, a Stop call, or a terminal
// error. onResult runs for every frame's effective verdict; its failure
// terminates the run after the frame's metrics are recorded.
func (o *Orchestrator) Run(ctx context.Context, source Source, onResult func(models.Frame, models.ThreatAssessment) error) (Summary, error) {
	if !o.running.CompareAndSwap(false, true) {
		return Summary{}, ErrRunActive
	}
	defer o.running.Store(false)

	var seen int64
	for {
		if o.stopped.Load() {
			log.Printf("Orchestrator: stop requested, ending run after %d frames", seen)
			break
		}
		if ctx.Err() != nil {
			log.Printf("Orchestrator: context done, ending run after %d frames", seen)
			break
		}

		frame, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return o.RunSummary(), fmt.Errorf("frame source: %w", err)
		}

		idx := o.startIndex + seen
		seen++
		frame.Index = idx

		o.mu.Lock()
		o.totalFrames++
		o.mu.Unlock()
		o.tracker.Inc("frames_total", 1)

		assessment, err := o.scheduler.GetEffective(idx, func() (models.ThreatAssessment, error) {
			return o.pipeline.Process(ctx, frame)
		})
		if err != nil {
			return o.RunSummary(), fmt.Errorf("frame %d: %w", idx, err)
		}

		o.recordFrame(assessment)

		if err := onResult(frame, assessment); err != nil {
			return o.RunSummary(), &models.CallbackError{Frame: idx, Err: err}
		}
	}

	summary := o.RunSummary()
	log.Printf("Orchestrator: run complete, %d frames (%d processed, %d skipped)",
		summary.TotalFrames, summary.ProcessedFrames, summary.SkippedFrames)
	return summary, nil
}

// Stop signals cooperative termination. In-flight inference completes;
// the run ends at the next frame boundary.
func (o *Orchestrator) Stop() {
	o.stopped.Store(true)
}

// RunSummary snapshots the aggregates so far. Safe to call while a run
// is in flight.
func (o *Orchestrator) RunSummary() Summary {
	o.mu.Lock()
	defer o.mu.Unlock()

	counts := make(map[string]int64, len(o.levelCounts))
	for level, n := range o.levelCounts {
		counts[level] = n
	}
	return Summary{
		TotalFrames:     o.totalFrames,
		ProcessedFrames: o.processed,
		SkippedFrames:   o.skipped,
		LevelCounts:     counts,
		MeanMS:          metrics.Mean(o.processedTimes),
		MedianMS:        metrics.Percentile(o.processedTimes, 50),
		P95MS:           metrics.Percentile(o.processedTimes, 95),
	}
}

func (o *Orchestrator) recordFrame(assessment models.ThreatAssessment) {
	o.mu.Lock()
	if assessment.Reused {
		o.skipped++
	} else {
		o.processed++
		o.processedTimes = append(o.processedTimes, assessment.ProcessingTimeMS)
	}
	o.levelCounts[assessment.ThreatLevel.String()]++
	o.mu.Unlock()

	if assessment.Reused {
		o.tracker.Inc("frames_skipped", 1)
	} else {
		o.tracker.Inc("frames_processed", 1)
	}
	o.tracker.Inc("verdicts_"+assessment.ThreatLevel.String(), 1)
}
