package schedule

import (
	"fmt"
	"time"

	"github.com/Hollis36/smolvlm-anti-drone/internal/metrics"
	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

type Config struct {
	// SkipInterval is the number of frames between full pipeline
	// invocations. Frames in between reuse the last verdict.
	SkipInterval int
	// TargetBudgetMS widens the interval while the rolling mean
	// pipeline duration stays above it. 0 disables widening.
	TargetBudgetMS float64
	// MaxInterval caps adaptive widening. 0 means 4x SkipInterval.
	MaxInterval int
}

// Scheduler decides per frame whether to run the full pipeline or reuse
// the last verdict. Each stream owns exactly one Scheduler; it is not
// safe for concurrent use.
type Scheduler struct {
	base     int
	interval int
	max      int
	budgetMS float64

	last      *models.ThreatAssessment
	forceNext bool
	tracker   *metrics.Tracker
}

func New(cfg Config, tracker *metrics.Tracker) (*Scheduler, error) {
	if cfg.SkipInterval < 1 {
		return nil, &models.ConfigError{Param: "skip_interval", Reason: fmt.Sprintf("%d is below 1", cfg.SkipInterval)}
	}
	if cfg.TargetBudgetMS < 0 {
		return nil, &models.ConfigError{Param: "target_budget_ms", Reason: fmt.Sprintf("%.2f is negative", cfg.TargetBudgetMS)}
	}
	max := cfg.MaxInterval
	if max == 0 {
		max = cfg.SkipInterval * 4
	}
	if max < cfg.SkipInterval {
		return nil, &models.ConfigError{Param: "max_interval", Reason: fmt.Sprintf("%d is below skip_interval %d", max, cfg.SkipInterval)}
	}
	return &Scheduler{
		base:     cfg.SkipInterval,
		interval: cfg.SkipInterval,
		max:      max,
		budgetMS: cfg.TargetBudgetMS,
		tracker:  tracker,
	}, nil
}

// ShouldProcess reports whether the frame goes through the full
// pipeline. The first frame always does, as does any frame immediately
// following a critical verdict.
func (s *Scheduler) ShouldProcess(frameIndex int64) bool {
	return s.last == nil || s.forceNext || frameIndex%int64(s.interval) == 0
}

// Record stores the assessment as the reuse candidate for upcoming
// skipped frames. A critical verdict forces the next frame through the
// full pipeline.
func (s *Scheduler) Record(assessment models.ThreatAssessment) {
	stored := assessment
	s.last = &stored
	s.forceNext = assessment.ThreatLevel == models.ThreatCritical
}

// GetEffective returns the verdict for the frame. On process frames it
// invokes producer, stamps the real elapsed time and records the
// result; on skip frames it returns the cached verdict with zero
// processing time and the reused flag set.
func (s *Scheduler) GetEffective(frameIndex int64, producer func() (models.ThreatAssessment, error)) (models.ThreatAssessment, error) {
	if !s.ShouldProcess(frameIndex) {
		reused := *s.last
		reused.ProcessingTimeMS = 0
		reused.Reused = true
		return reused, nil
	}

	start := time.Now()
	assessment, err := producer()
	if err != nil {
		return models.ThreatAssessment{}, err
	}
	assessment.ProcessingTimeMS = float64(time.Since(start).Microseconds()) / 1000.0
	assessment.Reused = false

	s.tracker.Record("pipeline_duration", assessment.ProcessingTimeMS)
	s.Record(assessment)
	s.adjust()
	return assessment, nil
}

// SkipInterval returns the current, possibly widened, interval.
func (s *Scheduler) SkipInterval() int {
	return s.interval
}

// Last returns the cached verdict, if any.
func (s *Scheduler) Last() (models.ThreatAssessment, bool) {
	if s.last == nil {
		return models.ThreatAssessment{}, false
	}
	return *s.last, true
}

// adjust widens the interval while the rolling mean pipeline duration
// exceeds the budget. A critical verdict snaps it back to the base so
// rapid escalation is not missed.
func (s *Scheduler) adjust() {
	if s.forceNext {
		s.interval = s.base
		return
	}
	if s.budgetMS <= 0 {
		return
	}
	mean := s.tracker.Summary("pipeline_duration").Mean
	if mean > s.budgetMS && s.interval < s.max {
		s.interval++
	}
}
