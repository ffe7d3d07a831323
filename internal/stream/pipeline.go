package stream

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Hollis36/smolvlm-anti-drone/internal/assess"
	"github.com/Hollis36/smolvlm-anti-drone/internal/metrics"
	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
	"github.com/Hollis36/smolvlm-anti-drone/internal/vision"
)

type PipelineConfig struct {
	// Prompt is sent to the scene describer for every frame.
	Prompt string
	// InferenceTimeout bounds each detector/describer call. 0 means
	// no pipeline-imposed timeout.
	InferenceTimeout time.Duration
}

// Pipeline runs one frame through detection and scene description
// concurrently, joins both results, and fuses them into a verdict.
// A failed capability call degrades that input to empty instead of
// halting the stream.
type Pipeline struct {
	detector  vision.Detector
	describer vision.SceneDescriber
	assessor  *assess.Assessor
	prompt    string
	timeout   time.Duration
	tracker   *metrics.Tracker
}

func NewPipeline(detector vision.Detector, describer vision.SceneDescriber, assessor *assess.Assessor, cfg PipelineConfig, tracker *metrics.Tracker) *Pipeline {
	return &Pipeline{
		detector:  detector,
		describer: describer,
		assessor:  assessor,
		prompt:    cfg.Prompt,
		timeout:   cfg.InferenceTimeout,
		tracker:   tracker,
	}
}

// Process produces the fused verdict for one frame. Assessment never
// starts on partial results; both capability calls are joined first.
func (p *Pipeline) Process(ctx context.Context, frame models.Frame) (models.ThreatAssessment, error) {
	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var (
		detections  []models.Detection
		description string
		detectErr   error
		describeErr error
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		stop := p.tracker.Time("detect_duration")
		detections, detectErr = p.detector.Detect(callCtx, frame.Data)
		stop()
	}()
	go func() {
		defer wg.Done()
		stop := p.tracker.Time("describe_duration")
		description, describeErr = p.describer.Describe(callCtx, frame.Data, p.prompt)
		stop()
	}()
	wg.Wait()

	if detectErr != nil {
		log.Printf("Pipeline[frame %d]: detector failed, degrading to empty detections: %v", frame.Index, detectErr)
		p.tracker.Inc("inference_failures", 1)
		detections = nil
	}
	if describeErr != nil {
		log.Printf("Pipeline[frame %d]: describer failed, degrading to empty description: %v", frame.Index, describeErr)
		p.tracker.Inc("inference_failures", 1)
		description = ""
	}

	return p.assessor.Assess(detections, description)
}
