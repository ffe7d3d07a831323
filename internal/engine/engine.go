// Package engine runs commanded streams end to end: it pulls frames
// from object storage, drives them through the scheduling pipeline and
// fans each verdict out to the database, object storage, Kafka and the
// alert channel.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/Hollis36/smolvlm-anti-drone/internal/alert"
	"github.com/Hollis36/smolvlm-anti-drone/internal/annotate"
	"github.com/Hollis36/smolvlm-anti-drone/internal/assess"
	"github.com/Hollis36/smolvlm-anti-drone/internal/database"
	"github.com/Hollis36/smolvlm-anti-drone/internal/kafka"
	"github.com/Hollis36/smolvlm-anti-drone/internal/metrics"
	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
	"github.com/Hollis36/smolvlm-anti-drone/internal/s3"
	"github.com/Hollis36/smolvlm-anti-drone/internal/schedule"
	"github.com/Hollis36/smolvlm-anti-drone/internal/stream"
	"github.com/Hollis36/smolvlm-anti-drone/internal/vision"
)

const (
	saveRetries             = 5
	heartbeatInterval       = 5 * time.Second
	checkStopEventsInterval = 10 * time.Second
)

// Config carries the per-run pipeline settings.
type Config struct {
	Scheduler schedule.Config
	Pipeline  stream.PipelineConfig
}

type Engine struct {
	db         *database.Database
	s3Client   *s3.Client
	detector   vision.Detector
	describer  vision.SceneDescriber
	assessor   *assess.Assessor
	consumer   *kafka.Consumer
	heartbeats *kafka.Producer
	verdicts   *kafka.Producer
	alerts     *alert.Publisher
	tracker    *metrics.Tracker
	cfg        Config

	activeRunners map[string]context.CancelFunc
	orchestrators map[string]*stream.Orchestrator
	mu            sync.Mutex
}

type Deps struct {
	DB         *database.Database
	S3         *s3.Client
	Detector   vision.Detector
	Describer  vision.SceneDescriber
	Assessor   *assess.Assessor
	Consumer   *kafka.Consumer
	Heartbeats *kafka.Producer
	Verdicts   *kafka.Producer
	Alerts     *alert.Publisher
	Tracker    *metrics.Tracker
}

func New(deps Deps, cfg Config) *Engine {
	return &Engine{
		db:            deps.DB,
		s3Client:      deps.S3,
		detector:      deps.Detector,
		describer:     deps.Describer,
		assessor:      deps.Assessor,
		consumer:      deps.Consumer,
		heartbeats:    deps.Heartbeats,
		verdicts:      deps.Verdicts,
		alerts:        deps.Alerts,
		tracker:       deps.Tracker,
		cfg:           cfg,
		activeRunners: make(map[string]context.CancelFunc),
		orchestrators: make(map[string]*stream.Orchestrator),
	}
}

// ListenAndRun consumes stream commands until the context ends.
func (e *Engine) ListenAndRun(ctx context.Context) {
	log.Println("Engine: listening for Kafka commands")
	for {
		select {
		case <-ctx.Done():
			log.Println("Engine: shutting down")
			return
		case msg, ok := <-e.consumer.Messages():
			if !ok {
				log.Println("Engine: command channel closed")
				return
			}
			var cmd models.StreamCommand
			if err := json.Unmarshal(msg.Value, &cmd); err != nil {
				log.Printf("Invalid command format: %v", err)
				// leave the message unacked when parsing fails
				continue
			}
			log.Printf("Engine: received stream command %v", cmd)

			var processErr error
			switch cmd.Action {
			case models.CommandStart:
				processErr = e.Start(ctx, cmd)
			case models.CommandStop:
				processErr = e.RegisterStopEvent(ctx, cmd.StreamID)
			default:
				log.Printf("Unknown command: %s", cmd.Action)
			}

			if processErr != nil {
				log.Printf("Error processing command: %v", processErr)
				continue
			}

			// ack only after the command is handled
			msg.Session.MarkMessage(msg.Message, "")
		}
	}
}

// Start claims a stream and processes it in the background. A start
// for a stream whose run is still heartbeating is ignored.
func (e *Engine) Start(ctx context.Context, cmd models.StreamCommand) error {
	existing, err := e.db.GetRun(ctx, cmd.StreamID)
	if err != nil {
		log.Printf("Database error: %v", err)
		return err
	}
	if existing != nil {
		if existing.Action == models.CommandStart && time.Since(existing.UpdatedAt) < heartbeatInterval*3 {
			log.Printf("Engine[%s]: run already active", cmd.StreamID)
			return nil
		}
	}

	if err := e.db.UpsertRun(ctx, &models.Run{
		ID:          cmd.StreamID,
		Action:      cmd.Action,
		FrameSource: cmd.FrameSource,
	}); err != nil {
		log.Printf("Database error: %v", err)
		return err
	}
	log.Printf("Engine[%s]: run created", cmd.StreamID)

	if err := e.heartbeats.SendHeartbeat(models.Heartbeat{
		StreamID:  cmd.StreamID,
		Action:    models.CommandStart,
		TimeStamp: time.Now().UTC(),
	}); err != nil {
		log.Printf("Engine[%s]: error sending start heartbeat: %v", cmd.StreamID, err)
		return err
	}

	e.mu.Lock()
	childCtx, cancel := context.WithCancel(ctx)
	e.activeRunners[cmd.StreamID] = cancel
	e.mu.Unlock()

	go func() {
		defer func() {
			e.mu.Lock()
			delete(e.activeRunners, cmd.StreamID)
			delete(e.orchestrators, cmd.StreamID)
			e.mu.Unlock()

			log.Printf("Engine[%s]: run finished", cmd.StreamID)
		}()

		if err := e.processStream(childCtx, cmd); err != nil {
			log.Printf("Engine[%s]: run error: %v", cmd.StreamID, err)
		}
	}()

	return nil
}

// processStream downloads the frames, assesses them and fans out every
// verdict. It resumes from the count of verdicts already saved.
func (e *Engine) processStream(ctx context.Context, cmd models.StreamCommand) error {
	log.Printf("Engine[%s]: downloading frames from %s", cmd.StreamID, cmd.FrameSource)

	frames, err := e.s3Client.DownloadFrames(ctx, cmd.FrameSource)
	if err != nil {
		return err
	}

	handled, err := e.s3Client.CountVerdicts(ctx, cmd.StreamID)
	if err != nil {
		return err
	}
	if handled > len(frames) {
		handled = len(frames)
	}

	scheduler, err := schedule.New(e.cfg.Scheduler, e.tracker)
	if err != nil {
		return err
	}
	pipeline := stream.NewPipeline(e.detector, e.describer, e.assessor, e.cfg.Pipeline, e.tracker)
	orchestrator, err := stream.NewOrchestrator(
		stream.Config{StartIndex: int64(handled)}, scheduler, pipeline, e.tracker)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.orchestrators[cmd.StreamID] = orchestrator
	e.mu.Unlock()

	heartbeatTicker := time.NewTicker(heartbeatInterval)
	defer heartbeatTicker.Stop()

	log.Printf("Engine[%s]: processing %d frames starting at %d", cmd.StreamID, len(frames)-handled, handled)
	source := stream.NewSliceSource(frames[handled:])

	summary, err := orchestrator.Run(ctx, source, func(frame models.Frame, assessment models.ThreatAssessment) error {
		if err := e.saveVerdict(ctx, cmd.StreamID, frame, assessment); err != nil {
			return err
		}
		e.announce(ctx, cmd.StreamID, frame, assessment)

		select {
		case <-heartbeatTicker.C:
			if err := e.db.TouchRun(ctx, cmd.StreamID); err != nil {
				log.Printf("Engine[%s]: error touching run: %v", cmd.StreamID, err)
			}
			if err := e.heartbeats.SendHeartbeat(models.Heartbeat{
				StreamID:  cmd.StreamID,
				Action:    models.CommandStart,
				Frame:     frame.Index,
				TimeStamp: time.Now().UTC(),
			}); err != nil {
				log.Printf("Engine[%s]: error sending heartbeat: %v", cmd.StreamID, err)
			}
		default:
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := e.heartbeats.SendHeartbeat(models.Heartbeat{
		StreamID:  cmd.StreamID,
		Action:    models.CommandStop,
		Frame:     int64(handled) + summary.TotalFrames,
		TimeStamp: time.Now().UTC(),
	}); err != nil {
		log.Printf("Engine[%s]: error sending stop heartbeat: %v", cmd.StreamID, err)
	}

	log.Printf("Engine[%s]: finished, %d frames (%d processed, %d skipped), levels %v",
		cmd.StreamID, summary.TotalFrames, summary.ProcessedFrames, summary.SkippedFrames, summary.LevelCounts)
	return nil
}

// saveVerdict persists one assessment to the database and object
// storage, retrying transient failures.
func (e *Engine) saveVerdict(ctx context.Context, streamID string, frame models.Frame, assessment models.ThreatAssessment) error {
	data, err := json.Marshal(assessment)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < saveRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if lastErr = e.db.InsertVerdict(ctx, &models.Verdict{
			StreamID:   streamID,
			FrameIndex: frame.Index,
			Level:      assessment.ThreatLevel.String(),
			Data:       data,
		}); lastErr != nil {
			log.Printf("Engine[%s]: verdict insert error: %v", streamID, lastErr)
			continue
		}

		if lastErr = e.s3Client.SaveVerdict(ctx, streamID, frame.Index, assessment); lastErr != nil {
			log.Printf("Engine[%s]: verdict save error: %v", streamID, lastErr)
			continue
		}

		return nil
	}
	return lastErr
}

// announce publishes the verdict to Kafka, pushes alerts and uploads an
// annotated frame for fresh detections. These outputs are best effort.
func (e *Engine) announce(ctx context.Context, streamID string, frame models.Frame, assessment models.ThreatAssessment) {
	if err := e.verdicts.SendVerdict(models.VerdictEvent{
		StreamID:   streamID,
		FrameIndex: frame.Index,
		Assessment: assessment,
		TimeStamp:  time.Now().UTC(),
	}); err != nil {
		log.Printf("Engine[%s]: error publishing verdict: %v", streamID, err)
	}

	if assessment.ThreatLevel >= models.ThreatHigh {
		if top, ok := e.assessor.TopRelevant(assessment.Detections); ok {
			log.Printf("Engine[%s]: %s threat at frame %d: %s %.2f, %s",
				streamID, assessment.ThreatLevel, frame.Index, top.Class, top.Confidence, assessment.RecommendedAction)
		} else {
			log.Printf("Engine[%s]: %s threat at frame %d: %s",
				streamID, assessment.ThreatLevel, frame.Index, assessment.RecommendedAction)
		}
	}

	if e.alerts != nil {
		if err := e.alerts.Notify(streamID, frame.Index, assessment); err != nil {
			log.Printf("Engine[%s]: error publishing alert: %v", streamID, err)
		}
	}

	if !assessment.Reused && len(assessment.Detections) > 0 {
		rendered, err := annotate.Render(frame.Data, assessment)
		if err != nil {
			log.Printf("Engine[%s]: annotate error at frame %d: %v", streamID, frame.Index, err)
			return
		}
		if err := e.s3Client.SaveAnnotatedFrame(ctx, streamID, frame.Index, rendered); err != nil {
			log.Printf("Engine[%s]: annotated frame save error: %v", streamID, err)
		}
	}
}

// RegisterStopEvent flags a run for shutdown. The poll loop cancels it.
func (e *Engine) RegisterStopEvent(ctx context.Context, streamID string) error {
	if err := e.db.SetRunAction(ctx, streamID, models.CommandStop); err != nil {
		log.Printf("Engine[%s]: error registering stop: %v", streamID, err)
		return err
	}

	return nil
}

// ProcessStopEvent polls for flagged runs and stops them.
func (e *Engine) ProcessStopEvent(ctx context.Context) {
	ticker := time.NewTicker(checkStopEventsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runs, err := e.db.GetStoppedRuns(ctx)
			if err != nil {
				log.Printf("Error getting stopped runs: %v", err)
				continue
			}

			for _, run := range runs {
				if e.Stop(run.ID) {
					if err := e.heartbeats.SendHeartbeat(models.Heartbeat{
						StreamID:  run.ID,
						Action:    models.CommandStop,
						TimeStamp: time.Now().UTC(),
					}); err != nil {
						log.Printf("Engine[%s]: error sending stop heartbeat: %v", run.ID, err)
					}
				}
			}
		}
	}
}

// Stop cancels the run of a stream if one is active.
func (e *Engine) Stop(streamID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if orchestrator, ok := e.orchestrators[streamID]; ok {
		orchestrator.Stop()
	}
	if cancel, ok := e.activeRunners[streamID]; ok {
		cancel()
		log.Printf("Engine[%s]: stopped", streamID)
		return true
	}

	return false
}
