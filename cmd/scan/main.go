// Command scan assesses a directory of frames offline and prints one
// verdict per line, useful for tuning thresholds against recorded
// footage.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/Hollis36/smolvlm-anti-drone/internal/annotate"
	"github.com/Hollis36/smolvlm-anti-drone/internal/assess"
	"github.com/Hollis36/smolvlm-anti-drone/internal/metrics"
	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
	"github.com/Hollis36/smolvlm-anti-drone/internal/schedule"
	"github.com/Hollis36/smolvlm-anti-drone/internal/stream"
	"github.com/Hollis36/smolvlm-anti-drone/internal/vision"
)

func main() {
	var (
		dir          = flag.String("dir", "", "directory of frames to scan")
		detectorURL  = flag.String("detector", "http://localhost:8000", "detector service URL")
		describerURL = flag.String("describer", "http://localhost:8001", "scene describer service URL")
		minConf      = flag.Float64("min-confidence", 0.25, "confidence floor for detections")
		prompt       = flag.String("prompt", "Describe any aerial objects and activity in this scene.", "describer prompt")
		interval     = flag.Int("interval", 5, "process every N-th frame")
		budget       = flag.Float64("budget", 0, "target pipeline budget in ms, 0 disables widening")
		maxInterval  = flag.Int("max-interval", 0, "widening cap, 0 means four times the interval")
		timeout      = flag.Duration("timeout", 30*time.Second, "per-inference timeout")
		annotateDir  = flag.String("annotate", "", "directory for annotated frames, empty disables")
	)
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(2)
	}

	tracker := metrics.NewTracker(0)

	detector, err := vision.NewDetector("http", vision.ClientConfig{BaseURL: *detectorURL, Timeout: *timeout, MinConfidence: *minConf})
	if err != nil {
		log.Fatalf("detector: %v", err)
	}
	describer, err := vision.NewDescriber("http", vision.ClientConfig{BaseURL: *describerURL, Timeout: *timeout})
	if err != nil {
		log.Fatalf("describer: %v", err)
	}

	assessor, err := assess.New(assess.Config{
		RelevantClasses: []string{"drone", "uav", "airplane", "helicopter", "bird"},
		Keywords:        []string{"weapon", "attack", "explosive", "suspicious", "unauthorized", "danger", "intruder"},
		KeywordBoost:    0.25,
		Thresholds:      assess.Thresholds{Low: 0.3, Medium: 0.5, High: 0.7, Critical: 0.9},
	}, tracker)
	if err != nil {
		log.Fatalf("assessor: %v", err)
	}

	scheduler, err := schedule.New(schedule.Config{
		SkipInterval:   *interval,
		TargetBudgetMS: *budget,
		MaxInterval:    *maxInterval,
	}, tracker)
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}

	pipeline := stream.NewPipeline(detector, describer, assessor, stream.PipelineConfig{
		Prompt:           *prompt,
		InferenceTimeout: *timeout,
	}, tracker)

	orchestrator, err := stream.NewOrchestrator(stream.Config{}, scheduler, pipeline, tracker)
	if err != nil {
		log.Fatalf("orchestrator: %v", err)
	}

	source, err := stream.NewDirSource(*dir)
	if err != nil {
		log.Fatalf("frame source: %v", err)
	}
	log.Printf("Scanning %d frames from %s", source.Len(), *dir)

	if *annotateDir != "" {
		if err := os.MkdirAll(*annotateDir, 0755); err != nil {
			log.Fatalf("annotate dir: %v", err)
		}
	}

	type result struct {
		Frame int64 `json:"frame"`
		models.ThreatAssessment
	}

	out := json.NewEncoder(os.Stdout)
	summary, err := orchestrator.Run(context.Background(), source, func(frame models.Frame, assessment models.ThreatAssessment) error {
		if err := out.Encode(result{Frame: frame.Index, ThreatAssessment: assessment}); err != nil {
			return err
		}

		if *annotateDir != "" && !assessment.Reused && len(assessment.Detections) > 0 {
			rendered, err := annotate.Render(frame.Data, assessment)
			if err != nil {
				return err
			}
			name := filepath.Join(*annotateDir, fmt.Sprintf("%06d.jpg", frame.Index))
			if err := os.WriteFile(name, rendered, 0o644); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("scan failed: %v", err)
	}

	report := struct {
		Run     stream.Summary             `json:"run"`
		Metrics map[string]metrics.Summary `json:"metrics"`
	}{Run: summary, Metrics: tracker.SummaryAll()}

	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("encode report: %v", err)
	}
	fmt.Fprintln(os.Stderr, string(encoded))
}
