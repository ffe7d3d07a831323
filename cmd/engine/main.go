package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Hollis36/smolvlm-anti-drone/internal/alert"
	"github.com/Hollis36/smolvlm-anti-drone/internal/assess"
	"github.com/Hollis36/smolvlm-anti-drone/internal/config"
	"github.com/Hollis36/smolvlm-anti-drone/internal/database"
	"github.com/Hollis36/smolvlm-anti-drone/internal/engine"
	"github.com/Hollis36/smolvlm-anti-drone/internal/kafka"
	"github.com/Hollis36/smolvlm-anti-drone/internal/metrics"
	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
	"github.com/Hollis36/smolvlm-anti-drone/internal/s3"
	"github.com/Hollis36/smolvlm-anti-drone/internal/schedule"
	"github.com/Hollis36/smolvlm-anti-drone/internal/stream"
	"github.com/Hollis36/smolvlm-anti-drone/internal/vision"
)

func main() {
	log.Println("Engine: init...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.New(cfg.Postgres.DSN)
	if err != nil {
		log.Fatal(err)
	}
	if err = db.Init(); err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	s3Client, err := s3.NewMinioClient(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, s3.Buckets{
		Frames:    cfg.Minio.FrameBucket,
		Verdicts:  cfg.Minio.VerdictBucket,
		Annotated: cfg.Minio.AnnotatedBucket,
	})
	if err != nil {
		log.Fatalf("Failed connect to MinIO: %v", err)
	}

	consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.CommandTopic)
	if err != nil {
		log.Fatalf("Failed to create Kafka consumer: %v", err)
	}
	defer consumer.Close()
	consumer.StartListening(ctx)

	heartbeats, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.HeartbeatTopic)
	if err != nil {
		log.Fatalf("Failed to create heartbeat producer: %v", err)
	}
	defer heartbeats.Close()

	verdicts, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.VerdictTopic)
	if err != nil {
		log.Fatalf("Failed to create verdict producer: %v", err)
	}
	defer verdicts.Close()

	inferenceTimeout := time.Duration(cfg.Pipeline.InferenceTimeoutMS) * time.Millisecond
	detector, err := vision.NewDetector(cfg.Detector.Kind, vision.ClientConfig{
		BaseURL:       cfg.Detector.Endpoint,
		Timeout:       inferenceTimeout,
		MinConfidence: cfg.Detector.MinConfidence,
	})
	if err != nil {
		log.Fatalf("Failed to create detector: %v", err)
	}
	describer, err := vision.NewDescriber(cfg.Describer.Kind, vision.ClientConfig{
		BaseURL: cfg.Describer.Endpoint,
		Timeout: inferenceTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to create describer: %v", err)
	}

	tracker := metrics.NewTracker(cfg.Metrics.WindowSize)
	exporter := metrics.NewExporter(tracker, "fusion")
	go func() {
		log.Printf("Starting metrics server on %s", cfg.Metrics.Addr)
		if err := exporter.StartServer(cfg.Metrics.Addr); err != nil {
			log.Printf("Metrics server stopped: %v", err)
		}
	}()

	assessor, err := assess.New(assess.Config{
		RelevantClasses: cfg.Assessor.RelevantClasses,
		Keywords:        cfg.Assessor.Keywords,
		KeywordBoost:    cfg.Assessor.KeywordBoost,
		Thresholds: assess.Thresholds{
			Low:      cfg.Assessor.Thresholds.Low,
			Medium:   cfg.Assessor.Thresholds.Medium,
			High:     cfg.Assessor.Thresholds.High,
			Critical: cfg.Assessor.Thresholds.Critical,
		},
	}, tracker)
	if err != nil {
		log.Fatalf("Failed to create assessor: %v", err)
	}

	var alerts *alert.Publisher
	if cfg.Alerts.Broker != "" {
		minLevel, err := models.ParseThreatLevel(cfg.Alerts.MinLevel)
		if err != nil {
			log.Fatalf("Invalid alert level: %v", err)
		}
		alerts, err = alert.New(alert.Config{
			Broker:   cfg.Alerts.Broker,
			ClientID: cfg.Alerts.ClientID,
			Topic:    cfg.Alerts.Topic,
			MinLevel: minLevel,
		})
		if err != nil {
			log.Fatalf("Failed to connect alert publisher: %v", err)
		}
		defer alerts.Close()
	}

	eng := engine.New(engine.Deps{
		DB:         db,
		S3:         s3Client,
		Detector:   detector,
		Describer:  describer,
		Assessor:   assessor,
		Consumer:   consumer,
		Heartbeats: heartbeats,
		Verdicts:   verdicts,
		Alerts:     alerts,
		Tracker:    tracker,
	}, engine.Config{
		Scheduler: schedule.Config{
			SkipInterval:   cfg.Scheduler.SkipInterval,
			TargetBudgetMS: cfg.Scheduler.TargetBudgetMS,
			MaxInterval:    cfg.Scheduler.MaxInterval,
		},
		Pipeline: stream.PipelineConfig{
			Prompt:           cfg.Describer.Prompt,
			InferenceTimeout: inferenceTimeout,
		},
	})

	go eng.ListenAndRun(ctx)
	go eng.ProcessStopEvent(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	log.Println("Engine: shutting down...")
	cancel()
}
