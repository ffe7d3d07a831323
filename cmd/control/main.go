package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/Hollis36/smolvlm-anti-drone/internal/api"
	"github.com/Hollis36/smolvlm-anti-drone/internal/config"
	"github.com/Hollis36/smolvlm-anti-drone/internal/database"
	"github.com/Hollis36/smolvlm-anti-drone/internal/kafka"
	"github.com/Hollis36/smolvlm-anti-drone/internal/outbox"
	"github.com/Hollis36/smolvlm-anti-drone/internal/s3"
	"github.com/Hollis36/smolvlm-anti-drone/internal/watchdog"
)

func main() {
	log.Println("Control: init...")

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

	minioClient, err := s3.NewMinioClient(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, s3.Buckets{
		Frames:    cfg.Minio.FrameBucket,
		Verdicts:  cfg.Minio.VerdictBucket,
		Annotated: cfg.Minio.AnnotatedBucket,
	})
	if err != nil {
		log.Fatalf("Failed connect to MinIO: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go outbox.StartOutboxDispatcher(ctx, db, cfg.Kafka.Brokers, cfg.Kafka.CommandTopic, 5*time.Second)

	consumer, err := kafka.NewHeartbeatConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.HeartbeatTopic)
	if err != nil {
		log.Fatalf("Failed to create Kafka consumer: %v", err)
	}
	defer consumer.Close()
	consumer.StartListening(ctx, db)

	watchDog := watchdog.New(db)
	go watchDog.Start(ctx)

	r := mux.NewRouter()
	handlers := api.NewHandlers(db, minioClient)

	r.HandleFunc("/streams", handlers.CreateStreamHandler).Methods("POST")
	r.HandleFunc("/streams/{stream_id}", handlers.GetStreamStatusHandler).Methods("GET")
	r.HandleFunc("/streams/{stream_id}", handlers.UpdateStreamStatusHandler).Methods("POST")
	r.HandleFunc("/streams/{stream_id}/summary", handlers.GetStreamSummaryHandler).Methods("GET")
	r.HandleFunc("/verdicts/{stream_id}", handlers.GetVerdictsHandler).Methods("GET")
	r.HandleFunc("/healthz", handlers.HealthzHandler).Methods("GET")

	log.Printf("Starting control API server on %s", cfg.API.Addr)
	log.Fatal(http.ListenAndServe(cfg.API.Addr, r))
}
