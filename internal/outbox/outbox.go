// Package outbox relays pending stream commands from the database to
// Kafka, marking each one processed in the same transaction that moves
// the stream into its processing status.
package outbox

import (
	"context"
	"log"
	"time"

	"github.com/Hollis36/smolvlm-anti-drone/internal/database"
	"github.com/Hollis36/smolvlm-anti-drone/internal/kafka"
	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

func StartOutboxDispatcher(ctx context.Context, db *database.Database, brokers []string, topic string, interval time.Duration) {
	producer, err := kafka.NewProducer(brokers, topic)
	if err != nil {
		log.Fatalf("Failed to create Kafka producer: %v", err)
	}
	defer producer.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Outbox dispatcher stopped")
			return
		case <-ticker.C:
			messages, err := db.GetPendingOutboxMessages(ctx, 1)
			if err != nil {
				log.Printf("Error fetching outbox messages: %v", err)
				continue
			}

			for _, msg := range messages {
				if err := producer.SendOutboxMessage(&msg); err != nil {
					log.Printf("Failed to send command to Kafka: %v", err)
					continue
				}

				if err := db.InTx(ctx, func(ctx context.Context) error {
					if err := db.MarkOutboxMessageAsProcessed(ctx, msg.ID); err != nil {
						return err
					}

					var status string
					if msg.Action == models.CommandStart {
						status = models.StatusInStartupProcessing
					} else {
						status = models.StatusInShutdownProcessing
					}
					return db.UpdateStreamStatus(ctx, msg.StreamID, status)
				}); err != nil {
					log.Printf("Failed to retire outbox message %s: %v", msg.ID, err)
				}
			}
		}
	}
}
