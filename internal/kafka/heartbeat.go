package kafka

import (
	"context"
	"log"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"

	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
	"github.com/Hollis36/smolvlm-anti-drone/internal/utils"
)

type heartbeatStore interface {
	GetStreamByID(ctx context.Context, streamID string) (models.Stream, error)
	WriteHeartbeat(ctx context.Context, heartbeat models.Heartbeat) error
	UpdateStreamStatus(ctx context.Context, streamID string, status string) error
}

// HeartbeatConsumer applies engine heartbeats to the stream lifecycle.
type HeartbeatConsumer struct {
	group  sarama.ConsumerGroup
	topic  string
	closed chan struct{}
}

// NewHeartbeatConsumer creates and returns a new HeartbeatConsumer
func NewHeartbeatConsumer(brokers []string, groupID, topic string) (*HeartbeatConsumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, err
	}

	return &HeartbeatConsumer{
		group:  group,
		topic:  topic,
		closed: make(chan struct{}),
	}, nil
}

func (c *HeartbeatConsumer) StartListening(ctx context.Context, db heartbeatStore) {
	handler := &heartbeatHandler{
		db:     db,
		closed: c.closed,
	}

	go func() {
		retryDelay := time.Second * 5
		for {
			select {
			case <-ctx.Done():
				log.Println("HeartbeatConsumer: context cancelled, stopping")
				return
			case <-c.closed:
				log.Println("HeartbeatConsumer: received close signal, stopping")
				return
			default:
				err := c.group.Consume(ctx, []string{c.topic}, handler)
				if err != nil {
					log.Printf("Consume error: %v, retrying in %v", err, retryDelay)
					select {
					case <-ctx.Done():
						return
					case <-c.closed:
						return
					case <-time.After(retryDelay):
					}
					continue
				}

				if ctx.Err() != nil {
					return
				}
			}
		}
	}()
}

// Close stops the consumer and releases its resources
func (c *HeartbeatConsumer) Close() error {
	close(c.closed)
	return c.group.Close()
}

type heartbeatHandler struct {
	db     heartbeatStore
	closed <-chan struct{}
}

func (h *heartbeatHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *heartbeatHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *heartbeatHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			var heartbeat models.Heartbeat
			if err := json.Unmarshal(msg.Value, &heartbeat); err != nil {
				log.Printf("Invalid heartbeat format: %v", err)
				sess.MarkMessage(msg, "")
				continue
			}

			ctx := context.Background()

			stream, err := h.db.GetStreamByID(ctx, heartbeat.StreamID)
			if err != nil {
				log.Printf("Error getting stream: %v", err)
				continue
			}

			var desired string
			switch heartbeat.Action {
			case models.CommandStart:
				desired = models.StatusActive
			case models.CommandStop:
				desired = models.StatusInactive
			}

			if desired != "" && utils.IsValidStatusTransition(stream.Status, desired) {
				log.Printf("Heartbeat moves stream %s from %s to %s", stream.ID, stream.Status, desired)
				if err := h.db.UpdateStreamStatus(ctx, heartbeat.StreamID, desired); err != nil {
					log.Printf("Failed to update stream status in DB: %v", err)
					continue
				}
			}

			if err := h.db.WriteHeartbeat(ctx, heartbeat); err != nil {
				log.Printf("Failed to write heartbeat to DB: %v", err)
				continue
			}

			sess.MarkMessage(msg, "")
		case <-sess.Context().Done():
			return nil
		case <-h.closed:
			return nil
		}
	}
}
