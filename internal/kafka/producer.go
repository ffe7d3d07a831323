package kafka

import (
	"fmt"
	"log"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"

	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer creates a producer that waits for full acknowledgement
func NewProducer(brokers []string, topic string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return &Producer{
		producer: producer,
		topic:    topic,
	}, nil
}

func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}

// SendOutboxMessage publishes one stream command, keyed by stream ID so
// commands of a stream stay ordered.
func (p *Producer) SendOutboxMessage(msg *models.OutboxMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	partition, offset, err := p.send(msg.StreamID, payload)
	if err != nil {
		return err
	}

	log.Printf("Sent command to Kafka topic=%s partition=%d offset=%d", p.topic, partition, offset)
	return nil
}

// SendHeartbeat publishes one engine liveness report
func (p *Producer) SendHeartbeat(msg models.Heartbeat) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	_, _, err = p.send(msg.StreamID, payload)
	return err
}

// SendVerdict publishes one assessed frame for downstream consumers
func (p *Producer) SendVerdict(event models.VerdictEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, _, err = p.send(event.StreamID, payload)
	return err
}

func (p *Producer) send(key string, payload []byte) (int32, int64, error) {
	return p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	})
}
