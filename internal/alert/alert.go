// Package alert pushes high-severity verdicts to MQTT for operator
// consoles and edge devices.
package alert

import (
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"

	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

type Config struct {
	Broker   string
	ClientID string
	Topic    string
	MinLevel models.ThreatLevel
}

// Publisher sends threat notifications at or above a minimum level.
type Publisher struct {
	client   mqtt.Client
	topic    string
	minLevel models.ThreatLevel
}

type payload struct {
	StreamID    string  `json:"stream_id"`
	FrameIndex  int64   `json:"frame_index"`
	ThreatLevel string  `json:"threat_level"`
	Confidence  float64 `json:"confidence"`
	Action      string  `json:"action"`
	Description string  `json:"description"`
}

func New(cfg Config) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	log.Printf("Alert publisher connected to %s", cfg.Broker)

	return &Publisher{
		client:   client,
		topic:    cfg.Topic,
		minLevel: cfg.MinLevel,
	}, nil
}

// Notify publishes the verdict when it reaches the minimum level.
// Verdicts below the gate are dropped silently.
func (p *Publisher) Notify(streamID string, frameIndex int64, assessment models.ThreatAssessment) error {
	if !p.shouldNotify(assessment.ThreatLevel) {
		return nil
	}

	data, err := buildPayload(streamID, frameIndex, assessment)
	if err != nil {
		return err
	}

	token := p.client.Publish(p.topic, 1, false, data)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish alert: %w", token.Error())
	}
	return nil
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

func (p *Publisher) shouldNotify(level models.ThreatLevel) bool {
	return level >= p.minLevel
}

func buildPayload(streamID string, frameIndex int64, assessment models.ThreatAssessment) ([]byte, error) {
	return json.Marshal(payload{
		StreamID:    streamID,
		FrameIndex:  frameIndex,
		ThreatLevel: assessment.ThreatLevel.String(),
		Confidence:  assessment.Confidence,
		Action:      assessment.RecommendedAction,
		Description: assessment.SceneDescription,
	})
}
