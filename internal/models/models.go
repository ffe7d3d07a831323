package models

import (
	"encoding/json"
	"time"
)

// Stream is one registered surveillance feed.
type Stream struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	FrameSource string    `json:"frame_source"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Verdict is one persisted assessment row.
type Verdict struct {
	ID         string          `json:"id"`
	StreamID   string          `json:"stream_id"`
	FrameIndex int64           `json:"frame_index"`
	Level      string          `json:"level"`
	Timestamp  time.Time       `json:"timestamp"`
	Data       json.RawMessage `json:"data"`
}

// Run is the engine-side record of a commanded stream.
type Run struct {
	ID          string        `json:"id"`
	Action      CommandAction `json:"action"`
	FrameSource string        `json:"frame_source"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// StreamCreate is the request body for registering a stream.
type StreamCreate struct {
	FrameSource string          `json:"frame_source"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// StatusUpdate is the request body for status transitions.
type StatusUpdate struct {
	Status string `json:"status"`
}

// OutboxMessage is one pending row of the transactional outbox.
type OutboxMessage struct {
	ID          string        `json:"id"`
	StreamID    string        `json:"stream_id"`
	Action      CommandAction `json:"action"`
	CreatedAt   time.Time     `json:"created_at"`
	ProcessedAt *time.Time    `json:"processed_at"`
	FrameSource string        `json:"frame_source"`
}

// Stream status constants
const (
	StatusInitStartup          = "init_startup"
	StatusInStartupProcessing  = "in_startup_processing"
	StatusActive               = "active"
	StatusInitShutdown         = "init_shutdown"
	StatusInShutdownProcessing = "in_shutdown_processing"
	StatusInactive             = "inactive"
)

type CommandAction string

const (
	CommandStart CommandAction = "start"
	CommandStop  CommandAction = "stop"
)

// StreamCommand is the Kafka payload that starts or stops engine work.
type StreamCommand struct {
	StreamID    string        `json:"stream_id"`
	Action      CommandAction `json:"action"`
	FrameSource string        `json:"frame_source"`
}

type Heartbeat struct {
	StreamID  string        `json:"StreamID"`
	Action    CommandAction `json:"Action"`
	Frame     int64         `json:"Frame"`
	TimeStamp time.Time     `json:"TimeStamp"`
}

// VerdictEvent is the Kafka payload published for every assessed frame.
type VerdictEvent struct {
	StreamID   string           `json:"stream_id"`
	FrameIndex int64            `json:"frame_index"`
	Assessment ThreatAssessment `json:"assessment"`
	TimeStamp  time.Time        `json:"timestamp"`
}
