package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// ThreatLevel is an ordered severity grade. Higher values escalate.
type ThreatLevel int

const (
	ThreatLow ThreatLevel = iota
	ThreatMedium
	ThreatHigh
	ThreatCritical
)

var threatLevelNames = map[ThreatLevel]string{
	ThreatLow:      "low",
	ThreatMedium:   "medium",
	ThreatHigh:     "high",
	ThreatCritical: "critical",
}

// recommendedActions is a fixed contract with downstream alerting,
// keyed by level.
var recommendedActions = map[ThreatLevel]string{
	ThreatLow:      "continue monitoring",
	ThreatMedium:   "increase surveillance",
	ThreatHigh:     "alert operator",
	ThreatCritical: "immediate intervention",
}

func (l ThreatLevel) String() string {
	if name, ok := threatLevelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("threat_level(%d)", int(l))
}

// RecommendedAction returns the operator action for the level.
func (l ThreatLevel) RecommendedAction() string {
	if action, ok := recommendedActions[l]; ok {
		return action
	}
	return recommendedActions[ThreatLow]
}

func ParseThreatLevel(s string) (ThreatLevel, error) {
	for level, name := range threatLevelNames {
		if strings.EqualFold(s, name) {
			return level, nil
		}
	}
	return ThreatLow, fmt.Errorf("unknown threat level %q", s)
}

func (l ThreatLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *ThreatLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	level, err := ParseThreatLevel(s)
	if err != nil {
		return err
	}
	*l = level
	return nil
}

// BoundingBox is a pixel-space rectangle, top-left origin.
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

func (b BoundingBox) Validate() error {
	if b.X1 >= b.X2 {
		return &ValidationError{Field: "box", Reason: fmt.Sprintf("x1 %.2f must be less than x2 %.2f", b.X1, b.X2)}
	}
	if b.Y1 >= b.Y2 {
		return &ValidationError{Field: "box", Reason: fmt.Sprintf("y1 %.2f must be less than y2 %.2f", b.Y1, b.Y2)}
	}
	return nil
}

func (b BoundingBox) Area() float64 {
	return math.Max(0, b.X2-b.X1) * math.Max(0, b.Y2-b.Y1)
}

// IoU returns the intersection-over-union with another box, 0 when disjoint.
func (b BoundingBox) IoU(other BoundingBox) float64 {
	ix1 := math.Max(b.X1, other.X1)
	iy1 := math.Max(b.Y1, other.Y1)
	ix2 := math.Min(b.X2, other.X2)
	iy2 := math.Min(b.Y2, other.Y2)
	if ix2 <= ix1 || iy2 <= iy1 {
		return 0
	}
	intersection := (ix2 - ix1) * (iy2 - iy1)
	union := b.Area() + other.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// Detection is one object reported by the detector for a frame.
type Detection struct {
	Class      string      `json:"class"`
	ClassID    int         `json:"class_id"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"box"`
}

func (d Detection) Validate() error {
	if d.Class == "" {
		return &ValidationError{Field: "class", Reason: "must not be empty"}
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return &ValidationError{Field: "confidence", Reason: fmt.Sprintf("%.4f is outside [0, 1]", d.Confidence)}
	}
	return d.Box.Validate()
}

// ThreatAssessment is the fused verdict for a single frame. Reused marks
// a verdict carried over from an earlier frame instead of recomputed.
type ThreatAssessment struct {
	ThreatLevel       ThreatLevel `json:"threat_level"`
	Confidence        float64     `json:"confidence"`
	Detections        []Detection `json:"detections"`
	SceneDescription  string      `json:"scene_description"`
	RecommendedAction string      `json:"recommended_action"`
	ProcessingTimeMS  float64     `json:"processing_time_ms"`
	Reused            bool        `json:"reused"`
}

// Frame is one decoded unit of a stream, carrying the encoded image bytes.
type Frame struct {
	Index     int64     `json:"index"`
	Data      []byte    `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}
