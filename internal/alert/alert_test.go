package alert

import (
	"testing"

	"github.com/goccy/go-json"

	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

// TestShouldNotify verifies the minimum level gate.
func TestShouldNotify(t *testing.T) {
	p := &Publisher{minLevel: models.ThreatHigh}

	cases := []struct {
		level models.ThreatLevel
		want  bool
	}{
		{models.ThreatLow, false},
		{models.ThreatMedium, false},
		{models.ThreatHigh, true},
		{models.ThreatCritical, true},
	}
	for _, tc := range cases {
		if got := p.shouldNotify(tc.level); got != tc.want {
			t.Errorf("shouldNotify(%s) = %v, want %v", tc.level, got, tc.want)
		}
	}
}

// TestBuildPayload verifies the published JSON shape.
func TestBuildPayload(t *testing.T) {
	assessment := models.ThreatAssessment{
		ThreatLevel:       models.ThreatCritical,
		Confidence:        0.93,
		SceneDescription:  "drone carrying unknown payload",
		RecommendedAction: models.ThreatCritical.RecommendedAction(),
	}

	data, err := buildPayload("stream-1", 42, assessment)
	if err != nil {
		t.Fatalf("buildPayload failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if decoded["stream_id"] != "stream-1" {
		t.Errorf("Expected stream-1, got %v", decoded["stream_id"])
	}
	if decoded["frame_index"] != float64(42) {
		t.Errorf("Expected frame 42, got %v", decoded["frame_index"])
	}
	if decoded["threat_level"] != "critical" {
		t.Errorf("Expected critical, got %v", decoded["threat_level"])
	}
	if decoded["action"] != "immediate intervention" {
		t.Errorf("Expected immediate intervention, got %v", decoded["action"])
	}
}
