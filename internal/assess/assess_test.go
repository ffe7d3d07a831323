package assess

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/Hollis36/smolvlm-anti-drone/internal/metrics"
	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

func defaultConfig() Config {
	return Config{
		RelevantClasses: []string{"drone", "uav", "airplane", "helicopter"},
		Keywords:        []string{"weapon", "attack", "explosive", "suspicious"},
		KeywordBoost:    0.25,
		Thresholds:      Thresholds{Low: 0.3, Medium: 0.5, High: 0.7, Critical: 0.9},
	}
}

func newAssessor(t *testing.T, cfg Config) *Assessor {
	t.Helper()
	a, err := New(cfg, metrics.NewTracker(100))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return a
}

func droneDetection(confidence float64) models.Detection {
	return models.Detection{
		Class:      "drone",
		Confidence: confidence,
		Box:        models.BoundingBox{X1: 10, Y1: 10, X2: 50, Y2: 50},
	}
}

// TestAssessDroneHighConfidence verifies a single strong drone detection
// with a calm scene lands at HIGH with the operator-alert action.
func TestAssessDroneHighConfidence(t *testing.T) {
	a := newAssessor(t, defaultConfig())

	got, err := a.Assess([]models.Detection{droneDetection(0.82)}, "clear sky, no unusual activity")
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	if got.ThreatLevel != models.ThreatHigh {
		t.Errorf("Expected high, got %s", got.ThreatLevel)
	}
	if got.Confidence != 0.82 {
		t.Errorf("Expected confidence 0.82, got %f", got.Confidence)
	}
	if got.RecommendedAction != "alert operator" {
		t.Errorf("Expected action %q, got %q", "alert operator", got.RecommendedAction)
	}
}

// TestAssessKeywordOnly verifies a keyword boost alone can raise an
// empty detection set to MEDIUM.
func TestAssessKeywordOnly(t *testing.T) {
	cfg := defaultConfig()
	cfg.KeywordBoost = 0.4
	cfg.Thresholds = Thresholds{Low: 0.2, Medium: 0.4, High: 0.7, Critical: 0.9}
	a := newAssessor(t, cfg)

	got, err := a.Assess(nil, "weapon visible near structure")
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	if got.Confidence != 0.4 {
		t.Errorf("Expected confidence 0.4, got %f", got.Confidence)
	}
	if got.ThreatLevel != models.ThreatMedium {
		t.Errorf("Expected medium, got %s", got.ThreatLevel)
	}
}

// TestAssessLevelMonotonicity verifies the threshold mapping picks the
// highest level at or below the confidence across the whole range.
func TestAssessLevelMonotonicity(t *testing.T) {
	a := newAssessor(t, defaultConfig())

	cases := []struct {
		confidence float64
		want       models.ThreatLevel
	}{
		{0.0, models.ThreatLow},
		{0.29, models.ThreatLow},
		{0.3, models.ThreatLow},
		{0.49, models.ThreatLow},
		{0.5, models.ThreatMedium},
		{0.69, models.ThreatMedium},
		{0.7, models.ThreatHigh},
		{0.89, models.ThreatHigh},
		{0.9, models.ThreatCritical},
		{1.0, models.ThreatCritical},
	}
	for _, tc := range cases {
		var dets []models.Detection
		if tc.confidence > 0 {
			dets = []models.Detection{droneDetection(tc.confidence)}
		}
		got, err := a.Assess(dets, "")
		if err != nil {
			t.Fatalf("Assess(%f) failed: %v", tc.confidence, err)
		}
		if got.ThreatLevel != tc.want {
			t.Errorf("Confidence %f: expected %s, got %s", tc.confidence, tc.want, got.ThreatLevel)
		}
		prev := got
		again, err := a.Assess(dets, "")
		if err != nil {
			t.Fatalf("Second Assess(%f) failed: %v", tc.confidence, err)
		}
		if !reflect.DeepEqual(prev, again) {
			t.Errorf("Confidence %f: repeated call changed result", tc.confidence)
		}
	}
}

// TestAssessEmptyInputs verifies nothing-observed inputs are valid and
// map to LOW with the monitoring action.
func TestAssessEmptyInputs(t *testing.T) {
	tracker := metrics.NewTracker(100)
	a, err := New(defaultConfig(), tracker)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	got, err := a.Assess(nil, "")
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	if got.ThreatLevel != models.ThreatLow {
		t.Errorf("Expected low, got %s", got.ThreatLevel)
	}
	if got.Confidence != 0 {
		t.Errorf("Expected confidence 0, got %f", got.Confidence)
	}
	if got.RecommendedAction != "continue monitoring" {
		t.Errorf("Expected action %q, got %q", "continue monitoring", got.RecommendedAction)
	}
	if s := tracker.Summary("assess_duration"); s.Count != 1 {
		t.Errorf("Expected 1 duration sample on empty input, got %d", s.Count)
	}
}

// TestAssessKeywordCaseInsensitive verifies keyword matching ignores case
// on both sides.
func TestAssessKeywordCaseInsensitive(t *testing.T) {
	cfg := defaultConfig()
	cfg.Keywords = []string{"Weapon"}
	a := newAssessor(t, cfg)

	got, err := a.Assess(nil, "WEAPON spotted on the roof")
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	if got.Confidence != 0.25 {
		t.Errorf("Expected boost applied, got confidence %f", got.Confidence)
	}
}

// TestAssessBoostCap verifies confidence never exceeds 1.0.
func TestAssessBoostCap(t *testing.T) {
	a := newAssessor(t, defaultConfig())

	got, err := a.Assess([]models.Detection{droneDetection(0.95)}, "suspicious payload attached")
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	if got.Confidence != 1.0 {
		t.Errorf("Expected confidence capped at 1.0, got %f", got.Confidence)
	}
	if got.ThreatLevel != models.ThreatCritical {
		t.Errorf("Expected critical, got %s", got.ThreatLevel)
	}
}

// TestAssessIgnoresIrrelevantClasses verifies non-configured classes never
// contribute to confidence.
func TestAssessIgnoresIrrelevantClasses(t *testing.T) {
	a := newAssessor(t, defaultConfig())

	person := models.Detection{
		Class:      "person",
		Confidence: 0.95,
		Box:        models.BoundingBox{X1: 0, Y1: 0, X2: 10, Y2: 10},
	}
	got, err := a.Assess([]models.Detection{person}, "")
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	if got.Confidence != 0 {
		t.Errorf("Expected confidence 0 for irrelevant class, got %f", got.Confidence)
	}
	if got.ThreatLevel != models.ThreatLow {
		t.Errorf("Expected low, got %s", got.ThreatLevel)
	}
}

// TestAssessMultipleDetectionsUsesMax verifies the maximum relevant
// confidence wins regardless of order.
func TestAssessMultipleDetectionsUsesMax(t *testing.T) {
	a := newAssessor(t, defaultConfig())

	dets := []models.Detection{
		droneDetection(0.55),
		{Class: "uav", Confidence: 0.91, Box: models.BoundingBox{X1: 1, Y1: 1, X2: 9, Y2: 9}},
		droneDetection(0.4),
	}
	got, err := a.Assess(dets, "")
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	if math.Abs(got.Confidence-0.91) > 1e-9 {
		t.Errorf("Expected confidence 0.91, got %f", got.Confidence)
	}
	if got.ThreatLevel != models.ThreatCritical {
		t.Errorf("Expected critical, got %s", got.ThreatLevel)
	}
	if len(got.Detections) != 3 || got.Detections[0].Confidence != 0.55 {
		t.Error("Expected detections preserved in detector order")
	}
}

// TestAssessValidationError verifies malformed detections are rejected.
func TestAssessValidationError(t *testing.T) {
	a := newAssessor(t, defaultConfig())

	bad := droneDetection(1.5)
	_, err := a.Assess([]models.Detection{bad}, "")
	if err == nil {
		t.Fatal("Expected validation error")
	}
	var ve *models.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("Expected *models.ValidationError, got %T", err)
	}
}

// TestNewConfigErrors verifies construction fails fast on bad tables.
func TestNewConfigErrors(t *testing.T) {
	tracker := metrics.NewTracker(100)

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"non-increasing thresholds", func(c *Config) {
			c.Thresholds = Thresholds{Low: 0.5, Medium: 0.5, High: 0.7, Critical: 0.9}
		}},
		{"descending thresholds", func(c *Config) {
			c.Thresholds = Thresholds{Low: 0.9, Medium: 0.7, High: 0.5, Critical: 0.3}
		}},
		{"threshold above one", func(c *Config) {
			c.Thresholds = Thresholds{Low: 0.3, Medium: 0.5, High: 0.7, Critical: 1.5}
		}},
		{"negative boost", func(c *Config) { c.KeywordBoost = -0.1 }},
		{"empty keyword", func(c *Config) { c.Keywords = []string{"weapon", " "} }},
		{"empty class", func(c *Config) { c.RelevantClasses = []string{""} }},
	}
	for _, tc := range cases {
		cfg := defaultConfig()
		tc.mutate(&cfg)
		_, err := New(cfg, tracker)
		if err == nil {
			t.Errorf("%s: expected config error", tc.name)
			continue
		}
		var ce *models.ConfigError
		if !errors.As(err, &ce) {
			t.Errorf("%s: expected *models.ConfigError, got %T", tc.name, err)
		}
	}
}

// TestTopRelevantTieBreak verifies the first detection wins a confidence tie.
func TestTopRelevantTieBreak(t *testing.T) {
	a := newAssessor(t, defaultConfig())

	dets := []models.Detection{
		{Class: "uav", Confidence: 0.8, Box: models.BoundingBox{X1: 0, Y1: 0, X2: 5, Y2: 5}},
		{Class: "drone", Confidence: 0.8, Box: models.BoundingBox{X1: 5, Y1: 5, X2: 10, Y2: 10}},
	}
	top, ok := a.TopRelevant(dets)
	if !ok {
		t.Fatal("Expected a relevant detection")
	}
	if top.Class != "uav" {
		t.Errorf("Expected first detection to win the tie, got %s", top.Class)
	}

	if _, ok := a.TopRelevant(nil); ok {
		t.Error("Expected no relevant detection for empty input")
	}
}

// TestAssessRecordsDurationMetric verifies every call records a sample.
func TestAssessRecordsDurationMetric(t *testing.T) {
	tracker := metrics.NewTracker(100)
	a, err := New(defaultConfig(), tracker)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := a.Assess(nil, ""); err != nil {
			t.Fatalf("Assess failed: %v", err)
		}
	}
	if s := tracker.Summary("assess_duration"); s.Count != 3 {
		t.Errorf("Expected 3 duration samples, got %d", s.Count)
	}
}
