package assess

import (
	"fmt"
	"strings"

	"github.com/Hollis36/smolvlm-anti-drone/internal/metrics"
	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

// Thresholds maps confidence to threat levels. Values must be strictly
// increasing and inside [0, 1].
type Thresholds struct {
	Low      float64
	Medium   float64
	High     float64
	Critical float64
}

type Config struct {
	// RelevantClasses are the detector labels that count toward the
	// base confidence. Matching is exact.
	RelevantClasses []string
	// Keywords are matched against the scene description as
	// case-insensitive substrings.
	Keywords     []string
	KeywordBoost float64
	Thresholds   Thresholds
}

// Assessor fuses one frame's detections and scene description into a
// graded verdict. It is safe for concurrent use; the only side effect
// is a duration sample per call.
type Assessor struct {
	relevant   map[string]struct{}
	keywords   []string
	boost      float64
	thresholds Thresholds
	tracker    *metrics.Tracker
}

func New(cfg Config, tracker *metrics.Tracker) (*Assessor, error) {
	t := cfg.Thresholds
	for _, v := range []float64{t.Low, t.Medium, t.High, t.Critical} {
		if v < 0 || v > 1 {
			return nil, &models.ConfigError{Param: "thresholds", Reason: fmt.Sprintf("%.4f is outside [0, 1]", v)}
		}
	}
	if !(t.Low < t.Medium && t.Medium < t.High && t.High < t.Critical) {
		return nil, &models.ConfigError{
			Param:  "thresholds",
			Reason: fmt.Sprintf("must be strictly increasing, got %.2f/%.2f/%.2f/%.2f", t.Low, t.Medium, t.High, t.Critical),
		}
	}
	if cfg.KeywordBoost < 0 || cfg.KeywordBoost > 1 {
		return nil, &models.ConfigError{Param: "keyword_boost", Reason: fmt.Sprintf("%.4f is outside [0, 1]", cfg.KeywordBoost)}
	}

	relevant := make(map[string]struct{}, len(cfg.RelevantClasses))
	for _, class := range cfg.RelevantClasses {
		if strings.TrimSpace(class) == "" {
			return nil, &models.ConfigError{Param: "relevant_classes", Reason: "contains an empty class label"}
		}
		relevant[class] = struct{}{}
	}

	keywords := make([]string, 0, len(cfg.Keywords))
	for _, kw := range cfg.Keywords {
		if strings.TrimSpace(kw) == "" {
			return nil, &models.ConfigError{Param: "keywords", Reason: "contains an empty keyword"}
		}
		keywords = append(keywords, strings.ToLower(kw))
	}

	return &Assessor{
		relevant:   relevant,
		keywords:   keywords,
		boost:      cfg.KeywordBoost,
		thresholds: t,
		tracker:    tracker,
	}, nil
}

// Assess fuses the inputs into a verdict. Empty detections and an empty
// description are valid "nothing observed" inputs. Detections with
// malformed confidence or boxes are rejected with a validation error.
// ProcessingTimeMS is left at zero; the caller owns pipeline timing.
func (a *Assessor) Assess(detections []models.Detection, sceneDescription string) (models.ThreatAssessment, error) {
	defer a.tracker.Time("assess_duration")()

	for i, d := range detections {
		if err := d.Validate(); err != nil {
			return models.ThreatAssessment{}, fmt.Errorf("detection %d: %w", i, err)
		}
	}

	confidence := a.baseConfidence(detections)
	if a.matchesKeyword(sceneDescription) {
		confidence += a.boost
		if confidence > 1 {
			confidence = 1
		}
	}

	level := a.levelFor(confidence)
	return models.ThreatAssessment{
		ThreatLevel:       level,
		Confidence:        confidence,
		Detections:        detections,
		SceneDescription:  sceneDescription,
		RecommendedAction: level.RecommendedAction(),
	}, nil
}

// TopRelevant returns the first detection carrying the maximum
// confidence among threat-relevant classes.
func (a *Assessor) TopRelevant(detections []models.Detection) (models.Detection, bool) {
	best := -1
	for i, d := range detections {
		if _, ok := a.relevant[d.Class]; !ok {
			continue
		}
		if best == -1 || d.Confidence > detections[best].Confidence {
			best = i
		}
	}
	if best == -1 {
		return models.Detection{}, false
	}
	return detections[best], true
}

func (a *Assessor) baseConfidence(detections []models.Detection) float64 {
	var max float64
	for _, d := range detections {
		if _, ok := a.relevant[d.Class]; !ok {
			continue
		}
		if d.Confidence > max {
			max = d.Confidence
		}
	}
	return max
}

func (a *Assessor) matchesKeyword(description string) bool {
	if description == "" || len(a.keywords) == 0 {
		return false
	}
	lowered := strings.ToLower(description)
	for _, kw := range a.keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func (a *Assessor) levelFor(confidence float64) models.ThreatLevel {
	switch {
	case confidence >= a.thresholds.Critical:
		return models.ThreatCritical
	case confidence >= a.thresholds.High:
		return models.ThreatHigh
	case confidence >= a.thresholds.Medium:
		return models.ThreatMedium
	default:
		return models.ThreatLow
	}
}
