package vision

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

// Detector produces all detections for one frame, or fails as a whole.
// A partial detection set is never returned.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]models.Detection, error)
}

// SceneDescriber produces a free-text description of one frame. An
// empty string is a valid non-error output.
type SceneDescriber interface {
	Describe(ctx context.Context, image []byte, prompt string) (string, error)
}

type ClientConfig struct {
	BaseURL       string
	Timeout       time.Duration
	MinConfidence float64
}

type DetectorFactory func(ClientConfig) (Detector, error)

type DescriberFactory func(ClientConfig) (SceneDescriber, error)

var detectorFactories = map[string]DetectorFactory{
	"http": func(cfg ClientConfig) (Detector, error) { return NewHTTPDetector(cfg) },
}

var describerFactories = map[string]DescriberFactory{
	"http": func(cfg ClientConfig) (SceneDescriber, error) { return NewHTTPDescriber(cfg) },
}

// NewDetector builds a detector by registry name.
func NewDetector(name string, cfg ClientConfig) (Detector, error) {
	factory, ok := detectorFactories[name]
	if !ok {
		return nil, &models.ConfigError{
			Param:  "detector",
			Reason: fmt.Sprintf("unknown backend %q, known: %s", name, strings.Join(factoryNames(detectorFactories), ", ")),
		}
	}
	return factory(cfg)
}

// NewDescriber builds a scene describer by registry name.
func NewDescriber(name string, cfg ClientConfig) (SceneDescriber, error) {
	factory, ok := describerFactories[name]
	if !ok {
		return nil, &models.ConfigError{
			Param:  "describer",
			Reason: fmt.Sprintf("unknown backend %q, known: %s", name, strings.Join(factoryNames(describerFactories), ", ")),
		}
	}
	return factory(cfg)
}

func factoryNames[T any](factories map[string]T) []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
