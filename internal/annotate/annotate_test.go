package annotate

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

func testFrame(t *testing.T, width, height int) []byte {
	t.Helper()
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			canvas.Set(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, nil); err != nil {
		t.Fatalf("encode test frame: %v", err)
	}
	return buf.Bytes()
}

// TestLevelColor verifies the level to color mapping.
func TestLevelColor(t *testing.T) {
	cases := []struct {
		level models.ThreatLevel
		want  color.RGBA
	}{
		{models.ThreatLow, color.RGBA{G: 255, A: 255}},
		{models.ThreatMedium, color.RGBA{R: 255, G: 255, A: 255}},
		{models.ThreatHigh, color.RGBA{R: 255, G: 165, A: 255}},
		{models.ThreatCritical, color.RGBA{R: 255, A: 255}},
	}
	for _, tc := range cases {
		if got := LevelColor(tc.level); got != tc.want {
			t.Errorf("LevelColor(%s) = %v, want %v", tc.level, got, tc.want)
		}
	}
}

// TestRenderDrawsBanner verifies the output carries the level color along
// the top edge and still decodes to the input dimensions.
func TestRenderDrawsBanner(t *testing.T) {
	frame := testFrame(t, 160, 120)
	assessment := models.ThreatAssessment{
		ThreatLevel:       models.ThreatCritical,
		Confidence:        0.95,
		RecommendedAction: models.ThreatCritical.RecommendedAction(),
		Detections: []models.Detection{
			{Class: "drone", Confidence: 0.95, Box: models.BoundingBox{X1: 20, Y1: 40, X2: 90, Y2: 100}},
		},
	}

	rendered, err := Render(frame, assessment)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if bytes.Equal(rendered, frame) {
		t.Fatal("Expected rendered frame to differ from input")
	}

	decoded, err := jpeg.Decode(bytes.NewReader(rendered))
	if err != nil {
		t.Fatalf("decode rendered frame: %v", err)
	}
	if decoded.Bounds().Dx() != 160 || decoded.Bounds().Dy() != 120 {
		t.Fatalf("Unexpected bounds: %v", decoded.Bounds())
	}

	r, g, b, _ := decoded.At(150, 2).RGBA()
	if r>>8 < 180 || g>>8 > 120 || b>>8 > 120 {
		t.Errorf("Expected red banner pixel, got r=%d g=%d b=%d", r>>8, g>>8, b>>8)
	}
}

// TestRenderRejectsGarbage verifies undecodable input surfaces an error.
func TestRenderRejectsGarbage(t *testing.T) {
	if _, err := Render([]byte("not an image"), models.ThreatAssessment{}); err == nil {
		t.Error("Expected error for undecodable frame")
	}
}
