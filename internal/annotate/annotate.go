// Package annotate renders assessment overlays onto video frames.
package annotate

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

// levelColors maps threat levels to overlay colors.
var levelColors = map[models.ThreatLevel]color.RGBA{
	models.ThreatLow:      {R: 0, G: 255, B: 0, A: 255},
	models.ThreatMedium:   {R: 255, G: 255, B: 0, A: 255},
	models.ThreatHigh:     {R: 255, G: 165, B: 0, A: 255},
	models.ThreatCritical: {R: 255, G: 0, B: 0, A: 255},
}

const (
	boxThickness = 2
	bannerHeight = 22
	jpegQuality  = 90
)

// LevelColor returns the overlay color for a threat level.
func LevelColor(level models.ThreatLevel) color.RGBA {
	if c, ok := levelColors[level]; ok {
		return c
	}
	return levelColors[models.ThreatLow]
}

// Render decodes a frame, draws detection boxes and a threat banner and
// re-encodes it as JPEG.
func Render(frameData []byte, assessment models.ThreatAssessment) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(frameData))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	canvas := image.NewRGBA(src.Bounds())
	draw.Draw(canvas, canvas.Bounds(), src, src.Bounds().Min, draw.Src)

	overlay := LevelColor(assessment.ThreatLevel)
	for _, detection := range assessment.Detections {
		drawBox(canvas, detection.Box, overlay)
		label := fmt.Sprintf("%s %.2f", detection.Class, detection.Confidence)
		drawLabel(canvas, int(detection.Box.X1)+boxThickness, int(detection.Box.Y1)-4, label, overlay)
	}
	drawBanner(canvas, assessment, overlay)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// drawBox draws a hollow rectangle clipped to the canvas bounds.
func drawBox(canvas *image.RGBA, box models.BoundingBox, c color.RGBA) {
	x1, y1 := int(box.X1), int(box.Y1)
	x2, y2 := int(box.X2), int(box.Y2)

	fillRect(canvas, x1, y1, x2, y1+boxThickness, c)
	fillRect(canvas, x1, y2-boxThickness, x2, y2, c)
	fillRect(canvas, x1, y1, x1+boxThickness, y2, c)
	fillRect(canvas, x2-boxThickness, y1, x2, y2, c)
}

func fillRect(canvas *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	rect := image.Rect(x1, y1, x2, y2).Intersect(canvas.Bounds())
	draw.Draw(canvas, rect, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

// drawBanner fills a strip along the top edge with the threat verdict.
func drawBanner(canvas *image.RGBA, assessment models.ThreatAssessment, c color.RGBA) {
	bounds := canvas.Bounds()
	fillRect(canvas, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Min.Y+bannerHeight, c)

	text := fmt.Sprintf("THREAT %s (%.2f): %s",
		assessment.ThreatLevel, assessment.Confidence, assessment.RecommendedAction)
	drawLabel(canvas, bounds.Min.X+6, bounds.Min.Y+bannerHeight-7, text, color.RGBA{A: 255})
}

// drawLabel writes text with the top-left pixel font, skipping positions
// outside the canvas.
func drawLabel(canvas *image.RGBA, x, y int, text string, c color.RGBA) {
	if y < canvas.Bounds().Min.Y+basicfont.Face7x13.Ascent {
		y = canvas.Bounds().Min.Y + basicfont.Face7x13.Ascent
	}
	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  &image.Uniform{C: c},
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
}
