package vision

import (
	"sort"

	"github.com/samber/lo"

	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

// FilterByConfidence keeps detections at or above the threshold.
func FilterByConfidence(detections []models.Detection, threshold float64) []models.Detection {
	return lo.Filter(detections, func(d models.Detection, _ int) bool {
		return d.Confidence >= threshold
	})
}

// FilterByClasses keeps detections whose class label is in classes.
func FilterByClasses(detections []models.Detection, classes []string) []models.Detection {
	allowed := lo.SliceToMap(classes, func(c string) (string, struct{}) {
		return c, struct{}{}
	})
	return lo.Filter(detections, func(d models.Detection, _ int) bool {
		_, ok := allowed[d.Class]
		return ok
	})
}

// NMS suppresses lower-confidence detections of the same class that
// overlap a kept detection at or above the IoU threshold.
func NMS(detections []models.Detection, iouThreshold float64) []models.Detection {
	if len(detections) == 0 {
		return nil
	}

	sorted := append([]models.Detection(nil), detections...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	var keep []models.Detection
	for len(sorted) > 0 {
		current := sorted[0]
		keep = append(keep, current)
		sorted = lo.Filter(sorted[1:], func(d models.Detection, _ int) bool {
			return d.ClassID != current.ClassID || current.Box.IoU(d.Box) < iouThreshold
		})
	}
	return keep
}
