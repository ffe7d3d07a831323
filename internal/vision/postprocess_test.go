package vision

import (
	"testing"

	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

func det(class string, classID int, confidence float64, box models.BoundingBox) models.Detection {
	return models.Detection{Class: class, ClassID: classID, Confidence: confidence, Box: box}
}

// TestFilterByConfidence verifies the threshold is inclusive.
func TestFilterByConfidence(t *testing.T) {
	box := models.BoundingBox{X1: 0, Y1: 0, X2: 10, Y2: 10}
	dets := []models.Detection{
		det("drone", 0, 0.9, box),
		det("drone", 0, 0.5, box),
		det("drone", 0, 0.49, box),
	}

	got := FilterByConfidence(dets, 0.5)
	if len(got) != 2 {
		t.Fatalf("Expected 2 detections, got %d", len(got))
	}
	if got[1].Confidence != 0.5 {
		t.Errorf("Expected boundary value kept, got %f", got[1].Confidence)
	}
}

// TestFilterByClasses verifies only listed labels survive.
func TestFilterByClasses(t *testing.T) {
	box := models.BoundingBox{X1: 0, Y1: 0, X2: 10, Y2: 10}
	dets := []models.Detection{
		det("drone", 0, 0.9, box),
		det("person", 1, 0.8, box),
		det("uav", 2, 0.7, box),
	}

	got := FilterByClasses(dets, []string{"drone", "uav"})
	if len(got) != 2 {
		t.Fatalf("Expected 2 detections, got %d", len(got))
	}
	if got[0].Class != "drone" || got[1].Class != "uav" {
		t.Errorf("Unexpected classes: %+v", got)
	}
}

// TestNMS verifies same-class overlaps are suppressed while other
// classes and disjoint boxes survive.
func TestNMS(t *testing.T) {
	strong := det("drone", 0, 0.9, models.BoundingBox{X1: 0, Y1: 0, X2: 10, Y2: 10})
	overlap := det("drone", 0, 0.6, models.BoundingBox{X1: 1, Y1: 1, X2: 11, Y2: 11})
	otherClass := det("bird", 1, 0.5, models.BoundingBox{X1: 2, Y1: 2, X2: 12, Y2: 12})
	farAway := det("drone", 0, 0.7, models.BoundingBox{X1: 100, Y1: 100, X2: 120, Y2: 120})

	got := NMS([]models.Detection{overlap, strong, otherClass, farAway}, 0.45)
	if len(got) != 3 {
		t.Fatalf("Expected 3 detections after suppression, got %d: %+v", len(got), got)
	}
	if got[0].Confidence != 0.9 {
		t.Errorf("Expected highest confidence first, got %f", got[0].Confidence)
	}
	for _, d := range got {
		if d.Confidence == 0.6 {
			t.Error("Expected overlapping same-class detection suppressed")
		}
	}
}

// TestNMSEmpty verifies empty input yields empty output.
func TestNMSEmpty(t *testing.T) {
	if got := NMS(nil, 0.45); len(got) != 0 {
		t.Errorf("Expected empty result, got %+v", got)
	}
}
