package vision

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

// TestHTTPDetectorDetect verifies the frame is uploaded as a multipart
// file and the response detections come back intact.
func TestHTTPDetectorDetect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect" {
			t.Errorf("Expected /detect, got %s", r.URL.Path)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("Expected file field: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		file.Close()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"detections":[{"class":"drone","class_id":3,"confidence":0.82,"box":{"x1":10,"y1":20,"x2":110,"y2":120}}]}`))
	}))
	defer server.Close()

	detector, err := NewHTTPDetector(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewHTTPDetector failed: %v", err)
	}

	dets, err := detector.Detect(context.Background(), []byte("jpegbytes"))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(dets) != 1 {
		t.Fatalf("Expected 1 detection, got %d", len(dets))
	}
	if dets[0].Class != "drone" || dets[0].Confidence != 0.82 {
		t.Errorf("Unexpected detection: %+v", dets[0])
	}
	if dets[0].Box.X2 != 110 {
		t.Errorf("Expected box x2 110, got %f", dets[0].Box.X2)
	}
}

// TestHTTPDetectorConfidenceFloor verifies detections below the
// configured floor are dropped before the set is returned.
func TestHTTPDetectorConfidenceFloor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"detections":[
			{"class":"drone","class_id":3,"confidence":0.9,"box":{"x1":0,"y1":0,"x2":10,"y2":10}},
			{"class":"bird","class_id":7,"confidence":0.1,"box":{"x1":20,"y1":20,"x2":30,"y2":30}}
		]}`))
	}))
	defer server.Close()

	detector, err := NewHTTPDetector(ClientConfig{BaseURL: server.URL, MinConfidence: 0.5})
	if err != nil {
		t.Fatalf("NewHTTPDetector failed: %v", err)
	}

	dets, err := detector.Detect(context.Background(), []byte("jpegbytes"))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(dets) != 1 {
		t.Fatalf("Expected 1 detection above the floor, got %d", len(dets))
	}
	if dets[0].Class != "drone" {
		t.Errorf("Expected the drone detection to survive, got %+v", dets[0])
	}

	if _, err := NewHTTPDetector(ClientConfig{BaseURL: server.URL, MinConfidence: 1.5}); err == nil {
		t.Error("Expected config error for floor above 1")
	}
}

// TestHTTPDetectorBadStatus verifies non-200 responses surface as
// inference failures.
func TestHTTPDetectorBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	detector, err := NewHTTPDetector(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewHTTPDetector failed: %v", err)
	}

	_, err = detector.Detect(context.Background(), []byte("jpegbytes"))
	if !errors.Is(err, models.ErrInference) {
		t.Errorf("Expected inference failure, got %v", err)
	}
}

// TestHTTPDescriberDescribe verifies the prompt travels as a form field
// and the description is returned.
func TestHTTPDescriberDescribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/describe" {
			t.Errorf("Expected /describe, got %s", r.URL.Path)
		}
		if got := r.FormValue("prompt"); got != "describe aerial activity" {
			t.Errorf("Expected prompt field, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"description":"a drone hovering over the fence"}`))
	}))
	defer server.Close()

	describer, err := NewHTTPDescriber(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewHTTPDescriber failed: %v", err)
	}

	desc, err := describer.Describe(context.Background(), []byte("jpegbytes"), "describe aerial activity")
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if desc != "a drone hovering over the fence" {
		t.Errorf("Unexpected description: %q", desc)
	}
}

// TestHTTPDescriberBadStatus verifies non-200 responses surface as
// inference failures.
func TestHTTPDescriberBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	describer, err := NewHTTPDescriber(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewHTTPDescriber failed: %v", err)
	}

	_, err = describer.Describe(context.Background(), []byte("jpegbytes"), "prompt")
	if !errors.Is(err, models.ErrInference) {
		t.Errorf("Expected inference failure, got %v", err)
	}
}

// TestDetectContextTimeout verifies a blocked service surfaces as an
// inference failure once the context expires.
func TestDetectContextTimeout(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	detector, err := NewHTTPDetector(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewHTTPDetector failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = detector.Detect(ctx, []byte("jpegbytes"))
	if !errors.Is(err, models.ErrInference) {
		t.Errorf("Expected inference failure on timeout, got %v", err)
	}
}

// TestRegistry verifies named construction and unknown-name rejection.
func TestRegistry(t *testing.T) {
	if _, err := NewDetector("http", ClientConfig{BaseURL: "http://localhost:9000"}); err != nil {
		t.Errorf("Expected http detector to construct, got %v", err)
	}
	if _, err := NewDescriber("http", ClientConfig{BaseURL: "http://localhost:9001"}); err != nil {
		t.Errorf("Expected http describer to construct, got %v", err)
	}

	var ce *models.ConfigError
	if _, err := NewDetector("onnx", ClientConfig{}); !errors.As(err, &ce) {
		t.Errorf("Expected config error for unknown detector, got %v", err)
	}
	if _, err := NewDescriber("onnx", ClientConfig{}); !errors.As(err, &ce) {
		t.Errorf("Expected config error for unknown describer, got %v", err)
	}
}

// TestEmptyBaseURL verifies construction fails fast without an endpoint.
func TestEmptyBaseURL(t *testing.T) {
	var ce *models.ConfigError
	if _, err := NewHTTPDetector(ClientConfig{}); !errors.As(err, &ce) {
		t.Errorf("Expected config error, got %v", err)
	}
	if _, err := NewHTTPDescriber(ClientConfig{}); !errors.As(err, &ce) {
		t.Errorf("Expected config error, got %v", err)
	}
}
