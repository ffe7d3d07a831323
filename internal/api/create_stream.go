package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

// CreateStreamHandler registers a new stream. A multipart request with
// a "video" file has its frames extracted and uploaded; a JSON body
// registers an already uploaded frame source instead.
func (h *Handlers) CreateStreamHandler(w http.ResponseWriter, r *http.Request) {
	id := uuid.New().String()
	ctx := r.Context()

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var frameSource string
	if mediaType == "multipart/form-data" {
		source, err := h.ingestVideo(ctx, id, r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		frameSource = source
	} else {
		var body models.StreamCreate
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if body.FrameSource == "" {
			http.Error(w, "frame_source is required", http.StatusBadRequest)
			return
		}
		frameSource = body.FrameSource
	}

	now := time.Now()
	initialStatus := models.StatusInitStartup

	stream := models.Stream{
		ID:          id,
		Status:      initialStatus,
		FrameSource: frameSource,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.db.InTx(ctx, func(ctx context.Context) error {
		if err := h.db.CreateStream(ctx, &stream); err != nil {
			return fmt.Errorf("failed to insert stream: %w", err)
		}

		if err := h.db.AddToOutbox(ctx, stream.ID, models.CommandStart); err != nil {
			return fmt.Errorf("failed to add to outbox: %w", err)
		}

		return nil
	}); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create stream: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":           id,
		"status":       initialStatus,
		"frame_source": frameSource,
	})
}

// ingestVideo extracts frames from an uploaded video and pushes them to
// the frame bucket, returning the resulting frame source URL.
func (h *Handlers) ingestVideo(ctx context.Context, id string, r *http.Request) (string, error) {
	if err := r.ParseMultipartForm(50 << 20); err != nil {
		return "", fmt.Errorf("could not parse multipart form")
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		return "", fmt.Errorf("video file is required")
	}
	defer file.Close()

	if header.Size == 0 {
		return "", fmt.Errorf("video file is empty")
	}

	tempDir := os.TempDir()

	videoPath := filepath.Join(tempDir, fmt.Sprintf("%s.mp4", id))
	tempFile, err := os.Create(videoPath)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file")
	}
	defer os.Remove(videoPath)
	defer tempFile.Close()
	if _, err := io.Copy(tempFile, file); err != nil {
		return "", fmt.Errorf("failed to save video file")
	}
	tempFile.Close()

	framesPath := filepath.Join(tempDir, fmt.Sprintf("frames_%s", id))
	if err := os.MkdirAll(framesPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create frames directory: %v", err)
	}
	defer os.RemoveAll(framesPath)

	frames, err := extractFrames(framesPath, videoPath)
	if err != nil {
		return "", fmt.Errorf("failed to extract frames: %v", err)
	}

	if err := h.saveFrames(ctx, id, frames); err != nil {
		return "", fmt.Errorf("failed to save frames: %v", err)
	}

	return h.s3.FrameSourceURL(id), nil
}

// extractFrames pulls frames out of the video with ffmpeg
func extractFrames(framesPath, videoPath string) ([]string, error) {
	framePattern := filepath.Join(framesPath, "frame_%04d.jpg")
	cmd := exec.Command("ffmpeg",
		"-i", videoPath,
		"-vf", "fps=3",
		"-q:v", "2",
		framePattern,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, stderr.String())
	}

	files, err := filepath.Glob(filepath.Join(framesPath, "frame_*.jpg"))
	if err != nil {
		return nil, fmt.Errorf("failed to list frame files: %w", err)
	}

	return files, nil
}

func (h *Handlers) saveFrames(ctx context.Context, streamID string, files []string) error {
	if len(files) == 0 {
		return fmt.Errorf("no frames extracted from video")
	}

	for _, framePath := range files {
		frameFile, err := os.Open(framePath)
		if err != nil {
			return fmt.Errorf("failed to open frame file %s: %w", framePath, err)
		}

		frameInfo, err := frameFile.Stat()
		if err != nil {
			frameFile.Close()
			return fmt.Errorf("failed to get frame file info: %w", err)
		}

		fileName := filepath.Base(framePath)
		_, err = h.s3.UploadFrame(ctx, streamID, fileName, frameFile, frameInfo.Size())
		frameFile.Close()

		if err != nil {
			return fmt.Errorf("failed to upload frame %s to S3: %w", fileName, err)
		}
	}

	return nil
}
