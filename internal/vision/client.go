package vision

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/goccy/go-json"

	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

const defaultClientTimeout = 30 * time.Second

// HTTPDetector calls an object-detection service over HTTP. The frame
// is uploaded as a JPEG multipart field to /detect. Detections below
// the configured confidence floor are dropped.
type HTTPDetector struct {
	url           string
	client        *http.Client
	minConfidence float64
}

func NewHTTPDetector(cfg ClientConfig) (*HTTPDetector, error) {
	if cfg.BaseURL == "" {
		return nil, &models.ConfigError{Param: "detector.base_url", Reason: "must not be empty"}
	}
	if cfg.MinConfidence < 0 || cfg.MinConfidence > 1 {
		return nil, &models.ConfigError{Param: "detector.min_confidence", Reason: "must be within [0, 1]"}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	return &HTTPDetector{
		url:           cfg.BaseURL,
		client:        &http.Client{Timeout: timeout},
		minConfidence: cfg.MinConfidence,
	}, nil
}

type detectResponse struct {
	Detections []models.Detection `json:"detections"`
}

func (d *HTTPDetector) Detect(ctx context.Context, image []byte) ([]models.Detection, error) {
	body, contentType, err := imageForm(image, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInference, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url+"/detect", body)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", models.ErrInference, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInference, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: bad status %s: %s", models.ErrInference, resp.Status, respBody)
	}

	var parsed detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", models.ErrInference, err)
	}
	if d.minConfidence > 0 {
		return FilterByConfidence(parsed.Detections, d.minConfidence), nil
	}
	return parsed.Detections, nil
}

// HTTPDescriber calls a vision-language service over HTTP. The frame
// and prompt are uploaded as multipart fields to /describe.
type HTTPDescriber struct {
	url    string
	client *http.Client
}

func NewHTTPDescriber(cfg ClientConfig) (*HTTPDescriber, error) {
	if cfg.BaseURL == "" {
		return nil, &models.ConfigError{Param: "describer.base_url", Reason: "must not be empty"}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	return &HTTPDescriber{
		url:    cfg.BaseURL,
		client: &http.Client{Timeout: timeout},
	}, nil
}

type describeResponse struct {
	Description string `json:"description"`
}

func (d *HTTPDescriber) Describe(ctx context.Context, image []byte, prompt string) (string, error) {
	body, contentType, err := imageForm(image, map[string]string{"prompt": prompt})
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInference, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url+"/describe", body)
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", models.ErrInference, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInference, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: bad status %s: %s", models.ErrInference, resp.Status, respBody)
	}

	var parsed describeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", models.ErrInference, err)
	}
	return parsed.Description, nil
}

// imageForm builds a multipart body with the frame as a JPEG file field
// plus any extra form fields.
func imageForm(image []byte, fields map[string]string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", "image/jpeg")

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", fmt.Errorf("write image data: %w", err)
	}

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}
