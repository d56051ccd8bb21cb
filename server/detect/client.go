package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/priyansh-dev/privacy-lens/server/config"
	"github.com/priyansh-dev/privacy-lens/server/models"
)

// httpDetector is the shared transport for the model-serving sidecars.
type httpDetector struct {
	name       string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

func newHTTPDetector(name, baseURL string, cfg config.DetectorsConfig, logger *zap.Logger) *httpDetector {
	return &httpDetector{
		name:    name,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:       10,
				IdleConnTimeout:    30 * time.Second,
				DisableCompression: true,
			},
		},
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
	}
}

func (d *httpDetector) Name() string { return d.name }

// HealthCheck probes the sidecar's liveness endpoint.
func (d *httpDetector) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s service unhealthy (status %d)", d.name, resp.StatusCode)
	}
	return nil
}

// post sends a JSON request with retries and decodes the response into out.
func (d *httpDetector) post(ctx context.Context, path string, payload, out any) error {
	requestData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			d.logger.Warn("retrying detector request",
				zap.String("detector", d.name),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.retryDelay * time.Duration(attempt)):
			}
		}

		lastErr = d.execute(ctx, path, requestData, out)
		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("%s detection failed after %d attempts: %w", d.name, d.maxRetries+1, lastErr)
}

func (d *httpDetector) execute(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "privacy-lens/1.0")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s service error (status %d): %s", d.name, resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type detectRequest struct {
	ImageData []byte `json:"image_data"`
}

type boxedDetection struct {
	Class      string    `json:"class"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox"`
}

// regionFromBBox converts an [x1,y1,x2,y2] box into a Rect. Nil when the
// detector sent no usable box.
func regionFromBBox(bbox []float64) *models.Rect {
	if len(bbox) != 4 {
		return nil
	}
	return &models.Rect{
		X:      bbox[0],
		Y:      bbox[1],
		Width:  bbox[2] - bbox[0],
		Height: bbox[3] - bbox[1],
	}
}

// ObjectClient talks to the object-detection sidecar (YOLO-style classes
// with boxes).
type ObjectClient struct {
	*httpDetector
}

func NewObjectClient(baseURL string, cfg config.DetectorsConfig, logger *zap.Logger) *ObjectClient {
	return &ObjectClient{httpDetector: newHTTPDetector("object", baseURL, cfg, logger)}
}

func (c *ObjectClient) Detect(ctx context.Context, image []byte) ([]models.Finding, error) {
	var resp struct {
		Detections []boxedDetection `json:"detections"`
	}
	if err := c.post(ctx, "/detect", detectRequest{ImageData: image}, &resp); err != nil {
		return nil, err
	}

	findings := make([]models.Finding, 0, len(resp.Detections))
	for _, det := range resp.Detections {
		findings = append(findings, models.Finding{
			Category:   models.CategoryObject,
			Label:      det.Class,
			Confidence: det.Confidence,
			Region:     regionFromBBox(det.BBox),
		})
	}
	return findings, nil
}

// LandmarkClient talks to the face/hand/pose landmark sidecar.
type LandmarkClient struct {
	*httpDetector
}

func NewLandmarkClient(baseURL string, cfg config.DetectorsConfig, logger *zap.Logger) *LandmarkClient {
	return &LandmarkClient{httpDetector: newHTTPDetector("landmark", baseURL, cfg, logger)}
}

func (c *LandmarkClient) Detect(ctx context.Context, image []byte) ([]models.Finding, error) {
	var resp struct {
		Faces []boxedDetection `json:"faces"`
		Hands []boxedDetection `json:"hands"`
		Poses []boxedDetection `json:"poses"`
	}
	if err := c.post(ctx, "/landmarks", detectRequest{ImageData: image}, &resp); err != nil {
		return nil, err
	}

	var findings []models.Finding
	appendAll := func(dets []boxedDetection, category models.FindingCategory, label string) {
		for _, det := range dets {
			findings = append(findings, models.Finding{
				Category:   category,
				Label:      label,
				Confidence: det.Confidence,
				Region:     regionFromBBox(det.BBox),
			})
		}
	}
	appendAll(resp.Faces, models.CategoryFace, "face")
	appendAll(resp.Hands, models.CategoryHand, "hand")
	appendAll(resp.Poses, models.CategoryPose, "pose")
	return findings, nil
}

// TextClient talks to the OCR sidecar.
type TextClient struct {
	*httpDetector
}

func NewTextClient(baseURL string, cfg config.DetectorsConfig, logger *zap.Logger) *TextClient {
	return &TextClient{httpDetector: newHTTPDetector("ocr", baseURL, cfg, logger)}
}

func (c *TextClient) Detect(ctx context.Context, image []byte) ([]models.Finding, error) {
	var resp struct {
		Results []struct {
			Text       string    `json:"text"`
			Confidence float64   `json:"confidence"`
			BBox       []float64 `json:"bbox"`
		} `json:"results"`
	}
	if err := c.post(ctx, "/ocr", detectRequest{ImageData: image}, &resp); err != nil {
		return nil, err
	}

	findings := make([]models.Finding, 0, len(resp.Results))
	for _, r := range resp.Results {
		findings = append(findings, models.Finding{
			Category:   models.CategoryText,
			Label:      r.Text,
			Confidence: r.Confidence,
			Region:     regionFromBBox(r.BBox),
		})
	}
	return findings, nil
}

// EntityClient talks to the NLP entity-extraction sidecar.
type EntityClient struct {
	*httpDetector
}

func NewEntityClient(baseURL string, cfg config.DetectorsConfig, logger *zap.Logger) *EntityClient {
	return &EntityClient{httpDetector: newHTTPDetector("entity", baseURL, cfg, logger)}
}

func (c *EntityClient) Extract(ctx context.Context, texts []string) ([]models.Finding, error) {
	var resp struct {
		Entities []struct {
			Text       string  `json:"text"`
			Label      string  `json:"label"`
			Confidence float64 `json:"confidence"`
		} `json:"entities"`
	}
	payload := struct {
		Texts []string `json:"texts"`
	}{Texts: texts}
	if err := c.post(ctx, "/entities", payload, &resp); err != nil {
		return nil, err
	}

	findings := make([]models.Finding, 0, len(resp.Entities))
	for _, e := range resp.Entities {
		findings = append(findings, models.Finding{
			Category:   models.CategoryText,
			Label:      fmt.Sprintf("%s: %s", e.Label, e.Text),
			Confidence: e.Confidence,
		})
	}
	return findings, nil
}
