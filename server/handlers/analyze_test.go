package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/priyansh-dev/privacy-lens/server/classify"
	"github.com/priyansh-dev/privacy-lens/server/codec"
	"github.com/priyansh-dev/privacy-lens/server/config"
	"github.com/priyansh-dev/privacy-lens/server/detect"
	"github.com/priyansh-dev/privacy-lens/server/exif"
	"github.com/priyansh-dev/privacy-lens/server/frames"
	"github.com/priyansh-dev/privacy-lens/server/media"
	"github.com/priyansh-dev/privacy-lens/server/processor"
	"github.com/priyansh-dev/privacy-lens/server/risk"
)

type fakeVideo struct {
	frames [][]byte
	fps    float64
}

func (v *fakeVideo) TotalFrames() int { return len(v.frames) }
func (v *fakeVideo) FPS() float64     { return v.fps }
func (v *fakeVideo) Width() int       { return 16 }
func (v *fakeVideo) Height() int      { return 16 }
func (v *fakeVideo) Close() error     { return nil }

func (v *fakeVideo) ReadFrame(index int) ([]byte, error) {
	return v.frames[index], nil
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestRouter(t *testing.T) (*gin.Engine, *AnalyzeHandler, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.LoadConfig()
	uploadDir := t.TempDir()
	cfg.Upload.Dir = uploadDir

	logger := zap.NewNop()
	store, err := media.NewStore(uploadDir, logger)
	require.NoError(t, err)

	tunables := cfg.Analysis
	registry := detect.NewRegistry(config.DetectorsConfig{}, logger)
	orchestrator := detect.NewOrchestrator(registry, classify.New(tunables.Classifier), tunables.Detection, logger)

	pipeline := processor.NewPipeline(
		exif.NewExtractor(logger),
		frames.NewSampler(tunables.Video.MaxFrames, logger),
		orchestrator,
		risk.NewScorer(tunables.Risk, tunables.Detection.LocationLabels),
		risk.NewRecommender(),
		nil,
		tunables.Video,
		logger,
	)

	handler := NewAnalyzeHandler(pipeline, store, cfg, logger)

	router := gin.New()
	router.GET("/health", handler.Health)
	router.GET("/api/stats", handler.Stats)
	router.POST("/api/analyze-image", handler.AnalyzeImage)
	router.POST("/api/analyze-video", handler.AnalyzeVideo)
	router.POST("/api/strip-metadata", handler.StripMetadata)
	router.POST("/api/remove-exif", handler.RemoveEXIF)

	return router, handler, uploadDir
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func postFile(t *testing.T, router *gin.Engine, path, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartUpload(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp["error"]
}

func TestHealth(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.NotEmpty(t, resp["timestamp"])
}

func TestAnalyzeImageMissingFile(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze-image", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No file provided", errorMessage(t, w))
}

func TestAnalyzeImageEmptyFilename(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := postFile(t, router, "/api/analyze-image", "   ", testPNG(t))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No file selected", errorMessage(t, w))
}

func TestAnalyzeImageDisallowedExtension(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := postFile(t, router, "/api/analyze-image", "payload.exe", []byte("x"))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "File type not allowed", errorMessage(t, w))
}

func TestAnalyzeImageRejectsVideoUpload(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := postFile(t, router, "/api/analyze-image", "clip.mp4", []byte("x"))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "File type not allowed", errorMessage(t, w))
}

func TestAnalyzeImageSuccess(t *testing.T) {
	router, _, uploadDir := newTestRouter(t)

	w := postFile(t, router, "/api/analyze-image", "photo.png", testPNG(t))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
	assert.Contains(t, resp, "privacy_risk")
	assert.Contains(t, resp, "image_hash")

	// The stored upload is released once the request finishes.
	entries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAnalyzeImageUndecodable(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := postFile(t, router, "/api/analyze-image", "photo.png", []byte("not an image"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Cannot decode image", errorMessage(t, w))
}

func TestAnalyzeVideoSuccess(t *testing.T) {
	router, handler, _ := newTestRouter(t)

	frame := testPNG(t)
	handler.openVideo = func(path string) (frames.VideoSource, error) {
		return &fakeVideo{frames: [][]byte{frame, frame, frame}, fps: 30}, nil
	}

	w := postFile(t, router, "/api/analyze-video", "clip.mp4", []byte("container"))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
	assert.Contains(t, resp, "frame_analysis")
	assert.Contains(t, resp, "privacy_risk")
}

func TestAnalyzeVideoOpenFailure(t *testing.T) {
	router, handler, _ := newTestRouter(t)

	handler.openVideo = func(path string) (frames.VideoSource, error) {
		return nil, fmt.Errorf("open: %w", codec.ErrOpen)
	}

	w := postFile(t, router, "/api/analyze-video", "clip.mp4", []byte("container"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Cannot decode video", errorMessage(t, w))
}

func TestStripMetadataReturnsDataURL(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := postFile(t, router, "/api/strip-metadata", "photo.png", testPNG(t))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, "cleaned_photo.png", resp["cleaned_file"])
	assert.True(t, strings.HasPrefix(resp["cleaned_image"], "data:image/jpeg;base64,"))
}

func TestRemoveEXIFReturnsBinaryDownload(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := postFile(t, router, "/api/remove-exif", "photo.png", testPNG(t))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="image_no_exif.jpg"`, w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte{0xff, 0xd8}))
}

func TestStatsEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "processor")
}
