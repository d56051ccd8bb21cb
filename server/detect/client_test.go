package detect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/priyansh-dev/privacy-lens/server/config"
	"github.com/priyansh-dev/privacy-lens/server/models"
)

func testDetectorConfig() config.DetectorsConfig {
	return config.DetectorsConfig{
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		RetryDelay: 5 * time.Millisecond,
	}
}

func TestObjectClientDecodesDetections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/detect", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req detectRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []byte("image-bytes"), req.ImageData)

		json.NewEncoder(w).Encode(map[string]any{
			"detections": []map[string]any{
				{"class": "car", "confidence": 0.91, "bbox": []float64{10, 20, 110, 80}},
				{"class": "person", "confidence": 0.77},
			},
		})
	}))
	defer srv.Close()

	client := NewObjectClient(srv.URL, testDetectorConfig(), zap.NewNop())
	findings, err := client.Detect(context.Background(), []byte("image-bytes"))
	require.NoError(t, err)

	require.Len(t, findings, 2)
	assert.Equal(t, models.CategoryObject, findings[0].Category)
	assert.Equal(t, "car", findings[0].Label)
	require.NotNil(t, findings[0].Region)
	assert.Equal(t, models.Rect{X: 10, Y: 20, Width: 100, Height: 60}, *findings[0].Region)
	assert.Nil(t, findings[1].Region)
}

func TestLandmarkClientSplitsCategories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/landmarks", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"faces": []map[string]any{{"confidence": 0.95}},
			"hands": []map[string]any{{"confidence": 0.8}, {"confidence": 0.7}},
			"poses": []map[string]any{{"confidence": 0.6}},
		})
	}))
	defer srv.Close()

	client := NewLandmarkClient(srv.URL, testDetectorConfig(), zap.NewNop())
	findings, err := client.Detect(context.Background(), []byte("x"))
	require.NoError(t, err)

	require.Len(t, findings, 4)
	assert.Equal(t, models.CategoryFace, findings[0].Category)
	assert.Equal(t, models.CategoryHand, findings[1].Category)
	assert.Equal(t, models.CategoryHand, findings[2].Category)
	assert.Equal(t, models.CategoryPose, findings[3].Category)
}

func TestTextClientDecodesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ocr", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"text": "MAIN STREET", "confidence": 0.88, "bbox": []float64{0, 0, 50, 10}},
			},
		})
	}))
	defer srv.Close()

	client := NewTextClient(srv.URL, testDetectorConfig(), zap.NewNop())
	findings, err := client.Detect(context.Background(), []byte("x"))
	require.NoError(t, err)

	require.Len(t, findings, 1)
	assert.Equal(t, models.CategoryText, findings[0].Category)
	assert.Equal(t, "MAIN STREET", findings[0].Label)
}

func TestEntityClientLabelsMentions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/entities", r.URL.Path)

		var payload struct {
			Texts []string `json:"texts"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, []string{"visit Acme Corp"}, payload.Texts)

		json.NewEncoder(w).Encode(map[string]any{
			"entities": []map[string]any{
				{"text": "Acme Corp", "label": "ORG", "confidence": 0.9},
			},
		})
	}))
	defer srv.Close()

	client := NewEntityClient(srv.URL, testDetectorConfig(), zap.NewNop())
	findings, err := client.Extract(context.Background(), []string{"visit Acme Corp"})
	require.NoError(t, err)

	require.Len(t, findings, 1)
	assert.Equal(t, "ORG: Acme Corp", findings[0].Label)
}

func TestPostRetriesOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "overloaded", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"detections": []any{}})
	}))
	defer srv.Close()

	client := NewObjectClient(srv.URL, testDetectorConfig(), zap.NewNop())
	findings, err := client.Detect(context.Background(), []byte("x"))
	require.NoError(t, err)
	assert.Empty(t, findings)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPostGivesUpAfterRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewObjectClient(srv.URL, testDetectorConfig(), zap.NewNop())
	_, err := client.Detect(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "object detection failed")
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewObjectClient(srv.URL, testDetectorConfig(), zap.NewNop())
	assert.NoError(t, client.HealthCheck(context.Background()))

	srv.Close()
	assert.Error(t, client.HealthCheck(context.Background()))
}
