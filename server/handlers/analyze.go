package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/priyansh-dev/privacy-lens/server/codec"
	"github.com/priyansh-dev/privacy-lens/server/config"
	"github.com/priyansh-dev/privacy-lens/server/frames"
	"github.com/priyansh-dev/privacy-lens/server/imgtools"
	"github.com/priyansh-dev/privacy-lens/server/media"
	"github.com/priyansh-dev/privacy-lens/server/models"
	"github.com/priyansh-dev/privacy-lens/server/processor"
)

// AnalyzeHandler serves the analysis and cleaning endpoints.
type AnalyzeHandler struct {
	pipeline *processor.Pipeline
	store    *media.Store
	cfg      *config.Config
	logger   *zap.Logger

	// openVideo is swappable in tests.
	openVideo func(path string) (frames.VideoSource, error)
}

func NewAnalyzeHandler(pipeline *processor.Pipeline, store *media.Store, cfg *config.Config, logger *zap.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		pipeline: pipeline,
		store:    store,
		cfg:      cfg,
		logger:   logger,
		openVideo: func(path string) (frames.VideoSource, error) {
			return codec.OpenVideo(path)
		},
	}
}

// receiveUpload validates the multipart upload and stores it. The returned
// handle is owned by the request; the caller must release it on every path.
func (h *AnalyzeHandler) receiveUpload(c *gin.Context, wantKind models.MediaKind) (*media.Handle, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return nil, false
	}
	defer file.Close()

	kind, err := media.Classify(header.Filename, h.cfg.Upload.ImageExtensions, h.cfg.Upload.VideoExtensions)
	if err != nil {
		if errors.Is(err, media.ErrEmptyFilename) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file selected"})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File type not allowed"})
		}
		return nil, false
	}
	if wantKind != "" && kind != wantKind {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File type not allowed"})
		return nil, false
	}

	if header.Size > h.cfg.Upload.MaxSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
		return nil, false
	}

	handle, err := h.store.Save(file, header.Filename, kind)
	if err != nil {
		h.logger.Error("failed to store upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process file"})
		return nil, false
	}
	return handle, true
}

// AnalyzeImage handles POST /api/analyze-image.
func (h *AnalyzeHandler) AnalyzeImage(c *gin.Context) {
	handle, ok := h.receiveUpload(c, models.MediaImage)
	if !ok {
		return
	}
	defer h.store.Release(handle)

	result, err := h.pipeline.AnalyzeImage(c.Request.Context(), handle)
	if err != nil {
		h.fail(c, "image analysis failed", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AnalyzeVideo handles POST /api/analyze-video.
func (h *AnalyzeHandler) AnalyzeVideo(c *gin.Context) {
	handle, ok := h.receiveUpload(c, models.MediaVideo)
	if !ok {
		return
	}
	defer h.store.Release(handle)

	src, err := h.openVideo(handle.Path)
	if err != nil {
		h.fail(c, "video open failed", err)
		return
	}
	defer src.Close()

	result, err := h.pipeline.AnalyzeVideo(c.Request.Context(), src, handle)
	if err != nil {
		h.fail(c, "video analysis failed", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// StripMetadata handles POST /api/strip-metadata: returns the cleaned image
// base64-encoded in a JSON envelope.
func (h *AnalyzeHandler) StripMetadata(c *gin.Context) {
	handle, ok := h.receiveUpload(c, models.MediaImage)
	if !ok {
		return
	}
	defer h.store.Release(handle)

	data, err := handle.Bytes()
	if err != nil {
		h.fail(c, "failed to read upload", err)
		return
	}

	cleaned, err := imgtools.StripMetadata(data, h.cfg.Analysis.Strip.JPEGQuality)
	if err != nil {
		h.fail(c, "metadata strip failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"message":       "Metadata stripped successfully",
		"cleaned_file":  "cleaned_" + handle.Filename,
		"cleaned_image": imgtools.EncodeDataURL(cleaned, "image/jpeg"),
	})
}

// RemoveEXIF handles POST /api/remove-exif: returns the cleaned image as a
// binary download.
func (h *AnalyzeHandler) RemoveEXIF(c *gin.Context) {
	handle, ok := h.receiveUpload(c, models.MediaImage)
	if !ok {
		return
	}
	defer h.store.Release(handle)

	data, err := handle.Bytes()
	if err != nil {
		h.fail(c, "failed to read upload", err)
		return
	}

	cleaned, err := imgtools.StripMetadata(data, h.cfg.Analysis.Strip.JPEGQuality)
	if err != nil {
		h.fail(c, "metadata strip failed", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="image_no_exif.jpg"`)
	c.Data(http.StatusOK, "image/jpeg", cleaned)
}

// Health handles GET /health.
func (h *AnalyzeHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// Stats handles GET /api/stats.
func (h *AnalyzeHandler) Stats(c *gin.Context) {
	response := gin.H{
		"processor": h.pipeline.Stats(),
	}
	if cacheStats, err := h.pipeline.CacheStats(c.Request.Context()); err == nil {
		response["cache"] = cacheStats
	}
	c.JSON(http.StatusOK, response)
}

// fail maps pipeline errors onto the wire contract: decode failures and
// everything else internal are 500 with the error envelope.
func (h *AnalyzeHandler) fail(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, zap.Error(err), zap.String("client_ip", c.ClientIP()))

	switch {
	case errors.Is(err, imgtools.ErrDecode):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot decode image"})
	case errors.Is(err, codec.ErrOpen):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot decode video"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Processing failed"})
	}
}
