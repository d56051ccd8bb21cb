// Package processor orchestrates full analysis requests: metadata, frame
// sampling, detector invocation, and risk reduction.
package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"time"

	"github.com/corona10/goimagehash"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/priyansh-dev/privacy-lens/server/cache"
	"github.com/priyansh-dev/privacy-lens/server/config"
	"github.com/priyansh-dev/privacy-lens/server/detect"
	"github.com/priyansh-dev/privacy-lens/server/exif"
	"github.com/priyansh-dev/privacy-lens/server/frames"
	"github.com/priyansh-dev/privacy-lens/server/imgtools"
	"github.com/priyansh-dev/privacy-lens/server/media"
	"github.com/priyansh-dev/privacy-lens/server/models"
	"github.com/priyansh-dev/privacy-lens/server/risk"
)

type Pipeline struct {
	extractor    *exif.Extractor
	sampler      *frames.Sampler
	orchestrator *detect.Orchestrator
	scorer       *risk.Scorer
	recommender  *risk.Recommender
	cache        cache.Cache
	video        config.VideoTunables
	logger       *zap.Logger
	stats        *Stats
}

func NewPipeline(
	extractor *exif.Extractor,
	sampler *frames.Sampler,
	orchestrator *detect.Orchestrator,
	scorer *risk.Scorer,
	recommender *risk.Recommender,
	resultCache cache.Cache,
	video config.VideoTunables,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		extractor:    extractor,
		sampler:      sampler,
		orchestrator: orchestrator,
		scorer:       scorer,
		recommender:  recommender,
		cache:        resultCache,
		video:        video,
		logger:       logger,
		stats:        NewStats(),
	}
}

// AnalyzeImage runs the full single-image path. Only an undecodable image is
// fatal; every other signal source degrades to its empty value.
func (p *Pipeline) AnalyzeImage(ctx context.Context, handle *media.Handle) (*models.ImageAnalysis, error) {
	start := time.Now()

	data, err := handle.Bytes()
	if err != nil {
		p.stats.RecordFailure()
		return nil, err
	}

	width, height, format, err := imgtools.DecodeConfig(data)
	if err != nil {
		p.stats.RecordFailure()
		return nil, err
	}
	fileInfo := imageFileInfo(handle, width, height, format)

	cacheKey := cache.GenerateCacheKey("image", string(data))
	if p.cache != nil {
		var cached models.ImageAnalysis
		if err := p.cache.Get(ctx, cacheKey, &cached); err == nil {
			p.logger.Debug("analysis cache hit", zap.String("key", cacheKey))
			cached.FileInfo = fileInfo
			p.stats.RecordImage(start)
			return &cached, nil
		}
	}

	img, _, err := imgtools.Decode(data)
	if err != nil {
		p.stats.RecordFailure()
		return nil, err
	}

	meta := p.extractor.Extract(data)
	findings := p.orchestrator.Analyze(ctx, data)

	assessment, tally := p.scorer.Assess(risk.Input{
		GPS:      meta.GPS,
		Camera:   meta.Camera,
		Findings: findings,
		TagCount: len(meta.Tags),
	})
	assessment.Recommendations = p.recommender.Recommendations(assessment, tally)

	result := &models.ImageAnalysis{
		Status:          "success",
		FileInfo:        fileInfo,
		EXIFData:        meta.Tags,
		GPSData:         meta.GPS,
		CameraInfo:      meta.Camera,
		ObjectsDetected: filterCategory(findings, models.CategoryObject),
		LandmarksDetected: models.LandmarkSummary{
			FaceCount:    tally.Faces,
			HandCount:    tally.Hands,
			PoseDetected: tally.Poses > 0,
		},
		TextDetections: filterCategory(findings, models.CategoryText),
		LocationClues:  p.scorer.LocationClues(findings),
		ReverseSearch: &models.ReverseSearchResult{
			Status:  "requires_api_key",
			Message: "Configure API keys for full reverse image search",
		},
		ImageHash:   imgtools.PerceptualHash(img),
		PrivacyRisk: assessment,
	}

	if p.cache != nil {
		go func() {
			cacheCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := p.cache.Set(cacheCtx, cacheKey, result); err != nil {
				p.logger.Warn("failed to cache analysis", zap.Error(err))
			}
		}()
	}

	p.stats.RecordImage(start)
	return result, nil
}

// AnalyzeVideo samples the stream and runs the per-frame path on a bounded
// worker pool. Frame results merge keyed by frame index; report order
// restores the sampled order.
func (p *Pipeline) AnalyzeVideo(ctx context.Context, src frames.VideoSource, handle *media.Handle) (*models.VideoAnalysis, error) {
	start := time.Now()

	samples, err := p.sampler.Sample(src)
	if err != nil {
		p.stats.RecordFailure()
		return nil, err
	}

	duplicateOf := p.duplicateMap(samples)

	perFrame := make([][]models.Finding, len(samples))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.video.Workers)

	for i, sample := range samples {
		if _, dup := duplicateOf[i]; dup {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perFrame[i] = p.orchestrator.AnalyzeFrame(gctx, sample)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		p.stats.RecordFailure()
		return nil, fmt.Errorf("video analysis aborted: %w", err)
	}

	// Duplicate frames reuse the findings of the frame they matched,
	// restamped with their own index.
	for i, j := range duplicateOf {
		restamped := make([]models.Finding, len(perFrame[j]))
		for k, f := range perFrame[j] {
			restamped[k] = f.WithFrameIndex(samples[i].Index)
		}
		perFrame[i] = restamped
	}

	var merged []models.Finding
	frameAnalysis := make([]models.FrameAnalysis, len(samples))
	extracted := make([]models.ExtractedFrame, len(samples))
	for i, sample := range samples {
		findings := perFrame[i]
		merged = append(merged, findings...)

		frameTally := p.scorer.Count(risk.Input{Findings: findings})
		frameAnalysis[i] = models.FrameAnalysis{
			FrameNumber: sample.Index,
			Timestamp:   sample.TimestampSeconds,
			Objects:     filterCategory(findings, models.CategoryObject),
			Landmarks: models.LandmarkSummary{
				FaceCount:    frameTally.Faces,
				HandCount:    frameTally.Hands,
				PoseDetected: frameTally.Poses > 0,
			},
			TextFindings:  filterCategory(findings, models.CategoryText),
			LocationClues: p.scorer.LocationClues(findings),
		}
		extracted[i] = models.ExtractedFrame{
			FrameNumber: sample.Index,
			Timestamp:   sample.TimestampSeconds,
			Image:       imgtools.EncodeDataURL(sample.ImageBytes, "image/jpeg"),
		}
	}

	assessment, tally := p.scorer.Assess(risk.Input{Findings: merged})
	assessment.Recommendations = p.recommender.Recommendations(assessment, tally)

	result := &models.VideoAnalysis{
		Status:          "success",
		FileInfo:        videoFileInfo(handle, src),
		ExtractedFrames: extracted,
		FrameAnalysis:   frameAnalysis,
		PrivacyRisk: models.VideoRisk{
			RiskAssessment:     assessment,
			FaceCount:          tally.Faces,
			TextDetectionCount: tally.Texts,
			LocationClueCount:  tally.LocationClues,
			LicensePlateCount:  tally.LicensePlates,
		},
	}

	p.stats.RecordVideo(start)
	return result, nil
}

// AnalyzeUnit is the live path used by the websocket handler: one frame in,
// findings plus assessment out.
func (p *Pipeline) AnalyzeUnit(ctx context.Context, data []byte) ([]models.Finding, models.RiskAssessment) {
	findings := p.orchestrator.Analyze(ctx, data)
	assessment, tally := p.scorer.Assess(risk.Input{Findings: findings})
	assessment.Recommendations = p.recommender.Recommendations(assessment, tally)
	return findings, assessment
}

// duplicateMap finds sampled frames that are perceptually identical to an
// earlier one, so the detectors run once per distinct frame. Hash failures
// leave a frame unmatched rather than skipping it.
func (p *Pipeline) duplicateMap(samples []models.FrameSample) map[int]int {
	duplicateOf := make(map[int]int)
	if p.video.DuplicateThreshold <= 0 {
		return duplicateOf
	}

	hashes := make([]*goimagehash.ImageHash, len(samples))
	for i, sample := range samples {
		img, _, err := image.Decode(bytes.NewReader(sample.ImageBytes))
		if err != nil {
			continue
		}
		hash, err := goimagehash.DifferenceHash(img)
		if err != nil {
			continue
		}
		hashes[i] = hash

		for j := 0; j < i; j++ {
			if hashes[j] == nil {
				continue
			}
			if _, dup := duplicateOf[j]; dup {
				continue
			}
			dist, err := hash.Distance(hashes[j])
			if err == nil && dist <= p.video.DuplicateThreshold {
				duplicateOf[i] = j
				p.logger.Debug("duplicate frame, reusing findings",
					zap.Int("frame", samples[i].Index),
					zap.Int("matches", samples[j].Index))
				break
			}
		}
	}

	return duplicateOf
}

// Stats returns a snapshot of processing counters.
func (p *Pipeline) Stats() StatsSnapshot {
	return p.stats.Snapshot()
}

// CacheStats reports the result-cache backend status.
func (p *Pipeline) CacheStats(ctx context.Context) (*cache.CacheStats, error) {
	if p.cache == nil {
		return nil, fmt.Errorf("cache not initialized")
	}
	return p.cache.GetStats(ctx)
}

func filterCategory(findings []models.Finding, category models.FindingCategory) []models.Finding {
	out := []models.Finding{}
	for _, f := range findings {
		if f.Category == category {
			out = append(out, f)
		}
	}
	return out
}

func imageFileInfo(handle *media.Handle, width, height int, format string) models.FileInfo {
	info := models.FileInfo{
		Filename:      handle.Filename,
		Size:          handle.Size,
		SizeFormatted: formatSize(handle.Size),
		Width:         width,
		Height:        height,
		Format:        format,
	}
	if height > 0 {
		info.AspectRatio = fmt.Sprintf("%.2f", float64(width)/float64(height))
	}
	return info
}

func videoFileInfo(handle *media.Handle, src frames.VideoSource) models.FileInfo {
	duration := 0.0
	if src.FPS() > 0 {
		duration = float64(src.TotalFrames()) / src.FPS()
	}
	return models.FileInfo{
		Filename:      handle.Filename,
		Size:          handle.Size,
		SizeFormatted: formatSize(handle.Size),
		Duration:      duration,
		FPS:           src.FPS(),
		Resolution:    fmt.Sprintf("%dx%d", src.Width(), src.Height()),
		TotalFrames:   src.TotalFrames(),
	}
}

func formatSize(size int64) string {
	if size > 1024*1024 {
		return fmt.Sprintf("%.2f MB", float64(size)/(1024*1024))
	}
	return fmt.Sprintf("%.2f KB", float64(size)/1024)
}
