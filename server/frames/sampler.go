// Package frames selects representative video frames deterministically
// under a frame budget.
package frames

import (
	"go.uber.org/zap"

	"github.com/priyansh-dev/privacy-lens/server/models"
)

// VideoSource is the codec-side contract the sampler reads from. Frame
// decoding and container parsing live behind it.
type VideoSource interface {
	TotalFrames() int
	FPS() float64
	Width() int
	Height() int
	// ReadFrame decodes the frame at the given index and returns it encoded
	// as JPEG.
	ReadFrame(index int) ([]byte, error)
	Close() error
}

type Sampler struct {
	maxFrames int
	logger    *zap.Logger
}

func NewSampler(maxFrames int, logger *zap.Logger) *Sampler {
	if maxFrames < 1 {
		maxFrames = 1
	}
	return &Sampler{maxFrames: maxFrames, logger: logger}
}

// Sample picks frames at indices 0, interval, 2*interval, ... where
// interval = max(1, totalFrames/maxFrames), stopping once maxFrames samples
// are collected or the stream is exhausted. A source reporting zero frames
// yields an empty result without error. Sample indices are strictly
// increasing and timestamps are index/fps (0 when fps is unknown).
func (s *Sampler) Sample(src VideoSource) ([]models.FrameSample, error) {
	total := src.TotalFrames()
	if total <= 0 {
		return nil, nil
	}

	interval := total / s.maxFrames
	if interval < 1 {
		interval = 1
	}

	fps := src.FPS()
	samples := make([]models.FrameSample, 0, s.maxFrames)

	for index := 0; index < total && len(samples) < s.maxFrames; index += interval {
		data, err := src.ReadFrame(index)
		if err != nil {
			s.logger.Warn("failed to read frame, skipping",
				zap.Int("index", index),
				zap.Error(err))
			continue
		}

		ts := 0.0
		if fps > 0 {
			ts = float64(index) / fps
		}

		samples = append(samples, models.FrameSample{
			Index:            index,
			TimestampSeconds: ts,
			ImageBytes:       data,
		})
	}

	return samples, nil
}
