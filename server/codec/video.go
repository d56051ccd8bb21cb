// Package codec wraps OpenCV video decoding behind the frames.VideoSource
// contract.
package codec

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrOpen marks a video that the container/codec layer cannot open at all.
// This is fatal for the request.
var ErrOpen = errors.New("codec: cannot open video")

// VideoFile reads frames from a video on disk. Not safe for concurrent use;
// the sampler reads it sequentially before any per-frame concurrency starts.
type VideoFile struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
	total   int
	fps     float64
	width   int
	height  int
}

func OpenVideo(path string) (*VideoFile, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: %s", ErrOpen, path)
	}

	return &VideoFile{
		capture: capture,
		mat:     gocv.NewMat(),
		total:   int(capture.Get(gocv.VideoCaptureFrameCount)),
		fps:     capture.Get(gocv.VideoCaptureFPS),
		width:   int(capture.Get(gocv.VideoCaptureFrameWidth)),
		height:  int(capture.Get(gocv.VideoCaptureFrameHeight)),
	}, nil
}

func (v *VideoFile) TotalFrames() int { return v.total }
func (v *VideoFile) FPS() float64     { return v.fps }
func (v *VideoFile) Width() int       { return v.width }
func (v *VideoFile) Height() int      { return v.height }

// Duration is the stream length in seconds, 0 when fps is unknown.
func (v *VideoFile) Duration() float64 {
	if v.fps <= 0 {
		return 0
	}
	return float64(v.total) / v.fps
}

// ReadFrame seeks to the given frame index and returns it JPEG-encoded.
func (v *VideoFile) ReadFrame(index int) ([]byte, error) {
	if !v.capture.Set(gocv.VideoCapturePosFrames, float64(index)) {
		return nil, fmt.Errorf("codec: seek to frame %d failed", index)
	}
	if ok := v.capture.Read(&v.mat); !ok || v.mat.Empty() {
		return nil, fmt.Errorf("codec: read frame %d failed", index)
	}

	buf, err := gocv.IMEncode(".jpg", v.mat)
	if err != nil {
		return nil, fmt.Errorf("codec: encode frame %d failed: %w", index, err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

func (v *VideoFile) Close() error {
	v.mat.Close()
	return v.capture.Close()
}
