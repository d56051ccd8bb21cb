package processor

import (
	"sync"
	"time"
)

// Stats tracks processing counters across requests. Latency is a running
// exponential moving average.
type Stats struct {
	mutex          sync.RWMutex
	startTime      time.Time
	imagesAnalyzed int64
	videosAnalyzed int64
	failed         int64
	averageLatency float64
}

type StatsSnapshot struct {
	StartTime      time.Time `json:"start_time"`
	ImagesAnalyzed int64     `json:"images_analyzed"`
	VideosAnalyzed int64     `json:"videos_analyzed"`
	Failed         int64     `json:"failed"`
	AverageLatency float64   `json:"average_latency_ms"`
	UptimeSeconds  float64   `json:"uptime_seconds"`
}

func NewStats() *Stats {
	return &Stats{startTime: time.Now()}
}

func (s *Stats) RecordImage(start time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.imagesAnalyzed++
	s.updateLatency(time.Since(start))
}

func (s *Stats) RecordVideo(start time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.videosAnalyzed++
	s.updateLatency(time.Since(start))
}

func (s *Stats) RecordFailure() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.failed++
}

func (s *Stats) updateLatency(latency time.Duration) {
	current := float64(latency.Milliseconds())
	if s.averageLatency == 0 {
		s.averageLatency = current
		return
	}
	alpha := 0.1
	s.averageLatency = alpha*current + (1-alpha)*s.averageLatency
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return StatsSnapshot{
		StartTime:      s.startTime,
		ImagesAnalyzed: s.imagesAnalyzed,
		VideosAnalyzed: s.videosAnalyzed,
		Failed:         s.failed,
		AverageLatency: s.averageLatency,
		UptimeSeconds:  time.Since(s.startTime).Seconds(),
	}
}
