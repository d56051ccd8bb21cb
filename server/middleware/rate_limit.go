package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimiter applies a per-client token bucket keyed by IP. Analysis
// requests are expensive, so the bucket refills slowly and idle clients are
// evicted in the background.
type RateLimiter struct {
	clients    map[string]*clientBucket
	mutex      sync.RWMutex
	cleanup    *time.Ticker
	stopCh     chan struct{}
	logger     *zap.Logger
	defaultRPS int
	burst      int
}

type clientBucket struct {
	tokens     float64
	lastUpdate time.Time
	mutex      sync.Mutex
}

func NewRateLimiter(defaultRPS, burst int, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		clients:    make(map[string]*clientBucket),
		stopCh:     make(chan struct{}),
		defaultRPS: defaultRPS,
		burst:      burst,
		logger:     logger,
	}

	rl.cleanup = time.NewTicker(5 * time.Minute)
	go rl.cleanupExpiredClients()

	return rl
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if !rl.allowRequest(clientIP) {
			rl.logger.Warn("rate limit exceeded",
				zap.String("client_ip", clientIP),
				zap.String("path", c.Request.URL.Path))

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": 60,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) allowRequest(clientIP string) bool {
	rl.mutex.Lock()
	bucket, exists := rl.clients[clientIP]
	if !exists {
		bucket = &clientBucket{
			tokens:     float64(rl.burst),
			lastUpdate: time.Now(),
		}
		rl.clients[clientIP] = bucket
	}
	rl.mutex.Unlock()

	return bucket.take(rl.defaultRPS, rl.burst)
}

func (cb *clientBucket) take(rps, burst int) bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	now := time.Now()
	elapsed := now.Sub(cb.lastUpdate)
	cb.lastUpdate = now

	cb.tokens += elapsed.Seconds() * float64(rps)
	if cb.tokens > float64(burst) {
		cb.tokens = float64(burst)
	}

	if cb.tokens >= 1 {
		cb.tokens--
		return true
	}
	return false
}

func (rl *RateLimiter) cleanupExpiredClients() {
	for {
		select {
		case <-rl.cleanup.C:
			rl.mutex.Lock()
			now := time.Now()
			for ip, bucket := range rl.clients {
				bucket.mutex.Lock()
				if now.Sub(bucket.lastUpdate) > 10*time.Minute {
					delete(rl.clients, ip)
				}
				bucket.mutex.Unlock()
			}
			rl.mutex.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) GetGlobalStats() map[string]any {
	rl.mutex.RLock()
	defer rl.mutex.RUnlock()

	return map[string]any{
		"active_clients": len(rl.clients),
		"default_rps":    rl.defaultRPS,
		"burst_capacity": rl.burst,
	}
}

func (rl *RateLimiter) Shutdown() {
	if rl.cleanup != nil {
		rl.cleanup.Stop()
	}
	close(rl.stopCh)
}
