package detect

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/priyansh-dev/privacy-lens/server/config"
)

// ErrUnavailable marks a capability that was never configured.
var ErrUnavailable = errors.New("detect: capability unavailable")

// Capability is one registered detector with guarded at-most-once
// initialization. The first caller performs the load; concurrent callers
// block on the same load and then share the outcome, including a failed one.
type Capability struct {
	Name      string
	Available bool

	load func(ctx context.Context) (Detector, error)
	once sync.Once
	det  Detector
	err  error
}

// Detector returns the loaded detector, triggering the one-time load on
// first use.
func (c *Capability) Detector(ctx context.Context) (Detector, error) {
	if !c.Available {
		return nil, ErrUnavailable
	}
	c.once.Do(func() {
		c.det, c.err = c.load(ctx)
	})
	return c.det, c.err
}

// entityCapability mirrors Capability for the text-side extractor.
type entityCapability struct {
	available bool
	load      func(ctx context.Context) (EntityExtractor, error)
	once      sync.Once
	extractor EntityExtractor
	err       error
}

func (c *entityCapability) get(ctx context.Context) (EntityExtractor, error) {
	if !c.available {
		return nil, ErrUnavailable
	}
	c.once.Do(func() {
		c.extractor, c.err = c.load(ctx)
	})
	return c.extractor, c.err
}

// Registry holds the process-wide capability set. Built once at startup;
// individual detectors load lazily.
type Registry struct {
	caps   []*Capability
	entity *entityCapability
	logger *zap.Logger
}

func NewRegistry(cfg config.DetectorsConfig, logger *zap.Logger) *Registry {
	r := &Registry{logger: logger}

	r.caps = []*Capability{
		newCapability("object", cfg.ObjectURL, cfg, logger, func(url string) Detector {
			return NewObjectClient(url, cfg, logger)
		}),
		newCapability("landmark", cfg.LandmarkURL, cfg, logger, func(url string) Detector {
			return NewLandmarkClient(url, cfg, logger)
		}),
		newCapability("ocr", cfg.OCRURL, cfg, logger, func(url string) Detector {
			return NewTextClient(url, cfg, logger)
		}),
	}

	r.entity = &entityCapability{
		available: cfg.EntityURL != "",
		load: func(ctx context.Context) (EntityExtractor, error) {
			client := NewEntityClient(cfg.EntityURL, cfg, logger)
			probeHealth(ctx, client.httpDetector, logger)
			return client, nil
		},
	}

	return r
}

func newCapability(name, url string, cfg config.DetectorsConfig, logger *zap.Logger, build func(string) Detector) *Capability {
	return &Capability{
		Name:      name,
		Available: url != "",
		load: func(ctx context.Context) (Detector, error) {
			det := build(url)
			if hc, ok := det.(interface {
				HealthCheck(context.Context) error
			}); ok {
				probeHealth(ctx, hc, logger)
			}
			return det, nil
		},
	}
}

// probeHealth warns when a configured sidecar is unreachable at first use.
// The capability stays registered; individual calls degrade per request.
func probeHealth(ctx context.Context, hc interface {
	HealthCheck(context.Context) error
}, logger *zap.Logger) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := hc.HealthCheck(probeCtx); err != nil {
		logger.Warn("detector sidecar not healthy at first use", zap.Error(err))
	}
}

// Detectors lists the image-side capabilities in registration order.
func (r *Registry) Detectors() []*Capability {
	return r.caps
}

// Entity returns the entity extractor, loading it on first use.
func (r *Registry) Entity(ctx context.Context) (EntityExtractor, error) {
	return r.entity.get(ctx)
}

// Status reports availability per capability for diagnostics.
func (r *Registry) Status() map[string]bool {
	status := make(map[string]bool, len(r.caps)+1)
	for _, c := range r.caps {
		status[c.Name] = c.Available
	}
	status["entity"] = r.entity.available
	return status
}
