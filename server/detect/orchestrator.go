package detect

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/priyansh-dev/privacy-lens/server/classify"
	"github.com/priyansh-dev/privacy-lens/server/config"
	"github.com/priyansh-dev/privacy-lens/server/models"
)

// Orchestrator runs every available detector over one image unit and
// normalizes the output into a single finding list. Detector absence or
// failure is never fatal; that category simply contributes zero findings.
type Orchestrator struct {
	registry            *Registry
	classifier          *classify.Classifier
	minObjectConfidence float64
	minTextConfidence   float64
	logger              *zap.Logger
}

func NewOrchestrator(registry *Registry, classifier *classify.Classifier, cfg config.DetectionTunables, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		registry:            registry,
		classifier:          classifier,
		minObjectConfidence: cfg.MinObjectConfidence,
		minTextConfidence:   cfg.MinTextConfidence,
		logger:              logger,
	}
}

// Analyze produces the normalized findings for one image unit.
func (o *Orchestrator) Analyze(ctx context.Context, image []byte) []models.Finding {
	var findings []models.Finding

	for _, capability := range o.registry.Detectors() {
		det, err := capability.Detector(ctx)
		if err != nil {
			if !errors.Is(err, ErrUnavailable) {
				o.logger.Warn("detector unavailable",
					zap.String("detector", capability.Name),
					zap.Error(err))
			}
			continue
		}

		raw, err := det.Detect(ctx, image)
		if err != nil {
			o.logger.Warn("detector failed, continuing without its findings",
				zap.String("detector", capability.Name),
				zap.Error(err))
			continue
		}

		findings = append(findings, o.normalize(raw)...)
	}

	findings = append(findings, o.entities(ctx, findings)...)

	return findings
}

// AnalyzeFrame runs Analyze for one sampled video frame and stamps every
// finding with the source frame index so results merge order-independently.
func (o *Orchestrator) AnalyzeFrame(ctx context.Context, sample models.FrameSample) []models.Finding {
	raw := o.Analyze(ctx, sample.ImageBytes)
	findings := make([]models.Finding, len(raw))
	for i, f := range raw {
		findings[i] = f.WithFrameIndex(sample.Index)
	}
	return findings
}

// normalize drops findings below the per-category confidence floor, clamps
// confidence into [0,1], and classifies text fragments.
func (o *Orchestrator) normalize(raw []models.Finding) []models.Finding {
	out := make([]models.Finding, 0, len(raw))
	for _, f := range raw {
		switch f.Category {
		case models.CategoryObject:
			if f.Confidence < o.minObjectConfidence {
				continue
			}
		case models.CategoryText:
			if f.Confidence < o.minTextConfidence {
				continue
			}
		}

		if f.Confidence < 0 {
			f.Confidence = 0
		} else if f.Confidence > 1 {
			f.Confidence = 1
		}

		if f.Category == models.CategoryText {
			f.TextCategories = o.classifier.Categories(f.Label, f.Confidence)
		}

		out = append(out, f)
	}
	return out
}

// entities feeds recognized text through the entity extractor when that
// capability is present. Entity mentions join the finding list as general
// text findings.
func (o *Orchestrator) entities(ctx context.Context, findings []models.Finding) []models.Finding {
	var texts []string
	for _, f := range findings {
		if f.Category == models.CategoryText {
			texts = append(texts, f.Label)
		}
	}
	if len(texts) == 0 {
		return nil
	}

	extractor, err := o.registry.Entity(ctx)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			o.logger.Warn("entity extractor unavailable", zap.Error(err))
		}
		return nil
	}

	mentions, err := extractor.Extract(ctx, texts)
	if err != nil {
		o.logger.Warn("entity extraction failed, continuing without mentions", zap.Error(err))
		return nil
	}

	out := make([]models.Finding, 0, len(mentions))
	for _, m := range mentions {
		if m.Confidence < 0 {
			m.Confidence = 0
		} else if m.Confidence > 1 {
			m.Confidence = 1
		}
		m.TextCategories = []models.TextCategory{models.TextGeneral}
		out = append(out, m)
	}
	return out
}
