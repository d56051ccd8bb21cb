// Package detect invokes external detector capabilities and normalizes
// their raw output into findings.
package detect

import (
	"context"

	"github.com/priyansh-dev/privacy-lens/server/models"
)

// Detector is the common contract every detection capability implements.
// Implementations normalize their own wire format into findings; the
// orchestrator applies confidence filtering and text classification on top.
type Detector interface {
	Name() string
	Detect(ctx context.Context, image []byte) ([]models.Finding, error)
}

// EntityExtractor mines entity mentions out of recognized text. It is a
// text-side capability, separate from the image detectors.
type EntityExtractor interface {
	Name() string
	Extract(ctx context.Context, texts []string) ([]models.Finding, error)
}
