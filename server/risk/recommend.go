package risk

import (
	"fmt"

	"github.com/priyansh-dev/privacy-lens/server/models"
)

// Recommender maps triggered factors to ordered advisory strings. One line
// per triggered factor, in fixed priority order, followed by exactly one
// closing line keyed by risk level.
type Recommender struct{}

func NewRecommender() *Recommender {
	return &Recommender{}
}

func (r *Recommender) Recommendations(assessment models.RiskAssessment, t Tally) []string {
	triggered := make(map[string]bool, len(assessment.Factors))
	for _, f := range assessment.Factors {
		triggered[f] = true
	}

	var recs []string

	if triggered[FactorGPS] {
		recs = append(recs, "GPS location data detected - consider removing before sharing")
	}
	if triggered[FactorCamera] {
		recs = append(recs, "Camera information detected - model and settings exposed")
	}
	if triggered[FactorFaces] {
		recs = append(recs, fmt.Sprintf("%d face(s) detected - consider blurring before sharing", t.Faces))
	}
	if triggered[FactorHands] {
		recs = append(recs, fmt.Sprintf("%d hand(s) detected", t.Hands))
	}
	if triggered[FactorLicensePlates] {
		recs = append(recs, fmt.Sprintf("Detected %d license plate(s) - consider blurring", t.LicensePlates))
	}
	if triggered[FactorManyObjects] {
		recs = append(recs, fmt.Sprintf("%d objects detected - review for identifiable content", t.Objects))
	}
	if triggered[FactorTextVolume] || triggered[FactorLocationClues] {
		recs = append(recs, fmt.Sprintf("Found %d text element(s) and %d location clue(s)", t.Texts, t.LocationClues))
	}
	if triggered[FactorMetadataVolume] {
		recs = append(recs, fmt.Sprintf("Extensive metadata (%d tags) present", t.TagCount))
	}

	return append(recs, r.closing(assessment))
}

// closing picks the single level-keyed advisory. LOW is reassuring only when
// nothing triggered at all.
func (r *Recommender) closing(assessment models.RiskAssessment) string {
	switch assessment.Level {
	case models.RiskHigh:
		return "HIGH RISK: Remove all metadata and consider re-encoding before sharing"
	case models.RiskMedium:
		return "MEDIUM RISK: Consider removing metadata before sharing"
	default:
		if len(assessment.Factors) == 0 {
			return "LOW RISK: Generally safe to share, but review content"
		}
		return "LOW RISK: Minor signals detected - review before sharing"
	}
}
