package risk

import (
	"strings"

	"github.com/priyansh-dev/privacy-lens/server/config"
	"github.com/priyansh-dev/privacy-lens/server/models"
)

// Factor names recorded on triggered signals. Stable identifiers: the
// recommendation generator and API clients key off them.
const (
	FactorGPS            = "gps_present"
	FactorCamera         = "camera_info"
	FactorManyObjects    = "many_objects"
	FactorFaces          = "faces_detected"
	FactorHands          = "hands_detected"
	FactorLicensePlates  = "license_plates"
	FactorTextVolume     = "text_volume"
	FactorLocationClues  = "location_clues"
	FactorMetadataVolume = "metadata_volume"
)

// Input is everything the scorer reduces. Identical inputs always produce
// identical assessments.
type Input struct {
	GPS      *models.GPSCoordinate
	Camera   *models.CameraInfo
	Findings []models.Finding
	TagCount int
}

// Tally is the per-signal count breakdown derived from the findings.
type Tally struct {
	Objects       int
	Faces         int
	Hands         int
	Poses         int
	Texts         int
	LicensePlates int
	LocationClues int
	TagCount      int
	GPS           bool
	Camera        bool
}

// Scorer reduces metadata and findings to a deterministic additive score.
type Scorer struct {
	weights        config.RiskTunables
	locationLabels map[string]bool
}

func NewScorer(weights config.RiskTunables, locationLabels []string) *Scorer {
	labels := make(map[string]bool, len(locationLabels))
	for _, l := range locationLabels {
		labels[strings.ToLower(l)] = true
	}
	return &Scorer{weights: weights, locationLabels: labels}
}

// Count builds the signal tally for an input.
func (s *Scorer) Count(in Input) Tally {
	t := Tally{
		TagCount: in.TagCount,
		GPS:      in.GPS != nil,
		Camera:   in.Camera != nil,
	}

	for _, f := range in.Findings {
		switch f.Category {
		case models.CategoryObject:
			t.Objects++
			if s.locationLabels[strings.ToLower(f.Label)] {
				t.LocationClues++
			}
		case models.CategoryFace:
			t.Faces++
		case models.CategoryHand:
			t.Hands++
		case models.CategoryPose:
			t.Poses++
		case models.CategoryText:
			t.Texts++
			if f.HasTextCategory(models.TextLicensePlate) {
				t.LicensePlates++
			}
			if f.HasTextCategory(models.TextStreetSign) || f.HasTextCategory(models.TextShopName) {
				t.LocationClues++
			}
		}
	}

	return t
}

// Assess produces the score, level, and triggered-factor set. The score is
// clamped to [0,100] after summation. Recommendations are filled in by the
// Recommender, not here.
func (s *Scorer) Assess(in Input) (models.RiskAssessment, Tally) {
	t := s.Count(in)
	w := s.weights

	score := w.Baseline
	factors := []string{}

	addIf := func(cond bool, weight int, factor string) {
		if cond {
			score += weight
			factors = append(factors, factor)
		}
	}

	addIf(t.GPS, w.GPSPresent, FactorGPS)
	addIf(t.Camera, w.CameraInfo, FactorCamera)
	addIf(t.Objects > w.ManyObjectsOver, w.ManyObjects, FactorManyObjects)
	addIf(t.Faces > 0, w.Faces, FactorFaces)
	addIf(t.Hands > 0, w.Hands, FactorHands)
	addIf(t.LicensePlates > 0, w.LicensePlates, FactorLicensePlates)
	addIf(t.Texts > w.TextVolumeOver, w.TextVolume, FactorTextVolume)
	addIf(t.LocationClues > w.LocationCluesOver, w.LocationClues, FactorLocationClues)
	addIf(t.TagCount > w.MetadataVolumeOver, w.MetadataVolume, FactorMetadataVolume)

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return models.RiskAssessment{
		Score:   score,
		Level:   s.level(score),
		Factors: factors,
	}, t
}

// LocationClues selects the findings that count as location clues: objects
// whose label is in the configured location table, plus street-sign and
// shop-name text fragments.
func (s *Scorer) LocationClues(findings []models.Finding) []models.Finding {
	var clues []models.Finding
	for _, f := range findings {
		switch f.Category {
		case models.CategoryObject:
			if s.locationLabels[strings.ToLower(f.Label)] {
				clues = append(clues, f)
			}
		case models.CategoryText:
			if f.HasTextCategory(models.TextStreetSign) || f.HasTextCategory(models.TextShopName) {
				clues = append(clues, f)
			}
		}
	}
	return clues
}

func (s *Scorer) level(score int) models.RiskLevel {
	switch {
	case score >= s.weights.HighThreshold:
		return models.RiskHigh
	case score >= s.weights.MediumThreshold:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
