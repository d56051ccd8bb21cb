package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tunables are the data-driven analysis tables: risk weights, classifier
// keyword sets, and confidence thresholds. They ship with defaults and can be
// overridden from a YAML file without touching pipeline code.
type Tunables struct {
	Risk       RiskTunables       `yaml:"risk" json:"risk"`
	Classifier ClassifierTunables `yaml:"classifier" json:"classifier"`
	Detection  DetectionTunables  `yaml:"detection" json:"detection"`
	Video      VideoTunables      `yaml:"video" json:"video"`
	Strip      StripTunables      `yaml:"strip" json:"strip"`
}

// RiskTunables is the canonical additive weight table.
type RiskTunables struct {
	Baseline            int `yaml:"baseline" json:"baseline"`
	GPSPresent          int `yaml:"gps_present" json:"gps_present"`
	CameraInfo          int `yaml:"camera_info" json:"camera_info"`
	ManyObjects         int `yaml:"many_objects" json:"many_objects"`
	Faces               int `yaml:"faces" json:"faces"`
	Hands               int `yaml:"hands" json:"hands"`
	LicensePlates       int `yaml:"license_plates" json:"license_plates"`
	TextVolume          int `yaml:"text_volume" json:"text_volume"`
	LocationClues       int `yaml:"location_clues" json:"location_clues"`
	MetadataVolume      int `yaml:"metadata_volume" json:"metadata_volume"`
	ManyObjectsOver     int `yaml:"many_objects_over" json:"many_objects_over"`
	TextVolumeOver      int `yaml:"text_volume_over" json:"text_volume_over"`
	LocationCluesOver   int `yaml:"location_clues_over" json:"location_clues_over"`
	MetadataVolumeOver  int `yaml:"metadata_volume_over" json:"metadata_volume_over"`
	HighThreshold       int `yaml:"high_threshold" json:"high_threshold"`
	MediumThreshold     int `yaml:"medium_threshold" json:"medium_threshold"`
}

type ClassifierTunables struct {
	StreetKeywords     []string `yaml:"street_keywords" json:"street_keywords"`
	ShopKeywords       []string `yaml:"shop_keywords" json:"shop_keywords"`
	PlateMinLength     int      `yaml:"plate_min_length" json:"plate_min_length"`
	PlateMaxLength     int      `yaml:"plate_max_length" json:"plate_max_length"`
	ShopNameMaxLength  int      `yaml:"shop_name_max_length" json:"shop_name_max_length"`
	SignboardMinConf   float64  `yaml:"signboard_min_confidence" json:"signboard_min_confidence"`
	SignboardMaxLength int      `yaml:"signboard_max_length" json:"signboard_max_length"`
}

type DetectionTunables struct {
	MinObjectConfidence float64  `yaml:"min_object_confidence" json:"min_object_confidence"`
	MinTextConfidence   float64  `yaml:"min_text_confidence" json:"min_text_confidence"`
	LocationLabels      []string `yaml:"location_labels" json:"location_labels"`
}

type VideoTunables struct {
	MaxFrames          int `yaml:"max_frames" json:"max_frames"`
	Workers            int `yaml:"workers" json:"workers"`
	DuplicateThreshold int `yaml:"duplicate_threshold" json:"duplicate_threshold"`
}

type StripTunables struct {
	JPEGQuality int `yaml:"jpeg_quality" json:"jpeg_quality"`
}

func DefaultTunables() Tunables {
	return Tunables{
		Risk: RiskTunables{
			Baseline:           10,
			GPSPresent:         40,
			CameraInfo:         15,
			ManyObjects:        10,
			Faces:              20,
			Hands:              10,
			LicensePlates:      30,
			TextVolume:         15,
			LocationClues:      10,
			MetadataVolume:     10,
			ManyObjectsOver:    5,
			TextVolumeOver:     10,
			LocationCluesOver:  5,
			MetadataVolumeOver: 50,
			HighThreshold:      60,
			MediumThreshold:    40,
		},
		Classifier: ClassifierTunables{
			StreetKeywords: []string{
				"STREET", "AVE", "AVENUE", "RD", "ROAD", "BLVD", "BOULEVARD",
				"DR", "DRIVE", "LN", "LANE", "CT", "COURT", "PL", "PLACE",
				"SQ", "SQUARE",
			},
			ShopKeywords: []string{
				"STORE", "SHOP", "MART", "MARKET", "CAFE", "RESTAURANT",
				"HOTEL", "MOTEL", "GAS", "STATION", "PHARMACY", "BANK", "ATM",
			},
			PlateMinLength:     5,
			PlateMaxLength:     10,
			ShopNameMaxLength:  30,
			SignboardMinConf:   0.8,
			SignboardMaxLength: 50,
		},
		Detection: DetectionTunables{
			MinObjectConfidence: 0.3,
			MinTextConfidence:   0.5,
			LocationLabels: []string{
				"traffic light", "fire hydrant", "stop sign", "parking meter",
				"bench", "building", "house", "apartment", "hotel", "museum",
				"car", "truck", "bus", "motorcycle", "bicycle", "train", "boat",
				"tree", "potted plant", "flower", "mountain", "beach",
				"bridge", "tunnel", "road", "sidewalk", "street",
			},
		},
		Video: VideoTunables{
			MaxFrames:          5,
			Workers:            4,
			DuplicateThreshold: 4,
		},
		Strip: StripTunables{
			JPEGQuality: 95,
		},
	}
}

// LoadFile overlays tunables from a YAML file on top of the current values.
// Absent keys keep their defaults.
func (t *Tunables) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read tunables: %w", err)
	}
	if err := yaml.Unmarshal(data, t); err != nil {
		return fmt.Errorf("failed to parse tunables: %w", err)
	}
	return nil
}

func (t *Tunables) Validate() error {
	if t.Risk.HighThreshold <= t.Risk.MediumThreshold {
		return fmt.Errorf("risk high threshold must exceed medium threshold")
	}
	if t.Classifier.PlateMinLength > t.Classifier.PlateMaxLength {
		return fmt.Errorf("plate length bounds are inverted")
	}
	if t.Detection.MinObjectConfidence < 0 || t.Detection.MinObjectConfidence > 1 ||
		t.Detection.MinTextConfidence < 0 || t.Detection.MinTextConfidence > 1 {
		return fmt.Errorf("confidence thresholds must be within [0,1]")
	}
	if t.Video.MaxFrames < 1 {
		return fmt.Errorf("video max frames must be at least 1")
	}
	if t.Video.Workers < 1 {
		return fmt.Errorf("video workers must be at least 1")
	}
	if t.Strip.JPEGQuality < 1 || t.Strip.JPEGQuality > 100 {
		return fmt.Errorf("strip jpeg quality must be within [1,100]")
	}
	return nil
}
