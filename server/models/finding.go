package models

// MediaKind declares what an uploaded file claims to be.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// FindingCategory identifies which detector family produced a finding.
type FindingCategory string

const (
	CategoryObject FindingCategory = "object"
	CategoryFace   FindingCategory = "face"
	CategoryHand   FindingCategory = "hand"
	CategoryPose   FindingCategory = "pose"
	CategoryText   FindingCategory = "text"
)

// TextCategory is a set-valued tag on text findings. A single text finding
// may carry several categories at once; the classification rules are
// independent, and downstream aggregation (location clues) depends on a
// fragment appearing in more than one bucket.
type TextCategory string

const (
	TextLicensePlate TextCategory = "license_plate"
	TextStreetSign   TextCategory = "street_sign"
	TextShopName     TextCategory = "shop_name"
	TextSignboard    TextCategory = "signboard"
	TextGeneral      TextCategory = "general"
)

// Rect is an axis-aligned bounding region in pixel coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Finding is one normalized unit of detected content. Findings are built
// once by the orchestrator and never mutated afterwards.
type Finding struct {
	Category       FindingCategory `json:"category"`
	Label          string          `json:"label"`
	Confidence     float64         `json:"confidence"`
	Region         *Rect           `json:"region,omitempty"`
	TextCategories []TextCategory  `json:"text_categories,omitempty"`
	FrameIndex     *int            `json:"frame_index,omitempty"`
}

// HasTextCategory reports whether the finding carries the given tag.
func (f Finding) HasTextCategory(tc TextCategory) bool {
	for _, c := range f.TextCategories {
		if c == tc {
			return true
		}
	}
	return false
}

// WithFrameIndex returns a copy of the finding stamped with the source
// frame index.
func (f Finding) WithFrameIndex(index int) Finding {
	idx := index
	f.FrameIndex = &idx
	return f
}

// RawMetadata is the full tag dictionary parsed out of an image. May be
// empty; never nil in responses.
type RawMetadata map[string]string

// GPSCoordinate is a decoded geographic position in decimal degrees.
// Present only when both latitude and longitude decoded successfully.
type GPSCoordinate struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty"`
}

// CameraInfo captures device identity and capture settings pulled from
// metadata. Present only when at least one field parsed.
type CameraInfo struct {
	Make            string            `json:"make,omitempty"`
	Model           string            `json:"model,omitempty"`
	CaptureSettings map[string]string `json:"capture_settings,omitempty"`
}

// FrameSample is one deterministically selected video frame.
type FrameSample struct {
	Index            int     `json:"frame_number"`
	TimestampSeconds float64 `json:"timestamp"`
	ImageBytes       []byte  `json:"-"`
}
