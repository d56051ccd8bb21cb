package models

// RiskLevel is the discrete privacy risk rating derived from the score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// RiskAssessment is the reduced privacy verdict. Score and level are pure
// functions of the metadata and findings that went in.
type RiskAssessment struct {
	Score           int       `json:"score"`
	Level           RiskLevel `json:"level"`
	Factors         []string  `json:"factors"`
	Recommendations []string  `json:"recommendations"`
}

// LandmarkSummary mirrors the landmark detector's per-unit counts.
type LandmarkSummary struct {
	FaceCount    int  `json:"face_count"`
	HandCount    int  `json:"hand_count"`
	PoseDetected bool `json:"pose_detected"`
}

// FileInfo describes the uploaded artifact itself.
type FileInfo struct {
	Filename      string  `json:"filename"`
	Size          int64   `json:"size"`
	SizeFormatted string  `json:"size_formatted"`
	Width         int     `json:"width,omitempty"`
	Height        int     `json:"height,omitempty"`
	AspectRatio   string  `json:"aspect_ratio,omitempty"`
	Format        string  `json:"format,omitempty"`
	Duration      float64 `json:"duration,omitempty"`
	FPS           float64 `json:"fps,omitempty"`
	Resolution    string  `json:"resolution,omitempty"`
	TotalFrames   int     `json:"total_frames,omitempty"`
}

// ReverseSearchResult is the reverse image search block. The search backend
// is a declared capability that is absent without API credentials.
type ReverseSearchResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ImageAnalysis is the full single-image report.
type ImageAnalysis struct {
	Status            string               `json:"status"`
	FileInfo          FileInfo             `json:"file_info"`
	EXIFData          RawMetadata          `json:"exif_data"`
	GPSData           *GPSCoordinate       `json:"gps_data"`
	CameraInfo        *CameraInfo          `json:"camera_info"`
	ObjectsDetected   []Finding            `json:"objects_detected"`
	LandmarksDetected LandmarkSummary      `json:"landmarks_detected"`
	TextDetections    []Finding            `json:"text_detections"`
	LocationClues     []Finding            `json:"location_clues"`
	ReverseSearch     *ReverseSearchResult `json:"reverse_search,omitempty"`
	ImageHash         string               `json:"image_hash"`
	PrivacyRisk       RiskAssessment       `json:"privacy_risk"`
}

// FrameAnalysis is the per-frame slice of a video report.
type FrameAnalysis struct {
	FrameNumber   int             `json:"frame_number"`
	Timestamp     float64         `json:"timestamp"`
	Objects       []Finding       `json:"objects"`
	Landmarks     LandmarkSummary `json:"landmarks"`
	TextFindings  []Finding       `json:"text_detections"`
	LocationClues []Finding       `json:"location_clues"`
}

// ExtractedFrame is one sampled frame returned to the client as a data URL.
type ExtractedFrame struct {
	FrameNumber int     `json:"frame_number"`
	Timestamp   float64 `json:"timestamp"`
	Image       string  `json:"image"`
}

// VideoAnalysis is the full video report.
type VideoAnalysis struct {
	Status          string           `json:"status"`
	FileInfo        FileInfo         `json:"file_info"`
	ExtractedFrames []ExtractedFrame `json:"extracted_frames"`
	FrameAnalysis   []FrameAnalysis  `json:"frame_analysis"`
	PrivacyRisk     VideoRisk        `json:"privacy_risk"`
}

// VideoRisk extends the assessment with the aggregate counts the frontend
// renders alongside the score.
type VideoRisk struct {
	RiskAssessment
	FaceCount          int `json:"face_count"`
	TextDetectionCount int `json:"text_detections_count"`
	LocationClueCount  int `json:"location_clues_count"`
	LicensePlateCount  int `json:"license_plates_count"`
}
