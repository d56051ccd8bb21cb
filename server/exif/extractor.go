package exif

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/bep/imagemeta"
	"go.uber.org/zap"

	"github.com/priyansh-dev/privacy-lens/server/models"
)

// Result bundles the raw tag dictionary with the derived GPS and camera
// views over it.
type Result struct {
	Tags   models.RawMetadata
	GPS    *models.GPSCoordinate
	Camera *models.CameraInfo
}

// captureTags maps EXIF tag names to capture-setting keys. Absent tags are
// simply omitted from the output.
var captureTags = map[string]string{
	"ExposureTime":     "shutter_speed",
	"FNumber":          "aperture",
	"ISOSpeedRatings":  "iso",
	"FocalLength":      "focal_length",
	"WhiteBalance":     "white_balance",
	"DateTimeOriginal": "datetime",
}

type Extractor struct {
	logger *zap.Logger
}

func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract parses the embedded tag dictionary from raw image bytes.
// Unparseable or absent metadata yields empty tags, never an error.
func (e *Extractor) Extract(data []byte) Result {
	tags := models.RawMetadata{}
	values := map[string]any{}

	if len(data) > 0 {
		_, err := imagemeta.Decode(imagemeta.Options{
			R:       bytes.NewReader(data),
			Sources: imagemeta.EXIF | imagemeta.IPTC | imagemeta.XMP,
			ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
				return true
			},
			HandleTag: func(ti imagemeta.TagInfo) error {
				if s := tagValueString(ti.Value); s != "" {
					tags[ti.Tag] = s
				}
				if ti.Source == imagemeta.EXIF {
					values[ti.Tag] = ti.Value
				}
				return nil
			},
		})
		if err != nil {
			e.logger.Debug("metadata parse failed, continuing with empty tags", zap.Error(err))
		}
	}

	return Result{
		Tags:   tags,
		GPS:    decodeGPS(values),
		Camera: cameraInfo(tags),
	}
}

// decodeGPS derives a decimal coordinate from the GPS sub-tags. Both
// latitude and longitude must decode for the coordinate to be present;
// altitude is independently optional.
func decodeGPS(values map[string]any) *models.GPSCoordinate {
	lat, okLat := DecodeDMS(values["GPSLatitude"], refString(values["GPSLatitudeRef"]))
	lon, okLon := DecodeDMS(values["GPSLongitude"], refString(values["GPSLongitudeRef"]))
	if !okLat || !okLon {
		return nil
	}

	coord := &models.GPSCoordinate{Latitude: lat, Longitude: lon}
	if alt, ok := toFloat(values["GPSAltitude"]); ok {
		coord.Altitude = &alt
	}
	return coord
}

// DecodeDMS converts a GPS coordinate value to signed decimal degrees.
// The EXIF encoding is three rationals (degrees, minutes, seconds); decoders
// hand the value over in several shapes, all of which are accepted:
//
//   - float64: already decimal degrees
//   - []float64 / []any of numbers: a DMS triple
//   - string: "40/1,26/1,46/1", "[40, 26, 46]" or `40 deg 26' 46.00"`
//
// ref gives the hemisphere; South and West negate the result.
func DecodeDMS(v any, ref string) (float64, bool) {
	dec, ok := toDecimalDegrees(v)
	if !ok {
		return 0, false
	}

	ref = strings.ToUpper(strings.TrimSpace(ref))
	if strings.HasPrefix(ref, "S") || strings.HasPrefix(ref, "W") {
		if dec > 0 {
			dec = -dec
		}
	}
	return dec, true
}

func toDecimalDegrees(v any) (float64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case []float64:
		return dmsTriple(val)
	case []any:
		parts := make([]float64, 0, len(val))
		for _, p := range val {
			f, ok := toFloat(p)
			if !ok {
				return 0, false
			}
			parts = append(parts, f)
		}
		return dmsTriple(parts)
	case string:
		return parseDMSString(val)
	default:
		return 0, false
	}
}

func dmsTriple(parts []float64) (float64, bool) {
	switch len(parts) {
	case 1:
		return parts[0], true
	case 3:
		return parts[0] + parts[1]/60 + parts[2]/3600, true
	default:
		return 0, false
	}
}

// parseDMSString handles the stringified encodings seen in the wild:
// rational triples ("40/1, 26/1, 46/1"), bracketed lists ("[40, 26, 46]")
// and human-readable forms (`40 deg 26' 46.00" N`).
func parseDMSString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	cleaned := strings.NewReplacer("[", "", "]", "", "(", "", ")", "",
		"deg", " ", "°", " ", "'", " ", `"`, " ", ",", " ").Replace(s)

	var parts []float64
	for _, field := range strings.Fields(cleaned) {
		f, ok := parseRational(field)
		if !ok {
			// Trailing hemisphere letters and similar noise end the triple.
			break
		}
		parts = append(parts, f)
	}
	return dmsTriple(parts)
}

// parseRational parses "46" , "46.5" or "93/2".
func parseRational(s string) (float64, bool) {
	if num, den, found := strings.Cut(s, "/"); found {
		n, errN := strconv.ParseFloat(num, 64)
		d, errD := strconv.ParseFloat(den, 64)
		if errN != nil || errD != nil || d == 0 {
			return 0, false
		}
		return n / d, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case string:
		return parseRational(strings.TrimSpace(val))
	default:
		return 0, false
	}
}

func refString(v any) string {
	s, _ := v.(string)
	return s
}

// cameraInfo extracts device identity and capture settings by the fixed tag
// mapping. Returns nil when nothing parsed.
func cameraInfo(tags models.RawMetadata) *models.CameraInfo {
	info := &models.CameraInfo{}
	found := false

	if mk, ok := tags["Make"]; ok {
		info.Make = mk
		found = true
	}
	if model, ok := tags["Model"]; ok {
		info.Model = model
		found = true
	}

	settings := map[string]string{}
	for tag, key := range captureTags {
		if v, ok := tags[tag]; ok {
			settings[key] = v
		}
	}
	if len(settings) > 0 {
		info.CaptureSettings = settings
		found = true
	}

	if !found {
		return nil
	}
	return info
}

// tagValueString renders a tag value for the raw tag dictionary. XMP values
// may arrive as string slices; numbers are rendered without exponent noise.
func tagValueString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			if s := tagValueString(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
