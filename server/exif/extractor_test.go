package exif

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDecodeDMS(t *testing.T) {
	tests := []struct {
		name  string
		value any
		ref   string
		want  float64
		ok    bool
	}{
		{"triple north", []float64{40, 26, 46}, "N", 40.446111, true},
		{"triple south negates", []float64{40, 26, 46}, "S", -40.446111, true},
		{"triple west negates", []any{79.0, 58.0, 56.0}, "W", -79.982222, true},
		{"already decimal", 40.446111, "N", 40.446111, true},
		{"float32 decimal", float32(12.5), "E", 12.5, true},
		{"rational string", "40/1, 26/1, 46/1", "W", -40.446111, true},
		{"bracketed string", "[40, 26, 46]", "N", 40.446111, true},
		{"human readable", `40 deg 26' 46.00" N`, "N", 40.446111, true},
		{"fractional seconds", "93/2, 0/1, 0/1", "S", -46.5, true},
		{"nil value", nil, "N", 0, false},
		{"garbage string", "not a coordinate", "N", 0, false},
		{"empty string", "", "N", 0, false},
		{"two element triple", []float64{40, 26}, "N", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodeDMS(tt.value, tt.ref)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-4)
			}
		})
	}
}

func TestDecodeDMSRefDoesNotDoubleNegate(t *testing.T) {
	// Some writers already store a signed decimal; a southern ref must not
	// flip it back to positive.
	got, ok := DecodeDMS(-33.8688, "S")
	require.True(t, ok)
	assert.InDelta(t, -33.8688, got, 1e-6)
}

func TestExtractToleratesGarbage(t *testing.T) {
	e := NewExtractor(zap.NewNop())

	for _, data := range [][]byte{nil, {}, []byte("definitely not an image")} {
		result := e.Extract(data)

		assert.NotNil(t, result.Tags)
		assert.Empty(t, result.Tags)
		assert.Nil(t, result.GPS)
		assert.Nil(t, result.Camera)
	}
}
