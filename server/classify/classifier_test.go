package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/priyansh-dev/privacy-lens/server/config"
	"github.com/priyansh-dev/privacy-lens/server/models"
)

func newTestClassifier() *Classifier {
	return New(config.DefaultTunables().Classifier)
}

func TestCategoriesMultiLabel(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name       string
		text       string
		confidence float64
		want       []models.TextCategory
	}{
		{
			name:       "plate-like alphanumeric",
			text:       "ABC1234",
			confidence: 0.6,
			want: []models.TextCategory{
				models.TextLicensePlate,
				models.TextShopName, // short + leading uppercase
				models.TextGeneral,
			},
		},
		{
			name:       "street sign",
			text:       "MAIN STREET",
			confidence: 0.6,
			want: []models.TextCategory{
				models.TextStreetSign,
				models.TextShopName,
				models.TextGeneral,
			},
		},
		{
			name:       "shop keyword lowercase",
			text:       "cafe corner",
			confidence: 0.6,
			want: []models.TextCategory{
				models.TextShopName,
				models.TextGeneral,
			},
		},
		{
			name:       "high confidence short text is a signboard",
			text:       "x",
			confidence: 0.9,
			want: []models.TextCategory{
				models.TextSignboard,
				models.TextGeneral,
			},
		},
		{
			name:       "unremarkable long text",
			text:       "some unremarkable writing on a wall that matches nothing here",
			confidence: 0.3,
			want:       []models.TextCategory{models.TextGeneral},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Categories(tt.text, tt.confidence)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCategoriesGeneralAlwaysLast(t *testing.T) {
	c := newTestClassifier()

	for _, text := range []string{"", "ABC1234", "MAIN ST CAFE", "   padded   "} {
		got := c.Categories(text, 0.9)
		assert.NotEmpty(t, got)
		assert.Equal(t, models.TextGeneral, got[len(got)-1], "text %q", text)
	}
}

func TestLicensePlateRules(t *testing.T) {
	c := newTestClassifier()

	// Needs both digits and letters within the length bounds.
	assert.Contains(t, c.Categories("AB12CD", 0.6), models.TextLicensePlate)
	assert.NotContains(t, c.Categories("ABCDEF", 0.6), models.TextLicensePlate)
	assert.NotContains(t, c.Categories("123456", 0.6), models.TextLicensePlate)
	assert.NotContains(t, c.Categories("A1", 0.6), models.TextLicensePlate)
	assert.NotContains(t, c.Categories("ABCDE123456", 0.6), models.TextLicensePlate)
}
