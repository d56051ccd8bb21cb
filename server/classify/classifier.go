package classify

import (
	"strings"
	"unicode"

	"github.com/priyansh-dev/privacy-lens/server/config"
	"github.com/priyansh-dev/privacy-lens/server/models"
)

// Classifier assigns pattern-based categories to OCR text fragments. The
// rules are independent booleans, so one fragment routinely lands in several
// buckets; location-clue aggregation counts on that.
type Classifier struct {
	cfg config.ClassifierTunables
}

func New(cfg config.ClassifierTunables) *Classifier {
	return &Classifier{cfg: cfg}
}

// Categories returns every category the fragment matches. General is always
// included, so the result is never empty.
func (c *Classifier) Categories(text string, confidence float64) []models.TextCategory {
	text = strings.TrimSpace(text)
	upper := strings.ToUpper(text)
	length := len([]rune(text))

	var cats []models.TextCategory

	if c.isLicensePlate(text, length) {
		cats = append(cats, models.TextLicensePlate)
	}
	if containsAny(upper, c.cfg.StreetKeywords) {
		cats = append(cats, models.TextStreetSign)
	}
	if c.isShopName(text, upper, length) {
		cats = append(cats, models.TextShopName)
	}
	if confidence > c.cfg.SignboardMinConf && length <= c.cfg.SignboardMaxLength {
		cats = append(cats, models.TextSignboard)
	}

	return append(cats, models.TextGeneral)
}

func (c *Classifier) isLicensePlate(text string, length int) bool {
	if length < c.cfg.PlateMinLength || length > c.cfg.PlateMaxLength {
		return false
	}
	var hasDigit, hasLetter bool
	for _, r := range text {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLetter(r):
			hasLetter = true
		}
	}
	return hasDigit && hasLetter
}

// isShopName matches business keywords, or falls back to a deliberately
// broad heuristic: short text starting with an uppercase letter.
func (c *Classifier) isShopName(text, upper string, length int) bool {
	if containsAny(upper, c.cfg.ShopKeywords) {
		return true
	}
	if length == 0 || length > c.cfg.ShopNameMaxLength {
		return false
	}
	first := []rune(text)[0]
	return unicode.IsUpper(first)
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
