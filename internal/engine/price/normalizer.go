// Package price converts scraped price text into numbers.
package price

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	numberPattern = regexp.MustCompile(`\d+\.?\d*`)

	stripTokens = []string{"₹", "Rs.", "Rs", "INR", "$", "€", "£", ",", "/-"}
)

// Normalize extracts the first numeric run from raw and rounds it to two
// decimals. It returns false for empty text or text without digits.
func Normalize(raw string) (float64, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return 0, false
	}

	for _, tok := range stripTokens {
		text = strings.ReplaceAll(text, tok, "")
	}

	match := numberPattern.FindString(text)
	if match == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(strings.TrimSuffix(match, "."), 64)
	if err != nil {
		return 0, false
	}
	return math.Round(v*100) / 100, true
}

// Band bounds acceptable prices. A zero bound is disabled.
type Band struct {
	Min float64
	Max float64
}

// Contains reports whether v is a usable price inside the band
func (b Band) Contains(v float64) bool {
	if v <= 0 {
		return false
	}
	if b.Min > 0 && v < b.Min {
		return false
	}
	if b.Max > 0 && v > b.Max {
		return false
	}
	return true
}
