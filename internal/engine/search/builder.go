// Package search turns catalog items into site search terms.
package search

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/law-makers/pricewatch/pkg/models"
	"github.com/rs/zerolog/log"
)

var (
	// Alphanumeric-hyphen codes (i7-13700K), letter-prefixed codes (RX7600),
	// digit-prefixed codes with a letter suffix (7800X).
	modelPattern = regexp.MustCompile(`(?i)([A-Z0-9]+-[A-Z0-9]+|[A-Z]{2,}[0-9]{3,}|[0-9]{4,}[A-Z]*)`)

	nvidiaGPUPattern = regexp.MustCompile(`(?i)\b(rtx|gtx)\s*(\d{4})(\s*ti)?\b`)
	amdGPUPattern    = regexp.MustCompile(`(?i)\brx\s*(\d{4})\s*(xtx|xt)?\b`)
	ryzenPattern     = regexp.MustCompile(`(?i)\bryzen\s*([3579])\s*(\d{4}[a-z0-9]*)\b`)
	corePattern      = regexp.MustCompile(`(?i)\b(i[3579])[- ](\d{4,5}[a-z]*)\b`)
	capacityPattern  = regexp.MustCompile(`(?i)\b(\d+)\s*gb\b`)
	ddrPattern       = regexp.MustCompile(`(?i)\bddr(\d)\b`)
	speedPattern     = regexp.MustCompile(`(?i)\b(\d{4,5})\s*(mhz|mt/s)\b`)

	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// DefaultStopWords are dropped from the fallback term
var DefaultStopWords = []string{"gaming", "rgb", "series", "edition"}

type categoryClass int

const (
	classUnknown categoryClass = iota
	classGPU
	classCPU
	classMemory
)

// Builder converts a catalog item into a normalized query string.
// It is safe for concurrent use.
type Builder struct {
	manufacturers []manufacturerMatcher
	stopWords     *regexp.Regexp
}

// NewBuilder creates a Builder with the default manufacturer table and stop words
func NewBuilder() *Builder {
	return NewBuilderWith(DefaultManufacturers, DefaultStopWords)
}

// NewBuilderWith creates a Builder with a custom manufacturer table and stop words
func NewBuilderWith(table []Manufacturer, stopWords []string) *Builder {
	b := &Builder{manufacturers: compileManufacturers(table)}
	if len(stopWords) > 0 {
		quoted := make([]string, len(stopWords))
		for i, w := range stopWords {
			quoted[i] = regexp.QuoteMeta(strings.ToLower(w))
		}
		b.stopWords = regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b`)
	}
	return b
}

// Build returns the search term for item with words joined by "+".
// An empty result means the item cannot be searched.
func (b *Builder) Build(item models.CatalogItem) string {
	name := strings.TrimSpace(item.Name)
	if name == "" {
		return ""
	}

	parts := b.structuredParts(item, name)
	if len(parts) == 0 {
		parts = b.fallbackParts(item, name)
	}

	for i, p := range parts {
		parts[i] = url.QueryEscape(p)
	}
	term := strings.Join(parts, "+")

	log.Debug().
		Int64("component_id", item.ID).
		Str("name", item.Name).
		Str("term", term).
		Msg("Search term built")

	return term
}

// Manufacturer returns the canonical manufacturer recognized in the item,
// checking the declared manufacturer before the name. Empty if none.
func (b *Builder) Manufacturer(item models.CatalogItem) string {
	for _, text := range []string{item.Manufacturer, item.Name} {
		if text == "" {
			continue
		}
		for _, m := range b.manufacturers {
			if m.matches(text) {
				return m.name
			}
		}
	}
	return ""
}

// structuredParts builds the term from model codes. Returns nil when the
// name carries no recognizable model identifier.
func (b *Builder) structuredParts(item models.CatalogItem, name string) []string {
	lower := strings.ToLower(name)

	detail := categoryWords(lower, classify(item.Category))
	codes := modelPattern.FindAllString(lower, -1)
	if len(detail) == 0 && len(codes) == 0 {
		return nil
	}

	var parts []string
	seen := make(map[string]bool)
	add := func(w string) {
		if w == "" || seen[w] {
			return
		}
		seen[w] = true
		parts = append(parts, w)
	}

	add(b.Manufacturer(item))
	for _, w := range detail {
		add(w)
	}
	for _, m := range codes {
		if coveredBy(m, detail) {
			continue
		}
		add(m)
	}
	return parts
}

func (b *Builder) fallbackParts(item models.CatalogItem, name string) []string {
	text := strings.ToLower(strings.TrimSpace(item.Manufacturer + " " + name))
	if b.stopWords != nil {
		text = b.stopWords.ReplaceAllString(text, " ")
	}
	text = strings.TrimSpace(multiSpacePattern.ReplaceAllString(text, " "))
	if text == "" {
		return nil
	}
	return strings.Split(text, " ")
}

func classify(category string) categoryClass {
	c := strings.ToLower(category)
	switch {
	case strings.Contains(c, "graphic"), strings.Contains(c, "gpu"), strings.Contains(c, "video"):
		return classGPU
	case strings.Contains(c, "processor"), strings.Contains(c, "cpu"):
		return classCPU
	case strings.Contains(c, "memory"), strings.Contains(c, "ram"):
		return classMemory
	}
	return classUnknown
}

// categoryWords extracts series and model words the generic pattern misses,
// such as the "ti" in "rtx 4070 ti" or the "7" in "ryzen 7 7700x".
func categoryWords(lower string, class categoryClass) []string {
	var words []string

	if class == classGPU || class == classUnknown {
		if m := nvidiaGPUPattern.FindStringSubmatch(lower); m != nil {
			words = append(words, m[1], m[2])
			if strings.TrimSpace(m[3]) != "" {
				words = append(words, "ti")
			}
		} else if m := amdGPUPattern.FindStringSubmatch(lower); m != nil {
			words = append(words, "rx", m[1])
			if m[2] != "" {
				words = append(words, m[2])
			}
		}
	}

	if class == classCPU || class == classUnknown {
		if m := ryzenPattern.FindStringSubmatch(lower); m != nil {
			words = append(words, "ryzen", m[1], m[2])
		} else if m := corePattern.FindStringSubmatch(lower); m != nil {
			words = append(words, "core", m[1]+"-"+m[2])
		}
	}

	if class == classMemory {
		if m := capacityPattern.FindStringSubmatch(lower); m != nil {
			words = append(words, m[1]+"gb")
		}
		if m := ddrPattern.FindStringSubmatch(lower); m != nil {
			words = append(words, "ddr"+m[1])
		}
		if m := speedPattern.FindStringSubmatch(lower); m != nil {
			words = append(words, m[1]+"mhz")
		}
	}

	return words
}

func coveredBy(token string, words []string) bool {
	for _, w := range words {
		if strings.Contains(w, token) {
			return true
		}
	}
	return false
}
