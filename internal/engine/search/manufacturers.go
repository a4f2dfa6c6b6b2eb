package search

import (
	"regexp"
	"strings"
)

// Manufacturer maps a canonical vendor name to the keywords that identify it
// in a product title.
type Manufacturer struct {
	Name     string
	Keywords []string
}

// DefaultManufacturers is checked in order, the first hit wins.
var DefaultManufacturers = []Manufacturer{
	{Name: "nvidia", Keywords: []string{"nvidia", "geforce"}},
	{Name: "amd", Keywords: []string{"amd", "radeon", "ryzen"}},
	{Name: "intel", Keywords: []string{"intel", "core"}},
	{Name: "corsair", Keywords: []string{"corsair"}},
	{Name: "crucial", Keywords: []string{"crucial"}},
	{Name: "gskill", Keywords: []string{"g.skill", "gskill", "trident"}},
	{Name: "asus", Keywords: []string{"asus", "rog"}},
	{Name: "msi", Keywords: []string{"msi"}},
	{Name: "gigabyte", Keywords: []string{"gigabyte", "aorus"}},
	{Name: "asrock", Keywords: []string{"asrock"}},
	{Name: "evga", Keywords: []string{"evga"}},
	{Name: "zotac", Keywords: []string{"zotac"}},
}

type manufacturerMatcher struct {
	name     string
	patterns []*regexp.Regexp
}

func compileManufacturers(table []Manufacturer) []manufacturerMatcher {
	out := make([]manufacturerMatcher, 0, len(table))
	for _, m := range table {
		mm := manufacturerMatcher{name: strings.ToLower(m.Name)}
		for _, kw := range m.Keywords {
			mm.patterns = append(mm.patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(kw)+`\b`))
		}
		out = append(out, mm)
	}
	return out
}

func (m manufacturerMatcher) matches(text string) bool {
	for _, p := range m.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
