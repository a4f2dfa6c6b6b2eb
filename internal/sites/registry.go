package sites

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// AmazonIN is the built-in profile used when no sites file is configured
var AmazonIN = Profile{
	ID:                "amazon_in",
	Name:              "Amazon India",
	BaseURL:           "https://www.amazon.in",
	SearchURL:         "https://www.amazon.in/s?k={term}",
	ContainerSelector: "div.s-result-item[data-component-type='s-search-result']",
	TitleSelector:     "span.a-text-normal",
	PriceSelector:     "span.a-price span.a-offscreen",
	LinkSelector:      "a.a-link-normal.s-no-outline",
	Currency:          "₹",
	Mode:              "static",
}

// Registry is the immutable set of configured site profiles
type Registry struct {
	profiles []Profile
	byID     map[string]Profile
}

// NewRegistry validates the profiles and builds a registry. Profile order is kept.
func NewRegistry(profiles ...Profile) (*Registry, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("at least one site profile is required")
	}

	r := &Registry{byID: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate site id %q", p.ID)
		}
		r.byID[p.ID] = p
		r.profiles = append(r.profiles, p)
	}
	return r, nil
}

// Default returns a registry holding only the built-in profiles
func Default() *Registry {
	r, err := NewRegistry(AmazonIN)
	if err != nil {
		panic(fmt.Sprintf("built-in site profile is invalid: %v", err))
	}
	return r
}

type fileFormat struct {
	Sites []Profile `yaml:"sites"`
}

// LoadFile reads profiles from a YAML file of the form `sites: [...]`
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sites: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a registry from YAML bytes
func Parse(data []byte) (*Registry, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("sites: parse: %w", err)
	}
	r, err := NewRegistry(f.Sites...)
	if err != nil {
		return nil, fmt.Errorf("sites: %w", err)
	}
	return r, nil
}

// Get returns the profile for id
func (r *Registry) Get(id string) (Profile, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// All returns the profiles in configuration order
func (r *Registry) All() []Profile {
	out := make([]Profile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

// IDs returns the site ids sorted alphabetically
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.profiles))
	for _, p := range r.profiles {
		ids = append(ids, p.ID)
	}
	sort.Strings(ids)
	return ids
}

// Filter returns a registry restricted to the given ids. Unknown ids are an error.
func (r *Registry) Filter(ids ...string) (*Registry, error) {
	if len(ids) == 0 {
		return r, nil
	}
	var picked []Profile
	for _, id := range ids {
		p, ok := r.byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown site %q", id)
		}
		picked = append(picked, p)
	}
	return NewRegistry(picked...)
}
