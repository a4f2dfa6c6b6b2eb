package sites

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/law-makers/pricewatch/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProfile(id string) Profile {
	return Profile{
		ID:                id,
		BaseURL:           "https://shop.example",
		SearchURL:         "https://shop.example/search?q={term}",
		ContainerSelector: "div.result",
		TitleSelector:     "h2",
		PriceSelector:     ".price",
		LinkSelector:      "a.product",
		Currency:          "₹",
	}
}

func TestDefault(t *testing.T) {
	r := Default()
	assert.Equal(t, []string{"amazon_in"}, r.IDs())

	p, ok := r.Get("amazon_in")
	require.True(t, ok)
	assert.Equal(t, "https://www.amazon.in/s?k=rtx+4070", p.BuildSearchURL("rtx+4070"))
	assert.Equal(t, models.ModeStatic, p.FetchMode())
}

func TestProfile_BuildSearchURL_AppendsWithoutPlaceholder(t *testing.T) {
	p := validProfile("x")
	p.SearchURL = "https://shop.example/s?k="
	assert.Equal(t, "https://shop.example/s?k=ryzen+7", p.BuildSearchURL("ryzen+7"))
}

func TestProfile_ResolveLink(t *testing.T) {
	p := AmazonIN
	assert.Equal(t, "https://www.amazon.in/dp/B0C1", p.ResolveLink("/dp/B0C1"))
	assert.Equal(t, "https://elsewhere.example/x", p.ResolveLink("https://elsewhere.example/x"))
}

func TestProfile_Validate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(p *Profile)
	}{
		{"missing id", func(p *Profile) { p.ID = " " }},
		{"missing search url", func(p *Profile) { p.SearchURL = "" }},
		{"relative search url", func(p *Profile) { p.SearchURL = "/search?q={term}" }},
		{"bad base url", func(p *Profile) { p.BaseURL = "ftp://shop.example" }},
		{"missing container", func(p *Profile) { p.ContainerSelector = "" }},
		{"malformed selector", func(p *Profile) { p.PriceSelector = "span[" }},
		{"missing currency", func(p *Profile) { p.Currency = "" }},
		{"unknown mode", func(p *Profile) { p.Mode = "hybrid" }},
		{"negative max results", func(p *Profile) { p.MaxResults = -1 }},
		{"too few max results", func(p *Profile) { p.MaxResults = MinPageResults - 1 }},
		{"too many max results", func(p *Profile) { p.MaxResults = MaxPageResults + 1 }},
		{"negative interval", func(p *Profile) { p.RateInterval = -time.Second }},
	}

	require.NoError(t, validProfile("ok").Validate())

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := validProfile("bad")
			tc.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestNewRegistry(t *testing.T) {
	_, err := NewRegistry()
	assert.Error(t, err)

	_, err = NewRegistry(validProfile("a"), validProfile("a"))
	assert.ErrorContains(t, err, "duplicate")

	r, err := NewRegistry(validProfile("zeta"), validProfile("alpha"))
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, r.IDs())
	assert.Equal(t, "zeta", r.All()[0].ID)
}

func TestRegistry_Filter(t *testing.T) {
	r, err := NewRegistry(validProfile("a"), validProfile("b"))
	require.NoError(t, err)

	f, err := r.Filter("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, f.IDs())

	_, err = r.Filter("missing")
	assert.Error(t, err)

	same, err := r.Filter()
	require.NoError(t, err)
	assert.Equal(t, r.IDs(), same.IDs())
}

func TestLoadFile(t *testing.T) {
	data := `
sites:
  - id: shop
    name: Example Shop
    base_url: https://shop.example
    search_url: https://shop.example/search?q={term}
    container: "li.item"
    title: "h3 a"
    price: "span.cost"
    link: "h3 a"
    currency: "₹"
    mode: dynamic
    wait_selector: "li.item"
    max_results: 4
    rate_interval: 15s
    headers:
      X-Requested-With: pricewatch
`
	path := filepath.Join(t.TempDir(), "sites.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	r, err := LoadFile(path)
	require.NoError(t, err)

	p, ok := r.Get("shop")
	require.True(t, ok)
	assert.Equal(t, "Example Shop", p.Name)
	assert.Equal(t, models.ModeDynamic, p.FetchMode())
	assert.Equal(t, 4, p.MaxResults)
	assert.Equal(t, 15*time.Second, p.RateInterval)
	assert.Equal(t, "pricewatch", p.Headers["X-Requested-With"])
}

func TestLoadFile_Invalid(t *testing.T) {
	_, err := LoadFile("/nonexistent/sites.yaml")
	assert.Error(t, err)

	_, err = Parse([]byte("sites:\n  - id: broken\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("sites: [\n"))
	assert.Error(t, err)
}
