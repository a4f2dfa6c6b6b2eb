// internal/engine/hybrid/detector.go
package hybrid

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var frameworkMarkers = []struct {
	name    string
	markers []string
}{
	{"Next.js", []string{"__next_data__", `id="__next"`}},
	{"React", []string{"data-reactroot", "_reactlistening", "react-dom"}},
	{"Vue", []string{"data-v-app", "__vue__", "data-server-rendered"}},
	{"Angular", []string{"ng-version", "ng-app"}},
	{"Svelte", []string{"svelte-"}},
}

// DetectJavaScriptFramework names the client-side framework a page was built
// with, or "Unknown"
func DetectJavaScriptFramework(html string) string {
	html = strings.ToLower(html)
	for _, fw := range frameworkMarkers {
		for _, m := range fw.markers {
			if strings.Contains(html, m) {
				return fw.name
			}
		}
	}
	return "Unknown"
}

// NeedsJavaScript reports whether a statically fetched page looks like an
// empty shell that only renders its results in a browser
func NeedsJavaScript(doc *goquery.Document) bool {
	scripts := doc.Find("script").Length()
	if scripts == 0 {
		return false
	}

	html, err := doc.Html()
	if err != nil {
		return false
	}
	if DetectJavaScriptFramework(html) != "Unknown" {
		return true
	}

	// Little markup but plenty of scripts
	return doc.Find("body div").Length() < 3 || scripts > 15
}
