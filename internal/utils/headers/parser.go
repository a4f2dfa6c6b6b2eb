package headers

import (
	"net/textproto"
	"strings"
)

// DefaultUserAgent is a desktop Chrome user agent; retail search pages serve
// reduced or blocked markup to unknown clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Browser returns the header set sent with every search page request
func Browser(userAgent string) map[string]string {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language": "en-IN,en-GB;q=0.9,en-US;q=0.8,en;q=0.7",
		"DNT":             "1",
	}
}

// ParseHeaders converts an array of header strings ("Key: Value") into a map
func ParseHeaders(h []string) map[string]string {
	m := make(map[string]string)
	for _, hdr := range h {
		parts := strings.SplitN(hdr, ":", 2)
		if len(parts) == 2 {
			m[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return m
}

// Merge combines header maps under canonical keys. Later maps win; empty
// values delete the key.
func Merge(layers ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, layer := range layers {
		for k, v := range layer {
			k = textproto.CanonicalMIMEHeaderKey(k)
			if v == "" {
				delete(out, k)
				continue
			}
			out[k] = v
		}
	}
	return out
}
