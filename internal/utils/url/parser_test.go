package urlutil

import "testing"

func TestValidate(t *testing.T) {
	valid := []string{
		"http://example.com",
		"https://example.com/path",
		"https://www.amazon.in/s?k=rtx+4070",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Fatalf("expected valid, got error: %v", err)
		}
	}

	invalid := []string{"ftp://example.com", "//example.com", "http:///", "/s?k=x"}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Fatalf("expected invalid for %s", u)
		}
	}
}

func TestResolveURL(t *testing.T) {
	cases := []struct {
		base, href, want string
	}{
		{"https://www.amazon.in", "/dp/B0BX?ref=sr_1", "https://www.amazon.in/dp/B0BX?ref=sr_1"},
		{"https://www.amazon.in/", "dp/B0BX", "https://www.amazon.in/dp/B0BX"},
		{"https://www.amazon.in", "https://other.example/item", "https://other.example/item"},
		{"https://shop.example/search", "  /p/1  ", "https://shop.example/p/1"},
	}
	for _, c := range cases {
		if got := ResolveURL(c.base, c.href); got != c.want {
			t.Errorf("ResolveURL(%q, %q) = %q, want %q", c.base, c.href, got, c.want)
		}
	}
}

func TestHost(t *testing.T) {
	if got := Host("https://www.amazon.in/s?k=x"); got != "www.amazon.in" {
		t.Errorf("Expected www.amazon.in, got %q", got)
	}
	if got := Host("::bad"); got != "" {
		t.Errorf("Expected empty host, got %q", got)
	}
}
