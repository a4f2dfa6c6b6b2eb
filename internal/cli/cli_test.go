package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestComponentsAddAndList(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "cli.db")
	base := []string{"--store", "sqlite", "--dsn", dsn, "--log-level", "error"}

	out, err := run(t, append([]string{"components", "add",
		"--name", "GeForce RTX 4070", "--manufacturer", "ZOTAC", "--category", "GPU"}, base...)...)
	if err != nil {
		t.Fatalf("add failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Added component 1") {
		t.Errorf("unexpected add output: %q", out)
	}

	out, err = run(t, append([]string{"components", "list"}, base...)...)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, "GeForce RTX 4070") || !strings.Contains(out, "GPU") {
		t.Errorf("component missing from list: %q", out)
	}

	out, err = run(t, append([]string{"history", "1"}, base...)...)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "No prices recorded yet") {
		t.Errorf("unexpected history output: %q", out)
	}
}

func TestSitesCommand(t *testing.T) {
	out, err := run(t, "sites", "--store", "memory", "--log-level", "error")
	if err != nil {
		t.Fatalf("sites failed: %v", err)
	}
	if !strings.Contains(out, "amazon_in") {
		t.Errorf("expected built-in site, got %q", out)
	}
}

func TestHistory_InvalidID(t *testing.T) {
	if _, err := run(t, "history", "abc", "--store", "memory"); err == nil {
		t.Error("expected error for non-numeric id")
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID("42"); err != nil || id != 42 {
		t.Errorf("parseID(42) = %d, %v", id, err)
	}
	for _, bad := range []string{"0", "-1", "x"} {
		if _, err := parseID(bad); err == nil {
			t.Errorf("parseID(%q) should fail", bad)
		}
	}
}

func TestHelpIsColorized(t *testing.T) {
	var out bytes.Buffer
	crawlCmd.SetOut(&out)
	customHelpFunc(crawlCmd, nil)
	crawlCmd.SetOut(nil)

	help := out.String()
	if !strings.Contains(help, "CRAWL") || !strings.Contains(help, "--component-id") {
		t.Errorf("help missing sections: %q", help)
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four five", 9)
	if got != "one two\nthree\nfour five" {
		t.Errorf("wrapText = %q", got)
	}
}

func TestSitesHelpListsBuiltinSites(t *testing.T) {
	var out bytes.Buffer
	sitesCmd.SetOut(&out)
	customHelpFunc(sitesCmd, nil)
	sitesCmd.SetOut(nil)

	help := out.String()
	if !strings.Contains(help, "Built-in Sites") || !strings.Contains(help, "amazon_in") {
		t.Errorf("sites help should list built-in profiles: %q", help)
	}

	out.Reset()
	historyCmd.SetOut(&out)
	customHelpFunc(historyCmd, nil)
	historyCmd.SetOut(nil)
	if strings.Contains(out.String(), "Built-in Sites") {
		t.Error("history help should not list sites")
	}
}
