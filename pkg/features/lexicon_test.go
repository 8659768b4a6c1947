package features

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultLexiconIsComplete(t *testing.T) {
	lx := defaultLexicon()
	if len(lx.SuspiciousKeywords) == 0 || len(lx.Brands) == 0 ||
		len(lx.Shorteners) == 0 || len(lx.SuspiciousTLDs) == 0 ||
		len(lx.TrustedTLDs) == 0 {
		t.Fatal("compiled-in lexicon must populate every list")
	}
	for token, domains := range lx.Brands {
		if len(domains) == 0 {
			t.Errorf("brand %q has no legitimate domains", token)
		}
	}
}

func TestLoadLexiconPartialOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := "suspicious_tlds:\n  - BADTLD\n  - evil\n"
	if err := os.WriteFile(filepath.Join(dir, "lexicon.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	defer func() {
		lexiconMu.Lock()
		activeLexicon = defaultLexicon()
		lexiconMu.Unlock()
	}()

	if err := LoadLexicon(dir); err != nil {
		t.Fatalf("LoadLexicon: %v", err)
	}

	lx := ActiveLexicon()
	if !containsString(lx.SuspiciousTLDs, "badtld") {
		t.Error("override list not installed or not lowercased")
	}
	if len(lx.Brands) == 0 {
		t.Error("fields absent from the override must keep defaults")
	}
}

func TestLoadLexiconMissingFileKeepsDefaults(t *testing.T) {
	before := ActiveLexicon()
	if err := LoadLexicon(t.TempDir()); err == nil {
		t.Fatal("expected error for missing lexicon.yaml")
	}
	if ActiveLexicon() != before {
		t.Error("failed load must not replace the active lexicon")
	}
}

func TestCountTokens(t *testing.T) {
	list := []string{"login", "verify", "secure"}
	if got := countTokens("http://secure-login.example.com/verify", list); got != 3 {
		t.Errorf("countTokens = %d, want 3", got)
	}
	if got := countTokens("https://example.com", list); got != 0 {
		t.Errorf("countTokens = %d, want 0", got)
	}
}
