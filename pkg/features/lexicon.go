package features

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Lexicon holds the static reference lists used by lexical feature
// extraction and threat attribution. Lists are lowercase; matching is
// case-insensitive. These checks have no network dependency, so the
// lexical feature subset stays available even under full probe degradation.
type Lexicon struct {
	// SuspiciousKeywords are tokens commonly found in phishing URLs.
	SuspiciousKeywords []string `yaml:"suspicious_keywords"`

	// Brands maps a brand token to the registered domains the brand
	// legitimately operates. A token match only counts as impersonation
	// when the URL's registered domain is not one of them.
	Brands map[string][]string `yaml:"brands"`

	// Shorteners are link-shortening service domains.
	Shorteners []string `yaml:"shorteners"`

	// SuspiciousTLDs are cheap/abused top-level domains (no leading dot).
	SuspiciousTLDs []string `yaml:"suspicious_tlds"`

	// TrustedTLDs are established top-level domains (no leading dot).
	TrustedTLDs []string `yaml:"trusted_tlds"`

	// CredentialTokens indicate login/verification-form style URLs.
	CredentialTokens []string `yaml:"credential_tokens"`

	// MalwareTokens indicate payload delivery.
	MalwareTokens []string `yaml:"malware_tokens"`

	// SocialTokens indicate urgency/reward lures.
	SocialTokens []string `yaml:"social_tokens"`
}

// defaultLexicon returns the compiled-in reference lists. Used whenever no
// lexicon.yaml override is found, so the extractor always has a lexicon.
func defaultLexicon() *Lexicon {
	return &Lexicon{
		SuspiciousKeywords: []string{
			"login", "signin", "account", "verify", "update", "secure",
			"banking", "confirm", "password", "credential", "suspend",
			"alert", "urgent", "expire", "validate", "authenticate",
		},
		Brands: map[string][]string{
			"paypal":    {"paypal.com", "paypal.me"},
			"apple":     {"apple.com", "icloud.com"},
			"amazon":    {"amazon.com", "amazon.co.uk", "amazon.de"},
			"microsoft": {"microsoft.com", "live.com", "office.com", "outlook.com"},
			"google":    {"google.com", "gmail.com", "youtube.com"},
			"facebook":  {"facebook.com", "fb.com"},
			"instagram": {"instagram.com"},
			"netflix":   {"netflix.com"},
			"whatsapp":  {"whatsapp.com"},
			"chase":     {"chase.com"},
			"wellsfargo": {"wellsfargo.com"},
			"dropbox":   {"dropbox.com"},
			"linkedin":  {"linkedin.com"},
			"coinbase":  {"coinbase.com"},
			"binance":   {"binance.com"},
		},
		Shorteners: []string{
			"bit.ly", "goo.gl", "tinyurl.com", "t.co", "ow.ly",
			"is.gd", "buff.ly", "rebrand.ly", "cutt.ly", "shorturl.at",
		},
		SuspiciousTLDs: []string{
			"xyz", "top", "tk", "ml", "ga", "cf", "gq", "icu",
			"work", "click", "loan", "zip", "country", "stream",
		},
		TrustedTLDs: []string{"com", "org", "net", "edu", "gov"},
		CredentialTokens: []string{
			"login", "signin", "sign-in", "logon", "account", "verify",
			"verification", "password", "credential", "auth", "authenticate",
			"secure", "webscr", "session",
		},
		MalwareTokens: []string{
			"download", "install", "setup", "update.exe", "flashplayer",
			"plugin", "codec", "attachment", "invoice.exe", ".exe", ".apk",
			".scr", ".bat",
		},
		SocialTokens: []string{
			"urgent", "winner", "prize", "reward", "gift", "free",
			"claim", "bonus", "lottery", "congratulations", "limited",
			"offer", "act-now",
		},
	}
}

var (
	lexiconMu     sync.RWMutex
	activeLexicon = defaultLexicon()
)

// ActiveLexicon returns the process-wide lexicon. Safe for concurrent use;
// the returned value is treated as read-only.
func ActiveLexicon() *Lexicon {
	lexiconMu.RLock()
	defer lexiconMu.RUnlock()
	return activeLexicon
}

// FindLexiconDir probes the usual locations for a lexicon.yaml override.
// Returns "" when no config directory exists, which is not an error.
func FindLexiconDir() string {
	candidates := []string{
		"config",
		"../config",
		"/etc/cyberguard",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".cyberguard"))
	}
	for _, dir := range candidates {
		if _, err := os.Stat(filepath.Join(dir, "lexicon.yaml")); err == nil {
			return dir
		}
	}
	return ""
}

// LoadLexicon reads lexicon.yaml from dir and installs it as the active
// lexicon. Missing fields keep their compiled-in defaults so a partial
// override (say, just extra brands) is enough. A missing or malformed
// file leaves the defaults untouched and returns the error for logging.
func LoadLexicon(dir string) error {
	path := filepath.Join(dir, "lexicon.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	loaded := defaultLexicon()
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return err
	}
	normalizeLexicon(loaded)

	lexiconMu.Lock()
	activeLexicon = loaded
	lexiconMu.Unlock()
	log.Printf("[LEXICON] Loaded reference lists from %s", path)
	return nil
}

func normalizeLexicon(lx *Lexicon) {
	lower := func(list []string) []string {
		out := make([]string, 0, len(list))
		for _, s := range list {
			s = strings.ToLower(strings.TrimSpace(s))
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	lx.SuspiciousKeywords = lower(lx.SuspiciousKeywords)
	lx.Shorteners = lower(lx.Shorteners)
	lx.SuspiciousTLDs = lower(lx.SuspiciousTLDs)
	lx.TrustedTLDs = lower(lx.TrustedTLDs)
	lx.CredentialTokens = lower(lx.CredentialTokens)
	lx.MalwareTokens = lower(lx.MalwareTokens)
	lx.SocialTokens = lower(lx.SocialTokens)

	brands := make(map[string][]string, len(lx.Brands))
	for token, domains := range lx.Brands {
		brands[strings.ToLower(token)] = lower(domains)
	}
	lx.Brands = brands
}

// countTokens returns how many tokens from list occur in text.
func countTokens(text string, list []string) int {
	n := 0
	for _, tok := range list {
		if strings.Contains(text, tok) {
			n++
		}
	}
	return n
}

// containsToken reports whether any token from list occurs in text.
func containsToken(text string, list []string) bool {
	for _, tok := range list {
		if strings.Contains(text, tok) {
			return true
		}
	}
	return false
}
