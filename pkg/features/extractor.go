package features

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"
)

// specialChars mirrors the character set the risk models were trained
// against; changing it silently shifts special_char_ratio.
const specialChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"

// NormalizeURL validates a raw submission and returns a parsed URL.
// A missing scheme gets an implicit http:// prefix before parsing.
// Anything that does not yield scheme+host is rejected here, before any
// model work happens.
func NormalizeURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) < 4 {
		return nil, fmt.Errorf("url must be at least 4 characters")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("unparseable url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("url has no host")
	}
	return u, nil
}

// Extractor turns a validated URL into a FeatureVector. Lexical features
// are computed locally and never fail; network-derived features come from
// the HostProber, each sub-check under its own timeout, falling back to
// sentinel values on failure.
type Extractor struct {
	prober       HostProber
	probeTimeout time.Duration
}

// NewExtractor creates an extractor. prober may be nil, in which case all
// network features are sentinels and every vector is marked degraded.
func NewExtractor(prober HostProber, probeTimeout time.Duration) *Extractor {
	if probeTimeout <= 0 {
		probeTimeout = 60 * time.Millisecond
	}
	return &Extractor{prober: prober, probeTimeout: probeTimeout}
}

// Extract computes the full 28-dimension vector for u. The caller's
// context carries the request budget: probes still pending when it expires
// are cancelled and their features stay at the sentinel value.
func (e *Extractor) Extract(ctx context.Context, u *url.URL) *FeatureVector {
	vec := &FeatureVector{}
	e.extractLexical(u, vec)
	e.probeNetwork(ctx, u, vec)
	return vec
}

func (e *Extractor) extractLexical(u *url.URL, vec *FeatureVector) {
	lx := ActiveLexicon()
	raw := u.String()
	lower := strings.ToLower(raw)
	host := strings.ToLower(u.Hostname())
	path := u.EscapedPath()

	sub, domain, tld := splitHost(host)
	regDomain := RegisteredDomain(host)

	vec.Values[FeatURLLength] = float64(len(raw))
	vec.Values[FeatHostnameLength] = float64(len(u.Host))
	vec.Values[FeatPathLength] = float64(len(path))

	if u.Scheme == "https" {
		vec.Values[FeatIsHTTPS] = 1
	}
	if u.Port() != "" {
		vec.Values[FeatHasPort] = 1
	}
	if isIPHost(host) {
		vec.Values[FeatHasIP] = 1
	}

	vec.Values[FeatNumDots] = float64(strings.Count(raw, "."))
	vec.Values[FeatNumHyphens] = float64(strings.Count(raw, "-"))
	vec.Values[FeatNumAtSymbols] = float64(strings.Count(raw, "@"))
	vec.Values[FeatNumQueryParams] = float64(len(u.Query()))

	if sub != "" {
		vec.Values[FeatNumSubdomains] = float64(len(strings.Split(sub, ".")))
		vec.Values[FeatSubdomainLength] = float64(len(sub))
	}
	vec.Values[FeatDomainLength] = float64(len(domain))

	if containsString(lx.TrustedTLDs, tld) {
		vec.Values[FeatHasTrustedTLD] = 1
	}
	if containsString(lx.SuspiciousTLDs, tld) {
		vec.Values[FeatHasSuspiciousTLD] = 1
	}

	vec.Values[FeatNumSuspiciousTokens] = float64(countTokens(lower, lx.SuspiciousKeywords))

	if token := matchBrandToken(host, strings.ToLower(path), regDomain, lx); token != "" {
		vec.Values[FeatHasBrandToken] = 1
		vec.BrandToken = token
	}

	if containsString(lx.Shorteners, regDomain) || containsString(lx.Shorteners, host) {
		vec.Values[FeatIsShortened] = 1
	}

	vec.Values[FeatURLEntropy] = shannonEntropy(raw)
	vec.Values[FeatPathEntropy] = shannonEntropy(path + u.RawQuery)

	special := 0
	digits := 0
	for _, r := range raw {
		if strings.ContainsRune(specialChars, r) {
			special++
		}
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	vec.Values[FeatSpecialCharRatio] = float64(special) / float64(len(raw))
	vec.Values[FeatDigitRatio] = float64(digits) / float64(len(raw))

	depth := 0
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			depth++
		}
	}
	vec.Values[FeatPathDepth] = float64(depth)
}

// probeNetwork runs the three network sub-checks concurrently, each under
// its own timeout. One probe's failure or timeout never blocks or fails
// the others; a failed probe just leaves its sentinel in place.
func (e *Extractor) probeNetwork(ctx context.Context, u *url.URL, vec *FeatureVector) {
	vec.Values[FeatDomainAgeDays] = SentinelUnknown
	vec.Values[FeatSSLValid] = SentinelUnknown
	vec.Values[FeatSSLIssuerTrusted] = SentinelUnknown
	vec.Values[FeatRedirectCount] = SentinelUnknown
	vec.Values[FeatRedirectMismatch] = SentinelUnknown

	if e.prober == nil {
		vec.Degraded = true
		return
	}

	host := strings.ToLower(u.Hostname())

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	degrade := func() {
		mu.Lock()
		vec.Degraded = true
		mu.Unlock()
	}

	wg.Add(3)

	go func() {
		defer wg.Done()
		pctx, cancel := context.WithTimeout(ctx, e.probeTimeout)
		defer cancel()
		days, err := e.prober.DomainAge(pctx, host)
		if err != nil {
			degrade()
			return
		}
		mu.Lock()
		vec.Values[FeatDomainAgeDays] = float64(days)
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		pctx, cancel := context.WithTimeout(ctx, e.probeTimeout)
		defer cancel()
		info, err := e.prober.InspectTLS(pctx, host)
		if err != nil {
			degrade()
			return
		}
		mu.Lock()
		vec.Values[FeatSSLValid] = boolFeature(info.Valid)
		vec.Values[FeatSSLIssuerTrusted] = boolFeature(info.IssuerTrusted)
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		pctx, cancel := context.WithTimeout(ctx, e.probeTimeout)
		defer cancel()
		info, err := e.prober.TraceRedirects(pctx, u.String())
		if err != nil {
			degrade()
			return
		}
		mu.Lock()
		vec.Values[FeatRedirectCount] = float64(info.Hops)
		vec.Values[FeatRedirectMismatch] = boolFeature(info.DestinationMismatch)
		mu.Unlock()
	}()

	wg.Wait()
}

// matchBrandToken returns the brand token found in the host or path when
// the registered domain is not one the brand legitimately operates.
func matchBrandToken(host, path, regDomain string, lx *Lexicon) string {
	for token, ownDomains := range lx.Brands {
		if !strings.Contains(host, token) && !strings.Contains(path, token) {
			continue
		}
		if containsString(ownDomains, regDomain) {
			continue
		}
		return token
	}
	return ""
}

// multiPartSuffixes are second-level public suffixes we split specially so
// RegisteredDomain("shop.example.co.uk") yields "example.co.uk".
var multiPartSuffixes = map[string]bool{
	"co.uk": true, "org.uk": true, "ac.uk": true, "gov.uk": true,
	"com.au": true, "net.au": true, "org.au": true,
	"co.jp": true, "co.in": true, "co.za": true, "co.nz": true,
	"com.br": true, "com.mx": true, "com.cn": true, "com.tr": true,
}

// splitHost breaks a hostname into (subdomain, domain, tld). IP hosts
// return ("", host, "").
func splitHost(host string) (sub, domain, tld string) {
	if isIPHost(host) {
		return "", host, ""
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return "", host, ""
	}

	suffixLen := 1
	if len(labels) >= 3 {
		maybe := labels[len(labels)-2] + "." + labels[len(labels)-1]
		if multiPartSuffixes[maybe] {
			suffixLen = 2
		}
	}
	if len(labels) < suffixLen+1 {
		return "", host, ""
	}

	tld = strings.Join(labels[len(labels)-suffixLen:], ".")
	domain = labels[len(labels)-suffixLen-1]
	if len(labels) > suffixLen+1 {
		sub = strings.Join(labels[:len(labels)-suffixLen-1], ".")
	}
	return sub, domain, tld
}

// RegisteredDomain approximates the eTLD+1 for host ("a.b.example.com" →
// "example.com"). IP hosts are returned unchanged.
func RegisteredDomain(host string) string {
	_, domain, tld := splitHost(host)
	if tld == "" {
		return domain
	}
	return domain + "." + tld
}

func isIPHost(host string) bool {
	return net.ParseIP(strings.Trim(host, "[]")) != nil
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// shannonEntropy returns the Shannon entropy of text in bits per character.
func shannonEntropy(text string) float64 {
	if len(text) == 0 {
		return 0
	}
	counts := make(map[rune]float64)
	total := 0.0
	for _, r := range text {
		counts[r]++
		total++
	}
	entropy := 0.0
	for _, count := range counts {
		p := count / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}
