package features

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/CyberGuardHQ/cyberguard/pkg/httputil"
)

// TLSInfo is the result of inspecting a host's certificate.
type TLSInfo struct {
	Valid         bool // chain verifies for the hostname and is within validity window
	IssuerTrusted bool // leaf issuer belongs to a recognized CA
}

// RedirectInfo is the result of tracing a URL's redirect chain.
type RedirectInfo struct {
	Hops                int  // number of redirects followed (0 = no redirect)
	DestinationMismatch bool // final registered domain differs from the origin's
}

// HostProber is the capability interface for network-dependent feature
// lookups. Every method must honor its context deadline; an error means
// "signal unavailable" and the caller falls back to a sentinel value.
// Tests substitute deterministic implementations.
type HostProber interface {
	DomainAge(ctx context.Context, host string) (days int, err error)
	InspectTLS(ctx context.Context, host string) (TLSInfo, error)
	TraceRedirects(ctx context.Context, rawURL string) (RedirectInfo, error)
}

// NetworkProber implements HostProber against the real network: DNS + WHOIS
// for domain age, a TLS handshake for certificate inspection, and hop-by-hop
// HTTP requests for redirect tracing.
type NetworkProber struct {
	cache    *DomainAgeCache // optional, nil disables caching
	maxHops  int
	resolver string // DNS server addr, host:port
}

// NewNetworkProber builds the production prober. cache may be nil.
func NewNetworkProber(cache *DomainAgeCache, maxHops int) *NetworkProber {
	if maxHops <= 0 {
		maxHops = 5
	}
	return &NetworkProber{
		cache:    cache,
		maxHops:  maxHops,
		resolver: "1.1.1.1:53",
	}
}

// whoisServers maps a TLD to its registry WHOIS server. TLDs outside this
// map report domain age as unavailable rather than chasing IANA referrals,
// which would not fit inside the probe timeout anyway.
var whoisServers = map[string]string{
	"com":  "whois.verisign-grs.com",
	"net":  "whois.verisign-grs.com",
	"org":  "whois.publicinterestregistry.org",
	"info": "whois.nic.info",
	"io":   "whois.nic.io",
	"co":   "whois.nic.co",
	"me":   "whois.nic.me",
	"xyz":  "whois.nic.xyz",
	"top":  "whois.nic.top",
	"app":  "whois.nic.google",
	"dev":  "whois.nic.google",
	"uk":   "whois.nic.uk",
}

var whoisDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

// DomainAge resolves the registered domain's creation date via WHOIS and
// returns its age in days. Results are cached because registration dates
// change on registry timescales, not request timescales.
func (p *NetworkProber) DomainAge(ctx context.Context, host string) (int, error) {
	if isIPHost(host) {
		return 0, fmt.Errorf("ip-literal host has no registration date")
	}
	regDomain := RegisteredDomain(host)
	if regDomain == "" || !strings.Contains(regDomain, ".") {
		return 0, fmt.Errorf("no registrable domain in %q", host)
	}

	if p.cache != nil {
		if days, ok := p.cache.Get(ctx, regDomain); ok {
			return days, nil
		}
	}

	// An NXDOMAIN answer is cheaper than a WHOIS round trip and means the
	// registration lookup cannot succeed either.
	if err := p.checkResolvable(ctx, regDomain); err != nil {
		return 0, err
	}

	created, err := p.whoisCreationDate(ctx, regDomain)
	if err != nil {
		return 0, err
	}

	days := int(time.Since(created).Hours() / 24)
	if days < 0 {
		days = 0
	}
	if p.cache != nil {
		p.cache.Set(ctx, regDomain, days)
	}
	return days, nil
}

func (p *NetworkProber) checkResolvable(ctx context.Context, domain string) error {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), dns.TypeNS)

	client := new(dns.Client)
	resp, _, err := client.ExchangeContext(ctx, msg, p.resolver)
	if err != nil {
		return fmt.Errorf("dns lookup: %w", err)
	}
	if resp.Rcode == dns.RcodeNameError {
		return fmt.Errorf("domain %s does not exist", domain)
	}
	return nil
}

func (p *NetworkProber) whoisCreationDate(ctx context.Context, domain string) (time.Time, error) {
	tld := domain[strings.LastIndex(domain, ".")+1:]
	server, ok := whoisServers[tld]
	if !ok {
		return time.Time{}, fmt.Errorf("no whois server for tld %q", tld)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", server+":43")
	if err != nil {
		return time.Time{}, fmt.Errorf("whois dial: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := fmt.Fprintf(conn, "%s\r\n", domain); err != nil {
		return time.Time{}, fmt.Errorf("whois query: %w", err)
	}

	buf := make([]byte, 16*1024)
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			break
		}
	}
	return parseWhoisCreation(string(buf[:total]))
}

// parseWhoisCreation scans a WHOIS response for the registration date.
func parseWhoisCreation(response string) (time.Time, error) {
	prefixes := []string{"creation date:", "created:", "created on:", "registered on:", "registration time:"}
	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		for _, prefix := range prefixes {
			if !strings.HasPrefix(lower, prefix) {
				continue
			}
			value := strings.TrimSpace(trimmed[len(prefix):])
			for _, layout := range whoisDateLayouts {
				if t, err := time.Parse(layout, value); err == nil {
					return t, nil
				}
			}
		}
	}
	return time.Time{}, fmt.Errorf("no creation date in whois response")
}

// trustedIssuers are substrings matched (lowercased) against the leaf
// certificate's issuer organization.
var trustedIssuers = []string{
	"let's encrypt", "isrg", "digicert", "sectigo", "comodo", "globalsign",
	"google trust", "amazon", "microsoft", "cloudflare", "entrust",
	"godaddy", "geotrust", "thawte", "rapidssl", "usertrust", "ssl.com",
}

// InspectTLS performs a handshake on port 443 and verifies the chain
// itself. A failed verification is a measured signal (Valid=false), not an
// error; only connection-level failures report the signal as unavailable.
func (p *NetworkProber) InspectTLS(ctx context.Context, host string) (TLSInfo, error) {
	dialer := &tls.Dialer{
		Config: &tls.Config{
			ServerName: host,
			// Verification happens manually below so an untrusted chain
			// still yields issuer information.
			InsecureSkipVerify: true,
		},
	}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, "443"))
	if err != nil {
		return TLSInfo{}, fmt.Errorf("tls dial: %w", err)
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return TLSInfo{}, fmt.Errorf("no peer certificates presented")
	}
	leaf := state.PeerCertificates[0]

	info := TLSInfo{IssuerTrusted: issuerTrusted(leaf)}

	opts := x509.VerifyOptions{
		DNSName:       host,
		Intermediates: x509.NewCertPool(),
	}
	for _, cert := range state.PeerCertificates[1:] {
		opts.Intermediates.AddCert(cert)
	}
	if _, err := leaf.Verify(opts); err == nil {
		info.Valid = true
	}
	return info, nil
}

func issuerTrusted(leaf *x509.Certificate) bool {
	issuer := strings.ToLower(strings.Join(leaf.Issuer.Organization, " ") + " " + leaf.Issuer.CommonName)
	for _, known := range trustedIssuers {
		if strings.Contains(issuer, known) {
			return true
		}
	}
	return false
}

// TraceRedirects walks the redirect chain hop by hop, bounded by maxHops,
// aborting on cycles. The mismatch flag is set when the final registered
// domain differs from the submitted one (a classic cloaking pattern).
func (p *NetworkProber) TraceRedirects(ctx context.Context, rawURL string) (RedirectInfo, error) {
	origin, err := url.Parse(rawURL)
	if err != nil {
		return RedirectInfo{}, fmt.Errorf("parse origin: %w", err)
	}
	originDomain := RegisteredDomain(strings.ToLower(origin.Hostname()))

	client := httputil.TraceClient()
	current := origin
	seen := map[string]bool{current.String(): true}
	hops := 0

	for hops < p.maxHops {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current.String(), nil)
		if err != nil {
			return RedirectInfo{}, err
		}
		resp, err := client.Do(req)
		if err != nil && !httputil.IsRedirectStop(err) {
			return RedirectInfo{}, fmt.Errorf("trace hop %d: %w", hops, err)
		}
		location := resp.Header.Get("Location")
		isRedirect := resp.StatusCode >= 300 && resp.StatusCode < 400 && location != ""
		httputil.DrainAndClose(resp.Body)

		if !isRedirect {
			break
		}
		next, err := current.Parse(location)
		if err != nil {
			break
		}
		if seen[next.String()] {
			// Redirect cycle; stop counting and report what we saw.
			break
		}
		seen[next.String()] = true
		current = next
		hops++
	}

	finalDomain := RegisteredDomain(strings.ToLower(current.Hostname()))
	return RedirectInfo{
		Hops:                hops,
		DestinationMismatch: hops > 0 && finalDomain != originDomain,
	}, nil
}
