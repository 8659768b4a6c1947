// Package httputil provides shared HTTP utilities for the CyberGuard
// detection service: pooled transports sized for sub-100ms signal probes
// and safe response handling.
package httputil

import (
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// MaxResponseSize is the default maximum size for reading HTTP response bodies.
// Redirect tracing only needs headers, so anything beyond this is discarded.
const MaxResponseSize = 1 * 1024 * 1024 // 1MB

// ErrNoRedirectFollow is returned from CheckRedirect so callers can walk
// redirect chains hop by hop instead of letting the client follow them.
var ErrNoRedirectFollow = errors.New("httputil: redirect following disabled")

// Shared transport with connection pooling tuned for many short-lived
// probes against unrelated hosts. Safe for concurrent use.
var probeTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   2 * time.Second,
		KeepAlive: 15 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     false, // probes are one-shot; skip h2 negotiation overhead
	MaxIdleConns:          64,
	MaxIdleConnsPerHost:   2,
	IdleConnTimeout:       30 * time.Second,
	TLSHandshakeTimeout:   2 * time.Second,
	ExpectContinueTimeout: 500 * time.Millisecond,
}

var (
	traceClient *http.Client
	clientOnce  sync.Once
)

func initClients() {
	// Per-request deadlines come from the caller's context; the client
	// timeout is only a backstop against leaked requests.
	traceClient = &http.Client{
		Timeout:   5 * time.Second,
		Transport: probeTransport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return ErrNoRedirectFollow
		},
	}
}

// TraceClient returns the shared client that never follows redirects.
// Redirect-chain tracing issues one request per hop so it can bound the
// hop count and detect cycles itself.
func TraceClient() *http.Client {
	clientOnce.Do(initClients)
	return traceClient
}

// IsRedirectStop reports whether err is the sentinel returned when the
// trace client refuses to follow a redirect. url.Error wraps it.
func IsRedirectStop(err error) bool {
	return errors.Is(err, ErrNoRedirectFollow)
}

// DrainAndClose properly drains and closes an HTTP response body.
// This ensures connection reuse in the pool.
func DrainAndClose(body io.ReadCloser) {
	if body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(body, MaxResponseSize))
		_ = body.Close()
	}
}
