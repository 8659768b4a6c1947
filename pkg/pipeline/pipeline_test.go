package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/CyberGuardHQ/cyberguard/pkg/config"
	"github.com/CyberGuardHQ/cyberguard/pkg/features"
	"github.com/CyberGuardHQ/cyberguard/pkg/ml"
	"github.com/CyberGuardHQ/cyberguard/pkg/store"
)

// stubProber serves canned per-host probe results.
type stubProber struct {
	ages  map[string]int
	tls   map[string]features.TLSInfo
	delay time.Duration
}

func (s *stubProber) DomainAge(ctx context.Context, host string) (int, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if days, ok := s.ages[host]; ok {
		return days, nil
	}
	return 0, errors.New("no whois data")
}

func (s *stubProber) InspectTLS(ctx context.Context, host string) (features.TLSInfo, error) {
	if info, ok := s.tls[host]; ok {
		return info, nil
	}
	return features.TLSInfo{}, nil
}

func (s *stubProber) TraceRedirects(ctx context.Context, rawURL string) (features.RedirectInfo, error) {
	return features.RedirectInfo{}, nil
}

func testProber() *stubProber {
	return &stubProber{
		ages: map[string]int{
			"paypal-secure-login.accounts-verify.xyz": 10,
			"github.com": 5000,
		},
		tls: map[string]features.TLSInfo{
			"paypal-secure-login.accounts-verify.xyz": {Valid: false, IssuerTrusted: false},
			"github.com": {Valid: true, IssuerTrusted: true},
		},
	}
}

func testPipeline(t *testing.T, st store.Store, prober features.HostProber) *Pipeline {
	t.Helper()
	cfg := config.NewDefaultConfig()
	registry := ml.NewRegistry(ml.NewBaselineModel())
	extractor := features.NewExtractor(prober, cfg.ProbeTimeout)
	return New(cfg, registry, st, extractor)
}

func TestAnalyzePhishingScenario(t *testing.T) {
	p := testPipeline(t, nil, testProber())

	result, err := p.Analyze(context.Background(),
		"http://paypal-secure-login.accounts-verify.xyz/signin?user=a&token=b")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if result.Prediction != store.PredictionPhishing {
		t.Errorf("prediction = %q, want Phishing", result.Prediction)
	}
	if result.RiskScore <= 75 {
		t.Errorf("risk = %d, want > 75", result.RiskScore)
	}
	if result.Severity != ml.SeverityCritical {
		t.Errorf("severity = %q, want Critical", result.Severity)
	}
	if result.ThreatType != ml.ThreatBrandImpersonation {
		t.Errorf("threat = %q, want Brand Impersonation", result.ThreatType)
	}
	if result.Degraded {
		t.Error("probes all answered; result must not be degraded")
	}
	if result.ModelVersion != ml.BaselineVersion {
		t.Errorf("model version = %q, want baseline", result.ModelVersion)
	}
	if result.Confidence < 0.5 || result.Confidence > 1 {
		t.Errorf("confidence = %v outside (0.5, 1]", result.Confidence)
	}
}

func TestAnalyzeLegitimateScenario(t *testing.T) {
	p := testPipeline(t, nil, testProber())

	result, err := p.Analyze(context.Background(), "https://github.com/golang/go")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if result.Prediction != store.PredictionLegitimate {
		t.Errorf("prediction = %q, want Legitimate", result.Prediction)
	}
	if result.RiskScore >= 20 {
		t.Errorf("risk = %d, want < 20", result.RiskScore)
	}
	if result.ThreatType != "" {
		t.Errorf("threat = %q, want empty for a legitimate verdict", result.ThreatType)
	}
	if result.Confidence < 0.8 {
		t.Errorf("confidence = %v, want a decisively high legitimate confidence", result.Confidence)
	}
}

func TestAnalyzeInvalidURL(t *testing.T) {
	p := testPipeline(t, nil, nil)

	for _, raw := range []string{"", "ab", "ftp://example.com", "   "} {
		if _, err := p.Analyze(context.Background(), raw); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Analyze(%q) err = %v, want ErrInvalidURL", raw, err)
		}
	}
}

func TestAnalyzeDegradedStaysWithinBudget(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.RequestBudget = 100 * time.Millisecond
	cfg.ProbeTimeout = 30 * time.Millisecond

	prober := &stubProber{delay: time.Second} // DomainAge never answers in time
	extractor := features.NewExtractor(prober, cfg.ProbeTimeout)
	p := New(cfg, ml.NewRegistry(ml.NewBaselineModel()), nil, extractor)

	start := time.Now()
	result, err := p.Analyze(context.Background(), "https://example.com/page")
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !result.Degraded {
		t.Error("timed-out probe must mark the result degraded")
	}
	if elapsed > 200*time.Millisecond {
		t.Errorf("analysis took %v, budget not enforced", elapsed)
	}
	if result.Prediction == "" || result.RiskScore < 0 {
		t.Errorf("degraded analysis must still produce a verdict: %+v", result)
	}
}

func TestAnalyzeEmitsRecord(t *testing.T) {
	ms := store.NewMemoryStore(0)
	p := testPipeline(t, ms, testProber())

	result, err := p.Analyze(context.Background(),
		"http://paypal-secure-login.accounts-verify.xyz/signin")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	// Emission is fire-and-forget; wait for the writer goroutine.
	deadline := time.Now().Add(2 * time.Second)
	for ms.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("record never reached the store")
		}
		time.Sleep(5 * time.Millisecond)
	}

	logs, err := ms.RecentLogs(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	rec := logs[0]
	if rec.ID != result.ID || rec.URL != result.URL || rec.Prediction != result.Prediction {
		t.Errorf("stored record %+v does not match result %+v", rec, result)
	}
	if rec.RiskScore != result.RiskScore || rec.ThreatType != result.ThreatType {
		t.Errorf("stored scores %d/%q differ from result %d/%q",
			rec.RiskScore, rec.ThreatType, result.RiskScore, result.ThreatType)
	}
}

func TestAnalyzeConcurrentIsolation(t *testing.T) {
	p := testPipeline(t, store.NewMemoryStore(0), testProber())

	urls := []struct {
		raw  string
		want string
	}{
		{"http://paypal-secure-login.accounts-verify.xyz/signin", store.PredictionPhishing},
		{"https://github.com/golang/go", store.PredictionLegitimate},
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		tc := urls[i%len(urls)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := p.Analyze(context.Background(), tc.raw)
			if err != nil {
				t.Errorf("Analyze(%q): %v", tc.raw, err)
				return
			}
			if result.Prediction != tc.want {
				t.Errorf("Analyze(%q) = %q, want %q", tc.raw, result.Prediction, tc.want)
			}
			if !strings.Contains(result.URL, tc.raw[strings.Index(tc.raw, "//")+2:]) {
				t.Errorf("result url %q does not match submission %q", result.URL, tc.raw)
			}
		}()
	}
	wg.Wait()
}

func TestAnalyzeRecoversFromPanic(t *testing.T) {
	// A registry holding no model makes Predict dereference nil; the
	// request must come back as an error, not a crash.
	cfg := config.NewDefaultConfig()
	p := New(cfg, ml.NewRegistry(nil), nil, features.NewExtractor(nil, cfg.ProbeTimeout))

	result, err := p.Analyze(context.Background(), "https://example.com")
	if err == nil {
		t.Fatalf("expected error, got %+v", result)
	}
	if !strings.Contains(err.Error(), "panicked") {
		t.Errorf("err = %v, want panic surfaced as error", err)
	}
}
