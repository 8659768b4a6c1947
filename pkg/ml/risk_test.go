package ml

import (
	"testing"

	"github.com/CyberGuardHQ/cyberguard/pkg/features"
)

func TestSeverityBoundaries(t *testing.T) {
	tests := []struct {
		score int
		want  Severity
	}{
		{0, SeverityLow},
		{25, SeverityLow},
		{26, SeverityMedium},
		{50, SeverityMedium},
		{51, SeverityHigh},
		{75, SeverityHigh},
		{76, SeverityCritical},
		{100, SeverityCritical},
	}
	for _, tt := range tests {
		if got := SeverityFor(tt.score); got != tt.want {
			t.Errorf("SeverityFor(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestRiskScoreBase(t *testing.T) {
	// No evidence features set: the score is just the scaled probability.
	vec := testVector(map[int]float64{
		features.FeatSSLValid: 1, // valid, no bonus
	})
	if got := RiskScore(0.0, vec); got != 0 {
		t.Errorf("RiskScore(0) = %d, want 0", got)
	}
	if got := RiskScore(1.0, vec); got != 75 {
		t.Errorf("RiskScore(1) = %d, want 75", got)
	}
	if got := RiskScore(0.5, vec); got != 38 {
		t.Errorf("RiskScore(0.5) = %d, want 38", got)
	}
}

func TestRiskScoreBonuses(t *testing.T) {
	tests := []struct {
		name string
		set  map[int]float64
		want int // on top of a 0.0 base with valid SSL
	}{
		{"invalid ssl", map[int]float64{features.FeatSSLValid: 0}, 8},
		{"young domain", map[int]float64{features.FeatSSLValid: 1, features.FeatDomainAgeDays: 10}, 10},
		{"domain exactly 30 days", map[int]float64{features.FeatSSLValid: 1, features.FeatDomainAgeDays: 30}, 0},
		{"redirect mismatch", map[int]float64{features.FeatSSLValid: 1, features.FeatRedirectMismatch: 1}, 8},
		{"ip host", map[int]float64{features.FeatSSLValid: 1, features.FeatHasIP: 1}, 10},
		{"shortener", map[int]float64{features.FeatSSLValid: 1, features.FeatIsShortened: 1}, 8},
		{"suspicious tld", map[int]float64{features.FeatSSLValid: 1, features.FeatHasSuspiciousTLD: 1}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RiskScore(0.0, testVector(tt.set)); got != tt.want {
				t.Errorf("bonus = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRiskScoreSentinelsEarnNoBonus(t *testing.T) {
	// All network features unknown: neither the SSL bonus nor the domain
	// age bonus may fire on a sentinel.
	vec := testVector(nil)
	if got := RiskScore(0.0, vec); got != 0 {
		t.Errorf("RiskScore with all sentinels = %d, want 0", got)
	}
}

func TestRiskScoreCapped(t *testing.T) {
	vec := testVector(map[int]float64{
		features.FeatSSLValid:         0,
		features.FeatDomainAgeDays:    3,
		features.FeatRedirectMismatch: 1,
		features.FeatHasIP:            1,
		features.FeatIsShortened:      1,
		features.FeatHasSuspiciousTLD: 1,
	})
	if got := RiskScore(1.0, vec); got != 100 {
		t.Errorf("RiskScore = %d, want cap at 100", got)
	}
}

func TestRiskScoreScenarios(t *testing.T) {
	model := NewBaselineModel()

	phishing := phishingVector()
	calibrated := model.Predict(phishing).Calibrated
	risk := RiskScore(calibrated, phishing)
	if risk <= 75 {
		t.Errorf("phishing scenario risk = %d, want > 75", risk)
	}
	if SeverityFor(risk) != SeverityCritical {
		t.Errorf("phishing scenario severity = %q, want Critical", SeverityFor(risk))
	}

	// IP-literal host serving over a shortened link with a failed cert
	// check: three independent pieces of hard evidence.
	ipShortener := testVector(map[int]float64{
		features.FeatHasIP:       1,
		features.FeatIsShortened: 1,
		features.FeatSSLValid:    0,
	})
	calibrated = model.Predict(ipShortener).Calibrated
	risk = RiskScore(calibrated, ipShortener)
	if sev := SeverityFor(risk); sev != SeverityHigh && sev != SeverityCritical {
		t.Errorf("ip+shortener+bad-ssl severity = %q (risk %d), want High or Critical", sev, risk)
	}

	legit := legitimateVector()
	calibrated = model.Predict(legit).Calibrated
	risk = RiskScore(calibrated, legit)
	if risk >= 20 {
		t.Errorf("legitimate scenario risk = %d, want < 20", risk)
	}
	if SeverityFor(risk) != SeverityLow {
		t.Errorf("legitimate scenario severity = %q, want Low", SeverityFor(risk))
	}
}
