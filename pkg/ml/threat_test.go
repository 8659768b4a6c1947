package ml

import (
	"testing"

	"github.com/CyberGuardHQ/cyberguard/pkg/features"
)

func TestClassifyThreatOrder(t *testing.T) {
	const confident = 0.9

	tests := []struct {
		name string
		url  string
		set  map[int]float64
		want string
	}{
		{
			name: "brand token wins over everything",
			url:  "http://paypal-login-verify.example.xyz/download/setup.exe",
			set:  map[int]float64{features.FeatHasBrandToken: 1, features.FeatHasIP: 1},
			want: ThreatBrandImpersonation,
		},
		{
			name: "credential tokens without brand",
			url:  "http://account-portal.example.com/login/verify",
			set:  nil,
			want: ThreatCredentialHarvesting,
		},
		{
			name: "malware token",
			url:  "http://cdn.example.top/flashplayer-update.exe",
			set:  nil,
			want: ThreatMalwareDistribution,
		},
		{
			name: "ip host routes to malware",
			url:  "http://203.0.113.7/x",
			set:  map[int]float64{features.FeatHasIP: 1},
			want: ThreatMalwareDistribution,
		},
		{
			name: "shortener routes to malware",
			url:  "http://bit.ly/3xYzAbC",
			set:  map[int]float64{features.FeatIsShortened: 1},
			want: ThreatMalwareDistribution,
		},
		{
			name: "social lure token",
			url:  "http://example.com/congratulations-winner-prize",
			set:  nil,
			want: ThreatSocialEngineering,
		},
		{
			name: "long dense url without tokens",
			url:  "http://example.com/a",
			set: map[int]float64{
				features.FeatURLLength:        120,
				features.FeatSpecialCharRatio: 0.3,
			},
			want: ThreatSocialEngineering,
		},
		{
			name: "nothing matches",
			url:  "http://example.com/page",
			set:  nil,
			want: ThreatUnclassified,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vec := testVector(tt.set)
			if got := ClassifyThreat(tt.url, vec, confident, 0.6); got != tt.want {
				t.Errorf("ClassifyThreat = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyThreatLowConfidence(t *testing.T) {
	vec := testVector(map[int]float64{features.FeatHasBrandToken: 1})
	got := ClassifyThreat("http://paypal.example.xyz", vec, 0.55, 0.6)
	if got != ThreatUnclassified {
		t.Errorf("low-confidence verdict = %q, want %q: weak evidence must not name a category", got, ThreatUnclassified)
	}

	// Exactly at the threshold attribution is allowed.
	if got := ClassifyThreat("http://paypal.example.xyz", vec, 0.6, 0.6); got != ThreatBrandImpersonation {
		t.Errorf("at-threshold verdict = %q, want %q", got, ThreatBrandImpersonation)
	}
}
