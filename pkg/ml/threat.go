package ml

import (
	"strings"

	"github.com/CyberGuardHQ/cyberguard/pkg/features"
)

// Threat taxonomy. The set is closed: attribution picks from these five
// strings and nothing else, so downstream dashboards can enumerate them.
const (
	ThreatBrandImpersonation   = "Brand Impersonation"
	ThreatCredentialHarvesting = "Credential Harvesting"
	ThreatMalwareDistribution  = "Malware Distribution"
	ThreatSocialEngineering    = "Social Engineering"
	ThreatUnclassified         = "Other / Unclassified"
)

// longURLThreshold and denseSpecialRatio together mark obfuscated lure
// URLs that carry no recognizable token.
const (
	longURLThreshold  = 75
	denseSpecialRatio = 0.15
)

// ClassifyThreat attributes a phishing verdict to a threat type. Matchers
// run in a fixed order and the first hit wins; verdicts below minConfidence
// are never attributed to a specific type. Only call this for URLs already
// predicted as phishing.
func ClassifyThreat(rawURL string, vec *features.FeatureVector, confidence, minConfidence float64) string {
	if confidence < minConfidence {
		return ThreatUnclassified
	}

	lower := strings.ToLower(rawURL)
	lx := features.ActiveLexicon()

	if vec.Flag(features.FeatHasBrandToken) {
		return ThreatBrandImpersonation
	}
	if countTokens(lower, lx.CredentialTokens) >= 2 {
		return ThreatCredentialHarvesting
	}
	if containsToken(lower, lx.MalwareTokens) ||
		vec.Flag(features.FeatHasIP) ||
		vec.Flag(features.FeatIsShortened) {
		return ThreatMalwareDistribution
	}
	if containsToken(lower, lx.SocialTokens) ||
		(vec.At(features.FeatURLLength) > longURLThreshold &&
			vec.At(features.FeatSpecialCharRatio) > denseSpecialRatio) {
		return ThreatSocialEngineering
	}
	return ThreatUnclassified
}

func countTokens(text string, list []string) int {
	n := 0
	for _, tok := range list {
		if strings.Contains(text, tok) {
			n++
		}
	}
	return n
}

func containsToken(text string, list []string) bool {
	for _, tok := range list {
		if strings.Contains(text, tok) {
			return true
		}
	}
	return false
}
