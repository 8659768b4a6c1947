package ml

import (
	"math"

	"github.com/CyberGuardHQ/cyberguard/pkg/features"
)

// Severity buckets a risk score for triage queues and alert routing.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Risk-score bonus points for corroborating network evidence. Bonuses are
// additive on top of the model's calibrated probability, so hard evidence
// (an IP-literal host, a week-old domain) can push a borderline verdict
// over a severity boundary.
const (
	bonusInvalidSSL       = 8
	bonusYoungDomain      = 10
	bonusRedirectMismatch = 8
	bonusIPHost           = 10
	bonusShortener        = 8
	bonusSuspiciousTLD    = 8

	youngDomainDays = 30
	maxRiskScore    = 100
)

// RiskScore maps a calibrated phishing probability and its feature vector
// to an integer score in [0, 100]. The base comes from the model; bonuses
// come only from observed evidence, never from sentinel (unknown) values.
func RiskScore(calibrated float64, vec *features.FeatureVector) int {
	score := int(math.Round(calibrated * 75))

	if vec.At(features.FeatSSLValid) == 0 {
		// Observed invalid, not the unknown sentinel.
		score += bonusInvalidSSL
	}
	if age := vec.At(features.FeatDomainAgeDays); age >= 0 && age < youngDomainDays {
		score += bonusYoungDomain
	}
	if vec.Flag(features.FeatRedirectMismatch) {
		score += bonusRedirectMismatch
	}
	if vec.Flag(features.FeatHasIP) {
		score += bonusIPHost
	}
	if vec.Flag(features.FeatIsShortened) {
		score += bonusShortener
	}
	if vec.Flag(features.FeatHasSuspiciousTLD) {
		score += bonusSuspiciousTLD
	}

	if score > maxRiskScore {
		score = maxRiskScore
	}
	if score < 0 {
		score = 0
	}
	return score
}

// SeverityFor buckets a risk score: 76+ Critical, 51-75 High, 26-50
// Medium, 0-25 Low. The boundaries are part of the API contract; alert
// routing downstream keys off the exact strings.
func SeverityFor(score int) Severity {
	switch {
	case score >= 76:
		return SeverityCritical
	case score >= 51:
		return SeverityHigh
	case score >= 26:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
