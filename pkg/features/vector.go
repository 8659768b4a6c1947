package features

// NumFeatures is the fixed dimensionality of a FeatureVector. The ordering
// below is a contract shared with the model artifact: an artifact trained
// against a different layout must not be scored against these vectors.
const NumFeatures = 28

// Feature indices. Indices 0-22 are lexical and always populated; 23-27
// come from network probes and hold sentinels when a probe degraded.
const (
	FeatURLLength            = 0
	FeatHostnameLength       = 1
	FeatPathLength           = 2
	FeatIsHTTPS              = 3
	FeatHasPort              = 4
	FeatHasIP                = 5
	FeatNumDots              = 6
	FeatNumHyphens           = 7
	FeatNumAtSymbols         = 8
	FeatNumQueryParams       = 9
	FeatNumSubdomains        = 10
	FeatSubdomainLength      = 11
	FeatDomainLength         = 12
	FeatHasTrustedTLD        = 13
	FeatHasSuspiciousTLD     = 14
	FeatNumSuspiciousTokens  = 15
	FeatHasBrandToken        = 16
	FeatIsShortened          = 17
	FeatURLEntropy           = 18
	FeatPathEntropy          = 19
	FeatSpecialCharRatio     = 20
	FeatDigitRatio           = 21
	FeatPathDepth            = 22
	FeatDomainAgeDays        = 23
	FeatSSLValid             = 24
	FeatSSLIssuerTrusted     = 25
	FeatRedirectCount        = 26
	FeatRedirectMismatch     = 27
)

// SentinelUnknown marks a network-derived feature whose probe failed or
// timed out. Models are trained with the sentinel as a first-class value.
const SentinelUnknown = -1.0

// featureNames is the canonical order, mirrored in the model artifact.
var featureNames = [NumFeatures]string{
	"url_length",
	"hostname_length",
	"path_length",
	"is_https",
	"has_port",
	"has_ip",
	"num_dots",
	"num_hyphens",
	"num_at_symbols",
	"num_query_params",
	"num_subdomains",
	"subdomain_length",
	"domain_length",
	"has_trusted_tld",
	"has_suspicious_tld",
	"num_suspicious_keywords",
	"has_brand_token",
	"is_shortened",
	"url_entropy",
	"path_entropy",
	"special_char_ratio",
	"digit_ratio",
	"path_depth",
	"domain_age_days",
	"ssl_valid",
	"ssl_issuer_trusted",
	"redirect_count",
	"redirect_mismatch",
}

// FeatureNames returns the canonical feature order.
func FeatureNames() []string {
	names := make([]string, NumFeatures)
	copy(names, featureNames[:])
	return names
}

// FeatureVector is a fixed-order numeric encoding of a URL's structural,
// lexical, and network-derived signals. Instances are request-local and
// never shared across analyses.
type FeatureVector struct {
	Values [NumFeatures]float64

	// Degraded is true when at least one network probe fell back to a
	// sentinel value. Consumed downstream to mark reduced confidence.
	Degraded bool

	// BrandToken holds the matched brand name when has_brand_token is set,
	// used by threat attribution.
	BrandToken string
}

// At returns the value at index i.
func (v *FeatureVector) At(i int) float64 {
	return v.Values[i]
}

// Flag reports whether a 0/1 feature is set (sentinels read as unset).
func (v *FeatureVector) Flag(i int) bool {
	return v.Values[i] > 0.5
}

// Named returns the features as an ordered name → value mapping,
// primarily for response payloads and debugging.
func (v *FeatureVector) Named() map[string]float64 {
	m := make(map[string]float64, NumFeatures)
	for i, name := range featureNames {
		m[name] = v.Values[i]
	}
	return m
}
