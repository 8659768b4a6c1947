package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// StorageBackend selects where analysis records are persisted
type StorageBackend string

const (
	StorageAuto     StorageBackend = "auto"     // Postgres if DATABASE_URL is set, else memory
	StoragePostgres StorageBackend = "postgres" // Require Postgres (fatal if unreachable)
	StorageMemory   StorageBackend = "memory"   // In-memory ring buffer only
)

// Config holds global settings for the CyberGuard detection service.
// All settings can be configured via environment variables or programmatically.
type Config struct {
	// === Model Artifact ===
	ModelPath string // Path to the trained model bundle (empty = compiled-in baseline)

	// === Request Budget ===
	RequestBudget time.Duration // Hard deadline for one analysis (default: 200ms)
	ProbeTimeout  time.Duration // Per-probe timeout for network signal lookups (default: 60ms)

	// === Feature Extraction ===
	ProbesEnabled   bool   // Network probes on/off; off = lexical-only analysis (default: true)
	MaxRedirectHops int    // Redirect-chain trace depth limit (default: 5)
	LexiconDir      string // Directory holding lexicon.yaml overrides (empty = auto-discover)

	// === Detection Thresholds (0.0 - 1.0) ===
	PhishingThreshold    float64 // Calibrated probability at or above this = Phishing (default: 0.5)
	AttributionThreshold float64 // Below this confidence, threat type falls back to Other (default: 0.6)

	// === Collaborators ===
	Storage       StorageBackend
	DatabaseURL   string        // Postgres DSN for the analysis store
	RedisAddr     string        // Redis address for the domain-age cache (empty = cache disabled)
	RedisPassword string        //
	DomainAgeTTL  time.Duration // Cache TTL for WHOIS lookups (default: 12h)

	// === Persistence fan-out ===
	EmitConcurrency int // Max in-flight fire-and-forget store writes (default: 64)
	MemoryStoreCap  int // Record cap for the in-memory store (default: 1000)
}

// NewDefaultConfig creates a Config with sensible defaults.
// All settings can be overridden via environment variables.
func NewDefaultConfig() *Config {
	return &Config{
		ModelPath: GetEnv("CYBERGUARD_MODEL_PATH", ""),

		RequestBudget: time.Duration(GetEnvInt("CYBERGUARD_REQUEST_BUDGET_MS", 200)) * time.Millisecond,
		ProbeTimeout:  time.Duration(clampInt(GetEnvInt("CYBERGUARD_PROBE_TIMEOUT_MS", 60), 10, 150)) * time.Millisecond,

		ProbesEnabled:   GetEnvBool("CYBERGUARD_PROBES_ENABLED", true),
		MaxRedirectHops: clampInt(GetEnvInt("CYBERGUARD_MAX_REDIRECT_HOPS", 5), 1, 10),
		LexiconDir:      GetEnv("CYBERGUARD_LEXICON_DIR", ""),

		PhishingThreshold:    GetEnvFloat("CYBERGUARD_PHISHING_THRESHOLD", 0.5),
		AttributionThreshold: GetEnvFloat("CYBERGUARD_ATTRIBUTION_THRESHOLD", 0.6),

		Storage:       StorageBackend(GetEnv("CYBERGUARD_STORAGE", string(StorageAuto))),
		DatabaseURL:   GetEnv("CYBERGUARD_DATABASE_URL", os.Getenv("DATABASE_URL")),
		RedisAddr:     GetEnv("CYBERGUARD_REDIS_ADDR", ""),
		RedisPassword: GetEnv("CYBERGUARD_REDIS_PASSWORD", ""),
		DomainAgeTTL:  time.Duration(GetEnvInt("CYBERGUARD_DOMAIN_AGE_TTL_SECONDS", 43200)) * time.Second,

		EmitConcurrency: clampInt(GetEnvInt("CYBERGUARD_EMIT_CONCURRENCY", 64), 1, 4096),
		MemoryStoreCap:  clampInt(GetEnvInt("CYBERGUARD_MEMORY_STORE_CAP", 1000), 10, 1_000_000),
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	var problems []string

	if c.RequestBudget <= 0 {
		problems = append(problems, "request budget must be positive")
	}
	if c.ProbeTimeout >= c.RequestBudget {
		problems = append(problems, "probe timeout must be below the request budget")
	}
	if c.PhishingThreshold <= 0 || c.PhishingThreshold >= 1 {
		problems = append(problems, "phishing threshold must be in (0,1)")
	}
	if c.AttributionThreshold < 0 || c.AttributionThreshold > 1 {
		problems = append(problems, "attribution threshold must be in [0,1]")
	}
	switch c.Storage {
	case StorageAuto, StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "storage=postgres requires CYBERGUARD_DATABASE_URL")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown storage backend %q", c.Storage))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// MustValidate calls Validate and fatally exits if validation fails.
// Call this at startup before starting the server.
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		log.Fatalf("[STARTUP] FATAL: %v", err)
	}
	log.Println("[STARTUP] Configuration validated successfully")
}

// clampInt ensures a value is within bounds
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Helper functions for environment variable parsing.
// These are exported for use by other packages (e.g., pkg/features).

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// GetEnvSlice returns a comma-separated list from an environment variable or a default value.
func GetEnvSlice(key string, defaultValue []string) []string {
	if v := os.Getenv(key); v != "" {
		var parts []string
		for _, p := range strings.Split(v, ",") {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}
