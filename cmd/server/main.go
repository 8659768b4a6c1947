package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/CyberGuardHQ/cyberguard/pkg/config"
	"github.com/CyberGuardHQ/cyberguard/pkg/features"
	"github.com/CyberGuardHQ/cyberguard/pkg/ml"
	"github.com/CyberGuardHQ/cyberguard/pkg/pipeline"
	"github.com/CyberGuardHQ/cyberguard/pkg/store"
)

const Version = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		port := "8000"
		if len(os.Args) > 2 {
			port = os.Args[2]
		}
		runHTTPServer(port)
	case "analyze":
		if len(os.Args) < 3 {
			fmt.Println("Usage: cyberguard analyze <url>")
			os.Exit(1)
		}
		runCLIAnalyze(strings.Join(os.Args[2:], ""))
	case "version":
		fmt.Printf("CyberGuard v%s\n", Version)
		fmt.Println("Phishing URL Detection Service")
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("CyberGuard v%s - Phishing URL Detection Service\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  cyberguard serve [port]   Start HTTP server (default: 8000)")
	fmt.Println("  cyberguard analyze <url>  Analyze a single URL from the command line")
	fmt.Println("  cyberguard version        Show version")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  cyberguard serve 8080")
	fmt.Println("  cyberguard analyze http://paypal-login.example.xyz/verify")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  CYBERGUARD_MODEL_PATH     Path to a trained model artifact (default: compiled-in baseline)")
	fmt.Println("  CYBERGUARD_DATABASE_URL   Postgres DSN for the analysis store (default: in-memory)")
	fmt.Println("  CYBERGUARD_REDIS_ADDR     Redis address for the domain-age cache (default: disabled)")
	fmt.Println("  CYBERGUARD_LEXICON_DIR    Directory with lexicon.yaml overrides (default: auto-discover)")
}

// ============================================================================
// Startup wiring
// ============================================================================

// loadRegistry serves the configured artifact, or the compiled-in baseline
// when none is configured. A configured path that fails to load is fatal:
// silently serving the baseline instead of the operator's model would skew
// every verdict.
func loadRegistry(cfg *config.Config) *ml.Registry {
	if cfg.ModelPath == "" {
		log.Printf("[STARTUP] No model path configured, serving compiled-in baseline %s", ml.BaselineVersion)
		return ml.NewRegistry(ml.NewBaselineModel())
	}
	model, err := ml.LoadModel(cfg.ModelPath)
	if err != nil {
		log.Fatalf("[STARTUP] FATAL: model artifact %s unusable: %v", cfg.ModelPath, err)
	}
	log.Printf("[STARTUP] Loaded model %s from %s (accuracy %.3f)", model.Version(), cfg.ModelPath, model.Accuracy())
	return ml.NewRegistry(model)
}

func loadLexicon(cfg *config.Config) {
	dir := cfg.LexiconDir
	if dir == "" {
		dir = features.FindLexiconDir()
	}
	if dir == "" {
		log.Println("[STARTUP] No lexicon overrides found, using compiled-in lists")
		return
	}
	if err := features.LoadLexicon(dir); err != nil {
		log.Printf("[STARTUP] WARN: lexicon overrides in %s unusable, keeping compiled-in lists: %v", dir, err)
	}
}

// openStore picks the analysis store backend and reports which one won.
// Explicit postgres is fatal on failure; auto mode falls back to memory so
// the service stays up without a database.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, string) {
	switch cfg.Storage {
	case config.StoragePostgres:
		st, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("[STARTUP] FATAL: postgres store: %v", err)
		}
		log.Println("[STARTUP] Analysis store: postgres")
		return st, "postgres"
	case config.StorageMemory:
		log.Printf("[STARTUP] Analysis store: memory (cap %d)", cfg.MemoryStoreCap)
		return store.NewMemoryStore(cfg.MemoryStoreCap), "memory"
	default: // StorageAuto
		if cfg.DatabaseURL != "" {
			st, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
			if err == nil {
				log.Println("[STARTUP] Analysis store: postgres")
				return st, "postgres"
			}
			log.Printf("[STARTUP] WARN: postgres unavailable, falling back to memory store: %v", err)
		}
		log.Printf("[STARTUP] Analysis store: memory (cap %d)", cfg.MemoryStoreCap)
		return store.NewMemoryStore(cfg.MemoryStoreCap), "memory"
	}
}

func buildPipeline(cfg *config.Config, registry *ml.Registry, st store.Store) *pipeline.Pipeline {
	var prober features.HostProber
	if cfg.ProbesEnabled {
		cache := features.NewDomainAgeCache(cfg.RedisAddr, cfg.RedisPassword, cfg.DomainAgeTTL)
		if cache != nil {
			log.Printf("[STARTUP] Domain-age cache: redis at %s (ttl %s)", cfg.RedisAddr, cfg.DomainAgeTTL)
		}
		prober = features.NewNetworkProber(cache, cfg.MaxRedirectHops)
	} else {
		log.Println("[STARTUP] Network probes disabled, running lexical-only analysis")
	}
	extractor := features.NewExtractor(prober, cfg.ProbeTimeout)
	return pipeline.New(cfg, registry, st, extractor)
}

// ============================================================================
// HTTP Server Mode
// ============================================================================

func runHTTPServer(port string) {
	cfg := config.NewDefaultConfig()
	cfg.MustValidate()

	loadLexicon(cfg)
	registry := loadRegistry(cfg)

	startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	st, storageName := openStore(startupCtx, cfg)
	cancel()
	defer st.Close()

	pipe := buildPipeline(cfg, registry, st)

	app := fiber.New(fiber.Config{
		AppName: "CyberGuard",
	})

	app.Get("/api/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":        "ok",
			"version":       Version,
			"model_version": registry.Current().Version(),
			"storage":       storageName,
		})
	})

	app.Post("/api/analyze-url", func(c fiber.Ctx) error {
		var req struct {
			URL string `json:"url"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		if req.URL == "" {
			return c.Status(400).JSON(fiber.Map{"error": "url field is required"})
		}

		result, err := pipe.Analyze(c.Context(), req.URL)
		if err != nil {
			if errors.Is(err, pipeline.ErrInvalidURL) {
				return c.Status(400).JSON(fiber.Map{"error": err.Error()})
			}
			log.Printf("[API] analyze failed: %v", err)
			return c.Status(500).JSON(fiber.Map{"error": "analysis failed"})
		}
		return c.JSON(result)
	})

	app.Get("/api/stats", func(c fiber.Ctx) error {
		stats, err := st.Stats(c.Context())
		if err != nil {
			log.Printf("[API] stats failed: %v", err)
			return c.Status(500).JSON(fiber.Map{"error": "stats unavailable"})
		}
		stats.DetectionAccuracy = registry.Current().Accuracy()
		return c.JSON(stats)
	})

	app.Get("/api/recent-threats", func(c fiber.Ctx) error {
		limit := queryLimit(c, 10, 100)
		threats, err := st.RecentThreats(c.Context(), limit)
		if err != nil {
			log.Printf("[API] recent-threats failed: %v", err)
			return c.Status(500).JSON(fiber.Map{"error": "history unavailable"})
		}
		return c.JSON(fiber.Map{"threats": threats, "count": len(threats)})
	})

	app.Get("/api/analysis-logs", func(c fiber.Ctx) error {
		limit := queryLimit(c, 50, 100)
		logs, err := st.RecentLogs(c.Context(), limit)
		if err != nil {
			log.Printf("[API] analysis-logs failed: %v", err)
			return c.Status(500).JSON(fiber.Map{"error": "history unavailable"})
		}
		return c.JSON(fiber.Map{"logs": logs, "count": len(logs)})
	})

	app.Post("/api/model/reload", func(c fiber.Ctx) error {
		var req struct {
			Path string `json:"path"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		path := req.Path
		if path == "" {
			path = cfg.ModelPath
		}
		if path == "" {
			return c.Status(400).JSON(fiber.Map{"error": "no model path configured or provided"})
		}

		model, err := registry.Reload(path)
		if err != nil {
			log.Printf("[API] model reload failed, previous model still serving: %v", err)
			return c.Status(422).JSON(fiber.Map{"error": err.Error()})
		}
		log.Printf("[API] model reloaded: %s (accuracy %.3f)", model.Version(), model.Accuracy())
		return c.JSON(fiber.Map{
			"status":        "reloaded",
			"model_version": model.Version(),
		})
	})

	log.Printf("[STARTUP] CyberGuard v%s listening on :%s (budget %s, threshold %.2f)",
		Version, port, cfg.RequestBudget, cfg.PhishingThreshold)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("[STARTUP] FATAL: server: %v", err)
	}
}

func queryLimit(c fiber.Ctx, def, max int) int {
	raw := c.Query("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// ============================================================================
// CLI Mode
// ============================================================================

func runCLIAnalyze(rawURL string) {
	cfg := config.NewDefaultConfig()
	cfg.MustValidate()

	loadLexicon(cfg)
	registry := loadRegistry(cfg)
	pipe := buildPipeline(cfg, registry, nil)

	result, err := pipe.Analyze(context.Background(), rawURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
