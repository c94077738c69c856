package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pretextlabs/pretext/pkg/config"
	"github.com/pretextlabs/pretext/pkg/engine"
	"github.com/pretextlabs/pretext/pkg/patterns"
	"github.com/pretextlabs/pretext/pkg/risk"
	"github.com/pretextlabs/pretext/pkg/textnorm"
)

const Version = "0.1.0"

// AnalyzeResponse wraps an assessment with request bookkeeping for the HTTP
// surface. The assessment itself carries only derived evidence, never the
// raw message.
type AnalyzeResponse struct {
	RequestID string           `json:"request_id"`
	Verdict   risk.Verdict     `json:"verdict"`
	Score     float64          `json:"score"`
	Result    *risk.Assessment `json:"result"`
	LatencyMs float64          `json:"latency_ms"`
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runHTTPServer()
	case "analyze":
		if len(os.Args) < 3 {
			fmt.Println("Usage: pretext analyze <text>")
			os.Exit(1)
		}
		runCLIAnalyze(strings.Join(os.Args[2:], " "))
	case "rules":
		listRules()
	case "version":
		fmt.Printf("Pretext v%s\n", Version)
		fmt.Println("Social-engineering signal detection engine")
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Pretext v%s - Social-Engineering Risk Scanner\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  pretext serve            Start the HTTP gateway")
	fmt.Println("  pretext analyze <text>   Analyze a message from the command line")
	fmt.Println("  pretext rules            List loaded pattern rules per category")
	fmt.Println("  pretext version          Show version")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  PRETEXT_LISTEN_ADDR       HTTP listen address (default: :8089)")
	fmt.Println("  PRETEXT_RULES_SOURCE      Rule source: builtin, yaml, postgres")
	fmt.Println("  PRETEXT_RULES_FILE        Rule file path (yaml source)")
	fmt.Println("  PRETEXT_RULES_DSN         Database DSN (postgres source)")
	fmt.Println("  PRETEXT_REDIS_ADDR        Redis address for verdict tallies (optional)")
	fmt.Println("  PRETEXT_HIGH_THRESHOLD    Score band for a high verdict (default: 0.7)")
	fmt.Println("  PRETEXT_MEDIUM_THRESHOLD  Score band for a medium verdict (default: 0.4)")
}

// loadKnowledgeBase builds the rule set from the configured source. The load
// is all-or-nothing: a single malformed rule aborts startup.
func loadKnowledgeBase(cfg *config.Config) *patterns.KnowledgeBase {
	var src patterns.Source
	switch cfg.RuleSource {
	case config.RulesYAML:
		src = patterns.YAMLSource{Path: cfg.RulesFile}
		log.Printf("[STARTUP] Loading rules from file %s", cfg.RulesFile)
	case config.RulesPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pool, err := patterns.Connect(ctx, cfg.RulesDSN)
		if err != nil {
			log.Fatalf("[STARTUP] FATAL: database connection failed: %v", err)
		}
		// The knowledge base keeps no connection; the pool is only needed
		// for the one-time load.
		defer pool.Close()
		src = patterns.PostgresSource{Pool: pool, Ctx: ctx}
		log.Println("[STARTUP] Loading rules from postgres")
	default:
		src = patterns.BuiltinSource{}
		log.Println("[STARTUP] Loading builtin rules")
	}

	kb, err := patterns.Load(src)
	if err != nil {
		log.Fatalf("[STARTUP] FATAL: rule load failed: %v", err)
	}
	log.Printf("[STARTUP] Loaded %d rules across %d categories", kb.TotalRules(), len(patterns.CanonicalOrder))
	return kb
}

func newEngine(cfg *config.Config) *engine.Engine {
	kb := loadKnowledgeBase(cfg)
	return engine.New(kb, engine.Options{
		BaseWeights:   cfg.BaseWeights,
		SaturationCap: cfg.SaturationCap,
		Parallel:      cfg.ParallelScan,
		Risk: risk.Config{
			HighThreshold:   cfg.HighThreshold,
			MediumThreshold: cfg.MediumThreshold,
			ActionBonus:     cfg.ActionBonus,
			PairBonus:       cfg.PairBonus,
			SpreadBonus:     cfg.SpreadBonus,
			SpreadCount:     cfg.SpreadCount,
			MaxExcerptLen:   cfg.ExcerptMaxLen,
		},
	})
}

// tallySink increments per-verdict counters in redis. It stores counts only:
// no message content or evidence ever reaches the sink.
type tallySink struct {
	client *redis.Client
	prefix string
}

func newTallySink(cfg *config.Config) *tallySink {
	if cfg.RedisAddr == "" {
		log.Println("[STARTUP] Verdict tally sink disabled (no redis address)")
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Printf("[WARN] Verdict tally sink disabled (redis ping failed: %v)", err)
		return nil
	}
	log.Printf("[STARTUP] Verdict tallies enabled (redis %s)", cfg.RedisAddr)
	return &tallySink{client: client, prefix: cfg.RedisKeyPrefix}
}

func (t *tallySink) Record(ctx context.Context, verdict risk.Verdict) {
	if t == nil {
		return
	}
	key := t.prefix + ":" + string(verdict)
	if err := t.client.Incr(ctx, key).Err(); err != nil {
		log.Printf("[WARN] Verdict tally failed: %v", err)
	}
}

// ============================================================================
// HTTP Server Mode
// ============================================================================

func runHTTPServer() {
	cfg := config.NewDefaultConfig()
	cfg.MustValidate()

	eng := newEngine(cfg)
	tally := newTallySink(cfg)

	app := newApp(eng, tally)

	log.Printf("Pretext gateway starting on %s", cfg.ListenAddr)
	log.Printf("Endpoints:")
	log.Printf("  GET  /healthz      - Health check")
	log.Printf("  POST /v1/analyze   - Analyze a message for social-engineering signals")

	if err := app.Listen(cfg.ListenAddr); err != nil {
		log.Fatal(err)
	}
}

// newApp wires the fiber routes. Split out from runHTTPServer so tests can
// exercise the handlers with app.Test.
func newApp(eng *engine.Engine, tally *tallySink) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Pretext",
	})

	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": Version})
	})

	app.Post("/v1/analyze", func(c fiber.Ctx) error {
		start := time.Now()

		var req struct {
			Text string `json:"text"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}

		// Empty and whitespace-only messages are valid input with a fixed
		// low-risk answer, not an error.
		assessment := eng.Analyze(textnorm.Normalize(req.Text))
		tally.Record(c.Context(), assessment.Verdict)

		return c.JSON(AnalyzeResponse{
			RequestID: uuid.NewString(),
			Verdict:   assessment.Verdict,
			Score:     assessment.Score,
			Result:    assessment,
			LatencyMs: float64(time.Since(start).Microseconds()) / 1000.0,
		})
	})

	return app
}

// ============================================================================
// CLI Mode
// ============================================================================

func runCLIAnalyze(text string) {
	cfg := config.NewDefaultConfig()
	cfg.MustValidate()

	eng := newEngine(cfg)
	assessment := eng.Analyze(textnorm.Normalize(text))

	output, _ := json.MarshalIndent(assessment, "", "  ")
	fmt.Println(string(output))
}

func listRules() {
	cfg := config.NewDefaultConfig()
	cfg.MustValidate()

	kb := loadKnowledgeBase(cfg)
	for _, cat := range patterns.CanonicalOrder {
		rules := kb.RulesFor(cat)
		fmt.Printf("%s (%d rules)\n", cat, len(rules))
		for _, r := range rules {
			fmt.Printf("  %-24s weight=%.2f  %s\n", r.ID, r.Weight, r.Description)
		}
		fmt.Println()
	}
}
