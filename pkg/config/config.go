// Package config holds the tunable calibration for the analysis engine and
// gateway. Every scoring constant the engine uses is exposed here because
// the source taxonomy marks them as subject to recalibration: nothing is a
// hidden constant.
package config

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pretextlabs/pretext/pkg/patterns"
)

// RuleSourceKind selects where the knowledge base loads its rules from.
type RuleSourceKind string

const (
	RulesBuiltin  RuleSourceKind = "builtin"  // compiled-in rule set (default)
	RulesYAML     RuleSourceKind = "yaml"     // declarative rule file
	RulesPostgres RuleSourceKind = "postgres" // pattern_rules table
)

// Config holds global settings. All settings can be configured via
// environment variables or programmatically.
type Config struct {
	// === Rule source ===
	RuleSource RuleSourceKind // "builtin", "yaml", "postgres"
	RulesFile  string         // rule file path when RuleSource == yaml
	RulesDSN   string         // database DSN when RuleSource == postgres

	// === Verdict bands (closed lower bounds) ===
	HighThreshold   float64 // score >= this = high (default: 0.7)
	MediumThreshold float64 // score >= this = medium (default: 0.4)

	// === Escalation multipliers ===
	ActionBonus float64 // action phrase present (default: 0.15)
	PairBonus   float64 // escalation category pair (default: 0.25)
	SpreadBonus float64 // SpreadCount+ categories (default: 0.3)
	SpreadCount int     // category count for spread escalation (default: 3)

	// === Detection calibration ===
	SaturationCap int                           // per-rule match count cap (default: 3)
	BaseWeights   map[patterns.Category]float64 // per-category base weights
	ExcerptMaxLen int                           // evidence excerpt bound in bytes (default: 120)
	ParallelScan  bool                          // scan categories concurrently per message

	// === Gateway ===
	ListenAddr     string // HTTP listen address (default: ":8089")
	RedisAddr      string // verdict tally sink; empty disables
	RedisKeyPrefix string // tally key prefix (default: "pretext:verdicts")
}

// NewDefaultConfig creates a Config with the documented defaults. All
// settings can be overridden via PRETEXT_* environment variables.
func NewDefaultConfig() *Config {
	return &Config{
		RuleSource: RuleSourceKind(GetEnv("PRETEXT_RULES_SOURCE", string(RulesBuiltin))),
		RulesFile:  GetEnv("PRETEXT_RULES_FILE", ""),
		RulesDSN:   GetEnv("PRETEXT_RULES_DSN", ""),

		HighThreshold:   GetEnvFloat("PRETEXT_HIGH_THRESHOLD", 0.7),
		MediumThreshold: GetEnvFloat("PRETEXT_MEDIUM_THRESHOLD", 0.4),

		ActionBonus: GetEnvFloat("PRETEXT_ACTION_BONUS", 0.15),
		PairBonus:   GetEnvFloat("PRETEXT_PAIR_BONUS", 0.25),
		SpreadBonus: GetEnvFloat("PRETEXT_SPREAD_BONUS", 0.3),
		SpreadCount: GetEnvInt("PRETEXT_SPREAD_COUNT", 3),

		SaturationCap: GetEnvInt("PRETEXT_SATURATION_CAP", 3),
		BaseWeights:   envBaseWeights(),
		ExcerptMaxLen: GetEnvInt("PRETEXT_EXCERPT_MAX_LEN", 120),
		ParallelScan:  GetEnvBool("PRETEXT_PARALLEL_SCAN", false),

		ListenAddr:     GetEnv("PRETEXT_LISTEN_ADDR", ":8089"),
		RedisAddr:      GetEnv("PRETEXT_REDIS_ADDR", ""),
		RedisKeyPrefix: GetEnv("PRETEXT_REDIS_KEY_PREFIX", "pretext:verdicts"),
	}
}

// NewHighSecurityConfig lowers the verdict bands for deployments that prefer
// false positives over missed compound attacks.
func NewHighSecurityConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.HighThreshold = 0.55
	cfg.MediumThreshold = 0.3
	return cfg
}

// NewHighUsabilityConfig raises the bands to minimize false positives.
func NewHighUsabilityConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.HighThreshold = 0.8
	cfg.MediumThreshold = 0.55
	return cfg
}

// envBaseWeights reads per-category weight overrides, keeping the detection
// defaults for any category left unset.
func envBaseWeights() map[patterns.Category]float64 {
	return map[patterns.Category]float64{
		patterns.CategoryUrgency:       GetEnvFloat("PRETEXT_WEIGHT_URGENCY", 0.8),
		patterns.CategoryAuthority:     GetEnvFloat("PRETEXT_WEIGHT_AUTHORITY", 0.9),
		patterns.CategoryImpersonation: GetEnvFloat("PRETEXT_WEIGHT_IMPERSONATION", 0.9),
		patterns.CategoryRewardLure:    GetEnvFloat("PRETEXT_WEIGHT_REWARD_LURE", 0.6),
		patterns.CategoryFearThreat:    GetEnvFloat("PRETEXT_WEIGHT_FEAR_THREAT", 0.9),
	}
}

// Validate checks that the configuration is internally consistent. The
// process must not begin serving analyses on a config that fails here.
func (c *Config) Validate() error {
	var problems []string

	switch c.RuleSource {
	case RulesBuiltin:
	case RulesYAML:
		if c.RulesFile == "" {
			problems = append(problems, "PRETEXT_RULES_FILE required when rule source is yaml")
		}
	case RulesPostgres:
		if c.RulesDSN == "" {
			problems = append(problems, "PRETEXT_RULES_DSN required when rule source is postgres")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown rule source %q", c.RuleSource))
	}

	if !(c.MediumThreshold > 0 && c.MediumThreshold < c.HighThreshold && c.HighThreshold <= 1) {
		problems = append(problems, fmt.Sprintf(
			"verdict bands must satisfy 0 < medium (%v) < high (%v) <= 1", c.MediumThreshold, c.HighThreshold))
	}
	if c.ActionBonus < 0 || c.PairBonus < 0 || c.SpreadBonus < 0 {
		problems = append(problems, "escalation bonuses must be non-negative")
	}
	if c.SpreadCount < 2 {
		problems = append(problems, "spread count must be at least 2")
	}
	if c.SaturationCap < 1 {
		problems = append(problems, "saturation cap must be at least 1")
	}
	if c.ExcerptMaxLen < 1 {
		problems = append(problems, "excerpt length must be positive")
	}
	for cat, w := range c.BaseWeights {
		if w <= 0 || w > 1 {
			problems = append(problems, fmt.Sprintf("base weight for %s (%v) outside (0,1]", cat, w))
		}
	}
	for _, cat := range patterns.CanonicalOrder {
		if _, ok := c.BaseWeights[cat]; !ok {
			problems = append(problems, fmt.Sprintf("missing base weight for %s", cat))
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// MustValidate calls Validate and fatally exits if validation fails.
// Call this at startup before loading the knowledge base.
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		log.Fatalf("[STARTUP] FATAL: %v", err)
	}
	log.Println("[STARTUP] Configuration validated successfully")
}

// Helper functions for environment variable parsing.

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
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}
