// Package risk folds per-category threat signals into a single scored,
// verdict-bearing assessment with an ordered evidence trail. Aggregation is a
// pure function: no I/O, no state, and the only failure mode is a caller
// contract violation.
package risk

import (
	"fmt"
	"sort"

	"github.com/pretextlabs/pretext/pkg/detect"
	"github.com/pretextlabs/pretext/pkg/patterns"
)

// Verdict is the banded risk classification of one analyzed message.
type Verdict string

const (
	VerdictLow      Verdict = "low"
	VerdictMedium   Verdict = "medium"
	VerdictHigh     Verdict = "high"
	VerdictCritical Verdict = "critical"
)

// Config carries every aggregation calibration constant. The defaults come
// from the source taxonomy; all of them are tunable because they are subject
// to recalibration against real traffic.
type Config struct {
	// Verdict bands. Boundaries are closed on the lower end: a score of
	// exactly HighThreshold is high.
	HighThreshold   float64
	MediumThreshold float64

	// Multiplier bonuses. Escalation bonuses stack.
	ActionBonus float64 // action phrase present
	PairBonus   float64 // impersonation+authority, or fear+urgency
	SpreadBonus float64 // SpreadCount or more categories active

	// SpreadCount is the category count that both adds SpreadBonus and hard
	// escalates the verdict to critical.
	SpreadCount int

	// MaxExcerptLen bounds evidence excerpts, in bytes; truncation expands
	// outward from the matched substring so the match always survives.
	MaxExcerptLen int
}

// DefaultConfig returns the stated calibration defaults.
func DefaultConfig() Config {
	return Config{
		HighThreshold:   0.7,
		MediumThreshold: 0.4,
		ActionBonus:     0.15,
		PairBonus:       0.25,
		SpreadBonus:     0.3,
		SpreadCount:     3,
		MaxExcerptLen:   120,
	}
}

// InvalidInputError reports a malformed signal set. A duplicate category is
// always an internal wiring bug in the caller, never a data-quality issue,
// so it is surfaced rather than coerced.
type InvalidInputError struct {
	Category patterns.Category
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("signal set contains category %q more than once", e.Category)
}

// Assessment is the sole output of an analysis: score, verdict, the signals
// that contributed (canonical category order), and the formatted evidence
// trail. Constructed once, never mutated, owned by the caller.
type Assessment struct {
	Score               float64               `json:"score"`
	Verdict             Verdict               `json:"verdict"`
	ContributingSignals []detect.ThreatSignal `json:"contributing_signals"`
	EvidenceTrail       []string              `json:"evidence_trail"`
}

// Aggregator computes assessments under one Config. Stateless and safe for
// concurrent use.
type Aggregator struct {
	cfg       Config
	assembler *Assembler
}

// NewAggregator builds an Aggregator; every zero field of cfg falls back to
// its default, so a zero-value Config scores with the stated calibration.
func NewAggregator(cfg Config) *Aggregator {
	def := DefaultConfig()
	if cfg.HighThreshold == 0 {
		cfg.HighThreshold = def.HighThreshold
	}
	if cfg.MediumThreshold == 0 {
		cfg.MediumThreshold = def.MediumThreshold
	}
	if cfg.ActionBonus == 0 {
		cfg.ActionBonus = def.ActionBonus
	}
	if cfg.PairBonus == 0 {
		cfg.PairBonus = def.PairBonus
	}
	if cfg.SpreadBonus == 0 {
		cfg.SpreadBonus = def.SpreadBonus
	}
	if cfg.SpreadCount == 0 {
		cfg.SpreadCount = def.SpreadCount
	}
	if cfg.MaxExcerptLen == 0 {
		cfg.MaxExcerptLen = def.MaxExcerptLen
	}
	return &Aggregator{cfg: cfg, assembler: &Assembler{MaxExcerptLen: cfg.MaxExcerptLen}}
}

// Aggregate computes the final assessment from the category signals plus the
// action flag. It fails only when a category appears more than once in
// signals, which violates the one-signal-per-category contract.
//
// Scoring: base = sum of confidences (unclamped); multiplier = 1.0 plus the
// configured bonuses; score = min(base x multiplier, 1.0). The verdict is
// two-stage: hard escalation triggers (either escalation pair, or spread)
// force critical regardless of score, because certain tactic combinations
// are inherently critical even at middling intensity; otherwise the score is
// banded with closed lower bounds.
func (a *Aggregator) Aggregate(signals []detect.ThreatSignal, flag detect.ActionFlag) (*Assessment, error) {
	present := make(map[patterns.Category]bool, len(signals))
	base := 0.0
	for _, sig := range signals {
		if present[sig.Category] {
			return nil, &InvalidInputError{Category: sig.Category}
		}
		present[sig.Category] = true
		base += sig.Confidence
	}

	multiplier := 1.0
	if flag.Present {
		multiplier += a.cfg.ActionBonus
	}
	pairImpAuth := present[patterns.CategoryImpersonation] && present[patterns.CategoryAuthority]
	pairFearUrg := present[patterns.CategoryFearThreat] && present[patterns.CategoryUrgency]
	if pairImpAuth {
		multiplier += a.cfg.PairBonus
	}
	if pairFearUrg {
		multiplier += a.cfg.PairBonus
	}
	spread := len(signals) >= a.cfg.SpreadCount
	if spread {
		multiplier += a.cfg.SpreadBonus
	}

	score := base * multiplier
	if score > 1.0 {
		score = 1.0
	}

	verdict := a.verdict(score, pairImpAuth || pairFearUrg || spread)

	ordered := make([]detect.ThreatSignal, len(signals))
	copy(ordered, signals)
	sort.SliceStable(ordered, func(i, j int) bool {
		return patterns.Rank(ordered[i].Category) < patterns.Rank(ordered[j].Category)
	})

	return &Assessment{
		Score:               score,
		Verdict:             verdict,
		ContributingSignals: ordered,
		EvidenceTrail:       a.assembler.Assemble(ordered, flag),
	}, nil
}

func (a *Aggregator) verdict(score float64, hardTrigger bool) Verdict {
	if hardTrigger {
		return VerdictCritical
	}
	switch {
	case score >= a.cfg.HighThreshold:
		return VerdictHigh
	case score >= a.cfg.MediumThreshold:
		return VerdictMedium
	default:
		return VerdictLow
	}
}
