// Package engine wires the knowledge base, category detectors, action
// detector, and risk aggregation into the single public entry point:
// Analyze(normalizedText) -> *risk.Assessment.
package engine

import (
	"github.com/pretextlabs/pretext/pkg/detect"
	"github.com/pretextlabs/pretext/pkg/patterns"
	"github.com/pretextlabs/pretext/pkg/risk"
	"golang.org/x/sync/errgroup"
)

// Options carries the engine calibration. Zero values select the documented
// defaults.
type Options struct {
	// BaseWeights overrides the per-category base weights.
	BaseWeights map[patterns.Category]float64

	// SaturationCap overrides the per-rule match saturation cap.
	SaturationCap int

	// Risk overrides the aggregation constants (thresholds, bonuses,
	// excerpt truncation length).
	Risk risk.Config

	// Parallel scans the five categories concurrently per message. Purely a
	// latency optimization: sequential and parallel runs produce identical
	// assessments.
	Parallel bool
}

// Engine analyzes normalized messages against an immutable knowledge base.
// Safe for concurrent use; analyses share no mutable state.
type Engine struct {
	kb       *patterns.KnowledgeBase
	detector *detect.Detector
	agg      *risk.Aggregator
	parallel bool
}

// New builds an Engine over a loaded knowledge base.
func New(kb *patterns.KnowledgeBase, opts Options) *Engine {
	return &Engine{
		kb:       kb,
		detector: detect.NewDetectorWith(opts.BaseWeights, opts.SaturationCap),
		agg:      risk.NewAggregator(opts.Risk),
		parallel: opts.Parallel,
	}
}

// Analyze runs the full pipeline on one normalized message. Matching is
// total: any input, including the empty string, yields a complete assessment
// (no matches is a low verdict with no contributing signals, not an error).
func (e *Engine) Analyze(normalizedText string) *risk.Assessment {
	slots := make([]*detect.ThreatSignal, len(patterns.CanonicalOrder))

	if e.parallel {
		var g errgroup.Group
		for i, cat := range patterns.CanonicalOrder {
			g.Go(func() error {
				slots[i] = e.detector.Detect(normalizedText, cat, e.kb.RulesFor(cat))
				return nil
			})
		}
		// Detectors are infallible; Wait only synchronizes.
		_ = g.Wait()
	} else {
		for i, cat := range patterns.CanonicalOrder {
			slots[i] = e.detector.Detect(normalizedText, cat, e.kb.RulesFor(cat))
		}
	}

	signals := make([]detect.ThreatSignal, 0, len(slots))
	for _, sig := range slots {
		if sig != nil {
			signals = append(signals, *sig)
		}
	}

	flag := detect.DetectAction(normalizedText)

	// Aggregate fails only on a duplicate category, and the slot layout
	// above makes that impossible.
	assessment, err := e.agg.Aggregate(signals, flag)
	if err != nil {
		panic("engine: impossible duplicate category: " + err.Error())
	}
	return assessment
}
