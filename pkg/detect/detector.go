package detect

import (
	"unicode/utf8"

	"github.com/pretextlabs/pretext/pkg/patterns"
)

// Default scoring constants. All of them are calibration values, not
// invariants: Config in pkg/config exposes every one of them.
const (
	// DefaultSaturationCap bounds how often a single rule can count.
	// Repeated boilerplate ("urgent urgent urgent ...") saturates here.
	DefaultSaturationCap = 3

	// DefaultContextBytes is how much surrounding text is captured on each
	// side of a match for the evidence excerpt.
	DefaultContextBytes = 60
)

// DefaultBaseWeights reflect the source taxonomy's differentiated risk
// levels: a matched authority, impersonation, or fear tactic is a stronger
// indicator than a reward lure of equal match intensity.
func DefaultBaseWeights() map[patterns.Category]float64 {
	return map[patterns.Category]float64{
		patterns.CategoryUrgency:       0.8,
		patterns.CategoryAuthority:     0.9,
		patterns.CategoryImpersonation: 0.9,
		patterns.CategoryRewardLure:    0.6,
		patterns.CategoryFearThreat:    0.9,
	}
}

// Detector runs the shared category-detection algorithm, parameterized by
// per-category base weights. A single Detector serves all five categories
// and is safe for concurrent use: it holds no per-call state.
type Detector struct {
	baseWeights   map[patterns.Category]float64
	saturationCap int
	contextBytes  int
}

// NewDetector returns a Detector with the default calibration.
func NewDetector() *Detector {
	return &Detector{
		baseWeights:   DefaultBaseWeights(),
		saturationCap: DefaultSaturationCap,
		contextBytes:  DefaultContextBytes,
	}
}

// NewDetectorWith overrides calibration values. A nil baseWeights or
// non-positive cap keeps the defaults; a partial baseWeights map overrides
// only the categories it names, so a missing entry can never zero out a
// category's confidence.
func NewDetectorWith(baseWeights map[patterns.Category]float64, saturationCap int) *Detector {
	d := NewDetector()
	if baseWeights != nil {
		merged := DefaultBaseWeights()
		for cat, w := range baseWeights {
			merged[cat] = w
		}
		d.baseWeights = merged
	}
	if saturationCap > 0 {
		d.saturationCap = saturationCap
	}
	return d
}

// ruleMatch pairs a span with the rule that produced it, so combined evidence
// can be ordered by position in text with rule order as the tie-break.
type ruleMatch struct {
	ruleIdx int
	span    patterns.Span
}

// Detect scans text against one category's rules. It returns nil when no
// rule matches: the category contributes no signal, which aggregation treats
// differently from a zero-confidence one.
//
// Confidence is baseWeight x min(1.0, sum over matched rules of
// weight x min(matchCount, saturationCap)), clamped to [0,1].
func (d *Detector) Detect(text string, cat patterns.Category, rules []*patterns.PatternRule) *ThreatSignal {
	var (
		matches    []ruleMatch
		matchCount = make([]int, len(rules))
	)
	for i, rule := range rules {
		spans := rule.Match.FindMatches(text)
		matchCount[i] = len(spans)
		for _, sp := range spans {
			matches = append(matches, ruleMatch{ruleIdx: i, span: sp})
		}
	}
	if len(matches) == 0 {
		return nil
	}

	raw := 0.0
	for i, rule := range rules {
		if matchCount[i] == 0 {
			continue
		}
		n := matchCount[i]
		if n > d.saturationCap {
			n = d.saturationCap
		}
		raw += rule.Weight * float64(n)
	}
	if raw > 1.0 {
		raw = 1.0
	}

	confidence := d.baseWeights[cat] * raw
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	// Text order first, rule order as tie-break. FindMatches already sorts
	// within a rule; this merges across rules deterministically.
	sortMatches(matches)

	var (
		ruleIDs []string
		seenIDs = make(map[string]bool, len(rules))
		spans   = make([]EvidenceSpan, 0, len(matches))
	)
	for _, m := range matches {
		rule := rules[m.ruleIdx]
		if !seenIDs[rule.ID] {
			seenIDs[rule.ID] = true
			ruleIDs = append(ruleIDs, rule.ID)
		}
		spans = append(spans, d.evidenceSpan(text, rule, m.span))
	}

	return &ThreatSignal{
		Category:       cat,
		Confidence:     confidence,
		MatchedRuleIDs: ruleIDs,
		EvidenceSpans:  spans,
	}
}

func sortMatches(matches []ruleMatch) {
	// Insertion sort keeps this allocation-free; match lists are short.
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && lessMatch(matches[j], matches[j-1]); j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}
}

func lessMatch(a, b ruleMatch) bool {
	if a.span.Start != b.span.Start {
		return a.span.Start < b.span.Start
	}
	if a.span.End != b.span.End {
		return a.span.End < b.span.End
	}
	return a.ruleIdx < b.ruleIdx
}

// evidenceSpan captures the match with surrounding context, aligned to rune
// boundaries so the excerpt is always valid UTF-8.
func (d *Detector) evidenceSpan(text string, rule *patterns.PatternRule, sp patterns.Span) EvidenceSpan {
	start := sp.Start - d.contextBytes
	if start < 0 {
		start = 0
	}
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	end := sp.End + d.contextBytes
	if end > len(text) {
		end = len(text)
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}
	return EvidenceSpan{
		RuleID:      rule.ID,
		Subcategory: rule.Subcategory,
		Excerpt:     text[start:end],
		MatchStart:  sp.Start - start,
		MatchEnd:    sp.End - start,
	}
}
