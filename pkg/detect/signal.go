// Package detect turns normalized text into per-category threat signals.
// Each category contributes at most one signal per analysis; the absence of a
// signal is a valid outcome, distinct from a low-confidence one. Everything
// here is pure and deterministic: same text and rules, same bytes out.
package detect

import "github.com/pretextlabs/pretext/pkg/patterns"

// EvidenceSpan records one rule match with enough context for the evidence
// trail. Excerpt is the matched substring plus surrounding context from the
// analyzed text; MatchStart/MatchEnd locate the literal match inside Excerpt
// so truncation can expand outward from it.
type EvidenceSpan struct {
	RuleID      string `json:"rule_id"`
	Subcategory string `json:"subcategory"`
	Excerpt     string `json:"excerpt"`
	MatchStart  int    `json:"match_start"`
	MatchEnd    int    `json:"match_end"`
}

// Match returns the literal matched substring within the excerpt.
func (s EvidenceSpan) Match() string {
	if s.MatchStart < 0 || s.MatchEnd > len(s.Excerpt) || s.MatchStart > s.MatchEnd {
		return s.Excerpt
	}
	return s.Excerpt[s.MatchStart:s.MatchEnd]
}

// ThreatSignal is the single signal a category detector emits when any of its
// rules matched. Immutable once created; owned by the analysis call that
// produced it.
type ThreatSignal struct {
	Category       patterns.Category `json:"category"`
	Confidence     float64           `json:"confidence"`
	MatchedRuleIDs []string          `json:"matched_rule_ids"`
	EvidenceSpans  []EvidenceSpan    `json:"evidence_spans"`
}

// ActionFlag reports imperative action phrases found in the text,
// independent of any category.
type ActionFlag struct {
	Present        bool     `json:"present"`
	MatchedPhrases []string `json:"matched_phrases,omitempty"`
}
