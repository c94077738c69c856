package risk

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pretextlabs/pretext/pkg/detect"
)

// Assembler formats the contributing signals into the stable, human-readable
// evidence trail: one line per matched rule id (categories in the order the
// caller supplies, which Aggregate guarantees is canonical), then one line
// for the action phrases. Never fails.
type Assembler struct {
	// MaxExcerptLen bounds excerpt length in bytes. Truncation expands
	// outward from the matched substring, never an arbitrary prefix, so the
	// literal match is always present in the emitted line.
	MaxExcerptLen int
}

// Assemble renders the trail. The action line is appended only when at least
// one signal contributed: with no signals there is nothing the flag
// amplifies, and a routine "please confirm attendance" message must yield an
// empty trail.
func (as *Assembler) Assemble(orderedSignals []detect.ThreatSignal, flag detect.ActionFlag) []string {
	trail := []string{}
	for _, sig := range orderedSignals {
		emitted := make(map[string]bool, len(sig.MatchedRuleIDs))
		for _, span := range sig.EvidenceSpans {
			if emitted[span.RuleID] {
				continue
			}
			emitted[span.RuleID] = true
			trail = append(trail, fmt.Sprintf("%s/%s [%s]: \"%s\"",
				sig.Category, span.Subcategory, span.RuleID, as.truncate(span)))
		}
	}
	if flag.Present && len(orderedSignals) > 0 {
		trail = append(trail, "action request: "+strings.Join(flag.MatchedPhrases, ", "))
	}
	return trail
}

// truncate bounds the excerpt to MaxExcerptLen bytes, keeping the matched
// substring whole and centered. A match longer than the budget is kept in
// full; the bound applies to context, not to the match itself.
func (as *Assembler) truncate(span detect.EvidenceSpan) string {
	excerpt := span.Excerpt
	max := as.MaxExcerptLen
	if max <= 0 || len(excerpt) <= max {
		return excerpt
	}

	ms, me := span.MatchStart, span.MatchEnd
	if ms < 0 || me > len(excerpt) || ms > me {
		ms, me = 0, len(excerpt)
	}

	budget := max - (me - ms)
	if budget < 0 {
		budget = 0
	}
	left := budget / 2
	start := ms - left
	if start < 0 {
		start = 0
	}
	end := me + (budget - (ms - start))
	if end > len(excerpt) {
		// Unused right budget flows back to the left.
		start -= end - len(excerpt)
		if start < 0 {
			start = 0
		}
		end = len(excerpt)
	}
	for start > 0 && start < len(excerpt) && !utf8.RuneStart(excerpt[start]) {
		start++
	}
	for end > start && end < len(excerpt) && !utf8.RuneStart(excerpt[end]) {
		end--
	}

	out := excerpt[start:end]
	if start > 0 {
		out = "..." + out
	}
	if end < len(excerpt) {
		out += "..."
	}
	return out
}
