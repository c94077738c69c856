// Package patterns provides the immutable knowledge base of manipulation
// detection rules for the analysis engine. All matchers are compiled once at
// load and shared read-only across all concurrent analyses.
//
// Design principles:
// - COMPILE ONCE: All matchers compiled at load, not per-message
// - CATEGORIZED: Rules organized by threat category for per-detector scans
// - VALIDATED: A malformed rule fails the whole load; there is no partial KB
package patterns

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Category identifies one of the five manipulation-tactic categories.
type Category string

const (
	CategoryUrgency       Category = "urgency"
	CategoryAuthority     Category = "authority"
	CategoryImpersonation Category = "impersonation"
	CategoryRewardLure    Category = "reward_lure"
	CategoryFearThreat    Category = "fear_threat"
)

// CanonicalOrder is the stable category ordering used everywhere evidence or
// signals are presented. Detectors may run in any order; output may not.
var CanonicalOrder = []Category{
	CategoryUrgency,
	CategoryAuthority,
	CategoryImpersonation,
	CategoryRewardLure,
	CategoryFearThreat,
}

// Rank returns the position of cat in the canonical order, or -1 for an
// unknown category.
func Rank(cat Category) int {
	for i, c := range CanonicalOrder {
		if c == cat {
			return i
		}
	}
	return -1
}

// Valid reports whether cat is one of the five known categories.
func (c Category) Valid() bool { return Rank(c) >= 0 }

// MatchKind selects the matcher variant of a rule.
type MatchKind string

const (
	MatchLiteral   MatchKind = "literal"
	MatchRegex     MatchKind = "regex"
	MatchProximity MatchKind = "proximity"
)

// MatchSpec is the polymorphic matcher of a rule. Exactly one variant is
// populated; compile validates the shape and precompiles the regex form.
type MatchSpec struct {
	Kind MatchKind

	// Literal: any occurrence of any phrase is a match.
	Phrases []string

	// Regex: every non-overlapping match of the pattern.
	Pattern string

	// Proximity: all tokens appearing within a window of Window tokens
	// counts as one match per qualifying window.
	Tokens []string
	Window int

	re *regexp.Regexp
}

// Span is a single match location in the scanned text. Offsets are byte
// offsets into the normalized input.
type Span struct {
	Start int
	End   int
	Text  string
}

// compile validates the spec and prepares it for matching. Phrases and
// proximity tokens are lower-cased here so matching against normalized
// (lower-cased) text is exact.
func (m *MatchSpec) compile() error {
	switch m.Kind {
	case MatchLiteral:
		if len(m.Phrases) == 0 {
			return fmt.Errorf("literal matcher has no phrases")
		}
		for i, p := range m.Phrases {
			p = strings.ToLower(strings.TrimSpace(p))
			if p == "" {
				return fmt.Errorf("literal matcher has an empty phrase")
			}
			m.Phrases[i] = p
		}
	case MatchRegex:
		if strings.TrimSpace(m.Pattern) == "" {
			return fmt.Errorf("regex matcher has an empty pattern")
		}
		re, err := regexp.Compile(m.Pattern)
		if err != nil {
			return fmt.Errorf("regex matcher does not compile: %v", err)
		}
		m.re = re
	case MatchProximity:
		if len(m.Tokens) < 2 {
			return fmt.Errorf("proximity matcher needs at least two tokens")
		}
		for i, tok := range m.Tokens {
			tok = strings.ToLower(strings.TrimSpace(tok))
			if tok == "" {
				return fmt.Errorf("proximity matcher has an empty token")
			}
			m.Tokens[i] = tok
		}
		if m.Window < len(m.Tokens) {
			return fmt.Errorf("proximity window %d is smaller than token count %d", m.Window, len(m.Tokens))
		}
	default:
		return fmt.Errorf("unknown matcher kind %q", m.Kind)
	}
	return nil
}

// FindMatches returns every match span of the spec in text, sorted by start
// offset (then end offset). Matching is total: any text, including the empty
// string, yields a valid (possibly empty) result.
func (m *MatchSpec) FindMatches(text string) []Span {
	var spans []Span
	switch m.Kind {
	case MatchLiteral:
		for _, phrase := range m.Phrases {
			from := 0
			for {
				idx := strings.Index(text[from:], phrase)
				if idx < 0 {
					break
				}
				start := from + idx
				end := start + len(phrase)
				spans = append(spans, Span{Start: start, End: end, Text: text[start:end]})
				from = end
			}
		}
	case MatchRegex:
		for _, loc := range m.re.FindAllStringIndex(text, -1) {
			spans = append(spans, Span{Start: loc[0], End: loc[1], Text: text[loc[0]:loc[1]]})
		}
	case MatchProximity:
		spans = m.findProximity(text)
	}
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End < spans[j].End
	})
	return spans
}

// token is a word with its byte offsets, produced by tokenize.
type token struct {
	text  string
	start int
	end   int
}

// tokenize splits text on non-letter/digit boundaries, keeping offsets.
func tokenize(text string) []token {
	var toks []token
	start := -1
	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			toks = append(toks, token{text: text[start:i], start: start, end: i})
			start = -1
		}
	}
	if start >= 0 {
		toks = append(toks, token{text: text[start:], start: start, end: len(text)})
	}
	return toks
}

// findProximity scans token windows of size Window; each window containing
// every required token yields one match. Windows are consumed once matched so
// overlapping windows never double-count.
func (m *MatchSpec) findProximity(text string) []Span {
	toks := tokenize(text)
	if len(toks) < len(m.Tokens) {
		return nil
	}
	var spans []Span
	i := 0
	for i <= len(toks)-len(m.Tokens) {
		limit := i + m.Window
		if limit > len(toks) {
			limit = len(toks)
		}
		first, last := -1, -1
		found := 0
		for _, want := range m.Tokens {
			hit := -1
			for j := i; j < limit; j++ {
				if toks[j].text == want {
					hit = j
					break
				}
			}
			if hit < 0 {
				break
			}
			found++
			if first < 0 || toks[hit].start < toks[first].start {
				first = hit
			}
			if last < 0 || toks[hit].end > toks[last].end {
				last = hit
			}
		}
		if found == len(m.Tokens) {
			spans = append(spans, Span{
				Start: toks[first].start,
				End:   toks[last].end,
				Text:  text[toks[first].start:toks[last].end],
			})
			i = limit
			continue
		}
		i++
	}
	return spans
}

// PatternRule is one immutable detection rule. Weight is the rule's
// contribution to category match intensity and must be in (0, 1].
// Subcategory is informational: it labels evidence but never affects scoring.
type PatternRule struct {
	ID          string
	Category    Category
	Subcategory string
	Match       MatchSpec
	Weight      float64
	Description string
}
