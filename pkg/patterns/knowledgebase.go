package patterns

import (
	"fmt"
)

// RuleSpec is the unvalidated, declarative form of a rule as supplied by a
// Source. Load converts it into a compiled PatternRule or rejects it.
type RuleSpec struct {
	ID          string    `yaml:"id"`
	Category    string    `yaml:"category"`
	Subcategory string    `yaml:"subcategory"`
	Weight      float64   `yaml:"weight"`
	Description string    `yaml:"description"`
	Match       MatchDecl `yaml:"match"`
}

// MatchDecl declares exactly one matcher variant.
type MatchDecl struct {
	Phrases   []string       `yaml:"phrases,omitempty"`
	Regex     string         `yaml:"regex,omitempty"`
	Proximity *ProximityDecl `yaml:"proximity,omitempty"`
}

// ProximityDecl declares a token-proximity matcher.
type ProximityDecl struct {
	Tokens []string `yaml:"tokens"`
	Window int      `yaml:"window"`
}

// Source supplies the declarative rule set at process start. Implementations:
// BuiltinSource (compiled in), YAMLSource (rule file), PostgresSource
// (pattern_rules table).
type Source interface {
	Rules() ([]RuleSpec, error)
}

// LoadError reports a rule that failed validation. The knowledge base is
// all-or-nothing: a single bad rule fails the whole load and the process must
// not begin serving analyses.
type LoadError struct {
	RuleID string
	Reason string
}

func (e *LoadError) Error() string {
	if e.RuleID == "" {
		return fmt.Sprintf("rule load failed: %s", e.Reason)
	}
	return fmt.Sprintf("rule %q: %s", e.RuleID, e.Reason)
}

// KnowledgeBase is the loaded-once, read-only rule collection. It exposes
// lookup only; there is no mutation after Load, so concurrent analyses share
// it without locking.
type KnowledgeBase struct {
	byCategory map[Category][]*PatternRule
	total      int
}

// Load validates and compiles every rule from src. It fails with *LoadError
// on the first malformed rule: unknown category, weight outside (0,1], empty
// or ambiguous matcher, or a duplicate rule id within one category.
func Load(src Source) (*KnowledgeBase, error) {
	specs, err := src.Rules()
	if err != nil {
		return nil, fmt.Errorf("reading rule source: %w", err)
	}

	kb := &KnowledgeBase{byCategory: make(map[Category][]*PatternRule, len(CanonicalOrder))}
	seen := make(map[Category]map[string]bool)

	for _, spec := range specs {
		if spec.ID == "" {
			return nil, &LoadError{Reason: "missing rule id"}
		}
		cat := Category(spec.Category)
		if !cat.Valid() {
			return nil, &LoadError{RuleID: spec.ID, Reason: fmt.Sprintf("unknown category %q", spec.Category)}
		}
		if spec.Weight <= 0 || spec.Weight > 1 {
			return nil, &LoadError{RuleID: spec.ID, Reason: fmt.Sprintf("weight %v outside (0,1]", spec.Weight)}
		}
		if seen[cat] == nil {
			seen[cat] = make(map[string]bool)
		}
		if seen[cat][spec.ID] {
			return nil, &LoadError{RuleID: spec.ID, Reason: fmt.Sprintf("duplicate rule id in category %q", cat)}
		}
		seen[cat][spec.ID] = true

		match, err := specMatch(spec.Match)
		if err != nil {
			return nil, &LoadError{RuleID: spec.ID, Reason: err.Error()}
		}
		if err := match.compile(); err != nil {
			return nil, &LoadError{RuleID: spec.ID, Reason: err.Error()}
		}

		rule := &PatternRule{
			ID:          spec.ID,
			Category:    cat,
			Subcategory: spec.Subcategory,
			Match:       match,
			Weight:      spec.Weight,
			Description: spec.Description,
		}
		kb.byCategory[cat] = append(kb.byCategory[cat], rule)
		kb.total++
	}

	return kb, nil
}

// specMatch maps a declaration onto the single matcher variant it names.
func specMatch(decl MatchDecl) (MatchSpec, error) {
	variants := 0
	if len(decl.Phrases) > 0 {
		variants++
	}
	if decl.Regex != "" {
		variants++
	}
	if decl.Proximity != nil {
		variants++
	}
	switch {
	case variants == 0:
		return MatchSpec{}, fmt.Errorf("empty matcher")
	case variants > 1:
		return MatchSpec{}, fmt.Errorf("ambiguous matcher: declare exactly one of phrases, regex, proximity")
	case len(decl.Phrases) > 0:
		return MatchSpec{Kind: MatchLiteral, Phrases: append([]string(nil), decl.Phrases...)}, nil
	case decl.Regex != "":
		return MatchSpec{Kind: MatchRegex, Pattern: decl.Regex}, nil
	default:
		return MatchSpec{
			Kind:   MatchProximity,
			Tokens: append([]string(nil), decl.Proximity.Tokens...),
			Window: decl.Proximity.Window,
		}, nil
	}
}

// RulesFor returns the ordered rules of a category. Never fails; a category
// with no rules yields an empty slice, never nil. Callers must treat the
// result as read-only.
func (kb *KnowledgeBase) RulesFor(cat Category) []*PatternRule {
	if rules, ok := kb.byCategory[cat]; ok {
		return rules
	}
	return []*PatternRule{}
}

// TotalRules returns the number of loaded rules across all categories.
func (kb *KnowledgeBase) TotalRules() int { return kb.total }

// CategoryCount returns the number of rules in one category.
func (kb *KnowledgeBase) CategoryCount(cat Category) int {
	return len(kb.byCategory[cat])
}
