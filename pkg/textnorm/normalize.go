// Package textnorm is the text-cleaning collaborator in front of the
// analysis engine. It normalizes raw email or chat text into the lower-cased,
// whitespace-collapsed form the pattern rules expect, while keeping the
// psychologically meaningful cues (urgency punctuation, mentions, tags) that
// the rules rely on.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reURL   = regexp.MustCompile(`https?://\S+|www\.\S+`)
	reEmail = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)
	reSpace = regexp.MustCompile(`\s+`)
)

// keptPunct are punctuation marks that signal intent or tone and survive
// normalization: urgency (!), uncertainty (?), mentions (@), tags (#).
const keptPunct = "!?@#"

// normalizer folds the input to NFKC (homoglyph digits, full-width forms)
// and strips control and format characters in one pass. Whitespace controls
// (tab, newline) survive so line breaks stay word boundaries.
var normalizer = transform.Chain(
	norm.NFKC,
	runes.Remove(runes.Predicate(func(r rune) bool {
		return (unicode.Is(unicode.Cc, r) || unicode.Is(unicode.Cf, r)) && !unicode.IsSpace(r)
	})),
)

var lower = cases.Lower(language.English)

// Normalize produces the engine's input form from raw text: NFKC-folded,
// lower-cased, URLs and addresses removed, punctuation reduced to the kept
// cue set, whitespace collapsed. Word boundaries and sentence punctuation
// relevant to matching are preserved (periods stay so clause-scoped rules
// can stop at sentence ends).
func Normalize(raw string) string {
	folded, _, err := transform.String(normalizer, raw)
	if err != nil {
		// NFKC over arbitrary input does not fail; Remove never fails.
		// Fall back to the raw text rather than dropping the message.
		folded = raw
	}

	text := lower.String(folded)
	text = reURL.ReplaceAllString(text, " ")
	text = reEmail.ReplaceAllString(text, " ")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r):
			b.WriteRune(r)
		case strings.ContainsRune(keptPunct, r):
			b.WriteRune(r)
		case r == '.' || r == ',' || r == ':' || r == '\'' || r == '-' || r == '$':
			// Sentence structure, contractions, hyphenated phrases, and
			// currency amounts carry matching signal.
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	return strings.TrimSpace(reSpace.ReplaceAllString(b.String(), " "))
}
