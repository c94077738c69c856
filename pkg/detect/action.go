package detect

import (
	"sort"
	"strings"
)

// actionPhrases is the fixed imperative-phrase list. Order here is lookup
// order only; reported phrases follow text order. Multi-word phrases are
// matched as substrings; single words require word boundaries so "clicking"
// or "provider" never trip the flag.
var actionPhrases = []string{
	"click",
	"download",
	"transfer",
	"provide",
	"verify",
	"confirm",
	"call this number",
	"reply with",
}

// DetectAction scans for imperative action phrases independent of category.
// It never fails; the matched phrase list is deduplicated and ordered by
// first occurrence in text.
func DetectAction(normalizedText string) ActionFlag {
	type hit struct {
		pos    int
		phrase string
	}
	var hits []hit
	for _, phrase := range actionPhrases {
		pos := indexPhrase(normalizedText, phrase)
		if pos >= 0 {
			hits = append(hits, hit{pos: pos, phrase: phrase})
		}
	}
	if len(hits) == 0 {
		return ActionFlag{}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	phrases := make([]string, len(hits))
	for i, h := range hits {
		phrases[i] = h.phrase
	}
	return ActionFlag{Present: true, MatchedPhrases: phrases}
}

// indexPhrase finds the first whole-word occurrence of phrase, or -1.
func indexPhrase(text, phrase string) int {
	from := 0
	for {
		idx := strings.Index(text[from:], phrase)
		if idx < 0 {
			return -1
		}
		start := from + idx
		end := start + len(phrase)
		if wordBoundary(text, start, end) {
			return start
		}
		from = start + 1
	}
}

func wordBoundary(text string, start, end int) bool {
	if start > 0 && isWordByte(text[start-1]) {
		return false
	}
	if end < len(text) && isWordByte(text[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}
