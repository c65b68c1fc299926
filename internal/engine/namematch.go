package engine

import (
	"strings"
	"unicode"
)

// nameMatch is a scored candidate from fuzzy game-name matching.
type nameMatch struct {
	gameID int64
	name   string
	score  float64
}

// matchGameName scans the message for a catalog game name and returns
// the best match with its score in [0,1], or ok=false when nothing
// clears minScore.
//
// Matching is token-based: a name scores by the fraction of its tokens
// present in the message, with a bonus when the full normalized name
// appears as a contiguous substring. Ties prefer the longer name (so
// "Brass: Birmingham" beats "Brass") and then the lower game ID for
// determinism.
func matchGameName(message string, names map[int64]string, minScore float64) (nameMatch, bool) {
	msgNorm := normalizeText(message)
	if msgNorm == "" {
		return nameMatch{}, false
	}
	msgTokens := tokenSet(msgNorm)

	var best nameMatch
	found := false

	for id, name := range names {
		nameNorm := normalizeText(name)
		if nameNorm == "" {
			continue
		}

		var score float64
		if strings.Contains(msgNorm, nameNorm) {
			score = 1.0
		} else {
			tokens := strings.Fields(nameNorm)
			matched := 0
			for _, tok := range tokens {
				// Single-character tokens ("a", "7") match too easily.
				if len(tok) < 2 {
					continue
				}
				if _, ok := msgTokens[tok]; ok {
					matched++
				}
			}
			if len(tokens) > 0 {
				score = float64(matched) / float64(len(tokens))
			}
		}

		if score < minScore {
			continue
		}

		if !found ||
			score > best.score ||
			(score == best.score && len(nameNorm) > len(normalizeText(best.name))) ||
			(score == best.score && len(nameNorm) == len(normalizeText(best.name)) && id < best.gameID) {
			best = nameMatch{gameID: id, name: name, score: score}
			found = true
		}
	}

	return best, found
}

// normalizeText lowercases and strips everything but letters, digits,
// and spaces, collapsing runs of whitespace.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// tokenSet splits normalized text into a set of tokens.
func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}
