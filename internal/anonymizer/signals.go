package anonymizer

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

// Signal is one independent heuristic contributing a bounded score toward a
// classification decision. Implementations must be pure with respect to the
// candidate: same input, same output. Extractors are assembled into a list by
// the classifier so they can be added or disabled without branching the
// pipeline.
type Signal interface {
	Name() string
	// Score returns a bounded contribution in [0, weight] and the reason
	// tags explaining it. A zero score returns no tags.
	Score(candidate string) (float64, []string)
}

// lexiconSignal scores whitespace-delimited tokens against the name sets. A
// known first name weighs more than a generic last-name hit; the accumulated
// hit weight is normalized by token count.
type lexiconSignal struct {
	lexicon *Lexicon
}

func (s *lexiconSignal) Name() string { return "lexicon" }

func (s *lexiconSignal) Score(candidate string) (float64, []string) {
	words := strings.Fields(candidate)
	if len(words) == 0 {
		return 0, nil
	}

	var hits float64
	var tags []string
	for _, word := range words {
		w := strings.ToLower(strings.Trim(word, ".,;:!?'\""))
		switch {
		case contains(s.lexicon.FirstNames, w):
			hits += 0.8
			tags = append(tags, "known_first_name")
		case contains(s.lexicon.LastNames, w):
			hits += 0.7
			tags = append(tags, "known_last_name")
		case contains(s.lexicon.RegionalNames, w):
			hits += 0.75
			tags = append(tags, "known_regional_name")
		}
	}
	if hits == 0 {
		return 0, nil
	}
	return (hits / float64(len(words))) * 0.4, tags
}

// internationalSignal tests the candidate against the per-origin pattern
// table. Matched origins double as audit reasons.
type internationalSignal struct {
	patterns map[string]*patternSet
}

func (s *internationalSignal) Name() string { return "international" }

func (s *internationalSignal) Score(candidate string) (float64, []string) {
	lower := strings.ToLower(candidate)

	var origins []string
	for origin, set := range s.patterns {
		if set.matchAny(lower) {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return 0, nil
	}
	sort.Strings(origins)

	tags := make([]string, 0, len(origins)+1)
	tags = append(tags, "international_pattern")
	for _, origin := range origins {
		tags = append(tags, "origin_"+origin)
	}
	return 0.3, tags
}

// entropySignal computes Shannon entropy over the letter distribution of the
// candidate, scaled by character diversity. Proper nouns tend to carry higher
// entropy than common dictionary words. Entropy is memoized per distinct
// string because the same tokens recur across a redaction pass.
type entropySignal struct {
	threshold float64
	cache     map[string]float64
}

func (s *entropySignal) Name() string { return "entropy" }

func (s *entropySignal) Score(candidate string) (float64, []string) {
	entropy := s.entropyOf(candidate)
	if entropy < s.threshold {
		return 0, nil
	}
	boost := math.Min((entropy-s.threshold)/2.0, 0.25)
	return boost, []string{fmt.Sprintf("high_entropy_%.2f", entropy)}
}

func (s *entropySignal) entropyOf(text string) float64 {
	if cached, ok := s.cache[text]; ok {
		return cached
	}

	var letters []rune
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) {
			letters = append(letters, r)
		}
	}
	if len(letters) == 0 {
		s.cache[text] = 0
		return 0
	}

	counts := make(map[rune]int, len(letters))
	for _, r := range letters {
		counts[r]++
	}

	var entropy float64
	total := float64(len(letters))
	for _, count := range counts {
		p := float64(count) / total
		entropy -= p * math.Log2(p)
	}

	diversity := float64(len(counts)) / total
	adjusted := entropy * (1 + diversity)
	s.cache[text] = adjusted
	return adjusted
}

// capitalizationSignal awards partial credit for the classic proper-noun
// shape (initial capital, rest lowercase) and a smaller credit to lexicon
// words written entirely in lowercase. The overall weight stays low because
// capitalization is never a hard requirement: many valid names enter the
// system without it.
type capitalizationSignal struct {
	lexicon *Lexicon
	weight  float64
}

func (s *capitalizationSignal) Name() string { return "capitalization" }

func (s *capitalizationSignal) Score(candidate string) (float64, []string) {
	var score float64
	for _, word := range strings.Fields(candidate) {
		runes := []rune(word)
		if len(runes) < 2 || !hasLetter(runes) {
			continue
		}

		if unicode.IsUpper(runes[0]) {
			score += 0.3
		}
		rest := runes[1:]
		switch {
		case allLower(rest) && unicode.IsUpper(runes[0]):
			score += 0.1
		case allLower(runes) && s.lexicon.ContainsWord(strings.ToLower(word)):
			// Known names in lowercase still count.
			score += 0.2
		case mixedCase(rest):
			score += 0.1
		}
	}
	score = math.Min(score, 1.0)
	if score == 0 {
		return 0, nil
	}
	if score > 0.5 {
		return score * s.weight, []string{"proper_capitalization"}
	}
	return score * s.weight, []string{"partial_capitalization"}
}

// structureSignal matches the candidate against a structural "valid name"
// regex (letters, accents, hyphens, apostrophes, internal spaces), with
// bonuses for accented characters, multi-token shape, and written initials.
type structureSignal struct {
	cc *CompiledConfig
}

func (s *structureSignal) Name() string { return "structure" }

func (s *structureSignal) Score(candidate string) (float64, []string) {
	var score float64
	var tags []string

	if s.cc.nameStructure.MatchString(candidate) {
		score += 0.15
		tags = append(tags, "name_structure")

		if s.cc.accentedLetter.MatchString(strings.ToLower(candidate)) {
			score += 0.1
			tags = append(tags, "accented_chars")
		}
	}

	words := strings.Fields(candidate)
	if len(words) >= 2 {
		short := false
		for _, w := range words {
			if len([]rune(w)) < 2 {
				short = true
				break
			}
		}
		if !short {
			score += 0.1
			tags = append(tags, "multi_word_structure")
		}
		if len(words) <= 3 {
			score += 0.05
			tags = append(tags, "optimal_word_count")
		}
	}

	if s.cc.initials.MatchString(candidate) {
		score += 0.2
		tags = append(tags, "initials_pattern")
	}

	if score == 0 {
		return 0, nil
	}
	return score, tags
}

func contains(set map[string]struct{}, word string) bool {
	_, ok := set[word]
	return ok
}

func hasLetter(runes []rune) bool {
	for _, r := range runes {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func allLower(runes []rune) bool {
	for _, r := range runes {
		if unicode.IsUpper(r) {
			return false
		}
	}
	return hasLetter(runes)
}

func mixedCase(runes []rune) bool {
	var upper, lower bool
	for _, r := range runes {
		if unicode.IsUpper(r) {
			upper = true
		}
		if unicode.IsLower(r) {
			lower = true
		}
	}
	return upper && lower
}
