package match

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Similarity scores two strings in [0, 100] with a token-set ratio: both
// sides are normalized and split into token sets, so the score ignores
// token order, duplicates and one side carrying extra tokens.
func Similarity(a, b string) float64 {
	return defaultNormalizer.Similarity(a, b)
}

// Acceptable reports whether the rounded similarity reaches floor.
func Acceptable(a, b string, floor float64) bool {
	return defaultNormalizer.Acceptable(a, b, floor)
}

// Acceptable is Acceptable under n.
func (n *Normalizer) Acceptable(a, b string, floor float64) bool {
	return math.Round(n.Similarity(a, b)) >= floor
}

// Similarity is the token-set ratio of a and b under n.
func (n *Normalizer) Similarity(a, b string) float64 {
	setA := tokenSet(n.tokens(a))
	setB := tokenSet(n.tokens(b))

	if len(setA) == 0 && len(setB) == 0 {
		return 100
	}

	var sect, diffAB, diffBA []string
	for t := range setA {
		if setB[t] {
			sect = append(sect, t)
		} else {
			diffAB = append(diffAB, t)
		}
	}
	for t := range setB {
		if !setA[t] {
			diffBA = append(diffBA, t)
		}
	}

	if len(sect) == 0 {
		return 0
	}
	if len(diffAB) == 0 || len(diffBA) == 0 {
		return 100
	}

	sort.Strings(sect)
	sort.Strings(diffAB)
	sort.Strings(diffBA)

	base := strings.Join(sect, " ")
	withAB := base + " " + strings.Join(diffAB, " ")
	withBA := base + " " + strings.Join(diffBA, " ")

	return max(ratio(base, withAB), ratio(base, withBA), ratio(withAB, withBA))
}

// ratio is the Levenshtein similarity of a and b scaled to [0, 100].
func ratio(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(dist)/float64(longest))
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
