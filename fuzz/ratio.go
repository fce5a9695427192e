// Package fuzz implements fuzzy string ratios on a 0-100 scale.
//
// Ratios are based on the normalized Indel distance (insertions and deletions
// only), computed from the longest common subsequence of the two strings.
package fuzz

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// Ratio returns 100 * (1 - indel(a, b) / (len(a) + len(b))) measured in runes.
// An empty side yields 0.
func Ratio(a, b string) float64 {
	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0
	}
	if a == b {
		return 100
	}
	lcs := edlib.LCS(a, b)
	return 100 * float64(2*lcs) / float64(la+lb)
}

// PartialRatio returns the best Ratio between the shorter string and every
// window of the same length in the longer string.
func PartialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}
	if len(short) == len(long) {
		return Ratio(a, b)
	}
	s := string(short)
	best := 0.0
	for start := 0; start+len(short) <= len(long); start++ {
		r := Ratio(s, string(long[start:start+len(short)]))
		if r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

// TokenSortRatio compares the two strings after sorting their whitespace
// separated tokens, which makes the score independent of word order.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// PartialTokenSortRatio is PartialRatio over sorted tokens.
func PartialTokenSortRatio(a, b string) float64 {
	return PartialRatio(sortedTokens(a), sortedTokens(b))
}

// TokenSetRatio compares the shared tokens against each side's remainder and
// keeps the best of the three pairings.
func TokenSetRatio(a, b string) float64 {
	return tokenSet(a, b, Ratio)
}

// PartialTokenSetRatio is TokenSetRatio using PartialRatio for the pairings.
func PartialTokenSetRatio(a, b string) float64 {
	return tokenSet(a, b, PartialRatio)
}

// WRatio is the weighted ratio used for best-match lookups. Both inputs go
// through FullProcess; the result is rounded to an integer score.
func WRatio(a, b string) float64 {
	p1 := FullProcess(a)
	p2 := FullProcess(b)
	if p1 == "" || p2 == "" {
		return 0
	}
	const unbaseScale = 0.95
	partialScale := 0.90

	base := Ratio(p1, p2)
	l1 := float64(utf8.RuneCountInString(p1))
	l2 := float64(utf8.RuneCountInString(p2))
	lenRatio := math.Max(l1, l2) / math.Min(l1, l2)
	if lenRatio < 1.5 {
		tsor := TokenSortRatio(p1, p2) * unbaseScale
		tser := TokenSetRatio(p1, p2) * unbaseScale
		return math.RoundToEven(max(base, tsor, tser))
	}
	if lenRatio > 8 {
		partialScale = 0.6
	}
	partial := PartialRatio(p1, p2) * partialScale
	ptsor := PartialTokenSortRatio(p1, p2) * unbaseScale * partialScale
	ptser := PartialTokenSetRatio(p1, p2) * unbaseScale * partialScale
	return math.RoundToEven(max(base, partial, ptsor, ptser))
}

// FullProcess lower-cases s, replaces every rune that is not a letter or a
// digit with a space and collapses the result.
func FullProcess(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func tokenSet(a, b string, score func(string, string) float64) float64 {
	setA := tokenSetOf(a)
	setB := tokenSetOf(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	var common, onlyA, onlyB []string
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			common = append(common, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range setB {
		if _, ok := setA[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	t0 := strings.Join(common, " ")
	t1 := strings.TrimSpace(t0 + " " + strings.Join(onlyA, " "))
	t2 := strings.TrimSpace(t0 + " " + strings.Join(onlyB, " "))
	return max(score(t0, t1), score(t0, t2), score(t1, t2))
}

func tokenSetOf(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
