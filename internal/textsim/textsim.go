// Package textsim scores how alike two free-text descriptions are.
package textsim

import (
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"
	"golang.org/x/text/unicode/norm"
)

// minPrefixLen is the shortest token allowed to match as an abbreviation ("corp" ~ "corporation").
const minPrefixLen = 3

// Normalize folds s to NFKC lower case, turns punctuation into spaces and
// collapses whitespace.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case unicode.IsControl(r):
			return -1
		default:
			return ' '
		}
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Similarity returns a score in [0,1]: the better of the edit-distance ratio
// and the token overlap of the normalised strings. Empty input scores 0.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	edit := EditRatio(na, nb)
	tokens := TokenOverlap(na, nb)
	if tokens > edit {
		return tokens
	}
	return edit
}

// EditRatio is (len(a)+len(b)-distance)/(len(a)+len(b)) with substitutions
// costing two, the same ratio difflib reports for simple insert/delete edits.
func EditRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra)+len(rb) == 0 {
		return 0
	}
	return levenshtein.RatioForStrings(ra, rb, levenshtein.DefaultOptions)
}

// TokenOverlap is the Dice coefficient of the word sets of a and b, where a
// word also matches a longer word it abbreviates.
func TokenOverlap(a, b string) float64 {
	ta, tb := uniqueTokens(a), uniqueTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	used := make([]bool, len(tb))
	matched := 0
	for _, x := range ta {
		best := -1
		for j, y := range tb {
			if used[j] {
				continue
			}
			if x == y {
				best = j
				break
			}
			if best < 0 && abbreviates(x, y) {
				best = j
			}
		}
		if best >= 0 {
			used[best] = true
			matched++
		}
	}
	return 2 * float64(matched) / float64(len(ta)+len(tb))
}

func abbreviates(x, y string) bool {
	if len(x) > len(y) {
		x, y = y, x
	}
	return len(x) >= minPrefixLen && strings.HasPrefix(y, x)
}

func uniqueTokens(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range strings.Fields(s) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
