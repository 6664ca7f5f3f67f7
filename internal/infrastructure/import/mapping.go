package fileimport

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Scores at or above the first threshold are mapped in the first pass; the
// second pass accepts weaker matches for columns still unmapped.
const (
	strongMatchScore = 70
	weakMatchScore   = 50
)

var folder = cases.Fold()

// NormalizeColumnName case-folds, strips accents and treats underscores,
// hyphens and dots as spaces
func NormalizeColumnName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}
	stripped = folder.String(stripped)
	stripped = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(stripped)
	return strings.Join(strings.Fields(stripped), " ")
}

// Similarity scores two column names from 0 to 100 after normalisation, using
// an insert/delete edit distance over runes
func Similarity(a, b string) int {
	ra := []rune(NormalizeColumnName(a))
	rb := []rune(NormalizeColumnName(b))
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	lcs := longestCommonSubsequence(ra, rb)
	return int(float64(2*lcs)/float64(total)*100 + 0.5)
}

func longestCommonSubsequence(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// Suggestion is the best target field for a source column
type Suggestion struct {
	Column   string `json:"column"`
	Field    string `json:"field,omitempty"`
	Score    int    `json:"score"`
	Required bool   `json:"required"`
}

// bestField finds the highest scoring unused field for a column
func (s Schema) bestField(column string, used map[string]bool) (FieldRule, int) {
	var best FieldRule
	bestScore := 0
	for _, rule := range s {
		if used[rule.Name] {
			continue
		}
		for _, candidate := range append([]string{rule.Name}, rule.Aliases...) {
			if score := Similarity(column, candidate); score > bestScore {
				best, bestScore = rule, score
			}
		}
	}
	return best, bestScore
}

// SuggestMapping maps source columns onto schema fields. Each field is used
// at most once; strong matches win over weak ones regardless of column order.
func (s Schema) SuggestMapping(columns []string) (map[string]string, []Suggestion) {
	mapping := make(map[string]string, len(columns))
	used := make(map[string]bool, len(s))
	scores := make(map[string]int, len(columns))

	for _, threshold := range []int{strongMatchScore, weakMatchScore} {
		type candidate struct {
			column string
			rule   FieldRule
			score  int
		}
		var found []candidate
		for _, column := range columns {
			if _, done := mapping[column]; done {
				continue
			}
			if rule, score := s.bestField(column, used); score >= threshold {
				found = append(found, candidate{column, rule, score})
			}
		}
		sort.SliceStable(found, func(i, j int) bool { return found[i].score > found[j].score })
		for _, c := range found {
			if used[c.rule.Name] {
				continue
			}
			mapping[c.column] = c.rule.Name
			scores[c.column] = c.score
			used[c.rule.Name] = true
		}
	}

	suggestions := make([]Suggestion, 0, len(columns))
	for _, column := range columns {
		sg := Suggestion{Column: column}
		if field, ok := mapping[column]; ok {
			rule, _ := s.Rule(field)
			sg.Field, sg.Score, sg.Required = field, scores[column], rule.Required
		}
		suggestions = append(suggestions, sg)
	}
	return mapping, suggestions
}
