// Package search provides query normalization for the full-text index.
//
// Two different notions of "match" are computed here and kept deliberately
// separate: Tokenize/MatchExpression drive the FTS5 prefix-token lookup
// that selects candidate messages, while CountOccurrences is a literal
// case-insensitive substring count used as the ranking weight. Conflating
// the two degrades ranking quality.
package search

import (
	"strings"
	"unicode"
)

// Tokenize splits a raw query into lower-cased alphanumeric tokens.
// Trailing wildcard markers the user may have typed ("sal*") are stripped
// so they can be re-appended uniformly by MatchExpression. Tokens are
// split on anything that is not a Unicode letter or digit.
func Tokenize(raw string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		tok := strings.TrimRight(current.String(), "*")
		if tok != "" {
			tokens = append(tokens, tok)
		}
		current.Reset()
	}

	for _, r := range raw {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			current.WriteRune(unicode.ToLower(r))
		case r == '*':
			// Kept so flush can strip trailing wildcards only.
			current.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	return tokens
}

// MatchExpression builds an FTS5 MATCH expression from a raw query: every
// normalized token becomes a prefix query ("salary" -> "salary"*), joined
// with implicit AND. Returns "" when the query normalizes to no tokens;
// callers must treat that as "no results" rather than an error.
func MatchExpression(raw string) string {
	tokens := Tokenize(raw)
	if len(tokens) == 0 {
		return ""
	}
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		// Quote each token so FTS5 keywords (AND, OR, NOT, NEAR) in user
		// queries are treated as plain terms.
		parts[i] = `"` + tok + `"*`
	}
	return strings.Join(parts, " ")
}

// CountOccurrences returns the number of non-overlapping case-insensitive
// occurrences of the trimmed raw query within content. This is a literal
// substring count, independent of how the index tokenizes text.
func CountOccurrences(content, raw string) int {
	needle := strings.ToLower(strings.TrimSpace(raw))
	if needle == "" {
		return 0
	}
	return strings.Count(strings.ToLower(content), needle)
}

// ContainsFold reports whether s contains substr, case-insensitively.
// Used for the title-match ranking boost.
func ContainsFold(s, substr string) bool {
	substr = strings.TrimSpace(substr)
	if substr == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
