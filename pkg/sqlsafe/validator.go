// Package sqlsafe guards the data sources against generated SQL.
//
// The checks are lexical: a statement is accepted only when it starts with
// SELECT and mentions none of the write or DDL keywords as a whole word.
// Some harmless statements are rejected (for example a column aliased
// "update") and the filter does not parse SQL.
package sqlsafe

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	forbiddenRe   = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|create|truncate|grant|revoke)\b`)
	selectStartRe = regexp.MustCompile(`(?i)^\s*select\b`)
	hasLimitRe    = regexp.MustCompile(`(?i)\blimit\b`)
)

// IsSafe reports whether query is a read-only SELECT statement.
func IsSafe(query string) bool {
	if !selectStartRe.MatchString(query) {
		return false
	}

	return !forbiddenRe.MatchString(query)
}

// EnsureLimit appends "LIMIT n" when query has no LIMIT clause.
// Applying it twice yields the same result as applying it once.
func EnsureLimit(query string, n int) string {
	if hasLimitRe.MatchString(query) {
		return query
	}

	trimmed := strings.TrimRightFunc(query, unicode.IsSpace)
	trimmed = strings.TrimRight(trimmed, ";")
	trimmed = strings.TrimRightFunc(trimmed, unicode.IsSpace)

	return fmt.Sprintf("%s LIMIT %d", trimmed, n)
}

// ForbiddenKeyword returns the first forbidden keyword found in query.
func ForbiddenKeyword(query string) (string, bool) {
	match := forbiddenRe.FindString(query)
	if match == "" {
		return "", false
	}

	return strings.ToLower(match), true
}
