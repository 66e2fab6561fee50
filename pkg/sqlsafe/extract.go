package sqlsafe

import (
	"regexp"
	"strings"
)

var (
	fenceRe  = regexp.MustCompile("(?is)```(?:sql)?\\s*(.*?)```")
	selectRe = regexp.MustCompile(`(?is)\bselect\b.*`)
)

// ExtractSQL pulls a single statement out of a completion response.
// A fenced block wins; otherwise the text from the first SELECT up to an
// optional semicolon is used; otherwise the trimmed text is returned.
func ExtractSQL(text string) string {
	if text == "" {
		return ""
	}

	if match := fenceRe.FindStringSubmatch(text); match != nil {
		return strings.TrimSpace(match[1])
	}

	if match := selectRe.FindString(text); match != "" {
		if idx := strings.Index(match, ";"); idx != -1 {
			match = match[:idx]
		}

		return strings.TrimSpace(match)
	}

	return strings.TrimSpace(text)
}

// InjectTable splices table into every "FROM " of query when query does not
// already reference it. Joins and subqueries are not handled.
func InjectTable(query, table string) string {
	if query == "" || table == "" || strings.Contains(query, table) {
		return query
	}

	return strings.ReplaceAll(query, "FROM ", "FROM "+table+" ")
}
