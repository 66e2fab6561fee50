package sqlsafe

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dukex/datapilot/pkg/models"
)

// ProbeQuery is the constant-row statement used when no table is known.
// A blank table name counts as unknown.
const ProbeQuery = "SELECT 1"

var (
	categoryKeywords = []string{"employment", "job", "type", "category", "segment", "region", "status"}
	identifierRe     = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_]*$`)
)

// FallbackQuery builds a deterministic statement for table from its columns.
// The result always passes IsSafe.
func FallbackQuery(table string, columns []models.Column) string {
	table = strings.TrimSpace(table)
	if table == "" {
		return ProbeQuery
	}

	if _, found := ForbiddenKeyword(table); found {
		return ProbeQuery
	}

	target := pickCategoryColumn(columns)
	if target == "" {
		return fmt.Sprintf("SELECT * FROM %s LIMIT 50", table)
	}

	return fmt.Sprintf(
		"SELECT %s AS value, COUNT(*) AS count FROM %s GROUP BY %s ORDER BY count DESC LIMIT 20",
		target, table, target,
	)
}

// pickCategoryColumn only considers columns that can be spliced into a
// statement verbatim without tripping IsSafe.
func pickCategoryColumn(columns []models.Column) string {
	for _, column := range columns {
		if !usable(column.Name) {
			continue
		}

		name := strings.ToLower(column.Name)
		for _, keyword := range categoryKeywords {
			if strings.Contains(name, keyword) {
				return column.Name
			}
		}
	}

	for _, column := range columns {
		if usable(column.Name) {
			return column.Name
		}
	}

	return ""
}

func usable(name string) bool {
	if !IsIdentifier(name) {
		return false
	}

	_, forbidden := ForbiddenKeyword(name)

	return !forbidden
}

// IsIdentifier reports whether name is a bare SQL identifier.
func IsIdentifier(name string) bool {
	return identifierRe.MatchString(name)
}
