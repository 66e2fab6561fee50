package sqlsafe_test

import (
	"strings"
	"testing"

	"github.com/dukex/datapilot/pkg/models"
	"github.com/dukex/datapilot/pkg/sqlsafe"
	"github.com/stretchr/testify/assert"
)

func TestIsSafe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{name: "plain select", query: "SELECT * FROM orders", want: true},
		{name: "lowercase with leading whitespace", query: "  \n\tselect id from orders", want: true},
		{name: "aggregate", query: "SELECT status, COUNT(*) FROM orders GROUP BY status", want: true},
		{name: "column containing keyword as substring", query: "SELECT updated_at, created_by FROM orders", want: true},
		{name: "drop statement", query: "DROP TABLE orders;", want: false},
		{name: "select with trailing delete", query: "SELECT 1; DELETE FROM orders", want: false},
		{name: "select with mixed case insert", query: "select * from t where x in (InSeRt)", want: false},
		{name: "update alias", query: "SELECT id AS update FROM orders", want: false},
		{name: "grant", query: "SELECT 1 GRANT", want: false},
		{name: "with clause", query: "WITH x AS (SELECT 1) SELECT * FROM x", want: false},
		{name: "selection prefix is not select", query: "SELECTION FROM t", want: false},
		{name: "empty", query: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sqlsafe.IsSafe(tt.query))
		})
	}
}

func TestIsSafe_ForbiddenWordsAlwaysRejected(t *testing.T) {
	t.Parallel()

	for _, word := range []string{"insert", "update", "delete", "drop", "alter", "create", "truncate", "grant", "revoke"} {
		for _, variant := range []string{word, strings.ToUpper(word), strings.ToUpper(word[:1]) + word[1:]} {
			query := "SELECT * FROM orders WHERE note = '" + variant + "'"
			assert.False(t, sqlsafe.IsSafe(query), query)
		}
	}
}

func TestEnsureLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "appends limit", query: "SELECT * FROM orders", want: "SELECT * FROM orders LIMIT 500"},
		{name: "strips semicolon", query: "SELECT * FROM orders;", want: "SELECT * FROM orders LIMIT 500"},
		{name: "strips semicolon and whitespace", query: "SELECT * FROM orders ;  \n", want: "SELECT * FROM orders LIMIT 500"},
		{name: "keeps existing limit", query: "SELECT * FROM orders LIMIT 10", want: "SELECT * FROM orders LIMIT 10"},
		{name: "keeps lowercase limit", query: "select * from orders limit 3;", want: "select * from orders limit 3;"},
		{name: "limit inside identifier is not a limit", query: "SELECT limited FROM t", want: "SELECT limited FROM t LIMIT 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sqlsafe.EnsureLimit(tt.query, 500))
		})
	}
}

func TestEnsureLimit_Idempotent(t *testing.T) {
	t.Parallel()

	queries := []string{
		"",
		"SELECT 1",
		"SELECT * FROM orders;",
		"SELECT * FROM orders LIMIT 5",
		"  select a from b ;; ",
		"DROP TABLE orders",
	}

	for _, q := range queries {
		once := sqlsafe.EnsureLimit(q, 500)
		assert.Equal(t, once, sqlsafe.EnsureLimit(once, 500), q)
	}
}

func TestFallbackQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		table   string
		columns []models.Column
		want    string
	}{
		{
			name:  "no table",
			table: "",
			want:  "SELECT 1",
		},
		{
			name:  "blank table",
			table: "   ",
			want:  "SELECT 1",
		},
		{
			name:  "table is trimmed",
			table: " orders\t",
			want:  "SELECT * FROM orders LIMIT 50",
		},
		{
			name:    "keyword column",
			table:   "orders",
			columns: []models.Column{{Name: "id", Type: "int"}, {Name: "status", Type: "text"}, {Name: "amount", Type: "numeric"}},
			want:    "SELECT status AS value, COUNT(*) AS count FROM orders GROUP BY status ORDER BY count DESC LIMIT 20",
		},
		{
			name:    "keyword match is case insensitive",
			table:   "people",
			columns: []models.Column{{Name: "Name"}, {Name: "EmploymentType"}},
			want:    "SELECT EmploymentType AS value, COUNT(*) AS count FROM people GROUP BY EmploymentType ORDER BY count DESC LIMIT 20",
		},
		{
			name:    "first identifier when no keyword",
			table:   "metrics",
			columns: []models.Column{{Name: "1bad"}, {Name: "value"}, {Name: "ts"}},
			want:    "SELECT value AS value, COUNT(*) AS count FROM metrics GROUP BY value ORDER BY count DESC LIMIT 20",
		},
		{
			name:    "no usable column",
			table:   "metrics",
			columns: []models.Column{{Name: "1bad"}, {Name: "has space"}},
			want:    "SELECT * FROM metrics LIMIT 50",
		},
		{
			name:  "no columns",
			table: "public.orders",
			want:  "SELECT * FROM public.orders LIMIT 50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sqlsafe.FallbackQuery(tt.table, tt.columns))
		})
	}
}

func TestFallbackQuery_AlwaysSafe(t *testing.T) {
	t.Parallel()

	tables := []string{"", "  ", "orders", "public.orders", "drop", "update", "sales_2024"}
	columnSets := [][]models.Column{
		nil,
		{{Name: "status"}},
		{{Name: "drop status"}},
		{{Name: "update"}, {Name: "delete"}},
		{{Name: "job title"}, {Name: "region"}},
		{{Name: "1"}, {Name: "2"}},
	}

	for _, table := range tables {
		for _, columns := range columnSets {
			query := sqlsafe.FallbackQuery(table, columns)
			assert.True(t, sqlsafe.IsSafe(query), "table=%q columns=%v query=%q", table, columns, query)
		}
	}
}

func TestExtractSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "empty", text: "", want: ""},
		{name: "sql fence", text: "Here:\n```sql\nSELECT * FROM orders\n```\nDone", want: "SELECT * FROM orders"},
		{name: "bare fence", text: "```\nselect 1\n```", want: "select 1"},
		{name: "select with prose", text: "The query is: SELECT id FROM orders; hope it helps", want: "SELECT id FROM orders"},
		{name: "no select", text: "  DROP TABLE orders;  ", want: "DROP TABLE orders;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sqlsafe.ExtractSQL(tt.text))
		})
	}
}

func TestInjectTable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "SELECT * FROM orders WHERE x = 1", sqlsafe.InjectTable("SELECT * FROM WHERE x = 1", "orders"))
	assert.Equal(t, "SELECT * FROM orders", sqlsafe.InjectTable("SELECT * FROM orders", "orders"))
	assert.Equal(t, "SELECT 1", sqlsafe.InjectTable("SELECT 1", "orders"))
	assert.Equal(t, "SELECT * FROM t", sqlsafe.InjectTable("SELECT * FROM t", ""))
}
