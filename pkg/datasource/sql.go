package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukex/datapilot/pkg/config"
	"github.com/dukex/datapilot/pkg/models"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

// columnsFunc introspects a table on an open database.
type columnsFunc func(ctx context.Context, db *sql.DB, table string) ([]models.Column, error)

// sqlSource serves the database/sql based drivers.
type sqlSource struct {
	db      *sql.DB
	columns columnsFunc
	// appendLimit is false for dialects without a LIMIT clause; rows are
	// still capped while scanning.
	appendLimit bool
}

func openSQL(ctx context.Context, driver, dsn string, columns columnsFunc, appendLimit bool) (*sqlSource, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = db.PingContext(pingCtx)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	return &sqlSource{db: db, columns: columns, appendLimit: appendLimit}, nil
}

func openMySQL(ctx context.Context, cfg config.DataSource) (Source, error) {
	dsn, err := MySQLDSN(cfg)
	if err != nil {
		return nil, err
	}

	schema := cfg.Name

	return openSQL(ctx, "mysql", dsn, func(ctx context.Context, db *sql.DB, table string) ([]models.Column, error) {
		return queryColumns(ctx, db,
			`SELECT COLUMN_NAME, DATA_TYPE FROM INFORMATION_SCHEMA.COLUMNS
			WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? ORDER BY ORDINAL_POSITION`,
			schema, table,
		)
	}, true)
}

func openSQLite(ctx context.Context, cfg config.DataSource) (Source, error) {
	path, err := SQLitePath(cfg)
	if err != nil {
		return nil, err
	}

	return openSQL(ctx, "sqlite", path, sqliteColumns, true)
}

func openSQLServer(ctx context.Context, cfg config.DataSource) (Source, error) {
	dsn, err := SQLServerDSN(cfg)
	if err != nil {
		return nil, err
	}

	return openSQL(ctx, "sqlserver", dsn, func(ctx context.Context, db *sql.DB, table string) ([]models.Column, error) {
		schema, name := splitSchemaTable(table, "dbo")

		return queryColumns(ctx, db,
			`SELECT COLUMN_NAME, DATA_TYPE FROM INFORMATION_SCHEMA.COLUMNS
			WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2 ORDER BY ORDINAL_POSITION`,
			schema, name,
		)
	}, false)
}

func (s *sqlSource) Query(ctx context.Context, query string, limit int) ([]models.Row, error) {
	query, err := prepare(query, limit, s.appendLimit)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	defer func() { _ = rows.Close() }()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	out := make([]models.Row, 0)

	for rows.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}

		values := make([]any, len(names))
		pointers := make([]any, len(names))

		for i := range values {
			pointers[i] = &values[i]
		}

		err := rows.Scan(pointers...)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(models.Row, len(names))
		for i, name := range names {
			row[name] = normalizeValue(values[i])
		}

		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return out, nil
}

func (s *sqlSource) Columns(ctx context.Context, table string) ([]models.Column, error) {
	if table == "" {
		return []models.Column{}, nil
	}

	return s.columns(ctx, s.db, table)
}

func (s *sqlSource) Close() error {
	return s.db.Close()
}

func queryColumns(ctx context.Context, db *sql.DB, query string, args ...any) ([]models.Column, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}

	defer func() { _ = rows.Close() }()

	columns := make([]models.Column, 0)

	for rows.Next() {
		var column models.Column

		err := rows.Scan(&column.Name, &column.Type)
		if err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		columns = append(columns, column)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	return columns, nil
}

func sqliteColumns(ctx context.Context, db *sql.DB, table string) ([]models.Column, error) {
	quoted := `"` + strings.ReplaceAll(table, `"`, `""`) + `"`

	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+quoted+")")
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}

	defer func() { _ = rows.Close() }()

	columns := make([]models.Column, 0)

	for rows.Next() {
		var (
			cid        int
			name       string
			columnType string
			notNull    int
			defaultVal sql.NullString
			primaryKey int
		)

		err := rows.Scan(&cid, &name, &columnType, &notNull, &defaultVal, &primaryKey)
		if err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		columns = append(columns, models.Column{Name: name, Type: columnType})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	return columns, nil
}

func splitSchemaTable(table, defaultSchema string) (string, string) {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return schema, name
	}

	return defaultSchema, table
}

// normalizeValue converts driver values into JSON and CSV friendly values.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case []byte:
		return string(v)
	default:
		return v
	}
}
