package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/datapilot/pkg/config"
	"github.com/dukex/datapilot/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresSource struct {
	pool *pgxpool.Pool
}

func openPostgres(ctx context.Context, cfg config.DataSource) (Source, error) {
	dsn, err := PostgresDSN(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = pool.Ping(pingCtx)
	if err != nil {
		pool.Close()

		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &postgresSource{pool: pool}, nil
}

func (s *postgresSource) Query(ctx context.Context, query string, limit int) ([]models.Row, error) {
	query, err := prepare(query, limit, true)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	out := make([]models.Row, 0)

	for rows.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}

		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		row := make(models.Row, len(fields))
		for i, field := range fields {
			row[field.Name] = normalizePostgresValue(values[i])
		}

		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return out, nil
}

func (s *postgresSource) Columns(ctx context.Context, table string) ([]models.Column, error) {
	if table == "" {
		return []models.Column{}, nil
	}

	schema, name := splitSchemaTable(table, "public")

	rows, err := s.pool.Query(ctx,
		`SELECT column_name, data_type FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position`,
		schema, name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

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

func (s *postgresSource) Close() error {
	s.pool.Close()

	return nil
}

func normalizePostgresValue(value any) any {
	switch v := value.(type) {
	case pgtype.Numeric:
		f, err := v.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}

		return f.Float64
	case [16]byte:
		return uuid.UUID(v).String()
	default:
		return normalizeValue(v)
	}
}
