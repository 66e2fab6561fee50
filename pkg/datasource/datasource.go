// Package datasource opens the external data a pipeline run queries: SQL
// databases through a per-type factory registry and MongoDB collections
// through a document sampler.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dukex/datapilot/pkg/config"
	"github.com/dukex/datapilot/pkg/models"
	"github.com/dukex/datapilot/pkg/sqlsafe"
)

var (
	// ErrUnsupportedType is returned when no factory is registered for a source type.
	ErrUnsupportedType = errors.New("unsupported data source type")

	// ErrMissingSetting is returned when a required connection setting is empty.
	ErrMissingSetting = errors.New("missing data source setting")

	// ErrUnsafeQuery is returned when a statement fails the safety check.
	ErrUnsafeQuery = errors.New("only SELECT queries are allowed")
)

// Source is a queryable SQL data source.
type Source interface {
	// Query runs a safe SELECT and returns at most limit rows.
	Query(ctx context.Context, query string, limit int) ([]models.Row, error)
	// Columns lists the columns of table in ordinal order.
	Columns(ctx context.Context, table string) ([]models.Column, error)
	Close() error
}

// DocumentSource samples documents from a configured collection.
type DocumentSource interface {
	Sample(ctx context.Context, limit int) ([]models.Row, error)
	Close(ctx context.Context) error
}

// Factory opens a Source for the given settings.
type Factory func(ctx context.Context, cfg config.DataSource) (Source, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// Register makes a factory available under kind. Registering a kind twice
// replaces the previous factory.
func Register(kind string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	factories[kind] = factory
}

// Kinds returns the registered source types, sorted.
func Kinds() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	kinds := make([]string, 0, len(factories))
	for kind := range factories {
		kinds = append(kinds, kind)
	}

	sort.Strings(kinds)

	return kinds
}

// Open opens the SQL source described by cfg.
func Open(ctx context.Context, cfg config.DataSource) (Source, error) {
	kind := cfg.Kind()

	factoriesMu.RLock()
	factory, ok := factories[kind]
	factoriesMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, cfg.Type)
	}

	return factory(ctx, cfg)
}

// Opener adapts the package level functions to the pipeline's source opener.
type Opener struct{}

func (Opener) Open(ctx context.Context, cfg config.DataSource) (Source, error) {
	return Open(ctx, cfg)
}

func (Opener) OpenDocuments(ctx context.Context, cfg config.DataSource) (DocumentSource, error) {
	return OpenMongo(ctx, cfg)
}

// prepare re-checks safety and applies the row limit.
func prepare(query string, limit int, appendLimit bool) (string, error) {
	if !sqlsafe.IsSafe(query) {
		return "", ErrUnsafeQuery
	}

	if limit > 0 && appendLimit {
		query = sqlsafe.EnsureLimit(query, limit)
	}

	return query, nil
}

func init() {
	Register(config.SourcePostgres, openPostgres)
	Register(config.SourceMySQL, openMySQL)
	Register(config.SourceSQLite, openSQLite)
	Register(config.SourceSQLServer, openSQLServer)
}
