package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/datapilot/pkg/persistence"
	"github.com/dukex/datapilot/pkg/persistence/file"
	"github.com/dukex/datapilot/pkg/persistence/postgresql"
)

const (
	providerFile       = "file"
	providerPostgreSQL = "postgresql"
)

// NewPersistence opens the store behind databaseURL: postgres URLs and
// keyword DSNs go to postgres, anything else is a file store root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case providerPostgreSQL:
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}

		return p, nil
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if found {
		switch scheme {
		case "postgres", providerPostgreSQL:
			return providerPostgreSQL
		default:
			return providerFile
		}
	}

	if strings.Contains(databaseURL, "host=") {
		return providerPostgreSQL
	}

	return providerFile
}
