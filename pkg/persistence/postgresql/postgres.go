// Package postgresql provides the PostgreSQL store for logs, runs and memory.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/datapilot/pkg/models"
	"github.com/dukex/datapilot/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db         *sql.DB
	logger     *slog.Logger
	logRepo    *LogRepository
	runRepo    *RunRepository
	memoryRepo *MemoryRepository
}

// NewPersistence connects to databaseURL and applies pending migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:         database,
		logger:     logger,
		logRepo:    NewLogRepository(database, logger),
		runRepo:    NewRunRepository(database),
		memoryRepo: NewMemoryRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) InsertLog(ctx context.Context, entry models.LogEntry) error {
	return p.logRepo.Insert(ctx, entry)
}

func (p *Persistence) Logs(ctx context.Context, limit int) ([]models.LogEntry, error) {
	return p.logRepo.Recent(ctx, limit)
}

func (p *Persistence) StartRun(ctx context.Context, runID, question string) error {
	return p.runRepo.Start(ctx, runID, question)
}

func (p *Persistence) FinishRun(ctx context.Context, runID, status string) error {
	return p.runRepo.Finish(ctx, runID, status)
}

func (p *Persistence) RunByID(ctx context.Context, runID string) (*models.Run, error) {
	return p.runRepo.GetByID(ctx, runID)
}

func (p *Persistence) AppendMessage(ctx context.Context, message models.Message) error {
	return p.memoryRepo.Append(ctx, message)
}

func (p *Persistence) RecentMessages(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	return p.memoryRepo.Recent(ctx, userID, limit)
}
