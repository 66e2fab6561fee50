package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukex/datapilot/pkg/models"
	"github.com/dukex/datapilot/pkg/persistence"
)

// RunRepository handles the runs table.
type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Start records a running run. Starting an existing run resets it.
func (rr *RunRepository) Start(ctx context.Context, runID, question string) error {
	query := `
		INSERT INTO runs (run_id, user_input, status, started_at, finished_at)
		VALUES ($1, $2, $3, NOW(), NULL)
		ON CONFLICT (run_id) DO UPDATE SET
			user_input = EXCLUDED.user_input,
			status = EXCLUDED.status,
			started_at = EXCLUDED.started_at,
			finished_at = NULL
	`

	_, err := rr.db.ExecContext(ctx, query, runID, question, models.RunStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}

	return nil
}

// Finish stamps the run with its final status.
func (rr *RunRepository) Finish(ctx context.Context, runID, status string) error {
	result, err := rr.db.ExecContext(ctx,
		`UPDATE runs SET status = $2, finished_at = NOW() WHERE run_id = $1`,
		runID, status,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewRunNotFoundError("FinishRun", runID)
	}

	return nil
}

func (rr *RunRepository) GetByID(ctx context.Context, runID string) (*models.Run, error) {
	var (
		run        models.Run
		finishedAt sql.NullTime
	)

	err := rr.db.QueryRowContext(ctx,
		`SELECT run_id, COALESCE(user_input, ''), status, started_at, finished_at FROM runs WHERE run_id = $1`,
		runID,
	).Scan(&run.RunID, &run.Question, &run.Status, &run.StartedAt, &finishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRunNotFoundError("RunByID", runID)
		}

		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}

	return &run, nil
}
