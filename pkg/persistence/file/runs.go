package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/dukex/datapilot/pkg/models"
	"github.com/dukex/datapilot/pkg/persistence"
)

func (fp *Persistence) runPath(runID string) string {
	return filepath.Join(fp.root, "runs", url.PathEscape(runID)+".json")
}

func (fp *Persistence) StartRun(_ context.Context, runID, question string) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	return fp.writeRun(&models.Run{
		RunID:     runID,
		Question:  question,
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	})
}

func (fp *Persistence) FinishRun(_ context.Context, runID, status string) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	run, err := fp.readRun("FinishRun", runID)
	if err != nil {
		return err
	}

	finishedAt := time.Now().UTC()
	run.Status = status
	run.FinishedAt = &finishedAt

	return fp.writeRun(run)
}

func (fp *Persistence) RunByID(_ context.Context, runID string) (*models.Run, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	return fp.readRun("RunByID", runID)
}

func (fp *Persistence) readRun(op, runID string) (*models.Run, error) {
	data, err := os.ReadFile(fp.runPath(runID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewRunNotFoundError(op, runID)
		}

		return nil, fmt.Errorf("failed to read run %s: %w", runID, err)
	}

	var run models.Run

	err = json.Unmarshal(data, &run)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %s: %w", runID, err)
	}

	return &run, nil
}

func (fp *Persistence) writeRun(run *models.Run) error {
	path := fp.runPath(run.RunID)

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return fmt.Errorf("failed to create runs directory: %w", err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write run %s: %w", run.RunID, err)
	}

	return nil
}
