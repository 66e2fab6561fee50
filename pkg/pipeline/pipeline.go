// Package pipeline runs the fixed sequence of stages that answers a question:
// load memory, translate to SQL, query, export, report, email and save memory.
//
// Stages never return errors. Every failure becomes a StageResult with status
// error, which the Supervisor turns into a halt.
package pipeline

import (
	"context"

	"github.com/dukex/datapilot/pkg/config"
	"github.com/dukex/datapilot/pkg/models"
)

const (
	// RowLimit caps every query and document sample.
	RowLimit = 500

	// MemoryLimit is the number of messages memory_load reads.
	MemoryLimit = 10

	ChartTitle    = "Top categories"
	ReportSubject = "Multi-Agent Data Assistant Report"
)

// Stage is one step of the pipeline. It receives a copy of the state and
// returns the subset it wants updated.
type Stage interface {
	Name() models.StageName
	Run(ctx context.Context, state models.State, settings config.Settings) (models.StageResult, models.Patch)
}

// NewStages returns the seven stages wired to deps.
func NewStages(deps Dependencies) []Stage {
	return []Stage{
		NewMemoryLoadStage(deps),
		NewTranslateStage(deps),
		NewExecuteStage(deps),
		NewExportStage(deps),
		NewReportStage(deps),
		NewEmailStage(deps),
		NewMemorySaveStage(deps),
	}
}

// record forwards to the sink when one is configured.
func (d Dependencies) record(ctx context.Context, runID, level, node, event string, data map[string]any) {
	if d.Sink == nil {
		return
	}

	d.Sink.Record(ctx, runID, level, node, event, data)
}
