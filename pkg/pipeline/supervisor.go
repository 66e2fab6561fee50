package pipeline

import "github.com/dukex/datapilot/pkg/models"

// Supervisor verdict reasons.
const (
	ReasonOK           = "ok"
	ReasonNoResult     = "no_result"
	ReasonNodeFailed   = "node_failed"
	ReasonNoQuery      = "no_query"
	ReasonNoRows       = "no_rows_from_db"
	ReasonEmailSkipped = "email_skipped"
	ReasonEmailNotSent = "email_not_sent"
)

// Supervisor checks the postcondition of each stage result.
type Supervisor struct {
	// Exists reports whether an artifact path is present.
	Exists func(path string) bool
}

func NewSupervisor() *Supervisor {
	return &Supervisor{Exists: fileExists}
}

// Check returns whether the run may continue after stage and a reason code.
// The rules are evaluated in order and the first match wins.
func (s *Supervisor) Check(stage models.StageName, result *models.StageResult) (bool, string) {
	if result == nil {
		return false, ReasonNoResult
	}

	if result.Status != models.StageStatusSuccess && result.Status != models.StageStatusSkipped {
		return false, ReasonNodeFailed
	}

	exists := s.Exists
	if exists == nil {
		exists = fileExists
	}

	switch stage {
	case models.StageNLP:
		if result.Payload.Query == "" {
			return false, ReasonNoQuery
		}
	case models.StageDB:
		if len(result.Payload.Rows) == 0 {
			return false, ReasonNoRows
		}
	case models.StageCSV:
		if path := result.Payload.CSVPath; path != "" && !exists(path) {
			return false, ReasonMissingCSV
		}
	case models.StageReport:
		if path := result.Payload.PDFPath; path == "" || !exists(path) {
			return false, ReasonMissingPDF
		}
	case models.StageEmail:
		if result.Status == models.StageStatusSkipped {
			return true, ReasonEmailSkipped
		}

		if result.Status != models.StageStatusSuccess {
			return false, ReasonEmailNotSent
		}
	}

	return true, ReasonOK
}
