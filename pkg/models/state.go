package models

// ArtifactKind names a produced artifact.
type ArtifactKind string

const (
	ArtifactCSV   ArtifactKind = "csv"
	ArtifactXLSX  ArtifactKind = "xlsx"
	ArtifactPDF   ArtifactKind = "pdf"
	ArtifactChart ArtifactKind = "chart"
)

// Artifacts maps an artifact kind to its location.
type Artifacts map[ArtifactKind]string

// Merge adds every non-empty entry of other. Existing keys are only
// replaced by non-empty values and never removed.
func (a Artifacts) Merge(other map[ArtifactKind]string) {
	for kind, path := range other {
		if path == "" {
			continue
		}

		a[kind] = path
	}
}

// Clone returns a copy of the map.
func (a Artifacts) Clone() Artifacts {
	out := make(Artifacts, len(a))
	for k, v := range a {
		out[k] = v
	}

	return out
}

// State is the record threaded through one pipeline run.
type State struct {
	RunID          string       `json:"run_id"`
	Question       string       `json:"question"`
	UserID         string       `json:"user_id"`
	Query          string       `json:"query,omitempty"`
	Rows           []Row        `json:"rows,omitempty"`
	Artifacts      Artifacts    `json:"artifacts"`
	MemoryMessages []Message    `json:"memory_messages,omitempty"`
	LastStage      StageName    `json:"last_stage,omitempty"`
	LastResult     *StageResult `json:"last_result,omitempty"`
	SupervisorOK   bool         `json:"supervisor_ok"`
	Reason         string       `json:"reason,omitempty"`
	Route          StageName    `json:"route,omitempty"`
	Status         StageStatus  `json:"status,omitempty"`
}

// NewState creates the initial state of a run.
func NewState(runID, question, userID string) State {
	if userID == "" {
		userID = "default"
	}

	return State{
		RunID:     runID,
		Question:  question,
		UserID:    userID,
		Artifacts: Artifacts{},
	}
}

// Patch is the subset of state a stage asks the executor to update.
// Nil fields are left untouched.
type Patch struct {
	Query          *string
	Rows           *[]Row
	MemoryMessages *[]Message
	Artifacts      map[ArtifactKind]string
}

// Apply merges the patch into state.
func (p Patch) Apply(state *State) {
	if p.Query != nil {
		state.Query = *p.Query
	}

	if p.Rows != nil {
		state.Rows = *p.Rows
	}

	if p.MemoryMessages != nil {
		state.MemoryMessages = *p.MemoryMessages
	}

	if state.Artifacts == nil {
		state.Artifacts = Artifacts{}
	}

	state.Artifacts.Merge(p.Artifacts)
}
