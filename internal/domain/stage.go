package domain

// Stage lifecycle stage of a model version
type Stage string

const (
	StageDevelopment Stage = "development"
	StageStaging     Stage = "staging"
	StageProduction  Stage = "production"
	StageArchived    Stage = "archived"
)

// Valid reports whether the stage is a known value
func (s Stage) Valid() bool {
	switch s {
	case StageDevelopment, StageStaging, StageProduction, StageArchived:
		return true
	}
	return false
}

// Next returns the promotion target for the stage. Only development and
// staging can be promoted; the second return is false otherwise.
func (s Stage) Next() (Stage, bool) {
	switch s {
	case StageDevelopment:
		return StageStaging, true
	case StageStaging:
		return StageProduction, true
	default:
		return "", false
	}
}

// CanPromote reports whether a model whose latest version sits at this
// stage may be promoted.
func (s Stage) CanPromote() bool {
	_, ok := s.Next()
	return ok
}

// CanRollback reports whether a model with the given number of active
// (non-archived) versions may be rolled back.
func CanRollback(activeCount int64) bool {
	return activeCount >= 2
}

// DerivedState is the read-model computed from a model's version ledger.
// It is recomputed on every read and never stored.
type DerivedState struct {
	LatestVersionNumber int   `json:"latest_version_number"`
	LatestStage         Stage `json:"latest_stage"`
	ActiveVersionCount  int64 `json:"active_version_count"`
	CanPromote          bool  `json:"can_promote"`
	CanRollback         bool  `json:"can_rollback"`
}

// NewDerivedState derives the model read-state from its latest version
// and active version count.
func NewDerivedState(latest *ModelVersion, activeCount int64) DerivedState {
	state := DerivedState{
		ActiveVersionCount: activeCount,
		CanRollback:        CanRollback(activeCount),
	}
	if latest != nil {
		state.LatestVersionNumber = latest.VersionNumber
		state.LatestStage = latest.Stage
		state.CanPromote = latest.Stage.CanPromote()
	}
	return state
}
