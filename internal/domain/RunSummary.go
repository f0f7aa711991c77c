package domain

import "time"

type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusSuccess  RunStatus = "success"
	RunStatusDegraded RunStatus = "degraded"
	RunStatusFailed   RunStatus = "failed"
)

// LoadPolicy é escolhida conforme a tabela alvo já tenha dados ou não.
type LoadPolicy string

const (
	LoadReplace LoadPolicy = "replace"
	LoadMerge   LoadPolicy = "merge"
)

type LoadResult struct {
	Policy   LoadPolicy
	Upserted int64
	Rows     int64
}

type RunSummary struct {
	ID                   string     `json:"id"`
	Target               TargetKind `json:"target"`
	Status               RunStatus  `json:"status"`
	StartedAt            time.Time  `json:"started_at"`
	FinishedAt           time.Time  `json:"finished_at,omitempty"`
	LoadPolicy           LoadPolicy `json:"load_policy,omitempty"`
	StagedRows           int64      `json:"staged_rows"`
	PlaceholdersInserted int64      `json:"placeholders_inserted"`
	ReferencesNulled     int64      `json:"references_nulled"`
	Typed                bool       `json:"typed"`
	Constrained          bool       `json:"constrained"`
	Error                string     `json:"error,omitempty"`
}

// Succeeded é verdadeiro para execuções completas e degradadas.
func (s RunSummary) Succeeded() bool {
	return s.Status == RunStatusSuccess || s.Status == RunStatusDegraded
}

func (s RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
