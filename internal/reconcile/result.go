package reconcile

import "github.com/vfg2006/trusted-etl/internal/domain"

// Stage é uma etapa da execução e também o estado da máquina do Controller.
type Stage string

const (
	StageLoadStaging     Stage = "load_staging"
	StageCoerceTypes     Stage = "coerce_types"
	StageHealReferences  Stage = "heal_references"
	StageEnforceFK       Stage = "enforce_fk"
	StageMinimalFallback Stage = "minimal_fallback"
	StageDone            Stage = "done"
	StageFailed          Stage = "failed"
)

type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeRecoverable
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeRecoverable:
		return "recoverable"
	case OutcomeFatal:
		return "fatal"
	}
	return "unknown"
}

// StageResult é o retorno de cada etapa. O Controller decide a transição
// olhando apenas o Outcome.
type StageResult struct {
	Stage   Stage
	Outcome Outcome
	Err     error
}

func (r StageResult) OK() bool {
	return r.Outcome == OutcomeOK
}

func ok(stage Stage) StageResult {
	return StageResult{Stage: stage, Outcome: OutcomeOK}
}

func recoverable(stage Stage, err error) StageResult {
	return StageResult{Stage: stage, Outcome: OutcomeRecoverable, Err: err}
}

func fatal(stage Stage, err error) StageResult {
	return StageResult{Stage: stage, Outcome: OutcomeFatal, Err: err}
}

// nextStage é a tabela de transições de uma execução.
//
//	LOAD_STAGING -> COERCE_TYPES -> HEAL_REFERENCES -> ENFORCE_FK -> DONE
//	qualquer falha recuperável -> MINIMAL_FALLBACK -> DONE (degradado)
//
// Dimensões terminam depois da carga. Falha fatal, ou qualquer falha no
// fallback, encerra a execução.
func nextStage(kind domain.TargetKind, r StageResult) Stage {
	if r.Outcome == OutcomeFatal {
		return StageFailed
	}

	if r.Stage == StageMinimalFallback {
		if r.OK() {
			return StageDone
		}
		return StageFailed
	}

	if r.Outcome == OutcomeRecoverable {
		return StageMinimalFallback
	}

	if kind.IsDimension() {
		return StageDone
	}

	switch r.Stage {
	case StageLoadStaging:
		return StageCoerceTypes
	case StageCoerceTypes:
		return StageHealReferences
	case StageHealReferences:
		return StageEnforceFK
	case StageEnforceFK:
		return StageDone
	}
	return StageFailed
}
