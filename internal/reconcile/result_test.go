package reconcile

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/trusted-etl/internal/domain"
)

func TestNextStage(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name   string
		kind   domain.TargetKind
		result StageResult
		want   Stage
	}{
		{"fato: carga -> conversão", domain.TargetFact, ok(StageLoadStaging), StageCoerceTypes},
		{"fato: conversão -> correção", domain.TargetFact, ok(StageCoerceTypes), StageHealReferences},
		{"fato: correção -> constraints", domain.TargetFact, ok(StageHealReferences), StageEnforceFK},
		{"fato: constraints -> fim", domain.TargetFact, ok(StageEnforceFK), StageDone},
		{"dimensão termina após a carga", domain.TargetDimensionStage, ok(StageLoadStaging), StageDone},
		{"dimensão owner termina após a carga", domain.TargetDimensionOwner, ok(StageLoadStaging), StageDone},
		{"falha recuperável na carga", domain.TargetFact, recoverable(StageLoadStaging, boom), StageMinimalFallback},
		{"falha recuperável na conversão", domain.TargetFact, recoverable(StageCoerceTypes, boom), StageMinimalFallback},
		{"falha recuperável nas constraints", domain.TargetFact, recoverable(StageEnforceFK, boom), StageMinimalFallback},
		{"falha recuperável na dimensão", domain.TargetDimensionOwner, recoverable(StageLoadStaging, boom), StageMinimalFallback},
		{"falha fatal", domain.TargetFact, fatal(StageHealReferences, boom), StageFailed},
		{"fallback ok", domain.TargetFact, ok(StageMinimalFallback), StageDone},
		{"fallback com falha recuperável", domain.TargetFact, recoverable(StageMinimalFallback, boom), StageFailed},
		{"fallback com falha fatal", domain.TargetDimensionStage, fatal(StageMinimalFallback, boom), StageFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextStage(tt.kind, tt.result))
		})
	}
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "ok", OutcomeOK.String())
	assert.Equal(t, "recoverable", OutcomeRecoverable.String())
	assert.Equal(t, "fatal", OutcomeFatal.String())
	assert.Equal(t, "unknown", Outcome(9).String())
}

func TestReconcileError(t *testing.T) {
	cause := errors.New("lock timeout")
	err := fmt.Errorf("execução: %w", newError(ErrConstraintInstall, StageEnforceFK, cause))

	assert.ErrorIs(t, err, ErrConstraintInstall)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrDanglingReference)
	assert.Equal(t, "execução: enforce_fk: falha ao instalar constraints: lock timeout", err.Error())

	var rerr *ReconcileError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, StageEnforceFK, rerr.Stage)

	bare := newError(ErrSchemaMissing, StageLoadStaging, nil)
	assert.Equal(t, "load_staging: tabelas de dimensão ausentes", bare.Error())
}

func TestInvalidReferenceError(t *testing.T) {
	report := domain.NewIntegrityReport()
	report.Set(domain.ReferenceStage, map[string]int64{"S1": 2, "S2": 1})
	report.Set(domain.ReferenceOwner, map[string]int64{"O1": 4})

	err := &InvalidReferenceError{Report: report}
	assert.ErrorIs(t, err, ErrDanglingReference)
	assert.Equal(t, "7 linhas com referência inválida (2 chaves de etapa, 1 chaves de owner)", err.Error())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		outcome  Outcome
		kind     error
		sqlstate string
	}{
		{"conexão ruim", driver.ErrBadConn, OutcomeFatal, ErrConnectivity, ""},
		{"conexão encerrada pelo servidor", &pq.Error{Code: "08006"}, OutcomeFatal, ErrConnectivity, "08006"},
		{"conexão recusada", errors.New("dial tcp: connect: connection refused"), OutcomeFatal, ErrConnectivity, ""},
		{"violação de constraint", &pq.Error{Code: "23503"}, OutcomeRecoverable, ErrConstraintInstall, "23503"},
		{"erro genérico", errors.New("syntax error"), OutcomeRecoverable, ErrConstraintInstall, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := classify(StageEnforceFK, ErrConstraintInstall, tt.err)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, StageEnforceFK, res.Stage)
			assert.ErrorIs(t, res.Err, tt.kind)
			assert.ErrorIs(t, res.Err, tt.err)

			var rerr *ReconcileError
			require.True(t, errors.As(res.Err, &rerr))
			assert.Equal(t, tt.sqlstate, rerr.SQLState)
			if tt.sqlstate == "" {
				assert.NotContains(t, rerr.Details, "sqlstate")
				return
			}
			assert.Equal(t, tt.sqlstate, rerr.Details["sqlstate"])
			assert.Contains(t, rerr.Error(), "(SQLSTATE "+tt.sqlstate+")")
		})
	}
}

func TestClassify_KeepsSQLStateWithDiagnostics(t *testing.T) {
	cause := fmt.Errorf("erro ao converter colunas: %w", &pq.Error{Code: "22008", Message: "date/time field value out of range"})

	res := classify(StageCoerceTypes, ErrTypeConversion, cause)
	require.Equal(t, OutcomeRecoverable, res.Outcome)

	var rerr *ReconcileError
	require.True(t, errors.As(res.Err, &rerr))
	rerr.addDetails(map[string]any{"rejected_values": map[string][]string{"created_date": {"2024-13-40"}}})

	assert.Equal(t, "22008", rerr.Details["sqlstate"])
	assert.Contains(t, rerr.Details, "rejected_values")
	assert.Equal(t,
		"coerce_types: falha na conversão de tipos: erro ao converter colunas: pq: date/time field value out of range (SQLSTATE 22008)",
		rerr.Error(),
	)
}
