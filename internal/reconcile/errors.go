package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vfg2006/trusted-etl/infrastructure/database/postgres"
	"github.com/vfg2006/trusted-etl/internal/domain"
)

var (
	ErrConnectivity      = errors.New("falha de conexão com o banco")
	ErrSchemaMissing     = errors.New("tabelas de dimensão ausentes")
	ErrStagingLoad       = errors.New("falha na carga da origem")
	ErrTypeConversion    = errors.New("falha na conversão de tipos")
	ErrDanglingReference = errors.New("referências sem correspondência na dimensão")
	ErrConstraintInstall = errors.New("falha ao instalar constraints")
	ErrFallbackExhausted = errors.New("fallback mínimo falhou")
)

// ReconcileError associa o tipo do erro (Err) à etapa e à causa original.
// errors.Is funciona tanto para o sentinela quanto para a causa.
// SQLState vem do driver quando a causa é um *pq.Error.
type ReconcileError struct {
	Err      error
	Stage    Stage
	Cause    error
	SQLState string
	Details  map[string]any
}

func (e *ReconcileError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Stage))
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	if e.SQLState != "" {
		b.WriteString(" (SQLSTATE ")
		b.WriteString(e.SQLState)
		b.WriteString(")")
	}
	return b.String()
}

func (e *ReconcileError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func newError(kind error, stage Stage, cause error) *ReconcileError {
	rerr := &ReconcileError{Err: kind, Stage: stage, Cause: cause}
	if code := postgres.ErrorCode(cause); code != "" {
		rerr.SQLState = code
		rerr.addDetails(map[string]any{"sqlstate": code})
	}
	return rerr
}

// addDetails junta os campos aos detalhes existentes.
func (e *ReconcileError) addDetails(details map[string]any) {
	if len(details) == 0 {
		return
	}
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
}

// InvalidReferenceError é devolvido pelo Enforcer quando ainda há referências
// inválidas. Report traz a contagem por chave.
type InvalidReferenceError struct {
	Report domain.IntegrityReport
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf(
		"%d linhas com referência inválida (%d chaves de etapa, %d chaves de owner)",
		e.Report.Total(), len(e.Report.InvalidStageRefs), len(e.Report.InvalidOwnerRefs),
	)
}

func (e *InvalidReferenceError) Is(target error) bool {
	return target == ErrDanglingReference
}

// classify transforma o erro de uma etapa em resultado. Falhas de conexão são
// sempre fatais; as demais são recuperáveis com o tipo informado.
func classify(stage Stage, kind error, err error) StageResult {
	if postgres.IsConnectivityError(err) {
		return fatal(stage, newError(ErrConnectivity, stage, err))
	}
	return recoverable(stage, newError(kind, stage, err))
}
