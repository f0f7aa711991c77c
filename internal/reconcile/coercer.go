package reconcile

import (
	"context"
	"fmt"

	"github.com/vfg2006/trusted-etl/infrastructure/repository"
	"github.com/vfg2006/trusted-etl/internal/coercion"
	"github.com/vfg2006/trusted-etl/internal/domain"
	"github.com/vfg2006/trusted-etl/pkg/log"
)

const (
	diagnosticSampleSize = 1000
	maxRejectedValues    = 10
)

// TypeCoercer converte as colunas de data e valor da tabela já carregada.
type TypeCoercer struct {
	catalog repository.CatalogRepository
	facts   repository.FactRepository
	logger  log.Logger
}

func NewTypeCoercer(catalog repository.CatalogRepository, facts repository.FactRepository, logger log.Logger) *TypeCoercer {
	return &TypeCoercer{
		catalog: catalog,
		facts:   facts,
		logger:  logger,
	}
}

// Coerce é idempotente: colunas que já estão no tipo final são ignoradas e,
// se todas estiverem, nada é alterado. Valores fora do padrão viram NULL.
// Se o banco recusar a alteração, a tabela continua em texto.
func (c *TypeCoercer) Coerce(ctx context.Context, stage Stage, table domain.Table) StageResult {
	types, err := c.catalog.ColumnTypes(ctx, table)
	if err != nil {
		return classify(stage, ErrTypeConversion, err)
	}

	pending, err := pendingColumns(table, types)
	if err != nil {
		return recoverable(stage, newError(ErrTypeConversion, stage, err))
	}
	if len(pending) == 0 {
		c.logger.WithField("stage", string(stage)).Debugf("Colunas de %s já convertidas", table.Name)
		return ok(stage)
	}

	if err := c.facts.ConvertColumns(ctx, table, pending); err != nil {
		res := classify(stage, ErrTypeConversion, err)
		if res.Outcome == OutcomeRecoverable {
			if rerr, isReconcile := res.Err.(*ReconcileError); isReconcile {
				rerr.addDetails(c.diagnose(ctx, table, pending))
			}
		}
		return res
	}

	names := make([]string, 0, len(pending))
	for _, col := range pending {
		names = append(names, col.Name)
	}
	c.logger.WithFields(log.Fields{
		"stage":   string(stage),
		"columns": names,
	}).Infof("Colunas de %s convertidas", table.Name)

	return ok(stage)
}

// pendingColumns devolve as colunas tipadas que ainda não estão no tipo final.
func pendingColumns(table domain.Table, types map[string]string) ([]domain.Column, error) {
	pending := make([]domain.Column, 0)
	for _, col := range table.TypedColumns() {
		current, exists := types[col.Name]
		if !exists {
			return nil, fmt.Errorf("coluna %s ausente em %s", col.Name, table.Name)
		}
		if current != col.Kind.CatalogType() {
			pending = append(pending, col)
		}
	}
	return pending, nil
}

// diagnose amostra valores que passam no padrão mas que o tipo recusa.
func (c *TypeCoercer) diagnose(ctx context.Context, table domain.Table, columns []domain.Column) map[string]any {
	rejected := make(map[string][]string)
	for _, col := range columns {
		pattern := ""
		if col.Kind == domain.ColumnDate {
			pattern = coercion.DatePattern
		}

		values, err := c.facts.DistinctValues(ctx, table, col.Name, pattern, diagnosticSampleSize)
		if err != nil {
			c.logger.WithError(err).Warnf("Não foi possível amostrar valores de %s", col.Name)
			continue
		}

		bad := coercion.Rejected(col.Kind, values)
		if len(bad) > maxRejectedValues {
			bad = bad[:maxRejectedValues]
		}
		if len(bad) > 0 {
			rejected[col.Name] = bad
		}
	}

	if len(rejected) == 0 {
		return nil
	}
	return map[string]any{"rejected_values": rejected}
}
