// Package migration prepara o schema trusted antes da primeira execução.
package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/vfg2006/trusted-etl/infrastructure/repository"
	"github.com/vfg2006/trusted-etl/internal/domain"
	"github.com/vfg2006/trusted-etl/pkg/log"
)

// Bootstrap cria o schema, as tabelas de dimensão e o log de execuções.
// A fato não é criada aqui: ela nasce na primeira carga, com colunas texto.
type Bootstrap struct {
	catalog repository.CatalogRepository
	runLog  repository.RunLogRepository
	model   domain.Model
	logger  log.Logger
}

// NewBootstrap aceita runLog nil quando o log de execuções está desligado.
func NewBootstrap(catalog repository.CatalogRepository, runLog repository.RunLogRepository, model domain.Model, logger log.Logger) *Bootstrap {
	return &Bootstrap{
		catalog: catalog,
		runLog:  runLog,
		model:   model,
		logger:  logger,
	}
}

// Run é idempotente; rodar de novo não altera tabelas existentes.
func (b *Bootstrap) Run(ctx context.Context) error {
	start := time.Now()

	if err := b.catalog.EnsureSchema(ctx, b.model.TargetSchema); err != nil {
		return fmt.Errorf("erro ao criar schema %s: %w", b.model.TargetSchema, err)
	}
	b.logger.WithField("schema", b.model.TargetSchema).Info("Schema verificado")

	for _, dim := range b.model.Dimensions() {
		if err := b.catalog.EnsureTable(ctx, dim); err != nil {
			return fmt.Errorf("erro ao criar tabela %s: %w", dim.Name, err)
		}
		b.logger.WithField("table", dim.Name).Info("Tabela de dimensão verificada")
	}

	if b.runLog != nil {
		if err := b.runLog.EnsureTable(ctx); err != nil {
			return fmt.Errorf("erro ao criar log de execuções: %w", err)
		}
		b.logger.Info("Log de execuções verificado")
	}

	b.logger.WithField("duration_ms", time.Since(start).Milliseconds()).Info("Migração concluída")
	return nil
}
