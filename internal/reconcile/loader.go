package reconcile

import (
	"context"
	"time"

	"github.com/vfg2006/trusted-etl/infrastructure/repository"
	"github.com/vfg2006/trusted-etl/internal/domain"
	"github.com/vfg2006/trusted-etl/pkg/log"
)

// StagingLoader materializa a origem na tabela trusted com todas as colunas em texto.
type StagingLoader struct {
	staging repository.StagingRepository
	source  repository.Source
	logger  log.Logger
}

func NewStagingLoader(staging repository.StagingRepository, source repository.Source, logger log.Logger) *StagingLoader {
	return &StagingLoader{
		staging: staging,
		source:  source,
		logger:  logger,
	}
}

// Load substitui a tabela quando ela está vazia e mescla pela chave quando já tem dados.
func (l *StagingLoader) Load(ctx context.Context, stage Stage, table domain.Table) (domain.LoadResult, StageResult) {
	start := time.Now()

	res, err := l.staging.Load(ctx, table, l.source)
	if err != nil {
		return domain.LoadResult{}, classify(stage, ErrStagingLoad, err)
	}

	l.logger.WithFields(log.Fields{
		"stage":       string(stage),
		"table":       table.Name,
		"policy":      string(res.Policy),
		"upserted":    res.Upserted,
		"rows":        res.Rows,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Infof("Tabela %s carregada (%s)", table.Name, res.Policy)

	return res, ok(stage)
}
