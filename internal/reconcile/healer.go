package reconcile

import (
	"context"

	"github.com/vfg2006/trusted-etl/infrastructure/repository"
	"github.com/vfg2006/trusted-etl/internal/domain"
	"github.com/vfg2006/trusted-etl/pkg/log"
)

type HealResult struct {
	// Report é o estado antes da correção.
	Report   domain.IntegrityReport
	Inserted int64
	Nulled   int64
}

// Healer corrige as referências da fato que não existem nas dimensões.
type Healer struct {
	facts    repository.FactRepository
	sentinel string
	topN     int
	enabled  bool
	logger   log.Logger
}

func NewHealer(facts repository.FactRepository, sentinel string, topN int, enabled bool, logger log.Logger) *Healer {
	return &Healer{
		facts:    facts,
		sentinel: sentinel,
		topN:     topN,
		enabled:  enabled,
		logger:   logger,
	}
}

func (h *Healer) Enabled() bool {
	return h.enabled
}

// Scan só lê: conta as referências inválidas por chave.
func (h *Healer) Scan(ctx context.Context, fact domain.Table, refs []domain.Reference) (domain.IntegrityReport, error) {
	return scanReferences(ctx, h.facts, fact, refs)
}

// Heal insere uma linha placeholder para cada chave ausente e, em seguida,
// anula o que ainda não resolver. Ao final toda referência não nula da fato
// existe na dimensão.
func (h *Healer) Heal(ctx context.Context, stage Stage, fact domain.Table, refs []domain.Reference) (HealResult, StageResult) {
	report, err := h.Scan(ctx, fact, refs)
	if err != nil {
		return HealResult{}, classify(stage, ErrDanglingReference, err)
	}

	result := HealResult{Report: report}
	if report.Empty() {
		return result, ok(stage)
	}

	h.logReport(stage, report)

	if !h.enabled {
		h.logger.WithField("stage", string(stage)).Warn("Correção de referências desabilitada, nada foi alterado")
		return result, ok(stage)
	}

	for _, ref := range refs {
		if len(report.For(ref.Role)) == 0 {
			continue
		}
		inserted, err := h.facts.InsertPlaceholders(ctx, fact, ref, h.sentinel)
		if err != nil {
			return result, classify(stage, ErrDanglingReference, err)
		}
		result.Inserted += inserted
	}

	for _, ref := range refs {
		if len(report.For(ref.Role)) == 0 {
			continue
		}
		nulled, err := h.facts.NullDanglingReferences(ctx, fact, ref)
		if err != nil {
			return result, classify(stage, ErrDanglingReference, err)
		}
		result.Nulled += nulled
	}

	h.logger.WithFields(log.Fields{
		"stage":    string(stage),
		"inserted": result.Inserted,
		"nulled":   result.Nulled,
	}).Infof("Referências de %s corrigidas", fact.Name)

	return result, ok(stage)
}

func (h *Healer) logReport(stage Stage, report domain.IntegrityReport) {
	h.logger.WithFields(log.Fields{
		"stage":      string(stage),
		"total":      report.Total(),
		"top_stages": report.Top(domain.ReferenceStage, h.topN),
		"top_owners": report.Top(domain.ReferenceOwner, h.topN),
	}).Warn("Referências inválidas encontradas na fato")
}

func scanReferences(ctx context.Context, facts repository.FactRepository, fact domain.Table, refs []domain.Reference) (domain.IntegrityReport, error) {
	report := domain.NewIntegrityReport()
	for _, ref := range refs {
		counts, err := facts.DanglingReferences(ctx, fact, ref)
		if err != nil {
			return domain.IntegrityReport{}, err
		}
		report.Set(ref.Role, counts)
	}
	return report, nil
}
