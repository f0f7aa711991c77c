package reconcile

import (
	"context"

	"github.com/vfg2006/trusted-etl/infrastructure/repository"
	"github.com/vfg2006/trusted-etl/internal/domain"
	"github.com/vfg2006/trusted-etl/pkg/log"
)

// Enforcer instala as FKs da fato para as dimensões (ON DELETE SET NULL).
type Enforcer struct {
	catalog repository.CatalogRepository
	facts   repository.FactRepository
	logger  log.Logger
}

func NewEnforcer(catalog repository.CatalogRepository, facts repository.FactRepository, logger log.Logger) *Enforcer {
	return &Enforcer{
		catalog: catalog,
		facts:   facts,
		logger:  logger,
	}
}

// Enforce falha com InvalidReferenceError, sem tentar a constraint, quando
// ainda existem referências inválidas. Constraints já presentes não são recriadas.
func (e *Enforcer) Enforce(ctx context.Context, stage Stage, fact domain.Table, refs []domain.Reference) StageResult {
	report, err := scanReferences(ctx, e.facts, fact, refs)
	if err != nil {
		return classify(stage, ErrDanglingReference, err)
	}
	if !report.Empty() {
		rerr := newError(ErrDanglingReference, stage, &InvalidReferenceError{Report: report})
		rerr.addDetails(map[string]any{
			"invalid_stage_refs": report.InvalidStageRefs,
			"invalid_owner_refs": report.InvalidOwnerRefs,
		})
		return recoverable(stage, rerr)
	}

	missing := make([]domain.Reference, 0, len(refs))
	for _, ref := range refs {
		exists, err := e.catalog.ConstraintExists(ctx, fact, ref.Constraint)
		if err != nil {
			return classify(stage, ErrConstraintInstall, err)
		}
		if !exists {
			missing = append(missing, ref)
		}
	}

	if len(missing) == 0 {
		e.logger.WithField("stage", string(stage)).Debugf("Constraints de %s já instaladas", fact.Name)
		return ok(stage)
	}

	if err := e.facts.AddForeignKeys(ctx, fact, missing); err != nil {
		return classify(stage, ErrConstraintInstall, err)
	}

	names := make([]string, 0, len(missing))
	for _, ref := range missing {
		names = append(names, ref.Constraint)
	}
	e.logger.WithFields(log.Fields{
		"stage":       string(stage),
		"constraints": names,
	}).Infof("Constraints de %s instaladas", fact.Name)

	return ok(stage)
}
