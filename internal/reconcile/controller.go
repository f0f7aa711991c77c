package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vfg2006/trusted-etl/infrastructure/database/postgres"
	"github.com/vfg2006/trusted-etl/infrastructure/repository"
	"github.com/vfg2006/trusted-etl/internal/domain"
	"github.com/vfg2006/trusted-etl/internal/metrics"
	"github.com/vfg2006/trusted-etl/pkg/log"
	"github.com/vfg2006/trusted-etl/pkg/utils"
)

type Options struct {
	Sentinel      string
	HealEnabled   bool
	HealTopN      int
	RunLogEnabled bool
}

type Dependencies struct {
	Catalog  repository.CatalogRepository
	Staging  repository.StagingRepository
	Facts    repository.FactRepository
	RunLog   repository.RunLogRepository
	Source   repository.Source
	Recorder *metrics.Recorder
	Logger   log.Logger
}

// Controller conduz uma execução pela máquina de estados e decide entre
// seguir, cair no fallback mínimo ou abortar.
type Controller struct {
	model    domain.Model
	catalog  repository.CatalogRepository
	runLog   repository.RunLogRepository
	loader   *StagingLoader
	coercer  *TypeCoercer
	healer   *Healer
	enforcer *Enforcer
	recorder *metrics.Recorder
	logger   log.Logger

	now   func() time.Time
	newID func() (string, error)
}

func NewController(model domain.Model, deps Dependencies, opts Options) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	recorder := deps.Recorder
	if recorder == nil {
		recorder = metrics.NewRecorder(nil)
	}

	var runLog repository.RunLogRepository
	if opts.RunLogEnabled {
		runLog = deps.RunLog
	}

	return &Controller{
		model:    model,
		catalog:  deps.Catalog,
		runLog:   runLog,
		loader:   NewStagingLoader(deps.Staging, deps.Source, logger),
		coercer:  NewTypeCoercer(deps.Catalog, deps.Facts, logger),
		healer:   NewHealer(deps.Facts, opts.Sentinel, opts.HealTopN, opts.HealEnabled, logger),
		enforcer: NewEnforcer(deps.Catalog, deps.Facts, logger),
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
		newID:    utils.GenerateRunID,
	}
}

// RunReconciliation devolve true para execuções completas ou degradadas e
// false para falhas fatais.
func (c *Controller) RunReconciliation(ctx context.Context, kind domain.TargetKind) bool {
	summary, err := c.Run(ctx, kind)
	return err == nil && summary.Succeeded()
}

// Run executa a reconciliação de um alvo e devolve o resumo. O erro só é
// diferente de nil quando a execução falhou.
func (c *Controller) Run(ctx context.Context, kind domain.TargetKind) (domain.RunSummary, error) {
	run := domain.RunSummary{
		Target:    kind,
		Status:    domain.RunStatusRunning,
		StartedAt: c.now(),
	}

	id, err := c.newID()
	if err != nil {
		id = fmt.Sprintf("%d", run.StartedAt.UnixNano())
	}
	run.ID = id

	logger := c.logger.WithFields(log.Fields{"run_id": run.ID, "target": string(kind)})
	logger.Info("Iniciando reconciliação")

	journaled := false
	runErr := c.connect(ctx, &run)
	if runErr == nil {
		journaled = c.journalStart(ctx, logger, &run)
		runErr = c.checkDimensions(ctx, &run)
	}
	if runErr == nil {
		runErr = c.execute(ctx, logger, &run)
	}

	run.FinishedAt = c.now()
	if runErr != nil {
		run.Status = domain.RunStatusFailed
		run.Error = runErr.Error()
	}

	if journaled {
		c.journalFinish(ctx, logger, &run)
	}
	c.recorder.Run(string(kind), string(run.Status))

	fields := log.Fields{
		"status":      string(run.Status),
		"duration_ms": run.Duration().Milliseconds(),
		"staged_rows": run.StagedRows,
		"typed":       run.Typed,
		"constrained": run.Constrained,
	}
	if runErr != nil {
		logger.WithFields(fields).WithError(runErr).Error("Reconciliação falhou")
		return run, runErr
	}
	logger.WithFields(fields).Infof("Reconciliação concluída (%s)", run.Status)
	return run, nil
}

// connect verifica a conexão e o schema trusted. Sem eles nada é registrado.
func (c *Controller) connect(ctx context.Context, run *domain.RunSummary) error {
	if _, err := c.model.Table(run.Target); err != nil {
		return err
	}

	if err := c.catalog.Ping(ctx); err != nil {
		return newError(ErrConnectivity, StageLoadStaging, err)
	}

	if err := c.catalog.EnsureSchema(ctx, c.model.TargetSchema); err != nil {
		return c.fatalError(ErrSchemaMissing, err)
	}
	return nil
}

// checkDimensions exige as duas dimensões antes de tocar na fato.
func (c *Controller) checkDimensions(ctx context.Context, run *domain.RunSummary) error {
	if run.Target != domain.TargetFact {
		return nil
	}

	missing := make([]string, 0)
	for _, dim := range c.model.Dimensions() {
		exists, err := c.catalog.TableExists(ctx, dim.Schema, dim.Name)
		if err != nil {
			return c.fatalError(ErrSchemaMissing, err)
		}
		if !exists {
			missing = append(missing, dim.Name)
		}
	}
	if len(missing) > 0 {
		rerr := newError(ErrSchemaMissing, StageLoadStaging, fmt.Errorf("dimensões ausentes: %v", missing))
		rerr.addDetails(map[string]any{"missing": missing})
		return rerr
	}
	return nil
}

func (c *Controller) fatalError(kind error, err error) error {
	res := classify(StageLoadStaging, kind, err)
	return res.Err
}

// execute percorre os estados até DONE ou FAILED.
func (c *Controller) execute(ctx context.Context, logger log.Logger, run *domain.RunSummary) error {
	table, err := c.model.Table(run.Target)
	if err != nil {
		return err
	}

	degraded := false
	enforceRetried := false
	stage := StageLoadStaging

	for {
		start := time.Now()
		res := c.step(ctx, stage, table, run, &enforceRetried)
		c.recorder.Stage(string(stage), res.Outcome.String(), time.Since(start))

		stageLogger := logger.WithFields(log.Fields{
			"stage":       string(stage),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if !res.OK() {
			stageLogger = stageLogger.WithError(res.Err)
			var rerr *ReconcileError
			if errors.As(res.Err, &rerr) && rerr.Details != nil {
				stageLogger = stageLogger.WithField("details", rerr.Details)
			}
			stageLogger.Errorf("Etapa %s falhou (%s)", stage, res.Outcome)
		} else {
			stageLogger.Debugf("Etapa %s concluída", stage)
		}

		if stage == StageMinimalFallback {
			degraded = true
		}

		next := nextStage(run.Target, res)
		switch next {
		case StageDone:
			run.Status = domain.RunStatusSuccess
			if degraded {
				run.Status = domain.RunStatusDegraded
			}
			return nil
		case StageFailed:
			return res.Err
		case StageMinimalFallback:
			logger.Warnf("Caindo para o fallback mínimo após falha em %s", stage)
		}
		stage = next
	}
}

// step executa uma etapa e atualiza o resumo.
func (c *Controller) step(ctx context.Context, stage Stage, table domain.Table, run *domain.RunSummary, enforceRetried *bool) StageResult {
	refs := c.model.References

	switch stage {
	case StageLoadStaging:
		load, res := c.loader.Load(ctx, stage, table)
		if res.OK() {
			c.applyLoad(run, load)
		}
		return res

	case StageCoerceTypes:
		res := c.coercer.Coerce(ctx, stage, table)
		run.Typed = res.OK()
		return res

	case StageHealReferences:
		heal, res := c.healer.Heal(ctx, stage, table, refs)
		c.applyHeal(run, heal)
		return res

	case StageEnforceFK:
		res := c.enforcer.Enforce(ctx, stage, table, refs)
		if !*enforceRetried && c.healer.Enabled() &&
			res.Outcome == OutcomeRecoverable && errors.Is(res.Err, ErrDanglingReference) {
			*enforceRetried = true
			c.logger.WithField("stage", string(stage)).Warn("Referências inválidas após a correção, tentando corrigir novamente")

			heal, healRes := c.healer.Heal(ctx, stage, table, refs)
			c.applyHeal(run, heal)
			if !healRes.OK() {
				return healRes
			}
			res = c.enforcer.Enforce(ctx, stage, table, refs)
		}
		run.Constrained = res.OK()
		return res

	case StageMinimalFallback:
		return c.minimalFallback(ctx, table, run)
	}

	return fatal(stage, fmt.Errorf("etapa desconhecida: %s", stage))
}

// minimalFallback recarrega a tabela do zero e tenta converter os tipos.
// Uma falha na carga é fatal; a conversão é melhor esforço.
func (c *Controller) minimalFallback(ctx context.Context, table domain.Table, run *domain.RunSummary) StageResult {
	stage := StageMinimalFallback
	run.Constrained = false
	run.Typed = false

	load, res := c.loader.Load(ctx, stage, table)
	if !res.OK() {
		return fatal(stage, newError(ErrFallbackExhausted, stage, res.Err))
	}
	c.applyLoad(run, load)

	if run.Target.IsDimension() {
		return c.verifyRows(ctx, stage, table, run.StagedRows)
	}

	coerce := c.coercer.Coerce(ctx, stage, table)
	switch coerce.Outcome {
	case OutcomeOK:
		run.Typed = true
	case OutcomeFatal:
		return fatal(stage, newError(ErrFallbackExhausted, stage, coerce.Err))
	default:
		c.logger.WithError(coerce.Err).Warnf("Fallback mantém %s com colunas em texto", table.Name)
	}
	return c.verifyRows(ctx, stage, table, run.StagedRows)
}

// verifyRows garante que o fallback não perdeu linhas carregadas.
func (c *Controller) verifyRows(ctx context.Context, stage Stage, table domain.Table, staged int64) StageResult {
	rows, err := c.catalog.CountRows(ctx, table)
	if err != nil {
		if postgres.IsConnectivityError(err) {
			return fatal(stage, newError(ErrConnectivity, stage, err))
		}
		c.logger.WithError(err).Warnf("Não foi possível contar as linhas de %s após o fallback", table.Name)
		return ok(stage)
	}

	if rows < staged {
		rerr := newError(ErrFallbackExhausted, stage, fmt.Errorf("%s tem %d linhas, %d foram carregadas", table.Name, rows, staged))
		rerr.addDetails(map[string]any{"rows": rows, "staged_rows": staged})
		return fatal(stage, rerr)
	}
	return ok(stage)
}

func (c *Controller) applyLoad(run *domain.RunSummary, load domain.LoadResult) {
	run.StagedRows = load.Rows
	run.LoadPolicy = load.Policy
	c.recorder.Rows("staged", load.Upserted)
}

func (c *Controller) applyHeal(run *domain.RunSummary, heal HealResult) {
	run.PlaceholdersInserted += heal.Inserted
	run.ReferencesNulled += heal.Nulled
	c.recorder.Rows("placeholder", heal.Inserted)
	c.recorder.Rows("nulled", heal.Nulled)
}

// O histórico nunca derruba uma execução.
func (c *Controller) journalStart(ctx context.Context, logger log.Logger, run *domain.RunSummary) bool {
	if c.runLog == nil {
		return false
	}
	if err := c.runLog.Start(ctx, run); err != nil {
		logger.WithError(err).Warn("Não foi possível registrar o início da execução")
		return false
	}
	return true
}

func (c *Controller) journalFinish(ctx context.Context, logger log.Logger, run *domain.RunSummary) {
	if err := c.runLog.Finish(ctx, run); err != nil {
		logger.WithError(err).Warn("Não foi possível registrar o fim da execução")
	}
}

// History devolve as execuções mais recentes, da mais nova para a mais antiga.
func (c *Controller) History(ctx context.Context, limit int) ([]*domain.RunSummary, error) {
	if c.runLog == nil {
		return []*domain.RunSummary{}, nil
	}
	return c.runLog.List(ctx, limit)
}

// Latest devolve a última execução registrada de cada alvo.
func (c *Controller) Latest(ctx context.Context) (map[domain.TargetKind]*domain.RunSummary, error) {
	latest := make(map[domain.TargetKind]*domain.RunSummary)
	if c.runLog == nil {
		return latest, nil
	}
	for _, kind := range domain.OrderedTargets() {
		run, err := c.runLog.Latest(ctx, kind)
		if err != nil {
			return nil, err
		}
		if run != nil {
			latest[kind] = run
		}
	}
	return latest, nil
}
