package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/vfg2006/trusted-etl/internal/config"
	"github.com/vfg2006/trusted-etl/internal/domain"
	"github.com/vfg2006/trusted-etl/pkg/log"
)

const (
	reconciliationJobTag = "reconciliation"
	minDelay             = time.Second
)

var ErrSyncRunning = errors.New("reconciliação já em andamento")

// Reconciler executa a reconciliação de um alvo.
type Reconciler interface {
	Run(ctx context.Context, kind domain.TargetKind) (domain.RunSummary, error)
}

// ReconciliationSyncConfig representa a configuração do agendador de reconciliação
type ReconciliationSyncConfig struct {
	SyncEnabled  bool
	SuccessDelay time.Duration
	FailureDelay time.Duration
	RunOnStart   bool
}

// ReconciliationSyncService roda os alvos em ordem e agenda a próxima
// execução conforme o resultado do ciclo.
type ReconciliationSyncService struct {
	scheduler  *gocron.Scheduler
	config     ReconciliationSyncConfig
	reconciler Reconciler
	logger     log.Logger

	ctx context.Context

	syncRunning         bool
	syncMutex           sync.Mutex
	lastSyncStartedAt   time.Time
	lastSyncCompletedAt time.Time
	lastSyncSucceeded   bool
	nextRunAt           time.Time
	lastResults         map[domain.TargetKind]domain.RunSummary
}

func NewReconciliationSyncService(reconciler Reconciler, appConfig *config.Config, logger log.Logger) *ReconciliationSyncService {
	syncConfig := ReconciliationSyncConfig{
		SyncEnabled:  appConfig.ReconciliationSync.Enabled,
		SuccessDelay: appConfig.ReconciliationSync.SuccessDelay,
		FailureDelay: appConfig.ReconciliationSync.FailureDelay,
		RunOnStart:   appConfig.ReconciliationSync.RunOnStart,
	}

	logger.WithFields(log.Fields{
		"sync_enabled":  syncConfig.SyncEnabled,
		"success_delay": syncConfig.SuccessDelay.String(),
		"failure_delay": syncConfig.FailureDelay.String(),
		"run_on_start":  syncConfig.RunOnStart,
	}).Info("Configuração do agendador de reconciliação carregada")

	return newReconciliationSyncService(reconciler, syncConfig, logger)
}

func newReconciliationSyncService(reconciler Reconciler, cfg ReconciliationSyncConfig, logger log.Logger) *ReconciliationSyncService {
	return &ReconciliationSyncService{
		scheduler:   gocron.NewScheduler(time.Local),
		config:      cfg,
		reconciler:  reconciler,
		logger:      logger,
		ctx:         context.Background(),
		lastResults: make(map[domain.TargetKind]domain.RunSummary),
	}
}

// Start inicia o agendador
func (s *ReconciliationSyncService) Start(ctx context.Context) error {
	if !s.config.SyncEnabled {
		s.logger.Info("Reconciliação agendada desabilitada por configuração")
		return nil
	}

	s.syncMutex.Lock()
	s.ctx = ctx
	s.syncMutex.Unlock()

	s.scheduler.StartAsync()

	if s.config.RunOnStart {
		go s.cycle(ctx)
	} else if err := s.scheduleNext(ctx, s.config.SuccessDelay); err != nil {
		s.scheduler.Stop()
		return err
	}

	go func() {
		<-ctx.Done()
		s.logger.Info("Parando agendador de reconciliação")
		s.scheduler.Stop()
	}()

	return nil
}

// cycle é o job agendado: roda todos os alvos e agenda o próximo ciclo.
func (s *ReconciliationSyncService) cycle(ctx context.Context) {
	succeeded, err := s.runCycle(ctx, domain.OrderedTargets())
	if errors.Is(err, ErrSyncRunning) {
		s.logger.Info("Reconciliação já em andamento, ciclo agendado ignorado")
	}

	if ctx.Err() != nil {
		return
	}

	if err := s.scheduleNext(ctx, s.NextDelay(succeeded)); err != nil {
		s.logger.WithError(err).Error("Erro ao agendar próxima reconciliação")
	}
}

// runCycle processa os alvos na ordem e para no primeiro que falhar.
// Execuções degradadas contam como sucesso.
func (s *ReconciliationSyncService) runCycle(ctx context.Context, targets []domain.TargetKind) (bool, error) {
	if !s.acquire() {
		return false, ErrSyncRunning
	}
	return s.runTargets(ctx, targets), nil
}

// acquire marca o início de um ciclo. Devolve false se já houver um em andamento.
func (s *ReconciliationSyncService) acquire() bool {
	s.syncMutex.Lock()
	defer s.syncMutex.Unlock()
	if s.syncRunning {
		return false
	}
	s.syncRunning = true
	s.lastSyncStartedAt = time.Now()
	return true
}

// runTargets exige um ciclo já adquirido e o libera ao terminar.
func (s *ReconciliationSyncService) runTargets(ctx context.Context, targets []domain.TargetKind) bool {
	succeeded := true
	defer func() {
		s.syncMutex.Lock()
		s.syncRunning = false
		s.lastSyncCompletedAt = time.Now()
		s.lastSyncSucceeded = succeeded
		s.syncMutex.Unlock()
	}()

	start := time.Now()
	for _, target := range targets {
		summary, err := s.reconciler.Run(ctx, target)

		s.syncMutex.Lock()
		s.lastResults[target] = summary
		s.syncMutex.Unlock()

		if err != nil || !summary.Succeeded() {
			succeeded = false
			s.logger.WithFields(log.Fields{
				"target": string(target),
				"run_id": summary.ID,
			}).WithError(err).Error("Ciclo de reconciliação interrompido")
			break
		}
	}

	s.logger.WithFields(log.Fields{
		"targets":     len(targets),
		"succeeded":   succeeded,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Ciclo de reconciliação concluído")

	return succeeded
}

// NextDelay devolve o intervalo até o próximo ciclo.
func (s *ReconciliationSyncService) NextDelay(succeeded bool) time.Duration {
	delay := s.config.FailureDelay
	if succeeded {
		delay = s.config.SuccessDelay
	}
	if delay < minDelay {
		delay = minDelay
	}
	return delay
}

// scheduleNext troca o job pendente por um que roda uma vez depois de delay.
func (s *ReconciliationSyncService) scheduleNext(ctx context.Context, delay time.Duration) error {
	if delay < minDelay {
		delay = minDelay
	}

	if err := s.scheduler.RemoveByTag(reconciliationJobTag); err != nil && !errors.Is(err, gocron.ErrJobNotFoundWithTag) {
		return fmt.Errorf("erro ao remover agendamento anterior: %w", err)
	}

	_, err := s.scheduler.
		Every(delay).
		WaitForSchedule().
		LimitRunsTo(1).
		Tag(reconciliationJobTag).
		Do(s.cycle, ctx)
	if err != nil {
		return fmt.Errorf("erro ao agendar reconciliação: %w", err)
	}

	s.syncMutex.Lock()
	s.nextRunAt = time.Now().Add(delay)
	s.syncMutex.Unlock()

	s.logger.WithField("delay", delay.String()).Info("Próxima reconciliação agendada")
	return nil
}

// TriggerManualSync inicia uma reconciliação fora do agendamento. target pode
// ser um alvo ou "all". Não altera o próximo ciclo agendado.
func (s *ReconciliationSyncService) TriggerManualSync(target string) error {
	targets, err := parseTargets(target)
	if err != nil {
		return err
	}

	// o ciclo é adquirido antes da goroutine: duas chamadas seguidas nunca
	// disparam dois ciclos
	if !s.acquire() {
		s.logger.Info("Reconciliação já em andamento, ignorando solicitação manual")
		return ErrSyncRunning
	}

	s.syncMutex.Lock()
	ctx := s.ctx
	s.syncMutex.Unlock()

	s.logger.WithField("target", target).Info("Iniciando reconciliação manual")
	go s.runTargets(ctx, targets)
	return nil
}

func parseTargets(target string) ([]domain.TargetKind, error) {
	if strings.EqualFold(strings.TrimSpace(target), "all") {
		return domain.OrderedTargets(), nil
	}
	kind, err := domain.ParseTargetKind(target)
	if err != nil {
		return nil, err
	}
	return []domain.TargetKind{kind}, nil
}

// GetStatus retorna o status atual do agendador
func (s *ReconciliationSyncService) GetStatus() map[string]any {
	s.syncMutex.Lock()
	defer s.syncMutex.Unlock()

	results := make(map[string]domain.RunSummary, len(s.lastResults))
	for target, summary := range s.lastResults {
		results[string(target)] = summary
	}

	return map[string]any{
		"sync_enabled":           s.config.SyncEnabled,
		"success_delay":          s.config.SuccessDelay.String(),
		"failure_delay":          s.config.FailureDelay.String(),
		"sync_running":           s.syncRunning,
		"last_sync_started_at":   s.lastSyncStartedAt,
		"last_sync_completed_at": s.lastSyncCompletedAt,
		"last_sync_succeeded":    s.lastSyncSucceeded,
		"next_run_at":            s.nextRunAt,
		"last_results":           results,
	}
}
