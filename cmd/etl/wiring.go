package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/vfg2006/trusted-etl/infrastructure/database/postgres"
	"github.com/vfg2006/trusted-etl/infrastructure/extractor"
	"github.com/vfg2006/trusted-etl/infrastructure/repository"
	"github.com/vfg2006/trusted-etl/internal/metrics"
	"github.com/vfg2006/trusted-etl/internal/metrics/datadog"
	"github.com/vfg2006/trusted-etl/internal/reconcile"
)

// engine junta a conexão e o controller de uma execução do binário.
type engine struct {
	conn       *postgres.Connection
	controller *reconcile.Controller
	closers    []func()
}

func (r *engine) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// pgconn cria uma conexão com o banco de destino
func (a *app) pgconn(ctx context.Context) (*postgres.Connection, error) {
	conn, err := postgres.NewConnection(ctx, a.cfg.Database)
	if err != nil {
		a.logger.WithError(err).Error("Erro ao conectar ao PostgreSQL")
		return nil, err
	}

	a.logger.Info("Conexão com PostgreSQL estabelecida com sucesso")
	return conn, nil
}

func (a *app) runLog(conn postgres.Conn) (repository.RunLogRepository, error) {
	if !a.cfg.Reconciliation.RunLogEnabled {
		return nil, nil
	}
	return repository.NewRunLogRepository(conn, a.model.TargetSchema, a.cfg.Target.RunLogTable)
}

func (a *app) source(ctx context.Context) (repository.Source, func(), error) {
	if a.cfg.Source.DSN == "" {
		return repository.NewQuerySource(a.model.SourceSchema), func() {}, nil
	}

	src, err := extractor.NewPostgresSource(ctx, a.cfg.Source.DSN, a.model.SourceSchema, a.logger)
	if err != nil {
		return nil, nil, err
	}
	a.logger.WithField("schema", a.model.SourceSchema).Info("Origem remota configurada")
	return src, src.Close, nil
}

func (a *app) metricsBackend(ctx context.Context) (metrics.Backend, func(), error) {
	switch strings.ToLower(a.cfg.Metrics.Backend) {
	case "", "none":
		return nil, func() {}, nil
	case "datadog":
		backend, err := datadog.NewBackend(ctx, datadog.Options{
			JobName:    a.cfg.Metrics.JobName,
			Tags:       datadog.ParseTagsCSV(strings.Join(a.cfg.Metrics.Tags, ",")),
			FlushEvery: a.cfg.Metrics.FlushEvery,
		})
		if err != nil {
			return nil, nil, err
		}
		closer := func() {
			if err := backend.Close(); err != nil {
				a.logger.WithError(err).Warn("Erro ao enviar métricas finais")
			}
		}
		return backend, closer, nil
	default:
		return nil, nil, fmt.Errorf("METRICS_BACKEND desconhecido: %q", a.cfg.Metrics.Backend)
	}
}

// newEngine monta o controller com todas as dependências concretas.
func (a *app) newEngine(ctx context.Context) (*engine, error) {
	rt := &engine{}

	conn, err := a.pgconn(ctx)
	if err != nil {
		return nil, err
	}
	rt.conn = conn
	rt.closers = append(rt.closers, func() { _ = conn.Close() })

	runLog, err := a.runLog(conn)
	if err != nil {
		rt.Close()
		return nil, err
	}

	source, closeSource, err := a.source(ctx)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.closers = append(rt.closers, closeSource)

	backend, closeMetrics, err := a.metricsBackend(ctx)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.closers = append(rt.closers, closeMetrics)

	deps := reconcile.Dependencies{
		Catalog:  repository.NewCatalogRepository(conn),
		Staging:  repository.NewStagingRepository(conn),
		Facts:    repository.NewFactRepository(conn),
		RunLog:   runLog,
		Source:   source,
		Recorder: metrics.NewRecorder(backend),
		Logger:   a.logger,
	}

	rt.controller = reconcile.NewController(a.model, deps, reconcile.Options{
		Sentinel:      a.cfg.Reconciliation.PlaceholderSentinel,
		HealEnabled:   a.cfg.Reconciliation.HealEnabled,
		HealTopN:      a.cfg.Reconciliation.HealTopN,
		RunLogEnabled: a.cfg.Reconciliation.RunLogEnabled,
	})
	return rt, nil
}
