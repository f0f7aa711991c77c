package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/vfg2006/trusted-etl/infrastructure/database/postgres"
	"github.com/vfg2006/trusted-etl/internal/domain"
	"github.com/vfg2006/trusted-etl/pkg/sqlident"
)

var runLogColumns = []string{
	"id", "target", "status", "started_at", "finished_at", "load_policy",
	"staged_rows", "placeholders_inserted", "references_nulled", "typed", "constrained", "error",
}

// RunLogRepository guarda o histórico das execuções de reconciliação.
type RunLogRepository interface {
	EnsureTable(ctx context.Context) error
	Start(ctx context.Context, run *domain.RunSummary) error
	Finish(ctx context.Context, run *domain.RunSummary) error
	Latest(ctx context.Context, target domain.TargetKind) (*domain.RunSummary, error)
	List(ctx context.Context, limit int) ([]*domain.RunSummary, error)
}

type runLogRepository struct {
	conn  postgres.Conn
	table string
}

func NewRunLogRepository(conn postgres.Conn, schema, table string) (RunLogRepository, error) {
	qualified, err := sqlident.Qualified(schema, table)
	if err != nil {
		return nil, err
	}
	return &runLogRepository{
		conn:  conn,
		table: qualified,
	}, nil
}

func (r *runLogRepository) EnsureTable(ctx context.Context) error {
	if _, err := r.conn.ExecContext(ctx, runLogTableSQL(r.table)); err != nil {
		return fmt.Errorf("erro ao criar tabela de execuções: %w", err)
	}
	return nil
}

func (r *runLogRepository) Start(ctx context.Context, run *domain.RunSummary) error {
	query, args, err := squirrel.
		Insert(r.table).
		Columns("id", "target", "status", "started_at").
		Values(run.ID, string(run.Target), string(run.Status), run.StartedAt).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	if _, err := r.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("erro ao registrar início da execução %s: %w", run.ID, err)
	}
	return nil
}

func (r *runLogRepository) Finish(ctx context.Context, run *domain.RunSummary) error {
	var runErr *string
	if run.Error != "" {
		runErr = &run.Error
	}

	query, args, err := squirrel.
		Update(r.table).
		SetMap(map[string]interface{}{
			"status":                string(run.Status),
			"finished_at":           run.FinishedAt,
			"load_policy":           string(run.LoadPolicy),
			"staged_rows":           run.StagedRows,
			"placeholders_inserted": run.PlaceholdersInserted,
			"references_nulled":     run.ReferencesNulled,
			"typed":                 run.Typed,
			"constrained":           run.Constrained,
			"error":                 runErr,
		}).
		Where(squirrel.Eq{"id": run.ID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	if _, err := r.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("erro ao registrar fim da execução %s: %w", run.ID, err)
	}
	return nil
}

func (r *runLogRepository) Latest(ctx context.Context, target domain.TargetKind) (*domain.RunSummary, error) {
	query, args, err := squirrel.
		Select(runLogColumns...).
		From(r.table).
		Where(squirrel.Eq{"target": string(target)}).
		OrderBy("started_at DESC").
		Limit(1).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	run, err := scanRun(r.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao buscar última execução de %s: %w", target, err)
	}
	return run, nil
}

func (r *runLogRepository) List(ctx context.Context, limit int) ([]*domain.RunSummary, error) {
	builder := squirrel.
		Select(runLogColumns...).
		From(r.table).
		OrderBy("started_at DESC").
		PlaceholderFormat(squirrel.Dollar)
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar execuções: %w", err)
	}
	defer rows.Close()

	runs := make([]*domain.RunSummary, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.RunSummary, error) {
	var (
		run        domain.RunSummary
		target     string
		status     string
		finishedAt sql.NullTime
		policy     sql.NullString
		runErr     sql.NullString
	)

	if err := row.Scan(
		&run.ID,
		&target,
		&status,
		&run.StartedAt,
		&finishedAt,
		&policy,
		&run.StagedRows,
		&run.PlaceholdersInserted,
		&run.ReferencesNulled,
		&run.Typed,
		&run.Constrained,
		&runErr,
	); err != nil {
		return nil, err
	}

	run.Target = domain.TargetKind(target)
	run.Status = domain.RunStatus(status)
	run.FinishedAt = finishedAt.Time
	run.LoadPolicy = domain.LoadPolicy(policy.String)
	run.Error = runErr.String
	return &run, nil
}

func runLogTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	target TEXT NOT NULL,
	status TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	load_policy TEXT,
	staged_rows BIGINT NOT NULL DEFAULT 0,
	placeholders_inserted BIGINT NOT NULL DEFAULT 0,
	references_nulled BIGINT NOT NULL DEFAULT 0,
	typed BOOLEAN NOT NULL DEFAULT FALSE,
	constrained BOOLEAN NOT NULL DEFAULT FALSE,
	error TEXT
)`, table)
}
