// Package extractor lê as tabelas de origem quando elas estão em outro banco.
package extractor

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"github.com/vfg2006/trusted-etl/infrastructure/repository"
	"github.com/vfg2006/trusted-etl/internal/domain"
	"github.com/vfg2006/trusted-etl/pkg/log"
	"github.com/vfg2006/trusted-etl/pkg/sqlident"
)

const tempTablePrefix = "src_"

type rowsQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource copia as linhas da origem remota para uma tabela temporária
// da transação de carga. A tabela some no commit ou no rollback.
type PostgresSource struct {
	pool   rowsQuerier
	closer func()
	schema string
	logger log.Logger
}

var _ repository.Source = (*PostgresSource)(nil)

func NewPostgresSource(ctx context.Context, dsn, schema string, logger log.Logger) (*PostgresSource, error) {
	if err := sqlident.Validate(schema); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("erro ao configurar conexão com a origem: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("erro ao conectar na origem: %w", err)
	}

	return &PostgresSource{
		pool:   pool,
		closer: pool.Close,
		schema: schema,
		logger: logger,
	}, nil
}

func (s *PostgresSource) Close() {
	if s.closer != nil {
		s.closer()
	}
}

func (s *PostgresSource) Prepare(ctx context.Context, tx *sql.Tx, table domain.Table) (squirrel.SelectBuilder, error) {
	query, args, err := remoteQuery(s.schema, table)
	if err != nil {
		return squirrel.SelectBuilder{}, err
	}

	temp := tempTableName(table)
	if _, err := tx.ExecContext(ctx, tempTableSQL(temp, table)); err != nil {
		return squirrel.SelectBuilder{}, fmt.Errorf("erro ao criar tabela temporária %s: %w", temp, err)
	}

	copied, err := s.copyRows(ctx, tx, temp, table, query, args)
	if err != nil {
		return squirrel.SelectBuilder{}, err
	}

	s.logger.WithFields(log.Fields{
		"table":  table.Name,
		"source": table.Source,
		"rows":   copied,
	}).Debug("Origem remota copiada para a transação")

	return tempSelect(temp, table), nil
}

func (s *PostgresSource) copyRows(ctx context.Context, tx *sql.Tx, temp string, table domain.Table, query string, args []any) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(temp, table.ColumnNames()...))
	if err != nil {
		return 0, fmt.Errorf("erro ao iniciar cópia para %s: %w", temp, err)
	}
	defer stmt.Close()

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("erro ao ler origem %s: %w", table.Source, err)
	}
	defer rows.Close()

	values := make([]pgtype.Text, len(table.Columns))
	dest := make([]any, len(values))
	for i := range values {
		dest[i] = &values[i]
	}

	var copied int64
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return copied, fmt.Errorf("erro ao ler linha de %s: %w", table.Source, err)
		}
		if _, err := stmt.ExecContext(ctx, textValues(values)...); err != nil {
			return copied, fmt.Errorf("erro ao copiar linha para %s: %w", temp, err)
		}
		copied++
	}
	if err := rows.Err(); err != nil {
		return copied, fmt.Errorf("erro ao ler origem %s: %w", table.Source, err)
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		return copied, fmt.Errorf("erro ao finalizar cópia para %s: %w", temp, err)
	}
	return copied, nil
}

// remoteQuery é a mesma leitura usada para a origem local, com placeholders do pgx.
func remoteQuery(schema string, table domain.Table) (string, []any, error) {
	sel, err := repository.SourceSelect(schema, table)
	if err != nil {
		return "", nil, err
	}
	return sel.PlaceholderFormat(squirrel.Dollar).ToSql()
}

func tempTableName(table domain.Table) string {
	return tempTablePrefix + table.Name
}

func tempTableSQL(temp string, table domain.Table) string {
	columns := make([]string, 0, len(table.Columns))
	for _, name := range table.ColumnNames() {
		columns = append(columns, sqlident.MustQuote(name)+" TEXT")
	}
	return fmt.Sprintf(
		"CREATE TEMP TABLE %s (%s) ON COMMIT DROP",
		pq.QuoteIdentifier(temp), strings.Join(columns, ", "),
	)
}

func tempSelect(temp string, table domain.Table) squirrel.SelectBuilder {
	columns := make([]string, 0, len(table.Columns))
	for _, name := range table.ColumnNames() {
		columns = append(columns, sqlident.MustQuote(name))
	}
	return squirrel.Select(columns...).From(pq.QuoteIdentifier(temp))
}

// textValues converte os valores lidos para o COPY; NULL continua NULL.
func textValues(values []pgtype.Text) []any {
	out := make([]any, len(values))
	for i, v := range values {
		if v.Valid {
			out[i] = v.String
		}
	}
	return out
}
