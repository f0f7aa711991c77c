package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/vfg2006/trusted-etl/infrastructure/database/postgres"
	"github.com/vfg2006/trusted-etl/internal/coercion"
	"github.com/vfg2006/trusted-etl/internal/domain"
	"github.com/vfg2006/trusted-etl/pkg/sqlident"
)

type StagingRepository interface {
	Load(ctx context.Context, table domain.Table, source Source) (domain.LoadResult, error)
}

type stagingRepository struct {
	conn postgres.Conn
}

func NewStagingRepository(conn postgres.Conn) StagingRepository {
	return &stagingRepository{
		conn: conn,
	}
}

// Load materializa a origem na tabela em uma única transação:
// garante a tabela, remove as FKs, volta as colunas tipadas para texto e
// grava as linhas. Com a tabela vazia a política é substituir; com dados, as
// linhas são mescladas pela chave e nada é apagado.
func (s *stagingRepository) Load(ctx context.Context, table domain.Table, source Source) (domain.LoadResult, error) {
	result := domain.LoadResult{}

	err := s.conn.RunInTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, createTableSQL(table)); err != nil {
			return fmt.Errorf("erro ao criar tabela %s: %w", table.Name, err)
		}

		if err := dropForeignKeys(ctx, tx, table); err != nil {
			return err
		}

		if err := revertTypedColumns(ctx, tx, table); err != nil {
			return err
		}

		sel, err := source.Prepare(ctx, tx, table)
		if err != nil {
			return fmt.Errorf("erro ao preparar leitura da origem %s: %w", table.Source, err)
		}

		hasRows, err := tableHasRows(ctx, tx, table)
		if err != nil {
			return err
		}

		result.Policy = domain.LoadReplace
		if hasRows {
			result.Policy = domain.LoadMerge
		}

		if result.Policy == domain.LoadReplace {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table.QualifiedName()); err != nil {
				return fmt.Errorf("erro ao limpar tabela %s: %w", table.Name, err)
			}
		}

		query, args, err := upsertSQL(table, sel, result.Policy)
		if err != nil {
			return fmt.Errorf("erro ao construir a query: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("erro ao carregar %s a partir de %s: %w", table.Name, table.Source, err)
		}
		result.Upserted, _ = res.RowsAffected()

		result.Rows, err = countRows(ctx, tx, table)
		return err
	})
	if err != nil {
		return domain.LoadResult{}, err
	}

	return result, nil
}

// upsertSQL insere a partir da consulta de origem. Na mesclagem, a chave
// existente tem os atributos atualizados.
func upsertSQL(table domain.Table, sel squirrel.SelectBuilder, policy domain.LoadPolicy) (string, []interface{}, error) {
	columns := make([]string, 0, len(table.Columns))
	for _, name := range table.ColumnNames() {
		columns = append(columns, sqlident.MustQuote(name))
	}

	key := sqlident.MustQuote(table.Key)
	conflict := fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", key)

	attributes := table.AttributeNames()
	if policy == domain.LoadMerge && len(attributes) > 0 {
		sets := make([]string, 0, len(attributes))
		for _, name := range attributes {
			q := sqlident.MustQuote(name)
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", q, q))
		}
		conflict = fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", key, strings.Join(sets, ", "))
	}

	return squirrel.
		Insert(table.QualifiedName()).
		Columns(columns...).
		Select(sel).
		Suffix(conflict).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}

func tableHasRows(ctx context.Context, q postgres.Queryer, table domain.Table) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s)", table.QualifiedName())
	if err := q.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		return false, fmt.Errorf("erro ao verificar dados em %s: %w", table.Name, err)
	}
	return exists, nil
}

func dropForeignKeys(ctx context.Context, tx *sql.Tx, table domain.Table) error {
	query, args, err := squirrel.
		Select("constraint_name").
		From(informationSchemaConstraints).
		Where(squirrel.Eq{
			"table_schema":    table.Schema,
			"table_name":      table.Name,
			"constraint_type": "FOREIGN KEY",
		}).
		OrderBy("constraint_name").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("erro ao listar constraints de %s: %w", table.Name, err)
	}

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, name := range names {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(
			"ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s",
			table.QualifiedName(), pq.QuoteIdentifier(name),
		)); err != nil {
			return fmt.Errorf("erro ao remover constraint %s: %w", name, err)
		}
	}
	return nil
}

// revertTypedColumns devolve ao texto as colunas já convertidas em uma execução anterior.
func revertTypedColumns(ctx context.Context, tx *sql.Tx, table domain.Table) error {
	types, err := columnTypes(ctx, tx, table)
	if err != nil {
		return err
	}

	stmt := revertColumnsSQL(table, types)
	if stmt == "" {
		return nil
	}

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("erro ao reverter tipos de %s: %w", table.Name, err)
	}
	return nil
}

func revertColumnsSQL(table domain.Table, types map[string]string) string {
	clauses := make([]string, 0)
	for _, col := range table.TypedColumns() {
		dataType, ok := types[col.Name]
		if !ok || dataType == "text" {
			continue
		}
		q := sqlident.MustQuote(col.Name)
		clauses = append(clauses, fmt.Sprintf(
			"ALTER COLUMN %s TYPE TEXT USING %s",
			q, coercion.RevertExpression(col.Kind, q),
		))
	}
	if len(clauses) == 0 {
		return ""
	}
	return fmt.Sprintf("ALTER TABLE %s %s", table.QualifiedName(), strings.Join(clauses, ", "))
}
