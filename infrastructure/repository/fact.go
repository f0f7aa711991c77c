package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/vfg2006/trusted-etl/infrastructure/database/postgres"
	"github.com/vfg2006/trusted-etl/internal/coercion"
	"github.com/vfg2006/trusted-etl/internal/domain"
	"github.com/vfg2006/trusted-etl/pkg/sqlident"
)

type FactRepository interface {
	ConvertColumns(ctx context.Context, table domain.Table, columns []domain.Column) error
	DistinctValues(ctx context.Context, table domain.Table, column, pattern string, limit int) ([]string, error)
	DanglingReferences(ctx context.Context, fact domain.Table, ref domain.Reference) (map[string]int64, error)
	InsertPlaceholders(ctx context.Context, fact domain.Table, ref domain.Reference, sentinel string) (int64, error)
	NullDanglingReferences(ctx context.Context, fact domain.Table, ref domain.Reference) (int64, error)
	AddForeignKeys(ctx context.Context, fact domain.Table, refs []domain.Reference) error
}

type factRepository struct {
	conn postgres.Conn
}

func NewFactRepository(conn postgres.Conn) FactRepository {
	return &factRepository{
		conn: conn,
	}
}

// ConvertColumns altera todas as colunas em um único ALTER TABLE: ou todas
// mudam de tipo ou nenhuma muda.
func (f *factRepository) ConvertColumns(ctx context.Context, table domain.Table, columns []domain.Column) error {
	if len(columns) == 0 {
		return nil
	}

	return f.conn.RunInTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, convertColumnsSQL(table, columns)); err != nil {
			return fmt.Errorf("erro ao converter colunas de %s: %w", table.Name, err)
		}
		return nil
	})
}

func (f *factRepository) DistinctValues(ctx context.Context, table domain.Table, column, pattern string, limit int) ([]string, error) {
	query, args, err := distinctValuesSQL(table, column, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	rows, err := f.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao amostrar valores de %s.%s: %w", table.Name, column, err)
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (f *factRepository) DanglingReferences(ctx context.Context, fact domain.Table, ref domain.Reference) (map[string]int64, error) {
	query, args, err := danglingReferencesSQL(fact, ref)
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	rows, err := f.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar referências inválidas de %s: %w", ref.Column, err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var key string
		var total int64
		if err := rows.Scan(&key, &total); err != nil {
			return nil, err
		}
		counts[key] = total
	}
	return counts, rows.Err()
}

func (f *factRepository) InsertPlaceholders(ctx context.Context, fact domain.Table, ref domain.Reference, sentinel string) (int64, error) {
	query, args, err := insertPlaceholdersSQL(fact, ref, sentinel)
	if err != nil {
		return 0, fmt.Errorf("erro ao construir a query: %w", err)
	}

	var inserted int64
	err = f.conn.RunInTransaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("erro ao inserir placeholders em %s: %w", ref.Dimension.Name, err)
		}
		inserted, _ = res.RowsAffected()
		return nil
	})
	return inserted, err
}

func (f *factRepository) NullDanglingReferences(ctx context.Context, fact domain.Table, ref domain.Reference) (int64, error) {
	query, args, err := nullDanglingReferencesSQL(fact, ref)
	if err != nil {
		return 0, fmt.Errorf("erro ao construir a query: %w", err)
	}

	var nulled int64
	err = f.conn.RunInTransaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("erro ao anular referências de %s: %w", ref.Column, err)
		}
		nulled, _ = res.RowsAffected()
		return nil
	})
	return nulled, err
}

// AddForeignKeys instala as constraints em uma transação.
func (f *factRepository) AddForeignKeys(ctx context.Context, fact domain.Table, refs []domain.Reference) error {
	if len(refs) == 0 {
		return nil
	}

	return f.conn.RunInTransaction(ctx, func(tx *sql.Tx) error {
		for _, ref := range refs {
			if _, err := tx.ExecContext(ctx, addForeignKeySQL(fact, ref)); err != nil {
				return fmt.Errorf("erro ao adicionar constraint %s: %w", ref.Constraint, err)
			}
		}
		return nil
	})
}

func convertColumnsSQL(table domain.Table, columns []domain.Column) string {
	clauses := make([]string, 0, len(columns))
	for _, col := range columns {
		q := sqlident.MustQuote(col.Name)
		clauses = append(clauses, fmt.Sprintf(
			"ALTER COLUMN %s TYPE %s USING %s",
			q, col.Kind.SQLType(), coercion.UsingExpression(col.Kind, q),
		))
	}
	return fmt.Sprintf("ALTER TABLE %s %s", table.QualifiedName(), strings.Join(clauses, ", "))
}

func distinctValuesSQL(table domain.Table, column, pattern string, limit int) (string, []interface{}, error) {
	q, err := sqlident.Quote(column)
	if err != nil {
		return "", nil, err
	}

	builder := squirrel.
		Select(q).
		Distinct().
		From(table.QualifiedName()).
		Where(q + " IS NOT NULL").
		OrderBy(q).
		PlaceholderFormat(squirrel.Dollar)

	if pattern != "" {
		builder = builder.Where(q+" ~ ?", pattern)
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	return builder.ToSql()
}

// notExistsClause filtra as linhas da fato (alias f) cuja referência não existe na dimensão (alias d).
func notExistsClause(ref domain.Reference) string {
	return fmt.Sprintf(
		"NOT EXISTS (SELECT 1 FROM %s d WHERE d.%s = f.%s)",
		ref.Dimension.QualifiedName(),
		sqlident.MustQuote(ref.Dimension.Key),
		sqlident.MustQuote(ref.Column),
	)
}

func danglingReferencesSQL(fact domain.Table, ref domain.Reference) (string, []interface{}, error) {
	col := "f." + sqlident.MustQuote(ref.Column)
	return squirrel.
		Select(col, "count(*)").
		From(fact.QualifiedName() + " f").
		Where(col + " IS NOT NULL").
		Where(notExistsClause(ref)).
		GroupBy(col).
		OrderBy("count(*) DESC", col).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}

// insertPlaceholdersSQL cria uma linha por chave ausente, com o sentinela em
// todos os atributos. Conflitos de chave são ignorados.
func insertPlaceholdersSQL(fact domain.Table, ref domain.Reference, sentinel string) (string, []interface{}, error) {
	dim := ref.Dimension
	col := "f." + sqlident.MustQuote(ref.Column)

	columns := []string{sqlident.MustQuote(dim.Key)}
	sel := squirrel.Select(col).Distinct()
	for _, attr := range dim.AttributeNames() {
		columns = append(columns, sqlident.MustQuote(attr))
		sel = sel.Column("CAST(? AS TEXT)", sentinel)
	}

	sel = sel.
		From(fact.QualifiedName() + " f").
		Where(col + " IS NOT NULL").
		Where(notExistsClause(ref))

	return squirrel.
		Insert(dim.QualifiedName()).
		Columns(columns...).
		Select(sel).
		Suffix(fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", sqlident.MustQuote(dim.Key))).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}

func nullDanglingReferencesSQL(fact domain.Table, ref domain.Reference) (string, []interface{}, error) {
	col := sqlident.MustQuote(ref.Column)
	return squirrel.
		Update(fact.QualifiedName()+" AS f").
		Set(col, nil).
		Where("f." + col + " IS NOT NULL").
		Where(notExistsClause(ref)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}

func addForeignKeySQL(fact domain.Table, ref domain.Reference) string {
	return fmt.Sprintf(
		"ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE SET NULL",
		fact.QualifiedName(),
		sqlident.MustQuote(ref.Constraint),
		sqlident.MustQuote(ref.Column),
		ref.Dimension.QualifiedName(),
		sqlident.MustQuote(ref.Dimension.Key),
	)
}
