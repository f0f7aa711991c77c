package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/vfg2006/trusted-etl/infrastructure/database/postgres"
	"github.com/vfg2006/trusted-etl/internal/domain"
	"github.com/vfg2006/trusted-etl/pkg/sqlident"
)

const (
	informationSchemaTables      = "information_schema.tables"
	informationSchemaColumns     = "information_schema.columns"
	informationSchemaConstraints = "information_schema.table_constraints"
)

type CatalogRepository interface {
	Ping(ctx context.Context) error
	EnsureSchema(ctx context.Context, schema string) error
	EnsureTable(ctx context.Context, table domain.Table) error
	TableExists(ctx context.Context, schema, name string) (bool, error)
	CountRows(ctx context.Context, table domain.Table) (int64, error)
	ColumnTypes(ctx context.Context, table domain.Table) (map[string]string, error)
	ConstraintExists(ctx context.Context, table domain.Table, constraint string) (bool, error)
}

type catalogRepository struct {
	conn postgres.Conn
}

func NewCatalogRepository(conn postgres.Conn) CatalogRepository {
	return &catalogRepository{
		conn: conn,
	}
}

func (c *catalogRepository) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *catalogRepository) EnsureSchema(ctx context.Context, schema string) error {
	quoted, err := sqlident.Quote(schema)
	if err != nil {
		return err
	}

	if _, err := c.conn.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoted); err != nil {
		return fmt.Errorf("erro ao criar schema %s: %w", schema, err)
	}
	return nil
}

func (c *catalogRepository) EnsureTable(ctx context.Context, table domain.Table) error {
	if _, err := c.conn.ExecContext(ctx, createTableSQL(table)); err != nil {
		return fmt.Errorf("erro ao criar tabela %s: %w", table.Name, err)
	}
	return nil
}

func (c *catalogRepository) TableExists(ctx context.Context, schema, name string) (bool, error) {
	return tableExists(ctx, c.conn, schema, name)
}

func (c *catalogRepository) CountRows(ctx context.Context, table domain.Table) (int64, error) {
	return countRows(ctx, c.conn, table)
}

func (c *catalogRepository) ColumnTypes(ctx context.Context, table domain.Table) (map[string]string, error) {
	return columnTypes(ctx, c.conn, table)
}

func (c *catalogRepository) ConstraintExists(ctx context.Context, table domain.Table, constraint string) (bool, error) {
	query, args, err := squirrel.
		Select("1").
		From(informationSchemaConstraints).
		Where(squirrel.Eq{
			"table_schema":    table.Schema,
			"table_name":      table.Name,
			"constraint_name": constraint,
			"constraint_type": "FOREIGN KEY",
		}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("erro ao construir a query: %w", err)
	}

	var exists bool
	if err := c.conn.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("erro ao verificar constraint %s: %w", constraint, err)
	}
	return exists, nil
}

// createTableSQL cria a tabela com todas as colunas em texto e a chave primária.
func createTableSQL(table domain.Table) string {
	defs := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		def := sqlident.MustQuote(col.Name) + " TEXT"
		if col.Name == table.Key {
			def += " PRIMARY KEY"
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table.QualifiedName(), strings.Join(defs, ", "))
}

func tableExists(ctx context.Context, q postgres.Queryer, schema, name string) (bool, error) {
	query, args, err := squirrel.
		Select("1").
		From(informationSchemaTables).
		Where(squirrel.Eq{"table_schema": schema, "table_name": name}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("erro ao construir a query: %w", err)
	}

	var exists bool
	if err := q.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("erro ao verificar tabela %s.%s: %w", schema, name, err)
	}
	return exists, nil
}

func countRows(ctx context.Context, q postgres.Queryer, table domain.Table) (int64, error) {
	query, args, err := squirrel.
		Select("count(*)").
		From(table.QualifiedName()).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("erro ao construir a query: %w", err)
	}

	var total int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("erro ao contar linhas de %s: %w", table.Name, err)
	}
	return total, nil
}

func columnTypes(ctx context.Context, q postgres.Queryer, table domain.Table) (map[string]string, error) {
	query, args, err := squirrel.
		Select("column_name", "data_type").
		From(informationSchemaColumns).
		Where(squirrel.Eq{"table_schema": table.Schema, "table_name": table.Name}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao consultar colunas de %s: %w", table.Name, err)
	}
	defer rows.Close()

	types := make(map[string]string)
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, err
		}
		types[name] = dataType
	}

	return types, rows.Err()
}
