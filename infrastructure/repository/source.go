package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/vfg2006/trusted-etl/internal/domain"
	"github.com/vfg2006/trusted-etl/pkg/sqlident"
)

// Source entrega a consulta de leitura da origem, já no formato da tabela
// trusted: todas as colunas em texto e uma linha por chave. Prepare roda
// dentro da transação de carga.
type Source interface {
	Prepare(ctx context.Context, tx *sql.Tx, table domain.Table) (squirrel.SelectBuilder, error)
}

// QuerySource lê a origem no mesmo banco do destino.
type QuerySource struct {
	schema string
}

func NewQuerySource(schema string) *QuerySource {
	return &QuerySource{schema: schema}
}

func (s *QuerySource) Prepare(_ context.Context, _ *sql.Tx, table domain.Table) (squirrel.SelectBuilder, error) {
	return SourceSelect(s.schema, table)
}

// SourceSelect converte cada coluna da origem para texto com o nome da
// coluna trusted. Linhas sem chave são ignoradas e chaves repetidas viram uma linha.
func SourceSelect(schema string, table domain.Table) (squirrel.SelectBuilder, error) {
	from, err := sqlident.Qualified(schema, table.Source)
	if err != nil {
		return squirrel.SelectBuilder{}, err
	}

	keyColumn, ok := table.Column(table.Key)
	if !ok {
		return squirrel.SelectBuilder{}, fmt.Errorf("tabela %s sem coluna chave", table.Name)
	}
	sourceKey, err := sqlident.Quote(keyColumn.Source)
	if err != nil {
		return squirrel.SelectBuilder{}, err
	}

	builder := squirrel.Select().Options(fmt.Sprintf("DISTINCT ON (%s)", sourceKey))
	for _, col := range table.Columns {
		src, err := sqlident.Quote(col.Source)
		if err != nil {
			return squirrel.SelectBuilder{}, err
		}
		builder = builder.Column(fmt.Sprintf("CAST(%s AS TEXT) AS %s", src, sqlident.MustQuote(col.Name)))
	}

	return builder.
		From(from).
		Where(sourceKey + " IS NOT NULL").
		OrderBy(sourceKey), nil
}
