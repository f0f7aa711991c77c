package domain

import (
	"fmt"

	"github.com/vfg2006/trusted-etl/pkg/sqlident"
)

type ColumnKind string

const (
	ColumnText   ColumnKind = "text"
	ColumnDate   ColumnKind = "date"
	ColumnAmount ColumnKind = "amount"
)

// CatalogType é o valor de information_schema.columns.data_type quando a coluna já foi convertida.
func (k ColumnKind) CatalogType() string {
	switch k {
	case ColumnDate:
		return "date"
	case ColumnAmount:
		return "numeric"
	default:
		return "text"
	}
}

func (k ColumnKind) SQLType() string {
	switch k {
	case ColumnDate:
		return "DATE"
	case ColumnAmount:
		return "NUMERIC(15,2)"
	default:
		return "TEXT"
	}
}

type Column struct {
	Name   string
	Source string
	Kind   ColumnKind
}

// Table descreve uma tabela do schema trusted e de onde vêm seus dados.
// A chave é sempre a primeira coluna.
type Table struct {
	Schema  string
	Name    string
	Source  string
	Key     string
	Columns []Column
}

func (t Table) QualifiedName() string {
	return sqlident.MustQuote(t.Schema) + "." + sqlident.MustQuote(t.Name)
}

func (t Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

// AttributeNames devolve as colunas que não são a chave.
func (t Table) AttributeNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name != t.Key {
			names = append(names, c.Name)
		}
	}
	return names
}

func (t Table) TypedColumns() []Column {
	typed := make([]Column, 0)
	for _, c := range t.Columns {
		if c.Kind != ColumnText {
			typed = append(typed, c)
		}
	}
	return typed
}

func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (t Table) Validate() error {
	if err := sqlident.ValidateAll(t.Schema, t.Name, t.Source, t.Key); err != nil {
		return fmt.Errorf("tabela %s: %w", t.Name, err)
	}
	if len(t.Columns) == 0 || t.Columns[0].Name != t.Key {
		return fmt.Errorf("tabela %s: a primeira coluna deve ser a chave %s", t.Name, t.Key)
	}
	for _, c := range t.Columns {
		if err := sqlident.ValidateAll(c.Name, c.Source); err != nil {
			return fmt.Errorf("tabela %s: %w", t.Name, err)
		}
	}
	return nil
}

type ReferenceRole string

const (
	ReferenceStage ReferenceRole = "stage"
	ReferenceOwner ReferenceRole = "owner"
)

// Reference liga uma coluna da tabela fato à chave de uma dimensão.
type Reference struct {
	Role       ReferenceRole
	Constraint string
	Column     string
	Dimension  Table
}

type ModelNames struct {
	SourceSchema     string
	SourceStageTable string
	SourceOwnerTable string
	SourceDealTable  string
	TargetSchema     string
	StageTable       string
	OwnerTable       string
	FactTable        string
}

func DefaultModelNames() ModelNames {
	return ModelNames{
		SourceSchema:     "public",
		SourceStageTable: "dim_id_etapa_hubspot",
		SourceOwnerTable: "dim_id_owners_hubspot",
		SourceDealTable:  "fato_id_deal_hubspot",
		TargetSchema:     "trusted",
		StageTable:       "dim_stage",
		OwnerTable:       "dim_owner",
		FactTable:        "fact_deal",
	}
}

// Model é o conjunto de tabelas mantidas pela reconciliação.
type Model struct {
	SourceSchema string
	TargetSchema string
	Stage        Table
	Owner        Table
	Fact         Table
	References   []Reference
}

func NewModel(n ModelNames) (Model, error) {
	if err := sqlident.ValidateAll(n.SourceSchema, n.TargetSchema); err != nil {
		return Model{}, err
	}

	stage := Table{
		Schema: n.TargetSchema,
		Name:   n.StageTable,
		Source: n.SourceStageTable,
		Key:    "stage_key",
		Columns: []Column{
			{Name: "stage_key", Source: "etapa_id", Kind: ColumnText},
			{Name: "pipeline", Source: "pipeline", Kind: ColumnText},
			{Name: "stage_name", Source: "etapa", Kind: ColumnText},
		},
	}

	owner := Table{
		Schema: n.TargetSchema,
		Name:   n.OwnerTable,
		Source: n.SourceOwnerTable,
		Key:    "owner_key",
		Columns: []Column{
			{Name: "owner_key", Source: "owner_id", Kind: ColumnText},
			{Name: "owner_name", Source: "owner_name", Kind: ColumnText},
		},
	}

	fact := Table{
		Schema: n.TargetSchema,
		Name:   n.FactTable,
		Source: n.SourceDealTable,
		Key:    "deal_id",
		Columns: []Column{
			{Name: "deal_id", Source: "deal_id", Kind: ColumnText},
			{Name: "created_date", Source: "data_negocio_criado", Kind: ColumnDate},
			{Name: "scheduled_date", Source: "data_agendamento", Kind: ColumnDate},
			{Name: "name", Source: "nome_negocio", Kind: ColumnText},
			{Name: "stage_key", Source: "etapa_id", Kind: ColumnText},
			{Name: "amount", Source: "valor", Kind: ColumnAmount},
			{Name: "funnel", Source: "funil", Kind: ColumnText},
			{Name: "source", Source: "origem", Kind: ColumnText},
			{Name: "channel", Source: "canal", Kind: ColumnText},
			{Name: "details", Source: "detalhes", Kind: ColumnText},
			{Name: "owner_key", Source: "owner_id", Kind: ColumnText},
		},
	}

	for _, t := range []Table{stage, owner, fact} {
		if err := t.Validate(); err != nil {
			return Model{}, err
		}
	}

	refs := []Reference{
		{Role: ReferenceStage, Constraint: "fk_" + fact.Name + "_stage", Column: "stage_key", Dimension: stage},
		{Role: ReferenceOwner, Constraint: "fk_" + fact.Name + "_owner", Column: "owner_key", Dimension: owner},
	}
	for _, r := range refs {
		if err := sqlident.Validate(r.Constraint); err != nil {
			return Model{}, err
		}
	}

	return Model{
		SourceSchema: n.SourceSchema,
		TargetSchema: n.TargetSchema,
		Stage:        stage,
		Owner:        owner,
		Fact:         fact,
		References:   refs,
	}, nil
}

func (m Model) Table(kind TargetKind) (Table, error) {
	switch kind {
	case TargetDimensionStage:
		return m.Stage, nil
	case TargetDimensionOwner:
		return m.Owner, nil
	case TargetFact:
		return m.Fact, nil
	}
	return Table{}, fmt.Errorf("%w: %q", ErrUnknownTarget, kind)
}

func (m Model) Dimensions() []Table {
	return []Table{m.Stage, m.Owner}
}
