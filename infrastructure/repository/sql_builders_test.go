package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/trusted-etl/internal/domain"
)

func testModel(t *testing.T) domain.Model {
	t.Helper()
	m, err := domain.NewModel(domain.DefaultModelNames())
	require.NoError(t, err)
	return m
}

func TestCreateTableSQL(t *testing.T) {
	t.Parallel()
	m := testModel(t)

	got := createTableSQL(m.Stage)
	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "trusted"."dim_stage" ("stage_key" TEXT PRIMARY KEY, "pipeline" TEXT, "stage_name" TEXT)`,
		got,
	)

	fact := createTableSQL(m.Fact)
	assert.Contains(t, fact, `"deal_id" TEXT PRIMARY KEY`)
	assert.Contains(t, fact, `"amount" TEXT`)
	assert.NotContains(t, fact, "REFERENCES")
}

func TestSourceSelect(t *testing.T) {
	t.Parallel()
	m := testModel(t)

	sel, err := SourceSelect("public", m.Fact)
	require.NoError(t, err)

	query, args, err := sel.ToSql()
	require.NoError(t, err)
	assert.Empty(t, args)
	assert.True(t, strings.HasPrefix(query, `SELECT DISTINCT ON ("deal_id") CAST("deal_id" AS TEXT) AS "deal_id"`), query)
	assert.Contains(t, query, `CAST("data_negocio_criado" AS TEXT) AS "created_date"`)
	assert.Contains(t, query, `CAST("etapa_id" AS TEXT) AS "stage_key"`)
	assert.Contains(t, query, `FROM "public"."fato_id_deal_hubspot" WHERE "deal_id" IS NOT NULL ORDER BY "deal_id"`)

	_, err = SourceSelect("public; drop", m.Fact)
	assert.Error(t, err)
}

func TestUpsertSQL(t *testing.T) {
	t.Parallel()
	m := testModel(t)
	sel, err := SourceSelect("public", m.Owner)
	require.NoError(t, err)

	replace, _, err := upsertSQL(m.Owner, sel, domain.LoadReplace)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(replace, `INSERT INTO "trusted"."dim_owner" ("owner_key","owner_name") SELECT`), replace)
	assert.True(t, strings.HasSuffix(replace, `ON CONFLICT ("owner_key") DO NOTHING`), replace)

	merge, _, err := upsertSQL(m.Owner, sel, domain.LoadMerge)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(merge, `ON CONFLICT ("owner_key") DO UPDATE SET "owner_name" = EXCLUDED."owner_name"`), merge)
	assert.NotContains(t, merge, "DELETE")
}

func TestRevertColumnsSQL(t *testing.T) {
	t.Parallel()
	m := testModel(t)

	assert.Empty(t, revertColumnsSQL(m.Fact, map[string]string{"created_date": "text", "amount": "text"}))

	got := revertColumnsSQL(m.Fact, map[string]string{
		"created_date":   "date",
		"scheduled_date": "text",
		"amount":         "numeric",
	})
	assert.Equal(t,
		`ALTER TABLE "trusted"."fact_deal" ALTER COLUMN "created_date" TYPE TEXT USING to_char("created_date", 'YYYY-MM-DD'), ALTER COLUMN "amount" TYPE TEXT USING "amount"::TEXT`,
		got,
	)
}

func TestConvertColumnsSQL(t *testing.T) {
	t.Parallel()
	m := testModel(t)

	got := convertColumnsSQL(m.Fact, m.Fact.TypedColumns())
	assert.True(t, strings.HasPrefix(got, `ALTER TABLE "trusted"."fact_deal" ALTER COLUMN "created_date" TYPE DATE USING CASE WHEN`), got)
	assert.Contains(t, got, `ALTER COLUMN "scheduled_date" TYPE DATE USING`)
	assert.Contains(t, got, `ALTER COLUMN "amount" TYPE NUMERIC(15,2) USING CASE WHEN regexp_replace("amount"`)
	assert.Equal(t, 1, strings.Count(got, "ALTER TABLE"))
}

func TestDanglingReferencesSQL(t *testing.T) {
	t.Parallel()
	m := testModel(t)

	query, args, err := danglingReferencesSQL(m.Fact, m.References[0])
	require.NoError(t, err)
	assert.Empty(t, args)
	assert.Equal(t,
		`SELECT f."stage_key", count(*) FROM "trusted"."fact_deal" f WHERE f."stage_key" IS NOT NULL AND NOT EXISTS (SELECT 1 FROM "trusted"."dim_stage" d WHERE d."stage_key" = f."stage_key") GROUP BY f."stage_key" ORDER BY count(*) DESC, f."stage_key"`,
		query,
	)
}

func TestInsertPlaceholdersSQL(t *testing.T) {
	t.Parallel()
	m := testModel(t)

	query, args, err := insertPlaceholdersSQL(m.Fact, m.References[0], "DESCONHECIDO")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"DESCONHECIDO", "DESCONHECIDO"}, args)
	assert.Equal(t,
		`INSERT INTO "trusted"."dim_stage" ("stage_key","pipeline","stage_name") SELECT DISTINCT f."stage_key", CAST($1 AS TEXT), CAST($2 AS TEXT) FROM "trusted"."fact_deal" f WHERE f."stage_key" IS NOT NULL AND NOT EXISTS (SELECT 1 FROM "trusted"."dim_stage" d WHERE d."stage_key" = f."stage_key") ON CONFLICT ("stage_key") DO NOTHING`,
		query,
	)

	owner, args, err := insertPlaceholdersSQL(m.Fact, m.References[1], "UNKNOWN")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"UNKNOWN"}, args)
	assert.Contains(t, owner, `INSERT INTO "trusted"."dim_owner" ("owner_key","owner_name")`)
}

func TestNullDanglingReferencesSQL(t *testing.T) {
	t.Parallel()
	m := testModel(t)

	query, args, err := nullDanglingReferencesSQL(m.Fact, m.References[1])
	require.NoError(t, err)
	assert.Equal(t, []interface{}{nil}, args)
	assert.Equal(t,
		`UPDATE "trusted"."fact_deal" AS f SET "owner_key" = $1 WHERE f."owner_key" IS NOT NULL AND NOT EXISTS (SELECT 1 FROM "trusted"."dim_owner" d WHERE d."owner_key" = f."owner_key")`,
		query,
	)
}

func TestAddForeignKeySQL(t *testing.T) {
	t.Parallel()
	m := testModel(t)

	assert.Equal(t,
		`ALTER TABLE "trusted"."fact_deal" ADD CONSTRAINT "fk_fact_deal_stage" FOREIGN KEY ("stage_key") REFERENCES "trusted"."dim_stage" ("stage_key") ON DELETE SET NULL`,
		addForeignKeySQL(m.Fact, m.References[0]),
	)
}

func TestDistinctValuesSQL(t *testing.T) {
	t.Parallel()
	m := testModel(t)

	query, args, err := distinctValuesSQL(m.Fact, "created_date", `^[0-9]{4}$`, 20)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{`^[0-9]{4}$`}, args)
	assert.Equal(t,
		`SELECT DISTINCT "created_date" FROM "trusted"."fact_deal" WHERE "created_date" IS NOT NULL AND "created_date" ~ $1 ORDER BY "created_date" LIMIT 20`,
		query,
	)

	_, _, err = distinctValuesSQL(m.Fact, "Created", "", 0)
	assert.Error(t, err)
}

func TestRunLogTableSQL(t *testing.T) {
	t.Parallel()
	got := runLogTableSQL(`"trusted"."etl_run_log"`)
	assert.True(t, strings.HasPrefix(got, `CREATE TABLE IF NOT EXISTS "trusted"."etl_run_log" (`))
	for _, col := range runLogColumns {
		assert.Contains(t, got, "\t"+col+" ")
	}
}

func TestQuerySource_Prepare(t *testing.T) {
	t.Parallel()
	m := testModel(t)

	sel, err := NewQuerySource("public").Prepare(context.Background(), nil, m.Stage)
	require.NoError(t, err)
	query, _, err := sel.PlaceholderFormat(squirrel.Dollar).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, `FROM "public"."dim_id_etapa_hubspot"`)
	assert.Contains(t, query, `CAST("etapa" AS TEXT) AS "stage_name"`)
}
