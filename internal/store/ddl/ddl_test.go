package ddl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

var taxiColumns = []pgingest.Column{
	{Name: "index", Type: pgingest.FieldInteger},
	{Name: "tpep_pickup_datetime", Type: pgingest.FieldTimestamp},
	{Name: "fare_amount", Type: pgingest.FieldReal},
	{Name: "store_and_fwd_flag", Type: pgingest.FieldBoolean},
	{Name: "day", Type: pgingest.FieldDate},
	{Name: "zone", Type: pgingest.FieldText},
}

func TestMapType(t *testing.T) {
	want := map[Dialect][]string{
		Postgres: {"BIGINT", "TIMESTAMPTZ", "DOUBLE PRECISION", "BOOLEAN", "DATE", "TEXT"},
		SQLite:   {"INTEGER", "TEXT", "REAL", "INTEGER", "TEXT", "TEXT"},
	}
	for d, types := range want {
		for i, c := range taxiColumns {
			assert.Equal(t, types[i], MapType(d, c.Type), "%s %s", d, c.Type)
		}
	}
}

func TestCreateTable(t *testing.T) {
	sql, err := CreateTable(Postgres, "public.yellow_taxi", taxiColumns[:3])
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE \"public\".\"yellow_taxi\" (\n"+
		"  \"index\" BIGINT,\n"+
		"  \"tpep_pickup_datetime\" TIMESTAMPTZ,\n"+
		"  \"fare_amount\" DOUBLE PRECISION\n)", sql)

	_, err = CreateTable(SQLite, " ", taxiColumns)
	assert.Error(t, err)

	_, err = CreateTable(SQLite, "t", nil)
	assert.Error(t, err)

	_, err = CreateTable(SQLite, "t", []pgingest.Column{{Name: ""}})
	assert.Error(t, err)
}

func TestQuoting(t *testing.T) {
	assert.Equal(t, `"we""ird"`, QuoteIdent(`we"ird`))
	assert.Equal(t, `"a"."b"`, QuoteTable(" a . b "))
	assert.Equal(t, []string{"trips"}, SplitTable("trips"))
	assert.Equal(t, `DROP TABLE IF EXISTS "s"."t"`, DropTable("s.t"))
}

func TestInsert(t *testing.T) {
	assert.Equal(t, `INSERT INTO "t" ("index", "tpep_pickup_datetime") VALUES (?, ?)`, Insert("t", taxiColumns[:2]))
	assert.Equal(t, []string{"index", "tpep_pickup_datetime"}, ColumnNames(taxiColumns[:2]))
}
