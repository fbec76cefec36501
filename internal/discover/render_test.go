package discover

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlift-labs/sqlift/internal/config"
	"github.com/sqlift-labs/sqlift/internal/ddl"
)

func TestRender_RoundTripsThroughExtractor(t *testing.T) {
	tables := []TableDef{
		{
			Schema:  "public",
			Name:    "account",
			Comment: "Customer accounts",
			Columns: []ColumnDef{
				{Name: "id", DataType: "INTEGER", Nullable: false, Comment: "Surrogate key"},
				{Name: "email", DataType: "TEXT", Nullable: false},
				{Name: "balance", DataType: "NUMERIC(10,2)", Nullable: true},
			},
			PrimaryKey: []string{"id"},
		},
		{
			Schema: "public",
			Name:   "payment",
			Columns: []ColumnDef{
				{Name: "id", DataType: "INTEGER", Nullable: false},
				{Name: "account_id", DataType: "INTEGER", Nullable: false},
			},
			PrimaryKey: []string{"id"},
			ForeignKeys: []ForeignKeyDef{
				{
					Name:       "payment_account_fk",
					Columns:    []string{"account_id"},
					RefColumns: []string{"id"},
					RefSchema:  "public",
					RefTable:   "account",
				},
			},
		},
	}

	var out strings.Builder
	require.NoError(t, Render(&out, tables))

	result := ddl.NewParser().Parse(out.String())
	require.Equal(t, 2, result.Len())

	account, ok := result.Get("public.account")
	require.True(t, ok)
	assert.Equal(t, "Customer accounts", account.Table.Comment)
	require.Len(t, account.Columns, 3)
	assert.Equal(t, "Surrogate key", account.Columns[0].Comment)
	assert.False(t, account.Columns[0].Nullable)
	assert.True(t, account.Columns[2].Nullable)
	assert.Equal(t, []string{"id"}, account.PrimaryKey)

	payment, ok := result.Get("public.payment")
	require.True(t, ok)
	require.Len(t, payment.ForeignKeys, 1)
	assert.Equal(t, "account_id", payment.ForeignKeys[0].Column)
	assert.Equal(t, "public.account.id", payment.ForeignKeys[0].Ref)
}

func TestRender_EscapesCommentQuotes(t *testing.T) {
	tables := []TableDef{
		{
			Schema:  "public",
			Name:    "note",
			Comment: "The user's notes",
			Columns: []ColumnDef{
				{Name: "id", DataType: "INTEGER", Nullable: false},
			},
		},
	}

	var out strings.Builder
	require.NoError(t, Render(&out, tables))
	assert.Contains(t, out.String(), "IS 'The user''s notes';")

	result := ddl.NewParser().Parse(out.String())
	entry, ok := result.Get("public.note")
	require.True(t, ok)
	assert.Equal(t, "The user's notes", entry.Table.Comment)
}

func TestRender_CompositeKeys(t *testing.T) {
	tables := []TableDef{
		{
			Schema: "public",
			Name:   "assignment",
			Columns: []ColumnDef{
				{Name: "user_id", DataType: "INTEGER", Nullable: false},
				{Name: "role_id", DataType: "INTEGER", Nullable: false},
			},
			PrimaryKey: []string{"user_id", "role_id"},
			ForeignKeys: []ForeignKeyDef{
				{
					Name:       "assignment_fk",
					Columns:    []string{"user_id", "role_id"},
					RefColumns: []string{"uid", "rid"},
					RefSchema:  "public",
					RefTable:   "grants",
				},
			},
		},
	}

	var out strings.Builder
	require.NoError(t, Render(&out, tables))

	result := ddl.NewParser().Parse(out.String())
	entry, ok := result.Get("public.assignment")
	require.True(t, ok)
	assert.Equal(t, []string{"user_id", "role_id"}, entry.PrimaryKey)
	require.Len(t, entry.ForeignKeys, 2)
	assert.Equal(t, "public.grants.uid", entry.ForeignKeys[0].Ref)
	assert.Equal(t, "public.grants.rid", entry.ForeignKeys[1].Ref)
}

func TestBuildDSN(t *testing.T) {
	src := config.SourceConfig{
		Type:     "postgres",
		Host:     "db.internal",
		Port:     5433,
		Database: "warehouse",
		User:     "etl",
		Password: "secret",
	}
	dsn := buildDSN(&src)
	assert.Equal(t, "host=db.internal port=5433 dbname=warehouse sslmode=disable user=etl password=secret", dsn)
}

func TestBuildDSN_Defaults(t *testing.T) {
	src := config.SourceConfig{Type: "postgres", Database: "warehouse"}
	dsn := buildDSN(&src)
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "port=5432")
	assert.NotContains(t, dsn, "user=")
}
