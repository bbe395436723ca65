package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabloader/tabloader/internal/config"
	apperrors "github.com/tabloader/tabloader/internal/errors"
	"github.com/tabloader/tabloader/internal/query/compose"
	"github.com/tabloader/tabloader/pkg/types"
)

func openMemory(t *testing.T) DB {
	t.Helper()
	db, err := Connect(context.Background(), config.DatabaseConfig{Driver: "sqlite3", Path: ":memory:"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createPeople(t *testing.T, db DB) {
	t.Helper()
	stmt, err := compose.CreateTable(db.Dialect(), "people", []types.ColumnDef{
		{Name: "id", Type: types.TypeInteger},
		{Name: "first name", Type: types.TypeText},
		{Name: "score", Type: types.TypeFloat},
	})
	require.NoError(t, err)
	_, err = db.Exec(context.Background(), stmt, nil)
	require.NoError(t, err)
}

func TestSQLite_RoundTrip(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()
	assert.Equal(t, "sqlite3", db.Dialect().Name())

	createPeople(t, db)

	insert, err := compose.Insert(db.Dialect(), "people", []string{"id", "first name", "score"})
	require.NoError(t, err)

	affected, err := db.ExecBatch(ctx, insert, []map[string]any{
		{"id": int64(1), "first name": "ada", "score": 9.5},
		{"id": int64(2), "first name": "bob"},
		{"id": int64(3), "first name": "cy", "score": 7.25},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)

	sel, err := compose.Select(db.Dialect(), "people", []string{"id", "first name", "score"}, compose.LimitOf(2))
	require.NoError(t, err)

	result, err := db.Query(ctx, sel, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "first name", "score"}, result.Columns)
	assert.Equal(t, [][]any{
		{int64(1), "ada", 9.5},
		{int64(2), "bob", nil},
	}, result.Rows)

	all, err := compose.Select(db.Dialect(), "people", []string{"id"}, compose.NoLimit)
	require.NoError(t, err)
	result, err = db.Query(ctx, all, nil)
	require.NoError(t, err)
	assert.Len(t, result.Rows, 3)
}

func TestSQLite_LeadingUnderscoreColumn(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	create, err := compose.CreateTable(db.Dialect(), "t", []types.ColumnDef{
		{Name: "_id", Type: types.TypeInteger},
		{Name: "name", Type: types.TypeText},
	})
	require.NoError(t, err)
	_, err = db.Exec(ctx, create, nil)
	require.NoError(t, err)

	insert, err := compose.Insert(db.Dialect(), "t", []string{"_id", "name"})
	require.NoError(t, err)

	n, err := db.Exec(ctx, insert, map[string]any{"_id": int64(1), "name": "ada"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	sel, err := compose.Select(db.Dialect(), "t", []string{"_id", "name"}, compose.NoLimit)
	require.NoError(t, err)
	result, err := db.Query(ctx, sel, nil)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1), "ada"}}, result.Rows)
}

func TestConnect_DriverAlias(t *testing.T) {
	db, err := Connect(context.Background(), config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, compose.SQLite, db.Dialect())
}

func TestSQLite_CreateTableIsIdempotent(t *testing.T) {
	db := openMemory(t)
	createPeople(t, db)
	createPeople(t, db)
}

func TestSQLite_ExecSingleRow(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()
	createPeople(t, db)

	insert, err := compose.Insert(db.Dialect(), "people", []string{"id", "first name"})
	require.NoError(t, err)

	n, err := db.Exec(ctx, insert, map[string]any{"id": int64(7), "first name": "q"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSQLite_BatchIsAtomic(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	stmt, err := compose.CreateTable(db.Dialect(), "strict", []types.ColumnDef{{Name: "id", Type: types.TypeInteger}})
	require.NoError(t, err)
	_, err = db.Exec(ctx, &compose.Statement{SQL: `CREATE TABLE "strict" ("id" INT PRIMARY KEY)`}, nil)
	require.NoError(t, err)
	_, err = db.Exec(ctx, stmt, nil)
	require.NoError(t, err)

	insert, err := compose.Insert(db.Dialect(), "strict", []string{"id"})
	require.NoError(t, err)

	_, err = db.ExecBatch(ctx, insert, []map[string]any{{"id": int64(1)}, {"id": int64(1)}})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeExecFailed, apperrors.GetCode(err))

	sel, err := compose.Select(db.Dialect(), "strict", []string{"id"}, compose.NoLimit)
	require.NoError(t, err)
	result, err := db.Query(ctx, sel, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
}

func TestSQLite_QueryMissingTable(t *testing.T) {
	db := openMemory(t)

	sel, err := compose.Select(db.Dialect(), "missing", []string{"id"}, compose.NoLimit)
	require.NoError(t, err)

	_, err = db.Query(context.Background(), sel, nil)
	assert.Equal(t, apperrors.ErrCategoryDatabase, apperrors.GetCategory(err))
	assert.Equal(t, apperrors.CodeQueryFailed, apperrors.GetCode(err))
}

func TestSQLite_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	cfg := config.DatabaseConfig{Driver: "sqlite3", Path: path}

	db, err := Connect(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	createPeople(t, db)
	require.NoError(t, db.Close())

	db, err = Connect(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	sel, err := compose.Select(db.Dialect(), "people", []string{"id"}, compose.NoLimit)
	require.NoError(t, err)
	_, err = db.Query(context.Background(), sel, nil)
	assert.NoError(t, err)
}

func TestClosedConnection(t *testing.T) {
	db, err := Connect(context.Background(), config.DatabaseConfig{Driver: "sqlite3", Path: ":memory:"}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	stmt := &compose.Statement{SQL: "SELECT 1"}
	ctx := context.Background()

	_, err = db.Exec(ctx, stmt, nil)
	assert.ErrorIs(t, err, ErrConnectionClosed)
	_, err = db.ExecBatch(ctx, stmt, []map[string]any{{}})
	assert.ErrorIs(t, err, ErrConnectionClosed)
	_, err = db.Query(ctx, stmt, nil)
	assert.ErrorIs(t, err, ErrConnectionClosed)
	assert.ErrorIs(t, db.Close(), ErrConnectionClosed)

	assert.NotEqual(t, apperrors.ErrCategoryValidation, apperrors.GetCategory(ErrConnectionClosed))
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect(context.Background(), config.DatabaseConfig{Driver: "oracle"}, zerolog.Nop())
	assert.Equal(t, apperrors.CodeConnectFailed, apperrors.GetCode(err))
}
