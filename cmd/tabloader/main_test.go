package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tabloader/tabloader/internal/errors"
	"github.com/tabloader/tabloader/internal/storage"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestSQLCreate(t *testing.T) {
	out, err := run(t, "sql", "create", "people", "--dialect", "postgres",
		"--column", "id:int64", "--column", "name:object")
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS \"people\" (\"id\" INT, \"name\" VARCHAR)\n", out)

	_, err = run(t, "sql", "create", "people", "--dialect", "postgres", "--column", "id:complex128")
	assert.Error(t, err)

	_, err = run(t, "sql", "create", "people", "--dialect", "postgres", "--column", "id")
	assert.Error(t, err)
}

func TestSQLInsert(t *testing.T) {
	out, err := run(t, "sql", "insert", "people", "--dialect", "sqlite3", "--columns", "id,name")
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO \"people\" (\"id\", \"name\") VALUES (:id, :name)\n  id -> id\n  name -> name\n", out)
}

func TestSQLSelect(t *testing.T) {
	out, err := run(t, "sql", "select", "people", "--dialect", "postgres", "--columns", "id,name")
	require.NoError(t, err)
	assert.Equal(t, "SELECT \"id\", \"name\" FROM \"people\"\n", out)

	out, err = run(t, "sql", "select", "people", "--dialect", "postgres", "--columns", "id", "--limit", "5")
	require.NoError(t, err)
	assert.Equal(t, "SELECT \"id\" FROM \"people\" LIMIT 5\n", out)

	_, err = run(t, "sql", "select", "people", "--dialect", "postgres", "--columns", "id", "--limit", "-2")
	assert.Error(t, err)

	_, err = run(t, "sql", "select", "people", "--dialect", "mysql", "--columns", "id")
	assert.Error(t, err)
}

func TestHeadLoadExtract(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TABLOADER_DB_DRIVER", "sqlite3")
	t.Setenv("TABLOADER_DB_PATH", filepath.Join(dir, "db", "test.db"))

	src := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(src, []byte("id,name\n1,ada\n2,bob\n3,cy\n"), 0644))

	out, err := run(t, "--data-dir", dir, "head", src, "-n", "2")
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,ada\n", out)

	out, err = run(t, "--data-dir", dir, "load", src, "--table", "people")
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 3 rows into people")

	dst := filepath.Join(dir, "out", "people.csv")
	out, err = run(t, "--data-dir", dir, "extract", "--table", "people", "--columns", "name", "--limit", "2", "--out", dst)
	require.NoError(t, err)
	assert.Equal(t, "Saved successfully to "+dst+"\n", out)

	saved, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "name\nada\nbob\n", string(saved))
}

func TestFilesAndDownload(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TABLOADER_DB_DRIVER", "sqlite3")

	hub, err := storage.NewLocalStorage(filepath.Join(dir, "hub"))
	require.NoError(t, err)
	src := filepath.Join(t.TempDir(), "train.csv")
	require.NoError(t, os.WriteFile(src, []byte("a\n1\n"), 0644))
	require.NoError(t, hub.Upload(context.Background(), src, "owner/ds/train.csv"))

	out, err := run(t, "--data-dir", dir, "files", "owner/ds")
	require.NoError(t, err)
	assert.Contains(t, out, "train.csv")
	assert.Contains(t, out, "csv")

	saveDir := filepath.Join(dir, "saved")
	out, err = run(t, "--data-dir", dir, "download", "owner/ds", "train.csv", "--dir", saveDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(saveDir, "train.csv")+"\n", out)

	_, err = run(t, "--data-dir", dir, "files", "not-a-reference")
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"plain", errors.New("boom"), 1},
		{"validation", apperrors.NewValidationError(apperrors.CodeInvalidArgument, "bad"), 2},
		{"file", apperrors.NewFileError(apperrors.CodeReadFailed, "bad", nil), 3},
		{"dataset", apperrors.NewDatasetError(apperrors.CodeFileNotFound, "bad", nil), 4},
		{"storage", apperrors.NewStorageError(apperrors.CodeDownloadFailed, "bad", nil), 4},
		{"database wrapped", fmt.Errorf("load: %w", apperrors.NewDatabaseError(apperrors.CodeConnectFailed, "bad", nil)), 5},
		{"internal", apperrors.NewInternalError("bad", nil), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestExitCode_CommandErrors(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TABLOADER_DB_DRIVER", "sqlite3")
	t.Setenv("TABLOADER_DB_PATH", filepath.Join(dir, "test.db"))

	_, err := run(t, "--data-dir", dir, "head", filepath.Join(dir, "missing.csv"))
	require.Error(t, err)
	assert.Equal(t, 3, exitCode(err))

	_, err = run(t, "sql", "create", "people", "--dialect", "postgres", "--column", "id:complex128")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(" "))
	assert.Equal(t, []string{"a", "first name"}, splitList("a, first name"))
}
