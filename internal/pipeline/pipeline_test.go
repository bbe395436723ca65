package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabloader/tabloader/internal/config"
	"github.com/tabloader/tabloader/internal/database"
	"github.com/tabloader/tabloader/internal/dataset"
	apperrors "github.com/tabloader/tabloader/internal/errors"
	"github.com/tabloader/tabloader/internal/query/compose"
	"github.com/tabloader/tabloader/internal/storage"
	"github.com/tabloader/tabloader/internal/tabular"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Database.Driver = "sqlite3"
	cfg.Database.Path = ":memory:"
	cfg.Resolve()
	return cfg
}

func newPipeline(t *testing.T) (*Pipeline, *config.Config) {
	t.Helper()
	cfg := testConfig(t)

	db, err := database.Connect(context.Background(), cfg.Database, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := dataset.OpenHub(context.Background(), cfg.Hub)
	require.NoError(t, err)
	hub := dataset.NewClient(store, cfg.Hub, zerolog.Nop())

	return New(db, hub, cfg, zerolog.Nop()), cfg
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAndExtract(t *testing.T) {
	p, cfg := newPipeline(t)
	ctx := context.Background()

	src := writeCSV(t, "id,name,score\n1,ada,9.5\n2,bob,\n3,cy,7.25\n")

	loaded, err := p.Load(ctx, LoadRequest{Path: src, Table: "people", Options: tabular.DefaultReadOptions()})
	require.NoError(t, err)

	_, err = uuid.Parse(loaded.RunID)
	assert.NoError(t, err)
	assert.Equal(t, "people", loaded.Table)
	assert.Equal(t, int64(3), loaded.Rows)
	assert.Equal(t, []string{"id", "name", "score"}, loaded.Columns)

	out := filepath.Join(cfg.DataDir, "out", "people.csv")
	extracted, err := p.Extract(ctx, ExtractRequest{
		Table:   "people",
		Columns: []string{"id", "name", "score"},
		Limit:   compose.LimitOf(2),
		Path:    out,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, extracted.Rows)
	assert.Equal(t, "Saved successfully to "+out, extracted.Message)
	assert.NotEqual(t, loaded.RunID, extracted.RunID)

	lines, err := tabular.Head(out, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"id,name,score\n", "1,ada,9.5\n", "2,bob,\n"}, lines)
}

func TestLoad_AppendsToExistingTable(t *testing.T) {
	p, _ := newPipeline(t)
	ctx := context.Background()
	src := writeCSV(t, "id\n1\n2\n")

	_, err := p.Load(ctx, LoadRequest{Path: src, Table: "ids", Options: tabular.DefaultReadOptions()})
	require.NoError(t, err)
	_, err = p.Load(ctx, LoadRequest{Path: src, Table: "ids", Options: tabular.DefaultReadOptions()})
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "ids.csv")
	res, err := p.Extract(ctx, ExtractRequest{Table: "ids", Columns: []string{"id"}, Path: out})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Rows)
}

func TestLoad_Errors(t *testing.T) {
	p, _ := newPipeline(t)
	ctx := context.Background()

	_, err := p.Load(ctx, LoadRequest{Path: filepath.Join(t.TempDir(), "missing.csv"), Table: "t"})
	assert.Equal(t, apperrors.ErrCategoryFile, apperrors.GetCategory(err))

	_, err = p.Load(ctx, LoadRequest{Path: writeCSV(t, "a\n1\n"), Table: " ", Options: tabular.DefaultReadOptions()})
	assert.ErrorIs(t, err, compose.ErrInvalidArgument)

	_, err = p.Extract(ctx, ExtractRequest{Table: "t", Path: filepath.Join(t.TempDir(), "x.csv")})
	assert.ErrorIs(t, err, compose.ErrInvalidArgument)

	noDB := New(nil, nil, testConfig(t), zerolog.Nop())
	_, err = noDB.Load(ctx, LoadRequest{})
	assert.Error(t, err)
	_, err = noDB.Fetch(ctx, FetchRequest{Owner: "o", Dataset: "d"})
	assert.Error(t, err)
}

func TestExtract_LogsFailureClassification(t *testing.T) {
	cfg := testConfig(t)
	db, err := database.Connect(context.Background(), cfg.Database, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var buf bytes.Buffer
	p := New(db, nil, cfg, zerolog.New(&buf))

	_, err = p.Extract(context.Background(), ExtractRequest{
		Table:   "missing",
		Columns: []string{"a"},
		Path:    filepath.Join(t.TempDir(), "out.csv"),
	})
	require.Error(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "select rows", entry["stage"])
	assert.Equal(t, string(apperrors.ErrCategoryDatabase), entry["category"])
	assert.Equal(t, apperrors.CodeQueryFailed, entry["code"])
	assert.Equal(t, false, entry["retryable"])
}

func TestFetch(t *testing.T) {
	p, cfg := newPipeline(t)
	ctx := context.Background()

	store, err := storage.NewLocalStorage(cfg.Hub.Path)
	require.NoError(t, err)
	seed := writeCSV(t, "a\n1\n")
	require.NoError(t, store.Upload(ctx, seed, "owner/ds/data.csv"))

	paths, err := p.Fetch(ctx, FetchRequest{Owner: "owner", Dataset: "ds"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(cfg.Hub.DownloadDir, "data.csv")}, paths)

	paths, err = p.Fetch(ctx, FetchRequest{Owner: "owner", Dataset: "ds", File: "data.csv"})
	require.NoError(t, err)
	assert.Len(t, paths, 1)

	_, err = p.Fetch(ctx, FetchRequest{Owner: "owner", Dataset: "ds", File: "nope.csv"})
	assert.ErrorIs(t, err, dataset.ErrFileNotFound)
}
