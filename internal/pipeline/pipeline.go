// Package pipeline ties the hub, delimited files and the database together:
// loading files into tables, extracting tables into files and fetching
// dataset files from the hub.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tabloader/tabloader/internal/config"
	"github.com/tabloader/tabloader/internal/database"
	"github.com/tabloader/tabloader/internal/dataset"
	apperrors "github.com/tabloader/tabloader/internal/errors"
	"github.com/tabloader/tabloader/internal/query/compose"
	"github.com/tabloader/tabloader/internal/tabular"
)

var (
	errNoDatabase = apperrors.NewInternalError("pipeline has no database connection", nil)
	errNoHub      = apperrors.NewInternalError("pipeline has no dataset hub client", nil)
)

// Pipeline runs load, extract and fetch operations. Either collaborator may
// be nil when the operations that need it are not used.
type Pipeline struct {
	db          database.DB
	hub         *dataset.Client
	downloadDir string
	delimiter   rune
	logger      zerolog.Logger
}

// New creates a pipeline.
func New(db database.DB, hub *dataset.Client, cfg *config.Config, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		db:          db,
		hub:         hub,
		downloadDir: cfg.Hub.DownloadDir,
		delimiter:   cfg.Files.DelimiterRune(),
		logger:      logger,
	}
}

// LoadRequest describes a file to load into a table.
type LoadRequest struct {
	Path    string
	Table   string
	Options tabular.ReadOptions
}

// LoadResult summarizes a completed load.
type LoadResult struct {
	RunID   string
	Table   string
	Rows    int64
	Columns []string
}

// Load reads a delimited file, creates the target table when missing and
// inserts every row in one transaction.
func (p *Pipeline) Load(ctx context.Context, req LoadRequest) (*LoadResult, error) {
	if p.db == nil {
		return nil, errNoDatabase
	}

	runID := uuid.New().String()
	logger := p.logger.With().Str("run_id", runID).Str("table", req.Table).Logger()
	start := time.Now()

	opts := req.Options
	if opts.Delimiter == 0 {
		opts.Delimiter = p.delimiter
	}

	frame, err := tabular.Read(req.Path, opts)
	if err != nil {
		return nil, err
	}

	table := frame.Table(req.Table)
	create, err := compose.CreateTableFor(p.db.Dialect(), table)
	if err != nil {
		return nil, err
	}
	insert, err := compose.Insert(p.db.Dialect(), table.Name, table.ColumnNames())
	if err != nil {
		return nil, err
	}

	if _, err := p.db.Exec(ctx, create, nil); err != nil {
		return nil, failed(logger, "create table", err)
	}
	rows, err := p.db.ExecBatch(ctx, insert, frame.Records())
	if err != nil {
		return nil, failed(logger, "insert rows", err)
	}

	logger.Info().
		Str("path", req.Path).
		Int64("rows", rows).
		Int("columns", len(table.Columns)).
		Dur("duration", time.Since(start)).
		Msg("load complete")

	return &LoadResult{
		RunID:   runID,
		Table:   table.Name,
		Rows:    rows,
		Columns: table.ColumnNames(),
	}, nil
}

// ExtractRequest describes a table read to save into a file.
type ExtractRequest struct {
	Table   string
	Columns []string
	Limit   compose.Limit
	Path    string
}

// ExtractResult summarizes a completed extract.
type ExtractResult struct {
	RunID   string
	Rows    int
	Message string
}

// Extract selects rows from a table and writes them to a delimited file.
func (p *Pipeline) Extract(ctx context.Context, req ExtractRequest) (*ExtractResult, error) {
	if p.db == nil {
		return nil, errNoDatabase
	}

	runID := uuid.New().String()
	logger := p.logger.With().Str("run_id", runID).Str("table", req.Table).Logger()

	stmt, err := compose.Select(p.db.Dialect(), req.Table, req.Columns, req.Limit)
	if err != nil {
		return nil, err
	}

	result, err := p.db.Query(ctx, stmt, nil)
	if err != nil {
		return nil, failed(logger, "select rows", err)
	}

	frame, err := tabular.NewFrame(result.Columns, result.Rows)
	if err != nil {
		return nil, apperrors.NewInternalError("query returned malformed rows", err)
	}

	msg, err := tabular.Write(frame, req.Path, p.delimiter)
	if err != nil {
		return nil, failed(logger, "write file", err)
	}

	logger.Info().
		Str("path", req.Path).
		Int("rows", frame.Len()).
		Str("limit", req.Limit.String()).
		Msg("extract complete")

	return &ExtractResult{RunID: runID, Rows: frame.Len(), Message: msg}, nil
}

// FetchRequest names dataset files to download from the hub. An empty File
// downloads every file of the dataset.
type FetchRequest struct {
	Owner   string
	Dataset string
	File    string
	Unpack  bool
}

// Fetch downloads dataset files into the configured download directory and
// returns their local paths.
func (p *Pipeline) Fetch(ctx context.Context, req FetchRequest) ([]string, error) {
	if p.hub == nil {
		return nil, errNoHub
	}
	if !p.hub.Authenticated() {
		if err := p.hub.Authenticate(ctx); err != nil {
			return nil, err
		}
	}

	var (
		paths []string
		err   error
	)
	if req.File == "" {
		paths, err = p.hub.DownloadAll(ctx, req.Owner, req.Dataset, p.downloadDir, req.Unpack)
	} else {
		paths, err = p.hub.DownloadFile(ctx, req.Owner, req.Dataset, req.File, p.downloadDir, req.Unpack)
	}
	if err != nil {
		if errors.Is(err, dataset.ErrFileNotFound) {
			p.logger.Warn().Str("dataset", req.Owner+"/"+req.Dataset).Str("file", req.File).Msg("nothing to fetch")
			return nil, err
		}
		return nil, failed(p.logger, "download", err)
	}
	return paths, nil
}

// failed logs err with its classification and returns it unchanged.
func failed(logger zerolog.Logger, stage string, err error) error {
	logger.Error().
		Err(err).
		Str("stage", stage).
		Str("category", string(apperrors.GetCategory(err))).
		Str("code", apperrors.GetCode(err)).
		Bool("retryable", apperrors.IsRetryable(err)).
		Msg("pipeline step failed")
	return err
}
