package database

import (
	"context"
	"database/sql"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/tabloader/tabloader/internal/config"
	"github.com/tabloader/tabloader/internal/query/compose"
)

// sqliteDB runs statements through database/sql with sql.Named arguments.
type sqliteDB struct {
	db     *sql.DB
	closed atomic.Bool
	logger zerolog.Logger
}

func openSQLite(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*sqliteDB, error) {
	dsn := cfg.DSN()
	if dsn == "" {
		dsn = ":memory:"
	}
	if dsn != ":memory:" {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, connectError(err)
	}
	// An in-memory database lives and dies with its connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, connectError(err)
	}

	logger.Info().Str("path", cfg.DSN()).Msg("connected")
	return &sqliteDB{db: db, logger: logger}, nil
}

func (s *sqliteDB) Dialect() compose.Dialect {
	return compose.SQLite
}

func (s *sqliteDB) Exec(ctx context.Context, stmt *compose.Statement, row map[string]any) (int64, error) {
	if s.closed.Load() {
		return 0, ErrConnectionClosed
	}

	res, err := s.db.ExecContext(ctx, stmt.SQL, stmt.SQLArgs(row)...)
	if err != nil {
		return 0, execError(stmt, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *sqliteDB) ExecBatch(ctx context.Context, stmt *compose.Statement, rows []map[string]any) (int64, error) {
	if s.closed.Load() {
		return 0, ErrConnectionClosed
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, execError(stmt, err)
	}
	defer tx.Rollback()

	prepared, err := tx.PrepareContext(ctx, stmt.SQL)
	if err != nil {
		return 0, execError(stmt, err)
	}
	defer prepared.Close()

	var affected int64
	for _, row := range rows {
		res, err := prepared.ExecContext(ctx, stmt.SQLArgs(row)...)
		if err != nil {
			return 0, execError(stmt, err)
		}
		n, _ := res.RowsAffected()
		affected += n
	}

	if err := tx.Commit(); err != nil {
		return 0, execError(stmt, err)
	}

	s.logger.Debug().Int("rows", len(rows)).Int64("affected", affected).Msg("batch applied")
	return affected, nil
}

func (s *sqliteDB) Query(ctx context.Context, stmt *compose.Statement, row map[string]any) (*Result, error) {
	if s.closed.Load() {
		return nil, ErrConnectionClosed
	}

	rows, err := s.db.QueryContext(ctx, stmt.SQL, stmt.SQLArgs(row)...)
	if err != nil {
		return nil, queryError(stmt, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, queryError(stmt, err)
	}
	result := &Result{Columns: columns}

	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, queryError(stmt, err)
		}
		for i := range values {
			values[i] = normalize(values[i])
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(stmt, err)
	}
	return result, nil
}

func (s *sqliteDB) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrConnectionClosed
	}
	return s.db.Close()
}
