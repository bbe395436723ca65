package database

import (
	"context"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/tabloader/tabloader/internal/config"
	"github.com/tabloader/tabloader/internal/query/compose"
)

// postgresDB runs statements through pgx with named arguments.
type postgresDB struct {
	conn   *pgx.Conn
	closed atomic.Bool
	logger zerolog.Logger
}

func connectPostgres(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*postgresDB, error) {
	conn, err := pgx.Connect(ctx, cfg.DSN())
	if err != nil {
		return nil, connectError(err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close(context.Background())
		return nil, connectError(err)
	}

	logger.Info().Str("host", cfg.Host).Str("database", cfg.Name).Msg("connected")
	return &postgresDB{conn: conn, logger: logger}, nil
}

func (p *postgresDB) Dialect() compose.Dialect {
	return compose.Postgres
}

func (p *postgresDB) Exec(ctx context.Context, stmt *compose.Statement, row map[string]any) (int64, error) {
	if p.closed.Load() {
		return 0, ErrConnectionClosed
	}

	tag, err := p.conn.Exec(ctx, stmt.SQL, stmt.NamedArgs(row))
	if err != nil {
		return 0, execError(stmt, err)
	}
	return tag.RowsAffected(), nil
}

func (p *postgresDB) ExecBatch(ctx context.Context, stmt *compose.Statement, rows []map[string]any) (int64, error) {
	if p.closed.Load() {
		return 0, ErrConnectionClosed
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := p.conn.Begin(ctx)
	if err != nil {
		return 0, execError(stmt, err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(stmt.SQL, stmt.NamedArgs(row))
	}

	br := tx.SendBatch(ctx, batch)
	var affected int64
	for range rows {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return 0, execError(stmt, err)
		}
		affected += tag.RowsAffected()
	}
	if err := br.Close(); err != nil {
		return 0, execError(stmt, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, execError(stmt, err)
	}

	p.logger.Debug().Int("rows", len(rows)).Int64("affected", affected).Msg("batch applied")
	return affected, nil
}

func (p *postgresDB) Query(ctx context.Context, stmt *compose.Statement, row map[string]any) (*Result, error) {
	if p.closed.Load() {
		return nil, ErrConnectionClosed
	}

	rows, err := p.conn.Query(ctx, stmt.SQL, stmt.NamedArgs(row))
	if err != nil {
		return nil, queryError(stmt, err)
	}
	defer rows.Close()

	result := &Result{}
	for _, fd := range rows.FieldDescriptions() {
		result.Columns = append(result.Columns, fd.Name)
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
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

func (p *postgresDB) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return ErrConnectionClosed
	}
	return p.conn.Close(context.Background())
}
