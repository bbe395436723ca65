// Package database executes composed statements against PostgreSQL or SQLite.
package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tabloader/tabloader/internal/config"
	apperrors "github.com/tabloader/tabloader/internal/errors"
	"github.com/tabloader/tabloader/internal/query/compose"
	"github.com/tabloader/tabloader/pkg/types"
)

// ErrConnectionClosed is returned by every operation on a closed connection.
var ErrConnectionClosed = apperrors.NewDatabaseError(apperrors.CodeConnectionClosed, "connection is closed", nil)

// Result holds the rows returned by a query.
type Result struct {
	Columns []string
	Rows    [][]any
}

// DB is an open database connection that binds statement placeholders by name.
type DB interface {
	// Dialect returns the SQL dialect statements must be composed for.
	Dialect() compose.Dialect

	// Exec runs stmt with its placeholders bound from row and returns the
	// number of affected rows.
	Exec(ctx context.Context, stmt *compose.Statement, row map[string]any) (int64, error)

	// ExecBatch runs stmt once per row inside a single transaction.
	// Either every row is applied or none is.
	ExecBatch(ctx context.Context, stmt *compose.Statement, rows []map[string]any) (int64, error)

	// Query runs stmt and collects every returned row.
	Query(ctx context.Context, stmt *compose.Statement, row map[string]any) (*Result, error)

	// Close releases the connection. Later calls fail with ErrConnectionClosed.
	Close() error
}

// Connect opens a connection for the configured driver.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (DB, error) {
	driver, _ := types.CanonicalDriver(cfg.Driver)
	logger = logger.With().Str("driver", driver).Logger()

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	switch driver {
	case types.DriverPostgres:
		return connectPostgres(ctx, cfg, logger)
	case types.DriverSQLite:
		return openSQLite(ctx, cfg, logger)
	default:
		return nil, apperrors.NewDatabaseError(apperrors.CodeConnectFailed,
			fmt.Sprintf("unsupported driver: %s", cfg.Driver), nil)
	}
}

func connectError(cause error) error {
	return apperrors.NewDatabaseError(apperrors.CodeConnectFailed, "failed to connect", cause)
}

func execError(stmt *compose.Statement, cause error) error {
	return apperrors.NewDatabaseError(apperrors.CodeExecFailed, "failed to execute statement", cause).
		WithDetails(map[string]interface{}{"sql": stmt.SQL})
}

func queryError(stmt *compose.Statement, cause error) error {
	return apperrors.NewDatabaseError(apperrors.CodeQueryFailed, "failed to run query", cause).
		WithDetails(map[string]interface{}{"sql": stmt.SQL})
}

func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
