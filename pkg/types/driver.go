package types

import "strings"

// Canonical database driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var driverAliases = map[string]string{
	"postgres":   DriverPostgres,
	"postgresql": DriverPostgres,
	"pgx":        DriverPostgres,
	"sqlite":     DriverSQLite,
	"sqlite3":    DriverSQLite,
}

// CanonicalDriver resolves a driver name or alias, case-insensitively, to
// DriverPostgres or DriverSQLite.
func CanonicalDriver(name string) (string, bool) {
	d, ok := driverAliases[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}
