package compose

import (
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Placeholder binds one named parameter of a statement to a column.
type Placeholder struct {
	Name   string
	Column string
}

// Statement is composed SQL text plus its named parameters in statement order.
type Statement struct {
	SQL          string
	Placeholders []Placeholder
}

// String returns the SQL text.
func (s *Statement) String() string {
	return s.SQL
}

// Params returns the placeholder name to column name mapping.
func (s *Statement) Params() map[string]string {
	params := make(map[string]string, len(s.Placeholders))
	for _, p := range s.Placeholders {
		params[p.Name] = p.Column
	}
	return params
}

// NamedArgs binds row values by column for pgx. Columns missing from row bind NULL.
func (s *Statement) NamedArgs(row map[string]any) pgx.NamedArgs {
	args := make(pgx.NamedArgs, len(s.Placeholders))
	for _, p := range s.Placeholders {
		args[p.Name] = row[p.Column]
	}
	return args
}

// SQLArgs binds row values by column as sql.Named arguments for database/sql drivers.
// Columns missing from row bind NULL.
func (s *Statement) SQLArgs(row map[string]any) []any {
	args := make([]any, len(s.Placeholders))
	for i, p := range s.Placeholders {
		args[i] = sql.Named(p.Name, row[p.Column])
	}
	return args
}

// Limit is an optional row limit for Select. The zero value is NoLimit.
type Limit struct {
	n   int
	set bool
}

// NoLimit selects every row.
var NoLimit = Limit{}

// LimitOf returns a limit of n rows. A negative n is rejected by Select.
func LimitOf(n int) Limit {
	return Limit{n: n, set: true}
}

// Value returns the row count and whether a limit is set.
func (l Limit) Value() (int, bool) {
	return l.n, l.set
}

// String returns the limit as text, or "none".
func (l Limit) String() string {
	if !l.set {
		return "none"
	}
	return fmt.Sprintf("%d", l.n)
}
