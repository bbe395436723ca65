// Package compose builds SQL statements from table descriptors.
//
// Three statements are supported:
//
//   - CreateTable: CREATE TABLE IF NOT EXISTS with one SQL type per column,
//     taken from a fixed mapping of type tags.
//   - Insert: INSERT INTO with one named placeholder per column.
//   - Select: SELECT of a column list with an optional LIMIT.
//
// Identifiers are always quoted by the Dialect, and values are never written
// into statement text. A Statement carries the ordered placeholder names so
// callers can bind a row by column name:
//
//	stmt, err := compose.Insert(compose.Postgres, "users", []string{"id", "name"})
//	if err != nil {
//		return err
//	}
//	_, err = conn.Exec(ctx, stmt.SQL, stmt.NamedArgs(row))
//
// Composition is pure. Invalid input is reported with errors matching
// ErrInvalidArgument or ErrUnsupportedType and no statement is returned.
package compose
