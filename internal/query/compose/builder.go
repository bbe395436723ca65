package compose

import (
	"fmt"
	"strings"
	"unicode/utf8"

	apperrors "github.com/tabloader/tabloader/internal/errors"
	"github.com/tabloader/tabloader/pkg/types"
)

var (
	// ErrInvalidArgument matches errors caused by a malformed table name, column list, or limit.
	ErrInvalidArgument = apperrors.NewValidationError(apperrors.CodeInvalidArgument, "invalid argument")
	// ErrUnsupportedType matches errors caused by a type tag outside the vocabulary.
	ErrUnsupportedType = apperrors.NewValidationError(apperrors.CodeUnsupportedType, "unsupported type")
)

// sqlTypes maps every type tag to its column type keyword.
var sqlTypes = map[types.TypeTag]string{
	types.TypeText:      "VARCHAR",
	types.TypeInteger:   "INT",
	types.TypeFloat:     "FLOAT",
	types.TypeBoolean:   "BOOL",
	types.TypeTimestamp: "TIMESTAMP",
	types.TypeInterval:  "INTERVAL",
	types.TypeArray:     "ARRAY",
}

// SQLType returns the column type keyword for tag.
func SQLType(tag types.TypeTag) (string, bool) {
	kw, ok := sqlTypes[tag]
	return kw, ok
}

// CreateTable composes CREATE TABLE IF NOT EXISTS for the given columns.
func CreateTable(d Dialect, table string, columns []types.ColumnDef) (*Statement, error) {
	if err := checkTarget(d, table); err != nil {
		return nil, err
	}
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	if err := checkColumns(names); err != nil {
		return nil, err
	}

	defs := make([]string, len(columns))
	for i, c := range columns {
		kw, ok := sqlTypes[c.Type]
		if !ok {
			return nil, unsupportedType(c.Name, string(c.Type))
		}
		defs[i] = d.QuoteIdentifier(c.Name) + " " + kw
	}

	return &Statement{
		SQL: fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
			d.QuoteIdentifier(table), strings.Join(defs, ", ")),
	}, nil
}

// CreateTableFor composes CREATE TABLE IF NOT EXISTS for a table descriptor.
func CreateTableFor(d Dialect, t types.Table) (*Statement, error) {
	if err := t.Validate(); err != nil {
		return nil, invalidArgument("%v", err)
	}
	return CreateTable(d, t.Name, t.Columns)
}

// CreateTableFromTypes composes CREATE TABLE IF NOT EXISTS from parallel name
// and type-name sequences. Type names are resolved with types.ParseTypeTag,
// so dataframe dtype names such as "int64" or "object" are accepted.
func CreateTableFromTypes(d Dialect, table string, names, typeNames []string) (*Statement, error) {
	if err := checkTarget(d, table); err != nil {
		return nil, err
	}
	if len(names) != len(typeNames) {
		return nil, invalidArgument("got %d columns but %d types", len(names), len(typeNames))
	}
	if err := checkColumns(names); err != nil {
		return nil, err
	}
	columns := make([]types.ColumnDef, len(names))
	for i, name := range names {
		tag, ok := types.ParseTypeTag(typeNames[i])
		if !ok {
			return nil, unsupportedType(name, typeNames[i])
		}
		columns[i] = types.ColumnDef{Name: name, Type: tag}
	}
	return CreateTable(d, table, columns)
}

// Insert composes INSERT INTO with one named placeholder per column, in column order.
// The same statement can be executed once per row, or with many rows by drivers
// that batch named parameters.
func Insert(d Dialect, table string, columns []string) (*Statement, error) {
	if err := checkTarget(d, table); err != nil {
		return nil, err
	}
	if err := checkColumns(columns); err != nil {
		return nil, err
	}

	placeholders := placeholdersFor(columns)
	cols := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = d.QuoteIdentifier(c)
		marks[i] = d.Placeholder(placeholders[i].Name)
	}

	return &Statement{
		SQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			d.QuoteIdentifier(table), strings.Join(cols, ", "), strings.Join(marks, ", ")),
		Placeholders: placeholders,
	}, nil
}

// Select composes SELECT of columns from table. The LIMIT clause is present
// only when limit is set; NoLimit returns every row.
func Select(d Dialect, table string, columns []string, limit Limit) (*Statement, error) {
	if err := checkTarget(d, table); err != nil {
		return nil, err
	}
	if err := checkColumns(columns); err != nil {
		return nil, err
	}
	n, hasLimit := limit.Value()
	if hasLimit && n < 0 {
		return nil, invalidArgument("limit must be a non-negative integer, got %d", n)
	}

	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = d.QuoteIdentifier(c)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(d.QuoteIdentifier(table))
	if hasLimit {
		fmt.Fprintf(&sb, " LIMIT %d", n)
	}

	return &Statement{SQL: sb.String()}, nil
}

func checkTarget(d Dialect, table string) error {
	if d == nil {
		return invalidArgument("dialect is required")
	}
	if strings.TrimSpace(table) == "" {
		return invalidArgument("table name is required")
	}
	if err := checkIdentifier(table); err != nil {
		return invalidArgument("table name %q: %v", table, err)
	}
	return nil
}

func checkColumns(columns []string) error {
	if len(columns) == 0 {
		return invalidArgument("at least one column is required")
	}
	seen := make(map[string]struct{}, len(columns))
	for i, c := range columns {
		if strings.TrimSpace(c) == "" {
			return invalidArgument("column %d has an empty name", i)
		}
		if err := checkIdentifier(c); err != nil {
			return invalidArgument("column %q: %v", c, err)
		}
		if _, dup := seen[c]; dup {
			return invalidArgument("duplicate column %q", c)
		}
		seen[c] = struct{}{}
	}
	return nil
}

// checkIdentifier rejects names that cannot be written as a quoted identifier.
func checkIdentifier(name string) error {
	if !utf8.ValidString(name) {
		return fmt.Errorf("not valid UTF-8")
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("contains a NUL character")
	}
	return nil
}

// placeholdersFor names each placeholder after its column. Other columns get a
// positional name p<N>, since database/sql only binds names starting with a letter.
func placeholdersFor(columns []string) []Placeholder {
	used := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if isPlainIdentifier(c) {
			used[c] = struct{}{}
		}
	}

	out := make([]Placeholder, len(columns))
	for i, c := range columns {
		name := c
		if !isPlainIdentifier(c) {
			name = fmt.Sprintf("p%d", i+1)
			for {
				if _, taken := used[name]; !taken {
					break
				}
				name += "_"
			}
			used[name] = struct{}{}
		}
		out[i] = Placeholder{Name: name, Column: c}
	}
	return out
}

func isPlainIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case (c == '_' || c >= '0' && c <= '9') && i > 0:
		default:
			return false
		}
	}
	return true
}

func invalidArgument(format string, args ...interface{}) error {
	return apperrors.Newf(apperrors.ErrCategoryValidation, apperrors.CodeInvalidArgument, format, args...)
}

func unsupportedType(column, tag string) error {
	return apperrors.Newf(apperrors.ErrCategoryValidation, apperrors.CodeUnsupportedType,
		"column %q: %q is not a supported type", column, tag).
		WithDetails(map[string]interface{}{"column": column, "type": tag})
}
