// Package types provides the table descriptor types shared by tabloader components.
package types

import (
	"fmt"
	"strings"
)

// TypeTag is a semantic column type drawn from a fixed, closed vocabulary.
type TypeTag string

const (
	TypeText      TypeTag = "text"
	TypeInteger   TypeTag = "integer"
	TypeFloat     TypeTag = "float"
	TypeBoolean   TypeTag = "boolean"
	TypeTimestamp TypeTag = "timestamp"
	TypeInterval  TypeTag = "interval"
	TypeArray     TypeTag = "array"
)

// TypeTags lists the whole vocabulary in a stable order.
var TypeTags = []TypeTag{
	TypeText,
	TypeInteger,
	TypeFloat,
	TypeBoolean,
	TypeTimestamp,
	TypeInterval,
	TypeArray,
}

// typeAliases maps accepted spellings, including dataframe dtype names, to tags.
var typeAliases = map[string]TypeTag{
	"text":            TypeText,
	"string":          TypeText,
	"object":          TypeText,
	"integer":         TypeInteger,
	"int":             TypeInteger,
	"int32":           TypeInteger,
	"int64":           TypeInteger,
	"float":           TypeFloat,
	"floating-point":  TypeFloat,
	"float32":         TypeFloat,
	"float64":         TypeFloat,
	"boolean":         TypeBoolean,
	"bool":            TypeBoolean,
	"timestamp":       TypeTimestamp,
	"datetime64":      TypeTimestamp,
	"datetime64[ns]":  TypeTimestamp,
	"interval":        TypeInterval,
	"timedelta":       TypeInterval,
	"timedelta[ns]":   TypeInterval,
	"timedelta64[ns]": TypeInterval,
	"array":           TypeArray,
	"category":        TypeArray,
}

// Valid reports whether t belongs to the vocabulary.
func (t TypeTag) Valid() bool {
	switch t {
	case TypeText, TypeInteger, TypeFloat, TypeBoolean, TypeTimestamp, TypeInterval, TypeArray:
		return true
	}
	return false
}

// ParseTypeTag resolves a type name to a TypeTag. The lookup is case-insensitive.
// The second return value is false when the name is outside the vocabulary.
func ParseTypeTag(name string) (TypeTag, bool) {
	tag, ok := typeAliases[strings.ToLower(strings.TrimSpace(name))]
	return tag, ok
}

// ColumnDef defines a single column of a table descriptor.
type ColumnDef struct {
	// Name is the column name
	Name string `json:"name" yaml:"name"`

	// Type is the semantic type tag
	Type TypeTag `json:"type" yaml:"type"`
}

// Table describes a table by name and ordered columns.
type Table struct {
	// Name is the table name
	Name string `json:"name" yaml:"name"`

	// Columns defines the columns in order
	Columns []ColumnDef `json:"columns" yaml:"columns"`
}

// ColumnNames returns the column names in order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the column definition with the given name.
func (t Table) Column(name string) (ColumnDef, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// Validate checks that the table has a name and uniquely named columns.
func (t Table) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("table name is required")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %q has no columns", t.Name)
	}
	seen := make(map[string]struct{}, len(t.Columns))
	for i, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("column %d of table %q has no name", i, t.Name)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("duplicate column %q in table %q", c.Name, t.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}
