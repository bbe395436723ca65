package compose

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tabloader/tabloader/pkg/types"
)

// uniqueColumns derives distinct column names from arbitrary identifiers.
func uniqueColumns(raw []string) []string {
	cols := make([]string, 0, len(raw))
	for i, r := range raw {
		cols = append(cols, fmt.Sprintf("%s_%d", r, i))
	}
	return cols
}

func TestProperty_Composition(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	columnsGen := gen.SliceOfN(5, gen.Identifier()).SuchThat(func(v []string) bool { return len(v) > 0 })
	tagGen := gen.IntRange(0, len(types.TypeTags)-1)

	properties.Property("CreateTable is deterministic", prop.ForAll(
		func(table string, raw []string, tagIdx int) bool {
			cols := uniqueColumns(raw)
			defs := make([]types.ColumnDef, len(cols))
			for i, c := range cols {
				defs[i] = types.ColumnDef{Name: c, Type: types.TypeTags[(tagIdx+i)%len(types.TypeTags)]}
			}
			a, errA := CreateTable(Postgres, table, defs)
			b, errB := CreateTable(Postgres, table, defs)
			return errA == nil && errB == nil && a.SQL == b.SQL
		},
		gen.Identifier(), columnsGen, tagGen,
	))

	properties.Property("Insert has one placeholder per column in column order", prop.ForAll(
		func(table string, raw []string) bool {
			cols := uniqueColumns(raw)
			stmt, err := Insert(Postgres, table, cols)
			if err != nil || len(stmt.Placeholders) != len(cols) {
				return false
			}
			values := stmt.SQL[strings.Index(stmt.SQL, "VALUES"):]
			if strings.Count(values, "@") != len(cols) {
				return false
			}
			pos := 0
			for i, p := range stmt.Placeholders {
				if p.Column != cols[i] || p.Name != cols[i] {
					return false
				}
				next := strings.Index(values[pos:], "@"+p.Name)
				if next < 0 {
					return false
				}
				pos += next + 1
			}
			return true
		},
		gen.Identifier(), columnsGen,
	))

	properties.Property("Select emits LIMIT exactly when a limit is set", prop.ForAll(
		func(raw []string, n int, withLimit bool) bool {
			limit := NoLimit
			if withLimit {
				limit = LimitOf(n)
			}
			stmt, err := Select(SQLite, "t", uniqueColumns(raw), limit)
			if err != nil {
				return false
			}
			if withLimit {
				return strings.HasSuffix(stmt.SQL, fmt.Sprintf(" LIMIT %d", n)) && strings.Count(stmt.SQL, "LIMIT") == 1
			}
			return !strings.Contains(stmt.SQL, "LIMIT")
		},
		columnsGen, gen.IntRange(0, 1000000), gen.Bool(),
	))

	properties.Property("unknown type tags are rejected", prop.ForAll(
		func(tag string) bool {
			if types.TypeTag(tag).Valid() {
				return true
			}
			_, err := CreateTable(Postgres, "t", []types.ColumnDef{{Name: "c", Type: types.TypeTag(tag)}})
			return err != nil && strings.Contains(err.Error(), fmt.Sprintf("%q", tag))
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
