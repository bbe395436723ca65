package tabular

import (
	"strconv"
	"strings"
	"time"

	"github.com/tabloader/tabloader/pkg/types"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parser converts a non-empty cell to a typed value.
type parser func(string) (any, bool)

var inference = []struct {
	tag   types.TypeTag
	parse parser
}{
	{types.TypeInteger, parseInt},
	{types.TypeFloat, parseFloat},
	{types.TypeBoolean, parseBool},
	{types.TypeTimestamp, parseTimestamp},
	{types.TypeInterval, parseInterval},
}

// inferColumn picks the narrowest type every non-empty cell parses as and
// returns the converted values. Empty cells become nil.
func inferColumn(cells []string) (types.TypeTag, []any) {
	values := make([]any, len(cells))

	for _, candidate := range inference {
		ok := true
		seen := false
		for i, cell := range cells {
			if cell == "" {
				values[i] = nil
				continue
			}
			v, parsed := candidate.parse(cell)
			if !parsed {
				ok = false
				break
			}
			values[i] = v
			seen = true
		}
		if ok && seen {
			return candidate.tag, values
		}
	}

	for i, cell := range cells {
		if cell == "" {
			values[i] = nil
		} else {
			values[i] = cell
		}
	}
	return types.TypeText, values
}

func parseInt(s string) (any, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return v, err == nil
}

func parseFloat(s string) (any, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v, err == nil
}

func parseBool(s string) (any, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return nil, false
}

func parseTimestamp(s string) (any, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return nil, false
}

func parseInterval(s string) (any, bool) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	return d, err == nil
}
