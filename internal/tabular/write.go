package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	apperrors "github.com/tabloader/tabloader/internal/errors"
)

// Write saves the frame as a delimited file with a header row, the index
// column first when present. It returns a confirmation naming the path.
func Write(frame *Frame, path string, delimiter rune) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", saveError(path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", saveError(path, err)
	}

	w := csv.NewWriter(f)
	if delimiter != 0 {
		w.Comma = delimiter
	}

	cols := frame.Columns
	if frame.Index != nil {
		cols = append([]Column{*frame.Index}, cols...)
	}

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	if err := w.Write(header); err != nil {
		f.Close()
		return "", saveError(path, err)
	}

	row := make([]string, len(cols))
	for r := 0; r < frame.Len(); r++ {
		for i, c := range cols {
			row[i] = format(c.Values[r])
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return "", saveError(path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return "", saveError(path, err)
	}
	if err := f.Close(); err != nil {
		return "", saveError(path, err)
	}

	if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
		return "", saveError(path, fmt.Errorf("file missing after write"))
	}
	return fmt.Sprintf("Saved successfully to %s", path), nil
}

func format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case time.Duration:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func saveError(path string, cause error) error {
	return apperrors.NewFileError(apperrors.CodeSaveFailed, fmt.Sprintf("there was an issue saving %s", path), cause)
}
