package tabular

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	apperrors "github.com/tabloader/tabloader/internal/errors"
)

// DefaultHeadRows is the number of lines Head returns when rows is not positive.
const DefaultHeadRows = 20

// NoIndex disables the index column.
const NoIndex = -1

// ReadOptions controls how a delimited file is parsed.
type ReadOptions struct {
	// Delimiter separates fields; zero means ','
	Delimiter rune
	// SkipRows raw lines are discarded before parsing begins
	SkipRows int
	// Header takes column names from the first parsed row
	Header bool
	// IndexCol is the position of the index column, or NoIndex
	IndexCol int
}

// DefaultReadOptions returns comma-separated options with a header row and no index.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{Delimiter: ',', Header: true, IndexCol: NoIndex}
}

// Head returns the first rows lines of the file unaltered, line endings kept.
func Head(path string, rows int) ([]string, error) {
	if rows <= 0 {
		rows = DefaultHeadRows
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, openError(path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	lines := make([]string, 0, rows)
	for len(lines) < rows {
		line, err := r.ReadString('\n')
		if line != "" {
			lines = append(lines, line)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewFileError(apperrors.CodeReadFailed, fmt.Sprintf("failed to read %s", path), err)
		}
	}
	return lines, nil
}

// Read parses a delimited file into a frame, inferring each column's type.
func Read(path string, opts ReadOptions) (*Frame, error) {
	if opts.SkipRows < 0 {
		return nil, apperrors.Newf(apperrors.ErrCategoryValidation, apperrors.CodeInvalidArgument,
			"skip rows must not be negative, got %d", opts.SkipRows)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, openError(path, err)
	}
	defer f.Close()

	frame, err := parse(f, opts)
	if err != nil {
		return nil, apperrors.NewFileError(apperrors.CodeReadFailed, fmt.Sprintf("failed to read %s", path), err)
	}
	return frame, nil
}

func parse(src io.Reader, opts ReadOptions) (*Frame, error) {
	br := bufio.NewReader(src)
	for i := 0; i < opts.SkipRows; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("file has fewer than %d lines to skip", opts.SkipRows)
			}
			return nil, err
		}
	}

	r := csv.NewReader(br)
	if opts.Delimiter != 0 {
		r.Comma = opts.Delimiter
	}
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("no columns to parse")
	}

	var names []string
	if opts.Header {
		names = records[0]
		records = records[1:]
	} else {
		names = make([]string, len(records[0]))
		for i := range names {
			names[i] = strconv.Itoa(i)
		}
	}

	width := len(names)
	cells := make([][]string, width)
	for r, rec := range records {
		if len(rec) > width {
			return nil, fmt.Errorf("row %d has %d fields, expected %d", r+1, len(rec), width)
		}
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(rec) {
				cell = rec[i]
			}
			cells[i] = append(cells[i], cell)
		}
	}

	if opts.IndexCol != NoIndex && (opts.IndexCol < 0 || opts.IndexCol >= width) {
		return nil, fmt.Errorf("index column %d out of range for %d columns", opts.IndexCol, width)
	}

	frame := &Frame{}
	for i, name := range names {
		tag, values := inferColumn(cells[i])
		col := Column{Name: name, Type: tag, Values: values}
		if i == opts.IndexCol {
			frame.Index = &col
			continue
		}
		frame.Columns = append(frame.Columns, col)
	}
	return frame, nil
}

func openError(path string, err error) error {
	if os.IsNotExist(err) {
		return apperrors.NewFileError(apperrors.CodeFileNotFound, fmt.Sprintf("file not found: %s", path), err)
	}
	return apperrors.NewFileError(apperrors.CodeReadFailed, fmt.Sprintf("failed to open %s", path), err)
}
