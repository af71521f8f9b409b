// Package dataset loads labelled tabular data and decides the role of every column.
//
// A Frame keeps the CSV cells as text together with a storage Kind per column,
// inferred the way a dataframe reader would: a column whose non-missing cells all
// parse as numbers is numeric, a column made only of True/False literals is
// boolean, anything else is a string column.
//
// On top of the Frame the package provides the pre-training policy:
//
//   - InferTarget picks the label column (explicit name or a fixed candidate list)
//   - NormalizeLabels maps a label column of any kind onto {0, 1}
//   - PartitionFeatures assigns a numeric or categorical role to every feature
//   - CleanNumeric prepares a frame for the regression variant
package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ezoic/churnpulse/pkg/errors"
)

// Kind is the storage type of a column.
type Kind int

const (
	KindString Kind = iota
	KindNumeric
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// missingTokens are the cell values read as missing.
var missingTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
	"None": {},
	"<NA>": {},
	"#N/A": {},
	"-NaN": {},
	"-nan": {},
}

// IsMissing reports whether a raw cell denotes a missing value.
func IsMissing(cell string) bool {
	_, ok := missingTokens[cell]
	return ok
}

// ParseNumber parses a numeric cell. Missing or unparseable cells yield ok=false.
func ParseNumber(cell string) (float64, bool) {
	if IsMissing(cell) {
		return math.NaN(), false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil || math.IsNaN(v) {
		return math.NaN(), false
	}
	return v, true
}

func parseBool(cell string) (bool, bool) {
	switch cell {
	case "True", "true", "TRUE":
		return true, true
	case "False", "false", "FALSE":
		return false, true
	}
	return false, false
}

// Column is one named column of a Frame.
type Column struct {
	Name  string
	Kind  Kind
	Cells []string
}

// NewNumericColumn builds a numeric column from values. NaN is stored as missing.
func NewNumericColumn(name string, values []float64) *Column {
	cells := make([]string, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			cells[i] = ""
			continue
		}
		cells[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return &Column{Name: name, Kind: KindNumeric, Cells: cells}
}

// NewBoolColumn builds a boolean column.
func NewBoolColumn(name string, values []bool) *Column {
	cells := make([]string, len(values))
	for i, v := range values {
		if v {
			cells[i] = "True"
		} else {
			cells[i] = "False"
		}
	}
	return &Column{Name: name, Kind: KindBool, Cells: cells}
}

// NewStringColumn builds a string column. Cells are kept verbatim.
func NewStringColumn(name string, values []string) *Column {
	return &Column{Name: name, Kind: KindString, Cells: append([]string(nil), values...)}
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.Cells) }

// Float returns cell i as a number; ok is false for missing or non-numeric cells.
func (c *Column) Float(i int) (float64, bool) {
	if c.Kind == KindBool {
		b, ok := parseBool(c.Cells[i])
		if !ok {
			return math.NaN(), false
		}
		if b {
			return 1, true
		}
		return 0, true
	}
	return ParseNumber(c.Cells[i])
}

// inferKind applies the reader's type rules to raw cells.
func inferKind(cells []string) Kind {
	numeric := true
	boolean := len(cells) > 0
	for _, cell := range cells {
		if boolean {
			if _, ok := parseBool(cell); !ok {
				boolean = false
			}
		}
		if numeric && !IsMissing(cell) {
			// padded numbers parse; an all-blank cell does not
			if _, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err != nil {
				numeric = false
			}
		}
		if !numeric && !boolean {
			return KindString
		}
	}
	if boolean {
		return KindBool
	}
	return KindNumeric
}

// Frame is an ordered set of equally long columns.
type Frame struct {
	columns []*Column
	index   map[string]int
	nRows   int
}

// NewFrame assembles columns into a frame. Columns must have equal length and
// unique names.
func NewFrame(columns ...*Column) (*Frame, error) {
	f := &Frame{index: make(map[string]int, len(columns))}
	for i, c := range columns {
		if _, dup := f.index[c.Name]; dup {
			return nil, errors.NewDataValidationError("NewFrame", "duplicate column name", c.Name)
		}
		if i == 0 {
			f.nRows = c.Len()
		} else if c.Len() != f.nRows {
			return nil, errors.NewDimensionError("NewFrame", f.nRows, c.Len(), 0)
		}
		f.index[c.Name] = i
		f.columns = append(f.columns, c)
	}
	return f, nil
}

// ReadCSV loads a CSV file with a header row. A missing file is reported as a
// MissingArtifactError, malformed content as a DataValidationError.
func ReadCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewMissingArtifactError("dataset", path, err)
		}
		return nil, errors.Wrapf(err, "failed to open dataset %s", path)
	}
	defer func() { _ = file.Close() }()

	return ReadCSVFrom(file)
}

const utf8BOM = "\ufeff"

// ReadCSVFrom loads CSV content with a header row from r.
func ReadCSVFrom(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 0

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewDataValidationError("ReadCSV", "dataset is empty")
	}
	if err != nil {
		return nil, errors.NewDataValidationError("ReadCSV", "malformed CSV header: "+err.Error())
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	cells := make([][]string, len(header))
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewDataValidationError("ReadCSV", "malformed CSV: "+err.Error())
		}
		for j, cell := range record {
			cells[j] = append(cells[j], cell)
		}
	}

	columns := make([]*Column, len(header))
	for j, name := range header {
		columns[j] = &Column{Name: name, Kind: inferKind(cells[j]), Cells: cells[j]}
	}
	return NewFrame(columns...)
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int { return f.nRows }

// NumColumns returns the number of columns.
func (f *Frame) NumColumns() int { return len(f.columns) }

// Names returns the column names in file order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the frame has a column called name.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the named column or nil.
func (f *Frame) Column(name string) *Column {
	i, ok := f.index[name]
	if !ok {
		return nil
	}
	return f.columns[i]
}

// Columns returns the columns in file order.
func (f *Frame) Columns() []*Column { return f.columns }

// Value returns the raw cell at row for the named column; ok is false when the
// frame has no such column.
func (f *Frame) Value(row int, column string) (string, bool) {
	i, ok := f.index[column]
	if !ok {
		return "", false
	}
	return f.columns[i].Cells[row], true
}

// Drop returns a frame without the named columns. Unknown names are ignored.
func (f *Frame) Drop(names ...string) *Frame {
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[n] = struct{}{}
	}
	kept := make([]*Column, 0, len(f.columns))
	for _, c := range f.columns {
		if _, ok := skip[c.Name]; !ok {
			kept = append(kept, c)
		}
	}
	out, _ := NewFrame(kept...)
	if len(kept) == 0 {
		out.nRows = f.nRows
	}
	return out
}

// Subset returns a frame holding the given rows, in the given order. Column kinds
// are carried over, not re-inferred.
func (f *Frame) Subset(rows []int) *Frame {
	columns := make([]*Column, len(f.columns))
	for j, c := range f.columns {
		cells := make([]string, len(rows))
		for i, r := range rows {
			cells[i] = c.Cells[r]
		}
		columns[j] = &Column{Name: c.Name, Kind: c.Kind, Cells: cells}
	}
	out, _ := NewFrame(columns...)
	if len(columns) == 0 {
		out.nRows = len(rows)
	}
	return out
}
