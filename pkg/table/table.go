// Package table provides the in-memory columnar table that conversion jobs
// operate on. A Table is built once per invocation from a delimited source,
// mutated in place by name normalization and type coercion, and discarded
// after serialization.
package table

import (
	"encoding/csv"
	"io"
	"regexp"
	"strings"

	"github.com/quarry-data/quarry/pkg/errors"
)

// Kind identifies the semantic type of a column
type Kind string

const (
	// KindText holds free-form string values
	KindText Kind = "text"
	// KindInt64 holds nullable 64-bit integers
	KindInt64 Kind = "int64"
	// KindFloat64 holds nullable 64-bit floats
	KindFloat64 Kind = "float64"
	// KindCategorical holds strings drawn from a finite value set
	KindCategorical Kind = "categorical"
)

var (
	nonWordOrSpace = regexp.MustCompile(`[^\w\s]`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// CleanColumnName converts a raw header string to its canonical form:
// lowercase, underscore-separated, alphanumeric only. The function is
// idempotent; inputs with no word characters reduce to the empty string.
func CleanColumnName(name string) string {
	cleaned := nonWordOrSpace.ReplaceAllString(name, "")
	cleaned = whitespaceRun.ReplaceAllString(strings.TrimSpace(cleaned), "_")
	return strings.ToLower(cleaned)
}

// Column is a single named column. Exactly one of the value slices is
// populated, selected by Kind. Valid tracks per-row nullness; a nil Valid
// means every row holds a value.
type Column struct {
	Name   string
	Kind   Kind
	Text   []string
	Ints   []int64
	Floats []float64
	Valid  []bool
}

// Len returns the number of rows in the column
func (c *Column) Len() int {
	switch c.Kind {
	case KindInt64:
		return len(c.Ints)
	case KindFloat64:
		return len(c.Floats)
	default:
		return len(c.Text)
	}
}

// IsNull reports whether row i holds no value
func (c *Column) IsNull(i int) bool {
	return c.Valid != nil && !c.Valid[i]
}

// Categories returns the distinct non-null values of a categorical column
// in first-seen order.
func (c *Column) Categories() []string {
	seen := make(map[string]struct{}, 16)
	cats := make([]string, 0, 16)
	for i, v := range c.Text {
		if c.IsNull(i) {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		cats = append(cats, v)
	}
	return cats
}

// Table is an ordered collection of named columns. Column order follows the
// source header; row order is preserved from input to output.
type Table struct {
	cols []*Column
}

// FromCSV reads an entire delimited file with a header row into a Table.
// The whole input is materialized; there is no streaming variant.
func FromCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrorTypeRead, "source has no header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeRead, "failed to read header row")
	}

	cols := make([]*Column, len(header))
	for i, name := range header {
		cols[i] = &Column{Name: name, Kind: KindText}
	}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeRead, "failed to parse delimited row")
		}
		for i, cell := range row {
			cols[i].Text = append(cols[i].Text, cell)
		}
	}

	return &Table{cols: cols}, nil
}

// NumRows returns the row count
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// NumCols returns the column count
func (t *Table) NumCols() int {
	return len(t.cols)
}

// Columns returns the columns in order
func (t *Table) Columns() []*Column {
	return t.cols
}

// Column returns the column with the given name, or nil
func (t *Table) Column(name string) *Column {
	for _, c := range t.cols {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// NormalizeNames renames every column to its canonical form. Two raw
// headers that collapse to the same canonical name fail the whole
// operation; silently overwriting a column would lose data.
func (t *Table) NormalizeNames() error {
	seen := make(map[string]string, len(t.cols))
	for _, c := range t.cols {
		canonical := CleanColumnName(c.Name)
		if prior, ok := seen[canonical]; ok {
			return errors.New(errors.ErrorTypeValidation, "column names collide after normalization").
				WithDetail("canonical", canonical).
				WithDetail("first", prior).
				WithDetail("second", c.Name)
		}
		seen[canonical] = c.Name
		c.Name = canonical
	}
	return nil
}
