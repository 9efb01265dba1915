// Package coerce applies semantic types to table columns. Declared columns
// are coerced to their target kind with unparseable cells becoming nulls;
// undeclared columns get a light inferred type over the full column.
package coerce

import (
	"math"
	"strconv"
	"strings"

	"github.com/quarry-data/quarry/pkg/table"
)

// Declaration maps canonical column names to target kinds. It is applied
// only to columns present in the table; absent entries are skipped.
type Declaration map[string]table.Kind

// ImagingMetadata is the fixed declaration for the medical-imaging
// metadata schema handled by the landing-zone conversion job.
func ImagingMetadata() Declaration {
	return Declaration{
		"image_index":                table.KindText,
		"finding_labels":             table.KindText,
		"follow_up":                  table.KindInt64,
		"patient_id":                 table.KindInt64,
		"patient_age":                table.KindInt64,
		"patient_gender":             table.KindCategorical,
		"view_position":              table.KindCategorical,
		"originalimagewidth":         table.KindInt64,
		"originalimageheight":        table.KindInt64,
		"originalimagepixelspacingx": table.KindFloat64,
		"originalimagepixelspacingy": table.KindFloat64,
	}
}

// Apply coerces every declared column present in t to its target kind and
// infers a kind for the rest. It mutates t in place and returns the number
// of cells that became null because their value could not be parsed.
// Coercion never fails: bad cells turn into missing values.
func Apply(t *table.Table, decl Declaration) int {
	nulled := 0
	for _, c := range t.Columns() {
		kind, declared := decl[c.Name]
		if !declared {
			kind = inferKind(c)
		}
		nulled += coerceColumn(c, kind)
	}
	return nulled
}

// inferKind scans a raw text column and picks the narrowest kind that fits
// every non-empty cell: int64, then float64, then text.
func inferKind(c *table.Column) table.Kind {
	if c.Kind != table.KindText {
		return c.Kind
	}

	hasValue := false
	isInt := true
	isFloat := true
	for _, raw := range c.Text {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		hasValue = true
		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
		}
		if !isInt && isFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isFloat = false
			}
		}
		if !isInt && !isFloat {
			return table.KindText
		}
	}

	if !hasValue {
		return table.KindText
	}
	if isInt {
		return table.KindInt64
	}
	if isFloat {
		return table.KindFloat64
	}
	return table.KindText
}

func coerceColumn(c *table.Column, kind table.Kind) int {
	switch kind {
	case table.KindInt64:
		return coerceInt64(c)
	case table.KindFloat64:
		return coerceFloat64(c)
	case table.KindCategorical:
		return coerceStrings(c, table.KindCategorical)
	default:
		return coerceStrings(c, table.KindText)
	}
}

func coerceInt64(c *table.Column) int {
	n := len(c.Text)
	ints := make([]int64, n)
	valid := make([]bool, n)
	nulled := 0

	for i, raw := range c.Text {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			ints[i] = parsed
			valid[i] = true
			continue
		}
		// Accept integral floats like "50.0". The upper bound is 2^63
		// exclusive: float64 cannot represent 2^63-1, and int64(f) on an
		// out-of-range float is undefined.
		if f, err := strconv.ParseFloat(v, 64); err == nil && f == math.Trunc(f) &&
			f >= math.MinInt64 && f < math.MaxInt64 {
			ints[i] = int64(f)
			valid[i] = true
			continue
		}
		nulled++
	}

	c.Kind = table.KindInt64
	c.Ints = ints
	c.Valid = valid
	c.Text = nil
	return nulled
}

func coerceFloat64(c *table.Column) int {
	n := len(c.Text)
	floats := make([]float64, n)
	valid := make([]bool, n)
	nulled := 0

	for i, raw := range c.Text {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			nulled++
			continue
		}
		floats[i] = parsed
		valid[i] = true
	}

	c.Kind = table.KindFloat64
	c.Floats = floats
	c.Valid = valid
	c.Text = nil
	return nulled
}

// coerceStrings marks empty cells as missing so that a null is distinct
// from an empty string downstream.
func coerceStrings(c *table.Column, kind table.Kind) int {
	valid := make([]bool, len(c.Text))
	for i, raw := range c.Text {
		valid[i] = raw != ""
	}
	c.Kind = kind
	c.Valid = valid
	return 0
}
