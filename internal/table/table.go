// Rentrank - Rental Marketplace Recommendation Service
// Copyright 2026 Rentrank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentrank/rentrank

// Package table implements the in-memory columnar table that flows through
// the feature-engineering pipeline and backs the similarity engine.
//
// Missing values are tracked with an explicit per-cell validity mask rather
// than NaN sentinels. Cell accessors return (value, ok) pairs; a false ok
// means the cell is null. Columns keep their insertion order so encodings
// and feature selection are reproducible across runs.
package table

import (
	"fmt"
	"sort"
)

// Kind identifies the storage type of a column.
type Kind int

const (
	// KindString holds categorical or free-text values.
	KindString Kind = iota
	// KindFloat holds numeric values.
	KindFloat
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Column is a single named column with a validity mask.
type Column struct {
	name   string
	kind   Kind
	strs   []string
	floats []float64
	valid  []bool
}

// NewStringColumn creates a string column. A nil valid mask marks every
// cell valid.
func NewStringColumn(name string, values []string, valid []bool) *Column {
	return &Column{
		name:  name,
		kind:  KindString,
		strs:  values,
		valid: normalizeMask(valid, len(values)),
	}
}

// NewFloatColumn creates a float column. A nil valid mask marks every
// cell valid.
func NewFloatColumn(name string, values []float64, valid []bool) *Column {
	return &Column{
		name:   name,
		kind:   KindFloat,
		floats: values,
		valid:  normalizeMask(valid, len(values)),
	}
}

func normalizeMask(valid []bool, n int) []bool {
	if valid != nil {
		return valid
	}
	mask := make([]bool, n)
	for i := range mask {
		mask[i] = true
	}
	return mask
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Kind returns the column storage type.
func (c *Column) Kind() Kind { return c.kind }

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.valid) }

// IsValid reports whether the cell at i holds a value.
func (c *Column) IsValid(i int) bool { return c.valid[i] }

// String returns the string value at i. ok is false for null cells or
// non-string columns.
func (c *Column) String(i int) (string, bool) {
	if c.kind != KindString || !c.valid[i] {
		return "", false
	}
	return c.strs[i], true
}

// Float returns the float value at i. ok is false for null cells or
// non-float columns.
func (c *Column) Float(i int) (float64, bool) {
	if c.kind != KindFloat || !c.valid[i] {
		return 0, false
	}
	return c.floats[i], true
}

// SetString stores a string value at i and marks the cell valid.
func (c *Column) SetString(i int, v string) {
	c.strs[i] = v
	c.valid[i] = true
}

// SetFloat stores a float value at i and marks the cell valid.
func (c *Column) SetFloat(i int, v float64) {
	c.floats[i] = v
	c.valid[i] = true
}

// SetNull marks the cell at i missing.
func (c *Column) SetNull(i int) {
	c.valid[i] = false
}

// PresentFraction returns the fraction of non-null cells, 0 for an empty
// column.
func (c *Column) PresentFraction() float64 {
	if len(c.valid) == 0 {
		return 0
	}
	present := 0
	for _, v := range c.valid {
		if v {
			present++
		}
	}
	return float64(present) / float64(len(c.valid))
}

// Mode returns the most frequent valid string value. Ties are broken by the
// value whose first occurrence comes earliest in the column. ok is false when
// every cell is null or the column is not a string column.
func (c *Column) Mode() (string, bool) {
	if c.kind != KindString {
		return "", false
	}
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for i, ok := range c.valid {
		if !ok {
			continue
		}
		v := c.strs[i]
		if _, seen := firstSeen[v]; !seen {
			firstSeen[v] = i
		}
		counts[v]++
	}
	if len(counts) == 0 {
		return "", false
	}

	best := ""
	bestCount := -1
	for v, n := range counts {
		switch {
		case n > bestCount:
			best, bestCount = v, n
		case n == bestCount && firstSeen[v] < firstSeen[best]:
			best = v
		}
	}
	return best, true
}

// Median returns the median of the valid float values, averaging the two
// middle values for even counts. ok is false when every cell is null or the
// column is not a float column.
func (c *Column) Median() (float64, bool) {
	if c.kind != KindFloat {
		return 0, false
	}
	vals := make([]float64, 0, len(c.floats))
	for i, ok := range c.valid {
		if ok {
			vals = append(vals, c.floats[i])
		}
	}
	if len(vals) == 0 {
		return 0, false
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid], true
	}
	return (vals[mid-1] + vals[mid]) / 2, true
}

// DistinctSorted returns the lexicographically sorted set of distinct valid
// string values. Used for deterministic label encoding.
func (c *Column) DistinctSorted() []string {
	if c.kind != KindString {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for i, ok := range c.valid {
		if !ok {
			continue
		}
		if _, dup := seen[c.strs[i]]; dup {
			continue
		}
		seen[c.strs[i]] = struct{}{}
		out = append(out, c.strs[i])
	}
	sort.Strings(out)
	return out
}

// Table is an ordered collection of equal-length columns.
type Table struct {
	numRows int
	cols    []*Column
	index   map[string]int
}

// New creates an empty table with the given row count.
func New(numRows int) *Table {
	return &Table{
		numRows: numRows,
		index:   make(map[string]int),
	}
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return t.numRows }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.cols) }

// AddColumn appends a column. It fails on duplicate names or row-count
// mismatches.
func (t *Table) AddColumn(c *Column) error {
	if c.Len() != t.numRows {
		return fmt.Errorf("column %q has %d rows, table has %d", c.name, c.Len(), t.numRows)
	}
	if _, ok := t.index[c.name]; ok {
		return fmt.Errorf("column %q already exists", c.name)
	}
	t.index[c.name] = len(t.cols)
	t.cols = append(t.cols, c)
	return nil
}

// Column returns the named column, or ok=false when absent.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Drop removes the named column, preserving the order of the rest.
// Dropping an absent column is a no-op.
func (t *Table) Drop(name string) {
	i, ok := t.index[name]
	if !ok {
		return
	}
	t.cols = append(t.cols[:i], t.cols[i+1:]...)
	delete(t.index, name)
	for j := i; j < len(t.cols); j++ {
		t.index[t.cols[j].name] = j
	}
}

// Columns returns the columns in insertion order. The slice must not be
// mutated by the caller.
func (t *Table) Columns() []*Column { return t.cols }

// Names returns the column names in insertion order.
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.name
	}
	return names
}
