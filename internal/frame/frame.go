// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package frame adds column semantics to go-gg tables.
//
// The table that flows through a pipeline is a *table.Table. Its
// columns are Go slices; frame classifies them into semantic kinds,
// defines how missing values are represented in each kind, and
// provides the column validation every command performs before it
// touches the data.
//
// go-gg tables are immutable: every function here that "changes" a
// table returns a new one and leaves its argument intact.
package frame

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/aclements/go-gg/generic/slice"
	"github.com/aclements/go-gg/table"
)

// Kind is the semantic type of a column.
type Kind int

const (
	Categorical Kind = iota
	Numeric
	Datetime
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Datetime:
		return "datetime"
	}
	return "categorical"
}

var timeType = reflect.TypeOf(time.Time{})

// KindOf returns the kind of column col of t. It panics if t has no
// such column; callers validate with Require first.
func KindOf(t *table.Table, col string) Kind {
	return kindOfType(reflect.TypeOf(t.MustColumn(col)).Elem())
}

func kindOfType(et reflect.Type) Kind {
	if et == timeType {
		return Datetime
	}
	switch et.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return Numeric
	}
	return Categorical
}

// Empty returns a table with no columns and no rows.
func Empty() *table.Table {
	return new(table.Table)
}

// NumericColumns returns the names of t's numeric columns, in order.
func NumericColumns(t *table.Table) []string {
	var cols []string
	for _, col := range t.Columns() {
		if KindOf(t, col) == Numeric {
			cols = append(cols, col)
		}
	}
	return cols
}

// Floats returns numeric column col of t as []float64.
func Floats(t *table.Table, col string) ([]float64, error) {
	if err := RequireKind(t, Numeric, col); err != nil {
		return nil, err
	}
	var xs []float64
	slice.Convert(&xs, t.MustColumn(col))
	return xs, nil
}

// Strings returns column col of t formatted as strings. Missing
// values format as "".
func Strings(t *table.Table, col string) []string {
	seq := reflect.ValueOf(t.MustColumn(col))
	out := make([]string, seq.Len())
	for i := range out {
		out[i] = Format(seq.Index(i).Interface())
	}
	return out
}

// Format formats a single cell value. Missing values format as "".
func Format(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		if math.IsNaN(float64(v)) {
			return ""
		}
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case int:
		return strconv.Itoa(v)
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

// IsMissing reports whether cell v is a missing value: NaN for
// numeric columns, the zero time for datetime columns, and "" for
// categorical columns.
func IsMissing(v interface{}) bool {
	switch v := v.(type) {
	case float64:
		return math.IsNaN(v)
	case float32:
		return math.IsNaN(float64(v))
	case string:
		return v == ""
	case time.Time:
		return v.IsZero()
	}
	return false
}

// Select returns a table with just the named columns of t, in the
// order given. The caller must have validated cols with Require.
func Select(t *table.Table, cols ...string) *table.Table {
	b := new(table.Builder)
	for _, col := range cols {
		b.Add(col, t.MustColumn(col))
	}
	return b.Done()
}

// Rows returns a table with the rows of t at the given indexes, in
// that order.
func Rows(t *table.Table, idx []int) *table.Table {
	b := new(table.Builder)
	for _, col := range t.Columns() {
		b.Add(col, slice.Select(t.MustColumn(col), idx))
	}
	return b.Done()
}

// Span returns the indexes lo, lo+1, ..., hi-1.
func Span(lo, hi int) []int {
	if hi < lo {
		hi = lo
	}
	idx := make([]int, hi-lo)
	for i := range idx {
		idx[i] = lo + i
	}
	return idx
}

// CompleteRows returns the indexes of rows of t that have no missing
// value in any of cols.
func CompleteRows(t *table.Table, cols ...string) []int {
	seqs := make([]reflect.Value, len(cols))
	for i, col := range cols {
		seqs[i] = reflect.ValueOf(t.MustColumn(col))
	}
	var idx []int
rows:
	for i := 0; i < t.Len(); i++ {
		for _, seq := range seqs {
			if IsMissing(seq.Index(i).Interface()) {
				continue rows
			}
		}
		idx = append(idx, i)
	}
	return idx
}
