// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"context"
	"math"
	"reflect"
	"time"

	"github.com/aclements/go-gg/generic/slice"
	"github.com/aclements/go-gg/table"
	"github.com/aclements/tabpipe/internal/cluster"
	"github.com/aclements/tabpipe/internal/command"
	"github.com/aclements/tabpipe/internal/frame"
	"github.com/aclements/tabpipe/internal/schema"
)

func transformCommands() []command.Command {
	transform := func(name, desc string, configure func(*schema.Schema) command.Runner) command.Command {
		return &cmd{
			info:      command.Info{Name: name, Description: desc, Category: command.CategoryTransform},
			configure: configure,
		}
	}
	return []command.Command{
		transform("cut", "Select a subset of columns by name.", configureCut),
		transform("sort", "Sort rows by the values of columns.", configureSort),
		transform("head", "Keep the first rows.", func(s *schema.Schema) command.Runner { return configureEnds(s, true) }),
		transform("tail", "Keep the last rows.", func(s *schema.Schema) command.Runner { return configureEnds(s, false) }),
		transform("dropna", "Drop rows with missing values.", configureDropNA),
		transform("filter", "Keep rows for which an expression is true.", configureFilter),
		transform("mutate", "Add or replace a column computed from each row.", configureMutate),
		transform("melt", "Gather columns into variable and value columns.", configureMelt),
		transform("pivot", "Spread a variable column into one column per value.", configurePivot),
		transform("kmeans", "k-means clustering of numeric columns.", configureKMeans),
	}
}

func configureCut(s *schema.Schema) command.Runner {
	var cols []string
	columnsFlag(s, &cols, "keep only these `NAME`s, in this order")
	s.Required("columns")

	return command.RunnerFunc(func(ctx context.Context, env *command.Env, t *table.Table) (*table.Table, error) {
		cols := dedup(cols)
		if err := frame.Require(t, cols...); err != nil {
			return nil, err
		}
		return frame.Select(t, cols...), nil
	})
}

func configureSort(s *schema.Schema) command.Runner {
	var o struct {
		cols []string
		desc bool
	}
	columnsFlag(s, &o.cols, "sort by these `NAME`s, most significant first")
	s.Bool(&o.desc, "desc", "", "sort in descending order")
	s.Required("columns")

	return command.RunnerFunc(func(ctx context.Context, env *command.Env, t *table.Table) (*table.Table, error) {
		if err := frame.Require(t, o.cols...); err != nil {
			return nil, err
		}
		sorted := table.Flatten(table.SortBy(t, o.cols...))
		if o.desc {
			idx := frame.Span(0, sorted.Len())
			for i, j := 0, len(idx)-1; i < j; i, j = i+1, j-1 {
				idx[i], idx[j] = idx[j], idx[i]
			}
			sorted = frame.Rows(sorted, idx)
		}
		return sorted, nil
	})
}

// configureEnds configures head (first rows) or tail (last rows).
func configureEnds(s *schema.Schema, head bool) command.Runner {
	var n int
	s.Int(&n, "rows", "n", 10, "number of `rows` to keep")
	atLeast(s, "rows", &n, 0)

	return command.RunnerFunc(func(ctx context.Context, env *command.Env, t *table.Table) (*table.Table, error) {
		m := t.Len()
		if n >= m {
			return t, nil
		}
		if head {
			return frame.Rows(t, frame.Span(0, n)), nil
		}
		return frame.Rows(t, frame.Span(m-n, m)), nil
	})
}

func configureDropNA(s *schema.Schema) command.Runner {
	var cols []string
	columnsFlag(s, &cols, "only consider missing values in these `NAME`s (default all)")

	return command.RunnerFunc(func(ctx context.Context, env *command.Env, t *table.Table) (*table.Table, error) {
		cols := cols
		if len(cols) == 0 {
			cols = t.Columns()
		} else if err := frame.Require(t, cols...); err != nil {
			return nil, err
		}
		idx := frame.CompleteRows(t, cols...)
		env.Logger.Debug("dropna", "dropped", t.Len()-len(idx))
		return frame.Rows(t, idx), nil
	})
}

func configureMelt(s *schema.Schema) command.Runner {
	var o struct {
		cols     []string
		variable string
		value    string
	}
	columnsFlag(s, &o.cols, "gather these `NAME`s")
	s.String(&o.variable, "var", "", "variable", "`NAME` of the column holding the gathered column names")
	s.String(&o.value, "val", "", "value", "`NAME` of the column holding the gathered values")
	s.Required("columns")
	s.Check(func() error {
		if o.variable == o.value {
			return s.Errorf("val", "--var and --val must differ")
		}
		return nil
	})

	return command.RunnerFunc(func(ctx context.Context, env *command.Env, t *table.Table) (*table.Table, error) {
		cols := dedup(o.cols)
		if err := frame.Require(t, cols...); err != nil {
			return nil, err
		}
		melted := make(map[string]bool)
		for _, c := range cols {
			melted[c] = true
		}
		for _, name := range []string{o.variable, o.value} {
			if t.Column(name) != nil && !melted[name] {
				return nil, frame.Errorf([]string{name}, "column %q already exists", name)
			}
		}

		// Unpivot needs every gathered column to have the same
		// type: float64 if they are all numeric, else string.
		allNumeric := true
		for _, c := range cols {
			if frame.KindOf(t, c) != frame.Numeric {
				allNumeric = false
			}
		}
		b := table.NewBuilder(t)
		for _, c := range cols {
			if allNumeric {
				xs, _ := frame.Floats(t, c)
				b.Add(c, xs)
			} else {
				b.Add(c, frame.Strings(t, c))
			}
		}
		return table.Flatten(table.Unpivot(b.Done(), o.variable, o.value, cols...)), nil
	})
}

func configurePivot(s *schema.Schema) command.Runner {
	var o struct {
		key, value string
	}
	s.String(&o.key, "key", "k", "", "`NAME` of the column whose values become column names")
	s.String(&o.value, "val", "v", "", "`NAME` of the column holding the values")
	s.Required("key", "val")

	return command.RunnerFunc(func(ctx context.Context, env *command.Env, t *table.Table) (*table.Table, error) {
		return pivot(t, o.key, o.value)
	})
}

// pivot spreads column value of t into one column per distinct value
// of column key. Rows are identified by the remaining columns. Cells
// with no input row are missing.
func pivot(t *table.Table, key, value string) (*table.Table, error) {
	if err := frame.Require(t, key, value); err != nil {
		return nil, err
	}
	if key == value {
		return nil, frame.Errorf([]string{key}, "key and value columns must differ")
	}
	var ids []string
	for _, c := range t.Columns() {
		if c != key && c != value {
			ids = append(ids, c)
		}
	}
	labels := frame.Strings(t, key)
	for i, l := range labels {
		if l == "" {
			return nil, frame.Errorf([]string{key}, "row %d has no value in key column %q", i+1, key)
		}
		if t.Column(l) != nil && l != key && l != value {
			return nil, frame.Errorf([]string{l}, "key value %q names an existing column", l)
		}
	}

	// Identify each output row by the formatted values of the id
	// columns, and reject repeated (row, key) pairs.
	idStrs := make([][]string, len(ids))
	for i, c := range ids {
		idStrs[i] = frame.Strings(t, c)
	}
	rowKey := func(i int) string {
		k := ""
		for _, col := range idStrs {
			k += col[i] + "\x00"
		}
		return k
	}
	type cell struct{ row, label string }
	seen := make(map[cell]bool)
	firstRow := make(map[string]int)
	var rowOrder []string
	var labelOrder []string
	labelSeen := make(map[string]bool)
	for i := 0; i < t.Len(); i++ {
		rk := rowKey(i)
		c := cell{rk, labels[i]}
		if seen[c] {
			return nil, frame.Errorf([]string{key}, "duplicate entries for key %q", labels[i])
		}
		seen[c] = true
		if _, ok := firstRow[rk]; !ok {
			firstRow[rk] = i
			rowOrder = append(rowOrder, rk)
		}
		if !labelSeen[labels[i]] {
			labelSeen[labels[i]] = true
			labelOrder = append(labelOrder, labels[i])
		}
	}

	// Fill absent cells with missing values so no cell falls back
	// to the zero value of its type.
	vals := missingCapable(t.MustColumn(value))
	idx := frame.Span(0, t.Len())
	vv := reflect.ValueOf(vals)
	missing := missingValue(vv.Type().Elem())
	for _, rk := range rowOrder {
		for _, l := range labelOrder {
			if !seen[cell{rk, l}] {
				idx = append(idx, firstRow[rk])
				labels = append(labels, l)
				vv = reflect.Append(vv, missing)
			}
		}
	}
	filled := table.NewBuilder(frame.Rows(t, idx)).
		Add(key, labels).
		Add(value, vv.Interface()).
		Done()
	return table.Flatten(table.Pivot(filled, key, value)), nil
}

// missingCapable converts a column that cannot hold a missing value,
// such as []int, to []float64.
func missingCapable(col interface{}) interface{} {
	switch col.(type) {
	case []float64, []string, []time.Time:
		return col
	}
	if reflect.TypeOf(col).Elem().Kind() == reflect.String {
		var out []string
		slice.Convert(&out, col)
		return out
	}
	var out []float64
	slice.Convert(&out, col)
	return out
}

func missingValue(t reflect.Type) reflect.Value {
	if t.Kind() == reflect.Float64 {
		return reflect.ValueOf(math.NaN())
	}
	return reflect.Zero(t)
}

func configureKMeans(s *schema.Schema) command.Runner {
	var o struct {
		cols    []string
		k       int
		prefix  string
		maxIter int
		seed    int
	}
	columnsFlag(s, &o.cols, "cluster on these numeric `NAME`s (default all numeric columns)")
	s.Int(&o.k, "nclusters", "n", 5, "number of `clusters`")
	s.String(&o.prefix, "clusterprefix", "", "cluster", "`NAME` of the cluster label column")
	s.Int(&o.maxIter, "maxiter", "", cluster.DefaultMaxIter, "maximum number of `iterations`")
	s.Int(&o.seed, "seed", "", 1, "random `seed` for choosing initial centers")
	atLeast(s, "nclusters", &o.k, 1)
	atLeast(s, "maxiter", &o.maxIter, 1)

	return command.RunnerFunc(func(ctx context.Context, env *command.Env, t *table.Table) (*table.Table, error) {
		cols, err := numericColumns(t, o.cols)
		if err != nil {
			return nil, err
		}
		if t.Column(o.prefix) != nil {
			return nil, frame.Errorf([]string{o.prefix}, "column %q already exists", o.prefix)
		}
		complete := frame.CompleteRows(t, cols...)
		if len(complete) < o.k {
			return nil, frame.Errorf(cols, "cannot form %d clusters from %d complete rows", o.k, len(complete))
		}

		data := make([][]float64, len(complete))
		for i := range data {
			data[i] = make([]float64, len(cols))
		}
		for j, c := range cols {
			xs, _ := frame.Floats(t, c)
			for i, r := range complete {
				data[i][j] = xs[r]
			}
		}
		m := &cluster.KMeans{K: o.k, MaxIter: o.maxIter, Seed: int64(o.seed)}
		got, err := m.FitPredict(data)
		if err != nil {
			return nil, frame.Errorf(cols, "kmeans: %v", err)
		}

		// Rows with missing values get no cluster.
		labels := make([]int, t.Len())
		for i := range labels {
			labels[i] = -1
		}
		for i, r := range complete {
			labels[r] = got[i]
		}
		env.Logger.Debug("kmeans", "columns", cols, "k", o.k, "inertia", m.Inertia)
		return table.NewBuilder(t).Add(o.prefix, labels).Done(), nil
	})
}
