// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/aclements/go-gg/table"
	"github.com/aclements/go-moremath/stats"
	"github.com/aclements/tabpipe/internal/command"
	"github.com/aclements/tabpipe/internal/frame"
	"github.com/aclements/tabpipe/internal/schema"
	"golang.org/x/term"
)

func summaryCommands() []command.Command {
	summary := func(name, desc string, configure func(*schema.Schema) command.Runner) command.Command {
		return &cmd{
			info:      command.Info{Name: name, Description: desc, Category: command.CategorySummary},
			configure: configure,
		}
	}
	return []command.Command{
		summary("describe", "Show summary statistics of each column.", configureDescribe),
		summary("pretty", "Pretty print a fragment of the table.", configurePretty),
		summary("unique", "Print the distinct values of a column.", configureUnique),
	}
}

// selectColumns returns cols, or all of t's columns if cols is empty,
// after checking that t has them.
func selectColumns(t *table.Table, cols []string) ([]string, error) {
	if len(cols) == 0 {
		return t.Columns(), nil
	}
	cols = dedup(cols)
	if err := frame.Require(t, cols...); err != nil {
		return nil, err
	}
	return cols, nil
}

var describeStats = []string{"count", "unique", "top", "freq", "mean", "std", "min", "25%", "50%", "75%", "max"}

func configureDescribe(s *schema.Schema) command.Runner {
	var cols []string
	columnsFlag(s, &cols, "describe only these `NAME`s")

	return command.RunnerFunc(func(ctx context.Context, env *command.Env, t *table.Table) (*table.Table, error) {
		cols, err := selectColumns(t, cols)
		if err != nil {
			return nil, err
		}
		b := new(table.Builder).Add("", describeStats)
		for _, c := range cols {
			b.Add(c, describe(t, c))
		}
		table.Fprint(env.Stdout, b.Done())
		return t, nil
	})
}

// describe returns the describeStats of column col of t. Statistics
// that do not apply to the column's kind are blank.
func describe(t *table.Table, col string) []string {
	out := make([]string, len(describeStats))
	set := func(stat, val string) {
		for i, s := range describeStats {
			if s == stat {
				out[i] = val
			}
		}
	}
	num := func(x float64) string {
		return strconv.FormatFloat(x, 'g', 6, 64)
	}

	if frame.KindOf(t, col) == frame.Numeric {
		all, _ := frame.Floats(t, col)
		var xs []float64
		for _, x := range all {
			if !math.IsNaN(x) {
				xs = append(xs, x)
			}
		}
		set("count", strconv.Itoa(len(xs)))
		if len(xs) == 0 {
			return out
		}
		sample := stats.Sample{Xs: xs}.Copy().Sort()
		lo, hi := stats.Bounds(xs)
		set("mean", num(stats.Mean(xs)))
		if len(xs) > 1 {
			set("std", num(stats.StdDev(xs)))
		}
		set("min", num(lo))
		set("25%", num(sample.Quantile(0.25)))
		set("50%", num(sample.Quantile(0.5)))
		set("75%", num(sample.Quantile(0.75)))
		set("max", num(hi))
		return out
	}

	counts := make(map[string]int)
	n, top := 0, ""
	for _, v := range frame.Strings(t, col) {
		if v == "" {
			continue
		}
		n++
		counts[v]++
		if counts[v] > counts[top] || (counts[v] == counts[top] && v < top) {
			top = v
		}
	}
	set("count", strconv.Itoa(n))
	set("unique", strconv.Itoa(len(counts)))
	if n > 0 {
		set("top", top)
		set("freq", strconv.Itoa(counts[top]))
	}
	return out
}

func configurePretty(s *schema.Schema) command.Runner {
	var o struct {
		cols    []string
		maxRows int
		maxCols int
	}
	columnsFlag(s, &o.cols, "print only these `NAME`s")
	s.Int(&o.maxRows, "maxrows", "", 20, "print at most `N` rows, half from each end")
	s.Int(&o.maxCols, "maxcols", "", 0, "print at most `N` columns (default: as many as fit a terminal, else all)")
	atLeast(s, "maxrows", &o.maxRows, 1)
	atLeast(s, "maxcols", &o.maxCols, 0)

	return command.RunnerFunc(func(ctx context.Context, env *command.Env, t *table.Table) (*table.Table, error) {
		cols, err := selectColumns(t, o.cols)
		if err != nil {
			return nil, err
		}
		pretty(env.Stdout, t, cols, env.NA, o.maxRows, o.maxCols)
		return t, nil
	})
}

// pretty prints cols of t to w, eliding middle rows beyond maxRows
// and trailing columns beyond maxCols.
func pretty(w io.Writer, t *table.Table, cols []string, na string, maxRows, maxCols int) {
	idx := frame.Span(0, t.Len())
	elided := false
	if len(idx) > maxRows {
		head := (maxRows + 1) / 2
		idx = append(frame.Span(0, head), frame.Span(t.Len()-(maxRows-head), t.Len())...)
		elided = true
	}

	cells := make([][]string, len(cols))
	for i, c := range cols {
		all := frame.Strings(t, c)
		col := make([]string, 0, len(idx)+1)
		for j, r := range idx {
			if elided && j == (maxRows+1)/2 {
				col = append(col, "...")
			}
			v := all[r]
			if v == "" {
				v = na
			}
			col = append(col, v)
		}
		cells[i] = col
	}

	if maxCols == 0 {
		maxCols = fitColumns(w, cols, cells)
	}
	hidden := 0
	if maxCols > 0 && len(cols) > maxCols {
		hidden = len(cols) - maxCols
		cols, cells = cols[:maxCols], cells[:maxCols]
	}

	b := new(table.Builder)
	for i, c := range cols {
		b.Add(c, cells[i])
	}
	table.Fprint(w, b.Done())
	fmt.Fprintf(w, "\n[%d rows x %d columns]\n", t.Len(), len(t.Columns()))
	if hidden > 0 {
		fmt.Fprintf(w, "(%d columns not shown)\n", hidden)
	}
}

// fitColumns returns how many leading columns fit the width of the
// terminal w, or 0 if w is not a terminal.
func fitColumns(w io.Writer, cols []string, cells [][]string) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return 0
	}
	used := 0
	for i, c := range cols {
		cw := len(c)
		for _, v := range cells[i] {
			cw = max(cw, len(v))
		}
		if i > 0 {
			cw += 2
		}
		if used+cw > width && i > 0 {
			return i
		}
		used += cw
	}
	return len(cols)
}

func configureUnique(s *schema.Schema) command.Runner {
	var o struct {
		col    string
		sorted bool
	}
	s.String(&o.col, "column", "c", "", "print the distinct values of `NAME`")
	s.Bool(&o.sorted, "sort", "", "sort the values in ascending order")
	s.Required("column")

	return command.RunnerFunc(func(ctx context.Context, env *command.Env, t *table.Table) (*table.Table, error) {
		if err := frame.Require(t, o.col); err != nil {
			return nil, err
		}
		vals := distinct(t, o.col)
		if o.sorted {
			sortValues(vals, frame.KindOf(t, o.col) == frame.Numeric)
		}
		for _, v := range vals {
			if v == "" {
				v = env.NA
			}
			fmt.Fprintln(env.Stdout, v)
		}
		return t, nil
	})
}

// distinct returns the distinct formatted values of column col of t,
// in order of first appearance.
func distinct(t *table.Table, col string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range frame.Strings(t, col) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// sortValues sorts formatted values, numerically if numeric is set.
// Missing values sort last.
func sortValues(vals []string, numeric bool) {
	sort.SliceStable(vals, func(i, j int) bool {
		a, b := vals[i], vals[j]
		if a == "" || b == "" {
			return b == "" && a != ""
		}
		if numeric {
			x, _ := strconv.ParseFloat(a, 64)
			y, _ := strconv.ParseFloat(b, 64)
			return x < y
		}
		return a < b
	})
}
