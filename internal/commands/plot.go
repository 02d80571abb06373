// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"context"
	"math"

	"github.com/aclements/go-gg/ggstat"
	"github.com/aclements/go-gg/table"
	"github.com/aclements/go-moremath/stats"
	"github.com/aclements/tabpipe/internal/command"
	"github.com/aclements/tabpipe/internal/config"
	"github.com/aclements/tabpipe/internal/frame"
	"github.com/aclements/tabpipe/internal/render"
	"github.com/aclements/tabpipe/internal/schema"
)

// A figureFunc builds the figure a plotting command draws from the
// current table.
type figureFunc func(t *table.Table) (*render.Figure, error)

// plotCommand returns a plotting command. declare declares the
// command's own flags and returns the function that builds its
// figure. The command draws the figure and passes its input table on
// unchanged.
func plotCommand(name, desc string, d config.Plot, declare func(s *schema.Schema) figureFunc) command.Command {
	return &cmd{
		info: command.Info{Name: name, Description: desc, Category: command.CategoryPlot},
		configure: func(s *schema.Schema) command.Runner {
			build := declare(s)
			o := new(plotOptions)
			plotFlags(s, o, d)
			return command.RunnerFunc(func(ctx context.Context, env *command.Env, t *table.Table) (*table.Table, error) {
				fig, err := build(t)
				if err != nil {
					return nil, err
				}
				if err := o.write(env, fig); err != nil {
					return nil, err
				}
				return t, nil
			})
		},
	}
}

func plotCommands(d config.Plot) []command.Command {
	return []command.Command{
		plotCommand("scatter", "Scatter plot of two columns.", d, declareScatter),
		plotCommand("line", "Line plot of the mean of a numeric column at each X.", d, declareLine),
		plotCommand("lmplot", "Scatter plot with a least-squares polynomial fit.", d, declareLMPlot),
		plotCommand("kde", "Kernel density estimate of a numeric column.", d, declareKDE),
		plotCommand("ecdf", "Empirical cumulative distribution of a numeric column.", d, declareECDF),
		plotCommand("heatmap", "Heatmap of a numeric column over two categorical columns.", d, declareHeatmap),
		plotCommand("pair", "Scatter plots of every pair of numeric columns.", d, declarePair),
		plotCommand("hist", "Histogram of a numeric column.", d, declareHist),
		plotCommand("count", "Bar plot of the number of rows in each category.", d, declareCount),
		plotCommand("bar", "Bar plot of an estimate of a numeric column per category.", d, declareBar),
		plotCommand("box", "Box-and-whiskers plot of a numeric column per category.", d, declareBox),
	}
}

// xyFlags declares -x/--xaxis and -y/--yaxis. If required, both must
// be given.
func xyFlags(s *schema.Schema, x, y *string, required bool) {
	s.String(x, "xaxis", "x", "", "plot `COLUMN` along the X axis")
	s.String(y, "yaxis", "y", "", "plot `COLUMN` along the Y axis")
	if required {
		s.Required("xaxis", "yaxis")
	}
}

func declareScatter(s *schema.Schema) figureFunc {
	var x, y string
	var f facetOptions
	xyFlags(s, &x, &y, true)
	facetFlags(s, &f)

	return func(t *table.Table) (*render.Figure, error) {
		t, err := usable(t, append([]string{x, y}, f.columns()...)...)
		if err != nil {
			return nil, err
		}
		return &render.Figure{
			Data:     t,
			Layers:   []render.Layer{{Mark: render.Points, X: x, Y: y, Color: f.hue}},
			FacetRow: f.row,
			FacetCol: f.col,
		}, nil
	}
}

func declareLine(s *schema.Schema) figureFunc {
	var x, y string
	var f facetOptions
	xyFlags(s, &x, &y, true)
	facetFlags(s, &f)

	return func(t *table.Table) (*render.Figure, error) {
		t, err := usable(t, append([]string{x, y}, f.columns()...)...)
		if err != nil {
			return nil, err
		}
		if err := frame.RequireKind(t, frame.Numeric, y); err != nil {
			return nil, err
		}
		// Average y at each x within each series and facet.
		by := dedup(append([]string{x}, f.columns()...))
		g := ggstat.Agg(by...)(ggstat.AggMean(y)).F(t)
		g = table.Rename(g, "mean "+y, y)
		return &render.Figure{
			Data:     table.Flatten(table.SortBy(g, x)),
			Layers:   []render.Layer{{Mark: render.Lines, X: x, Y: y, Color: f.hue}},
			FacetRow: f.row,
			FacetCol: f.col,
		}, nil
	}
}

// byHue groups t by column hue, or returns t if hue is "".
func byHue(t *table.Table, hue string) table.Grouping {
	if hue == "" {
		return t
	}
	return table.GroupBy(t, hue)
}

// withHue flattens the result of a statistic computed on byHue(t,
// hue), restoring the hue column from each group's label.
func withHue(g table.Grouping, hue string) *table.Table {
	if hue != "" {
		g = table.MapTables(g, func(gid table.GroupID, t *table.Table) *table.Table {
			return table.NewBuilder(t).AddConst(hue, gid.Label()).Done()
		})
	}
	return table.Flatten(g)
}

func declareLMPlot(s *schema.Schema) figureFunc {
	var x, y string
	var f facetOptions
	var degree int
	xyFlags(s, &x, &y, true)
	hueFlag(s, &f)
	s.Int(&degree, "degree", "", 1, "`degree` of the fitted polynomial")
	atLeast(s, "degree", &degree, 1)

	return func(t *table.Table) (*render.Figure, error) {
		t, err := usable(t, nonEmpty(x, y, f.hue)...)
		if err != nil {
			return nil, err
		}
		if err := frame.RequireKind(t, frame.Numeric, x, y); err != nil {
			return nil, err
		}
		if t.Len() <= degree {
			return nil, frame.Errorf([]string{x, y}, "need more than %d rows for a degree %d fit", degree, degree)
		}
		fit := ggstat.LeastSquares{X: x, Y: y, Degree: degree}.F(byHue(t, f.hue))
		return &render.Figure{
			Data: t,
			Layers: []render.Layer{
				{Mark: render.Points, X: x, Y: y, Color: f.hue},
				{Mark: render.Lines, Data: withHue(fit, f.hue), X: x, Y: y, Color: f.hue},
			},
		}, nil
	}
}

// spread checks that column x of t has at least two distinct values,
// which bandwidth estimation needs.
func spread(t *table.Table, x string) error {
	xs, err := frame.Floats(t, x)
	if err != nil {
		return err
	}
	lo, hi := stats.Bounds(xs)
	if len(xs) < 2 || lo == hi {
		return frame.Errorf([]string{x}, "column %q needs at least two distinct values", x)
	}
	return nil
}

func declareKDE(s *schema.Schema) figureFunc {
	var x string
	var f facetOptions
	var bw float64
	s.String(&x, "xaxis", "x", "", "estimate the density of numeric `COLUMN`")
	s.Required("xaxis")
	hueFlag(s, &f)
	s.Float(&bw, "bandwidth", "", 0, "kernel `bandwidth` (default: Scott's rule)")
	s.Check(func() error {
		if bw < 0 {
			return s.Errorf("bandwidth", "--bandwidth must not be negative")
		}
		return nil
	})

	return func(t *table.Table) (*render.Figure, error) {
		t, err := usable(t, nonEmpty(x, f.hue)...)
		if err != nil {
			return nil, err
		}
		if err := frame.RequireKind(t, frame.Numeric, x); err != nil {
			return nil, err
		}
		g := byHue(t, f.hue)
		if bw == 0 {
			for _, gid := range g.Tables() {
				if err := spread(g.Table(gid), x); err != nil {
					return nil, err
				}
			}
		}
		const y = "probability density"
		d := ggstat.Density{X: x, Bandwidth: bw}.F(g)
		return &render.Figure{
			Data:   withHue(d, f.hue),
			Layers: []render.Layer{{Mark: render.Lines, X: x, Y: y, Color: f.hue}},
			YLabel: "density",
		}, nil
	}
}

func declareECDF(s *schema.Schema) figureFunc {
	var x string
	var f facetOptions
	s.String(&x, "xaxis", "x", "", "plot the distribution of numeric `COLUMN`")
	s.Required("xaxis")
	hueFlag(s, &f)

	return func(t *table.Table) (*render.Figure, error) {
		t, err := usable(t, nonEmpty(x, f.hue)...)
		if err != nil {
			return nil, err
		}
		if err := frame.RequireKind(t, frame.Numeric, x); err != nil {
			return nil, err
		}
		const y = "cumulative density"
		e := ggstat.ECDF{X: x}.F(byHue(t, f.hue))
		return &render.Figure{
			Data:   withHue(e, f.hue),
			Layers: []render.Layer{{Mark: render.Steps, X: x, Y: y, Color: f.hue}},
			YLabel: "proportion",
		}, nil
	}
}

func declareHeatmap(s *schema.Schema) figureFunc {
	var x, y, v string
	xyFlags(s, &x, &y, true)
	s.String(&v, "val", "v", "", "color cells by numeric `COLUMN`")
	s.Required("val")

	return func(t *table.Table) (*render.Figure, error) {
		if x == y || x == v || y == v {
			return nil, frame.Errorf(nonEmpty(x, y, v), "heatmap columns must be distinct")
		}
		t, err := usable(t, x, y, v)
		if err != nil {
			return nil, err
		}
		vals, err := frame.Floats(t, v)
		if err != nil {
			return nil, err
		}
		xa := categorize(t, x, true)
		ya := categorize(t, y, true)
		type cell struct{ x, y int }
		seen := make(map[cell]bool)
		xs := make([]float64, t.Len())
		ys := make([]float64, t.Len())
		for i := range xs {
			c := cell{xa.pos[i], ya.pos[i]}
			if seen[c] {
				return nil, frame.Errorf([]string{x, y}, "more than one value for %s=%s, %s=%s",
					x, xa.labels[c.x], y, ya.labels[c.y])
			}
			seen[c] = true
			xs[i], ys[i] = float64(c.x), float64(c.y)
		}
		data := new(table.Builder).Add(x, xs).Add(y, ys).Add(v, vals).Done()
		return &render.Figure{
			Data:   data,
			Layers: []render.Layer{{Mark: render.Tiles, X: x, Y: y, Color: v}},
			XTicks: xa.ticks(),
			YTicks: ya.ticks(),
		}, nil
	}
}

// Column names of the long-form table pair plots.
const (
	pairX    = "x value"
	pairY    = "y value"
	pairXVar = "x variable"
	pairYVar = "y variable"
)

func declarePair(s *schema.Schema) figureFunc {
	var cols []string
	var f facetOptions
	columnsFlag(s, &cols, "plot these numeric `NAME`s (default all numeric columns)")
	hueFlag(s, &f)

	return func(t *table.Table) (*render.Figure, error) {
		cols, err := numericColumns(t, cols)
		if err != nil {
			return nil, err
		}
		if f.hue != "" {
			if err := frame.Require(t, f.hue); err != nil {
				return nil, err
			}
		}
		var hues []string
		if f.hue != "" {
			hues = frame.Strings(t, f.hue)
		}

		// Gather every (x column, y column) pair into one long
		// table faceted by the two column names.
		var xv, yv []float64
		var xn, yn, hv []string
		for _, yc := range cols {
			ys, _ := frame.Floats(t, yc)
			for _, xc := range cols {
				xs, _ := frame.Floats(t, xc)
				for i := range xs {
					if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) || (hues != nil && hues[i] == "") {
						continue
					}
					xv, yv = append(xv, xs[i]), append(yv, ys[i])
					xn, yn = append(xn, xc), append(yn, yc)
					if hues != nil {
						hv = append(hv, hues[i])
					}
				}
			}
		}
		if len(xv) == 0 {
			return nil, frame.Errorf(cols, "no rows with values for %s", quoteJoin(cols))
		}
		b := new(table.Builder).Add(pairX, xv).Add(pairY, yv).Add(pairXVar, xn).Add(pairYVar, yn)
		if hues != nil {
			b.Add(f.hue, hv)
		}
		return &render.Figure{
			Data:       b.Done(),
			Layers:     []render.Layer{{Mark: render.Points, X: pairX, Y: pairY, Color: f.hue}},
			FacetCol:   pairXVar,
			FacetRow:   pairYVar,
			FreeScales: true,
		}, nil
	}
}
