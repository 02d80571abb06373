// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"math"
	"sort"

	"github.com/aclements/go-gg/table"
	"github.com/aclements/go-moremath/stats"
	"github.com/aclements/go-moremath/vec"
	"github.com/aclements/tabpipe/internal/frame"
	"github.com/aclements/tabpipe/internal/render"
	"github.com/aclements/tabpipe/internal/schema"
)

// Categorical plots draw each category at an integer position on
// their categorical axis. Bars are polygons and line segments are
// paths, each identified by a shape column.

// barWidth is the fraction of the space between categories that the
// bars of one category fill.
const barWidth = 0.8

// An axis maps the values of a categorical column to positions.
type axis struct {
	labels []string // label at each position
	pos    []int    // position of each row
}

// categorize lays out the distinct values of column col of t. Values
// are in order of first appearance, or sorted if sorted is set
// (numerically for numeric columns).
func categorize(t *table.Table, col string, sorted bool) axis {
	vals := frame.Strings(t, col)
	labels := distinct(t, col)
	if sorted {
		sortValues(labels, frame.KindOf(t, col) == frame.Numeric)
	}
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	pos := make([]int, len(vals))
	for i, v := range vals {
		pos[i] = index[v]
	}
	return axis{labels, pos}
}

func (a axis) ticks() []render.Tick {
	ticks := make([]render.Tick, len(a.labels))
	for i, l := range a.labels {
		ticks[i] = render.Tick{Value: float64(i), Label: l}
	}
	return ticks
}

// hueAxis is like categorize, but for an optional hue column. With
// no hue column, every row is in the single level "".
func hueAxis(t *table.Table, hue string) axis {
	if hue == "" {
		return axis{labels: []string{""}, pos: make([]int, t.Len())}
	}
	return categorize(t, hue, false)
}

// slot returns the extent along the categorical axis of the bar for
// hue level h of nh levels in category c.
func slot(c, h, nh int) (lo, hi float64) {
	w := barWidth / float64(nh)
	lo = float64(c) - barWidth/2 + float64(h)*w
	return lo, lo + w
}

// shapes accumulates polygons or paths, each a run of points sharing
// an id, for a long-form table.
type shapes struct {
	xs, ys []float64
	ids    []int
	hues   []string
	n      int
}

// add appends one shape through the given points. The points
// alternate x and y coordinates.
func (s *shapes) add(hue string, pts ...float64) {
	for i := 0; i+1 < len(pts); i += 2 {
		s.xs = append(s.xs, pts[i])
		s.ys = append(s.ys, pts[i+1])
		s.ids = append(s.ids, s.n)
		s.hues = append(s.hues, hue)
	}
	s.n++
}

// rect adds the rectangle [x0,x1]x[y0,y1]. If horizontal, the
// coordinates are swapped.
func (s *shapes) rect(hue string, horizontal bool, x0, x1, y0, y1 float64) {
	if horizontal {
		x0, x1, y0, y1 = y0, y1, x0, x1
	}
	s.add(hue, x0, y0, x0, y1, x1, y1, x1, y0)
}

// Column names of the tables built by shapes.
const (
	shapeX  = "x"
	shapeY  = "y"
	shapeID = "shape"
)

// layer returns a layer drawing the accumulated shapes with the
// given mark, colored by hue if hue is not "".
func (s *shapes) layer(mark render.Mark, hue string) render.Layer {
	b := new(table.Builder).Add(shapeX, s.xs).Add(shapeY, s.ys).Add(shapeID, s.ids)
	if hue != "" {
		b.Add(hue, s.hues)
	}
	return render.Layer{Mark: mark, Data: b.Done(), X: shapeX, Y: shapeY, Color: hue, Shape: shapeID}
}

// hueName returns the label of hue level h, or "" without a hue
// column.
func hueName(hue string, ha axis, h int) string {
	if hue == "" {
		return ""
	}
	return ha.labels[h]
}

func declareHist(s *schema.Schema) figureFunc {
	var x, stat string
	var f facetOptions
	var bins int
	s.String(&x, "xaxis", "x", "", "plot the distribution of numeric `COLUMN`")
	s.Required("xaxis")
	hueFlag(s, &f)
	s.Int(&bins, "bins", "", 10, "number of `bins`")
	s.Choice(&stat, "stat", "", "count", []string{"count", "density", "probability"}, "bar height statistic")
	atLeast(s, "bins", &bins, 1)

	return func(t *table.Table) (*render.Figure, error) {
		t, err := usable(t, nonEmpty(x, f.hue)...)
		if err != nil {
			return nil, err
		}
		xs, err := frame.Floats(t, x)
		if err != nil {
			return nil, err
		}
		for i, v := range xs {
			if math.IsInf(v, 0) {
				return nil, frame.Errorf([]string{x}, "row %d has a non-finite value in column %q", i+1, x)
			}
		}
		lo, hi := stats.Bounds(xs)
		if lo == hi {
			lo, hi = lo-0.5, hi+0.5
		}
		edges := vec.Linspace(lo, hi, bins+1)
		width := (hi - lo) / float64(bins)

		ha := hueAxis(t, f.hue)
		counts := make([][]float64, len(ha.labels))
		totals := make([]float64, len(ha.labels))
		for h := range counts {
			counts[h] = make([]float64, bins)
		}
		for i, v := range xs {
			b := int((v - lo) / width)
			if b >= bins {
				b = bins - 1
			}
			counts[ha.pos[i]][b]++
			totals[ha.pos[i]]++
		}

		var bars shapes
		for h, cs := range counts {
			for b, c := range cs {
				if c == 0 {
					continue
				}
				switch stat {
				case "density":
					c /= totals[h] * width
				case "probability":
					c /= totals[h]
				}
				bars.rect(hueName(f.hue, ha, h), false, edges[b], edges[b+1], 0, c)
			}
		}
		return &render.Figure{
			Layers: []render.Layer{bars.layer(render.Polygons, f.hue)},
			XLabel: x,
			YLabel: stat,
		}, nil
	}
}

func declareCount(s *schema.Schema) figureFunc {
	var x, y string
	var f facetOptions
	s.String(&x, "xaxis", "x", "", "count the categories of `COLUMN` along the X axis")
	s.String(&y, "yaxis", "y", "", "count the categories of `COLUMN` along the Y axis")
	s.OneOf("xaxis", "yaxis")
	hueFlag(s, &f)

	return func(t *table.Table) (*render.Figure, error) {
		col, horizontal := x, false
		if col == "" {
			col, horizontal = y, true
		}
		t, err := usable(t, nonEmpty(col, f.hue)...)
		if err != nil {
			return nil, err
		}
		ca := categorize(t, col, false)
		ha := hueAxis(t, f.hue)
		counts := make([][]float64, len(ca.labels))
		for c := range counts {
			counts[c] = make([]float64, len(ha.labels))
		}
		for i := range ca.pos {
			counts[ca.pos[i]][ha.pos[i]]++
		}

		var bars shapes
		for c, hs := range counts {
			for h, n := range hs {
				if n == 0 {
					continue
				}
				lo, hi := slot(c, h, len(ha.labels))
				bars.rect(hueName(f.hue, ha, h), horizontal, lo, hi, 0, n)
			}
		}
		fig := &render.Figure{Layers: []render.Layer{bars.layer(render.Polygons, f.hue)}}
		if horizontal {
			fig.XLabel, fig.YLabel, fig.YTicks = "count", col, ca.ticks()
		} else {
			fig.XLabel, fig.YLabel, fig.XTicks = col, "count", ca.ticks()
		}
		return fig, nil
	}
}

// estimators compute the height of a bar from its values.
var estimators = map[string]func([]float64) float64{
	"mean":   stats.Mean,
	"median": func(xs []float64) float64 { return stats.Sample{Xs: xs}.Copy().Sort().Quantile(0.5) },
	"sum":    vec.Sum,
	"min":    func(xs []float64) float64 { lo, _ := stats.Bounds(xs); return lo },
	"max":    func(xs []float64) float64 { _, hi := stats.Bounds(xs); return hi },
}

// groupValues returns the values of numeric column y of t for each
// (category, hue level) cell.
func groupValues(t *table.Table, y string, ca, ha axis) ([][][]float64, error) {
	ys, err := frame.Floats(t, y)
	if err != nil {
		return nil, err
	}
	cells := make([][][]float64, len(ca.labels))
	for c := range cells {
		cells[c] = make([][]float64, len(ha.labels))
	}
	for i, v := range ys {
		c, h := ca.pos[i], ha.pos[i]
		cells[c][h] = append(cells[c][h], v)
	}
	return cells, nil
}

func declareBar(s *schema.Schema) figureFunc {
	var x, y, est string
	var f facetOptions
	var std, ciSet bool
	var ci float64
	xyFlags(s, &x, &y, true)
	hueFlag(s, &f)
	var names []string
	for name := range estimators {
		names = append(names, name)
	}
	sort.Strings(names)
	s.Choice(&est, "estimator", "", "mean", names, "statistic for the bar height")
	s.Bool(&std, "std", "", "show the standard deviation as an error bar")
	s.OptionalFloat(&ci, &ciSet, "ci", "", 95, "show a `PERCENT` normal confidence interval of the mean as an error bar")
	s.Exclusive("std", "ci")
	s.Check(func() error {
		if ciSet && !(ci > 0 && ci < 100) {
			return s.Errorf("ci", "--ci must be between 0 and 100, got %v", ci)
		}
		return nil
	})

	return func(t *table.Table) (*render.Figure, error) {
		t, err := usable(t, nonEmpty(x, y, f.hue)...)
		if err != nil {
			return nil, err
		}
		ca := categorize(t, x, false)
		ha := hueAxis(t, f.hue)
		cells, err := groupValues(t, y, ca, ha)
		if err != nil {
			return nil, err
		}

		z := 0.0
		if ciSet {
			z = stats.NormalDist{Mu: 0, Sigma: 1}.InvCDF(0.5 + ci/200)
		}
		var bars, errs shapes
		for c, hs := range cells {
			for h, vals := range hs {
				if len(vals) == 0 {
					continue
				}
				lo, hi := slot(c, h, len(ha.labels))
				height := estimators[est](vals)
				bars.rect(hueName(f.hue, ha, h), false, lo, hi, 0, height)

				var spread float64
				switch {
				case std && len(vals) > 1:
					spread = stats.StdDev(vals)
				case ciSet && len(vals) > 1:
					spread = z * stats.StdDev(vals) / math.Sqrt(float64(len(vals)))
				default:
					continue
				}
				mid := (lo + hi) / 2
				errs.add("", mid, height-spread, mid, height+spread)
			}
		}
		fig := &render.Figure{
			Layers: []render.Layer{bars.layer(render.Polygons, f.hue)},
			XLabel: x,
			YLabel: est + " " + y,
			XTicks: ca.ticks(),
		}
		if errs.n > 0 {
			fig.Layers = append(fig.Layers, errs.layer(render.Lines, ""))
		}
		return fig, nil
	}
}

func declareBox(s *schema.Schema) figureFunc {
	var x, y string
	var f facetOptions
	var noOutliers bool
	xyFlags(s, &x, &y, true)
	hueFlag(s, &f)
	s.Bool(&noOutliers, "nooutliers", "", "do not draw outlier points")

	return func(t *table.Table) (*render.Figure, error) {
		t, err := usable(t, nonEmpty(x, y, f.hue)...)
		if err != nil {
			return nil, err
		}
		ca := categorize(t, x, false)
		ha := hueAxis(t, f.hue)
		cells, err := groupValues(t, y, ca, ha)
		if err != nil {
			return nil, err
		}

		var boxes, lines shapes
		var ox, oy []float64
		for c, hs := range cells {
			for h, vals := range hs {
				if len(vals) == 0 {
					continue
				}
				b := boxStats(vals)
				lo, hi := slot(c, h, len(ha.labels))
				mid := (lo + hi) / 2
				boxes.rect(hueName(f.hue, ha, h), false, lo, hi, b.q1, b.q3)
				lines.add("", lo, b.median, hi, b.median)
				lines.add("", mid, b.q3, mid, b.upper)
				lines.add("", mid, b.q1, mid, b.lower)
				if !noOutliers {
					for _, v := range b.outliers {
						ox, oy = append(ox, mid), append(oy, v)
					}
				}
			}
		}
		fig := &render.Figure{
			Layers: []render.Layer{
				boxes.layer(render.Polygons, f.hue),
				lines.layer(render.Lines, ""),
			},
			XLabel: x,
			YLabel: y,
			XTicks: ca.ticks(),
		}
		if len(ox) > 0 {
			out := new(table.Builder).Add(shapeX, ox).Add(shapeY, oy).Done()
			fig.Layers = append(fig.Layers, render.Layer{Mark: render.Points, Data: out, X: shapeX, Y: shapeY})
		}
		return fig, nil
	}
}

type box struct {
	q1, median, q3 float64
	lower, upper   float64 // whisker ends
	outliers       []float64
}

// boxStats computes a box plot of xs. Whiskers reach the most extreme
// values within 1.5 times the interquartile range of the box.
func boxStats(xs []float64) box {
	sample := stats.Sample{Xs: xs}.Copy().Sort()
	b := box{
		q1:     sample.Quantile(0.25),
		median: sample.Quantile(0.5),
		q3:     sample.Quantile(0.75),
	}
	iqr := b.q3 - b.q1
	loFence, hiFence := b.q1-1.5*iqr, b.q3+1.5*iqr
	b.lower, b.upper = b.q1, b.q3
	for _, x := range sample.Xs {
		if x < loFence || x > hiFence {
			b.outliers = append(b.outliers, x)
			continue
		}
		b.lower = math.Min(b.lower, x)
		b.upper = math.Max(b.upper, x)
	}
	return b
}
