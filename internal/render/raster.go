// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"sort"

	"github.com/aclements/go-gg/palette"
	"github.com/aclements/go-gg/table"
	"github.com/aclements/tabpipe/internal/frame"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
)

// tileGradient colors Tiles from low to high values.
var tileGradient = palette.RGBGradient{
	Colors: []color.RGBA{
		{0x3b, 0x4c, 0xc0, 0xff},
		{0xdd, 0xdd, 0xdd, 0xff},
		{0xb4, 0x04, 0x26, 0xff},
	},
}

// writeRaster draws fig with gonum/plot.
func writeRaster(w io.Writer, fig *Figure, opts Options) error {
	p, err := gonumPlot(fig)
	if err != nil {
		return err
	}

	dpi := vg.Length(opts.DPI)
	width := vg.Length(opts.Width) / dpi * vg.Inch
	height := vg.Length(opts.Height) / dpi * vg.Inch
	switch opts.Format {
	case PNG:
		c := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(opts.DPI))
		p.Draw(draw.New(c))
		_, err = vgimg.PngCanvas{Canvas: c}.WriteTo(w)
	case PDF:
		c := vgpdf.New(width, height)
		p.Draw(draw.New(c))
		_, err = c.WriteTo(w)
	default:
		err = fmt.Errorf("unsupported raster format %q", opts.Format)
	}
	return err
}

// series is the rows of one color and shape of a layer.
type series struct {
	name string
	rows []int
}

// splitSeries groups the rows of t by the values of the color and
// shape columns, in order of first appearance.
func splitSeries(t *table.Table, colorCol, shapeCol string) []series {
	var colors, shapes []string
	if colorCol != "" {
		colors = frame.Strings(t, colorCol)
	}
	if shapeCol != "" {
		shapes = frame.Strings(t, shapeCol)
	}
	type key struct{ c, s string }
	index := make(map[key]int)
	var out []series
	for i := 0; i < t.Len(); i++ {
		var k key
		if colors != nil {
			k.c = colors[i]
		}
		if shapes != nil {
			k.s = shapes[i]
		}
		j, ok := index[k]
		if !ok {
			j = len(out)
			index[k] = j
			out = append(out, series{name: k.c})
		}
		out[j].rows = append(out[j].rows, i)
	}
	return out
}

// points returns the finite (x, y) points of rows.
func points(xs, ys []float64, rows []int) plotter.XYs {
	pts := make(plotter.XYs, 0, len(rows))
	for _, i := range rows {
		x, y := xs[i], ys[i]
		if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: x, Y: y})
	}
	return pts
}

func gonumPlot(fig *Figure) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fig.Title
	p.X.Label.Text = fig.XLabel
	p.Y.Label.Text = fig.YLabel
	if p.X.Label.Text == "" {
		p.X.Label.Text = fig.Layers[0].X
	}
	if p.Y.Label.Text == "" {
		p.Y.Label.Text = fig.Layers[0].Y
	}

	// Series colors are shared across layers, so a hue has the same
	// color in, for example, a scatter layer and a fit layer.
	colors := make(map[string]color.Color)
	colorOf := func(name string) color.Color {
		c, ok := colors[name]
		if !ok {
			c = plotutil.Color(len(colors))
			colors[name] = c
		}
		return c
	}
	legend := make(map[string]bool)

	for i := range fig.Layers {
		l := &fig.Layers[i]
		t := table.Flatten(fig.layerData(l))
		xs, err := frame.Floats(t, l.X)
		if err != nil {
			return nil, err
		}
		ys, err := frame.Floats(t, l.Y)
		if err != nil {
			return nil, err
		}

		if l.Mark == Tiles {
			if err := addTiles(p, t, l, xs, ys); err != nil {
				return nil, err
			}
			continue
		}

		for _, s := range splitSeries(t, l.Color, l.Shape) {
			pts := points(xs, ys, s.rows)
			if len(pts) == 0 {
				continue
			}
			c := color.Color(color.Black)
			if l.Color != "" {
				c = colorOf(s.name)
			} else if l.Mark == Polygons {
				c = polygonFill
			}

			var thumb plot.Thumbnailer
			switch l.Mark {
			case Points:
				sc, err := plotter.NewScatter(pts)
				if err != nil {
					return nil, err
				}
				sc.GlyphStyle.Color = c
				sc.GlyphStyle.Shape = draw.CircleGlyph{}
				sc.GlyphStyle.Radius = vg.Points(2)
				p.Add(sc)
				thumb = sc

			case Lines, Steps:
				sort.Stable(byX(pts))
				ln, err := plotter.NewLine(pts)
				if err != nil {
					return nil, err
				}
				ln.LineStyle.Color = c
				ln.LineStyle.Width = vg.Points(1.5)
				if l.Mark == Steps {
					ln.StepStyle = plotter.PostStep
				}
				p.Add(ln)
				thumb = ln

			case Polygons:
				poly, err := plotter.NewPolygon(pts)
				if err != nil {
					return nil, err
				}
				poly.Color = c
				poly.LineStyle.Color = color.Black
				poly.LineStyle.Width = vg.Points(0.5)
				p.Add(poly)
				thumb = poly
			}
			if l.Color != "" && !legend[s.name] {
				legend[s.name] = true
				p.Legend.Add(s.name, thumb)
			}
		}
	}

	if fig.XLim != nil {
		p.X.Min, p.X.Max = fig.XLim[0], fig.XLim[1]
	}
	if fig.YLim != nil {
		p.Y.Min, p.Y.Max = fig.YLim[0], fig.YLim[1]
	}
	if fig.XTicks != nil {
		p.X.Tick.Marker = constantTicks(fig.XTicks)
	}
	if fig.YTicks != nil {
		p.Y.Tick.Marker = constantTicks(fig.YTicks)
	}
	return p, nil
}

// addTiles draws one unit square per row, colored by l.Color.
func addTiles(p *plot.Plot, t *table.Table, l *Layer, xs, ys []float64) error {
	vs, err := frame.Floats(t, l.Color)
	if err != nil {
		return err
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		if !math.IsNaN(v) {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	for i, v := range vs {
		if math.IsNaN(v) || math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		x, y := xs[i], ys[i]
		poly, err := plotter.NewPolygon(plotter.XYs{
			{X: x - 0.5, Y: y - 0.5}, {X: x + 0.5, Y: y - 0.5},
			{X: x + 0.5, Y: y + 0.5}, {X: x - 0.5, Y: y + 0.5},
		})
		if err != nil {
			return err
		}
		frac := 0.5
		if hi > lo {
			frac = (v - lo) / (hi - lo)
		}
		poly.Color = tileGradient.Map(frac)
		poly.LineStyle.Width = 0
		p.Add(poly)
	}
	return nil
}

func constantTicks(ticks []Tick) plot.ConstantTicks {
	out := make(plot.ConstantTicks, len(ticks))
	for i, t := range ticks {
		out[i] = plot.Tick{Value: t.Value, Label: t.Label}
	}
	return out
}

type byX plotter.XYs

func (s byX) Len() int           { return len(s) }
func (s byX) Less(i, j int) bool { return s[i].X < s[j].X }
func (s byX) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
