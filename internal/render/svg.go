// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"image/color"
	"io"
	"math"

	"github.com/aclements/go-gg/gg"
	"github.com/aclements/go-gg/table"
)

var polygonFill = color.Gray{160}

// writeSVG draws fig with go-gg.
func writeSVG(w io.Writer, fig *Figure, opts Options) error {
	data := fig.Data
	if data == nil {
		data = fig.Layers[0].Data
	}
	p := gg.NewPlot(data)

	if fig.FacetCol != "" {
		p.Add(gg.FacetX{Col: fig.FacetCol, SplitXScales: fig.FreeScales})
	}
	if fig.FacetRow != "" {
		p.Add(gg.FacetY{Col: fig.FacetRow, SplitYScales: fig.FreeScales})
	}
	if s := scaler(fig.XLim, fig.XTicks); s != nil {
		p.SetScale("x", s)
	}
	if s := scaler(fig.YLim, fig.YTicks); s != nil {
		p.SetScale("y", s)
	}

	for i := range fig.Layers {
		addLayer(p, &fig.Layers[i])
	}

	if fig.Title != "" {
		p.Add(gg.Title(fig.Title))
	}
	if fig.XLabel != "" {
		p.Add(gg.AxisLabel("x", fig.XLabel))
	}
	if fig.YLabel != "" {
		p.Add(gg.AxisLabel("y", fig.YLabel))
	}
	return p.WriteSVG(w, opts.Width, opts.Height)
}

// scaler returns a linear scale with the given range and tick labels,
// or nil if neither is set.
func scaler(lim []float64, ticks []Tick) gg.ContinuousScaler {
	if lim == nil && ticks == nil {
		return nil
	}
	s := gg.NewLinearScaler()
	if lim != nil {
		s.SetMin(lim[0]).SetMax(lim[1])
	}
	if ticks != nil {
		labels := make(map[float64]string)
		for _, t := range ticks {
			labels[t.Value] = t.Label
			s.Include(t.Value)
		}
		s.SetFormatter(func(x float64) string {
			if x != math.Trunc(x) {
				return ""
			}
			return labels[x]
		})
	}
	return s
}

func addLayer(p *gg.Plot, l *Layer) {
	defer p.Save().Restore()
	if l.Data != nil {
		p.SetData(l.Data)
	}
	if l.Shape != "" {
		p.SetData(table.GroupBy(p.Data(), l.Shape))
	}

	switch l.Mark {
	case Points:
		p.Add(gg.LayerPoints{X: l.X, Y: l.Y, Color: l.Color})
	case Lines:
		p.Add(gg.LayerLines{X: l.X, Y: l.Y, Color: l.Color})
	case Steps:
		p.Add(gg.LayerSteps{LayerPaths: gg.LayerPaths{X: l.X, Y: l.Y, Color: l.Color}, Step: gg.StepHV})
	case Polygons:
		fill := l.Color
		if fill == "" {
			fill = p.Const(polygonFill)
		}
		p.Add(gg.LayerPaths{X: l.X, Y: l.Y, Fill: fill})
	case Tiles:
		p.Add(gg.LayerTiles{X: l.X, Y: l.Y, Fill: l.Color})
	}
}
