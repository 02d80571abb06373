// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package render draws figures of tabular data to image files.
//
// A Figure is a backend-neutral description of a plot: the data, a
// stack of layers, optional facets, and axis settings. SVG output is
// produced by go-gg. PNG and PDF output is produced by gonum/plot,
// which does not support facets.
package render

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/aclements/go-gg/table"
	"github.com/aclements/tabpipe/internal/frame"
)

// Formats.
const (
	SVG = "svg"
	PNG = "png"
	PDF = "pdf"
)

// Formats lists the supported output formats.
var Formats = []string{SVG, PNG, PDF}

// Default output size.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
	DefaultDPI    = 100
)

// Mark is the kind of mark a Layer draws.
type Mark int

const (
	// Points draws a point at each row.
	Points Mark = iota
	// Lines connects the rows of each series in X order.
	Lines
	// Steps is like Lines, but connects rows with a horizontal
	// then a vertical segment.
	Steps
	// Polygons draws a filled polygon through the rows of each
	// shape, in row order.
	Polygons
	// Tiles draws a rectangle centered on each row, filled by a
	// continuous color scale over the Color column.
	Tiles
)

func (m Mark) String() string {
	switch m {
	case Points:
		return "points"
	case Lines:
		return "lines"
	case Steps:
		return "steps"
	case Polygons:
		return "polygons"
	case Tiles:
		return "tiles"
	}
	return fmt.Sprintf("Mark(%d)", int(m))
}

// A Layer is one set of marks in a Figure.
type Layer struct {
	Mark Mark

	// Data is the layer's own data. If nil, the layer draws the
	// Figure's Data.
	Data table.Grouping

	// X and Y name the position columns.
	X, Y string

	// Color optionally names a column that splits the rows into
	// series, each drawn in its own color. For Tiles, Color is
	// required and must be numeric.
	Color string

	// Shape optionally names a column that further splits each
	// series into separate paths or polygons, such as the bars of
	// a histogram.
	Shape string
}

// A Tick labels a position on an axis.
type Tick struct {
	Value float64
	Label string
}

// A Figure describes a complete plot.
type Figure struct {
	Data   table.Grouping
	Layers []Layer

	// FacetRow and FacetCol optionally name columns that split
	// the figure into a grid of subplots. Facets require every
	// layer to draw the Figure's Data.
	FacetRow, FacetCol string
	// FreeScales gives each facet row its own Y scale and each
	// facet column its own X scale.
	FreeScales bool

	Title, XLabel, YLabel string

	// XLim and YLim, if non-nil, are the [lo, hi] axis ranges.
	XLim, YLim []float64

	// XTicks and YTicks, if non-nil, label integer positions of
	// an axis, for categorical data drawn at positions 0, 1, ....
	XTicks, YTicks []Tick

	// LogX and LogY plot the base-10 logarithm of the X or Y
	// columns of every layer. Non-positive values are dropped.
	LogX, LogY bool
}

// Options control how a Figure is written.
type Options struct {
	// Format is one of SVG, PNG or PDF. If empty, it is derived
	// from the file name, defaulting to SVG.
	Format string
	// Width and Height are the image size in pixels.
	Width, Height int
	// DPI is the resolution of raster output.
	DPI int
}

func (o Options) withDefaults(path string) Options {
	if o.Format == "" {
		o.Format = FormatOf(path)
		if o.Format == "" {
			o.Format = SVG
		}
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.DPI <= 0 {
		o.DPI = DefaultDPI
	}
	return o
}

// FormatOf returns the format implied by path's extension, or "".
func FormatOf(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, f := range Formats {
		if ext == f {
			return f
		}
	}
	return ""
}

// An Error reports a failure to render a figure.
type Error struct {
	Path string // output file, or ""
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return "render: " + e.Err.Error()
	}
	return fmt.Sprintf("render %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Render draws fig to w.
func Render(w io.Writer, fig *Figure, opts Options) error {
	if err := render(w, fig, opts.withDefaults("")); err != nil {
		return &Error{"", err}
	}
	return nil
}

// WriteFile draws fig to the named file. If drawing fails, the
// partial file is removed.
func WriteFile(path string, fig *Figure, opts Options) (err error) {
	opts = opts.withDefaults(path)
	if err := fig.check(opts); err != nil {
		return &Error{path, err}
	}
	f, err := os.Create(path)
	if err != nil {
		return &Error{path, err}
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = &Error{path, cerr}
		}
		if err != nil {
			os.Remove(path)
		}
	}()
	if err := render(f, fig, opts); err != nil {
		return &Error{path, err}
	}
	return nil
}

func render(w io.Writer, fig *Figure, opts Options) (err error) {
	if err := fig.check(opts); err != nil {
		return err
	}
	fig = fig.transformed()

	// The plotting libraries report some malformed input by
	// panicking.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	switch opts.Format {
	case SVG:
		return writeSVG(w, fig, opts)
	case PNG, PDF:
		return writeRaster(w, fig, opts)
	}
	return fmt.Errorf("unsupported format %q", opts.Format)
}

// layerData returns the data drawn by layer l of fig.
func (fig *Figure) layerData(l *Layer) table.Grouping {
	if l.Data != nil {
		return l.Data
	}
	return fig.Data
}

// check validates fig for output with opts.
func (fig *Figure) check(opts Options) error {
	if len(fig.Layers) == 0 {
		return fmt.Errorf("figure has no layers")
	}
	facets := fig.FacetRow != "" || fig.FacetCol != ""
	if facets && opts.Format != SVG {
		return fmt.Errorf("faceted figures can only be written as %s", SVG)
	}
	for _, lim := range [][]float64{fig.XLim, fig.YLim} {
		if lim != nil && (len(lim) != 2 || !(lim[0] < lim[1])) {
			return fmt.Errorf("axis range %v must be two increasing numbers", lim)
		}
	}
	if (fig.LogX && fig.XLim != nil && fig.XLim[0] <= 0) || (fig.LogY && fig.YLim != nil && fig.YLim[0] <= 0) {
		return fmt.Errorf("log axis range must be positive")
	}
	rows := 0
	for i := range fig.Layers {
		l := &fig.Layers[i]
		if facets && l.Data != nil {
			return fmt.Errorf("faceted figures cannot have per-layer data")
		}
		g := fig.layerData(l)
		if g == nil {
			return fmt.Errorf("%s layer has no data", l.Mark)
		}
		t := table.Flatten(g)
		cols := []string{l.X, l.Y}
		for _, c := range []string{l.Color, l.Shape} {
			if c != "" {
				cols = append(cols, c)
			}
		}
		if facets {
			for _, c := range []string{fig.FacetRow, fig.FacetCol} {
				if c != "" {
					cols = append(cols, c)
				}
			}
		}
		if err := frame.Require(t, cols...); err != nil {
			return err
		}
		numeric := []string{}
		if fig.XLim != nil || fig.XTicks != nil || fig.LogX || opts.Format != SVG {
			numeric = append(numeric, l.X)
		}
		if fig.YLim != nil || fig.YTicks != nil || fig.LogY || opts.Format != SVG {
			numeric = append(numeric, l.Y)
		}
		if l.Mark == Tiles {
			if l.Color == "" {
				return fmt.Errorf("tiles need a color column")
			}
			numeric = append(numeric, l.Color)
		}
		if err := frame.RequireKind(t, frame.Numeric, numeric...); err != nil {
			return err
		}
		rows += t.Len()
	}
	if rows == 0 {
		return fmt.Errorf("nothing to plot")
	}
	return nil
}

// transformed returns fig with log scales applied to its data.
func (fig *Figure) transformed() *Figure {
	if !fig.LogX && !fig.LogY {
		return fig
	}
	nf := *fig
	nf.Layers = append([]Layer(nil), fig.Layers...)
	var shared []string
	for i := range nf.Layers {
		l := &nf.Layers[i]
		cols := logCols(fig, l)
		if l.Data == nil {
			shared = append(shared, cols...)
		} else {
			l.Data = log10Cols(l.Data, cols)
		}
	}
	if nf.Data != nil {
		nf.Data = log10Cols(nf.Data, shared)
	}
	if fig.LogX && fig.XLim != nil {
		nf.XLim = []float64{math.Log10(fig.XLim[0]), math.Log10(fig.XLim[1])}
	}
	if fig.LogY && fig.YLim != nil {
		nf.YLim = []float64{math.Log10(fig.YLim[0]), math.Log10(fig.YLim[1])}
	}
	nf.XLabel = logLabel(fig.LogX, fig.XLabel, fig.Layers[0].X)
	nf.YLabel = logLabel(fig.LogY, fig.YLabel, fig.Layers[0].Y)
	return &nf
}

func logCols(fig *Figure, l *Layer) []string {
	var cols []string
	if fig.LogX {
		cols = append(cols, l.X)
	}
	if fig.LogY {
		cols = append(cols, l.Y)
	}
	return cols
}

func logLabel(log bool, label, col string) string {
	if !log {
		return label
	}
	if label == "" {
		label = col
	}
	return "log10 " + label
}

func log10Cols(g table.Grouping, cols []string) table.Grouping {
	if len(cols) == 0 {
		return g
	}
	return table.MapTables(g, func(_ table.GroupID, t *table.Table) *table.Table {
		b := table.NewBuilder(t)
		done := make(map[string]bool)
		for _, col := range cols {
			if done[col] {
				continue
			}
			done[col] = true
			xs, err := frame.Floats(t, col)
			if err != nil {
				continue
			}
			out := make([]float64, len(xs))
			for i, x := range xs {
				if x > 0 {
					out[i] = math.Log10(x)
				} else {
					out[i] = math.NaN()
				}
			}
			b.Add(col, out)
		}
		return b.Done()
	})
}

// OutputPath returns the file a plotting command should write. If out
// is non-empty, it is used as is. Otherwise the name is
// prefix.command.format, numbered prefix.command.N.format if that
// file already exists.
func OutputPath(out, prefix, command, format string) (string, error) {
	if out != "" {
		return out, nil
	}
	return UniquePath(prefix+"."+command, format)
}

// UniquePath returns base.ext, or the first base.N.ext that does not
// exist.
func UniquePath(base, ext string) (string, error) {
	path := base + "." + ext
	for n := 1; n < 10000; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		} else if err != nil {
			return "", err
		}
		path = fmt.Sprintf("%s.%d.%s", base, n, ext)
	}
	return "", fmt.Errorf("too many files named %s.*.%s", base, ext)
}
