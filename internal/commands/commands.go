// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package commands implements tabpipe's pipeline commands.
//
// Each command is a small value that declares its flags on a schema
// and returns a closure over its private options. Flags shared by
// several commands are declared by the fragment functions in this
// file.
package commands

import (
	"fmt"
	"strings"

	"github.com/aclements/go-gg/table"
	"github.com/aclements/tabpipe/internal/command"
	"github.com/aclements/tabpipe/internal/config"
	"github.com/aclements/tabpipe/internal/frame"
	"github.com/aclements/tabpipe/internal/render"
	"github.com/aclements/tabpipe/internal/schema"
)

// cmd is a Command built from its descriptor and a configure
// function.
type cmd struct {
	info      command.Info
	configure func(s *schema.Schema) command.Runner
}

func (c *cmd) Info() command.Info { return c.info }

func (c *cmd) Configure(s *schema.Schema) command.Runner { return c.configure(s) }

// Register registers every command with reg. cfg supplies the
// defaults shown in each command's help.
func Register(reg *command.Registry, cfg config.Config) {
	reg.MustRegister(ioCommands(cfg)...)
	reg.MustRegister(transformCommands()...)
	reg.MustRegister(summaryCommands()...)
	reg.MustRegister(plotCommands(cfg.Plot)...)
}

// columnsFlag declares -c/--columns.
func columnsFlag(s *schema.Schema, p *[]string, usage string) {
	s.Strings(p, "columns", "c", usage)
}

// dedup returns cols without repeated names, keeping the first
// occurrence of each.
func dedup(cols []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range cols {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// numericColumns returns cols, or every numeric column of t if cols
// is empty. Every returned column is checked to be numeric.
func numericColumns(t *table.Table, cols []string) ([]string, error) {
	if len(cols) == 0 {
		cols = frame.NumericColumns(t)
		if len(cols) == 0 {
			return nil, frame.Errorf(nil, "table has no numeric columns")
		}
		return cols, nil
	}
	cols = dedup(cols)
	if err := frame.RequireKind(t, frame.Numeric, cols...); err != nil {
		return nil, err
	}
	return cols, nil
}

// atLeast adds a check that flag name, bound to *p, is at least min.
func atLeast(s *schema.Schema, name string, p *int, min int) {
	s.Check(func() error {
		if *p < min {
			return s.Errorf(name, "--%s must be at least %d, got %d", name, min, *p)
		}
		return nil
	})
}

// plotOptions are the flags shared by every plotting command.
type plotOptions struct {
	s *schema.Schema

	out, prefix           string
	format                string
	width, height, dpi    int
	title, xlabel, ylabel string
	xlim, ylim            []float64
	logx, logy            bool
}

// plotFlags declares the shared plotting flags, with defaults from d.
func plotFlags(s *schema.Schema, o *plotOptions, d config.Plot) {
	o.s = s
	s.String(&o.out, "out", "o", "", "write the plot to `FILE` (default PREFIX.COMMAND.FORMAT)")
	s.String(&o.prefix, "prefix", "", d.Prefix, "`PREFIX` of generated plot file names")
	s.Choice(&o.format, "format", "", d.Format, render.Formats, "graphics format")
	s.Int(&o.width, "width", "", d.Width, "plot width in `pixels`")
	s.Int(&o.height, "height", "", d.Height, "plot height in `pixels`")
	s.Int(&o.dpi, "dpi", "", d.DPI, "resolution of raster formats in `dots` per inch")
	s.String(&o.title, "title", "", "", "plot `TITLE`")
	s.String(&o.xlabel, "xlabel", "", "", "X axis `LABEL`")
	s.String(&o.ylabel, "ylabel", "", "", "Y axis `LABEL`")
	s.Floats(&o.xlim, "xlim", "", 2, "X axis range `LO HI`")
	s.Floats(&o.ylim, "ylim", "", 2, "Y axis range `LO HI`")
	s.Bool(&o.logx, "logx", "", "log scale for the X axis")
	s.Bool(&o.logy, "logy", "", "log scale for the Y axis")
	atLeast(s, "width", &o.width, 1)
	atLeast(s, "height", &o.height, 1)
	atLeast(s, "dpi", &o.dpi, 1)
}

// outputFormat returns the graphics format to write. An explicit
// --format wins; otherwise the extension of --out decides, falling
// back to the configured default.
func (o *plotOptions) outputFormat() string {
	if o.out != "" && !o.s.IsSet("format") {
		if f := render.FormatOf(o.out); f != "" {
			return f
		}
	}
	return o.format
}

// write applies the shared options to fig and writes it to the file
// named by --out or generated from --prefix.
func (o *plotOptions) write(env *command.Env, fig *render.Figure) error {
	if o.title != "" {
		fig.Title = o.title
	}
	if o.xlabel != "" {
		fig.XLabel = o.xlabel
	}
	if o.ylabel != "" {
		fig.YLabel = o.ylabel
	}
	if o.xlim != nil {
		fig.XLim = o.xlim
	}
	if o.ylim != nil {
		fig.YLim = o.ylim
	}
	fig.LogX, fig.LogY = o.logx, o.logy

	format := o.outputFormat()
	path, err := render.OutputPath(o.out, o.prefix, o.s.Command(), format)
	if err != nil {
		return &render.Error{Path: o.out, Err: err}
	}
	opts := render.Options{Format: format, Width: o.width, Height: o.height, DPI: o.dpi}
	if err := render.WriteFile(path, fig, opts); err != nil {
		return err
	}
	env.Produced(path)
	env.Logger.Info("wrote plot", "command", o.s.Command(), "file", path)
	return nil
}

// facetOptions are the --hue, --row and --col flags.
type facetOptions struct {
	hue, row, col string
}

func hueFlag(s *schema.Schema, o *facetOptions) {
	s.String(&o.hue, "hue", "", "", "color by `COLUMN`")
}

func facetFlags(s *schema.Schema, o *facetOptions) {
	hueFlag(s, o)
	s.String(&o.row, "row", "", "", "facet rows by `COLUMN`")
	s.String(&o.col, "col", "", "", "facet columns by `COLUMN`")
}

// columns returns the non-empty column names among o's flags.
func (o *facetOptions) columns() []string {
	return nonEmpty(o.hue, o.row, o.col)
}

func nonEmpty(names ...string) []string {
	var out []string
	for _, n := range names {
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

// usable returns the rows of t restricted to those with no missing
// value in cols, after checking that t has cols.
func usable(t *table.Table, cols ...string) (*table.Table, error) {
	if err := frame.Require(t, cols...); err != nil {
		return nil, err
	}
	idx := frame.CompleteRows(t, cols...)
	if len(idx) == 0 {
		return nil, frame.Errorf(cols, "no rows with values for %s", quoteJoin(cols))
	}
	return frame.Rows(t, idx), nil
}

func quoteJoin(cols []string) string {
	q := make([]string, len(cols))
	for i, c := range cols {
		q[i] = fmt.Sprintf("%q", c)
	}
	return strings.Join(q, ", ")
}
