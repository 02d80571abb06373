// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"context"

	"github.com/aclements/go-gg/table"
	"github.com/aclements/tabpipe/internal/command"
	"github.com/aclements/tabpipe/internal/config"
	"github.com/aclements/tabpipe/internal/render"
	"github.com/aclements/tabpipe/internal/schema"
	"github.com/aclements/tabpipe/internal/tabio"
)

func ioCommands(cfg config.Config) []command.Command {
	return []command.Command{
		&cmd{
			info: command.Info{
				Name:        "in",
				Description: "Read the table from a CSV or TSV file.",
				Category:    command.CategoryIO,
				Source:      true,
			},
			configure: func(s *schema.Schema) command.Runner { return configureIn(s, cfg) },
		},
		&cmd{
			info: command.Info{
				Name:        "out",
				Description: "Write the table to a file and continue.",
				Category:    command.CategoryIO,
			},
			configure: configureOut,
		},
		&cmd{
			info: command.Info{
				Name:        "stdout",
				Description: "Write the table to standard output and stop.",
				Category:    command.CategoryIO,
			},
			configure: configureStdout,
		},
	}
}

// naFlag declares --na. An empty value means the pipeline's token.
func naFlag(s *schema.Schema, p *string) {
	s.String(p, "na", "", "", "`TOKEN` for missing values (default: the global --na)")
}

func textOptions(env *command.Env, format, na string) tabio.Options {
	if na == "" {
		na = env.NA
	}
	return tabio.Options{Format: format, NA: na}
}

func configureIn(s *schema.Schema, cfg config.Config) command.Runner {
	var o struct {
		file, format, na string
	}
	s.Positional(&o.file, "FILE", "input file, or - for standard input", true)
	s.Choice(&o.format, "format", "f", "", tabio.ReadFormats, "input format (default: from the file name, else the global --format)")
	naFlag(s, &o.na)

	return command.RunnerFunc(func(ctx context.Context, env *command.Env, _ *table.Table) (*table.Table, error) {
		format := o.format
		if format == "" && tabio.FormatOf(o.file) == "" {
			format = cfg.Format
		}
		t, err := tabio.ReadFile(o.file, textOptions(env, format, o.na))
		if err != nil {
			return nil, err
		}
		env.Logger.Debug("read table", "file", o.file, "rows", t.Len(), "columns", len(t.Columns()))
		return t, nil
	})
}

func configureOut(s *schema.Schema) command.Runner {
	var o struct {
		file, prefix, format, na string
	}
	s.String(&o.file, "out", "o", "", "write to `FILE` (default PREFIX.FORMAT, numbered to be unique)")
	s.String(&o.prefix, "prefix", "", "out", "`PREFIX` of the generated file name")
	s.Choice(&o.format, "format", "f", "", tabio.WriteFormats, "output format (default: from the file name, else csv)")
	naFlag(s, &o.na)

	return command.RunnerFunc(func(ctx context.Context, env *command.Env, t *table.Table) (*table.Table, error) {
		opts := textOptions(env, o.format, o.na)
		path := o.file
		if path == "" {
			format := o.format
			if format == "" {
				format = tabio.CSV
			}
			opts.Format = format
			var err error
			path, err = render.UniquePath(o.prefix, format)
			if err != nil {
				return nil, &tabio.Error{Op: "write", Path: o.prefix, Err: err}
			}
		}
		if err := tabio.WriteFile(path, t, opts); err != nil {
			return nil, err
		}
		env.Produced(path)
		env.Logger.Info("wrote table", "file", path, "rows", t.Len())
		return t, nil
	})
}

func configureStdout(s *schema.Schema) command.Runner {
	var o struct {
		format, na string
	}
	s.Choice(&o.format, "format", "f", tabio.CSV, tabio.ReadFormats, "output format")
	naFlag(s, &o.na)

	return command.RunnerFunc(func(ctx context.Context, env *command.Env, t *table.Table) (*table.Table, error) {
		if err := tabio.Write(env.Stdout, t, textOptions(env, o.format, o.na)); err != nil {
			return nil, err
		}
		return nil, command.ErrHalt
	})
}
