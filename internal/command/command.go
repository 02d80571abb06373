// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package command defines pipeline commands and the registry that
// maps command names to them.
//
// A command is a named pipeline stage with its own argument grammar.
// For each pipeline segment that names it, the command's Configure
// method is called with a fresh schema.Schema: the command declares
// its flags on the schema, binding them to a private options value,
// and returns the Runner that will later consume those options.
package command

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/aclements/go-gg/table"
	"github.com/aclements/tabpipe/internal/schema"
)

// Categories of commands, in the order help lists them.
const (
	CategoryIO        = "input/output"
	CategoryTransform = "transformation"
	CategorySummary   = "summary information"
	CategoryPlot      = "plotting"
)

var categoryOrder = []string{CategoryIO, CategoryTransform, CategorySummary, CategoryPlot}

// Info describes a command.
type Info struct {
	// Name selects the command in a pipeline. It is unique within
	// a Registry.
	Name string
	// Description is a one-line summary for help output.
	Description string
	// Category groups commands in help output.
	Category string
	// Source indicates the command produces a table of its own and
	// does not consume the table it is given, so a pipeline that
	// starts with it needs no input.
	Source bool
}

// A Command is one kind of pipeline stage.
type Command interface {
	Info() Info

	// Configure declares the command's arguments on s and returns
	// the Runner that uses the values s parses. Each call must bind
	// a new options value, so several stages of the same command
	// do not share state.
	Configure(s *schema.Schema) Runner
}

// A Runner runs one configured pipeline stage.
//
// Run returns the table for the next stage. It must not modify t.
// To stop the pipeline successfully, for example after writing the
// final output, Run returns ErrHalt. Any other error fails the
// pipeline. Run must check everything it needs from t before it
// produces any side effect.
type Runner interface {
	Run(ctx context.Context, env *Env, t *table.Table) (*table.Table, error)
}

// RunnerFunc adapts a function to a Runner.
type RunnerFunc func(ctx context.Context, env *Env, t *table.Table) (*table.Table, error)

func (f RunnerFunc) Run(ctx context.Context, env *Env, t *table.Table) (*table.Table, error) {
	return f(ctx, env, t)
}

// ErrHalt is returned by a Runner to stop the pipeline successfully.
var ErrHalt = errors.New("halt")

// Env is the environment shared by the stages of one pipeline run.
type Env struct {
	// Stdout receives table and summary output.
	Stdout io.Writer
	// Logger receives diagnostics. It is never nil.
	Logger *slog.Logger
	// NA is the token that represents a missing value in text
	// formats.
	NA string

	produced []string
}

// NewEnv returns an Env writing to stdout and logging to logger. If
// logger is nil, diagnostics are discarded.
func NewEnv(stdout io.Writer, logger *slog.Logger, na string) *Env {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Env{Stdout: stdout, Logger: logger, NA: na}
}

// Produced records that the running stage wrote file path.
func (e *Env) Produced(path string) {
	e.produced = append(e.produced, path)
}

// Files returns the files recorded by Produced, in order.
func (e *Env) Files() []string {
	return append([]string(nil), e.produced...)
}
