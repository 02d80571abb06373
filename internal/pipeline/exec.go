// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aclements/go-gg/table"
	"github.com/aclements/tabpipe/internal/command"
	"github.com/aclements/tabpipe/internal/frame"
)

// State is the state of an Executor.
type State int

const (
	Ready State = iota
	Running
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// A StageError reports the failure of one pipeline stage.
type StageError struct {
	// Index is the 0-based position of the failed stage.
	Index int
	Name  string
	// Completed are the names of the stages that finished before
	// the failure.
	Completed []string
	// Produced are the files written before the failure. They are
	// left in place.
	Produced []string
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %d (%s): %v", e.Index+1, e.Name, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// A Report summarizes what a pipeline run did.
type Report struct {
	State State
	// Stages are the names of the stages that ran, in order,
	// including a stage that halted or failed.
	Stages []string
	// Files are the files the stages wrote.
	Files []string
}

// An Executor runs a table through a Pipeline. An Executor runs at
// most one pipeline.
type Executor struct {
	env    *command.Env
	state  State
	ran    []string
	halted bool
}

// NewExecutor returns an Executor whose stages share env.
func NewExecutor(env *command.Env) *Executor {
	return &Executor{env: env}
}

// State returns the current state of e.
func (e *Executor) State() State {
	return e.state
}

// Halted reports whether a stage stopped the pipeline early.
func (e *Executor) Halted() bool {
	return e.halted
}

// Report returns a summary of the stages run so far.
func (e *Executor) Report() Report {
	return Report{
		State:  e.state,
		Stages: append([]string(nil), e.ran...),
		Files:  e.env.Files(),
	}
}

// Run feeds t through the stages of p in order and returns the table
// produced by the last stage that continued.
//
// Run stops at the first stage that halts or fails. A halt leaves e
// Succeeded and returns the table as it was before the halting stage.
// A failure leaves e Failed and returns a *StageError. ctx is checked
// before each stage; stages are never interrupted midway.
func (e *Executor) Run(ctx context.Context, p *Pipeline, t *table.Table) (*table.Table, error) {
	if e.state != Ready {
		return nil, fmt.Errorf("executor already %s", e.state)
	}
	e.state = Running
	log := e.env.Logger
	if t == nil {
		t = frame.Empty()
	}

	for i, st := range p.Stages {
		if err := ctx.Err(); err != nil {
			return nil, e.fail(i, st, err)
		}
		log.Debug("stage start", "stage", i+1, "command", st.Name, "rows", t.Len(), "columns", len(t.Columns()))
		start := time.Now()
		e.ran = append(e.ran, st.Name)
		next, err := runStage(ctx, st, e.env, t)
		if errors.Is(err, command.ErrHalt) {
			log.Debug("stage halted pipeline", "stage", i+1, "command", st.Name, "elapsed", time.Since(start))
			e.state, e.halted = Succeeded, true
			return t, nil
		}
		if err == nil && next == nil {
			err = frame.Errorf(nil, "stage returned no table")
		}
		if err != nil {
			return nil, e.fail(i, st, err)
		}
		log.Debug("stage done", "stage", i+1, "command", st.Name, "elapsed", time.Since(start))
		t = next
	}
	e.state = Succeeded
	return t, nil
}

// runStage runs one stage, turning a panic into an error.
func runStage(ctx context.Context, st Stage, env *command.Env, t *table.Table) (next *table.Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			next, err = nil, fmt.Errorf("internal error: %v", r)
		}
	}()
	return st.Runner.Run(ctx, env, t)
}

func (e *Executor) fail(i int, st Stage, err error) error {
	e.state = Failed
	completed := e.ran
	if len(completed) > i {
		completed = completed[:i]
	}
	return &StageError{
		Index:     i,
		Name:      st.Name,
		Completed: append([]string(nil), completed...),
		Produced:  e.env.Files(),
		Err:       err,
	}
}
