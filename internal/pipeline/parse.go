// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline turns a command line into a sequence of configured
// command stages and runs a table through them.
package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aclements/tabpipe/internal/command"
	"github.com/aclements/tabpipe/internal/schema"
	"github.com/kballard/go-shellquote"
)

// DefaultDelimiter separates the segments of a pipeline.
const DefaultDelimiter = "--"

// ErrEmptyPipeline is returned by Parse when no command is given.
var ErrEmptyPipeline = errors.New("no commands given")

// A HelpRequest is returned by Parse when a segment asks for help.
type HelpRequest struct {
	Command command.Command
}

func (h *HelpRequest) Error() string {
	return fmt.Sprintf("help requested for %s", h.Command.Info().Name)
}

// A Stage is one configured command in a pipeline.
type Stage struct {
	// Name is the command name that selected this stage.
	Name string
	// Args are the raw argument tokens of the segment, without the
	// command name.
	Args   []string
	Info   command.Info
	Runner command.Runner
}

// A Pipeline is the ordered sequence of stages built from one command
// line.
type Pipeline struct {
	Stages []Stage
	delim  string
}

// String returns p as a shell-quoted command line.
func (p *Pipeline) String() string {
	var words []string
	for i, st := range p.Stages {
		if i > 0 {
			words = append(words, p.delim)
		}
		words = append(words, st.Name)
		words = append(words, st.Args...)
	}
	return shellquote.Join(words...)
}

// Source reports whether p's first stage produces its own table.
func (p *Pipeline) Source() bool {
	return len(p.Stages) > 0 && p.Stages[0].Info.Source
}

// Parse builds a Pipeline from args, which are split into segments at
// each delim token. The first token of a segment names a command in
// reg; the rest are parsed against that command's schema.
//
// Parsing is all or nothing. Parse returns ErrEmptyPipeline if args
// is empty, a *schema.ParseError with reason EmptySegment for a
// leading, trailing or repeated delimiter, a
// *command.UnknownCommandError for an unregistered command name, a
// *HelpRequest if a segment contains -h or --help, and otherwise the
// first *schema.ParseError of any segment.
func Parse(reg *command.Registry, args []string, delim string) (*Pipeline, error) {
	if delim == "" {
		delim = DefaultDelimiter
	}
	if len(args) == 0 {
		return nil, ErrEmptyPipeline
	}

	segs, err := split(args, delim)
	if err != nil {
		return nil, err
	}

	// Resolve every command name before parsing any arguments, so an
	// unknown command is reported no matter where it appears.
	cmds := make([]command.Command, len(segs))
	for i, seg := range segs {
		c, err := reg.Lookup(seg[0])
		if err != nil {
			return nil, err
		}
		cmds[i] = c
	}

	p := &Pipeline{delim: delim}
	for i, seg := range segs {
		c := cmds[i]
		s := schema.New(seg[0])
		runner := c.Configure(s)
		if err := s.Parse(seg[1:]); err != nil {
			if err == schema.ErrHelp {
				return nil, &HelpRequest{c}
			}
			return nil, err
		}
		p.Stages = append(p.Stages, Stage{
			Name:   seg[0],
			Args:   seg[1:],
			Info:   c.Info(),
			Runner: runner,
		})
	}
	return p, nil
}

// split divides args into non-empty segments at each delim.
func split(args []string, delim string) ([][]string, error) {
	var segs [][]string
	start := 0
	for i := 0; i <= len(args); i++ {
		if i < len(args) && args[i] != delim {
			continue
		}
		if i == start {
			var where string
			switch {
			case i == 0:
				where = "at the start of the pipeline"
			case i == len(args):
				where = "at the end of the pipeline"
			default:
				where = fmt.Sprintf("after %s", strings.Join(args[:i], " "))
			}
			return nil, &schema.ParseError{
				Flag:   delim,
				Reason: schema.EmptySegment,
				Msg:    fmt.Sprintf("empty command segment %s (token %d)", where, i+1),
			}
		}
		segs = append(segs, args[start:i])
		start = i + 1
	}
	return segs, nil
}
