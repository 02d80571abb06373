// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"time"
	"unicode"

	"github.com/aclements/go-gg/table"
	"github.com/aclements/tabpipe/internal/command"
	"github.com/aclements/tabpipe/internal/frame"
	"github.com/aclements/tabpipe/internal/schema"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// maxExprSteps bounds the work of evaluating an expression on one
// row.
const maxExprSteps = 100000

// An expr is a Starlark expression evaluated once per table row.
//
// Each column whose name is a valid identifier is bound to the row's
// value in that column. Every column is also available through the
// dict "row", keyed by column name. Missing values are None.
type expr struct {
	src  string
	opts *syntax.FileOptions
	e    syntax.Expr
}

func compileExpr(src string) (*expr, error) {
	opts := &syntax.FileOptions{}
	e, err := opts.ParseExpr("expr", src, 0)
	if err != nil {
		return nil, err
	}
	return &expr{src, opts, e}, nil
}

// exprFlag declares -e/--expr and compiles it after parsing.
func exprFlag(s *schema.Schema, p **expr, usage string) {
	var src string
	s.String(&src, "expr", "e", "", usage)
	s.Required("expr")
	s.Check(func() error {
		e, err := compileExpr(src)
		if err != nil {
			return s.Errorf("expr", "invalid expression %q: %v", src, err)
		}
		*p = e
		return nil
	})
}

// eval evaluates e on every row of t and calls fn with each result.
func (e *expr) eval(ctx context.Context, t *table.Table, fn func(row int, v starlark.Value) error) error {
	cols := t.Columns()
	seqs := make([]reflect.Value, len(cols))
	for i, c := range cols {
		seqs[i] = reflect.ValueOf(t.MustColumn(c))
	}
	for i := 0; i < t.Len(); i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		env := make(starlark.StringDict, len(cols)+1)
		row := starlark.NewDict(len(cols))
		for j, c := range cols {
			v := toStarlark(seqs[j].Index(i).Interface())
			if isIdent(c) {
				env[c] = v
			}
			row.SetKey(starlark.String(c), v)
		}
		row.Freeze()
		env["row"] = row

		thread := &starlark.Thread{Name: "expr"}
		thread.SetMaxExecutionSteps(maxExprSteps)
		v, err := starlark.EvalExprOptions(e.opts, thread, e.e, env)
		if err != nil {
			return frame.Errorf(nil, "row %d: evaluating %q: %v", i+1, e.src, err)
		}
		if err := fn(i, v); err != nil {
			return err
		}
	}
	return nil
}

var keywords = map[string]bool{
	"and": true, "break": true, "continue": true, "def": true, "elif": true,
	"else": true, "for": true, "if": true, "in": true, "lambda": true,
	"load": true, "not": true, "or": true, "pass": true, "return": true,
	"while": true,
}

// isIdent reports whether name can be used as a Starlark variable.
func isIdent(name string) bool {
	if name == "" || name == "row" || keywords[name] {
		return false
	}
	for i, r := range name {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

func toStarlark(v interface{}) starlark.Value {
	if frame.IsMissing(v) {
		return starlark.None
	}
	switch v := v.(type) {
	case string:
		return starlark.String(v)
	case int:
		return starlark.MakeInt(v)
	case int64:
		return starlark.MakeInt64(v)
	case float64:
		return starlark.Float(v)
	case float32:
		return starlark.Float(v)
	case bool:
		return starlark.Bool(v)
	case time.Time:
		return starlark.String(v.Format(time.RFC3339))
	}
	return starlark.String(fmt.Sprint(v))
}

func configureFilter(s *schema.Schema) command.Runner {
	var e *expr
	exprFlag(s, &e, "keep rows where Python-like `EXPR` is true, such as 'x > 2 and kind == \"a\"'")

	return command.RunnerFunc(func(ctx context.Context, env *command.Env, t *table.Table) (*table.Table, error) {
		var keep []int
		err := e.eval(ctx, t, func(row int, v starlark.Value) error {
			if v.Truth() {
				keep = append(keep, row)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return frame.Rows(t, keep), nil
	})
}

func configureMutate(s *schema.Schema) command.Runner {
	var o struct {
		name string
		e    *expr
	}
	s.String(&o.name, "name", "n", "", "`NAME` of the new column")
	s.Required("name")
	exprFlag(s, &o.e, "compute each row's value with `EXPR`, such as 'x * 2'")

	return command.RunnerFunc(func(ctx context.Context, env *command.Env, t *table.Table) (*table.Table, error) {
		vals := make([]starlark.Value, t.Len())
		err := o.e.eval(ctx, t, func(row int, v starlark.Value) error {
			vals[row] = v
			return nil
		})
		if err != nil {
			return nil, err
		}
		col, err := fromStarlark(vals)
		if err != nil {
			return nil, frame.Errorf([]string{o.name}, "column %q: %v", o.name, err)
		}
		return table.NewBuilder(t).Add(o.name, col).Done(), nil
	})
}

// fromStarlark converts expression results to a column. Integers give
// an []int column, numbers a []float64 column and strings a []string
// column. None is a missing value.
func fromStarlark(vals []starlark.Value) (interface{}, error) {
	var ints, floats, strs, bools, nones int
	for _, v := range vals {
		switch v.(type) {
		case starlark.Int:
			ints++
		case starlark.Float:
			floats++
		case starlark.String:
			strs++
		case starlark.Bool:
			bools++
		case starlark.NoneType:
			nones++
		default:
			return nil, fmt.Errorf("expression returned a %s", v.Type())
		}
	}
	switch {
	case strs > 0 && ints+floats+bools > 0:
		return nil, fmt.Errorf("expression returned both strings and numbers")
	case strs > 0 || len(vals) == nones:
		out := make([]string, len(vals))
		for i, v := range vals {
			if s, ok := starlark.AsString(v); ok {
				out[i] = s
			}
		}
		return out, nil
	case floats == 0 && nones == 0:
		// Every value is an Int or Bool. Integers too large for an
		// int give a []float64 column instead.
		if out, ok := asInts(vals); ok {
			return out, nil
		}
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		switch v := v.(type) {
		case starlark.NoneType:
			out[i] = math.NaN()
		case starlark.Bool:
			if v {
				out[i] = 1
			}
		default:
			f, _ := starlark.AsFloat(v)
			out[i] = f
		}
	}
	return out, nil
}

// asInts converts Int and Bool values to ints. It returns false if
// some Int does not fit in an int.
func asInts(vals []starlark.Value) ([]int, bool) {
	out := make([]int, len(vals))
	for i, v := range vals {
		if b, ok := v.(starlark.Bool); ok {
			if b {
				out[i] = 1
			}
			continue
		}
		if err := starlark.AsInt(v, &out[i]); err != nil {
			return nil, false
		}
	}
	return out, true
}
