// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import (
	"fmt"
	"strings"

	"github.com/aclements/go-gg/table"
)

// A ColumnError reports that a table does not satisfy what a command
// needs from it: a referenced column is absent, has the wrong kind,
// or a selection left nothing to work on.
type ColumnError struct {
	// Columns are the offending column names, if any.
	Columns []string
	Msg     string
}

func (e *ColumnError) Error() string {
	return e.Msg
}

// Errorf returns a *ColumnError about cols.
func Errorf(cols []string, format string, args ...interface{}) *ColumnError {
	return &ColumnError{Columns: cols, Msg: fmt.Sprintf(format, args...)}
}

// Require returns a *ColumnError naming every one of cols that t
// does not have, or nil if t has them all.
func Require(t *table.Table, cols ...string) error {
	var missing []string
	for _, col := range cols {
		if t.Column(col) == nil {
			missing = append(missing, col)
		}
	}
	switch len(missing) {
	case 0:
		return nil
	case 1:
		return Errorf(missing, "no column named %q", missing[0])
	}
	return Errorf(missing, "no columns named %s", quoteList(missing))
}

// RequireKind is like Require, but also requires each of cols to be
// of kind k.
func RequireKind(t *table.Table, k Kind, cols ...string) error {
	if err := Require(t, cols...); err != nil {
		return err
	}
	for _, col := range cols {
		if got := KindOf(t, col); got != k {
			return Errorf([]string{col}, "column %q is %s, not %s", col, got, k)
		}
	}
	return nil
}

func quoteList(xs []string) string {
	q := make([]string, len(xs))
	for i, x := range xs {
		q[i] = fmt.Sprintf("%q", x)
	}
	return strings.Join(q, ", ")
}
