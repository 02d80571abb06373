// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schema

import "fmt"

// Reason classifies a ParseError.
type Reason string

const (
	MissingRequired    Reason = "missing_required"
	UnknownFlag        Reason = "unknown_flag"
	BadType            Reason = "bad_type"
	ExclusiveConflict  Reason = "exclusive_conflict"
	BadChoice          Reason = "bad_choice"
	BadValue           Reason = "bad_value"
	MissingValue       Reason = "missing_value"
	UnexpectedArgument Reason = "unexpected_argument"

	// EmptySegment is used by the pipeline parser for a delimiter
	// with no command on one side of it.
	EmptySegment Reason = "empty_segment"
)

// A ParseError reports invalid command-line input.
type ParseError struct {
	// Command is the command whose arguments were being parsed.
	// It is "" for errors in the structure of the pipeline itself.
	Command string

	// Flag is the long name of the offending flag, if any.
	Flag string

	Reason Reason
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Command == "" {
		return e.Msg
	}
	return e.Command + ": " + e.Msg
}

// A DefinitionError reports a malformed schema, such as a flag name
// declared twice. It is a programming error, not a user error.
type DefinitionError struct {
	Command string
	Flag    string
	Msg     string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("schema for %s: %s", e.Command, e.Msg)
}
