// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package command

import (
	"fmt"
	"strings"
)

// A ConfigError reports a command that cannot be registered: its name
// is taken or its argument schema is malformed.
type ConfigError struct {
	Name string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("registering command %q: %v", e.Name, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// An UnknownCommandError reports a pipeline segment naming a command
// that is not registered.
type UnknownCommandError struct {
	Name string
	// Suggestions are registered names close to Name.
	Suggestions []string
}

func (e *UnknownCommandError) Error() string {
	msg := fmt.Sprintf("unknown command %q", e.Name)
	switch len(e.Suggestions) {
	case 0:
	case 1:
		msg += fmt.Sprintf("; did you mean %q?", e.Suggestions[0])
	default:
		msg += "; did you mean one of " + strings.Join(e.Suggestions, ", ") + "?"
	}
	return msg
}
