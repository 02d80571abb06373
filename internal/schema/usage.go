// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schema

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// unquoteUsage extracts a back-quoted name from usage and returns it
// with the quotes removed, as flag.UnquoteUsage does. If there is no
// back-quoted name, the name is derived from the flag's kind.
func unquoteUsage(f *flagDef) (name, usage string) {
	usage = f.usage
	if i := strings.IndexByte(usage, '`'); i >= 0 {
		if j := strings.IndexByte(usage[i+1:], '`'); j >= 0 {
			name = usage[i+1 : i+1+j]
			return name, usage[:i] + name + usage[i+1+j+1:]
		}
	}
	switch f.kind {
	case kindInt:
		name = "int"
	case kindFloat, kindOptFloat, kindFloats:
		name = "num"
	case kindChoice:
		name = "{" + strings.Join(f.choices, ",") + "}"
	case kindBool:
		name = ""
	default:
		name = "string"
	}
	return name, usage
}

// Usage writes a description of s's arguments to w.
func (s *Schema) Usage(w io.Writer) {
	synopsis := s.command + " [flags]"
	if s.pos != nil {
		if s.pos.required {
			synopsis += " " + s.pos.metavar
		} else {
			synopsis += " [" + s.pos.metavar + "]"
		}
	}
	fmt.Fprintf(w, "Usage: %s\n", synopsis)
	if len(s.flags) == 0 && s.pos == nil {
		return
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	if s.pos != nil {
		fmt.Fprintf(tw, "  %s\t%s\n", s.pos.metavar, s.pos.usage)
	}
	for _, f := range s.flags {
		name, usage := unquoteUsage(f)
		lead := "    "
		if f.short != "" {
			lead = "-" + f.short + ", "
		}
		lead += "--" + f.name
		switch {
		case name == "":
		case f.kind == kindStrings:
			lead += " " + name + "..."
		case f.kind == kindFloats:
			lead += strings.Repeat(" "+name, f.count)
		case f.kind == kindOptFloat:
			lead += " [" + name + "]"
		default:
			lead += " " + name
		}
		var notes []string
		if f.required {
			notes = append(notes, "required")
		}
		if f.kind == kindChoice && !strings.HasPrefix(name, "{") {
			notes = append(notes, "allowed: "+strings.Join(f.choices, ", "))
		}
		if f.def != "" && f.def != "0" {
			if f.kind == kindOptFloat {
				notes = append(notes, "value if bare: "+f.def)
			} else {
				notes = append(notes, "default: "+f.def)
			}
		}
		if len(notes) > 0 {
			usage += " (" + strings.Join(notes, "; ") + ")"
		}
		fmt.Fprintf(tw, "  %s\t%s\n", lead, usage)
	}
	tw.Flush()

	for _, g := range s.groups {
		var names []string
		for _, name := range g.names {
			names = append(names, s.byName[name].display())
		}
		if g.exact {
			fmt.Fprintf(w, "\nExactly one of %s is required.\n", joinOr(names, "or"))
		} else {
			fmt.Fprintf(w, "\nAt most one of %s may be given.\n", joinOr(names, "or"))
		}
	}
}
