// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package command

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/agext/levenshtein"
	"github.com/aclements/tabpipe/internal/schema"
)

// maxSuggestDistance is the largest edit distance at which Lookup
// suggests a registered name.
const maxSuggestDistance = 2

// A Registry maps command names to commands. It is filled once at
// startup and only read afterwards.
type Registry struct {
	cmds map[string]Command
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{cmds: make(map[string]Command)}
}

// Register adds c to r. It returns a *ConfigError if c's name is
// already registered or if c declares a malformed schema. The schema
// is built once here so that definition mistakes surface at startup
// rather than when a user first invokes the command.
func (r *Registry) Register(c Command) error {
	info := c.Info()
	if info.Name == "" || strings.ContainsAny(info.Name, " \t\n") || strings.HasPrefix(info.Name, "-") {
		return &ConfigError{info.Name, fmt.Errorf("invalid command name")}
	}
	if _, ok := r.cmds[info.Name]; ok {
		return &ConfigError{info.Name, fmt.Errorf("command already registered")}
	}
	s := schema.New(info.Name)
	c.Configure(s)
	if err := s.Err(); err != nil {
		return &ConfigError{info.Name, err}
	}
	r.cmds[info.Name] = c
	return nil
}

// MustRegister is like Register, but panics on error.
func (r *Registry) MustRegister(cs ...Command) {
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the command registered as name. If there is none,
// it returns an *UnknownCommandError suggesting similar names.
func (r *Registry) Lookup(name string) (Command, error) {
	if c, ok := r.cmds[name]; ok {
		return c, nil
	}
	return nil, &UnknownCommandError{Name: name, Suggestions: r.suggest(name)}
}

func (r *Registry) suggest(name string) []string {
	type cand struct {
		name string
		dist int
	}
	var cands []cand
	for other := range r.cmds {
		d := levenshtein.Distance(name, other, nil)
		if d <= maxSuggestDistance || (len(name) >= 2 && strings.HasPrefix(other, name)) {
			cands = append(cands, cand{other, d})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].name < cands[j].name
	})
	var out []string
	for _, c := range cands {
		out = append(out, c.name)
	}
	return out
}

// Commands returns the names of all registered commands, sorted.
func (r *Registry) Commands() []string {
	names := make([]string, 0, len(r.cmds))
	for name := range r.cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Categories returns the registered command names grouped by
// category. Known categories come first in a fixed order; any others
// follow alphabetically.
func (r *Registry) Categories() (cats []string, byCat map[string][]string) {
	byCat = make(map[string][]string)
	for _, name := range r.Commands() {
		cat := r.cmds[name].Info().Category
		byCat[cat] = append(byCat[cat], name)
	}
	var extra []string
	for cat := range byCat {
		if indexOf(categoryOrder, cat) < 0 {
			extra = append(extra, cat)
		}
	}
	sort.Strings(extra)
	for _, cat := range append(categoryOrder[:len(categoryOrder):len(categoryOrder)], extra...) {
		if len(byCat[cat]) > 0 {
			cats = append(cats, cat)
		}
	}
	return cats, byCat
}

// PrintCommands writes the registered commands, grouped by category,
// with their descriptions.
func (r *Registry) PrintCommands(w io.Writer) {
	cats, byCat := r.Categories()
	for i, cat := range cats {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s:\n", cat)
		tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
		for _, name := range byCat[cat] {
			fmt.Fprintf(tw, "  %s\t%s\n", name, r.cmds[name].Info().Description)
		}
		tw.Flush()
	}
}

// Usage writes the help for command c.
func Usage(w io.Writer, c Command) {
	info := c.Info()
	s := schema.New(info.Name)
	c.Configure(s)
	if info.Description != "" {
		fmt.Fprintf(w, "%s: %s\n\n", info.Name, info.Description)
	}
	s.Usage(w)
}

func indexOf(xs []string, x string) int {
	for i, y := range xs {
		if x == y {
			return i
		}
	}
	return -1
}
