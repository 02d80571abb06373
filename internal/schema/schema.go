// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package schema declares the arguments a pipeline command accepts
// and turns a command's raw argument tokens into typed values.
//
// A Schema is used much like a flag.FlagSet: the command binds each
// flag to a variable it owns, then Parse validates the raw tokens and
// stores the results. Unlike flag.FlagSet, a Schema understands list
// flags that consume several tokens (-c a b c), closed sets of legal
// values, required flags and mutually exclusive groups, and it
// reports every failure as a *ParseError carrying a Reason code.
//
// Schemas are composed by calling several declaration functions on
// the same Schema. Declaring a name twice is a programming error,
// recorded as a *DefinitionError and reported by Err and Parse.
package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrHelp is returned by Parse if -h or --help is present.
var ErrHelp = errors.New("help requested")

type kind int

const (
	kindString kind = iota
	kindStrings
	kindInt
	kindFloat
	kindFloats
	kindBool
	kindChoice
	kindOptFloat
)

type flagDef struct {
	name, short string
	kind        kind
	usage       string
	def         string   // default, as shown in help
	choices     []string // for kindChoice
	count       int      // for kindFloats: exact number of values
	required    bool

	// set stores one parsed token. For list flags it is called
	// once per token.
	set func(string) error
	// setBare is called for flags given without a value
	// (booleans and optional-valued flags).
	setBare func()
	// reset clears list values before the first token of a
	// Parse is stored.
	reset func()
}

func (f *flagDef) display() string {
	if f.short != "" {
		return "-" + f.short + "/--" + f.name
	}
	return "--" + f.name
}

type group struct {
	names []string
	exact bool // exactly one, rather than at most one
}

type positional struct {
	metavar, usage string
	required       bool
	p              *string
	seen           bool
}

// A Schema describes the arguments of one command.
type Schema struct {
	command string
	flags   []*flagDef
	byName  map[string]*flagDef
	byShort map[string]*flagDef
	groups  []group
	checks  []func() error
	pos     *positional

	defErr error
	seen   map[string]bool
}

// New returns an empty Schema for the named command.
func New(command string) *Schema {
	return &Schema{
		command: command,
		byName:  make(map[string]*flagDef),
		byShort: make(map[string]*flagDef),
	}
}

// Command returns the name of the command s describes.
func (s *Schema) Command() string {
	return s.command
}

// Err returns the first definition error recorded while declaring
// s's flags, or nil.
func (s *Schema) Err() error {
	return s.defErr
}

func (s *Schema) defFail(flag, format string, args ...interface{}) {
	if s.defErr == nil {
		s.defErr = &DefinitionError{s.command, flag, fmt.Sprintf(format, args...)}
	}
}

func (s *Schema) define(f *flagDef) {
	if f.name == "" || strings.HasPrefix(f.name, "-") {
		s.defFail(f.name, "invalid flag name %q", f.name)
		return
	}
	if f.name == "help" || f.short == "h" {
		s.defFail(f.name, "-h/--help is reserved")
		return
	}
	if _, ok := s.byName[f.name]; ok {
		s.defFail(f.name, "flag --%s declared twice", f.name)
		return
	}
	if f.short != "" {
		if len(f.short) != 1 {
			s.defFail(f.name, "short name %q of --%s must be one character", f.short, f.name)
			return
		}
		if other, ok := s.byShort[f.short]; ok {
			s.defFail(f.name, "short flag -%s of --%s already used by --%s", f.short, f.name, other.name)
			return
		}
		s.byShort[f.short] = f
	}
	s.byName[f.name] = f
	s.flags = append(s.flags, f)
}

// String declares a single-valued string flag.
func (s *Schema) String(p *string, name, short, def, usage string) {
	*p = def
	s.define(&flagDef{
		name: name, short: short, kind: kindString, usage: usage, def: def,
		set: func(v string) error { *p = v; return nil },
	})
}

// Strings declares a list flag. Each occurrence consumes every
// following token up to the next flag and appends them to *p.
func (s *Schema) Strings(p *[]string, name, short, usage string) {
	*p = nil
	s.define(&flagDef{
		name: name, short: short, kind: kindStrings, usage: usage,
		set:   func(v string) error { *p = append(*p, v); return nil },
		reset: func() { *p = nil },
	})
}

// Int declares an integer flag.
func (s *Schema) Int(p *int, name, short string, def int, usage string) {
	*p = def
	s.define(&flagDef{
		name: name, short: short, kind: kindInt, usage: usage, def: strconv.Itoa(def),
		set: func(v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%q is not an integer", v)
			}
			*p = n
			return nil
		},
	})
}

// Float declares a floating-point flag.
func (s *Schema) Float(p *float64, name, short string, def float64, usage string) {
	*p = def
	s.define(&flagDef{
		name: name, short: short, kind: kindFloat, usage: usage, def: formatFloat(def),
		set: func(v string) error {
			x, err := parseFloat(v)
			if err != nil {
				return err
			}
			*p = x
			return nil
		},
	})
}

// Floats declares a flag that takes exactly n numeric values, such as
// an axis range "--xlim 0 10". If the flag is absent, *p is nil.
func (s *Schema) Floats(p *[]float64, name, short string, n int, usage string) {
	*p = nil
	s.define(&flagDef{
		name: name, short: short, kind: kindFloats, usage: usage, count: n,
		set: func(v string) error {
			x, err := parseFloat(v)
			if err != nil {
				return err
			}
			*p = append(*p, x)
			return nil
		},
		reset: func() { *p = nil },
	})
}

// Bool declares a boolean flag. It is false unless the flag is given.
func (s *Schema) Bool(p *bool, name, short, usage string) {
	*p = false
	s.define(&flagDef{
		name: name, short: short, kind: kindBool, usage: usage,
		set: func(v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%q is not a boolean", v)
			}
			*p = b
			return nil
		},
		setBare: func() { *p = true },
	})
}

// Choice declares a string flag whose value must be one of choices.
// def may be "" to indicate no default.
func (s *Schema) Choice(p *string, name, short, def string, choices []string, usage string) {
	*p = def
	if def != "" && indexOf(choices, def) < 0 {
		s.defFail(name, "default %q of --%s is not one of its choices", def, name)
	}
	s.define(&flagDef{
		name: name, short: short, kind: kindChoice, usage: usage, def: def,
		choices: choices,
		set:     func(v string) error { *p = v; return nil },
	})
}

// OptionalFloat declares a flag that may be given with or without a
// value. Given bare, it stores konst. *set reports whether the flag
// was given at all.
func (s *Schema) OptionalFloat(p *float64, set *bool, name, short string, konst float64, usage string) {
	*p, *set = konst, false
	s.define(&flagDef{
		name: name, short: short, kind: kindOptFloat, usage: usage, def: formatFloat(konst),
		set: func(v string) error {
			x, err := parseFloat(v)
			if err != nil {
				return err
			}
			*p, *set = x, true
			return nil
		},
		setBare: func() { *p, *set = konst, true },
	})
}

// Positional declares the command's single positional argument.
func (s *Schema) Positional(p *string, metavar, usage string, required bool) {
	if s.pos != nil {
		s.defFail(metavar, "positional argument declared twice")
		return
	}
	*p = ""
	s.pos = &positional{metavar: metavar, usage: usage, required: required, p: p}
}

// Required marks the named flags as required.
func (s *Schema) Required(names ...string) {
	for _, name := range names {
		if f, ok := s.byName[name]; ok {
			f.required = true
		} else {
			s.defFail(name, "required flag --%s is not declared", name)
		}
	}
}

// Exclusive declares that at most one of the named flags may be given.
func (s *Schema) Exclusive(names ...string) {
	s.addGroup(names, false)
}

// OneOf declares that exactly one of the named flags must be given.
func (s *Schema) OneOf(names ...string) {
	s.addGroup(names, true)
}

func (s *Schema) addGroup(names []string, exact bool) {
	if len(names) < 2 {
		s.defFail(strings.Join(names, ","), "a flag group needs at least two flags")
		return
	}
	for _, name := range names {
		if _, ok := s.byName[name]; !ok {
			s.defFail(name, "grouped flag --%s is not declared", name)
			return
		}
	}
	s.groups = append(s.groups, group{names, exact})
}

// Check registers a validation function that runs after a successful
// Parse. It is meant for constraints on declared arguments that do
// not depend on the data, such as a count being positive. A
// non-*ParseError error is reported with reason BadValue.
func (s *Schema) Check(fn func() error) {
	s.checks = append(s.checks, fn)
}

// Errorf returns a *ParseError for flag name in s with reason BadValue.
// It is a convenience for Check functions.
func (s *Schema) Errorf(name, format string, args ...interface{}) error {
	return s.fail(BadValue, name, format, args...)
}

// IsSet reports whether the named flag was given in the last Parse.
func (s *Schema) IsSet(name string) bool {
	return s.seen[name]
}

func (s *Schema) fail(reason Reason, flag, format string, args ...interface{}) *ParseError {
	return &ParseError{Command: s.command, Flag: flag, Reason: reason, Msg: fmt.Sprintf(format, args...)}
}

// Parse validates args against s and stores the values in the
// variables bound to each flag. It returns ErrHelp if the arguments
// ask for help, a *DefinitionError if s itself is malformed, and a
// *ParseError for any problem with args.
func (s *Schema) Parse(args []string) error {
	if s.defErr != nil {
		return s.defErr
	}
	s.seen = make(map[string]bool)
	for _, arg := range args {
		if arg == "-h" || arg == "--help" {
			return ErrHelp
		}
	}

	if err := s.scan(args); err != nil {
		// A missing required flag is reported ahead of any other
		// problem.
		if f := s.missingFlag(args); f != nil {
			return s.fail(MissingRequired, f.name, "missing required flag %s", f.display())
		}
		return err
	}

	for _, f := range s.flags {
		if f.required && !s.seen[f.name] {
			return s.fail(MissingRequired, f.name, "missing required flag %s", f.display())
		}
	}
	if s.pos != nil && s.pos.required && !s.pos.seen {
		return s.fail(MissingRequired, "", "missing required argument %s", s.pos.metavar)
	}
	for _, g := range s.groups {
		var given []string
		for _, name := range g.names {
			if s.seen[name] {
				given = append(given, s.byName[name].display())
			}
		}
		if len(given) > 1 {
			return s.fail(ExclusiveConflict, g.names[0], "%s cannot be used together", joinOr(given, "and"))
		}
		if g.exact && len(given) == 0 {
			var all []string
			for _, name := range g.names {
				all = append(all, s.byName[name].display())
			}
			return s.fail(MissingRequired, g.names[0], "one of %s is required", joinOr(all, "or"))
		}
	}
	for _, check := range s.checks {
		if err := check(); err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				return perr
			}
			return s.fail(BadValue, "", "%s", err)
		}
	}
	return nil
}

// scan applies each token of args in turn and stops at the first
// problem.
func (s *Schema) scan(args []string) error {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !isFlag(arg) {
			if s.pos != nil && !s.pos.seen {
				*s.pos.p, s.pos.seen = arg, true
				continue
			}
			return s.fail(UnexpectedArgument, "", "unexpected argument %q", arg)
		}
		name, value, hasValue := splitFlag(arg)
		f := s.lookup(name)
		if f == nil {
			return s.fail(UnknownFlag, name, "unknown flag %s", name)
		}
		n, err := s.apply(f, value, hasValue, args[i+1:])
		if err != nil {
			return err
		}
		s.seen[f.name] = true
		i += n
	}
	return nil
}

// lookup returns the flag named by a "-x" or "--name" token.
func (s *Schema) lookup(name string) *flagDef {
	if strings.HasPrefix(name, "--") {
		return s.byName[name[2:]]
	}
	return s.byShort[name[1:]]
}

// missingFlag returns the first required flag that no token of args
// names, or nil.
func (s *Schema) missingFlag(args []string) *flagDef {
	named := make(map[string]bool)
	for _, arg := range args {
		if !isFlag(arg) {
			continue
		}
		name, _, _ := splitFlag(arg)
		if f := s.lookup(name); f != nil {
			named[f.name] = true
		}
	}
	for _, f := range s.flags {
		if f.required && !named[f.name] {
			return f
		}
	}
	return nil
}

// apply stores the value(s) of flag f. value/hasValue come from an
// "--name=value" token; rest are the tokens following the flag. It
// returns how many tokens of rest it consumed.
func (s *Schema) apply(f *flagDef, value string, hasValue bool, rest []string) (int, error) {
	bad := func(err error) error {
		return s.fail(BadType, f.name, "invalid value for %s: %v", f.display(), err)
	}

	switch f.kind {
	case kindBool:
		if hasValue {
			if err := f.set(value); err != nil {
				return 0, bad(err)
			}
		} else {
			f.setBare()
		}
		return 0, nil

	case kindOptFloat:
		if hasValue {
			if err := f.set(value); err != nil {
				return 0, bad(err)
			}
			return 0, nil
		}
		if len(rest) > 0 && !isFlag(rest[0]) {
			if _, err := parseFloat(rest[0]); err == nil {
				f.set(rest[0])
				return 1, nil
			}
		}
		f.setBare()
		return 0, nil

	case kindStrings, kindFloats:
		if !s.seen[f.name] {
			f.reset()
		}
		var vals []string
		if hasValue {
			vals = append(vals, value)
		}
		n := 0
		for ; n < len(rest) && !isFlag(rest[n]); n++ {
			if f.kind == kindFloats && len(vals) == f.count {
				break
			}
			vals = append(vals, rest[n])
		}
		if len(vals) == 0 {
			return 0, s.fail(MissingValue, f.name, "flag %s needs at least one value", f.display())
		}
		if f.kind == kindFloats && len(vals) != f.count {
			return 0, s.fail(MissingValue, f.name, "flag %s needs %d values", f.display(), f.count)
		}
		if f.kind == kindFloats && s.seen[f.name] {
			f.reset()
		}
		for _, v := range vals {
			if err := f.set(v); err != nil {
				return 0, bad(err)
			}
		}
		return n, nil
	}

	n := 0
	if !hasValue {
		if len(rest) == 0 || isFlag(rest[0]) {
			return 0, s.fail(MissingValue, f.name, "flag %s needs a value", f.display())
		}
		value, n = rest[0], 1
	}
	if f.kind == kindChoice && indexOf(f.choices, value) < 0 {
		return 0, s.fail(BadChoice, f.name, "invalid value %q for %s: allowed values are %s",
			value, f.display(), strings.Join(f.choices, ", "))
	}
	if err := f.set(value); err != nil {
		return 0, bad(err)
	}
	return n, nil
}

// isFlag reports whether arg looks like a flag rather than a value.
// Negative numbers are values.
func isFlag(arg string) bool {
	if len(arg) < 2 || arg[0] != '-' || arg == "--" {
		return false
	}
	if _, err := strconv.ParseFloat(arg, 64); err == nil {
		return false
	}
	return true
}

// splitFlag splits "--name=value" into "--name", "value".
func splitFlag(arg string) (name, value string, hasValue bool) {
	if i := strings.IndexByte(arg, '='); i >= 0 {
		return arg[:i], arg[i+1:], true
	}
	return arg, "", false
}

func parseFloat(v string) (float64, error) {
	x, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", v)
	}
	return x, nil
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

func indexOf(xs []string, x string) int {
	for i, y := range xs {
		if x == y {
			return i
		}
	}
	return -1
}

// joinOr joins names as "a, b and c".
func joinOr(names []string, conj string) string {
	if len(names) == 1 {
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " " + conj + " " + names[len(names)-1]
}
