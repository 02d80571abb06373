// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command tabpipe runs a table through a pipeline of commands.
//
// Usage:
//
//	tabpipe [flags] COMMAND [ARGS] [-- COMMAND [ARGS]]...
//
// Each COMMAND transforms, summarizes, plots or writes the table it is
// given and passes a table on to the next. For example,
//
//	tabpipe -i iris.csv cut -c petal_length petal_width -- kmeans -n 3 -- scatter -x petal_length -y petal_width --hue cluster
//
// reads iris.csv, keeps two columns, clusters the rows and plots the
// result to plot.scatter.svg.
//
// Unless the first command reads its own input (in), the initial table
// is read from -i, or standard input. Run "tabpipe --help" for the list
// of commands and "tabpipe COMMAND --help" for the flags of one.
//
// Defaults for the global flags and the plotting commands are read from
// $XDG_CONFIG_HOME/tabpipe/config.yaml if it exists.
//
// Exit status is 0 on success, 1 for configuration and internal
// errors, 2 for invalid command lines, 3 for unknown commands, 4 when
// the table lacks what a command needs, 5 for I/O errors, 6 for
// rendering errors and 130 if interrupted.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"strings"
	"syscall"

	"github.com/aclements/go-gg/table"
	"github.com/aclements/tabpipe/internal/command"
	"github.com/aclements/tabpipe/internal/commands"
	"github.com/aclements/tabpipe/internal/config"
	"github.com/aclements/tabpipe/internal/frame"
	"github.com/aclements/tabpipe/internal/pipeline"
	"github.com/aclements/tabpipe/internal/render"
	"github.com/aclements/tabpipe/internal/schema"
	"github.com/aclements/tabpipe/internal/tabio"
	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// Exit codes.
const (
	exitOK          = 0
	exitError       = 1
	exitUsage       = 2
	exitUnknown     = 3
	exitColumns     = 4
	exitIO          = 5
	exitRender      = 6
	exitInterrupted = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// flags are the global command-line flags.
type flags struct {
	input      string
	format     string
	na         string
	delimiter  string
	config     string
	script     string
	dryRun     bool
	logLevel   string
	logFormat  string
	cpuProfile string
	memProfile string
}

// A usageError is a problem with the global flags.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

// run runs tabpipe with the given arguments and returns its exit
// status. Errors are logged to stderr.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	log.SetPrefix("tabpipe: ")
	log.SetFlags(0)
	log.SetOutput(stderr)
	var f flags
	root := &cobra.Command{
		Use:           "tabpipe [flags] COMMAND [ARGS] [-- COMMAND [ARGS]]...",
		Short:         "Run a table through a pipeline of commands.",
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.run(cmd, args, stdin, stdout, stderr)
		},
	}
	if args == nil {
		// cobra falls back to os.Args for nil.
		args = []string{}
	}
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	f.register(root.Flags())
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})

	root.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(stdout, "%s\n\nUsage:\n  %s\n\nFlags:\n%s\nCommands:\n\n", cmd.Short, cmd.Use, cmd.Flags().FlagUsages())
		cfg, err := f.loadConfig()
		if err != nil {
			cfg = config.Default()
		}
		reg := command.NewRegistry()
		commands.Register(reg, cfg)
		reg.PrintCommands(stdout)
		fmt.Fprintf(stdout, "\nRun 'tabpipe COMMAND --help' for the flags of a command.\n")
	})

	err := root.ExecuteContext(ctx)
	code := exitCode(err)
	if code == exitOK {
		return code
	}
	report(err)
	if errors.Is(err, pipeline.ErrEmptyPipeline) {
		fmt.Fprintf(stderr, "Usage: %s\nRun 'tabpipe --help' for more information.\n", root.Use)
	}
	return code
}

// register declares the global flags on fs. Parsing stops at the
// first command name.
func (f *flags) register(fs *pflag.FlagSet) {
	fs.SetInterspersed(false)
	fs.StringVarP(&f.input, "input", "i", "-", "read the initial table from `FILE` (- for stdin)")
	fs.StringVarP(&f.format, "format", "f", "", "input format, csv or tsv (default from the file name, else csv)")
	fs.StringVar(&f.na, "na", "", "`TOKEN` for missing values (default NA)")
	fs.StringVar(&f.delimiter, "delimiter", "", "`TOKEN` separating commands (default --)")
	fs.StringVar(&f.config, "config", "", "read defaults from `FILE` (default "+config.DefaultPath()+")")
	fs.StringVar(&f.script, "script", "", "read pipeline commands from `FILE` before the command line")
	fs.BoolVar(&f.dryRun, "dry-run", false, "print the parsed pipeline without running it")
	fs.StringVar(&f.logLevel, "log-level", "", "log `level`: "+strings.Join(config.LogLevels, ", ")+" (default info)")
	fs.StringVar(&f.logFormat, "log-format", "", "log `format`: "+strings.Join(config.LogFormats, ", ")+" (default text)")
	fs.StringVar(&f.cpuProfile, "cpuprofile", "", "write CPU profile to `file`")
	fs.StringVar(&f.memProfile, "memprofile", "", "write heap profile to `file`")
}

// loadConfig reads the configuration file and applies the global
// flags on top of it.
func (f *flags) loadConfig() (config.Config, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return cfg, err
	}
	for _, o := range []struct {
		flag string
		dst  *string
	}{
		{f.format, &cfg.Format},
		{f.na, &cfg.NA},
		{f.delimiter, &cfg.Delimiter},
		{f.logLevel, &cfg.LogLevel},
		{f.logFormat, &cfg.LogFormat},
	} {
		if o.flag != "" {
			*o.dst = o.flag
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, &usageError{err}
	}
	return cfg, nil
}

func (f *flags) run(cmd *cobra.Command, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	ctx := cmd.Context()
	cfg, err := f.loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, stderr)

	if f.cpuProfile != "" {
		pf, err := os.Create(f.cpuProfile)
		if err != nil {
			return &usageError{err}
		}
		pprof.StartCPUProfile(pf)
		defer pprof.StopCPUProfile()
	}
	if f.memProfile != "" {
		defer func() {
			runtime.GC()
			pf, err := os.Create(f.memProfile)
			if err != nil {
				log.Print(err)
				return
			}
			pprof.WriteHeapProfile(pf)
			pf.Close()
		}()
	}

	if f.script != "" {
		words, err := readScript(f.script)
		if err != nil {
			return err
		}
		// Commands on the command line continue the script's
		// pipeline.
		if len(words) > 0 && len(args) > 0 && args[0] != cfg.Delimiter {
			words = append(words, cfg.Delimiter)
		}
		args = append(words, args...)
	}

	reg := command.NewRegistry()
	commands.Register(reg, cfg)
	p, err := pipeline.Parse(reg, args, cfg.Delimiter)
	var help *pipeline.HelpRequest
	if errors.As(err, &help) {
		command.Usage(stdout, help.Command)
		return nil
	}
	if err != nil {
		return err
	}
	logger.Debug("parsed pipeline", "pipeline", p.String())
	if f.dryRun {
		fmt.Fprintln(stdout, p.String())
		return nil
	}

	var t *table.Table
	if !p.Source() {
		t, err = f.readInput(stdin, cfg)
		if err != nil {
			return err
		}
	}

	env := command.NewEnv(stdout, logger, cfg.NA)
	exec := pipeline.NewExecutor(env)
	_, err = exec.Run(ctx, p, t)
	r := exec.Report()
	logger.Debug("pipeline finished", "state", r.State, "stages", r.Stages, "files", r.Files, "halted", exec.Halted())
	return err
}

// readInput reads the initial table named by --input.
func (f *flags) readInput(stdin io.Reader, cfg config.Config) (*table.Table, error) {
	opts := tabio.Options{Format: f.format, NA: cfg.NA}
	if opts.Format == "" && tabio.FormatOf(f.input) == "" {
		opts.Format = cfg.Format
	}
	if f.input != "-" {
		return tabio.ReadFile(f.input, opts)
	}
	if in, ok := stdin.(*os.File); ok && term.IsTerminal(int(in.Fd())) {
		return nil, &usageError{fmt.Errorf("no input: standard input is a terminal; use -i FILE or start the pipeline with in")}
	}
	return tabio.Read(stdin, opts)
}

// readScript reads pipeline words from the named file. Lines starting
// with # are comments.
func readScript(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &usageError{err}
	}
	var words []string
	for i, line := range bytes.Split(data, []byte("\n")) {
		s := strings.TrimSpace(string(line))
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		w, err := shellquote.Split(s)
		if err != nil {
			return nil, &usageError{fmt.Errorf("%s:%d: %v", path, i+1, err)}
		}
		words = append(words, w...)
	}
	return words, nil
}

// exitCode returns the exit status for err.
func exitCode(err error) int {
	var (
		usage   *usageError
		perr    *schema.ParseError
		unknown *command.UnknownCommandError
		cerr    *frame.ColumnError
		ioerr   *tabio.Error
		rerr    *render.Error
	)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.As(err, &usage), errors.As(err, &perr), errors.Is(err, pipeline.ErrEmptyPipeline):
		return exitUsage
	case errors.As(err, &unknown):
		return exitUnknown
	case errors.As(err, &cerr):
		return exitColumns
	case errors.As(err, &ioerr):
		return exitIO
	case errors.As(err, &rerr):
		return exitRender
	}
	return exitError
}

// report logs err and, for a failed stage, what the pipeline did
// before it failed.
func report(err error) {
	log.Print(err)
	var serr *pipeline.StageError
	if !errors.As(err, &serr) {
		return
	}
	if len(serr.Completed) > 0 {
		log.Printf("completed stages: %s", strings.Join(serr.Completed, ", "))
	}
	if len(serr.Produced) > 0 {
		log.Printf("files written: %s", strings.Join(serr.Produced, ", "))
	}
}
