// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads tabpipe's YAML configuration file.
//
// A configuration file sets defaults that command-line flags
// override:
//
//	format: csv        # input format, csv or tsv
//	na: NA             # missing value token
//	delimiter: "--"    # pipeline stage separator
//	log_level: info    # debug, info, warn or error
//	log_format: text   # text or json
//	plot:
//	  width: 640       # pixels
//	  height: 480
//	  dpi: 100
//	  format: svg      # svg, png or pdf
//	  prefix: plot     # default plot file name prefix
//
// Unknown keys are an error.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aclements/tabpipe/internal/render"
	"github.com/aclements/tabpipe/internal/tabio"
	"gopkg.in/yaml.v3"
)

// Config is the contents of a configuration file.
type Config struct {
	Format    string `yaml:"format"`
	NA        string `yaml:"na"`
	Delimiter string `yaml:"delimiter"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	Plot      Plot   `yaml:"plot"`
}

// Plot holds defaults for the plotting commands.
type Plot struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	DPI    int    `yaml:"dpi"`
	Format string `yaml:"format"`
	Prefix string `yaml:"prefix"`
}

// Log levels and formats.
var (
	LogLevels  = []string{"debug", "info", "warn", "error"}
	LogFormats = []string{"text", "json"}
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Format:    tabio.CSV,
		NA:        tabio.DefaultNA,
		Delimiter: "--",
		LogLevel:  "info",
		LogFormat: "text",
		Plot: Plot{
			Width:  render.DefaultWidth,
			Height: render.DefaultHeight,
			DPI:    render.DefaultDPI,
			Format: render.SVG,
			Prefix: "plot",
		},
	}
}

// An Error reports a malformed configuration file.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// DefaultPath returns $XDG_CONFIG_HOME/tabpipe/config.yaml, or ""
// if there is no user configuration directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tabpipe", "config.yaml")
}

// Load reads the configuration file at path. Settings the file does
// not mention keep their default values. If path is "", Load reads
// DefaultPath if it exists and returns Default otherwise.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
		if path == "" {
			return Default(), nil
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &Error{path, err}
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, &Error{path, err}
	}
	return cfg, nil
}

// Parse parses the contents of a configuration file.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every setting of c has a legal value.
func (c Config) Validate() error {
	if err := oneOf("format", c.Format, tabio.ReadFormats); err != nil {
		return err
	}
	if err := oneOf("log_level", c.LogLevel, LogLevels); err != nil {
		return err
	}
	if err := oneOf("log_format", c.LogFormat, LogFormats); err != nil {
		return err
	}
	if err := oneOf("plot.format", c.Plot.Format, render.Formats); err != nil {
		return err
	}
	if c.Delimiter == "" {
		return fmt.Errorf("delimiter must not be empty")
	}
	if c.NA == "" {
		return fmt.Errorf("na must not be empty")
	}
	if c.Plot.Prefix == "" {
		return fmt.Errorf("plot.prefix must not be empty")
	}
	for _, v := range []struct {
		name string
		val  int
	}{{"plot.width", c.Plot.Width}, {"plot.height", c.Plot.Height}, {"plot.dpi", c.Plot.DPI}} {
		if v.val <= 0 {
			return fmt.Errorf("%s must be positive, got %d", v.name, v.val)
		}
	}
	return nil
}

func oneOf(key, val string, allowed []string) error {
	for _, a := range allowed {
		if val == a {
			return nil
		}
	}
	return fmt.Errorf("%s is %q, want one of %s", key, val, strings.Join(allowed, ", "))
}
