// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
na: "?"
log_format: json
plot:
  format: png
  dpi: 150
`))
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	want.NA = "?"
	want.LogFormat = "json"
	want.Plot.Format = "png"
	want.Plot.DPI = 150
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("empty file changed defaults:\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	for _, test := range []struct {
		data, want string
	}{
		{"colour: red\n", "colour"},
		{"format: xlsx\n", "format"},
		{"log_level: loud\n", "log_level"},
		{"plot:\n  width: 0\n", "plot.width"},
		{"plot:\n  format: gif\n", "plot.format"},
		{"delimiter: \"\"\n", "delimiter"},
		{"plot: [1, 2]\n", ""},
	} {
		_, err := Parse([]byte(test.data))
		if err == nil {
			t.Errorf("%q: want error", test.data)
			continue
		}
		if !strings.Contains(err.Error(), test.want) {
			t.Errorf("%q: error %q does not mention %q", test.data, err, test.want)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	// No file at the default path.
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg != Default() {
		t.Errorf("Load with no file = %+v, want defaults", cfg)
	}

	path := filepath.Join(dir, "tabpipe", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("delimiter: then\n"), 0666); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Delimiter != "then" {
		t.Errorf("Delimiter = %q, want %q", cfg.Delimiter, "then")
	}

	// An explicit file must exist.
	_, err = Load(filepath.Join(dir, "missing.yaml"))
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Errorf("missing explicit file: want *Error, got %v", err)
	}
}
