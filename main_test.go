// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testCSV = "a,b\n1,x\n2,y\n3,x\n"

// runMain runs tabpipe with args and stdin and returns its exit status
// and output. It isolates the run from any user configuration file.
func runMain(t *testing.T, stdin string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun(t *testing.T) {
	code, out, stderr := runMain(t, testCSV, "cut", "-c", "a", "--", "stdout")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if want := "a\n1\n2\n3\n"; out != want {
		t.Errorf("stdout = %q, want %q", out, want)
	}
}

func TestRunNA(t *testing.T) {
	code, out, stderr := runMain(t, "a,b\n1,-\n-,y\n", "--na", "-", "dropna", "--", "stdout", "--na", "?")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if want := "a,b\n"; out != want {
		t.Errorf("stdout = %q, want %q", out, want)
	}
}

func TestExitCodes(t *testing.T) {
	dir := t.TempDir()
	for _, test := range []struct {
		args []string
		want int
	}{
		{[]string{"stdout"}, exitOK},
		{[]string{"head", "-n", "1", "--", "stdout", "--", "cut", "-c", "nope"}, exitOK},
		{nil, exitUsage},
		{[]string{"--nosuchflag", "stdout"}, exitUsage},
		{[]string{"cut"}, exitUsage},
		{[]string{"cut", "-c", "a", "--"}, exitUsage},
		{[]string{"--log-level", "loud", "stdout"}, exitUsage},
		{[]string{"cut", "-c", "a", "--", "frobnicate"}, exitUnknown},
		{[]string{"cut", "-c", "nope"}, exitColumns},
		{[]string{"in", filepath.Join(dir, "missing.csv")}, exitIO},
		{[]string{"-i", filepath.Join(dir, "missing.csv"), "stdout"}, exitIO},
		{[]string{"scatter", "-x", "a", "-y", "a", "--col", "b", "-o", filepath.Join(dir, "p.png")}, exitRender},
		{[]string{"--config", filepath.Join(dir, "missing.yaml"), "stdout"}, exitError},
	} {
		code, _, stderr := runMain(t, testCSV, test.args...)
		if code != test.want {
			t.Errorf("%q: exit %d, want %d; stderr:\n%s", test.args, code, test.want, stderr)
		}
		if test.want != exitOK && !strings.HasPrefix(stderr, "tabpipe: ") {
			t.Errorf("%q: stderr %q lacks the program name", test.args, stderr)
		}
	}
}

func TestPartialFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "first.csv")
	code, _, stderr := runMain(t, testCSV, "out", "-o", path, "--", "cut", "-c", "nope")
	if code != exitColumns {
		t.Fatalf("exit %d, want %d", code, exitColumns)
	}
	for _, want := range []string{"stage 2 (cut)", "completed stages: out", "files written: " + path} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr missing %q:\n%s", want, stderr)
		}
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file from the completed stage was removed: %v", err)
	}
}

func TestHelp(t *testing.T) {
	code, out, _ := runMain(t, "", "--help")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	for _, want := range []string{"input/output:", "transformation:", "plotting:", "kmeans", "--delimiter"} {
		if !strings.Contains(out, want) {
			t.Errorf("help missing %q:\n%s", want, out)
		}
	}

	code, out, _ = runMain(t, testCSV, "cut", "-c", "a", "--", "kmeans", "--help")
	if code != 0 {
		t.Fatalf("command help: exit %d", code)
	}
	if !strings.Contains(out, "Usage: kmeans") || !strings.Contains(out, "--nclusters") {
		t.Errorf("kmeans help:\n%s", out)
	}
}

func TestDryRun(t *testing.T) {
	code, out, _ := runMain(t, "", "--dry-run", "--delimiter", "then", "cut", "-c", "a", "b", "then", "stdout")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if want := "cut -c a b then stdout\n"; out != want {
		t.Errorf("dry run printed %q, want %q", out, want)
	}
}

func TestScript(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "pipe.txt")
	data := "# keep column a\ncut -c a\n-- head -n 2\n"
	if err := os.WriteFile(script, []byte(data), 0666); err != nil {
		t.Fatal(err)
	}
	code, out, stderr := runMain(t, testCSV, "--script", script, "stdout")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if want := "a\n1\n2\n"; out != want {
		t.Errorf("stdout = %q, want %q", out, want)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfg, []byte("delimiter: then\nna: \"?\"\n"), 0666); err != nil {
		t.Fatal(err)
	}
	code, out, stderr := runMain(t, "a,b\n?,x\n", "--config", cfg, "cut", "-c", "a", "then", "stdout", "--na", "NULL")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if want := "a\nNULL\n"; out != want {
		t.Errorf("stdout = %q, want %q", out, want)
	}
}
