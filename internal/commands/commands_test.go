// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/aclements/go-gg/table"
	"github.com/aclements/tabpipe/internal/command"
	"github.com/aclements/tabpipe/internal/config"
	"github.com/aclements/tabpipe/internal/frame"
	"github.com/aclements/tabpipe/internal/pipeline"
	"github.com/aclements/tabpipe/internal/schema"
	"github.com/google/go-cmp/cmp"
)

func testRegistry() *command.Registry {
	reg := command.NewRegistry()
	Register(reg, config.Default())
	return reg
}

// result is the outcome of running a pipeline in a test.
type result struct {
	t      *table.Table
	stdout string
	files  []string
	err    error
}

// run parses args as a pipeline and runs in through it. It fails the
// test if args do not parse.
func run(t *testing.T, in *table.Table, args ...string) result {
	t.Helper()
	p, err := pipeline.Parse(testRegistry(), args, "")
	if err != nil {
		t.Fatalf("parsing %q: %v", args, err)
	}
	var stdout bytes.Buffer
	env := command.NewEnv(&stdout, nil, "NA")
	out, err := pipeline.NewExecutor(env).Run(context.Background(), p, in)
	return result{out, stdout.String(), env.Files(), err}
}

// mustRun is like run, but fails the test if the pipeline fails.
func mustRun(t *testing.T, in *table.Table, args ...string) result {
	t.Helper()
	r := run(t, in, args...)
	if r.err != nil {
		t.Fatalf("running %q: %v", args, r.err)
	}
	return r
}

func parseErr(t *testing.T, args ...string) *schema.ParseError {
	t.Helper()
	_, err := pipeline.Parse(testRegistry(), args, "")
	var perr *schema.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("parsing %q: want *schema.ParseError, got %v", args, err)
	}
	return perr
}

func columnErr(t *testing.T, err error) *frame.ColumnError {
	t.Helper()
	var cerr *frame.ColumnError
	if !errors.As(err, &cerr) {
		t.Fatalf("want *frame.ColumnError, got %v", err)
	}
	return cerr
}

func floats(t *testing.T, tab *table.Table, col string) []float64 {
	t.Helper()
	xs, err := frame.Floats(tab, col)
	if err != nil {
		t.Fatal(err)
	}
	return xs
}

func abcTable() *table.Table {
	return new(table.Builder).
		Add("a", []int{1, 2, 3}).
		Add("b", []string{"x", "y", "z"}).
		Add("c", []float64{0.5, 1.5, 2.5}).
		Done()
}

func TestRegister(t *testing.T) {
	reg := testRegistry()
	want := []string{
		"bar", "box", "count", "cut", "describe", "dropna", "ecdf",
		"filter", "head", "heatmap", "hist", "in", "kde", "kmeans",
		"line", "lmplot", "melt", "mutate", "out", "pair", "pivot",
		"pretty", "scatter", "sort", "stdout", "tail", "unique",
	}
	if diff := cmp.Diff(want, reg.Commands()); diff != "" {
		t.Errorf("registered commands (-want +got):\n%s", diff)
	}
	for _, name := range want {
		c, _ := reg.Lookup(name)
		var buf bytes.Buffer
		command.Usage(&buf, c)
		if !strings.Contains(buf.String(), "Usage: "+name) {
			t.Errorf("usage of %s does not mention the command:\n%s", name, buf.String())
		}
	}
}

func TestCut(t *testing.T) {
	in := abcTable()
	r := mustRun(t, in, "cut", "-c", "c", "a")
	if got, want := r.t.Columns(), []string{"c", "a"}; !reflect.DeepEqual(got, want) {
		t.Errorf("columns = %v, want %v", got, want)
	}
	if r.t.Len() != in.Len() {
		t.Errorf("got %d rows, want %d", r.t.Len(), in.Len())
	}
	if got, want := r.t.MustColumn("a"), in.MustColumn("a"); !reflect.DeepEqual(got, want) {
		t.Errorf("column a = %v, want %v", got, want)
	}

	r = run(t, in, "cut", "-c", "a", "nope")
	cerr := columnErr(t, r.err)
	if !reflect.DeepEqual(cerr.Columns, []string{"nope"}) {
		t.Errorf("error names %v, want [nope]", cerr.Columns)
	}
	if got, want := in.Columns(), []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("failed cut changed its input: columns %v", got)
	}
}

func TestCutRequiresColumns(t *testing.T) {
	if perr := parseErr(t, "cut"); perr.Reason != schema.MissingRequired {
		t.Errorf("got reason %s, want %s", perr.Reason, schema.MissingRequired)
	}
}

func TestSortHeadTail(t *testing.T) {
	in := new(table.Builder).
		Add("k", []string{"b", "a", "c", "a"}).
		Add("v", []int{4, 3, 2, 1}).
		Done()

	r := mustRun(t, in, "sort", "-c", "v")
	if got, want := r.t.MustColumn("v"), []int{1, 2, 3, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("sort v = %v, want %v", got, want)
	}
	r = mustRun(t, in, "sort", "-c", "v", "--desc", "--", "head", "-n", "2")
	if got, want := r.t.MustColumn("v"), []int{4, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("sort --desc | head = %v, want %v", got, want)
	}
	r = mustRun(t, in, "tail", "-n", "3")
	if got, want := r.t.MustColumn("k"), []string{"a", "c", "a"}; !reflect.DeepEqual(got, want) {
		t.Errorf("tail = %v, want %v", got, want)
	}
	r = mustRun(t, in, "head", "-n", "10")
	if r.t.Len() != 4 {
		t.Errorf("head beyond the end kept %d rows, want 4", r.t.Len())
	}
	if perr := parseErr(t, "head", "-n", "-1"); perr.Reason != schema.BadValue {
		t.Errorf("head -n -1: got reason %s, want %s", perr.Reason, schema.BadValue)
	}
}

func TestDropNA(t *testing.T) {
	nan := math.NaN()
	in := new(table.Builder).
		Add("x", []float64{1, nan, 3, 4}).
		Add("s", []string{"a", "b", "", "d"}).
		Done()
	r := mustRun(t, in, "dropna")
	if got, want := floats(t, r.t, "x"), []float64{1, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("dropna x = %v, want %v", got, want)
	}
	r = mustRun(t, in, "dropna", "-c", "s")
	if got, want := r.t.MustColumn("s"), []string{"a", "b", "d"}; !reflect.DeepEqual(got, want) {
		t.Errorf("dropna -c s = %v, want %v", got, want)
	}
}

func TestFilterMutate(t *testing.T) {
	in := abcTable()
	r := mustRun(t, in, "filter", "-e", `a > 1 and b != "z"`, "--", "mutate", "-n", "d", "-e", "a * 10")
	if got, want := r.t.MustColumn("b"), []string{"y"}; !reflect.DeepEqual(got, want) {
		t.Errorf("filter kept %v, want %v", got, want)
	}
	if got, want := r.t.MustColumn("d"), []int{20}; !reflect.DeepEqual(got, want) {
		t.Errorf("mutate d = %v, want %v", got, want)
	}

	r = mustRun(t, in, "mutate", "-n", "h", "-e", `None if a == 2 else row["c"] * 2`)
	got := floats(t, r.t, "h")
	if got[0] != 1 || !math.IsNaN(got[1]) || got[2] != 5 {
		t.Errorf("mutate with None = %v, want [1 NaN 5]", got)
	}

	r = mustRun(t, in, "mutate", "-n", "b", "-e", `b + "!"`)
	if got, want := r.t.MustColumn("b"), []string{"x!", "y!", "z!"}; !reflect.DeepEqual(got, want) {
		t.Errorf("mutate replacing b = %v, want %v", got, want)
	}
}

func TestMutateLargeInts(t *testing.T) {
	in := abcTable()
	r := mustRun(t, in, "mutate", "-n", "big", "-e", "a * 10000000000")
	if got, want := r.t.MustColumn("big"), []int{10000000000, 20000000000, 30000000000}; !reflect.DeepEqual(got, want) {
		t.Errorf("mutate big = %v, want %v", got, want)
	}

	// Past the range of int, the column holds floats.
	r = mustRun(t, in, "mutate", "-n", "huge", "-e", "a * 10000000000000000000")
	if got, want := r.t.MustColumn("huge"), []float64{1e19, 2e19, 3e19}; !reflect.DeepEqual(got, want) {
		t.Errorf("mutate huge = %v, want %v", got, want)
	}
}

func TestExprErrors(t *testing.T) {
	if perr := parseErr(t, "filter", "-e", "a >"); perr.Reason != schema.BadValue {
		t.Errorf("bad syntax: got reason %s, want %s", perr.Reason, schema.BadValue)
	}
	r := run(t, abcTable(), "filter", "-e", "nope > 1")
	columnErr(t, r.err)
	r = run(t, abcTable(), "mutate", "-n", "m", "-e", `b if a == 1 else a`)
	columnErr(t, r.err)
}

func TestMeltPivot(t *testing.T) {
	in := new(table.Builder).
		Add("id", []string{"p", "q"}).
		Add("a", []float64{1, 2}).
		Add("b", []float64{3, 4}).
		Done()
	r := mustRun(t, in, "melt", "-c", "a", "b", "--var", "name", "--val", "v")
	if r.t.Len() != 4 {
		t.Fatalf("melt produced %d rows, want 4", r.t.Len())
	}
	for _, col := range []string{"id", "name", "v"} {
		if r.t.Column(col) == nil {
			t.Errorf("melt result has no column %q", col)
		}
	}

	back := mustRun(t, r.t, "pivot", "-k", "name", "-v", "v").t
	if back.Len() != 2 {
		t.Fatalf("pivot produced %d rows, want 2", back.Len())
	}
	ids := frame.Strings(back, "id")
	as, bs := floats(t, back, "a"), floats(t, back, "b")
	want := map[string][2]float64{"p": {1, 3}, "q": {2, 4}}
	for i, id := range ids {
		if got := [2]float64{as[i], bs[i]}; got != want[id] {
			t.Errorf("row %s = %v, want %v", id, got, want[id])
		}
	}
}

func TestPivotFillsMissing(t *testing.T) {
	in := new(table.Builder).
		Add("id", []string{"p", "p", "q"}).
		Add("k", []string{"a", "b", "a"}).
		Add("v", []int{1, 2, 3}).
		Done()
	out := mustRun(t, in, "pivot", "-k", "k", "-v", "v").t
	ids := frame.Strings(out, "id")
	bs := floats(t, out, "b")
	for i, id := range ids {
		if id == "q" && !math.IsNaN(bs[i]) {
			t.Errorf("q's b = %v, want missing", bs[i])
		}
		if id == "p" && bs[i] != 2 {
			t.Errorf("p's b = %v, want 2", bs[i])
		}
	}

	dup := new(table.Builder).
		Add("id", []string{"p", "p"}).
		Add("k", []string{"a", "a"}).
		Add("v", []int{1, 2}).
		Done()
	columnErr(t, run(t, dup, "pivot", "-k", "k", "-v", "v").err)
}

// blobs returns n rows of x, y points around three well-separated
// centers, plus a label column.
func blobs(n int) *table.Table {
	centers := [][2]float64{{0, 0}, {50, 50}, {100, 0}}
	xs, ys := make([]float64, n), make([]float64, n)
	labels := make([]string, n)
	for i := range xs {
		c := centers[i%3]
		d := float64(i/3%5) * 0.1
		xs[i], ys[i] = c[0]+d, c[1]-d
		labels[i] = string(rune('a' + i%3))
	}
	return new(table.Builder).Add("label", labels).Add("x", xs).Add("y", ys).Done()
}

func TestCutKMeansOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clusters.csv")
	r := mustRun(t, blobs(100),
		"cut", "-c", "x", "y", "--",
		"kmeans", "-n", "3", "--",
		"out", "-o", path, "--format", "csv")

	if got, want := r.t.Columns(), []string{"x", "y", "cluster"}; !reflect.DeepEqual(got, want) {
		t.Errorf("columns = %v, want %v", got, want)
	}
	seen := make(map[int]bool)
	for _, c := range r.t.MustColumn("cluster").([]int) {
		if c < 0 || c > 2 {
			t.Errorf("cluster label %d out of range", c)
		}
		seen[c] = true
	}
	if len(seen) != 3 {
		t.Errorf("got %d distinct clusters, want 3", len(seen))
	}
	if !reflect.DeepEqual(r.files, []string{path}) {
		t.Errorf("files = %v, want [%s]", r.files, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != 101 {
		t.Errorf("wrote %d lines, want 101", len(lines))
	}
	if lines[0] != "x,y,cluster" {
		t.Errorf("header = %q", lines[0])
	}
}

func TestKMeansMissing(t *testing.T) {
	in := new(table.Builder).
		Add("x", []float64{0, 0.1, math.NaN(), 10, 10.1}).
		Done()
	r := mustRun(t, in, "kmeans", "-n", "2", "--clusterprefix", "g")
	got := r.t.MustColumn("g").([]int)
	if got[2] != -1 {
		t.Errorf("row with a missing value got cluster %d, want -1", got[2])
	}
	if got[0] != got[1] || got[3] != got[4] || got[0] == got[3] {
		t.Errorf("clusters = %v", got)
	}

	columnErr(t, run(t, in, "kmeans", "-n", "5").err)
	columnErr(t, run(t, abcTable(), "kmeans", "-c", "b").err)

	// The label column must not already exist.
	cerr := columnErr(t, run(t, in, "kmeans", "-n", "2", "--clusterprefix", "x").err)
	if !reflect.DeepEqual(cerr.Columns, []string{"x"}) {
		t.Errorf("error names %v, want [x]", cerr.Columns)
	}
}

func TestStdoutHalts(t *testing.T) {
	r := mustRun(t, abcTable(), "cut", "-c", "a", "--", "stdout", "--", "cut", "-c", "nope")
	if got, want := r.stdout, "a\n1\n2\n3\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
}

func TestInOut(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.tsv")
	mustRun(t, abcTable(), "out", "-o", path)
	r := mustRun(t, nil, "in", path, "--", "stdout", "--format", "csv")
	if got, want := r.stdout, "a,b,c\n1,x,0.5\n2,y,1.5\n3,z,2.5\n"; got != want {
		t.Errorf("round trip through %s = %q, want %q", path, r.stdout, want)
	}
}

func TestDescribe(t *testing.T) {
	r := mustRun(t, abcTable(), "describe")
	for _, want := range []string{"count", "mean", "unique", "50%"} {
		if !strings.Contains(r.stdout, want) {
			t.Errorf("describe output missing %q:\n%s", want, r.stdout)
		}
	}
	got := describe(abcTable(), "a")
	if got[0] != "3" || got[4] != "2" || got[8] != "2" {
		t.Errorf("describe a = %v", got)
	}
	got = describe(abcTable(), "b")
	if got[0] != "3" || got[1] != "3" || got[4] != "" {
		t.Errorf("describe b = %v", got)
	}
}

func TestUnique(t *testing.T) {
	in := new(table.Builder).
		Add("n", []float64{10, 2, math.NaN(), 2, 1}).
		Done()
	r := mustRun(t, in, "unique", "-c", "n")
	if got, want := r.stdout, "10\n2\nNA\n1\n"; got != want {
		t.Errorf("unique = %q, want %q", got, want)
	}
	r = mustRun(t, in, "unique", "-c", "n", "--sort")
	if got, want := r.stdout, "1\n2\n10\nNA\n"; got != want {
		t.Errorf("unique --sort = %q, want %q", got, want)
	}
}

func TestPretty(t *testing.T) {
	n := 30
	xs := make([]int, n)
	for i := range xs {
		xs[i] = i
	}
	in := new(table.Builder).Add("x", xs).Add("y", xs).Done()
	r := mustRun(t, in, "pretty", "--maxrows", "4", "--maxcols", "1")
	for _, want := range []string{"...", "[30 rows x 2 columns]", "(1 columns not shown)"} {
		if !strings.Contains(r.stdout, want) {
			t.Errorf("pretty output missing %q:\n%s", want, r.stdout)
		}
	}
	if strings.Contains(r.stdout, "15") {
		t.Errorf("pretty printed an elided row:\n%s", r.stdout)
	}
}

// plotTable returns a table suited to every plotting command.
func plotTable() *table.Table {
	n := 40
	xs, ys := make([]float64, n), make([]float64, n)
	gs, hs := make([]string, n), make([]string, n)
	for i := range xs {
		xs[i] = float64(i % 10)
		ys[i] = 2*xs[i] + float64(i%3)
		gs[i] = []string{"a", "b"}[i%2]
		hs[i] = []string{"u", "v", "w", "z"}[i/10]
	}
	return new(table.Builder).Add("x", xs).Add("y", ys).Add("g", gs).Add("h", hs).Done()
}

func TestPlots(t *testing.T) {
	dir := t.TempDir()
	for _, args := range [][]string{
		{"scatter", "-x", "x", "-y", "y", "--hue", "g"},
		{"scatter", "-x", "x", "-y", "y", "--row", "g", "--col", "h"},
		{"line", "-x", "x", "-y", "y", "--hue", "g"},
		{"lmplot", "-x", "x", "-y", "y", "--degree", "2"},
		{"kde", "-x", "y", "--hue", "g"},
		{"ecdf", "-x", "y"},
		{"heatmap", "-x", "x", "-y", "h", "-v", "y"},
		{"pair", "-c", "x", "y"},
		{"hist", "-x", "y", "--bins", "5", "--stat", "density"},
		{"count", "-x", "h", "--hue", "g"},
		{"count", "-y", "h"},
		{"bar", "-x", "h", "-y", "y", "--ci"},
		{"bar", "-x", "h", "-y", "y", "--std", "--estimator", "median", "--hue", "g"},
		{"box", "-x", "g", "-y", "y"},
	} {
		name := strings.Join(args, "_")
		name = strings.NewReplacer("-", "", " ", "").Replace(name)
		path := filepath.Join(dir, name+".svg")
		in := plotTable()
		r := run(t, in, append(args, "-o", path)...)
		if r.err != nil {
			t.Errorf("%q: %v", args, r.err)
			continue
		}
		if r.t != in {
			t.Errorf("%q: plot changed the table", args)
		}
		if !reflect.DeepEqual(r.files, []string{path}) {
			t.Errorf("%q: files = %v, want %s", args, r.files, path)
		}
		if st, err := os.Stat(path); err != nil || st.Size() == 0 {
			t.Errorf("%q: no plot written: %v", args, err)
		}
	}
}

func TestPlotFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p.png")
	r := mustRun(t, plotTable(), "scatter", "-x", "x", "-y", "y", "-o", path)
	if !reflect.DeepEqual(r.files, []string{path}) {
		t.Errorf("files = %v", r.files)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Errorf("%s is not a PNG", path)
	}
}

func TestPlotErrors(t *testing.T) {
	r := run(t, plotTable(), "scatter", "-x", "x", "-y", "nope", "-o", filepath.Join(t.TempDir(), "p.svg"))
	columnErr(t, r.err)
	if len(r.files) != 0 {
		t.Errorf("failed plot produced %v", r.files)
	}

	dup := new(table.Builder).
		Add("x", []string{"a", "a"}).
		Add("y", []string{"b", "b"}).
		Add("v", []float64{1, 2}).
		Done()
	columnErr(t, run(t, dup, "heatmap", "-x", "x", "-y", "y", "-v", "v", "-o", filepath.Join(t.TempDir(), "h.svg")).err)

	for _, inf := range []float64{math.Inf(1), math.Inf(-1)} {
		in := new(table.Builder).Add("x", []float64{1, 2, inf}).Done()
		r := run(t, in, "hist", "-x", "x", "-o", filepath.Join(t.TempDir(), "h.svg"))
		cerr := columnErr(t, r.err)
		if !strings.Contains(cerr.Msg, "row 3") {
			t.Errorf("hist with %v: error %q does not name row 3", inf, cerr.Msg)
		}
	}

	for _, args := range [][]string{
		{"count", "-x", "g", "-y", "h"},
		{"bar", "-x", "g", "-y", "y", "--std", "--ci"},
		{"bar", "-x", "g", "-y", "y", "--ci", "100"},
		{"hist", "-x", "y", "--bins", "0"},
		{"scatter", "-x", "x"},
	} {
		parseErr(t, args...)
	}
}

func TestBoxStats(t *testing.T) {
	b := boxStats([]float64{1, 2, 3, 4, 5, 6, 7, 8, 100})
	if b.median != 5 {
		t.Errorf("median = %v, want 5", b.median)
	}
	if !reflect.DeepEqual(b.outliers, []float64{100}) {
		t.Errorf("outliers = %v, want [100]", b.outliers)
	}
	if b.lower != 1 || b.upper != 8 {
		t.Errorf("whiskers = [%v, %v], want [1, 8]", b.lower, b.upper)
	}
}

func TestCategorize(t *testing.T) {
	in := new(table.Builder).Add("n", []int{10, 2, 10, 1}).Done()
	a := categorize(in, "n", false)
	if want := []string{"10", "2", "1"}; !reflect.DeepEqual(a.labels, want) {
		t.Errorf("labels = %v, want %v", a.labels, want)
	}
	a = categorize(in, "n", true)
	if want := []string{"1", "2", "10"}; !reflect.DeepEqual(a.labels, want) {
		t.Errorf("sorted labels = %v, want %v", a.labels, want)
	}
	if want := []int{2, 1, 2, 0}; !reflect.DeepEqual(a.pos, want) {
		t.Errorf("positions = %v, want %v", a.pos, want)
	}
}
