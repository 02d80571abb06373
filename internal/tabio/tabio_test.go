// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tabio

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/aclements/go-gg/table"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const sample = `name,n,x,when,note
a,1,1.5,2019-10-16,hello
b,2,NA,2019-10-17T12:00:00Z,
c,3,3,NA,"with, comma"
`

func TestReadInfer(t *testing.T) {
	tab, err := Read(strings.NewReader(sample), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"name", "n", "x", "when", "note"}; !reflect.DeepEqual(tab.Columns(), want) {
		t.Fatalf("columns = %v, want %v", tab.Columns(), want)
	}
	if got, want := tab.MustColumn("n"), []int{1, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("n = %v, want %v", got, want)
	}
	x := tab.MustColumn("x").([]float64)
	if x[0] != 1.5 || !math.IsNaN(x[1]) || x[2] != 3 {
		t.Errorf("x = %v, want [1.5 NaN 3]", x)
	}
	when := tab.MustColumn("when").([]time.Time)
	if !when[0].Equal(time.Date(2019, 10, 16, 0, 0, 0, 0, time.UTC)) || !when[2].IsZero() {
		t.Errorf("when = %v", when)
	}
	if got, want := tab.MustColumn("note"), []string{"hello", "", "with, comma"}; !reflect.DeepEqual(got, want) {
		t.Errorf("note = %q, want %q", got, want)
	}
}

func TestReadIntWithMissing(t *testing.T) {
	tab, err := Read(strings.NewReader("k\n1\n-\n3\n"), Options{NA: "-"})
	if err != nil {
		t.Fatal(err)
	}
	k, ok := tab.MustColumn("k").([]float64)
	if !ok || k[0] != 1 || !math.IsNaN(k[1]) || k[2] != 3 {
		t.Errorf("k = %#v, want float64 column with NaN", tab.MustColumn("k"))
	}
}

func TestReadErrors(t *testing.T) {
	for _, test := range []struct {
		name, in string
	}{
		{"empty", ""},
		{"duplicate", "a,b,a\n1,2,3\n"},
		{"ragged", "a,b\n1,2\n3\n"},
	} {
		_, err := Read(strings.NewReader(test.in), Options{})
		var ioerr *Error
		if !errors.As(err, &ioerr) || ioerr.Op != "read" {
			t.Errorf("%s: want read *Error, got %v", test.name, err)
		}
	}

	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.csv"), Options{})
	var ioerr *Error
	if !errors.As(err, &ioerr) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFile of a missing file: got %v", err)
	}
}

// floatsEqualNaN compares NaNs as equal, which is how missing numeric
// values round-trip.
var floatsEqualNaN = cmpopts.EquateNaNs()

func TestRoundTrip(t *testing.T) {
	nan := math.NaN()
	day := time.Date(2020, 2, 29, 8, 30, 0, 0, time.UTC)
	orig := new(table.Builder).
		Add("label", []string{"x", "", "NA", "tab\there"}).
		Add("count", []int{4, 3, 2, 1}).
		Add("value", []float64{0.25, nan, -7, 1e10}).
		Add("at", []time.Time{day, {}, day.Add(time.Hour), day}).
		Done()

	for _, format := range []string{CSV, TSV} {
		path := filepath.Join(t.TempDir(), "out."+format)
		if err := WriteFile(path, orig, Options{NA: "NA"}); err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		back, err := ReadFile(path, Options{NA: "NA"})
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		if diff := cmp.Diff(orig.Columns(), back.Columns()); diff != "" {
			t.Errorf("%s: columns differ (-want +got):\n%s", format, diff)
		}
		// A categorical cell equal to the NA token reads back as
		// missing.
		wantLabel := []string{"x", "", "", "tab\there"}
		for _, col := range []struct {
			name string
			want interface{}
		}{
			{"label", wantLabel},
			{"count", orig.MustColumn("count")},
			{"value", orig.MustColumn("value")},
			{"at", orig.MustColumn("at")},
		} {
			if diff := cmp.Diff(col.want, back.MustColumn(col.name), floatsEqualNaN); diff != "" {
				t.Errorf("%s: column %s differs (-want +got):\n%s", format, col.name, diff)
			}
		}
	}
}

func TestWriteNA(t *testing.T) {
	tab := new(table.Builder).
		Add("a", []string{"p", ""}).
		Add("b", []float64{math.NaN(), 2}).
		Done()
	var buf bytes.Buffer
	if err := Write(&buf, tab, Options{Format: TSV, NA: "?"}); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "a\tb\np\t?\n?\t2\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWriteParquet(t *testing.T) {
	tab := new(table.Builder).
		Add("name", []string{"a", "", "c"}).
		Add("n", []int{1, 2, 3}).
		Add("x", []float64{1.5, math.NaN(), 3}).
		Done()
	var buf bytes.Buffer
	if err := Write(&buf, tab, Options{Format: Parquet}); err != nil {
		t.Fatal(err)
	}
	b := buf.Bytes()
	if len(b) < 8 || string(b[:4]) != "PAR1" || string(b[len(b)-4:]) != "PAR1" {
		t.Errorf("output is not a Parquet file (%d bytes)", len(b))
	}
}

func TestWriteFileRemovesPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	tab := new(table.Builder).Add("a", []int{1, 2}).Done()
	err := WriteFile(path, tab, Options{Format: "xlsx"})
	var ioerr *Error
	if !errors.As(err, &ioerr) {
		t.Fatalf("want *Error, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("failed write left %s behind (stat: %v)", path, err)
	}
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]string{
		"a.csv": CSV, "b.TSV": TSV, "c.parquet": Parquet, "d.txt": "", "-": "",
	} {
		if got := FormatOf(path); got != want {
			t.Errorf("FormatOf(%q) = %q, want %q", path, got, want)
		}
	}
}
