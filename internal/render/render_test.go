// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aclements/go-gg/table"
	"github.com/aclements/tabpipe/internal/frame"
)

func testData() *table.Table {
	return new(table.Builder).
		Add("x", []float64{1, 2, 3, 4, 5, 6}).
		Add("y", []float64{2, 4, 3, 5, 7, 6}).
		Add("g", []string{"a", "a", "a", "b", "b", "b"}).
		Done()
}

func scatter() *Figure {
	return &Figure{
		Data:   testData(),
		Layers: []Layer{{Mark: Points, X: "x", Y: "y", Color: "g"}},
		Title:  "test",
	}
}

func TestRenderFormats(t *testing.T) {
	for _, test := range []struct {
		format string
		magic  string
	}{
		{SVG, "<svg"},
		{PNG, "\x89PNG"},
		{PDF, "%PDF"},
	} {
		var buf bytes.Buffer
		if err := Render(&buf, scatter(), Options{Format: test.format}); err != nil {
			t.Errorf("%s: %v", test.format, err)
			continue
		}
		if !strings.Contains(buf.String()[:min(buf.Len(), 512)], test.magic) {
			t.Errorf("%s: output does not look like %s", test.format, test.format)
		}
	}
}

func TestRenderLayers(t *testing.T) {
	bars := new(table.Builder).
		Add("bx", []float64{0, 0, 1, 1, 1, 1, 2, 2}).
		Add("by", []float64{0, 3, 3, 0, 0, 5, 5, 0}).
		Add("bar", []int{0, 0, 0, 0, 1, 1, 1, 1}).
		Done()
	fig := &Figure{
		Layers: []Layer{
			{Mark: Polygons, Data: bars, X: "bx", Y: "by", Shape: "bar"},
			{Mark: Lines, Data: testData(), X: "x", Y: "y", Color: "g"},
			{Mark: Steps, Data: testData(), X: "x", Y: "y"},
		},
		XTicks: []Tick{{0.5, "first"}, {1.5, "second"}},
		YLim:   []float64{0, 10},
	}
	for _, format := range Formats {
		var buf bytes.Buffer
		if err := Render(&buf, fig, Options{Format: format, Width: 300, Height: 200, DPI: 72}); err != nil {
			t.Errorf("%s: %v", format, err)
		}
	}
}

func TestRenderTiles(t *testing.T) {
	tab := new(table.Builder).
		Add("col", []int{0, 1, 0, 1}).
		Add("row", []int{0, 0, 1, 1}).
		Add("v", []float64{1, 2, 3, 4}).
		Done()
	fig := &Figure{Data: tab, Layers: []Layer{{Mark: Tiles, X: "col", Y: "row", Color: "v"}}}
	for _, format := range []string{SVG, PNG} {
		if err := Render(new(bytes.Buffer), fig, Options{Format: format}); err != nil {
			t.Errorf("%s: %v", format, err)
		}
	}
}

func TestRenderErrors(t *testing.T) {
	for _, test := range []struct {
		name   string
		fig    *Figure
		format string
		column bool
	}{
		{"no layers", &Figure{Data: testData()}, SVG, false},
		{"missing column", &Figure{Data: testData(), Layers: []Layer{{Mark: Points, X: "x", Y: "zz"}}}, SVG, true},
		{"categorical raster", &Figure{Data: testData(), Layers: []Layer{{Mark: Points, X: "g", Y: "y"}}}, PNG, true},
		{"facets raster", &Figure{Data: testData(), Layers: []Layer{{Mark: Points, X: "x", Y: "y"}}, FacetCol: "g"}, PNG, false},
		{"bad limits", &Figure{Data: testData(), Layers: []Layer{{Mark: Points, X: "x", Y: "y"}}, XLim: []float64{3, 1}}, SVG, false},
		{"empty", &Figure{Data: new(table.Builder).Add("x", []float64{}).Add("y", []float64{}).Done(),
			Layers: []Layer{{Mark: Points, X: "x", Y: "y"}}}, SVG, false},
	} {
		err := Render(new(bytes.Buffer), test.fig, Options{Format: test.format})
		var rerr *Error
		if !errors.As(err, &rerr) {
			t.Errorf("%s: want *Error, got %v", test.name, err)
			continue
		}
		var cerr *frame.ColumnError
		if got := errors.As(err, &cerr); got != test.column {
			t.Errorf("%s: wraps ColumnError = %v, want %v (%v)", test.name, got, test.column, err)
		}
	}
}

func TestFacets(t *testing.T) {
	fig := scatter()
	fig.Layers[0].Color = ""
	fig.FacetCol = "g"
	var buf bytes.Buffer
	if err := Render(&buf, fig, Options{Format: SVG}); err != nil {
		t.Fatal(err)
	}

	fig.Layers = append(fig.Layers, Layer{Mark: Lines, Data: testData(), X: "x", Y: "y"})
	if err := Render(&buf, fig, Options{Format: SVG}); err == nil {
		t.Errorf("facets with per-layer data should fail")
	}
}

func TestLogScale(t *testing.T) {
	fig := scatter()
	fig.LogY = true
	fig.YLim = []float64{1, 100}
	nf := fig.transformed()
	ys := table.Flatten(nf.Data).MustColumn("y").([]float64)
	if math.Abs(ys[0]-math.Log10(2)) > 1e-12 {
		t.Errorf("y[0] = %v, want log10(2)", ys[0])
	}
	if nf.YLim[0] != 0 || nf.YLim[1] != 2 {
		t.Errorf("YLim = %v, want [0 2]", nf.YLim)
	}
	if nf.YLabel != "log10 y" {
		t.Errorf("YLabel = %q", nf.YLabel)
	}
	if orig := table.Flatten(fig.Data).MustColumn("y").([]float64); orig[0] != 2 {
		t.Errorf("transform modified the original data")
	}
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "plot")
	if got, _ := OutputPath("given.png", prefix, "scatter", SVG); got != "given.png" {
		t.Errorf("explicit output = %q", got)
	}
	want := []string{"plot.scatter.svg", "plot.scatter.1.svg", "plot.scatter.2.svg"}
	for _, w := range want {
		got, err := OutputPath("", prefix, "scatter", SVG)
		if err != nil {
			t.Fatal(err)
		}
		if got != filepath.Join(dir, w) {
			t.Errorf("got %q, want %q", got, w)
		}
		if err := os.WriteFile(got, nil, 0666); err != nil {
			t.Fatal(err)
		}
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	if err := WriteFile(path, scatter(), Options{}); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil || !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Errorf("format was not inferred from the file name (err %v)", err)
	}
}

func TestWriteFileRemovesPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.gif")
	err := WriteFile(path, scatter(), Options{Format: "gif"})
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("want *Error, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("failed write left %s behind (stat: %v)", path, err)
	}
}
