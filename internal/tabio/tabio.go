// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tabio reads and writes tables in delimited text and Parquet
// formats.
//
// Text formats are CSV and TSV with a header row. When reading, each
// column's type is inferred from its cells: a column is int if every
// cell is an integer, float64 if every cell is a number, time.Time if
// every cell is a date or timestamp, and string otherwise. Cells that
// are empty or equal to the NA token are missing; they are read as
// NaN, the zero time, or "" according to the column type (an integer
// column with missing cells is read as float64). Writing maps missing
// values back to the NA token.
package tabio

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aclements/go-gg/table"
	"github.com/aclements/tabpipe/internal/frame"
)

// Formats.
const (
	CSV     = "csv"
	TSV     = "tsv"
	Parquet = "parquet"
)

// ReadFormats and WriteFormats list the formats Read and Write
// accept.
var (
	ReadFormats  = []string{CSV, TSV}
	WriteFormats = []string{CSV, TSV, Parquet}
)

// DefaultNA is the default token for missing values.
const DefaultNA = "NA"

// Options control reading and writing.
type Options struct {
	// Format is one of the format constants. If empty, it is
	// derived from the file name, defaulting to CSV.
	Format string
	// NA is the token for a missing value. If empty, DefaultNA is
	// used.
	NA string
}

func (o Options) na() string {
	if o.NA == "" {
		return DefaultNA
	}
	return o.NA
}

// FormatOf returns the format implied by path's extension, or "".
func FormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return CSV
	case ".tsv", ".tab":
		return TSV
	case ".parquet", ".pq":
		return Parquet
	}
	return ""
}

func (o Options) format(path string) string {
	if o.Format != "" {
		return o.Format
	}
	if f := FormatOf(path); f != "" {
		return f
	}
	return CSV
}

// An Error reports a failure to read or write a table.
type Error struct {
	Op   string // "read" or "write"
	Path string // file name, or "" for a stream
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func comma(format string) (rune, error) {
	switch format {
	case CSV:
		return ',', nil
	case TSV:
		return '\t', nil
	}
	return 0, fmt.Errorf("unsupported text format %q", format)
}

// Read reads a table in a text format from r.
func Read(r io.Reader, opts Options) (*table.Table, error) {
	t, err := read(r, opts.format(""), opts.na())
	if err != nil {
		return nil, &Error{"read", "", err}
	}
	return t, nil
}

// ReadFile reads a table from the named file. "-" means stdin.
func ReadFile(path string, opts Options) (*table.Table, error) {
	if path == "-" {
		return Read(os.Stdin, opts)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{"read", path, err}
	}
	defer f.Close()
	t, err := read(bufio.NewReader(f), opts.format(path), opts.na())
	if err != nil {
		return nil, &Error{"read", path, err}
	}
	return t, nil
}

func read(r io.Reader, format, na string) (*table.Table, error) {
	sep, err := comma(format)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(r)
	cr.Comma = sep
	cr.ReuseRecord = false
	if format == TSV {
		cr.LazyQuotes = true
	}

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("no header row")
	} else if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, name := range header {
		if seen[name] {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = true
	}

	raw := make([][]string, len(header))
	missing := make([][]bool, len(header))
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		for i, cell := range rec {
			raw[i] = append(raw[i], cell)
			missing[i] = append(missing[i], cell == "" || cell == na)
		}
	}

	b := new(table.Builder)
	for i, name := range header {
		if raw[i] == nil {
			raw[i], missing[i] = []string{}, []bool{}
		}
		b.Add(name, inferColumn(raw[i], missing[i]))
	}
	return b.Done(), nil
}

// Write writes t to w.
func Write(w io.Writer, t *table.Table, opts Options) error {
	if err := write(w, t, opts.format(""), opts.na()); err != nil {
		return &Error{"write", "", err}
	}
	return nil
}

// WriteFile writes t to the named file, replacing it if it exists.
// If writing fails, the partial file is removed.
func WriteFile(path string, t *table.Table, opts Options) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return &Error{"write", path, err}
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = &Error{"write", path, cerr}
		}
		if err != nil {
			os.Remove(path)
		}
	}()
	bw := bufio.NewWriter(f)
	if err := write(bw, t, opts.format(path), opts.na()); err != nil {
		return &Error{"write", path, err}
	}
	if err := bw.Flush(); err != nil {
		return &Error{"write", path, err}
	}
	return nil
}

func write(w io.Writer, t *table.Table, format, na string) error {
	if format == Parquet {
		return writeParquet(w, t)
	}
	sep, err := comma(format)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	cw.Comma = sep

	cols := t.Columns()
	if err := cw.Write(cols); err != nil {
		return err
	}
	cells := make([][]string, len(cols))
	for i, col := range cols {
		cells[i] = frame.Strings(t, col)
	}
	rec := make([]string, len(cols))
	for row := 0; row < t.Len(); row++ {
		for i := range cols {
			rec[i] = cells[i][row]
			if rec[i] == "" {
				rec[i] = na
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
