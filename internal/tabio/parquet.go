// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tabio

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/aclements/go-gg/table"
	"github.com/aclements/tabpipe/internal/frame"
	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// parquetParallelism is the number of goroutines the Parquet writer
// uses to encode row groups.
const parquetParallelism = 4

// parquetName makes col usable as a Parquet field name. Tags are
// comma-separated key=value lists, so those characters are replaced.
func parquetName(col string) string {
	return strings.NewReplacer(",", "_", "=", "_", " ", "_").Replace(col)
}

// parquetSchema returns the JSON schema definition for t. Every field
// is OPTIONAL so missing values can be written as nulls.
func parquetSchema(t *table.Table, names []string) (string, error) {
	fields := make([]map[string]string, 0, len(names))
	seen := make(map[string]string)
	for i, col := range t.Columns() {
		if other, ok := seen[names[i]]; ok {
			return "", fmt.Errorf("columns %q and %q have the same Parquet name %q", other, col, names[i])
		}
		seen[names[i]] = col
		var typ string
		et := reflect.TypeOf(t.MustColumn(col)).Elem()
		switch {
		case frame.KindOf(t, col) == frame.Datetime:
			typ = "type=BYTE_ARRAY, convertedtype=UTF8"
		case et.Kind() == reflect.Float32 || et.Kind() == reflect.Float64:
			typ = "type=DOUBLE"
		case frame.KindOf(t, col) == frame.Numeric:
			typ = "type=INT64"
		default:
			typ = "type=BYTE_ARRAY, convertedtype=UTF8"
		}
		fields = append(fields, map[string]string{
			"Tag": fmt.Sprintf("name=%s, %s, repetitiontype=OPTIONAL", names[i], typ),
		})
	}
	b, err := json.Marshal(map[string]interface{}{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	})
	return string(b), err
}

// parquetValue converts a cell to its JSON row value. Missing values
// become nil.
func parquetValue(v interface{}) interface{} {
	if frame.IsMissing(v) {
		return nil
	}
	switch v := v.(type) {
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case float32:
		return float64(v)
	case float64:
		if math.IsInf(v, 0) {
			return nil
		}
		return v
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	}
	return frame.Format(v)
}

func writeParquet(w io.Writer, t *table.Table) error {
	cols := t.Columns()
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = parquetName(col)
	}
	schemaDef, err := parquetSchema(t, names)
	if err != nil {
		return err
	}

	pfw := writerfile.NewWriterFile(w)
	pw, err := writer.NewJSONWriter(schemaDef, pfw, parquetParallelism)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	seqs := make([]reflect.Value, len(cols))
	for i, col := range cols {
		seqs[i] = reflect.ValueOf(t.MustColumn(col))
	}
	row := make(map[string]interface{}, len(cols))
	for r := 0; r < t.Len(); r++ {
		for i := range cols {
			row[names[i]] = parquetValue(seqs[i].Index(r).Interface())
		}
		rec, err := json.Marshal(row)
		if err != nil {
			pw.WriteStop()
			return err
		}
		if err := pw.Write(string(rec)); err != nil {
			pw.WriteStop()
			return err
		}
	}
	return pw.WriteStop()
}
