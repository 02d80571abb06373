// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tabio

import (
	"math"
	"reflect"
	"strconv"
	"time"
)

// A valueParser parses a non-missing cell into a structured value.
type valueParser struct {
	// typ is the element type of columns this parser produces.
	typ   reflect.Type
	parse func(string) (interface{}, error)
	// missing is the value stored for a missing cell, or nil if
	// this parser cannot represent missing cells.
	missing interface{}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (interface{}, error) {
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, err
}

// valueParsers are tried in order for each column. The first parser
// that accepts every non-missing cell of a column determines its
// type. Columns no parser accepts are categorical.
var valueParsers = []valueParser{
	{reflect.TypeOf(0), func(s string) (interface{}, error) { return strconv.Atoi(s) }, nil},
	{reflect.TypeOf(0.0), func(s string) (interface{}, error) { return strconv.ParseFloat(s, 64) }, math.NaN()},
	{reflect.TypeOf(time.Time{}), parseTime, time.Time{}},
}

// inferColumn converts raw cells into a typed column slice. missing
// marks the cells that held the NA token or were empty.
func inferColumn(raw []string, missing []bool) interface{} {
	nMissing, nPresent := 0, 0
	for _, m := range missing {
		if m {
			nMissing++
		} else {
			nPresent++
		}
	}
	if nPresent > 0 {
	tryParsers:
		for _, vp := range valueParsers {
			if nMissing > 0 && vp.missing == nil {
				continue
			}
			seq := reflect.MakeSlice(reflect.SliceOf(vp.typ), len(raw), len(raw))
			for i, s := range raw {
				if missing[i] {
					seq.Index(i).Set(reflect.ValueOf(vp.missing))
					continue
				}
				v, err := vp.parse(s)
				if err != nil {
					continue tryParsers
				}
				seq.Index(i).Set(reflect.ValueOf(v))
			}
			return seq.Interface()
		}
	}

	// Fall back to strings.
	strs := make([]string, len(raw))
	for i, s := range raw {
		if !missing[i] {
			strs[i] = s
		}
	}
	return strs
}
