// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package vectorstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Vector scans DuckDB FLOAT[n] and LIST values into a []float32.
type Vector []float32

// Scan implements sql.Scanner.
func (v *Vector) Scan(src interface{}) error {
	switch s := src.(type) {
	case nil:
		*v = nil
	case []float32:
		*v = append(Vector(nil), s...)
	case []float64:
		out := make(Vector, len(s))
		for i, f := range s {
			out[i] = float32(f)
		}
		*v = out
	case []interface{}:
		out := make(Vector, len(s))
		for i, e := range s {
			f, err := toFloat32(e)
			if err != nil {
				return fmt.Errorf("vector element %d: %w", i, err)
			}
			out[i] = f
		}
		*v = out
	case string:
		return v.parse(s)
	case []byte:
		return v.parse(string(s))
	default:
		return fmt.Errorf("cannot scan %T into Vector", src)
	}
	return nil
}

func (v *Vector) parse(s string) error {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if strings.TrimSpace(s) == "" {
		*v = Vector{}
		return nil
	}
	parts := strings.Split(s, ",")
	out := make(Vector, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return fmt.Errorf("vector element %d: %w", i, err)
		}
		out[i] = float32(f)
	}
	*v = out
	return nil
}

func toFloat32(e interface{}) (float32, error) {
	switch n := e.(type) {
	case float32:
		return n, nil
	case float64:
		return float32(n), nil
	case int32:
		return float32(n), nil
	case int64:
		return float32(n), nil
	case nil:
		return 0, fmt.Errorf("null element")
	default:
		return 0, fmt.Errorf("unexpected element type %T", e)
	}
}

// literal renders v as a DuckDB list literal ("[0.1,0.2]") for binding with
// a ?::FLOAT[n] cast. A nil vector renders as nil so it binds as NULL.
func literal(v []float32) interface{} {
	if v == nil {
		return nil
	}
	buf := make([]byte, 0, len(v)*10+2)
	buf = append(buf, '[')
	for i, x := range v {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendFloat(buf, float64(x), 'g', -1, 32)
	}
	buf = append(buf, ']')
	return string(buf)
}
