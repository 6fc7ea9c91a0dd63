package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/roach88/relsync/internal/graph"
	"github.com/roach88/relsync/internal/ir"
)

// encodeValue converts a request value into the parameter stored for an
// attribute of type t.
//
// JSON attributes are stored as canonical JSON text so equal documents
// compare equal in SQL. Integral floats (as produced by decoding JSON
// requests) are narrowed to int64 for int attributes.
func encodeValue(t ir.AttributeType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch t {
	case ir.TypeJSON:
		data, err := ir.MarshalCanonicalJSON(v)
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return string(data), nil

	case ir.TypeDatetime:
		switch val := v.(type) {
		case time.Time:
			return val.UTC(), nil
		case string:
			if ts, err := time.Parse(time.RFC3339Nano, val); err == nil {
				return ts.UTC(), nil
			}
		}

	case ir.TypeInt:
		switch val := v.(type) {
		case float64:
			if val == math.Trunc(val) {
				return int64(val), nil
			}
		case json.Number:
			if i, err := val.Int64(); err == nil {
				return i, nil
			}
		}
	}
	return v, nil
}

// decodeValue converts a scanned column into its attribute's Go form.
func decodeValue(t ir.AttributeType, v any) any {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		return nil
	}

	switch t {
	case ir.TypeBool:
		if i, ok := v.(int64); ok {
			return i != 0
		}
	case ir.TypeFloat:
		if i, ok := v.(int64); ok {
			return float64(i)
		}
	case ir.TypeJSON:
		if s, ok := v.(string); ok {
			var doc any
			if err := json.Unmarshal([]byte(s), &doc); err == nil {
				return doc
			}
		}
	case ir.TypeDatetime:
		switch val := v.(type) {
		case time.Time:
			return val.UTC()
		case string:
			if ts, err := time.Parse(time.RFC3339Nano, val); err == nil {
				return ts.UTC()
			}
		}
	}
	return v
}

// scanRows reads every row of rows into ir.Row values keyed by column name.
func scanRows(rows *sql.Rows) ([]ir.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	out := []ir.Row{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(ir.Row, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// normalize decodes every attribute column of rows in place. Columns that
// are not attributes of d only lose their []byte form.
func normalize(d *graph.Descriptor, rows []ir.Row) {
	for _, row := range rows {
		for k, v := range row {
			attr, ok := d.Attribute(k)
			if !ok {
				if b, isBytes := v.([]byte); isBytes {
					row[k] = string(b)
				}
				continue
			}
			row[k] = decodeValue(attr.Type, v)
		}
	}
}
