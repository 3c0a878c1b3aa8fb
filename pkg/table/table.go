// Package table materializes sequences of nested JSON-like records into a
// uniform row/column representation and writes them to files.
package table

import (
	"sort"
)

// Table is a uniform tabular view over heterogeneous records. Columns are
// dotted paths into the original nesting (e.g. "properties.email"); cells
// for fields a record lacks are nil.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// At returns the cell for a row index and column name, or nil when the
// column does not exist.
func (t *Table) At(row int, column string) any {
	for i, c := range t.Columns {
		if c == column {
			return t.Rows[row][i]
		}
	}
	return nil
}

// Materialize flattens records into a table. The column set is the union of
// all flattened keys in first-seen order; record order is preserved. When
// limit is set and smaller than the record count, the table is truncated to
// the first limit rows.
func Materialize(records []map[string]any, limit *int) *Table {
	if limit != nil && *limit < len(records) {
		records = records[:*limit]
	}

	var columns []string
	seen := map[string]int{}
	flattened := make([]map[string]any, len(records))

	for i, record := range records {
		flat := map[string]any{}
		flatten("", record, flat)
		flattened[i] = flat

		for _, key := range flattenOrder("", record) {
			if _, ok := seen[key]; !ok {
				seen[key] = len(columns)
				columns = append(columns, key)
			}
		}
	}

	rows := make([][]any, len(flattened))
	for i, flat := range flattened {
		row := make([]any, len(columns))
		for key, value := range flat {
			row[seen[key]] = value
		}
		rows[i] = row
	}

	return &Table{Columns: columns, Rows: rows}
}

// flatten writes record fields into flat under dotted-path keys.
// Only mappings recurse; lists and scalars are terminal cell values.
func flatten(prefix string, value map[string]any, flat map[string]any) {
	for key, v := range value {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if nested, ok := v.(map[string]any); ok {
			flatten(path, nested, flat)
			continue
		}
		flat[path] = v
	}
}

// flattenOrder returns the record's flattened keys in insertion-stable order.
// Map iteration is random, so keys are sorted per nesting level to keep the
// column order deterministic across runs.
func flattenOrder(prefix string, value map[string]any) []string {
	keys := make([]string, 0, len(value))
	for key := range value {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []string
	for _, key := range keys {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if nested, ok := value[key].(map[string]any); ok {
			out = append(out, flattenOrder(path, nested)...)
			continue
		}
		out = append(out, path)
	}
	return out
}
