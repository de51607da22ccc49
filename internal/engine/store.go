// Package engine is the columnar aggregation engine. A registered dataset is
// dictionary-encoded once into a ColumnStore; pivots over it then run as a
// parallel scan over int32 id columns instead of row maps. It implements
// pivot.Remote and is the delegate the Executor routes large datasets to.
package engine

import (
	"backend/internal/pivot"
)

// column holds one field in dictionary-encoded form: ids index into dict,
// dict holds the distinct coerced values in first-seen order.
type column struct {
	dict []any
	ids  []int32
}

// at returns the coerced value of row j. A nil column (a field absent from
// the schema) reads as nil everywhere.
func (c *column) at(j int) any {
	if c == nil {
		return nil
	}
	return c.dict[c.ids[j]]
}

// ColumnStore holds a dataset in struct-of-arrays form for scan speed.
type ColumnStore struct {
	names []string
	cols  map[string]*column
	rows  int
}

// FromRows encodes materialized rows into columns. Cell values are coerced
// here, once, so the scan path and the row-by-row cube builder agree on
// equality and grouping.
func FromRows(columns []string, rows []pivot.Row) *ColumnStore {
	cs := &ColumnStore{
		names: append([]string(nil), columns...),
		cols:  make(map[string]*column, len(columns)),
		rows:  len(rows),
	}
	for _, name := range columns {
		col := &column{ids: make([]int32, len(rows))}
		index := make(map[any]int32)
		for j, row := range rows {
			cv := pivot.Coerce(row[name])
			id, ok := index[cv]
			if !ok {
				id = int32(len(col.dict))
				col.dict = append(col.dict, cv)
				index[cv] = id
			}
			col.ids[j] = id
		}
		cs.cols[name] = col
	}
	return cs
}

// Rows reports the dataset's row count.
func (cs *ColumnStore) Rows() int {
	return cs.rows
}

// Columns returns the schema in registration order.
func (cs *ColumnStore) Columns() []string {
	return append([]string(nil), cs.names...)
}

// lookup resolves field names to columns; missing fields resolve to nil and
// degrade to nil cells rather than failing the pivot.
func (cs *ColumnStore) lookup(fields []string) []*column {
	cols := make([]*column, len(fields))
	for i, f := range fields {
		cols[i] = cs.cols[f]
	}
	return cols
}
