package pivot

import "sort"

// CellKey addresses one accumulator in the cube: a row key, a column key and
// the index of the value spec it feeds.
type CellKey struct {
	Row   string
	Col   string
	Value int
}

// Build runs the full local pipeline in a single forward pass: filter each
// row, derive its row and column keys once, route every value spec's cell
// into its accumulator, then finalize into a dense Result. All intermediate
// state is discarded when Build returns; nothing is shared across calls.
func Build(req *Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cells := make(map[CellKey]*Accumulator)
	rowTuples := make(map[string][]any)
	colKeys := make(map[string]struct{})

rows:
	for _, row := range req.Rows {
		for _, rule := range req.Filters {
			if !rule.Matches(row) {
				continue rows
			}
		}
		rk, tuple := keyOf(row, req.RowFields)
		ck, _ := keyOf(row, req.ColFields)
		if _, seen := rowTuples[rk]; !seen {
			rowTuples[rk] = tuple
		}
		colKeys[ck] = struct{}{}
		for i, vs := range req.Values {
			key := CellKey{Row: rk, Col: ck, Value: i}
			acc := cells[key]
			if acc == nil {
				acc = NewAccumulator(vs.Agg)
				cells[key] = acc
			}
			acc.Update(Coerce(row[vs.Col]))
		}
	}

	return Assemble(req.Spec, rowTuples, colKeys, cells), nil
}

// Assemble finalizes a cube into its Result: row and column keys are sorted
// lexicographically by their string form (so repeated builds, and the local
// and columnar paths, order identically), every (row key x column key x
// value spec) cell is emitted even when empty, and grand totals are summed
// over the finalized numeric cells per value column.
//
// Both Build and the columnar engine finish through Assemble, which is what
// guarantees the two paths name and order their output identically.
func Assemble(spec Spec, rowTuples map[string][]any, colKeys map[string]struct{}, cells map[CellKey]*Accumulator) *Result {
	rks := make([]string, 0, len(rowTuples))
	for rk := range rowTuples {
		rks = append(rks, rk)
	}
	sort.Strings(rks)

	cks := sortedColKeys(spec, colKeys)
	columns := columnNames(spec, cks)
	valueColumns := columns[len(spec.RowFields):]

	data := make([]map[string]any, 0, len(rks))
	for _, rk := range rks {
		out := make(map[string]any, len(columns))
		for i, f := range spec.RowFields {
			out[f] = rowTuples[rk][i]
		}
		for j, ck := range cks {
			for i := range spec.Values {
				name := valueColumns[j*len(spec.Values)+i]
				out[name] = nil
				if acc := cells[CellKey{Row: rk, Col: ck, Value: i}]; acc != nil {
					if v, ok := acc.Final(); ok {
						out[name] = v
					}
				}
			}
		}
		data = append(data, out)
	}

	totals := make(map[string]float64, len(valueColumns))
	for _, name := range valueColumns {
		var sum float64
		for _, row := range data {
			if v, ok := row[name].(float64); ok {
				sum += v
			}
		}
		totals[name] = sum
	}

	return &Result{Columns: columns, Data: data, GrandTotals: totals}
}

// sortedColKeys returns the observed column keys in output order. With no
// column fields there is exactly one implicit empty key, whether or not any
// row survived filtering.
func sortedColKeys(spec Spec, colKeys map[string]struct{}) []string {
	if len(spec.ColFields) == 0 {
		return []string{""}
	}
	cks := make([]string, 0, len(colKeys))
	for ck := range colKeys {
		cks = append(cks, ck)
	}
	sort.Strings(cks)
	return cks
}
