// Package pivot implements the cross-tabulation engine behind the dashboard's
// pivot tab: rows plus a declarative spec (row fields, column fields, value
// aggregations, filters) in, a dense wide table out.
//
// The same Spec can be executed locally over materialized rows (Build) or
// delegated to a columnar engine holding the dataset (Remote); both paths
// produce identical results for the same data. See Executor.
package pivot

// Row is one flat record: column name to cell value. Cells may be strings,
// numbers, booleans, time.Time values or nil; every consumer normalizes them
// through Coerce before comparing, grouping or filtering.
type Row map[string]any

// ValueSpec names one aggregate to compute per cell.
type ValueSpec struct {
	Col string  `json:"col"`
	Agg AggFunc `json:"agg"`
}

// Spec is the declarative pivot specification. It carries no data; a Request
// binds it to rows for local execution, and the columnar engine binds it to
// its own dataset on the remote path.
type Spec struct {
	RowFields []string    `json:"row_fields"`
	ColFields []string    `json:"col_fields"`
	Values    []ValueSpec `json:"values"`
	Filters   []Rule      `json:"filters"`
}

// Validate rejects malformed specs before any row is processed: unknown
// aggregation functions and filter payloads whose shape does not match their
// operator. Missing columns are not an error; they degrade to null
// contributions during the build.
func (s Spec) Validate() error {
	for _, v := range s.Values {
		if !v.Agg.valid() {
			return malformedf("unknown aggregation %q for column %q", v.Agg, v.Col)
		}
	}
	for _, r := range s.Filters {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Request binds a Spec to locally materialized rows. Rows may be nil when the
// dataset lives behind the remote engine.
type Request struct {
	Spec
	Rows []Row `json:"rows,omitempty"`
}

// Result is the dense output table. Every entry in Data has exactly the keys
// listed in Columns; cells with no contributing rows hold nil. GrandTotals
// maps each value column to the sum of its finalized numeric cells.
type Result struct {
	Columns     []string           `json:"columns"`
	Data        []map[string]any   `json:"data"`
	GrandTotals map[string]float64 `json:"grand_totals"`
}
