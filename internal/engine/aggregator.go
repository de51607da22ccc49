package engine

import (
	"context"
	"runtime"
	"strings"
	"sync"

	"backend/internal/pivot"
)

// Scans shorter than this run on one goroutine; fan-out only pays for itself
// on large datasets, and a single pass keeps small results bit-stable with
// the local cube builder.
const minParallelRows = 4096

// partialCube is one worker's slice of the cube. Workers never share state;
// partials are merged in worker order after the scan.
type partialCube struct {
	cells     map[pivot.CellKey]*pivot.Accumulator
	rowTuples map[string][]any
	colKeys   map[string]struct{}
}

func newPartialCube() *partialCube {
	return &partialCube{
		cells:     make(map[pivot.CellKey]*pivot.Accumulator),
		rowTuples: make(map[string][]any),
		colKeys:   make(map[string]struct{}),
	}
}

// Pivot computes the spec over the stored dataset. It satisfies
// pivot.Remote; results match pivot.Build over the same rows exactly, since
// both paths coerce identically and finish through pivot.Assemble.
func (cs *ColumnStore) Pivot(ctx context.Context, spec pivot.Spec) (*pivot.Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	keep := cs.filterMask(spec.Filters)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rowCols := cs.lookup(spec.RowFields)
	colCols := cs.lookup(spec.ColFields)
	valCols := make([]*column, len(spec.Values))
	for i, vs := range spec.Values {
		valCols[i] = cs.cols[vs.Col]
	}

	numWorkers := runtime.NumCPU()
	if cs.rows < minParallelRows || numWorkers < 1 {
		numWorkers = 1
	}
	chunk := (cs.rows + numWorkers - 1) / numWorkers

	partials := make([]*partialCube, numWorkers)
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		start := w * chunk
		end := start + chunk
		if end > cs.rows {
			end = cs.rows
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			p := newPartialCube()
			partials[w] = p

			for j := start; j < end; j++ {
				if !keep[j] {
					continue
				}
				rk, tuple := keyAt(rowCols, j)
				ck, _ := keyAt(colCols, j)
				if _, seen := p.rowTuples[rk]; !seen {
					p.rowTuples[rk] = tuple
				}
				p.colKeys[ck] = struct{}{}
				for i := range spec.Values {
					key := pivot.CellKey{Row: rk, Col: ck, Value: i}
					acc := p.cells[key]
					if acc == nil {
						acc = pivot.NewAccumulator(spec.Values[i].Agg)
						p.cells[key] = acc
					}
					acc.Update(valCols[i].at(j))
				}
			}
		}(w, start, end)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Merge phase: fold partials in worker order so repeated runs stay
	// deterministic.
	cells := make(map[pivot.CellKey]*pivot.Accumulator)
	rowTuples := make(map[string][]any)
	colKeys := make(map[string]struct{})
	for _, p := range partials {
		if p == nil {
			continue
		}
		for key, acc := range p.cells {
			if have := cells[key]; have != nil {
				have.Merge(acc)
			} else {
				cells[key] = acc
			}
		}
		for rk, tuple := range p.rowTuples {
			if _, seen := rowTuples[rk]; !seen {
				rowTuples[rk] = tuple
			}
		}
		for ck := range p.colKeys {
			colKeys[ck] = struct{}{}
		}
	}

	return pivot.Assemble(spec, rowTuples, colKeys, cells), nil
}

// filterMask evaluates every rule once per dictionary entry instead of once
// per row, then ANDs the per-row verdicts through the id columns.
func (cs *ColumnStore) filterMask(rules []pivot.Rule) []bool {
	keep := make([]bool, cs.rows)
	for j := range keep {
		keep[j] = true
	}
	for _, rule := range rules {
		col := cs.cols[rule.Column]
		if col == nil {
			// Missing column: every row reads nil for it.
			if rule.MatchValue(nil) {
				continue
			}
			for j := range keep {
				keep[j] = false
			}
			return keep
		}
		pass := make([]bool, len(col.dict))
		for id, v := range col.dict {
			pass[id] = rule.MatchValue(v)
		}
		for j := range keep {
			if keep[j] {
				keep[j] = pass[col.ids[j]]
			}
		}
	}
	return keep
}

// keyAt mirrors the cube builder's key derivation over columnar storage.
func keyAt(cols []*column, j int) (string, []any) {
	if len(cols) == 0 {
		return "", nil
	}
	parts := make([]string, len(cols))
	tuple := make([]any, len(cols))
	for i, c := range cols {
		v := c.at(j)
		tuple[i] = v
		parts[i] = pivot.Stringify(v)
	}
	return strings.Join(parts, pivot.KeySeparator), tuple
}
