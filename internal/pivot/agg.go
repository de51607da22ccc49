package pivot

// AggFunc names an aggregation function.
type AggFunc string

const (
	AggSum           AggFunc = "sum"
	AggAvg           AggFunc = "avg"
	AggMin           AggFunc = "min"
	AggMax           AggFunc = "max"
	AggCount         AggFunc = "count"
	AggCountDistinct AggFunc = "count_distinct"
)

func (f AggFunc) valid() bool {
	switch f {
	case AggSum, AggAvg, AggMin, AggMax, AggCount, AggCountDistinct:
		return true
	}
	return false
}

// Accumulator is the running state for one cell: one (row key, column key,
// value spec) triple. It is created lazily on the first contributing row,
// updated once per row with the coerced cell value, and finalized once.
//
// Semantics per function:
//
//	sum            running sum of numeric values; empty sum finalizes to 0
//	avg            sum/count over numeric values; no values finalizes to null
//	min, max       numeric extremum; non-numeric values are skipped
//	count          contributing rows, regardless of value type or nullness
//	count_distinct distinct non-empty string forms
type Accumulator struct {
	fn       AggFunc
	sum      float64
	count    int
	extremum float64
	seenNum  bool
	distinct map[string]struct{}
}

// NewAccumulator returns the zero state for fn.
func NewAccumulator(fn AggFunc) *Accumulator {
	a := &Accumulator{fn: fn}
	if fn == AggCountDistinct {
		a.distinct = make(map[string]struct{})
	}
	return a
}

// Update folds one coerced cell value into the state.
func (a *Accumulator) Update(v any) {
	switch a.fn {
	case AggSum, AggAvg:
		if n, ok := v.(float64); ok {
			a.sum += n
			a.count++
		}
	case AggMin:
		if n, ok := v.(float64); ok {
			if !a.seenNum || n < a.extremum {
				a.extremum = n
			}
			a.seenNum = true
		}
	case AggMax:
		if n, ok := v.(float64); ok {
			if !a.seenNum || n > a.extremum {
				a.extremum = n
			}
			a.seenNum = true
		}
	case AggCount:
		a.count++
	case AggCountDistinct:
		if s := Stringify(v); s != "" {
			a.distinct[s] = struct{}{}
		}
	}
}

// Merge folds another accumulator for the same function into a. The columnar
// engine uses it to combine per-worker partial aggregates.
func (a *Accumulator) Merge(b *Accumulator) {
	switch a.fn {
	case AggSum, AggAvg:
		a.sum += b.sum
		a.count += b.count
	case AggMin:
		if b.seenNum && (!a.seenNum || b.extremum < a.extremum) {
			a.extremum = b.extremum
		}
		a.seenNum = a.seenNum || b.seenNum
	case AggMax:
		if b.seenNum && (!a.seenNum || b.extremum > a.extremum) {
			a.extremum = b.extremum
		}
		a.seenNum = a.seenNum || b.seenNum
	case AggCount:
		a.count += b.count
	case AggCountDistinct:
		for s := range b.distinct {
			a.distinct[s] = struct{}{}
		}
	}
}

// Final resolves the state to a number. ok is false when the cell has no
// defined value (avg over zero numeric values, min/max that never saw one);
// such cells render as null.
func (a *Accumulator) Final() (float64, bool) {
	switch a.fn {
	case AggSum:
		return a.sum, true
	case AggAvg:
		if a.count == 0 {
			return 0, false
		}
		return a.sum / float64(a.count), true
	case AggMin, AggMax:
		return a.extremum, a.seenNum
	case AggCount:
		return float64(a.count), true
	case AggCountDistinct:
		return float64(len(a.distinct)), true
	}
	return 0, false
}
