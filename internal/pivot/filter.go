package pivot

import (
	"reflect"
	"strings"
)

// Op is a filter operator.
type Op string

const (
	OpEquals      Op = "equals"
	OpNotEquals   Op = "not_equals"
	OpContains    Op = "contains"
	OpNotContains Op = "not_contains"
	OpIn          Op = "in"
	OpBetween     Op = "between"
)

// Rule is one filter predicate. A row passes a spec only if it passes every
// rule (logical AND); an empty rule list passes everything.
//
// Payload shape by operator: equals/not_equals take one primitive,
// contains/not_contains one string (matched case-insensitively), in a list of
// primitives, between an ordered pair (bounds accepted in either order).
type Rule struct {
	Column   string `json:"column"`
	Operator Op     `json:"operator"`
	Value    any    `json:"value"`
}

// NewRule builds a validated rule. Specs decoded from JSON call
// Spec.Validate instead.
func NewRule(column string, op Op, value any) (Rule, error) {
	r := Rule{Column: column, Operator: op, Value: value}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// Validate checks that the payload shape matches the operator. Shape errors
// are rejected here, never coerced at evaluation time.
func (r Rule) Validate() error {
	switch r.Operator {
	case OpEquals, OpNotEquals:
		if _, ok := asList(r.Value); ok {
			return malformedf("%s on %q takes a single value, got a list", r.Operator, r.Column)
		}
	case OpContains, OpNotContains:
		if _, ok := r.Value.(string); !ok {
			return malformedf("%s on %q takes a string, got %T", r.Operator, r.Column, r.Value)
		}
	case OpIn:
		if _, ok := asList(r.Value); !ok {
			return malformedf("in on %q takes a list, got %T", r.Column, r.Value)
		}
	case OpBetween:
		pair, ok := asList(r.Value)
		if !ok || len(pair) != 2 {
			return malformedf("between on %q takes a [low, high] pair", r.Column)
		}
	default:
		return malformedf("unknown operator %q", r.Operator)
	}
	return nil
}

// Matches reports whether a row passes the rule. A missing column evaluates
// as a nil cell.
func (r Rule) Matches(row Row) bool {
	return r.MatchValue(Coerce(row[r.Column]))
}

// MatchValue evaluates the rule against an already-coerced cell value. The
// columnar engine uses it directly on dictionary entries.
func (r Rule) MatchValue(v any) bool {
	switch r.Operator {
	case OpEquals:
		return v == Coerce(r.Value)
	case OpNotEquals:
		return v != Coerce(r.Value)
	case OpContains:
		return containsFold(Stringify(v), r.Value)
	case OpNotContains:
		return !containsFold(Stringify(v), r.Value)
	case OpIn:
		// Membership compares string forms, the same equality grouping
		// uses, so numeric 5 and string "5" are one value here too.
		list, _ := asList(r.Value)
		s := Stringify(v)
		for _, e := range list {
			if s == Stringify(Coerce(e)) {
				return true
			}
		}
		return false
	case OpBetween:
		pair, _ := asList(r.Value)
		if len(pair) != 2 {
			return false
		}
		return between(v, Coerce(pair[0]), Coerce(pair[1]))
	}
	return false
}

func containsFold(haystack string, needle any) bool {
	n, _ := needle.(string)
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(n))
}

// between compares numerically when the value and both bounds are numbers,
// otherwise falls back to ordinal string comparison. Bounds work in either
// order.
func between(v, lo, hi any) bool {
	nv, okV := v.(float64)
	nLo, okLo := lo.(float64)
	nHi, okHi := hi.(float64)
	if okV && okLo && okHi {
		if nLo > nHi {
			nLo, nHi = nHi, nLo
		}
		return nv >= nLo && nv <= nHi
	}
	s, sLo, sHi := Stringify(v), Stringify(lo), Stringify(hi)
	if sLo > sHi {
		sLo, sHi = sHi, sLo
	}
	return s >= sLo && s <= sHi
}

// asList widens any slice payload (JSON []any, or typed slices from Go
// callers) into []any.
func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case []any:
		return t, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
