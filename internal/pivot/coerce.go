package pivot

import (
	"fmt"
	"strconv"
	"time"
)

// Coerce normalizes an arbitrary cell value into the closed primitive set
// {string, float64, bool, nil}. Dates collapse to day granularity so that
// grouping on a timestamp column is stable. Coerce is total: it never fails,
// anything unrecognized becomes its string form.
//
// Grouping, filtering and key construction all go through Coerce, so they
// agree on what "equal" means (numeric 5 and float 5.0 are one value).
func Coerce(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return t
	case bool:
		return t
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int8:
		return float64(t)
	case int16:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint:
		return float64(t)
	case uint8:
		return float64(t)
	case uint16:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case time.Time:
		return t.Format("2006-01-02")
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.Format("2006-01-02")
	default:
		return fmt.Sprint(t)
	}
}

// Stringify renders an already-coerced value for key construction, substring
// filters and distinctness. nil renders as the empty string; floats render
// without a trailing ".0" so 15 and 15.0 share one form.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
