package pivot

import "fmt"

// columnNames produces the ordered output column list: row fields first,
// then value columns. Without column fields the value columns are flat,
// "{col} ({agg})"; with them, every sorted column key gets one column per
// value spec, "{key} • {col} ({agg})".
func columnNames(spec Spec, sortedKeys []string) []string {
	columns := make([]string, 0, len(spec.RowFields)+len(sortedKeys)*len(spec.Values))
	columns = append(columns, spec.RowFields...)
	if len(spec.ColFields) == 0 {
		for _, vs := range spec.Values {
			columns = append(columns, valueName(vs))
		}
		return columns
	}
	for _, ck := range sortedKeys {
		for _, vs := range spec.Values {
			columns = append(columns, fmt.Sprintf("%s • %s", DisplayKey(ck), valueName(vs)))
		}
	}
	return columns
}

func valueName(vs ValueSpec) string {
	return fmt.Sprintf("%s (%s)", vs.Col, vs.Agg)
}
