// Package export serializes pivot results for download. Escaping lives here,
// apart from the aggregation core: export format and aggregation semantics
// are orthogonal.
package export

import (
	"fmt"
	"strconv"
	"strings"

	"backend/internal/pivot"
)

// CSV renders a result as CSV text: the column header row, then one line per
// data row in column order. Nil cells render as empty fields.
func CSV(res *pivot.Result) []byte {
	var b strings.Builder
	writeRecord(&b, res.Columns)
	for _, row := range res.Data {
		fields := make([]string, len(res.Columns))
		for i, col := range res.Columns {
			fields[i] = formatCell(row[col])
		}
		writeRecord(&b, fields)
	}
	return []byte(b.String())
}

// File names and renders a downloadable export, defaulting and normalizing
// the .csv extension.
func File(res *pivot.Result, filename string) (string, []byte) {
	if filename == "" {
		filename = "pivot"
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		filename += ".csv"
	}
	return filename, CSV(res)
}

func writeRecord(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(escape(f))
	}
	b.WriteByte('\n')
}

// escape quotes a field containing a comma, double quote or newline,
// doubling interior quotes.
func escape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
