package pivot

import "strings"

// KeySeparator joins coerced field values into a group key. U+00A6 (broken
// bar) is assumed never to appear in real field values; values containing it
// would need pre-escaping, which nothing does today.
const KeySeparator = "¦"

// displayDelimiter replaces KeySeparator when a column key is rendered into
// an output column name.
const displayDelimiter = " / "

// keyOf derives a group key for a row over an ordered field list and returns
// the coerced tuple alongside it, so output rows can carry the original
// field values rather than the opaque key. Missing fields coerce to nil.
func keyOf(row Row, fields []string) (string, []any) {
	if len(fields) == 0 {
		return "", nil
	}
	parts := make([]string, len(fields))
	tuple := make([]any, len(fields))
	for i, f := range fields {
		cv := Coerce(row[f])
		tuple[i] = cv
		parts[i] = Stringify(cv)
	}
	return strings.Join(parts, KeySeparator), tuple
}

// DisplayKey renders a column key for humans: the separator becomes " / "
// and a blank key (no column fields, or all-empty values) reads "All".
func DisplayKey(key string) string {
	s := strings.TrimSpace(key)
	if s == "" {
		return "All"
	}
	return strings.ReplaceAll(s, KeySeparator, displayDelimiter)
}
