package tables

import "strings"

// NormalizeName collapses internal whitespace and uppercases a bus or company
// name. Source exports are inconsistent about casing and padding ("quillota
// 220" vs "QUILLOTA  220"), and the duplicate-detection key is built from the
// normalized value, so both spellings must converge.
func NormalizeName(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		fields[i] = strings.ToUpper(f)
	}
	return strings.Join(fields, " ")
}

// NormalizeKey trims and uppercases a settlement key. Keys are matched
// exactly downstream, so stray padding must not produce distinct keys.
func NormalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
