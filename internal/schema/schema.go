// Package schema defines the record model for migrated entities: per-table
// field specifications, the validated Record shape, and rejection reasons.
// This package has no database or I/O dependencies.
package schema

import "strings"

// FieldType represents the expected data type for a source column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldInt
	FieldDecimal
	FieldDate
)

// FieldSpec defines the mapping and validation rules for a single column.
type FieldSpec struct {
	Column   string // Source column header name (must match the file exactly)
	DBColumn string // Destination column name (derived from Column if empty)
	Type     FieldType
	Required bool // Empty value after trimming rejects the row
	KeyPart  bool // Participates in the duplicate-detection key

	// Domain constraints, checked after type coercion.
	Positive    bool     // Numeric value must be > 0
	NonNegative bool     // Numeric value must be >= 0
	MinInt      *int64   // Inclusive lower bound for FieldInt
	MaxInt      *int64   // Inclusive upper bound for FieldInt
	Enum        []string // Allowed values for FieldText (case-insensitive)

	// Normalizer runs on the cleaned value before type coercion.
	Normalizer func(string) string
}

// DerivedSpec adds a destination column whose value is computed from the
// coerced field values instead of read from the source. Compute receives the
// values in Fields order and runs after every field has passed validation.
type DerivedSpec struct {
	DBColumn string
	Compute  func(values []any) any
}

// Table describes one destination table and its source column mapping.
type Table struct {
	Key       string // Registry key: "marginal_price"
	Name      string // Destination table name
	Label     string // Display name
	Directory string // Source subdirectory when scanning a source dir
	Fields    []FieldSpec
	Derived   []DerivedSpec
}

// Columns returns the source column names in declaration order.
func (t Table) Columns() []string {
	cols := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		cols[i] = f.Column
	}
	return cols
}

// DBColumns returns the destination column names in declaration order,
// mapped fields first, derived columns after.
func (t Table) DBColumns() []string {
	cols := make([]string, 0, len(t.Fields)+len(t.Derived))
	for _, f := range t.Fields {
		cols = append(cols, f.dbColumn())
	}
	for _, d := range t.Derived {
		cols = append(cols, d.DBColumn)
	}
	return cols
}

// KeyColumns returns the destination columns forming the duplicate-detection
// key, or nil if the table declares none.
func (t Table) KeyColumns() []string {
	var cols []string
	for _, f := range t.Fields {
		if f.KeyPart {
			cols = append(cols, f.dbColumn())
		}
	}
	return cols
}

// Arity returns the number of mapped columns.
func (t Table) Arity() int { return len(t.Fields) }

func (f FieldSpec) dbColumn() string {
	if f.DBColumn != "" {
		return f.DBColumn
	}
	return toDBColumnName(f.Column)
}

// toDBColumnName converts a source header to a snake_case column name.
func toDBColumnName(col string) string {
	var b strings.Builder
	prevUnderscore := false
	for _, r := range strings.TrimSpace(col) {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r - 'A' + 'a')
			prevUnderscore = false
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevUnderscore = false
		default:
			if !prevUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				prevUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

// RawRow is one unparsed line of source data split into fields.
type RawRow struct {
	File   string
	Line   int // 1-based line number within the source file
	Fields []string
}

// Record is the validated, typed representation of one entity, ready for
// insertion. Immutable once created.
type Record struct {
	Table string
	File  string
	Line  int
	Key   string // Duplicate-detection key, "" if the table declares no key
	Raw   []string
	// Values holds one coerced value per destination column: Table.Fields
	// order first, then any derived columns. Each entry is a pgtype value
	// suitable for a parameterized insert.
	Values []any
}

// Reason classifies why a row was rejected. Rejections are terminal: they are
// logged and counted, never retried.
type Reason string

const (
	ReasonMissingField Reason = "missing_field"
	ReasonTypeMismatch Reason = "type_mismatch"
	ReasonConstraint   Reason = "constraint_violation"
	ReasonDuplicateKey Reason = "duplicate_key"
	ReasonEncoding     Reason = "encoding_error"
)

// RejectedRow is a RawRow plus the reason it was rejected.
type RejectedRow struct {
	Row    RawRow
	Reason Reason
	Detail string
}
