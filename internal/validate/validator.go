// Package validate turns raw source rows into typed records ready for
// insertion. Every rule violation is a terminal rejection with a reason;
// validation never retries and never aborts the run.
package validate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/enerdata/cenmigrate/internal/schema"
)

// Validator checks and coerces rows for one table. It keeps the set of keys
// seen in the current run for duplicate detection, so it is not safe for
// concurrent use; run one Validator per table per run.
type Validator struct {
	table schema.Table
	arity int   // expected field count per row
	pos   []int // row index per field, -1 when the column is absent
	keyed bool
	seen  map[string]struct{}
}

// New builds a Validator for table against the given header. A nil header
// maps columns by position. A header missing a required column is a setup
// error: the whole file is unusable, not individual rows.
func New(table schema.Table, header []string) (*Validator, error) {
	v := &Validator{
		table: table,
		pos:   make([]int, len(table.Fields)),
		keyed: len(table.KeyColumns()) > 0,
		seen:  make(map[string]struct{}),
	}

	if header == nil {
		v.arity = len(table.Fields)
		for i := range table.Fields {
			v.pos[i] = i
		}
		return v, nil
	}
	v.arity = len(header)

	for i, f := range table.Fields {
		v.pos[i] = -1
		for j, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), f.Column) {
				v.pos[i] = j
				break
			}
		}
		if v.pos[i] < 0 && f.Required {
			return nil, fmt.Errorf("table %s: required column %q not found in header", table.Key, f.Column)
		}
	}
	return v, nil
}

// Validate coerces one row. It returns either a Record or a RejectedRow,
// never both. Checks run in a fixed order (field count, then per field:
// presence, type, domain constraints) so a row failing several rules
// reports the first.
func (v *Validator) Validate(row schema.RawRow) (schema.Record, *schema.RejectedRow) {
	if len(row.Fields) != v.arity {
		reason := schema.ReasonMissingField
		if len(row.Fields) > v.arity {
			reason = schema.ReasonConstraint
		}
		return schema.Record{}, v.reject(row, reason,
			fmt.Sprintf("row has %d fields, expected %d", len(row.Fields), v.arity))
	}

	values := make([]any, len(v.table.Fields), len(v.table.Fields)+len(v.table.Derived))
	var keyParts []string
	if v.keyed {
		keyParts = make([]string, 0, len(v.table.Fields))
	}

	for i, f := range v.table.Fields {
		raw := ""
		if p := v.pos[i]; p >= 0 && p < len(row.Fields) {
			raw = strings.TrimSpace(row.Fields[p])
		}
		if f.Normalizer != nil {
			raw = f.Normalizer(raw)
		}

		if raw == "" {
			if f.Required {
				return schema.Record{}, v.reject(row, schema.ReasonMissingField,
					fmt.Sprintf("column %q is empty", f.Column))
			}
			values[i] = nullFor(f.Type)
			if f.KeyPart {
				keyParts = append(keyParts, "")
			}
			continue
		}

		var keyPart string
		switch f.Type {
		case schema.FieldText:
			if len(f.Enum) > 0 {
				canonical, ok := matchEnum(raw, f.Enum)
				if !ok {
					return schema.Record{}, v.reject(row, schema.ReasonConstraint,
						fmt.Sprintf("column %q: %q is not one of %v", f.Column, raw, f.Enum))
				}
				raw = canonical
			}
			values[i] = pgtype.Text{String: raw, Valid: true}
			keyPart = raw

		case schema.FieldInt:
			iv := ToPgInt(raw)
			if !iv.Valid {
				return schema.Record{}, v.reject(row, schema.ReasonTypeMismatch,
					fmt.Sprintf("column %q: %q is not an integer", f.Column, raw))
			}
			if detail, ok := checkIntBounds(f, iv.Int64); !ok {
				return schema.Record{}, v.reject(row, schema.ReasonConstraint,
					fmt.Sprintf("column %q: %s", f.Column, detail))
			}
			values[i] = iv
			keyPart = strconv.FormatInt(iv.Int64, 10)

		case schema.FieldDecimal:
			nv := ToPgNumeric(raw)
			if !nv.Valid {
				return schema.Record{}, v.reject(row, schema.ReasonTypeMismatch,
					fmt.Sprintf("column %q: %q is not a number", f.Column, raw))
			}
			if f.Positive || f.NonNegative {
				fv, ok := numericFloat(nv)
				if !ok {
					return schema.Record{}, v.reject(row, schema.ReasonTypeMismatch,
						fmt.Sprintf("column %q: %q is not a number", f.Column, raw))
				}
				if f.Positive && fv <= 0 {
					return schema.Record{}, v.reject(row, schema.ReasonConstraint,
						fmt.Sprintf("column %q: %v is not positive", f.Column, fv))
				}
				if f.NonNegative && fv < 0 {
					return schema.Record{}, v.reject(row, schema.ReasonConstraint,
						fmt.Sprintf("column %q: %v is negative", f.Column, fv))
				}
			}
			values[i] = nv
			keyPart = raw

		case schema.FieldDate:
			dv := ToPgDate(raw)
			if !dv.Valid {
				return schema.Record{}, v.reject(row, schema.ReasonTypeMismatch,
					fmt.Sprintf("column %q: %q is not a date", f.Column, raw))
			}
			values[i] = dv
			keyPart = dv.Time.Format("2006-01-02")
		}

		if f.KeyPart {
			keyParts = append(keyParts, keyPart)
		}
	}

	for _, d := range v.table.Derived {
		values = append(values, d.Compute(values[:len(v.table.Fields)]))
	}

	key := ""
	if v.keyed {
		key = strings.Join(keyParts, "\x1f")
		if _, dup := v.seen[key]; dup {
			return schema.Record{}, v.reject(row, schema.ReasonDuplicateKey,
				fmt.Sprintf("key (%s) already seen in this run", strings.Join(v.table.KeyColumns(), ", ")))
		}
		v.seen[key] = struct{}{}
	}

	return schema.Record{
		Table:  v.table.Key,
		File:   row.File,
		Line:   row.Line,
		Key:    key,
		Raw:    row.Fields,
		Values: values,
	}, nil
}

func (v *Validator) reject(row schema.RawRow, reason schema.Reason, detail string) *schema.RejectedRow {
	return &schema.RejectedRow{Row: row, Reason: reason, Detail: detail}
}

func checkIntBounds(f schema.FieldSpec, val int64) (string, bool) {
	if f.Positive && val <= 0 {
		return fmt.Sprintf("%d is not positive", val), false
	}
	if f.NonNegative && val < 0 {
		return fmt.Sprintf("%d is negative", val), false
	}
	if f.MinInt != nil && val < *f.MinInt {
		return fmt.Sprintf("%d is below %d", val, *f.MinInt), false
	}
	if f.MaxInt != nil && val > *f.MaxInt {
		return fmt.Sprintf("%d is above %d", val, *f.MaxInt), false
	}
	return "", true
}

func matchEnum(raw string, allowed []string) (string, bool) {
	for _, a := range allowed {
		if strings.EqualFold(raw, a) {
			return a, true
		}
	}
	return "", false
}

func nullFor(t schema.FieldType) any {
	switch t {
	case schema.FieldInt:
		return pgtype.Int8{}
	case schema.FieldDecimal:
		return pgtype.Numeric{}
	case schema.FieldDate:
		return pgtype.Date{}
	default:
		return pgtype.Text{}
	}
}
