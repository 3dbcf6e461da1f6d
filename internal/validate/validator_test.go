package validate

import (
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/enerdata/cenmigrate/internal/schema"
)

func intBound(v int64) *int64 { return &v }

func testTable() schema.Table {
	return schema.Table{
		Key:  "marginal_price",
		Name: "marginal_price",
		Fields: []schema.FieldSpec{
			{Column: "FECHA", DBColumn: "price_date", Type: schema.FieldDate, Required: true, KeyPart: true},
			{Column: "HORA", DBColumn: "hour", Type: schema.FieldInt, Required: true, KeyPart: true, MinInt: intBound(0), MaxInt: intBound(23)},
			{Column: "BARRA", DBColumn: "bus", Type: schema.FieldText, Required: true, KeyPart: true, Normalizer: strings.ToUpper},
			{Column: "CMG", DBColumn: "cmg", Type: schema.FieldDecimal, Required: true},
			{Column: "USD", DBColumn: "usd_rate", Type: schema.FieldDecimal, Positive: true},
		},
	}
}

func row(fields ...string) schema.RawRow {
	return schema.RawRow{File: "a.csv", Line: 2, Fields: fields}
}

func TestNew_HeaderMapping(t *testing.T) {
	// Columns out of order and differently cased still map.
	v, err := New(testTable(), []string{"barra", " HORA ", "FECHA", "CMG", "USD"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec, rej := v.Validate(row("QUILLOTA", "5", "20240101", "45.1", "900"))
	if rej != nil {
		t.Fatalf("Validate() rejected: %s %s", rej.Reason, rej.Detail)
	}
	if rec.Values[1].(pgtype.Int8).Int64 != 5 {
		t.Errorf("hour = %+v, want 5", rec.Values[1])
	}
	if rec.Values[2].(pgtype.Text).String != "QUILLOTA" {
		t.Errorf("bus = %+v", rec.Values[2])
	}
}

func TestNew_MissingRequiredColumn(t *testing.T) {
	_, err := New(testTable(), []string{"FECHA", "HORA", "CMG", "USD"})
	if err == nil {
		t.Fatal("New() expected error for missing BARRA")
	}
	if !strings.Contains(err.Error(), "BARRA") {
		t.Errorf("error should name the column: %v", err)
	}
}

func TestNew_MissingOptionalColumn(t *testing.T) {
	v, err := New(testTable(), []string{"FECHA", "HORA", "BARRA", "CMG"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec, rej := v.Validate(row("20240101", "5", "QUILLOTA", "45.1"))
	if rej != nil {
		t.Fatalf("Validate() rejected: %s %s", rej.Reason, rej.Detail)
	}
	if rec.Values[4].(pgtype.Numeric).Valid {
		t.Errorf("usd_rate = %+v, want NULL", rec.Values[4])
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		fields []string
		reason schema.Reason
		detail string
	}{
		{"empty required", []string{"20240101", "5", "", "45.1", "900"}, schema.ReasonMissingField, "BARRA"},
		{"short row", []string{"20240101", "5"}, schema.ReasonMissingField, "2 fields, expected 5"},
		{"long row", []string{"20240101", "5", "QUILLOTA", "45.1", "900", "extra"}, schema.ReasonConstraint, "6 fields, expected 5"},
		{"bad date", []string{"yesterday", "5", "QUILLOTA", "45.1", "900"}, schema.ReasonTypeMismatch, "FECHA"},
		{"bad int", []string{"20240101", "x", "QUILLOTA", "45.1", "900"}, schema.ReasonTypeMismatch, "HORA"},
		{"bad decimal", []string{"20240101", "5", "QUILLOTA", "cheap", "900"}, schema.ReasonTypeMismatch, "CMG"},
		{"hour above max", []string{"20240101", "24", "QUILLOTA", "45.1", "900"}, schema.ReasonConstraint, "HORA"},
		{"hour below min", []string{"20240101", "-1", "QUILLOTA", "45.1", "900"}, schema.ReasonConstraint, "HORA"},
		{"rate not positive", []string{"20240101", "5", "QUILLOTA", "45.1", "0"}, schema.ReasonConstraint, "USD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := New(testTable(), nil)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			_, rej := v.Validate(row(tt.fields...))
			if rej == nil {
				t.Fatal("Validate() accepted, want rejection")
			}
			if rej.Reason != tt.reason {
				t.Errorf("Reason = %s, want %s", rej.Reason, tt.reason)
			}
			if !strings.Contains(rej.Detail, tt.detail) {
				t.Errorf("Detail = %q, should mention %q", rej.Detail, tt.detail)
			}
		})
	}
}

func TestValidate_DuplicateKeyInRun(t *testing.T) {
	v, err := New(testTable(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, rej := v.Validate(row("20240101", "5", "quillota", "45.1", "900")); rej != nil {
		t.Fatalf("first row rejected: %s", rej.Detail)
	}
	// Same key after normalization even though the date format and bus
	// casing differ.
	_, rej := v.Validate(row("01/01/2024", "5", "QUILLOTA", "99.9", "901"))
	if rej == nil {
		t.Fatal("duplicate accepted")
	}
	if rej.Reason != schema.ReasonDuplicateKey {
		t.Errorf("Reason = %s, want %s", rej.Reason, schema.ReasonDuplicateKey)
	}

	// A different key is still fine.
	if _, rej := v.Validate(row("20240101", "6", "QUILLOTA", "45.1", "900")); rej != nil {
		t.Errorf("distinct key rejected: %s", rej.Detail)
	}
}

func TestValidate_RecordMetadata(t *testing.T) {
	v, err := New(testTable(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec, rej := v.Validate(schema.RawRow{File: "x.csv", Line: 7, Fields: []string{"20240101", "5", "QUILLOTA", "45.1", "900"}})
	if rej != nil {
		t.Fatalf("Validate() rejected: %s", rej.Detail)
	}
	if rec.Table != "marginal_price" || rec.File != "x.csv" || rec.Line != 7 {
		t.Errorf("metadata = %+v", rec)
	}
	if rec.Key == "" {
		t.Error("Key is empty for a keyed table")
	}
	if len(rec.Values) != 5 {
		t.Errorf("len(Values) = %d, want 5", len(rec.Values))
	}
}

func TestValidate_ArityBeforeFieldChecks(t *testing.T) {
	// The field-count check runs first: a wide row is rejected outright even
	// when every mapped column would validate on its own.
	tbl := schema.Table{
		Key:  "t",
		Name: "t",
		Fields: []schema.FieldSpec{
			{Column: "A", DBColumn: "a", Type: schema.FieldInt, Required: true},
			{Column: "B", DBColumn: "b", Type: schema.FieldInt, Required: true},
		},
	}
	v, err := New(tbl, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, rej := v.Validate(row("1", "2", "3", "4"))
	if rej == nil {
		t.Fatal("Validate() accepted a 4-field row against a 2-field table")
	}
	if rej.Reason != schema.ReasonConstraint {
		t.Errorf("Reason = %s, want %s", rej.Reason, schema.ReasonConstraint)
	}

	// With a header, the header's width is what rows must match.
	v, err = New(tbl, []string{"B", "A", "ignored"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, rej := v.Validate(row("1", "2", "x")); rej != nil {
		t.Errorf("header-width row rejected: %s %s", rej.Reason, rej.Detail)
	}
	if _, rej := v.Validate(row("1", "2")); rej == nil || rej.Reason != schema.ReasonMissingField {
		t.Errorf("short row rejection = %+v, want missing_field", rej)
	}
}

func TestValidate_DerivedColumns(t *testing.T) {
	tbl := schema.Table{
		Key:  "t",
		Name: "t",
		Fields: []schema.FieldSpec{
			{Column: "Q", DBColumn: "quarter_hour", Type: schema.FieldInt, Required: true},
		},
		Derived: []schema.DerivedSpec{
			{DBColumn: "hour", Compute: func(values []any) any {
				q := values[0].(pgtype.Int8)
				return pgtype.Int8{Int64: (q.Int64 - 1) / 4, Valid: true}
			}},
		},
	}
	v, err := New(tbl, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec, rej := v.Validate(row("5"))
	if rej != nil {
		t.Fatalf("Validate() rejected: %s", rej.Detail)
	}
	if len(rec.Values) != 2 {
		t.Fatalf("len(Values) = %d, want 2", len(rec.Values))
	}
	if got := rec.Values[1].(pgtype.Int8); got.Int64 != 1 || !got.Valid {
		t.Errorf("derived hour = %+v, want 1", got)
	}
}

func TestValidate_NoKeyTable(t *testing.T) {
	tbl := schema.Table{
		Key:  "t",
		Name: "t",
		Fields: []schema.FieldSpec{
			{Column: "A", Type: schema.FieldText, Required: true},
		},
	}
	v, err := New(tbl, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Identical rows are not duplicates when the table declares no key.
	for i := 0; i < 2; i++ {
		if rec, rej := v.Validate(row("same")); rej != nil {
			t.Fatalf("row %d rejected: %s", i, rej.Detail)
		} else if rec.Key != "" {
			t.Errorf("Key = %q, want empty", rec.Key)
		}
	}
}
