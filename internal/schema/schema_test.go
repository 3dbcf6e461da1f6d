package schema

import (
	"reflect"
	"testing"
)

func TestToDBColumnName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple upper", "FECHA", "fecha"},
		{"mixed case", "Suministrador", "suministrador"},
		{"embedded space", "Cuarto de Hora", "cuarto_de_hora"},
		{"brackets and slash", "CMg[mills/kWh]", "cmg_mills_kwh"},
		{"underscore kept", "Medida_kWh", "medida_kwh"},
		{"currency symbol", "CMg[$/KWh]", "cmg_kwh"},
		{"leading and trailing space", "  Barra  ", "barra"},
		{"digits", "Valorizado_CLP", "valorizado_clp"},
		{"non ascii dropped", "Clave Año_Mes", "clave_a_o_mes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toDBColumnName(tt.input); got != tt.want {
				t.Errorf("toDBColumnName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTableColumns(t *testing.T) {
	tbl := Table{
		Key:  "t",
		Name: "t",
		Fields: []FieldSpec{
			{Column: "FECHA", DBColumn: "price_date", Type: FieldDate, KeyPart: true},
			{Column: "BARRA", Type: FieldText, KeyPart: true},
			{Column: "USD", DBColumn: "usd_rate", Type: FieldDecimal},
		},
	}

	if got, want := tbl.Columns(), []string{"FECHA", "BARRA", "USD"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Columns() = %v, want %v", got, want)
	}
	// BARRA has no explicit destination, so it derives one.
	if got, want := tbl.DBColumns(), []string{"price_date", "barra", "usd_rate"}; !reflect.DeepEqual(got, want) {
		t.Errorf("DBColumns() = %v, want %v", got, want)
	}
	if got, want := tbl.KeyColumns(), []string{"price_date", "barra"}; !reflect.DeepEqual(got, want) {
		t.Errorf("KeyColumns() = %v, want %v", got, want)
	}
	if got := tbl.Arity(); got != 3 {
		t.Errorf("Arity() = %d, want 3", got)
	}
}

func TestTableDerivedColumns(t *testing.T) {
	tbl := Table{
		Key:  "t",
		Name: "t",
		Fields: []FieldSpec{
			{Column: "Q", DBColumn: "quarter_hour", Type: FieldInt},
		},
		Derived: []DerivedSpec{
			{DBColumn: "hour", Compute: func([]any) any { return nil }},
		},
	}

	if got, want := tbl.DBColumns(), []string{"quarter_hour", "hour"}; !reflect.DeepEqual(got, want) {
		t.Errorf("DBColumns() = %v, want %v", got, want)
	}
	// Derived columns are not source columns.
	if got := tbl.Arity(); got != 1 {
		t.Errorf("Arity() = %d, want 1", got)
	}
}

func TestTableKeyColumnsNone(t *testing.T) {
	tbl := Table{Key: "t", Name: "t", Fields: []FieldSpec{{Column: "A"}}}
	if got := tbl.KeyColumns(); got != nil {
		t.Errorf("KeyColumns() = %v, want nil", got)
	}
}

func TestRegistry(t *testing.T) {
	Clear()
	defer Clear()

	tbl := Table{
		Key:    "sample",
		Name:   "sample",
		Fields: []FieldSpec{{Column: "A"}, {Column: "B"}},
	}
	Register(tbl)

	got, ok := Get("sample")
	if !ok {
		t.Fatal("Get(sample) not found after Register")
	}
	if got.Key != "sample" || got.Arity() != 2 {
		t.Errorf("Get(sample) = %+v", got)
	}
	if _, ok := Get("missing"); ok {
		t.Error("Get(missing) reported found")
	}
	if n := Count(); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestRegistrySorted(t *testing.T) {
	Clear()
	defer Clear()

	Register(Table{Key: "zeta", Name: "zeta", Fields: []FieldSpec{{Column: "A"}}})
	Register(Table{Key: "alpha", Name: "alpha", Fields: []FieldSpec{{Column: "A"}}})

	if got, want := Keys(), []string{"alpha", "zeta"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestRegisterPanics(t *testing.T) {
	tests := []struct {
		name  string
		setup func()
		table Table
	}{
		{
			name:  "duplicate key",
			setup: func() { Register(Table{Key: "dup", Name: "dup", Fields: []FieldSpec{{Column: "A"}}}) },
			table: Table{Key: "dup", Name: "dup", Fields: []FieldSpec{{Column: "A"}}},
		},
		{
			name:  "no fields",
			table: Table{Key: "empty", Name: "empty"},
		},
		{
			name:  "missing name",
			table: Table{Key: "anon", Fields: []FieldSpec{{Column: "A"}}},
		},
		{
			name:  "duplicate destination column",
			table: Table{Key: "cols", Name: "cols", Fields: []FieldSpec{{Column: "A B"}, {Column: "a_b"}}},
		},
		{
			name: "derived column without compute",
			table: Table{
				Key: "der", Name: "der",
				Fields:  []FieldSpec{{Column: "A"}},
				Derived: []DerivedSpec{{DBColumn: "b"}},
			},
		},
		{
			name: "derived column shadows mapped column",
			table: Table{
				Key: "der2", Name: "der2",
				Fields:  []FieldSpec{{Column: "A"}},
				Derived: []DerivedSpec{{DBColumn: "a", Compute: func([]any) any { return nil }}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Clear()
			defer Clear()
			if tt.setup != nil {
				tt.setup()
			}
			defer func() {
				if recover() == nil {
					t.Error("Register did not panic")
				}
			}()
			Register(tt.table)
		})
	}
}
