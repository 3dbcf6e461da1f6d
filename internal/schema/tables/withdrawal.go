package tables

import "github.com/enerdata/cenmigrate/internal/schema"

func init() {
	schema.Register(schema.Table{
		Key:       "energy_withdrawal",
		Name:      "energy_withdrawal",
		Label:     "Energy Withdrawals",
		Directory: "Withdrawals",
		Fields: []schema.FieldSpec{
			{Column: "Cuarto de Hora", DBColumn: "quarter_hour", Type: schema.FieldInt, Required: true, KeyPart: true, MinInt: intBound(1), MaxInt: intBound(96)},
			{Column: "Barra", DBColumn: "bus", Type: schema.FieldText, Required: true, Normalizer: NormalizeName},
			{Column: "Suministrador", DBColumn: "supplier", Type: schema.FieldText, Required: true, Normalizer: NormalizeName},
			{Column: "Retiro", DBColumn: "withdrawer", Type: schema.FieldText, Required: true, Normalizer: NormalizeName},
			{Column: "clave", DBColumn: "settlement_key", Type: schema.FieldText, Required: true, KeyPart: true, Normalizer: NormalizeKey},
			{Column: "Tipo", DBColumn: "withdrawal_type", Type: schema.FieldText, Required: true},
			{Column: "Medida_kWh", DBColumn: "energy_kwh", Type: schema.FieldDecimal, Required: true},
			{Column: "Clave Año_Mes", DBColumn: "period", Type: schema.FieldDate, Required: true, KeyPart: true},
		},
		Derived: quarterHourDerived(),
	})
}
