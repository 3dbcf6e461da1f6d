package tables

import "github.com/enerdata/cenmigrate/internal/schema"

func init() {
	schema.Register(schema.Table{
		Key:       "physical_contract",
		Name:      "physical_contract",
		Label:     "Physical Contracts",
		Directory: "Contracts",
		Fields: []schema.FieldSpec{
			{Column: "Cuarto de Hora", DBColumn: "quarter_hour", Type: schema.FieldInt, Required: true, KeyPart: true, MinInt: intBound(1), MaxInt: intBound(96)},
			{Column: "Barra", DBColumn: "bus", Type: schema.FieldText, Required: true, Normalizer: NormalizeName},
			{Column: "clave", DBColumn: "settlement_key", Type: schema.FieldText, Required: true, Normalizer: NormalizeKey},
			{Column: "Empresa", DBColumn: "company", Type: schema.FieldText, Required: true, Normalizer: NormalizeName},
			{Column: "Transacción", DBColumn: "transaction_type", Type: schema.FieldText, Required: true},
			{Column: "Kwhh", DBColumn: "energy_kwh", Type: schema.FieldDecimal, Required: true},
			{Column: "Valorizado_CLP", DBColumn: "value_clp", Type: schema.FieldDecimal, Required: true},
			{Column: "Id_Contrato", DBColumn: "contract_id", Type: schema.FieldInt, Required: true, KeyPart: true, Positive: true},
			{Column: "CMG_PESO_KWH", DBColumn: "cmg_clp_kwh", Type: schema.FieldDecimal, Required: true},
		},
		Derived: quarterHourDerived(),
	})
}
