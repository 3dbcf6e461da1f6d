// Package tables registers the table definitions for the energy-market
// datasets. Import it for its side effects:
//
//	import _ "github.com/enerdata/cenmigrate/internal/schema/tables"
package tables

import "github.com/enerdata/cenmigrate/internal/schema"

func intBound(v int64) *int64 { return &v }

func init() {
	schema.Register(schema.Table{
		Key:       "marginal_price",
		Name:      "marginal_price",
		Label:     "Marginal Prices",
		Directory: "MarginalPrices",
		Fields: []schema.FieldSpec{
			{Column: "FECHA", DBColumn: "price_date", Type: schema.FieldDate, Required: true, KeyPart: true},
			{Column: "HORA", DBColumn: "hour", Type: schema.FieldInt, Required: true, KeyPart: true, MinInt: intBound(0), MaxInt: intBound(23)},
			{Column: "MINUTO", DBColumn: "minute", Type: schema.FieldInt, Required: true, KeyPart: true, MinInt: intBound(0), MaxInt: intBound(59)},
			{Column: "BARRA", DBColumn: "bus", Type: schema.FieldText, Required: true, KeyPart: true, Normalizer: NormalizeName},
			{Column: "CMg[mills/kWh]", DBColumn: "cmg_mills_kwh", Type: schema.FieldDecimal, Required: true},
			{Column: "CMg[$/KWh]", DBColumn: "cmg_clp_kwh", Type: schema.FieldDecimal, Required: true},
			{Column: "USD", DBColumn: "usd_rate", Type: schema.FieldDecimal, Required: true, Positive: true},
		},
	})
}
