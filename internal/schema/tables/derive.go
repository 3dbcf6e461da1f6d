package tables

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/enerdata/cenmigrate/internal/schema"
)

// The withdrawal and contract exports index time as a quarter of the day
// (1-96). The destination keeps the split hour and starting minute alongside
// it so time-of-day queries do not need the arithmetic.
func quarterHourDerived() []schema.DerivedSpec {
	return []schema.DerivedSpec{
		{DBColumn: "hour", Compute: func(values []any) any {
			q, ok := quarterOfDay(values)
			if !ok {
				return pgtype.Int8{}
			}
			return pgtype.Int8{Int64: (q - 1) / 4, Valid: true}
		}},
		{DBColumn: "minute", Compute: func(values []any) any {
			q, ok := quarterOfDay(values)
			if !ok {
				return pgtype.Int8{}
			}
			return pgtype.Int8{Int64: (q - 1) % 4 * 15, Valid: true}
		}},
	}
}

// quarterOfDay reads the quarter_hour value, declared as the first field of
// every table that uses this derivation.
func quarterOfDay(values []any) (int64, bool) {
	q, ok := values[0].(pgtype.Int8)
	if !ok || !q.Valid {
		return 0, false
	}
	return q.Int64, true
}
