package loader

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/enerdata/cenmigrate/internal/schema"
)

// PGExecutor inserts records into Postgres through a pgxpool.
//
// Duplicate handling rides on the table's declared key columns. Under the
// reject policy the insert carries ON CONFLICT DO NOTHING, so a pre-existing
// key shows up as zero rows affected instead of an error. Under the
// overwrite policy the conflict turns into an update of the non-key columns.
type PGExecutor struct {
	pool       *pgxpool.Pool
	table      schema.Table
	insertSQL  string
	detectDups bool
}

// NewPGExecutor prepares the insert statement for table under the given
// duplicate policy ("reject" or "overwrite").
func NewPGExecutor(pool *pgxpool.Pool, table schema.Table, duplicatePolicy string) *PGExecutor {
	overwrite := strings.EqualFold(duplicatePolicy, "overwrite")
	return &PGExecutor{
		pool:       pool,
		table:      table,
		insertSQL:  buildInsertSQL(table, overwrite),
		detectDups: len(table.KeyColumns()) > 0 && !overwrite,
	}
}

// InsertBatch sends every record in one transaction using a pgx batch.
func (e *PGExecutor) InsertBatch(ctx context.Context, recs []schema.Record) ([]int, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	b := &pgx.Batch{}
	for _, rec := range recs {
		b.Queue(e.insertSQL, rec.Values...)
	}
	br := tx.SendBatch(ctx, b)

	var dups []int
	var execErr error
	for i := range recs {
		ct, err := br.Exec()
		if err != nil {
			execErr = err
			break
		}
		if e.detectDups && ct.RowsAffected() == 0 {
			dups = append(dups, i)
		}
	}
	if closeErr := br.Close(); execErr == nil && closeErr != nil {
		execErr = closeErr
	}
	if execErr != nil {
		return nil, execErr
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return dups, nil
}

// InsertEach inserts one record at a time inside a single transaction,
// wrapping each insert in a savepoint so a failing record rolls back alone
// while its batchmates commit.
func (e *PGExecutor) InsertEach(ctx context.Context, recs []schema.Record) ([]RecordResult, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	results := make([]RecordResult, len(recs))
	for i, rec := range recs {
		sp := "sp_" + strconv.Itoa(i)
		if _, err := tx.Exec(ctx, "SAVEPOINT "+sp); err != nil {
			return nil, fmt.Errorf("savepoint: %w", err)
		}
		ct, err := tx.Exec(ctx, e.insertSQL, rec.Values...)
		if err != nil {
			if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+sp); rbErr != nil {
				return nil, fmt.Errorf("rollback to savepoint: %w", rbErr)
			}
			results[i] = RecordResult{Err: err}
			continue
		}
		if e.detectDups && ct.RowsAffected() == 0 {
			results[i].Duplicate = true
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return results, nil
}

func buildInsertSQL(t schema.Table, overwrite bool) string {
	cols := t.DBColumns()
	keyCols := t.KeyColumns()

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(t.Name)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(") VALUES (")
	for i := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("$" + strconv.Itoa(i+1))
	}
	sb.WriteString(")")

	if len(keyCols) == 0 {
		return sb.String()
	}

	keySet := make(map[string]bool, len(keyCols))
	for _, k := range keyCols {
		keySet[k] = true
	}
	var updates []string
	for _, c := range cols {
		if !keySet[c] {
			updates = append(updates, c+" = EXCLUDED."+c)
		}
	}

	sb.WriteString(" ON CONFLICT (")
	sb.WriteString(strings.Join(keyCols, ", "))
	sb.WriteString(")")
	if !overwrite || len(updates) == 0 {
		sb.WriteString(" DO NOTHING")
		return sb.String()
	}
	sb.WriteString(" DO UPDATE SET ")
	sb.WriteString(strings.Join(updates, ", "))
	return sb.String()
}
