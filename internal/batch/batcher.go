// Package batch groups validated records into bounded, ordered batches for
// insertion.
package batch

import "github.com/enerdata/cenmigrate/internal/schema"

// Batch is one ordered group of records bound for a single table.
type Batch struct {
	Table   string
	Seq     int // 1-based batch number within the run
	Records []schema.Record
}

// Batcher accumulates records and emits a Batch every time the configured
// size is reached. Records come out in the order they went in, both within
// a batch and across batches.
type Batcher struct {
	table string
	size  int
	seq   int
	buf   []schema.Record
}

// New returns a Batcher emitting batches of at most size records.
func New(table string, size int) *Batcher {
	if size <= 0 {
		size = 1
	}
	return &Batcher{table: table, size: size, buf: make([]schema.Record, 0, size)}
}

// Add appends a record and returns a full Batch when the size boundary is
// hit, or nil otherwise.
func (b *Batcher) Add(rec schema.Record) *Batch {
	b.buf = append(b.buf, rec)
	if len(b.buf) < b.size {
		return nil
	}
	return b.emit()
}

// Flush returns whatever is buffered as a final short batch, or nil when
// nothing is pending. Call it once the input is exhausted so a partial
// batch is not lost.
func (b *Batcher) Flush() *Batch {
	if len(b.buf) == 0 {
		return nil
	}
	return b.emit()
}

// Pending returns the number of buffered records.
func (b *Batcher) Pending() int { return len(b.buf) }

func (b *Batcher) emit() *Batch {
	b.seq++
	out := &Batch{Table: b.table, Seq: b.seq, Records: b.buf}
	b.buf = make([]schema.Record, 0, b.size)
	return out
}
