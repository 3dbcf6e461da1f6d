// Package progress tracks live counters for a migration run. Counters are
// updated from the pipeline goroutines and read from the renderer and the
// status endpoint, so everything here is safe for concurrent use.
package progress

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/enerdata/cenmigrate/internal/schema"
)

// Tracker accumulates the counters for one run.
type Tracker struct {
	start time.Time

	read       atomic.Int64
	validated  atomic.Int64
	rejected   atomic.Int64
	inserted   atomic.Int64
	permFailed atomic.Int64
	batches    atomic.Int64
	inRetry    atomic.Int64
	retries    atomic.Int64

	mu       sync.Mutex
	byReason map[schema.Reason]int64

	bytesMu    sync.Mutex
	bytesRead  func() int64
	bytesTotal int64
}

// NewTracker starts the clock for a run.
func NewTracker() *Tracker {
	return &Tracker{
		start:    time.Now(),
		byReason: make(map[schema.Reason]int64),
	}
}

// SetByteSource wires the tracker to the source reader's byte counters so
// snapshots can report data-volume progress and an ETA.
func (t *Tracker) SetByteSource(read func() int64, total int64) {
	t.bytesMu.Lock()
	defer t.bytesMu.Unlock()
	t.bytesRead = read
	t.bytesTotal = total
}

// RecordRead counts a row handed over by the source reader.
func (t *Tracker) RecordRead() { t.read.Add(1) }

// RecordValidated counts a row that passed validation.
func (t *Tracker) RecordValidated() { t.validated.Add(1) }

// RecordRejected counts a terminal rejection under its reason.
func (t *Tracker) RecordRejected(reason schema.Reason) {
	t.rejected.Add(1)
	t.mu.Lock()
	t.byReason[reason]++
	t.mu.Unlock()
}

// RecordsInserted counts records confirmed in the destination.
func (t *Tracker) RecordsInserted(n int) { t.inserted.Add(int64(n)) }

// RecordsFailed counts records that permanently failed to insert.
func (t *Tracker) RecordsFailed(n int) { t.permFailed.Add(int64(n)) }

// BatchDone counts one finished batch, whatever its outcome.
func (t *Tracker) BatchDone() { t.batches.Add(1) }

// EnterRetry and ExitRetry bracket a batch's stay in backoff, keeping the
// in_retry gauge accurate. Retries accumulates every entry so the total
// retry count survives after the gauge drops back to zero.
func (t *Tracker) EnterRetry() {
	t.inRetry.Add(1)
	t.retries.Add(1)
}
func (t *Tracker) ExitRetry() { t.inRetry.Add(-1) }

// Read returns the rows-read counter. Used for the abort-threshold check.
func (t *Tracker) Read() int64 { return t.read.Load() }

// FailedPermanent returns the permanently-failed counter.
func (t *Tracker) FailedPermanent() int64 { return t.permFailed.Load() }

// Snapshot is a point-in-time copy of all counters plus derived figures.
type Snapshot struct {
	Read            int64            `json:"read"`
	Validated       int64            `json:"validated"`
	Rejected        int64            `json:"rejected"`
	RejectedByCause map[string]int64 `json:"rejected_by_reason,omitempty"`
	Inserted        int64            `json:"inserted"`
	FailedPermanent int64            `json:"failed_permanent"`
	InRetry         int64            `json:"in_retry"`
	Retries         int64            `json:"retries"`
	Batches         int64            `json:"batches"`

	BytesRead  int64 `json:"bytes_read"`
	BytesTotal int64 `json:"bytes_total"`

	Elapsed time.Duration `json:"elapsed_ns"`
	Rate    float64       `json:"rows_per_sec"`
	ETA     time.Duration `json:"eta_ns"`
}

// Snapshot returns a consistent-enough copy for display. Counters move
// while it is taken; the numbers are for humans, not accounting.
func (t *Tracker) Snapshot() Snapshot {
	s := Snapshot{
		Read:            t.read.Load(),
		Validated:       t.validated.Load(),
		Rejected:        t.rejected.Load(),
		Inserted:        t.inserted.Load(),
		FailedPermanent: t.permFailed.Load(),
		InRetry:         t.inRetry.Load(),
		Retries:         t.retries.Load(),
		Batches:         t.batches.Load(),
		Elapsed:         time.Since(t.start),
	}

	t.mu.Lock()
	if len(t.byReason) > 0 {
		s.RejectedByCause = make(map[string]int64, len(t.byReason))
		for r, n := range t.byReason {
			s.RejectedByCause[string(r)] = n
		}
	}
	t.mu.Unlock()

	t.bytesMu.Lock()
	if t.bytesRead != nil {
		s.BytesRead = t.bytesRead()
		s.BytesTotal = t.bytesTotal
	}
	t.bytesMu.Unlock()

	if secs := s.Elapsed.Seconds(); secs > 0 {
		s.Rate = float64(s.Read) / secs
		if s.BytesTotal > 0 && s.BytesRead > 0 {
			remaining := float64(s.BytesTotal - s.BytesRead)
			s.ETA = time.Duration(remaining / (float64(s.BytesRead) / secs) * float64(time.Second))
		}
	}
	return s
}

// LogValue lets a Snapshot be passed directly to slog.
func (s Snapshot) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("read", s.Read),
		slog.Int64("validated", s.Validated),
		slog.Int64("rejected", s.Rejected),
		slog.Int64("inserted", s.Inserted),
		slog.Int64("failed_permanent", s.FailedPermanent),
		slog.Int64("in_retry", s.InRetry),
		slog.Int64("retries", s.Retries),
		slog.Int64("batches", s.Batches),
		slog.Float64("rows_per_sec", s.Rate),
	}
	if s.BytesTotal > 0 {
		attrs = append(attrs,
			slog.Int64("bytes_read", s.BytesRead),
			slog.Int64("bytes_total", s.BytesTotal),
			slog.Duration("eta", s.ETA),
		)
	}
	return slog.GroupValue(attrs...)
}
