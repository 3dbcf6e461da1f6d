package progress

import (
	"sync"
	"testing"

	"github.com/enerdata/cenmigrate/internal/schema"
)

func TestTracker_Counters(t *testing.T) {
	tr := NewTracker()

	for i := 0; i < 10; i++ {
		tr.RecordRead()
	}
	for i := 0; i < 7; i++ {
		tr.RecordValidated()
	}
	tr.RecordRejected(schema.ReasonMissingField)
	tr.RecordRejected(schema.ReasonMissingField)
	tr.RecordRejected(schema.ReasonTypeMismatch)
	tr.RecordsInserted(5)
	tr.RecordsFailed(2)
	tr.BatchDone()
	tr.BatchDone()

	s := tr.Snapshot()
	if s.Read != 10 || s.Validated != 7 || s.Rejected != 3 {
		t.Errorf("snapshot = %+v", s)
	}
	if s.Inserted != 5 || s.FailedPermanent != 2 || s.Batches != 2 {
		t.Errorf("snapshot = %+v", s)
	}
	if s.RejectedByCause["missing_field"] != 2 || s.RejectedByCause["type_mismatch"] != 1 {
		t.Errorf("RejectedByCause = %v", s.RejectedByCause)
	}
}

func TestTracker_RetryGauge(t *testing.T) {
	tr := NewTracker()

	tr.EnterRetry()
	tr.EnterRetry()
	if got := tr.Snapshot().InRetry; got != 2 {
		t.Errorf("InRetry = %d, want 2", got)
	}
	tr.ExitRetry()
	tr.ExitRetry()
	s := tr.Snapshot()
	if s.InRetry != 0 {
		t.Errorf("InRetry = %d, want 0", s.InRetry)
	}
	// The cumulative count keeps every retry the gauge has seen.
	if s.Retries != 2 {
		t.Errorf("Retries = %d, want 2", s.Retries)
	}
}

func TestTracker_ByteSource(t *testing.T) {
	tr := NewTracker()
	tr.SetByteSource(func() int64 { return 250 }, 1000)

	s := tr.Snapshot()
	if s.BytesRead != 250 || s.BytesTotal != 1000 {
		t.Errorf("bytes = %d/%d, want 250/1000", s.BytesRead, s.BytesTotal)
	}
	if s.ETA <= 0 {
		t.Errorf("ETA = %v, want positive with bytes remaining", s.ETA)
	}
}

func TestTracker_ConcurrentUpdates(t *testing.T) {
	tr := NewTracker()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				tr.RecordRead()
				tr.RecordRejected(schema.ReasonDuplicateKey)
			}
		}()
	}
	wg.Wait()

	s := tr.Snapshot()
	if s.Read != 8000 {
		t.Errorf("Read = %d, want 8000", s.Read)
	}
	if s.RejectedByCause["duplicate_key"] != 8000 {
		t.Errorf("duplicate_key = %d, want 8000", s.RejectedByCause["duplicate_key"])
	}
}
