// Package loader moves validated batches into the destination database. It
// retries transient failures with exponential backoff and degrades to
// per-record insertion when a batch fails permanently, so one poison record
// cannot sink its batchmates.
package loader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/enerdata/cenmigrate/internal/batch"
	"github.com/enerdata/cenmigrate/internal/progress"
	"github.com/enerdata/cenmigrate/internal/schema"
)

// Status is the final disposition of one batch.
type Status string

const (
	// StatusSucceeded means the batch committed; some records may still be
	// duplicate rejections.
	StatusSucceeded Status = "succeeded"

	// StatusFailedRetryable means the run was cancelled while the batch was
	// still retryable; nothing about the data itself is wrong.
	StatusFailedRetryable Status = "failed_retryable"

	// StatusFailedPermanent means the batch's records could not be
	// committed and never will be by retrying.
	StatusFailedPermanent Status = "failed_permanent"
)

// RecordResult is the per-record outcome of a fallback pass.
type RecordResult struct {
	Duplicate bool
	Err       error
}

// Executor performs the actual inserts. Implementations decide how
// duplicate keys surface: a duplicate is reported, not an error.
type Executor interface {
	// InsertBatch inserts all records in one transaction and returns the
	// indexes of records skipped as duplicates. Any error aborts the whole
	// batch.
	InsertBatch(ctx context.Context, recs []schema.Record) (duplicates []int, err error)

	// InsertEach inserts records one at a time inside a single
	// transaction, isolating each record's failure from the others.
	InsertEach(ctx context.Context, recs []schema.Record) ([]RecordResult, error)
}

// Outcome summarizes what happened to one batch.
type Outcome struct {
	Status   Status
	Attempts int
	Inserted int
	// Rejected holds terminal per-record rejections (duplicates,
	// constraint violations found during fallback).
	Rejected []schema.RejectedRow
	// Failed counts records lost to permanent insert failure. These count
	// toward the run's abort threshold; rejections do not.
	Failed int
	Err    error
}

// Options tunes a Loader.
type Options struct {
	MaxAttempts int
	Backoff     Backoff
}

// Loader drives batches through an Executor with retry and fallback.
type Loader struct {
	exec    Executor
	opts    Options
	tracker *progress.Tracker
	logger  *slog.Logger
}

// New builds a Loader. The tracker's retry gauge is updated while a batch
// waits in backoff.
func New(exec Executor, opts Options, tracker *progress.Tracker, logger *slog.Logger) *Loader {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{exec: exec, opts: opts, tracker: tracker, logger: logger}
}

// Load inserts one batch, blocking through retries. It always returns an
// Outcome; the error inside is context for logging, not a signal to retry
// further.
func (l *Loader) Load(ctx context.Context, b *batch.Batch) Outcome {
	attempts := 0
	for {
		attempts++
		dups, err := l.exec.InsertBatch(ctx, b.Records)
		if err == nil {
			return Outcome{
				Status:   StatusSucceeded,
				Attempts: attempts,
				Inserted: len(b.Records) - len(dups),
				Rejected: duplicateRejections(b.Records, dups),
			}
		}

		if ctx.Err() != nil {
			return Outcome{Status: StatusFailedRetryable, Attempts: attempts, Err: ctx.Err()}
		}

		if !Transient(err) {
			l.logger.Warn("batch failed permanently, isolating records",
				"table", b.Table, "batch", b.Seq, "error", err)
			return l.fallback(ctx, b, attempts, err)
		}

		if attempts >= l.opts.MaxAttempts {
			return Outcome{
				Status:   StatusFailedPermanent,
				Attempts: attempts,
				Failed:   len(b.Records),
				Err:      fmt.Errorf("transient failure persisted after %d attempts: %w", attempts, err),
			}
		}

		delay := l.opts.Backoff.Delay(attempts)
		l.logger.Warn("batch insert failed, backing off",
			"table", b.Table, "batch", b.Seq, "attempt", attempts, "delay", delay, "error", err)

		l.tracker.EnterRetry()
		waitErr := sleep(ctx, delay)
		l.tracker.ExitRetry()
		if waitErr != nil {
			return Outcome{Status: StatusFailedRetryable, Attempts: attempts, Err: waitErr}
		}
	}
}

// fallback re-inserts the batch record by record after a permanent batch
// error. Records the database rejects become terminal rejections; records
// it accepts are kept.
func (l *Loader) fallback(ctx context.Context, b *batch.Batch, attempts int, batchErr error) Outcome {
	results, err := l.exec.InsertEach(ctx, b.Records)
	if err != nil {
		// The fallback transaction itself broke; nothing committed.
		return Outcome{
			Status:   StatusFailedPermanent,
			Attempts: attempts,
			Failed:   len(b.Records),
			Err:      fmt.Errorf("per-record fallback failed: %w (batch error: %v)", err, batchErr),
		}
	}

	out := Outcome{Status: StatusSucceeded, Attempts: attempts}
	for i, res := range results {
		rec := b.Records[i]
		switch {
		case res.Err != nil:
			if Transient(res.Err) {
				// Not a data problem, but retrying a half-committed
				// fallback is worse than reporting the loss.
				out.Failed++
				continue
			}
			out.Rejected = append(out.Rejected, schema.RejectedRow{
				Row:    schema.RawRow{File: rec.File, Line: rec.Line, Fields: rec.Raw},
				Reason: schema.ReasonConstraint,
				Detail: res.Err.Error(),
			})
		case res.Duplicate:
			out.Rejected = append(out.Rejected, duplicateRejection(rec))
		default:
			out.Inserted++
		}
	}
	if out.Failed > 0 {
		out.Err = batchErr
	}
	return out
}

func duplicateRejections(recs []schema.Record, dups []int) []schema.RejectedRow {
	if len(dups) == 0 {
		return nil
	}
	out := make([]schema.RejectedRow, 0, len(dups))
	for _, i := range dups {
		out = append(out, duplicateRejection(recs[i]))
	}
	return out
}

func duplicateRejection(rec schema.Record) schema.RejectedRow {
	return schema.RejectedRow{
		Row:    schema.RawRow{File: rec.File, Line: rec.Line, Fields: rec.Raw},
		Reason: schema.ReasonDuplicateKey,
		Detail: "key already present in destination table",
	}
}
