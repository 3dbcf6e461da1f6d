// Package pipeline wires the stages of one table's migration: source rows
// are validated, batched, and loaded while a shared tracker observes every
// stage. The reading side and the loading side run concurrently, joined by
// a bounded channel so a slow database applies backpressure to the reader.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/enerdata/cenmigrate/internal/batch"
	"github.com/enerdata/cenmigrate/internal/loader"
	"github.com/enerdata/cenmigrate/internal/progress"
	"github.com/enerdata/cenmigrate/internal/report"
	"github.com/enerdata/cenmigrate/internal/schema"
	"github.com/enerdata/cenmigrate/internal/source"
	"github.com/enerdata/cenmigrate/internal/validate"
)

// channelDepth bounds how many batches may sit between the producer and
// the loader.
const channelDepth = 4

// AbortError reports that permanently failed records crossed the abort
// threshold and the run was cut short.
type AbortError struct {
	Failed    int64
	Read      int64
	Threshold float64
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("run aborted: %d of %d records permanently failed (threshold %.0f%%)",
		e.Failed, e.Read, e.Threshold*100)
}

// Config carries the run policies the pipeline enforces.
type Config struct {
	Table          string
	BatchSize      int
	AbortThreshold float64
	// AbortOnEncoding turns undecodable rows from rejections into fatal
	// errors.
	AbortOnEncoding bool
}

// Summary is the final account of one table's run.
type Summary struct {
	Table        string
	Status       string // completed, aborted, failed
	Counters     progress.Snapshot
	RejectedPath string
	Err          error
}

// Pipeline runs one table end to end.
type Pipeline struct {
	cfg        Config
	reader     *source.Reader
	validator  *validate.Validator
	loader     *loader.Loader
	tracker    *progress.Tracker
	rejections *report.RejectionWriter
	renderer   *progress.Renderer
	logger     *slog.Logger
}

// New assembles a pipeline. The renderer is optional; when present it is
// poked after every batch.
func New(cfg Config, reader *source.Reader, validator *validate.Validator, ldr *loader.Loader,
	tracker *progress.Tracker, rejections *report.RejectionWriter, renderer *progress.Renderer,
	logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:        cfg,
		reader:     reader,
		validator:  validator,
		loader:     ldr,
		tracker:    tracker,
		rejections: rejections,
		renderer:   renderer,
		logger:     logger,
	}
}

// Run blocks until the table is fully migrated, aborted, or fails. The
// Summary is always populated; its Err matches the returned error.
func (p *Pipeline) Run(ctx context.Context) Summary {
	p.tracker.SetByteSource(p.reader.BytesRead, p.reader.TotalBytes())

	g, ctx := errgroup.WithContext(ctx)
	batches := make(chan *batch.Batch, channelDepth)

	g.Go(func() error {
		defer close(batches)
		return p.produce(ctx, batches)
	})
	g.Go(func() error {
		return p.consume(ctx, batches)
	})

	err := g.Wait()
	s := Summary{
		Table:        p.cfg.Table,
		Counters:     p.tracker.Snapshot(),
		RejectedPath: p.rejections.Path(),
		Err:          err,
	}
	var abort *AbortError
	switch {
	case err == nil:
		s.Status = "completed"
	case errors.As(err, &abort):
		s.Status = "aborted"
	default:
		s.Status = "failed"
	}
	return s
}

// produce reads, validates and batches rows until the source is exhausted.
func (p *Pipeline) produce(ctx context.Context, out chan<- *batch.Batch) error {
	b := batch.New(p.cfg.Table, p.cfg.BatchSize)

	for {
		row, err := p.reader.Next(ctx)
		if err == io.EOF {
			if final := b.Flush(); final != nil {
				if err := send(ctx, out, final); err != nil {
					return err
				}
			}
			return nil
		}
		if err != nil {
			var rowErr *source.RowError
			if errors.As(err, &rowErr) {
				p.tracker.RecordRead()
				if p.cfg.AbortOnEncoding {
					return fmt.Errorf("undecodable row: %w", rowErr)
				}
				p.rejectRow(schema.RejectedRow{
					Row:    schema.RawRow{File: rowErr.File, Line: rowErr.Line},
					Reason: schema.ReasonEncoding,
					Detail: rowErr.Err.Error(),
				})
				continue
			}
			return err
		}

		p.tracker.RecordRead()
		rec, rej := p.validator.Validate(row)
		if rej != nil {
			p.rejectRow(*rej)
			continue
		}
		p.tracker.RecordValidated()

		if full := b.Add(rec); full != nil {
			if err := send(ctx, out, full); err != nil {
				return err
			}
		}
	}
}

// consume drains batches through the loader and enforces the abort
// threshold.
func (p *Pipeline) consume(ctx context.Context, in <-chan *batch.Batch) error {
	for b := range in {
		out := p.loader.Load(ctx, b)
		p.tracker.BatchDone()
		p.tracker.RecordsInserted(out.Inserted)
		p.tracker.RecordsFailed(out.Failed)
		for _, rej := range out.Rejected {
			p.rejectRow(rej)
		}

		switch out.Status {
		case loader.StatusFailedRetryable:
			return out.Err
		case loader.StatusFailedPermanent:
			p.logger.Error("batch permanently failed",
				"table", b.Table, "batch", b.Seq, "records", out.Failed, "error", out.Err)
		}

		if read := p.tracker.Read(); read > 0 {
			failed := p.tracker.FailedPermanent()
			if float64(failed) > p.cfg.AbortThreshold*float64(read) {
				return &AbortError{Failed: failed, Read: read, Threshold: p.cfg.AbortThreshold}
			}
		}

		if p.renderer != nil {
			p.renderer.Poke()
		}
	}
	return nil
}

func (p *Pipeline) rejectRow(rej schema.RejectedRow) {
	p.tracker.RecordRejected(rej.Reason)
	if err := p.rejections.Write(rej); err != nil {
		p.logger.Error("write rejection", "error", err)
	}
}

func send(ctx context.Context, out chan<- *batch.Batch, b *batch.Batch) error {
	select {
	case out <- b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
