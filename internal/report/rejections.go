// Package report writes per-table rejection files so every dropped row can
// be audited after a run.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/enerdata/cenmigrate/internal/schema"
)

// RejectionWriter appends rejected rows for one table to a CSV file named
// "<table> - rejected.csv". Writes may come from multiple goroutines.
// A file with no rejections is removed on Close so a clean run leaves no
// empty artifacts behind.
type RejectionWriter struct {
	mu    sync.Mutex
	f     *os.File
	w     *csv.Writer
	path  string
	count int64
}

// rejectionHeader prefixes every output file. The original row fields
// follow these columns in their source order.
var rejectionHeader = []string{"reason", "detail", "source_file", "line"}

// NewRejectionWriter creates the output file under dir.
func NewRejectionWriter(dir, table string) (*RejectionWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create rejection dir: %w", err)
	}
	path := filepath.Join(dir, table+" - rejected.csv")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create rejection file: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(rejectionHeader); err != nil {
		f.Close()
		return nil, err
	}
	return &RejectionWriter{f: f, w: w, path: path}, nil
}

// Path returns the output file location.
func (rw *RejectionWriter) Path() string { return rw.path }

// Count returns how many rejections have been written.
func (rw *RejectionWriter) Count() int64 {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.count
}

// Write appends one rejection.
func (rw *RejectionWriter) Write(rej schema.RejectedRow) error {
	record := make([]string, 0, len(rejectionHeader)+len(rej.Row.Fields))
	record = append(record, string(rej.Reason), rej.Detail, rej.Row.File, strconv.Itoa(rej.Row.Line))
	record = append(record, rej.Row.Fields...)

	rw.mu.Lock()
	defer rw.mu.Unlock()
	if err := rw.w.Write(record); err != nil {
		return err
	}
	rw.count++
	return nil
}

// Close flushes and closes the file, deleting it when nothing was written.
func (rw *RejectionWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	rw.w.Flush()
	flushErr := rw.w.Error()
	closeErr := rw.f.Close()

	if rw.count == 0 {
		os.Remove(rw.path)
	}
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
