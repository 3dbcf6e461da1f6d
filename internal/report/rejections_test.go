package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/enerdata/cenmigrate/internal/schema"
)

func TestRejectionWriter(t *testing.T) {
	dir := t.TempDir()
	rw, err := NewRejectionWriter(dir, "marginal_price")
	if err != nil {
		t.Fatalf("NewRejectionWriter() error = %v", err)
	}

	rej := schema.RejectedRow{
		Row:    schema.RawRow{File: "a.csv", Line: 7, Fields: []string{"20240101", "x", "QUILLOTA"}},
		Reason: schema.ReasonTypeMismatch,
		Detail: `column "HORA": "x" is not an integer`,
	}
	if err := rw.Write(rej); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if rw.Count() != 1 {
		t.Errorf("Count() = %d, want 1", rw.Count())
	}
	if err := rw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	wantPath := filepath.Join(dir, "marginal_price - rejected.csv")
	if rw.Path() != wantPath {
		t.Errorf("Path() = %q, want %q", rw.Path(), wantPath)
	}

	f, err := os.Open(wantPath)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header plus one", len(rows))
	}
	if !reflect.DeepEqual(rows[0], rejectionHeader) {
		t.Errorf("header = %v", rows[0])
	}
	want := []string{"type_mismatch", rej.Detail, "a.csv", "7", "20240101", "x", "QUILLOTA"}
	if !reflect.DeepEqual(rows[1], want) {
		t.Errorf("row = %v, want %v", rows[1], want)
	}
}

func TestRejectionWriter_RemovesEmptyFile(t *testing.T) {
	dir := t.TempDir()
	rw, err := NewRejectionWriter(dir, "clean_table")
	if err != nil {
		t.Fatalf("NewRejectionWriter() error = %v", err)
	}
	if err := rw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(rw.Path()); !os.IsNotExist(err) {
		t.Errorf("empty rejection file was not removed: %v", err)
	}
}

func TestRejectionWriter_Concurrent(t *testing.T) {
	dir := t.TempDir()
	rw, err := NewRejectionWriter(dir, "t")
	if err != nil {
		t.Fatalf("NewRejectionWriter() error = %v", err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				rw.Write(schema.RejectedRow{
					Row:    schema.RawRow{File: "a.csv", Line: i, Fields: []string{"x"}},
					Reason: schema.ReasonDuplicateKey,
				})
			}
		}()
	}
	wg.Wait()

	if rw.Count() != 200 {
		t.Errorf("Count() = %d, want 200", rw.Count())
	}
	if err := rw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	f, _ := os.Open(rw.Path())
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(rows) != 201 {
		t.Errorf("got %d rows, want 201", len(rows))
	}
}
