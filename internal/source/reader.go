// Package source streams rows out of delimited text files. It handles
// per-file encoding detection, delimiter sniffing, BOM stripping, and keeps
// byte-level counters for progress reporting.
package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/enerdata/cenmigrate/internal/schema"
)

// sniffSize is how much of each file is inspected for encoding and
// delimiter detection.
const sniffSize = 4096

// Options controls how source files are opened and parsed.
type Options struct {
	// Delimiter is the field separator; 0 sniffs it per file.
	Delimiter rune

	// Encoding is one of the Encoding* constants; EncodingAuto detects
	// per file.
	Encoding string

	// HasHeader indicates the first row of each file names the columns.
	// When false, columns are mapped by position.
	HasHeader bool
}

// Reader streams rows from an ordered list of files as if they were one
// dataset. All files must share a header when HasHeader is set.
type Reader struct {
	opts   Options
	paths  []string
	next   int
	header []string

	cur *fileReader

	bytesRead atomic.Int64
	total     int64
}

type fileReader struct {
	path string
	f    *os.File
	csv  *csv.Reader
}

// countingReader adds what it reads to a shared counter. The counter is
// read concurrently by the progress tracker.
type countingReader struct {
	r io.Reader
	n *atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

// Discover returns the source files for a table under root, sorted by name.
// An empty result is not an error; the caller decides whether a table with
// no files is a problem.
func Discover(root string, t schema.Table) ([]string, error) {
	dir := filepath.Join(root, t.Directory)
	var paths []string
	for _, pattern := range []string{"*.csv", "*.CSV"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)
	return paths, nil
}

// Open prepares a Reader over paths. It stats every file up front so the
// total byte count is known before the first row is read, and fails fast on
// a missing or unreadable first file.
func Open(paths []string, opts Options) (*Reader, error) {
	if len(paths) == 0 {
		return nil, errors.New("no source files")
	}
	if opts.Encoding == "" {
		opts.Encoding = EncodingAuto
	}

	r := &Reader{opts: opts, paths: paths}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, &ReadError{File: p, Err: err}
		}
		r.total += info.Size()
	}

	if err := r.advance(); err != nil {
		return nil, err
	}
	return r, nil
}

// Header returns the column names from the first file, or nil when the
// reader was opened without headers.
func (r *Reader) Header() []string { return r.header }

// BytesRead returns the raw bytes consumed so far across all files.
// Safe for concurrent use.
func (r *Reader) BytesRead() int64 { return r.bytesRead.Load() }

// TotalBytes returns the combined size of all source files.
func (r *Reader) TotalBytes() int64 { return r.total }

// Next returns the next data row. It returns io.EOF once every file is
// exhausted, a *RowError for a row that can be skipped, and a *ReadError
// when the source as a whole is broken.
func (r *Reader) Next(ctx context.Context) (schema.RawRow, error) {
	for {
		if err := ctx.Err(); err != nil {
			return schema.RawRow{}, err
		}
		if r.cur == nil {
			if err := r.advance(); err != nil {
				return schema.RawRow{}, err
			}
			if r.cur == nil {
				return schema.RawRow{}, io.EOF
			}
		}

		rec, err := r.cur.csv.Read()
		if err == io.EOF {
			r.closeCurrent()
			continue
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return schema.RawRow{}, &RowError{File: r.cur.path, Line: pe.Line, Err: pe.Err}
			}
			file := r.cur.path
			r.closeCurrent()
			return schema.RawRow{}, &ReadError{File: file, Err: err}
		}

		line, _ := r.cur.csv.FieldPos(0)
		if isEmptyRow(rec) {
			continue
		}
		for _, field := range rec {
			if !utf8.ValidString(field) {
				return schema.RawRow{}, &RowError{
					File: r.cur.path,
					Line: line,
					Err:  errors.New("invalid byte sequence for encoding"),
				}
			}
		}
		return schema.RawRow{File: r.cur.path, Line: line, Fields: rec}, nil
	}
}

// Close releases the currently open file.
func (r *Reader) Close() error {
	if r.cur == nil {
		return nil
	}
	err := r.cur.f.Close()
	r.cur = nil
	return err
}

func (r *Reader) closeCurrent() {
	if r.cur != nil {
		r.cur.f.Close()
		r.cur = nil
	}
}

// advance opens the next file in the list, detects its encoding and
// delimiter, and consumes its header row.
func (r *Reader) advance() error {
	r.closeCurrent()
	if r.next >= len(r.paths) {
		return nil
	}
	path := r.paths[r.next]
	r.next++

	f, err := os.Open(path)
	if err != nil {
		return &ReadError{File: path, Err: err}
	}

	counted := &countingReader{r: f, n: &r.bytesRead}
	sample := make([]byte, sniffSize)
	n, err := io.ReadFull(counted, sample)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		f.Close()
		return &ReadError{File: path, Err: err}
	}
	sample = sample[:n]

	encoding := r.opts.Encoding
	if strings.EqualFold(encoding, EncodingAuto) {
		encoding = detectEncoding(sample)
	}
	delim := r.opts.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(sample)
	}

	// The BOM is not data; drop it before the decoder sees it.
	sample = bytes.TrimPrefix(sample, utf8BOM)

	body := io.MultiReader(bytes.NewReader(sample), counted)
	decoded, err := decodingReader(body, encoding)
	if err != nil {
		f.Close()
		return &ReadError{File: path, Err: err}
	}

	cr := csv.NewReader(decoded)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	fr := &fileReader{path: path, f: f, csv: cr}
	if r.opts.HasHeader {
		header, err := cr.Read()
		if err != nil {
			f.Close()
			return &ReadError{File: path, Err: fmt.Errorf("read header: %w", err)}
		}
		for i := range header {
			header[i] = strings.TrimSpace(header[i])
		}
		if r.header == nil {
			r.header = header
		} else if !equalHeader(r.header, header) {
			f.Close()
			return &ReadError{File: path, Err: fmt.Errorf("header does not match first file: %v", header)}
		}
	}

	r.cur = fr
	return nil
}

// isEmptyRow reports whether every field is blank after trimming. Exports
// commonly pad files with such rows; they carry no data and are skipped
// without counting as rejections.
func isEmptyRow(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func equalHeader(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
