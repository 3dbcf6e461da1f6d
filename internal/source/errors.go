package source

import "fmt"

// ReadError is a fatal source failure (missing file, I/O error, header
// mismatch). The run cannot continue past it.
type ReadError struct {
	File string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("source %s: %v", e.File, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// RowError reports a single malformed or undecodable row. Unlike ReadError
// the caller may skip the row and keep reading.
type RowError struct {
	File string
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }
