package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes. A failed run (aborted, source broken, records lost) is
// distinct from a misconfigured invocation.
const (
	exitOK        = 0
	exitRunFailed = 1
	exitConfig    = 2
)

// exitError carries a specific exit code up through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func configErr(err error) error {
	return &exitError{code: exitConfig, err: err}
}

var rootCmd = &cobra.Command{
	Use:   "cenmigrate",
	Short: "Migrate energy-market CSV exports into PostgreSQL",
	Long: `cenmigrate reads marginal price, energy withdrawal and physical
contract CSV exports, validates and normalizes every row, and loads the
result into PostgreSQL in resilient batches.

Configuration comes from environment variables (see .env support); run
"cenmigrate tables" to list the known datasets.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and maps errors to exit codes.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		return exitRunFailed
	}
	return exitOK
}
