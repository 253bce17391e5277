// Package debug provides leveled stderr logging for the indexer without
// pulling in a full structured-logging dependency.
package debug

import (
	"fmt"
	"os"
)

var (
	enabled     = os.Getenv("WDF_DEBUG") != ""
	verboseMode = false
	quietMode   = false
)

// Enabled reports whether debug output is active, either via WDF_DEBUG or
// an explicit SetVerbose(true).
func Enabled() bool {
	return enabled || verboseMode
}

// SetVerbose turns debug logging on or off for the running process.
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// SetQuiet suppresses normal (non-essential) output.
func SetQuiet(quiet bool) {
	quietMode = quiet
}

// IsQuiet reports whether quiet mode is active.
func IsQuiet() bool {
	return quietMode
}

// Logf writes a debug line to stderr when debug output is enabled.
func Logf(format string, args ...interface{}) {
	if enabled || verboseMode {
		fmt.Fprintf(os.Stderr, "[debug] "+format, args...)
	}
}

// PrintNormal writes to stdout unless quiet mode suppresses it.
func PrintNormal(format string, args ...interface{}) {
	if !quietMode {
		fmt.Printf(format, args...)
	}
}

// PrintlnNormal writes a line to stdout unless quiet mode suppresses it.
func PrintlnNormal(args ...interface{}) {
	if !quietMode {
		fmt.Println(args...)
	}
}

// Warnf always writes a warning to stderr, regardless of quiet/verbose mode.
func Warnf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[warn] "+format, args...)
}
