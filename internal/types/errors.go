package types

import "fmt"

// DumpStateError is raised when a dump's current state forbids the
// requested transition. TooEarly is raised only by wrap, when the barrier
// runs before any import has moved the dump to Processing, and is meant for
// the scheduling layer to retry; TooLate is raised by prepare/import when
// state_code has already advanced past what the operation allows.
type DumpStateError struct {
	Job       string
	Code      StateCode
	TooEarly  bool
	Required  StateCode
}

func (e *DumpStateError) Error() string {
	if e.TooEarly {
		return fmt.Sprintf("dump %s: state %s is too early, need at least %s", e.Job, e.Code, e.Required)
	}
	return fmt.Sprintf("dump %s: state %s is too late, need at most %s", e.Job, e.Code, e.Required)
}

// NewTooLateError builds the TooLate variant of DumpStateError.
func NewTooLateError(job string, code, maxAllowed StateCode) *DumpStateError {
	return &DumpStateError{Job: job, Code: code, Required: maxAllowed}
}

// NewTooEarlyError builds the TooEarly variant of DumpStateError.
func NewTooEarlyError(job string, code, minRequired StateCode) *DumpStateError {
	return &DumpStateError{Job: job, Code: code, TooEarly: true, Required: minRequired}
}

// DumpCorruptedError is raised by wrap() when the terminal count check
// fails: count(Version where dump=D) != D.ItemsCrawled.
type DumpCorruptedError struct {
	Job      string
	Expected int
	Actual   int
}

func (e *DumpCorruptedError) Error() string {
	return fmt.Sprintf("dump %s corrupted: expected %d versions, found %d", e.Job, e.Expected, e.Actual)
}

// StoreRowRejectedError identifies a single row the fast bulk path refused,
// by its 1-based line number within the slice that was loaded. The Bulk
// Loader uses Line to evict exactly that row into the row-path queue.
type StoreRowRejectedError struct {
	Line  int
	Cause error
}

func (e *StoreRowRejectedError) Error() string {
	return fmt.Sprintf("row %d rejected by fast bulk path: %v", e.Line, e.Cause)
}

func (e *StoreRowRejectedError) Unwrap() error { return e.Cause }

// StoreFatalError wraps any store failure that is not a recoverable
// single-row rejection. It propagates out of the current transaction as-is.
type StoreFatalError struct {
	Op    string
	Cause error
}

func (e *StoreFatalError) Error() string {
	return fmt.Sprintf("store operation %q failed: %v", e.Op, e.Cause)
}

func (e *StoreFatalError) Unwrap() error { return e.Cause }

// ErrTransientNetwork marks an Item Source failure that the scheduler layer
// should retry. The pipeline itself never retries it.
type ErrTransientNetwork struct {
	Cause error
}

func (e *ErrTransientNetwork) Error() string {
	return fmt.Sprintf("transient item source error: %v", e.Cause)
}

func (e *ErrTransientNetwork) Unwrap() error { return e.Cause }

// ArticleInferenceError is raised when guessArticle falls back to the
// product URL pattern and the URL doesn't match it either (spec.md §8,
// "Boundary behaviors").
type ArticleInferenceError struct {
	WBID       string
	ProductURL string
}

func (e *ArticleInferenceError) Error() string {
	return fmt.Sprintf("cannot infer article from wb_id %q or url %q", e.WBID, e.ProductURL)
}
