package frontend

import (
	"verica/internal/expr"
	"verica/internal/trace"
)

// Verdict is the final status of a verification job.
type Verdict int

const (
	VerdictSuccess Verdict = iota
	VerdictFail
	VerdictUnknown
	VerdictBoundReached
	VerdictTimeout
	VerdictInternalError
)

// Result carries the verdict and, for failures, the failing check and its
// reconstructed trace.
type Result struct {
	Verdict   Verdict
	ErrorCode int
	Message   string
	Trace     *trace.Trace
	// Model is the satisfying valuation backing a Fail verdict.
	Model *expr.Valuation
	// TraceUnavailable marks a Fail whose counter-example could not be
	// reconstructed.
	TraceUnavailable bool
}

// IsSuccess reports a proven-safe run.
func (r *Result) IsSuccess() bool { return r.Verdict == VerdictSuccess }

// IsFail reports a refuted property.
func (r *Result) IsFail() bool { return r.Verdict == VerdictFail }
