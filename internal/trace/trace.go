// Package trace reconstructs and renders counter-example executions from a
// satisfying model.
package trace

import (
	"fmt"

	"github.com/llir/llvm/ir"

	"verica/internal/expr"
)

// SourceLocation points into the original program, recovered from debug
// metadata. A zero location means "unknown".
type SourceLocation struct {
	Line   int
	Column int
}

func (l SourceLocation) Known() bool { return l.Line != 0 }

func (l SourceLocation) String() string {
	if !l.Known() {
		return ""
	}
	if l.Column != 0 {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%d", l.Line)
}

// Variable describes the source-level variable behind an IR value: its
// declared name, bit width and signedness, from debug info.
type Variable struct {
	Name   string
	Bits   int
	Signed bool
}

// Event is one source-visible step of the reconstructed execution.
type Event interface {
	event()
}

// FunctionEntry records entry into a function with its argument values.
type FunctionEntry struct {
	Function string
	Args     []*expr.Expr // literals, nil entries for unknown values
}

// FunctionReturn records a function return; Value is nil for void.
type FunctionReturn struct {
	Function string
	Value    *expr.Expr
}

// Assign records a write to a source variable. Value is nil when the model
// holds no value for it.
type Assign struct {
	Variable Variable
	Value    *expr.Expr
	Location SourceLocation
}

// AssertionFailure is the terminal event of a failing trace.
type AssertionFailure struct {
	Code     int
	Message  string
	Location SourceLocation
}

func (*FunctionEntry) event()    {}
func (*FunctionReturn) event()   {}
func (*Assign) event()           {}
func (*AssertionFailure) event() {}

// Trace is the ordered sequence of reconstructed events.
type Trace struct {
	Events []Event
}

// Location is one step of the counter-example path through the CFG.
type Location struct {
	Block *ir.Block
}

// DebugInfo maps IR value names to their source-level variables. It is
// populated from debug metadata when present and may be empty, in which
// case assignment events are limited to write-intrinsic calls.
type DebugInfo struct {
	Vars map[string]Variable
}

// NewDebugInfo returns an empty debug-info table.
func NewDebugInfo() *DebugInfo {
	return &DebugInfo{Vars: make(map[string]Variable)}
}

// Lookup returns the source variable for an IR value name.
func (d *DebugInfo) Lookup(name string) (Variable, bool) {
	if d == nil {
		return Variable{}, false
	}
	v, ok := d.Vars[name]
	return v, ok
}
