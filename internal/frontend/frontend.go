// Package frontend loads the input module, runs the instrumentation and
// preprocessing pipeline and drives bounded verification to a verdict.
package frontend

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"
	"github.com/pkg/errors"

	"verica/internal/bmc"
	"verica/internal/checks"
	verrors "verica/internal/errors"
	"verica/internal/expr"
	"verica/internal/irtools"
	"verica/internal/memory"
	"verica/internal/solver"
	"verica/internal/trace"
	"verica/internal/translator"
)

// Frontend owns one verification job.
type Frontend struct {
	module   *ir.Module
	settings Settings
	checks   *checks.Registry

	out io.Writer
	// ColorTrace enables ANSI colors in the trace output.
	ColorTrace bool

	// Oracle overrides the built-in enumerating backend when set.
	Oracle solver.Oracle
}

// LoadModule parses an input file. Inputs must be LLVM assembly (.ll);
// bitcode (.bc) is recognized but not readable by this build.
func LoadModule(path string) (*ir.Module, error) {
	switch {
	case strings.HasSuffix(path, ".ll"):
		m, err := asm.ParseFile(path)
		if err != nil {
			return nil, verrors.Userf("cannot parse %s: %v", path, err)
		}
		return m, nil
	case strings.HasSuffix(path, ".bc"):
		return nil, verrors.Userf("%s: LLVM bitcode input is not supported by this build; disassemble it with llvm-dis first", path)
	}
	return nil, verrors.Userf("%s: Input file must be in LLVM bitcode (.bc) or LLVM assembly (.ll) format.", path)
}

// New builds a frontend over a parsed module.
func New(module *ir.Module, settings Settings) *Frontend {
	return &Frontend{
		module:   module,
		settings: settings,
		checks:   checks.NewRegistry(),
		out:      os.Stdout,
	}
}

// SetOutput redirects the status and trace output (used by tests).
func (f *Frontend) SetOutput(w io.Writer) { f.out = w }

// RegisterDefaultChecks enables the assertion, division-by-zero and
// signed-overflow checks.
func (f *Frontend) RegisterDefaultChecks() {
	f.checks.Add(checks.NewAssertionFailCheck())
	f.checks.Add(checks.NewDivisionByZeroCheck())
	f.checks.Add(checks.NewSignedIntegerOverflowCheck())
}

// Checks exposes the registry (used by tests).
func (f *Frontend) Checks() *checks.Registry { return f.checks }

// Run verifies the module's main function and prints the verdict lines.
func (f *Frontend) Run() (*Result, error) {
	main := f.findFunction("main")
	if main == nil {
		return nil, verrors.Userf("No 'main' function found.")
	}

	// 1) Inline direct calls if requested.
	if f.settings.Inline {
		if err := inlineCalls(f.module, main); err != nil {
			if verrors.IsUnsupported(err) {
				return f.report(&Result{Verdict: VerdictUnknown, Message: err.Error()})
			}
			return nil, err
		}
	}

	// 2) Perform check instrumentation.
	if err := f.checks.Run(main); err != nil {
		return nil, err
	}

	// 3) Name every value so each can back a context variable.
	irtools.NameValues(main)

	if f.settings.ShowFinalCFG {
		fmt.Fprintln(f.out, f.module.String())
	}

	// 4) Translate and check.
	result, err := f.verify(main)
	if err != nil {
		if verrors.IsUnsupported(err) {
			return f.report(&Result{Verdict: VerdictUnknown, Message: err.Error()})
		}
		return nil, err
	}
	return f.report(result)
}

func (f *Frontend) findFunction(name string) *ir.Func {
	for _, fn := range f.module.Funcs {
		if fn.Name() == name && len(fn.Blocks) > 0 {
			return fn
		}
	}
	return nil
}

func (f *Frontend) verify(main *ir.Func) (*Result, error) {
	ctx := expr.NewContext()
	b := expr.NewBuilder(ctx)

	var mem memory.Model
	switch f.settings.Memory {
	case "flat":
		fm := memory.NewFlatModel()
		fm.PromoteGlobals = f.settings.InlineGlobals
		mem = fm
	case "simple":
		mem = memory.NewSimpleModel()
	default:
		return nil, verrors.Userf("unknown memory model %q", f.settings.Memory)
	}

	tr, err := translator.New(main, ctx, b, mem, translator.Options{
		AssumeNoNaN: f.settings.AssumeNoNaN,
		MathInt:     f.settings.MathInt,
	})
	if err != nil {
		return nil, err
	}

	oracle := f.Oracle
	if oracle == nil {
		oracle = solver.NewEnumerator(b)
	}

	debug := CollectDebugInfo(main)

	engine := bmc.New(main, tr, f.checks, oracle, mem, debug, f.settings.Bound)
	outcome, err := engine.Run()
	if err != nil {
		return nil, err
	}

	if f.settings.Stats {
		fmt.Fprintf(os.Stderr, "verica: translated %s instructions over %s paths, %s expression nodes interned\n",
			humanize.Comma(int64(tr.Translated)),
			humanize.Comma(int64(engine.PathsExplored)),
			humanize.Comma(int64(ctx.NumExprs())))
	}

	result := &Result{
		ErrorCode:        outcome.ErrorCode,
		Message:          outcome.Message,
		Trace:            outcome.Trace,
		Model:            outcome.Model,
		TraceUnavailable: outcome.TraceUnavailable,
	}
	switch outcome.Status {
	case bmc.StatusSuccess:
		result.Verdict = VerdictSuccess
	case bmc.StatusFail:
		result.Verdict = VerdictFail
	case bmc.StatusUnknown:
		result.Verdict = VerdictUnknown
	case bmc.StatusBoundReached:
		result.Verdict = VerdictBoundReached
	case bmc.StatusTimeout:
		result.Verdict = VerdictTimeout
	}

	if result.IsFail() && f.settings.TestHarness != "" {
		if err := f.writeTestHarness(main, ctx, result); err != nil {
			return nil, errors.Wrap(err, "generating test harness")
		}
	}
	return result, nil
}

// report prints the human-readable verdict surface.
func (f *Frontend) report(r *Result) (*Result, error) {
	switch r.Verdict {
	case VerdictSuccess:
		fmt.Fprintln(f.out, "Verification SUCCESSFUL.")
	case VerdictFail:
		fmt.Fprintln(f.out, "Verification FAILED.")
		if r.Message != "" {
			fmt.Fprintf(f.out, "  %s\n", r.Message)
		}
		if f.settings.Trace {
			fmt.Fprintln(f.out, "Error trace:")
			fmt.Fprintln(f.out, "------------")
			if r.Trace != nil {
				w := trace.NewTextWriter(f.out, f.ColorTrace)
				if err := w.Write(r.Trace); err != nil {
					return nil, err
				}
			} else {
				fmt.Fprintln(f.out, "Error trace is unavailable.")
			}
		}
	case VerdictBoundReached:
		fmt.Fprintln(f.out, "Verification BOUND REACHED")
	case VerdictTimeout:
		fmt.Fprintln(f.out, "Verification TIMEOUT")
	case VerdictUnknown:
		fmt.Fprintln(f.out, "Verification UNKNOWN")
		if r.Message != "" {
			fmt.Fprintf(f.out, "  %s\n", r.Message)
		}
	case VerdictInternalError:
		fmt.Fprintln(f.out, "Verification INTERNAL ERROR.")
		if r.Message != "" {
			fmt.Fprintf(f.out, "  %s\n", r.Message)
		}
	}
	return r, nil
}
