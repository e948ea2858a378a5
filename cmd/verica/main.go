// cmd/verica/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	verrors "verica/internal/errors"
	"verica/internal/frontend"
)

const VERSION = "0.1.0"

// Build variables - can be set during build with ldflags
var (
	BuildDate = time.Now().Format("2006-01-02")
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	settings := frontend.DefaultSettings()

	fs := flag.NewFlagSet("verica", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() { usage(fs) }

	showVersion := fs.Bool("version", false, "print version information")
	fs.IntVar(&settings.Bound, "bound", settings.Bound, "maximum number of basic blocks on an explored path")
	fs.StringVar(&settings.Memory, "memory", settings.Memory, "memory model to use (simple|flat)")
	fs.BoolVar(&settings.ShowFinalCFG, "show-final-cfg", false, "display the final CFG")
	fs.BoolVar(&settings.MathInt, "math-int", false, "accepted for compatibility; encoding stays bitvector-based")
	fs.BoolVar(&settings.AssumeNoNaN, "assume-no-nan", false, "assume floating-point operands are never NaN")
	fs.BoolVar(&settings.Inline, "inline", false, "inline direct calls to defined functions")
	fs.BoolVar(&settings.InlineGlobals, "inline-globals", false, "promote non-escaping globals to scalars")
	fs.BoolVar(&settings.Trace, "trace", false, "print the counter-example trace on a failed verdict")
	fs.StringVar(&settings.TestHarness, "test-harness", "", "write a replay test harness module to the given path")
	fs.BoolVar(&settings.Stats, "stats", false, "print translation statistics")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *showVersion {
		fmt.Printf("verica %s - a formal verification frontend\n", VERSION)
		fmt.Printf("  built %s (%s)\n", BuildDate, GitCommit)
		return 0
	}

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "ERROR: expected exactly one input file")
		usage(fs)
		return 1
	}
	input := fs.Arg(0)

	module, err := frontend.LoadModule(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}

	fe := frontend.New(module, settings)
	fe.ColorTrace = isatty.IsTerminal(os.Stdout.Fd())
	fe.RegisterDefaultChecks()

	result, err := fe.Run()
	if err != nil {
		if verrors.IsUser(err) {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			return 1
		}
		fmt.Println("Verification INTERNAL ERROR.")
		fmt.Fprintf(os.Stderr, "  %v\n", err)
		return 1
	}
	_ = result

	// Verdicts that are not driver errors exit 0, including Unknown.
	return 0
}

func usage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, "Usage: verica [flags] <input file>\n\n")
	fmt.Fprintf(os.Stderr, "Input files must be LLVM assembly (.ll) or bitcode (.bc).\n\nFlags:\n")
	fs.PrintDefaults()
}
