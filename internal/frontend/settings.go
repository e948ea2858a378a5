package frontend

// Settings collect the driver options of one verification job.
type Settings struct {
	// Bound limits the number of blocks on an explored path.
	Bound int
	// Memory picks the memory model: "simple" or "flat".
	Memory string
	// ShowFinalCFG prints the instrumented module before verification.
	ShowFinalCFG bool
	// MathInt is accepted for compatibility; the encoding stays
	// bitvector-based.
	MathInt bool
	// AssumeNoNaN collapses ordered/unordered float predicates.
	AssumeNoNaN bool
	// Inline splices direct calls to defined functions into main.
	Inline bool
	// InlineGlobals promotes non-escaping globals to scalars.
	InlineGlobals bool
	// Trace prints the counter-example trace on a Fail verdict.
	Trace bool
	// TestHarness, when non-empty, is the output path of the generated
	// test harness module.
	TestHarness string
	// Stats prints translation statistics to stderr.
	Stats bool
}

// DefaultSettings returns the defaults the CLI starts from.
func DefaultSettings() Settings {
	return Settings{
		Bound:  100,
		Memory: "flat",
	}
}
