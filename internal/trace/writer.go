package trace

import (
	"fmt"
	"io"

	"verica/internal/expr"
)

// Writer renders a trace as text. Color is gated by the caller (the driver
// checks whether stdout is a terminal).
type Writer struct {
	out   io.Writer
	color bool
}

// NewTextWriter returns a trace writer.
func NewTextWriter(out io.Writer, color bool) *Writer {
	return &Writer{out: out, color: color}
}

const (
	ansiRed   = "\x1b[31m"
	ansiBold  = "\x1b[1m"
	ansiReset = "\x1b[0m"
)

func (w *Writer) paint(code, s string) string {
	if !w.color {
		return s
	}
	return code + s + ansiReset
}

// Write renders every event of the trace.
func (w *Writer) Write(t *Trace) error {
	for _, ev := range t.Events {
		var err error
		switch e := ev.(type) {
		case *FunctionEntry:
			_, err = fmt.Fprintf(w.out, "#%s in function %s(%s)\n",
				w.paint(ansiBold, "entry"), e.Function, formatArgs(e.Args))
		case *FunctionReturn:
			if e.Value != nil {
				_, err = fmt.Fprintf(w.out, "#return from %s with %s\n", e.Function, formatValue(e.Value))
			} else {
				_, err = fmt.Fprintf(w.out, "#return from %s\n", e.Function)
			}
		case *Assign:
			line := fmt.Sprintf("%s := %s", e.Variable.Name, formatValue(e.Value))
			if e.Location.Known() {
				line += fmt.Sprintf("\t at %s", e.Location)
			}
			_, err = fmt.Fprintln(w.out, line)
		case *AssertionFailure:
			msg := fmt.Sprintf("%s (error code %d)", e.Message, e.Code)
			if e.Location.Known() {
				msg += fmt.Sprintf(" at %s", e.Location)
			}
			_, err = fmt.Fprintln(w.out, w.paint(ansiRed, msg))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func formatArgs(args []*expr.Expr) string {
	s := ""
	for i, a := range args {
		if i > 0 {
			s += ", "
		}
		s += formatValue(a)
	}
	return s
}

func formatValue(e *expr.Expr) string {
	if e == nil {
		return "undefined"
	}
	if v := e.Value(); v != nil {
		return v.String()
	}
	return e.String()
}
