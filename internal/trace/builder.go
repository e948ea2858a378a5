package trace

import (
	"reflect"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/metadata"
	"github.com/llir/llvm/ir/value"

	verrors "verica/internal/errors"
	"verica/internal/expr"
)

// Builder reconstructs a trace by replaying a counter-example path.
type Builder struct {
	b     *expr.Builder
	debug *DebugInfo
}

// NewBuilder returns a trace builder over the given expression builder.
func NewBuilder(b *expr.Builder, debug *DebugInfo) *Builder {
	return &Builder{b: b, debug: debug}
}

// Build replays the path through states, applying each edge's assignments
// on top of the model, and emits the source-level events. actions[i] holds
// the assignments of the edge from states[i] to states[i+1]. errorCode and
// errorMessage describe the check failing at the terminal location.
//
// If the same variable is assigned twice on one edge the last write wins;
// a value the model cannot produce is recorded as undefined rather than
// fabricated.
func (tb *Builder) Build(
	fn *ir.Func,
	states []*Location,
	actions [][]expr.VariableAssignment,
	model *expr.Valuation,
	errorCode int,
	errorMessage string,
) (*Trace, error) {
	if len(states) == 0 {
		return nil, verrors.Tracef("empty counter-example path")
	}
	if len(actions) != len(states)-1 {
		return nil, verrors.Tracef("path has %d states but %d edges", len(states), len(actions))
	}

	t := &Trace{}
	current := model.Copy()

	entry := &FunctionEntry{Function: fn.Name()}
	for _, p := range fn.Params {
		v := tb.b.Context().LookupVariable(p.Name())
		if v == nil {
			entry.Args = append(entry.Args, nil)
			continue
		}
		entry.Args = append(entry.Args, current.Get(v))
	}
	t.Events = append(t.Events, entry)

	for i, loc := range states {
		if i < len(actions) {
			for _, assign := range actions[i] {
				lit, err := expr.Eval(tb.b, assign.Value, current)
				if err != nil {
					// Keep replaying; the event records an
					// undefined value.
					tb.emitAssign(t, assign.Variable, nil, loc)
					continue
				}
				current.Set(assign.Variable, lit)
				tb.emitAssign(t, assign.Variable, lit, loc)
			}
		}
		tb.emitWriteIntrinsics(t, loc, current)
	}

	last := states[len(states)-1]
	t.Events = append(t.Events, &AssertionFailure{
		Code:     errorCode,
		Message:  errorMessage,
		Location: blockLocation(last.Block),
	})
	return t, nil
}

// emitAssign records a write when the variable maps to a source variable
// through debug info.
func (tb *Builder) emitAssign(t *Trace, v *expr.Variable, lit *expr.Expr, loc *Location) {
	src, ok := tb.debug.Lookup(v.Name())
	if !ok {
		return
	}
	t.Events = append(t.Events, &Assign{
		Variable: src,
		Value:    tb.coerce(lit, src),
		Location: blockLocation(loc.Block),
	})
}

// coerce narrows a literal to the source-declared width.
func (tb *Builder) coerce(lit *expr.Expr, src Variable) *expr.Expr {
	if lit == nil {
		return nil
	}
	bv, ok := lit.Value().(expr.BvValue)
	if !ok || src.Bits == 0 || int(bv.Width) <= src.Bits {
		return lit
	}
	return tb.b.Extract(lit, 0, uint32(src.Bits))
}

// emitWriteIntrinsics surfaces calls to the write intrinsic recorded in the
// block of a path location.
func (tb *Builder) emitWriteIntrinsics(t *Trace, loc *Location, current *expr.Valuation) {
	for _, inst := range loc.Block.Insts {
		call, ok := inst.(*ir.InstCall)
		if !ok {
			continue
		}
		callee, ok := call.Callee.(*ir.Func)
		if !ok {
			continue
		}
		name := callee.Name()
		if !strings.HasPrefix(name, "gazer.write") && !strings.HasPrefix(name, "verica.write") {
			continue
		}
		if len(call.Args) == 0 {
			continue
		}
		arg := call.Args[0]
		named, ok := arg.(value.Named)
		if !ok {
			continue
		}
		v := tb.b.Context().LookupVariable(named.Name())
		if v == nil {
			continue
		}
		src, ok := tb.debug.Lookup(named.Name())
		if !ok {
			src = Variable{Name: named.Name()}
		}
		t.Events = append(t.Events, &Assign{
			Variable: src,
			Value:    tb.coerce(current.Get(v), src),
			Location: instLocation(call),
		})
	}
}

// blockLocation recovers a source location from the first instruction in
// the block carrying a !dbg attachment.
func blockLocation(blk *ir.Block) SourceLocation {
	for _, inst := range blk.Insts {
		if loc := instLocation(inst); loc.Known() {
			return loc
		}
	}
	return SourceLocation{}
}

func instLocation(inst ir.Instruction) SourceLocation {
	for _, att := range attachments(inst) {
		if att.Name != "dbg" {
			continue
		}
		if di, ok := att.Node.(*metadata.DILocation); ok {
			return SourceLocation{Line: int(di.Line), Column: int(di.Column)}
		}
	}
	return SourceLocation{}
}

// attachments reads the Metadata field every llir instruction carries.
// Instructions expose the field directly rather than through an interface,
// so this goes through reflection once per queried instruction.
func attachments(inst ir.Instruction) []*metadata.Attachment {
	v := reflect.ValueOf(inst)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return nil
	}
	f := v.Elem().FieldByName("Metadata")
	if !f.IsValid() {
		return nil
	}
	atts, _ := f.Interface().([]*metadata.Attachment)
	return atts
}
