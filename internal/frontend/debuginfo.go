package frontend

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/metadata"
	"github.com/llir/llvm/ir/value"

	"verica/internal/trace"
)

// CollectDebugInfo scans a function's llvm.dbg.value / llvm.dbg.declare
// intrinsic calls and builds the map from IR value names to source
// variables. Missing or unrecognized metadata degrades to an empty table;
// the trace then simply carries fewer events.
func CollectDebugInfo(fn *ir.Func) *trace.DebugInfo {
	info := trace.NewDebugInfo()
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Insts {
			call, ok := inst.(*ir.InstCall)
			if !ok {
				continue
			}
			callee, ok := call.Callee.(*ir.Func)
			if !ok || !strings.HasPrefix(callee.Name(), "llvm.dbg.") {
				continue
			}
			if len(call.Args) < 2 {
				continue
			}
			target := unwrapMetadataValue(call.Args[0])
			named, ok := target.(value.Named)
			if !ok || named.Name() == "" {
				continue
			}
			diVar := localVariable(call.Args[1])
			if diVar == nil {
				continue
			}
			info.Vars[named.Name()] = sourceVariable(diVar)
		}
	}
	return info
}

// unwrapMetadataValue peels the metadata wrapper off a call argument.
func unwrapMetadataValue(arg value.Value) interface{} {
	v := reflect.ValueOf(arg)
	if v.Kind() == reflect.Ptr && !v.IsNil() {
		f := v.Elem().FieldByName("Value")
		if f.IsValid() && f.CanInterface() {
			return f.Interface()
		}
	}
	return arg
}

// localVariable digs the DILocalVariable node out of a metadata argument.
func localVariable(arg value.Value) *metadata.DILocalVariable {
	node := unwrapMetadataValue(arg)
	if di, ok := node.(*metadata.DILocalVariable); ok {
		return di
	}
	if mdNode, ok := node.(metadata.MDNode); ok {
		if di, ok := mdNode.(*metadata.DILocalVariable); ok {
			return di
		}
	}
	return nil
}

// sourceVariable translates debug metadata into the trace's view of a
// source variable: name, declared width and signedness.
func sourceVariable(di *metadata.DILocalVariable) trace.Variable {
	v := trace.Variable{Name: di.Name, Signed: true}
	if base, ok := di.Type.(*metadata.DIBasicType); ok {
		v.Bits = int(base.Size)
		// DW_ATE_unsigned and friends flip the signedness.
		if strings.Contains(strings.ToLower(fmt.Sprint(base.Encoding)), "unsigned") {
			v.Signed = false
		}
	}
	return v
}
