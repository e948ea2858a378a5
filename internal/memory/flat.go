package memory

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	verrors "verica/internal/errors"
	"verica/internal/expr"
	"verica/internal/irtools"
)

// FlatModel gives every global and alloca a distinct literal address and
// keeps one memory array per accessed element type, versioned SSA-style
// across stores. Globals whose address never escapes are promoted to plain
// scalar variables.
//
// Addresses are word-granular: consecutive objects are spaced by their
// byte size rounded up to the alignment quantum, and an access reads or
// writes the single cell at its address. Mixed-width aliasing through
// casts is outside what this model claims to handle.
type FlatModel struct {
	// PromoteGlobals enables scalar promotion of non-escaping globals.
	PromoteGlobals bool

	globalAddr map[*ir.Global]int64
	allocaAddr map[*ir.InstAlloca]int64
	nextAddr   int64

	// arrays holds the current version variable of each element type's
	// memory, keyed by the semantic element type.
	arrays   map[expr.Type]*expr.Variable
	versions map[expr.Type]int

	// promoted maps a promoted global to its current scalar version.
	promoted    map[*ir.Global]*expr.Variable
	promotedVer map[*ir.Global]int

	// prev links every version variable to its predecessor.
	prev map[*expr.Variable]*expr.Variable

	entry []*expr.Expr
}

// NewFlatModel returns a flat memory model with promotion disabled.
func NewFlatModel() *FlatModel {
	return &FlatModel{
		globalAddr:  make(map[*ir.Global]int64),
		allocaAddr:  make(map[*ir.InstAlloca]int64),
		nextAddr:    16, // keep null distinct from every object
		arrays:      make(map[expr.Type]*expr.Variable),
		versions:    make(map[expr.Type]int),
		promoted:    make(map[*ir.Global]*expr.Variable),
		promotedVer: make(map[*ir.Global]int),
		prev:        make(map[*expr.Variable]*expr.Variable),
	}
}

// PreviousVersion reports the predecessor of a version variable.
func (m *FlatModel) PreviousVersion(v *expr.Variable) (*expr.Variable, bool) {
	p, ok := m.prev[v]
	return p, ok
}

func (m *FlatModel) TypeFromPointer(t types.Type, ctx *expr.Context) (expr.Type, error) {
	return ctx.BvTy(PointerWidth), nil
}

// sizeOf computes the byte size of an IR type under this model's layout:
// no padding, pointers are PointerWidth bits wide.
func sizeOf(t types.Type) (int64, error) {
	switch ty := t.(type) {
	case *types.IntType:
		return int64((ty.BitSize + 7) / 8), nil
	case *types.FloatType:
		switch ty.Kind {
		case types.FloatKindHalf:
			return 2, nil
		case types.FloatKindFloat:
			return 4, nil
		case types.FloatKindDouble:
			return 8, nil
		case types.FloatKindFP128:
			return 16, nil
		}
	case *types.PointerType:
		return PointerWidth / 8, nil
	case *types.ArrayType:
		elem, err := sizeOf(ty.ElemType)
		if err != nil {
			return 0, err
		}
		return int64(ty.Len) * elem, nil
	case *types.StructType:
		var total int64
		for _, f := range ty.Fields {
			s, err := sizeOf(f)
			if err != nil {
				return 0, err
			}
			total += s
		}
		return total, nil
	}
	return 0, verrors.Unsupportedf(nil, "no layout for type %s", t)
}

func align(n int64) int64 { return (n + 15) &^ 15 }

func (m *FlatModel) allocate(size int64) int64 {
	addr := m.nextAddr
	m.nextAddr += align(size)
	return addr
}

// elemType maps the IR element type of an access to the semantic cell type.
func elemType(t types.Type, ctx *expr.Context) (expr.Type, error) {
	switch ty := t.(type) {
	case *types.IntType:
		if ty.BitSize == 1 {
			return ctx.BvTy(1), nil
		}
		return ctx.BvTy(uint32(ty.BitSize)), nil
	case *types.FloatType:
		switch ty.Kind {
		case types.FloatKindHalf:
			return ctx.FloatTy(expr.Half), nil
		case types.FloatKindFloat:
			return ctx.FloatTy(expr.Single), nil
		case types.FloatKindDouble:
			return ctx.FloatTy(expr.Double), nil
		case types.FloatKindFP128:
			return ctx.FloatTy(expr.Quad), nil
		}
	case *types.PointerType:
		return ctx.BvTy(PointerWidth), nil
	}
	return nil, verrors.Unsupportedf(nil, "unsupported memory cell type %s", t)
}

// memoryFor returns the current version of the array covering cells of the
// given element type, creating version 0 on first use.
func (m *FlatModel) memoryFor(elem expr.Type, env Env) (*expr.Variable, error) {
	if v, ok := m.arrays[elem]; ok {
		return v, nil
	}
	ctx := env.Builder().Context()
	at := ctx.ArrayTy(ctx.BvTy(PointerWidth), elem)
	v, err := env.DefineVariable(fmt.Sprintf("mem.%s.0", elem.Name()), at)
	if err != nil {
		return nil, err
	}
	m.arrays[elem] = v
	m.versions[elem] = 0
	return v, nil
}

// bumpMemory registers the next version variable after a store.
func (m *FlatModel) bumpMemory(elem expr.Type, env Env) (old, new_ *expr.Variable, err error) {
	old, err = m.memoryFor(elem, env)
	if err != nil {
		return nil, nil, err
	}
	m.versions[elem]++
	ctx := env.Builder().Context()
	at := ctx.ArrayTy(ctx.BvTy(PointerWidth), elem)
	new_, err = env.DefineVariable(fmt.Sprintf("mem.%s.%d", elem.Name(), m.versions[elem]), at)
	if err != nil {
		return nil, nil, err
	}
	m.arrays[elem] = new_
	m.prev[new_] = old
	return old, new_, nil
}

// escapes reports whether a global's address flows anywhere besides being
// the direct target of loads and stores.
func escapes(g *ir.Global, mod *ir.Module) bool {
	for _, fn := range mod.Funcs {
		for _, blk := range fn.Blocks {
			for _, inst := range blk.Insts {
				switch in := inst.(type) {
				case *ir.InstLoad:
					if in.Src == g {
						continue
					}
				case *ir.InstStore:
					if in.Dst == g && in.Src != g {
						continue
					}
				}
				for _, op := range irtools.Operands(inst) {
					if op == g {
						return true
					}
				}
			}
			for _, op := range irtools.TermOperands(blk.Term) {
				if op == g {
					return true
				}
			}
		}
	}
	return false
}

// Initialize assigns addresses to globals (or promotes them) and records
// the initializer constraints replayed at entry.
func (m *FlatModel) Initialize(fn *ir.Func, env Env) error {
	mod := fn.Parent
	b := env.Builder()
	ctx := b.Context()

	for _, g := range mod.Globals {
		if _, done := m.globalAddr[g]; done {
			continue
		}
		if _, done := m.promoted[g]; done {
			continue
		}

		cell, err := elemType(g.ContentType, ctx)
		if err != nil {
			return err
		}

		if m.PromoteGlobals && !escapes(g, mod) {
			v, err := env.DefineVariable("global."+g.Name()+".0", cell)
			if err != nil {
				return err
			}
			m.promoted[g] = v
			m.promotedVer[g] = 0
			if g.Init != nil {
				init, err := m.initializer(g.Init, cell, env)
				if err != nil {
					return err
				}
				m.entry = append(m.entry, m.assign(v, init, b))
			}
			continue
		}

		size, err := sizeOf(g.ContentType)
		if err != nil {
			return err
		}
		addr := m.allocate(size)
		m.globalAddr[g] = addr

		if g.Init != nil {
			init, err := m.initializer(g.Init, cell, env)
			if err != nil {
				return err
			}
			old, next, err := m.bumpMemory(cell, env)
			if err != nil {
				return err
			}
			write := b.ArrayWrite(old.RefExpr(), b.BvLit(uint64(addr), PointerWidth), init)
			m.entry = append(m.entry, b.Eq(next.RefExpr(), write))
		}
	}
	return nil
}

// initializer translates a constant initializer into a literal of the cell
// type. Aggregate initializers are not modeled.
func (m *FlatModel) initializer(c constant.Constant, cell expr.Type, env Env) (*expr.Expr, error) {
	b := env.Builder()
	switch cv := c.(type) {
	case *constant.Int:
		if bt, ok := cell.(*expr.BvType); ok {
			return b.BvLitBig(cv.X, bt.Width()), nil
		}
	case *constant.Float:
		if ft, ok := cell.(*expr.FloatType); ok {
			if cv.NaN {
				return b.FloatLitValue(expr.FloatNaN(ft.Precision())), nil
			}
			f, _ := cv.X.Float64()
			return b.FloatLitValue(expr.FloatValueFromFloat64(ft.Precision(), f)), nil
		}
	case *constant.Null:
		return m.NullPointer(env), nil
	case *constant.ZeroInitializer:
		if bt, ok := cell.(*expr.BvType); ok {
			return b.BvLit(0, bt.Width()), nil
		}
	}
	return nil, verrors.Unsupportedf(c, "unsupported global initializer")
}

func (m *FlatModel) EntryConstraints(env Env) ([]*expr.Expr, error) {
	return m.entry, nil
}

func (m *FlatModel) NullPointer(env Env) *expr.Expr {
	return env.Builder().BvLit(0, PointerWidth)
}

func (m *FlatModel) GlobalRef(g *ir.Global, env Env) (*expr.Expr, error) {
	if addr, ok := m.globalAddr[g]; ok {
		return env.Builder().BvLit(uint64(addr), PointerWidth), nil
	}
	if _, ok := m.promoted[g]; ok {
		// The address of a promoted global never escapes; seeing it
		// here means the escape analysis and the translator disagree.
		return nil, verrors.Internalf("promoted global %s used as a pointer value", g.Name())
	}
	return nil, verrors.Unsupportedf(g, "global without an assigned address")
}

// assign builds the Eq/FEq equation binding a variable to a value.
func (m *FlatModel) assign(v *expr.Variable, value *expr.Expr, b *expr.Builder) *expr.Expr {
	if expr.IsFloatType(v.Type()) {
		return b.FEq(v.RefExpr(), value)
	}
	return b.Eq(v.RefExpr(), value)
}

func (m *FlatModel) HandleLoad(load *ir.InstLoad, env Env) (*expr.Expr, error) {
	b := env.Builder()
	v, err := env.VariableFor(load)
	if err != nil {
		return nil, err
	}

	if g, ok := load.Src.(*ir.Global); ok {
		if cur, promoted := m.promoted[g]; promoted {
			if expr.IsBoolType(v.Type()) && !expr.IsBoolType(cur.Type()) {
				return b.Eq(v.RefExpr(), b.NotEq(cur.RefExpr(), b.BvLit(0, 1))), nil
			}
			return m.assign(v, cur.RefExpr(), b), nil
		}
	}

	cell, err := elemType(load.ElemType, b.Context())
	if err != nil {
		return nil, err
	}
	mem, err := m.memoryFor(cell, env)
	if err != nil {
		return nil, err
	}
	addr, err := env.Operand(load.Src)
	if err != nil {
		return nil, err
	}
	read := b.ArrayRead(mem.RefExpr(), addr)

	// An i1 load produces a Bool variable; bridge through Bv(1).
	if expr.IsBoolType(v.Type()) {
		return b.Eq(v.RefExpr(), b.NotEq(read, b.BvLit(0, 1))), nil
	}
	return m.assign(v, read, b), nil
}

func (m *FlatModel) HandleStore(store *ir.InstStore, env Env) (*expr.Expr, error) {
	b := env.Builder()

	if g, ok := store.Dst.(*ir.Global); ok {
		if _, promoted := m.promoted[g]; promoted {
			return m.storePromoted(g, store.Src, env)
		}
	}

	cell, err := elemType(store.Src.Type(), b.Context())
	if err != nil {
		return nil, err
	}
	val, err := env.Operand(store.Src)
	if err != nil {
		return nil, err
	}
	val, err = coerceCell(b, val, cell)
	if err != nil {
		return nil, err
	}
	addr, err := env.Operand(store.Dst)
	if err != nil {
		return nil, err
	}
	old, next, err := m.bumpMemory(cell, env)
	if err != nil {
		return nil, err
	}
	return b.Eq(next.RefExpr(), b.ArrayWrite(old.RefExpr(), addr, val)), nil
}

func (m *FlatModel) storePromoted(g *ir.Global, src value.Value, env Env) (*expr.Expr, error) {
	b := env.Builder()
	val, err := env.Operand(src)
	if err != nil {
		return nil, err
	}
	cur := m.promoted[g]
	val, err = coerceCell(b, val, cur.Type())
	if err != nil {
		return nil, err
	}
	m.promotedVer[g]++
	next, err := env.DefineVariable(fmt.Sprintf("global.%s.%d", g.Name(), m.promotedVer[g]), cur.Type())
	if err != nil {
		return nil, err
	}
	m.promoted[g] = next
	m.prev[next] = cur
	return m.assign(next, val, b), nil
}

// coerceCell bridges Bool values into Bv(1) cells.
func coerceCell(b *expr.Builder, val *expr.Expr, cell expr.Type) (*expr.Expr, error) {
	if val.Type() == cell {
		return val, nil
	}
	if expr.IsBoolType(val.Type()) {
		if bt, ok := cell.(*expr.BvType); ok && bt.Width() == 1 {
			return b.Select(val, b.BvLit(1, 1), b.BvLit(0, 1)), nil
		}
	}
	return nil, verrors.Unsupportedf(nil, "cannot store %s into a %s cell", val.Type().Name(), cell.Name())
}

func (m *FlatModel) HandleAlloca(alloca *ir.InstAlloca, env Env) (*expr.Expr, error) {
	b := env.Builder()
	v, err := env.VariableFor(alloca)
	if err != nil {
		return nil, err
	}
	addr, ok := m.allocaAddr[alloca]
	if !ok {
		size, err := sizeOf(alloca.ElemType)
		if err != nil {
			return nil, err
		}
		if alloca.NElems != nil {
			n, isConst := alloca.NElems.(*constant.Int)
			if !isConst {
				return nil, verrors.Unsupportedf(alloca, "variable-length alloca")
			}
			size *= n.X.Int64()
		}
		addr = m.allocate(size)
		m.allocaAddr[alloca] = addr
	}
	return b.Eq(v.RefExpr(), b.BvLit(uint64(addr), PointerWidth)), nil
}

func (m *FlatModel) HandleGetElementPtr(gep *ir.InstGetElementPtr, operands []*expr.Expr, env Env) (*expr.Expr, error) {
	b := env.Builder()
	v, err := env.VariableFor(gep)
	if err != nil {
		return nil, err
	}
	if len(operands) == 0 {
		return nil, verrors.Internalf("getelementptr without operands")
	}

	addr := operands[0]
	cur := gep.ElemType

	// The first index scales by the size of the pointee as a whole.
	for i, idxVal := range gep.Indices {
		idx := operands[i+1]
		switch {
		case i == 0:
			size, err := sizeOf(cur)
			if err != nil {
				return nil, err
			}
			addr = b.Add(addr, scaleIndex(b, idx, size))
		default:
			switch ct := cur.(type) {
			case *types.ArrayType:
				size, err := sizeOf(ct.ElemType)
				if err != nil {
					return nil, err
				}
				addr = b.Add(addr, scaleIndex(b, idx, size))
				cur = ct.ElemType
			case *types.StructType:
				ci, ok := idxVal.(*constant.Int)
				if !ok {
					return nil, verrors.Unsupportedf(gep, "non-constant struct index")
				}
				var off int64
				for f := int64(0); f < ci.X.Int64(); f++ {
					s, err := sizeOf(ct.Fields[f])
					if err != nil {
						return nil, err
					}
					off += s
				}
				addr = b.Add(addr, b.BvLit(uint64(off), PointerWidth))
				cur = ct.Fields[ci.X.Int64()]
			default:
				return nil, verrors.Unsupportedf(gep, "cannot index into type %s", cur)
			}
		}
	}
	return b.Eq(v.RefExpr(), addr), nil
}

// scaleIndex widens or narrows an index expression to pointer width and
// multiplies it by the element size.
func scaleIndex(b *expr.Builder, idx *expr.Expr, size int64) *expr.Expr {
	ctx := b.Context()
	ptrTy := ctx.BvTy(PointerWidth)
	if expr.IsBoolType(idx.Type()) {
		idx = b.Select(idx, b.BvLit(1, PointerWidth), b.BvLit(0, PointerWidth))
	} else if bt, ok := idx.Type().(*expr.BvType); ok {
		switch {
		case bt.Width() < PointerWidth:
			idx = b.SExt(idx, ptrTy)
		case bt.Width() > PointerWidth:
			idx = b.Trunc(idx, ptrTy)
		}
	}
	return b.Mul(idx, b.BvLit(uint64(size), PointerWidth))
}

func (m *FlatModel) HandlePointerCast(inst ir.Instruction, op *expr.Expr, env Env) (*expr.Expr, error) {
	b := env.Builder()
	named, ok := inst.(value.Named)
	if !ok {
		return nil, verrors.Internalf("pointer cast instruction has no result")
	}
	v, err := env.VariableFor(named)
	if err != nil {
		return nil, err
	}

	// Pointers, ptrtoint and inttoptr all live in Bv(PointerWidth) here;
	// width changes bridge through extension or truncation.
	target, ok := v.Type().(*expr.BvType)
	if !ok {
		return nil, verrors.Unsupportedf(named, "pointer cast to non-bitvector type")
	}
	src, ok := op.Type().(*expr.BvType)
	if !ok {
		return nil, verrors.Unsupportedf(named, "pointer cast from non-bitvector type")
	}
	switch {
	case src.Width() < target.Width():
		op = b.ZExt(op, target)
	case src.Width() > target.Width():
		op = b.Trunc(op, target)
	}
	return b.Eq(v.RefExpr(), op), nil
}

func (m *FlatModel) HandleCall(call *ir.InstCall, env Env) (*expr.Expr, error) {
	return nil, verrors.Unsupportedf(call, "indirect call")
}

var _ Model = (*FlatModel)(nil)
