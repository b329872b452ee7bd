// Function construction. The builder is the toolkit's ingestion
// surface: tests and tools assemble CFGs with it instead of parsing a
// textual form.
package ir

import "fmt"

// Builder constructs a function block by block. Instructions are
// appended to the current block.
type Builder struct {
	Fn  *Function
	cur *Block
}

// NewBuilder starts a new function with the given parameters.
func NewBuilder(name string, params ...*Param) *Builder {
	return &Builder{Fn: &Function{Name: name, Params: params}}
}

// Block creates and registers a new basic block. The first block
// created is the function entry and, when no insertion point is set
// yet, becomes the insertion point; otherwise the insertion point is
// not changed.
func (b *Builder) Block(label string) *Block {
	blk := &Block{Label: label, Func: b.Fn}
	b.Fn.Blocks = append(b.Fn.Blocks, blk)
	if b.cur == nil {
		b.cur = blk
	}
	return blk
}

// SetBlock moves the insertion point to blk.
func (b *Builder) SetBlock(blk *Block) { b.cur = blk }

// CurrentBlock returns the insertion point.
func (b *Builder) CurrentBlock() *Block { return b.cur }

func (b *Builder) append(i *Instruction) *Instruction {
	if b.cur == nil {
		panic("ir: no current block")
	}
	if i.Name == "" && !i.IsTerminator() && i.Op != OpStore && i.Op != OpFence {
		b.Fn.nameSeq++
		i.Name = fmt.Sprintf("t%d", b.Fn.nameSeq)
	}
	i.parent = b.cur
	b.cur.Insts = append(b.cur.Insts, i)
	registerUses(i)
	return i
}

// Alloca allocates a stack slot for one value of elem type.
func (b *Builder) Alloca(elem Type, name string) *Instruction {
	return b.append(&Instruction{Op: OpAlloca, Typ: PtrType{Elem: elem}, Name: name})
}

// Load reads through addr, which must have pointer type.
func (b *Builder) Load(addr Value, name string) *Instruction {
	pt, ok := addr.Type().(PtrType)
	if !ok {
		panic("ir: load from non-pointer")
	}
	return b.append(&Instruction{Op: OpLoad, Typ: pt.Elem, Name: name, Operands: []Value{addr}})
}

// Store writes val through addr. Operand 0 is the value, operand 1 the
// address.
func (b *Builder) Store(val, addr Value) *Instruction {
	return b.append(&Instruction{Op: OpStore, Typ: VoidType{}, Operands: []Value{val, addr}})
}

// GEP computes an element address from base and index operands.
func (b *Builder) GEP(base Value, indices ...Value) *Instruction {
	ops := append([]Value{base}, indices...)
	return b.append(&Instruction{Op: OpGetElementPtr, Typ: base.Type(), Operands: ops})
}

// Bin appends a binary arithmetic instruction.
func (b *Builder) Bin(op Opcode, l, r Value, name string) *Instruction {
	return b.append(&Instruction{Op: op, Typ: l.Type(), Name: name, Operands: []Value{l, r}})
}

// Add is shorthand for Bin(OpAdd, ...).
func (b *Builder) Add(l, r Value, name string) *Instruction {
	return b.Bin(OpAdd, l, r, name)
}

// ICmp appends an integer comparison producing an i1.
func (b *Builder) ICmp(pred Pred, l, r Value, name string) *Instruction {
	return b.append(&Instruction{Op: OpICmp, Typ: BoolType{}, Pred: pred, Name: name, Operands: []Value{l, r}})
}

// FCmp appends a float comparison producing an i1.
func (b *Builder) FCmp(pred Pred, l, r Value, name string) *Instruction {
	return b.append(&Instruction{Op: OpFCmp, Typ: BoolType{}, Pred: pred, Name: name, Operands: []Value{l, r}})
}

// Br appends an unconditional branch.
func (b *Builder) Br(target *Block) *Instruction {
	return b.append(&Instruction{Op: OpBr, Typ: VoidType{}, Targets: []*Block{target}})
}

// CondBr appends a conditional branch. l1 is the first successor
// (taken when cond is false), l2 the second (taken when cond is true).
func (b *Builder) CondBr(cond Value, l1, l2 *Block) *Instruction {
	return b.append(&Instruction{Op: OpCondBr, Typ: VoidType{}, Operands: []Value{cond}, Targets: []*Block{l1, l2}})
}

// CondBrWeighted is CondBr with branch-probability numerators for the
// two successors (denominator 1<<31).
func (b *Builder) CondBrWeighted(cond Value, l1, l2 *Block, w1, w2 uint32) *Instruction {
	i := b.CondBr(cond, l1, l2)
	i.Weights = []uint32{w1, w2}
	return i
}

// IndirectBr appends an indirect branch through addr with the given
// possible targets.
func (b *Builder) IndirectBr(addr Value, possible ...*Block) *Instruction {
	return b.append(&Instruction{Op: OpIndirectBr, Typ: VoidType{}, Operands: []Value{addr}, Targets: possible})
}

// Ret appends a return; v may be nil for a void return.
func (b *Builder) Ret(v Value) *Instruction {
	var ops []Value
	if v != nil {
		ops = []Value{v}
	}
	return b.append(&Instruction{Op: OpRet, Typ: VoidType{}, Operands: ops})
}

// Call appends a subroutine call.
func (b *Builder) Call(callee string, ret Type, args ...Value) *Instruction {
	return b.append(&Instruction{Op: OpCall, Typ: ret, Callee: callee, Operands: args})
}

// AtomicRMW appends an atomic read-modify-write on addr.
func (b *Builder) AtomicRMW(addr, val Value) *Instruction {
	pt := addr.Type().(PtrType)
	return b.append(&Instruction{Op: OpAtomicRMW, Typ: pt.Elem, Operands: []Value{val, addr}})
}

// Fence appends a memory fence.
func (b *Builder) Fence() *Instruction {
	return b.append(&Instruction{Op: OpFence, Typ: VoidType{}})
}

// Constant and parameter helpers

// I64 returns a fresh integer constant.
func I64(v int64) *Const { return &Const{Typ: IntType{}, Int: v} }

// F64 returns a fresh float constant.
func F64(v float64) *Const { return &Const{Typ: FloatType{}, Flt: v} }

// NewParam returns a function parameter value.
func NewParam(name string, t Type) *Param { return &Param{Name: name, Typ: t} }

// NewGlobal returns a function-scope external value of pointer type.
func NewGlobal(name string, elem Type) *Global {
	return &Global{Name: name, Typ: PtrType{Elem: elem}}
}
