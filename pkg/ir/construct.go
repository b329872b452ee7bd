// Free-standing instruction constructors for rewriting passes. The
// result has no parent until inserted with InsertBefore/InsertAfter.
package ir

// NewAlloca creates a stack-slot allocation for one value of elem type.
func NewAlloca(elem Type, name string) *Instruction {
	i := &Instruction{Op: OpAlloca, Typ: PtrType{Elem: elem}, Name: name}
	registerUses(i)
	return i
}

// NewLoad creates a load through addr.
func NewLoad(addr Value, name string) *Instruction {
	pt, ok := addr.Type().(PtrType)
	if !ok {
		panic("ir: load from non-pointer")
	}
	i := &Instruction{Op: OpLoad, Typ: pt.Elem, Name: name, Operands: []Value{addr}}
	registerUses(i)
	return i
}

// NewStore creates a store of val through addr.
func NewStore(val, addr Value) *Instruction {
	i := &Instruction{Op: OpStore, Typ: VoidType{}, Operands: []Value{val, addr}}
	registerUses(i)
	return i
}
