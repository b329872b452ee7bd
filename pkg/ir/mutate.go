// IR mutators. These preserve SSA well-formedness provided callers
// follow the hoist/clone sequences used by the passes: a value is
// defined before every use along any path, and def-use edges are kept
// in sync on every operand write.
package ir

import "fmt"

// registerUses adds i as a user of each of its operands.
func registerUses(i *Instruction) {
	for _, op := range i.Operands {
		if op != nil {
			op.addUser(i)
		}
	}
}

// SetOperand replaces operand n of i, maintaining use lists.
func SetOperand(i *Instruction, n int, v Value) {
	if old := i.Operands[n]; old != nil {
		old.removeUser(i)
	}
	i.Operands[n] = v
	if v != nil {
		v.addUser(i)
	}
}

// Clone returns a copy of inst with the same opcode, type, predicate
// and operands. The clone has no parent until inserted.
func Clone(inst *Instruction) *Instruction {
	c := &Instruction{
		Op:     inst.Op,
		Typ:    inst.Typ,
		Name:   inst.Name,
		Pred:   inst.Pred,
		Callee: inst.Callee,
	}
	c.Operands = make([]Value, len(inst.Operands))
	copy(c.Operands, inst.Operands)
	c.Targets = append([]*Block(nil), inst.Targets...)
	c.Weights = append([]uint32(nil), inst.Weights...)
	registerUses(c)
	return c
}

// InsertBefore inserts inst into anchor's block immediately before
// anchor. inst must not currently belong to a block.
func InsertBefore(inst, anchor *Instruction) {
	b := anchor.parent
	idx := indexOf(b, anchor)
	b.Insts = append(b.Insts, nil)
	copy(b.Insts[idx+1:], b.Insts[idx:])
	b.Insts[idx] = inst
	inst.parent = b
}

// InsertAfter inserts inst into anchor's block immediately after anchor.
func InsertAfter(inst, anchor *Instruction) {
	b := anchor.parent
	idx := indexOf(b, anchor) + 1
	b.Insts = append(b.Insts, nil)
	copy(b.Insts[idx+1:], b.Insts[idx:])
	b.Insts[idx] = inst
	inst.parent = b
}

// MoveBefore detaches inst from its current block and re-inserts it
// immediately before anchor.
func MoveBefore(inst, anchor *Instruction) {
	RemoveFromParent(inst)
	InsertBefore(inst, anchor)
}

// RemoveFromParent detaches inst from its block without touching its
// operands or users.
func RemoveFromParent(inst *Instruction) {
	b := inst.parent
	if b == nil {
		return
	}
	idx := indexOf(b, inst)
	b.Insts = append(b.Insts[:idx], b.Insts[idx+1:]...)
	inst.parent = nil
}

// ReplaceUsesOutsideBlock rewrites every use of v whose user lies
// outside block to use repl instead.
func ReplaceUsesOutsideBlock(v Value, repl Value, block *Block) {
	// users mutates under SetOperand; walk a snapshot
	users := append([]*Instruction(nil), v.Users()...)
	for _, u := range users {
		if u.parent == block {
			continue
		}
		for n, op := range u.Operands {
			if op == v {
				SetOperand(u, n, repl)
			}
		}
	}
}

// RemapOperands rewrites inst's operands through vmap. Operands absent
// from the map are left alone. A mapping whose replacement type differs
// from the original operand type is an error; inst is left unchanged.
func RemapOperands(inst *Instruction, vmap map[Value]Value) error {
	for _, op := range inst.Operands {
		if nv, ok := vmap[op]; ok {
			if nv.Type() != op.Type() {
				return fmt.Errorf("remap %s: operand type %s does not match replacement type %s",
					inst.Op, op.Type(), nv.Type())
			}
		}
	}
	for n, op := range inst.Operands {
		if nv, ok := vmap[op]; ok {
			SetOperand(inst, n, nv)
		}
	}
	return nil
}

func indexOf(b *Block, inst *Instruction) int {
	for i, x := range b.Insts {
		if x == inst {
			return i
		}
	}
	panic(fmt.Sprintf("ir: instruction %s not in block %s", inst.Op, b.Label))
}
