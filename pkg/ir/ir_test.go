// Package ir - unit tests for the SSA facade and its mutators
package ir

import "testing"

// buildLoop assembles entry -> body with an alloca in entry and a load
// of it in body, the smallest CFG the mutator tests need.
func buildLoop() (*Builder, *Block, *Block, *Instruction, *Instruction) {
	b := NewBuilder("f")
	entry := b.Block("entry")
	body := b.Block("body")

	b.SetBlock(entry)
	slot := b.Alloca(IntType{}, "slot")
	b.Br(body)

	b.SetBlock(body)
	ld := b.Load(slot, "v")
	b.Ret(ld)

	return b, entry, body, slot, ld
}

func TestSuccessorsDeriveFromTerminator(t *testing.T) {
	b := NewBuilder("f")
	e := b.Block("entry")
	l1 := b.Block("l1")
	l2 := b.Block("l2")

	b.SetBlock(e)
	cond := b.ICmp(PredEQ, I64(1), I64(2), "c")
	b.CondBr(cond, l1, l2)
	b.SetBlock(l1)
	b.Ret(nil)
	b.SetBlock(l2)
	b.Ret(nil)

	succs := e.Succs()
	if len(succs) != 2 || succs[0] != l1 || succs[1] != l2 {
		t.Fatalf("expected successors [l1 l2], got %v", succs)
	}
	if len(l1.Succs()) != 0 {
		t.Errorf("return block should have no successors")
	}
}

func TestUseListsTrackOperands(t *testing.T) {
	_, _, _, slot, ld := buildLoop()

	found := false
	for _, u := range slot.Users() {
		if u == ld {
			found = true
		}
	}
	if !found {
		t.Fatalf("load not recorded as user of its address")
	}

	other := NewAlloca(IntType{}, "other")
	SetOperand(ld, 0, other)
	for _, u := range slot.Users() {
		if u == ld {
			t.Errorf("stale use left after SetOperand")
		}
	}
	if len(other.Users()) != 1 || other.Users()[0] != ld {
		t.Errorf("new operand did not gain the use")
	}
}

func TestReplaceUsesOutsideBlock(t *testing.T) {
	b := NewBuilder("f")
	entry := b.Block("entry")
	body := b.Block("body")

	b.SetBlock(entry)
	slot := b.Alloca(IntType{}, "slot")
	inEntry := b.Load(slot, "a")
	b.Br(body)

	b.SetBlock(body)
	inBody := b.Load(slot, "b")
	b.Ret(inBody)

	repl := NewAlloca(IntType{}, "repl")
	ReplaceUsesOutsideBlock(slot, repl, entry)

	if inEntry.Operand(0) != slot {
		t.Errorf("use inside the block should be untouched")
	}
	if inBody.Operand(0) != repl {
		t.Errorf("use outside the block should be redirected")
	}
}

func TestInsertMoveAndRemove(t *testing.T) {
	_, entry, body, slot, ld := buildLoop()

	st := NewStore(I64(7), slot)
	InsertBefore(st, ld)
	if body.Insts[0] != st {
		t.Fatalf("expected store first in body, got %v", body.Insts[0])
	}
	if st.Parent() != body {
		t.Errorf("inserted instruction has wrong parent")
	}

	MoveBefore(st, entry.Terminator())
	if st.Parent() != entry {
		t.Errorf("moved instruction has wrong parent")
	}
	if body.Insts[0] == st {
		t.Errorf("moved instruction still in old block")
	}

	after := NewLoad(slot, "after")
	InsertAfter(after, st)
	if entry.Insts[2] != after {
		t.Errorf("InsertAfter placed instruction at %v", entry.Insts)
	}
}

func TestCloneSharesOperandsNotIdentity(t *testing.T) {
	_, _, _, slot, ld := buildLoop()

	c := Clone(ld)
	if c == ld {
		t.Fatalf("clone returned the original")
	}
	if c.Op != OpLoad || c.Operand(0) != slot {
		t.Errorf("clone lost opcode or operands")
	}
	if c.Parent() != nil {
		t.Errorf("clone should be unparented")
	}

	users := 0
	for _, u := range slot.Users() {
		if u == c {
			users++
		}
	}
	if users != 1 {
		t.Errorf("clone registered %d uses of the address, want 1", users)
	}
}

func TestRemapOperands(t *testing.T) {
	_, _, _, slot, ld := buildLoop()

	sum := &Instruction{Op: OpAdd, Typ: IntType{}, Operands: []Value{ld, I64(1)}}

	repl := NewLoad(slot, "repl")
	if err := RemapOperands(sum, map[Value]Value{ld: repl}); err != nil {
		t.Fatalf("remap failed: %v", err)
	}
	if sum.Operand(0) != repl {
		t.Errorf("operand not remapped")
	}

	bad := map[Value]Value{repl: slot} // *i64 for i64
	if err := RemapOperands(sum, bad); err == nil {
		t.Errorf("expected type mismatch error")
	}
	if sum.Operand(0) != repl {
		t.Errorf("failed remap must not partially rewrite")
	}
}
