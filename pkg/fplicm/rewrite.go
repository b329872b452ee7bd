// The hoist rewriter. Candidates are validated in full before any
// mutation so a loop's transformation either commits completely or not
// at all.
package fplicm

import (
	"fmt"

	"github.com/GriffinCanCode/traceopt/pkg/analysis"
	"github.com/GriffinCanCode/traceopt/pkg/ir"
)

// validate checks every mutation the rewrite will perform for type
// consistency. Fix-up code substitutes each defeating store's value
// operand for the hoisted load, so that value must have the load's
// type.
func validate(cands []*Candidate) error {
	for _, c := range cands {
		for _, s := range c.Defeaters {
			if s.StoredValue().Type() != c.Load.Typ {
				return fmt.Errorf("fplicm: defeater stores %s where load %s expects %s",
					s.StoredValue().Type(), ir.ValueName(c.Load), c.Load.Typ)
			}
		}
	}
	return nil
}

// rewriteCorrectness hoists candidate loads grouped by address: one
// home slot and one hoisted load per unique address (the first load
// encountered), in-loop reads redirected through the home slot, and a
// fix-up store after every defeater.
func rewriteCorrectness(l *analysis.Loop, cands []*Candidate) {
	ph := l.Preheader
	term := ph.Terminator()

	// group candidates by address, preserving encounter order
	var order []ir.Value
	byAddr := make(map[ir.Value][]*Candidate)
	for _, c := range cands {
		if _, seen := byAddr[c.Addr()]; !seen {
			order = append(order, c.Addr())
		}
		byAddr[c.Addr()] = append(byAddr[c.Addr()], c)
	}

	for _, addr := range order {
		group := byAddr[addr]
		first := group[0]

		home := ir.NewAlloca(first.Load.Typ, ir.ValueName(first.Load)[1:]+".home")
		ir.InsertBefore(home, term)
		hoisted := ir.NewLoad(addr, ir.ValueName(first.Load)[1:]+".hoist")
		ir.InsertBefore(hoisted, term)
		ir.InsertBefore(ir.NewStore(hoisted, home), term)

		// loads from the same address share the defeater set; fix up
		// each store once
		defeaters := dedupDefeaters(group)
		saved := snapshotOperands(defeaters)

		ir.ReplaceUsesOutsideBlock(addr, home, ph)

		// the defeaters keep writing the original address; the home
		// slot is kept consistent by the appended fix-up store
		restoreOperands(defeaters, saved)
		for _, s := range defeaters {
			ir.InsertAfter(ir.NewStore(s.StoredValue(), home), s)
		}
	}
}

// rewritePerformance hoists one candidate load together with its
// almost-invariant chain, reloading the chain tail from the home slot
// inside the loop and cloning the chain before every defeater.
func rewritePerformance(l *analysis.Loop, c *Candidate) {
	ph := l.Preheader
	term := ph.Terminator()
	tail := c.Tail()

	home := ir.NewAlloca(tail.Typ, ir.ValueName(tail)[1:]+".home")
	ir.InsertBefore(home, term)

	// the reload takes the tail's place in the loop body
	reload := ir.NewLoad(home, ir.ValueName(tail)[1:]+".reload")
	ir.InsertAfter(reload, tail)

	ir.MoveBefore(c.Load, home)
	for _, inst := range c.Chain {
		ir.MoveBefore(inst, home)
	}
	ir.InsertBefore(ir.NewStore(tail, home), term)

	ir.ReplaceUsesOutsideBlock(tail, reload, ph)

	for _, s := range c.Defeaters {
		if len(c.Chain) == 0 {
			ir.InsertBefore(ir.NewStore(s.StoredValue(), home), s)
			continue
		}
		vmap := make(map[ir.Value]ir.Value, len(c.Chain))
		for _, inst := range c.Chain {
			clone := ir.Clone(inst)
			// references to the hoisted load become the value the
			// defeater stores: after `store v, addr` a load of addr
			// yields v
			for n, op := range clone.Operands {
				if op == c.Load {
					ir.SetOperand(clone, n, s.StoredValue())
				}
			}
			if err := ir.RemapOperands(clone, vmap); err != nil {
				// validated up front; remap within the clone map
				// cannot change types
				panic(err)
			}
			ir.InsertBefore(clone, s)
			vmap[inst] = clone
			if inst == tail {
				ir.InsertBefore(ir.NewStore(clone, home), s)
			}
		}
	}
}

func dedupDefeaters(group []*Candidate) []*ir.Instruction {
	seen := make(map[*ir.Instruction]bool)
	var out []*ir.Instruction
	for _, c := range group {
		for _, s := range c.Defeaters {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

func snapshotOperands(insts []*ir.Instruction) [][]ir.Value {
	out := make([][]ir.Value, len(insts))
	for i, inst := range insts {
		out[i] = append([]ir.Value(nil), inst.Operands...)
	}
	return out
}

func restoreOperands(insts []*ir.Instruction, saved [][]ir.Value) {
	for i, inst := range insts {
		for n, op := range saved[i] {
			if inst.Operand(n) != op {
				ir.SetOperand(inst, n, op)
			}
		}
	}
}
