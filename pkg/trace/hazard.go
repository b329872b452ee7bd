// Package trace implements trace formation: growing linear block
// sequences along predicted execution paths.
//
// Design: one grower parameterized over a prediction policy; the
// driver enumerates seeds loop-first and reports per-trace statistics.
package trace

import "github.com/GriffinCanCode/traceopt/pkg/ir"

// ContainsHazard reports whether a block is ineligible for trace
// growth: it contains a call, a synchronization operation, a return,
// an indirect branch, or a store whose destination is not a
// compile-time-known local.
func ContainsHazard(b *ir.Block) bool {
	for _, inst := range b.Insts {
		switch {
		case inst.Op == ir.OpCall:
			return true
		case inst.IsAtomic():
			return true
		case inst.Op == ir.OpRet:
			return true
		case inst.Op == ir.OpIndirectBr:
			return true
		case inst.Op == ir.OpStore:
			if !knownLocalDest(inst.StoreAddr()) {
				return true
			}
		}
	}
	return false
}

// knownLocalDest reports whether the store destination is provably a
// local slot: an alloca, or a getelementptr with all-constant indices
// whose base is an alloca.
func knownLocalDest(v ir.Value) bool {
	inst, ok := v.(*ir.Instruction)
	if !ok {
		return false
	}
	switch inst.Op {
	case ir.OpAlloca:
		return true
	case ir.OpGetElementPtr:
		base, ok := inst.Operand(0).(*ir.Instruction)
		if !ok || base.Op != ir.OpAlloca {
			return false
		}
		for _, idx := range inst.Operands[1:] {
			if _, isConst := idx.(*ir.Const); !isConst {
				return false
			}
		}
		return true
	}
	return false
}
