// Static branch prediction: a per-function branch-direction table
// keyed by the operand pair of each conditional's comparison,
// populated by five prioritized heuristics.
package trace

import (
	"github.com/GriffinCanCode/traceopt/pkg/ir"
	"github.com/GriffinCanCode/traceopt/pkg/logger"
)

// Heuristic priorities; lower is stronger.
const (
	priPointer    = 1
	priLoopHeader = 2
	priOpcode     = 3
	priGuard      = 4
	priLoop       = 5
)

type opKey struct {
	op0, op1 ir.Value
}

// direction records the winning heuristic for a key: its priority and
// whether the second successor is predicted taken.
type direction struct {
	priority int
	second   bool
}

// Predictor holds the branch-direction table for one function pass.
// Built once by Prepare, consumed by Predict, discarded at function
// end.
type Predictor struct {
	table map[opKey]direction
}

// NewPredictor returns an empty predictor.
func NewPredictor() *Predictor {
	return &Predictor{table: make(map[opKey]direction)}
}

// insert writes the entry unless a strictly stronger one exists.
func (p *Predictor) insert(k opKey, priority int, second bool) {
	if cur, ok := p.table[k]; ok && cur.priority < priority {
		return
	}
	p.table[k] = direction{priority: priority, second: second}
}

func (p *Predictor) lookup(op0, op1 ir.Value) (direction, bool) {
	d, ok := p.table[opKey{op0, op1}]
	return d, ok
}

// Prepare populates the table from every conditional branch in the
// function. Unconditional and switch-like branches are ignored, as are
// conditionals whose condition is not a two-operand comparison.
func (p *Predictor) Prepare(a *Analyses) {
	for _, b := range a.Fn.Blocks {
		t := b.Terminator()
		if t == nil || !t.IsConditional() {
			continue
		}
		cmp, ok := t.Cond().(*ir.Instruction)
		if !ok || !cmp.IsCmp() || cmp.NumOperands() != 2 {
			continue // unsupported IR shape; no entry
		}
		p.prepareBranch(a, t, cmp)
	}
	logger.Debug("Branch-direction table built", "function", a.Fn.Name, "entries", len(p.table))
}

func (p *Predictor) prepareBranch(a *Analyses, br, cmp *ir.Instruction) {
	op0, op1 := cmp.Operand(0), cmp.Operand(1)
	key := opKey{op0, op1}
	succs := br.Targets

	// pointer heuristic: comparing pointers for (in)equality
	if cmp.Op == ir.OpICmp && (ir.IsPointer(op0.Type()) || ir.IsPointer(op1.Type())) {
		switch cmp.Pred {
		case ir.PredEQ:
			p.insert(key, priPointer, true)
		case ir.PredNE:
			p.insert(key, priPointer, false)
		}
	}

	// opcode heuristic: comparisons against zero
	if cmp.Op == ir.OpICmp {
		if c0, ok := op0.(*ir.Const); ok && c0.IsZero() {
			switch cmp.Pred {
			case ir.PredSGT, ir.PredUGT:
				p.insert(key, priOpcode, true)
			case ir.PredSLE, ir.PredULE:
				p.insert(key, priOpcode, false)
			}
		}
		if c1, ok := op1.(*ir.Const); ok && c1.IsZero() {
			switch cmp.Pred {
			case ir.PredSLT, ir.PredULT:
				p.insert(key, priOpcode, true)
			case ir.PredSGE, ir.PredUGE:
				p.insert(key, priOpcode, false)
			}
		}
	}
	if cmp.Op == ir.OpFCmp {
		switch cmp.Pred {
		case ir.FPredEQ:
			p.insert(key, priOpcode, true)
		case ir.FPredNE:
			p.insert(key, priOpcode, false)
		}
		if c0, ok := op0.(*ir.Const); ok && c0.IsZero() {
			switch cmp.Pred {
			case ir.FPredGT:
				p.insert(key, priOpcode, true)
			case ir.FPredLE:
				p.insert(key, priOpcode, false)
			}
		}
		if c1, ok := op1.(*ir.Const); ok && c1.IsZero() {
			switch cmp.Pred {
			case ir.FPredLT:
				p.insert(key, priOpcode, true)
			case ir.FPredGE:
				p.insert(key, priOpcode, false)
			}
		}
	}

	// loop-header heuristic: exactly one successor is a loop pre-header
	var isPreheader [2]bool
	for i, s := range succs {
		for _, l := range a.Loops.AllLoops() {
			if l.Preheader == s {
				isPreheader[i] = true
			}
		}
	}
	if isPreheader[0] != isPreheader[1] {
		p.insert(key, priLoopHeader, isPreheader[1])
	}

	// loop heuristic: exactly one successor belongs to some loop
	var inLoop [2]bool
	for i, s := range succs {
		inLoop[i] = a.Loops.LoopFor(s) != nil
	}
	if inLoop[0] != inLoop[1] {
		p.insert(key, priLoop, inLoop[1])
	}

	// guard heuristic: a block using op0 or op1 post-dominates exactly
	// one successor, so that arm inevitably reaches a use
	var leadsToUse [2]bool
	for i, s := range succs {
		for _, bb := range a.Fn.Blocks {
			if !a.PostDom.PostDominates(bb, s) {
				continue
			}
			if usesValueIn(op0, bb) || usesValueIn(op1, bb) {
				leadsToUse[i] = true
				break
			}
		}
	}
	if leadsToUse[0] != leadsToUse[1] {
		p.insert(key, priGuard, leadsToUse[1])
	}
}

func usesValueIn(v ir.Value, b *ir.Block) bool {
	for _, u := range v.Users() {
		if u.Parent() == b {
			return true
		}
	}
	return false
}

// Predict selects the likely successor of b under the static policy:
// hazard filtering first, then the branch-direction table, then the
// first hazard-free successor.
func (p *Predictor) Predict(b *ir.Block) *ir.Block {
	if ContainsHazard(b) {
		return nil
	}
	t := b.Terminator()
	if t == nil {
		return nil
	}
	if t.IsConditional() {
		s0, s1 := t.Targets[0], t.Targets[1]
		h0, h1 := ContainsHazard(s0), ContainsHazard(s1)
		switch {
		case h0 && h1:
			return nil
		case h0:
			return s1
		case h1:
			return s0
		}
		if cmp, ok := t.Cond().(*ir.Instruction); ok && cmp.IsCmp() && cmp.NumOperands() == 2 {
			if dir, ok := p.lookup(cmp.Operand(0), cmp.Operand(1)); ok {
				if dir.second {
					return s1
				}
				return s0
			}
		}
	}
	for _, s := range t.Targets {
		if !ContainsHazard(s) {
			return s
		}
	}
	return nil
}
