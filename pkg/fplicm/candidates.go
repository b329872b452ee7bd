// Hoist candidate analysis: frequent-path loads whose only reaching
// stores lie on the infrequent path, plus (for the performance
// variant) chains of almost-invariant consumers.
package fplicm

import (
	"github.com/GriffinCanCode/traceopt/pkg/analysis"
	"github.com/GriffinCanCode/traceopt/pkg/ir"
	"github.com/GriffinCanCode/traceopt/pkg/logger"
)

// Candidate pairs a frequent-path load with the infrequent-path stores
// that write its address. Chain, when grown, holds the load's
// almost-invariant consumers in dataflow order; an empty chain
// degenerates to hoisting the load alone.
type Candidate struct {
	Load      *ir.Instruction
	Defeaters []*ir.Instruction
	Chain     []*ir.Instruction
}

// Addr returns the candidate load's address operand.
func (c *Candidate) Addr() ir.Value { return c.Load.LoadAddr() }

// Tail returns the last chain member, or the load itself for an empty
// chain.
func (c *Candidate) Tail() *ir.Instruction {
	if len(c.Chain) == 0 {
		return c.Load
	}
	return c.Chain[len(c.Chain)-1]
}

// FindCandidates scans the frequent-path blocks of l for loads whose
// address is stored only on the infrequent path. A store to the
// address inside the frequent path disqualifies the load entirely; a
// load nobody defeats needs no home slot and is not a candidate.
func FindCandidates(l *analysis.Loop, frequent map[*ir.Block]bool) []*Candidate {
	infrequent := Infrequent(l, frequent)

	var cands []*Candidate
	for _, b := range l.Blocks {
		if !frequent[b] {
			continue
		}
		for _, inst := range b.Insts {
			if inst.Op != ir.OpLoad {
				continue
			}
			addr := inst.LoadAddr()
			disqualified := false
			var defeaters []*ir.Instruction
			for _, u := range addr.Users() {
				if u.Op != ir.OpStore {
					continue
				}
				if frequent[u.Parent()] {
					disqualified = true
					break
				}
				if infrequent[u.Parent()] {
					defeaters = append(defeaters, u)
				}
			}
			if disqualified || len(defeaters) == 0 {
				continue
			}
			cands = append(cands, &Candidate{Load: inst, Defeaters: defeaters})
		}
	}
	return cands
}

// GrowChain grows c's almost-invariant chain by breadth-first walk
// over the load's consumers: a frequent-path, non-store consumer joins
// the chain when every operand is loop-invariant or an earlier chain
// member (the seed load and its address included). The resulting chain
// is in dataflow order by construction.
func GrowChain(l *analysis.Loop, frequent map[*ir.Block]bool, c *Candidate) {
	almost := map[ir.Value]bool{c.Addr(): true, c.Load: true}

	queue := append([]*ir.Instruction(nil), c.Load.Users()...)
	for len(queue) > 0 {
		consumer := queue[0]
		queue = queue[1:]

		if !frequent[consumer.Parent()] {
			continue
		}
		if consumer.Op == ir.OpStore {
			continue
		}
		if almost[consumer] {
			continue
		}

		invariant := true
		for _, op := range consumer.Operands {
			if !l.IsInvariant(op) && !almost[op] {
				invariant = false
				break
			}
		}
		if !invariant {
			continue
		}

		c.Chain = append(c.Chain, consumer)
		almost[consumer] = true
		queue = append(queue, consumer.Users()...)
	}

	if len(c.Chain) > 0 {
		logger.Debug("Load chain grown",
			"load", ir.ValueName(c.Load),
			"length", len(c.Chain),
			"tail", ir.ValueName(c.Tail()))
	}
}
