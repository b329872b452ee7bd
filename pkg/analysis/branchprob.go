// Branch probabilities as fixed-denominator rationals, read from the
// weight metadata carried on branch instructions.
package analysis

import "github.com/GriffinCanCode/traceopt/pkg/ir"

// ProbDenom is the fixed probability denominator: probability 1.0 has
// numerator 1<<31.
const ProbDenom = uint32(1) << 31

// Prob is a branch probability with a 32-bit numerator over ProbDenom.
type Prob struct {
	N uint32
}

// ProbFromFloat converts f in [0,1] to a Prob, rounding down.
func ProbFromFloat(f float64) Prob {
	if f <= 0 {
		return Prob{}
	}
	if f >= 1 {
		return Prob{N: ProbDenom}
	}
	return Prob{N: uint32(f * float64(ProbDenom))}
}

// GE reports p >= q.
func (p Prob) GE(q Prob) bool { return p.N >= q.N }

// Float converts back to a float64 ratio.
func (p Prob) Float() float64 { return float64(p.N) / float64(ProbDenom) }

// BranchProbs answers edge-probability queries for one function.
type BranchProbs struct {
	fn *ir.Function
}

// NewBranchProbs builds the branch-probability view of f.
func NewBranchProbs(f *ir.Function) *BranchProbs { return &BranchProbs{fn: f} }

// EdgeProb returns the probability of the edge from -> to. Edges of an
// unconditional branch have probability 1; weighted conditional
// branches report their recorded numerators; unweighted multi-way
// branches split probability uniformly. A pair that is not an edge has
// probability 0. When the same block appears as several targets the
// shares sum.
func (bp *BranchProbs) EdgeProb(from, to *ir.Block) Prob {
	t := from.Terminator()
	if t == nil || len(t.Targets) == 0 {
		return Prob{}
	}
	if len(t.Targets) == 1 {
		if t.Targets[0] == to {
			return Prob{N: ProbDenom}
		}
		return Prob{}
	}
	var n uint32
	uniform := ProbDenom / uint32(len(t.Targets))
	for i, tgt := range t.Targets {
		if tgt != to {
			continue
		}
		if len(t.Weights) == len(t.Targets) {
			n += t.Weights[i]
		} else {
			n += uniform
		}
	}
	return Prob{N: n}
}
