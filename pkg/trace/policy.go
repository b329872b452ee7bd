// Prediction policies. Each answers "which successor is likely" for a
// block; the grower is parameterized over any of them.
package trace

import (
	"github.com/GriffinCanCode/traceopt/pkg/analysis"
	"github.com/GriffinCanCode/traceopt/pkg/ir"
)

// DefaultProfileThreshold is the minimum edge probability the profile
// policies require before committing to a successor.
var DefaultProfileThreshold = analysis.ProbFromFloat(0.6)

// Policy selects a likely successor for a block. Prepare runs once per
// function before any Predict call.
type Policy interface {
	Name() string
	Prepare(a *Analyses)
	Predict(b *ir.Block) *ir.Block
}

// BasePolicy never predicts; every trace it grows is its seed block.
type BasePolicy struct{}

func (BasePolicy) Name() string            { return "base" }
func (BasePolicy) Prepare(*Analyses)       {}
func (BasePolicy) Predict(*ir.Block) *ir.Block { return nil }

// ProfilePolicy selects the successor with the largest branch
// probability when it meets the threshold.
type ProfilePolicy struct {
	Threshold analysis.Prob

	probs *analysis.BranchProbs
}

// NewProfilePolicy returns a profile policy with the default threshold.
func NewProfilePolicy() *ProfilePolicy {
	return &ProfilePolicy{Threshold: DefaultProfileThreshold}
}

func (p *ProfilePolicy) Name() string { return "profile" }

func (p *ProfilePolicy) Prepare(a *Analyses) { p.probs = a.Probs }

func (p *ProfilePolicy) Predict(b *ir.Block) *ir.Block {
	best, prob := maxProbSucc(p.probs, b)
	if best == nil || !prob.GE(p.Threshold) {
		return nil
	}
	return best
}

// maxProbSucc returns the successor with the greatest edge probability
// (first wins ties) and that probability.
func maxProbSucc(probs *analysis.BranchProbs, b *ir.Block) (*ir.Block, analysis.Prob) {
	var best *ir.Block
	var bestProb analysis.Prob
	for _, s := range b.Succs() {
		p := probs.EdgeProb(b, s)
		if best == nil || p.N > bestProb.N {
			best, bestProb = s, p
		}
	}
	return best, bestProb
}

// StaticPolicy predicts from the branch-direction table with hazard
// filtering.
type StaticPolicy struct {
	pred *Predictor
}

// NewStaticPolicy returns a static policy; its table is built by
// Prepare.
func NewStaticPolicy() *StaticPolicy { return &StaticPolicy{} }

func (p *StaticPolicy) Name() string { return "static" }

func (p *StaticPolicy) Prepare(a *Analyses) {
	p.pred = NewPredictor()
	p.pred.Prepare(a)
}

func (p *StaticPolicy) Predict(b *ir.Block) *ir.Block {
	return p.pred.Predict(b)
}

// HazardProfilePolicy combines the static policy's hazard filtering
// with the profile selection rule.
type HazardProfilePolicy struct {
	Threshold analysis.Prob

	probs *analysis.BranchProbs
}

// NewHazardProfilePolicy returns a hybrid policy with the default
// threshold.
func NewHazardProfilePolicy() *HazardProfilePolicy {
	return &HazardProfilePolicy{Threshold: DefaultProfileThreshold}
}

func (p *HazardProfilePolicy) Name() string { return "hazardprofile" }

func (p *HazardProfilePolicy) Prepare(a *Analyses) { p.probs = a.Probs }

func (p *HazardProfilePolicy) Predict(b *ir.Block) *ir.Block {
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
	}
	best, prob := maxProbSucc(p.probs, b)
	if best == nil || !prob.GE(p.Threshold) || ContainsHazard(best) {
		return nil
	}
	return best
}
