// Per-function analysis bundle handed to policies and the driver.
package trace

import (
	"github.com/GriffinCanCode/traceopt/pkg/analysis"
	"github.com/GriffinCanCode/traceopt/pkg/ir"
)

// Analyses bundles the external analyses one function pass consumes.
// All members are immutable for the duration of the pass.
type Analyses struct {
	Fn      *ir.Function
	Loops   *analysis.LoopInfo
	Dom     *analysis.DomTree
	PostDom *analysis.DomTree
	Probs   *analysis.BranchProbs
	Freq    *analysis.BlockFreq
}

// BuildAnalyses constructs the bundle for fn; prof may be nil.
func BuildAnalyses(fn *ir.Function, prof *analysis.Profile) *Analyses {
	dom := analysis.NewDominators(fn)
	return &Analyses{
		Fn:      fn,
		Loops:   analysis.NewLoopInfo(fn, dom),
		Dom:     dom,
		PostDom: analysis.NewPostDominators(fn),
		Probs:   analysis.NewBranchProbs(fn),
		Freq:    analysis.NewBlockFreq(fn, prof),
	}
}
