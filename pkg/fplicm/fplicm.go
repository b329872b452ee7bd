// Loop pass entry points and registration for the FP-LICM family.
package fplicm

import (
	"github.com/GriffinCanCode/traceopt/pkg/analysis"
	"github.com/GriffinCanCode/traceopt/pkg/ir"
	"github.com/GriffinCanCode/traceopt/pkg/logger"
	"github.com/GriffinCanCode/traceopt/pkg/passes"
)

// RunCorrectnessOnLoop applies the correctness-variant transformation
// to one loop. It reports whether the loop changed; all failures are
// local and leave the loop untouched.
func RunCorrectnessOnLoop(l *analysis.Loop, probs *analysis.BranchProbs) (bool, error) {
	if l.Preheader == nil {
		return false, ErrNoPreheader
	}
	frequent, err := FrequentPath(l, probs)
	if err != nil {
		return false, err
	}
	cands := FindCandidates(l, frequent)
	if len(cands) == 0 {
		return false, nil
	}
	if err := validate(cands); err != nil {
		return false, err
	}
	rewriteCorrectness(l, cands)
	logger.LogHoist(l.Header.Func.Name, l.Header.Label, len(cands), 0)
	return true, nil
}

// RunPerformanceOnLoop applies the performance-variant transformation
// to one loop. Loops containing sub-loops are declined.
func RunPerformanceOnLoop(l *analysis.Loop, li *analysis.LoopInfo, probs *analysis.BranchProbs) (bool, error) {
	for _, b := range l.Blocks {
		if li.InSubLoop(b, l) {
			return false, nil
		}
	}
	if l.Preheader == nil {
		return false, ErrNoPreheader
	}
	frequent, err := FrequentPath(l, probs)
	if err != nil {
		return false, err
	}
	cands := FindCandidates(l, frequent)
	if len(cands) == 0 {
		return false, nil
	}
	chained := 0
	for _, c := range cands {
		GrowChain(l, frequent, c)
		if len(c.Chain) > 0 {
			chained++
		}
	}
	if err := validate(cands); err != nil {
		return false, err
	}
	for _, c := range cands {
		rewritePerformance(l, c)
	}
	logger.LogHoist(l.Header.Func.Name, l.Header.Label, len(cands), chained)
	return true, nil
}

// CorrectnessPass hoists frequent-path loads in every loop of the
// program, sub-loops first.
type CorrectnessPass struct{}

func (CorrectnessPass) Name() string { return "fplicm-correctness" }

func (CorrectnessPass) Run(prog *ir.Program, prof *analysis.Profile) bool {
	return runLoopPass("fplicm-correctness", prog, func(l *analysis.Loop, li *analysis.LoopInfo, probs *analysis.BranchProbs) (bool, error) {
		return RunCorrectnessOnLoop(l, probs)
	})
}

// PerformancePass hoists frequent-path loads together with their
// almost-invariant chains in every innermost loop of the program.
type PerformancePass struct{}

func (PerformancePass) Name() string { return "fplicm-performance" }

func (PerformancePass) Run(prog *ir.Program, prof *analysis.Profile) bool {
	return runLoopPass("fplicm-performance", prog, RunPerformanceOnLoop)
}

func runLoopPass(name string, prog *ir.Program, run func(*analysis.Loop, *analysis.LoopInfo, *analysis.BranchProbs) (bool, error)) bool {
	changed := false
	for _, fn := range prog.Functions {
		logger.LogPass(name, fn.Name)
		dom := analysis.NewDominators(fn)
		li := analysis.NewLoopInfo(fn, dom)
		probs := analysis.NewBranchProbs(fn)
		for _, l := range li.AllLoops() {
			ok, err := run(l, li, probs)
			if err != nil {
				logger.Debug("Loop skipped", "pass", name, "header", l.Header.Label, "reason", err)
				continue
			}
			if ok {
				changed = true
			}
		}
	}
	logger.LogPassComplete(name, changed)
	return changed
}

func init() {
	passes.Register("fplicm-correctness", func() passes.Pass { return CorrectnessPass{} })
	passes.Register("fplicm-performance", func() passes.Pass { return PerformancePass{} })
}
