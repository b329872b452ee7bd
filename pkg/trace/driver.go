// The trace driver: seed enumeration, growth, and evaluation
// statistics for one function.
package trace

import (
	"fmt"
	"io"
	"sort"

	"github.com/GriffinCanCode/traceopt/pkg/analysis"
	"github.com/GriffinCanCode/traceopt/pkg/ir"
	"github.com/GriffinCanCode/traceopt/pkg/logger"
)

// Stats holds the evaluation of one trace.
type Stats struct {
	Trace    *Trace
	Hazards  int     // hazardous blocks inside the trace
	InCount  uint64  // head's profile count
	HasCount bool    // whether a profile count was available
	OutCount float64 // in-count scaled by successive edge probabilities
}

// Driver grows traces over whole functions and reports statistics.
type Driver struct {
	Policy Policy
	Out    io.Writer
}

// NewDriver returns a driver writing its report to out.
func NewDriver(policy Policy, out io.Writer) *Driver {
	return &Driver{Policy: policy, Out: out}
}

// RunFunction grows traces over fn. Seeds are enumerated loop-first in
// descending depth order, skipping blocks already claimed and blocks
// living in a deeper sub-loop, then over the remaining function
// blocks. The IR is not modified.
func (d *Driver) RunFunction(fn *ir.Function, prof *analysis.Profile) []Stats {
	a := BuildAnalyses(fn, prof)
	d.Policy.Prepare(a)
	grower := NewGrower(a.Dom)

	var traces []*Trace

	loops := a.Loops.AllLoops()
	sort.SliceStable(loops, func(i, j int) bool { return loops[i].Depth > loops[j].Depth })
	for _, l := range loops {
		for _, b := range l.Blocks {
			if grower.Visited(b) || a.Loops.InSubLoop(b, l) {
				continue
			}
			logger.Debug("Seeding trace", "function", fn.Name, "block", b.Label, "depth", l.Depth)
			traces = append(traces, grower.Grow(b, d.Policy))
		}
	}
	for _, b := range fn.Blocks {
		if grower.Visited(b) {
			continue
		}
		traces = append(traces, grower.Grow(b, d.Policy))
	}

	stats := d.evaluate(a, traces)
	d.report(fn, stats)
	return stats
}

func (d *Driver) evaluate(a *Analyses, traces []*Trace) []Stats {
	out := make([]Stats, 0, len(traces))
	for _, tr := range traces {
		s := Stats{Trace: tr}
		for _, b := range tr.Blocks {
			if ContainsHazard(b) {
				s.Hazards++
			}
		}
		s.InCount, s.HasCount = a.Freq.ProfileCount(tr.Head())
		s.OutCount = float64(s.InCount)
		for i := 0; i+1 < len(tr.Blocks); i++ {
			s.OutCount *= a.Probs.EdgeProb(tr.Blocks[i], tr.Blocks[i+1]).Float()
		}
		out = append(out, s)
	}
	return out
}

// report emits per-trace lines and the aggregate hazard total and
// average fall-through. Traces without a profile count contribute
// nothing to the aggregate; only traces longer than one block count.
func (d *Driver) report(fn *ir.Function, stats []Stats) {
	var hazards int
	var sumIn, sumOut float64
	for _, s := range stats {
		fmt.Fprintf(d.Out, "trace head=%s len=%d hazards=%d in=%d out=%.1f\n",
			s.Trace.Head().Label, s.Trace.Len(), s.Hazards, s.InCount, s.OutCount)
		hazards += s.Hazards
		if s.Trace.Len() > 1 && s.HasCount && s.InCount > 0 {
			sumIn += float64(s.InCount)
			sumOut += s.OutCount
		}
	}
	fallThrough := 0.0
	if sumIn > 0 {
		fallThrough = sumOut / sumIn
	}
	fmt.Fprintf(d.Out, "func=%s traces=%d hazards=%d fallthrough=%.3f\n",
		fn.Name, len(stats), hazards, fallThrough)
	logger.LogTraceStats(fn.Name, len(stats), hazards, fallThrough)
}
