// Trace growth from a seed block under a prediction policy.
package trace

import (
	"github.com/GriffinCanCode/traceopt/pkg/analysis"
	"github.com/GriffinCanCode/traceopt/pkg/ir"
)

// Trace is an ordered block sequence representing a predicted
// execution path. The first block is the head.
type Trace struct {
	Blocks []*ir.Block
}

// Head returns the trace's first block.
func (t *Trace) Head() *ir.Block { return t.Blocks[0] }

// Len returns the number of blocks in the trace.
func (t *Trace) Len() int { return len(t.Blocks) }

// Grower extends traces from seeds. The visited set is shared across
// all Grow calls within one function pass, keeping traces disjoint.
type Grower struct {
	dom     *analysis.DomTree
	visited map[*ir.Block]bool
}

// NewGrower returns a grower for one function pass.
func NewGrower(dom *analysis.DomTree) *Grower {
	return &Grower{dom: dom, visited: make(map[*ir.Block]bool)}
}

// Visited reports whether b already belongs to a trace.
func (g *Grower) Visited(b *ir.Block) bool { return g.visited[b] }

// Grow extends a trace from seed: at each step the policy proposes a
// successor; growth stops when there is none, it was already visited,
// or it dominates the current block (closing a loop back-edge).
func (g *Grower) Grow(seed *ir.Block, policy Policy) *Trace {
	tr := &Trace{Blocks: []*ir.Block{seed}}
	curr := seed
	for {
		g.visited[curr] = true
		next := policy.Predict(curr)
		if next == nil || g.visited[next] {
			break
		}
		if g.dom.Dominates(next, curr) {
			break
		}
		tr.Blocks = append(tr.Blocks, next)
		curr = next
	}
	return tr
}
