// Package analysis provides the CFG analyses the passes consume:
// dominator and post-dominator trees, the natural-loop forest, branch
// probabilities and block frequencies.
//
// Design: iterative dataflow on a postorder numbering, following the
// classic Cooper-Harvey-Kennedy scheme. Post-dominance runs the same
// fixpoint over the reversed CFG rooted at a virtual exit.
package analysis

import (
	"github.com/GriffinCanCode/traceopt/pkg/ir"
	"github.com/GriffinCanCode/traceopt/pkg/logger"
)

// DomTree answers (post-)dominance queries for one function.
type DomTree struct {
	idom  map[*ir.Block]*ir.Block // root maps to itself
	ponum map[*ir.Block]int
	root  *ir.Block
}

// Preds computes the predecessor lists of every block in f.
func Preds(f *ir.Function) map[*ir.Block][]*ir.Block {
	preds := make(map[*ir.Block][]*ir.Block)
	for _, b := range f.Blocks {
		for _, s := range b.Succs() {
			preds[s] = append(preds[s], b)
		}
	}
	return preds
}

// NewDominators builds the dominator tree of f.
func NewDominators(f *ir.Function) *DomTree {
	entry := f.Entry()
	if entry == nil {
		return &DomTree{idom: map[*ir.Block]*ir.Block{}, ponum: map[*ir.Block]int{}}
	}
	preds := Preds(f)
	d := build(entry,
		func(b *ir.Block) []*ir.Block { return b.Succs() },
		func(b *ir.Block) []*ir.Block { return preds[b] })
	logger.LogAnalysis("dominators", f.Name, len(d.idom))
	return d
}

// NewPostDominators builds the post-dominator tree of f. A virtual
// exit roots the reversed CFG so functions with several returns still
// have a single root; blocks on no path to an exit post-dominate
// nothing.
func NewPostDominators(f *ir.Function) *DomTree {
	preds := Preds(f)
	var exits []*ir.Block
	for _, b := range f.Blocks {
		if len(b.Succs()) == 0 {
			exits = append(exits, b)
		}
	}
	virtual := &ir.Block{Label: "#exit"}
	succ := func(b *ir.Block) []*ir.Block {
		if b == virtual {
			return exits
		}
		return preds[b]
	}
	pred := func(b *ir.Block) []*ir.Block {
		for _, e := range exits {
			if b == e {
				return append([]*ir.Block{virtual}, b.Succs()...)
			}
		}
		return b.Succs()
	}
	d := build(virtual, succ, pred)
	logger.LogAnalysis("postdominators", f.Name, len(d.idom))
	return d
}

// build runs the iterative idom fixpoint over the graph given by succ,
// with pred as the reversed edge function and root as the sole entry.
func build(root *ir.Block, succ, pred func(*ir.Block) []*ir.Block) *DomTree {
	d := &DomTree{
		idom:  make(map[*ir.Block]*ir.Block),
		ponum: make(map[*ir.Block]int),
		root:  root,
	}

	var order []*ir.Block
	seen := map[*ir.Block]bool{root: true}
	var dfs func(b *ir.Block)
	dfs = func(b *ir.Block) {
		for _, s := range succ(b) {
			if !seen[s] {
				seen[s] = true
				dfs(s)
			}
		}
		order = append(order, b)
	}
	dfs(root)
	for i, b := range order {
		d.ponum[b] = i
	}

	d.idom[root] = root
	changed := true
	for changed {
		changed = false
		for i := len(order) - 1; i >= 0; i-- {
			b := order[i]
			if b == root {
				continue
			}
			var newIdom *ir.Block
			for _, p := range pred(b) {
				if d.idom[p] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
				} else {
					newIdom = d.intersect(newIdom, p)
				}
			}
			if newIdom != nil && d.idom[b] != newIdom {
				d.idom[b] = newIdom
				changed = true
			}
		}
	}
	return d
}

// intersect finds the closest common dominator of b and c. It requires
// the postorder numbering computed in build.
func (d *DomTree) intersect(b, c *ir.Block) *ir.Block {
	for b != c {
		for d.ponum[b] < d.ponum[c] {
			b = d.idom[b]
		}
		for d.ponum[c] < d.ponum[b] {
			c = d.idom[c]
		}
	}
	return b
}

// Dominates reports whether a dominates b (reflexively). On a
// post-dominator tree this is the PostDominates relation.
func (d *DomTree) Dominates(a, b *ir.Block) bool {
	if a == b {
		return true
	}
	x := d.idom[b]
	for x != nil && x != d.root {
		if x == a {
			return true
		}
		n := d.idom[x]
		if n == x {
			break
		}
		x = n
	}
	return a == d.root && x == d.root
}

// PostDominates is a readability alias for Dominates on a tree built
// with NewPostDominators.
func (d *DomTree) PostDominates(a, b *ir.Block) bool { return d.Dominates(a, b) }

// ImmediateDom returns b's immediate dominator, or nil for the root
// and unreachable blocks.
func (d *DomTree) ImmediateDom(b *ir.Block) *ir.Block {
	x := d.idom[b]
	if x == b {
		return nil
	}
	return x
}
