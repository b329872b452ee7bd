// Natural-loop forest construction: back edges found via dominance,
// loop bodies by backward walks from the latches, nesting by
// containment.
package analysis

import (
	"sort"

	"github.com/GriffinCanCode/traceopt/pkg/ir"
	"github.com/GriffinCanCode/traceopt/pkg/logger"
)

// Loop is one natural loop. Blocks holds the member blocks with the
// header first; SubLoops the directly nested loops.
type Loop struct {
	Header    *ir.Block
	Preheader *ir.Block // may be nil
	Blocks    []*ir.Block
	SubLoops  []*Loop
	Parent    *Loop
	Depth     int // root loops have depth 1

	blockSet map[*ir.Block]bool
}

// Contains reports whether b is a member of the loop (including
// members of sub-loops).
func (l *Loop) Contains(b *ir.Block) bool { return l.blockSet[b] }

// IsInnermost reports whether the loop has no sub-loops, i.e. none of
// its member blocks belong to a strictly deeper loop.
func (l *Loop) IsInnermost() bool { return len(l.SubLoops) == 0 }

// IsInvariant reports whether v does not vary across iterations of the
// loop: constants, parameters and globals always; instructions iff
// defined outside the loop.
func (l *Loop) IsInvariant(v ir.Value) bool {
	inst, ok := v.(*ir.Instruction)
	if !ok {
		return true
	}
	return !l.Contains(inst.Parent())
}

// LoopInfo is the per-function loop forest.
type LoopInfo struct {
	TopLevel []*Loop
	b2l      map[*ir.Block]*Loop // innermost containing loop
}

// LoopFor returns the innermost loop containing b, or nil.
func (li *LoopInfo) LoopFor(b *ir.Block) *Loop { return li.b2l[b] }

// InSubLoop reports whether b, a member of l, belongs to a sub-loop of
// l rather than to l itself.
func (li *LoopInfo) InSubLoop(b *ir.Block, l *Loop) bool {
	return li.b2l[b] != l
}

// AllLoops returns every loop in the forest, sub-loops before their
// parents.
func (li *LoopInfo) AllLoops() []*Loop {
	var out []*Loop
	var walk func(l *Loop)
	walk = func(l *Loop) {
		for _, sl := range l.SubLoops {
			walk(sl)
		}
		out = append(out, l)
	}
	for _, l := range li.TopLevel {
		walk(l)
	}
	return out
}

// NewLoopInfo discovers the natural loops of f.
func NewLoopInfo(f *ir.Function, dom *DomTree) *LoopInfo {
	preds := Preds(f)

	// back edge b->h exists when a successor dominates its predecessor
	latches := make(map[*ir.Block][]*ir.Block)
	var headers []*ir.Block
	for _, b := range f.Blocks {
		for _, h := range b.Succs() {
			if dom.Dominates(h, b) {
				if len(latches[h]) == 0 {
					headers = append(headers, h)
				}
				latches[h] = append(latches[h], b)
			}
		}
	}

	var loops []*Loop
	for _, h := range headers {
		l := &Loop{Header: h, blockSet: map[*ir.Block]bool{h: true}}
		work := append([]*ir.Block(nil), latches[h]...)
		for len(work) > 0 {
			b := work[len(work)-1]
			work = work[:len(work)-1]
			if l.blockSet[b] {
				continue
			}
			l.blockSet[b] = true
			work = append(work, preds[b]...)
		}
		// header first, then function order
		l.Blocks = append(l.Blocks, h)
		for _, b := range f.Blocks {
			if b != h && l.blockSet[b] {
				l.Blocks = append(l.Blocks, b)
			}
		}
		loops = append(loops, l)
	}

	// nest by containment: the parent is the smallest strictly larger
	// loop containing the header
	for _, l := range loops {
		var parent *Loop
		for _, cand := range loops {
			if cand == l || !cand.blockSet[l.Header] || len(cand.Blocks) <= len(l.Blocks) {
				continue
			}
			if parent == nil || len(cand.Blocks) < len(parent.Blocks) {
				parent = cand
			}
		}
		l.Parent = parent
		if parent != nil {
			parent.SubLoops = append(parent.SubLoops, l)
		}
	}

	li := &LoopInfo{b2l: make(map[*ir.Block]*Loop)}
	for _, l := range loops {
		if l.Parent == nil {
			li.TopLevel = append(li.TopLevel, l)
			setDepth(l, 1)
		}
	}
	sort.SliceStable(loops, func(i, j int) bool { return loops[i].Depth > loops[j].Depth })
	// deepest loop wins the innermost mapping
	for i := len(loops) - 1; i >= 0; i-- {
		for b := range loops[i].blockSet {
			li.b2l[b] = loops[i]
		}
	}

	for _, l := range loops {
		l.Preheader = findPreheader(l, preds)
	}

	logger.LogAnalysis("loops", f.Name, len(loops))
	return li
}

func setDepth(l *Loop, depth int) {
	l.Depth = depth
	for _, sl := range l.SubLoops {
		setDepth(sl, depth+1)
	}
}

// findPreheader returns the unique out-of-loop predecessor of the
// header when it branches only to the header.
func findPreheader(l *Loop, preds map[*ir.Block][]*ir.Block) *ir.Block {
	var outside []*ir.Block
	for _, p := range preds[l.Header] {
		if !l.blockSet[p] {
			outside = append(outside, p)
		}
	}
	if len(outside) != 1 {
		return nil
	}
	if len(outside[0].Succs()) != 1 {
		return nil
	}
	return outside[0]
}
