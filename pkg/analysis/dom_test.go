// Dominance tests over small hand-built CFGs.
package analysis

import (
	"testing"

	"github.com/GriffinCanCode/traceopt/pkg/ir"
)

// diamond builds entry -> (left | right) -> join -> exit.
func diamond() (*ir.Function, map[string]*ir.Block) {
	b := ir.NewBuilder("diamond")
	blocks := map[string]*ir.Block{}
	for _, name := range []string{"entry", "left", "right", "join", "exit"} {
		blocks[name] = b.Block(name)
	}

	b.SetBlock(blocks["entry"])
	cond := b.ICmp(ir.PredSLT, ir.I64(1), ir.I64(2), "c")
	b.CondBr(cond, blocks["left"], blocks["right"])

	b.SetBlock(blocks["left"])
	b.Br(blocks["join"])
	b.SetBlock(blocks["right"])
	b.Br(blocks["join"])
	b.SetBlock(blocks["join"])
	b.Br(blocks["exit"])
	b.SetBlock(blocks["exit"])
	b.Ret(nil)

	return b.Fn, blocks
}

func TestDominators(t *testing.T) {
	fn, blocks := diamond()
	dom := NewDominators(fn)

	tests := []struct {
		a, b string
		want bool
	}{
		{"entry", "entry", true},
		{"entry", "join", true},
		{"entry", "exit", true},
		{"left", "join", false},
		{"right", "join", false},
		{"join", "exit", true},
		{"exit", "join", false},
	}
	for _, tt := range tests {
		if got := dom.Dominates(blocks[tt.a], blocks[tt.b]); got != tt.want {
			t.Errorf("Dominates(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}

	if idom := dom.ImmediateDom(blocks["join"]); idom != blocks["entry"] {
		t.Errorf("idom(join) = %v, want entry", idom)
	}
}

func TestPostDominators(t *testing.T) {
	fn, blocks := diamond()
	pdt := NewPostDominators(fn)

	tests := []struct {
		a, b string
		want bool
	}{
		{"exit", "entry", true},
		{"join", "left", true},
		{"join", "right", true},
		{"join", "entry", true},
		{"left", "entry", false},
		{"entry", "exit", false},
	}
	for _, tt := range tests {
		if got := pdt.PostDominates(blocks[tt.a], blocks[tt.b]); got != tt.want {
			t.Errorf("PostDominates(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestPostDominatorsMultipleExits(t *testing.T) {
	b := ir.NewBuilder("twoexits")
	entry := b.Block("entry")
	r1 := b.Block("r1")
	r2 := b.Block("r2")

	b.SetBlock(entry)
	cond := b.ICmp(ir.PredEQ, ir.I64(0), ir.I64(0), "c")
	b.CondBr(cond, r1, r2)
	b.SetBlock(r1)
	b.Ret(nil)
	b.SetBlock(r2)
	b.Ret(nil)

	pdt := NewPostDominators(b.Fn)
	if pdt.PostDominates(r1, entry) {
		t.Errorf("r1 must not post-dominate entry with a second exit present")
	}
	if !pdt.PostDominates(r1, r1) {
		t.Errorf("post-dominance should be reflexive")
	}
}
