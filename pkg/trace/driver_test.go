// Grower and driver tests: termination, disjointness, statistics.
package trace

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/GriffinCanCode/traceopt/pkg/analysis"
	"github.com/GriffinCanCode/traceopt/pkg/ir"
)

// simpleLoop builds preh -> header -> body -> header with an exit off
// the header.
func simpleLoop() (*ir.Function, map[string]*ir.Block) {
	b := ir.NewBuilder("loopfn")
	blocks := map[string]*ir.Block{}
	for _, name := range []string{"preh", "header", "body", "exit"} {
		blocks[name] = b.Block(name)
	}

	b.SetBlock(blocks["preh"])
	b.Br(blocks["header"])

	b.SetBlock(blocks["header"])
	cond := b.ICmp(ir.PredSLT, ir.I64(1), ir.I64(2), "c")
	b.CondBrWeighted(cond, blocks["exit"], blocks["body"],
		analysis.ProbFromFloat(0.1).N, analysis.ProbFromFloat(0.9).N)

	b.SetBlock(blocks["body"])
	b.Br(blocks["header"])

	b.SetBlock(blocks["exit"])
	b.Ret(nil)

	return b.Fn, blocks
}

func TestGrowTerminatesOnDominance(t *testing.T) {
	// S3: seeding at the body, the predicted header dominates it and
	// must not join the trace
	fn, blocks := simpleLoop()
	a := BuildAnalyses(fn, nil)

	p := NewProfilePolicy()
	p.Prepare(a)

	g := NewGrower(a.Dom)
	tr := g.Grow(blocks["body"], p)
	if tr.Len() != 1 || tr.Head() != blocks["body"] {
		t.Errorf("trace = %v, want just the seed", labels(tr))
	}
}

func TestGrowTerminatesOnVisited(t *testing.T) {
	fn, blocks := simpleLoop()
	a := BuildAnalyses(fn, nil)

	p := NewProfilePolicy()
	p.Prepare(a)

	g := NewGrower(a.Dom)
	g.visited[blocks["body"]] = true
	tr := g.Grow(blocks["header"], p)
	if tr.Len() != 1 {
		t.Errorf("trace = %v, must not re-enter a visited block", labels(tr))
	}
}

// chainFn builds a -> b -> c with 0.9 edges and cold side exits.
func chainFn() (*ir.Function, map[string]*ir.Block) {
	b := ir.NewBuilder("chain")
	blocks := map[string]*ir.Block{}
	for _, name := range []string{"a", "b", "c", "cold", "end"} {
		blocks[name] = b.Block(name)
	}
	w := func(f float64) uint32 { return analysis.ProbFromFloat(f).N }

	b.SetBlock(blocks["a"])
	c1 := b.ICmp(ir.PredSLT, ir.I64(1), ir.I64(2), "c1")
	b.CondBrWeighted(c1, blocks["cold"], blocks["b"], w(0.1), w(0.9))

	b.SetBlock(blocks["b"])
	c2 := b.ICmp(ir.PredSLT, ir.I64(3), ir.I64(4), "c2")
	b.CondBrWeighted(c2, blocks["cold"], blocks["c"], w(0.1), w(0.9))

	b.SetBlock(blocks["c"])
	c3 := b.ICmp(ir.PredSLT, ir.I64(5), ir.I64(6), "c3")
	b.CondBrWeighted(c3, blocks["cold"], blocks["end"], w(0.5), w(0.5))

	b.SetBlock(blocks["cold"])
	b.Ret(nil)
	b.SetBlock(blocks["end"])
	b.Ret(nil)

	return b.Fn, blocks
}

func TestDriverStatistics(t *testing.T) {
	// S6: [a b c] with 0.9 edges and head count 100 gives out-count
	// about 81 and fall-through about 0.810
	fn, blocks := chainFn()
	prof := &analysis.Profile{
		Hotspots: []analysis.Hotspot{{Function: "chain", Block: "a", Count: 100}},
	}

	var out bytes.Buffer
	d := NewDriver(NewProfilePolicy(), &out)
	stats := d.RunFunction(fn, prof)

	var head *Stats
	for i := range stats {
		if stats[i].Trace.Head() == blocks["a"] {
			head = &stats[i]
		}
	}
	if head == nil {
		t.Fatalf("no trace headed at a")
	}
	if head.Trace.Len() != 3 {
		t.Fatalf("trace = %v, want [a b c]", labels(head.Trace))
	}
	if head.InCount != 100 {
		t.Errorf("in-count = %d, want 100", head.InCount)
	}
	if math.Abs(head.OutCount-81.0) > 0.01 {
		t.Errorf("out-count = %f, want about 81", head.OutCount)
	}
	if !strings.Contains(out.String(), "fallthrough=0.810") {
		t.Errorf("report missing aggregate fall-through:\n%s", out.String())
	}
}

func TestTraceDisjointnessAndValidity(t *testing.T) {
	fn, _ := chainFn()

	var out bytes.Buffer
	d := NewDriver(NewProfilePolicy(), &out)
	stats := d.RunFunction(fn, nil)

	dom := analysis.NewDominators(fn)
	seen := map[*ir.Block]bool{}
	for _, s := range stats {
		for i, blk := range s.Trace.Blocks {
			if seen[blk] {
				t.Errorf("block %s appears in more than one trace", blk.Label)
			}
			seen[blk] = true

			if i == 0 {
				continue
			}
			prev := s.Trace.Blocks[i-1]
			isSucc := false
			for _, succ := range prev.Succs() {
				if succ == blk {
					isSucc = true
				}
			}
			if !isSucc {
				t.Errorf("%s -> %s is not a CFG edge", prev.Label, blk.Label)
			}
			if dom.Dominates(blk, prev) {
				t.Errorf("%s dominates its trace predecessor %s", blk.Label, prev.Label)
			}
		}
	}
	for _, b := range fn.Blocks {
		if !seen[b] {
			t.Errorf("block %s claimed by no trace", b.Label)
		}
	}
}

func TestDriverSeedsLoopsFirst(t *testing.T) {
	fn, blocks := simpleLoop()

	var out bytes.Buffer
	d := NewDriver(NewProfilePolicy(), &out)
	stats := d.RunFunction(fn, nil)

	if len(stats) == 0 {
		t.Fatal("no traces formed")
	}
	if stats[0].Trace.Head() != blocks["header"] {
		t.Errorf("first seed = %s, want the loop header", stats[0].Trace.Head().Label)
	}
}

func TestPolicyDeterminism(t *testing.T) {
	run := func() []string {
		fn, _ := chainFn()
		var out bytes.Buffer
		d := NewDriver(NewProfilePolicy(), &out)
		var got []string
		for _, s := range d.RunFunction(fn, nil) {
			got = append(got, strings.Join(labels(s.Trace), ","))
		}
		return got
	}

	first := run()
	for i := 0; i < 5; i++ {
		again := run()
		if strings.Join(first, ";") != strings.Join(again, ";") {
			t.Fatalf("trace set varies across runs: %v vs %v", first, again)
		}
	}
}

func labels(tr *Trace) []string {
	out := make([]string, 0, tr.Len())
	for _, b := range tr.Blocks {
		out = append(out, b.Label)
	}
	return out
}
