// Hazard classifier tests.
package trace

import (
	"testing"

	"github.com/GriffinCanCode/traceopt/pkg/ir"
)

func TestContainsHazard(t *testing.T) {
	g := ir.NewGlobal("g", ir.IntType{})

	tests := []struct {
		name string
		fill func(b *ir.Builder)
		want bool
	}{
		{
			name: "plain arithmetic",
			fill: func(b *ir.Builder) {
				b.Add(ir.I64(1), ir.I64(2), "x")
			},
			want: false,
		},
		{
			name: "subroutine call",
			fill: func(b *ir.Builder) {
				b.Call("printf", ir.IntType{}, ir.I64(0))
			},
			want: true,
		},
		{
			name: "atomic rmw",
			fill: func(b *ir.Builder) {
				b.AtomicRMW(g, ir.I64(1))
			},
			want: true,
		},
		{
			name: "fence",
			fill: func(b *ir.Builder) {
				b.Fence()
			},
			want: true,
		},
		{
			name: "store to alloca",
			fill: func(b *ir.Builder) {
				slot := b.Alloca(ir.IntType{}, "slot")
				b.Store(ir.I64(1), slot)
			},
			want: false,
		},
		{
			name: "store to constant-indexed gep of alloca",
			fill: func(b *ir.Builder) {
				slot := b.Alloca(ir.IntType{}, "slot")
				gep := b.GEP(slot, ir.I64(0), ir.I64(2))
				b.Store(ir.I64(1), gep)
			},
			want: false,
		},
		{
			name: "store through variable gep index",
			fill: func(b *ir.Builder) {
				slot := b.Alloca(ir.IntType{}, "slot")
				idx := b.Add(ir.I64(1), ir.I64(2), "idx")
				gep := b.GEP(slot, idx)
				b.Store(ir.I64(1), gep)
			},
			want: true,
		},
		{
			name: "store to global",
			fill: func(b *ir.Builder) {
				b.Store(ir.I64(1), g)
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ir.NewBuilder("f")
			blk := b.Block("entry")
			b.SetBlock(blk)
			tt.fill(b)
			b.Br(b.Block("next"))
			if got := ContainsHazard(blk); got != tt.want {
				t.Errorf("ContainsHazard = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReturnAndIndirectBranchAreHazards(t *testing.T) {
	b := ir.NewBuilder("f")
	retBlk := b.Block("ret")
	b.SetBlock(retBlk)
	b.Ret(ir.I64(0))
	if !ContainsHazard(retBlk) {
		t.Errorf("return block should be hazardous")
	}

	b2 := ir.NewBuilder("g")
	ibBlk := b2.Block("ib")
	tgt := b2.Block("tgt")
	b2.SetBlock(ibBlk)
	addr := ir.NewGlobal("table", ir.IntType{})
	b2.IndirectBr(addr, tgt)
	if !ContainsHazard(ibBlk) {
		t.Errorf("indirect branch block should be hazardous")
	}
}
