// Package fplicm implements frequent-path loop invariant code motion:
// hoisting loads (and chains of almost-invariant consumers) whose
// invariance holds along the frequent intra-loop path, with fix-up
// code on the infrequent paths that invalidate them.
package fplicm

import (
	"errors"

	"github.com/GriffinCanCode/traceopt/pkg/analysis"
	"github.com/GriffinCanCode/traceopt/pkg/ir"
)

// ErrNoFrequentPath is returned when the walk from the header never
// closes the back-edge over frequent edges.
var ErrNoFrequentPath = errors.New("fplicm: loop has no frequent path")

// ErrNoPreheader is returned for loops without a pre-header to hoist
// into.
var ErrNoPreheader = errors.New("fplicm: loop has no preheader")

// FrequentEdgeThreshold is the minimum probability of an edge on the
// frequent path.
var FrequentEdgeThreshold = analysis.ProbFromFloat(0.8)

// FrequentPath walks forward from the loop header across edges whose
// probability meets the threshold until the back-edge returns to the
// header, and returns the set of blocks visited. When the walk dies
// out or cycles without reaching the header it fails rather than loop
// forever.
func FrequentPath(l *analysis.Loop, probs *analysis.BranchProbs) (map[*ir.Block]bool, error) {
	frequent := map[*ir.Block]bool{l.Header: true}
	curr := l.Header
	for steps := 0; ; steps++ {
		if steps > len(l.Blocks)+1 {
			return nil, ErrNoFrequentPath
		}
		var next *ir.Block
		for _, s := range curr.Succs() {
			if probs.EdgeProb(curr, s).GE(FrequentEdgeThreshold) {
				frequent[s] = true
				next = s
			}
		}
		if next == nil {
			return nil, ErrNoFrequentPath
		}
		if next == l.Header {
			return frequent, nil
		}
		curr = next
	}
}

// Infrequent returns the loop blocks outside the frequent path.
func Infrequent(l *analysis.Loop, frequent map[*ir.Block]bool) map[*ir.Block]bool {
	out := make(map[*ir.Block]bool)
	for _, b := range l.Blocks {
		if !frequent[b] {
			out[b] = true
		}
	}
	return out
}
