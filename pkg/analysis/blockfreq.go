// Block frequencies sourced from a runtime execution profile.
package analysis

import (
	"encoding/json"
	"os"

	"github.com/GriffinCanCode/traceopt/pkg/ir"
	"github.com/GriffinCanCode/traceopt/pkg/logger"
)

// Profile represents runtime execution profile
type Profile struct {
	Functions map[string]*FunctionProfile `json:"functions"`
	Hotspots  []Hotspot                   `json:"hotspots"`
}

type FunctionProfile struct {
	Name        string `json:"name"`
	Calls       uint64 `json:"calls"`
	TotalCycles uint64 `json:"total_cycles"`
}

type Hotspot struct {
	Function string  `json:"function"`
	Block    string  `json:"block"`
	Count    uint64  `json:"count"`
	Percent  float64 `json:"percent"`
}

// LoadProfile loads execution profile from file
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, err
	}

	return &profile, nil
}

// BlockFreq answers per-block profile-count queries for one function.
// Counts come from the profile's hotspots; the entry block falls back
// to the function's call count.
type BlockFreq struct {
	counts map[*ir.Block]uint64
}

// NewBlockFreq builds the block-frequency view of f from prof, which
// may be nil (no block then has a count).
func NewBlockFreq(f *ir.Function, prof *Profile) *BlockFreq {
	bf := &BlockFreq{counts: make(map[*ir.Block]uint64)}
	if prof == nil {
		return bf
	}
	for _, hs := range prof.Hotspots {
		if hs.Function != f.Name {
			continue
		}
		if b := f.BlockByName(hs.Block); b != nil {
			bf.counts[b] = hs.Count
		}
	}
	if fp, ok := prof.Functions[f.Name]; ok {
		if entry := f.Entry(); entry != nil {
			if _, have := bf.counts[entry]; !have {
				bf.counts[entry] = fp.Calls
			}
		}
	}
	logger.LogAnalysis("blockfreq", f.Name, len(bf.counts))
	return bf
}

// SetCount records a count directly, for callers that carry their own
// frequency data.
func (bf *BlockFreq) SetCount(b *ir.Block, count uint64) { bf.counts[b] = count }

// ProfileCount returns b's execution count, if known.
func (bf *BlockFreq) ProfileCount(b *ir.Block) (uint64, bool) {
	c, ok := bf.counts[b]
	return c, ok
}
