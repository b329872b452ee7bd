// Pass wrappers and registration for the trace formation family.
package trace

import (
	"io"
	"os"

	"github.com/GriffinCanCode/traceopt/pkg/analysis"
	"github.com/GriffinCanCode/traceopt/pkg/ir"
	"github.com/GriffinCanCode/traceopt/pkg/logger"
	"github.com/GriffinCanCode/traceopt/pkg/passes"
)

// Pass runs trace formation with one policy over every function. It is
// read-only and always reports the IR unchanged.
type Pass struct {
	Out io.Writer

	policy func() Policy
}

// NewPass wraps a policy constructor as a registered-style pass
// writing to out. Each function gets a fresh policy instance, so no
// state leaks across functions.
func NewPass(policy func() Policy, out io.Writer) *Pass {
	return &Pass{Out: out, policy: policy}
}

func (p *Pass) Name() string { return p.policy().Name() }

func (p *Pass) Run(prog *ir.Program, prof *analysis.Profile) bool {
	for _, fn := range prog.Functions {
		logger.LogPass(p.Name(), fn.Name)
		d := NewDriver(p.policy(), p.Out)
		d.RunFunction(fn, prof)
	}
	logger.LogPassComplete(p.Name(), false)
	return false
}

func init() {
	for _, policy := range []func() Policy{
		func() Policy { return BasePolicy{} },
		func() Policy { return NewStaticPolicy() },
		func() Policy { return NewProfilePolicy() },
		func() Policy { return NewHazardProfilePolicy() },
	} {
		policy := policy
		passes.Register(policy().Name(), func() passes.Pass { return NewPass(policy, os.Stdout) })
	}
}
