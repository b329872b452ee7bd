// Package passes - name-keyed pass registration and lookup
//
// Design: each pass package registers its passes from init, the driver
// selects them by identifier.
package passes

import (
	"fmt"
	"sort"

	"github.com/GriffinCanCode/traceopt/pkg/analysis"
	"github.com/GriffinCanCode/traceopt/pkg/ir"
)

// ErrUnknownPass is returned by Lookup for unregistered identifiers.
var ErrUnknownPass = fmt.Errorf("unknown pass")

// Pass transforms or analyzes a program. Run returns whether the IR
// was modified; prof may be nil when no profile is available.
type Pass interface {
	Name() string
	Run(prog *ir.Program, prof *analysis.Profile) bool
}

var registry = make(map[string]func() Pass)

// Register records a pass factory under its identifier. Duplicate
// registration panics; identifiers are unique by contract.
func Register(name string, factory func() Pass) {
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("passes: duplicate registration of %q", name))
	}
	registry[name] = factory
}

// Lookup returns the factory registered under name.
func Lookup(name string) (func() Pass, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPass, name)
	}
	return f, nil
}

// Names lists the registered identifiers in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
