// Package main implements the traceopt binary.
//
// Philosophy: fast, minimal, elegant - inspired by Go's compiler architecture.
package main

import (
	"fmt"
	"os"

	"github.com/GriffinCanCode/traceopt/pkg/analysis"
	_ "github.com/GriffinCanCode/traceopt/pkg/fplicm"
	"github.com/GriffinCanCode/traceopt/pkg/ir"
	"github.com/GriffinCanCode/traceopt/pkg/logger"
	"github.com/GriffinCanCode/traceopt/pkg/passes"
	_ "github.com/GriffinCanCode/traceopt/pkg/trace"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "demo":
		demo(os.Args[2:])
	case "passes":
		for _, name := range passes.Names() {
			fmt.Println(name)
		}
	case "version":
		fmt.Printf("traceopt version %s\n", version)
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`traceopt - trace formation and frequent-path LICM over an SSA CFG

Usage:
    traceopt demo [-pass name] [-profile file] [-v]  Run a pass over the demo program
    traceopt passes                                  List registered passes
    traceopt version                                 Show version
    traceopt help                                    Show this help message

Options:
    -pass <name>     Pass to run (default: static)
    -profile <file>  JSON execution profile
    -v               Verbose (debug) logging`)
}

func demo(args []string) {
	passName := "static"
	profilePath := ""
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-pass":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "error: -pass needs an argument")
				os.Exit(1)
			}
			passName = args[i]
		case "-profile":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "error: -profile needs an argument")
				os.Exit(1)
			}
			profilePath = args[i]
		case "-v":
			logger.InitDev()
		default:
			fmt.Fprintf(os.Stderr, "error: unknown flag %s\n", args[i])
			os.Exit(1)
		}
	}

	factory, err := passes.Lookup(passName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var prof *analysis.Profile
	if profilePath != "" {
		prof, err = analysis.LoadProfile(profilePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	prog := buildDemo()
	changed := factory().Run(prog, prof)
	fmt.Printf("pass=%s changed=%v\n", passName, changed)
	for _, fn := range prog.Functions {
		fmt.Print(fn)
	}
}

// buildDemo assembles a function with a biased loop: the frequent path
// loads a counter the rare path updates, the shape both subsystems
// care about.
func buildDemo() *ir.Program {
	g := ir.NewGlobal("counter", ir.IntType{})
	n := ir.NewParam("n", ir.IntType{})

	b := ir.NewBuilder("demo", n)
	entry := b.Block("entry")
	header := b.Block("header")
	body := b.Block("body")
	rare := b.Block("rare")
	latch := b.Block("latch")
	exit := b.Block("exit")

	w := func(f float64) uint32 { return analysis.ProbFromFloat(f).N }

	b.SetBlock(entry)
	iv := b.Alloca(ir.IntType{}, "i")
	b.Store(ir.I64(0), iv)
	b.Br(header)

	b.SetBlock(header)
	ld := b.Load(g, "c")
	i0 := b.Load(iv, "i0")
	cmp := b.ICmp(ir.PredSLT, i0, n, "cmp")
	b.CondBrWeighted(cmp, exit, body, w(0.1), w(0.9))

	b.SetBlock(body)
	sum := b.Add(ld, i0, "sum")
	odd := b.ICmp(ir.PredEQ, sum, ir.I64(0), "odd")
	b.CondBrWeighted(odd, latch, rare, w(0.95), w(0.05))

	b.SetBlock(rare)
	b.Store(sum, g)
	b.Br(latch)

	b.SetBlock(latch)
	i1 := b.Add(i0, ir.I64(1), "i1")
	b.Store(i1, iv)
	b.Br(header)

	b.SetBlock(exit)
	b.Ret(i0)

	return &ir.Program{Functions: []*ir.Function{b.Fn}}
}
