// Human-readable dumps for logging and tooling.
package ir

import (
	"fmt"
	"strings"
)

// ValueName returns a short printable name for a value.
func ValueName(v Value) string {
	switch x := v.(type) {
	case *Instruction:
		if x.Name != "" {
			return "%" + x.Name
		}
		return "%" + x.Op.String()
	case *Const:
		if _, ok := x.Typ.(FloatType); ok {
			return fmt.Sprintf("%g", x.Flt)
		}
		return fmt.Sprintf("%d", x.Int)
	case *Param:
		return "%" + x.Name
	case *Global:
		return "@" + x.Name
	}
	return "?"
}

func (i *Instruction) String() string {
	var sb strings.Builder
	if i.Name != "" {
		fmt.Fprintf(&sb, "%%%s = ", i.Name)
	}
	sb.WriteString(i.Op.String())
	if i.IsCmp() {
		sb.WriteByte(' ')
		sb.WriteString(i.Pred.String())
	}
	for n, op := range i.Operands {
		if n > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte(' ')
		sb.WriteString(ValueName(op))
	}
	for n, t := range i.Targets {
		if n > 0 || len(i.Operands) > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, " label %%%s", t.Label)
	}
	if i.Op == OpCall {
		fmt.Fprintf(&sb, " @%s", i.Callee)
	}
	return sb.String()
}

func (b *Block) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\n", b.Label)
	for _, inst := range b.Insts {
		fmt.Fprintf(&sb, "  %s\n", inst)
	}
	return sb.String()
}

func (f *Function) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "func %s(", f.Name)
	for n, p := range f.Params {
		if n > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%%%s %s", p.Name, p.Typ)
	}
	sb.WriteString(") {\n")
	for _, b := range f.Blocks {
		sb.WriteString(b.String())
	}
	sb.WriteString("}\n")
	return sb.String()
}
