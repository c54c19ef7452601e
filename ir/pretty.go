package ir

import (
	"fmt"
	"sort"
	"strings"
)

// Disassemble renders cs as a human-readable listing, one instruction per
// line, labels printed inline above the line they anchor. Used by
// `cmd/tinder run --disasm`.
func Disassemble(cs *CompiledScript) string {
	var sb strings.Builder

	byIndex := make(map[int][]*Label)
	for _, l := range cs.Labels {
		byIndex[l.Index] = append(byIndex[l.Index], l)
	}

	for i, inst := range cs.Lines {
		for _, l := range byIndex[i] {
			fmt.Fprintf(&sb, "# %s", l.Name)
			if l.FallthroughTarget != "" {
				fmt.Fprintf(&sb, " or %s", l.FallthroughTarget)
			}
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%4d  %s\n", i, describeInstruction(inst))
	}

	if len(cs.Interrupts) > 0 {
		sb.WriteString("interrupts:\n")
		names := make([]string, 0, len(cs.Interrupts))
		for k := range cs.Interrupts {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Fprintf(&sb, "  %s -> %s\n", k, cs.Interrupts[k])
		}
	}
	return sb.String()
}

func describeInstruction(inst *Instruction) string {
	var sb strings.Builder
	sb.WriteString(inst.Op.String())
	switch inst.Op {
	case OpSet:
		fmt.Fprintf(&sb, " %s", strings.Join(inst.Names, ", "))
		if inst.From != nil {
			sb.WriteString(" from <expr>")
		} else {
			sb.WriteString(" = <exprs>")
		}
	case OpInc, OpDec:
		fmt.Fprintf(&sb, " %s", strings.Join(inst.Names, ""))
		if inst.By != nil {
			sb.WriteString(" by <expr>")
		}
	case OpPut:
		pos := "after"
		if inst.Before {
			pos = "before"
		}
		fmt.Fprintf(&sb, " <expr> %s %s", pos, strings.Join(inst.Names, ""))
	case OpSwap:
		fmt.Fprintf(&sb, " %s", strings.Join(inst.Names, ", "))
	case OpWrite, OpInput:
		sb.WriteString(" <expr>")
		if inst.To != "" {
			fmt.Fprintf(&sb, " to %s", inst.To)
		}
	case OpCall, OpYield, OpJump:
		sb.WriteString(" <expr>")
	case OpImport:
		if inst.Library != "" {
			fmt.Fprintf(&sb, " %s", inst.Library)
		} else {
			sb.WriteString(" <expr>")
		}
		if inst.Alias != "" {
			fmt.Fprintf(&sb, " as %s", inst.Alias)
		}
		if len(inst.Symbols) > 0 {
			fmt.Fprintf(&sb, " (%s)", strings.Join(inst.Symbols, ", "))
		}
	case OpConst:
		fmt.Fprintf(&sb, " %s = <expr>", inst.Name)
	case OpCatch:
		fmt.Fprintf(&sb, " %q at %s", inst.Name, inst.Label)
	case OpLabelHit:
		if inst.Marker != nil {
			fmt.Fprintf(&sb, " %s", inst.Marker.Name)
		}
	}
	if inst.Condition != nil {
		sb.WriteString(" if <expr>")
	}
	return sb.String()
}
