// Package compiler implements the Firestarter: it lowers a parsed ast.Script
// into a flat ir.CompiledScript, desugaring if/for/foreach blocks into
// explicit labels and jumps, resolving labels in two passes, and folding
// constant subexpressions. Grounded on the teacher's planner/compile
// pipeline shape (parse tree in, flat IR out, errors collected rather than
// raised on first failure) adapted to Tinder's line-oriented source.
package compiler

import (
	"fmt"

	"github.com/tinderlang/tinder/ast"
	"github.com/tinderlang/tinder/ir"
	"github.com/tinderlang/tinder/value"
)

// Compile lowers script into an executable CompiledScript, or returns the
// accumulated ast.Errors if any line fails to compile.
func Compile(script *ast.Script, file string) (*ir.CompiledScript, error) {
	c := &compiler{file: file, cs: ir.NewCompiledScript(), pendingSteps: make(map[string]ast.Node)}
	c.run(script)
	if len(c.errs) > 0 {
		return nil, c.errs
	}
	if err := c.resolveLabels(); err != nil {
		return nil, err
	}
	return c.cs, nil
}

// blockFrame tracks one open if/for/foreach block being desugared.
type blockFrame struct {
	kind string // "if", "for", "forwhile", "foreach"

	// if-chain bookkeeping
	endLabel  string
	nextLabel string // label the previous test jumps to if its condition was false
	sawElse   bool

	// loop bookkeeping
	startLabel    string
	continueLabel string
	exitLabel     string
}

type compiler struct {
	file         string
	cs           *ir.CompiledScript
	errs         ast.Errors
	blocks       []*blockFrame
	labelNo      int
	pendingSteps map[string]ast.Node // for-loop step statement, keyed by start label
}

func (c *compiler) fail(line int, format string, args ...interface{}) {
	loc := ast.NewLocation(nil, c.file, line, 1)
	c.errs = append(c.errs, ast.NewCompileError(loc, format, args...))
}

func (c *compiler) genLabel(prefix string) string {
	c.labelNo++
	return fmt.Sprintf("__%s%d__", prefix, c.labelNo)
}

// emitLabel appends an OpLabelHit anchor instruction for name and records it
// in the label table. loop is non-nil only for loop headers.
func (c *compiler) emitLabel(name string, fallthroughTarget string, loop *ir.LoopState, source int) {
	idx := len(c.cs.Lines)
	lbl := &ir.Label{Name: name, Index: idx, FallthroughTarget: fallthroughTarget, Loop: loop}
	c.cs.Labels[name] = lbl
	c.cs.Append(&ir.Instruction{Op: ir.OpLabelHit, Marker: lbl, Source: source})
}

// emitJump appends a structural (compiler-internal) jump to target. When
// negate is true the jump fires when cond is falsy rather than truthy — used
// for if/loop desugaring, where the raw (non-negated) cond is still the one
// written to __CONDITION__ at run time.
func (c *compiler) emitJump(target string, cond ast.Expr, negate bool, source int) {
	var condIR ir.Expr
	if cond != nil {
		condIR = c.compileExpr(cond)
	}
	c.cs.Append(&ir.Instruction{
		Op:              ir.OpJump,
		Label:           target,
		Condition:       condIR,
		NegateCondition: negate,
		Source:          source,
		Structural:      true,
	})
}

func (c *compiler) run(script *ast.Script) {
	for _, line := range script.Lines {
		c.compileLine(line)
	}
	for len(c.blocks) > 0 {
		top := c.blocks[len(c.blocks)-1]
		c.fail(0, "unclosed block %q", top.kind)
		c.blocks = c.blocks[:len(c.blocks)-1]
	}
}

func (c *compiler) pushBlock(f *blockFrame) { c.blocks = append(c.blocks, f) }

func (c *compiler) topBlock() *blockFrame {
	if len(c.blocks) == 0 {
		return nil
	}
	return c.blocks[len(c.blocks)-1]
}

func (c *compiler) popBlock() *blockFrame {
	n := len(c.blocks)
	f := c.blocks[n-1]
	c.blocks = c.blocks[:n-1]
	return f
}

// innermostLoop finds the nearest enclosing loop frame, for break/continue.
func (c *compiler) innermostLoop(source int) *blockFrame {
	for i := len(c.blocks) - 1; i >= 0; i-- {
		if c.blocks[i].kind != "if" {
			return c.blocks[i]
		}
	}
	c.fail(source, "break/continue outside of a loop")
	return nil
}

func (c *compiler) compileLine(line *ast.Line) {
	switch n := line.Node.(type) {
	case *ast.Comment:
		// not executable; dropped.
		return

	case *ast.Label:
		c.emitLabel(n.Name, n.Or, nil, line.Source)
		return

	case *ast.Import:
		c.cs.Append(&ir.Instruction{
			Op:        ir.OpImport,
			Library:   n.Library,
			Alias:     n.Alias,
			Condition: c.compileCond(line),
			Source:    line.Source,
		})
		return

	case *ast.FromImport:
		c.cs.Append(&ir.Instruction{
			Op:        ir.OpImport,
			Library:   n.Library,
			Symbols:   n.Symbols,
			Condition: c.compileCond(line),
			Source:    line.Source,
		})
		return

	case *ast.Const:
		c.cs.Append(&ir.Instruction{
			Op:        ir.OpConst,
			Name:      n.Name,
			Values:    []ir.Expr{c.compileExpr(n.Value)},
			Condition: c.compileCond(line),
			Source:    line.Source,
		})
		return

	case *ast.Catch:
		c.cs.Append(&ir.Instruction{
			Op:        ir.OpCatch,
			Name:      n.Exception,
			Label:     n.Label,
			Condition: c.compileCond(line),
			Source:    line.Source,
		})
		return

	case *ast.Set:
		names := make([]string, len(n.Names))
		for i, id := range n.Names {
			names[i] = id.String()
		}
		vals := make([]ir.Expr, len(n.Values))
		for i, v := range n.Values {
			vals[i] = c.compileExpr(v)
		}
		var from ir.Expr
		if n.From != nil {
			from = c.compileExpr(n.From)
		}
		c.cs.Append(&ir.Instruction{
			Op: ir.OpSet, Names: names, Values: vals, From: from,
			Condition: c.compileCond(line), Source: line.Source,
		})
		return

	case *ast.IncDec:
		op := ir.OpInc
		if n.Dec {
			op = ir.OpDec
		}
		var by ir.Expr
		if n.By != nil {
			by = c.compileExpr(n.By)
		}
		c.cs.Append(&ir.Instruction{
			Op: op, Names: []string{n.Name.String()}, By: by,
			Condition: c.compileCond(line), Source: line.Source,
		})
		return

	case *ast.Put:
		c.cs.Append(&ir.Instruction{
			Op: ir.OpPut, Names: []string{n.Name.String()},
			Values: []ir.Expr{c.compileExpr(n.Value)}, Before: n.Before,
			Condition: c.compileCond(line), Source: line.Source,
		})
		return

	case *ast.Swap:
		c.cs.Append(&ir.Instruction{
			Op: ir.OpSwap, Names: []string{n.A.String(), n.B.String()},
			Condition: c.compileCond(line), Source: line.Source,
		})
		return

	case *ast.Write:
		to := ""
		if n.To != nil {
			to = n.To.String()
		}
		c.cs.Append(&ir.Instruction{
			Op: ir.OpWrite, Values: []ir.Expr{c.compileExpr(n.Value)}, To: to,
			Condition: c.compileCond(line), Source: line.Source,
		})
		return

	case *ast.Input:
		to := ""
		if n.To != nil {
			to = n.To.String()
		}
		c.cs.Append(&ir.Instruction{
			Op: ir.OpInput, Values: []ir.Expr{c.compileExpr(n.Prompt)}, To: to,
			Condition: c.compileCond(line), Source: line.Source,
		})
		return

	case *ast.CallStmt:
		c.cs.Append(&ir.Instruction{
			Op: ir.OpCall, Values: []ir.Expr{c.compileExpr(n.Expr)},
			Condition: c.compileCond(line), Source: line.Source,
		})
		return

	case *ast.Jump:
		c.compileJump(n, line)
		return

	case *ast.Return:
		c.cs.Append(&ir.Instruction{Op: ir.OpReturn, Condition: c.compileCond(line), Source: line.Source})
		return

	case *ast.Yield:
		var vals []ir.Expr
		if n.Value != nil {
			vals = []ir.Expr{c.compileExpr(n.Value)}
		}
		c.cs.Append(&ir.Instruction{Op: ir.OpYield, Values: vals, Condition: c.compileCond(line), Source: line.Source})
		return

	case *ast.Stop:
		c.cs.Append(&ir.Instruction{Op: ir.OpStop, Condition: c.compileCond(line), Source: line.Source})
		return

	case *ast.If:
		c.compileIf(n, line.Source)
		return
	case *ast.ElseIf:
		c.compileElseIf(n, line.Source)
		return
	case *ast.Else:
		c.compileElse(line.Source)
		return
	case *ast.EndIf:
		c.compileEndIf(line.Source)
		return

	case *ast.For:
		c.compileFor(n, line.Source)
		return
	case *ast.ForWhile:
		c.compileForWhile(n, line.Source)
		return
	case *ast.Foreach:
		c.compileForeach(n, line.Source)
		return
	case *ast.EndFor:
		c.compileEndFor(line.Source)
		return

	case *ast.Break:
		if f := c.innermostLoop(line.Source); f != nil {
			c.emitJump(f.exitLabel, nil, false, line.Source)
		}
		return
	case *ast.Continue:
		if f := c.innermostLoop(line.Source); f != nil {
			c.emitJump(f.continueLabel, nil, false, line.Source)
		}
		return

	default:
		c.fail(line.Source, "unsupported statement %T", n)
	}
}

// compileCond compiles a line's trailing `if expr` guard, nil if absent.
func (c *compiler) compileCond(line *ast.Line) ir.Expr {
	if line.Condition == nil {
		return nil
	}
	return c.compileExpr(line.Condition)
}

func (c *compiler) compileJump(n *ast.Jump, line *ast.Line) {
	target := c.compileExpr(n.Target)
	inst := &ir.Instruction{Op: ir.OpJump, Target: target, Condition: c.compileCond(line), Source: line.Source}
	if lit, ok := target.(ir.ConstExpr); ok {
		if s, ok := lit.Value.(value.String); ok {
			inst.Label = string(s)
			inst.Target = nil
		}
	}
	c.cs.Append(inst)
}

func (c *compiler) compileIf(n *ast.If, source int) {
	end := c.genLabel("ifend")
	next := c.genLabel("elif")
	c.emitJump(next, n.Cond, true, source)
	c.pushBlock(&blockFrame{kind: "if", endLabel: end, nextLabel: next})
}

func (c *compiler) compileElseIf(n *ast.ElseIf, source int) {
	f := c.topBlock()
	if f == nil || f.kind != "if" {
		c.fail(source, "elseif without matching if")
		return
	}
	c.emitJump(f.endLabel, nil, false, source)
	c.emitLabel(f.nextLabel, "", nil, source)
	f.nextLabel = c.genLabel("elif")
	c.emitJump(f.nextLabel, n.Cond, true, source)
}

func (c *compiler) compileElse(source int) {
	f := c.topBlock()
	if f == nil || f.kind != "if" {
		c.fail(source, "else without matching if")
		return
	}
	c.emitJump(f.endLabel, nil, false, source)
	c.emitLabel(f.nextLabel, "", nil, source)
	f.nextLabel = ""
	f.sawElse = true
}

func (c *compiler) compileEndIf(source int) {
	f := c.topBlock()
	if f == nil || f.kind != "if" {
		c.fail(source, "endif without matching if")
		return
	}
	c.popBlock()
	if f.nextLabel != "" {
		c.emitLabel(f.nextLabel, "", nil, source)
	}
	c.emitLabel(f.endLabel, "", nil, source)
}

func (c *compiler) compileFor(n *ast.For, source int) {
	if n.Init != nil {
		c.compileLine(&ast.Line{Node: n.Init, Source: source})
	}
	start := c.genLabel("forstart")
	exit := c.genLabel("forexit")
	c.emitLabel(start, "", nil, source)
	if n.Cond != nil {
		c.emitJump(exit, n.Cond, true, source)
	}
	// continueLabel is the same header label startLabel points at: `continue`
	// is `jump <header_label>` for every loop kind, so it re-checks Cond
	// rather than running Step again on its own.
	c.pushBlock(&blockFrame{kind: "for", startLabel: start, continueLabel: start, exitLabel: exit})
	// step is compiled at EndFor: it is stashed in the pendingSteps side
	// table keyed by start label, where compileEndFor picks it up.
	c.pendingSteps[start] = n.Step
}

func (c *compiler) compileForWhile(n *ast.ForWhile, source int) {
	start := c.genLabel("forstart")
	exit := c.genLabel("forexit")
	c.emitLabel(start, "", nil, source)
	c.emitJump(exit, n.Cond, true, source)
	c.pushBlock(&blockFrame{kind: "forwhile", startLabel: start, continueLabel: start, exitLabel: exit})
}

func (c *compiler) compileForeach(n *ast.Foreach, source int) {
	start := c.genLabel("foreach")
	exit := c.genLabel("foreachexit")
	kind := "foreach"
	if len(n.Vars) == 2 {
		kind = "foreach-kv"
	}
	vars := make([]string, len(n.Vars))
	for i, v := range n.Vars {
		vars[i] = v.String()
	}
	loop := &ir.LoopState{Kind: kind, Vars: vars, Coll: c.compileExpr(n.Coll), ExitLbl: exit}
	c.emitLabel(start, "", loop, source)
	c.pushBlock(&blockFrame{kind: "foreach", startLabel: start, continueLabel: start, exitLabel: exit})
}

func (c *compiler) compileEndFor(source int) {
	f := c.topBlock()
	if f == nil || (f.kind != "for" && f.kind != "forwhile" && f.kind != "foreach") {
		c.fail(source, "endfor without matching loop header")
		return
	}
	c.popBlock()
	switch f.kind {
	case "for":
		if step, ok := c.pendingSteps[f.startLabel]; ok {
			delete(c.pendingSteps, f.startLabel)
			if step != nil {
				c.compileLine(&ast.Line{Node: step, Source: source})
			}
		}
		c.emitJump(f.startLabel, nil, false, source)
	case "forwhile", "foreach":
		c.emitJump(f.startLabel, nil, false, source)
	}
	c.emitLabel(f.exitLabel, "", nil, source)
}
