package compiler

import (
	"github.com/tinderlang/tinder/ast"
	"github.com/tinderlang/tinder/ir"
)

// resolveLabels runs once the whole instruction stream has been lowered, so
// forward references to labels defined later in the script resolve
// correctly. Only statically named targets (a literal label name) are
// checked here — a Jump whose target is a runtime expression is left for
// the interpreter to resolve against cs.Labels on each execution.
func (c *compiler) resolveLabels() error {
	var errs ast.Errors
	for _, inst := range c.cs.Lines {
		switch inst.Op {
		case ir.OpJump:
			if inst.Label == "" {
				continue
			}
			lbl, ok := c.cs.Labels[inst.Label]
			if !ok {
				errs = append(errs, ast.NewCompileError(
					ast.NewLocation(nil, c.file, inst.Source, 1),
					"jump to undefined label %q", inst.Label))
				continue
			}
			inst.LabelID = lbl.Index
		case ir.OpCatch:
			if _, ok := c.cs.Labels[inst.Label]; !ok {
				errs = append(errs, ast.NewCompileError(
					ast.NewLocation(nil, c.file, inst.Source, 1),
					"catch target label %q is undefined", inst.Label))
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
